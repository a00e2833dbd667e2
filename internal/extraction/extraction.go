// Package extraction recovers plain text from uploaded PDF, DOCX and TXT
// documents.
package extraction

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"atsengine/internal/errors"
	"atsengine/internal/types"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
)

// Supported media types.
const (
	MediaTypePDF  = "application/pdf"
	MediaTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaTypeTXT  = "text/plain"
)

var (
	xmlTagRe     = regexp.MustCompile(`<[^>]+>`)
	blankRunRe   = regexp.MustCompile(`[ \t\r\f\v\x{00A0}]+`)
	newlineRunRe = regexp.MustCompile(`\n{3,}`)
)

// Extractor turns document bytes into text.
type Extractor struct {
	logger *errors.Logger
}

// New creates an Extractor. A nil logger discards output.
func New(logger *errors.Logger) *Extractor {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	return &Extractor{logger: logger}
}

// ExtractText dispatches on mediaType. Unknown types yield UNSUPPORTED_FORMAT;
// unreadable or empty documents yield EXTRACTION_FAILED.
func (e *Extractor) ExtractText(data []byte, mediaType string) (string, error) {
	var (
		text string
		err  error
	)
	switch baseMediaType(mediaType) {
	case MediaTypePDF:
		text, err = e.pdfText(data)
	case MediaTypeDOCX:
		text, err = docxText(data)
	case MediaTypeTXT:
		if !utf8.Valid(data) {
			return "", errors.NewExtractionFailed("text file is not valid UTF-8", nil)
		}
		text = string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	default:
		return "", errors.NewUnsupportedFormat(mediaType)
	}
	if err != nil {
		return "", err
	}

	text = normalize(text)
	if text == "" {
		return "", errors.NewExtractionFailed("document contains no extractable text", nil).
			WithContext("media_type", mediaType)
	}
	return text, nil
}

// Document builds the RawDocument for an upload.
func (e *Extractor) Document(filename string, data []byte) (types.RawDocument, error) {
	mediaType, err := MediaTypeFor(filename)
	if err != nil {
		return types.RawDocument{}, err
	}
	if err := checkSignature(data, mediaType); err != nil {
		return types.RawDocument{}, err
	}

	text, err := e.ExtractText(data, mediaType)
	if err != nil {
		return types.RawDocument{}, err
	}
	e.logger.Debug("Extracted document text", "filename", filename, "media_type", mediaType, "chars", len(text))

	return types.RawDocument{
		Filename:  filename,
		MediaType: mediaType,
		Content:   data,
		Text:      text,
		Lines:     lines(text),
	}, nil
}

func (e *Extractor) pdfText(data []byte) (text string, err error) {
	// the pdf parser panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			err = errors.NewExtractionFailed("malformed PDF", fmt.Errorf("%v", r))
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.NewExtractionFailed("failed to read PDF", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			e.logger.Debug("Row extraction failed, falling back to plain text", "page", i, "error", err.Error())
			plain, perr := page.GetPlainText(nil)
			if perr != nil {
				return "", errors.NewExtractionFailed(fmt.Sprintf("failed to read PDF page %d", i), perr)
			}
			b.WriteString(plain)
			b.WriteByte('\n')
			continue
		}
		for _, row := range rows {
			for _, word := range row.Content {
				b.WriteString(word.S)
			}
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

func docxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.NewExtractionFailed("failed to read DOCX", err)
	}
	defer doc.Close()

	xml := doc.Editable().GetContent()
	xml = strings.ReplaceAll(xml, "</w:p>", "\n")
	xml = strings.ReplaceAll(xml, "<w:tab/>", "\t")
	xml = strings.ReplaceAll(xml, "<w:br/>", "\n")
	return unescapeXML(xmlTagRe.ReplaceAllString(xml, "")), nil
}

var xmlEntities = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'")

func unescapeXML(s string) string {
	return xmlEntities.Replace(s)
}

// normalize collapses horizontal whitespace per line and long blank runs.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	out := strings.Split(s, "\n")
	for i, line := range out {
		out[i] = strings.TrimSpace(blankRunRe.ReplaceAllString(line, " "))
	}
	s = strings.Join(out, "\n")
	return strings.TrimSpace(newlineRunRe.ReplaceAllString(s, "\n\n"))
}

func lines(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func baseMediaType(mediaType string) string {
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = mediaType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}
