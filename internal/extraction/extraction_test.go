package extraction

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"atsengine/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docxBytes(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	files := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			body + `</w:body></w:document>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
	}
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractText(t *testing.T) {
	e := New(nil)

	t.Run("plain text", func(t *testing.T) {
		got, err := e.ExtractText([]byte("\xef\xbb\xbfJane Doe\r\n\r\n\r\n\r\nSkills:\t Go,   SQL  "), "text/plain; charset=utf-8")
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe\n\nSkills: Go, SQL", got)
	})

	t.Run("docx paragraphs", func(t *testing.T) {
		data := docxBytes(t, `<w:p><w:r><w:t>Jane Doe</w:t></w:r></w:p><w:p><w:r><w:t>R&amp;D Engineer</w:t></w:r></w:p>`)
		got, err := e.ExtractText(data, MediaTypeDOCX)
		require.NoError(t, err)
		assert.Equal(t, "Jane Doe\nR&D Engineer", got)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := e.ExtractText([]byte("x"), "image/png")
		assert.True(t, errors.HasCode(err, errors.ErrCodeUnsupportedFormat), "got %v", err)
	})

	t.Run("empty text", func(t *testing.T) {
		_, err := e.ExtractText([]byte("  \n\t "), MediaTypeTXT)
		assert.True(t, errors.HasCode(err, errors.ErrCodeExtractionFailed), "got %v", err)
	})

	t.Run("invalid utf8", func(t *testing.T) {
		_, err := e.ExtractText([]byte{0xff, 0xfe, 0x00}, MediaTypeTXT)
		assert.True(t, errors.HasCode(err, errors.ErrCodeExtractionFailed), "got %v", err)
	})

	t.Run("corrupt pdf", func(t *testing.T) {
		_, err := e.ExtractText([]byte("%PDF-1.4 garbage"), MediaTypePDF)
		assert.True(t, errors.HasCode(err, errors.ErrCodeExtractionFailed), "got %v", err)
	})

	t.Run("corrupt docx", func(t *testing.T) {
		_, err := e.ExtractText([]byte("PK\x03\x04 not really"), MediaTypeDOCX)
		assert.True(t, errors.HasCode(err, errors.ErrCodeExtractionFailed), "got %v", err)
	})
}

func TestDocument(t *testing.T) {
	e := New(nil)

	doc, err := e.Document("cv.TXT", []byte("Jane Doe\n\n  Experience  \n"))
	require.NoError(t, err)
	assert.Equal(t, MediaTypeTXT, doc.MediaType)
	require.Len(t, doc.Lines, 2)
	assert.Equal(t, "Experience", doc.Lines[1])

	_, err = e.Document("cv.pdf", []byte("Jane Doe"))
	assert.True(t, errors.HasCode(err, errors.ErrCodeUnsupportedFormat), "mislabelled pdf: %v", err)
}

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		size     int64
		maxSize  int64
		code     string
	}{
		{"pdf ok", "resume.pdf", 1024, 0, ""},
		{"docx ok", "resume.DOCX", 1024, 0, ""},
		{"txt at limit", "resume.txt", DefaultMaxFileSize, 0, ""},
		{"too large", "resume.pdf", DefaultMaxFileSize + 1, 0, errors.ErrCodeFileTooLarge},
		{"custom limit", "resume.pdf", 2048, 1024, errors.ErrCodeFileTooLarge},
		{"bad extension", "resume.odt", 10, 0, errors.ErrCodeUnsupportedFormat},
		{"no extension", "resume", 10, 0, errors.ErrCodeUnsupportedFormat},
		{"empty name", "", 10, 0, errors.ErrCodeInvalidRequest},
		{"long name", strings.Repeat("a", 252) + ".pdf", 10, 0, errors.ErrCodeInvalidRequest},
		{"name at limit", strings.Repeat("a", 251) + ".pdf", 10, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.filename, tt.size, tt.maxSize)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.HasCode(err, tt.code), "want %s, got %v", tt.code, err)
		})
	}
}
