package extraction

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"atsengine/internal/errors"
	"atsengine/internal/utils"
)

// Upload limits.
const (
	DefaultMaxFileSize = 10 << 20
	MaxFilenameLength  = 255
)

var mediaTypes = map[string]string{
	".pdf":  MediaTypePDF,
	".docx": MediaTypeDOCX,
	".txt":  MediaTypeTXT,
}

// SupportedExtensions lists accepted upload extensions.
func SupportedExtensions() []string {
	return []string{".pdf", ".docx", ".txt"}
}

// MediaTypeFor maps a filename's extension to its media type.
func MediaTypeFor(filename string) (string, error) {
	ext := utils.GetFileExtension(filename)
	mt, ok := mediaTypes[ext]
	if !ok {
		return "", errors.NewUnsupportedFormat(ext).WithContext("filename", filename)
	}
	return mt, nil
}

// ValidateUpload checks the filename and size of an upload before its bytes
// are read. maxSize <= 0 applies DefaultMaxFileSize.
func ValidateUpload(filename string, size, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "filename is required", nil)
	}
	if len(name) > MaxFilenameLength {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("filename exceeds %d characters", MaxFilenameLength), nil)
	}
	if _, err := MediaTypeFor(name); err != nil {
		return err
	}
	if size > maxSize {
		return errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("file is %s, limit is %s", utils.FormatFileSize(size), utils.FormatFileSize(maxSize)), nil).
			WithContext("size", size)
	}
	return nil
}

// checkSignature rejects binary uploads whose content does not match the
// claimed extension.
func checkSignature(data []byte, mediaType string) error {
	switch mediaType {
	case MediaTypePDF:
		if !bytes.HasPrefix(data, []byte("%PDF-")) {
			return errors.NewUnsupportedFormat(mediaType).WithContext("reason", "missing PDF header")
		}
	case MediaTypeDOCX:
		if !bytes.HasPrefix(data, []byte("PK\x03\x04")) {
			return errors.NewUnsupportedFormat(mediaType).WithContext("reason", "not a zip container")
		}
	}
	return nil
}
