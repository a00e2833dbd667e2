package common

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"

	"atsengine/internal/errors"
	"atsengine/internal/extraction"
	"atsengine/internal/utils"
)

// FileProcessor reads résumé files and writes command output, mapping
// filesystem failures onto AppError codes.
type FileProcessor struct {
	logger *errors.Logger
}

func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	return &FileProcessor{logger: logger}
}

// ReadFile returns the whole file. A missing file is FILE_NOT_FOUND, any
// other failure FILE_NOT_READABLE.
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	content, err := os.ReadFile(filename)
	switch {
	case err == nil:
		return content, nil
	case stderrors.Is(err, fs.ErrNotExist):
		return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
			fmt.Sprintf("File not found: %s", filename), err)
	default:
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
}

// WriteFile writes content with owner-only permissions, creating parent
// directories as needed.
func (fp *FileProcessor) WriteFile(filename string, content []byte) error {
	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewIOError("DIRECTORY_CREATE_FAILED",
			fmt.Sprintf("Cannot create directory for %s", filename), err)
	}
	if err := os.WriteFile(filename, content, 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}
	fp.logger.Debug("Wrote file", "filename", filename, "size", utils.FormatFileSize(int64(len(content))))
	return nil
}

// ValidateAndReadDocument applies the upload rules to a local résumé file
// and reads it. maxSize <= 0 applies the default upload limit.
func (fp *FileProcessor) ValidateAndReadDocument(filename string, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = extraction.DefaultMaxFileSize
	}
	if err := utils.ValidateInputFile(filename, 0); err != nil {
		return nil, errors.NewValidationError("INVALID_INPUT_FILE",
			fmt.Sprintf("Invalid file %s", filename), err)
	}

	info, err := os.Stat(filename)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot stat file: %s", filename), err)
	}
	if err := extraction.ValidateUpload(filename, info.Size(), maxSize); err != nil {
		return nil, err
	}

	fp.logger.Debug("Reading input document",
		"filename", filename,
		"size", utils.FormatFileSize(info.Size()))
	return fp.ReadFile(filename)
}

// ValidateOutputFile prepares the directory for filename. Empty means stdout.
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil
	}
	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
