package common

import (
	"fmt"
	"io"
	"os"

	"atsengine/internal/errors"
	"atsengine/internal/formatters"
)

// CommandConfig is the output destination shared by document commands.
// An empty OutputFile means stdout.
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
}

// OutputHandler renders command results through the formatter registry.
type OutputHandler struct {
	files    *FileProcessor
	registry *formatters.FormatterRegistry
	stdout   io.Writer
	logger   *errors.Logger
}

func NewOutputHandler(logger *errors.Logger) *OutputHandler {
	files := NewFileProcessor(logger)
	return &OutputHandler{
		files:    files,
		registry: formatters.GlobalRegistry,
		stdout:   os.Stdout,
		logger:   files.logger,
	}
}

// HandleOutput formats data as cc.OutputFormat and writes it to the
// configured destination.
func (oh *OutputHandler) HandleOutput(data any, cc CommandConfig) error {
	if err := oh.files.ValidateOutputFile(cc.OutputFile); err != nil {
		return err
	}

	rendered, err := oh.registry.Format(data, cc.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("cannot render output as %q", cc.OutputFormat), err)
	}

	if cc.OutputFile == "" {
		_, err := io.WriteString(oh.stdout, rendered)
		return err
	}
	if err := oh.files.WriteFile(cc.OutputFile, []byte(rendered)); err != nil {
		return err
	}
	oh.logger.Info("Wrote output", "file", cc.OutputFile, "format", cc.OutputFormat, "bytes", len(rendered))
	return nil
}

// GetSupportedFormats lists the formats any registered type can render to.
func (oh *OutputHandler) GetSupportedFormats() []string {
	return oh.registry.GetSupportedFormats()
}
