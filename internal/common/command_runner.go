package common

import (
	"context"

	"atsengine/internal/errors"
	"atsengine/internal/extraction"
	"atsengine/internal/types"
)

// DocumentOperationFunc turns an extracted document into a printable result.
type DocumentOperationFunc[Output any] func(context.Context, types.RawDocument) (Output, error)

// LogDetailsFunc defines how to log the start of an operation.
type LogDetailsFunc func(doc types.RawDocument, cfg CommandConfig)

// RunDocumentCommand reads and extracts filename, runs operation on it and
// writes the formatted result.
func RunDocumentCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	extractor *extraction.Extractor,
	maxSize int64,
	cmdConfig CommandConfig,
	filename string,
	operation DocumentOperationFunc[Output],
	logDetails LogDetailsFunc,
) error {
	fileProcessor := NewFileProcessor(logger)
	outputHandler := NewOutputHandler(logger)

	data, err := fileProcessor.ValidateAndReadDocument(filename, maxSize)
	if err != nil {
		return err
	}

	doc, err := extractor.Document(filename, data)
	if err != nil {
		return err
	}

	if logDetails != nil {
		logDetails(doc, cmdConfig)
	}

	result, err := operation(ctx, doc)
	if err != nil {
		return err
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
