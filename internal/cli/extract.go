package cli

import (
	"context"
	"fmt"

	"atsengine/internal/common"
	"atsengine/internal/types"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract --file <resume>",
	Short: "Print the fields parsed from a resume",
	Long: `Extract contact details, experience, education, skills and certifications
from a resume file without scoring it or calling a language model.`,
	Args:    cobra.NoArgs,
	PreRunE: formatPreRun(&extractConfig),
	RunE:    runExtract,
}

var (
	extractConfig common.CommandConfig
	extractFile   string
)

func init() {
	extractCmd.Flags().StringVarP(&extractFile, "file", "f", "", "Resume file to parse (.pdf, .docx, .txt)")
	registerFormatFlags(extractCmd, &extractConfig)
	_ = extractCmd.MarkFlagRequired("file")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	engine, release, err := newEngine(cmd, true)
	if err != nil {
		return err
	}
	defer release()

	extract := func(ctx context.Context, doc types.RawDocument) (*types.ParsedResume, error) {
		analysis, err := engine.Analyzer.AnalyzeLocal(ctx, doc.Text, cfg.App.DefaultIndustry)
		if err != nil {
			return nil, err
		}
		return &analysis.Parsed, nil
	}

	logDetails := func(doc types.RawDocument, cmdConfig common.CommandConfig) {
		logger.Debug("Extracting resume fields", "file", doc.Filename, "media_type", doc.MediaType)
	}

	if err := common.RunDocumentCommand(cmd.Context(), logger, engine.Extractor, cfg.App.MaxFileSize,
		extractConfig, extractFile, extract, logDetails); err != nil {
		return fmt.Errorf("failed to extract resume: %w", err)
	}
	return nil
}
