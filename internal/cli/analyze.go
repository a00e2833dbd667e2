package cli

import (
	"context"
	"fmt"

	"atsengine/internal/common"
	"atsengine/internal/types"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze --file <resume>",
	Short: "Score a resume for applicant tracking systems",
	Long: `Analyze a resume file (.pdf, .docx or .txt) and print its ATS score.

The analysis includes:
- Contact, skills, education, experience, structure and readability scores
- Prioritized issues and recommendations
- Keyword coverage for the selected industry
- Weak language, grammar and spelling findings (model critique when configured)`,
	Args:    cobra.NoArgs,
	PreRunE: formatPreRun(&analyzeConfig),
	RunE:    runAnalyze,
}

var (
	analyzeConfig   common.CommandConfig
	analyzeFile     string
	analyzeIndustry string
	analyzeNoAI     bool
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeFile, "file", "f", "", "Resume file to analyze (.pdf, .docx, .txt)")
	analyzeCmd.Flags().StringVar(&analyzeIndustry, "industry", "", "Target industry (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeNoAI, "no-ai", false, "Skip the model critique")
	registerFormatFlags(analyzeCmd, &analyzeConfig)
	_ = analyzeCmd.MarkFlagRequired("file")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	engine, release, err := newEngine(cmd, analyzeNoAI)
	if err != nil {
		return err
	}
	defer release()

	industry := common.NormalizeIndustry(analyzeIndustry, cfg.App.DefaultIndustry)

	logDetails := func(doc types.RawDocument, cmdConfig common.CommandConfig) {
		logger.Info("Starting resume analysis",
			"file", doc.Filename,
			"media_type", doc.MediaType,
			"chars", len(doc.Text),
			"industry", industry,
			"critique", !analyzeNoAI && engine.AIAvailable(),
			"output_format", cmdConfig.OutputFormat)
	}

	analyze := func(ctx context.Context, doc types.RawDocument) (*types.Analysis, error) {
		return engine.Analyzer.Analyze(ctx, doc.Text, industry)
	}

	err = common.RunDocumentCommand(
		cmd.Context(),
		logger,
		engine.Extractor,
		cfg.App.MaxFileSize,
		analyzeConfig,
		analyzeFile,
		analyze,
		logDetails,
	)
	if err != nil {
		return fmt.Errorf("failed to analyze resume: %w", err)
	}
	logger.Info("Resume analysis completed successfully")
	return nil
}
