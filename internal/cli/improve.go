package cli

import (
	"context"
	"fmt"

	"atsengine/internal/common"
	"atsengine/internal/types"

	"github.com/spf13/cobra"
)

var improveCmd = &cobra.Command{
	Use:   "improve --file <resume>",
	Short: "Rewrite a resume for applicant tracking systems",
	Long: `Analyze a resume, pick an improvement strategy, and rewrite it with the
configured language model. The rewritten resume is rescored and rendered with
a template; use --out-doc to save the rendered document.

Templates: modern_professional, creative_professional, academic_research,
executive_leadership. Without --template one is chosen from the strategy,
industry and seniority.`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := common.ValidateTemplateID(improveTemplate); err != nil {
			return err
		}
		return formatPreRun(&improveConfig)(cmd, args)
	},
	RunE: runImprove,
}

var (
	improveConfig   common.CommandConfig
	improveFile     string
	improveIndustry string
	improveTemplate string
	improveOutDoc   string
)

func init() {
	improveCmd.Flags().StringVarP(&improveFile, "file", "f", "", "Resume file to improve (.pdf, .docx, .txt)")
	improveCmd.Flags().StringVar(&improveIndustry, "industry", "", "Target industry (default from config)")
	improveCmd.Flags().StringVar(&improveTemplate, "template", "", "Template ID for the rendered document")
	improveCmd.Flags().StringVar(&improveOutDoc, "out-doc", "", "Write the rendered document to this path")
	registerFormatFlags(improveCmd, &improveConfig)
	_ = improveCmd.MarkFlagRequired("file")
}

func runImprove(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	engine, release, err := newEngine(cmd, false)
	if err != nil {
		return err
	}
	defer release()

	industry := common.NormalizeIndustry(improveIndustry, cfg.App.DefaultIndustry)
	fileProcessor := common.NewFileProcessor(logger)

	logDetails := func(doc types.RawDocument, cmdConfig common.CommandConfig) {
		logger.Info("Starting resume improvement",
			"file", doc.Filename,
			"chars", len(doc.Text),
			"industry", industry,
			"template", improveTemplate,
			"output_format", cmdConfig.OutputFormat)
	}

	improve := func(ctx context.Context, doc types.RawDocument) (*types.ImprovementResult, error) {
		analysis, err := engine.Analyzer.Analyze(ctx, doc.Text, industry)
		if err != nil {
			return nil, err
		}
		result, err := engine.Improver.Improve(ctx, types.ImprovementRequest{
			OriginalText:    doc.Text,
			Report:          analysis.Report,
			Industry:        industry,
			OriginalScore:   analysis.Score.Total,
			TemplateID:      improveTemplate,
			YearsExperience: analysis.Parsed.YearsExperience,
			IssueCount:      len(analysis.Issues),
		})
		if err != nil {
			return nil, err
		}
		if err := writeDocument(fileProcessor, result.Document); err != nil {
			return nil, err
		}
		return result, nil
	}

	err = common.RunDocumentCommand(
		cmd.Context(),
		logger,
		engine.Extractor,
		cfg.App.MaxFileSize,
		improveConfig,
		improveFile,
		improve,
		logDetails,
	)
	if err != nil {
		return fmt.Errorf("failed to improve resume: %w", err)
	}
	logger.Info("Resume improvement completed successfully")
	return nil
}

// writeDocument saves inline document content to --out-doc. Stored
// documents are only reported by URL.
func writeDocument(fp *common.FileProcessor, doc types.RenderedDocument) error {
	if improveOutDoc == "" {
		return nil
	}
	if len(doc.Content) == 0 {
		if doc.URL != "" {
			fmt.Printf("Document stored at %s\n", doc.URL)
		}
		return nil
	}
	if err := fp.ValidateOutputFile(improveOutDoc); err != nil {
		return err
	}
	return fp.WriteFile(improveOutDoc, doc.Content)
}
