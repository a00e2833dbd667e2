package cli

import (
	"context"
	"fmt"

	"atsengine/internal/common"
	"atsengine/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server exposing the analysis and improvement pipelines.

Available endpoints:
- POST /analyze: Score resume text
- POST /upload: Score an uploaded .pdf, .docx or .txt file
- POST /improve: Rewrite a resume for ATS
- GET /templates: List resume templates
- GET /health: Health check endpoint
- GET /stats: Circuit breaker, rate limiter and cache statistics

TLS is configured under server.tls in the config file.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveHost string
	servePort string
)

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	if serveHost != "" {
		cfg.Server.Host = serveHost
	}
	if servePort != "" {
		cfg.Server.Port = servePort
	}
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	engine, err := common.NewEngine(cmd.Context(), cfg, logger, common.EngineOptions{
		Version:     Version,
		LongRunning: true,
	})
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), engineCloseTimeout)
		defer cancel()
		if err := engine.Close(ctx); err != nil {
			logger.LogError(err, "Failed to release engine")
		}
	}()

	return server.NewServer(engine, Version, logger).Start(cmd.Context())
}
