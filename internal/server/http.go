package server

import (
	"time"

	"atsengine/internal/common"
	"atsengine/internal/config"
	appErrors "atsengine/internal/errors"
	"atsengine/internal/types"

	"github.com/go-playground/validator/v10"
)

// multipartOverhead is added to the upload limit for form boundaries and
// the industry field.
const multipartOverhead = 1 << 20

// AnalyzeRequest represents the request body for the analyze endpoint
type AnalyzeRequest struct {
	Text     string `json:"text" validate:"required"`
	Industry string `json:"industry" validate:"omitempty,max=64"`
}

// ImproveRequest represents the request body for the improve endpoint.
// Report and OriginalScore come from a previous analysis; without a report
// the text is analyzed first.
type ImproveRequest struct {
	Text          string                `json:"text" validate:"required"`
	Industry      string                `json:"industry" validate:"omitempty,max=64"`
	TemplateID    string                `json:"template_id" validate:"omitempty,max=64"`
	Report        *types.AdvancedReport `json:"report,omitempty"`
	OriginalScore *int                  `json:"original_score,omitempty" validate:"omitempty,min=0,max=100"`
}

// UploadResponse is an analysis of an uploaded file plus the identifier of
// its durable record.
type UploadResponse struct {
	*types.Analysis
	RecordID string `json:"record_id"`
	Filename string `json:"filename"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	// Full application configuration
	AppConfig *config.Config

	// Pipelines and their collaborators
	Engine *common.Engine

	TLSConfig config.TLSConfig

	// API Authentication
	APIKeys map[string]bool

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Request size limit
	MaxRequestSize int64

	RateLimit   *config.RateLimitConfig
	RateLimiter *RateLimiter

	Logger *appErrors.Logger

	validate *validator.Validate
}

// NewServer creates a Server for engine from its configuration.
func NewServer(engine *common.Engine, version string, logger *appErrors.Logger) *Server {
	if logger == nil {
		logger = appErrors.NewDiscardLogger()
	}
	cfg := engine.Config

	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range cfg.Server.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	rateLimit := cfg.Server.RateLimit
	var rateLimiter *RateLimiter
	if rateLimit.Enabled {
		rateLimiter = NewRateLimiter(rateLimit.RequestsPerMin, rateLimit.BurstCapacity, logger)
	}

	maxFileSize := cfg.App.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = 10 << 20
	}

	return &Server{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        version,
		AppConfig:      cfg,
		Engine:         engine,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        apiKeyMap,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: maxFileSize + multipartOverhead,
		RateLimit:      &rateLimit,
		RateLimiter:    rateLimiter,
		Logger:         logger,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
	}
}
