package ai

import (
	"context"
	"fmt"

	"atsengine/internal/config"
	"atsengine/internal/errors"
	"atsengine/internal/observability"
	"atsengine/internal/types"
)

// Tracker records duration, errors and token usage of model calls.
type Tracker interface {
	TrackAIOperationWithTokens(ctx context.Context, operation string, fn func(context.Context) *observability.AIOperationResult) error
}

// Service adapts a provider to the analysis and improvement pipelines.
type Service struct {
	Provider  AIProvider // Exported for health checks from the server package
	operation string
	config    *config.OperationAIConfig
	tracker   Tracker
	logger    *errors.Logger
}

// NewService creates a new AI service instance with configuration for a specific operation
func NewService(cfg *config.OperationAIConfig, operation string, logger *errors.Logger, opts ...ProviderOption) (*Service, error) {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"operation", operation,
		"model", cfg.Model,
		"temperature", *cfg.Temperature,
		"timeout", *cfg.Timeout,
		"max_retries", *cfg.MaxRetries,
		"use_system_prompts", *cfg.UseSystemPrompts)

	var provider AIProvider
	var err error
	switch cfg.Provider {
	case "gemini":
		provider, err = NewGeminiProvider(cfg, operation, logger, opts...)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
	if err != nil {
		if errors.HasCode(err, errors.ErrCodeMissingAPIKey) {
			return nil, err
		}
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to create AI provider", err)
	}

	return &Service{Provider: provider, operation: operation, config: cfg, logger: logger}, nil
}

// Services holds one service per model operation. Both are nil when the
// model is not configured.
type Services struct {
	Critique *Service
	Rewrite  *Service
}

// NewServices builds the critique and rewrite services from cfg. When AI is
// disabled or has no key, it returns empty Services and no error.
func NewServices(cfg *config.Config, logger *errors.Logger) (*Services, error) {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	if !cfg.AIAvailable() {
		logger.Info("AI features disabled", "enabled", cfg.AI.Enabled, "api_key_set", cfg.AI.APIKey != "")
		return &Services{}, nil
	}

	critiqueCfg := cfg.GetCritiqueConfig()
	critique, err := NewService(&critiqueCfg, config.OperationCritique, logger)
	if err != nil {
		return nil, err
	}
	rewriteCfg := cfg.GetRewriteConfig()
	rewrite, err := NewService(&rewriteCfg, config.OperationRewrite, logger)
	if err != nil {
		return nil, err
	}
	return &Services{Critique: critique, Rewrite: rewrite}, nil
}

// WithTracker attaches t to every service and returns s.
func (s *Services) WithTracker(t Tracker) *Services {
	for _, svc := range []*Service{s.Critique, s.Rewrite} {
		if svc != nil {
			svc.tracker = t
		}
	}
	return s
}

// Close closes both providers.
func (s *Services) Close() error {
	for _, svc := range []*Service{s.Critique, s.Rewrite} {
		if svc != nil {
			if err := svc.Provider.Close(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Critique implements the analysis pipeline's critic.
func (s *Service) Critique(ctx context.Context, text string) (types.Critique, error) {
	var out types.Critique
	err := s.track(ctx, func(ctx context.Context) (*TokenUsage, error) {
		c, usage, err := s.Provider.Critique(ctx, text)
		out = c
		return usage, err
	})
	return out, err
}

// Rewrite implements the improvement pipeline's rewriter.
func (s *Service) Rewrite(ctx context.Context, req types.RewriteRequest) (string, error) {
	var out string
	err := s.track(ctx, func(ctx context.Context) (*TokenUsage, error) {
		text, usage, err := s.Provider.Rewrite(ctx, req)
		out = text
		return usage, err
	})
	return out, err
}

func (s *Service) track(ctx context.Context, fn func(context.Context) (*TokenUsage, error)) error {
	if s.tracker == nil {
		_, err := fn(ctx)
		return err
	}
	return s.tracker.TrackAIOperationWithTokens(ctx, s.operation, func(ctx context.Context) *observability.AIOperationResult {
		usage, err := fn(ctx)
		result := &observability.AIOperationResult{Error: err}
		if usage != nil {
			result.TokenUsage = &observability.TokenUsage{
				InputTokens:  usage.InputTokens,
				OutputTokens: usage.OutputTokens,
				TotalTokens:  usage.TotalTokens,
			}
		}
		return result
	})
}

// GetModelInfo returns information about the AI model for health checks
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	return s.Provider.GetModelInfo(ctx)
}
