package ai

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"strings"
	"time"

	"atsengine/internal/config"
	atsengineErrors "atsengine/internal/errors"
	"atsengine/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const (
	defaultModelCheckTimeout = 10 * time.Second
	maxBackoff               = 30 * time.Second
)

// GeminiProvider implements AIProvider for Google Gemini
type GeminiProvider struct {
	client            *genai.Client
	config            *config.OperationAIConfig
	operation         string
	generateBreaker   *Breaker[*genai.GenerateContentResponse]
	modelBreaker      *Breaker[*genai.Model]
	modelCheckTimeout time.Duration
	logger            *atsengineErrors.Logger
}

// Ensure GeminiProvider implements AIProvider
var _ AIProvider = (*GeminiProvider)(nil)

// ProviderOption customizes the Gemini client.
type ProviderOption func(*providerOptions)

type providerOptions struct {
	baseURL    string
	httpClient *http.Client
}

// WithBaseURL points the client at a different API host.
func WithBaseURL(url string) ProviderOption {
	return func(o *providerOptions) { o.baseURL = url }
}

// WithHTTPClient replaces the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(o *providerOptions) { o.httpClient = c }
}

// NewGeminiProvider creates a new Gemini provider instance for a specific operation
func NewGeminiProvider(cfg *config.OperationAIConfig, operation string, logger *atsengineErrors.Logger, opts ...ProviderOption) (*GeminiProvider, error) {
	if logger == nil {
		logger = atsengineErrors.NewDiscardLogger()
	}
	if cfg.APIKey == "" {
		return nil, atsengineErrors.NewConfigError(atsengineErrors.ErrCodeMissingAPIKey,
			"Gemini API key is not configured for "+operation, nil)
	}

	o := providerOptions{httpClient: &http.Client{Timeout: *cfg.Timeout}}
	for _, opt := range opts {
		opt(&o)
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: o.httpClient,
	}
	if o.baseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: o.baseURL}
	}

	client, err := genai.NewClient(context.Background(), clientCfg)
	if err != nil {
		return nil, atsengineErrors.NewAIError(atsengineErrors.ErrCodeAIServiceFailed,
			"Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client:            client,
		config:            cfg,
		operation:         operation,
		generateBreaker:   NewGenerateBreaker(operation, cfg, logger),
		modelBreaker:      NewModelBreaker(operation, cfg, logger),
		modelCheckTimeout: min(defaultModelCheckTimeout, *cfg.Timeout),
		logger:            logger,
	}, nil
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{Name: g.config.Model}

	checkCtx, cancel := context.WithTimeout(ctx, g.modelCheckTimeout)
	defer cancel()

	model, err := g.modelBreaker.Execute(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.config.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.config.Model,
			"operation", g.operation,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.DisplayName
	modelInfo.Version = model.Version

	g.logger.Debug("Model availability check successful",
		"model", g.config.Model,
		"operation", g.operation,
		"display_name", modelInfo.DisplayName,
		"version", modelInfo.Version)
	return modelInfo
}

// executeWithRetry executes an AI operation with retry logic and exponential backoff
func (g *GeminiProvider) executeWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	var lastErr error
	maxRetries := *g.config.MaxRetries

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation",
				"operation", operation,
				"attempt", attempt,
				"max_retries", maxRetries,
				"error", lastErr.Error())

			select {
			case <-time.After(backoffDelay(attempt)):
			case <-ctx.Done():
				return nil, fmt.Errorf("operation '%s' cancelled during backoff: %w", operation, ctx.Err())
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry",
					"operation", operation,
					"total_attempts", attempt+1)
			}
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil || !isRetryableError(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts",
				"operation", operation,
				"error", err.Error())
			break
		}
	}

	g.logger.LogError(lastErr, "AI operation failed after all retry attempts",
		"operation", operation,
		"max_retries", maxRetries)
	return nil, fmt.Errorf("operation '%s' failed: %w", operation, lastErr)
}

// backoffDelay is 2^(attempt-1) seconds plus up to 10% jitter, capped.
func backoffDelay(attempt int) time.Duration {
	baseDelay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
	jitter := time.Duration(0)
	if jitterMax := int64(float64(baseDelay) * 0.1); jitterMax > 0 {
		if n, err := rand.Int(rand.Reader, big.NewInt(jitterMax)); err == nil {
			jitter = time.Duration(n.Int64())
		}
	}
	return min(baseDelay+jitter, maxBackoff)
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// Network errors, including connection refused.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	code := 0
	var apiErr *googleapi.Error
	var genaiErr genai.APIError
	var genaiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
	case errors.As(err, &genaiErr):
		code = genaiErr.Code
	case errors.As(err, &genaiErrPtr):
		code = genaiErrPtr.Code
	}

	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// classifyError maps a failed call to ModelTimeout or ModelUnavailable.
func classifyError(ctx context.Context, operation string, err error) error {
	switch {
	case atsengineErrors.IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return atsengineErrors.NewModelTimeout("model request timed out for "+operation, err)
	case isBreakerRejection(err):
		return atsengineErrors.NewModelUnavailable("circuit breaker open for "+operation, err)
	default:
		return atsengineErrors.NewModelUnavailable("model request failed for "+operation, err)
	}
}

// executeAIOperation is a generic helper to run AI operations with common tracing, circuit breaker, and parsing logic.
func executeAIOperation[Out any](
	g *GeminiProvider,
	ctx context.Context,
	operationName string,
	userPrompt string,
	systemPrompt string,
	genaiConfig *genai.GenerateContentConfig,
	spanAttributes ...attribute.KeyValue,
) (Out, *TokenUsage, error) {
	var output Out
	tracer := otel.Tracer("atsengine.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini."+operationName)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", g.config.Model),
		attribute.Float64("ai.temperature", float64(*g.config.Temperature)),
	)
	span.SetAttributes(spanAttributes...)

	if *g.config.UseSystemPrompts && systemPrompt != "" {
		genaiConfig.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	} else if systemPrompt != "" {
		userPrompt = systemPrompt + "\n\n" + userPrompt
	}

	result, err := g.generateBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.executeWithRetry(ctx, operationName, func() (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(ctx, g.config.Model, genai.Text(userPrompt), genaiConfig)
		})
	})
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return output, nil, classifyError(ctx, operationName, err)
	}

	if err := json.Unmarshal([]byte(CleanJSON(result.Text())), &output); err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		return output, nil, atsengineErrors.NewModelUnavailable("failed to parse model response for "+operationName, err)
	}

	tokenUsage := extractTokenUsage(result)
	if tokenUsage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", tokenUsage.InputTokens),
			attribute.Int64("ai.tokens.output", tokenUsage.OutputTokens),
			attribute.Int64("ai.tokens.total", tokenUsage.TotalTokens),
		)
	}

	span.SetAttributes(attribute.Bool("success", true))
	return output, tokenUsage, nil
}

// Critique asks the model for genuine grammar and spelling mistakes.
func (g *GeminiProvider) Critique(ctx context.Context, text string) (types.Critique, *TokenUsage, error) {
	text = truncateRunes(sanitizeText(text), maxCritiqueRunes)
	systemPrompt, userPrompt := g.prompts(config.OperationCritique)

	output, tokenUsage, err := executeAIOperation[critiqueResponse](
		g,
		ctx,
		"critique",
		fmt.Sprintf(userPrompt, text),
		systemPrompt,
		g.buildCritiqueSchema(),
		attribute.Int("input.text_length", len(text)),
	)
	if err != nil {
		return types.Critique{}, nil, err
	}

	critique := output.toCritique()
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.Int("critique.grammar_issues", len(critique.GrammarIssues)),
			attribute.Int("critique.spelling_errors", len(critique.SpellingErrors)),
		)
	}
	return critique, tokenUsage, nil
}

// Rewrite asks the model for an improved résumé following the request's
// strategy and feedback.
func (g *GeminiProvider) Rewrite(ctx context.Context, req types.RewriteRequest) (string, *TokenUsage, error) {
	systemPrompt, userPrompt := g.prompts(config.OperationRewrite)

	feedback := "No major issues found"
	if len(req.Feedback) > 0 {
		feedback = "- " + strings.Join(req.Feedback, "\n- ")
	}
	strategy := fmt.Sprintf("%s: %s", req.Strategy, strategyGuidance[req.Strategy])
	industry := req.Industry
	if industry == "" {
		industry = "general"
	}

	output, tokenUsage, err := executeAIOperation[rewriteResponse](
		g,
		ctx,
		"rewrite",
		fmt.Sprintf(userPrompt, feedback, strategy, industry, sanitizeText(req.Text)),
		systemPrompt,
		g.buildRewriteSchema(),
		attribute.Int("input.text_length", len(req.Text)),
		attribute.String("rewrite.strategy", req.Strategy.String()),
		attribute.String("rewrite.industry", industry),
	)
	if err != nil {
		return "", nil, err
	}

	improved := strings.TrimSpace(output.ImprovedText)
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.Int("output.text_length", len(improved)))
	}
	return improved, tokenUsage, nil
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    g.generateBreaker.Stats(),
		"model_operations": g.modelBreaker.Stats(),
		"overall_healthy":  g.generateBreaker.Healthy() && g.modelBreaker.Healthy(),
	}
}

// Close implements AIProvider. The genai client holds no resources in
// single-shot mode.
func (g *GeminiProvider) Close() error {
	return nil
}

func (g *GeminiProvider) withTemperature(cfg *genai.GenerateContentConfig) *genai.GenerateContentConfig {
	if *g.config.Temperature > 0 {
		cfg.Temperature = g.config.Temperature
	}
	return cfg
}

// buildCritiqueSchema creates the schema for critique requests
func (g *GeminiProvider) buildCritiqueSchema() *genai.GenerateContentConfig {
	return g.withTemperature(&genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"spellingErrors": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"word":       {Type: genai.TypeString},
							"correction": {Type: genai.TypeString},
							"context":    {Type: genai.TypeString},
						},
						Required: []string{"word", "correction"},
					},
				},
				"grammarErrors": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"issue":      {Type: genai.TypeString},
							"suggestion": {Type: genai.TypeString},
							"context":    {Type: genai.TypeString},
						},
						Required: []string{"issue", "suggestion"},
					},
				},
			},
			Required: []string{"spellingErrors", "grammarErrors"},
		},
	})
}

// buildRewriteSchema creates the schema for rewrite requests
func (g *GeminiProvider) buildRewriteSchema() *genai.GenerateContentConfig {
	return g.withTemperature(&genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"improvedText": {Type: genai.TypeString},
			},
			Required: []string{"improvedText"},
		},
	})
}

// prompts returns the system prompt and user prompt template for operation.
func (g *GeminiProvider) prompts(operation string) (string, string) {
	custom := g.config.CustomPrompts
	if operation == config.OperationRewrite {
		return resolvePrompt(g.config.Loaded.System, custom.SystemPrompts.Rewrite, DefaultSystemPrompts.Rewrite),
			resolvePrompt(g.config.Loaded.User, custom.UserPrompts.Rewrite, DefaultUserPrompts.Rewrite)
	}
	return resolvePrompt(g.config.Loaded.System, custom.SystemPrompts.Critique, DefaultSystemPrompts.Critique),
		resolvePrompt(g.config.Loaded.User, custom.UserPrompts.Critique, DefaultUserPrompts.Critique)
}

// resolvePrompt selects the first non-empty prompt in priority order: file
// content, inline configuration, built-in default.
func resolvePrompt(loadedFromFile, fromConfig, fromDefault string) string {
	if loadedFromFile != "" {
		return loadedFromFile
	}
	if fromConfig != "" {
		return fromConfig
	}
	return fromDefault
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
