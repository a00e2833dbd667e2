package observability

import (
	"context"
	"fmt"
	"time"

	"atsengine/internal/config"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Business metric types accepted by RecordBusinessMetric.
const (
	MetricAnalysis     = "analysis"
	MetricCritique     = "critique"
	MetricImprovement  = "improvement"
	MetricUpload       = "upload"
	MetricRateLimitHit = "rate_limit_hit"
)

// Metrics holds all custom metrics. The zero value records nothing.
type Metrics struct {
	// AI operation metrics
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	// Business metrics
	Analyses        metric.Int64Counter
	Critiques       metric.Int64Counter
	Improvements    metric.Int64Counter
	Uploads         metric.Int64Counter
	ScoreHistogram  metric.Int64Histogram
	ScoreDeltaGauge metric.Int64Histogram

	// Rate limiting metrics
	RateLimitHits metric.Int64Counter

	toggles config.CustomMetricsConfig
	// all groups are on when no config was given
	configured bool
}

// AIOperationResult holds the result of an AI operation including token usage
type AIOperationResult struct {
	Error      error
	TokenUsage *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

func newMetrics(meter metric.Meter, cfg *config.Config) (*Metrics, error) {
	m := &Metrics{}
	if cfg != nil {
		m.toggles = cfg.Observability.CustomMetrics
		m.configured = true
	}

	var err error
	create := func(step func() error) {
		if err == nil {
			err = step()
		}
	}
	counter := func(dst *metric.Int64Counter, name, desc string) func() error {
		return func() error {
			c, err := meter.Int64Counter(name, metric.WithDescription(desc))
			if err != nil {
				return fmt.Errorf("failed to create %s metric: %w", name, err)
			}
			*dst = c
			return nil
		}
	}

	create(func() error {
		h, err := meter.Float64Histogram("atsengine_ai_processing_duration_seconds",
			metric.WithDescription("Time spent processing AI requests"),
			metric.WithUnit("s"))
		m.AIProcessingTime = h
		return err
	})
	create(counter(&m.AIRequestCount, "atsengine_ai_requests_total", "Total number of AI requests"))
	create(counter(&m.AIErrorCount, "atsengine_ai_errors_total", "Total number of AI request errors"))
	create(func() error {
		h, err := meter.Int64Histogram("atsengine_ai_token_usage_total",
			metric.WithDescription("Token usage for AI requests (input, output, total)"),
			metric.WithUnit("tokens"))
		m.AITokenUsage = h
		return err
	})

	create(counter(&m.Analyses, "atsengine_analyses_total", "Total number of resume analyses"))
	create(counter(&m.Critiques, "atsengine_critiques_total", "Total number of model critiques"))
	create(counter(&m.Improvements, "atsengine_improvements_total", "Total number of resume improvements"))
	create(counter(&m.Uploads, "atsengine_uploads_total", "Total number of uploaded documents"))
	create(func() error {
		h, err := meter.Int64Histogram("atsengine_ats_score",
			metric.WithDescription("Distribution of basic ATS scores"),
			metric.WithExplicitBucketBoundaries(20, 40, 50, 60, 70, 80, 90, 100))
		m.ScoreHistogram = h
		return err
	})
	create(func() error {
		h, err := meter.Int64Histogram("atsengine_improvement_score_delta",
			metric.WithDescription("New score minus original score after an improvement"))
		m.ScoreDeltaGauge = h
		return err
	})

	create(counter(&m.RateLimitHits, "atsengine_rate_limit_hits_total", "Total number of rate limit hits"))

	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) aiEnabled() bool {
	return !m.configured || m.toggles.AIOperations.Enabled
}

// TrackAIOperationWithTokens instruments an AI operation with tracing, metrics, and token usage
func (m *Metrics) TrackAIOperationWithTokens(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult) error {
	if m.AIProcessingTime == nil {
		if result := fn(ctx); result != nil {
			return result.Error
		}
		return nil
	}

	tracer := otel.Tracer("atsengine.ai")
	ctx, span := tracer.Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	if m.aiEnabled() {
		m.recordAIMetrics(ctx, operation, err, duration, result, span)
	}
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}
	return err
}

// recordAIMetrics records all AI-related metrics
func (m *Metrics) recordAIMetrics(ctx context.Context, operation string, err error, duration float64, result *AIOperationResult, span oteltrace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}

	if !m.configured || m.toggles.AIOperations.TrackDuration {
		m.AIProcessingTime.Record(ctx, duration, metric.WithAttributes(attrs...))
	}
	m.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	if err != nil {
		m.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	m.recordTokenUsage(ctx, result, attrs, span)

	span.SetAttributes(attrs...)
}

// recordTokenUsage records token usage metrics and span attributes
func (m *Metrics) recordTokenUsage(ctx context.Context, result *AIOperationResult, attrs []attribute.KeyValue, span oteltrace.Span) {
	if result == nil || result.TokenUsage == nil {
		return
	}
	usage := result.TokenUsage

	if !m.configured || m.toggles.AIOperations.TrackTokenUsage {
		for _, tt := range []struct {
			tokenType string
			value     int64
		}{
			{"input", usage.InputTokens},
			{"output", usage.OutputTokens},
			{"total", usage.TotalTokens},
		} {
			tokenAttrs := append(append([]attribute.KeyValue{}, attrs...), attribute.String("token_type", tt.tokenType))
			m.AITokenUsage.Record(ctx, tt.value, metric.WithAttributes(tokenAttrs...))
		}
	}

	// Always on the span, for debugging.
	span.SetAttributes(
		attribute.Int64("ai.tokens.input", usage.InputTokens),
		attribute.Int64("ai.tokens.output", usage.OutputTokens),
		attribute.Int64("ai.tokens.total", usage.TotalTokens),
	)
}

// RecordBusinessMetric counts one pipeline event of metricType. Attributes
// named "score" and "score_delta" also feed the score histograms.
func (m *Metrics) RecordBusinessMetric(ctx context.Context, metricType string, success bool, attributes ...attribute.KeyValue) {
	if metricType == MetricRateLimitHit {
		m.recordRateLimitHit(ctx, attributes)
		return
	}
	if m.configured && !m.toggles.BusinessMetrics.Enabled {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(attributes)+1)
	attrs = append(attrs, attribute.Bool("success", success))
	var score, delta *int64
	for _, kv := range attributes {
		switch kv.Key {
		case "score":
			v := kv.Value.AsInt64()
			score = &v
			continue
		case "score_delta":
			v := kv.Value.AsInt64()
			delta = &v
			continue
		}
		attrs = append(attrs, kv)
	}
	opt := metric.WithAttributes(attrs...)

	switch metricType {
	case MetricAnalysis:
		add(ctx, m.Analyses, opt)
		if score != nil && m.ScoreHistogram != nil {
			m.ScoreHistogram.Record(ctx, *score, opt)
		}
	case MetricCritique:
		add(ctx, m.Critiques, opt)
	case MetricImprovement:
		add(ctx, m.Improvements, opt)
		if delta != nil && m.ScoreDeltaGauge != nil {
			m.ScoreDeltaGauge.Record(ctx, *delta, opt)
		}
	case MetricUpload:
		add(ctx, m.Uploads, opt)
	}
}

func add(ctx context.Context, c metric.Int64Counter, opt metric.AddOption) {
	if c != nil {
		c.Add(ctx, 1, opt)
	}
}

// recordRateLimitHit is an infrastructure metric, gated separately from
// business metrics.
func (m *Metrics) recordRateLimitHit(ctx context.Context, attrs []attribute.KeyValue) {
	if m.configured && !m.toggles.Infrastructure.TrackRateLimits {
		return
	}
	add(ctx, m.RateLimitHits, metric.WithAttributes(attrs...))
}
