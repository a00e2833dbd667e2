package ai

import (
	"fmt"

	"atsengine/internal/config"
	"atsengine/internal/errors"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

// Model info checks are less critical than generation, so their breaker
// trips only on a sustained failure rate.
const (
	modelBreakerMinRequests = 5
	modelBreakerFailRatio   = 0.8
)

// Breaker wraps calls to the model API with a circuit breaker. A nil Breaker
// runs calls directly.
type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// NewGenerateBreaker returns the breaker for content generation, or nil when
// the operation's breaker is disabled.
func NewGenerateBreaker(operation string, cfg *config.OperationAIConfig, logger *errors.Logger) *Breaker[*genai.GenerateContentResponse] {
	cbCfg := cfg.CircuitBreaker
	return newBreaker[*genai.GenerateContentResponse](fmt.Sprintf("AI-%s", operation), operation, cbCfg,
		tripAt(cbCfg.MinRequests, cbCfg.FailureThreshold), logger)
}

// NewModelBreaker returns the breaker for model info checks, or nil when the
// operation's breaker is disabled.
func NewModelBreaker(operation string, cfg *config.OperationAIConfig, logger *errors.Logger) *Breaker[*genai.Model] {
	return newBreaker[*genai.Model](fmt.Sprintf("AI-Model-%s", operation), operation, cfg.CircuitBreaker,
		tripAt(modelBreakerMinRequests, modelBreakerFailRatio), logger)
}

func tripAt(minRequests uint32, ratio float64) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		if counts.Requests == 0 {
			return false
		}
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= minRequests && failureRatio >= ratio
	}
}

func newBreaker[T any](name, operation string, cfg config.CircuitBreakerConfig, trip func(gobreaker.Counts) bool, logger *errors.Logger) *Breaker[T] {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: trip,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state changed",
				"name", name,
				"operation", operation,
				"from", from.String(),
				"to", to.String(),
				"max_requests", cfg.MaxRequests,
				"failure_threshold", cfg.FailureThreshold)
		},
	}
	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn under the breaker.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	return b.cb.Execute(fn)
}

// Stats reports the breaker name, state and counts.
func (b *Breaker[T]) Stats() map[string]any {
	if b == nil || b.cb == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}

// Healthy reports whether the breaker is closed. A disabled breaker is
// always healthy.
func (b *Breaker[T]) Healthy() bool {
	if b == nil || b.cb == nil {
		return true
	}
	return b.cb.State() == gobreaker.StateClosed
}

// isBreakerRejection reports whether err came from an open or saturated
// breaker rather than from the API.
func isBreakerRejection(err error) bool {
	return err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests
}
