package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"atsengine/internal/ai"
	appErrors "atsengine/internal/errors"

	"github.com/go-playground/validator/v10"
)

const defaultHealthCheckTimeout = 5 * time.Second

// healthHandler reports model and storage health. Missing AI configuration
// is not a failure; an unreachable configured model or store is.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	timeout := s.AppConfig.Observability.HealthCheck.AIModelCheckTimeout
	if timeout <= 0 {
		timeout = s.AppConfig.Observability.HealthCheck.Timeout
	}
	if timeout <= 0 {
		timeout = defaultHealthCheckTimeout
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	healthy := true
	response := map[string]any{
		"status":  "healthy",
		"service": "atsengine",
		"version": s.Version,
	}

	aiStatus := map[string]any{"enabled": s.Engine.AIAvailable()}
	for name, svc := range s.aiServices() {
		if svc == nil {
			continue
		}
		info := svc.Provider.GetModelInfo(ctx)
		aiStatus[name] = info
		if info == nil || !info.Available {
			healthy = false
		}
	}
	response["ai_models"] = aiStatus

	storageStatus := s.Engine.Stores.Health(ctx)
	for _, status := range storageStatus {
		if status != "ok" {
			healthy = false
		}
	}
	response["storage"] = storageStatus

	status := http.StatusOK
	if !healthy {
		response["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

// statsHandler provides circuit breaker, rate limiter and cache statistics
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"service": "atsengine",
		"version": s.Version,
		"server": map[string]any{
			"max_request_size_bytes": s.MaxRequestSize,
			"auth_enabled":           len(s.APIKeys) > 0,
		},
		"storage": map[string]any{
			"enabled": s.Engine.Stores.Enabled(),
		},
		"renderer": map[string]any{
			"format":           s.Engine.Renderer.Format(),
			"templates":        len(s.Engine.Renderer.Templates()),
			"pandoc_available": s.Engine.Renderer.PandocAvailable(),
		},
	}

	breakers := make(map[string]any)
	for name, svc := range s.aiServices() {
		if svc == nil {
			continue
		}
		if gp, ok := svc.Provider.(*ai.GeminiProvider); ok {
			breakers[name] = gp.GetCircuitBreakerStats()
		}
	}
	response["circuit_breakers"] = breakers

	if s.RateLimiter != nil {
		response["rate_limiting"] = s.RateLimiter.GetStats()
	} else {
		response["rate_limiting"] = map[string]any{"enabled": false}
	}

	if cache := s.Engine.Stores.Cache; cache != nil {
		response["cache"] = cache.Stats()
	} else {
		response["cache"] = map[string]any{"enabled": false}
	}

	writeJSON(w, http.StatusOK, response)
}

// templatesHandler lists the template IDs the renderer knows.
func (s *Server) templatesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"templates": s.Engine.Renderer.Templates(),
		"format":    s.Engine.Renderer.Format(),
	})
}

func (s *Server) aiServices() map[string]*ai.Service {
	if s.Engine.AI == nil {
		return nil
	}
	return map[string]*ai.Service{
		"critique": s.Engine.AI.Critique,
		"rewrite":  s.Engine.AI.Rewrite,
	}
}

// parseJSONRequest parses and validates a JSON request body into v
func (s *Server) parseJSONRequest(r *http.Request, v any) error {
	if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		return appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest, "content-type must be application/json", nil)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return appErrors.NewValidationError(appErrors.ErrCodeFileTooLarge,
				fmt.Sprintf("request body too large (limit is %d bytes)", maxBytesErr.Limit), err)
		}
		return appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest, "failed to read request body", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest, "failed to parse JSON", err)
	}
	return s.validateStruct(v)
}

func (s *Server) validateStruct(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest,
			fmt.Sprintf("field %s failed '%s' validation", fe.Field(), fe.Tag()), err)
	}
	return appErrors.NewValidationError(appErrors.ErrCodeInvalidRequest, "invalid request", err)
}

// statusFor maps an application error to an HTTP status code.
func statusFor(err error) int {
	switch appErrors.CodeOf(err) {
	case appErrors.ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case appErrors.ErrCodeUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case appErrors.ErrCodeExtractionFailed:
		return http.StatusUnprocessableEntity
	case appErrors.ErrCodeModelUnavailable:
		return http.StatusServiceUnavailable
	case appErrors.ErrCodeModelTimeout:
		return http.StatusGatewayTimeout
	}

	var appErr *appErrors.AppError
	if errors.As(err, &appErr) && appErr.Type == appErrors.ErrorTypeValidation {
		return http.StatusBadRequest
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// writeAppError logs err and writes it with the mapped status.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed", "endpoint", r.URL.Path, "status", status)
	} else {
		s.Logger.Info("Request rejected", "endpoint", r.URL.Path, "status", status, "error", err.Error())
	}

	message := err.Error()
	var appErr *appErrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if status == http.StatusInternalServerError {
		message = "internal error"
	}

	writeJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    appErrors.CodeOf(err),
	})
}

// writeErrorResponse writes a standardized error response
func writeErrorResponse(w http.ResponseWriter, error, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: error, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}
