package observability

import (
	"atsengine/internal/config"
)

const defaultServiceName = "atsengine"

// GetObservabilityConfig derives the telemetry settings from cfg. A nil
// cfg yields a disabled configuration tagged with version.
func GetObservabilityConfig(cfg *config.Config, version string) ObservabilityConfig {
	out := ObservabilityConfig{
		ServiceName:    defaultServiceName,
		ServiceVersion: version,
		SampleRate:     1.0,
		Prometheus:     GetPrometheusConfig(cfg),
	}
	if cfg == nil {
		return out
	}

	obs := cfg.Observability
	if obs.ServiceName != "" {
		out.ServiceName = obs.ServiceName
	}
	if obs.ServiceVersion != "" {
		out.ServiceVersion = obs.ServiceVersion
	}
	out.Enabled = obs.Enabled
	out.ConsoleOutput = obs.ConsoleOutput
	out.PrettyPrint = obs.Console.PrettyPrint

	// tracing.sample_rate overrides the top-level rate
	switch {
	case obs.Tracing.SampleRate > 0:
		out.SampleRate = obs.Tracing.SampleRate
	default:
		out.SampleRate = obs.SampleRate
	}
	return out
}
