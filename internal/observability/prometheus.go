package observability

import (
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"atsengine/internal/config"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
)

const (
	defaultPrometheusEndpoint = "/metrics"
	defaultPrometheusPort     = "9090"
)

// PrometheusConfig is the scrape endpoint served next to the API.
type PrometheusConfig struct {
	Enabled  bool
	Endpoint string
	Port     string
}

// SetupPrometheusExporter builds an OpenTelemetry metric reader backed by a
// private registry, plus a mux exposing that registry. Both are nil when
// the exporter is disabled.
func SetupPrometheusExporter(cfg PrometheusConfig) (metric.Reader, *http.ServeMux, error) {
	if !cfg.Enabled {
		return nil, nil, nil
	}

	registry := promclient.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := prometheus.New(prometheus.WithRegisterer(registry))
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Endpoint, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	return exporter, mux, nil
}

// StartPrometheusServer listens on port and serves mux until the returned
// server is shut down.
func StartPrometheusServer(mux *http.ServeMux, port string) (*http.Server, error) {
	if mux == nil {
		return nil, errors.New("prometheus: no handler to serve")
	}

	ln, err := net.Listen("tcp", net.JoinHostPort("", port))
	if err != nil {
		return nil, fmt.Errorf("prometheus: listen on port %s: %w", port, err)
	}

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("prometheus: serve: %v", err)
		}
	}()
	log.Printf("prometheus: scrape endpoint on %s", ln.Addr())
	return srv, nil
}

// GetPrometheusConfig reads the exporter settings, filling the endpoint
// and port defaults.
func GetPrometheusConfig(cfg *config.Config) PrometheusConfig {
	out := PrometheusConfig{Endpoint: defaultPrometheusEndpoint, Port: defaultPrometheusPort}
	if cfg == nil {
		return out
	}
	p := cfg.Observability.Prometheus
	out.Enabled = p.Enabled
	if p.Endpoint != "" {
		out.Endpoint = p.Endpoint
	}
	if p.Port != "" {
		out.Port = p.Port
	}
	return out
}
