package common

import (
	"context"
	"fmt"
	"time"

	"atsengine/internal/ai"
	"atsengine/internal/analysis"
	"atsengine/internal/config"
	"atsengine/internal/dictionary"
	"atsengine/internal/errors"
	"atsengine/internal/extraction"
	"atsengine/internal/improver"
	"atsengine/internal/observability"
	"atsengine/internal/renderer"
	"atsengine/internal/storage"
	"atsengine/internal/types"
)

// EngineOptions selects what a command needs from the engine.
type EngineOptions struct {
	Version string
	// NoAI skips the model critique and leaves improvement unavailable.
	NoAI bool
	// LongRunning enables the template watcher and the Prometheus endpoint.
	LongRunning bool
}

// Engine wires the pipelines to their collaborators. Optional collaborators
// that are not configured stay nil.
type Engine struct {
	Config        *config.Config
	Dictionary    *dictionary.Dictionary
	Extractor     *extraction.Extractor
	Analyzer      *analysis.Analyzer
	Improver      *improver.Orchestrator
	Renderer      *renderer.Renderer
	AI            *ai.Services
	Stores        *storage.Stores
	Observability *observability.ObservabilityManager

	logger *errors.Logger
}

// NewEngine builds the engine from cfg. Storage that cannot be reached is
// logged and skipped; analysis never depends on it.
func NewEngine(ctx context.Context, cfg *config.Config, logger *errors.Logger, opts EngineOptions) (*Engine, error) {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	e := &Engine{Config: cfg, logger: logger}

	obsConfig := observability.GetObservabilityConfig(cfg, opts.Version)
	if !opts.LongRunning {
		obsConfig.Prometheus.Enabled = false
	}
	om, err := observability.NewObservabilityManager(obsConfig, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}
	e.Observability = om

	if cfg.App.DictionaryFile != "" {
		e.Dictionary, err = dictionary.LoadFile(cfg.App.DictionaryFile)
	} else {
		e.Dictionary, err = dictionary.Default()
	}
	if err != nil {
		e.closeQuietly()
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to load keyword dictionary", err)
	}

	e.Extractor = extraction.New(logger)

	e.Stores, err = storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		logger.LogError(err, "Storage unavailable, continuing without persistence")
		e.Stores = &storage.Stores{}
	}

	e.AI = &ai.Services{}
	if !opts.NoAI {
		services, err := ai.NewServices(cfg, logger)
		if err != nil {
			e.closeQuietly()
			return nil, err
		}
		e.AI = services.WithTracker(om)
	}

	e.Renderer, err = renderer.New(renderer.Config{
		Format:         cfg.Renderer.Format,
		TemplateDir:    cfg.Renderer.TemplateDir,
		WatchTemplates: cfg.Renderer.WatchTemplates && opts.LongRunning,
		DebounceDelay:  cfg.Renderer.DebounceDelay,
		PandocPath:     cfg.Renderer.PandocPath,
		PDFEngine:      cfg.Renderer.PDFEngine,
	}, e.Dictionary, logger)
	if err != nil {
		e.closeQuietly()
		return nil, err
	}

	e.Analyzer = analysis.New(e.Dictionary, e.analysisOptions(opts)...)
	e.Improver = improver.New(e.rewriter(), e.Analyzer, e.improverOptions()...)
	return e, nil
}

func (e *Engine) analysisOptions(opts EngineOptions) []analysis.Option {
	cfg := e.Config.Analysis
	defaults := analysis.DefaultConfig()
	options := []analysis.Option{
		analysis.WithLogger(e.logger),
		analysis.WithMetrics(e.Observability),
		analysis.WithConfig(analysis.Config{
			CritiqueTimeout: orDefault(cfg.CritiqueTimeout, defaults.CritiqueTimeout),
			PersistTimeout:  orDefault(cfg.PersistTimeout, defaults.PersistTimeout),
			CacheTimeout:    orDefault(cfg.CacheTimeout, defaults.CacheTimeout),
		}),
	}
	if e.AI.Critique != nil && cfg.Critique && !opts.NoAI {
		options = append(options, analysis.WithCritic(e.AI.Critique))
	}
	if e.Stores.Records != nil {
		options = append(options, analysis.WithRecorder(e.Stores.Records))
	}
	if e.Stores.Cache != nil {
		options = append(options, analysis.WithCache(e.Stores.Cache))
	}
	if e.Stores.Events != nil {
		options = append(options, analysis.WithPublisher(e.Stores.Events))
	}
	return options
}

func (e *Engine) improverOptions() []improver.Option {
	defaults := improver.DefaultConfig()
	options := []improver.Option{
		improver.WithLogger(e.logger),
		improver.WithMetrics(e.Observability),
		improver.WithRenderer(e.Renderer),
		improver.WithConfig(improver.Config{
			RewriteTimeout: orDefault(e.Config.Analysis.RewriteTimeout, defaults.RewriteTimeout),
			RenderTimeout:  orDefault(e.Config.Renderer.Timeout, defaults.RenderTimeout),
			StorageTimeout: orDefault(e.Config.Analysis.StorageTimeout, defaults.StorageTimeout),
		}),
	}
	if e.Stores.Documents != nil {
		options = append(options, improver.WithStore(e.Stores.Documents))
	}
	return options
}

func (e *Engine) rewriter() improver.Rewriter {
	if e.AI.Rewrite != nil {
		return e.AI.Rewrite
	}
	return unavailableRewriter{}
}

// unavailableRewriter stands in when no model is configured.
type unavailableRewriter struct{}

func (unavailableRewriter) Rewrite(context.Context, types.RewriteRequest) (string, error) {
	return "", errors.NewModelUnavailable("language model is not configured", nil)
}

// AIAvailable reports whether a rewrite model is wired.
func (e *Engine) AIAvailable() bool {
	return e.AI != nil && e.AI.Rewrite != nil
}

// Close waits for background persistence, then releases every collaborator.
func (e *Engine) Close(ctx context.Context) error {
	if e.Analyzer != nil {
		done := make(chan struct{})
		go func() {
			e.Analyzer.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			e.logger.Warn("Gave up waiting for background persistence", "error", ctx.Err())
		}
	}

	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	if e.Renderer != nil {
		keep(e.Renderer.Close())
	}
	if e.AI != nil {
		keep(e.AI.Close())
	}
	keep(e.Stores.Close())
	keep(e.Observability.Shutdown(ctx))
	return first
}

func (e *Engine) closeQuietly() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Close(ctx); err != nil {
		e.logger.LogError(err, "Failed to release engine after init error")
	}
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
