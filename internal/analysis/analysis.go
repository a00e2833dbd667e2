// Package analysis runs the analyze pipeline: extraction, matching, scoring,
// issue generation and the advanced report, with the model critique and
// persistence as optional collaborators.
package analysis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"atsengine/internal/dictionary"
	"atsengine/internal/errors"
	"atsengine/internal/extractor"
	"atsengine/internal/issues"
	"atsengine/internal/matcher"
	"atsengine/internal/report"
	"atsengine/internal/scorer"
	"atsengine/internal/types"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// EventAnalysisCompleted is published once a record has been persisted.
const EventAnalysisCompleted = "analysis.completed"

// Business metric names reported through MetricsRecorder.
const (
	MetricAnalysis = "analysis"
	MetricCritique = "critique"
)

// Critic reviews grammar and spelling with a language model.
type Critic interface {
	Critique(ctx context.Context, text string) (types.Critique, error)
}

// Recorder writes the flattened record to durable storage.
type Recorder interface {
	Persist(ctx context.Context, rec types.PersistedRecord) (string, error)
}

// CritiqueCache holds model critiques keyed by a content hash. A miss is
// reported as (nil, nil).
type CritiqueCache interface {
	GetCritique(ctx context.Context, key string) (*types.Critique, error)
	SetCritique(ctx context.Context, key string, c types.Critique) error
}

// EventPublisher announces finished analyses.
type EventPublisher interface {
	Publish(ctx context.Context, event string, payload any) error
}

// MetricsRecorder counts business events.
type MetricsRecorder interface {
	RecordBusinessMetric(ctx context.Context, metricType string, success bool, attrs ...attribute.KeyValue)
}

// Config holds the collaborator timeouts.
type Config struct {
	CritiqueTimeout time.Duration
	PersistTimeout  time.Duration
	CacheTimeout    time.Duration
}

// DefaultConfig returns the timeouts used when none are configured.
func DefaultConfig() Config {
	return Config{
		CritiqueTimeout: 30 * time.Second,
		PersistTimeout:  10 * time.Second,
		CacheTimeout:    2 * time.Second,
	}
}

// Option configures an Analyzer.
type Option func(*Analyzer)

func WithCritic(c Critic) Option { return func(a *Analyzer) { a.critic = c } }
func WithRecorder(r Recorder) Option { return func(a *Analyzer) { a.recorder = r } }
func WithCache(c CritiqueCache) Option { return func(a *Analyzer) { a.cache = c } }
func WithPublisher(p EventPublisher) Option { return func(a *Analyzer) { a.publisher = p } }
func WithMetrics(m MetricsRecorder) Option { return func(a *Analyzer) { a.metrics = m } }
func WithLogger(l *errors.Logger) Option { return func(a *Analyzer) { a.logger = l } }
func WithConfig(c Config) Option { return func(a *Analyzer) { a.cfg = c } }

// WithClock fixes the time used for AnalyzedAt and open-ended experience.
func WithClock(now func() time.Time) Option {
	return func(a *Analyzer) { a.now = now }
}

// WithIDGenerator replaces the uuid generator.
func WithIDGenerator(gen func() string) Option {
	return func(a *Analyzer) { a.newID = gen }
}

// WithExtractorOptions passes options through to the field extractor.
func WithExtractorOptions(opts ...extractor.Option) Option {
	return func(a *Analyzer) { a.extractorOpts = append(a.extractorOpts, opts...) }
}

// Analyzer is safe for concurrent use.
type Analyzer struct {
	extractor     *extractor.Extractor
	extractorOpts []extractor.Option
	matcher       *matcher.Matcher

	critic    Critic
	recorder  Recorder
	cache     CritiqueCache
	publisher EventPublisher
	metrics   MetricsRecorder
	logger    *errors.Logger
	cfg       Config
	now       func() time.Time
	newID     func() string

	background sync.WaitGroup
}

// New builds an Analyzer over dict.
func New(dict *dictionary.Dictionary, opts ...Option) *Analyzer {
	a := &Analyzer{
		cfg:    DefaultConfig(),
		now:    time.Now,
		newID:  uuid.NewString,
		logger: errors.NewDiscardLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.extractor = extractor.New(dict, append([]extractor.Option{extractor.WithClock(a.now)}, a.extractorOpts...)...)
	a.matcher = matcher.New(dict)
	return a
}

// pipeline carries one request through the stages.
type pipeline struct {
	text     string
	industry string

	parsed   types.ParsedResume
	signals  types.Signals
	score    types.ScoreBreakdown
	issues   []types.Issue
	recs     []string
	critique types.Critique
	report   types.AdvancedReport
}

// Analyze runs the full pipeline including the model critique and schedules
// persistence. An available critique feeds the readability sub-score and the
// grammar issue; without one the local result stands. It fails only on blank
// text or a cancelled context.
func (a *Analyzer) Analyze(ctx context.Context, rawText, industry string) (*types.Analysis, error) {
	result, err := a.analyze(ctx, rawText, industry)
	if err != nil {
		return nil, err
	}
	a.persist(ctx, result)
	return result, nil
}

// AnalyzeTransient is Analyze without persistence or the completion event,
// for callers that only need the analysis as an input.
func (a *Analyzer) AnalyzeTransient(ctx context.Context, rawText, industry string) (*types.Analysis, error) {
	return a.analyze(ctx, rawText, industry)
}

func (a *Analyzer) analyze(ctx context.Context, rawText, industry string) (*types.Analysis, error) {
	p, err := a.start(ctx, rawText, industry)
	if err != nil {
		return nil, err
	}
	p.critique = a.critique(ctx, p.text)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.critique.Available {
		p.score = scorer.ScoreWithCritique(p.parsed, p.signals, p.critique)
		p.issues, p.recs = issues.GenerateWithCritique(p.parsed, p.score, p.signals, p.critique)
	}

	result := a.finish(p)
	if a.metrics != nil {
		a.metrics.RecordBusinessMetric(ctx, MetricAnalysis, true,
			attribute.String("industry", result.Industry),
			attribute.Bool("critique_available", p.critique.Available),
			attribute.Int("score", result.Score.Total))
	}
	return result, nil
}

// AnalyzeLocal runs the pipeline without the critique and without
// persistence. The result depends only on the text, the industry and the
// clock.
func (a *Analyzer) AnalyzeLocal(ctx context.Context, rawText, industry string) (*types.Analysis, error) {
	p, err := a.start(ctx, rawText, industry)
	if err != nil {
		return nil, err
	}
	return a.finish(p), nil
}

// Wait blocks until background persistence has finished.
func (a *Analyzer) Wait() {
	a.background.Wait()
}

func (a *Analyzer) start(ctx context.Context, rawText, industry string) (*pipeline, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(rawText) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "resume text is empty", nil)
	}

	p := &pipeline{
		text:     rawText,
		industry: strings.ToLower(strings.TrimSpace(industry)),
	}
	p.parsed = a.extractor.Extract(p.text)
	p.signals = a.matcher.Match(p.text, p.industry)
	p.score = scorer.Score(p.parsed, p.signals)
	p.issues, p.recs = issues.Generate(p.parsed, p.score, p.signals)
	return p, nil
}

func (a *Analyzer) finish(p *pipeline) *types.Analysis {
	p.report = report.Build(p.text, p.industry, p.parsed, p.signals, p.issues, p.critique)
	return &types.Analysis{
		ID:              a.newID(),
		Industry:        p.industry,
		Parsed:          p.parsed,
		Score:           p.score,
		Issues:          p.issues,
		Recommendations: p.recs,
		Report:          &p.report,
		AnalyzedAt:      a.now().UTC(),
	}
}

// critique never fails: any collaborator error degrades to an unavailable
// critique.
func (a *Analyzer) critique(ctx context.Context, text string) types.Critique {
	if a.critic == nil {
		return types.Critique{}
	}

	key := cacheKey(text)
	if cached := a.cachedCritique(ctx, key); cached != nil {
		return *cached
	}

	cctx, cancel := context.WithTimeout(ctx, a.cfg.CritiqueTimeout)
	defer cancel()

	c, err := a.critic.Critique(cctx, text)
	if err != nil {
		a.logger.LogError(err, "Critique unavailable, continuing without it")
		if a.metrics != nil {
			a.metrics.RecordBusinessMetric(ctx, MetricCritique, false,
				attribute.String("error_code", errors.CodeOf(err)))
		}
		return types.Critique{}
	}
	c.Available = true

	if a.cache != nil {
		sctx, scancel := context.WithTimeout(ctx, a.cfg.CacheTimeout)
		defer scancel()
		if err := a.cache.SetCritique(sctx, key, c); err != nil {
			a.logger.Warn("Failed to cache critique", "error", err.Error())
		}
	}
	return c
}

func (a *Analyzer) cachedCritique(ctx context.Context, key string) *types.Critique {
	if a.cache == nil {
		return nil
	}
	cctx, cancel := context.WithTimeout(ctx, a.cfg.CacheTimeout)
	defer cancel()

	c, err := a.cache.GetCritique(cctx, key)
	if err != nil {
		a.logger.Warn("Critique cache lookup failed", "error", err.Error())
		return nil
	}
	if c != nil {
		a.logger.Debug("Critique served from cache", "key", key)
		c.Available = true
	}
	return c
}

// persist writes the record in the background on a context detached from
// the request.
func (a *Analyzer) persist(ctx context.Context, result *types.Analysis) {
	if a.recorder == nil {
		return
	}
	rec := types.NewPersistedRecord(result)
	detached := context.WithoutCancel(ctx)

	a.background.Add(1)
	go func() {
		defer a.background.Done()
		pctx, cancel := context.WithTimeout(detached, a.cfg.PersistTimeout)
		defer cancel()

		id, err := a.recorder.Persist(pctx, rec)
		if err != nil {
			a.logger.LogError(errors.NewStorageUnavailable("failed to persist analysis", err), "Persistence failed", "analysis_id", rec.ID)
			return
		}
		a.logger.Debug("Analysis persisted", "analysis_id", rec.ID, "record_id", id)

		if a.publisher == nil {
			return
		}
		event := map[string]any{
			"id":        id,
			"industry":  rec.Industry,
			"atsScore":  rec.ATSScore,
			"timestamp": rec.UploadedAt,
		}
		if err := a.publisher.Publish(pctx, EventAnalysisCompleted, event); err != nil {
			a.logger.Warn("Failed to publish analysis event", "analysis_id", rec.ID, "error", err.Error())
		}
	}()
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
