// Package improver rewrites a résumé with a language model, renders the
// result and rescores it.
package improver

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"atsengine/internal/errors"
	"atsengine/internal/issues"
	"atsengine/internal/types"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// MetricImprovement is the business metric recorded per improvement.
const MetricImprovement = "improvement"

const inlineMediaType = "text/plain"

// Rewriter produces the improved text.
type Rewriter interface {
	Rewrite(ctx context.Context, req types.RewriteRequest) (string, error)
}

// Renderer turns improved text into a document for a template.
type Renderer interface {
	Render(ctx context.Context, text, templateID string) (*types.RenderedDocument, error)
}

// DocumentStore keeps rendered documents and returns a URL for them.
type DocumentStore interface {
	Put(ctx context.Context, key string, data []byte, mediaType string) (string, error)
}

// Rescorer runs the analysis pipeline without the model critique.
type Rescorer interface {
	AnalyzeLocal(ctx context.Context, text, industry string) (*types.Analysis, error)
}

// MetricsRecorder counts business events.
type MetricsRecorder interface {
	RecordBusinessMetric(ctx context.Context, metricType string, success bool, attrs ...attribute.KeyValue)
}

// Config holds the collaborator timeouts.
type Config struct {
	RewriteTimeout time.Duration
	RenderTimeout  time.Duration
	StorageTimeout time.Duration
}

// DefaultConfig returns the timeouts used when none are configured.
func DefaultConfig() Config {
	return Config{
		RewriteTimeout: 90 * time.Second,
		RenderTimeout:  30 * time.Second,
		StorageTimeout: 15 * time.Second,
	}
}

// Orchestrator runs improvements. The rewriter and rescorer are required;
// the renderer, store and metrics are optional.
type Orchestrator struct {
	rewriter Rewriter
	rescorer Rescorer
	renderer Renderer
	store    DocumentStore
	metrics  MetricsRecorder
	logger   *errors.Logger
	cfg      Config
	now      func() time.Time
	newKey   func(ext string) string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithRenderer(r Renderer) Option { return func(o *Orchestrator) { o.renderer = r } }
func WithStore(s DocumentStore) Option { return func(o *Orchestrator) { o.store = s } }
func WithMetrics(m MetricsRecorder) Option { return func(o *Orchestrator) { o.metrics = m } }
func WithLogger(l *errors.Logger) Option { return func(o *Orchestrator) { o.logger = l } }
func WithConfig(c Config) Option { return func(o *Orchestrator) { o.cfg = c } }
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// WithKeyGenerator replaces the storage key generator.
func WithKeyGenerator(gen func(ext string) string) Option {
	return func(o *Orchestrator) { o.newKey = gen }
}

// New creates an Orchestrator.
func New(rewriter Rewriter, rescorer Rescorer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		rewriter: rewriter,
		rescorer: rescorer,
		logger:   errors.NewDiscardLogger(),
		cfg:      DefaultConfig(),
		now:      time.Now,
		newKey: func(ext string) string {
			return path.Join("improved", uuid.NewString()+ext)
		},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Improve rewrites req.OriginalText. A failed rewrite fails the call with a
// typed model error. A failed render or store degrades to an inline document.
func (o *Orchestrator) Improve(ctx context.Context, req types.ImprovementRequest) (*types.ImprovementResult, error) {
	result, err := o.improve(ctx, req)
	if o.metrics != nil {
		attrs := []attribute.KeyValue{attribute.String("industry", req.Industry)}
		if result != nil {
			attrs = append(attrs,
				attribute.String("strategy", result.Strategy.String()),
				attribute.Int("score_delta", result.NewScore-result.OriginalScore))
		} else {
			attrs = append(attrs, attribute.String("error_code", errors.CodeOf(err)))
		}
		o.metrics.RecordBusinessMetric(ctx, MetricImprovement, err == nil, attrs...)
	}
	return result, err
}

func (o *Orchestrator) improve(ctx context.Context, req types.ImprovementRequest) (*types.ImprovementResult, error) {
	if strings.TrimSpace(req.OriginalText) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "original text is empty", nil)
	}
	if req.TemplateID != "" && !ValidTemplate(req.TemplateID) {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("unknown template: %s", req.TemplateID), nil).
			WithContext("template_id", req.TemplateID)
	}

	if req.Report == nil {
		if err := o.fillReport(ctx, &req); err != nil {
			return nil, err
		}
	}

	summary := summarize(req)
	strategy := DecideStrategy(req.OriginalScore, summary.IssueCount, summary.MissingKeywordCount)
	templateID := req.TemplateID
	if templateID == "" {
		templateID = DefaultTemplate(strategy, req.Industry, req.OriginalScore, req.YearsExperience)
	}

	logger := o.logger.With("strategy", strategy.String(), "template_id", templateID)
	logger.Info("Starting improvement",
		"original_score", req.OriginalScore,
		"issue_count", summary.IssueCount,
		"missing_keywords", summary.MissingKeywordCount)

	improved, err := o.rewrite(ctx, types.RewriteRequest{
		Text:       req.OriginalText,
		Feedback:   feedback(req.Report),
		Industry:   req.Industry,
		Strategy:   strategy,
		TemplateID: templateID,
	})
	if err != nil {
		logger.LogError(err, "Rewrite failed")
		return nil, err
	}

	rescored, err := o.rescorer.AnalyzeLocal(ctx, improved, req.Industry)
	if err != nil {
		return nil, err
	}

	result := &types.ImprovementResult{
		OriginalScore: req.OriginalScore,
		NewScore:      rescored.Score.Total,
		Strategy:      strategy,
		ChangesMade:   changesMade(strategy, templateID, req.Report),
		ImprovedText:  improved,
		Document:      o.document(ctx, logger, improved, templateID),
		Summary:       summary,
		Timestamp:     o.now().UTC(),
	}
	logger.Info("Improvement completed", "new_score", result.NewScore, "inline", result.Document.Inline)
	return result, nil
}

// fillReport analyzes the original text when the caller did not bring a report.
func (o *Orchestrator) fillReport(ctx context.Context, req *types.ImprovementRequest) error {
	a, err := o.rescorer.AnalyzeLocal(ctx, req.OriginalText, req.Industry)
	if err != nil {
		return err
	}
	req.Report = a.Report
	if req.OriginalScore == 0 {
		req.OriginalScore = a.Score.Total
	}
	if req.IssueCount == 0 {
		req.IssueCount = len(a.Issues)
	}
	if req.YearsExperience == 0 {
		req.YearsExperience = a.Parsed.YearsExperience
	}
	return nil
}

func (o *Orchestrator) rewrite(ctx context.Context, rr types.RewriteRequest) (string, error) {
	rctx, cancel := context.WithTimeout(ctx, o.cfg.RewriteTimeout)
	defer cancel()

	text, err := o.rewriter.Rewrite(rctx, rr)
	switch {
	case err == nil:
	case errors.HasCode(err, errors.ErrCodeModelTimeout), errors.HasCode(err, errors.ErrCodeModelUnavailable):
		return "", err
	case errors.IsTimeout(err):
		return "", errors.NewModelTimeout("rewrite timed out", err)
	default:
		return "", errors.NewModelUnavailable("rewrite failed", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.NewModelUnavailable("model returned an empty rewrite", nil)
	}
	return text, nil
}

// document never fails. Without a renderer, or when rendering fails, the
// improved text is returned inline; when only storage fails the rendered
// bytes are returned inline.
func (o *Orchestrator) document(ctx context.Context, logger *errors.Logger, text, templateID string) types.RenderedDocument {
	inline := types.RenderedDocument{
		Content:    []byte(text),
		MediaType:  inlineMediaType,
		TemplateID: templateID,
		Inline:     true,
	}
	if o.renderer == nil {
		return inline
	}

	rctx, cancel := context.WithTimeout(ctx, o.cfg.RenderTimeout)
	defer cancel()
	doc, err := o.renderer.Render(rctx, text, templateID)
	if err != nil {
		if !errors.HasCode(err, errors.ErrCodeRenderFailed) {
			err = errors.NewRenderFailed("failed to render document", err)
		}
		logger.LogError(err, "Render failed, returning improved text inline")
		inline.Warning = err.Error()
		return inline
	}
	doc.TemplateID = templateID

	if o.store == nil {
		doc.Inline = true
		return *doc
	}

	sctx, scancel := context.WithTimeout(ctx, o.cfg.StorageTimeout)
	defer scancel()
	key := o.newKey(extensionFor(doc.MediaType))
	url, err := o.store.Put(sctx, key, doc.Content, doc.MediaType)
	if err != nil {
		if !errors.HasCode(err, errors.ErrCodeStorageUnavailable) {
			err = errors.NewStorageUnavailable("failed to store document", err)
		}
		logger.LogError(err, "Document storage failed, returning rendered document inline", "key", key)
		doc.Inline = true
		doc.Warning = err.Error()
		return *doc
	}

	return types.RenderedDocument{
		URL:        url,
		StorageKey: key,
		MediaType:  doc.MediaType,
		TemplateID: templateID,
	}
}

func extensionFor(mediaType string) string {
	switch mediaType {
	case "application/pdf":
		return ".pdf"
	case "text/html", "text/html; charset=utf-8":
		return ".html"
	case "text/markdown", "text/markdown; charset=utf-8":
		return ".md"
	default:
		return ".txt"
	}
}

func summarize(req types.ImprovementRequest) types.ImprovementSummary {
	r := req.Report
	s := types.ImprovementSummary{
		IssueCount:          req.IssueCount,
		MissingKeywordCount: r.MissingKeywordCount(),
	}
	if r == nil {
		return s
	}
	if s.IssueCount == 0 {
		s.IssueCount = len(r.Issues)
	}
	s.GrammarIssueCount = len(r.GrammarIssues)
	s.SpellingIssueCount = len(r.SpellingSuggestions)
	s.WeakLanguageCount = len(r.WeakLanguageFound)
	return s
}

// feedback tells the model what the analysis found.
func feedback(r *types.AdvancedReport) []string {
	if r == nil {
		return []string{}
	}
	var out []string

	missing := append(append([]string{}, r.KeywordMatches.Missing...), r.IndustryKeywordMatches.Missing...)
	missing = dedupe(missing)
	if len(missing) > 0 {
		out = append(out, "Incorporate these missing keywords where truthful: "+
			strings.Join(missing[:min(len(missing), maxFeedbackKeywords)], ", "))
	}
	if n := len(r.GrammarIssues); n > 0 {
		out = append(out, fmt.Sprintf("Fix %d grammar issues", n))
	}
	if n := len(r.SpellingSuggestions); n > 0 {
		words := make([]string, 0, n)
		for _, s := range r.SpellingSuggestions {
			words = append(words, s.Word)
		}
		out = append(out, fmt.Sprintf("Correct %d spelling errors: %s", n, strings.Join(words, ", ")))
	}
	if n := len(r.WeakLanguageFound); n > 0 {
		out = append(out, fmt.Sprintf("Replace %d weak phrases with strong action verbs", n))
	}
	for _, issue := range r.Issues {
		if issue.Priority == types.PriorityHigh {
			out = append(out, issue.Message)
		}
	}
	if out == nil {
		return []string{}
	}
	return out
}

func changesMade(strategy types.Strategy, templateID string, r *types.AdvancedReport) []string {
	var changes []string
	switch strategy {
	case types.StrategyMinorFix:
		changes = append(changes, "Preserved original structure and wording", "Patched flagged issues in place")
	case types.StrategyHybrid:
		changes = append(changes, "Restructured sections while preserving original voice")
	case types.StrategyMajorOverhaul:
		changes = append(changes,
			fmt.Sprintf("Rewrote content onto the %s template", templateID),
			"Reordered sections for ATS parsing")
	}

	notes := categoryNotes(r)
	if len(notes) == 0 {
		return append(changes, "Minor formatting and structure improvements")
	}
	return append(changes, notes...)
}

func categoryNotes(r *types.AdvancedReport) []string {
	if r == nil {
		return nil
	}
	var notes []string
	if n := len(r.GrammarIssues); n > 0 {
		notes = append(notes, fmt.Sprintf("Fixed %d grammar issues", n))
	}
	if n := len(r.SpellingSuggestions); n > 0 {
		notes = append(notes, fmt.Sprintf("Corrected %d spelling errors", n))
	}
	if n := len(r.IndustryKeywordMatches.Missing); n > 0 {
		notes = append(notes, fmt.Sprintf("Incorporated %d missing industry keywords", min(n, maxFeedbackKeywords)))
	}
	if n := len(r.KeywordMatches.Missing); n > 0 {
		notes = append(notes, fmt.Sprintf("Added %d missing keywords", min(n, maxFeedbackKeywords)))
	}

	var contact, summary bool
	for _, issue := range r.Issues {
		contact = contact || issue.Category == types.CategoryContact
		summary = summary || issue.Message == issues.MessageMissingSummary
	}
	if contact {
		notes = append(notes, "Added missing contact information")
	}
	if n := len(r.WeakLanguageFound); n > 0 {
		notes = append(notes, fmt.Sprintf("Replaced %d weak phrases with action verbs", n))
	}
	if summary {
		notes = append(notes, "Added a professional summary section")
	}
	return notes
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
