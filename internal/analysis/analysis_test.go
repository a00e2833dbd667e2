package analysis

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"atsengine/internal/dictionary"
	"atsengine/internal/errors"
	"atsengine/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

const resume = `Jane Doe
jane.doe@example.com | +1 201 555 0123 | linkedin.com/in/janedoe

Summary
Backend engineer who led the the migration of billing services to Go.

Experience
Senior Engineer at Acme Corp  Jan 2019 - Present
Responsible for payment APIs. Reduced latency by 40% for 2000 customers.
Engineer, Initech  2015 - 2018
Built data pipelines in Python and SQL.

Education
BSc Computer Science, State University 2014

Skills
Go, Python, SQL, Docker, Kubernetes, AWS, Leadership
`

func fixedNow() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }

type fakeCritic struct {
	critique types.Critique
	err      error
	calls    int
}

func (f *fakeCritic) Critique(ctx context.Context, text string) (types.Critique, error) {
	f.calls++
	return f.critique, f.err
}

type fakeRecorder struct {
	mu      sync.Mutex
	err     error
	records []types.PersistedRecord
	ctxErr  error
}

func (f *fakeRecorder) Persist(ctx context.Context, rec types.PersistedRecord) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	f.ctxErr = ctx.Err()
	if f.err != nil {
		return "", f.err
	}
	return rec.ID, nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []string
}

func (f *fakePublisher) Publish(ctx context.Context, event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

type memoryCache struct {
	entries map[string]types.Critique
}

func (m *memoryCache) GetCritique(ctx context.Context, key string) (*types.Critique, error) {
	c, ok := m.entries[key]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memoryCache) SetCritique(ctx context.Context, key string, c types.Critique) error {
	m.entries[key] = c
	return nil
}

type countingMetrics struct {
	calls map[string][]bool
}

func (c *countingMetrics) RecordBusinessMetric(ctx context.Context, metricType string, success bool, attrs ...attribute.KeyValue) {
	c.calls[metricType] = append(c.calls[metricType], success)
}

func newAnalyzer(t *testing.T, opts ...Option) *Analyzer {
	t.Helper()
	dict, err := dictionary.Default()
	require.NoError(t, err)
	base := []Option{
		WithClock(fixedNow),
		WithIDGenerator(func() string { return "analysis-1" }),
	}
	return New(dict, append(base, opts...)...)
}

func TestAnalyzeProducesFullResult(t *testing.T) {
	critic := &fakeCritic{critique: types.Critique{
		SpellingErrors: []types.SpellingSuggestion{{Word: "Initech", Suggestions: []string{"Initiative"}}},
	}}
	a := newAnalyzer(t, WithCritic(critic))

	result, err := a.Analyze(context.Background(), resume, " Technology ")
	require.NoError(t, err)

	assert.Equal(t, "analysis-1", result.ID)
	assert.Equal(t, "technology", result.Industry)
	assert.Equal(t, fixedNow(), result.AnalyzedAt)
	assert.Equal(t, "jane.doe@example.com", result.Parsed.Email)
	assert.Equal(t, result.Score.Sum(), result.Score.Total)
	assert.Len(t, result.Recommendations, len(result.Issues))

	require.NotNil(t, result.Report)
	assert.True(t, result.Report.CritiqueAvailable)
	assert.Len(t, result.Report.SpellingSuggestions, 1)
	assert.GreaterOrEqual(t, result.Report.ATSScore, 0)
	assert.LessOrEqual(t, result.Report.ATSScore, 100)
}

func TestCritiqueFeedsBasicReadability(t *testing.T) {
	critic := &fakeCritic{critique: types.Critique{GrammarIssues: []types.GrammarIssue{
		{Message: "Tense shift"}, {Message: "Missing article"}, {Message: "Run-on sentence"},
	}}}
	a := newAnalyzer(t, WithCritic(critic))

	local, err := a.AnalyzeLocal(context.Background(), resume, "technology")
	require.NoError(t, err)
	full, err := a.Analyze(context.Background(), resume, "technology")
	require.NoError(t, err)

	require.Less(t, len(local.Report.GrammarIssues), 4)
	assert.Less(t, full.Score.Readability, local.Score.Readability)
	assert.Equal(t, full.Score.Sum(), full.Score.Total)
	assert.Equal(t, local.Score.Contact, full.Score.Contact)

	want := fmt.Sprintf("%d grammar issue(s) detected", len(local.Report.GrammarIssues)+3)
	var messages []string
	for _, issue := range full.Issues {
		messages = append(messages, issue.Message)
	}
	assert.Contains(t, messages, want)
	assert.Len(t, full.Recommendations, len(full.Issues))
}

func TestCritiqueFailureDegrades(t *testing.T) {
	for _, critErr := range []error{
		errors.NewModelUnavailable("circuit open", nil),
		errors.NewModelTimeout("deadline", context.DeadlineExceeded),
	} {
		t.Run(errors.CodeOf(critErr), func(t *testing.T) {
			metrics := &countingMetrics{calls: map[string][]bool{}}
			a := newAnalyzer(t, WithCritic(&fakeCritic{err: critErr}), WithMetrics(metrics))

			result, err := a.Analyze(context.Background(), resume, "technology")
			require.NoError(t, err)
			assert.False(t, result.Report.CritiqueAvailable)
			assert.Empty(t, result.Report.SpellingSuggestions)
			assert.Equal(t, result.Score.Sum(), result.Score.Total)
			assert.Equal(t, []bool{false}, metrics.calls[MetricCritique])
			assert.Equal(t, []bool{true}, metrics.calls[MetricAnalysis])
		})
	}
}

func TestStorageFailureDoesNotFailAnalysis(t *testing.T) {
	rec := &fakeRecorder{err: stderrors.New("connection refused")}
	pub := &fakePublisher{}
	a := newAnalyzer(t, WithRecorder(rec), WithPublisher(pub))

	result, err := a.Analyze(context.Background(), resume, "technology")
	require.NoError(t, err)
	assert.NotZero(t, result.Score.Total)

	a.Wait()
	require.Len(t, rec.records, 1)
	assert.Equal(t, "analysis-1", rec.records[0].ID)
	assert.Empty(t, pub.events)
}

func TestPersistenceOutlivesRequestContext(t *testing.T) {
	rec := &fakeRecorder{}
	pub := &fakePublisher{}
	a := newAnalyzer(t, WithRecorder(rec), WithPublisher(pub))

	ctx, cancel := context.WithCancel(context.Background())
	result, err := a.Analyze(ctx, resume, "technology")
	require.NoError(t, err)
	cancel()
	a.Wait()

	require.Len(t, rec.records, 1)
	assert.NoError(t, rec.ctxErr)
	assert.Equal(t, result.Score.Total, rec.records[0].ATSScore)
	assert.Equal(t, "+1 201 555 0123", rec.records[0].Mobile)
	assert.Equal(t, []string{EventAnalysisCompleted}, pub.events)
}

func TestAnalyzeTransientSkipsRecording(t *testing.T) {
	critic := &fakeCritic{critique: types.Critique{GrammarIssues: []types.GrammarIssue{{Message: "Tense shift"}}}}
	rec := &fakeRecorder{}
	pub := &fakePublisher{}
	a := newAnalyzer(t, WithCritic(critic), WithRecorder(rec), WithPublisher(pub))

	result, err := a.AnalyzeTransient(context.Background(), resume, "technology")
	require.NoError(t, err)
	a.Wait()

	assert.True(t, result.Report.CritiqueAvailable)
	assert.Equal(t, 1, critic.calls)
	assert.Empty(t, rec.records)
	assert.Empty(t, pub.events)
}

func TestCritiqueIsCached(t *testing.T) {
	critic := &fakeCritic{critique: types.Critique{GrammarIssues: []types.GrammarIssue{{Message: "Tense shift"}}}}
	cache := &memoryCache{entries: map[string]types.Critique{}}
	a := newAnalyzer(t, WithCritic(critic), WithCache(cache))

	first, err := a.Analyze(context.Background(), resume, "technology")
	require.NoError(t, err)
	second, err := a.Analyze(context.Background(), resume, "technology")
	require.NoError(t, err)

	assert.Equal(t, 1, critic.calls)
	assert.Equal(t, first.Report, second.Report)
	assert.True(t, second.Report.CritiqueAvailable)
}

func TestAnalyzeLocalIsDeterministic(t *testing.T) {
	critic := &fakeCritic{}
	rec := &fakeRecorder{}
	a := newAnalyzer(t, WithCritic(critic), WithRecorder(rec))

	first, err := a.AnalyzeLocal(context.Background(), resume, "technology")
	require.NoError(t, err)
	second, err := a.AnalyzeLocal(context.Background(), resume, "technology")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Zero(t, critic.calls)
	a.Wait()
	assert.Empty(t, rec.records)
}

func TestAnalyzeRejects(t *testing.T) {
	a := newAnalyzer(t)

	t.Run("blank text", func(t *testing.T) {
		_, err := a.Analyze(context.Background(), " \n\t ", "technology")
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidRequest))
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := a.Analyze(ctx, resume, "technology")
		assert.ErrorIs(t, err, context.Canceled)
	})
}
