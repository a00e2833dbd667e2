package ai

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"atsengine/internal/config"
	"atsengine/internal/errors"
	"atsengine/internal/observability"
	"atsengine/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	critique types.Critique
	rewrite  string
	usage    *TokenUsage
	err      error
	closed   bool
}

func (p *stubProvider) Critique(context.Context, string) (types.Critique, *TokenUsage, error) {
	return p.critique, p.usage, p.err
}

func (p *stubProvider) Rewrite(context.Context, types.RewriteRequest) (string, *TokenUsage, error) {
	return p.rewrite, p.usage, p.err
}

func (p *stubProvider) GetModelInfo(context.Context) *ModelInfo {
	return &ModelInfo{Name: "stub", Available: p.err == nil}
}

func (p *stubProvider) Close() error {
	p.closed = true
	return nil
}

type recordingTracker struct {
	operations []string
	results    []*observability.AIOperationResult
}

func (r *recordingTracker) TrackAIOperationWithTokens(ctx context.Context, operation string, fn func(context.Context) *observability.AIOperationResult) error {
	res := fn(ctx)
	r.operations = append(r.operations, operation)
	r.results = append(r.results, res)
	return res.Error
}

func TestServiceTracksTokenUsage(t *testing.T) {
	provider := &stubProvider{
		critique: types.Critique{Available: true, SpellingErrors: []types.SpellingSuggestion{{Word: "teh", Suggestions: []string{"the"}}}},
		usage:    &TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15},
	}
	tracker := &recordingTracker{}
	svc := &Service{Provider: provider, operation: config.OperationCritique, tracker: tracker}

	crit, err := svc.Critique(context.Background(), "teh text")
	require.NoError(t, err)
	assert.Len(t, crit.SpellingErrors, 1)

	require.Len(t, tracker.results, 1)
	assert.Equal(t, []string{config.OperationCritique}, tracker.operations)
	assert.Equal(t, int64(15), tracker.results[0].TokenUsage.TotalTokens)
}

func TestServicePropagatesProviderError(t *testing.T) {
	boom := errors.NewModelUnavailable("down", nil)
	provider := &stubProvider{err: boom}
	tracker := &recordingTracker{}
	svc := &Service{Provider: provider, operation: config.OperationRewrite, tracker: tracker}

	_, err := svc.Rewrite(context.Background(), types.RewriteRequest{Text: "x", Strategy: types.StrategyMinorFix})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, boom))
	assert.Nil(t, tracker.results[0].TokenUsage)
}

func TestServiceWithoutTracker(t *testing.T) {
	svc := &Service{Provider: &stubProvider{rewrite: "better"}, operation: config.OperationRewrite}
	text, err := svc.Rewrite(context.Background(), types.RewriteRequest{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, "better", text)
}

func TestNewServicesWithoutKey(t *testing.T) {
	cfg := &config.Config{}
	cfg.AI.Enabled = true

	services, err := NewServices(cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, services.Critique)
	assert.Nil(t, services.Rewrite)
	assert.NoError(t, services.WithTracker(&recordingTracker{}).Close())
}

func TestServicesClose(t *testing.T) {
	critique, rewrite := &stubProvider{}, &stubProvider{}
	services := &Services{
		Critique: &Service{Provider: critique},
		Rewrite:  &Service{Provider: rewrite},
	}
	require.NoError(t, services.Close())
	assert.True(t, critique.closed)
	assert.True(t, rewrite.closed)
}

func TestNewServiceRejectsUnknownProvider(t *testing.T) {
	cfg := testOpConfig(0)
	cfg.Provider = "llama"
	_, err := NewService(cfg, config.OperationCritique, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfig))
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, `{"a":1}`, CleanJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, CleanJSON(`  {"a":1}  `))

	assert.Equal(t, "file", resolvePrompt("file", "inline", "default"))
	assert.Equal(t, "inline", resolvePrompt("", "inline", "default"))
	assert.Equal(t, "default", resolvePrompt("", "", "default"))

	assert.Equal(t, "héllo", truncateRunes("héllo world", 5))
	assert.Equal(t, "short", truncateRunes("short", 10))

	for attempt := 1; attempt <= 8; attempt++ {
		d := backoffDelay(attempt)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, maxBackoff)
	}
	assert.Equal(t, maxBackoff, backoffDelay(10))

	assert.False(t, isRetryableError(stderrors.New("plain")))
	assert.False(t, isRetryableError(nil))
}
