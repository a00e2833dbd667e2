package matcher

import (
	"strings"
	"testing"
	"unicode/utf8"

	"atsengine/internal/dictionary"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMatcher(t *testing.T) *Matcher {
	t.Helper()
	dict, err := dictionary.Default()
	require.NoError(t, err)
	return New(dict)
}

func TestIndustryKeywordPercentage(t *testing.T) {
	m := newTestMatcher(t)
	text := "Python, Java, AWS, Docker, SQL, Linux, Redis and Agile delivery."

	signals := m.Match(text, "technology")
	ind := signals.IndustryKeywordMatches
	assert.Len(t, ind.Matched, 8)
	assert.Len(t, ind.Missing, 12)
	assert.Equal(t, 40, ind.Percentage)
	assert.Equal(t, []string{"python", "java", "sql", "aws", "docker", "agile", "redis", "linux"}, ind.Matched)
}

func TestMatchEmptyText(t *testing.T) {
	m := newTestMatcher(t)
	signals := m.Match("", "technology")

	assert.Empty(t, signals.KeywordMatches.Matched)
	assert.Len(t, signals.KeywordMatches.Missing, len(m.dict.GeneralKeywords))
	assert.Zero(t, signals.KeywordMatches.Percentage)
	assert.Zero(t, signals.IndustryKeywordMatches.Percentage)
	assert.Zero(t, signals.WordCount)
	assert.Empty(t, signals.WeakLanguageFound)
	assert.Empty(t, signals.GrammarRuleHits)
	assert.Contains(t, signals.Readability.Warnings, "Word count (0) is below recommended minimum")
}

func TestUnknownIndustry(t *testing.T) {
	m := newTestMatcher(t)
	signals := m.Match("Python developer with leadership and communication", "astrology")

	assert.Empty(t, signals.IndustryKeywordMatches.Matched)
	assert.Empty(t, signals.IndustryKeywordMatches.Missing)
	assert.Zero(t, signals.IndustryKeywordMatches.Percentage)
	assert.Empty(t, signals.BuzzwordsFound)
	assert.Equal(t, []string{"communication", "leadership"}, signals.KeywordMatches.Matched)
}

func TestWeakLanguageOffsets(t *testing.T) {
	m := newTestMatcher(t)
	signals := m.Match("Worked on billing. I was  Responsible for the ledger and responsible for audits.", "")

	require.Len(t, signals.WeakLanguageFound, 3)
	norm := dictionary.Normalize("Worked on billing. I was  Responsible for the ledger and responsible for audits.")
	for _, hit := range signals.WeakLanguageFound {
		assert.Equal(t, hit.Phrase, norm[hit.Offset:hit.Offset+len(hit.Phrase)])
	}
	assert.Equal(t, "worked on", signals.WeakLanguageFound[0].Phrase)
	assert.Equal(t, []string{"led", "owned", "managed"}, signals.WeakLanguageFound[1].Suggestions)
	assert.Less(t, signals.WeakLanguageFound[1].Offset, signals.WeakLanguageFound[2].Offset)
}

func TestGrammarRuleHits(t *testing.T) {
	m := newTestMatcher(t)
	signals := m.Match("Managed the the budget. I have led teams.", "")

	require.Len(t, signals.GrammarRuleHits, 2)
	repeated := signals.GrammarRuleHits[0]
	assert.Equal(t, "Repeated word", repeated.Message)
	assert.Equal(t, 1, repeated.Count)
	assert.Contains(t, repeated.Snippet, "the the")
	assert.Equal(t, repeated.Snippet, repeated.Examples[0])
	assert.Equal(t, "First-person pronoun in résumé text", signals.GrammarRuleHits[1].Message)
}

func TestGrammarExamplesAreCapped(t *testing.T) {
	m := newTestMatcher(t)
	text := strings.Repeat("We recieved praise. ", 8)

	signals := m.Match(text, "")
	require.Len(t, signals.GrammarRuleHits, 1)
	assert.Equal(t, 8, signals.GrammarRuleHits[0].Count)
	assert.Len(t, signals.GrammarRuleHits[0].Examples, maxGrammarExamples)
}

func TestQuantification(t *testing.T) {
	m := newTestMatcher(t)
	signals := m.Match("Reduced costs by 30% and saved $1.2M for 500 customers over 6 months, 3x faster.", "")

	assert.Equal(t, map[string][]string{
		"percentages":  {"30%"},
		"currency":     {"$1.2M"},
		"counts":       {"500 customers"},
		"time_savings": {"6 months"},
		"scale":        {"3x"},
	}, signals.QuantificationFound)

	many := m.Match(strings.Repeat("grew 10% ", 12), "")
	assert.Len(t, many.QuantificationFound["percentages"], maxQuantificationHits)
}

func TestActionVerbsAndTitles(t *testing.T) {
	m := newTestMatcher(t)
	signals := m.Match("Growth ninja. Led a team, developed scalable APIs and led hiring.", "technology")

	assert.Equal(t, []string{"led"}, signals.ActionVerbsFound["leadership"])
	assert.Equal(t, []string{"developed"}, signals.ActionVerbsFound["technical"])
	assert.NotContains(t, signals.ActionVerbsFound, "creative")
	assert.Equal(t, []string{"ninja"}, signals.CreativeTitles)
	assert.Equal(t, []string{"scalable"}, signals.BuzzwordsFound)
}

func TestSections(t *testing.T) {
	m := newTestMatcher(t)
	signals := m.Match("Summary\nText\nWORK EXPERIENCE\nMore\nSkills:\nGo\nExperience\n", "")

	assert.Equal(t, []string{"summary", "experience", "skills"}, signals.Sections)
	assert.True(t, signals.HasSection("skills"))
	assert.False(t, signals.HasSection("education"))
}

func TestReadabilityWarnings(t *testing.T) {
	m := newTestMatcher(t)
	signals := m.Match(strings.Repeat("alpha ", 30), "")

	assert.Equal(t, 30, signals.WordCount)
	assert.InDelta(t, 30.0, signals.Readability.AvgSentenceLength, 0.001)
	assert.Zero(t, signals.Readability.ComplexWordRatio)
	assert.Equal(t, []string{
		"Average sentence length (30.0) exceeds recommended maximum",
		"Word count (30) is below recommended minimum",
	}, signals.Readability.Warnings)
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0, Percentage(0, 0))
	assert.Equal(t, 40, Percentage(8, 20))
	assert.Equal(t, 33, Percentage(1, 3))
	assert.Equal(t, 67, Percentage(2, 3))
	assert.Equal(t, 100, Percentage(15, 15))
}

func TestExcerptKeepsRuneBoundaries(t *testing.T) {
	text := "née   Zoë   worked at Café Müller"
	for start := 0; start < len(text); start++ {
		got := Excerpt(text, start, start, 3)
		assert.True(t, utf8.ValidString(got), "start %d gave %q", start, got)
	}
	assert.Equal(t, "née Zoë", Excerpt(text, 0, 4, 6))
}
