package formatters

import (
	"encoding/json"
	"testing"
	"time"

	"atsengine/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAnalysis() types.Analysis {
	return types.Analysis{
		ID:       "a-1",
		Industry: "technology",
		Score: types.ScoreBreakdown{
			Contact: 15, Skills: 20, Education: 10, Experience: 12, Structure: 10, Readability: 8, Total: 75,
		},
		Issues: []types.Issue{
			{Priority: types.PriorityHigh, Category: types.CategoryExperience, Message: "Add measurable results"},
		},
		Recommendations: []string{"Quantify achievements"},
		Report: &types.AdvancedReport{
			ATSScore:               71,
			KeywordMatches:         types.KeywordMatch{Matched: []string{"go"}, Missing: []string{"kubernetes"}, Percentage: 50},
			IndustryKeywordMatches: types.KeywordMatch{Missing: []string{"terraform"}},
			WeakLanguageFound:      []types.WeakPhrase{{Phrase: "responsible for", Suggestions: []string{"led"}}},
			SpellingSuggestions:    []types.SpellingSuggestion{{Word: "recieve", Suggestions: []string{"receive"}}},
		},
	}
}

func TestRegistryDispatch(t *testing.T) {
	registry := NewFormatterRegistry()
	a := sampleAnalysis()

	byValue, err := registry.Format(a, "text")
	require.NoError(t, err)
	byPointer, err := registry.Format(&a, "text")
	require.NoError(t, err)
	assert.Equal(t, byValue, byPointer)

	assert.Contains(t, byValue, "=== ATS SCORE ===")
	assert.Contains(t, byValue, "Total: 75/100")
	assert.Contains(t, byValue, "[HIGH] experience: Add measurable results")
	assert.Contains(t, byValue, "Missing: kubernetes, terraform")
	assert.Contains(t, byValue, "Model critique: unavailable")
}

func TestAnalysisMarkdown(t *testing.T) {
	out, err := NewFormatterRegistry().Format(sampleAnalysis(), "markdown")
	require.NoError(t, err)

	assert.Contains(t, out, "# Resume Analysis")
	assert.Contains(t, out, "| Skills | 20 | 25 |")
	assert.Contains(t, out, "\"responsible for\" → try led")
	assert.Contains(t, out, "`recieve` → receive")
}

func TestJSONFormatterAnyType(t *testing.T) {
	registry := NewFormatterRegistry()

	out, err := registry.Format(map[string]int{"score": 3}, "json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"score":3}`, out)

	out, err = registry.Format(sampleAnalysis(), "json")
	require.NoError(t, err)
	var decoded types.Analysis
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, 75, decoded.Score.Total)
}

func TestUnknownFormat(t *testing.T) {
	registry := NewFormatterRegistry()

	_, err := registry.Format(sampleAnalysis(), "xml")
	assert.EqualError(t, err, "no formatter found for format 'xml' and type 'Analysis'")

	_, err = registry.Format(map[string]int{}, "text")
	assert.Error(t, err)
}

func TestImprovementFormatters(t *testing.T) {
	result := &types.ImprovementResult{
		OriginalScore: 48,
		NewScore:      66,
		Strategy:      types.StrategyMajorOverhaul,
		ChangesMade:   []string{"Rewrote summary"},
		ImprovedText:  "Jane Doe\nSenior Engineer",
		Document: types.RenderedDocument{
			Content:    []byte("%PDF-1.7"),
			MediaType:  "application/pdf",
			TemplateID: types.TemplateModernProfessional,
			Inline:     true,
		},
		Timestamp: time.Now(),
	}
	registry := NewFormatterRegistry()

	text, err := registry.Format(result, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "Score: 48 -> 66 (+18)")
	assert.Contains(t, text, "Strategy: major_overhaul")
	assert.Contains(t, text, "Document: inline, 8 bytes (application/pdf)")

	result.Document = types.RenderedDocument{URL: "https://files.example/r.pdf", MediaType: "application/pdf", Warning: "slow upload"}
	md, err := registry.Format(result, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "# Improved Resume")
	assert.Contains(t, md, "Document: https://files.example/r.pdf (application/pdf)")
	assert.Contains(t, md, "Warning: slow upload")
	assert.Contains(t, md, "- Rewrote summary")
}

func TestParsedFormatters(t *testing.T) {
	p := types.ParsedResume{
		Email:  "jane@example.com",
		Phone:  &types.Phone{Raw: "+1 415 555 0100"},
		Skills: []string{"Go", "SQL"},
		Experience: []types.Experience{{
			Title:        "Engineer",
			Organization: "Acme",
			Start:        time.Date(2019, time.March, 1, 0, 0, 0, 0, time.UTC),
			Current:      true,
		}},
		Education:       []types.Education{{Degree: "BSc Computer Science", Institution: "State University", Year: 2018}},
		YearsExperience: 5.5,
	}
	registry := NewFormatterRegistry()

	text, err := registry.Format(p, "text")
	require.NoError(t, err)
	assert.Contains(t, text, "Email:    jane@example.com")
	assert.Contains(t, text, "=== EXPERIENCE (5.5 years) ===")
	assert.Contains(t, text, "Engineer at Acme (Mar 2019 – present)")
	assert.Contains(t, text, "BSc Computer Science, State University (2018)")
	assert.NotContains(t, text, "LinkedIn")

	md, err := registry.Format(&p, "markdown")
	require.NoError(t, err)
	assert.Contains(t, md, "- **Phone:** +1 415 555 0100")
	assert.Contains(t, md, "## Skills\n\nGo, SQL")
}

func TestDerefRejectsNilAndWrongType(t *testing.T) {
	_, err := (&AnalysisTextFormatter{}).Format((*types.Analysis)(nil))
	assert.Error(t, err)

	_, err = (&ImprovementTextFormatter{}).Format("not a result")
	assert.Error(t, err)
}

func TestGetSupportedFormats(t *testing.T) {
	assert.Equal(t, []string{"json", "markdown", "text"}, NewFormatterRegistry().GetSupportedFormats())
}
