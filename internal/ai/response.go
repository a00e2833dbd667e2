package ai

import (
	"strings"
	"unicode/utf8"

	"atsengine/internal/types"
)

// maxCritiqueRunes bounds the text sent for critique.
const maxCritiqueRunes = 3000

type critiqueResponse struct {
	SpellingErrors []struct {
		Word       string `json:"word"`
		Correction string `json:"correction"`
		Context    string `json:"context"`
	} `json:"spellingErrors"`
	GrammarErrors []struct {
		Issue      string `json:"issue"`
		Suggestion string `json:"suggestion"`
		Context    string `json:"context"`
	} `json:"grammarErrors"`
}

type rewriteResponse struct {
	ImprovedText string `json:"improvedText"`
}

// toCritique converts the model's answer. Entries without a word or an
// issue are dropped.
func (r critiqueResponse) toCritique() types.Critique {
	c := types.Critique{
		GrammarIssues:  []types.GrammarIssue{},
		SpellingErrors: []types.SpellingSuggestion{},
		Available:      true,
	}

	for _, s := range r.SpellingErrors {
		word := strings.TrimSpace(s.Word)
		if word == "" {
			continue
		}
		sugg := types.SpellingSuggestion{Word: word, Suggestions: []string{}}
		if corr := strings.TrimSpace(s.Correction); corr != "" && !strings.EqualFold(corr, word) {
			sugg.Suggestions = append(sugg.Suggestions, corr)
		}
		c.SpellingErrors = append(c.SpellingErrors, sugg)
	}

	for _, g := range r.GrammarErrors {
		issue := strings.TrimSpace(g.Issue)
		if issue == "" {
			continue
		}
		msg := "Grammar issue"
		if ctx := strings.TrimSpace(g.Context); ctx != "" {
			msg += ": " + ctx
		}
		c.GrammarIssues = append(c.GrammarIssues, types.GrammarIssue{
			Snippet:    issue,
			Message:    msg,
			Suggestion: strings.TrimSpace(g.Suggestion),
			Severity:   "low",
			Count:      1,
			Examples:   []string{issue},
		})
	}
	return c
}

// CleanJSON strips a markdown code fence the model sometimes wraps around
// JSON output.
func CleanJSON(input string) string {
	clean := strings.TrimSpace(input)
	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	} else if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
	}
	clean = strings.TrimLeft(clean, "\r\n")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

// sanitizeText drops invalid UTF-8 before text is sent to the API.
func sanitizeText(s string) string {
	return strings.ToValidUTF8(s, "")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
