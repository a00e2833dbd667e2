// Package report builds the advanced keyword and linguistic report.
//
// The report carries its own ats_score. It re-runs the basic formula with the
// industry keyword percentage and the merged grammar findings substituted in,
// halves it, and adds bonuses for keywords, verbs, numbers and buzzwords. It
// is a separate score from ScoreBreakdown.Total and the two are not expected
// to agree.
package report

import (
	"fmt"
	"math"
	"strings"

	"atsengine/internal/matcher"
	"atsengine/internal/scorer"
	"atsengine/internal/types"
)

// Breakdown keys.
const (
	KeyBase           = "base"
	KeyKeywords       = "keywords"
	KeyActionVerbs    = "action_verbs"
	KeyQuantification = "quantification"
	KeyReadability    = "readability"
	KeyBuzzwords      = "buzzwords"
	KeyPenalty        = "penalty"
)

const (
	maxKeywordPoints   = 15
	maxVerbPoints      = 10
	maxQuantPoints     = 10
	readabilityPoints  = 10
	maxBuzzwordPoints  = 5
	maxGrammarPenalty  = 10
	maxWeakPenalty     = 5
	spellingContextPad = 30

	defaultGrammarSuggestion = "Rewrite to fix grammar"
	defaultWeakSuggestion    = "Use a stronger verb"
)

// Build merges matcher signals, the basic issues and a model critique into an
// AdvancedReport. A zero critique is valid and only drops the model's findings.
func Build(text, industry string, parsed types.ParsedResume, signals types.Signals, basic []types.Issue, critique types.Critique) types.AdvancedReport {
	grammar := make([]types.GrammarIssue, 0, len(signals.GrammarRuleHits)+len(critique.GrammarIssues))
	grammar = append(grammar, signals.GrammarRuleHits...)
	grammar = append(grammar, critique.GrammarIssues...)

	spelling := critique.SpellingErrors
	if spelling == nil {
		spelling = []types.SpellingSuggestion{}
	}

	r := types.AdvancedReport{
		KeywordMatches:         signals.KeywordMatches,
		IndustryKeywordMatches: signals.IndustryKeywordMatches,
		ActionVerbsFound:       signals.ActionVerbsFound,
		QuantificationFound:    signals.QuantificationFound,
		GrammarIssues:          grammar,
		SpellingSuggestions:    spelling,
		WeakLanguageFound:      signals.WeakLanguageFound,
		IndustryBuzzwordsFound: signals.BuzzwordsFound,
		Readability:            signals.Readability,
		CritiqueAvailable:      critique.Available,
	}
	r.Breakdown = breakdown(parsed, signals, len(grammar))
	r.ATSScore = total(r.Breakdown)
	r.Issues = mergeIssues(text, basic, grammar, spelling, signals.WeakLanguageFound)
	return r
}

func breakdown(parsed types.ParsedResume, signals types.Signals, grammarCount int) map[string]int {
	in := scorer.InputsFrom(signals)
	ind := signals.IndustryKeywordMatches
	if len(ind.Matched)+len(ind.Missing) > 0 {
		in.KeywordPercentage = ind.Percentage
	}
	in.GrammarIssues = grammarCount
	substituted := scorer.Compute(parsed, in)

	quantHits := 0
	for _, hits := range signals.QuantificationFound {
		quantHits += len(hits)
	}

	return map[string]int{
		KeyBase:           int(math.Round(0.5 * float64(substituted.Total))),
		KeyKeywords:       min(len(signals.KeywordMatches.Matched), maxKeywordPoints),
		KeyActionVerbs:    min(distinctVerbs(signals.ActionVerbsFound), maxVerbPoints),
		KeyQuantification: min(quantHits, maxQuantPoints),
		KeyReadability:    max(0, readabilityPoints-len(signals.Readability.Warnings)),
		KeyBuzzwords:      min(len(signals.BuzzwordsFound), maxBuzzwordPoints),
		KeyPenalty:        min(maxGrammarPenalty, grammarCount) + min(maxWeakPenalty, len(signals.WeakLanguageFound)),
	}
}

func total(b map[string]int) int {
	sum := b[KeyBase] + b[KeyKeywords] + b[KeyActionVerbs] + b[KeyQuantification] +
		b[KeyReadability] + b[KeyBuzzwords] - b[KeyPenalty]
	return max(0, min(sum, 100))
}

func distinctVerbs(found map[string][]string) int {
	seen := make(map[string]bool)
	for _, verbs := range found {
		for _, v := range verbs {
			seen[v] = true
		}
	}
	return len(seen)
}

func mergeIssues(text string, basic []types.Issue, grammar []types.GrammarIssue, spelling []types.SpellingSuggestion, weak []types.WeakPhrase) []types.Issue {
	issues := make([]types.Issue, 0, len(basic)+len(grammar)+len(spelling)+len(weak))
	for _, b := range basic {
		issues = append(issues, types.Issue{Priority: b.Priority, Category: b.Category, Message: b.Message})
	}

	for _, g := range grammar {
		snippet := g.Snippet
		if len(g.Examples) > 0 {
			snippet = g.Examples[0]
		}
		suggestion := g.Suggestion
		if suggestion == "" {
			suggestion = defaultGrammarSuggestion
		}
		issues = append(issues, types.Issue{
			Priority:   types.PriorityLow,
			Category:   types.CategoryReadability,
			Message:    g.Message,
			Snippet:    snippet,
			Suggestion: suggestion,
		})
	}

	lower := strings.ToLower(text)
	for _, s := range spelling {
		issue := types.Issue{
			Priority:   types.PriorityLow,
			Category:   types.CategoryReadability,
			Message:    fmt.Sprintf("Possible misspelling: '%s'", s.Word),
			Snippet:    s.Word,
			Suggestion: "Check spelling",
		}
		// offsets only carry over when lowercasing kept the byte length
		if i := strings.Index(lower, strings.ToLower(s.Word)); s.Word != "" && i >= 0 && len(lower) == len(text) {
			issue.Snippet = matcher.Excerpt(text, i, i+len(s.Word), spellingContextPad)
		}
		if len(s.Suggestions) > 0 {
			issue.Suggestion = "Consider: " + strings.Join(s.Suggestions, ", ")
		}
		issues = append(issues, issue)
	}

	for _, w := range weak {
		suggestion := defaultWeakSuggestion
		if len(w.Suggestions) > 0 {
			suggestion = w.Suggestions[0]
		}
		issues = append(issues, types.Issue{
			Priority:   types.PriorityLow,
			Category:   types.CategoryReadability,
			Message:    fmt.Sprintf("Weak phrase '%s'", w.Phrase),
			Snippet:    w.Phrase,
			Suggestion: suggestion,
		})
	}
	return issues
}
