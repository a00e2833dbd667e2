// Package matcher detects keyword, action-verb, quantification, weak-language,
// grammar and readability signals in résumé text.
//
// Weak-language and grammar matching is plain pattern matching: a negated
// phrase such as "not responsible for" is still flagged.
package matcher

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"atsengine/internal/dictionary"
	"atsengine/internal/types"
)

const (
	maxQuantificationHits = 10
	maxGrammarExamples    = 5
	exampleContext        = 30
)

var (
	wordRe          = regexp.MustCompile(`\w+`)
	sentenceSplitRe = regexp.MustCompile(`[.!?]+`)
)

// Matcher matches text against a dictionary. It holds no per-call state.
type Matcher struct {
	dict *dictionary.Dictionary
}

// New creates a matcher over dict.
func New(dict *dictionary.Dictionary) *Matcher {
	return &Matcher{dict: dict}
}

// Match computes every signal for text against the general lists and the
// lists of industry. An unknown industry matches against empty lists.
func (m *Matcher) Match(text, industry string) types.Signals {
	norm := dictionary.Normalize(text)
	words := wordRe.FindAllString(text, -1)

	return types.Signals{
		KeywordMatches:         m.MatchKeywords(norm, m.dict.GeneralKeywords),
		IndustryKeywordMatches: m.MatchKeywords(norm, m.dict.IndustryTerms(industry)),
		ActionVerbsFound:       m.actionVerbs(norm),
		QuantificationFound:    m.quantification(text),
		WeakLanguageFound:      m.weakLanguage(norm),
		GrammarRuleHits:        m.grammar(text),
		BuzzwordsFound:         m.found(norm, m.dict.IndustryBuzzwords(industry)),
		CreativeTitles:         m.found(norm, m.dict.CreativeTitles),
		Sections:               m.sections(text),
		Readability:            m.readability(text, words),
		WordCount:              len(words),
	}
}

// MatchKeywords splits terms into matched and missing against normalized
// text. The percentage is matched over the list size, rounded, and 0 for an
// empty list or blank text.
func (m *Matcher) MatchKeywords(norm string, terms []string) types.KeywordMatch {
	result := types.KeywordMatch{Matched: []string{}, Missing: []string{}}
	for _, term := range terms {
		if m.dict.Contains(norm, term) {
			result.Matched = append(result.Matched, term)
		} else {
			result.Missing = append(result.Missing, term)
		}
	}
	result.Percentage = Percentage(len(result.Matched), len(terms))
	return result
}

// Percentage returns round(100*matched/total), or 0 when total is 0.
func Percentage(matched, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(matched) / float64(total)))
}

func (m *Matcher) found(norm string, terms []string) []string {
	found := []string{}
	for _, term := range terms {
		if m.dict.Contains(norm, term) {
			found = append(found, term)
		}
	}
	return found
}

func (m *Matcher) actionVerbs(norm string) map[string][]string {
	result := make(map[string][]string)
	for category, verbs := range m.dict.ActionVerbs {
		var hits []string
		for _, verb := range verbs {
			if m.dict.Contains(norm, verb) && !contains(hits, verb) {
				hits = append(hits, verb)
			}
		}
		if len(hits) > 0 {
			result[category] = hits
		}
	}
	return result
}

func (m *Matcher) quantification(text string) map[string][]string {
	result := make(map[string][]string)
	for _, cat := range m.dict.Quantification() {
		var hits []string
		for _, re := range cat.Patterns {
			for _, hit := range re.FindAllString(text, -1) {
				hits = append(hits, strings.TrimSpace(hit))
			}
		}
		if len(hits) > maxQuantificationHits {
			hits = hits[:maxQuantificationHits]
		}
		if len(hits) > 0 {
			result[cat.Name] = hits
		}
	}
	return result
}

func (m *Matcher) weakLanguage(norm string) []types.WeakPhrase {
	hits := []types.WeakPhrase{}
	for _, phrase := range m.dict.WeakLanguage.Phrases {
		suggestions := m.dict.WeakLanguage.Replacements[phrase]
		if suggestions == nil {
			suggestions = []string{}
		}
		for _, offset := range m.dict.FindAll(norm, phrase) {
			hits = append(hits, types.WeakPhrase{Phrase: phrase, Suggestions: suggestions, Offset: offset})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Offset < hits[j].Offset })
	return hits
}

func (m *Matcher) grammar(text string) []types.GrammarIssue {
	issues := []types.GrammarIssue{}
	for _, rule := range m.dict.GrammarRules {
		locs := rule.Regexp().FindAllStringIndex(text, -1)
		if len(locs) == 0 {
			continue
		}
		issue := types.GrammarIssue{
			Message:  rule.Message,
			Severity: rule.Severity,
			Count:    len(locs),
		}
		for _, loc := range locs[:min(len(locs), maxGrammarExamples)] {
			issue.Examples = append(issue.Examples, Excerpt(text, loc[0], loc[1], exampleContext))
		}
		issue.Snippet = issue.Examples[0]
		issues = append(issues, issue)
	}
	return issues
}

func (m *Matcher) sections(text string) []string {
	sections := []string{}
	for _, line := range strings.Split(text, "\n") {
		if name := m.dict.SectionFor(line); name != "" && !contains(sections, name) {
			sections = append(sections, name)
		}
	}
	return sections
}

func (m *Matcher) readability(text string, words []string) types.ReadabilityReport {
	cfg := m.dict.Readability

	sentences := 0
	for _, s := range sentenceSplitRe.Split(text, -1) {
		if strings.TrimSpace(s) != "" {
			sentences++
		}
	}
	complexWords := 0
	for _, w := range words {
		if utf8.RuneCountInString(w) >= cfg.ComplexWordMinLen {
			complexWords++
		}
	}

	report := types.ReadabilityReport{
		AvgSentenceLength: float64(len(words)) / float64(max(1, sentences)),
		ComplexWordRatio:  float64(complexWords) / float64(max(1, len(words))),
		TotalWords:        len(words),
		Warnings:          []string{},
	}
	if report.AvgSentenceLength > cfg.MaxSentenceLength {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("Average sentence length (%.1f) exceeds recommended maximum", report.AvgSentenceLength))
	}
	if report.ComplexWordRatio > cfg.MaxComplexRatio {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("Complex word ratio (%.2f%%) exceeds recommended maximum", report.ComplexWordRatio*100))
	}
	switch {
	case report.TotalWords < cfg.TargetWordCountMin:
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("Word count (%d) is below recommended minimum", report.TotalWords))
	case report.TotalWords > cfg.TargetWordCountMax:
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("Word count (%d) exceeds recommended maximum", report.TotalWords))
	}
	return report
}

// Excerpt returns text[start:end] padded by up to pad bytes on each side,
// snapped to rune boundaries and with whitespace collapsed.
func Excerpt(text string, start, end, pad int) string {
	from := max(0, start-pad)
	for from > 0 && !utf8.RuneStart(text[from]) {
		from--
	}
	to := min(len(text), end+pad)
	for to < len(text) && !utf8.RuneStart(text[to]) {
		to++
	}
	return strings.Join(strings.Fields(text[from:to]), " ")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
