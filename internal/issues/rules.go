package issues

import (
	"fmt"
	"strings"

	"atsengine/internal/types"
)

// MessageMissingSummary is the message of the MISSING_SUMMARY issue.
const MessageMissingSummary = "Missing professional summary section"

// Thresholds on the general keyword percentage and the skill count.
const (
	lowKeywordThreshold = 30
	midKeywordThreshold = 60
	minSkills           = 5
)

// Facts is what a rule is evaluated against. ModelGrammarIssues counts the
// issues a model critique added on top of the dictionary rule hits.
type Facts struct {
	Parsed             types.ParsedResume
	Breakdown          types.ScoreBreakdown
	Signals            types.Signals
	ModelGrammarIssues int
}

func (f Facts) grammarIssues() int {
	return len(f.Signals.GrammarRuleHits) + f.ModelGrammarIssues
}

// Rule maps one scoring gap to an issue and its recommendation.
type Rule struct {
	ID             string
	Priority       types.Priority
	Category       string
	Applies        func(f Facts) bool
	Message        func(f Facts) string
	Recommendation func(f Facts) string
}

func fixed(s string) func(Facts) string {
	return func(Facts) string { return s }
}

// DefaultRules is the evaluation order of the built-in rule table.
//
//nolint:gochecknoglobals // rule table
var DefaultRules = buildRules()

func buildRules() []Rule {
	rules := []Rule{
		{
			ID:             "MISSING_EMAIL",
			Priority:       types.PriorityHigh,
			Category:       types.CategoryContact,
			Applies:        func(f Facts) bool { return f.Parsed.Email == "" },
			Message:        fixed("Missing email address"),
			Recommendation: fixed("Add a professional email address to the header"),
		},
		{
			ID:             "MISSING_PHONE",
			Priority:       types.PriorityHigh,
			Category:       types.CategoryContact,
			Applies:        func(f Facts) bool { return !f.Parsed.Phone.Usable() },
			Message:        fixed("Missing phone number"),
			Recommendation: fixed("Add a phone number with country code"),
		},
		{
			ID:             "MISSING_LINKEDIN",
			Priority:       types.PriorityLow,
			Category:       types.CategoryContact,
			Applies:        func(f Facts) bool { return f.Parsed.LinkedIn == "" },
			Message:        fixed("Missing LinkedIn profile"),
			Recommendation: fixed("Add your LinkedIn profile URL"),
		},
		{
			ID:       "LOW_KEYWORD_MATCH",
			Priority: types.PriorityHigh,
			Category: types.CategorySkills,
			Applies: func(f Facts) bool {
				return f.Signals.KeywordMatches.Percentage < lowKeywordThreshold
			},
			Message: func(f Facts) string {
				return fmt.Sprintf("Low keyword match (%d%%)", f.Signals.KeywordMatches.Percentage)
			},
			Recommendation: missingKeywords("Work these keywords into your experience"),
		},
		{
			ID:       "MODERATE_KEYWORD_MATCH",
			Priority: types.PriorityMedium,
			Category: types.CategorySkills,
			Applies: func(f Facts) bool {
				p := f.Signals.KeywordMatches.Percentage
				return p >= lowKeywordThreshold && p < midKeywordThreshold
			},
			Message: func(f Facts) string {
				return fmt.Sprintf("Moderate keyword match (%d%%)", f.Signals.KeywordMatches.Percentage)
			},
			Recommendation: missingKeywords("Strengthen keyword coverage"),
		},
		{
			ID:             "FEW_SKILLS",
			Priority:       types.PriorityHigh,
			Category:       types.CategorySkills,
			Applies:        func(f Facts) bool { return len(f.Parsed.Skills) < minSkills },
			Message:        fixed("Insufficient skills listed"),
			Recommendation: fixed("List at least 5 relevant hard and soft skills in a dedicated skills section"),
		},
		{
			ID:             "NO_EDUCATION",
			Priority:       types.PriorityMedium,
			Category:       types.CategoryEducation,
			Applies:        func(f Facts) bool { return len(f.Parsed.Education) == 0 },
			Message:        fixed("Missing education information"),
			Recommendation: fixed("Add your degree, institution and graduation year"),
		},
		{
			ID:             "NO_EXPERIENCE",
			Priority:       types.PriorityMedium,
			Category:       types.CategoryExperience,
			Applies:        func(f Facts) bool { return len(f.Parsed.Experience) == 0 },
			Message:        fixed("Missing work experience"),
			Recommendation: fixed("Add work experience entries with titles, employers and date ranges"),
		},
		{
			ID:       "EXPERIENCE_ORDER",
			Priority: types.PriorityMedium,
			Category: types.CategoryExperience,
			Applies: func(f Facts) bool {
				return len(f.Parsed.Experience) > 1 && !f.Parsed.OriginalOrderChronological
			},
			Message:        fixed("Experience is not in reverse-chronological order"),
			Recommendation: fixed("List your most recent position first"),
		},
	}

	for _, name := range types.CanonicalSections {
		rules = append(rules, missingSection(name))
	}

	return append(rules,
		Rule{
			ID:             "MISSING_SUMMARY",
			Priority:       types.PriorityHigh,
			Category:       types.CategoryStructure,
			Applies:        func(f Facts) bool { return !f.Signals.HasSection(types.SectionSummary) },
			Message:        fixed(MessageMissingSummary),
			Recommendation: fixed("Add a professional summary section"),
		},
		Rule{
			ID:       "CREATIVE_TITLES",
			Priority: types.PriorityMedium,
			Category: types.CategoryStructure,
			Applies:  func(f Facts) bool { return len(f.Signals.CreativeTitles) > 0 },
			Message: func(f Facts) string {
				return fmt.Sprintf("Avoid creative job titles like '%s'", strings.Join(f.Signals.CreativeTitles, "', '"))
			},
			Recommendation: fixed("Use standard job titles that ATS systems recognize"),
		},
		Rule{
			ID:       "GRAMMAR_ISSUES",
			Priority: types.PriorityLow,
			Category: types.CategoryReadability,
			Applies:  func(f Facts) bool { return f.grammarIssues() > 0 },
			Message: func(f Facts) string {
				return fmt.Sprintf("%d grammar issue(s) detected", f.grammarIssues())
			},
			Recommendation: fixed("Proofread and fix grammar and spelling"),
		},
		Rule{
			ID:       "WEAK_LANGUAGE",
			Priority: types.PriorityLow,
			Category: types.CategoryReadability,
			Applies:  func(f Facts) bool { return len(f.Signals.WeakLanguageFound) > 0 },
			Message: func(f Facts) string {
				return fmt.Sprintf("%d weak phrase(s) such as '%s'", len(f.Signals.WeakLanguageFound), f.Signals.WeakLanguageFound[0].Phrase)
			},
			Recommendation: fixed("Start bullets with strong action verbs instead of phrases like 'responsible for'"),
		},
	)
}

func missingSection(name string) Rule {
	return Rule{
		ID:             "MISSING_SECTION_" + strings.ToUpper(name),
		Priority:       types.PriorityLow,
		Category:       types.CategoryStructure,
		Applies:        func(f Facts) bool { return !f.Signals.HasSection(name) },
		Message:        fixed(fmt.Sprintf("Missing %s section header", name)),
		Recommendation: fixed(fmt.Sprintf("Add a clearly labelled %s section", strings.ToUpper(name[:1])+name[1:])),
	}
}

func missingKeywords(prefix string) func(Facts) string {
	return func(f Facts) string {
		missing := f.Signals.KeywordMatches.Missing
		if len(missing) == 0 {
			return prefix
		}
		return fmt.Sprintf("%s: %s", prefix, strings.Join(missing[:min(len(missing), 5)], ", "))
	}
}
