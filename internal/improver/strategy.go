package improver

import (
	"strings"

	"atsengine/internal/types"
)

const (
	minorFixMinScore    = 70
	minorFixMaxIssues   = 5
	overhaulMaxScore    = 60
	overhaulMinIssues   = 10
	overhaulMinMissing  = 15
	executiveMaxScore   = 40
	executiveMinYears   = 10
	maxFeedbackKeywords = 10
)

// DecideStrategy picks the rewrite approach from the original score and the
// size of the problem.
func DecideStrategy(score, issueCount, missingKeywordCount int) types.Strategy {
	switch {
	case score >= minorFixMinScore && issueCount <= minorFixMaxIssues:
		return types.StrategyMinorFix
	case score <= overhaulMaxScore || issueCount > overhaulMinIssues || missingKeywordCount > overhaulMinMissing:
		return types.StrategyMajorOverhaul
	default:
		return types.StrategyHybrid
	}
}

// DefaultTemplate chooses a template when the caller did not name one.
// Industry wins over strategy.
func DefaultTemplate(strategy types.Strategy, industry string, score int, years float64) string {
	switch strings.ToLower(strings.TrimSpace(industry)) {
	case "academic", "research":
		return types.TemplateAcademicResearch
	case "design", "creative":
		return types.TemplateCreativeProfessional
	}
	if strategy == types.StrategyMajorOverhaul && score < executiveMaxScore && years > executiveMinYears {
		return types.TemplateExecutiveLeadership
	}
	return types.TemplateModernProfessional
}

// ValidTemplate reports whether id names a built-in template.
func ValidTemplate(id string) bool {
	for _, t := range types.TemplateIDs {
		if t == id {
			return true
		}
	}
	return false
}
