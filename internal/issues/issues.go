// Package issues turns score gaps into prioritized issues and the matching
// recommendations.
package issues

import (
	"sort"

	"atsengine/internal/types"
)

// Generate evaluates DefaultRules in order. Each firing rule yields one issue
// and one recommendation; both slices are stably sorted high to low priority
// and stay index-aligned.
func Generate(parsed types.ParsedResume, breakdown types.ScoreBreakdown, signals types.Signals) ([]types.Issue, []string) {
	return Evaluate(DefaultRules, Facts{Parsed: parsed, Breakdown: breakdown, Signals: signals})
}

// GenerateWithCritique is Generate with the model critique's grammar issues
// counted alongside the dictionary rule hits.
func GenerateWithCritique(parsed types.ParsedResume, breakdown types.ScoreBreakdown, signals types.Signals, critique types.Critique) ([]types.Issue, []string) {
	f := Facts{Parsed: parsed, Breakdown: breakdown, Signals: signals}
	if critique.Available {
		f.ModelGrammarIssues = len(critique.GrammarIssues)
	}
	return Evaluate(DefaultRules, f)
}

// Evaluate runs an arbitrary rule table.
func Evaluate(rules []Rule, f Facts) ([]types.Issue, []string) {
	type finding struct {
		issue types.Issue
		rec   string
	}
	var found []finding
	for _, r := range rules {
		if !r.Applies(f) {
			continue
		}
		found = append(found, finding{
			issue: types.Issue{Priority: r.Priority, Category: r.Category, Message: r.Message(f)},
			rec:   r.Recommendation(f),
		})
	}
	sort.SliceStable(found, func(i, j int) bool {
		return found[i].issue.Priority.Rank() < found[j].issue.Priority.Rank()
	})

	issues := make([]types.Issue, 0, len(found))
	recs := make([]string, 0, len(found))
	for _, fd := range found {
		issues = append(issues, fd.issue)
		recs = append(recs, fd.rec)
	}
	return issues, recs
}
