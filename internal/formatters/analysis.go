package formatters

import (
	"fmt"
	"strings"

	"atsengine/internal/types"
)

// AnalysisTextFormatter handles text formatting for analysis results
type AnalysisTextFormatter struct{}

func (f *AnalysisTextFormatter) Format(data any) (string, error) {
	a, err := deref[types.Analysis](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	output.WriteString("=== ATS SCORE ===\n")
	fmt.Fprintf(&output, "Total: %d/100\n", a.Score.Total)
	if a.Industry != "" {
		fmt.Fprintf(&output, "Industry: %s\n", a.Industry)
	}
	output.WriteString("\n")
	for _, row := range scoreRows(a.Score) {
		fmt.Fprintf(&output, "  %-12s %2d/%d\n", row.label, row.value, row.max)
	}
	output.WriteString("\n")

	if len(a.Issues) > 0 {
		output.WriteString("=== ISSUES ===\n")
		for i, issue := range a.Issues {
			fmt.Fprintf(&output, "%d. [%s] %s: %s\n", i+1, strings.ToUpper(string(issue.Priority)), issue.Category, issue.Message)
		}
		output.WriteString("\n")
	}

	if len(a.Recommendations) > 0 {
		output.WriteString("=== RECOMMENDATIONS ===\n")
		for _, rec := range a.Recommendations {
			fmt.Fprintf(&output, "- %s\n", rec)
		}
		output.WriteString("\n")
	}

	if r := a.Report; r != nil {
		output.WriteString("=== ADVANCED REPORT ===\n")
		fmt.Fprintf(&output, "ATS score: %d/100\n", r.ATSScore)
		fmt.Fprintf(&output, "Keywords: %d%% matched\n", r.KeywordMatches.Percentage)
		if len(r.IndustryKeywordMatches.Matched)+len(r.IndustryKeywordMatches.Missing) > 0 {
			fmt.Fprintf(&output, "Industry keywords: %d%% matched\n", r.IndustryKeywordMatches.Percentage)
		}
		if missing := missingKeywords(r, 10); len(missing) > 0 {
			fmt.Fprintf(&output, "Missing: %s\n", strings.Join(missing, ", "))
		}
		fmt.Fprintf(&output, "Grammar issues: %d\n", len(r.GrammarIssues))
		fmt.Fprintf(&output, "Spelling suggestions: %d\n", len(r.SpellingSuggestions))
		fmt.Fprintf(&output, "Weak phrases: %d\n", len(r.WeakLanguageFound))
		fmt.Fprintf(&output, "Readability: %.1f words per sentence\n", r.Readability.AvgSentenceLength)
		if !r.CritiqueAvailable {
			output.WriteString("Model critique: unavailable\n")
		}
	}

	return output.String(), nil
}

func (f *AnalysisTextFormatter) SupportedType() string {
	return TypeAnalysis
}

// AnalysisMarkdownFormatter handles markdown formatting for analysis results
type AnalysisMarkdownFormatter struct{}

func (f *AnalysisMarkdownFormatter) Format(data any) (string, error) {
	a, err := deref[types.Analysis](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	output.WriteString("# Resume Analysis\n\n")
	fmt.Fprintf(&output, "**ATS Score:** %d/100\n\n", a.Score.Total)

	output.WriteString("| Category | Score | Max |\n|---|---|---|\n")
	for _, row := range scoreRows(a.Score) {
		fmt.Fprintf(&output, "| %s | %d | %d |\n", row.label, row.value, row.max)
	}
	output.WriteString("\n")

	if len(a.Issues) > 0 {
		output.WriteString("## Issues\n\n")
		for _, issue := range a.Issues {
			fmt.Fprintf(&output, "- **%s** (%s): %s\n", issue.Priority, issue.Category, issue.Message)
		}
		output.WriteString("\n")
	}

	if len(a.Recommendations) > 0 {
		output.WriteString("## Recommendations\n\n")
		for _, rec := range a.Recommendations {
			fmt.Fprintf(&output, "- %s\n", rec)
		}
		output.WriteString("\n")
	}

	if r := a.Report; r != nil {
		output.WriteString("## Advanced Report\n\n")
		fmt.Fprintf(&output, "**ATS score:** %d/100\n\n", r.ATSScore)
		output.WriteString("### Keywords\n\n")
		fmt.Fprintf(&output, "- General: %d%% matched\n", r.KeywordMatches.Percentage)
		fmt.Fprintf(&output, "- Industry: %d%% matched\n", r.IndustryKeywordMatches.Percentage)
		if missing := missingKeywords(r, 10); len(missing) > 0 {
			fmt.Fprintf(&output, "- Missing: %s\n", strings.Join(missing, ", "))
		}
		output.WriteString("\n")

		if len(r.WeakLanguageFound) > 0 {
			output.WriteString("### Weak Language\n\n")
			for _, w := range r.WeakLanguageFound {
				fmt.Fprintf(&output, "- \"%s\"", w.Phrase)
				if len(w.Suggestions) > 0 {
					fmt.Fprintf(&output, " → try %s", strings.Join(w.Suggestions, ", "))
				}
				output.WriteString("\n")
			}
			output.WriteString("\n")
		}

		if len(r.GrammarIssues) > 0 || len(r.SpellingSuggestions) > 0 {
			output.WriteString("### Language\n\n")
			for _, g := range r.GrammarIssues {
				fmt.Fprintf(&output, "- %s", g.Message)
				if g.Snippet != "" {
					fmt.Fprintf(&output, ": `%s`", g.Snippet)
				}
				output.WriteString("\n")
			}
			for _, s := range r.SpellingSuggestions {
				fmt.Fprintf(&output, "- Spelling: `%s` → %s\n", s.Word, strings.Join(s.Suggestions, ", "))
			}
			output.WriteString("\n")
		}

		if !r.CritiqueAvailable {
			output.WriteString("_Model critique was unavailable for this analysis._\n")
		}
	}

	return output.String(), nil
}

func (f *AnalysisMarkdownFormatter) SupportedType() string {
	return TypeAnalysis
}

type scoreRow struct {
	label      string
	value, max int
}

func scoreRows(b types.ScoreBreakdown) []scoreRow {
	return []scoreRow{
		{"Contact", b.Contact, types.MaxContact},
		{"Skills", b.Skills, types.MaxSkills},
		{"Education", b.Education, types.MaxEducation},
		{"Experience", b.Experience, types.MaxExperience},
		{"Structure", b.Structure, types.MaxStructure},
		{"Readability", b.Readability, types.MaxReadability},
	}
}

func missingKeywords(r *types.AdvancedReport, limit int) []string {
	missing := append(append([]string{}, r.KeywordMatches.Missing...), r.IndustryKeywordMatches.Missing...)
	if len(missing) > limit {
		missing = missing[:limit]
	}
	return missing
}
