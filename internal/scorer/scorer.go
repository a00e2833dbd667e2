// Package scorer computes the six-category 100-point ATS score.
package scorer

import (
	"math"
	"slices"

	"atsengine/internal/types"
)

// Points awarded per rule.
const (
	pointsEmail    = 5
	pointsPhone    = 5
	pointsLinkedIn = 5

	skillsFloor        = 5
	skillsKeywordScale = 20
	skillsCountBonus   = 5

	pointsDegree = 7
	pointsYear   = 3

	pointsAnyExperience = 6
	pointsPerYear       = 2
	maxYearsPoints      = 10
	pointsChronological = 4

	pointsPerHeader   = 3
	pointsLength      = 3
	minWordsForLength = 150
	maxWordsForLength = 1500
	pointsCreativeHit = 2
	grammarDeduction  = 2
	maxGrammarDeduct  = 8
	maxWeakDeduct     = 4
	maxWarningsDeduct = 3
)

// Inputs are the signal-derived values the formula reads besides the parsed
// record. The advanced report substitutes some of them before re-scoring.
type Inputs struct {
	KeywordPercentage   int
	GrammarIssues       int
	WeakHits            int
	ReadabilityWarnings int
	Sections            []string
	WordCount           int
	CreativeTitles      int
}

// InputsFrom reads the formula inputs from matcher signals.
func InputsFrom(signals types.Signals) Inputs {
	return Inputs{
		KeywordPercentage:   signals.KeywordMatches.Percentage,
		GrammarIssues:       len(signals.GrammarRuleHits),
		WeakHits:            len(signals.WeakLanguageFound),
		ReadabilityWarnings: len(signals.Readability.Warnings),
		Sections:            signals.Sections,
		WordCount:           signals.WordCount,
		CreativeTitles:      len(signals.CreativeTitles),
	}
}

// Score computes the breakdown for a parsed résumé and its signals.
func Score(parsed types.ParsedResume, signals types.Signals) types.ScoreBreakdown {
	return Compute(parsed, InputsFrom(signals))
}

// ScoreWithCritique scores like Score, counting an available critique's
// grammar issues in the readability deduction. An unavailable critique
// leaves the local result unchanged.
func ScoreWithCritique(parsed types.ParsedResume, signals types.Signals, critique types.Critique) types.ScoreBreakdown {
	in := InputsFrom(signals)
	if critique.Available {
		in.GrammarIssues += len(critique.GrammarIssues)
	}
	return Compute(parsed, in)
}

// Compute applies the scoring formula to explicit inputs. Every sub-score is
// clamped to its ceiling and Total is their sum.
func Compute(parsed types.ParsedResume, in Inputs) types.ScoreBreakdown {
	b := types.ScoreBreakdown{
		Contact:     clamp(contact(parsed), types.MaxContact),
		Skills:      clamp(skills(parsed, in), types.MaxSkills),
		Education:   clamp(education(parsed), types.MaxEducation),
		Experience:  clamp(experience(parsed), types.MaxExperience),
		Structure:   clamp(structure(in), types.MaxStructure),
		Readability: clamp(readability(in), types.MaxReadability),
	}
	b.Total = b.Sum()
	return b
}

func contact(p types.ParsedResume) int {
	points := 0
	if p.Email != "" {
		points += pointsEmail
	}
	if p.Phone.Usable() {
		points += pointsPhone
	}
	if p.LinkedIn != "" {
		points += pointsLinkedIn
	}
	return points
}

func skills(p types.ParsedResume, in Inputs) int {
	points := int(math.Round(skillsKeywordScale * float64(in.KeywordPercentage) / 100))
	if len(p.Skills) > 0 {
		points += skillsFloor + min(len(p.Skills), skillsCountBonus)
	}
	return points
}

func education(p types.ParsedResume) int {
	if len(p.Education) == 0 {
		return 0
	}
	points := pointsDegree
	for _, e := range p.Education {
		if e.Year > 0 {
			points += pointsYear
			break
		}
	}
	return points
}

func experience(p types.ParsedResume) int {
	if len(p.Experience) == 0 {
		return 0
	}
	points := pointsAnyExperience
	points += int(math.Round(math.Min(p.YearsExperience*pointsPerYear, maxYearsPoints)))
	if p.OriginalOrderChronological {
		points += pointsChronological
	}
	return points
}

// structure awards header points, then length points only when at least
// one canonical header was found.
func structure(in Inputs) int {
	headers := 0
	for _, name := range types.CanonicalSections {
		if slices.Contains(in.Sections, name) {
			headers++
		}
	}
	if headers == 0 {
		return 0
	}
	points := headers * pointsPerHeader
	if in.WordCount >= minWordsForLength && in.WordCount <= maxWordsForLength {
		points += pointsLength
	}
	return points - pointsCreativeHit*in.CreativeTitles
}

func readability(in Inputs) int {
	points := types.MaxReadability
	points -= min(grammarDeduction*in.GrammarIssues, maxGrammarDeduct)
	points -= min(in.WeakHits, maxWeakDeduct)
	points -= min(in.ReadabilityWarnings, maxWarningsDeduct)
	return points
}

func clamp(v, ceiling int) int {
	return max(0, min(v, ceiling))
}
