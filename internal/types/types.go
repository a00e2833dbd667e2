package types

import "time"

// Score ceilings for the basic breakdown.
const (
	MaxContact     = 15
	MaxSkills      = 25
	MaxEducation   = 10
	MaxExperience  = 20
	MaxStructure   = 15
	MaxReadability = 15
)

// Canonical section names.
const (
	SectionSummary        = "summary"
	SectionExperience     = "experience"
	SectionEducation      = "education"
	SectionSkills         = "skills"
	SectionCertifications = "certifications"
	SectionProjects       = "projects"
)

// CanonicalSections are the headers the structure score looks for.
var CanonicalSections = []string{SectionSummary, SectionExperience, SectionEducation, SectionSkills}

// RawDocument is what the extraction adapter produces from an upload.
type RawDocument struct {
	Filename  string   `json:"filename"`
	MediaType string   `json:"mediaType"`
	Content   []byte   `json:"-"`
	Text      string   `json:"text"`
	Lines     []string `json:"lines,omitempty"`
}

// Phone holds a matched phone number; CountryCode and NationalNumber are
// only set when the raw match parses as a real number.
type Phone struct {
	Raw            string `json:"raw"`
	CountryCode    int    `json:"countryCode,omitempty"`
	NationalNumber string `json:"nationalNumber,omitempty"`
}

// Parsed reports whether the number was decomposed.
func (p *Phone) Parsed() bool {
	return p != nil && p.CountryCode != 0 && p.NationalNumber != ""
}

// MinRawPhoneDigits is how many digits an unparsed number needs to count.
const MinRawPhoneDigits = 10

// Usable reports whether the phone earns contact points: either parsed, or
// a raw string with at least MinRawPhoneDigits digits.
func (p *Phone) Usable() bool {
	if p == nil {
		return false
	}
	if p.Parsed() {
		return true
	}
	n := 0
	for _, r := range p.Raw {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n >= MinRawPhoneDigits
}

// Experience is one employment block.
type Experience struct {
	Title        string    `json:"title"`
	Organization string    `json:"organization,omitempty"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Current      bool      `json:"current"`
	Description  string    `json:"description,omitempty"`
}

// Education is one degree entry. Year is zero when no plausible year was found.
type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution,omitempty"`
	Year        int    `json:"year,omitempty"`
}

// ParsedResume is the structured record recovered from raw text
type ParsedResume struct {
	Email           string       `json:"email,omitempty"`
	Phone           *Phone       `json:"phone,omitempty"`
	Address         string       `json:"address,omitempty"`
	Skills          []string     `json:"skills"`
	Experience      []Experience `json:"experience"`
	Education       []Education  `json:"education"`
	Certifications  []string     `json:"certifications"`
	LinkedIn        string       `json:"linkedin,omitempty"`
	GitHub          string       `json:"github,omitempty"`
	Summary         string       `json:"summary,omitempty"`
	YearsExperience float64      `json:"yearsExperience"`
	Sections        []string     `json:"sections"`

	// OriginalOrderChronological is false when the document listed an
	// older role above a newer one.
	OriginalOrderChronological bool `json:"originalOrderChronological"`
}

// ScoreBreakdown is the basic 100-point score
type ScoreBreakdown struct {
	Contact     int `json:"contact"`
	Skills      int `json:"skills"`
	Education   int `json:"education"`
	Experience  int `json:"experience"`
	Structure   int `json:"structure"`
	Readability int `json:"readability"`
	Total       int `json:"total"`
}

// Sum returns the sum of the six sub-scores.
func (b ScoreBreakdown) Sum() int {
	return b.Contact + b.Skills + b.Education + b.Experience + b.Structure + b.Readability
}

// Priority of an issue
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank orders priorities high first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Issue categories match the scoring dimensions.
const (
	CategoryContact     = "contact"
	CategorySkills      = "skills"
	CategoryEducation   = "education"
	CategoryExperience  = "experience"
	CategoryStructure   = "structure"
	CategoryReadability = "readability"
)

// Issue is a user-facing finding. Snippet and Suggestion are only set on
// issues derived from grammar, spelling or weak-language signals.
type Issue struct {
	Priority   Priority `json:"priority"`
	Category   string   `json:"category"`
	Message    string   `json:"message"`
	Snippet    string   `json:"snippet,omitempty"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// KeywordMatch is the result of matching one keyword list
type KeywordMatch struct {
	Matched    []string `json:"matched"`
	Missing    []string `json:"missing"`
	Percentage int      `json:"percentage"`
}

// GrammarIssue is a grammar or style finding, from dictionary rules or the model
type GrammarIssue struct {
	Snippet    string   `json:"snippet,omitempty"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
	Severity   string   `json:"severity"`
	Count      int      `json:"count"`
	Examples   []string `json:"examples,omitempty"`
}

// SpellingSuggestion is a possible misspelling reported by the model
type SpellingSuggestion struct {
	Word        string   `json:"word"`
	Suggestions []string `json:"suggestions"`
}

// WeakPhrase is one weak-language hit in the normalized text
type WeakPhrase struct {
	Phrase      string   `json:"phrase"`
	Suggestions []string `json:"suggestions"`
	Offset      int      `json:"offset"`
}

// ReadabilityReport holds sentence-level text metrics
type ReadabilityReport struct {
	AvgSentenceLength float64  `json:"avgSentenceLength"`
	ComplexWordRatio  float64  `json:"complexWordRatio"`
	TotalWords        int      `json:"totalWords"`
	Warnings          []string `json:"warnings"`
}

// Signals is everything the matcher detects in one text
type Signals struct {
	KeywordMatches         KeywordMatch        `json:"keywordMatches"`
	IndustryKeywordMatches KeywordMatch        `json:"industryKeywordMatches"`
	ActionVerbsFound       map[string][]string `json:"actionVerbsFound"`
	QuantificationFound    map[string][]string `json:"quantificationFound"`
	WeakLanguageFound      []WeakPhrase        `json:"weakLanguageFound"`
	GrammarRuleHits        []GrammarIssue      `json:"grammarRuleHits"`
	BuzzwordsFound         []string            `json:"buzzwordsFound"`
	CreativeTitles         []string            `json:"creativeTitles"`
	Sections               []string            `json:"sections"`
	Readability            ReadabilityReport   `json:"readability"`
	WordCount              int                 `json:"wordCount"`
}

// HasSection reports whether the canonical header name was found.
func (s Signals) HasSection(name string) bool {
	for _, sec := range s.Sections {
		if sec == name {
			return true
		}
	}
	return false
}

// Critique is the model's grammar and spelling review of a text.
// Available is false when the review could not be obtained.
type Critique struct {
	GrammarIssues  []GrammarIssue       `json:"grammarIssues"`
	SpellingErrors []SpellingSuggestion `json:"spellingErrors"`
	Available      bool                 `json:"available"`
}

// AdvancedReport is the keyword and linguistic report. ATSScore is computed
// with its own weighting and is not expected to equal ScoreBreakdown.Total.
type AdvancedReport struct {
	ATSScore               int                  `json:"atsScore"`
	Breakdown              map[string]int       `json:"breakdown"`
	KeywordMatches         KeywordMatch         `json:"keywordMatches"`
	IndustryKeywordMatches KeywordMatch         `json:"industryKeywordMatches"`
	ActionVerbsFound       map[string][]string  `json:"actionVerbsFound"`
	QuantificationFound    map[string][]string  `json:"quantificationFound"`
	GrammarIssues          []GrammarIssue       `json:"grammarIssues"`
	SpellingSuggestions    []SpellingSuggestion `json:"spellingSuggestions"`
	WeakLanguageFound      []WeakPhrase         `json:"weakLanguageFound"`
	IndustryBuzzwordsFound []string             `json:"industryBuzzwordsFound"`
	Readability            ReadabilityReport    `json:"readability"`
	Issues                 []Issue              `json:"issues"`
	CritiqueAvailable      bool                 `json:"critiqueAvailable"`
}

// MissingKeywordCount counts general and industry keywords not found.
func (r *AdvancedReport) MissingKeywordCount() int {
	if r == nil {
		return 0
	}
	return len(r.KeywordMatches.Missing) + len(r.IndustryKeywordMatches.Missing)
}

// Analysis is the result of the analyze operation
type Analysis struct {
	ID              string          `json:"id"`
	Industry        string          `json:"industry"`
	Parsed          ParsedResume    `json:"parsed"`
	Score           ScoreBreakdown  `json:"score"`
	Issues          []Issue         `json:"issues"`
	Recommendations []string        `json:"recommendations"`
	Report          *AdvancedReport `json:"report"`
	AnalyzedAt      time.Time       `json:"analyzedAt"`
}

// Strategy is the rewrite approach chosen for an improvement
type Strategy string

const (
	StrategyMinorFix      Strategy = "minor_fix"
	StrategyMajorOverhaul Strategy = "major_overhaul"
	StrategyHybrid        Strategy = "hybrid"
)

func (s Strategy) String() string { return string(s) }

// Valid reports whether s is one of the known strategies.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyMinorFix, StrategyMajorOverhaul, StrategyHybrid:
		return true
	}
	return false
}

// Template identifiers accepted by the renderer.
const (
	TemplateModernProfessional   = "modern_professional"
	TemplateCreativeProfessional = "creative_professional"
	TemplateAcademicResearch     = "academic_research"
	TemplateExecutiveLeadership  = "executive_leadership"
)

// TemplateIDs lists the built-in templates in display order.
var TemplateIDs = []string{
	TemplateModernProfessional,
	TemplateCreativeProfessional,
	TemplateAcademicResearch,
	TemplateExecutiveLeadership,
}

// ImprovementRequest asks the orchestrator to rewrite a résumé
type ImprovementRequest struct {
	OriginalText  string          `json:"originalText"`
	Report        *AdvancedReport `json:"report"`
	Industry      string          `json:"industry"`
	OriginalScore int             `json:"originalScore"`
	TemplateID    string          `json:"templateId"`

	// YearsExperience is optional and only influences template selection.
	YearsExperience float64 `json:"yearsExperience,omitempty"`
	// IssueCount overrides len(Report.Issues) when the caller tracks basic issues separately.
	IssueCount int `json:"issueCount,omitempty"`
}

// RewriteRequest is what the language model receives for a rewrite
type RewriteRequest struct {
	Text       string   `json:"text"`
	Feedback   []string `json:"feedback"`
	Industry   string   `json:"industry"`
	Strategy   Strategy `json:"strategy"`
	TemplateID string   `json:"templateId"`
}

// RenderedDocument references a rendered résumé. Either URL is set (stored
// document) or Content carries the payload inline.
type RenderedDocument struct {
	URL        string `json:"url,omitempty"`
	StorageKey string `json:"storageKey,omitempty"`
	Content    []byte `json:"content,omitempty"`
	MediaType  string `json:"mediaType"`
	TemplateID string `json:"templateId"`
	Inline     bool   `json:"inline"`
	Warning    string `json:"warning,omitempty"`
}

// ImprovementSummary carries counts from the report the improvement started from
type ImprovementSummary struct {
	IssueCount          int `json:"issueCount"`
	GrammarIssueCount   int `json:"grammarIssueCount"`
	SpellingIssueCount  int `json:"spellingIssueCount"`
	MissingKeywordCount int `json:"missingKeywordCount"`
	WeakLanguageCount   int `json:"weakLanguageCount"`
}

// ImprovementResult is the outcome of a successful improvement
type ImprovementResult struct {
	OriginalScore int                `json:"originalScore"`
	NewScore      int                `json:"newScore"`
	Strategy      Strategy           `json:"improvementStrategy"`
	ChangesMade   []string           `json:"changesMade"`
	ImprovedText  string             `json:"improvedCvText"`
	Document      RenderedDocument   `json:"document"`
	Summary       ImprovementSummary `json:"summary"`
	Timestamp     time.Time          `json:"timestamp"`
}

// PersistedRecord is the flattened projection written to durable storage
type PersistedRecord struct {
	ID              string         `json:"id"`
	Email           string         `json:"email"`
	Mobile          string         `json:"mobile"`
	Address         string         `json:"address"`
	Skills          []string       `json:"skills"`
	Experience      []Experience   `json:"experience"`
	Education       []Education    `json:"education"`
	YearsExperience float64        `json:"noOfYearsExperience"`
	LinkedIn        string         `json:"linkedin"`
	GitHub          string         `json:"github"`
	Summary         string         `json:"summary"`
	Certifications  []string       `json:"certifications"`
	ATSScore        int            `json:"atsScore"`
	ScoreBreakdown  ScoreBreakdown `json:"scoreBreakdown"`
	Issues          []Issue        `json:"issues"`
	Recommendations []string       `json:"recommendations"`
	Industry        string         `json:"industry"`
	UploadedAt      time.Time      `json:"uploadedAt"`
}

// NewPersistedRecord flattens an analysis for storage.
func NewPersistedRecord(a *Analysis) PersistedRecord {
	rec := PersistedRecord{
		ID:              a.ID,
		Email:           a.Parsed.Email,
		Address:         a.Parsed.Address,
		Skills:          a.Parsed.Skills,
		Experience:      a.Parsed.Experience,
		Education:       a.Parsed.Education,
		YearsExperience: a.Parsed.YearsExperience,
		LinkedIn:        a.Parsed.LinkedIn,
		GitHub:          a.Parsed.GitHub,
		Summary:         a.Parsed.Summary,
		Certifications:  a.Parsed.Certifications,
		ATSScore:        a.Score.Total,
		ScoreBreakdown:  a.Score,
		Issues:          a.Issues,
		Recommendations: a.Recommendations,
		Industry:        a.Industry,
		UploadedAt:      a.AnalyzedAt,
	}
	if a.Parsed.Phone != nil {
		rec.Mobile = a.Parsed.Phone.Raw
	}
	return rec
}
