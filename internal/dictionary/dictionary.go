// Package dictionary holds the static keyword, skill and pattern lists used by
// the extractor and matcher. A Dictionary is immutable once loaded and safe to
// share between goroutines.
package dictionary

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/default.yaml
var defaultData []byte

// KeywordGroup is a named slice of an industry keyword list.
type KeywordGroup struct {
	Group string   `yaml:"group"`
	Terms []string `yaml:"terms"`
}

// GrammarRule is a pattern-based grammar or style check.
type GrammarRule struct {
	Pattern       string `yaml:"pattern"`
	Message       string `yaml:"message"`
	Severity      string `yaml:"severity"`
	CaseSensitive bool   `yaml:"case_sensitive"`

	re *regexp.Regexp
}

// Regexp returns the compiled rule pattern.
func (r GrammarRule) Regexp() *regexp.Regexp { return r.re }

// WeakLanguage lists hedging phrases and stronger alternatives.
type WeakLanguage struct {
	Phrases      []string            `yaml:"phrases"`
	Replacements map[string][]string `yaml:"replacements"`
}

// ReadabilityConfig holds readability thresholds.
type ReadabilityConfig struct {
	ComplexWordMinLen  int     `yaml:"complex_word_min_len"`
	MaxSentenceLength  float64 `yaml:"max_sentence_length"`
	MaxComplexRatio    float64 `yaml:"max_complex_ratio"`
	TargetWordCountMin int     `yaml:"target_word_count_min"`
	TargetWordCountMax int     `yaml:"target_word_count_max"`
}

// QuantificationCategory is a named set of numeric-evidence patterns.
type QuantificationCategory struct {
	Name     string
	Patterns []*regexp.Regexp
}

// Dictionary is the full set of static lists.
type Dictionary struct {
	Skills           []string                  `yaml:"skills"`
	Certifications   []string                  `yaml:"certifications"`
	GeneralKeywords  []string                  `yaml:"general_keywords"`
	IndustryKeywords map[string][]KeywordGroup `yaml:"industry_keywords"`
	ActionVerbs      map[string][]string       `yaml:"action_verbs"`
	QuantPatterns    yaml.Node                 `yaml:"quantification_patterns"`
	WeakLanguage     WeakLanguage              `yaml:"weak_language"`
	GrammarRules     []GrammarRule             `yaml:"grammar_rules"`
	Buzzwords        map[string][]string       `yaml:"buzzwords"`
	CreativeTitles   []string                  `yaml:"creative_titles"`
	Sections         map[string][]string       `yaml:"sections"`
	Degrees          []string                  `yaml:"degrees"`
	Institutions     []string                  `yaml:"institutions"`
	Readability      ReadabilityConfig         `yaml:"readability"`

	quantification []QuantificationCategory
	terms          map[string]*regexp.Regexp
	headers        map[string]string
}

var (
	defaultOnce sync.Once
	defaultDict *Dictionary
	defaultErr  error
)

// Default returns the embedded dictionary, parsing it on first use.
func Default() (*Dictionary, error) {
	defaultOnce.Do(func() {
		defaultDict, defaultErr = Load(defaultData)
	})
	return defaultDict, defaultErr
}

// MustDefault is Default for callers that cannot recover from a broken build.
func MustDefault() *Dictionary {
	d, err := Default()
	if err != nil {
		panic(err)
	}
	return d
}

// LoadFile reads a dictionary from a YAML file.
func LoadFile(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return nil, fmt.Errorf("failed to read dictionary file %s: %w", path, err)
	}
	return Load(data)
}

// Load parses and compiles a YAML dictionary.
func Load(data []byte) (*Dictionary, error) {
	var d Dictionary
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("failed to parse dictionary: %w", err)
	}
	if err := d.compile(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *Dictionary) compile() error {
	if d.Readability.ComplexWordMinLen == 0 {
		d.Readability.ComplexWordMinLen = 8
	}
	if d.Readability.MaxSentenceLength == 0 {
		d.Readability.MaxSentenceLength = 24
	}
	if d.Readability.MaxComplexRatio == 0 {
		d.Readability.MaxComplexRatio = 0.16
	}
	if d.Readability.TargetWordCountMin == 0 {
		d.Readability.TargetWordCountMin = 200
	}
	if d.Readability.TargetWordCountMax == 0 {
		d.Readability.TargetWordCountMax = 1200
	}

	// industry and buzzword lookups are case-insensitive
	industries := make(map[string][]KeywordGroup, len(d.IndustryKeywords))
	for name, groups := range d.IndustryKeywords {
		industries[strings.ToLower(name)] = groups
	}
	d.IndustryKeywords = industries
	buzz := make(map[string][]string, len(d.Buzzwords))
	for name, words := range d.Buzzwords {
		buzz[strings.ToLower(name)] = words
	}
	d.Buzzwords = buzz

	// quantification categories keep their declaration order
	if d.QuantPatterns.Kind == yaml.MappingNode {
		content := d.QuantPatterns.Content
		for i := 0; i+1 < len(content); i += 2 {
			var patterns []string
			if err := content[i+1].Decode(&patterns); err != nil {
				return fmt.Errorf("invalid quantification patterns for %s: %w", content[i].Value, err)
			}
			cat := QuantificationCategory{Name: content[i].Value}
			for _, p := range patterns {
				re, err := regexp.Compile("(?i)" + p)
				if err != nil {
					return fmt.Errorf("invalid quantification pattern %q: %w", p, err)
				}
				cat.Patterns = append(cat.Patterns, re)
			}
			d.quantification = append(d.quantification, cat)
		}
	}

	for i := range d.GrammarRules {
		rule := &d.GrammarRules[i]
		expr := rule.Pattern
		if !rule.CaseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return fmt.Errorf("invalid grammar pattern %q: %w", rule.Pattern, err)
		}
		rule.re = re
		if rule.Severity == "" {
			rule.Severity = "medium"
		}
		if rule.Message == "" {
			rule.Message = "Grammar issue"
		}
	}

	d.headers = make(map[string]string)
	for canonical, aliases := range d.Sections {
		d.headers[canonical] = canonical
		for _, alias := range aliases {
			d.headers[strings.ToLower(alias)] = canonical
		}
	}

	d.terms = make(map[string]*regexp.Regexp)
	lists := [][]string{d.Skills, d.Certifications, d.GeneralKeywords, d.CreativeTitles, d.Degrees, d.Institutions, d.WeakLanguage.Phrases}
	for _, groups := range d.IndustryKeywords {
		for _, g := range groups {
			lists = append(lists, g.Terms)
		}
	}
	for _, verbs := range d.ActionVerbs {
		lists = append(lists, verbs)
	}
	for _, words := range d.Buzzwords {
		lists = append(lists, words)
	}
	for _, list := range lists {
		for _, term := range list {
			key := NormalizeTerm(term)
			if _, ok := d.terms[key]; !ok {
				d.terms[key] = termRegexp(key)
			}
		}
	}
	return nil
}

// Normalize lowercases text and collapses whitespace runs to one space.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// NormalizeTerm normalizes a dictionary term the same way as text.
func NormalizeTerm(term string) string {
	return Normalize(term)
}

func termRegexp(term string) *regexp.Regexp {
	return regexp.MustCompile(`(?:^|\W)` + regexp.QuoteMeta(term) + `(?:\W|$)`)
}

func (d *Dictionary) termPattern(term string) *regexp.Regexp {
	key := NormalizeTerm(term)
	if re, ok := d.terms[key]; ok {
		return re
	}
	return termRegexp(key)
}

// Contains reports whether term occurs in normalized text with non-word
// characters (or the text edges) on both sides.
func (d *Dictionary) Contains(normText, term string) bool {
	if normText == "" || strings.TrimSpace(term) == "" {
		return false
	}
	return d.termPattern(term).MatchString(normText)
}

// FindAll returns the byte offsets of every occurrence of term in normalized text.
func (d *Dictionary) FindAll(normText, term string) []int {
	key := NormalizeTerm(term)
	if normText == "" || key == "" {
		return nil
	}
	var offsets []int
	for _, loc := range d.termPattern(key).FindAllStringIndex(normText, -1) {
		offsets = append(offsets, loc[0]+strings.Index(normText[loc[0]:loc[1]], key))
	}
	return offsets
}

// IndustryTerms flattens an industry's keyword groups in declaration order.
// Unknown industries yield nil.
func (d *Dictionary) IndustryTerms(industry string) []string {
	var terms []string
	for _, g := range d.IndustryKeywords[strings.ToLower(strings.TrimSpace(industry))] {
		terms = append(terms, g.Terms...)
	}
	return terms
}

// IndustryBuzzwords returns the buzzword list for an industry.
func (d *Dictionary) IndustryBuzzwords(industry string) []string {
	return d.Buzzwords[strings.ToLower(strings.TrimSpace(industry))]
}

// Industries returns the known industry names.
func (d *Dictionary) Industries() []string {
	names := make([]string, 0, len(d.IndustryKeywords))
	for name := range d.IndustryKeywords {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Quantification returns the compiled quantification categories in declaration order.
func (d *Dictionary) Quantification() []QuantificationCategory {
	return d.quantification
}

// SectionFor maps a header line to its canonical section name, or "".
func (d *Dictionary) SectionFor(line string) string {
	key := strings.Trim(Normalize(line), " :#*-_=|")
	if key == "" || len(key) > 40 {
		return ""
	}
	return d.headers[key]
}
