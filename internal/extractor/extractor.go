// Package extractor turns raw résumé text into a structured record.
//
// Extraction is total: a field that cannot be recognized is left empty and no
// error is ever returned, so a partial résumé still flows into scoring.
package extractor

import (
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"

	"atsengine/internal/dictionary"
	"atsengine/internal/types"

	"github.com/nyaruka/phonenumbers"
)

var (
	emailRe    = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRe    = regexp.MustCompile(`(?:\+\d{1,3}[\s.-]?)?(?:\(\d{1,4}\)[\s.-]?)?\d{2,4}(?:[\s.-]?\d{2,4}){1,3}`)
	linkedInRe = regexp.MustCompile(`(?i)(?:https?://)?(?:[a-z]{2,3}\.)?linkedin\.com/in/([A-Za-z0-9_-]+)`)
	gitHubRe   = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?github\.com/([A-Za-z0-9-]+)`)
	yearRe     = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	yearSpanRe = regexp.MustCompile(`^(?:19|20)\d{2}\s*[-/.–]\s*(?:19|20)\d{2}$`)

	streetRe = regexp.MustCompile(`(?i)\b\d{1,6}\s+(?:[A-Za-z0-9.'-]+\s+){1,5}(?:street|st|avenue|ave|road|rd|boulevard|blvd|lane|ln|drive|dr|court|ct|way|place|pl|terrace|parkway|pkwy)\b`)
	cityRe   = regexp.MustCompile(`\b[A-Z][A-Za-z .'-]+,\s*[A-Z]{2}\s+\d{5}(?:-\d{4})?\b`)
)

// Option configures an Extractor.
type Option func(*Extractor)

// WithClock sets the source of "today" used to close open-ended periods.
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		if now != nil {
			e.now = now
		}
	}
}

// WithDefaultRegion sets the region used to parse phone numbers without a country code.
func WithDefaultRegion(region string) Option {
	return func(e *Extractor) {
		if region != "" {
			e.region = strings.ToUpper(region)
		}
	}
}

// Extractor parses résumé text using a static dictionary.
type Extractor struct {
	dict   *dictionary.Dictionary
	now    func() time.Time
	region string
}

// New creates an extractor over dict.
func New(dict *dictionary.Dictionary, opts ...Option) *Extractor {
	e := &Extractor{
		dict:   dict,
		now:    time.Now,
		region: "US",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// section is a run of lines under one recognized header.
type section struct {
	name  string
	lines []string
}

// document is the per-call view of the text shared by the field parsers.
type document struct {
	lines    []string
	norm     string
	sections []section
	now      time.Time
}

func (d *document) section(name string) ([]string, bool) {
	var lines []string
	found := false
	for _, s := range d.sections {
		if s.name == name {
			found = true
			lines = append(lines, s.lines...)
		}
	}
	return lines, found
}

// linesOutside returns every body line that is not under one of the named sections.
func (d *document) linesOutside(names ...string) []string {
	var lines []string
	for _, s := range d.sections {
		if s.name != "" && slices.Contains(names, s.name) {
			continue
		}
		lines = append(lines, s.lines...)
	}
	return lines
}

// today truncates the clock to a UTC day so repeated calls on one day
// produce identical open-ended periods.
func today(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

func (e *Extractor) split(text string) *document {
	doc := &document{
		norm: dictionary.Normalize(text),
		now:  today(e.now()),
	}
	current := section{}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(strings.TrimRight(raw, "\r"))
		if line == "" {
			continue
		}
		doc.lines = append(doc.lines, line)
		if name := e.dict.SectionFor(line); name != "" {
			doc.sections = append(doc.sections, current)
			current = section{name: name}
			continue
		}
		current.lines = append(current.lines, line)
	}
	doc.sections = append(doc.sections, current)
	return doc
}

// Extract parses text into a ParsedResume. It never fails.
func (e *Extractor) Extract(text string) types.ParsedResume {
	doc := e.split(text)

	parsed := types.ParsedResume{
		Email:          emailRe.FindString(text),
		Phone:          e.extractPhone(text),
		Address:        extractAddress(doc.lines),
		Skills:         e.extractSkills(doc.norm),
		Certifications: e.extractCertifications(doc),
		LinkedIn:       extractProfile(linkedInRe, text, "https://www.linkedin.com/in/"),
		GitHub:         extractProfile(gitHubRe, text, "https://github.com/"),
		Summary:        extractSummary(doc),
		Sections:       sectionNames(doc),
	}

	parsed.Experience, parsed.OriginalOrderChronological = e.extractExperience(doc)
	parsed.YearsExperience = totalYears(parsed.Experience)
	parsed.Education = e.extractEducation(doc)

	if parsed.Skills == nil {
		parsed.Skills = []string{}
	}
	if parsed.Certifications == nil {
		parsed.Certifications = []string{}
	}
	if parsed.Experience == nil {
		parsed.Experience = []types.Experience{}
	}
	if parsed.Education == nil {
		parsed.Education = []types.Education{}
	}
	return parsed
}

// extractPhone returns the first candidate the phone library accepts as a
// valid number for the region. Failing that it keeps the first plausible
// digit run as raw text. Runs inside a date range are never phones.
func (e *Extractor) extractPhone(text string) *types.Phone {
	dates := dateRangeRe.FindAllStringIndex(text, -1)
	var fallback *types.Phone
	for _, loc := range phoneRe.FindAllStringIndex(text, -1) {
		raw := strings.TrimSpace(text[loc[0]:loc[1]])
		if n := countDigits(raw); n < 7 || n > 15 {
			continue
		}
		if overlapsAny(loc, dates) || yearSpanRe.MatchString(raw) {
			continue
		}
		if num, err := phonenumbers.Parse(raw, e.region); err == nil && phonenumbers.IsValidNumber(num) {
			return &types.Phone{
				Raw:            raw,
				CountryCode:    int(num.GetCountryCode()),
				NationalNumber: strconv.FormatUint(num.GetNationalNumber(), 10),
			}
		}
		if fallback == nil {
			fallback = &types.Phone{Raw: raw}
		}
	}
	return fallback
}

func overlapsAny(loc []int, spans [][]int) bool {
	for _, s := range spans {
		if loc[0] < s[1] && s[0] < loc[1] {
			return true
		}
	}
	return false
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func extractProfile(re *regexp.Regexp, text, prefix string) string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return prefix + m[1]
}

func extractAddress(lines []string) string {
	for _, line := range lines {
		for _, part := range splitAny(line, "|", "•", "·") {
			part = strings.TrimSpace(part)
			if emailRe.MatchString(part) {
				continue
			}
			if streetRe.MatchString(part) || cityRe.MatchString(part) {
				return part
			}
		}
	}
	return ""
}

func (e *Extractor) extractSkills(norm string) []string {
	type hit struct {
		skill  string
		offset int
	}
	var hits []hit
	for _, skill := range e.dict.Skills {
		if offsets := e.dict.FindAll(norm, skill); len(offsets) > 0 {
			hits = append(hits, hit{skill: skill, offset: offsets[0]})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].offset < hits[j].offset })

	skills := make([]string, 0, len(hits))
	seen := make(map[string]bool, len(hits))
	for _, h := range hits {
		key := strings.ToLower(h.skill)
		if seen[key] {
			continue
		}
		seen[key] = true
		skills = append(skills, h.skill)
	}
	return skills
}

func (e *Extractor) extractCertifications(doc *document) []string {
	var certs []string
	seen := make(map[string]bool)
	add := func(c string) {
		c = strings.TrimSpace(c)
		key := strings.ToLower(c)
		if c == "" || seen[key] {
			return
		}
		seen[key] = true
		certs = append(certs, c)
	}

	if lines, ok := doc.section(types.SectionCertifications); ok {
		for _, line := range lines {
			add(stripBullet(line))
		}
	}
	for _, line := range doc.lines {
		norm := dictionary.Normalize(line)
		for _, cert := range e.dict.Certifications {
			if !e.dict.Contains(norm, cert) {
				continue
			}
			if clean := stripBullet(line); len(clean) <= 80 && e.dict.SectionFor(clean) == "" {
				add(clean)
			} else {
				add(strings.ToUpper(cert))
			}
			break
		}
	}
	return certs
}

func extractSummary(doc *document) string {
	lines, ok := doc.section(types.SectionSummary)
	if !ok {
		return ""
	}
	return strings.Join(lines, " ")
}

func sectionNames(doc *document) []string {
	names := []string{}
	for _, s := range doc.sections {
		if s.name != "" && !slices.Contains(names, s.name) {
			names = append(names, s.name)
		}
	}
	return names
}

func stripBullet(line string) string {
	return strings.TrimSpace(strings.TrimLeft(line, "-•*·▪◦>– \t"))
}

func splitAny(s string, seps ...string) []string {
	parts := []string{s}
	for _, sep := range seps {
		var next []string
		for _, p := range parts {
			next = append(next, strings.Split(p, sep)...)
		}
		parts = next
	}
	return parts
}
