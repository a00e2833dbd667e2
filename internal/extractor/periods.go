package extractor

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"atsengine/internal/dictionary"
	"atsengine/internal/types"
)

const monthExpr = `(jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?`

var (
	// groups: 1 start month, 2 start year, 3 end month, 4 end year, 5 open end
	dateRangeRe = regexp.MustCompile(`(?i)(?:\b` + monthExpr + `\s+)?\b((?:19|20)\d{2})\s*(?:-|–|—|\bto\b|\buntil\b)\s*(?:(?:\b` + monthExpr + `\s+)?((?:19|20)\d{2})\b|\b(present|current|now|today)\b)`)

	titleSeparators = []string{" at ", " @ ", " | ", ", ", " - ", " – ", " — "}
	fieldSeparators = []string{",", "|", " - ", " – ", " — "}
)

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

type period struct {
	start, end time.Time
	current    bool
}

// parseRange interprets a dateRangeRe submatch. Year-only bounds start on
// January 1st; a month-qualified end bound covers the whole month.
func parseRange(m []string, now time.Time) (period, bool) {
	startYear, _ := strconv.Atoi(m[2])
	startMonth := time.January
	if m[1] != "" {
		startMonth = months[strings.ToLower(m[1])]
	}
	p := period{start: time.Date(startYear, startMonth, 1, 0, 0, 0, 0, time.UTC)}

	switch {
	case m[5] != "":
		p.end = now
		p.current = true
	default:
		endYear, _ := strconv.Atoi(m[4])
		if m[3] != "" {
			p.end = time.Date(endYear, months[strings.ToLower(m[3])], 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
		} else {
			p.end = time.Date(endYear, time.January, 1, 0, 0, 0, 0, time.UTC)
		}
	}

	if p.end.After(now) {
		p.end = now
	}
	if p.start.After(now) || p.end.Before(p.start) {
		return period{}, false
	}
	return p, true
}

// extractExperience finds dated blocks under experience headers, or in the
// whole body outside education when there is no such header. It returns the
// entries most-recent-first and whether the document already listed them so.
func (e *Extractor) extractExperience(doc *document) ([]types.Experience, bool) {
	lines, ok := doc.section(types.SectionExperience)
	if !ok {
		lines = doc.linesOutside(types.SectionEducation)
	}

	var entries []types.Experience
	var prev string
	for _, line := range lines {
		m := dateRangeRe.FindStringSubmatchIndex(line)
		if m == nil {
			if n := len(entries); n > 0 {
				entries[n-1].Description = joinLine(entries[n-1].Description, stripBullet(line))
			}
			prev = line
			continue
		}

		sub := submatches(line, m)
		p, valid := parseRange(sub, doc.now)
		if !valid {
			prev = line
			continue
		}

		header := strings.Trim(line[:m[0]]+" "+line[m[1]:], " \t|,-–—()[]:")
		if header == "" && prev != "" {
			header = prev
			// the preceding line was a title, not part of the previous block
			if n := len(entries); n > 0 {
				entries[n-1].Description = dropLastLine(entries[n-1].Description, stripBullet(prev))
			}
		}
		title, org := splitTitle(stripBullet(header))
		entries = append(entries, types.Experience{
			Title:        title,
			Organization: org,
			Start:        p.start,
			End:          p.end,
			Current:      p.current,
		})
		prev = line
	}

	chronological := sort.SliceIsSorted(entries, func(i, j int) bool { return newer(entries[i], entries[j]) })
	sort.SliceStable(entries, func(i, j int) bool { return newer(entries[i], entries[j]) })
	return entries, chronological
}

func newer(a, b types.Experience) bool {
	if !a.End.Equal(b.End) {
		return a.End.After(b.End)
	}
	return a.Start.After(b.Start)
}

func submatches(s string, loc []int) []string {
	out := make([]string, len(loc)/2)
	for i := range out {
		if loc[2*i] >= 0 {
			out[i] = s[loc[2*i]:loc[2*i+1]]
		}
	}
	return out
}

func splitTitle(header string) (string, string) {
	lower := strings.ToLower(header)
	for _, sep := range titleSeparators {
		if i := strings.Index(lower, sep); i > 0 {
			return strings.TrimSpace(header[:i]), strings.TrimSpace(header[i+len(sep):])
		}
	}
	return header, ""
}

func joinLine(desc, line string) string {
	if desc == "" {
		return line
	}
	return desc + "\n" + line
}

func dropLastLine(desc, line string) string {
	if desc == line {
		return ""
	}
	return strings.TrimSuffix(desc, "\n"+line)
}

// totalYears sums the merged, non-overlapping experience periods.
func totalYears(entries []types.Experience) float64 {
	if len(entries) == 0 {
		return 0
	}
	periods := make([]period, 0, len(entries))
	for _, e := range entries {
		periods = append(periods, period{start: e.Start, end: e.End})
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].start.Before(periods[j].start) })

	var total time.Duration
	cur := periods[0]
	for _, p := range periods[1:] {
		if !p.start.After(cur.end) {
			if p.end.After(cur.end) {
				cur.end = p.end
			}
			continue
		}
		total += cur.end.Sub(cur.start)
		cur = p
	}
	total += cur.end.Sub(cur.start)

	years := total.Hours() / 24 / 365.25
	return math.Round(years*10) / 10
}

// extractEducation recognizes degree lines under education headers, or
// anywhere when the document has none.
func (e *Extractor) extractEducation(doc *document) []types.Education {
	lines, ok := doc.section(types.SectionEducation)
	if !ok {
		lines = doc.lines
	}
	maxYear := doc.now.Year() + 6

	var entries []types.Education
	seen := make(map[string]bool)
	for i, line := range lines {
		if !e.containsAny(line, e.dict.Degrees) {
			continue
		}
		if !ok && (dateRangeRe.MatchString(line) || e.containsAny(line, e.dict.Certifications)) {
			// dated role lines and certifications ("Scrum Master") are not degrees
			continue
		}

		entry := types.Education{}
		for _, part := range splitAny(stripBullet(line), fieldSeparators...) {
			part = strings.TrimSpace(part)
			switch {
			case entry.Degree == "" && e.containsAny(part, e.dict.Degrees):
				entry.Degree = strings.TrimSpace(yearRe.ReplaceAllString(part, ""))
				entry.Degree = strings.Trim(entry.Degree, " ()")
			case entry.Institution == "" && e.containsAny(part, e.dict.Institutions):
				entry.Institution = strings.Trim(yearRe.ReplaceAllString(part, ""), " ()")
			}
		}
		if entry.Institution == "" {
			for _, j := range []int{i + 1, i - 1} {
				if j >= 0 && j < len(lines) && e.containsAny(lines[j], e.dict.Institutions) && !e.containsAny(lines[j], e.dict.Degrees) {
					entry.Institution = strings.Trim(yearRe.ReplaceAllString(stripBullet(lines[j]), ""), " ,|()")
					break
				}
			}
		}
		entry.Year = lastYear(line, maxYear)
		if entry.Year == 0 && i+1 < len(lines) && !e.containsAny(lines[i+1], e.dict.Degrees) {
			entry.Year = lastYear(lines[i+1], maxYear)
		}

		key := strings.ToLower(entry.Degree + "|" + entry.Institution)
		if seen[key] {
			continue
		}
		seen[key] = true
		entries = append(entries, entry)
	}
	return entries
}

func (e *Extractor) containsAny(line string, terms []string) bool {
	norm := dictionary.Normalize(line)
	for _, t := range terms {
		if e.dict.Contains(norm, t) {
			return true
		}
	}
	return false
}

func lastYear(line string, maxYear int) int {
	years := yearRe.FindAllString(line, -1)
	for i := len(years) - 1; i >= 0; i-- {
		y, _ := strconv.Atoi(years[i])
		if y >= 1950 && y <= maxYear {
			return y
		}
	}
	return 0
}
