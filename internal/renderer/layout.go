package renderer

import (
	"sort"
	"strings"

	"atsengine/internal/dictionary"
	"atsengine/internal/types"
)

// Layout is the template data derived from plain résumé text.
type Layout struct {
	TemplateID string
	Name       string
	Contact    []string
	Intro      []string
	Sections   []Section
}

// Section is one headed block.
type Section struct {
	Title string
	Kind  string
	Items []Item
}

// Item is a line in a section.
type Item struct {
	Text   string
	Bullet bool
}

var sectionOrder = map[string]int{
	types.SectionSummary:        0,
	types.SectionExperience:     1,
	types.SectionEducation:      2,
	types.SectionSkills:         3,
	types.SectionCertifications: 4,
	types.SectionProjects:       5,
}

// ParseLayout splits text into a name, a contact block and headed sections.
// Sections are emitted in ATS order. Lines under an unrecognized header stay
// with the preceding section.
func ParseLayout(text string, dict *dictionary.Dictionary) Layout {
	var (
		layout   Layout
		current  *Section
		sections []Section
	)
	flush := func() {
		if current != nil {
			sections = append(sections, *current)
			current = nil
		}
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if layout.Name == "" {
			layout.Name = strings.TrimLeft(line, "# ")
			continue
		}
		if kind := dict.SectionFor(line); kind != "" {
			flush()
			current = &Section{Title: headerTitle(line), Kind: kind}
			continue
		}
		if current == nil {
			if isContactLine(line) {
				layout.Contact = append(layout.Contact, splitContact(line)...)
			} else {
				layout.Intro = append(layout.Intro, line)
			}
			continue
		}
		current.Items = append(current.Items, item(line))
	}
	flush()

	sort.SliceStable(sections, func(i, j int) bool {
		return sectionOrder[sections[i].Kind] < sectionOrder[sections[j].Kind]
	})
	layout.Sections = sections
	return layout
}

func headerTitle(line string) string {
	t := strings.Trim(line, " :#*-_=|")
	if strings.ToUpper(t) == t {
		t = strings.ToUpper(t[:1]) + strings.ToLower(t[1:])
	}
	return t
}

func item(line string) Item {
	for _, prefix := range []string{"- ", "* ", "• ", "– "} {
		if strings.HasPrefix(line, prefix) {
			return Item{Text: strings.TrimSpace(strings.TrimPrefix(line, prefix)), Bullet: true}
		}
	}
	return Item{Text: line}
}

func isContactLine(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "@") ||
		strings.Contains(lower, "linkedin.com") ||
		strings.Contains(lower, "github.com") ||
		digitCount(line) >= 7
}

func splitContact(line string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(line, func(r rune) bool { return r == '|' || r == '·' || r == '•' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}
