package formatters

import (
	"fmt"
	"strings"

	"atsengine/internal/types"
)

// ParsedTextFormatter handles text formatting for extracted fields
type ParsedTextFormatter struct{}

func (f *ParsedTextFormatter) Format(data any) (string, error) {
	p, err := deref[types.ParsedResume](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	output.WriteString("=== CONTACT ===\n")
	for _, field := range contactFields(p) {
		fmt.Fprintf(&output, "%-9s %s\n", field[0]+":", field[1])
	}
	output.WriteString("\n")

	if p.Summary != "" {
		output.WriteString("=== SUMMARY ===\n")
		output.WriteString(p.Summary)
		output.WriteString("\n\n")
	}

	fmt.Fprintf(&output, "=== EXPERIENCE (%.1f years) ===\n", p.YearsExperience)
	for _, e := range p.Experience {
		fmt.Fprintf(&output, "- %s\n", experienceLine(e))
	}
	output.WriteString("\n")

	output.WriteString("=== EDUCATION ===\n")
	for _, e := range p.Education {
		fmt.Fprintf(&output, "- %s\n", educationLine(e))
	}
	output.WriteString("\n")

	if len(p.Skills) > 0 {
		fmt.Fprintf(&output, "Skills: %s\n", strings.Join(p.Skills, ", "))
	}
	if len(p.Certifications) > 0 {
		fmt.Fprintf(&output, "Certifications: %s\n", strings.Join(p.Certifications, ", "))
	}
	if len(p.Sections) > 0 {
		fmt.Fprintf(&output, "Sections: %s\n", strings.Join(p.Sections, ", "))
	}

	return output.String(), nil
}

func (f *ParsedTextFormatter) SupportedType() string {
	return TypeParsedResume
}

// ParsedMarkdownFormatter handles markdown formatting for extracted fields
type ParsedMarkdownFormatter struct{}

func (f *ParsedMarkdownFormatter) Format(data any) (string, error) {
	p, err := deref[types.ParsedResume](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	output.WriteString("# Extracted Resume Fields\n\n")
	output.WriteString("## Contact\n\n")
	for _, field := range contactFields(p) {
		fmt.Fprintf(&output, "- **%s:** %s\n", field[0], field[1])
	}
	output.WriteString("\n")

	if p.Summary != "" {
		output.WriteString("## Summary\n\n")
		output.WriteString(p.Summary)
		output.WriteString("\n\n")
	}

	fmt.Fprintf(&output, "## Experience\n\n_%.1f years in total_\n\n", p.YearsExperience)
	for _, e := range p.Experience {
		fmt.Fprintf(&output, "- %s\n", experienceLine(e))
	}
	output.WriteString("\n")

	output.WriteString("## Education\n\n")
	for _, e := range p.Education {
		fmt.Fprintf(&output, "- %s\n", educationLine(e))
	}
	output.WriteString("\n")

	if len(p.Skills) > 0 {
		output.WriteString("## Skills\n\n")
		output.WriteString(strings.Join(p.Skills, ", "))
		output.WriteString("\n\n")
	}
	if len(p.Certifications) > 0 {
		output.WriteString("## Certifications\n\n")
		for _, c := range p.Certifications {
			fmt.Fprintf(&output, "- %s\n", c)
		}
	}

	return output.String(), nil
}

func (f *ParsedMarkdownFormatter) SupportedType() string {
	return TypeParsedResume
}

func contactFields(p *types.ParsedResume) [][2]string {
	var fields [][2]string
	add := func(label, value string) {
		if value != "" {
			fields = append(fields, [2]string{label, value})
		}
	}
	add("Email", p.Email)
	if p.Phone != nil {
		add("Phone", p.Phone.Raw)
	}
	add("Address", p.Address)
	add("LinkedIn", p.LinkedIn)
	add("GitHub", p.GitHub)
	return fields
}

func experienceLine(e types.Experience) string {
	line := e.Title
	if e.Organization != "" {
		line += " at " + e.Organization
	}
	end := "present"
	if !e.Current && !e.End.IsZero() {
		end = e.End.Format("Jan 2006")
	}
	if !e.Start.IsZero() {
		line += fmt.Sprintf(" (%s – %s)", e.Start.Format("Jan 2006"), end)
	}
	return line
}

func educationLine(e types.Education) string {
	line := e.Degree
	if e.Institution != "" {
		line += ", " + e.Institution
	}
	if e.Year > 0 {
		line += fmt.Sprintf(" (%d)", e.Year)
	}
	return line
}
