package formatters

import (
	"fmt"
	"strings"

	"atsengine/internal/types"
)

// ImprovementTextFormatter handles text formatting for improvement results
type ImprovementTextFormatter struct{}

func (f *ImprovementTextFormatter) Format(data any) (string, error) {
	r, err := deref[types.ImprovementResult](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	output.WriteString("=== IMPROVED RESUME ===\n\n")
	output.WriteString(r.ImprovedText)
	output.WriteString("\n\n")

	output.WriteString("=== RESULT ===\n")
	fmt.Fprintf(&output, "Score: %d -> %d (%+d)\n", r.OriginalScore, r.NewScore, r.NewScore-r.OriginalScore)
	fmt.Fprintf(&output, "Strategy: %s\n", r.Strategy)
	fmt.Fprintf(&output, "Template: %s\n", r.Document.TemplateID)
	output.WriteString(documentLine(r.Document))
	output.WriteString("\n")

	output.WriteString("=== CHANGES ===\n")
	for _, change := range r.ChangesMade {
		fmt.Fprintf(&output, "- %s\n", change)
	}

	return output.String(), nil
}

func (f *ImprovementTextFormatter) SupportedType() string {
	return TypeImprovement
}

// ImprovementMarkdownFormatter handles markdown formatting for improvement results
type ImprovementMarkdownFormatter struct{}

func (f *ImprovementMarkdownFormatter) Format(data any) (string, error) {
	r, err := deref[types.ImprovementResult](data)
	if err != nil {
		return "", err
	}

	var output strings.Builder

	output.WriteString("# Improved Resume\n\n")
	fmt.Fprintf(&output, "**Score:** %d → %d (%+d)  \n", r.OriginalScore, r.NewScore, r.NewScore-r.OriginalScore)
	fmt.Fprintf(&output, "**Strategy:** %s  \n", r.Strategy)
	fmt.Fprintf(&output, "**Template:** %s\n\n", r.Document.TemplateID)

	output.WriteString("## Changes Made\n\n")
	for _, change := range r.ChangesMade {
		fmt.Fprintf(&output, "- %s\n", change)
	}
	output.WriteString("\n")

	output.WriteString("## Document\n\n")
	output.WriteString(documentLine(r.Document))
	output.WriteString("\n")

	output.WriteString("## Improved Text\n\n")
	output.WriteString("```\n")
	output.WriteString(r.ImprovedText)
	output.WriteString("\n```\n")

	return output.String(), nil
}

func (f *ImprovementMarkdownFormatter) SupportedType() string {
	return TypeImprovement
}

func documentLine(doc types.RenderedDocument) string {
	var line string
	switch {
	case doc.URL != "":
		line = fmt.Sprintf("Document: %s (%s)\n", doc.URL, doc.MediaType)
	case doc.Inline:
		line = fmt.Sprintf("Document: inline, %d bytes (%s)\n", len(doc.Content), doc.MediaType)
	default:
		line = "Document: none\n"
	}
	if doc.Warning != "" {
		line += fmt.Sprintf("Warning: %s\n", doc.Warning)
	}
	return line
}
