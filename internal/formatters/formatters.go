package formatters

import (
	"encoding/json"
	"fmt"
	"slices"

	"atsengine/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// Data type names used as registry keys.
const (
	TypeAny          = "any"
	TypeAnalysis     = "Analysis"
	TypeImprovement  = "ImprovementResult"
	TypeParsedResume = "ParsedResume"
)

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// GlobalRegistry is the registry used by the CLI output handler.
var GlobalRegistry = NewFormatterRegistry()

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", TypeAny, &JSONFormatter{})
	registry.RegisterFormatter("text", TypeAnalysis, &AnalysisTextFormatter{})
	registry.RegisterFormatter("markdown", TypeAnalysis, &AnalysisMarkdownFormatter{})
	registry.RegisterFormatter("text", TypeImprovement, &ImprovementTextFormatter{})
	registry.RegisterFormatter("markdown", TypeImprovement, &ImprovementMarkdownFormatter{})
	registry.RegisterFormatter("text", TypeParsedResume, &ParsedTextFormatter{})
	registry.RegisterFormatter("markdown", TypeParsedResume, &ParsedMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters[TypeAny]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.Analysis, *types.Analysis:
		return TypeAnalysis
	case types.ImprovementResult, *types.ImprovementResult:
		return TypeImprovement
	case types.ParsedResume, *types.ParsedResume:
		return TypeParsedResume
	default:
		return TypeAny
	}
}

// deref accepts T or *T.
func deref[T any](data any) (*T, error) {
	switch v := data.(type) {
	case T:
		return &v, nil
	case *T:
		if v != nil {
			return v, nil
		}
	}
	var zero T
	return nil, fmt.Errorf("expected %T, got %T", zero, data)
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return TypeAny
}
