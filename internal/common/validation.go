package common

import (
	"fmt"
	"slices"
	"strings"

	"atsengine/internal/errors"
	"atsengine/internal/improver"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}

// ValidateTemplateID accepts an empty ID, which lets the strategy pick.
func ValidateTemplateID(id string) error {
	if id == "" || improver.ValidTemplate(id) {
		return nil
	}
	return errors.NewValidationError(errors.ErrCodeInvalidRequest,
		fmt.Sprintf("unknown template '%s'", id), nil).WithContext("template_id", id)
}

// NormalizeIndustry lowercases industry and falls back when it is blank.
// Unknown industries are kept; they simply have no keyword list.
func NormalizeIndustry(industry, fallback string) string {
	industry = strings.ToLower(strings.TrimSpace(industry))
	if industry == "" {
		return strings.ToLower(strings.TrimSpace(fallback))
	}
	return industry
}
