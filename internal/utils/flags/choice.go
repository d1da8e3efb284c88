// Package flags provides pflag values shared by matrixbuild commands.
package flags

import (
	"errors"
	"fmt"
	"strings"
)

const (
	choiceTypeName          = "choice"
	choiceSeparator         = "|"
	choicePlaceholderFormat = "`<%s>`"
	choiceUsageFormat       = "%s %s"
	invalidChoiceMessage    = "invalid choice"
	invalidChoiceTemplate   = "%w %q (allowed: %s)"
)

// ErrInvalidChoice indicates a flag value outside the allowed set.
var ErrInvalidChoice = errors.New(invalidChoiceMessage)

// ChoiceValue is a pflag.Value restricted to a fixed set of case-insensitive choices.
type ChoiceValue struct {
	target  *string
	choices []string
}

// NewChoiceValue binds target to a flag accepting only choices. Duplicate and blank choices are dropped.
func NewChoiceValue(target *string, choices []string) *ChoiceValue {
	return &ChoiceValue{target: target, choices: uniqueChoices(choices)}
}

// String returns the current value.
func (value *ChoiceValue) String() string {
	if value == nil || value.target == nil {
		return ""
	}
	return *value.target
}

// Set stores candidate in lower case when it names one of the choices.
func (value *ChoiceValue) Set(candidate string) error {
	normalized := strings.ToLower(strings.TrimSpace(candidate))
	for _, choice := range value.choices {
		if strings.ToLower(choice) == normalized {
			*value.target = normalized
			return nil
		}
	}
	return fmt.Errorf(invalidChoiceTemplate, ErrInvalidChoice, candidate, strings.Join(value.choices, choiceSeparator))
}

// Type names the value kind in help output.
func (value *ChoiceValue) Type() string {
	return choiceTypeName
}

// FormatChoiceUsage renders usage text listing the choices, with the default in upper case,
// for example "`<debug|INFO|warn|error>` Override the configured log level.".
func FormatChoiceUsage(defaultChoice string, choices []string, description string) string {
	normalizedDefault := strings.ToLower(strings.TrimSpace(defaultChoice))
	rendered := uniqueChoices(choices)
	for index, choice := range rendered {
		if strings.ToLower(choice) == normalizedDefault {
			rendered[index] = strings.ToUpper(choice)
		}
	}

	placeholder := fmt.Sprintf(choicePlaceholderFormat, strings.Join(rendered, choiceSeparator))
	trimmedDescription := strings.TrimSpace(description)
	if len(trimmedDescription) == 0 {
		return placeholder
	}
	return fmt.Sprintf(choiceUsageFormat, placeholder, trimmedDescription)
}

func uniqueChoices(choices []string) []string {
	unique := make([]string, 0, len(choices))
	seen := make(map[string]struct{}, len(choices))
	for _, choice := range choices {
		trimmed := strings.TrimSpace(choice)
		if len(trimmed) == 0 {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, trimmed)
	}
	return unique
}
