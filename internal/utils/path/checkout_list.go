package pathutils

import (
	"path/filepath"
	"runtime"
	"strings"
)

const (
	checkoutListSeparatorConstant = ";"
	windowsOperatingSystemName    = "windows"
)

// SplitCheckoutList splits a semicolon-delimited checkout list such as the value of
// LATEX2AI_REPOSITORIES. Empty entries, including the one left by a trailing separator,
// are discarded.
func SplitCheckoutList(rawValue string) []string {
	if len(strings.TrimSpace(rawValue)) == 0 {
		return nil
	}
	return NewCheckoutPathSanitizer().Sanitize(strings.Split(rawValue, checkoutListSeparatorConstant))
}

// CheckoutPathSanitizer normalizes checkout path inputs coming from configuration and the environment.
type CheckoutPathSanitizer struct {
	homeExpander *HomeExpander
}

// NewCheckoutPathSanitizer constructs a sanitizer backed by the default home expander.
func NewCheckoutPathSanitizer() *CheckoutPathSanitizer {
	return NewCheckoutPathSanitizerWithExpander(nil)
}

// NewCheckoutPathSanitizerWithExpander constructs a sanitizer using the provided expander.
func NewCheckoutPathSanitizerWithExpander(homeExpander *HomeExpander) *CheckoutPathSanitizer {
	if homeExpander == nil {
		homeExpander = NewHomeExpander()
	}
	return &CheckoutPathSanitizer{homeExpander: homeExpander}
}

// Sanitize trims whitespace, drops empty entries, expands the home directory and removes
// repeated checkouts while keeping the first occurrence in place. It returns nil when
// nothing remains.
func (sanitizer *CheckoutPathSanitizer) Sanitize(candidatePaths []string) []string {
	if sanitizer == nil {
		sanitizer = NewCheckoutPathSanitizer()
	}

	sanitizedPaths := make([]string, 0, len(candidatePaths))
	seenComparisons := make(map[string]struct{}, len(candidatePaths))
	for _, candidatePath := range candidatePaths {
		trimmedCandidate := strings.TrimSpace(candidatePath)
		if len(trimmedCandidate) == 0 {
			continue
		}

		expandedPath := sanitizer.homeExpander.Expand(trimmedCandidate)
		comparison := comparisonPath(canonicalizePath(expandedPath))
		if _, seen := seenComparisons[comparison]; seen {
			continue
		}
		seenComparisons[comparison] = struct{}{}
		sanitizedPaths = append(sanitizedPaths, expandedPath)
	}

	if len(sanitizedPaths) == 0 {
		return nil
	}
	return sanitizedPaths
}

func canonicalizePath(path string) string {
	cleanedPath := filepath.Clean(path)
	absolutePath, absoluteError := filepath.Abs(cleanedPath)
	if absoluteError != nil {
		return cleanedPath
	}
	return filepath.Clean(absolutePath)
}

func comparisonPath(path string) string {
	if runtime.GOOS == windowsOperatingSystemName {
		return strings.ToLower(path)
	}
	return path
}
