package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// stateIDRegex matches a single state key. Dots and '#' are reserved for
// target paths.
var stateIDRegex = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_\-]*$`)

// ValidateStateID validates the key of one state in a chart definition.
//
// Validation rules:
//   - Not empty
//   - Maximum length of 128 characters
//   - Letters, digits, '_' and '-' only (no '.', '#' or whitespace)
func ValidateStateID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidDefinition, "state id cannot be empty")
	}
	if len(id) > 128 {
		return New(ErrCodeInvalidDefinition, "state id too long (max 128 characters)")
	}
	if !stateIDRegex.MatchString(id) {
		return New(ErrCodeInvalidDefinition, "invalid state id: %q", id)
	}
	return nil
}

// ValidatePath validates a user-supplied file path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}

	return nil
}
