package validation

import (
	"errors"
	"strings"
	"unicode"
)

// ErrPatternEmpty is returned when a route pattern is empty or whitespace-only after trim.
var ErrPatternEmpty = errors.New("route pattern is required")

// ErrPatternRelative is returned when a route pattern does not start with "/".
var ErrPatternRelative = errors.New("route pattern must start with /")

// ErrPatternInvalidChars is returned when a route pattern contains disallowed characters.
var ErrPatternInvalidChars = errors.New("route pattern contains invalid characters")

// ErrNameEmpty is returned when a binding name is empty or whitespace-only after trim.
var ErrNameEmpty = errors.New("binding name is required")

// ErrNameInvalidChars is returned when a binding name contains disallowed characters.
var ErrNameInvalidChars = errors.New("binding name contains invalid characters")

// ValidatePattern trims the input and enforces route pattern shape: absolute
// (leading "/"), restricted to letters, digits, and the path characters
// "/", "-", "_", ".", "{", "}". Returns the trimmed pattern or an error.
func ValidatePattern(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrPatternEmpty
	}
	if !strings.HasPrefix(s, "/") {
		return "", ErrPatternRelative
	}
	for _, c := range s {
		if !isAllowedPatternRune(c) {
			return "", ErrPatternInvalidChars
		}
	}
	return s, nil
}

// ValidateName trims the input and enforces binding name shape: letters,
// digits, "-", "_", ".". Used for controller, service, and resolve names.
func ValidateName(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrNameEmpty
	}
	for _, c := range s {
		if !isAllowedNameRune(c) {
			return "", ErrNameInvalidChars
		}
	}
	return s, nil
}

// isAllowedPatternRune returns true for letters (Unicode), digits, and path punctuation.
func isAllowedPatternRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case '/', '-', '_', '.', '{', '}':
		return true
	}
	return false
}

// isAllowedNameRune returns true for letters (Unicode), digits, hyphen, underscore, dot.
func isAllowedNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case '-', '_', '.':
		return true
	}
	return false
}
