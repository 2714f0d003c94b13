package domain

import (
	"strings"
	"unicode"
)

// CourseCode is a normalized course identifier: upper case with no
// whitespace anywhere. It is the join key between courses, prerequisites
// and lookups.
type CourseCode string

// Normalize strips all whitespace from raw and upper-cases the rest.
// "cs 1530", "CS1530" and " CS\t1530 " all normalize to "CS1530".
// The empty string normalizes to the empty string.
func Normalize(raw string) CourseCode {
	return CourseCode(strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)))
}

// NormalizeAll normalizes every code in raw, keeping order and duplicates.
func NormalizeAll(raw []string) []CourseCode {
	out := make([]CourseCode, 0, len(raw))
	for _, r := range raw {
		out = append(out, Normalize(r))
	}
	return out
}

func (c CourseCode) String() string {
	return string(c)
}

// IsZero reports whether c is empty.
func (c CourseCode) IsZero() bool {
	return c == ""
}

// Strings converts codes to plain strings.
func Strings(codes []CourseCode) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = string(c)
	}
	return out
}
