// Package slug normalizes user-supplied room names into canonical room slugs.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	domainerrors "github.com/pixelworld/pixelworld-server/internal/errors"
)

// MaxLength is the longest slug a room may have.
const MaxLength = 50

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)
	multipleHyphens = regexp.MustCompile(`-+`)
	validSlug       = regexp.MustCompile(`^[a-z0-9-]+$`)
)

// Normalize converts input to slug form without validating it.
//
//	"My Room"      -> "my-room"
//	"  Café Noir " -> "cafe-noir"
//	"a__b!!c"      -> "a-b-c"
//	"--edge--"     -> "edge"
func Normalize(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))

	// Decompose so accented letters fold to their ASCII base, then drop the marks.
	s = norm.NFKD.String(s)
	s = strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return r
	}, s)

	s = nonAlphanumeric.ReplaceAllString(s, "-")
	s = multipleHyphens.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// IsValid reports whether s is already a canonical slug.
func IsValid(s string) bool {
	return len(s) >= 1 && len(s) <= MaxLength && validSlug.MatchString(s)
}

// Parse normalizes input and rejects results that are empty or too long.
func Parse(input string) (string, error) {
	s := Normalize(input)
	if !IsValid(s) {
		return "", domainerrors.InvalidSlugf("invalid room slug %q", input)
	}
	return s, nil
}
