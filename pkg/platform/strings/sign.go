// Package strings provides normalisation helpers for user typed identifiers.
package strings

import (
	"strings"
	"unicode"
)

// Digits returns only the ASCII digits of s, in order.
//
//	Digits("AB-12-34") // "1234"
func Digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SameSignNumber reports whether two vehicle registration signs carry the
// same number. Letters, separators and leading zeros are ignored, so
// "AB-12-34", "ab1234" and "XY 001234" all match. A sign with no digits
// matches nothing.
func SameSignNumber(a, b string) bool {
	da := strings.TrimLeft(Digits(a), "0")
	db := strings.TrimLeft(Digits(b), "0")
	if Digits(a) == "" || Digits(b) == "" {
		return false
	}
	return da == db
}

// UpperTrim trims surrounding whitespace and upper-cases s. Signs, names and
// policy numbers are stored in this form.
func UpperTrim(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// CollapseSpaces trims s and folds internal whitespace runs to one space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
