// Package validate holds the input checks for free-text answers collected by
// the conversation flows.
package validate

import (
	"regexp"
	"strings"
)

var (
	phoneRe = regexp.MustCompile(`^\d{10,15}$`)
	moneyRe = regexp.MustCompile(`^\d+(?:\.\d{1,2})?$`)
	urlRe   = regexp.MustCompile(`^https?://`)
)

// IsPhone reports whether s is 10-15 digits after trimming.
func IsPhone(s string) bool {
	return phoneRe.MatchString(strings.TrimSpace(s))
}

// IsMoney reports whether s is a decimal amount with at most 2 fractional
// digits. A comma decimal separator is accepted and treated as a dot.
func IsMoney(s string) bool {
	return moneyRe.MatchString(NormalizeMoney(s))
}

// NormalizeMoney trims s and normalizes the comma decimal separator to a dot.
func NormalizeMoney(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
}

// IsURL reports whether s starts with an http(s) scheme.
func IsURL(s string) bool {
	return urlRe.MatchString(strings.TrimSpace(s))
}
