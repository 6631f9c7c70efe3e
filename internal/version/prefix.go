// Package version implements constraint-aware tag selection: prefix
// isolation, special constraints, and the tag filter/sort rule. Version comparison and constraint parsing are delegated to
// Masterminds/semver, the library golang-dep's own constraints.go wraps.
package version

import "strings"

// versionStartSet is the set of characters that, immediately preceding a
// digit, are still considered part of the version expression rather than
// the prefix: comparison operators and the conventional "v" tag prefix.
const versionStartSet = "<>=^~v"

// Prefix extracts everything before the first semver-like digit run in s.
// For a bare tag like "v1.0.10"
// the prefix is "", and a string with no digit at all (e.g. "latest",
// "HEAD", "alpha") has no prefix either. For "d-v1.0.10" or a constraint string like
// "d->=v1.0.0" the prefix is "d-": the scan finds the first digit, then
// walks backward over contiguous operator/'v' characters to include them
// in the version expression rather than the prefix.
func Prefix(s string) string {
	i := firstDigit(s)
	if i < 0 {
		return ""
	}
	j := i
	for j > 0 && strings.ContainsRune(versionStartSet, rune(s[j-1])) {
		j--
	}
	return s[:j]
}

func firstDigit(s string) int {
	for i, r := range s {
		if r >= '0' && r <= '9' {
			return i
		}
	}
	return -1
}

// SamePrefix reports whether two strings' prefixes are byte-equal. An
// absent prefix is simply the empty string, since Prefix never returns
// anything else for unprefixed input.
func SamePrefix(a, b string) bool {
	return Prefix(a) == Prefix(b)
}

// FilterByPrefix restricts tags to those sharing constraint's prefix.
func FilterByPrefix(tags []string, constraint string) []string {
	p := Prefix(constraint)
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if Prefix(t) == p {
			out = append(out, t)
		}
	}
	return out
}

// IsSpecial reports whether a constraint string is one of the wildcard
// forms that select "all prefix-matched tags".
func IsSpecial(constraint string) bool {
	switch constraint {
	case "HEAD", "latest", "*":
		return true
	default:
		return false
	}
}
