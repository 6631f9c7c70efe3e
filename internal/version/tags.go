package version

import (
	"sort"
	"strings"

	"github.com/Masterminds/semver"
)

// taggedVersion pairs a tag string with its parsed semver value, stripped
// of the shared prefix.
type taggedVersion struct {
	tag string
	sv *semver.Version
}

// FilterAndSort implements the tag filter/sort rule:
//
// 1. Restrict tags to those sharing the constraint's prefix.
// 2. If the constraint is HEAD/latest/*: parse remaining tags as semver,
// sort descending with tag-name tie-break, dropping unparseable tags
// unless none parse (then fall back to reverse-lex string sort).
// 3. Else parse the constraint as a semver constraint set: keep tags that
// parse and satisfy it, sorted descending with tag-name tie-break.
// 4. Else treat the constraint as an exact ref: return it iff it's in the
// prefix-filtered tag set.
//
// Pre-releases are excluded unless the constraint itself mentions one.
func FilterAndSort(tags []string, constraint string) ([]string, error) {
	prefixed := FilterByPrefix(tags, constraint)
	prefix := Prefix(constraint)
	suffix := strings.TrimPrefix(constraint, prefix)
	allowPrerelease := strings.Contains(suffix, "-")

	if IsSpecial(constraint) {
		parsed := parseAll(prefixed, prefix, allowPrerelease)
		if len(parsed) > 0 {
			sortDescending(parsed)
			out := make([]string, len(parsed))
			for i, tv := range parsed {
				out[i] = tv.tag
			}
			return out, nil
		}
		// No parseable tags at all: fall back to reverse-lex string sort.
		out := append([]string(nil), prefixed...)
		sort.Sort(sort.Reverse(sort.StringSlice(out)))
		return out, nil
	}

	if cset, err := semver.NewConstraint(suffix); err == nil {
		var matched []taggedVersion
		for _, t := range prefixed {
			sv, ok := parseOne(t, prefix)
			if !ok {
				continue
			}
			if sv.Prerelease() != "" && !allowPrerelease {
				continue
			}
			if cset.Check(sv) {
				matched = append(matched, taggedVersion{tag: t, sv: sv})
			}
		}
		sortDescending(matched)
		out := make([]string, len(matched))
		for i, tv := range matched {
			out[i] = tv.tag
		}
		return out, nil
	}

	// Not parseable as a constraint: treat as an exact ref.
	for _, t := range prefixed {
		if t == constraint {
			return []string{t}, nil
		}
	}
	return nil, nil
}

func parseOne(tag, prefix string) (*semver.Version, bool) {
	body := strings.TrimPrefix(tag, prefix)
	sv, err := semver.NewVersion(body)
	if err != nil {
		return nil, false
	}
	return sv, true
}

func parseAll(tags []string, prefix string, allowPrerelease bool) []taggedVersion {
	var out []taggedVersion
	for _, t := range tags {
		sv, ok := parseOne(t, prefix)
		if !ok {
			continue
		}
		if sv.Prerelease() != "" && !allowPrerelease {
			continue
		}
		out = append(out, taggedVersion{tag: t, sv: sv})
	}
	return out
}

// sortDescending sorts by semver descending, tag-name ascending as the
// deterministic tie-break.
func sortDescending(tv []taggedVersion) {
	sort.SliceStable(tv, func(i, j int) bool {
		c := tv[i].sv.Compare(tv[j].sv)
		if c != 0 {
			return c > 0
		}
		return tv[i].tag < tv[j].tag
	})
}
