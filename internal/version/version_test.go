package version

import (
	"reflect"
	"testing"
)

func TestPrefix(t *testing.T) {
	cases := map[string]string{
		"v1.0.10":      "",
		"d-v1.0.10":    "d-",
		"d->=v1.0.0":   "d-",
		"^1.2.3":       "",
		"agent-2.0.0":  "agent-",
	}
	for in, want := range cases {
		if got := Prefix(in); got != want {
			t.Errorf("Prefix(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSamePrefix(t *testing.T) {
	if !SamePrefix("d-1.0.0", "d->=1.1.0") {
		t.Fatal("expected matching prefixes to be equal")
	}
	if SamePrefix("d-1.0.0", "e-1.0.0") {
		t.Fatal("expected differing prefixes to be unequal")
	}
}

func TestFilterByPrefix(t *testing.T) {
	tags := []string{"v1.0.0", "d-1.0.0", "d-2.0.0", "e-1.0.0"}
	got := FilterByPrefix(tags, "d->=1.0.0")
	want := []string{"d-1.0.0", "d-2.0.0"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FilterByPrefix = %v, want %v", got, want)
	}
}

func TestIsSpecial(t *testing.T) {
	for _, c := range []string{"HEAD", "latest", "*"} {
		if !IsSpecial(c) {
			t.Errorf("expected %q to be special", c)
		}
	}
	if IsSpecial("1.2.3") {
		t.Fatal("a concrete version should not be special")
	}
}

func TestFilterAndSortConstraintMatch(t *testing.T) {
	tags := []string{"v1.0.0", "v1.5.0", "v2.0.0", "v0.9.0"}
	got, err := FilterAndSort(tags, "^1.0.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"v1.5.0", "v1.0.0"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FilterAndSort = %v, want %v", got, want)
	}
}

func TestFilterAndSortSpecialFallsBackToDescendingSemver(t *testing.T) {
	tags := []string{"v1.0.0", "v2.0.0", "v1.5.0"}
	got, err := FilterAndSort(tags, "latest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"v2.0.0", "v1.5.0", "v1.0.0"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FilterAndSort(latest) = %v, want %v", got, want)
	}
}

func TestFilterAndSortSpecialFallsBackToLexOnUnparseableTags(t *testing.T) {
	tags := []string{"alpha", "beta", "gamma"}
	got, err := FilterAndSort(tags, "HEAD")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"gamma", "beta", "alpha"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FilterAndSort(HEAD) = %v, want %v", got, want)
	}
}

func TestFilterAndSortExactRef(t *testing.T) {
	tags := []string{"feature-branch", "main"}
	got, err := FilterAndSort(tags, "feature-branch")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"feature-branch"}) {
		t.Fatalf("FilterAndSort exact ref = %v", got)
	}
}

func TestFilterAndSortExcludesPrereleaseUnlessRequested(t *testing.T) {
	tags := []string{"v1.0.0", "v1.1.0-beta.1"}
	got, err := FilterAndSort(tags, "^1.0.0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"v1.0.0"}) {
		t.Fatalf("expected prerelease excluded by default, got %v", got)
	}

	got, err = FilterAndSort(tags, ">=1.1.0-0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) == 0 || got[0] != "v1.1.0-beta.1" {
		t.Fatalf("expected prerelease included when constraint mentions one, got %v", got)
	}
}

func TestTagIndexGroupsByPrefix(t *testing.T) {
	idx := NewTagIndex([]string{"v1.0.0", "v2.0.0", "d-1.0.0"})
	if got := idx.TagsWithPrefix(""); len(got) != 2 {
		t.Fatalf("expected 2 unprefixed tags, got %v", got)
	}
	if got := idx.TagsForConstraint("d->=1.0.0"); !reflect.DeepEqual(got, []string{"d-1.0.0"}) {
		t.Fatalf("TagsForConstraint = %v", got)
	}
	if got := idx.TagsWithPrefix("missing-"); got != nil {
		t.Fatalf("expected nil for unknown prefix, got %v", got)
	}
}
