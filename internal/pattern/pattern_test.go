package pattern

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestResolveMatchesGlobFiles(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, "a.md"), "a")
	mustWrite(t, filepath.Join(dir, "b.md"), "b")
	mustWrite(t, filepath.Join(dir, "c.txt"), "c")

	r := NewResolver()
	got, err := r.Resolve("*.md", dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"a.md", "b.md"}) {
		t.Fatalf("got %v", got)
	}
}

func TestResolveMissingBaseReturnsNoError(t *testing.T) {
	r := NewResolver()
	got, err := r.Resolve("*.md", "/does/not/exist/at/all")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil matches, got %v", got)
	}
}

func TestSplitAbsolutePatternFindsGlobComponent(t *testing.T) {
	base, glob := SplitAbsolutePattern("/home/project/agents/*.md")
	if base != "/home/project/agents" || glob != "*.md" {
		t.Fatalf("got base=%q glob=%q", base, glob)
	}
}

func TestSplitAbsolutePatternNoGlobReturnsDotBase(t *testing.T) {
	base, glob := SplitAbsolutePattern("/home/project/agents/a.md")
	if base != "." || glob != "/home/project/agents/a.md" {
		t.Fatalf("got base=%q glob=%q", base, glob)
	}
}

func TestMatchSkillDirectoriesSkipsMissingSkillMd(t *testing.T) {
	dir := t.TempDir()
	mustMkdir(t, filepath.Join(dir, "skills", "good"))
	mustWrite(t, filepath.Join(dir, "skills", "good", "SKILL.md"), "# good")
	mustMkdir(t, filepath.Join(dir, "skills", "bad"))

	matches, err := MatchSkillDirectories(dir, "*", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(matches) != 1 || matches[0].Name != "good" {
		t.Fatalf("expected only 'good' matched, got %v", matches)
	}
}

func TestMatchSkillDirectoriesNoSkillsDirIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	matches, err := MatchSkillDirectories(dir, "*", "", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if matches != nil {
		t.Fatalf("expected nil matches, got %v", matches)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
}
