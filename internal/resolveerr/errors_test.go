package resolveerr

import (
	"errors"
	"strings"
	"testing"
)

func TestManifestErrorMessage(t *testing.T) {
	e := &ManifestError{Component: ComponentPatternExpander, Op: "expand", Detail: "missing source"}
	if !strings.Contains(e.Error(), "missing source") {
		t.Fatalf("got %q", e.Error())
	}
}

func TestGitErrorUnwrapsAndFormats(t *testing.T) {
	wrapped := errors.New("network timeout")
	e := &GitError{Component: ComponentVersionService, Op: "clone_or_fetch", Source: "org/repo", Err: wrapped}
	if !errors.Is(e, wrapped) {
		t.Fatal("expected GitError to unwrap to the underlying error")
	}
	if !strings.Contains(e.Error(), "org/repo") {
		t.Fatalf("expected source in message, got %q", e.Error())
	}
}

func TestVersionResolutionErrorMessage(t *testing.T) {
	e := &VersionResolutionError{Component: ComponentVersionService, Source: "org/repo", Constraint: "^9.0.0"}
	msg := e.Error()
	if !strings.Contains(msg, "org/repo") || !strings.Contains(msg, "^9.0.0") {
		t.Fatalf("got %q", msg)
	}
}

func TestCanonicalizeErrorUnwraps(t *testing.T) {
	wrapped := errors.New("no such file")
	e := &CanonicalizeError{Component: ComponentResourceFetcher, Path: "/tmp/x", Err: wrapped}
	if !errors.Is(e, wrapped) {
		t.Fatal("expected CanonicalizeError to unwrap")
	}
}

func TestCycleErrorListsNodes(t *testing.T) {
	e := &CycleError{Component: ComponentGraph, Nodes: []string{"a", "b", "a"}}
	msg := e.Error()
	if !strings.Contains(msg, "a") || !strings.Contains(msg, "b") {
		t.Fatalf("got %q", msg)
	}
}

func TestVersionConflictErrorIncludesIterationCount(t *testing.T) {
	e := &VersionConflictError{Component: ComponentSolver, TerminationReason: "Oscillation", History: []string{"1", "2"}}
	msg := e.Error()
	if !strings.Contains(msg, "Oscillation") || !strings.Contains(msg, "2") {
		t.Fatalf("got %q", msg)
	}
}

func TestTargetConflictErrorIncludesPath(t *testing.T) {
	e := &TargetConflictError{Component: ComponentLockfile, InstallPath: ".claude/agents/foo.md"}
	if !strings.Contains(e.Error(), ".claude/agents/foo.md") {
		t.Fatalf("got %q", e.Error())
	}
}

func TestMetadataErrorUnwraps(t *testing.T) {
	wrapped := errors.New("bad yaml")
	e := &MetadataError{Component: ComponentTransitive, Path: "agents/a.md", Err: wrapped}
	if !errors.Is(e, wrapped) {
		t.Fatal("expected MetadataError to unwrap")
	}
}
