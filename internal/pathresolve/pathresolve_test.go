package pathresolve

import (
	"testing"

	"github.com/agpkg/resolve/internal/manifest"
)

func boolPtr(b bool) *bool { return &b }

func TestResolveUsesFlattenedFilenameWhenFlattenSet(t *testing.T) {
	dep := manifest.ResourceDependency{Path: "agents/nested/helper.md", Flatten: boolPtr(true)}
	tc := manifest.ToolConfig{Resources: map[manifest.ResourceType]manifest.ToolResourceConfig{
		manifest.Agent: {Path: ".claude/agents"},
	}}
	got := Resolve(dep, manifest.Agent, "claude-code", tc)
	if got != ".claude/agents/helper.md" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveUsesMeaningfulPathWhenNotFlattened(t *testing.T) {
	dep := manifest.ResourceDependency{Path: "agents/nested/helper.md"}
	tc := manifest.ToolConfig{Resources: map[manifest.ResourceType]manifest.ToolResourceConfig{
		manifest.Agent: {Path: ".claude/agents"},
	}}
	got := Resolve(dep, manifest.Agent, "claude-code", tc)
	if got != ".claude/agents/agents/nested/helper.md" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveExplicitFilenameWins(t *testing.T) {
	dep := manifest.ResourceDependency{Path: "agents/nested/helper.md", Filename: "renamed.md"}
	tc := manifest.ToolConfig{Resources: map[manifest.ResourceType]manifest.ToolResourceConfig{
		manifest.Agent: {Path: ".claude/agents"},
	}}
	got := Resolve(dep, manifest.Agent, "claude-code", tc)
	if got != ".claude/agents/renamed.md" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveDepTargetJoinsBeforeFilename(t *testing.T) {
	dep := manifest.ResourceDependency{Path: "helper.md", Target: "sub"}
	tc := manifest.ToolConfig{Resources: map[manifest.ResourceType]manifest.ToolResourceConfig{
		manifest.Agent: {Path: ".claude/agents"},
	}}
	got := Resolve(dep, manifest.Agent, "claude-code", tc)
	if got != ".claude/agents/sub/helper.md" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveToolConfigFlattenDefaultAppliesWhenDepUnset(t *testing.T) {
	dep := manifest.ResourceDependency{Path: "agents/nested/helper.md"}
	tc := manifest.ToolConfig{Resources: map[manifest.ResourceType]manifest.ToolResourceConfig{
		manifest.Agent: {Path: ".claude/agents", Flatten: boolPtr(true)},
	}}
	got := Resolve(dep, manifest.Agent, "claude-code", tc)
	if got != ".claude/agents/helper.md" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveMergeTargetUsesExplicitOverride(t *testing.T) {
	dep := manifest.ResourceDependency{Path: "hooks/pre.json"}
	tc := manifest.ToolConfig{MergeTargets: map[manifest.ResourceType]string{
		manifest.Hook: "custom/settings.json",
	}}
	got := Resolve(dep, manifest.Hook, "claude-code", tc)
	if got != "custom/settings.json" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveMergeTargetFallsBackToToolDefault(t *testing.T) {
	dep := manifest.ResourceDependency{Path: "hooks/pre.json"}
	tc := manifest.ToolConfig{}
	got := Resolve(dep, manifest.Hook, "claude-code", tc)
	if got != ".claude/settings.local.json" {
		t.Fatalf("got %q", got)
	}
}

func TestResolveMergeTargetMcpServerDefaultsAcrossTools(t *testing.T) {
	dep := manifest.ResourceDependency{Path: "servers/foo.json"}
	tc := manifest.ToolConfig{}
	got := Resolve(dep, manifest.McpServer, "some-other-tool", tc)
	if got != defaultMcpServerTarget {
		t.Fatalf("got %q", got)
	}
}

func TestResolveMergeTargetOpencodeMcpServerFallback(t *testing.T) {
	dep := manifest.ResourceDependency{Path: "servers/foo.json"}
	tc := manifest.ToolConfig{}
	got := Resolve(dep, manifest.McpServer, "opencode", tc)
	if got != ".opencode/opencode.json" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractMeaningfulPathAbsoluteResolvesDotDot(t *testing.T) {
	got := ExtractMeaningfulPath("/a/b/../c/d.md")
	if got != "a/c/d.md" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractMeaningfulPathRelativeWithDotDotSkipsLeading(t *testing.T) {
	got := ExtractMeaningfulPath("../../a/b.md")
	if got != "a/b.md" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractMeaningfulPathCleanRelative(t *testing.T) {
	got := ExtractMeaningfulPath("./a/./b.md")
	if got != "a/b.md" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractMeaningfulPathNormalizesBackslashes(t *testing.T) {
	got := ExtractMeaningfulPath(`a\b\c.md`)
	if got != "a/b/c.md" {
		t.Fatalf("got %q", got)
	}
}
