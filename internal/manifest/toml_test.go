package manifest

import (
	"strings"
	"testing"
)

func TestLoadParsesSourcesAndSimpleDependency(t *testing.T) {
	doc := `
[sources]
myorg = "https://github.com/myorg/repo"

[agent]
reviewer = "agents/reviewer.md"
`
	m, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Sources["myorg"] != "https://github.com/myorg/repo" {
		t.Fatalf("expected source parsed, got %v", m.Sources)
	}
	dep, ok := m.Dependencies[Agent]["reviewer"]
	if !ok {
		t.Fatal("expected reviewer agent dependency")
	}
	if !dep.IsSimple || dep.Path != "agents/reviewer.md" {
		t.Fatalf("expected simple dependency with path set, got %+v", dep)
	}
}

func TestLoadParsesDetailedDependency(t *testing.T) {
	doc := `
[agent.reviewer]
source = "myorg"
path = "agents/reviewer.md"
version = "^1.0.0"
tool = "claude-code"
flatten = true
`
	m, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dep := m.Dependencies[Agent]["reviewer"]
	if dep.IsSimple {
		t.Fatal("expected detailed (non-simple) dependency")
	}
	if dep.Source != "myorg" || dep.Version != "^1.0.0" || dep.Tool != "claude-code" {
		t.Fatalf("unexpected fields: %+v", dep)
	}
	if dep.Flatten == nil || !*dep.Flatten {
		t.Fatalf("expected flatten=true, got %v", dep.Flatten)
	}
}

func TestLoadRejectsBranchAndVersionTogether(t *testing.T) {
	doc := `
[agent.reviewer]
path = "agents/reviewer.md"
version = "1.0.0"
branch = "main"
`
	if _, err := Load(strings.NewReader(doc)); err == nil {
		t.Fatal("expected an error for conflicting version/branch")
	}
}

func TestLoadRejectsMissingPath(t *testing.T) {
	doc := `
[agent.reviewer]
version = "1.0.0"
`
	if _, err := Load(strings.NewReader(doc)); err == nil {
		t.Fatal("expected an error for a dependency missing a path")
	}
}

func TestLoadParsesToolConfig(t *testing.T) {
	doc := `
[tools.claude-code.resources.agent]
path = ".claude/agents"
flatten = false

[tools.claude-code.merge_targets]
hook = ".claude/settings.local.json"

[tools.claude-code.supported]
agent = ["claude-code", "opencode"]
`
	m, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tc, ok := m.Tools["claude-code"]
	if !ok {
		t.Fatal("expected claude-code tool config")
	}
	if tc.Resources[Agent].Path != ".claude/agents" {
		t.Fatalf("unexpected resources config: %+v", tc.Resources)
	}
	if tc.MergeTargets[Hook] != ".claude/settings.local.json" {
		t.Fatalf("unexpected merge targets: %v", tc.MergeTargets)
	}
	if len(tc.Supported[Agent]) != 2 {
		t.Fatalf("expected 2 supported tools, got %v", tc.Supported[Agent])
	}
}

func TestLoadParsesVariantInputsAsJSON(t *testing.T) {
	doc := `
[project.variant_inputs]
env = "prod"
`
	m, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(m.VariantInputs), `"env"`) {
		t.Fatalf("expected variant_inputs to carry env key, got %s", m.VariantInputs)
	}
}

func TestResourceDependencyVersionSpecPrecedence(t *testing.T) {
	d := ResourceDependency{Branch: "main"}
	if d.VersionSpec() != "main" {
		t.Fatalf("expected branch fallback, got %s", d.VersionSpec())
	}
	d.Rev = "abc123"
	if d.VersionSpec() != "abc123" {
		t.Fatalf("expected rev to win over branch, got %s", d.VersionSpec())
	}
	d.Version = "^1.0.0"
	if d.VersionSpec() != "^1.0.0" {
		t.Fatalf("expected version to win over rev, got %s", d.VersionSpec())
	}
	if (ResourceDependency{}).VersionSpec() != "HEAD" {
		t.Fatal("expected HEAD default when nothing is set")
	}
}

func TestResourceDependencyIsPattern(t *testing.T) {
	if !(ResourceDependency{Path: "agents/*.md"}).IsPattern() {
		t.Fatal("expected glob path to be detected as a pattern")
	}
	if (ResourceDependency{Path: "agents/reviewer.md"}).IsPattern() {
		t.Fatal("expected plain path to not be a pattern")
	}
}
