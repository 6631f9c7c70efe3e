package extract

import "testing"

func TestExtractParsesFrontmatterDependencies(t *testing.T) {
	content := "---\ndependencies:\n  agent:\n    - path: agents/helper.md\n      version: \"^1.0.0\"\n      tool: claude-code\n---\nbody content"

	f := New()
	md, err := f.Extract("agents/main.md", content, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	deps, ok := md.Dependencies["agent"]
	if !ok || len(deps) != 1 {
		t.Fatalf("expected one agent dependency, got %+v", md.Dependencies)
	}
	if deps[0].Path != "agents/helper.md" || deps[0].Version != "^1.0.0" || deps[0].Tool != "claude-code" {
		t.Fatalf("got %+v", deps[0])
	}
}

func TestExtractNoFrontmatterYieldsEmptyMetadata(t *testing.T) {
	f := New()
	md, err := f.Extract("agents/main.md", "just plain content", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(md.Dependencies) != 0 {
		t.Fatalf("expected no dependencies, got %+v", md.Dependencies)
	}
}

func TestExtractInvalidYAMLReturnsMetadataError(t *testing.T) {
	content := "---\ndependencies: [this is not: valid: yaml\n---\nbody"
	f := New()
	_, err := f.Extract("agents/main.md", content, nil)
	if err == nil {
		t.Fatal("expected an error for invalid frontmatter YAML")
	}
}

func TestExtractUnterminatedFrontmatterTreatedAsAbsent(t *testing.T) {
	content := "---\ndependencies:\n  agent: []\nno closing delimiter"
	f := New()
	md, err := f.Extract("agents/main.md", content, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(md.Dependencies) != 0 {
		t.Fatalf("expected no dependencies when frontmatter never closes, got %+v", md.Dependencies)
	}
}
