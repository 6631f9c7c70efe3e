package expand

import "testing"

func TestCanonicalNameLocalRelativizesAndStripsExtension(t *testing.T) {
	name, err := CanonicalName("/repo/agents/sub/a.md", SourceContext{Local: true, Root: "/repo"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "agents-sub-a" {
		t.Fatalf("got %q", name)
	}
}

func TestCanonicalNameRemoteAssumesAlreadyRelative(t *testing.T) {
	name, err := CanonicalName("agents/a.md", SourceContext{Local: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "agents-a" {
		t.Fatalf("got %q", name)
	}
}

func TestCanonicalNameNoExtension(t *testing.T) {
	name, err := CanonicalName("a", SourceContext{Local: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "a" {
		t.Fatalf("got %q", name)
	}
}
