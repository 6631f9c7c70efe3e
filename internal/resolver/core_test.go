package resolver

import (
	"testing"

	"github.com/agpkg/resolve/internal/manifest"
)

func TestLooksLikeSHA(t *testing.T) {
	if !looksLikeSHA("0123456789abcdef0123456789abcdef01234567") {
		t.Fatal("expected a 40-char lowercase hex string to look like a SHA")
	}
	if looksLikeSHA("v1.2.3") {
		t.Fatal("expected a semver tag to not look like a SHA")
	}
	if looksLikeSHA("0123456789ABCDEF0123456789abcdef01234567") {
		t.Fatal("expected uppercase hex to not look like a SHA")
	}
}

func TestIsBaseDepTrueForManifestDirectDependency(t *testing.T) {
	m := &manifest.Loaded{Manifest: manifest.Manifest{
		Dependencies: map[manifest.ResourceType]map[string]manifest.ResourceDependency{
			manifest.Agent: {"reviewer": {Source: "org/repo"}},
		},
	}}
	key := depKey{resourceType: manifest.Agent, name: "reviewer", source: "org/repo"}
	if !isBaseDep(m, key) {
		t.Fatal("expected reviewer to be recognized as a base dependency")
	}
}

func TestIsBaseDepFalseForTransitiveChild(t *testing.T) {
	m := &manifest.Loaded{Manifest: manifest.Manifest{
		Dependencies: map[manifest.ResourceType]map[string]manifest.ResourceDependency{
			manifest.Agent: {"reviewer": {Source: "org/repo"}},
		},
	}}
	key := depKey{resourceType: manifest.Agent, name: "helper", source: "org/repo"}
	if isBaseDep(m, key) {
		t.Fatal("expected helper (not in manifest) to not be a base dependency")
	}
}

func TestBuildConflictsAgreesWhenAllRequestersShareOneResolvedSHA(t *testing.T) {
	c := &Core{}
	parent1 := depKey{resourceType: manifest.Agent, name: "a"}
	parent2 := depKey{resourceType: manifest.Agent, name: "b"}
	child := depKey{resourceType: manifest.Agent, name: "shared", source: "org/repo"}

	result := &Result{
		AllDeps: map[depKey]manifest.ResourceDependency{
			child: {Version: "^1.0.0"},
		},
		ChildKeys: map[depKey][]depKey{
			parent1: {child},
			parent2: {child},
		},
	}
	shaOf := map[depKey]string{child: "aaa"}

	conflicts := c.buildConflicts(result, shaOf)
	if len(conflicts) != 0 {
		t.Fatalf("expected no conflict when both requesters resolve the same depKey, got %+v", conflicts)
	}
}

func TestBuildConflictsRegistersBaseDepsAsManifestRequesterWithoutFalsePositives(t *testing.T) {
	c := &Core{}
	// "reviewer" is both a manifest-direct dependency and a transitive
	// child of "app" (e.g. app also declares it as a sub-dependency).
	// Both registrations resolve to the same key and so the same SHA;
	// registering the base dep under Requester "manifest" must not, by
	// itself, manufacture a spurious conflict.
	base := depKey{resourceType: manifest.Agent, name: "reviewer", source: "org/repo"}
	app := depKey{resourceType: manifest.Agent, name: "app"}

	result := &Result{
		AllDeps: map[depKey]manifest.ResourceDependency{
			base: {Version: "^1.0.0"},
		},
		BaseDeps: []depKey{base},
		ChildKeys: map[depKey][]depKey{
			app: {base},
		},
	}
	shaOf := map[depKey]string{base: "aaa111"}

	conflicts := c.buildConflicts(result, shaOf)
	if len(conflicts) != 0 {
		t.Fatalf("expected no conflict when the base dep and its transitive requirement share one resolved SHA, got %+v", conflicts)
	}
}

func TestBuildLockfileAssemblesEntriesAndStripsStaleOnes(t *testing.T) {
	m := &manifest.Loaded{
		Manifest: manifest.Manifest{
			Dependencies: map[manifest.ResourceType]map[string]manifest.ResourceDependency{
				manifest.Agent: {"reviewer": {Source: "org/repo", Path: "reviewer.md"}},
			},
			Sources: map[string]string{"org/repo": "https://example.com/org/repo"},
			Tools:   map[string]manifest.ToolConfig{},
		},
		Dir: "/tmp",
	}
	sm := fakeSourceManager{urls: map[string]string{"org/repo": "https://example.com/org/repo"}}
	c := &Core{Manifest: m, Sources: sm}

	key := depKey{resourceType: manifest.Agent, name: "reviewer", source: "org/repo"}
	result := &Result{
		Order: []depKey{key},
		AllDeps: map[depKey]manifest.ResourceDependency{
			key: {Source: "org/repo", Path: "reviewer.md", Version: "^1.0.0"},
		},
		DependencyMap: map[depKey][]string{},
		CustomNames:   map[depKey]string{},
		PatternAlias:  map[depKey]string{},
	}
	shaOf := map[depKey]string{key: "aaa111"}

	lf, err := c.buildLockfile(result, shaOf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entries := lf.Resources[string(manifest.Agent)]
	if len(entries) != 1 {
		t.Fatalf("expected 1 locked entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Name != "reviewer" || e.ResolvedCommit != "aaa111" || !e.Install {
		t.Fatalf("got %+v", e)
	}
	if e.ManifestAlias == nil || *e.ManifestAlias != "reviewer" {
		t.Fatalf("expected base dep to carry its manifest alias, got %+v", e.ManifestAlias)
	}
	if lf.Sources["org/repo"] != "https://example.com/org/repo" {
		t.Fatalf("expected source URL carried through, got %v", lf.Sources)
	}
}

// fakeSourceManager here mirrors the one used in versionsvc's tests; kept
// local since it's a trivial fixture and resolver can't import a _test.go
// file from another package.
type fakeSourceManager struct {
	urls map[string]string
}

func (f fakeSourceManager) GetSourceURL(name string) (string, bool) {
	url, ok := f.urls[name]
	return url, ok
}
