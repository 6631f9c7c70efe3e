package resolver

import (
	"context"
	"encoding/json"
	"path"
	"strings"

	"github.com/agpkg/resolve/internal/conflict"
	"github.com/agpkg/resolve/internal/expand"
	"github.com/agpkg/resolve/internal/graph"
	"github.com/agpkg/resolve/internal/identity"
	"github.com/agpkg/resolve/internal/logging"
	"github.com/agpkg/resolve/internal/manifest"
	"github.com/agpkg/resolve/internal/resource"
	"github.com/agpkg/resolve/internal/resolveerr"
	"github.com/agpkg/resolve/internal/versionsvc"
)

// depKey is the identity a worklist/all_deps entry is addressed by:
// (resource_type, name, source, tool, variant_hash).
type depKey struct {
	resourceType manifest.ResourceType
	name string
	source string
	tool string
	variantHash string
}

func (k depKey) resourceId() identity.ResourceId {
	return identity.ResourceId{Name: k.name, Source: k.source, Tool: k.tool, ResourceType: k.resourceType, VariantHash: k.variantHash}
}

// worklistItem pairs a dependency key with its current dependency value
// and the name of the parent that discovered it ("" / "manifest" for
// base deps).
type worklistItem struct {
	key depKey
	dep manifest.ResourceDependency
	parentName string
	version string // version at time of enqueue, used for staleness check
}

// Transitive is the Transitive Resolver.
type Transitive struct {
	Manifest *manifest.Manifest
	ManifestDir string
	Expander *expand.Expander
	Fetcher resource.Fetcher
	Extractor Extractor
	Vsvc *versionsvc.Service
	Log logging.Logger

	overrides overrideIndex

	allDeps map[depKey]manifest.ResourceDependency
	processed map[depKey]bool
	dependencyMap map[depKey][]string // parent key -> child ref strings
	patternAlias map[depKey]string // concrete child key -> pattern's name
	customNames map[depKey]string // transitive child key -> explicit spec.Name
	childKeys   map[depKey][]depKey

	graph *graph.Graph
	conflict *conflict.Detector

	mergeVariants func(global, dep json.RawMessage) (map[string]interface{}, string)
}

// Result is the Transitive Resolver's output.
type Result struct {
	Order []depKey
	AllDeps map[depKey]manifest.ResourceDependency
	DependencyMap map[depKey][]string
	ChildKeys map[depKey][]depKey
	PatternAlias map[depKey]string
	CustomNames map[depKey]string
	Graph *graph.Graph
	Conflicts *conflict.Detector
	// BaseDeps holds the keys of the manifest's own direct dependencies,
	// so the Resolution Core can register them with the Conflict
	// Detector under Requester "manifest" alongside transitively
	// discovered requirements on the same resource.
	BaseDeps []depKey
}

// Resolve runs the BFS. baseDeps are the manifest's direct
// dependencies across every resource type.
func (t *Transitive) Resolve(ctx context.Context, mergeVariants func(global, dep json.RawMessage) (map[string]interface{}, string)) (*Result, error) {
	t.mergeVariants = mergeVariants
	t.overrides = buildOverrideIndex(t.Manifest, t.Manifest.VariantInputs, mergeVariants)
	t.allDeps = map[depKey]manifest.ResourceDependency{}
	t.processed = map[depKey]bool{}
	t.dependencyMap = map[depKey][]string{}
	t.childKeys = map[depKey][]depKey{}
	t.patternAlias = map[depKey]string{}
	t.customNames = map[depKey]string{}
	t.graph = graph.New()
	t.conflict = conflict.New()

	var worklist []worklistItem
	var baseDeps []depKey
	for rt, deps := range t.Manifest.Dependencies {
		for name, dep := range deps {
			_, hash := mergeVariants(t.Manifest.VariantInputs, dep.TemplateVars)
			key := depKey{resourceType: rt, name: name, source: dep.Source, tool: resolveTool(dep, rt, t.Manifest, ""), variantHash: hash}
			t.allDeps[key] = dep
			worklist = append(worklist, worklistItem{key: key, dep: dep, parentName: "manifest", version: dep.VersionSpec()})
			t.graph.AddNode(graph.Node{ResourceType: string(rt), Name: name, Source: dep.Source})
			baseDeps = append(baseDeps, key)
			t.conflict.AddRequirement(key.resourceId(), conflict.Requirement{
				Requester: "manifest",
				Constraint: dep.VersionSpec(),
			})
		}
	}

	for len(worklist) > 0 {
		item := worklist[0]
		worklist = worklist[1:]

		current, exists := t.allDeps[item.key]
		if exists && current.VersionSpec() != item.version {
			continue // stale
		}
		if t.processed[item.key] {
			continue
		}
		t.processed[item.key] = true

		if item.dep.IsPattern() {
			children, err := t.Expander.Expand(ctx, item.dep, item.key.resourceType, t.ManifestDir)
			if err != nil {
				return nil, err
			}
			patternName := item.key.name
			for _, child := range children {
				_, hash := mergeVariants(t.Manifest.VariantInputs, child.TemplateVars)
				ck := depKey{resourceType: item.key.resourceType, name: child.Name, source: child.Source, tool: child.Tool, variantHash: hash}
				t.patternAlias[ck] = patternName
				if _, already := t.allDeps[ck]; !already {
					t.allDeps[ck] = child
					worklist = append(worklist, worklistItem{key: ck, dep: child, parentName: item.parentName, version: child.VersionSpec()})
				}
			}
			continue
		}

		content, path_, err := t.fetchContent(ctx, item)
		if err != nil {
			return nil, err
		}
		variantInputs, _ := mergeVariants(t.Manifest.VariantInputs, item.dep.TemplateVars)
		md, err := t.Extractor.Extract(path_, content, variantInputs)
		if err != nil {
			return nil, &resolveerr.MetadataError{Component: resolveerr.ComponentTransitive, Path: path_, Err: err}
		}

		var refs []string
		for childType, specs := range md.Dependencies {
			for _, spec := range specs {
				childDep, childKey := t.buildChildDep(item, childType, spec, mergeVariants)

				if ov, ok := t.overrides[overrideKey{resourceType: childType, path: normalizePath(childDep.Path), source: childDep.Source, tool: childDep.Tool, variantHash: childKey.variantHash}]; ok {
					ov.apply(&childDep)
					t.customNames[childKey] = ov.alias
				}
				if spec.Name != "" {
					t.customNames[childKey] = spec.Name
				}

				t.graph.AddDependency(
					graph.Node{ResourceType: string(item.key.resourceType), Name: item.key.name, Source: item.key.source},
					graph.Node{ResourceType: string(childType), Name: childKey.name, Source: childKey.source},
				)

				// ResolvedSHA is left empty here: conflict accounting happens
				// once actual SHAs are known, in the Resolution Core's
				// post-BFS pass (core.go buildConflicts).
				t.conflict.AddRequirement(childKey.resourceId(), conflict.Requirement{
					Requester: item.key.name,
					Constraint: childDep.VersionSpec(),
				})

				refs = append(refs, depRefString(childType, childKey.name, childDep.Source, childDep.VersionSpec()))
				t.childKeys[item.key] = append(t.childKeys[item.key], childKey)

				if _, already := t.allDeps[childKey]; !already {
					t.allDeps[childKey] = childDep
					worklist = append(worklist, worklistItem{key: childKey, dep: childDep, parentName: item.key.name, version: childDep.VersionSpec()})
				}
			}
		}
		t.dependencyMap[item.key] = refs
	}

	if err := t.graph.DetectCycles(); err != nil {
		return nil, err
	}
	order := t.topologicalKeys()

	return &Result{
		Order: order,
		AllDeps: t.allDeps,
		DependencyMap: t.dependencyMap,
		ChildKeys: t.childKeys,
		PatternAlias: t.patternAlias,
		CustomNames: t.customNames,
		Graph: t.graph,
		Conflicts: t.conflict,
		BaseDeps: baseDeps,
	}, nil
}

// fetchContent reads the dependency's resource content, local or
// worktree, 
func (t *Transitive) fetchContent(ctx context.Context, item worklistItem) (content string, canonicalPath string, err error) {
	isWorktree := item.dep.Source != ""
	p := item.dep.Path
	if !isWorktree && !path.IsAbs(p) {
		p = path.Join(t.ManifestDir, p)
	}
	if item.key.resourceType == manifest.Skill {
		c, err := t.Fetcher.FetchSkillContent(p, isWorktree)
		return c, p, err
	}
	c, err := t.Fetcher.FetchContent(p, isWorktree)
	return c, p, err
}

// buildChildDep computes a child dependency from a metadata spec,
// resolving its path relative to the parent.
func (t *Transitive) buildChildDep(item worklistItem, childType manifest.ResourceType, spec Spec, mergeVariants func(global, dep json.RawMessage) (map[string]interface{}, string)) (manifest.ResourceDependency, depKey) {
	child := manifest.ResourceDependency{
		Source: item.dep.Source,
		Path: resolveChildPath(spec.Path, item.dep.Path, item.dep.Source != ""),
		Version: item.dep.Version, // parent's version by default
	}
	if spec.Version != "" {
		child.Version = spec.Version // spec's version wins
	}
	install := spec.Install
	if install == nil {
		t := true
		install = &t
	}
	child.Install = install
	child.TemplateVars = item.dep.TemplateVars // parent's merged template vars

	child.Tool = resolveTool(manifest.ResourceDependency{Tool: spec.Tool}, childType, t.ManifestRef(), item.dep.Tool)

	name := spec.Name
	if name == "" {
		name = syntheticName(child.Path)
	}
	child.Name = name

	_, hash := mergeVariants(t.Manifest.VariantInputs, child.TemplateVars)
	key := depKey{resourceType: childType, name: name, source: child.Source, tool: child.Tool, variantHash: hash}
	return child, key
}

func (t *Transitive) ManifestRef() *manifest.Manifest { return t.Manifest }

// resolveChildPath implements the step 6's path-resolution rule.
func resolveChildPath(childPath, parentPath string, isGitSource bool) string {
	for _, r := range childPath {
		if r == '*' || r == '?' || r == '[' {
			return path.Clean(childPath) // glob: normalize, don't canonicalize
		}
	}
	if strings.HasPrefix(childPath, "./") || strings.HasPrefix(childPath, "../") || !strings.Contains(childPath, "/") {
		parentDir := path.Dir(parentPath)
		return path.Clean(path.Join(parentDir, childPath))
	}
	// repo-relative: strip to worktree/source root, canonicalize under it.
	return path.Clean(strings.TrimPrefix(childPath, "/"))
}

// resolveTool implements the step 6's tool-selection rule: explicit
// spec tool wins; else parent tool if it supports the child's type; else
// the manifest's default tool for the child's type.
func resolveTool(dep manifest.ResourceDependency, rt manifest.ResourceType, m *manifest.Manifest, parentTool string) string {
	if dep.Tool != "" {
		return dep.Tool
	}
	if parentTool != "" {
		if tc, ok := m.Tools[parentTool]; ok {
			for _, supported := range tc.Supported[rt] {
				if supported == parentTool {
					return parentTool
				}
			}
			if _, ok := tc.Resources[rt]; ok {
				return parentTool
			}
		}
	}
	for toolName, tc := range m.Tools {
		if tc.Defaults[rt] != "" {
			return tc.Defaults[rt]
		}
		_ = toolName
	}
	return ""
}

func syntheticName(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

// depRefString formats a dependency-ref string: "type/name" for local
// (sourceless) dependencies, else "source:type/name:version".
func depRefString(rt manifest.ResourceType, name, source, version string) string {
	if source == "" {
		return string(rt) + "/" + name
	}
	return source + ":" + string(rt) + "/" + name + ":" + version
}

func (t *Transitive) topologicalKeys() []depKey {
	nodes := t.graph.TopologicalOrder()
	byNode := map[graph.Node]depKey{}
	for k := range t.allDeps {
		byNode[graph.Node{ResourceType: string(k.resourceType), Name: k.name, Source: k.source}] = k
	}
	out := make([]depKey, 0, len(nodes))
	seen := map[depKey]bool{}
	for _, n := range nodes {
		if k, ok := byNode[n]; ok && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	// Any remaining deps that didn't make it into the graph (leaves with
	// no recorded edge at all) are appended in deterministic key order.
	var rest []depKey
	for k := range t.allDeps {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sortKeys(rest)
	out = append(out, rest...)
	return out
}

func sortKeys(keys []depKey) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0; j-- {
			if keyLess(keys[j], keys[j-1]) {
				keys[j], keys[j-1] = keys[j-1], keys[j]
			} else {
				break
			}
		}
	}
}

func keyLess(a, b depKey) bool {
	if a.resourceType != b.resourceType {
		return a.resourceType < b.resourceType
	}
	if a.name != b.name {
		return a.name < b.name
	}
	return a.source < b.source
}
