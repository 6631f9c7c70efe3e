package lockfile

import (
	"sort"
	"strings"

	"github.com/agpkg/resolve/internal/resolveerr"
)

// Builder accumulates LockedResource entries per resource type and
// performs dedup/merge, stale-entry removal, and the post-resolution
// rewrite pass.
type Builder struct {
	entries map[string][]LockedResource // resource_type -> entries, insertion order preserved
}

func NewBuilder() *Builder {
	return &Builder{entries: map[string][]LockedResource{}}
}

// IsDuplicateEntry implements the dedup key:
// - if both have manifest_alias and they differ: not duplicate.
// - else duplicate iff (name, source, tool, variant_inputs_hash) match.
// - additionally, for local-only deps: duplicate iff (path, tool,
// variant_inputs_hash) match.
func IsDuplicateEntry(existing, candidate LockedResource) bool {
	if existing.ManifestAlias != nil && candidate.ManifestAlias != nil {
		if *existing.ManifestAlias != *candidate.ManifestAlias {
			return false
		}
	}

	if existing.Name == candidate.Name &&
		existing.Source == candidate.Source &&
		existing.Tool == candidate.Tool &&
		existing.VariantHash == candidate.VariantHash {
		return true
	}

	if existing.Source == "" && candidate.Source == "" {
		if existing.Path == candidate.Path &&
			existing.Tool == candidate.Tool &&
			existing.VariantHash == candidate.VariantHash {
			return true
		}
	}

	return false
}

// ShouldReplaceDuplicate implements the deterministic merge priority:
// 1. manifest_alias=Some beats manifest_alias=None.
// 2. install=true beats install=false.
// 3. Otherwise keep existing (first-wins).
func ShouldReplaceDuplicate(existing, candidate LockedResource) bool {
	existingAlias := existing.ManifestAlias != nil
	candidateAlias := candidate.ManifestAlias != nil
	if existingAlias != candidateAlias {
		return candidateAlias
	}

	if existing.Install != candidate.Install {
		return candidate.Install
	}

	return false
}

// AddOrUpdateLockfileEntry inserts entry into resourceType's list,
// replacing a duplicate per ShouldReplaceDuplicate, or appending if no
// duplicate is found.
func (b *Builder) AddOrUpdateLockfileEntry(resourceType string, entry LockedResource) {
	list := b.entries[resourceType]
	for i, existing := range list {
		if IsDuplicateEntry(existing, entry) {
			if ShouldReplaceDuplicate(existing, entry) {
				list[i] = entry
			}
			b.entries[resourceType] = list
			return
		}
	}
	b.entries[resourceType] = append(list, entry)
}

// Entries returns the current entries for a resource type.
func (b *Builder) Entries(resourceType string) []LockedResource {
	return b.entries[resourceType]
}

// ResourceTypes returns every resource type with at least one entry, in
// map iteration order (not deterministic).
func (b *Builder) ResourceTypes() []string {
	// Stable: map iteration order isn't guaranteed, so callers that need
	// full determinism should pass the canonical type list instead; this
	// is provided for convenience only.
	out := make([]string, 0, len(b.entries))
	for k := range b.entries {
		out = append(out, k)
	}
	return out
}

// entryIdentity is the key a stale root or transitive child is looked up
// by when walking dependency refs during stale-entry pruning.
type entryIdentity struct {
	resourceType string
	name string
	source string
}

// RemoveStaleManifestEntries drops any lockfile entry whose manifest_alias
// is no longer present in the manifest for its resource type, and
// recursively removes its transitive closure,
// following source inheritance: a child inherits its parent's source
// unless its dependency ref explicitly names another. This prunes
// symmetrically across all resource types, including Skill. An entry with
// no manifest_alias is never judged stale by its name; it is removed only
// when it lies in the closure of a stale root.
func (b *Builder) RemoveStaleManifestEntries(manifestKeys map[string]map[string]bool) {
	byIdentity := map[entryIdentity]LockedResource{}
	for rt, list := range b.entries {
		for _, e := range list {
			byIdentity[entryIdentity{rt, e.Name, e.Source}] = e
		}
	}

	stale := map[entryIdentity]bool{}
	for rt, list := range b.entries {
		keys := manifestKeys[rt]
		for _, e := range list {
			alias := e.Name
			if e.ManifestAlias != nil {
				alias = *e.ManifestAlias
			} else if e.ManifestAlias == nil {
				// purely transitive entries are never stale roots
				// themselves; they're only removed via closure walk.
				continue
			}
			if keys == nil || !keys[alias] {
				stale[entryIdentity{rt, e.Name, e.Source}] = true
			}
		}
	}

	toRemove := map[entryIdentity]bool{}
	var walk func(entryIdentity)
	walk = func(id entryIdentity) {
		if toRemove[id] {
			return
		}
		toRemove[id] = true
		e, ok := byIdentity[id]
		if !ok {
			return
		}
		for _, ref := range e.Dependencies {
			childType, childName, childSource, ok := parseDepRef(ref, e.Source)
			if !ok {
				continue
			}
			walk(entryIdentity{childType, childName, childSource})
		}
	}
	for id := range stale {
		walk(id)
	}

	for rt, list := range b.entries {
		kept := list[:0]
		for _, e := range list {
			if !toRemove[entryIdentity{rt, e.Name, e.Source}] {
				kept = append(kept, e)
			}
		}
		b.entries[rt] = kept
	}
}

// parseDepRef parses a dependency ref of the form "type/name" (same-source
// intra-lockfile reference, inheriting parentSource) or
// "source:type/path:version".
func parseDepRef(ref, parentSource string) (resourceType, name, source string, ok bool) {
	rest := ref
	source = parentSource
	if i := strings.Index(ref, ":"); i >= 0 && strings.Contains(ref[i+1:], "/") {
		maybeSource := ref[:i]
		after := ref[i+1:]
		if strings.Contains(after, "/") && !strings.HasPrefix(maybeSource, "/") {
			source = maybeSource
			rest = after
			if j := strings.LastIndex(rest, ":"); j >= 0 {
				rest = rest[:j]
			}
		}
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 {
		return "", "", "", false
	}
	return parts[0], parts[1], source, true
}

// RewriteDependencyRefs walks every entry and rewrites each dependency-ref
// string to include the referenced resource's version where missing
//.
func (b *Builder) RewriteDependencyRefs() {
	versionByIdentity := map[entryIdentity]string{}
	for rt, list := range b.entries {
		for _, e := range list {
			versionByIdentity[entryIdentity{rt, e.Name, e.Source}] = e.Version
		}
	}
	for rt, list := range b.entries {
		for i, e := range list {
			rewritten := make([]string, len(e.Dependencies))
			for j, ref := range e.Dependencies {
				childType, childName, childSource, ok := parseDepRef(ref, e.Source)
				if !ok || strings.Contains(ref, ":") && strings.Count(ref, ":") >= 2 {
					rewritten[j] = ref
					continue
				}
				v := versionByIdentity[entryIdentity{childType, childName, childSource}]
				if v == "" || childSource == "" {
					rewritten[j] = ref
					continue
				}
				rewritten[j] = childSource + ":" + childType + "/" + childName + ":" + v
			}
			list[i].Dependencies = rewritten
		}
		b.entries[rt] = list
	}
}

// SortEntries orders every resource type's list by (manifest_alias.is_some(),
// name, source) for a stable, diffable lockfile across runs.
func (b *Builder) SortEntries() {
	for rt, list := range b.entries {
		sort.SliceStable(list, func(i, j int) bool {
			a, c := list[i], list[j]
			aHas, cHas := a.ManifestAlias != nil, c.ManifestAlias != nil
			if aHas != cHas {
				return !aHas && cHas
			}
			if a.Name != c.Name {
				return a.Name < c.Name
			}
			return a.Source < c.Source
		})
		b.entries[rt] = list
	}
}

// DetectTargetConflicts fails if two distinct entries share an
// installed_at path with incompatible contents.
func (b *Builder) DetectTargetConflicts() error {
	byTarget := map[string]LockedResource{}
	for _, list := range b.entries {
		for _, e := range list {
			if prev, ok := byTarget[e.InstalledAt]; ok {
				if prev.Name != e.Name || prev.Source != e.Source || prev.ResolvedCommit != e.ResolvedCommit {
					return &resolveerr.TargetConflictError{
						Component: resolveerr.ComponentLockfile,
						InstallPath: e.InstalledAt,
					}
				}
				continue
			}
			byTarget[e.InstalledAt] = e
		}
	}
	return nil
}
