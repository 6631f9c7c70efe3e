package resolver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agpkg/resolve/internal/cache"
	"github.com/agpkg/resolve/internal/conflict"
	"github.com/agpkg/resolve/internal/expand"
	"github.com/agpkg/resolve/internal/identity"
	"github.com/agpkg/resolve/internal/lockfile"
	"github.com/agpkg/resolve/internal/logging"
	"github.com/agpkg/resolve/internal/manifest"
	"github.com/agpkg/resolve/internal/pathresolve"
	"github.com/agpkg/resolve/internal/resolveerr"
	"github.com/agpkg/resolve/internal/resource"
	"github.com/agpkg/resolve/internal/solver"
	"github.com/agpkg/resolve/internal/versionsvc"
)

// Core is the Resolution Core: it wires the Version Service, the
// Transitive Resolver, the Conflict Detector, the Backtracking Solver,
// the Path Resolver, and the Lockfile Builder into one top-level
// operation that turns a manifest into a lockfile.
type Core struct {
	Manifest  *manifest.Loaded
	Cache     cache.Cache
	Sources   cache.SourceManager
	Extractor Extractor
	Log       logging.Logger

	fetcher resource.Fetcher
}

func NewCore(m *manifest.Loaded, c cache.Cache, sm cache.SourceManager, ex Extractor, log logging.Logger) *Core {
	if log == nil {
		log = logging.Nop{}
	}
	return &Core{Manifest: m, Cache: c, Sources: sm, Extractor: ex, Log: log, fetcher: resource.New()}
}

// Resolve runs one full resolution pass and returns the resulting
// lockfile.
func (c *Core) Resolve(ctx context.Context) (*lockfile.Lockfile, error) {
	vsvc := versionsvc.New(c.Cache, c.Sources, c.Log)
	expander := expand.New(c.Cache, c.Sources, vsvc, c.Log)

	var baseDeps []versionsvc.BaseDep
	for _, deps := range c.Manifest.Dependencies {
		for _, dep := range deps {
			if dep.Source != "" {
				baseDeps = append(baseDeps, versionsvc.BaseDep{Source: dep.Source, Version: dep.VersionSpec()})
			}
		}
	}
	if err := vsvc.PreSyncSources(ctx, baseDeps); err != nil {
		return nil, err
	}

	trans := &Transitive{
		Manifest:    &c.Manifest.Manifest,
		ManifestDir: c.Manifest.Dir,
		Expander:    expander,
		Fetcher:     c.fetcher,
		Extractor:   c.Extractor,
		Vsvc:        vsvc,
		Log:         c.Log,
	}
	result, err := trans.Resolve(ctx, identity.MergeVariantInputs)
	if err != nil {
		return nil, err
	}

	shaOf, err := c.resolveSHAs(ctx, vsvc, result)
	if err != nil {
		return nil, err
	}

	conflicts := c.buildConflicts(result, shaOf)
	if len(conflicts) > 0 {
		c.Log.Infof("conflict detector found %d version conflicts, invoking backtracking solver", len(conflicts))
		reg := c.buildRegistry(result, shaOf)
		bridge := &solverBridge{core: c, vsvc: vsvc, expander: expander, result: result, shaOf: shaOf}
		solveResult, err := solver.Solve(ctx, reg, conflicts, bridge, bridge)
		if err != nil {
			return nil, err
		}
		if solveResult.Termination != solver.Success {
			history := make([]string, len(solveResult.History))
			for i, it := range solveResult.History {
				history[i] = fmt.Sprintf("iteration %d: %d conflicts remaining", it.Number, len(it.Conflicts))
			}
			return nil, &resolveerr.VersionConflictError{
				Component:         resolveerr.ComponentSolver,
				TerminationReason: string(solveResult.Termination),
				History:           history,
			}
		}
		result = bridge.result
		shaOf = bridge.shaOf
	}

	return c.buildLockfile(result, shaOf)
}

// resolveSHAs resolves every remote entry's version constraint to a
// commit SHA via the Version Service (base dependencies are already
// memoized by PreSyncSources).
func (c *Core) resolveSHAs(ctx context.Context, vsvc *versionsvc.Service, result *Result) (map[depKey]string, error) {
	out := map[depKey]string{}
	for key, dep := range result.AllDeps {
		if dep.Source == "" {
			continue
		}
		// The Pattern Expander already resolves remote pattern matches to
		// a full SHA; everything else still carries a ref/tag/constraint.
		if looksLikeSHA(dep.Version) {
			out[key] = dep.Version
			continue
		}
		sha, err := vsvc.ResolveVersionToSHA(ctx, dep.Source, dep.VersionSpec())
		if err != nil {
			return nil, err
		}
		out[key] = sha
	}
	return out, nil
}

func looksLikeSHA(s string) bool {
	if len(s) != 40 {
		return false
	}
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')) {
			return false
		}
	}
	return true
}

// buildConflicts rebuilds the conflict set with resolved SHAs filled in
// (the Transitive Resolver's own detector only has constraints, since
// SHA resolution happens after the BFS completes).
func (c *Core) buildConflicts(result *Result, shaOf map[depKey]string) []conflict.VersionConflict {
	det := conflict.New()
	for _, key := range result.BaseDeps {
		dep := result.AllDeps[key]
		det.AddRequirement(key.resourceId(), conflict.Requirement{
			Requester:   "manifest",
			Constraint:  dep.VersionSpec(),
			ResolvedSHA: shaOf[key],
		})
	}
	for parent, children := range result.ChildKeys {
		for _, childKey := range children {
			childDep := result.AllDeps[childKey]
			det.AddRequirement(childKey.resourceId(), conflict.Requirement{
				Requester:   parent.name,
				Constraint:  childDep.VersionSpec(),
				ResolvedSHA: shaOf[childKey],
			})
		}
	}
	return det.DetectConflicts()
}

func (c *Core) buildRegistry(result *Result, shaOf map[depKey]string) *solver.Registry {
	reg := solver.NewRegistry()
	requiredBy := map[depKey][]string{}
	for parent, children := range result.ChildKeys {
		for _, child := range children {
			requiredBy[child] = append(requiredBy[child], parent.name)
		}
	}
	for key, dep := range result.AllDeps {
		if dep.Source == "" {
			continue
		}
		by := requiredBy[key]
		if by == nil {
			by = []string{"manifest"}
		}
		reg.AddOrUpdateResource(solver.RegistryEntry{
			ResourceId:        key.resourceId(),
			Version:           dep.VersionSpec(),
			SHA:               shaOf[key],
			VersionConstraint: dep.VersionSpec(),
			RequiredBy:        by,
		})
	}
	return reg
}

// buildLockfile assembles the final lockfile: dedup/merge, stale-entry
// removal against the current manifest, dependency-ref rewriting, and
// target-conflict validation, via the Path Resolver and Lockfile
// Builder.
func (c *Core) buildLockfile(result *Result, shaOf map[depKey]string) (*lockfile.Lockfile, error) {
	b := lockfile.NewBuilder()

	for _, key := range result.Order {
		dep := result.AllDeps[key]
		tc := c.Manifest.Tools[dep.Tool]
		target := pathresolve.Resolve(dep, key.resourceType, dep.Tool, tc)

		install := true
		if dep.Install != nil {
			install = *dep.Install
		}

		var alias *string
		if name, ok := result.CustomNames[key]; ok {
			alias = &name
		} else if _, ok := result.PatternAlias[key]; !ok {
			if isBaseDep(c.Manifest, key) {
				n := key.name
				alias = &n
			}
		}

		merged, _ := identity.MergeVariantInputs(c.Manifest.VariantInputs, dep.TemplateVars)
		variantInputs, _ := json.Marshal(merged)
		if len(merged) == 0 {
			variantInputs = nil
		}

		entry := lockfile.LockedResource{
			Name:           key.name,
			Source:         key.source,
			URL:            sourceURL(c.Sources, key.source),
			Path:           dep.Path,
			Version:        dep.VersionSpec(),
			ResolvedCommit: shaOf[key],
			InstalledAt:    target,
			Dependencies:   result.DependencyMap[key],
			ResourceType:   string(key.resourceType),
			Tool:           dep.Tool,
			ManifestAlias:  alias,
			Install:        install,
			VariantInputs:  variantInputs,
			VariantHash:    key.variantHash,
		}
		b.AddOrUpdateLockfileEntry(string(key.resourceType), entry)
	}

	manifestKeys := map[string]map[string]bool{}
	for rt, deps := range c.Manifest.Dependencies {
		m := map[string]bool{}
		for name := range deps {
			m[name] = true
		}
		manifestKeys[string(rt)] = m
	}
	b.RemoveStaleManifestEntries(manifestKeys)
	b.RewriteDependencyRefs()
	b.SortEntries()
	if err := b.DetectTargetConflicts(); err != nil {
		return nil, err
	}

	lf := &lockfile.Lockfile{Sources: map[string]string{}, Resources: map[string][]lockfile.LockedResource{}}
	for name := range c.Manifest.Sources {
		if url, ok := c.Sources.GetSourceURL(name); ok {
			lf.Sources[name] = url
		}
	}
	for _, rt := range manifest.AllResourceTypes {
		if entries := b.Entries(string(rt)); len(entries) > 0 {
			lf.Resources[string(rt)] = entries
		}
	}
	return lf, nil
}

func isBaseDep(m *manifest.Loaded, key depKey) bool {
	deps, ok := m.Dependencies[key.resourceType]
	if !ok {
		return false
	}
	dep, ok := deps[key.name]
	return ok && dep.Source == key.source
}

func sourceURL(sm cache.SourceManager, source string) string {
	if source == "" {
		return ""
	}
	url, _ := sm.GetSourceURL(source)
	return url
}
