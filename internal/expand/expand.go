// Package expand ties the Pattern Expander's glob/skill matching
// (internal/pattern) to manifest dependency shapes and canonical naming,
// including the source-context rule for computing a stable name from a
// matched path.
package expand

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/agpkg/resolve/internal/cache"
	"github.com/agpkg/resolve/internal/logging"
	"github.com/agpkg/resolve/internal/manifest"
	"github.com/agpkg/resolve/internal/pattern"
	"github.com/agpkg/resolve/internal/resolveerr"
	"github.com/agpkg/resolve/internal/versionsvc"
)

// Expander is the Pattern Expander component.
type Expander struct {
	Cache cache.Cache
	Sources cache.SourceManager
	Vsvc *versionsvc.Service
	Log logging.Logger

	resolver pattern.Resolver
}

func New(c cache.Cache, sm cache.SourceManager, vs *versionsvc.Service, log logging.Logger) *Expander {
	if log == nil {
		log = logging.Nop{}
	}
	return &Expander{Cache: c, Sources: sm, Vsvc: vs, Log: log, resolver: pattern.NewResolver()}
}

// Expand converts a pattern dependency into concrete dependencies.
// manifestDir is the manifest's containing directory, used as the base
// and source context for local patterns.
func (e *Expander) Expand(ctx context.Context, dep manifest.ResourceDependency, rt manifest.ResourceType, manifestDir string) ([]manifest.ResourceDependency, error) {
	if dep.IsLocal() {
		return e.expandLocal(dep, rt, manifestDir)
	}
	return e.expandRemote(ctx, dep, rt)
}

func (e *Expander) expandLocal(dep manifest.ResourceDependency, rt manifest.ResourceType, manifestDir string) ([]manifest.ResourceDependency, error) {
	var base, globPattern string
	if filepath.IsAbs(dep.Path) {
		base, globPattern = pattern.SplitAbsolutePattern(dep.Path)
	} else {
		base = manifestDir
		globPattern = dep.Path
	}

	var matchedPaths []string
	if rt == manifest.Skill {
		matches, err := pattern.MatchSkillDirectories(base, globPattern, "", e.Log)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			matchedPaths = append(matchedPaths, m.Path)
		}
	} else {
		matches, err := e.resolver.Resolve(globPattern, base)
		if err != nil {
			return nil, err
		}
		matchedPaths = matches
	}

	e.Log.Debugf("pattern %q matched %d local files under %q", dep.Path, len(matchedPaths), base)

	out := make([]manifest.ResourceDependency, 0, len(matchedPaths))
	seen := map[string]bool{}
	for _, rel := range matchedPaths {
		absPath := filepath.Join(base, rel)
		name, err := CanonicalName(absPath, SourceContext{Local: true, Root: manifestDir})
		if err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, &resolveerr.ManifestError{
				Component: resolveerr.ComponentPatternExpander,
				Op: "expand",
				Detail: fmt.Sprintf("canonical name collision for %q", name),
			}
		}
		seen[name] = true
		child := dep
		child.IsSimple = false
		child.Path = absPath
		child.Name = name
		child.Version = ""
		child.Branch = ""
		child.Rev = ""
		out = append(out, child)
	}
	return out, nil
}

func (e *Expander) expandRemote(ctx context.Context, dep manifest.ResourceDependency, rt manifest.ResourceType) ([]manifest.ResourceDependency, error) {
	if dep.Source == "" {
		return nil, &resolveerr.ManifestError{
			Component: resolveerr.ComponentPatternExpander,
			Op: "expand",
			Detail: fmt.Sprintf("remote pattern %q missing source", dep.Path),
		}
	}
	url, ok := e.Sources.GetSourceURL(dep.Source)
	if !ok {
		return nil, &resolveerr.ManifestError{
			Component: resolveerr.ComponentPatternExpander,
			Op: "expand",
			Detail: fmt.Sprintf("source %q not found", dep.Source),
		}
	}
	if err := e.Cache.CloneOrFetch(ctx, dep.Source, url); err != nil {
		return nil, &resolveerr.GitError{Component: resolveerr.ComponentPatternExpander, Op: "clone_or_fetch", Source: dep.Source, Err: err}
	}
	versionKey := dep.VersionSpec()
	sha, err := e.Vsvc.ResolveVersionToSHA(ctx, dep.Source, versionKey)
	if err != nil {
		return nil, err
	}
	worktree, err := e.Cache.GetOrCreateWorktreeForSHA(ctx, dep.Source, url, sha, versionKey)
	if err != nil {
		return nil, &resolveerr.GitError{Component: resolveerr.ComponentPatternExpander, Op: "get_or_create_worktree_for_sha", Source: dep.Source, Err: err}
	}

	var matchedPaths []string
	if rt == manifest.Skill {
		matches, err := pattern.MatchSkillDirectories(worktree, dep.Path, worktree, e.Log)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			matchedPaths = append(matchedPaths, m.Path)
		}
	} else {
		matches, err := e.resolver.Resolve(dep.Path, worktree)
		if err != nil {
			return nil, err
		}
		matchedPaths = matches
	}
	e.Log.Debugf("remote pattern %q in %q matched %d files", dep.Path, dep.Source, len(matchedPaths))

	out := make([]manifest.ResourceDependency, 0, len(matchedPaths))
	seen := map[string]bool{}
	for _, rel := range matchedPaths {
		name, err := CanonicalName(rel, SourceContext{Local: false, Root: worktree})
		if err != nil {
			return nil, err
		}
		if seen[name] {
			return nil, &resolveerr.ManifestError{
				Component: resolveerr.ComponentPatternExpander,
				Op: "expand",
				Detail: fmt.Sprintf("canonical name collision for %q", name),
			}
		}
		seen[name] = true
		child := dep
		child.IsSimple = false
		child.Path = rel
		child.Version = sha
		child.Branch = ""
		child.Rev = ""
		child.Name = name
		out = append(out, child)
	}
	return out, nil
}
