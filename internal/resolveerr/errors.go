// Package resolveerr defines the error taxonomy surfaced by the resolver.
//
// Every error the resolver returns is one of these concrete types so callers
// can switch on them instead of matching strings. Each carries the
// component that raised it and the resource or path in question, mirroring
// the context golang-dep's solver errors (errors.go) attach by hand at each
// call boundary.
package resolveerr

import "fmt"

// Component names errors attach themselves to for diagnostics.
const (
	ComponentVersionService  = "version_service"
	ComponentPatternExpander = "pattern_expander"
	ComponentResourceFetcher = "resource_fetcher"
	ComponentTransitive      = "transitive_resolver"
	ComponentGraph           = "dependency_graph"
	ComponentConflict        = "conflict_detector"
	ComponentSolver          = "backtracking_solver"
	ComponentPathResolver    = "path_resolver"
	ComponentLockfile        = "lockfile_builder"
)

// ManifestError covers missing sources, unknown tools, and unsupported
// resource/tool combinations.
type ManifestError struct {
	Component string
	Op        string
	Detail    string
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Component, e.Op, e.Detail)
}

// GitError wraps a failed clone/fetch/ref-resolve/tag-list operation.
// The resolver never retries these; a Cache implementation may.
type GitError struct {
	Component string
	Op        string
	Source    string
	Err       error
}

func (e *GitError) Error() string {
	return fmt.Sprintf("%s: %s on source %q: %s", e.Component, e.Op, e.Source, e.Err)
}

func (e *GitError) Unwrap() error { return e.Err }

// VersionResolutionError indicates a constraint with no matching tag.
type VersionResolutionError struct {
	Component  string
	Source     string
	Constraint string
}

func (e *VersionResolutionError) Error() string {
	return fmt.Sprintf("%s: no tag in %q satisfies constraint %q", e.Component, e.Source, e.Constraint)
}

// CanonicalizeError indicates a local path that doesn't exist.
// Worktree reads retry briefly before surfacing this; see resource package.
type CanonicalizeError struct {
	Component string
	Path      string
	Err       error
}

func (e *CanonicalizeError) Error() string {
	return fmt.Sprintf("%s: cannot canonicalize %q: %s", e.Component, e.Path, e.Err)
}

func (e *CanonicalizeError) Unwrap() error { return e.Err }

// CycleError reports a cycle found in the dependency graph.
type CycleError struct {
	Component string
	Nodes     []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%s: circular dependency: %v", e.Component, e.Nodes)
}

// VersionConflictError is raised when the Conflict Detector finds
// disagreeing SHAs and the Backtracking Solver fails to resolve them.
// TerminationReason and History give the caller the full solver trace.
type VersionConflictError struct {
	Component        string
	TerminationReason string
	History          []string
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("%s: unresolved version conflicts (%s) after %d iterations",
		e.Component, e.TerminationReason, len(e.History))
}

// TargetConflictError reports two locked entries installed to the same
// path.
type TargetConflictError struct {
	Component  string
	InstallPath string
}

func (e *TargetConflictError) Error() string {
	return fmt.Sprintf("%s: two resources would install to %q", e.Component, e.InstallPath)
}

// MetadataError wraps a failure from the external Metadata Extractor:
// invalid frontmatter, template rendering failure, etc.
type MetadataError struct {
	Component string
	Path      string
	Err       error
}

func (e *MetadataError) Error() string {
	return fmt.Sprintf("%s: metadata extraction failed for %q: %s", e.Component, e.Path, e.Err)
}

func (e *MetadataError) Unwrap() error { return e.Err }
