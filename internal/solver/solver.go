// Package solver implements the Backtracking Solver: when the
// Conflict Detector reports SHA conflicts, search for a set of version
// choices that removes them, bounded by attempt/iteration/time limits and
// guarded against oscillation.
package solver

import (
	"context"
	"sort"
	"time"

	"github.com/agpkg/resolve/internal/conflict"
	"github.com/agpkg/resolve/internal/identity"
)

// Limits.
const (
	MaxAttempts = 100
	MaxIterations = 10
	MaxDuration = 10 * time.Second
)

// TerminationReason is the closed enum of reasons Solve can stop.
type TerminationReason string

const (
	Success TerminationReason = "Success"
	MaxIterationsHit TerminationReason = "MaxIterations"
	Timeout TerminationReason = "Timeout"
	NoProgress TerminationReason = "NoProgress"
	Oscillation TerminationReason = "Oscillation"
	NoCompatibleVersion TerminationReason = "NoCompatibleVersion"
)

// RegistryEntry is one resource's current state in the solver's
// registry: pre-populated from the Conflict Detector, carrying
// current version/SHA, the original constraint string, and requesters.
// After each change, Version and SHA update; RequiredBy and
// VersionConstraint are preserved.
type RegistryEntry struct {
	ResourceId identity.ResourceId
	Version string
	SHA string
	VersionConstraint string
	RequiredBy []string // "manifest" for direct deps, else the parent resource's name
}

// Registry is the solver's resource registry.
type Registry struct {
	entries map[identity.ResourceId]*RegistryEntry
	order []identity.ResourceId
}

func NewRegistry() *Registry {
	return &Registry{entries: map[identity.ResourceId]*RegistryEntry{}}
}

// AddOrUpdateResource inserts or updates a registry entry, preserving
// RequiredBy/VersionConstraint on update.
func (r *Registry) AddOrUpdateResource(e RegistryEntry) {
	existing, ok := r.entries[e.ResourceId]
	if !ok {
		cp := e
		r.entries[e.ResourceId] = &cp
		r.order = append(r.order, e.ResourceId)
		return
	}
	existing.Version = e.Version
	existing.SHA = e.SHA
}

func (r *Registry) Get(id identity.ResourceId) (*RegistryEntry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

func (r *Registry) All() []*RegistryEntry {
	out := make([]*RegistryEntry, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id])
	}
	return out
}

// VersionUpdate names a parent (or direct dependency) resource whose
// version the solver is changing, and to what.
type VersionUpdate struct {
	ResourceId identity.ResourceId
	OldVersion string
	NewVersion string
	NewSHA string
	VariantHash string
}

// Iteration records one outer-loop pass for the returned history.
type Iteration struct {
	Number int
	Updates []VersionUpdate
	Conflicts []conflict.VersionConflict
}

// Result is what Solve returns.
type Result struct {
	Termination TerminationReason
	History []Iteration
}

// AlternativeVersionFinder finds a VersionUpdate that resolves one
// requirement not on the chosen target SHA. It is supplied
// by the caller because finding an alternative parent version requires
// re-opening worktrees and re-extracting transitive deps, which belong to
// the Version Service / Metadata Extractor, not the solver itself.
type AlternativeVersionFinder interface {
	// FindAlternative attempts to find a version of req's owning resource
	// (the dependency named by req.Requester, or the target resource
	// itself if req.Requester == "manifest") under which the target
	// resource id resolves to targetSHA. attemptsUsed is shared across
	// calls: FindAlternative increments it once per candidate tried, and
	// must stop and return ok=false once it reaches MaxAttempts.
	FindAlternative(ctx context.Context, target identity.ResourceId, req conflict.Requirement, targetSHA string, attemptsUsed *int) (update VersionUpdate, ok bool)
}

// ChangeApplier applies accepted VersionUpdates to the solver's view of
// the world (re-opens the worktree at the new SHA, re-extracts transitive
// deps, rebuilds the conflict detector) and returns the new conflict set.
type ChangeApplier interface {
	Apply(ctx context.Context, updates []VersionUpdate, reg *Registry) ([]conflict.VersionConflict, error)
}

// Solve runs the outer loop until success, a dead-end termination
// condition, or the iteration/time limits are hit.
func Solve(ctx context.Context, reg *Registry, initial []conflict.VersionConflict, finder AlternativeVersionFinder, applier ChangeApplier) (Result, error) {
	start := time.Now()
	attemptsUsed := 0
	current := initial
	var history []Iteration
	var priorConflictSets []map[conflict.ConflictKey]int

	for iteration := 1; iteration <= MaxIterations; iteration++ {
		if time.Since(start) > MaxDuration {
			return Result{Termination: Timeout, History: history}, nil
		}
		if len(current) == 0 {
			return Result{Termination: Success, History: history}, nil
		}

		var updates []VersionUpdate
		for _, c := range current {
			update, ok := resolveSingleConflict(ctx, c, finder, &attemptsUsed)
			if !ok {
				return Result{Termination: NoCompatibleVersion, History: history}, nil
			}
			updates = append(updates, update)
			if attemptsUsed >= MaxAttempts {
				break
			}
		}

		newConflicts, err := applier.Apply(ctx, updates, reg)
		if err != nil {
			return Result{Termination: NoCompatibleVersion, History: history}, err
		}

		history = append(history, Iteration{Number: iteration, Updates: updates, Conflicts: newConflicts})

		if len(newConflicts) == 0 {
			return Result{Termination: Success, History: history}, nil
		}

		newSet := conflict.Keys(newConflicts)
		curSet := conflict.Keys(current)
		if conflict.Equal(newSet, curSet) {
			return Result{Termination: NoProgress, History: history}, nil
		}
		for _, prior := range priorConflictSets {
			if conflict.Equal(newSet, prior) {
				return Result{Termination: Oscillation, History: history}, nil
			}
		}

		priorConflictSets = append(priorConflictSets, curSet)
		current = newConflicts
	}

	return Result{Termination: MaxIterationsHit, History: history}, nil
}

// resolveSingleConflict groups requirements by resolved SHA, picks a
// target SHA, then asks the finder for an update to the first
// non-conforming requirement.
func resolveSingleConflict(ctx context.Context, c conflict.VersionConflict, finder AlternativeVersionFinder, attemptsUsed *int) (VersionUpdate, bool) {
	targetSHA := pickTargetSHA(c.Requirements)

	for _, req := range c.Requirements {
		if req.ResolvedSHA == targetSHA {
			continue
		}
		if *attemptsUsed >= MaxAttempts {
			return VersionUpdate{}, false
		}
		update, ok := finder.FindAlternative(ctx, c.ResourceId, req, targetSHA, attemptsUsed)
		if ok {
			return update, true
		}
	}
	return VersionUpdate{}, false
}

// pickTargetSHA prefers the SHA-group with the most requirements;
// tie-break by preferring groups whose
// requirements parse as semver constraints; final tie-break lexicographic
// on the SHA string.
func pickTargetSHA(reqs []conflict.Requirement) string {
	type group struct {
		sha string
		count int
		hasSemver bool
	}
	bySHA := map[string]*group{}
	var order []string
	for _, r := range reqs {
		g, ok := bySHA[r.ResolvedSHA]
		if !ok {
			g = &group{sha: r.ResolvedSHA}
			bySHA[r.ResolvedSHA] = g
			order = append(order, r.ResolvedSHA)
		}
		g.count++
		if looksLikeSemverConstraint(r.Constraint) {
			g.hasSemver = true
		}
	}

	groups := make([]*group, 0, len(order))
	for _, sha := range order {
		groups = append(groups, bySHA[sha])
	}
	sort.Slice(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.count != b.count {
			return a.count > b.count
		}
		if a.hasSemver != b.hasSemver {
			return a.hasSemver
		}
		return a.sha < b.sha
	})
	return groups[0].sha
}

func looksLikeSemverConstraint(c string) bool {
	for _, r := range c {
		switch r {
		case '^', '~', '>', '<', '=', '.':
			return true
		}
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
