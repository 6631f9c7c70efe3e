package resolver

import (
	"context"
	"path/filepath"

	"github.com/agpkg/resolve/internal/conflict"
	"github.com/agpkg/resolve/internal/expand"
	"github.com/agpkg/resolve/internal/identity"
	"github.com/agpkg/resolve/internal/solver"
	"github.com/agpkg/resolve/internal/version"
	"github.com/agpkg/resolve/internal/versionsvc"
)

// solverBridge implements solver.AlternativeVersionFinder and
// solver.ChangeApplier on top of the Version Service and Metadata
// Extractor: finding an alternative means re-opening the requester's
// worktree at a different tag, re-extracting its declared
// sub-dependencies, and checking whether the conflicted child now
// resolves to the target SHA.
type solverBridge struct {
	core     *Core
	vsvc     *versionsvc.Service
	expander *expand.Expander
	result   *Result
	shaOf    map[depKey]string

	byResourceId map[identity.ResourceId]depKey
}

func (s *solverBridge) index() map[identity.ResourceId]depKey {
	if s.byResourceId == nil {
		s.byResourceId = map[identity.ResourceId]depKey{}
		for k := range s.result.AllDeps {
			s.byResourceId[k.resourceId()] = k
		}
	}
	return s.byResourceId
}

func (s *solverBridge) parentOf(child depKey) (depKey, bool) {
	for parent, children := range s.result.ChildKeys {
		for _, c := range children {
			if c == child {
				return parent, true
			}
		}
	}
	return depKey{}, false
}

// FindAlternative tries successive versions of req's owning resource
// (its requester's parent dependency, or the target itself when the
// requester is "manifest"), re-extracting dependencies at each candidate, until
// the target resource resolves to targetSHA or the attempt budget is
// exhausted.
func (s *solverBridge) FindAlternative(ctx context.Context, target identity.ResourceId, req conflict.Requirement, targetSHA string, attemptsUsed *int) (solver.VersionUpdate, bool) {
	idx := s.index()
	childKey, ok := idx[target]
	if !ok {
		return solver.VersionUpdate{}, false
	}

	var parentKey depKey
	if req.Requester == "manifest" {
		parentKey = childKey
	} else {
		p, ok := s.parentOf(childKey)
		if !ok {
			return solver.VersionUpdate{}, false
		}
		parentKey = p
	}
	parentDep := s.result.AllDeps[parentKey]
	if parentDep.Source == "" {
		return solver.VersionUpdate{}, false
	}

	tags, err := s.vsvc.ListTags(parentDep.Source)
	if err != nil {
		return solver.VersionUpdate{}, false
	}
	candidates, err := version.FilterAndSort(tags, parentDep.VersionSpec())
	if err != nil {
		return solver.VersionUpdate{}, false
	}

	oldVersion := parentDep.VersionSpec()
	for _, candidate := range candidates {
		if candidate == oldVersion {
			continue
		}
		if *attemptsUsed >= solver.MaxAttempts {
			return solver.VersionUpdate{}, false
		}
		*attemptsUsed++

		prepared, err := s.vsvc.PrepareAdditionalVersion(ctx, parentDep.Source, candidate)
		if err != nil {
			continue
		}
		content, err := s.core.fetcher.FetchContent(filepath.Join(prepared.WorktreePath, parentDep.Path), true)
		if err != nil {
			continue
		}
		variantInputs, _ := identity.MergeVariantInputs(s.core.Manifest.VariantInputs, parentDep.TemplateVars)
		md, err := s.core.Extractor.Extract(parentDep.Path, content, variantInputs)
		if err != nil {
			continue
		}

		candidateChildSHA, ok := s.candidateChildSHA(ctx, md, childKey, prepared)
		if !ok || candidateChildSHA != targetSHA {
			continue
		}

		// Side effect: commit this choice into the bridge's working
		// state immediately, since Apply only recomputes conflicts from
		// whatever state FindAlternative already settled on.
		parentDep.Version = candidate
		parentDep.Branch = ""
		parentDep.Rev = ""
		s.result.AllDeps[parentKey] = parentDep
		s.shaOf[parentKey] = prepared.ResolvedCommit
		s.shaOf[childKey] = candidateChildSHA

		return solver.VersionUpdate{
			ResourceId:  parentKey.resourceId(),
			OldVersion:  oldVersion,
			NewVersion:  candidate,
			NewSHA:      prepared.ResolvedCommit,
			VariantHash: parentKey.variantHash,
		}, true
	}
	return solver.VersionUpdate{}, false
}

// candidateChildSHA finds the metadata spec matching childKey's
// declared path and resolves what its SHA would be in the parent's
// candidate-version worktree.
func (s *solverBridge) candidateChildSHA(ctx context.Context, md Metadata, childKey depKey, prepared *versionsvc.PreparedSourceVersion) (string, bool) {
	specs := md.Dependencies[childKey.resourceType]
	for _, spec := range specs {
		name := spec.Name
		if name == "" {
			name = syntheticName(spec.Path)
		}
		if name != childKey.name {
			continue
		}
		v := spec.Version
		if v == "" {
			v = prepared.ResolvedVersion
		}
		sha, err := s.vsvc.ResolveVersionToSHA(ctx, childKey.source, v)
		if err != nil {
			return "", false
		}
		return sha, true
	}
	return "", false
}

// Apply recomputes the conflict set from whatever state FindAlternative
// already committed for this round's updates.
func (s *solverBridge) Apply(ctx context.Context, updates []solver.VersionUpdate, reg *solver.Registry) ([]conflict.VersionConflict, error) {
	for _, u := range updates {
		if e, ok := reg.Get(u.ResourceId); ok {
			e.Version = u.NewVersion
			e.SHA = u.NewSHA
		}
	}
	return s.core.buildConflicts(s.result, s.shaOf), nil
}

