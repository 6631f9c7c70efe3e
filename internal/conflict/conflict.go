// Package conflict implements the Conflict Detector:
// accumulating (resource_id, requester, constraint, resolved_sha) tuples
// and reporting disagreements.
package conflict

import (
	"sort"

	"github.com/agpkg/resolve/internal/identity"
)

// Requirement is one requester's demand on a resource.
type Requirement struct {
	Requester string
	Constraint string
	ResolvedSHA string
	ParentVersionConstraint string
	ParentResolvedSHA string
}

// VersionConflict reports a resource_id whose requirements disagree on
// resolved_sha.
type VersionConflict struct {
	ResourceId identity.ResourceId
	Requirements []Requirement
}

// Detector accumulates requirements across the whole resolve.
type Detector struct {
	requirements map[identity.ResourceId][]Requirement
	order []identity.ResourceId
}

func New() *Detector {
	return &Detector{requirements: map[identity.ResourceId][]Requirement{}}
}

// AddRequirement records one requester's demand.
func (d *Detector) AddRequirement(id identity.ResourceId, req Requirement) {
	if _, ok := d.requirements[id]; !ok {
		d.order = append(d.order, id)
	}
	d.requirements[id] = append(d.requirements[id], req)
}

// DetectConflicts returns a VersionConflict for every resource_id whose
// requirements contain two distinct resolved_sha values,
// ordered deterministically by resource name then source then tool.
func (d *Detector) DetectConflicts() []VersionConflict {
	var out []VersionConflict
	for _, id := range d.order {
		reqs := d.requirements[id]
		shas := map[string]bool{}
		for _, r := range reqs {
			if r.ResolvedSHA != "" {
				shas[r.ResolvedSHA] = true
			}
		}
		if len(shas) > 1 {
			out = append(out, VersionConflict{ResourceId: id, Requirements: reqs})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].ResourceId, out[j].ResourceId
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		return a.Tool < b.Tool
	})
	return out
}

// ConflictKey is the (resource_id, resolved_sha) pair used to compare
// conflict sets for equality across iterations.
type ConflictKey struct {
	ResourceId identity.ResourceId
	ResolvedSHA string
}

// Keys flattens a conflict set into the multiset of (resource_id,
// resolved_sha) pairs conflict-set equality is defined over.
func Keys(conflicts []VersionConflict) map[ConflictKey]int {
	out := map[ConflictKey]int{}
	for _, c := range conflicts {
		for _, r := range c.Requirements {
			out[ConflictKey{ResourceId: c.ResourceId, ResolvedSHA: r.ResolvedSHA}]++
		}
	}
	return out
}

// Equal reports whether two conflict-key multisets match exactly.
func Equal(a, b map[ConflictKey]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
