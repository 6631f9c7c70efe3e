// Package resolver implements the Resolution Core and the Transitive
// Resolver: the BFS that discovers the full dependency set
// from a manifest's base dependencies, plus the top-level orchestration
// described in the data-flow diagram.
package resolver

import "github.com/agpkg/resolve/internal/manifest"

// Spec is one declared sub-dependency surfaced by the Metadata Extractor:
// at minimum a path, with optional version/tool/name/install overrides.
type Spec struct {
	Path    string
	Version string
	Tool    string
	Name    string
	Install *bool
}

// Metadata is what the external Metadata Extractor returns for one
// resource's content.
type Metadata struct {
	Dependencies map[manifest.ResourceType][]Spec
}

// Extractor is the external Metadata Extractor interface:
// parses resource content for declared sub-dependency specs. Template
// rendering is internal to the extractor; the resolver only passes the
// merged variant-input bundle through.
type Extractor interface {
	Extract(path, content string, variantInputs map[string]interface{}) (Metadata, error)
}
