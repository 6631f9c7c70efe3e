// Package extract provides a reference Metadata Extractor: the resolver
// treats extraction as an external interface (see resolver.Extractor), but
// a working implementation is needed to drive the CLI end to end, the same
// way internal/cache provides a reference Cache despite cache I/O being
// nominally external too.
//
// Resource content is expected to carry a YAML frontmatter block delimited
// by "---" lines, the convention szaher-agentspec's manifest.go parses with
// gopkg.in/yaml.v3, generalized here to a block embedded at the top of an
// arbitrary file rather than a whole standalone document.
package extract

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agpkg/resolve/internal/manifest"
	"github.com/agpkg/resolve/internal/resolveerr"
	"github.com/agpkg/resolve/internal/resolver"
)

// Frontmatter is the Frontmatter dependency-declaration extractor.
type Frontmatter struct{}

func New() Frontmatter { return Frontmatter{} }

type frontmatterDoc struct {
	Dependencies map[string][]rawSpec `yaml:"dependencies"`
}

type rawSpec struct {
	Path    string `yaml:"path"`
	Version string `yaml:"version"`
	Tool    string `yaml:"tool"`
	Name    string `yaml:"name"`
	Install *bool  `yaml:"install"`
}

// Extract parses content's leading YAML frontmatter block, if any, for a
// "dependencies" section keyed by resource type. variantInputs is accepted
// for interface parity; this reference extractor does no template
// rendering of its own.
func (Frontmatter) Extract(path, content string, _ map[string]interface{}) (resolver.Metadata, error) {
	block, ok := splitFrontmatter(content)
	if !ok {
		return resolver.Metadata{}, nil
	}

	var doc frontmatterDoc
	if err := yaml.Unmarshal([]byte(block), &doc); err != nil {
		return resolver.Metadata{}, &resolveerr.MetadataError{
			Component: resolveerr.ComponentTransitive,
			Path:      path,
			Err:       err,
		}
	}

	md := resolver.Metadata{Dependencies: map[manifest.ResourceType][]resolver.Spec{}}
	for rt, specs := range doc.Dependencies {
		out := make([]resolver.Spec, 0, len(specs))
		for _, s := range specs {
			out = append(out, resolver.Spec{
				Path:    s.Path,
				Version: s.Version,
				Tool:    s.Tool,
				Name:    s.Name,
				Install: s.Install,
			})
		}
		md.Dependencies[manifest.ResourceType(rt)] = out
	}
	return md, nil
}

// splitFrontmatter extracts the YAML block between the first pair of "---"
// delimiter lines. ok is false if content has no frontmatter block.
func splitFrontmatter(content string) (block string, ok bool) {
	const delim = "---"
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != delim {
		return "", false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == delim {
			return strings.Join(lines[1:i], "\n"), true
		}
	}
	return "", false
}
