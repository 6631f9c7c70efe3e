package manifest

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pelletier/go-toml"
)

// ManifestName is the conventional on-disk manifest filename.
const ManifestName = "manifest.toml"

// Load reads and converts a manifest document, following the same
// raw-tree-to-typed-struct pattern golang-dep's manifest.go uses for its
// own manifest: decode into a loosely-typed tree first, then convert
// field-by-field, erroring on invalid combinations (e.g. both branch and
// version set on one dependency).
func Load(r io.Reader) (*Manifest, error) {
	tree, err := toml.LoadReader(r)
	if err != nil {
		return nil, fmt.Errorf("manifest: parse: %w", err)
	}

	m := &Manifest{
		Dependencies: make(map[ResourceType]map[string]ResourceDependency),
		Sources:      map[string]string{},
		Tools:        map[string]ToolConfig{},
	}

	if sources, ok := tree.Get("sources").(*toml.Tree); ok {
		for _, k := range sources.Keys() {
			if url, ok := sources.Get(k).(string); ok {
				m.Sources[k] = url
			}
		}
	}

	for _, rt := range AllResourceTypes {
		section, ok := tree.Get(string(rt)).(*toml.Tree)
		if !ok {
			continue
		}
		deps := make(map[string]ResourceDependency, len(section.Keys()))
		for _, name := range section.Keys() {
			raw := section.Get(name)
			dep, err := toDependency(raw)
			if err != nil {
				return nil, fmt.Errorf("manifest: %s.%s: %w", rt, name, err)
			}
			deps[name] = dep
		}
		m.Dependencies[rt] = deps
	}

	if tools, ok := tree.Get("tools").(*toml.Tree); ok {
		for _, name := range tools.Keys() {
			toolTree, ok := tools.Get(name).(*toml.Tree)
			if !ok {
				continue
			}
			m.Tools[name] = toToolConfig(toolTree)
		}
	}

	if project, ok := tree.Get("project").(*toml.Tree); ok {
		if vi, ok := project.Get("variant_inputs").(*toml.Tree); ok {
			m.VariantInputs = treeToJSON(vi)
		}
	}

	if patches, ok := tree.Get("patches").(*toml.Tree); ok {
		m.Patches = make(map[string]json.RawMessage, len(patches.Keys()))
		for _, k := range patches.Keys() {
			if pt, ok := patches.Get(k).(*toml.Tree); ok {
				m.Patches[k] = treeToJSON(pt)
			}
		}
	}

	return m, nil
}

// toDependency converts one dependency entry, which is either a bare path
// string (Simple) or a table (Detailed). Mirrors toProps in
// golang-dep/manifest.go: interpret the raw shape, reject ambiguous
// combinations, default the rest.
func toDependency(raw interface{}) (ResourceDependency, error) {
	switch v := raw.(type) {
	case string:
		return ResourceDependency{IsSimple: true, Path: v}, nil
	case *toml.Tree:
		d := ResourceDependency{
			Source:   getString(v, "source"),
			Path:     getString(v, "path"),
			Version:  getString(v, "version"),
			Branch:   getString(v, "branch"),
			Rev:      getString(v, "rev"),
			Target:   getString(v, "target"),
			Filename: getString(v, "filename"),
			Tool:     getString(v, "tool"),
			Name:     getString(v, "name"),
		}
		if f, ok := v.Get("flatten").(bool); ok {
			d.Flatten = &f
		}
		if i, ok := v.Get("install").(bool); ok {
			d.Install = &i
		}
		if tv, ok := v.Get("template_vars").(*toml.Tree); ok {
			d.TemplateVars = treeToJSON(tv)
		}
		if d.Path == "" {
			return d, fmt.Errorf("missing path")
		}
		set := 0
		for _, s := range []string{d.Version, d.Branch, d.Rev} {
			if s != "" {
				set++
			}
		}
		if set > 1 {
			return d, fmt.Errorf("only one of version/branch/rev may be set")
		}
		return d, nil
	default:
		return ResourceDependency{}, fmt.Errorf("dependency must be a string or table, got %T", raw)
	}
}

// treeToJSON converts a toml.Tree into canonical JSON bytes, used to carry
// template-variable bundles (variant_inputs, template_vars, patches) as
// opaque json.RawMessage through the rest of the resolver, which only ever
// needs to hash and deep-merge them, never interpret their shape.
func treeToJSON(t *toml.Tree) json.RawMessage {
	b, err := json.Marshal(t.ToMap())
	if err != nil {
		return json.RawMessage("{}")
	}
	return b
}

func getString(t *toml.Tree, key string) string {
	if s, ok := t.Get(key).(string); ok {
		return s
	}
	return ""
}

func toToolConfig(t *toml.Tree) ToolConfig {
	tc := ToolConfig{
		Resources:    map[ResourceType]ToolResourceConfig{},
		MergeTargets: map[ResourceType]string{},
		Defaults:     map[ResourceType]string{},
		Supported:    map[ResourceType][]string{},
	}
	if resources, ok := t.Get("resources").(*toml.Tree); ok {
		for _, k := range resources.Keys() {
			rt := ResourceType(k)
			if rc, ok := resources.Get(k).(*toml.Tree); ok {
				cfg := ToolResourceConfig{Path: getString(rc, "path")}
				if f, ok := rc.Get("flatten").(bool); ok {
					cfg.Flatten = &f
				}
				tc.Resources[rt] = cfg
			}
		}
	}
	if mt, ok := t.Get("merge_targets").(*toml.Tree); ok {
		for _, k := range mt.Keys() {
			tc.MergeTargets[ResourceType(k)] = getString(mt, k)
		}
	}
	if d, ok := t.Get("defaults").(*toml.Tree); ok {
		for _, k := range d.Keys() {
			tc.Defaults[ResourceType(k)] = getString(d, k)
		}
	}
	if s, ok := t.Get("supported").(*toml.Tree); ok {
		for _, k := range s.Keys() {
			if arr, ok := s.Get(k).([]interface{}); ok {
				list := make([]string, 0, len(arr))
				for _, e := range arr {
					if es, ok := e.(string); ok {
						list = append(list, es)
					}
				}
				tc.Supported[ResourceType(k)] = list
			}
		}
	}
	return tc
}
