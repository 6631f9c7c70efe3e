package resolver

import (
	"encoding/json"

	"github.com/agpkg/resolve/internal/manifest"
)

// overrideKey is the derived identity tuple manifest overrides are looked
// up by.
type overrideKey struct {
	resourceType manifest.ResourceType
	path         string // normalized
	source       string
	tool         string
	variantHash  string
}

// override is the field-by-field merge payload applied onto a discovered
// transitive child.
type override struct {
	alias        string
	filename     string
	target       string
	install      *bool
	templateVars json.RawMessage
}

// overrideIndex is built once from base (non-pattern) manifest
// dependencies, using each one's own merged variant inputs so the hash
// matches the hash future locked/discovered entries will carry.
type overrideIndex map[overrideKey]override

func buildOverrideIndex(m *manifest.Manifest, globalVariantInputs json.RawMessage, merge func(global, dep json.RawMessage) (map[string]interface{}, string)) overrideIndex {
	idx := overrideIndex{}
	for rt, deps := range m.Dependencies {
		for name, dep := range deps {
			if dep.IsPattern() {
				continue
			}
			_, hash := merge(globalVariantInputs, dep.TemplateVars)
			key := overrideKey{
				resourceType: rt,
				path:         normalizePath(dep.Path),
				source:       dep.Source,
				tool:         dep.Tool,
				variantHash:  hash,
			}
			idx[key] = override{
				alias:        name,
				filename:     dep.Filename,
				target:       dep.Target,
				install:      dep.Install,
				templateVars: dep.TemplateVars,
			}
		}
	}
	return idx
}

func normalizePath(p string) string {
	// Storage form is forward-slash normalized.
	out := make([]byte, 0, len(p))
	for i := 0; i < len(p); i++ {
		if p[i] == '\\' {
			out = append(out, '/')
		} else {
			out = append(out, p[i])
		}
	}
	return string(out)
}

// apply merges an override onto a discovered child dependency, field by
// field, Some-fields-win: manifest_alias is
// promoted and template_vars fully replaces the child's, since the
// manifest entry is authoritative.
func (o override) apply(child *manifest.ResourceDependency) {
	if o.filename != "" {
		child.Filename = o.filename
	}
	if o.target != "" {
		child.Target = o.target
	}
	if o.install != nil {
		child.Install = o.install
	}
	if o.templateVars != nil {
		child.TemplateVars = o.templateVars
	}
}
