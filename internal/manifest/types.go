// Package manifest defines the in-memory shape of the manifest document
// the resolver consumes. On-disk parsing is an external concern, but the
// resolver's types must mirror the document's shape precisely, so this
// package also carries a reference TOML loader (toml.go) built on
// pelletier/go-toml, the library golang-dep itself uses for its own
// manifest.
package manifest

import "encoding/json"

// ResourceType is the closed enum of installable resource kinds.
type ResourceType string

const (
	Agent ResourceType = "agent"
	Snippet ResourceType = "snippet"
	Command ResourceType = "command"
	Script ResourceType = "script"
	Hook ResourceType = "hook"
	McpServer ResourceType = "mcp_server"
	Skill ResourceType = "skill"
)

// AllResourceTypes lists every resource type in a fixed order, used
// anywhere iteration order must be deterministic (lockfile sections,
// stale-entry pruning).
var AllResourceTypes = []ResourceType{Agent, Snippet, Command, Script, Hook, McpServer, Skill}

// IsMergeTarget reports whether t is installed via config-file merge
// rather than file copy (Hook and McpServer).
func (t ResourceType) IsMergeTarget() bool {
	return t == Hook || t == McpServer
}

// ResourceDependency is the sum type `Simple(path) | Detailed{...}`
//. Go has no sum types; Simple is represented as a Detailed with
// every optional field empty and IsSimple set, so callers that only care
// about the fields never need a type switch.
type ResourceDependency struct {
	IsSimple bool

	Source string // absent => local dependency
	Path string
	Version string
	Branch string
	Rev string
	Target string
	Filename string
	Tool string
	Flatten *bool
	Install *bool
	TemplateVars json.RawMessage // nil => no dep-level override
	Name string // explicit name override, used by transitive specs
}

// IsLocal reports whether the dependency has no source.
func (d ResourceDependency) IsLocal() bool { return d.Source == "" }

// IsPattern reports whether the dependency's path contains a glob
// metacharacter.
func (d ResourceDependency) IsPattern() bool {
	for _, r := range d.Path {
		switch r {
		case '*', '?', '[':
			return true
		}
	}
	return false
}

// VersionSpec resolves the branch/rev/version precedence: version wins
// if set, else rev, else branch, else "HEAD".
func (d ResourceDependency) VersionSpec() string {
	switch {
	case d.Version != "":
		return d.Version
	case d.Rev != "":
		return d.Rev
	case d.Branch != "":
		return d.Branch
	default:
		return "HEAD"
	}
}

// ToolResourceConfig describes where one resource type installs for one
// tool.
type ToolResourceConfig struct {
	Path string
	Flatten *bool
}

// ToolConfig is one entry in the manifest's `tools` table.
type ToolConfig struct {
	Resources map[ResourceType]ToolResourceConfig
	MergeTargets map[ResourceType]string // e.g. hook -> ".claude/settings.local.json"
	Defaults map[ResourceType]string // default tool name per type
	Supported map[ResourceType][]string
}

// Manifest is the fully-parsed document.
type Manifest struct {
	Dependencies map[ResourceType]map[string]ResourceDependency
	Sources map[string]string // name -> url
	Tools map[string]ToolConfig
	VariantInputs json.RawMessage // project.variant_inputs, global template vars
	Patches map[string]json.RawMessage
}

// Loaded pairs a Manifest with Dir, the manifest file's containing
// directory, which the caller of Load sets; it is the source context for
// local dependencies.
type Loaded struct {
	Manifest
	Dir string
}
