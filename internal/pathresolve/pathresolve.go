// Package pathresolve implements the Path Resolver:
// computing install paths per tool/resource-type, honoring target
// override and flatten, and the merge-target fallback paths for Hook and
// McpServer resources.
package pathresolve

import (
	"path"
	"strings"

	"github.com/agpkg/resolve/internal/manifest"
)

// mergeTargetFallback are the hardcoded fallback merge paths when a
// manifest's tool config doesn't specify one.
var mergeTargetFallback = map[string]map[manifest.ResourceType]string{
	"claude-code": {
		manifest.Hook: ".claude/settings.local.json",
	},
	"opencode": {
		manifest.McpServer: ".opencode/opencode.json",
	},
}

const defaultMcpServerTarget = ".mcp.json"

// Resolve computes the install path for one dependency.
// dep.Path is the original dependency path (used to derive the
// meaningful-path / filename when no explicit Filename is set).
func Resolve(dep manifest.ResourceDependency, rt manifest.ResourceType, tool string, tc manifest.ToolConfig) string {
	if rt.IsMergeTarget() {
		if target, ok := tc.MergeTargets[rt]; ok && target != "" {
			return target
		}
		if byTool, ok := mergeTargetFallback[tool]; ok {
			if p, ok := byTool[rt]; ok {
				return p
			}
		}
		if rt == manifest.McpServer {
			return defaultMcpServerTarget
		}
		return ".claude/settings.local.json"
	}

	base := tc.Resources[rt].Path
	if dep.Target != "" {
		base = path.Join(base, dep.Target)
	}

	flatten := false
	if dep.Flatten != nil {
		flatten = *dep.Flatten
	} else if cfg, ok := tc.Resources[rt]; ok && cfg.Flatten != nil {
		flatten = *cfg.Flatten
	}

	var filename string
	if dep.Filename != "" {
		filename = dep.Filename
	} else if flatten {
		filename = path.Base(dep.Path)
	} else {
		filename = ExtractMeaningfulPath(dep.Path)
	}

	return normalizeSlashes(path.Join(base, filename))
}

// ExtractMeaningfulPath handles three cases:
// - Absolute: resolve ".." by popping, drop the root, join with "/".
// - Relative with "..": skip leading non-normal components, join the
// rest.
// - Clean relative: used as-is, forward-slash separated.
func ExtractMeaningfulPath(p string) string {
	p = normalizeSlashes(p)
	isAbs := strings.HasPrefix(p, "/")
	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")

	if isAbs {
		var stack []string
		for _, part := range parts {
			switch part {
			case "", ".":
				continue
			case "..":
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
			default:
				stack = append(stack, part)
			}
		}
		return strings.Join(stack, "/")
	}

	hasDotDot := false
	for _, part := range parts {
		if part == ".." {
			hasDotDot = true
			break
		}
	}
	if hasDotDot {
		i := 0
		for i < len(parts) && (parts[i] == ".." || parts[i] == "." || parts[i] == "") {
			i++
		}
		return strings.Join(parts[i:], "/")
	}

	var clean []string
	for _, part := range parts {
		if part == "" || part == "." {
			continue
		}
		clean = append(clean, part)
	}
	return strings.Join(clean, "/")
}

func normalizeSlashes(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
