package expand

import (
	"path/filepath"
	"strings"
)

// SourceContext is the basis a canonical dependency name is computed
// relative to: the manifest directory for local dependencies, the
// worktree root for remote ones.
type SourceContext struct {
	Local bool
	Root  string
}

// CanonicalName derives a collision-resistant, run-stable name from a
// matched path relative to its source context. It never consults an
// absolute filesystem path directly: local paths are first made relative
// to ctx.Root, remote paths are assumed already worktree-relative.
//
// Directory separators collapse to "-" and the file extension is
// stripped, so "agents/sub/a.md" becomes "agents-sub-a". Collision
// detection is the caller's responsibility.
func CanonicalName(path string, ctx SourceContext) (string, error) {
	rel := path
	if ctx.Local && ctx.Root != "" {
		if r, err := filepath.Rel(ctx.Root, path); err == nil {
			rel = r
		}
	}
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	name := strings.ReplaceAll(rel, "/", "-")
	name = strings.TrimPrefix(name, "-")
	return name, nil
}
