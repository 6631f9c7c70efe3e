// Package resource implements the Resource Fetcher: reading a
// resource's content from a local tree or a worktree, and computing its
// canonical path.
package resource

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agpkg/resolve/internal/resolveerr"
)

const (
	worktreeRetryAttempts = 10
	worktreeRetryDelay    = 100 * time.Millisecond
)

// Fetcher reads resource content from either a local (canonicalized) path
// or a Git worktree (uncanonicalized, with bounded read-retry).
type Fetcher struct{}

func New() Fetcher { return Fetcher{} }

// FetchContent reads a resource's file content. isWorktree selects the
// worktree read path: no canonicalization, up to 10 read attempts 100ms
// apart while the error is file-not-found, to tolerate worktree checkout coherency delays.
func (Fetcher) FetchContent(path string, isWorktree bool) (string, error) {
	if !isWorktree {
		canon, err := GetCanonicalPath(path)
		if err != nil {
			return "", err
		}
		b, err := os.ReadFile(canon)
		if err != nil {
			return "", &resolveerr.CanonicalizeError{
				Component: resolveerr.ComponentResourceFetcher,
				Path:      canon,
				Err:       err,
			}
		}
		return string(b), nil
	}

	var lastErr error
	for attempt := 0; attempt < worktreeRetryAttempts; attempt++ {
		b, err := os.ReadFile(path)
		if err == nil {
			return string(b), nil
		}
		lastErr = err
		if !os.IsNotExist(err) {
			break
		}
		time.Sleep(worktreeRetryDelay)
	}
	return "", &resolveerr.CanonicalizeError{
		Component: resolveerr.ComponentResourceFetcher,
		Path:      path,
		Err:       lastErr,
	}
}

// GetCanonicalPath resolves symlinks and relative components for a local
// (non-worktree) path.
func GetCanonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &resolveerr.CanonicalizeError{Component: resolveerr.ComponentResourceFetcher, Path: path, Err: err}
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &resolveerr.CanonicalizeError{Component: resolveerr.ComponentResourceFetcher, Path: abs, Err: err}
		}
		return abs, nil
	}
	return resolved, nil
}

// FetchSkillContent resolves to {skillDir}/SKILL.md and validates that it
// has TOML/YAML frontmatter delimited by "---" before returning it.
func (f Fetcher) FetchSkillContent(skillDir string, isWorktree bool) (string, error) {
	path := filepath.Join(skillDir, "SKILL.md")
	content, err := f.FetchContent(path, isWorktree)
	if err != nil {
		return "", err
	}
	if len(content) < 3 || content[:3] != "---" {
		return "", &resolveerr.MetadataError{
			Component: resolveerr.ComponentResourceFetcher,
			Path:      path,
			Err:       fmt.Errorf("missing frontmatter delimiter"),
		}
	}
	return content, nil
}
