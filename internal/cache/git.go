package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Masterminds/vcs"
	shutil "github.com/termie/go-shutil"
	"github.com/theckman/go-flock"

	"github.com/agpkg/resolve/internal/logging"
)

// GitCache is the reference Cache implementation: non-bare clones under
// baseDir/sources/<name>, worktrees under baseDir/worktrees/<name>/<sha>,
// advisory-locked the way golang-dep's source_manager.go guards its own
// cache directory with a single sm.lock file.
type GitCache struct {
	BaseDir string
	Log     logging.Logger

	mu    sync.Mutex
	repos map[string]*vcs.GitRepo
}

// NewGitCache creates a cache rooted at baseDir, which is created if
// missing.
func NewGitCache(baseDir string, log logging.Logger) (*GitCache, error) {
	if log == nil {
		log = logging.Nop{}
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, err
	}
	return &GitCache{BaseDir: baseDir, Log: log, repos: map[string]*vcs.GitRepo{}}, nil
}

func (c *GitCache) sourcePath(source string) string {
	return filepath.Join(c.BaseDir, "sources", source)
}

func (c *GitCache) lockPath(source string) string {
	return filepath.Join(c.BaseDir, "sources", source+".lock")
}

func (c *GitCache) worktreePath(source, sha string) string {
	return filepath.Join(c.BaseDir, "worktrees", source, sha)
}

func (c *GitCache) CloneOrFetch(ctx context.Context, source, url string) error {
	if err := os.MkdirAll(filepath.Join(c.BaseDir, "sources"), 0o755); err != nil {
		return err
	}

	fl := flock.NewFlock(c.lockPath(source))
	if err := fl.Lock(); err != nil {
		return fmt.Errorf("cache: lock source %s: %w", source, err)
	}
	defer fl.Unlock()

	repo, err := c.repoFor(source, url)
	if err != nil {
		return err
	}

	if repo.CheckLocal() {
		c.Log.Debugf("cache: fetching updates for source %q", source)
		return repo.Update()
	}

	c.Log.Debugf("cache: cloning source %q from %q", source, url)
	return repo.Get()
}

func (c *GitCache) repoFor(source, url string) (*vcs.GitRepo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r, ok := c.repos[source]; ok {
		return r, nil
	}
	r, err := vcs.NewGitRepo(url, c.sourcePath(source))
	if err != nil {
		return nil, fmt.Errorf("cache: open source %q: %w", source, err)
	}
	c.repos[source] = r
	return r, nil
}

func (c *GitCache) ListTags(ctx context.Context, source string) ([]string, error) {
	c.mu.Lock()
	r, ok := c.repos[source]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("cache: source %q not synced", source)
	}
	return r.Tags()
}

func (c *GitCache) ResolveToSHA(ctx context.Context, source, ref string) (string, error) {
	c.mu.Lock()
	r, ok := c.repos[source]
	c.mu.Unlock()
	if !ok {
		return "", fmt.Errorf("cache: source %q not synced", source)
	}
	if ref == "" || ref == "HEAD" {
		return r.Version()
	}
	if err := r.UpdateVersion(ref); err != nil {
		return "", fmt.Errorf("cache: resolve ref %q in %q: %w", ref, source, err)
	}
	return r.Version()
}

// GetOrCreateWorktreeForSHA stages a content-addressed checkout of sha by
// checking out sha in the source clone and copying its working tree, the way golang-dep's
// own fs helpers (termie/go-shutil) stage directories for export.
func (c *GitCache) GetOrCreateWorktreeForSHA(ctx context.Context, source, url, sha, label string) (string, error) {
	wt := c.worktreePath(source, sha)
	if _, err := os.Stat(wt); err == nil {
		return wt, nil
	}

	repo, err := c.repoFor(source, url)
	if err != nil {
		return "", err
	}

	fl := flock.NewFlock(c.lockPath(source))
	if err := fl.Lock(); err != nil {
		return "", fmt.Errorf("cache: lock source %s: %w", source, err)
	}
	defer fl.Unlock()

	prevRef, _ := repo.Current()
	if err := repo.UpdateVersion(sha); err != nil {
		return "", fmt.Errorf("cache: checkout %s@%s: %w", source, sha, err)
	}
	defer func() {
		if prevRef != "" {
			_ = repo.UpdateVersion(strings.TrimPrefix(prevRef, "refs/heads/"))
		}
	}()

	if err := os.MkdirAll(filepath.Dir(wt), 0o755); err != nil {
		return "", err
	}
	c.Log.Debugf("cache: staging worktree for %s@%s (%s)", source, sha, label)
	if err := shutil.CopyTree(c.sourcePath(source), wt, nil); err != nil {
		return "", fmt.Errorf("cache: stage worktree %s@%s: %w", source, sha, err)
	}
	return wt, nil
}
