// Package cache defines the Cache and SourceManager external interfaces
// and a git-backed reference implementation. The resolver core
// only depends on the interfaces; on-disk layout, locking, and the actual
// git invocations are an external concern, but a working implementation
// is provided here the same way source_manager.go/vcs_repo.go provide
// one for golang-dep's solver.
package cache

import "context"

// Cache is consumed by the Version Service and the Pattern
// Expander's remote-pattern path.
type Cache interface {
	// CloneOrFetch ensures a bare repository for source exists locally and
	// is up to date with url.
	CloneOrFetch(ctx context.Context, source, url string) error
	// ListTags enumerates every tag in source's bare repository.
	ListTags(ctx context.Context, source string) ([]string, error)
	// ResolveToSHA resolves ref (a tag, branch, revision, or "HEAD") to a
	// full 40-hex-character commit SHA.
	ResolveToSHA(ctx context.Context, source, ref string) (string, error)
	// GetOrCreateWorktreeForSHA returns the path to a filesystem checkout
	// of sha, creating it if this is the first request for that SHA.
	// label is an optional human-readable hint (e.g. the original ref)
	// used only for diagnostics.
	GetOrCreateWorktreeForSHA(ctx context.Context, source, url, sha, label string) (string, error)
}

// SourceManager resolves a manifest's named sources to URLs, merging
// manifest-local and global configuration.
type SourceManager interface {
	GetSourceURL(name string) (string, bool)
}
