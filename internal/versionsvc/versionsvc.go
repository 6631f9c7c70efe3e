// Package versionsvc implements the Version Service: pre-sync
// of sources, tag enumeration, ref-to-SHA resolution, worktree creation,
// and memoization of prepared (source, version-key) states.
package versionsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/agpkg/resolve/internal/cache"
	"github.com/agpkg/resolve/internal/logging"
	"github.com/agpkg/resolve/internal/resolveerr"
	"github.com/agpkg/resolve/internal/version"
)

// PreparedSourceVersion is the Version Service's memoized state for one
// (source, version-key) pair.
type PreparedSourceVersion struct {
	Source string
	VersionKey string // the original ref/tag/"HEAD" string
	ResolvedCommit string // full 40-hex SHA
	ResolvedVersion string // semver tag if the key resolved to one, else ""
	WorktreePath string
	// ResourceVariants maps a resource id string to its merged template
	// vars, populated lazily as resources are discovered under this
	// prepared version.
	ResourceVariants map[string]json.RawMessage
}

// BaseDep is the minimal shape the Version Service needs from a
// dependency to pre-sync it: a source name and a version specifier
// already resolved via manifest.ResourceDependency.VersionSpec().
type BaseDep struct {
	Source string
	Version string // "" means not yet known; VersionSpec() default is "HEAD"
}

// Service is the Version Service. It is not safe to share across
// concurrent resolver invocations but
// pre_sync_sources parallelizes internally across distinct sources.
type Service struct {
	Cache cache.Cache
	Sources cache.SourceManager
	Log logging.Logger

	mu sync.Mutex
	prepared map[string]*PreparedSourceVersion // "{source}::{version-or-HEAD}"
	tagIdx map[string]*version.TagIndex
	rawTags map[string][]string // source -> full tag list, as returned by Cache.ListTags
}

func New(c cache.Cache, sm cache.SourceManager, log logging.Logger) *Service {
	if log == nil {
		log = logging.Nop{}
	}
	return &Service{
		Cache: c,
		Sources: sm,
		Log: log,
		prepared: map[string]*PreparedSourceVersion{},
		tagIdx: map[string]*version.TagIndex{},
		rawTags: map[string][]string{},
	}
}

func prepKey(source, versionKey string) string {
	if versionKey == "" {
		versionKey = "HEAD"
	}
	return source + "::" + versionKey
}

// PreSyncSources clones/fetches every distinct source appearing in
// baseDeps, then resolves and stages a worktree for every distinct
// (source, version-key) pair. Sources are synced concurrently;
// everything after that remains sequential for determinism.
func (s *Service) PreSyncSources(ctx context.Context, baseDeps []BaseDep) error {
	bySource := map[string][]string{} // source -> version keys
	for _, d := range baseDeps {
		if d.Source == "" {
			continue
		}
		vk := d.Version
		if vk == "" {
			vk = "HEAD"
		}
		bySource[d.Source] = append(bySource[d.Source], vk)
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(bySource))
	for source := range bySource {
		source := source
		wg.Add(1)
		go func() {
			defer wg.Done()
			url, ok := s.Sources.GetSourceURL(source)
			if !ok {
				errs <- &resolveerr.ManifestError{
					Component: resolveerr.ComponentVersionService,
					Op: "pre_sync_sources",
					Detail: fmt.Sprintf("unknown source %q", source),
				}
				return
			}
			if err := s.Cache.CloneOrFetch(ctx, source, url); err != nil {
				errs <- &resolveerr.GitError{
					Component: resolveerr.ComponentVersionService,
					Op: "clone_or_fetch",
					Source: source,
					Err: err,
				}
				return
			}
			tags, err := s.Cache.ListTags(ctx, source)
			if err != nil {
				errs <- &resolveerr.GitError{
					Component: resolveerr.ComponentVersionService,
					Op: "list_tags",
					Source: source,
					Err: err,
				}
				return
			}
			s.mu.Lock()
			s.tagIdx[source] = version.NewTagIndex(tags)
			s.rawTags[source] = tags
			s.mu.Unlock()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			return err
		}
	}

	// Worktree creation per (source, version-key) is kept sequential
	// here for the simplest-to-audit determinism, though implementations
	// may parallelize this too.
	for source, versionKeys := range bySource {
		url, _ := s.Sources.GetSourceURL(source)
		seen := map[string]bool{}
		for _, vk := range versionKeys {
			if seen[vk] {
				continue
			}
			seen[vk] = true
			if _, err := s.prepareVersion(ctx, source, url, vk); err != nil {
				return err
			}
		}
	}
	return nil
}

// PrepareAdditionalVersion resolves an on-demand (source, version) pair
// discovered transitively.
func (s *Service) PrepareAdditionalVersion(ctx context.Context, source, versionKey string) (*PreparedSourceVersion, error) {
	url, ok := s.Sources.GetSourceURL(source)
	if !ok {
		return nil, &resolveerr.ManifestError{
			Component: resolveerr.ComponentVersionService,
			Op: "prepare_additional_version",
			Detail: fmt.Sprintf("unknown source %q", source),
		}
	}
	return s.prepareVersion(ctx, source, url, versionKey)
}

func (s *Service) prepareVersion(ctx context.Context, source, url, versionKey string) (*PreparedSourceVersion, error) {
	key := prepKey(source, versionKey)

	s.mu.Lock()
	if p, ok := s.prepared[key]; ok {
		s.mu.Unlock()
		return p, nil
	}
	s.mu.Unlock()

	resolvedVersion := ""
	ref := versionKey
	if versionKey != "" && versionKey != "HEAD" {
		tags, err := s.resolveConstraintToTags(ctx, source, versionKey)
		if err != nil {
			return nil, err
		}
		if len(tags) == 0 {
			return nil, &resolveerr.VersionResolutionError{
				Component: resolveerr.ComponentVersionService,
				Source: source,
				Constraint: versionKey,
			}
		}
		ref = tags[0]
		resolvedVersion = tags[0]
	}

	sha, err := s.Cache.ResolveToSHA(ctx, source, ref)
	if err != nil {
		return nil, &resolveerr.GitError{
			Component: resolveerr.ComponentVersionService,
			Op: "resolve_to_sha",
			Source: source,
			Err: err,
		}
	}

	wt, err := s.Cache.GetOrCreateWorktreeForSHA(ctx, source, url, sha, versionKey)
	if err != nil {
		return nil, &resolveerr.GitError{
			Component: resolveerr.ComponentVersionService,
			Op: "get_or_create_worktree_for_sha",
			Source: source,
			Err: err,
		}
	}

	p := &PreparedSourceVersion{
		Source: source,
		VersionKey: versionKey,
		ResolvedCommit: sha,
		ResolvedVersion: resolvedVersion,
		WorktreePath: wt,
		ResourceVariants: map[string]json.RawMessage{},
	}

	s.mu.Lock()
	s.prepared[key] = p
	s.mu.Unlock()
	s.Log.Debugf("version service: prepared %s@%s -> %s", source, versionKey, sha)
	return p, nil
}

// ListTags returns the full tag list previously loaded for source by
// PreSyncSources, across every prefix group (unprefixed tags like
// "v1.0.0" as well as grouped ones like "d-v1.0.0").
func (s *Service) ListTags(source string) ([]string, error) {
	s.mu.Lock()
	tags, ok := s.rawTags[source]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("version service: source %q not pre-synced", source)
	}
	return tags, nil
}

// resolveConstraintToTags applies the tag filter/sort rule
// to the source's full tag set for one constraint string.
func (s *Service) resolveConstraintToTags(ctx context.Context, source, constraint string) ([]string, error) {
	s.mu.Lock()
	idx, ok := s.tagIdx[source]
	s.mu.Unlock()
	if !ok {
		tags, err := s.Cache.ListTags(ctx, source)
		if err != nil {
			return nil, &resolveerr.GitError{
				Component: resolveerr.ComponentVersionService,
				Op: "list_tags",
				Source: source,
				Err: err,
			}
		}
		idx = version.NewTagIndex(tags)
		s.mu.Lock()
		s.tagIdx[source] = idx
		s.rawTags[source] = tags
		s.mu.Unlock()
	}
	return version.FilterAndSort(idx.TagsForConstraint(constraint), constraint)
}

// ResolveVersionToSHA resolves a single version constraint to a commit
// SHA, taking the highest-priority matching tag.
func (s *Service) ResolveVersionToSHA(ctx context.Context, source, versionKey string) (string, error) {
	url, ok := s.Sources.GetSourceURL(source)
	if !ok {
		return "", &resolveerr.ManifestError{
			Component: resolveerr.ComponentVersionService,
			Op: "resolve_version_to_sha",
			Detail: fmt.Sprintf("unknown source %q", source),
		}
	}
	p, err := s.prepareVersion(ctx, source, url, versionKey)
	if err != nil {
		return "", err
	}
	return p.ResolvedCommit, nil
}

// GetBareRepoPath requires the source to have been pre-synced. It
// returns the source's name, not a filesystem path, with ok=true once
// the source is synced.
func (s *Service) GetBareRepoPath(source string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tagIdx[source]
	if !ok {
		return "", false
	}
	return source, true
}

// Prepared returns a previously prepared (source, version-key) state.
func (s *Service) Prepared(source, versionKey string) (*PreparedSourceVersion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.prepared[prepKey(source, versionKey)]
	return p, ok
}
