// Package pattern implements the Pattern Expander: expanding a
// glob dependency into concrete file/dir dependencies, including the
// Skill-specific directory matching rule.
package pattern

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
)

// Resolver walks a base directory and matches relative paths against a
// glob pattern, the same job golang-dep's deduce.go does for import-path
// discovery but here over plain files using karrick/godirwalk for fast
// directory traversal.
type Resolver struct{}

func NewResolver() Resolver { return Resolver{} }

// Resolve returns every regular file under base whose path relative to
// base matches pattern (forward-slash normalized), sorted for determinism.
func (Resolver) Resolve(pattern, base string) ([]string, error) {
	pattern = filepath.ToSlash(pattern)
	var matches []string
	err := godirwalk.Walk(base, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if de.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(base, path)
			if err != nil {
				return err
			}
			rel = filepath.ToSlash(rel)
			ok, err := filepath.Match(pattern, rel)
			if err != nil {
				return err
			}
			if ok {
				matches = append(matches, rel)
			}
			return nil
		},
		Unsorted: true,
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("pattern: walk %q: %w", base, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// SplitAbsolutePattern splits an absolute path containing glob
// metacharacters into a (base, glob) pair at the first path component
// that contains one. If no component has a glob character, base is "."
// and glob is the full path.
func SplitAbsolutePattern(p string) (base, glob string) {
	components := strings.Split(filepath.ToSlash(p), "/")
	idx := -1
	for i, c := range components {
		if strings.ContainsAny(c, "*?[") {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ".", p
	}
	baseComponents := components[:idx]
	globComponents := components[idx:]
	return strings.Join(baseComponents, "/"), strings.Join(globComponents, "/")
}
