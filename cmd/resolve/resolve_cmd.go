package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/agpkg/resolve/internal/cache"
	"github.com/agpkg/resolve/internal/extract"
	"github.com/agpkg/resolve/internal/manifest"
	"github.com/agpkg/resolve/internal/resolver"
)

var (
	manifestPath string
	lockPath     string
)

func init() {
	rootCmd.Flags().StringVar(&manifestPath, "manifest", "manifest.toml", "path to the manifest file")
	rootCmd.Flags().StringVar(&lockPath, "lockfile", "", "path to write the lockfile (default: <manifest-dir>/resolve.lock.json)")
	rootCmd.RunE = runResolve
}

func runResolve(cmd *cobra.Command, args []string) error {
	log := newLogger()

	f, err := os.Open(manifestPath)
	if err != nil {
		return fmt.Errorf("resolve: opening manifest: %w", err)
	}
	defer f.Close()

	m, err := manifest.Load(f)
	if err != nil {
		return fmt.Errorf("resolve: loading manifest: %w", err)
	}
	loaded := &manifest.Loaded{Manifest: *m, Dir: filepath.Dir(manifestPath)}

	gitCache, err := cache.NewGitCache(resolveCacheDir(), log)
	if err != nil {
		return fmt.Errorf("resolve: initializing cache: %w", err)
	}
	sources := cache.NewMapSourceManager(globalSourceConfig(), m.Sources)

	core := resolver.NewCore(loaded, gitCache, sources, extract.New(), log)

	lf, err := core.Resolve(context.Background())
	if err != nil {
		return fmt.Errorf("resolve: %w", err)
	}

	out := lockPath
	if out == "" {
		out = filepath.Join(loaded.Dir, "resolve.lock.json")
	}
	data, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return fmt.Errorf("resolve: encoding lockfile: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("resolve: writing lockfile: %w", err)
	}

	log.Infof("wrote lockfile to %s", out)
	return nil
}

// globalSourceConfig reads the optional [sources] table from viper's
// layered config (flags/env/config file), overlaid beneath the manifest's
// own [sources] table by cache.MapSourceManager.
func globalSourceConfig() map[string]string {
	raw := viper.GetStringMapString("sources")
	if raw == nil {
		return map[string]string{}
	}
	return raw
}
