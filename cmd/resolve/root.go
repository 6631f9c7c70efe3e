package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/agpkg/resolve/internal/logging"
)

var (
	cfgFile  string
	logLevel string
	cacheDir string
)

var rootCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a manifest of versioned resources into a lockfile",
	Long: `resolve reads a project manifest (agents, snippets, commands, scripts,
hooks, MCP servers, skills pinned to Git sources or local paths), walks their
transitive dependencies, and writes a deterministic lockfile.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.resolve/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "source cache directory (default: $HOME/.resolve/cache)")
	viper.BindPFlag("cache_dir", rootCmd.PersistentFlags().Lookup("cache-dir"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			newLogger().Warnf("config: failed to read %q: %s", cfgFile, err)
		}
		return
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	viper.AddConfigPath(home + "/.resolve")
	viper.SetConfigType("yaml")
	viper.SetConfigName("config")
	viper.SetEnvPrefix("RESOLVE")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig() // optional; absence is not an error
}

// newLogger builds the zap-backed Logger the root flags configure.
func newLogger() logging.Logger {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if lvl, err := zapcore.ParseLevel(strings.ToLower(logLevel)); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	l, err := cfg.Build()
	if err != nil {
		return logging.Nop{}
	}
	return logging.NewZap(l)
}

// resolveCacheDir returns the configured cache directory, defaulting to
// $HOME/.resolve/cache.
func resolveCacheDir() string {
	if v := viper.GetString("cache_dir"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".resolve-cache"
	}
	return home + "/.resolve/cache"
}
