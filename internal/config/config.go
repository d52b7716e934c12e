// Package config loads runtime settings.
//
// Settings come from four layers, each overriding the one before: built-in
// defaults, a JSON file, TEXGEN_* environment variables and command-line
// flags.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"github.com/ironsheep/texgen-mcp/internal/extract"
	"github.com/ironsheep/texgen-mcp/internal/logging"
)

// Environment variables read by Load.
const (
	EnvConfig   = "TEXGEN_CONFIG"
	EnvResource = "TEXGEN_RESOURCES"
	EnvLogLevel = "TEXGEN_LOG_LEVEL"
	EnvCacheDir = "TEXGEN_CACHE_DIR"
)

// Flag names registered by BindFlags.
const (
	FlagConfig        = "config"
	FlagResources     = "resources"
	FlagGenerators    = "generators"
	FlagCacheDir      = "cache-dir"
	FlagCacheAssets   = "cache-assets"
	FlagClusterCutoff = "cluster-cutoff"
	FlagLogLevel      = "log-level"
)

// Config holds every runtime setting.
type Config struct {
	// Resources is the resource root; textures live at
	// <root>/<namespace>/textures/<path>.png.
	Resources string `json:"resources"`
	// Generators are glob patterns of pipeline definition files.
	Generators []string `json:"generators"`
	// CacheAssets persists rendered outputs in CacheDir.
	CacheAssets bool `json:"cache_assets"`
	// CacheDir is the persistent output cache directory.
	CacheDir string `json:"cache_dir"`
	// ClusteringCutoff bounds the direct foreground extraction search
	// before it falls back to clustering.
	ClusteringCutoff int `json:"palette_extraction_force_clustering_cutoff"`
	// LogLevel is trace, debug, info, warn, error or off.
	LogLevel string `json:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	cacheDir := filepath.Join(".cache", "texgen")
	if dir, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(dir, "texgen")
	}
	return Config{
		Resources:        ".",
		CacheDir:         cacheDir,
		ClusteringCutoff: extract.DefaultClusteringCutoff,
		LogLevel:         "info",
	}
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Resources == "" {
		return errors.New("resources directory must be set")
	}
	if c.CacheAssets && c.CacheDir == "" {
		return errors.New("cache_assets requires cache_dir")
	}
	if c.ClusteringCutoff <= 0 {
		return fmt.Errorf("palette_extraction_force_clustering_cutoff must be positive, got %d", c.ClusteringCutoff)
	}
	for _, pattern := range c.Generators {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("bad generator pattern %q: %w", pattern, err)
		}
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// BindFlags registers the configuration flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	fs.String(FlagConfig, "", "JSON configuration file (env "+EnvConfig+")")
	fs.String(FlagResources, "", "resource root directory (env "+EnvResource+")")
	fs.StringSlice(FlagGenerators, nil, "glob of pipeline definition files; repeatable")
	fs.String(FlagCacheDir, "", "persistent output cache directory (env "+EnvCacheDir+")")
	fs.Bool(FlagCacheAssets, false, "persist rendered outputs between runs")
	fs.Int(FlagClusterCutoff, 0, "pixel/palette work above which extraction falls back to clustering")
	fs.String(FlagLogLevel, "", "log level: trace, debug, info, warn, error, off (env "+EnvLogLevel+")")
}

// Load builds the configuration from defaults, the config file, the
// environment and any flags set on fs. fs may be nil.
//
// The config file is the --config flag if set, else $TEXGEN_CONFIG; with
// neither, no file is read.
func Load(fs *pflag.FlagSet) (Config, error) {
	return load(fs, os.LookupEnv)
}

func load(fs *pflag.FlagSet, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	path, _ := lookup(EnvConfig)
	if fs != nil && fs.Changed(FlagConfig) {
		path, _ = fs.GetString(FlagConfig)
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return Config{}, err
		}
	}

	if v, ok := lookup(EnvResource); ok && v != "" {
		cfg.Resources = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookup(EnvCacheDir); ok && v != "" {
		cfg.CacheDir = v
	}

	if fs != nil {
		if err := cfg.applyFlags(fs); err != nil {
			return Config{}, err
		}
	}
	return cfg, cfg.Validate()
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 - user-specified config file
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	// Relative paths in the file are relative to the file.
	base := filepath.Dir(path)
	c.Resources = resolve(base, c.Resources)
	c.CacheDir = resolve(base, c.CacheDir)
	for i, pattern := range c.Generators {
		c.Generators[i] = resolve(base, pattern)
	}
	return nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func (c *Config) applyFlags(fs *pflag.FlagSet) error {
	var errs []error
	str := func(name string, dst *string) {
		if fs.Lookup(name) != nil && fs.Changed(name) {
			v, err := fs.GetString(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	str(FlagResources, &c.Resources)
	str(FlagCacheDir, &c.CacheDir)
	str(FlagLogLevel, &c.LogLevel)
	if fs.Lookup(FlagGenerators) != nil && fs.Changed(FlagGenerators) {
		v, err := fs.GetStringSlice(FlagGenerators)
		errs = append(errs, err)
		c.Generators = v
	}
	if fs.Lookup(FlagCacheAssets) != nil && fs.Changed(FlagCacheAssets) {
		v, err := fs.GetBool(FlagCacheAssets)
		errs = append(errs, err)
		c.CacheAssets = v
	}
	if fs.Lookup(FlagClusterCutoff) != nil && fs.Changed(FlagClusterCutoff) {
		v, err := fs.GetInt(FlagClusterCutoff)
		errs = append(errs, err)
		c.ClusteringCutoff = v
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to read flags: %w", err)
	}
	return nil
}

// String renders the configuration for debug logs.
func (c Config) String() string {
	return fmt.Sprintf("resources=%s generators=%v cache_assets=%t cache_dir=%s cluster_cutoff=%d log_level=%s",
		c.Resources, c.Generators, c.CacheAssets, c.CacheDir, c.ClusteringCutoff, c.LogLevel)
}
