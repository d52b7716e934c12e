// Package cli provides the command-line interface for texgen-mcp.
package cli

import (
	"fmt"
	"runtime"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/ironsheep/texgen-mcp/internal/config"
	"github.com/ironsheep/texgen-mcp/internal/diskcache"
	"github.com/ironsheep/texgen-mcp/internal/logging"
	"github.com/ironsheep/texgen-mcp/internal/pipeline"
	"github.com/ironsheep/texgen-mcp/internal/resource"
)

// BuildInfo is set by main from ldflags.
type BuildInfo struct {
	Version   string
	BuildTime string
	GitCommit string
}

// String returns a human-readable version string.
func (b BuildInfo) String() string {
	return fmt.Sprintf("texgen-mcp %s\n  Build time: %s\n  Git commit: %s\n  Go version: %s (%s/%s)",
		b.Version, b.BuildTime, b.GitCommit, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// NewRootCmd builds the command tree. Running the root command without a
// subcommand serves MCP over stdio.
func NewRootCmd(info BuildInfo) *cobra.Command {
	if info.Version == "" {
		info.Version = "dev"
	}

	rootCmd := &cobra.Command{
		Use:   "texgen-mcp",
		Short: "Texture generation pipeline with an MCP server",
		Long: `texgen-mcp renders textures from declarative pipeline definitions.

Definitions describe outputs as graphs of image nodes (textures, masks,
overlays, animations and foreground transfers that move an ore's
foreground from one background onto another). The same pipeline is
served to MCP clients over stdin/stdout, so an assistant can render
outputs and try out node definitions while authoring them.`,
		Version:      info.Version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, info)
		},
	}
	rootCmd.SetVersionTemplate(info.String() + "\n")

	config.BindFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(newServeCmd(info))
	rootCmd.AddCommand(newRenderCmd(info))
	rootCmd.AddCommand(newExtractCmd(info))
	rootCmd.AddCommand(newVersionCmd(info))
	return rootCmd
}

func newVersionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print detailed version information including build time, commit hash, and Go version.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), info.String())
		},
	}
}

// app is everything a command needs, built from the loaded configuration.
type app struct {
	cfg    config.Config
	logger hclog.Logger
	gen    *pipeline.Generator
	disk   *diskcache.Cache
}

// newApp loads configuration from the command's flags and the environment
// and wires the resource source, evaluator, definitions and disk cache.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Output: cmd.ErrOrStderr()})
	if err != nil {
		return nil, err
	}
	logger.Debug("configuration", "config", cfg.String())

	src, err := resource.NewDir(cfg.Resources)
	if err != nil {
		return nil, err
	}
	eval := pipeline.NewEvaluator(resource.NewImages(src), pipeline.Options{
		Logger:           logger,
		ClusteringCutoff: cfg.ClusteringCutoff,
	})

	defs, err := pipeline.LoadDefinitions(cfg.Generators...)
	if err != nil {
		return nil, err
	}
	if len(cfg.Generators) > 0 && len(defs) == 0 {
		logger.Warn("no outputs defined", "generators", cfg.Generators)
	}

	a := &app{cfg: cfg, logger: logger}
	opts := pipeline.GeneratorOptions{Logger: logger}
	if cfg.CacheAssets {
		a.disk, err = diskcache.New(cfg.CacheDir, logger)
		if err != nil {
			return nil, err
		}
		opts.Store = a.disk
	}
	a.gen = pipeline.NewGenerator(eval, defs, opts)
	return a, nil
}
