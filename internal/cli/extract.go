package cli

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ironsheep/texgen-mcp/internal/imaging"
	"github.com/ironsheep/texgen-mcp/internal/pipeline"
	"github.com/ironsheep/texgen-mcp/internal/resource"
)

type extractFlags struct {
	out              string
	extend           int
	closeCutoff      float64
	noTrim           bool
	noForceNeighbors bool
	noFillHoles      bool
}

func newExtractCmd(_ BuildInfo) *cobra.Command {
	var f extractFlags
	cmd := &cobra.Command{
		Use:   "extract <background> <full>",
		Short: "Split a texture into overlay and paletted layers",
		Long: `Separate the foreground of <full> from <background>.

Both arguments are texture ids such as minecraft:block/stone. Two files
are written: <out>_overlay.png holds the foreground pixels and
<out>_paletted.png holds background palette sample numbers as grays.

Examples:
  texgen-mcp extract --resources assets minecraft:block/stone \
      minecraft:block/iron_ore --out iron`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args, f)
		},
	}
	defaults := pipeline.NewForegroundTransfer(nil, nil, nil)
	cmd.Flags().StringVarP(&f.out, "out", "o", "extracted", "output file prefix")
	cmd.Flags().IntVar(&f.extend, "extend-palette-size", defaults.ExtendPaletteSize, "extend palettes to at least this many entries")
	cmd.Flags().Float64Var(&f.closeCutoff, "close-cutoff", defaults.CloseCutoff, "blend threshold as a multiple of the background's palette spacing")
	cmd.Flags().BoolVar(&f.noTrim, "no-trim", false, "keep palette remaps with no overlay pixel around them")
	cmd.Flags().BoolVar(&f.noForceNeighbors, "no-force-neighbors", false, "do not remap pixels next to solid overlay pixels")
	cmd.Flags().BoolVar(&f.noFillHoles, "no-fill-holes", false, "do not promote recurring colors inside the overlay")
	return cmd
}

func runExtract(cmd *cobra.Command, args []string, f extractFlags) error {
	if f.closeCutoff < 0 {
		return fmt.Errorf("--close-cutoff must not be negative, got %g", f.closeCutoff)
	}
	bg, err := resource.ParseIdentifier(args[0])
	if err != nil {
		return fmt.Errorf("background: %w", err)
	}
	full, err := resource.ParseIdentifier(args[1])
	if err != nil {
		return fmt.Errorf("full: %w", err)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	n := pipeline.NewForegroundTransfer(pipeline.Texture{Path: bg}, pipeline.Texture{Path: full}, nil)
	n.ExtendPaletteSize = f.extend
	n.CloseCutoff = f.closeCutoff
	n.TrimTrailing = !f.noTrim
	n.ForceNeighbors = !f.noForceNeighbors
	n.FillHoles = !f.noFillHoles

	res, err := a.gen.Evaluator().Extract(pipeline.NewContext("extract"), n)
	if err != nil {
		return err
	}
	if res.Clustered {
		a.logger.Info("extraction fell back to clustering")
	}

	if dir := filepath.Dir(f.out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	layers := []struct {
		path string
		img  *image.NRGBA
	}{
		{f.out + "_overlay.png", res.Overlay},
		{f.out + "_paletted.png", res.Paletted},
	}
	for _, l := range layers {
		data, err := imaging.PNGBytes(l.img)
		if err != nil {
			return err
		}
		if err := os.WriteFile(l.path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", l.path, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), l.path)
	}
	return nil
}
