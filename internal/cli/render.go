package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/ironsheep/texgen-mcp/internal/pipeline"
	"github.com/ironsheep/texgen-mcp/internal/resource"
)

type renderFlags struct {
	ids   []string
	out   string
	scope string
}

func newRenderCmd(_ BuildInfo) *cobra.Command {
	var f renderFlags
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render configured outputs to PNG files",
		Long: `Render the outputs of the configured pipeline definitions.

Each output is written to <out>/<namespace>/<path>. With --out -, the PNG
bytes of a single output go to stdout; stdout must not be a terminal.
An output whose node cannot produce an image is logged and skipped.

Examples:
  # Render every output into ./generated
  texgen-mcp render --resources assets --generators 'defs/*.json'

  # Render one output into a pipe
  texgen-mcp render --generators defs/ores.json \
      --id mymod:textures/block/tin_ore.png --out - | display`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, f)
		},
	}
	cmd.Flags().StringSliceVar(&f.ids, "id", nil, "output location to render; repeatable (default: all)")
	cmd.Flags().StringVarP(&f.out, "out", "o", "generated", "output directory, or - for stdout")
	cmd.Flags().StringVar(&f.scope, "scope", "render", "cache scope")
	return cmd
}

func runRender(cmd *cobra.Command, f renderFlags) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	ids := a.gen.Locations()
	if len(f.ids) > 0 {
		ids = ids[:0]
		for _, s := range f.ids {
			id, err := resource.ParseIdentifier(s)
			if err != nil {
				return err
			}
			if _, ok := a.gen.Node(id); !ok {
				return fmt.Errorf("%w: no output %s", resource.ErrNotFound, id)
			}
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return errors.New("no outputs to render; pass --generators")
	}

	ctx := pipeline.NewContext(f.scope)
	if f.out == "-" {
		if len(ids) != 1 {
			return fmt.Errorf("--out - needs exactly one --id, got %d outputs", len(ids))
		}
		out := cmd.OutOrStdout()
		if isTerminal(out) {
			return errors.New("refusing to write PNG data to a terminal; redirect stdout or use --out DIR")
		}
		data, err := a.gen.Render(ids[0], ctx)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	failed := 0
	for _, id := range ids {
		data, err := a.gen.Render(id, ctx)
		if err != nil {
			a.logger.Error("output skipped", "id", id.String(), "error", err)
			failed++
			continue
		}
		path := filepath.Join(f.out, id.Namespace, filepath.FromSlash(id.Path))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		a.logger.Debug("wrote output", "id", id.String(), "path", path)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Rendered %d of %d outputs into %s\n", len(ids)-failed, len(ids), f.out)
	if failed > 0 {
		return fmt.Errorf("%d outputs failed", failed)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
