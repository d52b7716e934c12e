package pipeline

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"github.com/hashicorp/go-hclog"

	"github.com/ironsheep/texgen-mcp/internal/cache"
	"github.com/ironsheep/texgen-mcp/internal/combine"
	"github.com/ironsheep/texgen-mcp/internal/extract"
	"github.com/ironsheep/texgen-mcp/internal/imaging"
	"github.com/ironsheep/texgen-mcp/internal/palette"
	"github.com/ironsheep/texgen-mcp/internal/resource"
)

// ErrNoImage is returned when a node cannot produce an image. It wraps the
// cause: a missing input, malformed geometry or an empty palette.
var ErrNoImage = errors.New("no image")

// Context is the environment a node is evaluated in.
type Context struct {
	// Scope partitions cached outputs; resetting it drops them.
	Scope string

	frames map[string]*image.NRGBA
	quiet  bool
}

// NewContext returns a context for one generation cycle.
func NewContext(scope string) Context {
	return Context{Scope: scope}
}

func (c Context) withFrames(frames map[string]*image.NRGBA) Context {
	c.frames = frames
	return c
}

// Options configures an Evaluator.
type Options struct {
	// Logger receives node failures. Nil discards them.
	Logger hclog.Logger
	// ClusteringCutoff bounds the direct extraction search; zero means
	// extract.DefaultClusteringCutoff.
	ClusteringCutoff int
	// NoCache evaluates every node afresh.
	NoCache bool
}

// Evaluator renders nodes against a set of source textures, caching node
// outputs and foreground extractions per scope.
//
// Evaluator is safe for concurrent use. Two evaluations of the same node in
// the same scope never run at once; the later one waits and receives a copy
// of the first one's result.
type Evaluator struct {
	images           *resource.Images
	outputs          *cache.Table[*image.NRGBA]
	extractions      *cache.Table[*extract.Result]
	logger           hclog.Logger
	clusteringCutoff int
}

// NewEvaluator creates an evaluator reading textures through images.
func NewEvaluator(images *resource.Images, opts Options) *Evaluator {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	e := &Evaluator{
		images:           images,
		logger:           logger.Named("pipeline"),
		clusteringCutoff: opts.ClusteringCutoff,
	}
	if e.clusteringCutoff <= 0 {
		e.clusteringCutoff = extract.DefaultClusteringCutoff
	}
	if !opts.NoCache {
		e.outputs = cache.NewImageTable()
		e.extractions = cache.New(copyResult)
	}
	return e
}

func copyResult(r *extract.Result) *extract.Result {
	if r == nil {
		return nil
	}
	return &extract.Result{
		Overlay:   imaging.Copy(r.Overlay),
		Paletted:  imaging.Copy(r.Paletted),
		Clustered: r.Clustered,
	}
}

// Source returns the resource source textures are read from.
func (e *Evaluator) Source() resource.Source { return e.images.Source() }

// Images returns the decoded texture cache.
func (e *Evaluator) Images() *resource.Images { return e.images }

// Reset drops everything cached for scope, along with decoded textures.
func (e *Evaluator) Reset(scope string) {
	if e.outputs != nil {
		e.outputs.Reset(scope)
		e.extractions.Reset(scope)
	}
	e.images.Clear()
}

// Stats reports node output and extraction cache activity.
func (e *Evaluator) Stats() (outputs, extractions cache.Stats) {
	if e.outputs == nil {
		return cache.Stats{}, cache.Stats{}
	}
	return e.outputs.Stats(), e.extractions.Stats()
}

// Evaluate renders n. The returned image belongs to the caller.
//
// A node that cannot produce an image logs the reason once, naming itself,
// and returns an error wrapping ErrNoImage; nodes above it pass that error
// on without logging again.
func (e *Evaluator) Evaluate(ctx Context, n Node) (*image.NRGBA, error) {
	if e.outputs != nil {
		if key, ok := CacheKey(n, nil); ok {
			// Failures are replayed without logging, so a failure recorded
			// under a fallback's quiet evaluation must not answer a normal one.
			if ctx.quiet {
				key = "quiet;" + key
			}
			return e.outputs.GetOrCompute(ctx.Scope, key, func() (*image.NRGBA, error) {
				return e.compute(ctx, n)
			})
		}
	}
	return e.compute(ctx, n)
}

// fail turns err into a no-image error, logging it unless it already is one.
func (e *Evaluator) fail(ctx Context, n Node, err error) error {
	if errors.Is(err, ErrNoImage) {
		return err
	}
	if !ctx.quiet {
		e.logger.Error("node produced no image", "node", Describe(n), "error", err)
	}
	typ := "<nil>"
	if n != nil {
		typ = n.Type()
	}
	return fmt.Errorf("%w: %s: %w", ErrNoImage, typ, err)
}

func (e *Evaluator) compute(ctx Context, n Node) (*image.NRGBA, error) {
	img, err := e.render(ctx, n)
	if err != nil {
		return nil, e.fail(ctx, n, err)
	}
	return img, nil
}

func (e *Evaluator) all(ctx Context, nodes []Node) ([]*image.NRGBA, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("no inputs given: %w", imaging.ErrGeometry)
	}
	imgs := make([]*image.NRGBA, len(nodes))
	for i, child := range nodes {
		img, err := e.Evaluate(ctx, child)
		if err != nil {
			return nil, err
		}
		imgs[i] = img
	}
	return imgs, nil
}

func (e *Evaluator) render(ctx Context, n Node) (*image.NRGBA, error) {
	switch n := n.(type) {
	case Texture:
		return e.images.Load(resource.TextureIdentifier(n.Path))
	case Color:
		return imaging.ColorSquare(n.Colors)
	case Crop:
		in, err := e.Evaluate(ctx, n.Input)
		if err != nil {
			return nil, err
		}
		return imaging.CropScaled(in, n.TotalSize, n.StartX, n.StartY, n.SizeX, n.SizeY)
	case Transform:
		in, err := e.Evaluate(ctx, n.Input)
		if err != nil {
			return nil, err
		}
		return imaging.Transform(in, n.Rotate, n.Flip), nil
	case Mask:
		imgs, err := e.all(ctx, []Node{n.Input, n.Mask})
		if err != nil {
			return nil, err
		}
		return imaging.Mask(imgs[0], imgs[1])
	case CutoffMask:
		in, err := e.Evaluate(ctx, n.Source)
		if err != nil {
			return nil, err
		}
		return imaging.CutoffMask(in, n.Channel, n.Cutoff), nil
	case EdgeMask:
		in, err := e.Evaluate(ctx, n.Source)
		if err != nil {
			return nil, err
		}
		return imaging.EdgeMask(in, imaging.EdgeOptions{
			Directions:        n.Edges,
			CountOutsideFrame: n.CountOutsideFrame,
			Cutoff:            n.Cutoff,
		}), nil
	case GrowMask:
		in, err := e.Evaluate(ctx, n.Source)
		if err != nil {
			return nil, err
		}
		return imaging.GrowMask(in, n.Growth, n.Cutoff), nil
	case InvertMask:
		in, err := e.Evaluate(ctx, n.Source)
		if err != nil {
			return nil, err
		}
		return imaging.Invert(in), nil
	case ChannelMask:
		in, err := e.Evaluate(ctx, n.Source)
		if err != nil {
			return nil, err
		}
		return imaging.ChannelMask(in, n.Channel), nil
	case AddMask:
		imgs, err := e.all(ctx, n.Sources)
		if err != nil {
			return nil, err
		}
		return imaging.Add(imgs...)
	case MultiplyMask:
		imgs, err := e.all(ctx, n.Sources)
		if err != nil {
			return nil, err
		}
		return imaging.Multiply(imgs...)
	case Overlay:
		imgs, err := e.all(ctx, n.Inputs)
		if err != nil {
			return nil, err
		}
		return imaging.Overlay(imgs...)
	case ChannelRoute:
		in, err := e.Evaluate(ctx, n.Source)
		if err != nil {
			return nil, err
		}
		return imaging.ChannelRoute(in, n.Red, n.Green, n.Blue, n.Alpha), nil
	case Animation:
		return e.animation(ctx, n)
	case FrameCapture:
		frame, ok := ctx.frames[n.Capture]
		if !ok {
			return nil, fmt.Errorf("no frame captured as %q", n.Capture)
		}
		return imaging.Copy(frame), nil
	case Fallback:
		quiet := ctx
		quiet.quiet = true
		if img, err := e.Evaluate(quiet, n.Original); err == nil {
			return img, nil
		}
		return e.Evaluate(ctx, n.Fallback)
	case Error:
		return nil, errors.New(n.Message)
	case PaletteCombined:
		imgs, err := e.all(ctx, []Node{n.Background, n.Overlay, n.Paletted})
		if err != nil {
			return nil, err
		}
		return combine.Combine(imgs[0], imgs[1], imgs[2], combine.Options{
			IncludeBackground: n.IncludeBackground,
			StretchPaletted:   n.StretchPaletted,
			Extend:            palette.ToSize(n.ExtendPaletteSize),
		})
	case ForegroundTransfer:
		return e.foregroundTransfer(ctx, n)
	case nil:
		return nil, errors.New("missing node")
	}
	return nil, fmt.Errorf("%w: %T", ErrUnknownNode, n)
}

func (e *Evaluator) animation(ctx Context, n Animation) (*image.NRGBA, error) {
	if len(n.Sources) == 0 {
		return nil, fmt.Errorf("animation has no sources: %w", imaging.ErrGeometry)
	}
	names := make([]string, 0, len(n.Sources))
	for name := range n.Sources {
		names = append(names, name)
	}
	sort.Strings(names)

	sources := make(map[string]*image.NRGBA, len(names))
	counts := make([]int, 0, len(names))
	widths := make([]int, 0, len(names))
	for _, name := range names {
		s := n.Sources[name]
		img, err := e.Evaluate(ctx, s.Source)
		if err != nil {
			return nil, err
		}
		count := s.Scale * imaging.FrameCount(img)
		if count <= 0 {
			return nil, fmt.Errorf("source %q (%dx%d, scale %d) is not shaped like an animation: %w",
				name, img.Rect.Dx(), img.Rect.Dy(), s.Scale, imaging.ErrGeometry)
		}
		sources[name] = img
		counts = append(counts, count)
		widths = append(widths, img.Rect.Dx())
	}

	frames := imaging.LCM(counts...)
	width := imaging.LCM(widths...)
	out := imaging.New(width, width*frames)
	for i := 0; i < frames; i++ {
		captured := make(map[string]*image.NRGBA, len(sources))
		for name, img := range sources {
			f, err := imaging.Frame(img, i/n.Sources[name].Scale)
			if err != nil {
				return nil, err
			}
			captured[name] = f
		}
		img, err := e.Evaluate(ctx.withFrames(captured), n.Generator)
		if err != nil {
			return nil, err
		}
		size := img.Rect.Dx()
		if size != img.Rect.Dy() {
			return nil, fmt.Errorf("generator produced a non-square %dx%d frame: %w", size, img.Rect.Dy(), imaging.ErrGeometry)
		}
		scale := 0
		if size > 0 {
			scale = width / size
		}
		if scale == 0 {
			return nil, fmt.Errorf("generator frame %dx%d does not fit width %d: %w", size, size, width, imaging.ErrGeometry)
		}
		offset := i * width
		imaging.ParallelRows(width, func(y int) {
			for x := 0; x < width; x++ {
				imaging.Set(out, x, offset+y, imaging.Get(img, x/scale, y/scale))
			}
		})
	}
	return out, nil
}

func (e *Evaluator) foregroundTransfer(ctx Context, n ForegroundTransfer) (*image.NRGBA, error) {
	imgs, err := e.all(ctx, []Node{n.Background, n.Full, n.NewBackground})
	if err != nil {
		return nil, err
	}
	res, err := e.extract(ctx, n, imgs[0], imgs[1])
	if err != nil {
		return nil, err
	}
	return combine.Combine(imgs[2], res.Overlay, res.Paletted, combine.Options{
		IncludeBackground: true,
		Extend:            palette.ToSize(n.ExtendPaletteSize),
	})
}

// Extract runs only the extraction half of n; NewBackground is ignored.
// Results are shared with foreground_transfer nodes evaluated in the same
// scope, and the returned layers belong to the caller.
func (e *Evaluator) Extract(ctx Context, n ForegroundTransfer) (*extract.Result, error) {
	imgs, err := e.all(ctx, []Node{n.Background, n.Full})
	if err != nil {
		return nil, err
	}
	return e.extract(ctx, n, imgs[0], imgs[1])
}

func (e *Evaluator) extract(ctx Context, n ForegroundTransfer, background, full *image.NRGBA) (*extract.Result, error) {
	opts := extract.Options{
		Extend:           palette.ToSize(n.ExtendPaletteSize),
		TrimTrailing:     n.TrimTrailing,
		ForceNeighbors:   n.ForceNeighbors,
		FillHoles:        n.FillHoles,
		CloseCutoff:      n.CloseCutoff,
		ClusteringCutoff: e.clusteringCutoff,
	}
	run := func() (*extract.Result, error) {
		return extract.New(opts, e.logger).Extract(background, full)
	}
	if key, ok := e.extractionKey(n); ok {
		return e.extractions.GetOrCompute(ctx.Scope, key, run)
	}
	return run()
}

// extractionKey identifies an extraction by its two inputs and parameters,
// so transfers onto different new backgrounds share one extraction.
func (e *Evaluator) extractionKey(n ForegroundTransfer) (string, bool) {
	if e.extractions == nil {
		return "", false
	}
	bg, ok := CacheKey(n.Background, nil)
	if !ok {
		return "", false
	}
	full, ok := CacheKey(n.Full, nil)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%s,%s,%d,%t,%t,%t,%g,%d", bg, full, n.ExtendPaletteSize,
		n.TrimTrailing, n.ForceNeighbors, n.FillHoles, n.CloseCutoff, e.clusteringCutoff), true
}
