package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/hashicorp/go-hclog"

	"github.com/ironsheep/texgen-mcp/internal/imaging"
	"github.com/ironsheep/texgen-mcp/internal/resource"
)

// Store persists rendered outputs between runs.
type Store interface {
	Load(key string) ([]byte, bool)
	Store(key string, data []byte) error
}

// Definitions maps output locations to the nodes that render them.
type Definitions map[resource.Identifier]Node

// definitionFile is the on-disk form: {"outputs": {"ns:path": node}}.
type definitionFile struct {
	Outputs map[string]json.RawMessage `json:"outputs"`
}

// ParseDefinitions parses one definition file.
func ParseDefinitions(data []byte) (Definitions, error) {
	var f definitionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse definitions: %w", err)
	}
	defs := make(Definitions, len(f.Outputs))
	for name, raw := range f.Outputs {
		id, err := resource.ParseIdentifier(name)
		if err != nil {
			return nil, err
		}
		n, err := Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("output %s: %w", id, err)
		}
		defs[id] = n
	}
	return defs, nil
}

// LoadDefinitions reads every file matching the glob patterns. A location
// defined twice is an error.
func LoadDefinitions(patterns ...string) (Definitions, error) {
	defs := make(Definitions)
	for _, pattern := range patterns {
		paths, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad definition pattern %q: %w", pattern, err)
		}
		sort.Strings(paths)
		for _, path := range paths {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read definitions: %w", err)
			}
			file, err := ParseDefinitions(data)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			for id, n := range file {
				if _, dup := defs[id]; dup {
					return nil, fmt.Errorf("%s: output %s is defined twice", path, id)
				}
				defs[id] = n
			}
		}
	}
	return defs, nil
}

// Generator serves rendered PNGs for a fixed set of output locations.
type Generator struct {
	eval    *Evaluator
	outputs Definitions
	store   Store
	logger  hclog.Logger
}

// GeneratorOptions configures a Generator.
type GeneratorOptions struct {
	// Store, if set, persists outputs between runs.
	Store Store
	// Logger receives cache write failures. Nil discards them.
	Logger hclog.Logger
}

// NewGenerator creates a generator rendering outputs with eval.
func NewGenerator(eval *Evaluator, outputs Definitions, opts GeneratorOptions) *Generator {
	logger := opts.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Generator{
		eval:    eval,
		outputs: outputs,
		store:   opts.Store,
		logger:  logger.Named("generator"),
	}
}

// Locations lists the output locations, sorted.
func (g *Generator) Locations() []resource.Identifier {
	ids := make([]resource.Identifier, 0, len(g.outputs))
	for id := range g.outputs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Node returns the node rendering id.
func (g *Generator) Node(id resource.Identifier) (Node, bool) {
	n, ok := g.outputs[id]
	return n, ok
}

// Get returns an opener rendering id as PNG, or false when id is not an
// output of this generator. Rendering happens when the opener is called;
// a node without an image makes it fail with ErrNoImage.
func (g *Generator) Get(id resource.Identifier, ctx Context) (resource.Opener, bool) {
	if _, ok := g.outputs[id]; !ok {
		return nil, false
	}
	return func() (io.ReadCloser, error) {
		data, err := g.Render(id, ctx)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}, true
}

// Render renders id to PNG bytes, consulting the store first.
func (g *Generator) Render(id resource.Identifier, ctx Context) ([]byte, error) {
	n, ok := g.outputs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", resource.ErrNotFound, id)
	}
	key, keyed := "", false
	if g.store != nil {
		key, keyed = g.CreateCacheKey(id, ctx)
		if keyed {
			if data, ok := g.store.Load(key); ok {
				return data, nil
			}
		}
	}

	img, err := g.eval.Evaluate(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("output %s: %w", id, err)
	}
	data, err := imaging.PNGBytes(img)
	if err != nil {
		return nil, err
	}
	if keyed {
		if err := g.store.Store(key, data); err != nil {
			g.logger.Warn("failed to persist output", "id", id.String(), "error", err)
		}
	}
	return data, nil
}

// CreateCacheKey returns a key for the persistent store that changes
// whenever id's definition, any texture it reads, or an evaluator setting
// its output depends on changes.
func (g *Generator) CreateCacheKey(id resource.Identifier, _ Context) (string, bool) {
	n, ok := g.outputs[id]
	if !ok {
		return "", false
	}
	key, ok := CacheKey(n, g.eval.Source())
	if !ok {
		return "", false
	}
	if extracts(n) {
		key = fmt.Sprintf("%s;clustering_cutoff=%d", key, g.eval.clusteringCutoff)
	}
	return id.String() + "=" + key, true
}

// extracts reports whether n's tree contains a foreground_transfer.
func extracts(n Node) bool {
	if _, ok := n.(ForegroundTransfer); ok {
		return true
	}
	for _, child := range children(n) {
		if extracts(child) {
			return true
		}
	}
	return false
}

// children lists the direct inputs of n.
func children(n Node) []Node {
	switch n := n.(type) {
	case Crop:
		return []Node{n.Input}
	case Transform:
		return []Node{n.Input}
	case Mask:
		return []Node{n.Input, n.Mask}
	case CutoffMask:
		return []Node{n.Source}
	case EdgeMask:
		return []Node{n.Source}
	case GrowMask:
		return []Node{n.Source}
	case InvertMask:
		return []Node{n.Source}
	case ChannelMask:
		return []Node{n.Source}
	case ChannelRoute:
		return []Node{n.Source}
	case AddMask:
		return n.Sources
	case MultiplyMask:
		return n.Sources
	case Overlay:
		return n.Inputs
	case Animation:
		out := []Node{n.Generator}
		for _, s := range n.Sources {
			out = append(out, s.Source)
		}
		return out
	case Fallback:
		return []Node{n.Original, n.Fallback}
	case PaletteCombined:
		return []Node{n.Background, n.Overlay, n.Paletted}
	case ForegroundTransfer:
		return []Node{n.Background, n.Full, n.NewBackground}
	}
	return nil
}

// Reset drops everything cached in scope.
func (g *Generator) Reset(scope string) {
	g.eval.Reset(scope)
}

// Evaluator returns the evaluator rendering outputs.
func (g *Generator) Evaluator() *Evaluator { return g.eval }
