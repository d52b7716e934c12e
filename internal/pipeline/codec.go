package pipeline

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ironsheep/texgen-mcp/internal/colorspace"
	"github.com/ironsheep/texgen-mcp/internal/imaging"
	"github.com/ironsheep/texgen-mcp/internal/resource"
)

// ErrUnknownNode is returned when decoding meets an unknown "type" tag.
var ErrUnknownNode = errors.New("unknown node type")

var errNotCacheable = errors.New("node has no stable cache key")

// Decode parses a node from its JSON form, applying defaults to absent
// optional fields.
func Decode(data []byte) (Node, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse node: %w", err)
	}
	var typ string
	if raw, ok := m["type"]; !ok {
		return nil, errors.New("node has no type")
	} else if err := json.Unmarshal(raw, &typ); err != nil {
		return nil, fmt.Errorf("failed to parse node type: %w", err)
	}
	d := &decoder{typ: typ, m: m}
	n := d.decode()
	if d.err != nil {
		return nil, d.err
	}
	return n, nil
}

// Encode returns the canonical JSON form of n: object keys sorted, defaults
// written out.
func Encode(n Node) ([]byte, error) {
	v, err := (&encoder{}).node(n)
	if err != nil {
		return nil, err
	}
	return marshal(v)
}

// Describe renders n for log messages.
func Describe(n Node) string {
	if n == nil {
		return "<nil>"
	}
	b, err := Encode(n)
	if err != nil {
		return fmt.Sprintf("<%s: %v>", n.Type(), err)
	}
	return string(b)
}

// CacheKey returns a key identifying n's output, or false when n has no
// stable key. A FrameCapture outside an Animation has none, since its output
// depends on the frame being rendered.
//
// With a nil src, textures are keyed by path, which is stable within one
// generation cycle. With a src, each texture's key also carries a digest of
// its contents, making the key stable across runs.
func CacheKey(n Node, src resource.Source) (string, bool) {
	v, err := (&encoder{keys: true, src: src}).node(n)
	if err != nil {
		return "", false
	}
	b, err := marshal(v)
	if err != nil {
		return "", false
	}
	return string(b), true
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

type decoder struct {
	typ string
	m   map[string]json.RawMessage
	err error
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = fmt.Errorf("%s: %w", d.typ, err)
	}
}

// value decodes field name into dst, reporting whether it was present.
func (d *decoder) value(name string, dst any, required bool) bool {
	raw, ok := d.m[name]
	if !ok || string(raw) == "null" {
		if required {
			d.fail(fmt.Errorf("missing field %q", name))
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		d.fail(fmt.Errorf("field %q: %w", name, err))
		return false
	}
	return true
}

func (d *decoder) intOr(name string, def int) int {
	v := def
	d.value(name, &v, false)
	return v
}

func (d *decoder) floatOr(name string, def float64) float64 {
	v := def
	d.value(name, &v, false)
	return v
}

func (d *decoder) boolOr(name string, def bool) bool {
	v := def
	d.value(name, &v, false)
	return v
}

func (d *decoder) requiredInt(name string) int {
	var v int
	d.value(name, &v, true)
	return v
}

func (d *decoder) node(name string) Node {
	raw, ok := d.m[name]
	if !ok {
		d.fail(fmt.Errorf("missing field %q", name))
		return nil
	}
	n, err := Decode(raw)
	if err != nil {
		d.fail(fmt.Errorf("field %q: %w", name, err))
	}
	return n
}

func (d *decoder) nodes(name string) []Node {
	var raws []json.RawMessage
	if !d.value(name, &raws, true) {
		return nil
	}
	out := make([]Node, 0, len(raws))
	for i, raw := range raws {
		n, err := Decode(raw)
		if err != nil {
			d.fail(fmt.Errorf("field %q[%d]: %w", name, i, err))
			return nil
		}
		out = append(out, n)
	}
	return out
}

func (d *decoder) channel(name string, required bool) *imaging.Channel {
	var s string
	if !d.value(name, &s, required) {
		return nil
	}
	ch, err := imaging.ParseChannel(s)
	if err != nil {
		d.fail(err)
		return nil
	}
	return &ch
}

func (d *decoder) channelOr(name string, def imaging.Channel) imaging.Channel {
	if ch := d.channel(name, false); ch != nil {
		return *ch
	}
	return def
}

func (d *decoder) identifier(name string) resource.Identifier {
	var id resource.Identifier
	d.value(name, &id, true)
	return id
}

// colors accepts 0xAARRGGBB integers or "#RRGGBB" / "#AARRGGBB" strings.
func (d *decoder) colors(name string) []colorspace.ARGB {
	var raws []json.RawMessage
	if !d.value(name, &raws, true) {
		return nil
	}
	out := make([]colorspace.ARGB, 0, len(raws))
	for _, raw := range raws {
		var n int64
		if err := json.Unmarshal(raw, &n); err == nil {
			out = append(out, colorspace.ARGB(uint32(n)))
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			d.fail(fmt.Errorf("field %q: color must be a number or hex string", name))
			return nil
		}
		c, err := imaging.ParseHexColor(s)
		if err != nil {
			d.fail(fmt.Errorf("field %q: %w", name, err))
			return nil
		}
		out = append(out, c)
	}
	return out
}

func (d *decoder) directions(name string) []imaging.Direction {
	var names []string
	if !d.value(name, &names, false) {
		return append([]imaging.Direction(nil), imaging.AllDirections...)
	}
	out := make([]imaging.Direction, 0, len(names))
	for _, s := range names {
		dir, err := imaging.ParseDirection(s)
		if err != nil {
			d.fail(err)
			return nil
		}
		out = append(out, dir)
	}
	return out
}

func (d *decoder) decode() Node {
	switch d.typ {
	case TypeTexture:
		return Texture{Path: d.identifier("path")}
	case TypeColor:
		return Color{Colors: d.colors("color")}
	case TypeCrop:
		return Crop{
			Input:     d.node("input"),
			TotalSize: d.requiredInt("total_size"),
			StartX:    d.requiredInt("start_x"),
			StartY:    d.requiredInt("start_y"),
			SizeX:     d.requiredInt("size_x"),
			SizeY:     d.requiredInt("size_y"),
		}
	case TypeTransform:
		return Transform{Input: d.node("input"), Rotate: d.intOr("rotate", 0), Flip: d.boolOr("flip", false)}
	case TypeMask:
		return Mask{Input: d.node("input"), Mask: d.node("mask")}
	case TypeCutoffMask:
		return CutoffMask{
			Source:  d.node("source"),
			Channel: d.channelOr("channel", imaging.ChannelAlpha),
			Cutoff:  d.floatOr("cutoff", DefaultMaskCutoff),
		}
	case TypeEdgeMask:
		return EdgeMask{
			Source:            d.node("source"),
			CountOutsideFrame: d.boolOr("count_outside_frame", false),
			Edges:             d.directions("edges"),
			Cutoff:            d.floatOr("cutoff", DefaultMaskCutoff),
		}
	case TypeGrowMask:
		return GrowMask{
			Source: d.node("source"),
			Growth: d.floatOr("growth", DefaultGrowth),
			Cutoff: d.floatOr("cutoff", DefaultMaskCutoff),
		}
	case TypeInvertMask:
		return InvertMask{Source: d.node("source")}
	case TypeChannelMask:
		n := ChannelMask{Source: d.node("source")}
		if ch := d.channel("channel", true); ch != nil {
			n.Channel = *ch
		}
		return n
	case TypeAddMask:
		return AddMask{Sources: d.nodes("sources")}
	case TypeMultiplyMask:
		return MultiplyMask{Sources: d.nodes("sources")}
	case TypeOverlay:
		return Overlay{Inputs: d.nodes("inputs")}
	case TypeChannelRoute:
		return ChannelRoute{
			Source: d.node("source"),
			Red:    d.channel("red", false),
			Green:  d.channel("green", false),
			Blue:   d.channel("blue", false),
			Alpha:  d.channel("alpha", false),
		}
	case TypeAnimation:
		return d.animation()
	case TypeFrameCapture:
		var capture string
		d.value("capture", &capture, true)
		return FrameCapture{Capture: capture}
	case TypeFallback:
		return Fallback{Original: d.node("original"), Fallback: d.node("fallback")}
	case TypeError:
		var msg string
		d.value("message", &msg, true)
		return Error{Message: msg}
	case TypePaletteCombined:
		n := NewPaletteCombined(d.node("overlay"), d.node("background"), d.node("paletted"))
		n.IncludeBackground = d.boolOr("include_background", n.IncludeBackground)
		n.StretchPaletted = d.boolOr("stretch_paletted", n.StretchPaletted)
		n.ExtendPaletteSize = d.intOr("extend_palette_size", n.ExtendPaletteSize)
		return n
	case TypeForegroundTransfer:
		n := NewForegroundTransfer(d.node("background"), d.node("full"), d.node("new_background"))
		n.ExtendPaletteSize = d.intOr("extend_palette_size", n.ExtendPaletteSize)
		n.TrimTrailing = d.boolOr("trim_trailing", n.TrimTrailing)
		n.ForceNeighbors = d.boolOr("force_neighbors", n.ForceNeighbors)
		n.FillHoles = d.boolOr("fill_holes", n.FillHoles)
		n.CloseCutoff = d.floatOr("close_cutoff", n.CloseCutoff)
		return n
	}
	d.err = fmt.Errorf("%w: %q", ErrUnknownNode, d.typ)
	return nil
}

func (d *decoder) animation() Node {
	var raws map[string]json.RawMessage
	d.value("sources", &raws, true)
	sources := make(map[string]TimedSource, len(raws))
	for name, raw := range raws {
		var m map[string]json.RawMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			d.fail(fmt.Errorf("source %q: %w", name, err))
			return nil
		}
		sd := &decoder{typ: d.typ, m: m}
		sources[name] = TimedSource{Source: sd.node("source"), Scale: sd.intOr("scale", DefaultFrameScale)}
		if sd.err != nil {
			d.fail(fmt.Errorf("source %q: %w", name, sd.err))
			return nil
		}
	}
	return Animation{Sources: sources, Generator: d.node("generator")}
}

// encoder builds the canonical map form of a node. In keys mode it refuses
// nodes without a stable key and may fold texture digests in.
type encoder struct {
	keys        bool
	src         resource.Source
	inAnimation bool
}

type object = map[string]any

func (e *encoder) node(n Node) (any, error) {
	if n == nil {
		return nil, errors.New("missing node")
	}
	o := object{"type": n.Type()}
	var err error
	switch n := n.(type) {
	case Texture:
		o["path"] = n.Path.String()
		if e.keys && e.src != nil {
			if digest, ok, derr := e.digest(resource.TextureIdentifier(n.Path)); derr != nil {
				return nil, derr
			} else if ok {
				o["digest"] = digest
			}
		}
	case Color:
		hexes := make([]string, len(n.Colors))
		for i, c := range n.Colors {
			hexes[i] = imaging.FormatHexColor(c)
		}
		o["color"] = hexes
	case Crop:
		o["input"], err = e.node(n.Input)
		o["total_size"], o["start_x"], o["start_y"], o["size_x"], o["size_y"] = n.TotalSize, n.StartX, n.StartY, n.SizeX, n.SizeY
	case Transform:
		o["input"], err = e.node(n.Input)
		o["rotate"], o["flip"] = n.Rotate, n.Flip
	case Mask:
		err = e.fields(o, "input", n.Input, "mask", n.Mask)
	case CutoffMask:
		o["source"], err = e.node(n.Source)
		o["channel"], o["cutoff"] = n.Channel, n.Cutoff
	case EdgeMask:
		o["source"], err = e.node(n.Source)
		o["count_outside_frame"], o["edges"], o["cutoff"] = n.CountOutsideFrame, n.Edges, n.Cutoff
	case GrowMask:
		o["source"], err = e.node(n.Source)
		o["growth"], o["cutoff"] = n.Growth, n.Cutoff
	case InvertMask:
		o["source"], err = e.node(n.Source)
	case ChannelMask:
		o["source"], err = e.node(n.Source)
		o["channel"] = n.Channel
	case AddMask:
		o["sources"], err = e.list(n.Sources)
	case MultiplyMask:
		o["sources"], err = e.list(n.Sources)
	case Overlay:
		o["inputs"], err = e.list(n.Inputs)
	case ChannelRoute:
		o["source"], err = e.node(n.Source)
		for name, ch := range map[string]*imaging.Channel{"red": n.Red, "green": n.Green, "blue": n.Blue, "alpha": n.Alpha} {
			if ch != nil {
				o[name] = *ch
			}
		}
	case Animation:
		sources := object{}
		for name, s := range n.Sources {
			src, serr := e.node(s.Source)
			if serr != nil {
				return nil, serr
			}
			sources[name] = object{"source": src, "scale": s.Scale}
		}
		o["sources"] = sources
		inner := *e
		inner.inAnimation = true
		o["generator"], err = inner.node(n.Generator)
	case FrameCapture:
		if e.keys && !e.inAnimation {
			return nil, errNotCacheable
		}
		o["capture"] = n.Capture
	case Fallback:
		err = e.fields(o, "original", n.Original, "fallback", n.Fallback)
	case Error:
		o["message"] = n.Message
	case PaletteCombined:
		err = e.fields(o, "overlay", n.Overlay, "background", n.Background, "paletted", n.Paletted)
		o["include_background"], o["stretch_paletted"], o["extend_palette_size"] = n.IncludeBackground, n.StretchPaletted, n.ExtendPaletteSize
	case ForegroundTransfer:
		err = e.fields(o, "background", n.Background, "full", n.Full, "new_background", n.NewBackground)
		o["extend_palette_size"] = n.ExtendPaletteSize
		o["trim_trailing"], o["force_neighbors"], o["fill_holes"] = n.TrimTrailing, n.ForceNeighbors, n.FillHoles
		o["close_cutoff"] = n.CloseCutoff
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownNode, n)
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// fields encodes name/node pairs into o.
func (e *encoder) fields(o object, pairs ...any) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		child, _ := pairs[i+1].(Node)
		v, err := e.node(child)
		if err != nil {
			return err
		}
		o[pairs[i].(string)] = v
	}
	return nil
}

func (e *encoder) list(nodes []Node) ([]any, error) {
	out := make([]any, len(nodes))
	for i, n := range nodes {
		v, err := e.node(n)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// digest hashes a texture's contents. A missing texture has no digest; an
// unreadable one makes the key unstable.
func (e *encoder) digest(id resource.Identifier) (string, bool, error) {
	open, ok := e.src.Resolve(id)
	if !ok {
		return "", false, nil
	}
	rc, err := open()
	if err != nil {
		return "", false, errNotCacheable
	}
	defer rc.Close()
	h := sha256.New()
	if _, err := io.Copy(h, rc); err != nil {
		return "", false, errNotCacheable
	}
	return hex.EncodeToString(h.Sum(nil)), true, nil
}
