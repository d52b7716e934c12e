package pipeline

import (
	"github.com/ironsheep/texgen-mcp/internal/colorspace"
	"github.com/ironsheep/texgen-mcp/internal/combine"
	"github.com/ironsheep/texgen-mcp/internal/extract"
	"github.com/ironsheep/texgen-mcp/internal/imaging"
	"github.com/ironsheep/texgen-mcp/internal/resource"
)

// Node is one image transform in a pipeline. The set of node types is
// closed: every implementation lives in this file.
type Node interface {
	// Type is the node's "type" tag in definition files.
	Type() string
	isNode()
}

// Type tags.
const (
	TypeTexture            = "texture"
	TypeColor              = "color"
	TypeCrop               = "crop"
	TypeTransform          = "transform"
	TypeMask               = "mask"
	TypeCutoffMask         = "mask/cutoff"
	TypeEdgeMask           = "mask/edge"
	TypeGrowMask           = "mask/grow"
	TypeInvertMask         = "mask/invert"
	TypeChannelMask        = "mask/channel"
	TypeAddMask            = "mask/add"
	TypeMultiplyMask       = "mask/multiply"
	TypeOverlay            = "overlay"
	TypeChannelRoute       = "channel_route"
	TypeAnimation          = "animation_splitter"
	TypeFrameCapture       = "frame_capture"
	TypeFallback           = "fallback"
	TypeError              = "error"
	TypePaletteCombined    = "combined_paletted_image"
	TypeForegroundTransfer = "foreground_transfer"
)

// Defaults applied when optional fields are absent.
const (
	DefaultMaskCutoff = 0.5
	DefaultGrowth     = 1.0 / 16
	DefaultFrameScale = 1
)

// Texture reads a source texture. Path is the short form, so
// "minecraft:block/stone" reads "minecraft:textures/block/stone.png".
type Texture struct {
	Path resource.Identifier
}

// Color lays a list of colors out in a square.
type Color struct {
	Colors []colorspace.ARGB
}

// Crop cuts a rectangle out of Input. Coordinates are in units of
// width/TotalSize.
type Crop struct {
	Input     Node
	TotalSize int
	StartX    int
	StartY    int
	SizeX     int
	SizeY     int
}

// Transform rotates Input clockwise Rotate quarter turns, then mirrors it
// horizontally if Flip is set.
type Transform struct {
	Input  Node
	Rotate int
	Flip   bool
}

// Mask multiplies the alpha of Input by the alpha of Mask.
type Mask struct {
	Input Node
	Mask  Node
}

// CutoffMask is white wherever Channel of Source is above Cutoff.
type CutoffMask struct {
	Source  Node
	Channel imaging.Channel
	Cutoff  float64
}

// EdgeMask marks the border of Source's solid region.
type EdgeMask struct {
	Source            Node
	CountOutsideFrame bool
	Edges             []imaging.Direction
	Cutoff            float64
}

// GrowMask dilates Source's solid region by Growth times its width.
type GrowMask struct {
	Source Node
	Growth float64
	Cutoff float64
}

// InvertMask inverts every channel of Source.
type InvertMask struct {
	Source Node
}

// ChannelMask turns Channel of Source into alpha.
type ChannelMask struct {
	Source  Node
	Channel imaging.Channel
}

// AddMask sums its sources channel by channel.
type AddMask struct {
	Sources []Node
}

// MultiplyMask multiplies its sources channel by channel.
type MultiplyMask struct {
	Sources []Node
}

// Overlay stacks Inputs with the first on top.
type Overlay struct {
	Inputs []Node
}

// ChannelRoute builds each output channel from a channel of Source. A nil
// route leaves that channel at zero.
type ChannelRoute struct {
	Source Node
	Red    *imaging.Channel
	Green  *imaging.Channel
	Blue   *imaging.Channel
	Alpha  *imaging.Channel
}

// TimedSource is an animated input whose frames each last Scale output
// frames.
type TimedSource struct {
	Source Node
	Scale  int
}

// Animation runs Generator once per output frame with each named source cut
// to its current frame, then stacks the results vertically. Generator reads
// the frames through FrameCapture nodes.
type Animation struct {
	Sources   map[string]TimedSource
	Generator Node
}

// FrameCapture reads the current frame of a source named by an enclosing
// Animation.
type FrameCapture struct {
	Capture string
}

// Fallback yields Original, or Fallback if Original produces no image.
// Failures of Original are not logged.
type Fallback struct {
	Original Node
	Fallback Node
}

// Error never produces an image; it logs Message.
type Error struct {
	Message string
}

// PaletteCombined lays Overlay and the palette layer Paletted over
// Background, resolving sample numbers against Background's palette.
type PaletteCombined struct {
	Overlay           Node
	Background        Node
	Paletted          Node
	IncludeBackground bool
	StretchPaletted   bool
	ExtendPaletteSize int
}

// NewPaletteCombined returns a PaletteCombined with default options.
func NewPaletteCombined(overlay, background, paletted Node) PaletteCombined {
	return PaletteCombined{
		Overlay:           overlay,
		Background:        background,
		Paletted:          paletted,
		IncludeBackground: true,
		ExtendPaletteSize: combine.DefaultExtendSize,
	}
}

// ForegroundTransfer extracts what Full adds over Background and re-applies
// it to NewBackground.
type ForegroundTransfer struct {
	Background        Node
	Full              Node
	NewBackground     Node
	ExtendPaletteSize int
	TrimTrailing      bool
	ForceNeighbors    bool
	FillHoles         bool
	CloseCutoff       float64
}

// NewForegroundTransfer returns a ForegroundTransfer with default options.
func NewForegroundTransfer(background, full, newBackground Node) ForegroundTransfer {
	return ForegroundTransfer{
		Background:        background,
		Full:              full,
		NewBackground:     newBackground,
		ExtendPaletteSize: extract.DefaultExtendSize,
		TrimTrailing:      true,
		ForceNeighbors:    true,
		FillHoles:         true,
		CloseCutoff:       extract.DefaultCloseCutoff,
	}
}

func (Texture) Type() string            { return TypeTexture }
func (Color) Type() string              { return TypeColor }
func (Crop) Type() string               { return TypeCrop }
func (Transform) Type() string          { return TypeTransform }
func (Mask) Type() string               { return TypeMask }
func (CutoffMask) Type() string         { return TypeCutoffMask }
func (EdgeMask) Type() string           { return TypeEdgeMask }
func (GrowMask) Type() string           { return TypeGrowMask }
func (InvertMask) Type() string         { return TypeInvertMask }
func (ChannelMask) Type() string        { return TypeChannelMask }
func (AddMask) Type() string            { return TypeAddMask }
func (MultiplyMask) Type() string       { return TypeMultiplyMask }
func (Overlay) Type() string            { return TypeOverlay }
func (ChannelRoute) Type() string       { return TypeChannelRoute }
func (Animation) Type() string          { return TypeAnimation }
func (FrameCapture) Type() string       { return TypeFrameCapture }
func (Fallback) Type() string           { return TypeFallback }
func (Error) Type() string              { return TypeError }
func (PaletteCombined) Type() string    { return TypePaletteCombined }
func (ForegroundTransfer) Type() string { return TypeForegroundTransfer }

func (Texture) isNode()            {}
func (Color) isNode()              {}
func (Crop) isNode()               {}
func (Transform) isNode()          {}
func (Mask) isNode()               {}
func (CutoffMask) isNode()         {}
func (EdgeMask) isNode()           {}
func (GrowMask) isNode()           {}
func (InvertMask) isNode()         {}
func (ChannelMask) isNode()        {}
func (AddMask) isNode()            {}
func (MultiplyMask) isNode()       {}
func (Overlay) isNode()            {}
func (ChannelRoute) isNode()       {}
func (Animation) isNode()          {}
func (FrameCapture) isNode()       {}
func (Fallback) isNode()           {}
func (Error) isNode()              {}
func (PaletteCombined) isNode()    {}
func (ForegroundTransfer) isNode() {}
