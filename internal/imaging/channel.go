package imaging

import (
	"fmt"

	"github.com/ironsheep/texgen-mcp/internal/colorspace"
)

// Channel names one 8-bit component of a pixel in some color space.
type Channel string

// Channels understood by masks and channel routing.
const (
	ChannelAlpha         Channel = "alpha"
	ChannelRed           Channel = "red"
	ChannelGreen         Channel = "green"
	ChannelBlue          Channel = "blue"
	ChannelHue           Channel = "hue"
	ChannelSaturation    Channel = "saturation"
	ChannelLightness     Channel = "lightness"
	ChannelLabLightness  Channel = "cielab_lightness"
	ChannelLabA          Channel = "cielab_a"
	ChannelLabB          Channel = "cielab_b"
	ChannelHSLHue        Channel = "hsl_hue"
	ChannelHSLSaturation Channel = "hsl_saturation"
	ChannelHSLLightness  Channel = "hsl_lightness"
)

// ParseChannel validates a channel name.
func ParseChannel(name string) (Channel, error) {
	ch := Channel(name)
	switch ch {
	case ChannelAlpha, ChannelRed, ChannelGreen, ChannelBlue,
		ChannelHue, ChannelSaturation, ChannelLightness,
		ChannelLabLightness, ChannelLabA, ChannelLabB,
		ChannelHSLHue, ChannelHSLSaturation, ChannelHSLLightness:
		return ch, nil
	}
	return "", fmt.Errorf("unknown channel %q", name)
}

// Value extracts the channel from c as a byte. CIELAB lightness is rescaled
// from 0-100 and the signed a and b axes are offset by 128.
func (ch Channel) Value(c colorspace.ARGB) uint8 {
	switch ch {
	case ChannelAlpha:
		return c.A()
	case ChannelRed:
		return c.R()
	case ChannelGreen:
		return c.G()
	case ChannelBlue:
		return c.B()
	case ChannelHue, ChannelHSLHue:
		return colorspace.ToHSL32(c).Hue()
	case ChannelSaturation, ChannelHSLSaturation:
		return colorspace.ToHSL32(c).Saturation()
	case ChannelLightness, ChannelHSLLightness:
		return colorspace.ToHSL32(c).Lightness()
	case ChannelLabLightness:
		return uint8(int(colorspace.ToLab32(c).Lightness()) * 255 / 100)
	case ChannelLabA:
		return uint8(int(colorspace.ToLab32(c).AAxis()) + 128)
	case ChannelLabB:
		return uint8(int(colorspace.ToLab32(c).BAxis()) + 128)
	}
	return 0
}
