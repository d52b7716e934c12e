package colorspace

import (
	"image/color"
	"math"
	"sync"
	"testing"
)

func TestPackAccessors(t *testing.T) {
	c := Pack(0x11, 0x22, 0x33, 0x44)
	if c != 0x11223344 {
		t.Fatalf("Pack: got %#08x, want 0x11223344", uint32(c))
	}
	if c.A() != 0x11 || c.R() != 0x22 || c.G() != 0x33 || c.B() != 0x44 {
		t.Errorf("channels: got (%#x,%#x,%#x,%#x)", c.A(), c.R(), c.G(), c.B())
	}
	if c.Opaque() != 0xFF223344 {
		t.Errorf("Opaque: got %#08x", uint32(c.Opaque()))
	}
}

func TestFromColor(t *testing.T) {
	tests := []struct {
		name string
		in   color.Color
		want ARGB
	}{
		{"nrgba", color.NRGBA{R: 10, G: 20, B: 30, A: 255}, 0xFF0A141E},
		{"premultiplied half red", color.RGBA{R: 128, A: 128}, 0x80FF0000},
		{"transparent", color.RGBA{}, 0},
		{"gray", color.Gray{Y: 0x80}, 0xFF808080},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromColor(tt.in); got != tt.want {
				t.Errorf("got %#08x, want %#08x", uint32(got), uint32(tt.want))
			}
		})
	}
}

func TestAlphaBlend(t *testing.T) {
	tests := []struct {
		name        string
		over, under ARGB
		want        ARGB
	}{
		{"opaque over anything", 0xFFFF0000, 0xFF00FF00, 0xFFFF0000},
		{"transparent over", 0x00FF0000, 0xFF00FF00, 0xFF00FF00},
		{"both transparent", 0x00FF0000, 0x0000FF00, 0},
		{"half over opaque", 0x80FF0000, 0xFF0000FF, Pack(255, 128, 0, 127)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AlphaBlend(tt.over, tt.under); got != tt.want {
				t.Errorf("got %#08x, want %#08x", uint32(got), uint32(tt.want))
			}
		})
	}
}

func TestRGBDistance(t *testing.T) {
	if d := RGBDistance(0xFF000000, 0xFFFFFFFF); math.Abs(d-255*math.Sqrt(3)) > 1e-9 {
		t.Errorf("black-white: got %f", d)
	}
	if d := RGBDistance(0x00123456, 0xFF123456); d != 0 {
		t.Errorf("alpha should be ignored, got %f", d)
	}
}

func TestLabRoundTrip(t *testing.T) {
	colors := []ARGB{0xFF000000, 0xFFFFFFFF, 0xFFFF0000, 0xFF00FF00, 0xFF0000FF, 0xFF808080, 0xFF7F3A10}
	for _, c := range colors {
		back := LabOf(c).ARGB()
		if RGBDistance(c, back) > 1.5 {
			t.Errorf("Lab round trip of %#08x: got %#08x", uint32(c), uint32(back))
		}
	}
}

func TestLabScale(t *testing.T) {
	white := LabOf(0xFFFFFFFF)
	if math.Abs(white.L-100) > 0.5 {
		t.Errorf("white L: got %f, want 100", white.L)
	}
	black := LabOf(0xFF000000)
	if math.Abs(black.L) > 0.5 {
		t.Errorf("black L: got %f, want 0", black.L)
	}
	if d := LabDistance(0xFF000000, 0xFFFFFFFF); math.Abs(d-100) > 1 {
		t.Errorf("black-white Lab distance: got %f, want about 100", d)
	}
}

func TestLab32(t *testing.T) {
	c := ARGB(0x80FF0000)
	packed := ToLab32(c)
	if packed.Alpha() != 0x80 {
		t.Errorf("alpha: got %#x, want 0x80", packed.Alpha())
	}
	if packed.Lightness() < 50 || packed.Lightness() > 56 {
		t.Errorf("red lightness: got %d, want about 53", packed.Lightness())
	}
	if packed.AAxis() <= 0 {
		t.Errorf("red a axis should be positive, got %d", packed.AAxis())
	}
	back := packed.ARGB()
	if back.A() != 0x80 || RGBDistance(back, c) > 6 {
		t.Errorf("round trip: got %#08x", uint32(back))
	}
}

func TestHSLAndHSV(t *testing.T) {
	tests := []struct {
		name string
		c    ARGB
	}{
		{"red", 0xFFFF0000},
		{"teal", 0xFF008080},
		{"gray", 0xFF808080},
		{"translucent orange", 0x40FF8000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hsl := ToHSL32(tt.c)
			if hsl.Alpha() != tt.c.A() {
				t.Errorf("HSL alpha: got %d, want %d", hsl.Alpha(), tt.c.A())
			}
			if back := hsl.ARGB(); RGBDistance(back, tt.c) > 4 {
				t.Errorf("HSL round trip: got %#08x, want %#08x", uint32(back), uint32(tt.c))
			}
			hsv := ToHSV32(tt.c)
			if back := hsv.ARGB(); RGBDistance(back, tt.c) > 4 {
				t.Errorf("HSV round trip: got %#08x, want %#08x", uint32(back), uint32(tt.c))
			}
		})
	}

	if h := ToHSL32(0xFFFF0000).Hue(); h != 0 {
		t.Errorf("red hue: got %d, want 0", h)
	}
	if v := ToHSV32(0xFFFFFFFF).Value(); v != 255 {
		t.Errorf("white value: got %d, want 255", v)
	}
}

func TestABGRAndARGB64(t *testing.T) {
	c := ARGB(0x80112233)
	if got := ToABGR(c); got != 0x80332211 {
		t.Errorf("ToABGR: got %#08x, want 0x80332211", uint32(got))
	}
	if got := ToABGR(c).ARGB(); got != c {
		t.Errorf("ABGR round trip: got %#08x", uint32(got))
	}
	wide := To64(c)
	if wide != 0x8080111122223333 {
		t.Errorf("To64: got %#016x", uint64(wide))
	}
	if got := wide.ARGB(); got != c {
		t.Errorf("ARGB64 round trip: got %#08x", uint32(got))
	}
}

func TestLabCacheConcurrent(t *testing.T) {
	var lc LabCache
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for v := 0; v < 256; v++ {
				c := Gray(uint8(v))
				if got, want := lc.Lab(c), LabOf(c); got != want {
					t.Errorf("cached Lab for %d: got %v, want %v", v, got, want)
					return
				}
			}
		}(i)
	}
	wg.Wait()
}
