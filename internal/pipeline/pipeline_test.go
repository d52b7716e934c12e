package pipeline

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/hashicorp/go-hclog"

	"github.com/ironsheep/texgen-mcp/internal/colorspace"
	"github.com/ironsheep/texgen-mcp/internal/imaging"
	"github.com/ironsheep/texgen-mcp/internal/resource"
)

func solid(w, h int, c colorspace.ARGB) []byte {
	img := imaging.New(w, h)
	imaging.Fill(img, c)
	data, _ := imaging.PNGBytes(img)
	return data
}

func twoTone(size int, left, right colorspace.ARGB) []byte {
	img := imaging.New(size, size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if x < size/2 {
				imaging.Set(img, x, y, left)
			} else {
				imaging.Set(img, x, y, right)
			}
		}
	}
	data, _ := imaging.PNGBytes(img)
	return data
}

// strip is a 2x4 animation: a red frame above a blue one.
func strip() []byte {
	img := imaging.New(2, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 2; x++ {
			if y < 2 {
				imaging.Set(img, x, y, 0xFFFF0000)
			} else {
				imaging.Set(img, x, y, 0xFF0000FF)
			}
		}
	}
	data, _ := imaging.PNGBytes(img)
	return data
}

func ore() []byte {
	img := imaging.New(2, 2)
	imaging.Set(img, 0, 0, 0xFF808080)
	imaging.Set(img, 0, 1, 0xFF808080)
	imaging.Set(img, 1, 0, 0xFFA0A0A0)
	imaging.Set(img, 1, 1, 0xFFFF0000)
	data, _ := imaging.PNGBytes(img)
	return data
}

func textures() fstest.MapFS {
	return fstest.MapFS{
		"minecraft/textures/block/stone.png":     {Data: twoTone(2, 0xFF808080, 0xFFA0A0A0)},
		"minecraft/textures/block/ore.png":       {Data: ore()},
		"minecraft/textures/block/moss.png":      {Data: twoTone(2, 0xFF204020, 0xFF60A060)},
		"minecraft/textures/block/sand.png":      {Data: twoTone(2, 0xFFC0B080, 0xFFE0D0A0)},
		"minecraft/textures/block/white.png":     {Data: solid(4, 4, 0xFFFFFFFF)},
		"minecraft/textures/block/animated.png":  {Data: strip()},
		"minecraft/textures/block/wide.png":      {Data: solid(4, 2, 0xFF00FF00)},
		"minecraft/textures/block/half_gray.png": {Data: solid(2, 2, 0x80808080)},
		"minecraft/textures/block/left.png":      {Data: twoTone(2, 0xFFFFFFFF, 0)},
	}
}

func tex(path string) Texture {
	return Texture{Path: resource.MustParse("minecraft:block/" + path)}
}

func newEvaluator(t *testing.T, logs *bytes.Buffer) *Evaluator {
	t.Helper()
	var logger hclog.Logger
	if logs != nil {
		logger = hclog.New(&hclog.LoggerOptions{Name: "test", Output: logs, Level: hclog.Debug})
	}
	return NewEvaluator(resource.NewImages(resource.FromFS(textures())), Options{Logger: logger})
}

func TestDecodeDefaults(t *testing.T) {
	n, err := Decode([]byte(`{"type":"foreground_transfer",
		"background":{"type":"texture","path":"minecraft:block/stone"},
		"full":{"type":"texture","path":"block/ore"},
		"new_background":{"type":"texture","path":"minecraft:block/moss"}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := NewForegroundTransfer(tex("stone"), tex("ore"), tex("moss"))
	if !reflect.DeepEqual(n, want) {
		t.Errorf("got %+v, want %+v", n, want)
	}

	n, err = Decode([]byte(`{"type":"mask/edge","source":{"type":"texture","path":"block/stone"}}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	edge := n.(EdgeMask)
	if edge.Cutoff != DefaultMaskCutoff || len(edge.Edges) != 8 || edge.CountOutsideFrame {
		t.Errorf("edge defaults: got %+v", edge)
	}
}

func TestDecodeColors(t *testing.T) {
	n, err := Decode([]byte(`{"type":"color","color":[4294901760,"#00FF00","#8000000F"]}`))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	got := n.(Color).Colors
	want := []colorspace.ARGB{0xFFFF0000, 0xFF00FF00, 0x8000000F}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		unknown bool
	}{
		{"not json", `{`, false},
		{"no type", `{"path":"block/stone"}`, false},
		{"unknown type", `{"type":"blur"}`, true},
		{"nested unknown", `{"type":"overlay","inputs":[{"type":"blur"}]}`, true},
		{"missing child", `{"type":"transform","rotate":1}`, false},
		{"missing crop field", `{"type":"crop","input":{"type":"color","color":[1]},"total_size":2}`, false},
		{"bad channel", `{"type":"mask/channel","source":{"type":"color","color":[1]},"channel":"purple"}`, false},
		{"bad direction", `{"type":"mask/edge","source":{"type":"color","color":[1]},"edges":["up"]}`, false},
		{"bad identifier", `{"type":"texture","path":"Block/Stone"}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.json))
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := errors.Is(err, ErrUnknownNode); got != tt.unknown {
				t.Errorf("errors.Is(err, ErrUnknownNode): got %v, want %v (%v)", got, tt.unknown, err)
			}
		})
	}
}

func TestEncodeCanonical(t *testing.T) {
	red := imaging.ChannelRed
	n := Overlay{Inputs: []Node{
		Transform{Input: tex("stone"), Rotate: 1, Flip: true},
		ChannelRoute{Source: tex("ore"), Alpha: &red},
		Animation{
			Sources:   map[string]TimedSource{"b": {Source: tex("animated"), Scale: 2}, "a": {Source: tex("stone"), Scale: 1}},
			Generator: FrameCapture{Capture: "b"},
		},
	}}
	data, err := Encode(n)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !strings.HasPrefix(string(data), `{"inputs":[{"flip":true,"input":{"path":"minecraft:block/stone","type":"texture"},"rotate":1,"type":"transform"}`) {
		t.Errorf("keys should be sorted, got %s", data)
	}
	back, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode of encoded node failed: %v", err)
	}
	if !reflect.DeepEqual(back, n) {
		t.Errorf("decoded node differs:\n got %+v\nwant %+v", back, n)
	}
}

func TestCacheKey(t *testing.T) {
	a, ok := CacheKey(Crop{Input: tex("stone"), TotalSize: 2, SizeX: 1, SizeY: 1}, nil)
	if !ok {
		t.Fatal("crop should be cacheable")
	}
	b, _ := CacheKey(Crop{Input: tex("stone"), TotalSize: 2, SizeX: 1, SizeY: 1}, nil)
	c, _ := CacheKey(Crop{Input: tex("stone"), TotalSize: 2, StartX: 1, SizeX: 1, SizeY: 1}, nil)
	if a != b {
		t.Error("equal nodes should share a key")
	}
	if a == c {
		t.Error("different nodes should not share a key")
	}

	if _, ok := CacheKey(Transform{Input: FrameCapture{Capture: "x"}}, nil); ok {
		t.Error("a frame capture outside an animation has no stable key")
	}
	anim := Animation{
		Sources:   map[string]TimedSource{"x": {Source: tex("animated"), Scale: 1}},
		Generator: Transform{Input: FrameCapture{Capture: "x"}},
	}
	if _, ok := CacheKey(anim, nil); !ok {
		t.Error("an animation should be cacheable")
	}
	if _, ok := CacheKey(Mask{Input: tex("stone")}, nil); ok {
		t.Error("a node with a missing child has no key")
	}
}

func TestCacheKeyDigestsTextures(t *testing.T) {
	fsys := textures()
	src := resource.FromFS(fsys)
	before, ok := CacheKey(tex("stone"), src)
	if !ok {
		t.Fatal("texture should be cacheable")
	}
	if !strings.Contains(before, `"digest"`) {
		t.Errorf("key should carry a digest: %s", before)
	}
	fsys["minecraft/textures/block/stone.png"] = &fstest.MapFile{Data: solid(2, 2, 0xFF000000)}
	after, _ := CacheKey(tex("stone"), src)
	if before == after {
		t.Error("changing a texture should change the key")
	}
	missing, ok := CacheKey(tex("nothing"), src)
	if !ok || strings.Contains(missing, "digest") {
		t.Errorf("missing texture: got %q, %v", missing, ok)
	}
}

func TestEvaluateLeavesAndOps(t *testing.T) {
	e := newEvaluator(t, nil)
	ctx := NewContext("test")

	tests := []struct {
		name string
		node Node
		w, h int
		x, y int
		want colorspace.ARGB
	}{
		{"texture", tex("stone"), 2, 2, 1, 0, 0xFFA0A0A0},
		{"color", Color{Colors: []colorspace.ARGB{1, 2, 3}}, 2, 2, 0, 1, 3},
		{"crop", Crop{Input: tex("stone"), TotalSize: 2, StartX: 1, SizeX: 1, SizeY: 1}, 1, 1, 0, 0, 0xFFA0A0A0},
		{"transform", Transform{Input: tex("stone"), Rotate: 2}, 2, 2, 0, 0, 0xFFA0A0A0},
		{"flip", Transform{Input: tex("stone"), Flip: true}, 2, 2, 1, 0, 0xFF808080},
		{"overlay", Overlay{Inputs: []Node{tex("ore"), tex("moss")}}, 2, 2, 1, 1, 0xFFFF0000},
		{"overlay scales", Overlay{Inputs: []Node{Color{Colors: []colorspace.ARGB{0}}, tex("white")}}, 4, 4, 3, 3, 0xFFFFFFFF},
		{"mask", Mask{Input: tex("white"), Mask: tex("half_gray")}, 4, 4, 0, 0, 0x80FFFFFF},
		{"invert", InvertMask{Source: tex("white")}, 4, 4, 0, 0, 0},
		{"cutoff", CutoffMask{Source: tex("half_gray"), Channel: imaging.ChannelAlpha, Cutoff: 0.6}, 2, 2, 0, 0, 0},
		{"channel mask", ChannelMask{Source: tex("moss"), Channel: imaging.ChannelGreen}, 2, 2, 1, 0, 0xA0FFFFFF},
		{"add", AddMask{Sources: []Node{tex("half_gray"), tex("half_gray")}}, 2, 2, 0, 0, 0xFFFFFFFF},
		{"multiply", MultiplyMask{Sources: []Node{tex("white"), tex("stone")}}, 4, 4, 3, 0, 0xFFA0A0A0},
		{"edge", EdgeMask{Source: tex("white"), CountOutsideFrame: true, Cutoff: 0.5}, 4, 4, 0, 0, 0xFFFFFFFF},
		{"grow", GrowMask{Source: tex("white"), Growth: 0.25, Cutoff: 0.5}, 4, 4, 2, 2, 0xFFFFFFFF},
		{"fallback", Fallback{Original: tex("nothing"), Fallback: tex("moss")}, 2, 2, 0, 0, 0xFF204020},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, err := e.Evaluate(ctx, tt.node)
			if err != nil {
				t.Fatalf("Evaluate failed: %v", err)
			}
			if img.Rect.Dx() != tt.w || img.Rect.Dy() != tt.h {
				t.Fatalf("size: got %v, want %dx%d", img.Rect.Size(), tt.w, tt.h)
			}
			if got := imaging.Get(img, tt.x, tt.y); got != tt.want {
				t.Errorf("pixel (%d,%d): got %#08x, want %#08x", tt.x, tt.y, uint32(got), uint32(tt.want))
			}
		})
	}
}

func TestEvaluateFailuresLogOnce(t *testing.T) {
	var logs bytes.Buffer
	e := newEvaluator(t, &logs)
	n := Overlay{Inputs: []Node{
		Crop{Input: tex("nothing"), TotalSize: 1, SizeX: 1, SizeY: 1},
		tex("stone"),
	}}
	_, err := e.Evaluate(NewContext("test"), n)
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("got %v, want ErrNoImage", err)
	}
	if !errors.Is(err, resource.ErrNotFound) {
		t.Errorf("the cause should be kept: %v", err)
	}
	if got := strings.Count(logs.String(), "node produced no image"); got != 1 {
		t.Errorf("logged %d failures, want 1:\n%s", got, logs.String())
	}
	if !strings.Contains(logs.String(), "minecraft:block/nothing") {
		t.Errorf("the log should name the failing node:\n%s", logs.String())
	}
}

func TestEvaluateQuietFallback(t *testing.T) {
	var logs bytes.Buffer
	e := newEvaluator(t, &logs)
	if _, err := e.Evaluate(NewContext("test"), Fallback{Original: Error{Message: "boom"}, Fallback: tex("stone")}); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if logs.Len() != 0 {
		t.Errorf("the original's failure should not be logged:\n%s", logs.String())
	}

	_, err := e.Evaluate(NewContext("test"), Error{Message: "deliberate"})
	if !errors.Is(err, ErrNoImage) || !strings.Contains(err.Error(), "deliberate") {
		t.Errorf("error node: got %v", err)
	}
	if !strings.Contains(logs.String(), "deliberate") {
		t.Errorf("the error node's message should be logged:\n%s", logs.String())
	}
}

func TestEvaluateFailureAfterQuietFallbackLogs(t *testing.T) {
	var logs bytes.Buffer
	e := newEvaluator(t, &logs)
	ctx := NewContext("test")
	missing := tex("nothing")

	if _, err := e.Evaluate(ctx, Fallback{Original: missing, Fallback: tex("stone")}); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if logs.Len() != 0 {
		t.Fatalf("the original's failure should not be logged:\n%s", logs.String())
	}

	_, err := e.Evaluate(ctx, Crop{Input: missing, TotalSize: 1, SizeX: 1, SizeY: 1})
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("got %v, want ErrNoImage", err)
	}
	if got := strings.Count(logs.String(), "node produced no image"); got != 1 {
		t.Errorf("logged %d failures, want 1:\n%s", got, logs.String())
	}
	if !strings.Contains(logs.String(), "minecraft:block/nothing") {
		t.Errorf("the log should name the failing node:\n%s", logs.String())
	}
}

func TestEvaluateGeometryErrors(t *testing.T) {
	e := newEvaluator(t, nil)
	tests := []struct {
		name string
		node Node
	}{
		{"crop finer than image", Crop{Input: tex("stone"), TotalSize: 4, SizeX: 1, SizeY: 1}},
		{"no colors", Color{}},
		{"empty overlay", Overlay{}},
		{"not an animation", Animation{
			Sources:   map[string]TimedSource{"w": {Source: tex("wide"), Scale: 1}},
			Generator: FrameCapture{Capture: "w"},
		}},
		{"non-square frame", Animation{
			Sources:   map[string]TimedSource{"a": {Source: tex("animated"), Scale: 1}},
			Generator: tex("wide"),
		}},
		{"frame outside animation", FrameCapture{Capture: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.Evaluate(NewContext("test"), tt.node); !errors.Is(err, ErrNoImage) {
				t.Errorf("got %v, want ErrNoImage", err)
			}
		})
	}
}

func TestEvaluateAnimation(t *testing.T) {
	e := newEvaluator(t, nil)
	n := Animation{
		Sources: map[string]TimedSource{
			"fast": {Source: tex("animated"), Scale: 1},
			"slow": {Source: tex("animated"), Scale: 2},
		},
		Generator: Overlay{Inputs: []Node{
			Mask{Input: FrameCapture{Capture: "fast"}, Mask: tex("left")},
			FrameCapture{Capture: "slow"},
		}},
	}
	img, err := e.Evaluate(NewContext("test"), n)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	// lcm(1*2, 2*2) = 4 frames of 2x2.
	if img.Rect.Dx() != 2 || img.Rect.Dy() != 8 {
		t.Fatalf("size: got %v, want 2x8", img.Rect.Size())
	}
	const red, blue = colorspace.ARGB(0xFFFF0000), colorspace.ARGB(0xFF0000FF)
	// Left column follows the fast source, right column the slow one.
	want := [][2]colorspace.ARGB{{red, red}, {blue, red}, {red, blue}, {blue, blue}}
	for i, w := range want {
		if got := imaging.Get(img, 0, i*2); got != w[0] {
			t.Errorf("frame %d left: got %#08x, want %#08x", i, uint32(got), uint32(w[0]))
		}
		if got := imaging.Get(img, 1, i*2+1); got != w[1] {
			t.Errorf("frame %d right: got %#08x, want %#08x", i, uint32(got), uint32(w[1]))
		}
	}
}

func TestEvaluateForegroundTransfer(t *testing.T) {
	e := newEvaluator(t, nil)
	ctx := NewContext("test")
	for _, bg := range []string{"moss", "sand"} {
		img, err := e.Evaluate(ctx, NewForegroundTransfer(tex("stone"), tex("ore"), tex(bg)))
		if err != nil {
			t.Fatalf("transfer onto %s failed: %v", bg, err)
		}
		if got := imaging.Get(img, 1, 1); got != 0xFFFF0000 {
			t.Errorf("transfer onto %s: foreground pixel got %#08x, want red", bg, uint32(got))
		}
	}
	_, extractions := e.Stats()
	if extractions.Misses != 1 || extractions.Hits != 1 {
		t.Errorf("extraction should be shared between transfers: %+v", extractions)
	}

	res, err := e.Extract(ctx, NewForegroundTransfer(tex("stone"), tex("ore"), nil))
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if got := imaging.Get(res.Overlay, 1, 1); got != 0xFFFF0000 {
		t.Errorf("overlay foreground pixel: got %#08x, want red", uint32(got))
	}
	if _, extractions = e.Stats(); extractions.Hits != 2 {
		t.Errorf("Extract should reuse the transfer's extraction: %+v", extractions)
	}
}

func TestEvaluatePaletteCombined(t *testing.T) {
	e := newEvaluator(t, nil)
	n := NewPaletteCombined(Color{Colors: []colorspace.ARGB{0}}, tex("moss"), Color{Colors: []colorspace.ARGB{colorspace.Gray(255)}})
	n.ExtendPaletteSize = 0
	img, err := e.Evaluate(NewContext("test"), n)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if got := imaging.Get(img, 0, 0); got != 0xFF60A060 {
		t.Errorf("sample 255 should pick the lightest moss tone, got %#08x", uint32(got))
	}
}

func TestEvaluateCachesPerScope(t *testing.T) {
	e := newEvaluator(t, nil)
	n := Transform{Input: tex("stone"), Rotate: 1}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Evaluate(NewContext("a"), n); err != nil {
				t.Errorf("Evaluate failed: %v", err)
			}
		}()
	}
	wg.Wait()
	outputs, _ := e.Stats()
	// One computation each for the transform and the texture.
	if outputs.Misses != 2 {
		t.Errorf("misses: got %d, want 2", outputs.Misses)
	}

	img, _ := e.Evaluate(NewContext("a"), n)
	imaging.Set(img, 0, 0, 0)
	again, _ := e.Evaluate(NewContext("a"), n)
	if imaging.Get(again, 0, 0) == 0 {
		t.Error("cached output was modified through a returned image")
	}

	e.Reset("a")
	e.Evaluate(NewContext("a"), n)
	if outputs, _ = e.Stats(); outputs.Misses != 4 {
		t.Errorf("misses after reset: got %d, want 4", outputs.Misses)
	}
}

type memStore map[string][]byte

func (m memStore) Load(key string) ([]byte, bool) {
	data, ok := m[key]
	return data, ok
}

func (m memStore) Store(key string, data []byte) error {
	m[key] = data
	return nil
}

const definitions = `{"outputs": {
	"texgen:textures/block/moss_ore.png": {"type": "foreground_transfer",
		"background": {"type": "texture", "path": "minecraft:block/stone"},
		"full": {"type": "texture", "path": "minecraft:block/ore"},
		"new_background": {"type": "texture", "path": "minecraft:block/moss"}},
	"texgen:textures/block/broken.png": {"type": "texture", "path": "minecraft:block/nothing"}
}}`

func TestGenerator(t *testing.T) {
	defs, err := ParseDefinitions([]byte(definitions))
	if err != nil {
		t.Fatalf("ParseDefinitions failed: %v", err)
	}
	store := memStore{}
	g := NewGenerator(newEvaluator(t, nil), defs, GeneratorOptions{Store: store})
	ctx := NewContext("gen")

	locs := g.Locations()
	if len(locs) != 2 || locs[0].String() != "texgen:textures/block/broken.png" {
		t.Errorf("Locations: got %v", locs)
	}

	if _, ok := g.Get(resource.MustParse("texgen:textures/block/other.png"), ctx); ok {
		t.Error("unknown location should be absent")
	}

	ore := resource.MustParse("texgen:textures/block/moss_ore.png")
	open, ok := g.Get(ore, ctx)
	if !ok {
		t.Fatal("expected moss_ore to be generated")
	}
	rc, err := open()
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not an image: %v", err)
	}
	if got := imaging.Get(img, 1, 1); got != 0xFFFF0000 {
		t.Errorf("foreground pixel: got %#08x", uint32(got))
	}

	key, ok := g.CreateCacheKey(ore, ctx)
	if !ok || !strings.HasPrefix(key, "texgen:textures/block/moss_ore.png=") {
		t.Errorf("CreateCacheKey: got %q, %v", key, ok)
	}
	if _, ok := store[key]; !ok {
		t.Error("output should be persisted under its cache key")
	}
	store[key] = []byte("stored")
	if data, _ := g.Render(ore, ctx); string(data) != "stored" {
		t.Error("persisted output should be served from the store")
	}

	open, ok = g.Get(resource.MustParse("texgen:textures/block/broken.png"), ctx)
	if !ok {
		t.Fatal("broken is still a location")
	}
	if _, err := open(); !errors.Is(err, ErrNoImage) {
		t.Errorf("broken output: got %v, want ErrNoImage", err)
	}
}

func TestGeneratorCacheKeyClusteringCutoff(t *testing.T) {
	defs, err := ParseDefinitions([]byte(`{"outputs": {
		"texgen:textures/block/moss_ore.png": {"type": "foreground_transfer",
			"background": {"type": "texture", "path": "minecraft:block/stone"},
			"full": {"type": "texture", "path": "minecraft:block/ore"},
			"new_background": {"type": "texture", "path": "minecraft:block/moss"}},
		"texgen:textures/block/framed_ore.png": {"type": "overlay", "inputs": [
			{"type": "texture", "path": "minecraft:block/sand"},
			{"type": "foreground_transfer",
				"background": {"type": "texture", "path": "minecraft:block/stone"},
				"full": {"type": "texture", "path": "minecraft:block/ore"},
				"new_background": {"type": "texture", "path": "minecraft:block/moss"}}]},
		"texgen:textures/block/plain.png": {"type": "texture", "path": "minecraft:block/stone"}
	}}`))
	if err != nil {
		t.Fatalf("ParseDefinitions failed: %v", err)
	}
	images := resource.NewImages(resource.FromFS(textures()))
	small := NewGenerator(NewEvaluator(images, Options{ClusteringCutoff: 1}), defs, GeneratorOptions{})
	large := NewGenerator(NewEvaluator(images, Options{ClusteringCutoff: 1_000_000}), defs, GeneratorOptions{})
	ctx := NewContext("gen")

	tests := []struct {
		location string
		differ   bool
	}{
		{"texgen:textures/block/moss_ore.png", true},
		{"texgen:textures/block/framed_ore.png", true},
		{"texgen:textures/block/plain.png", false},
	}
	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			id := resource.MustParse(tt.location)
			a, okA := small.CreateCacheKey(id, ctx)
			b, okB := large.CreateCacheKey(id, ctx)
			if !okA || !okB {
				t.Fatalf("CreateCacheKey: got ok %v and %v, want both", okA, okB)
			}
			if got := a != b; got != tt.differ {
				t.Errorf("keys differ: got %v, want %v\n%s\n%s", got, tt.differ, a, b)
			}
		})
	}
}

func TestLoadDefinitions(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("a.json", `{"outputs":{"x:a.png":{"type":"texture","path":"block/stone"}}}`)
	write("b.json", `{"outputs":{"x:b.png":{"type":"error","message":"todo"}}}`)

	defs, err := LoadDefinitions(filepath.Join(dir, "*.json"))
	if err != nil {
		t.Fatalf("LoadDefinitions failed: %v", err)
	}
	if len(defs) != 2 {
		t.Errorf("got %d definitions, want 2", len(defs))
	}

	write("c.json", `{"outputs":{"x:a.png":{"type":"texture","path":"block/moss"}}}`)
	if _, err := LoadDefinitions(filepath.Join(dir, "*.json")); err == nil {
		t.Error("duplicate output should be rejected")
	}
}
