package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/ironsheep/texgen-mcp/internal/colorspace"
	"github.com/ironsheep/texgen-mcp/internal/diskcache"
	"github.com/ironsheep/texgen-mcp/internal/imaging"
	"github.com/ironsheep/texgen-mcp/internal/pipeline"
	"github.com/ironsheep/texgen-mcp/internal/resource"
)

func twoTone(left, right colorspace.ARGB) []byte {
	img := imaging.New(2, 2)
	for y := 0; y < 2; y++ {
		imaging.Set(img, 0, y, left)
		imaging.Set(img, 1, y, right)
	}
	data, _ := imaging.PNGBytes(img)
	return data
}

// oreTexture is stone with a red pixel at (1,1).
func oreTexture() []byte {
	img := imaging.New(2, 2)
	imaging.Set(img, 0, 0, 0xFF808080)
	imaging.Set(img, 0, 1, 0xFF808080)
	imaging.Set(img, 1, 0, 0xFFA0A0A0)
	imaging.Set(img, 1, 1, 0xFFFF0000)
	data, _ := imaging.PNGBytes(img)
	return data
}

func testTextures() fstest.MapFS {
	return fstest.MapFS{
		"minecraft/textures/block/stone.png": {Data: twoTone(0xFF808080, 0xFFA0A0A0)},
		"minecraft/textures/block/ore.png":   {Data: oreTexture()},
		"minecraft/textures/block/moss.png":  {Data: twoTone(0xFF204020, 0xFF60A060)},
		"minecraft/textures/item/glass.png":  {Data: twoTone(0x80FFFFFF, 0xFFFFFFFF)},
		"minecraft/textures/block/notes.txt": {Data: []byte("not a texture")},
	}
}

const testDefinitions = `{"outputs": {
	"texgen:textures/block/moss_ore.png": {"type": "foreground_transfer",
		"background": {"type": "texture", "path": "minecraft:block/stone"},
		"full": {"type": "texture", "path": "minecraft:block/ore"},
		"new_background": {"type": "texture", "path": "minecraft:block/moss"}},
	"texgen:textures/block/missing.png": {"type": "texture", "path": "minecraft:block/nothing"}
}}`

// newTestServer builds a server over testTextures. A non-nil disk enables
// the persistent output cache.
func newTestServer(t *testing.T, disk *diskcache.Cache) *Server {
	t.Helper()
	defs, err := pipeline.ParseDefinitions([]byte(testDefinitions))
	if err != nil {
		t.Fatalf("ParseDefinitions failed: %v", err)
	}
	eval := pipeline.NewEvaluator(resource.NewImages(resource.FromFS(testTextures())), pipeline.Options{})
	opts := pipeline.GeneratorOptions{}
	if disk != nil {
		opts.Store = disk
	}
	gen := pipeline.NewGenerator(eval, defs, opts)
	return New(Options{Generator: gen, Disk: disk, Version: "test"})
}

func TestNew(t *testing.T) {
	s := newTestServer(t, nil)
	if s.gen == nil {
		t.Error("server generator not initialized")
	}
	if s.logger == nil {
		t.Error("server logger not initialized")
	}

	if got := New(Options{}).version; got != "dev" {
		t.Errorf("default version: got %q, want %q", got, "dev")
	}
}

func TestHandleInitialize(t *testing.T) {
	s := newTestServer(t, nil)
	req := &MCPRequest{JSONRPC: "2.0", ID: 1, Method: "initialize"}

	resp := s.handleRequest(req)
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result is not a map")
	}
	if result["protocolVersion"] != "2024-11-05" {
		t.Errorf("protocolVersion: got %v, want 2024-11-05", result["protocolVersion"])
	}
	info, ok := result["serverInfo"].(map[string]interface{})
	if !ok {
		t.Fatal("serverInfo is not a map")
	}
	if info["name"] != "texgen-mcp" {
		t.Errorf("server name: got %v, want texgen-mcp", info["name"])
	}
	if info["version"] != "test" {
		t.Errorf("server version: got %v, want test", info["version"])
	}
}

func TestHandleRequest_Routing(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		method   string
		wantNil  bool
		wantCode int
	}{
		{"ping", false, 0},
		{"tools/list", false, 0},
		{"notifications/initialized", true, 0},
		{"notifications/cancelled", true, 0},
		{"resources/list", false, CodeMethodNotFound},
		{"", false, CodeMethodNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 7, Method: tt.method})
			if tt.wantNil {
				if resp != nil {
					t.Errorf("notification should get no response, got %+v", resp)
				}
				return
			}
			if resp == nil {
				t.Fatal("handleRequest returned nil")
			}
			if resp.ID != 7 {
				t.Errorf("ID: got %v, want 7", resp.ID)
			}
			if tt.wantCode == 0 {
				if resp.Error != nil {
					t.Errorf("unexpected error: %v", resp.Error)
				}
				return
			}
			if resp.Error == nil || resp.Error.Code != tt.wantCode {
				t.Errorf("error: got %+v, want code %d", resp.Error, tt.wantCode)
			}
		})
	}
}

func TestHandleToolsList(t *testing.T) {
	s := newTestServer(t, nil)
	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 2, Method: "tools/list"})

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result is not a map")
	}
	tools, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools is not a []Tool")
	}
	if len(tools) != len(GetToolDefinitions()) {
		t.Errorf("got %d tools, want %d", len(tools), len(GetToolDefinitions()))
	}
}

func TestServe(t *testing.T) {
	s := newTestServer(t, nil)

	input := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		``,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{not json`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"texture_list_outputs"}}`,
	}, "\n")

	var out bytes.Buffer
	if err := s.Serve(strings.NewReader(input), &out); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}

	var responses []MCPResponse
	scanner := bufio.NewScanner(&out)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRequestSize)
	for scanner.Scan() {
		var resp MCPResponse
		if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
			t.Fatalf("response is not JSON: %v", err)
		}
		responses = append(responses, resp)
	}

	if len(responses) != 4 {
		t.Fatalf("got %d responses, want 4", len(responses))
	}

	// IDs decode as float64.
	wantIDs := []interface{}{1.0, 2.0, nil, 3.0}
	for i, resp := range responses {
		if resp.ID != wantIDs[i] {
			t.Errorf("response %d ID: got %v, want %v", i, resp.ID, wantIDs[i])
		}
	}

	if responses[2].Error == nil || responses[2].Error.Code != CodeParseError {
		t.Errorf("malformed line: got %+v, want code %d", responses[2].Error, CodeParseError)
	}
	if responses[3].Error != nil {
		t.Errorf("tools/call failed: %v", responses[3].Error)
	}
}

func TestServe_Empty(t *testing.T) {
	s := newTestServer(t, nil)
	var out bytes.Buffer
	if err := s.Serve(strings.NewReader(""), &out); err != nil {
		t.Fatalf("Serve failed: %v", err)
	}
	if out.Len() != 0 {
		t.Errorf("got output %q, want none", out.String())
	}
}
