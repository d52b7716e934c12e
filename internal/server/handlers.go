package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"path"
	"strings"

	"github.com/ironsheep/texgen-mcp/internal/cache"
	"github.com/ironsheep/texgen-mcp/internal/combine"
	"github.com/ironsheep/texgen-mcp/internal/imaging"
	"github.com/ironsheep/texgen-mcp/internal/palette"
	"github.com/ironsheep/texgen-mcp/internal/pipeline"
	"github.com/ironsheep/texgen-mcp/internal/resource"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "texture_render").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// paramsError marks a failure caused by the caller's arguments rather than
// by the tool itself.
type paramsError struct{ err error }

func (e *paramsError) Error() string { return e.err.Error() }
func (e *paramsError) Unwrap() error { return e.err }

func invalidParams(format string, args ...interface{}) error {
	return &paramsError{fmt.Errorf(format, args...)}
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Malformed arguments return a JSON-RPC error with code -32602; any other
// tool failure returns code -32000 with the error string as data.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, CodeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		var pe *paramsError
		if errors.As(err, &pe) {
			return s.errorResponse(req.ID, CodeInvalidParams, "Invalid params", err.Error())
		}
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, CodeToolFailed, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Applies default values for optional parameters
//  3. Renders, extracts or loads through the generator's evaluator
//  4. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Configured outputs
	case "texture_list_outputs":
		return s.handleListOutputs()
	case "texture_render":
		return s.handleRender(args)
	case "texture_cache_key":
		return s.handleCacheKey(args)

	// Ad-hoc rendering
	case "texture_render_node":
		return s.handleRenderNode(args)
	case "texture_extract":
		return s.handleExtract(args)
	case "texture_combine":
		return s.handleCombine(args)

	// Source textures
	case "texture_list_textures":
		return s.handleListTextures(args)
	case "texture_info":
		return s.handleInfo(args)
	case "texture_palette":
		return s.handlePalette(args)

	// Caches
	case "texture_cache_stats":
		return s.handleCacheStats()
	case "texture_reset_cache":
		return s.handleResetCache(args)

	default:
		return nil, invalidParams("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	e := &MCPError{Code: code, Message: message}
	if data != "" {
		e.Data = data
	}
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   e,
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments; absent arguments leave dst as is.
func decodeArgs(args json.RawMessage, dst interface{}) error {
	if len(bytes.TrimSpace(args)) == 0 || string(args) == "null" {
		return nil
	}
	if err := json.Unmarshal(args, dst); err != nil {
		return &paramsError{fmt.Errorf("bad arguments: %w", err)}
	}
	return nil
}

func scopeOrDefault(scope string) string {
	if scope == "" {
		return DefaultScope
	}
	return scope
}

func parseID(field, value string) (resource.Identifier, error) {
	if value == "" {
		return resource.Identifier{}, invalidParams("%s is required", field)
	}
	id, err := resource.ParseIdentifier(value)
	if err != nil {
		return resource.Identifier{}, &paramsError{fmt.Errorf("%s: %w", field, err)}
	}
	return id, nil
}

func (s *Server) evaluator() *pipeline.Evaluator { return s.gen.Evaluator() }

// loadTexture reads a source texture by texture id.
func (s *Server) loadTexture(field, value string) (*image.NRGBA, error) {
	id, err := parseID(field, value)
	if err != nil {
		return nil, err
	}
	return s.evaluator().Images().Load(resource.TextureIdentifier(id))
}

// === Configured Output Handlers ===

type outputSummary struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type listOutputsResult struct {
	Outputs []outputSummary `json:"outputs"`
	Count   int             `json:"count"`
}

func (s *Server) handleListOutputs() (interface{}, error) {
	res := listOutputsResult{Outputs: []outputSummary{}}
	for _, id := range s.gen.Locations() {
		n, _ := s.gen.Node(id)
		res.Outputs = append(res.Outputs, outputSummary{ID: id.String(), Type: n.Type()})
	}
	res.Count = len(res.Outputs)
	return res, nil
}

type renderArgs struct {
	ID    string `json:"id"`
	Scope string `json:"scope"`
}

type renderResult struct {
	ID       string `json:"id,omitempty"`
	Type     string `json:"type"`
	CacheKey string `json:"cache_key,omitempty"`
	*imaging.EncodedImage
}

func (s *Server) outputID(value string) (resource.Identifier, pipeline.Node, error) {
	id, err := parseID("id", value)
	if err != nil {
		return id, nil, err
	}
	n, ok := s.gen.Node(id)
	if !ok {
		return id, nil, fmt.Errorf("%w: no output %s", resource.ErrNotFound, id)
	}
	return id, n, nil
}

func (s *Server) handleRender(args json.RawMessage) (interface{}, error) {
	var a renderArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	id, n, err := s.outputID(a.ID)
	if err != nil {
		return nil, err
	}
	ctx := pipeline.NewContext(scopeOrDefault(a.Scope))
	data, err := s.gen.Render(id, ctx)
	if err != nil {
		return nil, err
	}
	enc, err := encodedPNG(data)
	if err != nil {
		return nil, err
	}
	res := renderResult{ID: id.String(), Type: n.Type(), EncodedImage: enc}
	if s.disk != nil {
		res.CacheKey, _ = s.gen.CreateCacheKey(id, ctx)
	}
	return res, nil
}

// encodedPNG wraps already encoded PNG bytes without re-encoding them.
func encodedPNG(data []byte) (*imaging.EncodedImage, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("rendered output is not an image: %w", err)
	}
	return &imaging.EncodedImage{
		Width:       cfg.Width,
		Height:      cfg.Height,
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    "image/png",
	}, nil
}

type cacheKeyResult struct {
	ID        string          `json:"id"`
	Cacheable bool            `json:"cacheable"`
	CacheKey  string          `json:"cache_key,omitempty"`
	Node      json.RawMessage `json:"node"`
}

func (s *Server) handleCacheKey(args json.RawMessage) (interface{}, error) {
	var a renderArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	id, n, err := s.outputID(a.ID)
	if err != nil {
		return nil, err
	}
	canonical, err := pipeline.Encode(n)
	if err != nil {
		return nil, err
	}
	key, ok := s.gen.CreateCacheKey(id, pipeline.NewContext(DefaultScope))
	return cacheKeyResult{ID: id.String(), Cacheable: ok, CacheKey: key, Node: canonical}, nil
}

// === Ad-hoc Rendering Handlers ===

type renderNodeArgs struct {
	Node  json.RawMessage `json:"node"`
	Scope string          `json:"scope"`
}

func (s *Server) handleRenderNode(args json.RawMessage) (interface{}, error) {
	var a renderNodeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.Node) == 0 {
		return nil, invalidParams("node is required")
	}
	n, err := pipeline.Decode(a.Node)
	if err != nil {
		return nil, &paramsError{err}
	}
	img, err := s.evaluator().Evaluate(pipeline.NewContext(scopeOrDefault(a.Scope)), n)
	if err != nil {
		return nil, err
	}
	enc, err := imaging.Encode(img)
	if err != nil {
		return nil, err
	}
	return renderResult{Type: n.Type(), EncodedImage: enc}, nil
}

type extractArgs struct {
	Background        string   `json:"background"`
	Full              string   `json:"full"`
	ExtendPaletteSize *int     `json:"extend_palette_size"`
	TrimTrailing      *bool    `json:"trim_trailing"`
	ForceNeighbors    *bool    `json:"force_neighbors"`
	FillHoles         *bool    `json:"fill_holes"`
	CloseCutoff       *float64 `json:"close_cutoff"`
	Scope             string   `json:"scope"`
}

type extractResult struct {
	Overlay   *imaging.EncodedImage `json:"overlay"`
	Paletted  *imaging.EncodedImage `json:"paletted"`
	Clustered bool                  `json:"clustered"`
}

func (s *Server) handleExtract(args json.RawMessage) (interface{}, error) {
	var a extractArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	bg, err := parseID("background", a.Background)
	if err != nil {
		return nil, err
	}
	full, err := parseID("full", a.Full)
	if err != nil {
		return nil, err
	}

	n := pipeline.NewForegroundTransfer(pipeline.Texture{Path: bg}, pipeline.Texture{Path: full}, nil)
	if a.ExtendPaletteSize != nil {
		n.ExtendPaletteSize = *a.ExtendPaletteSize
	}
	if a.TrimTrailing != nil {
		n.TrimTrailing = *a.TrimTrailing
	}
	if a.ForceNeighbors != nil {
		n.ForceNeighbors = *a.ForceNeighbors
	}
	if a.FillHoles != nil {
		n.FillHoles = *a.FillHoles
	}
	if a.CloseCutoff != nil {
		if *a.CloseCutoff < 0 {
			return nil, invalidParams("close_cutoff must not be negative")
		}
		n.CloseCutoff = *a.CloseCutoff
	}

	res, err := s.evaluator().Extract(pipeline.NewContext(scopeOrDefault(a.Scope)), n)
	if err != nil {
		return nil, err
	}
	overlay, err := imaging.Encode(res.Overlay)
	if err != nil {
		return nil, err
	}
	paletted, err := imaging.Encode(res.Paletted)
	if err != nil {
		return nil, err
	}
	return extractResult{Overlay: overlay, Paletted: paletted, Clustered: res.Clustered}, nil
}

type combineArgs struct {
	Background        string `json:"background"`
	Overlay           string `json:"overlay"`
	Paletted          string `json:"paletted"`
	OverlayBase64     string `json:"overlay_base64"`
	PalettedBase64    string `json:"paletted_base64"`
	IncludeBackground *bool  `json:"include_background"`
	StretchPaletted   bool   `json:"stretch_paletted"`
	ExtendPaletteSize *int   `json:"extend_palette_size"`
}

// layer loads a combine input from base64 if given, else by texture id.
func (s *Server) layer(field, id, b64 string) (*image.NRGBA, error) {
	if b64 != "" {
		img, err := imaging.DecodeBase64(b64)
		if err != nil {
			return nil, &paramsError{fmt.Errorf("%s_base64: %w", field, err)}
		}
		return img, nil
	}
	if id == "" {
		return nil, invalidParams("%s or %s_base64 is required", field, field)
	}
	return s.loadTexture(field, id)
}

func (s *Server) handleCombine(args json.RawMessage) (interface{}, error) {
	var a combineArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	bg, err := s.loadTexture("background", a.Background)
	if err != nil {
		return nil, err
	}
	overlay, err := s.layer("overlay", a.Overlay, a.OverlayBase64)
	if err != nil {
		return nil, err
	}
	paletted, err := s.layer("paletted", a.Paletted, a.PalettedBase64)
	if err != nil {
		return nil, err
	}

	opts := combine.DefaultOptions()
	if a.IncludeBackground != nil {
		opts.IncludeBackground = *a.IncludeBackground
	}
	opts.StretchPaletted = a.StretchPaletted
	if a.ExtendPaletteSize != nil {
		opts.Extend = palette.ToSize(*a.ExtendPaletteSize)
	}

	img, err := combine.Combine(bg, overlay, paletted, opts)
	if err != nil {
		return nil, err
	}
	return imaging.Encode(img)
}

// === Source Texture Handlers ===

type listTexturesArgs struct {
	Namespace string `json:"namespace"`
	Dir       string `json:"dir"`
}

type textureEntry struct {
	Texture string `json:"texture"`
	File    string `json:"file"`
}

type listTexturesResult struct {
	Textures []textureEntry `json:"textures"`
	Count    int            `json:"count"`
}

func (s *Server) handleListTextures(args json.RawMessage) (interface{}, error) {
	a := listTexturesArgs{Namespace: resource.DefaultNamespace}
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if strings.Contains(a.Dir, "..") {
		return nil, invalidParams("dir must stay inside textures/")
	}
	dir := path.Join("textures", a.Dir)
	entries := s.evaluator().Source().List(a.Namespace, dir, func(id resource.Identifier) bool {
		return path.Ext(id.Path) == ".png"
	})

	res := listTexturesResult{Textures: []textureEntry{}}
	for _, e := range entries {
		texture := resource.Identifier{
			Namespace: e.ID.Namespace,
			Path:      strings.TrimSuffix(strings.TrimPrefix(e.ID.Path, "textures/"), ".png"),
		}
		res.Textures = append(res.Textures, textureEntry{Texture: texture.String(), File: e.ID.String()})
	}
	res.Count = len(res.Textures)
	return res, nil
}

type textureArgs struct {
	Texture  string `json:"texture"`
	ExtendTo int    `json:"extend_to"`
	Dominant *int   `json:"dominant"`
}

func (s *Server) handleInfo(args json.RawMessage) (interface{}, error) {
	var a textureArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	id, err := parseID("texture", a.Texture)
	if err != nil {
		return nil, err
	}
	return resource.LoadInfo(s.evaluator().Images(), resource.TextureIdentifier(id))
}

func (s *Server) handlePalette(args json.RawMessage) (interface{}, error) {
	var a textureArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	dominant := 5
	if a.Dominant != nil {
		dominant = *a.Dominant
	}
	if dominant < 0 || a.ExtendTo < 0 {
		return nil, invalidParams("extend_to and dominant must not be negative")
	}
	img, err := s.loadTexture("texture", a.Texture)
	if err != nil {
		return nil, err
	}
	return imaging.AnalyzePalette(img, a.ExtendTo, dominant)
}

// === Cache Handlers ===

type cacheStatsResult struct {
	Outputs           cache.Stats `json:"outputs"`
	Extractions       cache.Stats `json:"extractions"`
	DecodedTextures   int         `json:"decoded_textures"`
	PersistentEnabled bool        `json:"persistent_enabled"`
	PersistentDir     string      `json:"persistent_dir,omitempty"`
	PersistentEntries int         `json:"persistent_entries"`
}

func (s *Server) handleCacheStats() (interface{}, error) {
	outputs, extractions := s.evaluator().Stats()
	res := cacheStatsResult{
		Outputs:         outputs,
		Extractions:     extractions,
		DecodedTextures: s.evaluator().Images().Len(),
	}
	if s.disk != nil {
		n, err := s.disk.Len()
		if err != nil {
			return nil, err
		}
		res.PersistentEnabled = true
		res.PersistentDir = s.disk.Dir()
		res.PersistentEntries = n
	}
	return res, nil
}

type resetArgs struct {
	Scope      string `json:"scope"`
	Persistent bool   `json:"persistent"`
}

type resetResult struct {
	Scope             string `json:"scope"`
	PersistentCleared bool   `json:"persistent_cleared"`
}

func (s *Server) handleResetCache(args json.RawMessage) (interface{}, error) {
	var a resetArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	res := resetResult{Scope: scopeOrDefault(a.Scope)}
	s.gen.Reset(res.Scope)
	if a.Persistent && s.disk != nil {
		if err := s.disk.Clear(); err != nil {
			return nil, err
		}
		res.PersistentCleared = true
	}
	s.logger.Info("cache reset", "scope", res.Scope, "persistent", res.PersistentCleared)
	return res, nil
}
