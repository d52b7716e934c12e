package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// Shared property schemas.
var (
	scopeProperty = map[string]interface{}{
		"type":        "string",
		"description": "Cache scope. Outputs are memoized per scope until it is reset. Default \"" + DefaultScope + "\"",
		"default":     DefaultScope,
	}
	outputIDProperty = map[string]interface{}{
		"type":        "string",
		"description": "Output location, e.g. \"mymod:textures/block/deepslate_tin_ore.png\"",
	}
	extendProperty = map[string]interface{}{
		"type":        "integer",
		"description": "Extend palettes to at least this many entries before sampling. Default 6",
		"default":     6,
	}
)

func textureProperty(what string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": what + ", as a texture id such as \"minecraft:block/stone\" (resolved to textures/block/stone.png)",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Configured outputs
		{
			Name:        "texture_list_outputs",
			Description: "List every output location the configured generator definitions produce, with the type of the node that renders each.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "texture_render",
			Description: "Render a configured output and return it as base64-encoded PNG. Served from the persistent cache when enabled and up to date.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id":    outputIDProperty,
					"scope": scopeProperty,
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "texture_cache_key",
			Description: "Return the persistent cache key of a configured output, and its node in canonical JSON. The key changes whenever the definition or any texture it reads changes.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"id": outputIDProperty,
				},
				"required": []string{"id"},
			},
		},

		// Ad-hoc rendering
		{
			Name:        "texture_render_node",
			Description: "Render a pipeline node given as JSON (e.g. {\"type\": \"foreground_transfer\", ...}) and return it as base64-encoded PNG. Use this to try out a definition before adding it to a generator file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"node": map[string]interface{}{
						"type":        "object",
						"description": "Pipeline node with a \"type\" tag",
					},
					"scope": scopeProperty,
				},
				"required": []string{"node"},
			},
		},
		{
			Name:        "texture_extract",
			Description: "Separate the foreground of a texture from its background. Returns the overlay (foreground pixels and blends) and the paletted layer (background palette sample numbers as grays) as base64-encoded PNGs.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"background":          textureProperty("Background texture"),
					"full":                textureProperty("Texture showing the foreground over the background"),
					"extend_palette_size": extendProperty,
					"trim_trailing": map[string]interface{}{
						"type":        "boolean",
						"description": "Clear palette remaps with no overlay pixel around them. Default true",
						"default":     true,
					},
					"force_neighbors": map[string]interface{}{
						"type":        "boolean",
						"description": "Add a palette remap under pixels next to a solid overlay pixel. Default true",
						"default":     true,
					},
					"fill_holes": map[string]interface{}{
						"type":        "boolean",
						"description": "Promote colors that keep appearing inside the overlay to full overlay pixels. Default true",
						"default":     true,
					},
					"close_cutoff": map[string]interface{}{
						"type":        "number",
						"description": "Multiple of the background palette's average CIELAB spacing under which a pixel is treated as a blend. Default 2",
						"default":     2.0,
					},
				},
				"required": []string{"background", "full"},
			},
		},
		{
			Name:        "texture_combine",
			Description: "Recolor a paletted layer with a background's palette and composite it with an overlay. Layers are texture ids, or base64 PNGs such as those returned by texture_extract.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"background": textureProperty("Background texture supplying the palette"),
					"overlay":    textureProperty("Overlay texture"),
					"paletted":   textureProperty("Paletted texture"),
					"overlay_base64": map[string]interface{}{
						"type":        "string",
						"description": "Overlay as base64 PNG; overrides overlay",
					},
					"paletted_base64": map[string]interface{}{
						"type":        "string",
						"description": "Paletted layer as base64 PNG; overrides paletted",
					},
					"include_background": map[string]interface{}{
						"type":        "boolean",
						"description": "Composite over the background. Default true",
						"default":     true,
					},
					"stretch_paletted": map[string]interface{}{
						"type":        "boolean",
						"description": "Stretch the paletted layer's value range to 0-255 first. Default false",
						"default":     false,
					},
					"extend_palette_size": extendProperty,
				},
				"required": []string{"background"},
			},
		},

		// Source textures
		{
			Name:        "texture_list_textures",
			Description: "List source textures under a namespace, optionally limited to a subdirectory of textures/.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"namespace": map[string]interface{}{
						"type":        "string",
						"description": "Namespace to list. Default \"minecraft\"",
						"default":     "minecraft",
					},
					"dir": map[string]interface{}{
						"type":        "string",
						"description": "Subdirectory of textures/, e.g. \"block\"",
					},
				},
			},
		},
		{
			Name:        "texture_info",
			Description: "Get the size, animation frame count, format and transparency of a source texture.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"texture": textureProperty("Texture"),
				},
				"required": []string{"texture"},
			},
		},
		{
			Name:        "texture_palette",
			Description: "Report a texture's fuzzy palette (darkest to lightest, with sample numbers) and its dominant colors by area.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"texture": textureProperty("Texture"),
					"extend_to": map[string]interface{}{
						"type":        "integer",
						"description": "Extend the palette to at least this many entries first. Default 0 (no extension)",
						"default":     0,
					},
					"dominant": map[string]interface{}{
						"type":        "integer",
						"description": "Number of dominant colors to report. Default 5",
						"default":     5,
					},
				},
				"required": []string{"texture"},
			},
		},

		// Caches
		{
			Name:        "texture_cache_stats",
			Description: "Report node output and extraction cache activity, decoded texture count and persistent cache size.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "texture_reset_cache",
			Description: "Drop everything cached in a scope so the next render re-reads textures. Optionally clear the persistent cache too.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"scope": scopeProperty,
					"persistent": map[string]interface{}{
						"type":        "boolean",
						"description": "Also clear the persistent output cache. Default false",
						"default":     false,
					},
				},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
