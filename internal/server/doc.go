// Package server implements the MCP (Model Context Protocol) server for texture generation.
//
// This package provides a JSON-RPC 2.0 server that exposes the texture pipeline
// through the MCP protocol, so an assistant can render configured outputs, try
// out node definitions and inspect source textures while authoring generators.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Configured Outputs:
//   - texture_list_outputs: List output locations and their node types
//   - texture_render: Render an output as PNG
//   - texture_cache_key: Persistent cache key and canonical node of an output
//
// Ad-hoc Rendering:
//   - texture_render_node: Render a node given as JSON
//   - texture_extract: Split a texture into overlay and paletted layers
//   - texture_combine: Recolor a paletted layer and composite it
//
// Source Textures:
//   - texture_list_textures: List textures in a namespace
//   - texture_info: Size, frames, format and transparency
//   - texture_palette: Fuzzy palette and dominant colors
//
// Caches:
//   - texture_cache_stats: Cache activity
//   - texture_reset_cache: Drop a scope, optionally the persistent cache
//
// # Texture Ids
//
// Tools that read source textures take texture ids such as
// "minecraft:block/stone", resolved to <resources>/minecraft/textures/block/stone.png.
// Output tools take full output locations such as
// "mymod:textures/block/tin_ore.png".
//
// # Caching
//
// Node outputs and extractions are memoized per scope (default "mcp") for the
// lifetime of the process. After editing source textures, call
// texture_reset_cache so the next render reads them again.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32602 for malformed or missing arguments and unknown tools,
//     -32000 for any other tool failure
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(server.Options{Generator: gen, Logger: logger})
//	if err := srv.Serve(os.Stdin, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
package server
