package server

import (
	"strings"
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	if len(tools) == 0 {
		t.Fatal("GetToolDefinitions returned empty slice")
	}

	expectedTools := []string{
		"texture_list_outputs",
		"texture_render",
		"texture_cache_key",
		"texture_render_node",
		"texture_extract",
		"texture_combine",
		"texture_list_textures",
		"texture_info",
		"texture_palette",
		"texture_cache_stats",
		"texture_reset_cache",
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		if _, dup := toolMap[tool.Name]; dup {
			t.Errorf("Tool %s defined twice", tool.Name)
		}
		toolMap[tool.Name] = tool
	}

	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
	if len(tools) != len(expectedTools) {
		t.Errorf("got %d tools, want %d", len(tools), len(expectedTools))
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if !strings.HasPrefix(tool.Name, "texture_") {
				t.Errorf("Tool name %q lacks the texture_ prefix", tool.Name)
			}
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}
			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema missing 'properties' map")
			}

			// Every required field must be a declared property.
			if required, ok := tool.InputSchema["required"]; ok {
				list, ok := required.([]string)
				if !ok {
					t.Fatal("'required' should be a string slice")
				}
				for _, r := range list {
					if _, ok := props[r]; !ok {
						t.Errorf("required field %q is not a property", r)
					}
				}
			}
		})
	}
}

func TestToolDefinitions_Required(t *testing.T) {
	tests := []struct {
		tool     string
		required []string
	}{
		{"texture_render", []string{"id"}},
		{"texture_cache_key", []string{"id"}},
		{"texture_render_node", []string{"node"}},
		{"texture_extract", []string{"background", "full"}},
		{"texture_combine", []string{"background"}},
		{"texture_info", []string{"texture"}},
		{"texture_palette", []string{"texture"}},
	}

	toolMap := make(map[string]Tool)
	for _, tool := range GetToolDefinitions() {
		toolMap[tool.Name] = tool
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			got, _ := toolMap[tt.tool].InputSchema["required"].([]string)
			if strings.Join(got, ",") != strings.Join(tt.required, ",") {
				t.Errorf("required: got %v, want %v", got, tt.required)
			}
		})
	}
}
