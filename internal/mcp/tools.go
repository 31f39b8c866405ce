package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rpggio/pagesmith/internal/domain/document"
)

// ToolDefinition describes a callable tool.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

var waitProperty = map[string]any{
	"type":        "boolean",
	"description": "Block until the durable write completes and report its outcome",
}

func componentSchema() map[string]any {
	types := make([]string, 0, 12)
	for _, t := range document.ComponentTypes() {
		types = append(types, string(t))
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{
				"type":        "string",
				"description": "Component ID (generated when omitted)",
			},
			"type": map[string]any{
				"type": "string",
				"enum": types,
			},
			"props":    map[string]any{"type": "object"},
			"styles":   map[string]any{"type": "object"},
			"position": map[string]any{"type": "object"},
			"size":     map[string]any{"type": "object"},
			"children": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "object"},
			},
		},
		"required": []string{"type"},
	}
}

var seoSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"title":       map[string]any{"type": "string"},
		"description": map[string]any{"type": "string"},
		"keywords":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"og_image":    map[string]any{"type": "string"},
		"canonical":   map[string]any{"type": "string"},
	},
}

func idSchema(description string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{
				"type":        "string",
				"description": description,
			},
		},
		"required": []string{"id"},
	}
}

func emptySchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

// buildToolCatalog returns all available MCP tools
func buildToolCatalog() []ToolDefinition {
	return []ToolDefinition{
		// Session
		{
			Name:        "sign_in",
			Description: "Sign in as a user; creates the user on first sign-in",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":     map[string]any{"type": "string", "description": "Identity provider user ID"},
					"email":  map[string]any{"type": "string"},
					"name":   map[string]any{"type": "string"},
					"avatar": map[string]any{"type": "string"},
					"provider": map[string]any{
						"type": "string",
						"enum": []string{string(document.ProviderGoogle), string(document.ProviderGitHub), string(document.ProviderDiscord)},
					},
				},
				"required": []string{"id", "email", "provider"},
			},
		},
		{
			Name:        "sign_out",
			Description: "Sign out and clear the working set",
			InputSchema: emptySchema(),
		},
		{
			Name:        "get_state",
			Description: "Get the editor state: user, open project and page, UI flags, pending writes",
			InputSchema: emptySchema(),
		},

		// Projects
		{
			Name:        "create_project",
			Description: "Create a project with the default theme unless one is given",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"name":        map[string]any{"type": "string", "description": "Project display name"},
					"description": map[string]any{"type": "string"},
					"theme":       map[string]any{"type": "object", "description": "Full theme; omit for the default"},
					"published":   map[string]any{"type": "boolean"},
					"domain":      map[string]any{"type": "string"},
					"wait":        waitProperty,
				},
				"required": []string{"name"},
			},
		},
		{
			Name:        "update_project",
			Description: "Update project fields; omitted fields are unchanged",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":          map[string]any{"type": "string"},
					"name":        map[string]any{"type": "string"},
					"description": map[string]any{"type": "string"},
					"theme":       map[string]any{"type": "object"},
					"published":   map[string]any{"type": "boolean"},
					"domain":      map[string]any{"type": "string"},
					"wait":        waitProperty,
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "delete_project",
			Description: "Delete a project and all of its pages",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":   map[string]any{"type": "string"},
					"wait": waitProperty,
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "open_project",
			Description: "Open a project and follow its pages for remote changes",
			InputSchema: idSchema("Project ID"),
		},
		{
			Name:        "list_projects",
			Description: "List the signed-in user's projects, most recently updated first",
			InputSchema: emptySchema(),
		},

		// Pages
		{
			Name:        "create_page",
			Description: "Create a page; the slug is derived from the name and made unique within the project",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_id": map[string]any{"type": "string"},
					"name":       map[string]any{"type": "string"},
					"slug":       map[string]any{"type": "string", "description": "Requested slug (suffixed if taken)"},
					"components": map[string]any{"type": "array", "items": componentSchema()},
					"seo":        seoSchema,
					"wait":       waitProperty,
				},
				"required": []string{"project_id", "name"},
			},
		},
		{
			Name:        "update_page",
			Description: "Update page fields; components, when given, replace the whole tree",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":         map[string]any{"type": "string"},
					"name":       map[string]any{"type": "string"},
					"slug":       map[string]any{"type": "string"},
					"components": map[string]any{"type": "array", "items": componentSchema()},
					"seo":        seoSchema,
					"wait":       waitProperty,
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "delete_page",
			Description: "Delete a page",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id":   map[string]any{"type": "string"},
					"wait": waitProperty,
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "open_page",
			Description: "Make a page of the open project the current page",
			InputSchema: idSchema("Page ID"),
		},
		{
			Name:        "render_page",
			Description: "Get a page's component tree in render order",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"page_id": map[string]any{"type": "string"},
				},
				"required": []string{"page_id"},
			},
		},

		// Components
		{
			Name:        "add_component",
			Description: "Append a component to a page, or to a parent component's children",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"page_id":   map[string]any{"type": "string"},
					"parent_id": map[string]any{"type": "string", "description": "Parent component ID (omit for top level)"},
					"component": componentSchema(),
					"wait":      waitProperty,
				},
				"required": []string{"page_id", "component"},
			},
		},
		{
			Name:        "update_component",
			Description: "Replace a component's fields; omitted children are kept",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"page_id":   map[string]any{"type": "string"},
					"component": componentSchema(),
					"wait":      waitProperty,
				},
				"required": []string{"page_id", "component"},
			},
		},
		{
			Name:        "delete_component",
			Description: "Remove a component and its subtree",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"page_id":      map[string]any{"type": "string"},
					"component_id": map[string]any{"type": "string"},
					"wait":         waitProperty,
				},
				"required": []string{"page_id", "component_id"},
			},
		},
		{
			Name:        "reorder_components",
			Description: "Reorder a page's top-level components; ids must be a permutation of the current order",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"page_id": map[string]any{"type": "string"},
					"ids":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"wait":    waitProperty,
				},
				"required": []string{"page_id", "ids"},
			},
		},

		// UI
		{
			Name:        "select_component",
			Description: "Select a component of the open page; empty clears the selection",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"component_id": map[string]any{"type": "string"},
				},
			},
		},
		{
			Name:        "set_ui",
			Description: "Set preview mode or toggle dark mode and the sidebar",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"preview_mode":     map[string]any{"type": "boolean"},
					"toggle_dark_mode": map[string]any{"type": "boolean"},
					"toggle_sidebar":   map[string]any{"type": "boolean"},
				},
			},
		},

		// Generation
		{
			Name:        "generate_site",
			Description: "Generate a project with a home page from a business description",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"description": map[string]any{"type": "string"},
					"industry":    map[string]any{"type": "string"},
					"style":       map[string]any{"type": "string"},
					"colors":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"features":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"wait":        waitProperty,
				},
				"required": []string{"description"},
			},
		},
		{
			Name:        "enhance_component",
			Description: "Rewrite a component's props and styles from instructions; id, type and children are kept",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"page_id":      map[string]any{"type": "string"},
					"component_id": map[string]any{"type": "string"},
					"instructions": map[string]any{"type": "string"},
					"wait":         waitProperty,
				},
				"required": []string{"page_id", "component_id", "instructions"},
			},
		},
		{
			Name:        "generate_copy",
			Description: "Generate marketing copy; nothing is stored",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"content_type": map[string]any{"type": "string", "description": "e.g. headline, tagline, about"},
					"brief":        map[string]any{"type": "string"},
				},
				"required": []string{"content_type"},
			},
		},

		// Writes and history
		{
			Name:        "retry_writes",
			Description: "Re-issue durable writes that failed",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"wait": waitProperty,
				},
			},
		},
		{
			Name:        "get_recent_activity",
			Description: "Get a project's version history, newest first",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_id": map[string]any{"type": "string"},
					"limit":      map[string]any{"type": "integer", "description": "Maximum number of entries (default 50)"},
				},
				"required": []string{"project_id"},
			},
		},
	}
}

// registerTools exposes every catalog entry as an SDK tool backed by h.
func registerTools(server *sdkmcp.Server, h *Handler) {
	for _, def := range buildToolCatalog() {
		name := def.Name
		server.AddTool(&sdkmcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		}, func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
			var args json.RawMessage
			if req != nil && req.Params != nil {
				args = req.Params.Arguments
			}
			result, err := h.Handle(ctx, name, args)
			if err != nil {
				return toolError(err)
			}
			data, err := json.Marshal(result)
			if err != nil {
				return nil, fmt.Errorf("encode %s result: %w", name, err)
			}
			return &sdkmcp.CallToolResult{
				Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
			}, nil
		})
	}
}

// toolError reports domain errors as a tool result so the model sees the
// code and hint. Anything else is a protocol error.
func toolError(err error) (*sdkmcp.CallToolResult, error) {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return nil, err
	}
	data, merr := json.Marshal(apiErr)
	if merr != nil {
		return nil, err
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
		IsError: true,
	}, nil
}
