// SPDX-License-Identifier: AGPL-3.0-only
package server

import (
	"context"
	"reflect"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolDefinition represents a tool that can be registered with the MCP server
type ToolDefinition struct {
	Name        string
	Description string
	Handler     func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error)
	// Parameters is a struct whose json and description tags describe the
	// tool input.
	Parameters interface{}
}

// toolDefinitions lists every tool the server exposes.
func (s *MCPServer) toolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "run_workflow",
			Description: "Runs an agent workflow (hello, analysis or respond) and returns the run summary and conversation.",
			Handler:     s.handleRunWorkflow,
			Parameters:  RunWorkflowParams{},
		},
		{
			Name:        "post_notification",
			Description: "Posts a message to the configured Microsoft Teams channel and returns the delivery status.",
			Handler:     s.handlePostNotification,
			Parameters:  PostNotificationParams{},
		},
		{
			Name:        "show_config",
			Description: "Shows the resolved agent configuration with secrets masked.",
			Handler:     s.handleShowConfig,
			Parameters:  struct{}{},
		},
		{
			Name:        "validate_config",
			Description: "Checks that every key required by the configured LLM provider is set.",
			Handler:     s.handleValidateConfig,
			Parameters:  struct{}{},
		},
		{
			Name:        "list_runs",
			Description: "Lists recent workflow runs, most recent first. Requires run history to be enabled.",
			Handler:     s.handleListRuns,
			Parameters:  ListRunsParams{},
		},
	}
}

func (s *MCPServer) registerTools() {
	for _, def := range s.toolDefinitions() {
		s.server.AddTool(&mcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: buildSchema(def.Parameters),
		}, def.Handler)
	}
}

// buildSchema converts a struct with json and description tags into a JSON
// Schema object. Fields without omitempty are required.
func buildSchema(params interface{}) map[string]interface{} {
	t := reflect.TypeOf(params)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	properties := map[string]interface{}{}
	var required []string
	collectFields(t, properties, &required)

	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func collectFields(t reflect.Type, properties map[string]interface{}, required *[]string) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Anonymous && field.Type.Kind() == reflect.Struct {
			collectFields(field.Type, properties, required)
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "" || jsonTag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(jsonTag, ",")

		prop := map[string]interface{}{"type": jsonType(field.Type)}
		if desc := field.Tag.Get("description"); desc != "" {
			prop["description"] = desc
		}
		if enum := field.Tag.Get("enum"); enum != "" {
			prop["enum"] = strings.Split(enum, ",")
		}
		properties[name] = prop

		if !strings.Contains(opts, "omitempty") {
			*required = append(*required, name)
		}
	}
}

func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	default:
		return "string"
	}
}
