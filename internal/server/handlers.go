// SPDX-License-Identifier: AGPL-3.0-only
package server

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aegirops/formation-langgraph/internal/errors"
)

// RunWorkflowParams holds the run_workflow input.
type RunWorkflowParams struct {
	Workflow string `json:"workflow" description:"workflow to run" enum:"hello,analysis,respond"`
}

// PostNotificationParams holds the post_notification input.
type PostNotificationParams struct {
	Message string `json:"message" description:"text to post to the Teams channel"`
}

// ListRunsParams holds the list_runs input.
type ListRunsParams struct {
	Workflow string `json:"workflow,omitempty" description:"only list runs of this workflow"`
	Limit    int    `json:"limit,omitempty" description:"number of runs to return (default 10, max 100)"`
}

// extractParams decodes the tool arguments into params. Missing arguments
// decode as an empty object.
func extractParams(request *mcp.CallToolRequest, params interface{}) error {
	if request == nil || request.Params == nil || len(request.Params.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(request.Params.Arguments, params); err != nil {
		return errors.InvalidInput(fmt.Sprintf("invalid parameters: %v", err))
	}
	return nil
}

// jsonResponse wraps v as a single JSON text content.
func jsonResponse(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Internal(fmt.Errorf("failed to marshal response: %w", err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

// textResponse wraps a plain text answer.
func textResponse(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// createErrorResponse reports err through the MCP protocol error path.
func createErrorResponse(err error) (*mcp.CallToolResult, error) {
	return nil, err
}
