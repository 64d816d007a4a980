// SPDX-License-Identifier: AGPL-3.0-only

// Package llm is the provider-agnostic chat layer the workflow nodes talk
// to: messages, tool definitions, the tool registry and the OpenAI-compatible
// provider used for both Azure deployments and vLLM endpoints.
package llm

import "context"

// Role tags a message in the conversation history.
type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
	RoleTool   Role = "tool"
)

// Label is the display name of a role.
func (r Role) Label() string {
	switch r {
	case RoleSystem:
		return "System"
	case RoleHuman:
		return "Human"
	case RoleAI:
		return "AI"
	case RoleTool:
		return "Tool"
	default:
		return string(r)
	}
}

// ToolDefinition is a tool offered to the model during a completion.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is one entry of the conversation history.
type Message struct {
	Role       Role
	Content    string
	ToolCalls  []ToolCall // set on RoleAI messages that request tools
	ToolCallID string     // set on RoleTool messages
}

// HumanMessage builds a RoleHuman message.
func HumanMessage(content string) Message {
	return Message{Role: RoleHuman, Content: content}
}

// ToolMessage builds the result message for a tool call.
func ToolMessage(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}

// ChatProvider abstracts a chat-completion backend.
type ChatProvider interface {
	// CreateCompletion sends the conversation and returns the model's reply.
	// tools may be nil.
	CreateCompletion(ctx context.Context, messages []Message, tools []ToolDefinition) (*Message, error)
}
