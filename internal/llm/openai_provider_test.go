// SPDX-License-Identifier: AGPL-3.0-only
package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegirops/formation-langgraph/internal/config"
)

const helloCompletion = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "test-model",
  "choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "Hello!"}}]
}`

const toolCallCompletion = `{
  "id": "chatcmpl-2",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "test-model",
  "choices": [{"index": 0, "finish_reason": "tool_calls", "message": {
    "role": "assistant",
    "content": "",
    "tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "post_to_teams", "arguments": "{\"message\":\"hi\"}"}}]
  }}]
}`

type capturedRequest struct {
	Path   string
	Query  string
	Header http.Header
	Body   map[string]interface{}
}

func fakeLLM(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		captured.Path = r.URL.Path
		captured.Query = r.URL.RawQuery
		captured.Header = r.Header.Clone()
		_ = json.Unmarshal(raw, &captured.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestVLLMProviderRequest(t *testing.T) {
	srv, captured := fakeLLM(t, http.StatusOK, helloCompletion)
	p := NewVLLMProvider(srv.URL+"/v1/", "token-abc", "qwen2.5", Settings{Temperature: 0.3, MaxTokens: 64})

	reply, err := p.CreateCompletion(context.Background(), []Message{HumanMessage("Say Hello!")}, nil)
	require.NoError(t, err)

	assert.Equal(t, RoleAI, reply.Role)
	assert.Equal(t, "Hello!", reply.Content)
	assert.Equal(t, "/v1/chat/completions", captured.Path)
	assert.Equal(t, "Bearer token-abc", captured.Header.Get("Authorization"))
	assert.Equal(t, "qwen2.5", captured.Body["model"])
	assert.Equal(t, 0.3, captured.Body["temperature"])
	assert.Equal(t, float64(64), captured.Body["max_tokens"])
	assert.NotContains(t, captured.Body, "tools")

	msgs := captured.Body["messages"].([]interface{})
	require.Len(t, msgs, 1)
	assert.Equal(t, "user", msgs[0].(map[string]interface{})["role"])
}

func TestAzureProviderUsesDeploymentAddressing(t *testing.T) {
	srv, captured := fakeLLM(t, http.StatusOK, helloCompletion)
	p := NewAzureProvider(srv.URL, "2024-08-01-preview", "azure-key-123", "gpt-4o-mini", Settings{Temperature: 0.7, MaxTokens: 1000})

	reply, err := p.CreateCompletion(context.Background(), []Message{HumanMessage("Say Hello!")}, nil)
	require.NoError(t, err)

	assert.Equal(t, "Hello!", reply.Content)
	assert.True(t, strings.Contains(captured.Path, "/deployments/gpt-4o-mini/"), captured.Path)
	assert.Contains(t, captured.Query, "api-version=2024-08-01-preview")
	assert.Equal(t, "azure-key-123", captured.Header.Get("Api-Key"))
}

func TestProviderToolCalls(t *testing.T) {
	srv, captured := fakeLLM(t, http.StatusOK, toolCallCompletion)
	p := NewVLLMProvider(srv.URL, "k", "m", Settings{})

	tools := []ToolDefinition{{
		Name:        "post_to_teams",
		Description: "Post a message",
		Parameters: map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{"message": map[string]interface{}{"type": "string"}},
			"required":   []string{"message"},
		},
	}}
	reply, err := p.CreateCompletion(context.Background(), []Message{HumanMessage("notify")}, tools)
	require.NoError(t, err)

	require.Len(t, reply.ToolCalls, 1)
	assert.Equal(t, ToolCall{ID: "call_1", Name: "post_to_teams", Arguments: `{"message":"hi"}`}, reply.ToolCalls[0])
	require.Contains(t, captured.Body, "tools")
	assert.Len(t, captured.Body["tools"], 1)
}

func TestProviderErrorStatus(t *testing.T) {
	srv, _ := fakeLLM(t, http.StatusInternalServerError, `{"error":{"message":"down"}}`)
	p := NewVLLMProvider(srv.URL, "k", "m", Settings{})

	_, err := p.CreateCompletion(context.Background(), []Message{HumanMessage("hi")}, nil)
	assert.Error(t, err)
}

func TestProviderNoChoices(t *testing.T) {
	srv, _ := fakeLLM(t, http.StatusOK, `{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	p := NewVLLMProvider(srv.URL, "k", "m", Settings{})

	_, err := p.CreateCompletion(context.Background(), []Message{HumanMessage("hi")}, nil)
	assert.EqualError(t, err, "chat completion returned no choices")
}

func TestNewChatProvider(t *testing.T) {
	azureCfg := config.DefaultConfig().LLM
	azureCfg.Azure = &config.AzureConfig{APIKey: "k", Endpoint: "https://x.openai.azure.com", APIVersion: "v", DeploymentName: "dep"}
	p, err := NewChatProvider(azureCfg)
	require.NoError(t, err)
	assert.Equal(t, "dep", p.(*OpenAIProvider).Settings().Model)

	vllmCfg := config.LLMConfig{Provider: config.ProviderVLLM, Temperature: 0.1, VLLM: &config.VLLMConfig{APIKey: "k", BaseURL: "http://x/v1", Model: "qwen"}}
	p, err = NewChatProvider(vllmCfg)
	require.NoError(t, err)
	assert.Equal(t, "qwen", p.(*OpenAIProvider).Settings().Model)
	assert.Equal(t, 0.1, p.(*OpenAIProvider).Settings().Temperature)
}

func TestNewChatProviderMissingKey(t *testing.T) {
	_, err := NewChatProvider(config.LLMConfig{Provider: config.ProviderAzure, Azure: &config.AzureConfig{}})
	assert.Error(t, err)

	_, err = NewChatProvider(config.LLMConfig{Provider: config.ProviderVLLM})
	assert.Error(t, err)

	_, err = NewChatProvider(config.LLMConfig{Provider: "bedrock"})
	assert.Error(t, err)
}

func TestToOpenAITools(t *testing.T) {
	tools := []ToolDefinition{
		{Name: "post_to_teams", Description: "Post a message", Parameters: map[string]interface{}{"type": "object"}},
		{Name: "list_files", Description: "List files", Parameters: map[string]interface{}{"type": "object"}},
	}

	result := toOpenAITools(tools)

	if len(result) != 2 {
		t.Fatalf("Expected 2 tools, got %d", len(result))
	}
	if result[0].Function.Name != "post_to_teams" {
		t.Errorf("Expected tool name 'post_to_teams', got '%s'", result[0].Function.Name)
	}
}

func TestToOpenAIMessageRoles(t *testing.T) {
	if toOpenAIMessage(HumanMessage("Hello")).OfUser == nil {
		t.Fatal("Expected user message")
	}
	if toOpenAIMessage(Message{Role: RoleSystem, Content: "be brief"}).OfSystem == nil {
		t.Fatal("Expected system message")
	}
	tool := toOpenAIMessage(ToolMessage("call_123", "ok"))
	if tool.OfTool == nil || tool.OfTool.ToolCallID != "call_123" {
		t.Fatal("Expected tool message with ToolCallID 'call_123'")
	}
}

func TestToOpenAIMessage_AssistantWithToolCalls(t *testing.T) {
	msg := Message{
		Role: RoleAI,
		ToolCalls: []ToolCall{
			{ID: "call_1", Name: "post_to_teams", Arguments: `{"message":"hi"}`},
		},
	}
	result := toOpenAIMessage(msg)

	if result.OfAssistant == nil {
		t.Fatal("Expected assistant message, got nil")
	}
	if len(result.OfAssistant.ToolCalls) != 1 {
		t.Fatalf("Expected 1 tool call, got %d", len(result.OfAssistant.ToolCalls))
	}
	if result.OfAssistant.ToolCalls[0].Function.Name != "post_to_teams" {
		t.Errorf("Expected function name 'post_to_teams', got '%s'", result.OfAssistant.ToolCalls[0].Function.Name)
	}
}

func TestFromOpenAIMessage_TextOnly(t *testing.T) {
	result := fromOpenAIMessage(openai.ChatCompletionMessage{Content: "The answer is 42"})

	if result.Role != RoleAI {
		t.Errorf("Expected role 'ai', got '%s'", result.Role)
	}
	if result.Content != "The answer is 42" {
		t.Errorf("Expected content 'The answer is 42', got '%s'", result.Content)
	}
	if len(result.ToolCalls) != 0 {
		t.Errorf("Expected 0 tool calls, got %d", len(result.ToolCalls))
	}
}

func TestRoleLabel(t *testing.T) {
	assert.Equal(t, "Human", RoleHuman.Label())
	assert.Equal(t, "AI", RoleAI.Label())
	assert.Equal(t, "Tool", RoleTool.Label())
}
