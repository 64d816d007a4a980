// SPDX-License-Identifier: AGPL-3.0-only
package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// Settings are the per-request sampling parameters.
type Settings struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// OpenAIProvider implements ChatProvider using the OpenAI SDK. The same
// client type serves Azure deployments and any OpenAI-compatible server
// (vLLM, Ollama, ...); only the request options differ.
type OpenAIProvider struct {
	client   *openai.Client
	settings Settings
}

// NewAzureProvider addresses requests to an Azure OpenAI deployment. The
// deployment name is sent as the model and routed into the URL path by the
// SDK's Azure middleware.
func NewAzureProvider(endpoint, apiVersion, apiKey, deployment string, s Settings, extra ...option.RequestOption) *OpenAIProvider {
	s.Model = deployment
	opts := []option.RequestOption{
		azure.WithEndpoint(endpoint, apiVersion),
		azure.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	return newOpenAIProvider(append(opts, extra...), s)
}

// NewVLLMProvider addresses requests by model name on an OpenAI-compatible
// base URL.
func NewVLLMProvider(baseURL, apiKey, model string, s Settings, extra ...option.RequestOption) *OpenAIProvider {
	s.Model = model
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return newOpenAIProvider(append(opts, extra...), s)
}

func newOpenAIProvider(opts []option.RequestOption, s Settings) *OpenAIProvider {
	client := openai.NewClient(opts...)
	return &OpenAIProvider{client: &client, settings: s}
}

// Settings returns the sampling parameters the provider sends.
func (p *OpenAIProvider) Settings() Settings {
	return p.settings
}

func (p *OpenAIProvider) CreateCompletion(ctx context.Context, messages []Message, tools []ToolDefinition) (*Message, error) {
	oaiMsgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		oaiMsgs = append(oaiMsgs, toOpenAIMessage(m))
	}

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(p.settings.Model),
		Messages:    oaiMsgs,
		Temperature: openai.Float(p.settings.Temperature),
	}
	if p.settings.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.settings.MaxTokens))
	}
	if len(tools) > 0 {
		params.Tools = toOpenAITools(tools)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}
	return fromOpenAIMessage(resp.Choices[0].Message), nil
}

// toOpenAITools converts provider-agnostic tool definitions to the OpenAI SDK
// representation.
func toOpenAITools(tools []ToolDefinition) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, len(tools))
	for i, t := range tools {
		out[i] = openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Parameters:  shared.FunctionParameters(t.Parameters),
			},
		}
	}
	return out
}

func toOpenAIMessage(m Message) openai.ChatCompletionMessageParamUnion {
	switch m.Role {
	case RoleSystem:
		return openai.SystemMessage(m.Content)
	case RoleTool:
		return openai.ToolMessage(m.Content, m.ToolCallID)
	case RoleHuman:
		return openai.UserMessage(m.Content)
	default: // RoleAI
		asst := openai.ChatCompletionAssistantMessageParam{}
		if m.Content != "" {
			asst.Content.OfString = openai.String(m.Content)
		}
		if len(m.ToolCalls) > 0 {
			asst.ToolCalls = make([]openai.ChatCompletionMessageToolCallParam, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				asst.ToolCalls[i] = openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				}
			}
		}
		return openai.ChatCompletionMessageParamUnion{OfAssistant: &asst}
	}
}

func fromOpenAIMessage(m openai.ChatCompletionMessage) *Message {
	msg := &Message{
		Role:    RoleAI,
		Content: m.Content,
	}
	if len(m.ToolCalls) > 0 {
		msg.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		for i, tc := range m.ToolCalls {
			msg.ToolCalls[i] = ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			}
		}
	}
	return msg
}
