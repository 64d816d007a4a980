// SPDX-License-Identifier: AGPL-3.0-only
package llm

import (
	"fmt"

	"github.com/openai/openai-go/option"

	"github.com/aegirops/formation-langgraph/internal/config"
)

// NewChatProvider builds the provider selected by cfg.Provider.
func NewChatProvider(cfg config.LLMConfig, extra ...option.RequestOption) (ChatProvider, error) {
	s := Settings{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens}

	switch cfg.Provider {
	case config.ProviderAzure:
		a := cfg.Azure
		if a == nil || a.APIKey == "" {
			return nil, fmt.Errorf("Azure OpenAI API key is not set in configuration")
		}
		return NewAzureProvider(a.Endpoint, a.APIVersion, a.APIKey, a.DeploymentName, s, extra...), nil
	case config.ProviderVLLM:
		v := cfg.VLLM
		if v == nil || v.APIKey == "" {
			return nil, fmt.Errorf("vLLM API key is not set in configuration")
		}
		return NewVLLMProvider(v.BaseURL, v.APIKey, v.Model, s, extra...), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}
