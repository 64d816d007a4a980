// SPDX-License-Identifier: AGPL-3.0-only
package config

import (
	"fmt"
	"strings"
)

// placeholders are the sample values shipped in env.example. A required
// field equal to one of its provider's placeholders counts as missing.
var placeholders = map[Provider][]string{
	ProviderAzure: {
		"your_azure_api_key_here",
		"https://your-resource-name.openai.azure.com",
		"your-deployment-name",
		"your_api_key_here",
	},
	ProviderVLLM: {
		"your_vllm_api_key_here",
		"https://your-vllm-endpoint.com/v1",
		"your_api_key_here",
	},
}

// ValidationError lists every required key that is missing or still set to
// a placeholder.
type ValidationError struct {
	Provider Provider
	Missing  []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required configuration keys for %s: %s",
		e.Provider.DisplayName(), strings.Join(e.Missing, ", "))
}

type requiredField struct {
	key   string
	value string
}

func (c *Config) requiredFields() []requiredField {
	switch c.LLM.Provider {
	case ProviderVLLM:
		v := c.LLM.VLLM
		if v == nil {
			v = &VLLMConfig{}
		}
		return []requiredField{
			{"llm.model", v.Model},
			{"llm.base_url", v.BaseURL},
			{"llm.api_key", v.APIKey},
		}
	default:
		a := c.LLM.Azure
		if a == nil {
			a = &AzureConfig{}
		}
		return []requiredField{
			{"llm.api_key", a.APIKey},
			{"llm.azure_endpoint", a.Endpoint},
			{"llm.api_version", a.APIVersion},
			{"llm.deployment_name", a.DeploymentName},
		}
	}
}

// Validate checks the required keys of the selected provider and reports all
// of the missing ones at once as a *ValidationError.
func (c *Config) Validate() error {
	denied := placeholders[c.LLM.Provider]

	var missing []string
	for _, f := range c.requiredFields() {
		if isMissing(f.value, denied) {
			missing = append(missing, f.key)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Provider: c.LLM.Provider, Missing: missing}
	}
	return nil
}

func isMissing(value string, denied []string) bool {
	if value == "" {
		return true
	}
	for _, p := range denied {
		if value == p {
			return true
		}
	}
	return false
}

// EnvHint names an environment variable the user has to set.
type EnvHint struct {
	Name    string
	Example string
}

// RequiredEnv lists the environment variables a provider needs.
func RequiredEnv(p Provider) []EnvHint {
	switch p {
	case ProviderVLLM:
		return []EnvHint{
			{Name: "VLLM_MODEL", Example: "MY_MODEL_NAME"},
			{Name: "VLLM_BASE_URL", Example: "https://your-endpoint.com/v1"},
			{Name: "VLLM_API_KEY"},
		}
	default:
		return []EnvHint{
			{Name: "AZURE_OPENAI_API_KEY"},
			{Name: "AZURE_OPENAI_ENDPOINT", Example: "https://your-resource-name.openai.azure.com"},
			{Name: "AZURE_OPENAI_API_VERSION", Example: "2024-08-01-preview"},
			{Name: "AZURE_OPENAI_DEPLOYMENT_NAME"},
		}
	}
}
