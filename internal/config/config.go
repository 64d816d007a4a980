// SPDX-License-Identifier: AGPL-3.0-only

// Package config resolves the agent configuration from a dotenv file and the
// process environment. A Config is immutable once loaded.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Provider identifies the LLM backend family.
type Provider string

const (
	// ProviderAzure addresses a model through an Azure OpenAI deployment.
	ProviderAzure Provider = "azure"
	// ProviderVLLM addresses a model by name on an OpenAI-compatible base URL.
	ProviderVLLM Provider = "vllm"
)

// ParseProvider maps LLM_PROVIDER to a Provider. Matching is
// case-insensitive and everything other than "vllm" selects Azure; known
// reports whether the input named a provider explicitly.
func ParseProvider(s string) (p Provider, known bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ProviderVLLM):
		return ProviderVLLM, true
	case "", string(ProviderAzure):
		return ProviderAzure, true
	default:
		return ProviderAzure, false
	}
}

// DisplayName is the human-readable provider name.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderVLLM:
		return "vLLM"
	default:
		return "Azure OpenAI"
	}
}

// AzureConfig holds the fields required for deployment-based addressing.
type AzureConfig struct {
	APIKey         string
	Endpoint       string
	APIVersion     string
	DeploymentName string
}

// VLLMConfig holds the fields required for model + base URL addressing.
type VLLMConfig struct {
	Model   string
	BaseURL string
	APIKey  string
}

// LLMConfig carries the common LLM settings and exactly one provider
// variant: Azure is set iff Provider is ProviderAzure, VLLM iff ProviderVLLM.
type LLMConfig struct {
	Provider    Provider
	Temperature float64
	MaxTokens   int

	Azure *AzureConfig
	VLLM  *VLLMConfig
}

// Model returns the name the request is addressed with: the deployment name
// for Azure, the model name for vLLM.
func (c LLMConfig) Model() string {
	switch c.Provider {
	case ProviderVLLM:
		if c.VLLM != nil {
			return c.VLLM.Model
		}
	case ProviderAzure:
		if c.Azure != nil {
			return c.Azure.DeploymentName
		}
	}
	return ""
}

// AgentConfig identifies the agent.
type AgentConfig struct {
	Name    string
	Version string
}

// MockConfig holds canned payloads used instead of real test/file content.
type MockConfig struct {
	Test map[string]interface{}
	File map[string]interface{}
}

// NotifyConfig configures the Teams notification tool.
type NotifyConfig struct {
	TeamsWebhookURL string
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level    string
	FilePath string
}

// StoreConfig configures the optional run history database.
type StoreConfig struct {
	// DBPath enables run history when non-empty.
	DBPath string
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	TransportMode string
	Address       string
	Port          int
}

// SchedulerConfig configures periodic workflow runs.
type SchedulerConfig struct {
	Schedule string
	Workflow string
	Timeout  time.Duration
	LockPath string
}

// Config is the resolved agent configuration.
type Config struct {
	LLM       LLMConfig
	Agent     AgentConfig
	Mock      MockConfig
	Notify    NotifyConfig
	Logging   LoggingConfig
	Store     StoreConfig
	Server    ServerConfig
	Scheduler SchedulerConfig
}

// DefaultConfig returns a configuration with every default applied and no
// credentials.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    ProviderAzure,
			Temperature: 0.7,
			MaxTokens:   1000,
			Azure:       &AzureConfig{},
		},
		Agent: AgentConfig{
			Name:    "simple_langgraph_agent",
			Version: "1.0.0",
		},
		Mock: MockConfig{
			Test: map[string]interface{}{},
			File: map[string]interface{}{},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			TransportMode: "stdio",
			Address:       "localhost",
			Port:          8080,
		},
		Scheduler: SchedulerConfig{
			Workflow: "hello",
			Timeout:  5 * time.Minute,
			LockPath: filepath.Join(os.TempDir(), "simple-agent-scheduler"),
		},
	}
}
