// SPDX-License-Identifier: AGPL-3.0-only
package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// secretMarkers are the key fragments that mark a value as sensitive.
var secretMarkers = []string{"key", "token", "password", "secret"}

// Map returns the nested key/value view of the configuration, e.g.
// m["llm"]["api_key"]. The provider variant decides which llm.* keys exist.
func (c *Config) Map() map[string]interface{} {
	llm := map[string]interface{}{
		"provider":    string(c.LLM.Provider),
		"temperature": c.LLM.Temperature,
		"max_tokens":  c.LLM.MaxTokens,
	}
	switch c.LLM.Provider {
	case ProviderVLLM:
		v := c.LLM.VLLM
		if v == nil {
			v = &VLLMConfig{}
		}
		llm["model"] = v.Model
		llm["base_url"] = v.BaseURL
		llm["api_key"] = v.APIKey
	case ProviderAzure:
		a := c.LLM.Azure
		if a == nil {
			a = &AzureConfig{}
		}
		llm["api_key"] = a.APIKey
		llm["azure_endpoint"] = a.Endpoint
		llm["api_version"] = a.APIVersion
		llm["deployment_name"] = a.DeploymentName
		llm["model"] = a.DeploymentName
	}

	return map[string]interface{}{
		"llm": llm,
		"agent": map[string]interface{}{
			"name":    c.Agent.Name,
			"version": c.Agent.Version,
		},
		"mock": map[string]interface{}{
			"test": copyMap(c.Mock.Test),
			"file": copyMap(c.Mock.File),
		},
		"notify": map[string]interface{}{
			"teams_webhook_url": c.Notify.TeamsWebhookURL,
		},
		"logging": map[string]interface{}{
			"level": c.Logging.Level,
			"file":  c.Logging.FilePath,
		},
		"store": map[string]interface{}{
			"db_path": c.Store.DBPath,
		},
		"server": map[string]interface{}{
			"transport": c.Server.TransportMode,
			"address":   c.Server.Address,
			"port":      c.Server.Port,
		},
		"scheduler": map[string]interface{}{
			"schedule":  c.Scheduler.Schedule,
			"workflow":  c.Scheduler.Workflow,
			"timeout":   c.Scheduler.Timeout.String(),
			"lock_path": c.Scheduler.LockPath,
		},
	}
}

// Get looks up a dot-separated path such as "llm.api_key" and returns def
// when the path does not exist. An exact match keeps the key case of mock
// data; otherwise the lookup falls back to a case-insensitive one.
func (c *Config) Get(path string, def interface{}) interface{} {
	if v, ok := lookup(c.Map(), strings.Split(path, ".")); ok {
		return v
	}

	v := viper.New()
	if err := v.MergeConfigMap(c.Map()); err != nil {
		return def
	}
	if !v.IsSet(path) {
		return def
	}
	return v.Get(path)
}

// GetString is Get for string values; non-string values are formatted.
func (c *Config) GetString(path, def string) string {
	switch v := c.Get(path, def).(type) {
	case string:
		return v
	case nil:
		return def
	default:
		return fmt.Sprint(v)
	}
}

// String renders the configuration as indented JSON with secrets masked.
func (c *Config) String() string {
	out, err := json.MarshalIndent(MaskSecrets(c.Map()), "", "  ")
	if err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return string(out)
}

// MaskSecrets returns a copy of m in which every value whose key names a
// secret is masked. Nested maps are masked recursively.
func MaskSecrets(m map[string]interface{}) map[string]interface{} {
	masked := make(map[string]interface{}, len(m))
	for k, v := range m {
		switch {
		case IsSecretKey(k):
			masked[k] = MaskValue(v)
		default:
			if nested, ok := v.(map[string]interface{}); ok {
				masked[k] = MaskSecrets(nested)
			} else {
				masked[k] = v
			}
		}
	}
	return masked
}

// IsSecretKey reports whether a key name marks a sensitive value.
func IsSecretKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range secretMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// MaskValue keeps the first and last four characters of values longer than
// eight characters and fully masks everything else.
func MaskValue(v interface{}) string {
	if v == nil {
		return "***"
	}
	s := []rune(fmt.Sprint(v))
	if len(s) <= 8 {
		return "***"
	}
	return string(s[:4]) + "..." + string(s[len(s)-4:])
}

func lookup(m map[string]interface{}, keys []string) (interface{}, bool) {
	v, ok := m[keys[0]]
	if !ok {
		return nil, false
	}
	if len(keys) == 1 {
		return v, true
	}
	nested, ok := v.(map[string]interface{})
	if !ok {
		return nil, false
	}
	return lookup(nested, keys[1:])
}

// copyMap deep-copies m so callers (and viper, which lowercases keys in
// place) never touch the loaded mock data.
func copyMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return copyMap(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
