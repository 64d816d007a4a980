// SPDX-License-Identifier: AGPL-3.0-only
package config

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMaskValue(t *testing.T) {
	assert.Equal(t, "sk-1...wxyz", MaskValue("sk-1234567890wxyz"))
	assert.Equal(t, "***", MaskValue("12345678"))
	assert.Equal(t, "***", MaskValue(""))
	assert.Equal(t, "***", MaskValue(nil))
	assert.Equal(t, "***", MaskValue(1000))
}

func TestIsSecretKey(t *testing.T) {
	for _, k := range []string{"api_key", "API_KEY", "access_token", "max_tokens", "db_password", "client_secret"} {
		assert.True(t, IsSecretKey(k), k)
	}
	for _, k := range []string{"model", "azure_endpoint", "name", "teams_webhook_url"} {
		assert.False(t, IsSecretKey(k), k)
	}
}

func TestMaskSecretsRecursive(t *testing.T) {
	in := map[string]interface{}{
		"name": "agent",
		"llm": map[string]interface{}{
			"api_key": "abcdefghijklmnop",
			"model":   "gpt-4o",
		},
	}

	out := MaskSecrets(in)

	assert.Equal(t, "agent", out["name"])
	llm := out["llm"].(map[string]interface{})
	assert.Equal(t, "abcd...mnop", llm["api_key"])
	assert.Equal(t, "gpt-4o", llm["model"])
	// input untouched
	assert.Equal(t, "abcdefghijklmnop", in["llm"].(map[string]interface{})["api_key"])
}

func TestStringMasksSecrets(t *testing.T) {
	cfg := validAzure()
	cfg.LLM.Azure.APIKey = "super-secret-azure-key"

	out := cfg.String()

	assert.NotContains(t, out, "super-secret-azure-key")
	assert.Contains(t, out, "supe...-key")
	assert.Contains(t, out, "gpt-4o-mini")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "***", decoded["llm"].(map[string]interface{})["max_tokens"])
}

func TestMaskValueProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		secret := rapid.StringMatching(`[A-Za-z0-9_\-]{0,40}`).Draw(t, "secret")
		masked := MaskValue(secret)

		if secret != "" && strings.Contains(masked, secret) {
			t.Fatalf("masked value %q reveals %q", masked, secret)
		}
		if len(secret) > 8 {
			want := secret[:4] + "..." + secret[len(secret)-4:]
			if masked != want {
				t.Fatalf("MaskValue(%q) = %q, want %q", secret, masked, want)
			}
		} else if masked != "***" {
			t.Fatalf("MaskValue(%q) = %q, want ***", secret, masked)
		}
	})
}
