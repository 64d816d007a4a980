// SPDX-License-Identifier: AGPL-3.0-only
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/aegirops/formation-langgraph/internal/logging"
)

// DefaultEnvPath is the dotenv file consulted when none is given.
const DefaultEnvPath = ".env"

// Override adjusts a freshly resolved Config before it is frozen, e.g. with
// command-line flags.
type Override func(*Config)

// Load resolves the configuration. The dotenv file at envPath is loaded
// first when present; it never replaces variables already set in the
// process environment. A missing or unreadable file is not an error.
func Load(envPath string, logger *logging.Logger, overrides ...Override) *Config {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	if envPath == "" {
		envPath = DefaultEnvPath
	}

	loadDotenv(envPath, logger)

	cfg := DefaultConfig()
	FromEnv(cfg, logger)

	for _, o := range overrides {
		if o != nil {
			o(cfg)
		}
	}
	return cfg
}

func loadDotenv(path string, logger *logging.Logger) {
	if _, err := os.Stat(path); err != nil {
		logger.Infof("Using environment variables for configuration")
		return
	}
	if err := godotenv.Load(path); err != nil {
		logger.Warnf("Failed to load %s: %v", path, err)
		return
	}
	logger.Infof("Loaded configuration from %s", path)
}

// FromEnv overlays environment variables onto cfg.
func FromEnv(cfg *Config, logger *logging.Logger) {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}

	raw := os.Getenv("LLM_PROVIDER")
	provider, known := ParseProvider(raw)
	if !known {
		logger.Warnf("Unknown LLM_PROVIDER %q, falling back to %s", raw, ProviderAzure)
	}

	cfg.LLM.Provider = provider
	cfg.LLM.Temperature = envFloat("LLM_TEMPERATURE", cfg.LLM.Temperature, logger)
	cfg.LLM.MaxTokens = envInt("LLM_MAX_TOKENS", cfg.LLM.MaxTokens, logger)

	switch provider {
	case ProviderVLLM:
		cfg.LLM.Azure = nil
		cfg.LLM.VLLM = &VLLMConfig{
			Model:   os.Getenv("VLLM_MODEL"),
			BaseURL: os.Getenv("VLLM_BASE_URL"),
			APIKey:  os.Getenv("VLLM_API_KEY"),
		}
	case ProviderAzure:
		cfg.LLM.VLLM = nil
		cfg.LLM.Azure = &AzureConfig{
			APIKey:         os.Getenv("AZURE_OPENAI_API_KEY"),
			Endpoint:       os.Getenv("AZURE_OPENAI_ENDPOINT"),
			APIVersion:     os.Getenv("AZURE_OPENAI_API_VERSION"),
			DeploymentName: os.Getenv("AZURE_OPENAI_DEPLOYMENT_NAME"),
		}
	}

	cfg.Agent.Name = envString("AGENT_NAME", cfg.Agent.Name)
	cfg.Agent.Version = envString("AGENT_VERSION", cfg.Agent.Version)

	cfg.Mock.Test = envJSONObject("MOCK_TEST_DATA", logger)
	cfg.Mock.File = envJSONObject("MOCK_FILE_DATA", logger)

	cfg.Notify.TeamsWebhookURL = os.Getenv("TEAMS_WEBHOOK_URL")

	cfg.Logging.Level = envString("AGENT_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.FilePath = envString("AGENT_LOG_FILE", cfg.Logging.FilePath)

	cfg.Store.DBPath = envString("AGENT_DB_PATH", cfg.Store.DBPath)

	cfg.Server.TransportMode = envString("AGENT_TRANSPORT", cfg.Server.TransportMode)
	cfg.Server.Address = envString("AGENT_ADDRESS", cfg.Server.Address)
	cfg.Server.Port = envInt("AGENT_PORT", cfg.Server.Port, logger)

	cfg.Scheduler.Schedule = envString("AGENT_SCHEDULE", cfg.Scheduler.Schedule)
	cfg.Scheduler.Workflow = envString("AGENT_SCHEDULE_WORKFLOW", cfg.Scheduler.Workflow)
	cfg.Scheduler.Timeout = envDuration("AGENT_RUN_TIMEOUT", cfg.Scheduler.Timeout, logger)
	cfg.Scheduler.LockPath = envString("AGENT_LOCK_PATH", cfg.Scheduler.LockPath)
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envFloat(key string, def float64, logger *logging.Logger) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		logger.Warnf("Invalid %s=%q, using %v", key, v, def)
		return def
	}
	return f
}

func envInt(key string, def int, logger *logging.Logger) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warnf("Invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration, logger *logging.Logger) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		logger.Warnf("Invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}

// envJSONObject parses a JSON object from an environment variable. Anything
// that is not a JSON object yields an empty map and a warning.
func envJSONObject(key string, logger *logging.Logger) map[string]interface{} {
	v := os.Getenv(key)
	if v == "" {
		return map[string]interface{}{}
	}

	var out map[string]interface{}
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		logger.Warnf("Failed to parse JSON from %s: %v", key, err)
		return map[string]interface{}{}
	}
	if out == nil {
		return map[string]interface{}{}
	}
	return out
}

// Resolver loads the configuration at most once. Every call to Config
// returns the same instance, even if the environment changed in between.
type Resolver struct {
	once      sync.Once
	cfg       *Config
	envPath   string
	logger    *logging.Logger
	overrides []Override
}

// NewResolver creates a Resolver; nothing is read until Config is called.
func NewResolver(envPath string, logger *logging.Logger, overrides ...Override) *Resolver {
	return &Resolver{envPath: envPath, logger: logger, overrides: overrides}
}

// Config returns the process configuration, loading it on first use.
func (r *Resolver) Config() *Config {
	r.once.Do(func() {
		r.cfg = Load(r.envPath, r.logger, r.overrides...)
	})
	return r.cfg
}
