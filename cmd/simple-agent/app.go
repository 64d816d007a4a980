// SPDX-License-Identifier: AGPL-3.0-only
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/aegirops/formation-langgraph/internal/agent"
	"github.com/aegirops/formation-langgraph/internal/config"
	"github.com/aegirops/formation-langgraph/internal/llm"
	"github.com/aegirops/formation-langgraph/internal/logging"
	"github.com/aegirops/formation-langgraph/internal/model"
	"github.com/aegirops/formation-langgraph/internal/store"
)

const rule = "--------------------------------------------------"

var (
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	gray  = color.New(color.FgHiBlack).SprintFunc()
)

// app holds what every command shares: global flags, the resolved
// configuration and the output streams.
type app struct {
	out    io.Writer
	errOut io.Writer

	envFile  string
	logLevel string
	logFile  string
	dbPath   string

	cfg    *config.Config
	logger *logging.Logger

	// provider replaces the configured LLM backend when set.
	provider llm.ChatProvider
}

func newApp(out, errOut io.Writer) *app {
	return &app{out: out, errOut: errOut}
}

// setup loads the configuration and the process logger. Command-specific
// overrides are applied after the global flags.
func (a *app) setup(overrides ...config.Override) error {
	level := a.logLevel
	if level == "" {
		level = os.Getenv("AGENT_LOG_LEVEL")
	}
	bootstrap := logging.New(logging.Options{Output: a.errOut, Level: logging.ParseLevel(level)})

	flags := func(cfg *config.Config) {
		if a.logLevel != "" {
			cfg.Logging.Level = a.logLevel
		}
		if a.logFile != "" {
			cfg.Logging.FilePath = a.logFile
		}
		if a.dbPath != "" {
			cfg.Store.DBPath = a.dbPath
		}
	}
	a.cfg = config.NewResolver(a.envFile, bootstrap, append([]config.Override{flags}, overrides...)...).Config()

	a.logger = logging.New(logging.Options{Output: a.errOut, Level: logging.ParseLevel(a.cfg.Logging.Level)})
	if a.cfg.Logging.FilePath != "" {
		logger, err := logging.FileLogger(a.cfg.Logging.FilePath, logging.ParseLevel(a.cfg.Logging.Level))
		if err != nil {
			return err
		}
		a.logger = logger
	}
	logging.SetDefaultLogger(a.logger)
	return nil
}

// openStore opens the run history when a database path is configured.
// It returns nil and a no-op closer otherwise.
func (a *app) openStore() (model.RunStore, func(), error) {
	if a.cfg.Store.DBPath == "" {
		return nil, func() {}, nil
	}
	s, err := store.NewSQLiteStore(a.cfg.Store.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open run history: %w", err)
	}
	return s, func() {
		if err := s.Close(); err != nil {
			a.logger.Warnf("Error closing run history: %v", err)
		}
	}, nil
}

func (a *app) newRunner(runs model.RunStore) (*agent.Runner, error) {
	var opts []agent.Option
	if a.provider != nil {
		opts = append(opts, agent.WithProvider(a.provider))
	}
	return agent.NewRunner(a.cfg, runs, a.logger, opts...)
}

// printer writes the human-readable report.
type printer struct {
	w io.Writer
}

func (p printer) line(format string, args ...interface{}) {
	fmt.Fprintf(p.w, format+"\n", args...)
}

func (p printer) ok(format string, args ...interface{}) {
	p.line("%s", green("✓ "+fmt.Sprintf(format, args...)))
}

func (p printer) fail(format string, args ...interface{}) {
	p.line("%s", red("✗ "+fmt.Sprintf(format, args...)))
}

func (p printer) verdict(passed bool) {
	p.line("\n%s", rule)
	if passed {
		p.ok("CI/CD Test: PASSED")
	} else {
		p.fail("CI/CD Test: FAILED")
	}
}

// configSummary prints the provider, model and endpoint in use.
func (p printer) configSummary(cfg *config.Config) {
	p.line("\nConfiguration loaded:")
	p.line("  Provider: %s", cfg.LLM.Provider.DisplayName())
	p.line("  Model: %s", cfg.LLM.Model())
	switch cfg.LLM.Provider {
	case config.ProviderVLLM:
		p.line("  API Base: %s", cfg.GetString("llm.base_url", ""))
	case config.ProviderAzure:
		p.line("  Endpoint: %s", cfg.GetString("llm.azure_endpoint", ""))
		p.line("  API Version: %s", cfg.GetString("llm.api_version", ""))
	}
	p.line("")
}

// validationHelp explains how to provide the missing settings.
func (p printer) validationHelp(cfg *config.Config, err error) {
	p.fail("%v", err)
	p.line("   Please set these in your .env file or as environment variables")
	p.line("   Required for %s:", cfg.LLM.Provider.DisplayName())
	hints := config.RequiredEnv(cfg.LLM.Provider)
	for _, h := range hints {
		if h.Example != "" {
			p.line("   - %s (e.g., '%s')", h.Name, h.Example)
		} else {
			p.line("   - %s", h.Name)
		}
	}

	p.line("\nTo fix this:")
	p.line("1. Copy env.example to .env:")
	p.line("   cp env.example .env")
	p.line("2. Edit .env and set the variables above")
	p.line("\nOr export them:")
	for _, h := range hints {
		p.line("   export %s='%s'", h.Name, exampleValue(h))
	}
}

func exampleValue(h config.EnvHint) string {
	if h.Example != "" {
		return h.Example
	}
	return "your_" + strings.ToLower(h.Name) + "_here"
}
