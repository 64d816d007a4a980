// SPDX-License-Identifier: AGPL-3.0-only
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aegirops/formation-langgraph/internal/workflow"
)

// errFailed marks a command that already reported its failure.
var errFailed = errors.New("command failed")

// Execute runs the CLI and returns the process exit code.
func Execute(ctx context.Context, a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	if err := root.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errFailed) {
			printer{a.errOut}.fail("Error: %v", err)
		}
		return 1
	}
	return 0
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "simple-agent",
		Short: "Minimal LLM agent for CI/CD checks",
		Long: `simple-agent runs small LLM workflows against Azure OpenAI or a vLLM
endpoint. Without a subcommand it runs the hello workflow and reports
PASSED or FAILED, which makes it usable as a CI smoke test.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			return a.runWorkflow(cmd, workflow.Hello)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	flags := root.PersistentFlags()
	flags.StringVar(&a.envFile, "env-file", "", "dotenv file to load (default .env)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.logFile, "log-file", "", "write logs to this file instead of stderr")
	flags.StringVar(&a.dbPath, "db-path", "", "SQLite database for run history (disabled when empty)")

	root.AddCommand(
		newRunCmd(a),
		newConfigCmd(a),
		newNotifyCmd(a),
		newServeCmd(a),
		newScheduleCmd(a),
		newHistoryCmd(a),
		newVersionCmd(a),
	)
	return root
}

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:       "run <workflow>",
		Short:     fmt.Sprintf("Run a workflow (%s, %s or %s)", workflow.Hello, workflow.Analysis, workflow.Respond),
		Args:      cobra.ExactArgs(1),
		ValidArgs: workflow.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			return a.runWorkflow(cmd, args[0])
		},
	}
}

// runWorkflow validates the configuration, runs one workflow and prints the
// report.
func (a *app) runWorkflow(cmd *cobra.Command, name string) error {
	p := printer{cmd.OutOrStdout()}
	p.line("Running simple LangGraph agent (%s workflow)...", name)
	p.line(rule)
	p.configSummary(a.cfg)

	if err := a.cfg.Validate(); err != nil {
		p.validationHelp(a.cfg, err)
		p.line("")
		p.fail("Configuration validation failed")
		p.verdict(false)
		return errFailed
	}
	p.ok("Configuration validated successfully")

	runs, closeStore, err := a.openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	runner, err := a.newRunner(runs)
	if err != nil {
		return err
	}

	outcome, err := runner.Run(cmd.Context(), name)
	if err != nil {
		p.line("")
		p.fail("Error: %v", err)
		p.verdict(false)
		return errFailed
	}

	state := outcome.State
	p.line("")
	p.ok("Agent executed successfully!")
	p.line("\nOutput: %s", state.Output)
	if name == workflow.Analysis {
		p.line("\nNotification: %s", state.NotificationStatus)
	}
	p.line("\nConversation history (%d messages):", len(state.Messages))
	for i, m := range state.Messages {
		p.line("  %d. [%s] %s", i+1, m.Role.Label(), m.Content)
	}
	p.line("\n%s", gray("Run "+outcome.Run.ID+" took "+outcome.Run.Duration))
	p.verdict(true)
	return nil
}
