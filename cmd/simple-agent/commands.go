// SPDX-License-Identifier: AGPL-3.0-only
package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/aegirops/formation-langgraph/internal/config"
	"github.com/aegirops/formation-langgraph/internal/errors"
	"github.com/aegirops/formation-langgraph/internal/model"
	"github.com/aegirops/formation-langgraph/internal/notify"
	"github.com/aegirops/formation-langgraph/internal/scheduler"
	"github.com/aegirops/formation-langgraph/internal/server"
	"github.com/aegirops/formation-langgraph/internal/singleton"
)

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the resolved configuration (secrets masked) and validate it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			p := printer{cmd.OutOrStdout()}
			p.line("Configuration:")
			p.line("%s", a.cfg.String())
			p.line("\n%s", rule)
			p.line("Validation:")
			if err := a.cfg.Validate(); err != nil {
				p.validationHelp(a.cfg, err)
				return errFailed
			}
			p.ok("Configuration is ready to use")
			return nil
		},
	}
}

func newNotifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "notify <message>",
		Short: "Post a message to the configured Teams channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			p := printer{cmd.OutOrStdout()}
			status := notify.NewPoster(a.cfg.Notify.TeamsWebhookURL, a.logger).Post(cmd.Context(), args[0])
			if status != notify.StatusPosted {
				p.fail("%s", status)
				return errFailed
			}
			p.ok("%s", status)
			return nil
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	var transport, address string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the agent tools over MCP (stdio or sse)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := a.setup(func(cfg *config.Config) {
				if transport != "" {
					cfg.Server.TransportMode = transport
				}
				if address != "" {
					cfg.Server.Address = address
				}
				if port != 0 {
					cfg.Server.Port = port
				}
			})
			if err != nil {
				return err
			}

			logger, err := server.NewLogger(a.cfg)
			if err != nil {
				return err
			}
			a.logger = logger

			runs, closeStore, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			runner, err := a.newRunner(runs)
			if err != nil {
				return err
			}
			srv, err := server.NewMCPServer(a.cfg, runner, notify.NewPoster(a.cfg.Notify.TeamsWebhookURL, logger), runs, logger)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if err := srv.Start(ctx); err != nil {
				return err
			}
			logger.Infof("MCP server started")

			select {
			case <-ctx.Done():
				logger.Infof("Received termination signal, shutting down...")
			case <-srv.Done():
				logger.Infof("Server transport exited, shutting down...")
			}
			return srv.Stop()
		},
	}
	cmd.Flags().StringVar(&transport, "transport", "", "transport mode: stdio or sse")
	cmd.Flags().StringVar(&address, "address", "", "address to bind in sse mode")
	cmd.Flags().IntVar(&port, "port", 0, "port to bind in sse mode")
	return cmd
}

func newScheduleCmd(a *app) *cobra.Command {
	var cronExpr string
	var names []string
	var wait bool

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run workflows on a cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := a.setup(func(cfg *config.Config) {
				if cronExpr != "" {
					cfg.Scheduler.Schedule = cronExpr
				}
			})
			if err != nil {
				return err
			}
			p := printer{cmd.OutOrStdout()}
			ctx := cmd.Context()

			if a.cfg.Scheduler.Schedule == "" {
				return errors.InvalidInput("a schedule is required (--cron or AGENT_SCHEDULE)")
			}
			if len(names) == 0 {
				names = []string{a.cfg.Scheduler.Workflow}
			}
			if err := a.cfg.Validate(); err != nil {
				p.validationHelp(a.cfg, err)
				return errFailed
			}

			lock, err := a.schedulerLock(ctx, wait)
			if err != nil {
				return err
			}
			defer func() {
				if err := lock.Release(); err != nil {
					a.logger.Warnf("Error releasing scheduler lock: %v", err)
				}
			}()

			runs, closeStore, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			runner, err := a.newRunner(runs)
			if err != nil {
				return err
			}

			sched := scheduler.NewScheduler(&a.cfg.Scheduler, a.logger)
			sched.SetExecutor(runner)
			for _, name := range names {
				if err := sched.AddJob(scheduler.NewJob(name, a.cfg.Scheduler.Schedule)); err != nil {
					return err
				}
			}

			sched.Start(ctx)
			jobs := sched.ListJobs()
			for _, job := range jobs {
				p.ok("Scheduled %s workflow (%s), next run at %s", job.Workflow, job.Schedule,
					job.NextRun.Format(time.RFC3339))
			}

			<-ctx.Done()
			for _, job := range jobs {
				if err := sched.RemoveJob(job.ID); err != nil {
					a.logger.Warnf("Error unscheduling job %s: %v", job.ID, err)
				}
			}
			return sched.Stop()
		},
	}
	cmd.Flags().StringVar(&cronExpr, "cron", "", "cron expression, optional seconds field (default AGENT_SCHEDULE)")
	cmd.Flags().StringArrayVar(&names, "workflow", nil, "workflow to run, repeatable (default AGENT_SCHEDULE_WORKFLOW or hello)")
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for a running scheduler to exit instead of failing")
	return cmd
}

// schedulerLock takes the single-instance lock, waiting for it when wait is
// set.
func (a *app) schedulerLock(ctx context.Context, wait bool) (*singleton.Lock, error) {
	path := a.cfg.Scheduler.LockPath
	if wait {
		a.logger.Infof("Waiting for scheduler lock %s.lock", path)
		return singleton.Acquire(ctx, path)
	}
	lock, ok, err := singleton.TryAcquire(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("another scheduler is already running (lock %s.lock)", path)
	}
	return lock, nil
}

func newHistoryCmd(a *app) *cobra.Command {
	var name string
	var limit int
	var latest bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent workflow runs from the run history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			if a.cfg.Store.DBPath == "" {
				return errors.InvalidInput("run history is disabled (set --db-path or AGENT_DB_PATH)")
			}
			runs, closeStore, err := a.openStore()
			if err != nil {
				return err
			}
			defer closeStore()

			var list []*model.Run
			if latest {
				run, err := runs.GetLatestRun(name)
				if err != nil {
					return err
				}
				if run != nil {
					list = append(list, run)
				}
			} else {
				list, err = runs.GetRuns(name, limit)
				if err != nil {
					return err
				}
			}

			p := printer{cmd.OutOrStdout()}
			if len(list) == 0 {
				p.line("No runs recorded.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tWORKFLOW\tSTATUS\tSTARTED\tDURATION\tOUTPUT")
			for _, r := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.Workflow, r.Status, r.StartTime.Local().Format(time.DateTime), r.Duration, summarize(r.Output, r.Error))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&name, "workflow", "", "only list runs of this workflow")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of runs to list (max 100)")
	cmd.Flags().BoolVar(&latest, "latest", false, "show only the most recent run")
	return cmd
}

// summarize returns a one-line excerpt of a run's output or error.
func summarize(output, errMsg string) string {
	text := output
	if errMsg != "" {
		text = "error: " + errMsg
	}
	runes := []rune(text)
	for i, r := range runes {
		if r == '\n' || r == '\t' {
			runes[i] = ' '
		}
	}
	if len(runes) > 60 {
		return string(runes[:57]) + "..."
	}
	return string(runes)
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the agent name and version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			printer{cmd.OutOrStdout()}.line("%s version %s", a.cfg.Agent.Name, a.cfg.Agent.Version)
			return nil
		},
	}
}
