// SPDX-License-Identifier: AGPL-3.0-only

// Package agent runs named workflows end to end: it builds the chat
// provider and tools from configuration, invokes the graph and records the
// run.
package agent

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/aegirops/formation-langgraph/internal/config"
	"github.com/aegirops/formation-langgraph/internal/errors"
	"github.com/aegirops/formation-langgraph/internal/llm"
	"github.com/aegirops/formation-langgraph/internal/logging"
	"github.com/aegirops/formation-langgraph/internal/metrics"
	"github.com/aegirops/formation-langgraph/internal/model"
	"github.com/aegirops/formation-langgraph/internal/notify"
	"github.com/aegirops/formation-langgraph/internal/workflow"
)

// Outcome is the result of a finished run.
type Outcome struct {
	Run   *model.Run
	State workflow.State
}

// Runner executes workflows.
type Runner struct {
	config   *config.Config
	store    model.RunStore
	logger   *logging.Logger
	provider llm.ChatProvider
	tools    *llm.Registry
	timeout  time.Duration
}

// Option customizes a Runner.
type Option func(*Runner)

// WithProvider replaces the provider built from configuration.
func WithProvider(p llm.ChatProvider) Option {
	return func(r *Runner) { r.provider = p }
}

// WithTools replaces the default tool registry.
func WithTools(tools *llm.Registry) Option {
	return func(r *Runner) { r.tools = tools }
}

// WithTimeout bounds every run. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// NewRunner creates a runner. store may be nil. Unless WithTools is given the
// runner offers the Teams notification tool configured in cfg.
func NewRunner(cfg *config.Config, store model.RunStore, logger *logging.Logger, opts ...Option) (*Runner, error) {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	r := &Runner{config: cfg, store: store, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	if r.tools == nil {
		r.tools = llm.NewRegistry()
		poster := notify.NewPoster(cfg.Notify.TeamsWebhookURL, logger)
		if err := poster.Register(r.tools); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Tools returns the registry offered to the model.
func (r *Runner) Tools() *llm.Registry {
	return r.tools
}

// Run executes the named workflow and records it. A run that fails still
// returns its Outcome alongside the error.
func (r *Runner) Run(ctx context.Context, name string) (*Outcome, error) {
	if !slices.Contains(workflow.Names(), name) {
		return nil, errors.NotFound("workflow", name)
	}

	logger := r.logger.WithField("workflow", name)
	run := &model.Run{
		ID:        uuid.NewString(),
		Workflow:  name,
		StartTime: time.Now(),
	}
	logger.Infof("Starting run %s", run.ID)

	state, err := r.invoke(ctx, name)
	r.finish(run, state, err, logger)
	return &Outcome{Run: run, State: state}, err
}

func (r *Runner) invoke(ctx context.Context, name string) (workflow.State, error) {
	provider := r.provider
	if provider == nil {
		p, err := llm.NewChatProvider(r.config.LLM)
		if err != nil {
			return workflow.State{}, err
		}
		provider = p
	}

	exe, err := workflow.Build(name, workflow.Deps{
		Config:   r.config,
		Provider: provider,
		Tools:    r.tools,
		Logger:   r.logger,
	})
	if err != nil {
		return workflow.State{}, errors.Internal(err)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return exe.Invoke(ctx, workflow.InitialState(name))
}

func (r *Runner) finish(run *model.Run, state workflow.State, err error, logger *logging.Logger) {
	run.EndTime = time.Now()
	run.Duration = run.EndTime.Sub(run.StartTime).String()
	run.Output = state.Output
	run.NotificationStatus = state.NotificationStatus
	run.MessageCount = len(state.Messages)

	if err != nil {
		run.Status = model.StatusFailure
		run.Error = err.Error()
		run.ExitCode = 1
		logger.Errorf("Run %s failed after %s: %v", run.ID, run.Duration, err)
	} else {
		run.Status = model.StatusSuccess
		logger.Infof("Run %s finished in %s", run.ID, run.Duration)
	}

	metrics.WorkflowRuns.WithLabelValues(run.Workflow, run.Status).Inc()
	model.PersistAndLogRun(r.store, run, logger)
}

// Execute runs the named workflow bounded by timeout. It lets the scheduler
// drive the runner.
func (r *Runner) Execute(ctx context.Context, name string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	_, err := r.Run(ctx, name)
	return err
}
