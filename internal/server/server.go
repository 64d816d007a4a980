// SPDX-License-Identifier: AGPL-3.0-only

// Package server exposes the agent over the Model Context Protocol.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aegirops/formation-langgraph/internal/agent"
	"github.com/aegirops/formation-langgraph/internal/config"
	"github.com/aegirops/formation-langgraph/internal/errors"
	"github.com/aegirops/formation-langgraph/internal/logging"
	"github.com/aegirops/formation-langgraph/internal/metrics"
	"github.com/aegirops/formation-langgraph/internal/model"
	"github.com/aegirops/formation-langgraph/internal/notify"
)

// Transport modes.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

const defaultRunsLimit = 10

// MCPServer serves the agent tools over stdio or SSE.
type MCPServer struct {
	config     *config.Config
	runner     *agent.Runner
	poster     *notify.Poster
	runs       model.RunStore
	server     *mcp.Server
	httpServer *http.Server
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	done       chan struct{}
	logger     *logging.Logger

	shutdownMutex  sync.Mutex
	isShuttingDown bool
}

// NewLogger picks the process logger for serving. stdio mode must keep
// stdout free for JSON-RPC, so it logs to stderr unless a file is set.
func NewLogger(cfg *config.Config) (*logging.Logger, error) {
	level := logging.ParseLevel(cfg.Logging.Level)
	if cfg.Logging.FilePath != "" {
		logger, err := logging.FileLogger(cfg.Logging.FilePath, level)
		if err != nil {
			return nil, fmt.Errorf("failed to create file logger: %w", err)
		}
		return logger, nil
	}
	if cfg.Server.TransportMode == TransportStdio {
		return logging.New(logging.Options{Output: os.Stderr, Level: level}), nil
	}
	return logging.New(logging.Options{Level: level}), nil
}

// NewMCPServer creates the server. runs may be nil when run history is off.
func NewMCPServer(cfg *config.Config, runner *agent.Runner, poster *notify.Poster, runs model.RunStore, logger *logging.Logger) (*MCPServer, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}

	switch cfg.Server.TransportMode {
	case TransportStdio:
		logger.Infof("Using stdio transport")
	case TransportSSE:
		logger.Infof("Using SSE transport on %s:%d", cfg.Server.Address, cfg.Server.Port)
	default:
		return nil, errors.InvalidInput(fmt.Sprintf("unsupported transport mode: %s", cfg.Server.TransportMode))
	}

	s := &MCPServer{
		config: cfg,
		runner: runner,
		poster: poster,
		runs:   runs,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    cfg.Agent.Name,
			Version: cfg.Agent.Version,
		}, nil),
		logger: logger,
		done:   make(chan struct{}),
	}
	s.registerTools()
	return s, nil
}

// Handler returns the HTTP handler used in SSE mode: the MCP endpoint at
// the root and Prometheus metrics at /metrics.
func (s *MCPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", mcp.NewSSEHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil))
	return mux
}

// Start serves in the background until ctx is done or Stop is called.
func (s *MCPServer) Start(ctx context.Context) error {
	switch s.config.Server.TransportMode {
	case TransportStdio:
		runCtx, cancel := context.WithCancel(ctx)
		s.cancel = cancel
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer close(s.done)
			if err := s.server.Run(runCtx, &mcp.StdioTransport{}); err != nil && runCtx.Err() == nil {
				s.logger.Errorf("Error running MCP server: %v", err)
			}
		}()
	case TransportSSE:
		addr := fmt.Sprintf("%s:%d", s.config.Server.Address, s.config.Server.Port)
		s.httpServer = &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer close(s.done)
			if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Errorf("Error running MCP server: %v", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		if err := s.Stop(); err != nil {
			s.logger.Errorf("Error stopping MCP server: %v", err)
		}
	}()
	return nil
}

// Done is closed once the transport stops serving, for instance when the
// stdio client closes its end.
func (s *MCPServer) Done() <-chan struct{} {
	return s.done
}

// Stop shuts the server down. Calling it twice is a no-op.
func (s *MCPServer) Stop() error {
	s.shutdownMutex.Lock()
	defer s.shutdownMutex.Unlock()

	if s.isShuttingDown {
		s.logger.Debugf("Stop called but server is already shutting down, ignoring")
		return nil
	}
	s.isShuttingDown = true

	if s.cancel != nil {
		s.cancel()
	}
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return errors.Internal(fmt.Errorf("error shutting down MCP server: %w", err))
		}
	}

	s.wg.Wait()
	return nil
}

type messageView struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type runView struct {
	Run      *model.Run    `json:"run"`
	Messages []messageView `json:"messages"`
}

// handleRunWorkflow runs a workflow synchronously.
func (s *MCPServer) handleRunWorkflow(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params RunWorkflowParams
	if err := extractParams(request, &params); err != nil {
		return createErrorResponse(err)
	}
	if params.Workflow == "" {
		return createErrorResponse(errors.InvalidInput("workflow is required"))
	}
	if err := s.config.Validate(); err != nil {
		return createErrorResponse(err)
	}

	s.logger.Debugf("Handling run_workflow request for %s", params.Workflow)
	outcome, err := s.runner.Run(ctx, params.Workflow)
	if err != nil {
		return createErrorResponse(err)
	}

	view := runView{Run: outcome.Run, Messages: make([]messageView, 0, len(outcome.State.Messages))}
	for _, m := range outcome.State.Messages {
		view.Messages = append(view.Messages, messageView{Role: m.Role.Label(), Content: m.Content})
	}
	return jsonResponse(view)
}

// handlePostNotification posts a message to Teams. Delivery failures are
// reported in the status text, not as errors.
func (s *MCPServer) handlePostNotification(ctx context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params PostNotificationParams
	if err := extractParams(request, &params); err != nil {
		return createErrorResponse(err)
	}
	if params.Message == "" {
		return createErrorResponse(errors.InvalidInput("message is required"))
	}

	s.logger.Debugf("Handling post_notification request")
	return textResponse(s.poster.Post(ctx, params.Message)), nil
}

func (s *MCPServer) handleShowConfig(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return textResponse(s.config.String()), nil
}

type validationView struct {
	Valid    bool     `json:"valid"`
	Provider string   `json:"provider"`
	Model    string   `json:"model"`
	Missing  []string `json:"missing,omitempty"`
}

func (s *MCPServer) handleValidateConfig(_ context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	view := validationView{
		Valid:    true,
		Provider: s.config.LLM.Provider.DisplayName(),
		Model:    s.config.LLM.Model(),
	}
	if err := s.config.Validate(); err != nil {
		var verr *config.ValidationError
		if !stderrors.As(err, &verr) {
			return createErrorResponse(err)
		}
		view.Valid = false
		view.Missing = verr.Missing
	}
	return jsonResponse(view)
}

func (s *MCPServer) handleListRuns(_ context.Context, request *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params ListRunsParams
	if err := extractParams(request, &params); err != nil {
		return createErrorResponse(err)
	}
	if s.runs == nil {
		return createErrorResponse(errors.Unavailable("run history", fmt.Errorf("AGENT_DB_PATH is not set")))
	}

	limit := params.Limit
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	runs, err := s.runs.GetRuns(params.Workflow, limit)
	if err != nil {
		return createErrorResponse(errors.Internal(fmt.Errorf("failed to get runs: %w", err)))
	}
	if runs == nil {
		runs = []*model.Run{}
	}
	return jsonResponse(runs)
}
