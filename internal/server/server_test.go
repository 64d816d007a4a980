// SPDX-License-Identifier: AGPL-3.0-only
package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegirops/formation-langgraph/internal/agent"
	"github.com/aegirops/formation-langgraph/internal/config"
	"github.com/aegirops/formation-langgraph/internal/llm"
	"github.com/aegirops/formation-langgraph/internal/logging"
	"github.com/aegirops/formation-langgraph/internal/model"
	"github.com/aegirops/formation-langgraph/internal/notify"
	"github.com/aegirops/formation-langgraph/internal/store"
)

type helloProvider struct{}

func (helloProvider) CreateCompletion(context.Context, []llm.Message, []llm.ToolDefinition) (*llm.Message, error) {
	return &llm.Message{Role: llm.RoleAI, Content: "Hello!"}, nil
}

func validConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.LLM.Provider = config.ProviderVLLM
	cfg.LLM.Azure = nil
	cfg.LLM.VLLM = &config.VLLMConfig{Model: "qwen2.5", BaseURL: "http://localhost:8000/v1", APIKey: "token-0123456789"}
	return cfg
}

func quietLogger() *logging.Logger {
	return logging.New(logging.Options{Output: io.Discard, Level: logging.Error})
}

func newTestServer(t *testing.T, cfg *config.Config, runs model.RunStore) *MCPServer {
	t.Helper()
	logger := quietLogger()
	runner, err := agent.NewRunner(cfg, runs, logger, agent.WithProvider(helloProvider{}))
	require.NoError(t, err)
	s, err := NewMCPServer(cfg, runner, notify.NewPoster(cfg.Notify.TeamsWebhookURL, logger), runs, logger)
	require.NoError(t, err)
	return s
}

func call(args string) *mcp.CallToolRequest {
	return &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: json.RawMessage(args)}}
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok, "expected text content")
	return tc.Text
}

func TestNewMCPServerRejectsUnknownTransport(t *testing.T) {
	cfg := validConfig()
	cfg.Server.TransportMode = "websocket"
	_, err := NewMCPServer(cfg, nil, nil, nil, quietLogger())
	assert.EqualError(t, err, "invalid input: unsupported transport mode: websocket")
}

func TestToolDefinitions(t *testing.T) {
	s := newTestServer(t, validConfig(), nil)
	var names []string
	for _, def := range s.toolDefinitions() {
		names = append(names, def.Name)
		assert.NotNil(t, def.Handler, def.Name)
	}
	assert.Equal(t, []string{"run_workflow", "post_notification", "show_config", "validate_config", "list_runs"}, names)
}

func TestBuildSchema(t *testing.T) {
	schema := buildSchema(RunWorkflowParams{})
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"workflow"}, schema["required"])
	props := schema["properties"].(map[string]interface{})
	workflowProp := props["workflow"].(map[string]interface{})
	assert.Equal(t, "string", workflowProp["type"])
	assert.Equal(t, []string{"hello", "analysis", "respond"}, workflowProp["enum"])

	schema = buildSchema(&ListRunsParams{})
	assert.NotContains(t, schema, "required")
	props = schema["properties"].(map[string]interface{})
	assert.Equal(t, "integer", props["limit"].(map[string]interface{})["type"])

	assert.Empty(t, buildSchema(struct{}{})["properties"])
}

func TestHandleRunWorkflow(t *testing.T) {
	runs, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer runs.Close()
	s := newTestServer(t, validConfig(), runs)

	result, err := s.handleRunWorkflow(context.Background(), call(`{"workflow":"hello"}`))
	require.NoError(t, err)

	var view runView
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &view))
	assert.Equal(t, "hello", view.Run.Workflow)
	assert.Equal(t, model.StatusSuccess, view.Run.Status)
	assert.Equal(t, "Hello!", view.Run.Output)
	assert.Equal(t, []messageView{{"Human", "Say Hello!"}, {"AI", "Hello!"}}, view.Messages)

	listed, err := s.handleListRuns(context.Background(), call(`{"workflow":"hello"}`))
	require.NoError(t, err)
	var got []*model.Run
	require.NoError(t, json.Unmarshal([]byte(text(t, listed)), &got))
	require.Len(t, got, 1)
	assert.Equal(t, view.Run.ID, got[0].ID)
}

func TestHandleRunWorkflowErrors(t *testing.T) {
	s := newTestServer(t, validConfig(), nil)

	_, err := s.handleRunWorkflow(context.Background(), call(`{}`))
	assert.EqualError(t, err, "invalid input: workflow is required")

	_, err = s.handleRunWorkflow(context.Background(), call(`{"workflow":"deploy"}`))
	assert.EqualError(t, err, "workflow not found: deploy")

	_, err = s.handleRunWorkflow(context.Background(), call(`not json`))
	assert.ErrorContains(t, err, "invalid parameters")

	unconfigured := newTestServer(t, config.DefaultConfig(), nil)
	_, err = unconfigured.handleRunWorkflow(context.Background(), call(`{"workflow":"hello"}`))
	var verr *config.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestHandlePostNotification(t *testing.T) {
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer webhook.Close()

	cfg := validConfig()
	cfg.Notify.TeamsWebhookURL = webhook.URL
	s := newTestServer(t, cfg, nil)

	result, err := s.handlePostNotification(context.Background(), call(`{"message":"build is green"}`))
	require.NoError(t, err)
	assert.Equal(t, notify.StatusPosted, text(t, result))

	_, err = s.handlePostNotification(context.Background(), call(`{}`))
	assert.EqualError(t, err, "invalid input: message is required")
}

func TestHandlePostNotificationNotConfigured(t *testing.T) {
	s := newTestServer(t, validConfig(), nil)
	result, err := s.handlePostNotification(context.Background(), call(`{"message":"hi"}`))
	require.NoError(t, err)
	assert.Equal(t, notify.StatusNotConfigured, text(t, result))
}

func TestHandleShowConfigMasksSecrets(t *testing.T) {
	s := newTestServer(t, validConfig(), nil)
	result, err := s.handleShowConfig(context.Background(), call(``))
	require.NoError(t, err)

	out := text(t, result)
	assert.NotContains(t, out, "token-0123456789")
	assert.Contains(t, out, "toke...6789")
	assert.Contains(t, out, "qwen2.5")
}

func TestHandleValidateConfig(t *testing.T) {
	s := newTestServer(t, validConfig(), nil)
	result, err := s.handleValidateConfig(context.Background(), call(``))
	require.NoError(t, err)
	var view validationView
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &view))
	assert.True(t, view.Valid)
	assert.Equal(t, "vLLM", view.Provider)
	assert.Equal(t, "qwen2.5", view.Model)

	s = newTestServer(t, config.DefaultConfig(), nil)
	result, err = s.handleValidateConfig(context.Background(), call(``))
	require.NoError(t, err)
	view = validationView{}
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &view))
	assert.False(t, view.Valid)
	assert.Equal(t, []string{"llm.api_key", "llm.azure_endpoint", "llm.api_version", "llm.deployment_name"}, view.Missing)
}

func TestHandleListRunsWithoutStore(t *testing.T) {
	s := newTestServer(t, validConfig(), nil)
	_, err := s.handleListRuns(context.Background(), call(`{}`))
	assert.ErrorContains(t, err, "run history unavailable")
}

func TestHandlerServesMetrics(t *testing.T) {
	s := newTestServer(t, validConfig(), nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStopIsIdempotent(t *testing.T) {
	s := newTestServer(t, validConfig(), nil)
	assert.NoError(t, s.Stop())
	assert.NoError(t, s.Stop())
}

func TestNewLogger(t *testing.T) {
	cfg := validConfig()
	logger, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.NotNil(t, logger)

	cfg.Logging.FilePath = filepath.Join(t.TempDir(), "logs", "agent.log")
	cfg.Logging.Level = "debug"
	logger, err = NewLogger(cfg)
	require.NoError(t, err)
	assert.Equal(t, logging.Debug, logger.Level())
}

func TestStartAndStopSSE(t *testing.T) {
	cfg := validConfig()
	cfg.Server.TransportMode = TransportSSE
	cfg.Server.Address = "127.0.0.1"
	cfg.Server.Port = 0
	s := newTestServer(t, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Stop())

	select {
	case <-s.Done():
	default:
		t.Fatal("expected Done to be closed after Stop")
	}
}
