// SPDX-License-Identifier: AGPL-3.0-only
package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegirops/formation-langgraph/internal/llm"
	"github.com/aegirops/formation-langgraph/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(logging.Options{Output: io.Discard, Level: logging.Fatal})
}

type recorder struct {
	mu    sync.Mutex
	calls int
	card  Card
}

func (r *recorder) snapshot() (int, Card) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls, r.card
}

func webhook(t *testing.T, status int, body string) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.calls++
		_ = json.Unmarshal(raw, &rec.card)
		rec.mu.Unlock()
		if r.Method != http.MethodPost || r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func TestPostNotConfigured(t *testing.T) {
	p := NewPoster("", testLogger())

	status := p.Post(context.Background(), "hello")

	assert.Equal(t, "Error: TEAMS_WEBHOOK_URL not configured in environment variables", status)
}

func TestPostSuccess(t *testing.T) {
	srv, rec := webhook(t, http.StatusOK, "1")
	p := NewPoster(srv.URL, testLogger())

	status := p.Post(context.Background(), "Build 42 failed: flaky login test")

	assert.Equal(t, StatusPosted, status)
	calls, received := rec.snapshot()
	assert.Equal(t, 1, calls)
	require.Len(t, received.Attachments, 1)
	assert.Equal(t, "message", received.Type)
	assert.Equal(t, "application/vnd.microsoft.card.adaptive", received.Attachments[0].ContentType)
	assert.Equal(t, "AdaptiveCard", received.Attachments[0].Content.Type)
	require.Len(t, received.Attachments[0].Content.Body, 1)
	assert.Equal(t, "Build 42 failed: flaky login test", received.Attachments[0].Content.Body[0].Text)
	assert.True(t, received.Attachments[0].Content.Body[0].Wrap)
}

func TestPostServerError(t *testing.T) {
	srv, _ := webhook(t, http.StatusInternalServerError, "internal failure")
	p := NewPoster(srv.URL, testLogger())

	status := p.Post(context.Background(), "hello")

	assert.Contains(t, status, "Failed to post to Teams")
	assert.Contains(t, status, "500")
	assert.Contains(t, status, "internal failure")
}

func TestPostNonOKSuccessCodeIsFailure(t *testing.T) {
	srv, _ := webhook(t, http.StatusAccepted, "")
	p := NewPoster(srv.URL, testLogger())

	status := p.Post(context.Background(), "hello")

	assert.Contains(t, status, "Failed to post to Teams")
	assert.Contains(t, status, "202")
}

func TestPostTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	p := NewPoster(url, testLogger())

	status := p.Post(context.Background(), "hello")

	assert.Contains(t, status, "Error posting to Teams")
}

func TestPostCancelledContext(t *testing.T) {
	srv, rec := webhook(t, http.StatusOK, "")
	p := NewPoster(srv.URL, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	status := p.Post(ctx, "hello")

	assert.Contains(t, status, "Error posting to Teams")
	calls, _ := rec.snapshot()
	assert.Equal(t, 0, calls)
}

func TestToolRegistration(t *testing.T) {
	srv, rec := webhook(t, http.StatusOK, "")
	p := NewPoster(srv.URL, testLogger())
	r := llm.NewRegistry()
	require.NoError(t, p.Register(r))

	defs := r.Definitions()
	require.Len(t, defs, 1)
	assert.Equal(t, ToolName, defs[0].Name)

	out, err := r.Dispatch(context.Background(), llm.ToolCall{ID: "c1", Name: ToolName, Arguments: `{"message":"from tool"}`})
	require.NoError(t, err)
	assert.Equal(t, StatusPosted, out)
	_, received := rec.snapshot()
	require.Len(t, received.Attachments, 1)
	assert.Equal(t, "from tool", received.Attachments[0].Content.Body[0].Text)
}

func TestToolInvalidArguments(t *testing.T) {
	p := NewPoster("", testLogger())

	_, err := p.Handle(context.Background(), "not json")

	assert.Error(t, err)
}
