// SPDX-License-Identifier: AGPL-3.0-only
package workflow

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/aegirops/formation-langgraph/internal/llm"
	"github.com/aegirops/formation-langgraph/internal/logging"
)

type request struct {
	messages []llm.Message
	tools    []llm.ToolDefinition
}

// fakeProvider replays scripted replies and records every request.
type fakeProvider struct {
	mu       sync.Mutex
	replies  []llm.Message
	err      error
	requests []request
}

func (f *fakeProvider) CreateCompletion(_ context.Context, messages []llm.Message, tools []llm.ToolDefinition) (*llm.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, request{
		messages: append([]llm.Message(nil), messages...),
		tools:    append([]llm.ToolDefinition(nil), tools...),
	})
	if f.err != nil {
		return nil, f.err
	}
	if len(f.replies) == 0 {
		return nil, fmt.Errorf("no scripted reply left")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return &reply, nil
}

func aiReply(content string, calls ...llm.ToolCall) llm.Message {
	return llm.Message{Role: llm.RoleAI, Content: content, ToolCalls: calls}
}

func testLogger() *logging.Logger {
	return logging.New(logging.Options{Output: &bytes.Buffer{}, Level: logging.Debug})
}
