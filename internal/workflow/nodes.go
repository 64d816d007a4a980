// SPDX-License-Identifier: AGPL-3.0-only
package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/aegirops/formation-langgraph/internal/config"
	"github.com/aegirops/formation-langgraph/internal/llm"
	"github.com/aegirops/formation-langgraph/internal/logging"
)

// NoNotificationStatus is recorded when the model called no registered tool.
const NoNotificationStatus = "no notification sent"

// Example payloads used by the init node when no mock data is configured.
var (
	DefaultTest = TestInfo{
		Name: "test_user_login",
		Log: `FAILED tests/test_auth.py::test_user_login - AssertionError: expected status 200, got 401
    def test_user_login(client):
        resp = client.post("/login", json={"user": "alice", "password": "secret"})
>       assert resp.status_code == 200
E       assert 401 == 200`,
	}
	DefaultFile = FileInfo{
		Name: "src/auth/login.py",
		Content: `def login(user, password):
    account = find_account(user)
    if account is None or not account.check_password(password.strip()):
        raise Unauthorized()
    return issue_token(account)`,
	}
)

// InitNode loads the test and file under analysis from the mock
// configuration, or the example defaults when it is empty.
func InitNode(mock config.MockConfig) NodeFunc {
	return func(ctx context.Context, s State) (Patch, error) {
		test := DefaultTest
		if len(mock.Test) > 0 {
			test = TestInfo{Name: mockField(mock.Test, "name"), Log: mockField(mock.Test, "log")}
		}
		file := DefaultFile
		if len(mock.File) > 0 {
			file = FileInfo{Name: mockField(mock.File, "name"), Content: mockField(mock.File, "content")}
		}
		return Patch{}.WithTest(test).WithFile(file), nil
	}
}

func mockField(m map[string]interface{}, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// LLMNode submits the conversation and appends the reply.
func LLMNode(provider llm.ChatProvider) NodeFunc {
	return func(ctx context.Context, s State) (Patch, error) {
		reply, err := provider.CreateCompletion(ctx, s.Messages, nil)
		if err != nil {
			return Patch{}, err
		}
		return Patch{}.
			WithMessages(append(cloneMessages(s.Messages), *reply)).
			WithOutput(reply.Content), nil
	}
}

// AnalyzeNode asks the model for a root cause analysis of the failing test.
// The prompt is sent alongside the history but not kept in it.
func AnalyzeNode(provider llm.ChatProvider) NodeFunc {
	return func(ctx context.Context, s State) (Patch, error) {
		request := append(cloneMessages(s.Messages), llm.HumanMessage(analysisPrompt(s)))
		reply, err := provider.CreateCompletion(ctx, request, nil)
		if err != nil {
			return Patch{}, err
		}
		return Patch{}.
			WithMessages(append(cloneMessages(s.Messages), *reply)).
			WithOutput(reply.Content).
			WithLogAnalysis(reply.Content), nil
	}
}

// RespondNode adds the test context to the conversation and asks the model
// for a reply.
func RespondNode(provider llm.ChatProvider) NodeFunc {
	return func(ctx context.Context, s State) (Patch, error) {
		history := append(cloneMessages(s.Messages), llm.HumanMessage(respondPrompt(s)))
		reply, err := provider.CreateCompletion(ctx, history, nil)
		if err != nil {
			return Patch{}, err
		}
		return Patch{}.
			WithMessages(append(history, *reply)).
			WithOutput(reply.Content), nil
	}
}

// NotifyNode offers the registered tools to the model together with the
// analysis and dispatches every requested call in order. The last result of
// a registered tool becomes the notification status.
func NotifyNode(provider llm.ChatProvider, tools *llm.Registry, logger *logging.Logger) NodeFunc {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	return func(ctx context.Context, s State) (Patch, error) {
		request := append(cloneMessages(s.Messages), llm.HumanMessage(notifyPrompt(s)))
		reply, err := provider.CreateCompletion(ctx, request, tools.Definitions())
		if err != nil {
			return Patch{}, err
		}

		history := append(cloneMessages(s.Messages), *reply)
		status := NoNotificationStatus
		if len(reply.ToolCalls) > 0 {
			results := tools.DispatchAll(ctx, reply.ToolCalls)
			history = append(history, results...)
			// unknown tools still get a tool message but never set the status
			for i, call := range reply.ToolCalls {
				if tools.Has(call.Name) {
					status = results[i].Content
				} else {
					logger.Warnf("Model requested unknown tool %q", call.Name)
				}
			}
			logger.Infof("Notification: %s", status)
		} else {
			logger.Warnf("Model requested no notification")
		}
		return Patch{}.
			WithMessages(history).
			WithNotificationStatus(status), nil
	}
}

func analysisPrompt(s State) string {
	var b strings.Builder
	b.WriteString("You are a CI assistant. Analyze the failing test below. ")
	b.WriteString("Explain the most likely root cause and suggest a fix.\n\n")
	writeContext(&b, s)
	return b.String()
}

func respondPrompt(s State) string {
	var b strings.Builder
	writeContext(&b, s)
	b.WriteString("\nReply with a short summary of the failure for the developer.")
	return b.String()
}

func notifyPrompt(s State) string {
	return fmt.Sprintf("Here is the analysis of a failing test:\n\n%s\n\n"+
		"Post a concise summary of this analysis to the team's Microsoft Teams channel using the post_to_teams tool.",
		s.LogAnalysis)
}

func writeContext(b *strings.Builder, s State) {
	if s.Test != nil {
		fmt.Fprintf(b, "Test: %s\nLog:\n%s\n", s.Test.Name, s.Test.Log)
	} else {
		b.WriteString("Test: (none)\n")
	}
	if s.File != nil {
		fmt.Fprintf(b, "\nFile: %s\n%s\n", s.File.Name, s.File.Content)
	} else {
		b.WriteString("\nFile: (none)\n")
	}
}
