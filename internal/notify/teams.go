// SPDX-License-Identifier: AGPL-3.0-only

// Package notify posts agent results to a Microsoft Teams incoming webhook.
// Every outcome is reported as a status string; Post never fails.
package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/valyala/fasthttp"

	"github.com/aegirops/formation-langgraph/internal/errors"
	"github.com/aegirops/formation-langgraph/internal/llm"
	"github.com/aegirops/formation-langgraph/internal/logging"
	"github.com/aegirops/formation-langgraph/internal/metrics"
)

// ToolName is the name the model uses to request a Teams post.
const ToolName = "post_to_teams"

const (
	// StatusNotConfigured is returned without any request when no webhook
	// URL is configured.
	StatusNotConfigured = "Error: TEAMS_WEBHOOK_URL not configured in environment variables"
	// StatusPosted is returned when the webhook answered 200.
	StatusPosted = "Successfully posted message to Teams"
)

// Poster posts messages to a Teams webhook.
type Poster struct {
	url    string
	client *fasthttp.Client
	logger *logging.Logger
}

// NewPoster creates a Poster for webhookURL. An empty URL is allowed; Post
// then reports StatusNotConfigured.
func NewPoster(webhookURL string, logger *logging.Logger) *Poster {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	return &Poster{
		url:    webhookURL,
		client: &fasthttp.Client{Name: "simple-agent"},
		logger: logger,
	}
}

// Post sends message as an adaptive card and describes the outcome.
func (p *Poster) Post(ctx context.Context, message string) string {
	if p.url == "" {
		metrics.Notifications.WithLabelValues("not_configured").Inc()
		return StatusNotConfigured
	}

	body, err := json.Marshal(NewCard(message))
	if err != nil {
		metrics.Notifications.WithLabelValues("error").Inc()
		return fmt.Sprintf("Error posting to Teams: %v", err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(p.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(body)

	if err := p.do(ctx, req, resp); err != nil {
		p.logger.Warnf("Teams webhook request failed: %v", err)
		metrics.Notifications.WithLabelValues("error").Inc()
		return fmt.Sprintf("Error posting to Teams: %v", err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		p.logger.Warnf("Teams webhook returned status %d", resp.StatusCode())
		metrics.Notifications.WithLabelValues("failed").Inc()
		return fmt.Sprintf("Failed to post to Teams. Status code: %d, Response: %s", resp.StatusCode(), resp.Body())
	}

	metrics.Notifications.WithLabelValues("posted").Inc()
	return StatusPosted
}

func (p *Poster) do(ctx context.Context, req *fasthttp.Request, resp *fasthttp.Response) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		return p.client.DoDeadline(req, resp, deadline)
	}
	return p.client.Do(req, resp)
}

// PostParams are the arguments of the post_to_teams tool.
type PostParams struct {
	Message string `json:"message"`
}

// Definition describes the post_to_teams tool to the model.
func Definition() llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        ToolName,
		Description: "Post a message to the team's Microsoft Teams channel. Use it to share the log analysis summary.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"message": map[string]interface{}{
					"type":        "string",
					"description": "The message text to post",
				},
			},
			"required": []string{"message"},
		},
	}
}

// Handle is the tool handler: it decodes the arguments and posts.
func (p *Poster) Handle(ctx context.Context, args string) (string, error) {
	var params PostParams
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return "", errors.InvalidInput(fmt.Sprintf("invalid %s arguments: %v", ToolName, err))
	}
	return p.Post(ctx, params.Message), nil
}

// Register adds the post_to_teams tool to r.
func (p *Poster) Register(r *llm.Registry) error {
	return r.Register(Definition(), p.Handle)
}
