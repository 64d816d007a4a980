// SPDX-License-Identifier: AGPL-3.0-only
package workflow

import (
	"fmt"

	"github.com/aegirops/formation-langgraph/internal/config"
	"github.com/aegirops/formation-langgraph/internal/errors"
	"github.com/aegirops/formation-langgraph/internal/llm"
	"github.com/aegirops/formation-langgraph/internal/logging"
)

// Workflow names.
const (
	Hello    = "hello"
	Analysis = "analysis"
	Respond  = "respond"
)

// HelloPrompt seeds the hello workflow.
const HelloPrompt = "Say Hello!"

// Deps are the collaborators the nodes need.
type Deps struct {
	Config   *config.Config
	Provider llm.ChatProvider
	// Tools is offered by the notify node. Only the analysis workflow uses it.
	Tools  *llm.Registry
	Logger *logging.Logger
}

// Names lists the available workflows.
func Names() []string {
	return []string{Hello, Analysis, Respond}
}

// Build compiles the named workflow.
func Build(name string, deps Deps) (*Executable, error) {
	if deps.Provider == nil {
		return nil, fmt.Errorf("workflow %s: chat provider is required", name)
	}
	if deps.Config == nil {
		deps.Config = config.DefaultConfig()
	}
	if deps.Logger == nil {
		deps.Logger = logging.GetDefaultLogger()
	}

	switch name {
	case Hello:
		return NewGraph(Hello, deps.Logger).
			AddNode("llm", LLMNode(deps.Provider)).
			AddEdge(Start, "llm").
			AddEdge("llm", End).
			Compile()
	case Analysis:
		if deps.Tools == nil {
			return nil, fmt.Errorf("workflow %s: tool registry is required", name)
		}
		return NewGraph(Analysis, deps.Logger).
			AddNode("init", InitNode(deps.Config.Mock)).
			AddNode("analyze", AnalyzeNode(deps.Provider)).
			AddNode("notify", NotifyNode(deps.Provider, deps.Tools, deps.Logger)).
			AddEdge(Start, "init").
			AddEdge("init", "analyze").
			AddEdge("analyze", "notify").
			AddEdge("notify", End).
			Compile()
	case Respond:
		return NewGraph(Respond, deps.Logger).
			AddNode("init", InitNode(deps.Config.Mock)).
			AddNode("respond", RespondNode(deps.Provider)).
			AddEdge(Start, "init").
			AddEdge("init", "respond").
			AddEdge("respond", End).
			Compile()
	default:
		return nil, errors.NotFound("workflow", name)
	}
}

// InitialState returns the state a run of the named workflow starts from.
func InitialState(name string) State {
	if name == Hello {
		return NewState(llm.HumanMessage(HelloPrompt))
	}
	return NewState()
}
