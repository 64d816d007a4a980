// SPDX-License-Identifier: AGPL-3.0-only

// Package workflow runs small linear agent graphs. A graph is a chain of
// named nodes between the Start and End markers; every node reads the
// current State and returns a Patch that is merged before the next node runs.
package workflow

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/aegirops/formation-langgraph/internal/logging"
	"github.com/aegirops/formation-langgraph/internal/metrics"
)

const (
	// Start is the entry marker of a graph.
	Start = "__start__"
	// End is the exit marker of a graph.
	End = "__end__"
)

// NodeFunc is one step of a workflow.
type NodeFunc func(ctx context.Context, s State) (Patch, error)

// Graph collects nodes and edges until Compile validates them.
type Graph struct {
	name   string
	order  []string
	nodes  map[string]NodeFunc
	edges  map[string]string
	errs   []error
	logger *logging.Logger
}

// NewGraph creates an empty graph. A nil logger uses the default logger.
func NewGraph(name string, logger *logging.Logger) *Graph {
	if logger == nil {
		logger = logging.GetDefaultLogger()
	}
	return &Graph{
		name:   name,
		nodes:  make(map[string]NodeFunc),
		edges:  make(map[string]string),
		logger: logger,
	}
}

// AddNode registers a node. Errors are reported by Compile.
func (g *Graph) AddNode(name string, fn NodeFunc) *Graph {
	switch {
	case name == "":
		g.errs = append(g.errs, fmt.Errorf("node name is required"))
	case name == Start || name == End:
		g.errs = append(g.errs, fmt.Errorf("node name %q is reserved", name))
	case fn == nil:
		g.errs = append(g.errs, fmt.Errorf("node %s: function is required", name))
	default:
		if _, exists := g.nodes[name]; exists {
			g.errs = append(g.errs, fmt.Errorf("duplicate node %s", name))
			return g
		}
		g.order = append(g.order, name)
		g.nodes[name] = fn
	}
	return g
}

// AddEdge connects from to to. A node may have a single outgoing edge.
func (g *Graph) AddEdge(from, to string) *Graph {
	switch {
	case from == End:
		g.errs = append(g.errs, fmt.Errorf("edge cannot leave %s", End))
	case to == Start:
		g.errs = append(g.errs, fmt.Errorf("edge cannot enter %s", Start))
	default:
		if prev, exists := g.edges[from]; exists {
			g.errs = append(g.errs, fmt.Errorf("node %s already has an edge to %s", from, prev))
			return g
		}
		g.edges[from] = to
	}
	return g
}

// Compile validates the graph and returns its executable form.
func (g *Graph) Compile() (*Executable, error) {
	if len(g.errs) > 0 {
		return nil, fmt.Errorf("graph %s: %w", g.name, stderrors.Join(g.errs...))
	}
	for from, to := range g.edges {
		if from != Start {
			if _, ok := g.nodes[from]; !ok {
				return nil, fmt.Errorf("graph %s: edge from unknown node %s", g.name, from)
			}
		}
		if to != End {
			if _, ok := g.nodes[to]; !ok {
				return nil, fmt.Errorf("graph %s: edge to unknown node %s", g.name, to)
			}
		}
	}
	if _, ok := g.edges[Start]; !ok {
		return nil, fmt.Errorf("graph %s: no edge from %s", g.name, Start)
	}

	var steps []step
	visited := make(map[string]bool)
	for cur := g.edges[Start]; cur != End; {
		if visited[cur] {
			return nil, fmt.Errorf("graph %s: cycle at node %s", g.name, cur)
		}
		visited[cur] = true
		steps = append(steps, step{name: cur, fn: g.nodes[cur]})

		next, ok := g.edges[cur]
		if !ok {
			return nil, fmt.Errorf("graph %s: node %s does not reach %s", g.name, cur, End)
		}
		cur = next
	}

	for _, name := range g.order {
		if !visited[name] {
			return nil, fmt.Errorf("graph %s: node %s is unreachable", g.name, name)
		}
	}

	return &Executable{name: g.name, steps: steps, logger: g.logger}, nil
}

type step struct {
	name string
	fn   NodeFunc
}

// Executable is a compiled graph. It holds no run state and can be invoked
// concurrently.
type Executable struct {
	name   string
	steps  []step
	logger *logging.Logger
}

// Name returns the graph name.
func (e *Executable) Name() string { return e.name }

// Nodes returns the node names in execution order.
func (e *Executable) Nodes() []string {
	out := make([]string, len(e.steps))
	for i, s := range e.steps {
		out[i] = s.name
	}
	return out
}

// Invoke runs every node in order starting from initial. The first node
// error aborts the run and no partial state is returned.
func (e *Executable) Invoke(ctx context.Context, initial State) (State, error) {
	state := Merge(initial, Patch{})
	for _, s := range e.steps {
		if err := ctx.Err(); err != nil {
			return State{}, fmt.Errorf("workflow %s: %w", e.name, err)
		}

		e.logger.Debugf("Workflow %s: running node %s", e.name, s.name)
		start := time.Now()
		patch, err := s.fn(ctx, state)
		metrics.NodeDuration.WithLabelValues(e.name, s.name).Observe(time.Since(start).Seconds())
		if err != nil {
			e.logger.Errorf("Workflow %s: node %s failed: %v", e.name, s.name, err)
			return State{}, fmt.Errorf("workflow %s: node %s: %w", e.name, s.name, err)
		}
		state = Merge(state, patch)
	}
	return state, nil
}
