// SPDX-License-Identifier: AGPL-3.0-only
package llm

import (
	"context"
	"fmt"
	"sync"
)

// ToolHandler executes a tool call. args is the raw JSON argument string the
// model produced.
type ToolHandler func(ctx context.Context, args string) (string, error)

// Registry maps tool names to their definition and handler.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	defs     map[string]ToolDefinition
	handlers map[string]ToolHandler
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		defs:     make(map[string]ToolDefinition),
		handlers: make(map[string]ToolHandler),
	}
}

// Register adds a tool. Registering the same name twice is an error.
func (r *Registry) Register(def ToolDefinition, handler ToolHandler) error {
	if def.Name == "" {
		return fmt.Errorf("tool name is required")
	}
	if handler == nil {
		return fmt.Errorf("tool %s: handler is required", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("tool %s already registered", def.Name)
	}
	r.order = append(r.order, def.Name)
	r.defs[def.Name] = def
	r.handlers[def.Name] = handler
	return nil
}

// Definitions returns the registered tools in registration order.
func (r *Registry) Definitions() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.defs[name])
	}
	return out
}

// Has reports whether a tool named name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// Dispatch runs the handler registered for call.Name.
func (r *Registry) Dispatch(ctx context.Context, call ToolCall) (string, error) {
	r.mu.RLock()
	handler, ok := r.handlers[call.Name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown tool: %s", call.Name)
	}
	return handler(ctx, call.Arguments)
}

// DispatchAll runs every call sequentially in order and returns one tool
// message per call. Handler errors become "ERROR: ..." results so the
// conversation stays well-formed.
func (r *Registry) DispatchAll(ctx context.Context, calls []ToolCall) []Message {
	out := make([]Message, 0, len(calls))
	for _, call := range calls {
		result, err := r.Dispatch(ctx, call)
		if err != nil {
			result = "ERROR: " + err.Error()
		}
		out = append(out, ToolMessage(call.ID, result))
	}
	return out
}
