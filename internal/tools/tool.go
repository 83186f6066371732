// Package tools holds the analysis tools the agent can dispatch.
package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/spec-kit/ticket-advisor/internal/domain"
)

// Tool is one analysis capability. Execute returns exactly one populated
// observation variant or an error.
type Tool interface {
	Name() domain.ToolName
	Description() string
	Execute(ctx context.Context, input domain.ActionInput) (domain.Observation, error)
}

// Registry maps tool names to implementations and remembers registration order.
type Registry struct {
	mu    sync.RWMutex
	tools map[domain.ToolName]Tool
	order []domain.ToolName
}

// NewRegistry registers tools in the given order.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[domain.ToolName]Tool, len(tools))}
	for _, tool := range tools {
		if err := r.Register(tool); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool. Duplicate names return an error.
func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}
	r.tools[name] = tool
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name domain.ToolName) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []domain.ToolName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.ToolName(nil), r.order...)
}

// Tools returns the registered tools in order.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Len is the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
