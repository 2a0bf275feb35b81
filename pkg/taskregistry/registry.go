// Package taskregistry maps canonical task names to handler closures over
// the orchestrator and specialist services, so an external transport layer
// (HTTP, MCP, a queue consumer) only ever has to speak transport.Request /
// transport.Response.
package taskregistry

import (
	"context"
	"fmt"
	"sort"

	"github.com/Mindburn-Labs/pa-orchestrator/core/pkg/transport"
)

// Handler executes one operation given its request envelope.
type Handler func(ctx context.Context, req transport.Request) transport.Response

// Registry dispatches a request to the handler registered under its
// task_name. Unknown task names never panic; they come back as a FAILED
// response listing every supported task name.
type Registry struct {
	agentID  string
	handlers map[string]Handler
}

// New creates an empty Registry. agentID stamps every response it produces.
func New(agentID string) *Registry {
	return &Registry{agentID: agentID, handlers: make(map[string]Handler)}
}

// Register binds name to handler, overwriting any prior binding.
func (r *Registry) Register(name string, handler Handler) {
	r.handlers[name] = handler
}

// SupportedTasks returns every registered task name, sorted.
func (r *Registry) SupportedTasks() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dispatch looks up req.TaskName and invokes its handler, or returns a
// FAILED response naming every supported task when there is no match.
func (r *Registry) Dispatch(ctx context.Context, req transport.Request) transport.Response {
	handler, ok := r.handlers[req.TaskName]
	if !ok {
		return transport.Response{
			Status:       transport.StatusFailed,
			AgentID:      r.agentID,
			ErrorMessage: fmt.Sprintf("unknown task_name %q; supported tasks: %v", req.TaskName, r.SupportedTasks()),
		}
	}
	resp := handler(ctx, req)
	resp.AgentID = r.agentID
	return resp
}
