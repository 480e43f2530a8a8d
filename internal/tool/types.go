// Package tool defines the Tool interface and a Registry.
// Every capability the assistant has is expressed as a Tool.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/phoneme/workspace/internal/llm"
)

// Caller identifies the authenticated user on whose behalf a tool runs.
type Caller struct {
	ID    string
	Name  string
	Email string
	Role  string
}

// Call is a single tool invocation.
type Call struct {
	Caller Caller
	Input  json.RawMessage
}

// Args returns the invocation's arguments for loose reading.
func (c Call) Args() Args {
	return ParseArgs(c.Input)
}

// Tool is the interface all assistant tools must implement.
type Tool interface {
	// Schema returns the tool's name, description, and JSON Schema for inputs.
	Schema() llm.ToolSchema

	// Execute runs the tool. Domain failures the model can recover from are
	// returned as Fail results; a non-nil error aborts the conversation.
	Execute(ctx context.Context, call Call) (Result, error)
}

// Registry holds all registered tools and provides lookup.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
	order []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool to the registry. Panics on duplicate name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Schema().Name
	if _, exists := r.tools[name]; exists {
		panic(fmt.Sprintf("tool already registered: %s", name))
	}
	r.tools[name] = t
	r.order = append(r.order, name)
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Schemas returns all tool schemas in registration order (for passing to the LLM).
func (r *Registry) Schemas() []llm.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	schemas := make([]llm.ToolSchema, 0, len(r.order))
	for _, name := range r.order {
		schemas = append(schemas, r.tools[name].Schema())
	}
	return schemas
}

// Execute runs a tool by name. An unknown name yields a Fail result rather
// than an error so the model can correct itself.
func (r *Registry) Execute(ctx context.Context, name string, call Call) (Result, error) {
	t, ok := r.Get(name)
	if !ok {
		return Fail("Unknown tool: "+name).With("available_tools", r.Names()), nil
	}
	return t.Execute(ctx, call)
}

// MustSchema builds a json.RawMessage from a Go value (panics on error).
func MustSchema(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("MustSchema: %v", err))
	}
	return b
}
