// Package tools holds the named operations strategies can invoke. Tools are
// registered once at startup; lookups after that are read-only.
package tools

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
)

// Result is the uniform tool return. Tools never panic or return Go errors
// to strategy code; failures are carried in Error with Success=false.
type Result struct {
	Success bool        `json:"success"`
	Output  interface{} `json:"output,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Ok wraps a successful output.
func Ok(output interface{}) Result {
	return Result{Success: true, Output: output}
}

// Fail wraps an error message.
func Fail(format string, args ...interface{}) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Tool is one named, typed operation. Execute must represent all failures
// in the Result, never by panicking.
type Tool interface {
	Name() string
	Describe() string
	Execute(ctx context.Context, input map[string]interface{}) Result
}

// Registry is the process-wide tool registry.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger *log.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		logger: log.New(log.Writer(), "[TOOLS] ", log.LstdFlags),
	}
}

// Register adds a tool. Registering the same name twice is an error; the
// registry is meant to be populated once at startup.
func (r *Registry) Register(t Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t.Name() == "" {
		return fmt.Errorf("tool name is required")
	}
	if _, ok := r.tools[t.Name()]; ok {
		return fmt.Errorf("tool %q already registered", t.Name())
	}
	r.tools[t.Name()] = t
	r.logger.Printf("📦 Registered tool: %s", t.Name())
	return nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// ExecuteSafe runs the named tool, converting unknown names and panics into
// failed Results so a misbehaving tool cannot take down an investigation.
func (r *Registry) ExecuteSafe(ctx context.Context, name string, input map[string]interface{}) (result Result) {
	tool, ok := r.Get(name)
	if !ok {
		return Fail("unknown tool: %s", name)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Printf("💥 Tool %s panicked: %v", name, rec)
			result = Fail("tool %s panicked: %v", name, rec)
		}
	}()
	return tool.Execute(ctx, input)
}

// stringParam pulls a required string field out of a tool input map.
func stringParam(input map[string]interface{}, key string) (string, bool) {
	v, ok := input[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok && s != ""
}

// floatParam pulls a numeric field, accepting the float64 json.Unmarshal
// produces as well as native ints.
func floatParam(input map[string]interface{}, key string) (float64, bool) {
	switch v := input[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
