// Package strategy holds the reasoning procedures agents execute: the fixed
// detective-investigation pipeline and the generic plan-and-execute loop.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Strategy errors surfaced to the API layer.
var (
	ErrInvalidAddress = errors.New("invalid wallet address")
	ErrMissingInput   = errors.New("missing required input")
)

// Strategy is one named reasoning procedure. Execute observes ctx between
// phases: cancellation aborts before the next phase, never mid-write.
type Strategy interface {
	Name() string
	Execute(ctx context.Context, params map[string]interface{}) (interface{}, error)
}

// Registry maps strategy names to implementations. Filled at startup.
type Registry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewStrategyRegistry creates an empty registry.
func NewStrategyRegistry() *Registry {
	return &Registry{strategies: make(map[string]Strategy)}
}

// Register adds a strategy.
func (r *Registry) Register(s Strategy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.Name() == "" {
		return fmt.Errorf("strategy name is required")
	}
	if _, ok := r.strategies[s.Name()]; ok {
		return fmt.Errorf("strategy %q already registered", s.Name())
	}
	r.strategies[s.Name()] = s
	return nil
}

// Get retrieves a strategy by name.
func (r *Registry) Get(name string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[name]
	return s, ok
}

// Names lists the registered strategies.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		out = append(out, name)
	}
	return out
}
