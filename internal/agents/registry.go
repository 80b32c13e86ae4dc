package agents

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ghostwallet/hunter/internal/config"
	"github.com/ghostwallet/hunter/internal/strategy"
)

// Blueprint describes a new agent: which strategy it runs, which tools it
// may use, and how it is triggered. Names need not be unique; IDs are.
type Blueprint struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Kind        string        `json:"kind"` // e.g. "detective", "generic"
	Strategy    string        `json:"strategy"`
	Tools       []string      `json:"tools"`
	Trigger     TriggerConfig `json:"trigger"`
}

// Registry holds all live agents. Creation and deletion take the registry
// lock; everything else goes through the per-agent mutex.
type Registry struct {
	mu         sync.RWMutex
	agents     map[string]*Agent
	strategies *strategy.Registry
	profiles   *config.Profiles
	logger     *log.Logger
	metrics    *Metrics
	publisher  Publisher
}

// SetPublisher attaches a lifecycle-event publisher. Applies to agents
// created afterwards; call before serving traffic.
func (r *Registry) SetPublisher(p Publisher) {
	r.publisher = p
}

// NewRegistry creates an agent registry backed by the given strategies and
// deployment profiles. Metrics may be nil.
func NewRegistry(strategies *strategy.Registry, profiles *config.Profiles, metrics *Metrics) *Registry {
	if profiles == nil {
		profiles = config.DefaultProfiles()
	}
	return &Registry{
		agents:     make(map[string]*Agent),
		strategies: strategies,
		profiles:   profiles,
		logger:     log.New(log.Writer(), "[AGENTS] ", log.LstdFlags),
		metrics:    metrics,
	}
}

// Create builds an agent from a blueprint in state CREATED.
func (r *Registry) Create(bp Blueprint) (*Agent, error) {
	if bp.Name == "" {
		return nil, fmt.Errorf("agent name is required")
	}
	strat, ok := r.strategies.Get(bp.Strategy)
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q", bp.Strategy)
	}

	trigger := bp.Trigger
	if trigger.Type == "" {
		trigger.Type = TriggerWebhook
	}
	if trigger.Type != TriggerWebhook && trigger.Type != TriggerPeriodic {
		return nil, fmt.Errorf("unknown trigger type %q", trigger.Type)
	}
	if trigger.Profile == "" {
		trigger.Profile = "routine"
	}
	profile, ok := r.profiles.Triggers[trigger.Profile]
	if !ok {
		return nil, fmt.Errorf("unknown trigger profile %q", trigger.Profile)
	}

	agent := &Agent{
		id:          uuid.NewString(),
		name:        bp.Name,
		description: bp.Description,
		blueprint:   bp.Kind,
		state:       StateCreated,
		trigger:     trigger,
		profile:     profile,
		toolNames:   append([]string(nil), bp.Tools...),
		strat:       strat,
		createdAt:   time.Now().UTC(),
		queue:       make(chan *Task, r.profiles.Queue.Capacity),
		tasks:       make(map[string]*Task),
		maxHistory:  r.profiles.Queue.MaxTaskHistory,
		memory:      NewMemory(),
		stopTicker:  make(chan struct{}),
		logger:      r.logger,
		metrics:     r.metrics,
		publisher:   r.publisher,
	}
	agent.cond = sync.NewCond(&agent.mu)

	r.mu.Lock()
	r.agents[agent.id] = agent
	r.mu.Unlock()

	r.logger.Printf("🤖 Agent created: %s (%s, strategy=%s, trigger=%s/%s)",
		bp.Name, agent.id, bp.Strategy, trigger.Type, trigger.Profile)
	return agent, nil
}

// Get retrieves an agent by ID.
func (r *Registry) Get(id string) (*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	agent, ok := r.agents[id]
	if !ok {
		return nil, fmt.Errorf("%w: agent %s", ErrNotFound, id)
	}
	return agent, nil
}

// List returns snapshots of every agent, ordered by creation time.
func (r *Registry) List() []Snapshot {
	r.mu.RLock()
	agents := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		agents = append(agents, a)
	}
	r.mu.RUnlock()

	out := make([]Snapshot, 0, len(agents))
	for _, a := range agents {
		out = append(out, a.Status())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Delete stops an agent if needed and removes it from the registry.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	agent, ok := r.agents[id]
	if ok {
		delete(r.agents, id)
	}
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: agent %s", ErrNotFound, id)
	}
	if st := agent.Status().State; st == StateRunning || st == StatePaused {
		_ = agent.Stop()
	}
	r.logger.Printf("🗑️ Agent deleted: %s", id)
	return nil
}

// StopAll stops every agent and waits for the workers to drain. Used by
// graceful shutdown.
func (r *Registry) StopAll() {
	r.mu.RLock()
	agents := make([]*Agent, 0, len(r.agents))
	for _, a := range r.agents {
		agents = append(agents, a)
	}
	r.mu.RUnlock()

	for _, a := range agents {
		if st := a.Status().State; st == StateRunning || st == StatePaused {
			_ = a.Stop()
		}
		a.Wait()
	}
}
