// Package agents implements the agent lifecycle: creation from blueprints,
// the CREATED/RUNNING/PAUSED/STOPPED state machine, per-agent bounded task
// queues with a single worker, and the trigger gate that throttles
// investigations.
package agents

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ghostwallet/hunter/internal/config"
	"github.com/ghostwallet/hunter/internal/strategy"
)

// State is the lifecycle state of an agent.
type State string

const (
	StateCreated State = "CREATED"
	StateRunning State = "RUNNING"
	StatePaused  State = "PAUSED"
	StateStopped State = "STOPPED"
)

// Task statuses.
const (
	TaskPending    = "PENDING"
	TaskRunning    = "RUNNING"
	TaskCompleted  = "COMPLETED"
	TaskFailed     = "FAILED"
	TaskCancelled  = "CANCELLED"
	TaskCancelling = "CANCELLING"
)

// Lifecycle and task errors, mapped to API error codes by the handlers.
var (
	ErrInvalidTransition  = errors.New("invalid agent state transition")
	ErrAgentNotReady      = errors.New("agent is not running")
	ErrQueueFull          = errors.New("task queue is full")
	ErrTaskNotCancellable = errors.New("task is not cancellable")
	ErrNotFound           = errors.New("not found")
)

const maxContextLog = 200

// Publisher receives agent lifecycle events. Implementations must not
// block; the event bus satisfies this.
type Publisher interface {
	Publish(event string, payload interface{})
}

const eventAgentStateChanged = "agent.state_changed"

// Task is one unit of work queued on an agent. All fields are guarded by
// the owning agent's mutex; API handlers read copies via Snapshot.
type Task struct {
	ID         string                 `json:"id"`
	Payload    map[string]interface{} `json:"payload"`
	Status     string                 `json:"status"`
	Result     interface{}            `json:"result,omitempty"`
	Error      string                 `json:"error,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`

	cancel context.CancelFunc
}

func (t *Task) snapshotLocked() Task {
	cp := *t
	cp.cancel = nil
	return cp
}

// Agent owns one task queue, one worker, and its own investigation memory.
// State transitions are serialized by the agent mutex.
type Agent struct {
	mu   sync.Mutex
	cond *sync.Cond

	id          string
	name        string
	description string
	blueprint   string
	state       State
	trigger     TriggerConfig
	profile     config.TriggerProfile
	toolNames   []string
	strat       strategy.Strategy
	createdAt   time.Time

	queue      chan *Task
	tasks      map[string]*Task
	history    []*Task
	maxHistory int
	contextLog []string
	memory     *Memory

	stopTicker chan struct{}
	wg         sync.WaitGroup
	logger     *log.Logger
	metrics    *Metrics
	publisher  Publisher
}

// publishStateLocked emits the lifecycle event for the current state.
func (a *Agent) publishStateLocked() {
	if a.publisher == nil {
		return
	}
	a.publisher.Publish(eventAgentStateChanged, map[string]interface{}{
		"agent_id": a.id,
		"name":     a.name,
		"state":    a.state,
	})
}

// Snapshot is a read-only view of an agent for the API layer.
type Snapshot struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Blueprint   string        `json:"blueprint,omitempty"`
	State       State         `json:"status"`
	Strategy    string        `json:"strategy"`
	Tools       []string      `json:"tools,omitempty"`
	Trigger     TriggerConfig `json:"trigger"`
	QueueDepth  int           `json:"queue_depth"`
	TaskCount   int           `json:"task_count"`
	CreatedAt   time.Time     `json:"created_at"`
}

// ID returns the agent's identifier.
func (a *Agent) ID() string { return a.id }

// Status returns a point-in-time view of the agent.
func (a *Agent) Status() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		ID:          a.id,
		Name:        a.name,
		Description: a.description,
		Blueprint:   a.blueprint,
		State:       a.state,
		Strategy:    a.strat.Name(),
		Tools:       append([]string(nil), a.toolNames...),
		Trigger:     a.trigger,
		QueueDepth:  len(a.queue),
		TaskCount:   len(a.history),
		CreatedAt:   a.createdAt,
	}
}

// Update changes the agent's mutable configuration. Empty fields are left
// untouched; a nil tools slice keeps the current set.
func (a *Agent) Update(name, description string, tools []string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if name != "" {
		a.name = name
	}
	if description != "" {
		a.description = description
	}
	if tools != nil {
		a.toolNames = append([]string(nil), tools...)
	}
}

// Start moves CREATED → RUNNING and launches the worker (and the periodic
// scheduler when configured). Starting a RUNNING agent is a no-op success.
func (a *Agent) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case StateRunning:
		return nil
	case StateCreated:
		a.state = StateRunning
		a.wg.Add(1)
		go a.worker()
		if a.trigger.Type == TriggerPeriodic && a.trigger.Interval > 0 {
			go a.periodic()
		}
		a.appendLogLocked("🚀 agent started")
		a.publishStateLocked()
		return nil
	default:
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, a.state)
	}
}

// Pause moves RUNNING → PAUSED. The worker stops consuming but the queue
// keeps accepting state changes. Pausing a PAUSED agent is a no-op.
func (a *Agent) Pause() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case StatePaused:
		return nil
	case StateRunning:
		a.state = StatePaused
		a.appendLogLocked("⏸️ agent paused")
		a.publishStateLocked()
		return nil
	default:
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, a.state)
	}
}

// Resume moves PAUSED → RUNNING. Resuming a RUNNING agent is a no-op.
func (a *Agent) Resume() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case StateRunning:
		return nil
	case StatePaused:
		a.state = StateRunning
		a.cond.Broadcast()
		a.appendLogLocked("▶️ agent resumed")
		a.publishStateLocked()
		return nil
	default:
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, a.state)
	}
}

// Stop moves RUNNING or PAUSED → STOPPED, cancels any in-flight task and
// cancels everything still queued. STOPPED is terminal; stopping a STOPPED
// agent is a no-op.
func (a *Agent) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch a.state {
	case StateStopped:
		return nil
	case StateRunning, StatePaused:
		a.state = StateStopped
		close(a.stopTicker)
		for _, t := range a.tasks {
			if t.Status == TaskRunning && t.cancel != nil {
				t.Status = TaskCancelling
				t.cancel()
			}
		}
		// Submit checks state under this mutex, so nothing sends after close.
		close(a.queue)
		a.cond.Broadcast()
		a.appendLogLocked("🛑 agent stopped")
		a.publishStateLocked()
		return nil
	default:
		return fmt.Errorf("%w: stop from %s", ErrInvalidTransition, a.state)
	}
}

// Wait blocks until the worker has drained after Stop. Used by graceful
// shutdown and tests.
func (a *Agent) Wait() {
	a.wg.Wait()
}

// Submit gates and enqueues one task. A gate rejection is not an error: the
// task is dropped, the reason logged, and the decision returned so the API
// can report it. Payloads without a wallet_address bypass the gate.
func (a *Agent) Submit(payload map[string]interface{}) (*Task, *GateDecision, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.state != StateRunning {
		return nil, nil, fmt.Errorf("%w: state %s", ErrAgentNotReady, a.state)
	}

	if wallet, ok := payload["wallet_address"].(string); ok && wallet != "" {
		decision := a.memory.ShouldTrigger(a.profile, wallet)
		if !decision.Allowed {
			a.appendLogLocked(fmt.Sprintf("⛔ task dropped for %s: %s", wallet, decision.Reason))
			a.metrics.RecordDropped(decision.Reason)
			return nil, &decision, nil
		}
		a.memory.Record(wallet)
	}

	task := &Task{
		ID:        uuid.NewString(),
		Payload:   payload,
		Status:    TaskPending,
		CreatedAt: time.Now().UTC(),
	}
	select {
	case a.queue <- task:
	default:
		a.metrics.RecordDropped("queue_full")
		return nil, nil, ErrQueueFull
	}

	a.tasks[task.ID] = task
	a.history = append(a.history, task)
	if len(a.history) > a.maxHistory {
		evicted := a.history[0]
		a.history = a.history[1:]
		delete(a.tasks, evicted.ID)
	}
	a.metrics.RecordSubmitted()
	a.appendLogLocked(fmt.Sprintf("📥 task %s queued", task.ID))
	return task, nil, nil
}

// CancelTask cancels a task: PENDING flips to CANCELLED synchronously,
// RUNNING is signalled to CANCELLING and the strategy observes the
// cancellation between phases. Terminal tasks are not cancellable.
func (a *Agent) CancelTask(id string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	task, ok := a.tasks[id]
	if !ok {
		return "", fmt.Errorf("%w: task %s", ErrNotFound, id)
	}

	switch task.Status {
	case TaskPending:
		task.Status = TaskCancelled
		now := time.Now().UTC()
		task.FinishedAt = &now
		a.appendLogLocked(fmt.Sprintf("🚫 task %s cancelled while pending", id))
		return TaskCancelled, nil
	case TaskRunning:
		task.Status = TaskCancelling
		if task.cancel != nil {
			task.cancel()
		}
		a.appendLogLocked(fmt.Sprintf("🚫 task %s cancelling", id))
		return TaskCancelling, nil
	default:
		return "", fmt.Errorf("%w: status %s", ErrTaskNotCancellable, task.Status)
	}
}

// Task returns a copy of one task.
func (a *Agent) Task(id string) (Task, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	task, ok := a.tasks[id]
	if !ok {
		return Task{}, fmt.Errorf("%w: task %s", ErrNotFound, id)
	}
	return task.snapshotLocked(), nil
}

// Tasks returns copies of the task history, newest first, optionally
// filtered by status and capped at limit (0 = no cap).
func (a *Agent) Tasks(statusFilter string, limit int) []Task {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]Task, 0, len(a.history))
	for i := len(a.history) - 1; i >= 0; i-- {
		t := a.history[i]
		if statusFilter != "" && t.Status != statusFilter {
			continue
		}
		out = append(out, t.snapshotLocked())
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Logs returns the most recent context log entries, oldest first.
func (a *Agent) Logs(limit int) []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	entries := a.contextLog
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return append([]string(nil), entries...)
}

// worker drains the queue sequentially. It blocks while the agent is
// paused and cancels everything left once the agent stops.
func (a *Agent) worker() {
	defer a.wg.Done()

	for task := range a.queue {
		if !a.awaitRunnable() {
			a.finishTask(task, TaskCancelled, nil, "agent stopped")
			continue
		}
		a.runTask(task)
	}
}

// awaitRunnable blocks while PAUSED; returns false once STOPPED.
func (a *Agent) awaitRunnable() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for a.state == StatePaused {
		a.cond.Wait()
	}
	return a.state == StateRunning
}

func (a *Agent) runTask(task *Task) {
	a.mu.Lock()
	if task.Status != TaskPending {
		// Cancelled while queued.
		a.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	task.Status = TaskRunning
	task.cancel = cancel
	a.mu.Unlock()
	defer cancel()

	a.logger.Printf("🔨 Agent %s running task %s", a.name, task.ID)
	out, err := a.strat.Execute(ctx, task.Payload)

	switch {
	case ctx.Err() != nil:
		a.finishTask(task, TaskCancelled, nil, "cancelled")
	case err != nil:
		a.finishTask(task, TaskFailed, nil, err.Error())
	default:
		a.finishTask(task, TaskCompleted, out, "")
	}
}

func (a *Agent) finishTask(task *Task, status string, result interface{}, errMsg string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	task.cancel = nil
	task.Status = status
	task.Result = result
	task.Error = errMsg
	now := time.Now().UTC()
	task.FinishedAt = &now

	a.metrics.RecordFinished(status)
	if errMsg != "" {
		a.appendLogLocked(fmt.Sprintf("task %s → %s: %s", task.ID, status, errMsg))
	} else {
		a.appendLogLocked(fmt.Sprintf("task %s → %s", task.ID, status))
	}
}

func (a *Agent) appendLogLocked(entry string) {
	stamped := fmt.Sprintf("%s %s", time.Now().UTC().Format(time.RFC3339), entry)
	a.contextLog = append(a.contextLog, stamped)
	if len(a.contextLog) > maxContextLog {
		a.contextLog = a.contextLog[len(a.contextLog)-maxContextLog:]
	}
}
