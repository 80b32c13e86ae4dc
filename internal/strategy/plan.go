package strategy

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/ghostwallet/hunter/internal/tools"
)

var (
	stepPattern  = regexp.MustCompile(`(?m)^\s*\d+\.\s*(.+)$`)
	planFence    = regexp.MustCompile("(?s)```plan\\s*(.*?)```")
	genericFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
)

// StepResult records the outcome of one plan step.
type StepResult struct {
	Step       int                    `json:"step"`
	Goal       string                 `json:"goal"`
	Tool       string                 `json:"tool,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	Output     interface{}            `json:"output,omitempty"`
	Error      string                 `json:"error,omitempty"`
	Status     string                 `json:"status"` // completed | failed
}

// PlanResult is the full outcome of a plan-and-execute run.
type PlanResult struct {
	Task    string       `json:"task"`
	Plan    []string     `json:"plan"`
	Steps   []StepResult `json:"steps"`
	Context string       `json:"context"`
}

// Planner is the LLM slice this strategy needs.
type Planner interface {
	Enabled() bool
	Chat(ctx context.Context, prompt string) (string, error)
}

// PlanAndExecute is the generic agent strategy: ask the LLM for a numbered
// plan, then execute each step through the tool registry. Failed steps are
// recorded and execution continues.
type PlanAndExecute struct {
	llm      Planner
	registry *tools.Registry
	logger   *log.Logger
}

// NewPlanAndExecute wires the strategy.
func NewPlanAndExecute(llm Planner, registry *tools.Registry) *PlanAndExecute {
	return &PlanAndExecute{
		llm:      llm,
		registry: registry,
		logger:   log.New(log.Writer(), "[PLAN] ", log.LstdFlags),
	}
}

func (p *PlanAndExecute) Name() string { return "plan_and_execute" }

// Execute runs the loop. Params: task (required free-form string).
func (p *PlanAndExecute) Execute(ctx context.Context, params map[string]interface{}) (interface{}, error) {
	task, _ := params["task"].(string)
	if task == "" {
		return nil, fmt.Errorf("%w: task", ErrMissingInput)
	}
	if p.llm == nil || !p.llm.Enabled() {
		return nil, fmt.Errorf("plan_and_execute requires a configured LLM")
	}

	plan, err := p.makePlan(ctx, task)
	if err != nil {
		return nil, fmt.Errorf("planning failed: %w", err)
	}
	p.logger.Printf("📋 Plan for %q: %d steps", task, len(plan))

	result := &PlanResult{Task: task, Plan: plan}
	var contextLog strings.Builder
	for i, goal := range plan {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		step := p.executeStep(ctx, i+1, goal, contextLog.String())
		result.Steps = append(result.Steps, step)

		outcome := step.Error
		if step.Status == "completed" {
			outcome = fmt.Sprintf("%v", step.Output)
		}
		fmt.Fprintf(&contextLog, "Step %d: %s → Result: %s\n", i+1, goal, outcome)
	}
	result.Context = contextLog.String()
	return result, nil
}

// makePlan asks for a numbered plan and extracts the "1." lines, preferring
// a ```plan fenced block when the model emits one.
func (p *PlanAndExecute) makePlan(ctx context.Context, task string) ([]string, error) {
	prompt := fmt.Sprintf(`Break this task into a short numbered plan (at most 8 steps). Reply with only the numbered list inside a %splan fence.

Task: %s`, "```", task)

	reply, err := p.llm.Chat(ctx, prompt)
	if err != nil {
		return nil, err
	}

	steps := parsePlan(reply)
	if len(steps) == 0 {
		return nil, fmt.Errorf("no numbered steps in plan reply")
	}
	return steps, nil
}

// parsePlan extracts numbered step lines, scoped to the ```plan fence when
// present.
func parsePlan(reply string) []string {
	text := reply
	if m := planFence.FindStringSubmatch(reply); m != nil {
		text = m[1]
	}

	var steps []string
	for _, m := range stepPattern.FindAllStringSubmatch(text, -1) {
		if goal := strings.TrimSpace(m[1]); goal != "" {
			steps = append(steps, goal)
		}
	}
	return steps
}

// executeStep asks the LLM which tool to call for the goal, then runs it.
// Invalid JSON or unknown tools mark the step failed.
func (p *PlanAndExecute) executeStep(ctx context.Context, n int, goal, priorContext string) StepResult {
	step := StepResult{Step: n, Goal: goal, Status: "failed"}

	prompt := fmt.Sprintf(`You are executing step %d of a plan.

Available tools: %s

Prior context:
%s

Step goal: %s

Reply with a single JSON object {"tool": "<name>", "parameters": {...}} and nothing else.`,
		n, strings.Join(p.registry.Names(), ", "), priorContext, goal)

	reply, err := p.llm.Chat(ctx, prompt)
	if err != nil {
		step.Error = fmt.Sprintf("llm call failed: %v", err)
		return step
	}

	var call struct {
		Tool       string                 `json:"tool"`
		Parameters map[string]interface{} `json:"parameters"`
	}
	if err := json.Unmarshal(stripFences(reply), &call); err != nil || call.Tool == "" {
		step.Error = fmt.Sprintf("invalid tool call JSON: %s", truncateStr(reply, 120))
		return step
	}
	step.Tool = call.Tool
	step.Parameters = call.Parameters

	res := p.registry.ExecuteSafe(ctx, call.Tool, call.Parameters)
	if !res.Success {
		step.Error = res.Error
		return step
	}
	step.Output = res.Output
	step.Status = "completed"
	return step
}

// stripFences removes markdown code fences before JSON parsing.
func stripFences(reply string) []byte {
	if m := genericFence.FindStringSubmatch(reply); m != nil {
		reply = m[1]
	}
	return tools.ExtractJSON(reply)
}

func truncateStr(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
