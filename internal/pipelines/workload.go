package pipelines

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/boarsvc/boar/internal/erp"
	"github.com/boarsvc/boar/internal/notifier"
)

// EmployeeWorkload is one employee's utilization snapshot.
type EmployeeWorkload struct {
	EmployeeID     int64             `json:"employee_id"`
	Name           string            `json:"name"`
	OpenTaskCount  int               `json:"open_task_count"`
	RemainingHours float64           `json:"remaining_hours"`
	Utilization    float64           `json:"utilization"`
	Status         UtilizationStatus `json:"status"`
}

// RebalanceSuggestion recommends moving a task off an overloaded employee
// onto an underutilized one.
type RebalanceSuggestion struct {
	TaskID         int64  `json:"task_id"`
	TaskName       string `json:"task_name"`
	FromEmployee   string `json:"from_employee"`
	ToEmployee     string `json:"to_employee"`
	Rationale      string `json:"rationale"`
}

// WorkloadResult is the Workload Balancing pipeline's output.
type WorkloadResult struct {
	GeneratedAt       time.Time             `json:"generated_at"`
	Employees         []EmployeeWorkload    `json:"employees"`
	BalanceScore      float64               `json:"balance_score"`
	OverloadedCount   int                   `json:"overloaded_count"`
	UnderutilizedCount int                  `json:"underutilized_count"`
	ManagerAlert      bool                  `json:"manager_alert"`
	Suggestions       []RebalanceSuggestion `json:"suggestions"`
	Summary           string                `json:"summary"`
}

// WorkloadPipeline balances team workload, grounded on
// original_source/task-management/app/services/ai/workload_optimizer.py.
type WorkloadPipeline struct {
	Gateway      Gateway
	Orchestrator Orchestrator
	Notifier     Notifier
}

// NewWorkloadPipeline wires a gateway, orchestrator and notifier into a
// WorkloadPipeline.
func NewWorkloadPipeline(gw Gateway, orch Orchestrator, notif Notifier) *WorkloadPipeline {
	return &WorkloadPipeline{Gateway: gw, Orchestrator: orch, Notifier: notif}
}

const workloadSystem = "You are a resourcing analyst. Given per-employee utilization as JSON, " +
	"recommend up to 3 task reassignments that reduce imbalance. Respond with a JSON object " +
	`{"suggestions":[{"task_id":0,"task_name":"...","from_employee":"...","to_employee":"...",` +
	`"rationale":"..."}],"summary":"..."}.`

// Run gathers open tasks and active employees, derives per-employee
// utilization and a team balance score, asks the orchestrator for
// rebalancing suggestions (falling back to the nearest-match rule below),
// and dispatches a manager alert when the team is imbalanced.
func (p *WorkloadPipeline) Run(ctx context.Context, now time.Time) (*WorkloadResult, error) {
	tasks, err := p.Gateway.ReadTasks(ctx, openTaskDomain, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("pipelines: read tasks: %w", err)
	}
	employees, err := p.Gateway.ReadEmployees(ctx, []any{[]any{"active", "=", true}}, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("pipelines: read employees: %w", err)
	}

	workloads := computeWorkloads(tasks, employees)
	utilizations := make([]float64, len(workloads))
	overloaded, underutilized := 0, 0
	for i, w := range workloads {
		utilizations[i] = w.Utilization
		switch w.Status {
		case StatusOverloaded:
			overloaded++
		case StatusUnderutilized:
			underutilized++
		}
	}
	balance := BalanceScore(utilizations)
	alert := NeedsManagerAlert(balance, overloaded)

	data := map[string]any{"workloads": workloads, "balance_score": balance}
	fallback := func() any { return nearestMatchRebalance(tasks, workloads) }
	raw, _ := p.Orchestrator.RunStructured(ctx, workloadPrompt, data, workloadSystem, parseWorkloadResult, fallback)
	suggestions, summary := unwrapWorkloadResult(raw)

	result := &WorkloadResult{
		GeneratedAt:        now,
		Employees:          workloads,
		BalanceScore:        balance,
		OverloadedCount:     overloaded,
		UnderutilizedCount:  underutilized,
		ManagerAlert:        alert,
		Suggestions:         suggestions,
		Summary:             summary,
	}

	if alert {
		p.Notifier.Dispatch(ctx, notifier.EventAlertPrefix+"workload_imbalance", result, nil, "", "")
	}

	return result, nil
}

const workloadPrompt = "Recommend task reassignments to balance the following employee utilization data."

func parseWorkloadResult(raw map[string]any) (any, error) {
	items, ok := raw["suggestions"].([]any)
	if !ok {
		return nil, fmt.Errorf("pipelines: missing suggestions array")
	}
	out := make([]RebalanceSuggestion, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		var taskID int64
		if f, ok := m["task_id"].(float64); ok {
			taskID = int64(f)
		}
		out = append(out, RebalanceSuggestion{
			TaskID:       taskID,
			TaskName:     stringField(m, "task_name"),
			FromEmployee: stringField(m, "from_employee"),
			ToEmployee:   stringField(m, "to_employee"),
			Rationale:    stringField(m, "rationale"),
		})
	}
	summary, _ := raw["summary"].(string)
	return workloadResultPayload{Suggestions: out, Summary: summary}, nil
}

type workloadResultPayload struct {
	Suggestions []RebalanceSuggestion
	Summary     string
}

func unwrapWorkloadResult(raw any) ([]RebalanceSuggestion, string) {
	if r, ok := raw.(workloadResultPayload); ok {
		return r.Suggestions, r.Summary
	}
	return nil, ""
}

func computeWorkloads(tasks []erp.Task, employees []erp.Employee) []EmployeeWorkload {
	byEmployee := map[int64]*EmployeeWorkload{}
	for _, e := range employees {
		byEmployee[e.ID] = &EmployeeWorkload{EmployeeID: e.ID, Name: e.Name}
	}

	for _, t := range tasks {
		for _, assignee := range t.Assignees {
			w, ok := byEmployee[assignee.ID]
			if !ok {
				continue
			}
			w.OpenTaskCount++
			w.RemainingHours += t.Hours
		}
	}

	out := make([]EmployeeWorkload, 0, len(byEmployee))
	for _, w := range byEmployee {
		w.Utilization, w.Status = Utilization(w.RemainingHours, DefaultWeeklyCapacityHours)
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Utilization > out[j].Utilization })
	return out
}

// nearestMatchRebalance is the rule-based fallback, grounded on
// workload_optimizer.py's recommendation step: pair the most overloaded
// employee's most recent open task with the least utilized teammate, one
// suggestion per overloaded employee, capped at 3.
func nearestMatchRebalance(tasks []erp.Task, workloads []EmployeeWorkload) workloadResultPayload {
	if len(workloads) < 2 {
		return workloadResultPayload{Summary: "not enough employees to rebalance"}
	}

	tasksByEmployee := map[int64][]erp.Task{}
	for _, t := range tasks {
		for _, a := range t.Assignees {
			tasksByEmployee[a.ID] = append(tasksByEmployee[a.ID], t)
		}
	}

	underutilized := workloads[len(workloads)-1]
	var suggestions []RebalanceSuggestion
	for _, w := range workloads {
		if w.Status != StatusOverloaded {
			continue
		}
		if w.EmployeeID == underutilized.EmployeeID {
			continue
		}
		ts := tasksByEmployee[w.EmployeeID]
		if len(ts) == 0 {
			continue
		}
		task := ts[0]
		suggestions = append(suggestions, RebalanceSuggestion{
			TaskID:       task.ID,
			TaskName:     task.Name,
			FromEmployee: w.Name,
			ToEmployee:   underutilized.Name,
			Rationale:    fmt.Sprintf("%s is at %.0f%% utilization while %s is at %.0f%%", w.Name, w.Utilization, underutilized.Name, underutilized.Utilization),
		})
		if len(suggestions) == 3 {
			break
		}
	}

	return workloadResultPayload{
		Suggestions: suggestions,
		Summary:     fmt.Sprintf("%d rebalancing suggestion(s) generated", len(suggestions)),
	}
}
