package pipelines

import (
	"context"
	"fmt"
	"time"

	"github.com/boarsvc/boar/internal/erp"
	"github.com/boarsvc/boar/internal/notifier"
)

// openTaskDomain excludes tasks in a closed/cancelled state; the
// bottleneck/overdue pipeline only cares about work still in flight
// (original_source/task-management/app/services/ai/bottleneck_detector.py
// gathers "active" tasks the same way).
var openTaskDomain = []any{[]any{"state", "not in", []string{"done", "cancel", "1_done", "1_canceled"}}}

// StageMetric summarizes how many open tasks sit in one kanban stage.
type StageMetric struct {
	StageID      int64   `json:"stage_id"`
	StageName    string  `json:"stage_name"`
	IsClosed     bool    `json:"is_closed"`
	TaskCount    int     `json:"task_count"`
	Percentage   float64 `json:"percentage"`
	OverdueCount int     `json:"overdue_count"`
	BlockedCount int     `json:"blocked_count"`
	IsBottleneck bool    `json:"is_bottleneck"`
}

// TaskSeverity is an overdue task's computed severity.
type TaskSeverity struct {
	TaskID      int64  `json:"task_id"`
	Name        string `json:"name"`
	StageName   string `json:"stage_name"`
	DaysOverdue int    `json:"days_overdue"`
	Severity    string `json:"severity"`
}

// Bottleneck is a single finding, whether LLM-composed or rule-derived.
type Bottleneck struct {
	Type           string `json:"type"`
	Location       string `json:"location"`
	Severity       string `json:"severity"`
	Impact         string `json:"impact"`
	Recommendation string `json:"recommendation"`
}

// OverdueResult is the Overdue/Bottleneck pipeline's output.
type OverdueResult struct {
	GeneratedAt       time.Time      `json:"generated_at"`
	TotalOpenTasks    int            `json:"total_open_tasks"`
	OverdueCount      int            `json:"overdue_count"`
	BlockedCount      int            `json:"blocked_count"`
	BlockedRatio      float64        `json:"blocked_ratio"`
	BlockedConcerning bool           `json:"blocked_concerning"`
	StageMetrics      []StageMetric  `json:"stage_metrics"`
	TaskSeverities    []TaskSeverity `json:"task_severities"`
	Bottlenecks       []Bottleneck   `json:"bottlenecks"`
	Summary           string         `json:"summary"`
}

// OverduePipeline detects overdue tasks and stage bottlenecks, grounded on
// original_source/task-management/app/services/ai/bottleneck_detector.py.
type OverduePipeline struct {
	Gateway      Gateway
	Orchestrator Orchestrator
	Notifier     Notifier
}

// NewOverduePipeline wires a gateway, orchestrator and notifier into an
// OverduePipeline.
func NewOverduePipeline(gw Gateway, orch Orchestrator, notif Notifier) *OverduePipeline {
	return &OverduePipeline{Gateway: gw, Orchestrator: orch, Notifier: notif}
}

const overdueSystem = "You are a project operations analyst. Given task stage metrics and overdue " +
	"severities as JSON, identify the 1-5 most impactful bottlenecks. Respond with a JSON object " +
	`{"bottlenecks":[{"type":"...","location":"...","severity":"low|medium|high|critical",` +
	`"impact":"...","recommendation":"..."}],"summary":"..."}.`

// Run gathers open tasks and stages, derives stage/overdue/blocked metrics,
// asks the orchestrator to compose findings (falling back to a rule-based
// cascade on failure), dispatches task.overdue alerts for critical tasks,
// and returns the combined result.
func (p *OverduePipeline) Run(ctx context.Context, now time.Time) (*OverdueResult, error) {
	tasks, err := p.Gateway.ReadTasks(ctx, openTaskDomain, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("pipelines: read tasks: %w", err)
	}
	stages, err := p.Gateway.ReadTaskStages(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("pipelines: read task stages: %w", err)
	}

	stageMetrics := computeStageMetrics(tasks, stages, now)
	taskSeverities := computeTaskSeverities(tasks, now)
	blocked := countBlocked(tasks)
	blockedRatio, blockedConcerning := BlockedRatio(blocked, len(tasks))

	data := map[string]any{
		"stage_metrics":   stageMetrics,
		"task_severities": taskSeverities,
		"blocked_count":   blocked,
		"total_tasks":     len(tasks),
	}

	fallback := func() any {
		return basicBottleneckAnalysis(stageMetrics, taskSeverities, blockedRatio, blockedConcerning)
	}

	raw, _ := p.Orchestrator.RunStructured(ctx, overdueBottleneckPrompt, data, overdueSystem, parseBottleneckResult, fallback)
	findings, summary := unwrapBottleneckResult(raw)

	result := &OverdueResult{
		GeneratedAt:       now,
		TotalOpenTasks:    len(tasks),
		OverdueCount:      countOverdue(taskSeverities),
		BlockedCount:      blocked,
		BlockedRatio:      blockedRatio,
		BlockedConcerning: blockedConcerning,
		StageMetrics:      stageMetrics,
		TaskSeverities:    taskSeverities,
		Bottlenecks:       findings,
		Summary:           summary,
	}

	for _, ts := range taskSeverities {
		if ts.Severity == "critical" {
			p.Notifier.Dispatch(ctx, notifier.EventTaskOverdue, ts, nil, "", "")
		}
	}
	if blockedConcerning {
		p.Notifier.Dispatch(ctx, notifier.EventAlertPrefix+"blocked_tasks", result, nil, "", "")
	}

	return result, nil
}

const overdueBottleneckPrompt = "Identify workflow bottlenecks from these task stage and overdue metrics."

func parseBottleneckResult(raw map[string]any) (any, error) {
	items, ok := raw["bottlenecks"].([]any)
	if !ok {
		return nil, fmt.Errorf("pipelines: missing bottlenecks array")
	}
	out := make([]Bottleneck, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Bottleneck{
			Type:           stringField(m, "type"),
			Location:       stringField(m, "location"),
			Severity:       stringField(m, "severity"),
			Impact:         stringField(m, "impact"),
			Recommendation: stringField(m, "recommendation"),
		})
	}
	summary, _ := raw["summary"].(string)
	return bottleneckResult{Bottlenecks: out, Summary: summary}, nil
}

type bottleneckResult struct {
	Bottlenecks []Bottleneck
	Summary     string
}

func unwrapBottleneckResult(raw any) ([]Bottleneck, string) {
	if r, ok := raw.(bottleneckResult); ok {
		return r.Bottlenecks, r.Summary
	}
	return nil, ""
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// basicBottleneckAnalysis is the rule-based fallback cascade, grounded on
// bottleneck_detector.py's _basic_bottleneck_analysis: flag every congested
// non-closed stage and a blocked-ratio finding when it crosses threshold,
// with no LLM involved.
func basicBottleneckAnalysis(stages []StageMetric, severities []TaskSeverity, blockedRatio float64, blockedConcerning bool) bottleneckResult {
	var findings []Bottleneck

	for _, s := range stages {
		if s.IsBottleneck && !s.IsClosed {
			findings = append(findings, Bottleneck{
				Type:           "stage_congestion",
				Location:       s.StageName,
				Severity:       congestionSeverity(s.Percentage),
				Impact:         fmt.Sprintf("%d of the open tasks (%.0f%%) are stuck in %s", s.TaskCount, s.Percentage, s.StageName),
				Recommendation: "review work-in-progress limits and blockers for this stage",
			})
		}
	}

	if blockedConcerning {
		findings = append(findings, Bottleneck{
			Type:           "blocked_tasks",
			Location:       "overall",
			Severity:       "high",
			Impact:         fmt.Sprintf("%.0f%% of open tasks are blocked", blockedRatio*100),
			Recommendation: "triage blocked tasks and clear external dependencies",
		})
	}

	critical := 0
	for _, ts := range severities {
		if ts.Severity == "critical" {
			critical++
		}
	}
	if critical > 0 {
		findings = append(findings, Bottleneck{
			Type:           "overdue_backlog",
			Location:       "overall",
			Severity:       "critical",
			Impact:         fmt.Sprintf("%d tasks are more than a week overdue", critical),
			Recommendation: "escalate critically overdue tasks to their assignees' managers",
		})
	}

	return bottleneckResult{
		Bottlenecks: findings,
		Summary:     fmt.Sprintf("%d bottleneck(s) detected across %d stages", len(findings), len(stages)),
	}
}

func congestionSeverity(percentage float64) string {
	switch {
	case percentage >= 60:
		return "critical"
	case percentage >= 45:
		return "high"
	default:
		return "medium"
	}
}

func computeStageMetrics(tasks []erp.Task, stages []erp.TaskStage, now time.Time) []StageMetric {
	idx := stageIndex(stages)
	counts := map[int64]*StageMetric{}

	for _, t := range tasks {
		sm, ok := counts[t.Stage.ID]
		if !ok {
			stage := idx[t.Stage.ID]
			sm = &StageMetric{StageID: t.Stage.ID, StageName: t.Stage.Name, IsClosed: stage.IsClosed}
			if sm.StageName == "" {
				sm.StageName = stage.Name
			}
			counts[t.Stage.ID] = sm
		}
		sm.TaskCount++
		if t.Blocked() {
			sm.BlockedCount++
		}
		if isOverdue(t, now) {
			sm.OverdueCount++
		}
	}

	out := make([]StageMetric, 0, len(counts))
	for _, sm := range counts {
		out = append(out, *sm)
	}
	for i := range out {
		out[i].Percentage, out[i].IsBottleneck = stagePercentage(out[i].TaskCount, len(tasks))
	}
	return out
}

func stagePercentage(count, total int) (float64, bool) {
	if total == 0 {
		return 0, false
	}
	pct := float64(count) / float64(total) * 100
	return pct, IsStageBottleneck(count, total)
}

func computeTaskSeverities(tasks []erp.Task, now time.Time) []TaskSeverity {
	var out []TaskSeverity
	for _, t := range tasks {
		deadline, ok := parseDate(t.DateDeadline)
		if !ok || !now.After(deadline) {
			continue
		}
		days := int(now.Sub(deadline).Hours() / 24)
		out = append(out, TaskSeverity{
			TaskID:      t.ID,
			Name:        t.Name,
			StageName:   t.Stage.Name,
			DaysOverdue: days,
			Severity:    OverdueSeverity(days),
		})
	}
	return out
}

func isOverdue(t erp.Task, now time.Time) bool {
	deadline, ok := parseDate(t.DateDeadline)
	return ok && now.After(deadline)
}

func countOverdue(severities []TaskSeverity) int {
	return len(severities)
}

func countBlocked(tasks []erp.Task) int {
	n := 0
	for _, t := range tasks {
		if t.Blocked() {
			n++
		}
	}
	return n
}
