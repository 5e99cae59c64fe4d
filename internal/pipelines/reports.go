package pipelines

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/boarsvc/boar/internal/notifier"
)

// ReportPeriod names the cadence a report was generated for, matching the
// daily_report/weekly_report schedule catalog entries (spec.md §4.C).
type ReportPeriod string

const (
	ReportDaily   ReportPeriod = "daily"
	ReportWeekly  ReportPeriod = "weekly"
	ReportMonthly ReportPeriod = "monthly"
)

// CompletionMetrics summarizes task throughput over the report window.
type CompletionMetrics struct {
	OpenTaskCount    int     `json:"open_task_count"`
	OverdueCount     int     `json:"overdue_count"`
	BlockedCount     int     `json:"blocked_count"`
	BlockedRatio     float64 `json:"blocked_ratio"`
}

// ReportArtifact is one generated report, the unit dispatched as
// report.ready and, where the catalog calls for it, handed to managers by
// email.
type ReportArtifact struct {
	ID                string            `json:"id"`
	Period            ReportPeriod      `json:"period"`
	GeneratedAt       time.Time         `json:"generated_at"`
	Completion        CompletionMetrics `json:"completion"`
	StageMetrics      []StageMetric     `json:"stage_metrics"`
	Workload          *WorkloadResult   `json:"workload"`
	Narrative         string            `json:"narrative"`
}

// ReportPipeline composes the recurring productivity reports, grounded on
// original_source/task-management/app/scheduler/jobs/report_generator.py's
// completion_metrics + stage_metrics + workload_summary -> narrative shape.
type ReportPipeline struct {
	Overdue      *OverduePipeline
	Workload     *WorkloadPipeline
	Orchestrator Orchestrator
	Notifier     Notifier
}

// NewReportPipeline wires the overdue and workload pipelines plus an
// orchestrator and notifier into a ReportPipeline; it reuses their Run
// methods rather than re-gathering ERP data.
func NewReportPipeline(overdue *OverduePipeline, workload *WorkloadPipeline, orch Orchestrator, notif Notifier) *ReportPipeline {
	return &ReportPipeline{Overdue: overdue, Workload: workload, Orchestrator: orch, Notifier: notif}
}

const reportSystem = "You are writing a short internal operations report for managers. Given " +
	"completion, stage and workload metrics as JSON, write a 3-5 sentence narrative summary. Respond " +
	`with a JSON object {"narrative":"..."}.`

// Run composes a report for the given period by delegating to the overdue
// and workload pipelines, asking the orchestrator to narrate the result
// (falling back to a templated narrative), and dispatching report.ready.
func (p *ReportPipeline) Run(ctx context.Context, period ReportPeriod, now time.Time) (*ReportArtifact, error) {
	overdue, err := p.Overdue.Run(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("pipelines: report overdue stage: %w", err)
	}
	workload, err := p.Workload.Run(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("pipelines: report workload stage: %w", err)
	}

	completion := CompletionMetrics{
		OpenTaskCount: overdue.TotalOpenTasks,
		OverdueCount:  overdue.OverdueCount,
		BlockedCount:  overdue.BlockedCount,
		BlockedRatio:  overdue.BlockedRatio,
	}

	data := map[string]any{"completion": completion, "stage_metrics": overdue.StageMetrics, "workload": workload}
	fallback := func() any { return templatedReportNarrative(completion, workload) }
	raw, _ := p.Orchestrator.RunStructured(ctx, reportPrompt, data, reportSystem, parseReportNarrative, fallback)
	narrative := unwrapReportNarrative(raw)

	artifact := &ReportArtifact{
		ID:           ulid.Make().String(),
		Period:       period,
		GeneratedAt:  now,
		Completion:   completion,
		StageMetrics: overdue.StageMetrics,
		Workload:     workload,
		Narrative:    narrative,
	}

	p.Notifier.Dispatch(ctx, notifier.EventReportReady, artifact, nil, reportSubject(period), narrative)

	return artifact, nil
}

const reportPrompt = "Write a narrative summary for this operations report."

func reportSubject(period ReportPeriod) string {
	return fmt.Sprintf("BOAR %s operations report", period)
}

func parseReportNarrative(raw map[string]any) (any, error) {
	narrative, ok := raw["narrative"].(string)
	if !ok || narrative == "" {
		return nil, fmt.Errorf("pipelines: missing narrative")
	}
	return narrative, nil
}

func unwrapReportNarrative(raw any) string {
	s, _ := raw.(string)
	return s
}

func templatedReportNarrative(completion CompletionMetrics, workload *WorkloadResult) string {
	return fmt.Sprintf(
		"%d tasks open, %d overdue, %d blocked (%.0f%%). Team balance score is %.0f with %d overloaded employee(s).",
		completion.OpenTaskCount, completion.OverdueCount, completion.BlockedCount, completion.BlockedRatio*100,
		workload.BalanceScore, workload.OverloadedCount,
	)
}
