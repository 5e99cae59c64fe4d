package pipelines

import (
	"context"
	"testing"
	"time"

	"github.com/boarsvc/boar/internal/erp"
	"github.com/boarsvc/boar/internal/notifier"
)

func TestReportPipelineRunComposesAndDispatches(t *testing.T) {
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	tasks := []erp.Task{
		{ID: 1, Name: "T1", Stage: erp.Relation{ID: 10, Name: "Doing"}, DateDeadline: "2026-07-01", Assignees: []erp.Relation{{ID: 1}}, Hours: 10},
	}
	stages := []erp.TaskStage{{ID: 10, Name: "Doing", IsClosed: false}}
	employees := []erp.Employee{{ID: 1, Name: "Alice", Active: true}}

	gw := &fakeGateway{tasks: tasks, stages: stages, employees: employees}
	notif := &fakeNotifier{}
	overdue := NewOverduePipeline(gw, fakeOrchestrator{}, notif)
	workload := NewWorkloadPipeline(gw, fakeOrchestrator{}, notif)
	p := NewReportPipeline(overdue, workload, fakeOrchestrator{}, notif)

	artifact, err := p.Run(context.Background(), ReportDaily, now)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if artifact.ID == "" {
		t.Error("expected a non-empty report ID")
	}
	if artifact.Period != ReportDaily {
		t.Errorf("Period = %q, want daily", artifact.Period)
	}
	if artifact.Narrative == "" {
		t.Error("expected a non-empty narrative from the templated fallback")
	}

	found := false
	for _, call := range notif.calls {
		if call.EventType == notifier.EventReportReady {
			found = true
		}
	}
	if !found {
		t.Error("expected a report.ready notification to be dispatched")
	}
}
