package pipelines

import (
	"context"
	"testing"
	"time"

	"github.com/boarsvc/boar/internal/erp"
	"github.com/boarsvc/boar/internal/notifier"
)

func TestOverduePipelineRunComputesMetricsAndDispatches(t *testing.T) {
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	tasks := []erp.Task{
		{ID: 1, Name: "A", Stage: erp.Relation{ID: 10, Name: "In Progress"}, DateDeadline: "2026-07-20", KanbanState: "normal"}, // 10 days overdue -> critical
		{ID: 2, Name: "B", Stage: erp.Relation{ID: 10, Name: "In Progress"}, DateDeadline: "2026-07-29", KanbanState: "blocked"}, // 1 day overdue -> low
		{ID: 3, Name: "C", Stage: erp.Relation{ID: 10, Name: "In Progress"}, DateDeadline: "2026-08-05", KanbanState: "normal"},  // not overdue
		{ID: 4, Name: "D", Stage: erp.Relation{ID: 20, Name: "Done"}, DateDeadline: "2026-07-01", KanbanState: "blocked"},        // 29 days overdue -> critical, blocked
	}
	stages := []erp.TaskStage{
		{ID: 10, Name: "In Progress", IsClosed: false},
		{ID: 20, Name: "Done", IsClosed: true},
	}

	gw := &fakeGateway{tasks: tasks, stages: stages}
	notif := &fakeNotifier{}
	p := NewOverduePipeline(gw, fakeOrchestrator{}, notif)

	result, err := p.Run(context.Background(), now)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if result.TotalOpenTasks != 4 {
		t.Errorf("TotalOpenTasks = %d, want 4", result.TotalOpenTasks)
	}
	if result.OverdueCount != 3 {
		t.Errorf("OverdueCount = %d, want 3", result.OverdueCount)
	}
	if result.BlockedCount != 2 {
		t.Errorf("BlockedCount = %d, want 2", result.BlockedCount)
	}
	if !result.BlockedConcerning {
		t.Error("2/4 blocked (50%) should be concerning")
	}

	critical := 0
	for _, call := range notif.calls {
		if call.EventType == notifier.EventTaskOverdue {
			critical++
		}
	}
	if critical != 2 {
		t.Errorf("dispatched %d task.overdue notifications, want 2 (critical only)", critical)
	}

	foundBlockedAlert := false
	for _, call := range notif.calls {
		if call.EventType == notifier.EventAlertPrefix+"blocked_tasks" {
			foundBlockedAlert = true
		}
	}
	if !foundBlockedAlert {
		t.Error("expected a blocked_tasks alert to be dispatched")
	}

	if len(result.Bottlenecks) == 0 {
		t.Error("expected at least one bottleneck finding from the rule-based fallback")
	}
}

func TestBasicBottleneckAnalysisFlagsCongestedOpenStage(t *testing.T) {
	stages := []StageMetric{
		{StageID: 1, StageName: "Review", IsClosed: false, TaskCount: 5, Percentage: 50, IsBottleneck: true},
		{StageID: 2, StageName: "Done", IsClosed: true, TaskCount: 5, Percentage: 50, IsBottleneck: true},
	}
	result := basicBottleneckAnalysis(stages, nil, 0, false)

	if len(result.Bottlenecks) != 1 {
		t.Fatalf("got %d findings, want 1 (closed stage excluded)", len(result.Bottlenecks))
	}
	if result.Bottlenecks[0].Location != "Review" {
		t.Errorf("flagged stage = %q, want Review", result.Bottlenecks[0].Location)
	}
}
