package pipelines

import (
	"context"
	"fmt"
	"time"

	"github.com/boarsvc/boar/internal/notifier"
)

// MilestoneWindowDays is how far ahead delivery_monitor looks for
// upcoming deadlines, matching the window parameter
// contract_service.py's get_upcoming_milestones(days) takes at its call
// site (7 days in app/scheduler's delivery monitor job).
const MilestoneWindowDays = 7

// MilestoneInfo describes one open task's deadline classified as a
// milestone signal. BOAR has no dedicated milestone model of its own
// (contracts-agent's original kept milestones in a separate in-memory
// store, outside Odoo) — here a task's date_deadline stands in for its
// milestone due date, since Odoo is BOAR's only source of truth and
// project.task is the nearest entity with a deadline field.
type MilestoneInfo struct {
	TaskID       int64
	Name         string
	DueDate      string
	DaysUntilDue int
	Urgency      notifier.Urgency
	Overdue      bool
}

// MilestoneResult is the envelope returned by MilestonePipeline.Run.
type MilestoneResult struct {
	GeneratedAt time.Time
	Upcoming    []MilestoneInfo
	Overdue     []MilestoneInfo
}

// MilestonePipeline implements the delivery_monitor job (spec.md §4.C):
// every 6 hours, scan open tasks' deadlines and fire milestone.upcoming /
// milestone.overdue per spec.md §4.D's event catalog.
type MilestonePipeline struct {
	Gateway  Gateway
	Notifier Notifier
}

// NewMilestonePipeline wires a Gateway and Notifier into a
// MilestonePipeline.
func NewMilestonePipeline(gw Gateway, notif Notifier) *MilestonePipeline {
	return &MilestonePipeline{Gateway: gw, Notifier: notif}
}

// Run gathers open tasks with a deadline, classifies each as upcoming
// (due within MilestoneWindowDays) or overdue, and dispatches the
// matching event per task. Unlike the other pipelines, there's no LLM
// leg here — spec.md's event catalog names this a pure date computation,
// not a structured-output endpoint.
func (p *MilestonePipeline) Run(ctx context.Context, now time.Time) (*MilestoneResult, error) {
	tasks, err := p.Gateway.ReadTasks(ctx, openTaskDomain, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("pipelines: read tasks: %w", err)
	}

	result := &MilestoneResult{GeneratedAt: now}
	horizon := now.AddDate(0, 0, MilestoneWindowDays)

	for _, t := range tasks {
		deadline, ok := parseDate(t.DateDeadline)
		if !ok {
			continue
		}

		daysUntilDue := int(deadline.Sub(now).Hours() / 24)
		urgency := notifier.MilestoneUrgency(daysUntilDue)
		info := MilestoneInfo{
			TaskID:       t.ID,
			Name:         t.Name,
			DueDate:      t.DateDeadline,
			DaysUntilDue: daysUntilDue,
			Urgency:      urgency,
			Overdue:      daysUntilDue < 0,
		}

		switch {
		case info.Overdue:
			result.Overdue = append(result.Overdue, info)
			p.Notifier.Dispatch(ctx, notifier.EventMilestoneOverdue, info, nil,
				"Task deadline passed: "+t.Name,
				fmt.Sprintf("%q is %d day(s) overdue.", t.Name, -daysUntilDue))
		case !deadline.After(horizon):
			result.Upcoming = append(result.Upcoming, info)
			p.Notifier.Dispatch(ctx, notifier.EventMilestoneUpcoming, info, nil,
				"Task deadline approaching: "+t.Name,
				fmt.Sprintf("%q is due in %d day(s).", t.Name, daysUntilDue))
		}
	}

	return result, nil
}
