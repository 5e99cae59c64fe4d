package pipelines

import (
	"context"

	"github.com/boarsvc/boar/internal/erp"
)

// fakeGateway is an in-memory stand-in for erp.Gateway covering the
// pipelines.Gateway interface, letting pipeline tests run without a live
// Odoo connection.
type fakeGateway struct {
	tasks     []erp.Task
	stages    []erp.TaskStage
	employees []erp.Employee
	contracts []erp.Contract
}

func (f *fakeGateway) ReadTasks(ctx context.Context, domain []any, limit, offset int) ([]erp.Task, error) {
	return f.tasks, nil
}

func (f *fakeGateway) ReadTaskStages(ctx context.Context, domain []any) ([]erp.TaskStage, error) {
	return f.stages, nil
}

func (f *fakeGateway) ReadEmployees(ctx context.Context, domain []any, limit, offset int) ([]erp.Employee, error) {
	return f.employees, nil
}

func (f *fakeGateway) ReadContracts(ctx context.Context, domain []any, limit, offset int) ([]erp.Contract, error) {
	return f.contracts, nil
}

// fakeOrchestrator always invokes fallback, exercising the rule-based path
// without a real LLM provider — every pipeline's fallback must stand on
// its own regardless of the orchestrator's availability.
type fakeOrchestrator struct{}

func (fakeOrchestrator) RunStructured(ctx context.Context, prompt string, data any, system string, parse func(map[string]any) (any, error), fallback func() any) (any, error) {
	return fallback(), nil
}

// fakeNotifier records every Dispatch call for assertion.
type fakeNotifier struct {
	calls []fakeDispatchCall
}

type fakeDispatchCall struct {
	EventType string
	Data      any
}

func (f *fakeNotifier) Dispatch(ctx context.Context, eventType string, data any, recipients []string, subject, body string) {
	f.calls = append(f.calls, fakeDispatchCall{EventType: eventType, Data: data})
}
