package agent

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/boarsvc/boar/internal/erp"
	"github.com/boarsvc/boar/internal/llm"
	"github.com/boarsvc/boar/internal/otp"
)

type fakeGateway struct {
	employees []erp.Employee
	tasks     []erp.Task
	searchRead map[string][]map[string]any
	created    []createdRecord
}

type createdRecord struct {
	Model  string
	Values map[string]any
}

func (f *fakeGateway) SearchRead(ctx context.Context, model string, domain []any, fields []string, limit, offset int, order string) ([]map[string]any, error) {
	return f.searchRead[model], nil
}

func (f *fakeGateway) Create(ctx context.Context, model string, values map[string]any) (int64, error) {
	f.created = append(f.created, createdRecord{Model: model, Values: values})
	return 99, nil
}

func (f *fakeGateway) ReadEmployees(ctx context.Context, domain []any, limit, offset int) ([]erp.Employee, error) {
	return f.employees, nil
}

func (f *fakeGateway) ReadTasks(ctx context.Context, domain []any, limit, offset int) ([]erp.Task, error) {
	return f.tasks, nil
}

type fakeLinker struct {
	unlinked string
}

func (f *fakeLinker) Unlink(ctx context.Context, externalID string) error {
	f.unlinked = externalID
	return nil
}

func TestHandleGetEmployeeInfoReturnsEmployee(t *testing.T) {
	gw := &fakeGateway{employees: []erp.Employee{{ID: 1, Name: "Alice", WorkEmail: "alice@co.test"}}}
	handler := handleGetEmployeeInfo(gw)

	raw, err := handler(context.Background(), map[string]any{"employee_id": float64(1)})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	var result map[string]any
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result["success"] != true {
		t.Errorf("expected success=true, got %v", result["success"])
	}
}

func TestHandleGetEmployeeInfoMissingArgErrors(t *testing.T) {
	handler := handleGetEmployeeInfo(&fakeGateway{})
	raw, err := handler(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	var result map[string]any
	json.Unmarshal([]byte(raw), &result)
	if result["success"] != false {
		t.Error("expected success=false for missing employee_id")
	}
}

func TestHandleCreateTaskCreatesWithAssignee(t *testing.T) {
	gw := &fakeGateway{}
	handler := handleCreateTask(gw)

	raw, err := handler(context.Background(), map[string]any{"employee_id": float64(5), "name": "Do the thing"})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	var result map[string]any
	json.Unmarshal([]byte(raw), &result)
	if result["success"] != true {
		t.Fatalf("expected success, got %v", result)
	}
	if len(gw.created) != 1 || gw.created[0].Model != "project.task" {
		t.Fatalf("expected one project.task create, got %+v", gw.created)
	}
}

func TestHandleUnlinkTelegramAccountCallsLinker(t *testing.T) {
	linker := &fakeLinker{}
	handler := handleUnlinkTelegramAccount(linker, "tg-42")

	if _, err := handler(context.Background(), nil); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if linker.unlinked != "tg-42" {
		t.Errorf("unlinked = %q, want tg-42", linker.unlinked)
	}
}

func TestDetectLanguage(t *testing.T) {
	if got := detectLanguage("hello there"); got != "en" {
		t.Errorf("got %q, want en", got)
	}
	if got := detectLanguage("مرحبا"); got != "ar" {
		t.Errorf("got %q, want ar", got)
	}
}

type fakeAuth struct {
	state      otp.State
	employeeID int64
}

func (f *fakeAuth) State(ctx context.Context, externalID string) (otp.State, error) {
	return f.state, nil
}

func (f *fakeAuth) Resolve(ctx context.Context, externalID string) (int64, error) {
	return f.employeeID, nil
}

func (f *fakeAuth) Unlink(ctx context.Context, externalID string) error { return nil }

type fakeOrchestrator struct {
	called bool
}

func (f *fakeOrchestrator) ToolCall(ctx context.Context, externalID, userMessage string, tools []llm.Tool, handlers map[string]llm.ToolHandler, context_ map[string]any) (string, error) {
	f.called = true
	return "ok", nil
}

func TestSurfaceHandleRefusesUnboundCaller(t *testing.T) {
	auth := &fakeAuth{state: otp.StateNone}
	orch := &fakeOrchestrator{}
	s := NewSurface(&fakeGateway{}, orch, auth)

	reply, err := s.Handle(context.Background(), "tg-1", "hi")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply != notLinkedMessageEN {
		t.Errorf("reply = %q, want the not-linked prompt", reply)
	}
	if orch.called {
		t.Error("orchestrator should not be invoked for an unbound caller")
	}
}

func TestSurfaceHandleDispatchesForBoundCaller(t *testing.T) {
	auth := &fakeAuth{state: otp.StateBound, employeeID: 7}
	orch := &fakeOrchestrator{}
	s := NewSurface(&fakeGateway{}, orch, auth)

	reply, err := s.Handle(context.Background(), "tg-1", "what's my leave balance?")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if reply != "ok" {
		t.Errorf("reply = %q, want ok", reply)
	}
	if !orch.called {
		t.Error("orchestrator should have been invoked for a bound caller")
	}
}
