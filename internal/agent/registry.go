// Package agent implements the Agent Surface (spec.md §4.G): a superset
// tool catalog over the ERP Gateway (employee info, leave, payroll,
// attendance, tasks, policies, unlink; linking has no tool and runs only
// through the OTP Authenticator), registered once at startup
// into a name-keyed handler map and dispatched through
// internal/llm.Orchestrator.ToolCall, grounded on the teacher's agent_call
// node plus original_source/employee-agent/app/mcp/odoo_mcp_server.py's
// tool catalog.
package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/boarsvc/boar/internal/erp"
	"github.com/boarsvc/boar/internal/llm"
)

// Gateway is the narrow slice of erp.Gateway the tool catalog calls,
// accepted as an interface so the registry is testable against a fake ERP
// backend (the same accept-interfaces approach internal/otp and
// internal/pipelines use).
type Gateway interface {
	SearchRead(ctx context.Context, model string, domain []any, fields []string, limit, offset int, order string) ([]map[string]any, error)
	Create(ctx context.Context, model string, values map[string]any) (int64, error)
	ReadEmployees(ctx context.Context, domain []any, limit, offset int) ([]erp.Employee, error)
	ReadTasks(ctx context.Context, domain []any, limit, offset int) ([]erp.Task, error)
}

// Linker is the narrow slice of otp.Authenticator the unlink tool calls.
type Linker interface {
	Unlink(ctx context.Context, externalID string) error
}

// NewRegistry builds the full tool catalog and its bound handlers over gw.
// linker and externalID are closed over by the unlink tool so the model can
// act on the identity that is actually talking to it, matching
// odoo_mcp_server.py's unlink_telegram_account tool. The registry exposes
// only unlink: there is no link tool (linking stays an OTP-only operation
// per spec.md §4.E) and no link-status tool.
func NewRegistry(gw Gateway, linker Linker, externalID string) ([]llm.Tool, map[string]llm.ToolHandler) {
	tools := []llm.Tool{
		{
			Name:        "get_employee_info",
			Description: "Get detailed information about an employee: name, email, department, job title.",
			InputSchema: schema(required("employee_id"), prop("employee_id", "integer", "The Odoo employee ID")),
		},
		{
			Name:        "find_employee_by_email",
			Description: "Find an employee by their work email address.",
			InputSchema: schema(required("email"), prop("email", "string", "Employee's work email address")),
		},
		{
			Name:        "get_leave_balance",
			Description: "Get the leave balance for an employee, showing allocated/taken/remaining days per leave type.",
			InputSchema: schema(required("employee_id"), prop("employee_id", "integer", "The Odoo employee ID")),
		},
		{
			Name:        "get_leave_requests",
			Description: "Get leave requests for an employee, optionally filtered by state.",
			InputSchema: schema(required("employee_id"),
				prop("employee_id", "integer", "The Odoo employee ID"),
				prop("state", "string", "Optional state filter: draft, confirm, validate, refuse")),
		},
		{
			Name:        "create_leave_request",
			Description: "Create a new leave request for an employee.",
			InputSchema: schema(required("employee_id", "leave_type_id", "date_from", "date_to"),
				prop("employee_id", "integer", "The Odoo employee ID"),
				prop("leave_type_id", "integer", "The leave type ID"),
				prop("date_from", "string", "Start date, YYYY-MM-DD"),
				prop("date_to", "string", "End date, YYYY-MM-DD"),
				prop("reason", "string", "Optional reason")),
		},
		{
			Name:        "get_payslips",
			Description: "Get recent payslips for an employee.",
			InputSchema: schema(required("employee_id"),
				prop("employee_id", "integer", "The Odoo employee ID"),
				prop("limit", "integer", "Maximum number of payslips to return, default 6")),
		},
		{
			Name:        "get_attendance_summary",
			Description: "Get an employee's attendance summary for a given month/year.",
			InputSchema: schema(required("employee_id"),
				prop("employee_id", "integer", "The Odoo employee ID"),
				prop("month", "integer", "Month 1-12, defaults to current month"),
				prop("year", "integer", "Year, defaults to current year")),
		},
		{
			Name:        "get_employee_tasks",
			Description: "Get project tasks assigned to an employee.",
			InputSchema: schema(required("employee_id"), prop("employee_id", "integer", "The Odoo employee ID")),
		},
		{
			Name:        "create_task",
			Description: "Create a new project task assigned to an employee.",
			InputSchema: schema(required("employee_id", "name"),
				prop("employee_id", "integer", "The Odoo employee ID to assign the task to"),
				prop("name", "string", "Task name/title"),
				prop("description", "string", "Task description"),
				prop("due_date", "string", "Optional due date, YYYY-MM-DD")),
		},
		{
			Name:        "get_company_policies",
			Description: "List available company policy documents.",
			InputSchema: schema(nil),
		},
		{
			Name:        "unlink_telegram_account",
			Description: "Unlink the caller's chat identity from their Odoo employee record.",
			InputSchema: schema(nil),
		},
	}

	handlers := map[string]llm.ToolHandler{
		"get_employee_info":       handleGetEmployeeInfo(gw),
		"find_employee_by_email":  handleFindEmployeeByEmail(gw),
		"get_leave_balance":       handleGetLeaveBalance(gw),
		"get_leave_requests":      handleGetLeaveRequests(gw),
		"create_leave_request":    handleCreateLeaveRequest(gw),
		"get_payslips":            handleGetPayslips(gw),
		"get_attendance_summary":  handleGetAttendanceSummary(gw),
		"get_employee_tasks":      handleGetEmployeeTasks(gw),
		"create_task":             handleCreateTask(gw),
		"get_company_policies":    handleGetCompanyPolicies(gw),
		"unlink_telegram_account": handleUnlinkTelegramAccount(linker, externalID),
	}

	return tools, handlers
}

func schema(req []string, props ...map[string]any) map[string]any {
	properties := map[string]any{}
	for _, p := range props {
		for k, v := range p {
			properties[k] = v
		}
	}
	s := map[string]any{"type": "object", "properties": properties}
	if len(req) > 0 {
		s["required"] = req
	}
	return s
}

func required(names ...string) []string { return names }

func prop(name, kind, description string) map[string]any {
	return map[string]any{name: map[string]any{"type": kind, "description": description}}
}

func toJSON(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("agent: marshal tool result: %w", err)
	}
	return string(b), nil
}

func okResult(key string, value any) (string, error) {
	return toJSON(map[string]any{"success": true, key: value})
}

func errResult(msg string) (string, error) {
	return toJSON(map[string]any{"success": false, "error": msg})
}

func argInt64(args map[string]any, key string) (int64, bool) {
	switch v := args[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	default:
		return 0, false
	}
}

func argString(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}
