package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/boarsvc/boar/internal/llm"
)

func handleGetEmployeeInfo(gw Gateway) llm.ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		id, ok := argInt64(args, "employee_id")
		if !ok {
			return errResult("employee_id is required")
		}
		employees, err := gw.ReadEmployees(ctx, []any{[]any{"id", "=", id}}, 1, 0)
		if err != nil {
			return errResult(err.Error())
		}
		if len(employees) == 0 {
			return errResult("employee not found")
		}
		e := employees[0]
		return okResult("employee", map[string]any{
			"id": e.ID, "name": e.Name, "email": e.WorkEmail,
			"department": e.Department.Name, "job_title": e.Job.Name,
		})
	}
}

func handleFindEmployeeByEmail(gw Gateway) llm.ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		email := argString(args, "email")
		if email == "" {
			return errResult("email is required")
		}
		employees, err := gw.ReadEmployees(ctx, []any{[]any{"work_email", "=", email}}, 1, 0)
		if err != nil {
			return errResult(err.Error())
		}
		if len(employees) == 0 {
			return errResult("no employee found with this email")
		}
		e := employees[0]
		return okResult("employee", map[string]any{
			"id": e.ID, "name": e.Name, "email": e.WorkEmail, "department": e.Department.Name,
		})
	}
}

func handleGetLeaveBalance(gw Gateway) llm.ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		id, ok := argInt64(args, "employee_id")
		if !ok {
			return errResult("employee_id is required")
		}
		recs, err := gw.SearchRead(ctx, "hr.leave.allocation",
			[]any{[]any{"employee_id", "=", id}, []any{"state", "=", "validate"}},
			[]string{"holiday_status_id", "number_of_days", "leaves_taken"}, 0, 0, "")
		if err != nil {
			return errResult(err.Error())
		}
		balances := make([]map[string]any, 0, len(recs))
		for _, r := range recs {
			allocated, _ := r["number_of_days"].(float64)
			taken, _ := r["leaves_taken"].(float64)
			leaveType := ""
			if rel, ok := r["holiday_status_id"].([]any); ok && len(rel) == 2 {
				leaveType, _ = rel[1].(string)
			}
			balances = append(balances, map[string]any{
				"leave_type": leaveType, "allocated": allocated, "taken": taken, "remaining": allocated - taken,
			})
		}
		return okResult("balances", balances)
	}
}

func handleGetLeaveRequests(gw Gateway) llm.ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		id, ok := argInt64(args, "employee_id")
		if !ok {
			return errResult("employee_id is required")
		}
		domain := []any{[]any{"employee_id", "=", id}}
		if state := argString(args, "state"); state != "" {
			domain = append(domain, []any{"state", "=", state})
		}
		recs, err := gw.SearchRead(ctx, "hr.leave", domain,
			[]string{"holiday_status_id", "date_from", "date_to", "number_of_days", "state", "name"}, 0, 0, "date_from desc")
		if err != nil {
			return errResult(err.Error())
		}
		requests := make([]map[string]any, 0, len(recs))
		for _, r := range recs {
			leaveType := ""
			if rel, ok := r["holiday_status_id"].([]any); ok && len(rel) == 2 {
				leaveType, _ = rel[1].(string)
			}
			requests = append(requests, map[string]any{
				"leave_type": leaveType, "date_from": r["date_from"], "date_to": r["date_to"],
				"days": r["number_of_days"], "state": r["state"], "reason": r["name"],
			})
		}
		return okResult("requests", requests)
	}
}

func handleCreateLeaveRequest(gw Gateway) llm.ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		id, ok := argInt64(args, "employee_id")
		if !ok {
			return errResult("employee_id is required")
		}
		leaveTypeID, ok := argInt64(args, "leave_type_id")
		if !ok {
			return errResult("leave_type_id is required")
		}
		dateFrom, dateTo := argString(args, "date_from"), argString(args, "date_to")
		if dateFrom == "" || dateTo == "" {
			return errResult("date_from and date_to are required")
		}
		values := map[string]any{
			"employee_id": id, "holiday_status_id": leaveTypeID,
			"date_from": dateFrom, "date_to": dateTo, "name": argString(args, "reason"),
		}
		leaveID, err := gw.Create(ctx, "hr.leave", values)
		if err != nil {
			return errResult(err.Error())
		}
		return okResult("leave_id", leaveID)
	}
}

func handleGetPayslips(gw Gateway) llm.ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		id, ok := argInt64(args, "employee_id")
		if !ok {
			return errResult("employee_id is required")
		}
		limit := 6
		if l, ok := argInt64(args, "limit"); ok && l > 0 {
			limit = int(l)
		}
		recs, err := gw.SearchRead(ctx, "hr.payslip", []any{[]any{"employee_id", "=", id}},
			[]string{"name", "date_from", "date_to", "state", "net_wage", "gross_wage"}, limit, 0, "date_from desc")
		if err != nil {
			return errResult(err.Error())
		}
		payslips := make([]map[string]any, 0, len(recs))
		for _, r := range recs {
			payslips = append(payslips, map[string]any{
				"name": r["name"], "period": fmt.Sprintf("%v to %v", r["date_from"], r["date_to"]),
				"state": r["state"], "net_wage": r["net_wage"], "gross_wage": r["gross_wage"],
			})
		}
		return okResult("payslips", payslips)
	}
}

func handleGetAttendanceSummary(gw Gateway) llm.ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		id, ok := argInt64(args, "employee_id")
		if !ok {
			return errResult("employee_id is required")
		}
		now := time.Now().UTC()
		month, year := int(now.Month()), now.Year()
		if m, ok := argInt64(args, "month"); ok {
			month = int(m)
		}
		if y, ok := argInt64(args, "year"); ok {
			year = int(y)
		}
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		end := start.AddDate(0, 1, 0)
		recs, err := gw.SearchRead(ctx, "hr.attendance", []any{
			[]any{"employee_id", "=", id},
			[]any{"check_in", ">=", start.Format("2006-01-02 15:04:05")},
			[]any{"check_in", "<", end.Format("2006-01-02 15:04:05")},
		}, []string{"worked_hours"}, 0, 0, "")
		if err != nil {
			return errResult(err.Error())
		}
		var totalHours float64
		for _, r := range recs {
			if h, ok := r["worked_hours"].(float64); ok {
				totalHours += h
			}
		}
		return okResult("summary", map[string]any{
			"month": month, "year": year, "total_days": len(recs), "total_hours": totalHours,
		})
	}
}

func handleGetEmployeeTasks(gw Gateway) llm.ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		id, ok := argInt64(args, "employee_id")
		if !ok {
			return errResult("employee_id is required")
		}
		tasks, err := gw.ReadTasks(ctx, []any{[]any{"user_ids", "in", []int64{id}}}, 0, 0)
		if err != nil {
			return errResult(err.Error())
		}
		out := make([]map[string]any, 0, len(tasks))
		for _, t := range tasks {
			out = append(out, map[string]any{
				"id": t.ID, "name": t.Name, "deadline": t.DateDeadline, "priority": t.Priority, "stage": t.Stage.Name,
			})
		}
		return okResult("tasks", out)
	}
}

func handleCreateTask(gw Gateway) llm.ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		id, ok := argInt64(args, "employee_id")
		if !ok {
			return errResult("employee_id is required")
		}
		name := argString(args, "name")
		if name == "" {
			return errResult("name is required")
		}
		values := map[string]any{
			"name": name, "user_ids": []any{[]any{6, 0, []int64{id}}},
			"description": argString(args, "description"),
		}
		if due := argString(args, "due_date"); due != "" {
			values["date_deadline"] = due
		}
		taskID, err := gw.Create(ctx, "project.task", values)
		if err != nil {
			return errResult(err.Error())
		}
		return okResult("task_id", taskID)
	}
}

func handleGetCompanyPolicies(gw Gateway) llm.ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		recs, err := gw.SearchRead(ctx, "documents.document", []any{[]any{"type", "=", "folder"}},
			[]string{"name", "description", "create_date"}, 0, 0, "name asc")
		if err != nil {
			return errResult(err.Error())
		}
		policies := make([]map[string]any, 0, len(recs))
		for _, r := range recs {
			policies = append(policies, map[string]any{
				"name": r["name"], "description": r["description"], "created": r["create_date"],
			})
		}
		return okResult("policies", policies)
	}
}

func handleUnlinkTelegramAccount(linker Linker, externalID string) llm.ToolHandler {
	return func(ctx context.Context, args map[string]any) (string, error) {
		if err := linker.Unlink(ctx, externalID); err != nil {
			return errResult(err.Error())
		}
		return toJSON(map[string]any{"success": true})
	}
}
