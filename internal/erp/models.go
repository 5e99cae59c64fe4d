package erp

import "context"

// Employee is a typed view over hr.employee, built on SearchRead + Relation
// normalization (spec.md §9's "per-model typed views" redesign note).
type Employee struct {
	ID         int64
	Name       string
	WorkEmail  string
	Department Relation
	Job        Relation
	User       Relation
	Active     bool
}

var employeeFields = []string{"id", "name", "work_email", "department_id", "job_id", "user_id", "active"}

func parseEmployee(rec map[string]any) Employee {
	e := Employee{
		Department: ParseRelation(rec["department_id"]),
		Job:        ParseRelation(rec["job_id"]),
		User:       ParseRelation(rec["user_id"]),
	}
	if id, ok := toInt64(rec["id"]); ok {
		e.ID = id
	}
	e.Name, _ = rec["name"].(string)
	e.WorkEmail, _ = rec["work_email"].(string)
	e.Active, _ = rec["active"].(bool)
	return e
}

// ReadEmployees fetches hr.employee records matching domain.
func (g *Gateway) ReadEmployees(ctx context.Context, domain []any, limit, offset int) ([]Employee, error) {
	if err := g.RequireModel("hr.employee"); err != nil {
		return nil, err
	}
	recs, err := g.SearchRead(ctx, "hr.employee", domain, employeeFields, limit, offset, "name asc")
	if err != nil {
		return nil, err
	}
	out := make([]Employee, len(recs))
	for i, r := range recs {
		out[i] = parseEmployee(r)
	}
	return out, nil
}

// Contract is a typed view over hr.contract, carrying start/end dates as
// raw ERP strings (ISO-8601) — parsing into time.Time is the caller's
// concern since expiry-window math differs per pipeline.
type Contract struct {
	ID        int64
	Name      string
	Employee  Relation
	StartDate string
	EndDate   string
	Wage      float64
	State     string
}

var contractFields = []string{"id", "name", "employee_id", "date_start", "date_end", "wage", "state"}

func parseContract(rec map[string]any) Contract {
	c := Contract{Employee: ParseRelation(rec["employee_id"])}
	if id, ok := toInt64(rec["id"]); ok {
		c.ID = id
	}
	c.Name, _ = rec["name"].(string)
	c.StartDate, _ = rec["date_start"].(string)
	c.EndDate, _ = rec["date_end"].(string)
	c.State, _ = rec["state"].(string)
	if w, ok := rec["wage"].(float64); ok {
		c.Wage = w
	}
	return c
}

// ReadContracts fetches hr.contract records matching domain.
func (g *Gateway) ReadContracts(ctx context.Context, domain []any, limit, offset int) ([]Contract, error) {
	if err := g.RequireModel("hr.contract"); err != nil {
		return nil, err
	}
	recs, err := g.SearchRead(ctx, "hr.contract", domain, contractFields, limit, offset, "date_end asc")
	if err != nil {
		return nil, err
	}
	out := make([]Contract, len(recs))
	for i, r := range recs {
		out[i] = parseContract(r)
	}
	return out, nil
}

// Task is a typed view over project.task. HoursField records which source
// field satisfied the planned/remaining-hours lookup, resolving spec.md
// §9's open question the way task_service.py works around Odoo 18 dropping
// planned_hours/remaining_hours in favor of allocated_hours.
type Task struct {
	ID           int64
	Name         string
	Project      Relation
	Stage        Relation
	Assignees    []Relation
	Priority     string
	DateDeadline string
	State        string
	KanbanState  string // "normal" | "done" | "blocked"
	Hours        float64
	HoursField   string
}

// Blocked reports whether the task is flagged blocked in its kanban state,
// the signal the bottleneck pipeline's blocked-ratio metric is built on
// (original_source/task-management/.../bottleneck_detector.py's
// `kanban_state == "blocked"` check).
func (t Task) Blocked() bool {
	return t.KanbanState == "blocked"
}

var taskFields = []string{
	"id", "name", "project_id", "stage_id", "user_ids",
	"priority", "date_deadline", "state", "kanban_state",
	"remaining_hours", "planned_hours", "allocated_hours",
}

func parseTask(rec map[string]any) Task {
	t := Task{
		Project: ParseRelation(rec["project_id"]),
		Stage:   ParseRelation(rec["stage_id"]),
	}
	if id, ok := toInt64(rec["id"]); ok {
		t.ID = id
	}
	t.Name, _ = rec["name"].(string)
	t.Priority, _ = rec["priority"].(string)
	t.DateDeadline, _ = rec["date_deadline"].(string)
	t.State, _ = rec["state"].(string)
	t.KanbanState, _ = rec["kanban_state"].(string)

	if arr, ok := rec["user_ids"].([]any); ok {
		for _, v := range arr {
			if id, ok := toInt64(v); ok {
				t.Assignees = append(t.Assignees, Relation{ID: id})
			}
		}
	}

	for _, field := range []string{"remaining_hours", "planned_hours", "allocated_hours"} {
		if v, ok := rec[field]; ok {
			if h, ok := v.(float64); ok && h != 0 {
				t.Hours = h
				t.HoursField = field
				break
			}
		}
	}

	return t
}

// ReadTasks fetches project.task records matching domain, ordered
// date_deadline asc, priority desc per spec.md §4.A's documented default.
func (g *Gateway) ReadTasks(ctx context.Context, domain []any, limit, offset int) ([]Task, error) {
	if err := g.RequireModel("project.task"); err != nil {
		return nil, err
	}
	recs, err := g.SearchRead(ctx, "project.task", domain, taskFields, limit, offset, "date_deadline asc, priority desc")
	if err != nil {
		return nil, err
	}
	out := make([]Task, len(recs))
	for i, r := range recs {
		out[i] = parseTask(r)
	}
	return out, nil
}

// TaskStage is a typed view over project.task.type, the kanban column a
// Task's Stage relation points at.
type TaskStage struct {
	ID       int64
	Name     string
	IsClosed bool
}

var taskStageFields = []string{"id", "name", "is_closed"}

func parseTaskStage(rec map[string]any) TaskStage {
	s := TaskStage{}
	if id, ok := toInt64(rec["id"]); ok {
		s.ID = id
	}
	s.Name, _ = rec["name"].(string)
	s.IsClosed, _ = rec["is_closed"].(bool)
	return s
}

// ReadTaskStages fetches project.task.type records matching domain, used by
// the bottleneck pipeline to tell a congested-but-active stage apart from a
// congested "Done" column.
func (g *Gateway) ReadTaskStages(ctx context.Context, domain []any) ([]TaskStage, error) {
	if err := g.RequireModel("project.task.type"); err != nil {
		return nil, err
	}
	recs, err := g.SearchRead(ctx, "project.task.type", domain, taskStageFields, 0, 0, "sequence asc")
	if err != nil {
		return nil, err
	}
	out := make([]TaskStage, len(recs))
	for i, r := range recs {
		out[i] = parseTaskStage(r)
	}
	return out, nil
}

// ConfigParameter reads a single ir.config_parameter value by key, used by
// the OTP Authenticator's telegram_link_<external_id> binding. It returns
// ("", false, nil) when the key does not exist.
func (g *Gateway) ConfigParameter(ctx context.Context, key string) (string, bool, error) {
	if err := g.RequireModel("ir.config_parameter"); err != nil {
		return "", false, err
	}
	recs, err := g.SearchRead(ctx, "ir.config_parameter", []any{[]any{"key", "=", key}}, []string{"id", "value"}, 1, 0, "")
	if err != nil {
		return "", false, err
	}
	if len(recs) == 0 {
		return "", false, nil
	}
	v, _ := recs[0]["value"].(string)
	return v, true, nil
}

// SetConfigParameter creates or updates an ir.config_parameter key/value.
func (g *Gateway) SetConfigParameter(ctx context.Context, key, value string) error {
	if err := g.RequireModel("ir.config_parameter"); err != nil {
		return err
	}
	ids, err := g.Search(ctx, "ir.config_parameter", []any{[]any{"key", "=", key}}, 1, 0, "")
	if err != nil {
		return err
	}
	if len(ids) > 0 {
		return g.Write(ctx, "ir.config_parameter", ids, map[string]any{"value": value})
	}
	_, err = g.Create(ctx, "ir.config_parameter", map[string]any{"key": key, "value": value})
	return err
}

// DeleteConfigParameter removes an ir.config_parameter key, used on unlink.
func (g *Gateway) DeleteConfigParameter(ctx context.Context, key string) error {
	if err := g.RequireModel("ir.config_parameter"); err != nil {
		return err
	}
	ids, err := g.Search(ctx, "ir.config_parameter", []any{[]any{"key", "=", key}}, 0, 0, "")
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	return g.Unlink(ctx, "ir.config_parameter", ids)
}
