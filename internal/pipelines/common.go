package pipelines

import (
	"context"
	"time"

	"github.com/boarsvc/boar/internal/erp"
)

// dateLayout is the ISO-8601 date format Odoo returns date_deadline/
// date_end/date_start fields in.
const dateLayout = "2006-01-02"

// parseDate parses an Odoo date string, returning the zero time and false
// when empty or malformed rather than erroring — a task or contract with no
// deadline set simply has nothing to report against.
func parseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, false
		}
	}
	return t, true
}

// Gateway is the narrow slice of erp.Gateway every pipeline needs to gather
// its source records, letting pipelines be tested against fakes instead of
// a live Odoo connection (the same accept-interfaces approach internal/otp
// uses against *erp.Gateway/*notifier.EmailSender).
type Gateway interface {
	ReadTasks(ctx context.Context, domain []any, limit, offset int) ([]erp.Task, error)
	ReadTaskStages(ctx context.Context, domain []any) ([]erp.TaskStage, error)
	ReadEmployees(ctx context.Context, domain []any, limit, offset int) ([]erp.Employee, error)
	ReadContracts(ctx context.Context, domain []any, limit, offset int) ([]erp.Contract, error)
}

// Orchestrator is the narrow slice of llm.Orchestrator every pipeline's
// RunStructured call needs.
type Orchestrator interface {
	RunStructured(ctx context.Context, prompt string, data any, system string, parse func(map[string]any) (any, error), fallback func() any) (any, error)
}

// Notifier is the narrow slice of notifier.Notifier every pipeline's alert
// leg needs.
type Notifier interface {
	Dispatch(ctx context.Context, eventType string, data any, recipients []string, subject, body string)
}

// stageIndex maps a stage ID to its project.task.type record for O(1)
// is_closed / name lookups while walking a task list.
func stageIndex(stages []erp.TaskStage) map[int64]erp.TaskStage {
	idx := make(map[int64]erp.TaskStage, len(stages))
	for _, s := range stages {
		idx[s.ID] = s
	}
	return idx
}
