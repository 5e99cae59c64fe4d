package pipelines

import (
	"context"
	"fmt"
	"time"

	"github.com/boarsvc/boar/internal/erp"
	"github.com/boarsvc/boar/internal/notifier"
)

// ComplianceStatus mirrors original_source/contracts-agent/app/models/
// compliance.py's ComplianceStatus enum.
type ComplianceStatus string

const (
	ComplianceCompliant    ComplianceStatus = "compliant"
	ComplianceNonCompliant ComplianceStatus = "non_compliant"
	CompliancePending      ComplianceStatus = "pending_review"
	ComplianceExempted     ComplianceStatus = "exempted"
	ComplianceNotApplicable ComplianceStatus = "not_applicable"
)

// ComplianceItem is one checked clause/requirement against a contract.
type ComplianceItem struct {
	Label  string           `json:"label"`
	Status ComplianceStatus `json:"status"`
	Detail string           `json:"detail"`
}

// ComplianceRecord is one contract's compliance assessment.
type ComplianceRecord struct {
	ContractID   int64            `json:"contract_id"`
	Name         string           `json:"name"`
	EmployeeName string           `json:"employee_name"`
	Items        []ComplianceItem `json:"items"`
	Score        float64          `json:"score"`
}

// ComplianceResult is the Compliance Scoring pipeline's output.
type ComplianceResult struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Contracts   []ComplianceRecord `json:"contracts"`
	Summary     string             `json:"summary"`
}

// CompliancePipeline scores each active contract against a compliance
// checklist, grounded on compliance.py's ComplianceStatus/ComplianceScore
// shapes. BOAR's ERP Gateway has no dedicated compliance-items model (the
// teacher's domain has no analogue either), so the checklist itself is a
// deterministic rule set over Contract fields the Gateway does expose —
// every item the LLM leg can override is still backstopped by this rule
// set on failure.
type CompliancePipeline struct {
	Gateway      Gateway
	Orchestrator Orchestrator
	Notifier     Notifier
}

// NewCompliancePipeline wires a gateway, orchestrator and notifier into a
// CompliancePipeline.
func NewCompliancePipeline(gw Gateway, orch Orchestrator, notif Notifier) *CompliancePipeline {
	return &CompliancePipeline{Gateway: gw, Orchestrator: orch, Notifier: notif}
}

const complianceSystem = "You are a contracts compliance reviewer. Given a contract's checklist items " +
	"as JSON, decide whether any item's status should be reclassified (e.g. from pending_review to " +
	"compliant or non_compliant) based on the detail text, and write one summary sentence. Respond " +
	`with a JSON object {"items":[{"label":"...","status":"compliant|non_compliant|pending_review|` +
	`exempted|not_applicable","detail":"..."}],"summary":"..."}.`

// Run gathers active contracts, runs the deterministic checklist against
// each, asks the orchestrator to refine the pending items (falling back to
// the rule-based checklist verbatim on failure), and dispatches a
// compliance.alert for every contract scoring below 100.
func (p *CompliancePipeline) Run(ctx context.Context, now time.Time) (*ComplianceResult, error) {
	contracts, err := p.Gateway.ReadContracts(ctx, []any{[]any{"state", "=", "open"}}, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("pipelines: read contracts: %w", err)
	}

	var records []ComplianceRecord
	for _, c := range contracts {
		items := checklistFor(c)

		data := map[string]any{"items": items}
		fallback := func() any { return complianceItemsPayload{Items: items} }
		raw, _ := p.Orchestrator.RunStructured(ctx, compliancePrompt, data, complianceSystem, parseComplianceItems, fallback)
		refined := unwrapComplianceItems(raw, items)

		score := ComplianceScore(countResolved(refined), len(refined))
		record := ComplianceRecord{ContractID: c.ID, Name: c.Name, EmployeeName: c.Employee.Name, Items: refined, Score: score}
		records = append(records, record)

		if score < 100 {
			p.Notifier.Dispatch(ctx, notifier.EventComplianceAlert, record, nil, "", "")
		}
	}

	return &ComplianceResult{
		GeneratedAt: now,
		Contracts:   records,
		Summary:     fmt.Sprintf("%d contract(s) assessed", len(records)),
	}, nil
}

const compliancePrompt = "Review this contract's compliance checklist and refine any pending items."

type complianceItemsPayload struct {
	Items []ComplianceItem
}

func parseComplianceItems(raw map[string]any) (any, error) {
	arr, ok := raw["items"].([]any)
	if !ok {
		return nil, fmt.Errorf("pipelines: missing items array")
	}
	out := make([]ComplianceItem, 0, len(arr))
	for _, it := range arr {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, ComplianceItem{
			Label:  stringField(m, "label"),
			Status: ComplianceStatus(stringField(m, "status")),
			Detail: stringField(m, "detail"),
		})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("pipelines: empty items array")
	}
	return complianceItemsPayload{Items: out}, nil
}

func unwrapComplianceItems(raw any, fallback []ComplianceItem) []ComplianceItem {
	if p, ok := raw.(complianceItemsPayload); ok && len(p.Items) > 0 {
		return p.Items
	}
	return fallback
}

// checklistFor is the deterministic rule-based checklist: a contract is
// checked against the fields BOAR's Gateway can actually read, each mapped
// to a compliance.py-style status.
func checklistFor(c erp.Contract) []ComplianceItem {
	items := []ComplianceItem{
		{Label: "has_defined_end_date", Status: endDateStatus(c)},
		{Label: "has_positive_wage", Status: wageStatus(c)},
		{Label: "is_active_state", Status: stateStatus(c)},
		{Label: "has_assigned_employee", Status: employeeStatus(c)},
	}
	return items
}

func endDateStatus(c erp.Contract) ComplianceStatus {
	if c.EndDate == "" {
		return ComplianceNotApplicable
	}
	if _, ok := parseDate(c.EndDate); ok {
		return ComplianceCompliant
	}
	return ComplianceNonCompliant
}

func wageStatus(c erp.Contract) ComplianceStatus {
	if c.Wage > 0 {
		return ComplianceCompliant
	}
	return CompliancePending
}

func stateStatus(c erp.Contract) ComplianceStatus {
	if c.State == "open" {
		return ComplianceCompliant
	}
	return CompliancePending
}

func employeeStatus(c erp.Contract) ComplianceStatus {
	if !c.Employee.Empty {
		return ComplianceCompliant
	}
	return ComplianceNonCompliant
}

func countResolved(items []ComplianceItem) int {
	n := 0
	for _, it := range items {
		switch it.Status {
		case ComplianceCompliant, ComplianceExempted, ComplianceNotApplicable:
			n++
		}
	}
	return n
}
