package pipelines

import (
	"context"
	"fmt"
	"time"

	"github.com/boarsvc/boar/internal/notifier"
)

// ContractExpiryInfo is one contract's computed expiry status.
type ContractExpiryInfo struct {
	ContractID      int64              `json:"contract_id"`
	Name            string             `json:"name"`
	EmployeeName    string             `json:"employee_name"`
	EndDate         string             `json:"end_date"`
	Status          string             `json:"status"`
	DaysUntilExpiry int                `json:"days_until_expiry"`
	Urgency         notifier.Urgency   `json:"urgency"`
}

// ExpiryResult is the Contract Expiry Monitor pipeline's output.
type ExpiryResult struct {
	GeneratedAt time.Time             `json:"generated_at"`
	Contracts   []ContractExpiryInfo  `json:"contracts"`
	Expiring    []ContractExpiryInfo  `json:"expiring"`
	Expired     []ContractExpiryInfo  `json:"expired"`
	Summary     string                `json:"summary"`
}

// ExpiryPipeline monitors contract end dates, grounded on the contract
// status formula in spec.md §4.F plus field names confirmed against
// original_source/contracts-agent/app/services/contract.py and
// clause_extractor.py.
type ExpiryPipeline struct {
	Gateway      Gateway
	Orchestrator Orchestrator
	Notifier     Notifier
}

// NewExpiryPipeline wires a gateway, orchestrator and notifier into an
// ExpiryPipeline.
func NewExpiryPipeline(gw Gateway, orch Orchestrator, notif Notifier) *ExpiryPipeline {
	return &ExpiryPipeline{Gateway: gw, Orchestrator: orch, Notifier: notif}
}

const expirySystem = "You are an HR operations assistant. Given a list of contracts nearing or past " +
	"their end date as JSON, write one short actionable summary sentence. Respond with a JSON object " +
	`{"summary":"..."}.`

// Run gathers contracts in open states, derives each one's status against
// today, asks the orchestrator for a human-readable summary (falling back
// to a templated one), and dispatches contract.expiring / contract.expired
// alerts for every non-active contract.
func (p *ExpiryPipeline) Run(ctx context.Context, now time.Time) (*ExpiryResult, error) {
	contracts, err := p.Gateway.ReadContracts(ctx, []any{[]any{"state", "in", []string{"open", "close"}}}, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("pipelines: read contracts: %w", err)
	}

	var all, expiring, expired []ContractExpiryInfo
	for _, c := range contracts {
		endDate, ok := parseDate(c.EndDate)
		if !ok {
			continue
		}
		status, days := ContractStatus(endDate, now)
		info := ContractExpiryInfo{
			ContractID:      c.ID,
			Name:            c.Name,
			EmployeeName:    c.Employee.Name,
			EndDate:         c.EndDate,
			Status:          status,
			DaysUntilExpiry: days,
			Urgency:         notifier.ContractExpiryUrgency(days),
		}
		all = append(all, info)
		switch status {
		case "expiring_soon":
			expiring = append(expiring, info)
		case "expired":
			expired = append(expired, info)
		}
	}

	data := map[string]any{"expiring": expiring, "expired": expired}
	fallback := func() any { return templatedExpirySummary(expiring, expired) }
	raw, _ := p.Orchestrator.RunStructured(ctx, expiryPrompt, data, expirySystem, parseExpirySummary, fallback)
	summary := unwrapExpirySummary(raw)

	result := &ExpiryResult{GeneratedAt: now, Contracts: all, Expiring: expiring, Expired: expired, Summary: summary}

	for _, info := range expiring {
		p.Notifier.Dispatch(ctx, notifier.EventContractExpiring, info, nil, "", "")
	}
	for _, info := range expired {
		p.Notifier.Dispatch(ctx, notifier.EventContractExpired, info, nil, "", "")
	}

	return result, nil
}

const expiryPrompt = "Summarize these contracts that are expiring soon or have expired."

func parseExpirySummary(raw map[string]any) (any, error) {
	summary, ok := raw["summary"].(string)
	if !ok || summary == "" {
		return nil, fmt.Errorf("pipelines: missing summary")
	}
	return summary, nil
}

func unwrapExpirySummary(raw any) string {
	s, _ := raw.(string)
	return s
}

func templatedExpirySummary(expiring, expired []ContractExpiryInfo) string {
	return fmt.Sprintf("%d contract(s) expiring within %d days, %d already expired", len(expiring), ExpiringSoonWindowDays, len(expired))
}
