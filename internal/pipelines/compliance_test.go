package pipelines

import (
	"context"
	"testing"
	"time"

	"github.com/boarsvc/boar/internal/erp"
	"github.com/boarsvc/boar/internal/notifier"
)

func TestCompliancePipelineRunScoresAndDispatches(t *testing.T) {
	now := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)

	contracts := []erp.Contract{
		{ID: 1, Name: "Full", EndDate: "2027-01-01", Wage: 5000, State: "open", Employee: erp.Relation{ID: 1, Name: "Alice"}},
		{ID: 2, Name: "Incomplete", EndDate: "", Wage: 0, State: "open", Employee: erp.Relation{Empty: true}},
	}

	gw := &fakeGateway{contracts: contracts}
	notif := &fakeNotifier{}
	p := NewCompliancePipeline(gw, fakeOrchestrator{}, notif)

	result, err := p.Run(context.Background(), now)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.Contracts) != 2 {
		t.Fatalf("got %d records, want 2", len(result.Contracts))
	}

	full := result.Contracts[0]
	if full.Score != 100 {
		t.Errorf("Full contract score = %v, want 100", full.Score)
	}

	incomplete := result.Contracts[1]
	if incomplete.Score >= 100 {
		t.Errorf("Incomplete contract score = %v, want < 100", incomplete.Score)
	}

	alerts := 0
	for _, call := range notif.calls {
		if call.EventType == notifier.EventComplianceAlert {
			alerts++
		}
	}
	if alerts != 1 {
		t.Errorf("dispatched %d compliance.alert, want 1 (only the incomplete contract)", alerts)
	}
}

func TestChecklistForFlagsMissingFields(t *testing.T) {
	c := erp.Contract{EndDate: "", Wage: 0, State: "close", Employee: erp.Relation{Empty: true}}
	items := checklistFor(c)
	for _, it := range items {
		if it.Status == ComplianceCompliant {
			t.Errorf("item %q should not be compliant for an incomplete contract", it.Label)
		}
	}
}
