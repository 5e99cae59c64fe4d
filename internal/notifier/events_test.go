package notifier

import "testing"

func TestContractExpiryUrgency(t *testing.T) {
	tests := []struct {
		days int
		want Urgency
	}{
		{-1, UrgencyCritical},
		{0, UrgencyCritical},
		{7, UrgencyCritical},
		{8, UrgencyHigh},
		{14, UrgencyHigh},
		{15, UrgencyMedium},
		{30, UrgencyMedium},
		{31, UrgencyLow},
		{365, UrgencyLow},
	}

	for _, tt := range tests {
		if got := ContractExpiryUrgency(tt.days); got != tt.want {
			t.Errorf("ContractExpiryUrgency(%d) = %v, want %v", tt.days, got, tt.want)
		}
	}
}

func TestMilestoneUrgency(t *testing.T) {
	tests := []struct {
		days int
		want Urgency
	}{
		{-5, UrgencyCritical},
		{-1, UrgencyCritical},
		{0, UrgencyHigh},
		{1, UrgencyHigh},
		{2, UrgencyMedium},
		{3, UrgencyMedium},
		{4, UrgencyLow},
		{30, UrgencyLow},
	}

	for _, tt := range tests {
		if got := MilestoneUrgency(tt.days); got != tt.want {
			t.Errorf("MilestoneUrgency(%d) = %v, want %v", tt.days, got, tt.want)
		}
	}
}

func TestRouteFor(t *testing.T) {
	tests := []struct {
		event string
		want  Routing
	}{
		{EventContractExpiring, Routing{Webhook: ChannelContractExpiry}},
		{EventReportReady, Routing{Webhook: ChannelReport, EmailManagers: true}},
		{EventTaskOverdue, Routing{Webhook: ChannelOverdue, EmailPerUser: true}},
		{"alert.budget_overrun", Routing{Webhook: ChannelManager, EmailManagers: true}},
		{"alert.", Routing{Webhook: ChannelManager, EmailManagers: true}},
		{"unknown.event", Routing{}},
	}

	for _, tt := range tests {
		if got := RouteFor(tt.event); got != tt.want {
			t.Errorf("RouteFor(%q) = %+v, want %+v", tt.event, got, tt.want)
		}
	}
}

func TestNewEnvelope(t *testing.T) {
	env := NewEnvelope(EventTaskOverdue, "boar", map[string]int{"task_id": 1})

	if env.EventType != EventTaskOverdue {
		t.Errorf("EventType = %q, want %q", env.EventType, EventTaskOverdue)
	}
	if env.Source != "boar" {
		t.Errorf("Source = %q, want boar", env.Source)
	}
	if env.Timestamp.IsZero() {
		t.Error("Timestamp should be stamped, not zero")
	}
	if env.Data == nil {
		t.Error("Data should not be nil")
	}
}
