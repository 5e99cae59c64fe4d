// Package pipelines implements the Analytical Pipelines (spec.md §4.F):
// overdue/bottleneck detection, contract expiry monitoring, compliance
// scoring, workload balancing, and scheduled productivity reports. Each of
// these five follows gather -> derive -> envelope -> RunStructured -> merge
// -> return, grounded per-pipeline on its matching original_source Python
// service, with metrics.go holding the derived-metric formulas shared
// across them (spec.md §4.F, verbatim). The milestone monitor in
// milestone.go is the exception: it has no RunStructured step.
package pipelines

import "time"

const (
	// DefaultWeeklyCapacityHours is an employee's assumed weekly bandwidth
	// when computing utilization (spec.md §4.F).
	DefaultWeeklyCapacityHours = 40.0

	// StageBottleneckThreshold: a non-closed stage holding more than this
	// share of open tasks is a bottleneck.
	StageBottleneckThreshold = 0.30

	// BlockedRatioThreshold: blocked/total exceeding this is concerning.
	BlockedRatioThreshold = 0.20

	// OverloadedUtilization / UnderutilizedUtilization bound the "balanced"
	// band for per-employee utilization.
	OverloadedUtilization    = 80.0
	UnderutilizedUtilization = 50.0

	// ExpiringSoonWindowDays is the lookahead window for "expiring_soon".
	ExpiringSoonWindowDays = 30
)

// UtilizationStatus classifies an employee's utilization percentage.
type UtilizationStatus string

const (
	StatusOverloaded    UtilizationStatus = "overloaded"
	StatusUnderutilized UtilizationStatus = "underutilized"
	StatusBalanced      UtilizationStatus = "balanced"
)

// Utilization computes remaining_hours / weekly_capacity * 100 and
// classifies the result. weeklyCapacity defaults to
// DefaultWeeklyCapacityHours when zero or negative.
func Utilization(remainingHours, weeklyCapacity float64) (percentage float64, status UtilizationStatus) {
	if weeklyCapacity <= 0 {
		weeklyCapacity = DefaultWeeklyCapacityHours
	}
	percentage = remainingHours / weeklyCapacity * 100

	switch {
	case percentage >= OverloadedUtilization:
		status = StatusOverloaded
	case percentage <= UnderutilizedUtilization:
		status = StatusUnderutilized
	default:
		status = StatusBalanced
	}
	return percentage, status
}

// IsStageBottleneck reports whether a stage holding taskCount of totalTasks
// open tasks counts as congested.
func IsStageBottleneck(taskCount, totalTasks int) bool {
	if totalTasks == 0 {
		return false
	}
	return float64(taskCount)/float64(totalTasks) > StageBottleneckThreshold
}

// BlockedRatio returns blocked/total (0 when total is 0) and whether that
// ratio is concerning.
func BlockedRatio(blocked, total int) (ratio float64, concerning bool) {
	if total == 0 {
		return 0, false
	}
	ratio = float64(blocked) / float64(total)
	return ratio, ratio > BlockedRatioThreshold
}

// BalanceScore computes max(0, 100 - variance(utilizations)); lower
// variance across the team means a higher score. An empty input scores 0
// (nothing to balance is reported, not "perfectly balanced").
func BalanceScore(utilizations []float64) float64 {
	if len(utilizations) == 0 {
		return 0
	}

	var sum float64
	for _, u := range utilizations {
		sum += u
	}
	avg := sum / float64(len(utilizations))

	var variance float64
	for _, u := range utilizations {
		d := u - avg
		variance += d * d
	}
	variance /= float64(len(utilizations))

	score := 100 - variance
	if score < 0 {
		score = 0
	}
	return score
}

// NeedsManagerAlert reports whether a team's workload distribution should
// trigger a manager-facing alert: a balance score below 50, or more than 2
// overloaded employees.
func NeedsManagerAlert(balanceScore float64, overloadedCount int) bool {
	return balanceScore < 50 || overloadedCount > 2
}

// OverdueSeverity classifies how many days past deadline a task is.
func OverdueSeverity(daysOverdue int) string {
	switch {
	case daysOverdue > 7:
		return "critical"
	case daysOverdue > 3:
		return "high"
	case daysOverdue > 1:
		return "medium"
	default:
		return "low"
	}
}

// ContractStatus classifies a contract's end date relative to today and
// returns the number of days until expiry (negative once expired).
func ContractStatus(endDate, today time.Time) (status string, daysUntilExpiry int) {
	daysUntilExpiry = int(endDate.Sub(today).Hours() / 24)

	switch {
	case daysUntilExpiry < 0:
		return "expired", daysUntilExpiry
	case daysUntilExpiry <= ExpiringSoonWindowDays:
		return "expiring_soon", daysUntilExpiry
	default:
		return "active", daysUntilExpiry
	}
}

// ComplianceScore is compliant_or_exempted_or_NA / total_items * 100; an
// empty checklist scores 100 (nothing to be non-compliant with).
func ComplianceScore(compliantOrExemptedOrNA, totalItems int) float64 {
	if totalItems == 0 {
		return 100
	}
	return float64(compliantOrExemptedOrNA) / float64(totalItems) * 100
}
