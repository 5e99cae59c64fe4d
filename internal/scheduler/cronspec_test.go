package scheduler

import (
	"testing"
	"time"
)

func TestNextCronFireEveryFifteenMinutes(t *testing.T) {
	loc := time.UTC
	after := time.Date(2026, 7, 30, 10, 7, 0, 0, loc)

	next, err := nextCronFire("*/15 * * * *", after, loc)
	if err != nil {
		t.Fatalf("nextCronFire: %v", err)
	}
	want := time.Date(2026, 7, 30, 10, 15, 0, 0, loc)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestNextCronFireDailyAtSpecificHour(t *testing.T) {
	loc := time.UTC
	after := time.Date(2026, 7, 30, 8, 0, 0, 0, loc) // past 07:00 today

	next, err := nextCronFire("0 7 * * *", after, loc)
	if err != nil {
		t.Fatalf("nextCronFire: %v", err)
	}
	want := time.Date(2026, 7, 31, 7, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestNextCronFireWeeklyOnMonday(t *testing.T) {
	loc := time.UTC
	// 2026-07-30 is a Thursday.
	after := time.Date(2026, 7, 30, 9, 0, 0, 0, loc)

	next, err := nextCronFire("0 8 * * 1", after, loc)
	if err != nil {
		t.Fatalf("nextCronFire: %v", err)
	}
	if next.Weekday() != time.Monday {
		t.Errorf("Weekday = %v, want Monday", next.Weekday())
	}
	if next.Hour() != 8 || next.Minute() != 0 {
		t.Errorf("time = %02d:%02d, want 08:00", next.Hour(), next.Minute())
	}
}

func TestNextCronFireEverySixHours(t *testing.T) {
	loc := time.UTC
	after := time.Date(2026, 7, 30, 7, 0, 0, 0, loc)

	next, err := nextCronFire("0 */6 * * *", after, loc)
	if err != nil {
		t.Fatalf("nextCronFire: %v", err)
	}
	want := time.Date(2026, 7, 30, 12, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}
}

func TestMatchCronFieldWildcardAndStep(t *testing.T) {
	if !matchCronField("*", 37, 0, 59) {
		t.Error("* should match any value")
	}
	if !matchCronField("*/15", 45, 0, 59) {
		t.Error("*/15 should match 45")
	}
	if matchCronField("*/15", 7, 0, 59) {
		t.Error("*/15 should not match 7")
	}
	if !matchCronField("1,3,5", 3, 0, 6) {
		t.Error("list field should match a listed value")
	}
	if matchCronField("1,3,5", 2, 0, 6) {
		t.Error("list field should not match an unlisted value")
	}
}

func TestNextCronFireRejectsMalformedSpec(t *testing.T) {
	if _, err := nextCronFire("not a spec", time.Now(), time.UTC); err == nil {
		t.Fatal("expected error for malformed spec")
	}
}
