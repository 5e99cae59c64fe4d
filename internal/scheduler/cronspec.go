package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// nextCronFire computes the first whole minute strictly after `after` that
// spec (a standard 5-field "minute hour dom month dow" expression) matches,
// in loc.
// hardloop runs a cron job but exposes no next-fire query, so List's
// introspection needs this independently; there is no parser for this in
// the pack (cron next-fire computation is not a concern any example repo's
// third-party stack covers), so it is hand-rolled stdlib by necessity.
func nextCronFire(spec string, after time.Time, loc *time.Location) (time.Time, error) {
	fields := strings.Fields(spec)
	if len(fields) != 5 {
		return time.Time{}, fmt.Errorf("cronspec: expected 5 fields, got %d in %q", len(fields), spec)
	}
	minuteField, hourField, domField, monthField, dowField := fields[0], fields[1], fields[2], fields[3], fields[4]

	t := after.In(loc).Add(time.Minute).Truncate(time.Minute)
	const searchHorizon = 366 * 24 * 60 // one year of minutes
	for i := 0; i < searchHorizon; i++ {
		if matchCronField(monthField, int(t.Month()), 1, 12) &&
			matchCronField(domField, t.Day(), 1, 31) &&
			matchCronField(dowField, int(t.Weekday()), 0, 6) &&
			matchCronField(hourField, t.Hour(), 0, 23) &&
			matchCronField(minuteField, t.Minute(), 0, 59) {
			return t, nil
		}
		t = t.Add(time.Minute)
	}
	return time.Time{}, fmt.Errorf("cronspec: no match for %q within a year of %s", spec, after)
}

// matchCronField reports whether value satisfies one field of a cron spec,
// supporting "*", "*/step", comma-separated lists, and plain integers —
// the subset used by the default schedule catalog (spec.md §4.C).
func matchCronField(field string, value, min, max int) bool {
	for _, part := range strings.Split(field, ",") {
		switch {
		case part == "*":
			return true
		case strings.HasPrefix(part, "*/"):
			step, err := strconv.Atoi(part[2:])
			if err == nil && step > 0 && (value-min)%step == 0 {
				return true
			}
		default:
			if n, err := strconv.Atoi(part); err == nil && n == value {
				return true
			}
		}
	}
	return false
}
