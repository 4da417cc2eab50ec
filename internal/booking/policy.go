package booking

import (
	"fmt"
	"time"
)

// Policy holds the office-hours and duration rules applied to every
// startTime/endTime pair before it reaches the Resolver.  The checks
// are pure functions of the input: the gate has no storage dependency
// and runs ahead of conflict resolution.
//
// OfficeStart and OfficeEnd are offsets from midnight of the UTC day a
// timestamp falls on; a booking must start and end on the same UTC day.
type Policy struct {
	OfficeStart time.Duration
	OfficeEnd   time.Duration
	MinDuration time.Duration
	MaxDuration time.Duration
}

// DefaultPolicy is the standard office policy: 08:00-20:00 UTC,
// meetings between ten minutes and twelve hours.
func DefaultPolicy() Policy {
	return Policy{
		OfficeStart: 8 * time.Hour,
		OfficeEnd:   20 * time.Hour,
		MinDuration: 10 * time.Minute,
		MaxDuration: 12 * time.Hour,
	}
}

// Validate checks a proposed interval against the policy.  now is
// passed in rather than read from the clock so the gate stays
// deterministic under test.  The returned error message is safe to
// show to clients.
func (p Policy) Validate(now, start, end time.Time) error {
	start, end = start.UTC(), end.UTC()
	if !end.After(start) {
		return fmt.Errorf("end time must be after start time")
	}
	if start.Before(now) {
		return fmt.Errorf("start time cannot be in the past")
	}
	startOffset := offsetIntoDay(start)
	if startOffset < p.OfficeStart || startOffset >= p.OfficeEnd {
		return fmt.Errorf("start time must be within office hours %s - %s", clock(p.OfficeStart), clock(p.OfficeEnd))
	}
	endOffset := offsetIntoDay(end)
	if endOffset < p.OfficeStart || endOffset > p.OfficeEnd {
		return fmt.Errorf("end time must be within office hours %s - %s", clock(p.OfficeStart), clock(p.OfficeEnd))
	}
	if !sameDay(start, end) {
		return fmt.Errorf("bookings must start and end on the same day")
	}
	d := end.Sub(start)
	if d < p.MinDuration {
		return fmt.Errorf("meeting duration must be at least %d minutes", int(p.MinDuration/time.Minute))
	}
	if d > p.MaxDuration {
		return fmt.Errorf("meeting duration cannot exceed %d hours", int(p.MaxDuration/time.Hour))
	}
	return nil
}

// offsetIntoDay returns how far t lies past midnight of its UTC day.
func offsetIntoDay(t time.Time) time.Duration {
	return t.Sub(t.Truncate(24 * time.Hour))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// clock renders an offset-from-midnight as HH:MM for error messages.
func clock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}
