package booking

import "time"

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect.  Back-to-back intervals, where one ends
// exactly when the other starts, do not overlap.  The SQL overlap query
// in the repository mirrors this predicate; keep the two in sync.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
