package booking

import "time"

// Overlaps is the single half-open interval test used everywhere a conflict
// decision is made: availability filtering, booking re-validation, and the
// SQL conflict queries all apply this exact predicate, so they can never
// disagree about what counts as a collision. [a1, a2) overlaps [b1, b2) when
// a1 < b2 and a2 > b1; touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

func overlapsAny(start, end time.Time, taken []Interval) bool {
	for _, iv := range taken {
		if Overlaps(start, end, iv.Start, iv.End) {
			return true
		}
	}
	return false
}
