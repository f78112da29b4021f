package booking

import (
	"testing"
	"time"
)

func at(t *testing.T, hm string) time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02 15:04", "2026-03-02 "+hm)
	if err != nil {
		t.Fatalf("parse %q: %v", hm, err)
	}
	return parsed
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name                           string
		aStart, aEnd, bStart, bEnd     string
		want                           bool
	}{
		{"identical", "10:00", "11:00", "10:00", "11:00", true},
		{"contained", "10:00", "11:00", "10:15", "10:45", true},
		{"partial front", "10:00", "11:00", "09:30", "10:30", true},
		{"partial back", "10:00", "11:00", "10:30", "11:30", true},
		{"touching before", "10:00", "11:00", "09:00", "10:00", false},
		{"touching after", "10:00", "11:00", "11:00", "12:00", false},
		{"disjoint", "10:00", "11:00", "13:00", "14:00", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overlaps(at(t, tt.aStart), at(t, tt.aEnd), at(t, tt.bStart), at(t, tt.bEnd))
			if got != tt.want {
				t.Fatalf("Overlaps(%s-%s, %s-%s) = %v, want %v",
					tt.aStart, tt.aEnd, tt.bStart, tt.bEnd, got, tt.want)
			}

			// The predicate is symmetric: swapping the intervals must never
			// change the answer.
			swapped := Overlaps(at(t, tt.bStart), at(t, tt.bEnd), at(t, tt.aStart), at(t, tt.aEnd))
			if swapped != got {
				t.Fatalf("Overlaps is not symmetric for %s", tt.name)
			}
		})
	}
}

func TestOverlapsAny(t *testing.T) {
	taken := []Interval{
		{Start: at(t, "10:00"), End: at(t, "10:45")},
		{Start: at(t, "14:00"), End: at(t, "15:00")},
	}

	if !overlapsAny(at(t, "09:30"), at(t, "10:15"), taken) {
		t.Fatal("expected overlap with 10:00-10:45")
	}
	if overlapsAny(at(t, "10:45"), at(t, "11:30"), taken) {
		t.Fatal("slot starting at an existing end must not conflict")
	}
	if overlapsAny(at(t, "09:00"), at(t, "09:45"), nil) {
		t.Fatal("empty conflict set must never conflict")
	}
}
