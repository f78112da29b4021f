package booking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// GetAvailableSlots computes the bookable slots for a provider, service and
// date. Days with no enabled working range yield an empty list, not an error.
func (e *Engine) GetAvailableSlots(ctx context.Context, providerID, serviceID uuid.UUID, date time.Time) ([]TimeSlot, error) {
	provider, svc, err := e.resolveTarget(ctx, providerID, serviceID)
	if err != nil {
		return nil, err
	}

	cfg, err := e.resolveSchedule(ctx, provider)
	if err != nil {
		return nil, err
	}

	day := cfg.ResolveDay(date)
	if day.Closed() {
		return []TimeSlot{}, nil
	}

	// One fetch of the day's occupied intervals; candidates are then filtered
	// in memory so the cost stays linear in the number of candidates.
	dayStart := startOfDay(date)
	taken, err := e.repo.FindActiveInRange(ctx, providerID, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("load active appointments: %w", err)
	}

	duration := time.Duration(svc.DurationMin) * time.Minute
	return buildSlots(day, duration, taken), nil
}

// GetWeeklyAvailableSlots returns seven daily availability results starting
// today in the given location.
func (e *Engine) GetWeeklyAvailableSlots(ctx context.Context, providerID, serviceID uuid.UUID, loc *time.Location) ([]DayAvailability, error) {
	if loc == nil {
		loc = time.UTC
	}

	provider, svc, err := e.resolveTarget(ctx, providerID, serviceID)
	if err != nil {
		return nil, err
	}

	cfg, err := e.resolveSchedule(ctx, provider)
	if err != nil {
		return nil, err
	}

	duration := time.Duration(svc.DurationMin) * time.Minute
	today := startOfDay(e.now().In(loc))

	week := make([]DayAvailability, 0, 7)
	for i := 0; i < 7; i++ {
		date := today.AddDate(0, 0, i)
		entry := DayAvailability{Date: date, Slots: []TimeSlot{}}

		day := cfg.ResolveDay(date)
		if !day.Closed() {
			taken, err := e.repo.FindActiveInRange(ctx, providerID, date, date.AddDate(0, 0, 1))
			if err != nil {
				return nil, fmt.Errorf("load active appointments: %w", err)
			}
			entry.Slots = buildSlots(day, duration, taken)
		}

		week = append(week, entry)
	}

	return week, nil
}

// IsSlotAvailable reports whether a booking starting at the given time would
// currently succeed: inside an enabled working range, clear of breaks, and
// clear of active appointments.
func (e *Engine) IsSlotAvailable(ctx context.Context, providerID, serviceID uuid.UUID, start time.Time) (bool, error) {
	provider, svc, err := e.resolveTarget(ctx, providerID, serviceID)
	if err != nil {
		return false, err
	}

	cfg, err := e.resolveSchedule(ctx, provider)
	if err != nil {
		return false, err
	}

	end := start.Add(time.Duration(svc.DurationMin) * time.Minute)
	if !start.Before(end) {
		return false, ErrInvalidTimeRange
	}

	day := cfg.ResolveDay(start)
	if !fitsSchedule(day, start, end) {
		return false, nil
	}

	conflicts, err := e.repo.FindConflicting(ctx, providerID, start, end, nil)
	if err != nil {
		return false, fmt.Errorf("check conflicts: %w", err)
	}

	return len(conflicts) == 0, nil
}

// buildSlots enumerates candidate starts for each working range and keeps
// the ones that end no later than the range close and collide with neither a
// break nor an occupied interval. Candidates are the granularity grid from
// the range open, plus boundary-aligned starts at break ends, occupied
// interval ends, and the range close minus the duration, so the calendar can
// resume right after a busy stretch and the day's final slot may end exactly
// at closing time. The grid cursor itself always advances by the granularity
// whether or not a candidate survived.
func buildSlots(day DaySchedule, duration time.Duration, taken []Interval) []TimeSlot {
	slots := []TimeSlot{}
	if duration <= 0 {
		return slots
	}

	for _, r := range day.Ranges {
		for _, t := range candidateStarts(r, day, duration, taken) {
			slotEnd := t.Add(duration)
			if overlapsAny(t, slotEnd, day.Breaks) {
				continue
			}
			if overlapsAny(t, slotEnd, taken) {
				continue
			}
			slots = append(slots, TimeSlot{Start: t, End: slotEnd, Available: true})
		}
	}

	return slots
}

// candidateStarts returns the sorted, deduplicated starts to try within a
// working range.
func candidateStarts(r Interval, day DaySchedule, duration time.Duration, taken []Interval) []time.Time {
	var starts []time.Time

	for t := r.Start; !t.Add(duration).After(r.End); t = t.Add(day.Granularity) {
		starts = append(starts, t)
	}

	add := func(t time.Time) {
		if t.Before(r.Start) || t.Add(duration).After(r.End) {
			return
		}
		starts = append(starts, t)
	}
	for _, b := range day.Breaks {
		add(b.End)
	}
	for _, iv := range taken {
		add(iv.End)
	}
	add(r.End.Add(-duration))

	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	dedup := starts[:0]
	for i, t := range starts {
		if i == 0 || !t.Equal(dedup[len(dedup)-1]) {
			dedup = append(dedup, t)
		}
	}
	return dedup
}

func fitsSchedule(day DaySchedule, start, end time.Time) bool {
	return withinRanges(day, start, end) && !overlapsAny(start, end, day.Breaks)
}

// withinRanges reports whether [start, end) lies inside one of the day's
// working ranges.
func withinRanges(day DaySchedule, start, end time.Time) bool {
	for _, r := range day.Ranges {
		if !start.Before(r.Start) && !end.After(r.End) {
			return true
		}
	}
	return false
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
