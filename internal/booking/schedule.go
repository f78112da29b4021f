package booking

import (
	"time"
)

const DefaultSlotIntervalMin = 30

// WorkingHours is one configured working range for a weekday, with the
// start and end stored as "HH:MM" wall-clock strings.
type WorkingHours struct {
	Weekday time.Weekday
	Start   string
	End     string
	Enabled bool
}

// BreakWindow is a recurring daily break, also in "HH:MM" form.
type BreakWindow struct {
	Start   string
	End     string
	Enabled bool
}

// ScheduleConfig is a provider's full schedule configuration, parsed once at
// the resolver boundary. A weekday may carry several working ranges.
type ScheduleConfig struct {
	Hours           map[time.Weekday][]WorkingHours
	Breaks          []BreakWindow
	SlotIntervalMin int
}

// DaySchedule is the configuration resolved onto a concrete date: absolute
// working ranges and break ranges plus the stepping granularity. A closed day
// has no ranges.
type DaySchedule struct {
	Ranges      []Interval
	Breaks      []Interval
	Granularity time.Duration
}

func (d DaySchedule) Closed() bool {
	return len(d.Ranges) == 0
}

// DefaultScheduleConfig is used when a provider has no working hours
// configured at all: Monday through Saturday 09:00-18:00, Sunday off.
func DefaultScheduleConfig() ScheduleConfig {
	hours := make(map[time.Weekday][]WorkingHours, 6)
	for wd := time.Monday; wd <= time.Saturday; wd++ {
		hours[wd] = []WorkingHours{{Weekday: wd, Start: "09:00", End: "18:00", Enabled: true}}
	}
	return ScheduleConfig{
		Hours:           hours,
		SlotIntervalMin: DefaultSlotIntervalMin,
	}
}

// ResolveDay projects the configuration onto a date. Malformed or disabled
// entries resolve to "closed" rather than an error: a misconfigured day must
// never report availability it does not have.
func (c ScheduleConfig) ResolveDay(date time.Time) DaySchedule {
	granularity := time.Duration(c.SlotIntervalMin) * time.Minute
	if granularity <= 0 {
		granularity = DefaultSlotIntervalMin * time.Minute
	}

	day := DaySchedule{Granularity: granularity}

	for _, wh := range c.Hours[date.Weekday()] {
		if !wh.Enabled {
			continue
		}
		r, ok := clockRange(date, wh.Start, wh.End)
		if !ok {
			continue
		}
		day.Ranges = append(day.Ranges, r)
	}

	for _, br := range c.Breaks {
		if !br.Enabled {
			continue
		}
		r, ok := clockRange(date, br.Start, br.End)
		if !ok {
			continue
		}
		day.Breaks = append(day.Breaks, r)
	}

	return day
}

// clockRange anchors an "HH:MM" pair on the given date. Empty or malformed
// values and inverted ranges report !ok.
func clockRange(date time.Time, startHM, endHM string) (Interval, bool) {
	start, ok := atClock(date, startHM)
	if !ok {
		return Interval{}, false
	}
	end, ok := atClock(date, endHM)
	if !ok {
		return Interval{}, false
	}
	if !start.Before(end) {
		return Interval{}, false
	}
	return Interval{Start: start, End: end}, true
}

func atClock(date time.Time, hm string) (time.Time, bool) {
	t, err := time.Parse("15:04", hm)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(
		date.Year(), date.Month(), date.Day(),
		t.Hour(), t.Minute(), 0, 0,
		date.Location(),
	), true
}
