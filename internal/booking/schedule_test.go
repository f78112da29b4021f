package booking

import (
	"testing"
	"time"
)

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func TestDefaultScheduleConfig(t *testing.T) {
	cfg := DefaultScheduleConfig()

	for wd := time.Monday; wd <= time.Saturday; wd++ {
		day := cfg.ResolveDay(monday.AddDate(0, 0, int(wd-time.Monday)))
		if day.Closed() {
			t.Fatalf("default schedule: %s should be open", wd)
		}
		if len(day.Ranges) != 1 {
			t.Fatalf("default schedule: %s has %d ranges, want 1", wd, len(day.Ranges))
		}
		r := day.Ranges[0]
		if r.Start.Hour() != 9 || r.End.Hour() != 18 {
			t.Fatalf("default schedule: %s range %v-%v, want 09:00-18:00", wd, r.Start, r.End)
		}
	}

	sunday := monday.AddDate(0, 0, 6)
	if !cfg.ResolveDay(sunday).Closed() {
		t.Fatal("default schedule: Sunday should be closed")
	}
}

func TestResolveDayDisabledAndMissingWeekdays(t *testing.T) {
	cfg := ScheduleConfig{
		Hours: map[time.Weekday][]WorkingHours{
			time.Monday:  {{Weekday: time.Monday, Start: "09:00", End: "17:00", Enabled: false}},
			time.Tuesday: {{Weekday: time.Tuesday, Start: "09:00", End: "17:00", Enabled: true}},
		},
	}

	if !cfg.ResolveDay(monday).Closed() {
		t.Fatal("disabled weekday must resolve to closed")
	}
	if cfg.ResolveDay(monday.AddDate(0, 0, 1)).Closed() {
		t.Fatal("enabled weekday must resolve to open")
	}
	if !cfg.ResolveDay(monday.AddDate(0, 0, 2)).Closed() {
		t.Fatal("unconfigured weekday must resolve to closed")
	}
}

func TestResolveDayMalformedHoursFailSafe(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
	}{
		{"garbage start", "not-a-time", "17:00"},
		{"garbage end", "09:00", "25:99"},
		{"empty start", "", "17:00"},
		{"empty end", "09:00", ""},
		{"inverted", "17:00", "09:00"},
		{"zero width", "09:00", "09:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := ScheduleConfig{
				Hours: map[time.Weekday][]WorkingHours{
					time.Monday: {{Weekday: time.Monday, Start: tt.start, End: tt.end, Enabled: true}},
				},
			}
			if !cfg.ResolveDay(monday).Closed() {
				t.Fatalf("malformed hours (%q, %q) must resolve to closed, not open", tt.start, tt.end)
			}
		})
	}
}

func TestResolveDayDropsBadBreaks(t *testing.T) {
	cfg := ScheduleConfig{
		Hours: map[time.Weekday][]WorkingHours{
			time.Monday: {{Weekday: time.Monday, Start: "09:00", End: "18:00", Enabled: true}},
		},
		Breaks: []BreakWindow{
			{Start: "12:00", End: "13:00", Enabled: true},
			{Start: "broken", End: "15:00", Enabled: true},
			{Start: "15:00", End: "16:00", Enabled: false},
		},
	}

	day := cfg.ResolveDay(monday)
	if len(day.Breaks) != 1 {
		t.Fatalf("got %d breaks, want 1 (malformed and disabled entries dropped)", len(day.Breaks))
	}
	if day.Breaks[0].Start.Hour() != 12 || day.Breaks[0].End.Hour() != 13 {
		t.Fatalf("kept break %v-%v, want 12:00-13:00", day.Breaks[0].Start, day.Breaks[0].End)
	}
}

func TestResolveDayGranularityDefault(t *testing.T) {
	cfg := ScheduleConfig{
		Hours: map[time.Weekday][]WorkingHours{
			time.Monday: {{Weekday: time.Monday, Start: "09:00", End: "18:00", Enabled: true}},
		},
	}

	for _, interval := range []int{0, -15} {
		cfg.SlotIntervalMin = interval
		day := cfg.ResolveDay(monday)
		if day.Granularity != 30*time.Minute {
			t.Fatalf("SlotIntervalMin=%d: granularity = %s, want 30m", interval, day.Granularity)
		}
	}

	cfg.SlotIntervalMin = 15
	if got := cfg.ResolveDay(monday).Granularity; got != 15*time.Minute {
		t.Fatalf("granularity = %s, want 15m", got)
	}
}

func TestResolveDayMultipleRanges(t *testing.T) {
	cfg := ScheduleConfig{
		Hours: map[time.Weekday][]WorkingHours{
			time.Monday: {
				{Weekday: time.Monday, Start: "09:00", End: "12:00", Enabled: true},
				{Weekday: time.Monday, Start: "14:00", End: "18:00", Enabled: true},
			},
		},
	}

	day := cfg.ResolveDay(monday)
	if len(day.Ranges) != 2 {
		t.Fatalf("got %d ranges, want 2", len(day.Ranges))
	}
	if day.Ranges[0].End.Hour() != 12 || day.Ranges[1].Start.Hour() != 14 {
		t.Fatalf("unexpected ranges: %+v", day.Ranges)
	}
}

func TestResolveDayAnchorsOnDate(t *testing.T) {
	cfg := DefaultScheduleConfig()
	day := cfg.ResolveDay(monday)

	want := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if !day.Ranges[0].Start.Equal(want) {
		t.Fatalf("range start = %v, want %v", day.Ranges[0].Start, want)
	}
}
