package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	testProviderID = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testServiceID  = uuid.MustParse("22222222-2222-2222-2222-222222222222")
	testCustomerID = uuid.MustParse("33333333-3333-3333-3333-333333333333")
)

func newTestEngine(repo Repository) *Engine {
	return NewEngine(repo, passLocker{}, zerolog.Nop())
}

// availabilityRepo builds a fake with a standard active provider (granularity
// 30), a 45-minute service, Monday-Saturday 09:00-18:00 hours, and the given
// breaks and occupied intervals.
func availabilityRepo(breaks []BreakWindow, taken []Interval) *fakeRepo {
	hours := make([]WorkingHours, 0, 6)
	for wd := time.Monday; wd <= time.Saturday; wd++ {
		hours = append(hours, WorkingHours{Weekday: wd, Start: "09:00", End: "18:00", Enabled: true})
	}

	return &fakeRepo{
		getProviderByID: func(ctx context.Context, id uuid.UUID) (*Provider, error) {
			return &Provider{ID: id, Name: "Test Provider", Active: true, SlotIntervalMin: 30}, nil
		},
		getActiveService: func(ctx context.Context, providerID, serviceID uuid.UUID) (*Service, error) {
			return &Service{
				ID:          serviceID,
				ProviderID:  providerID,
				Name:        "Test Service",
				DurationMin: 45,
				PriceCents:  5000,
				Currency:    "USD",
				Active:      true,
			}, nil
		},
		getWorkingHours: func(ctx context.Context, providerID uuid.UUID) ([]WorkingHours, error) {
			return hours, nil
		},
		getBreakWindows: func(ctx context.Context, providerID uuid.UUID) ([]BreakWindow, error) {
			return breaks, nil
		},
		findActiveInRange: func(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Interval, error) {
			return taken, nil
		},
	}
}

func slotStarts(slots []TimeSlot) map[string]bool {
	starts := make(map[string]bool, len(slots))
	for _, s := range slots {
		starts[s.Start.Format("15:04")] = true
	}
	return starts
}

func TestGetAvailableSlotsFullDay(t *testing.T) {
	engine := newTestEngine(availabilityRepo(nil, nil))

	slots, err := engine.GetAvailableSlots(context.Background(), testProviderID, testServiceID, monday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("expected slots on an open day")
	}

	first := slots[0]
	if !first.Start.Equal(at(t, "09:00")) || !first.End.Equal(at(t, "09:45")) {
		t.Fatalf("first slot = %v-%v, want 09:00-09:45", first.Start, first.End)
	}
	if !slots[1].Start.Equal(at(t, "09:30")) {
		t.Fatalf("second slot starts %v, want 09:30", slots[1].Start)
	}

	last := slots[len(slots)-1]
	if !last.Start.Equal(at(t, "17:15")) || !last.End.Equal(at(t, "18:00")) {
		t.Fatalf("last slot = %v-%v, want 17:15-18:00 (may end exactly at closing)", last.Start, last.End)
	}

	for _, s := range slots {
		if !s.Start.Before(at(t, "17:30")) {
			t.Fatalf("slot starting %v is at or after 17:30", s.Start)
		}
		if s.Start.Before(at(t, "09:00")) || s.End.After(at(t, "18:00")) {
			t.Fatalf("slot %v-%v escapes working hours", s.Start, s.End)
		}
		if !s.Available {
			t.Fatalf("returned slot %v marked unavailable", s.Start)
		}
	}

	for i := 1; i < len(slots); i++ {
		if !slots[i-1].Start.Before(slots[i].Start) {
			t.Fatalf("slots out of order at index %d", i)
		}
	}
}

func TestGetAvailableSlotsSkipsBreaks(t *testing.T) {
	breaks := []BreakWindow{{Start: "12:00", End: "13:00", Enabled: true}}
	engine := newTestEngine(availabilityRepo(breaks, nil))

	slots, err := engine.GetAvailableSlots(context.Background(), testProviderID, testServiceID, monday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	breakStart, breakEnd := at(t, "12:00"), at(t, "13:00")
	for _, s := range slots {
		if Overlaps(s.Start, s.End, breakStart, breakEnd) {
			t.Fatalf("slot %v-%v overlaps the break", s.Start, s.End)
		}
	}

	starts := slotStarts(slots)
	if starts["11:30"] {
		t.Fatal("slot starting 11:30 (ending 12:15) must be excluded")
	}
	if !starts["13:00"] {
		t.Fatal("slot starting 13:00 must be included")
	}
}

func TestGetAvailableSlotsSkipsBookedIntervals(t *testing.T) {
	taken := []Interval{{Start: at(t, "10:00"), End: at(t, "10:45")}}
	engine := newTestEngine(availabilityRepo(nil, taken))

	slots, err := engine.GetAvailableSlots(context.Background(), testProviderID, testServiceID, monday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	starts := slotStarts(slots)
	if starts["09:30"] {
		t.Fatal("slot starting 09:30 (ending 10:15) must be excluded")
	}
	if starts["10:00"] {
		t.Fatal("slot starting 10:00 must be excluded")
	}
	if !starts["09:00"] {
		t.Fatal("slot starting 09:00 must remain")
	}
	if !starts["10:45"] {
		t.Fatal("slot starting 10:45, right after the booked interval, must remain")
	}
}

func TestGetAvailableSlotsClosedDayIsEmptyNotError(t *testing.T) {
	engine := newTestEngine(availabilityRepo(nil, nil))

	sunday := monday.AddDate(0, 0, 6)
	slots, err := engine.GetAvailableSlots(context.Background(), testProviderID, testServiceID, sunday)
	if err != nil {
		t.Fatalf("closed day must not error, got: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("closed day returned %d slots, want 0", len(slots))
	}
}

func TestGetAvailableSlotsUsesDefaultsWhenUnconfigured(t *testing.T) {
	repo := availabilityRepo(nil, nil)
	repo.getWorkingHours = func(ctx context.Context, providerID uuid.UUID) ([]WorkingHours, error) {
		return nil, nil
	}
	engine := newTestEngine(repo)

	slots, err := engine.GetAvailableSlots(context.Background(), testProviderID, testServiceID, monday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("default schedule should open Monday")
	}

	sunday := monday.AddDate(0, 0, 6)
	slots, err = engine.GetAvailableSlots(context.Background(), testProviderID, testServiceID, sunday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatal("default schedule should close Sunday")
	}
}

func TestGetAvailableSlotsDurationDoesNotFit(t *testing.T) {
	repo := availabilityRepo(nil, nil)
	repo.getWorkingHours = func(ctx context.Context, providerID uuid.UUID) ([]WorkingHours, error) {
		return []WorkingHours{{Weekday: time.Monday, Start: "09:00", End: "09:30", Enabled: true}}, nil
	}
	engine := newTestEngine(repo)

	slots, err := engine.GetAvailableSlots(context.Background(), testProviderID, testServiceID, monday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("45m service in a 30m range returned %d slots, want 0", len(slots))
	}
}

func TestGetAvailableSlotsIdempotent(t *testing.T) {
	taken := []Interval{{Start: at(t, "10:00"), End: at(t, "10:45")}}
	engine := newTestEngine(availabilityRepo(nil, taken))

	first, err := engine.GetAvailableSlots(context.Background(), testProviderID, testServiceID, monday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := engine.GetAvailableSlots(context.Background(), testProviderID, testServiceID, monday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("slot counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Start.Equal(second[i].Start) || !first[i].End.Equal(second[i].End) {
			t.Fatalf("slot %d differs between identical queries", i)
		}
	}
}

func TestGetAvailableSlotsServiceNotFound(t *testing.T) {
	repo := availabilityRepo(nil, nil)
	repo.getActiveService = func(ctx context.Context, providerID, serviceID uuid.UUID) (*Service, error) {
		return nil, ErrServiceNotFound
	}
	engine := newTestEngine(repo)

	_, err := engine.GetAvailableSlots(context.Background(), testProviderID, testServiceID, monday)
	if !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("err = %v, want ErrServiceNotFound", err)
	}
}

func TestGetAvailableSlotsProviderInactive(t *testing.T) {
	repo := availabilityRepo(nil, nil)
	repo.getProviderByID = func(ctx context.Context, id uuid.UUID) (*Provider, error) {
		return &Provider{ID: id, Active: false}, nil
	}
	engine := newTestEngine(repo)

	_, err := engine.GetAvailableSlots(context.Background(), testProviderID, testServiceID, monday)
	if !errors.Is(err, ErrProviderInactive) {
		t.Fatalf("err = %v, want ErrProviderInactive", err)
	}
}

func TestGetWeeklyAvailableSlots(t *testing.T) {
	engine := newTestEngine(availabilityRepo(nil, nil))
	engine.now = func() time.Time { return monday.Add(8 * time.Hour) }

	week, err := engine.GetWeeklyAvailableSlots(context.Background(), testProviderID, testServiceID, time.UTC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(week) != 7 {
		t.Fatalf("got %d days, want 7", len(week))
	}

	for i, day := range week {
		want := monday.AddDate(0, 0, i)
		if !day.Date.Equal(want) {
			t.Fatalf("day %d date = %v, want %v", i, day.Date, want)
		}
	}

	// Monday through Saturday open, Sunday (last entry) closed.
	for i := 0; i < 6; i++ {
		if len(week[i].Slots) == 0 {
			t.Fatalf("day %d should have slots", i)
		}
	}
	if len(week[6].Slots) != 0 {
		t.Fatalf("Sunday should have no slots, got %d", len(week[6].Slots))
	}
}

func TestIsSlotAvailable(t *testing.T) {
	taken := []Interval{{Start: at(t, "10:00"), End: at(t, "10:45")}}
	repo := availabilityRepo([]BreakWindow{{Start: "12:00", End: "13:00", Enabled: true}}, nil)
	repo.findConflicting = func(ctx context.Context, providerID uuid.UUID, start, end time.Time, exclude *uuid.UUID) ([]Interval, error) {
		if exclude != nil {
			t.Fatal("availability check must not exclude any appointment")
		}
		var hits []Interval
		for _, iv := range taken {
			if Overlaps(start, end, iv.Start, iv.End) {
				hits = append(hits, iv)
			}
		}
		return hits, nil
	}
	engine := newTestEngine(repo)

	tests := []struct {
		name  string
		start string
		want  bool
	}{
		{"free mid-morning", "11:00", true},
		{"conflicts with booking", "10:30", false},
		{"overlaps break", "12:30", false},
		{"before opening", "08:00", false},
		{"runs past closing", "17:30", false},
		{"ends exactly at closing", "17:15", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.IsSlotAvailable(context.Background(), testProviderID, testServiceID, at(t, tt.start))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("IsSlotAvailable(%s) = %v, want %v", tt.start, got, tt.want)
			}
		})
	}
}
