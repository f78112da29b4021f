package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/slotwise/booking-engine/internal/redisclient"
)

// ErrBookingInProgress is returned when another request currently holds the
// provider's booking lock; callers should retry shortly.
var ErrBookingInProgress = errors.New("another booking for this provider is in progress, please retry")

// Engine is the scheduling and booking core. It holds no durable state of its
// own; all shared state lives in the repository, so any number of engine
// instances may serve the same providers concurrently.
type Engine struct {
	repo   Repository
	locker redisclient.ProviderLocker
	log    zerolog.Logger

	// now is swappable in tests.
	now func() time.Time
}

func NewEngine(repo Repository, locker redisclient.ProviderLocker, log zerolog.Logger) *Engine {
	return &Engine{
		repo:   repo,
		locker: locker,
		log:    log,
		now:    time.Now,
	}
}

type CreateAppointmentInput struct {
	ProviderID uuid.UUID
	ServiceID  uuid.UUID
	CustomerID uuid.UUID
	Start      time.Time
	Notes      string
}

// CreateAppointment reserves an interval for a customer. The availability a
// caller saw earlier carries no guarantee: the interval is re-validated here,
// inside the store transaction, at the moment of booking. The Redis provider
// lock in front only sheds concurrent bookers early; the store transaction is
// what makes double booking impossible.
func (e *Engine) CreateAppointment(ctx context.Context, in CreateAppointmentInput) (*Appointment, error) {
	provider, svc, err := e.resolveTarget(ctx, in.ProviderID, in.ServiceID)
	if err != nil {
		return nil, err
	}

	if _, err := e.repo.GetCustomerByID(ctx, in.ProviderID, in.CustomerID); err != nil {
		if errors.Is(err, ErrCustomerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load customer: %w", err)
	}

	end := in.Start.Add(time.Duration(svc.DurationMin) * time.Minute)
	if !in.Start.Before(end) {
		return nil, ErrInvalidTimeRange
	}
	if err := e.checkSchedule(ctx, provider, in.Start, end); err != nil {
		return nil, err
	}

	var created *Appointment

	err = e.locker.WithProviderLock(ctx, provider.ID, func(lockCtx context.Context) error {
		appt := &Appointment{
			ID:         uuid.New(),
			ProviderID: provider.ID,
			CustomerID: in.CustomerID,
			ServiceID:  svc.ID,
			StartTime:  in.Start,
			EndTime:    end,
			Status:     StatusPending,
			Notes:      in.Notes,
			// Price snapshot: later price changes to the service must not
			// retroactively alter this appointment.
			PriceCents: svc.PriceCents,
			Currency:   svc.Currency,
		}

		saved, err := e.repo.CreateIfFree(lockCtx, appt)
		if err != nil {
			return err
		}
		created = saved
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingInProgress
		}
		return nil, err
	}

	e.log.Info().
		Str("appointment_id", created.ID.String()).
		Str("provider_id", created.ProviderID.String()).
		Time("start", created.StartTime).
		Time("end", created.EndTime).
		Msg("appointment created")

	return created, nil
}

// Confirm moves a pending appointment to confirmed.
func (e *Engine) Confirm(ctx context.Context, providerID, id uuid.UUID) (*Appointment, error) {
	appt, err := e.repo.GetAppointmentByID(ctx, providerID, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusPending {
		return nil, ErrInvalidTransition
	}
	return e.updateStatus(ctx, providerID, id, []AppointmentStatus{StatusPending}, StatusConfirmed, "")
}

// Complete is legal from any non-cancelled state.
func (e *Engine) Complete(ctx context.Context, providerID, id uuid.UUID) (*Appointment, error) {
	appt, err := e.repo.GetAppointmentByID(ctx, providerID, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == StatusCancelled {
		return nil, ErrInvalidTransition
	}
	from := []AppointmentStatus{StatusPending, StatusConfirmed, StatusCompleted}
	return e.updateStatus(ctx, providerID, id, from, StatusCompleted, "")
}

// Cancel is legal from any non-completed state. The reason is appended to the
// existing notes rather than replacing them.
func (e *Engine) Cancel(ctx context.Context, providerID, id uuid.UUID, reason string) (*Appointment, error) {
	appt, err := e.repo.GetAppointmentByID(ctx, providerID, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == StatusCompleted {
		return nil, ErrInvalidTransition
	}
	from := []AppointmentStatus{StatusPending, StatusConfirmed, StatusCancelled}
	return e.updateStatus(ctx, providerID, id, from, StatusCancelled, reason)
}

// Reschedule moves a non-terminal appointment to a new start, keeping its
// duration. The appointment's own record is excluded from the conflict set at
// the query level.
func (e *Engine) Reschedule(ctx context.Context, providerID, id uuid.UUID, newStart time.Time) (*Appointment, error) {
	appt, err := e.repo.GetAppointmentByID(ctx, providerID, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == StatusCompleted || appt.Status == StatusCancelled {
		return nil, ErrInvalidTransition
	}

	newEnd := newStart.Add(appt.EndTime.Sub(appt.StartTime))
	if !newStart.Before(newEnd) {
		return nil, ErrInvalidTimeRange
	}

	provider, err := e.repo.GetProviderByID(ctx, providerID)
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}
	if err := e.checkSchedule(ctx, provider, newStart, newEnd); err != nil {
		return nil, err
	}

	var moved *Appointment
	err = e.locker.WithProviderLock(ctx, providerID, func(lockCtx context.Context) error {
		m, err := e.repo.RescheduleIfFree(lockCtx, providerID, id, newStart, newEnd)
		if err != nil {
			return err
		}
		moved = m
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingInProgress
		}
		return nil, err
	}

	return moved, nil
}

func (e *Engine) GetAppointment(ctx context.Context, providerID, id uuid.UUID) (*Appointment, error) {
	return e.repo.GetAppointmentByID(ctx, providerID, id)
}

func (e *Engine) ListAppointments(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	if !from.Before(to) {
		return nil, ErrInvalidTimeRange
	}
	return e.repo.ListAppointments(ctx, providerID, from, to)
}

// SweepMissed flags appointments whose start time has passed while still
// pending or confirmed. Intended to be called periodically by the sweeper
// binary; this is a reporting concern and never blocks new bookings.
func (e *Engine) SweepMissed(ctx context.Context) (int, error) {
	now := e.now()
	candidates, err := e.repo.FindMissed(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("find missed appointments: %w", err)
	}

	marked := 0
	for _, appt := range candidates {
		if err := e.repo.MarkMissed(ctx, appt.ID, now); err != nil {
			e.log.Error().Err(err).
				Str("appointment_id", appt.ID.String()).
				Msg("failed to mark appointment missed")
			continue
		}
		marked++
	}

	return marked, nil
}

func (e *Engine) updateStatus(ctx context.Context, providerID, id uuid.UUID, from []AppointmentStatus, to AppointmentStatus, appendNotes string) (*Appointment, error) {
	updated, err := e.repo.UpdateStatus(ctx, providerID, id, from, to, appendNotes)
	if err != nil {
		// The CAS can miss if the status moved between our read and the
		// update; surface that as an illegal transition, not a missing row.
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}
	return updated, nil
}

// checkSchedule rejects intervals that fall outside the provider's working
// ranges on that date, including a duration that overflows past closing, and
// intervals colliding with a break.
func (e *Engine) checkSchedule(ctx context.Context, provider *Provider, start, end time.Time) error {
	cfg, err := e.resolveSchedule(ctx, provider)
	if err != nil {
		return err
	}

	day := cfg.ResolveDay(start)
	if !withinRanges(day, start, end) {
		return ErrInvalidTimeRange
	}
	if overlapsAny(start, end, day.Breaks) {
		return ErrSlotUnavailable
	}
	return nil
}

// resolveTarget loads the provider and service, enforcing that only active
// providers can be scheduled against and that the service exists, is active,
// and belongs to the provider.
func (e *Engine) resolveTarget(ctx context.Context, providerID, serviceID uuid.UUID) (*Provider, *Service, error) {
	provider, err := e.repo.GetProviderByID(ctx, providerID)
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("load provider: %w", err)
	}
	if !provider.Active {
		return nil, nil, ErrProviderInactive
	}

	svc, err := e.repo.GetActiveService(ctx, providerID, serviceID)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("load service: %w", err)
	}

	return provider, svc, nil
}

// resolveSchedule assembles the provider's schedule configuration, falling
// back to the system default when no working hours are configured at all.
func (e *Engine) resolveSchedule(ctx context.Context, provider *Provider) (ScheduleConfig, error) {
	hours, err := e.repo.GetWorkingHours(ctx, provider.ID)
	if err != nil {
		return ScheduleConfig{}, fmt.Errorf("load working hours: %w", err)
	}

	breaks, err := e.repo.GetBreakWindows(ctx, provider.ID)
	if err != nil {
		return ScheduleConfig{}, fmt.Errorf("load break windows: %w", err)
	}

	var cfg ScheduleConfig
	if len(hours) == 0 {
		cfg = DefaultScheduleConfig()
	} else {
		cfg.Hours = make(map[time.Weekday][]WorkingHours, len(hours))
		for _, wh := range hours {
			cfg.Hours[wh.Weekday] = append(cfg.Hours[wh.Weekday], wh)
		}
	}

	cfg.Breaks = breaks
	cfg.SlotIntervalMin = provider.SlotIntervalMin

	return cfg, nil
}
