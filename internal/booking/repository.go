package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrProviderNotFound    = errors.New("provider not found")
	ErrProviderInactive    = errors.New("provider is not active")
	ErrServiceNotFound     = errors.New("service not found")
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrSlotUnavailable     = errors.New("slot is no longer available")
	ErrInvalidTimeRange    = errors.New("end time must be after start time")
	ErrInvalidTransition   = errors.New("invalid status transition")
)

// Repository contains all store interactions needed by the engine.
type Repository interface {
	GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	// GetActiveService resolves a service that exists, is active, and belongs
	// to the provider; anything else is ErrServiceNotFound.
	GetActiveService(ctx context.Context, providerID, serviceID uuid.UUID) (*Service, error)
	GetCustomerByID(ctx context.Context, providerID, customerID uuid.UUID) (*Customer, error)

	GetWorkingHours(ctx context.Context, providerID uuid.UUID) ([]WorkingHours, error)
	GetBreakWindows(ctx context.Context, providerID uuid.UUID) ([]BreakWindow, error)

	// FindActiveInRange returns the occupied intervals of pending or confirmed
	// appointments overlapping [from, to), ordered by start time.
	FindActiveInRange(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Interval, error)
	// FindConflicting returns active intervals overlapping [start, end) using
	// the same predicate as Overlaps. A non-nil exclude drops that appointment
	// from the conflict set at the query level.
	FindConflicting(ctx context.Context, providerID uuid.UUID, start, end time.Time, exclude *uuid.UUID) ([]Interval, error)

	GetAppointmentByID(ctx context.Context, providerID, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, providerID uuid.UUID, from, to time.Time) ([]Appointment, error)

	// CreateIfFree atomically re-checks the appointment's interval and inserts
	// it. The conflict check and the insert share one transaction scope; a
	// collision reports ErrSlotUnavailable with nothing written.
	CreateIfFree(ctx context.Context, appt *Appointment) (*Appointment, error)
	// RescheduleIfFree atomically moves an appointment to a new interval,
	// excluding its own current record from the conflict set.
	RescheduleIfFree(ctx context.Context, providerID, id uuid.UUID, newStart, newEnd time.Time) (*Appointment, error)

	// UpdateStatus performs a compare-and-swap status move. appendNotes, when
	// non-empty, is appended to the existing notes. A miss on the expected
	// statuses reports ErrAppointmentNotFound.
	UpdateStatus(ctx context.Context, providerID, id uuid.UUID, from []AppointmentStatus, to AppointmentStatus, appendNotes string) (*Appointment, error)

	// Missed sweep support.
	FindMissed(ctx context.Context, now time.Time) ([]Appointment, error)
	MarkMissed(ctx context.Context, id uuid.UUID, at time.Time) error
}
