package booking

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// ActiveStatuses are the statuses that occupy a provider's calendar. Only
// these participate in conflict checks; completed and cancelled appointments
// never block a slot.
var ActiveStatuses = []AppointmentStatus{StatusPending, StatusConfirmed}

type Provider struct {
	ID              uuid.UUID
	Name            string
	Phone           *string
	Active          bool
	SlotIntervalMin int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Service struct {
	ID          uuid.UUID
	ProviderID  uuid.UUID
	Name        string
	DurationMin int
	PriceCents  int64
	Currency    string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Customer struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	Name       string
	Phone      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Appointment struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	CustomerID uuid.UUID
	ServiceID  uuid.UUID
	StartTime  time.Time
	EndTime    time.Time
	Status     AppointmentStatus
	Notes      string
	PriceCents int64
	Currency   string
	MissedAt   *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Interval is the minimal view of an occupied range returned by conflict
// queries. Overlap tests do not need full appointment rows.
type Interval struct {
	Start time.Time
	End   time.Time
}

// TimeSlot is a candidate booking interval. Slots are derived on every
// availability query and are never persisted or cached.
type TimeSlot struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Available bool      `json:"available"`
}

// DayAvailability is one entry of a weekly availability view.
type DayAvailability struct {
	Date  time.Time  `json:"date"`
	Slots []TimeSlot `json:"slots"`
}
