package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-engine/internal/booking"
)

type CreateAppointmentRequest struct {
	ServiceID  string `json:"service_id"`
	CustomerID string `json:"customer_id"`
	Start      string `json:"start"`
	Notes      string `json:"notes,omitempty"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason,omitempty"`
}

type RescheduleAppointmentRequest struct {
	Start string `json:"start"`
}

type AppointmentResponse struct {
	ID         uuid.UUID  `json:"id"`
	ProviderID uuid.UUID  `json:"provider_id"`
	CustomerID uuid.UUID  `json:"customer_id"`
	ServiceID  uuid.UUID  `json:"service_id"`
	Start      time.Time  `json:"start"`
	End        time.Time  `json:"end"`
	Status     string     `json:"status"`
	Notes      string     `json:"notes,omitempty"`
	PriceCents int64      `json:"price_cents"`
	Currency   string     `json:"currency"`
	MissedAt   *time.Time `json:"missed_at,omitempty"`
}

func toAppointmentResponse(a *booking.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:         a.ID,
		ProviderID: a.ProviderID,
		CustomerID: a.CustomerID,
		ServiceID:  a.ServiceID,
		Start:      a.StartTime,
		End:        a.EndTime,
		Status:     string(a.Status),
		Notes:      a.Notes,
		PriceCents: a.PriceCents,
		Currency:   a.Currency,
		MissedAt:   a.MissedAt,
	}
}

type SlotsResponse struct {
	Date  string             `json:"date"`
	Slots []booking.TimeSlot `json:"slots"`
}

type WeeklySlotsResponse struct {
	Days []SlotsResponse `json:"days"`
}

type SlotCheckResponse struct {
	Available bool `json:"available"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
