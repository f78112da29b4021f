package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/slotwise/booking-engine/internal/booking"
)

const dateLayout = "2006-01-02"

func getSlotsHandler(engine *booking.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, serviceID, ok := pathTarget(w, r)
		if !ok {
			return
		}

		dateStr := r.URL.Query().Get("date")
		date, err := time.ParseInLocation(dateLayout, dateStr, time.UTC)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}

		slots, err := engine.GetAvailableSlots(r.Context(), providerID, serviceID, date)
		if err != nil {
			handleEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, SlotsResponse{Date: dateStr, Slots: slots})
	}
}

func getWeeklySlotsHandler(engine *booking.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, serviceID, ok := pathTarget(w, r)
		if !ok {
			return
		}

		week, err := engine.GetWeeklyAvailableSlots(r.Context(), providerID, serviceID, time.UTC)
		if err != nil {
			handleEngineError(w, err)
			return
		}

		resp := WeeklySlotsResponse{Days: make([]SlotsResponse, 0, len(week))}
		for _, day := range week {
			resp.Days = append(resp.Days, SlotsResponse{
				Date:  day.Date.Format(dateLayout),
				Slots: day.Slots,
			})
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

func checkSlotHandler(engine *booking.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, serviceID, ok := pathTarget(w, r)
		if !ok {
			return
		}

		start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be RFC 3339")
			return
		}

		available, err := engine.IsSlotAvailable(r.Context(), providerID, serviceID, start)
		if err != nil {
			handleEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, SlotCheckResponse{Available: available})
	}
}

func createAppointmentHandler(engine *booking.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := pathUUID(w, r, "providerID", "invalid_provider_id")
		if !ok {
			return
		}

		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		serviceID, err := uuid.Parse(req.ServiceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
			return
		}

		customerID, err := uuid.Parse(req.CustomerID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_customer_id", "customer_id must be a valid UUID")
			return
		}

		start, err := time.Parse(time.RFC3339, req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be RFC 3339")
			return
		}

		appt, err := engine.CreateAppointment(r.Context(), booking.CreateAppointmentInput{
			ProviderID: providerID,
			ServiceID:  serviceID,
			CustomerID: customerID,
			Start:      start,
			Notes:      req.Notes,
		})
		if err != nil {
			handleEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func getAppointmentHandler(engine *booking.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, id, ok := pathAppointment(w, r)
		if !ok {
			return
		}

		appt, err := engine.GetAppointment(r.Context(), providerID, id)
		if err != nil {
			handleEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func listAppointmentsHandler(engine *booking.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := pathUUID(w, r, "providerID", "invalid_provider_id")
		if !ok {
			return
		}

		q := r.URL.Query()
		from, err := time.Parse(time.RFC3339, q.Get("from"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from", "from must be RFC 3339")
			return
		}
		to, err := time.Parse(time.RFC3339, q.Get("to"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to", "to must be RFC 3339")
			return
		}

		appts, err := engine.ListAppointments(r.Context(), providerID, from, to)
		if err != nil {
			handleEngineError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for i := range appts {
			resp = append(resp, toAppointmentResponse(&appts[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func confirmAppointmentHandler(engine *booking.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, id, ok := pathAppointment(w, r)
		if !ok {
			return
		}

		appt, err := engine.Confirm(r.Context(), providerID, id)
		if err != nil {
			handleEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func completeAppointmentHandler(engine *booking.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, id, ok := pathAppointment(w, r)
		if !ok {
			return
		}

		appt, err := engine.Complete(r.Context(), providerID, id)
		if err != nil {
			handleEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func cancelAppointmentHandler(engine *booking.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, id, ok := pathAppointment(w, r)
		if !ok {
			return
		}

		var req CancelAppointmentRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
				return
			}
		}

		appt, err := engine.Cancel(r.Context(), providerID, id, req.Reason)
		if err != nil {
			handleEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

func rescheduleAppointmentHandler(engine *booking.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, id, ok := pathAppointment(w, r)
		if !ok {
			return
		}

		var req RescheduleAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		start, err := time.Parse(time.RFC3339, req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be RFC 3339")
			return
		}

		appt, err := engine.Reschedule(r.Context(), providerID, id, start)
		if err != nil {
			handleEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

// Path helpers

func pathUUID(w http.ResponseWriter, r *http.Request, param, errCode string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, errCode, param+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

func pathTarget(w http.ResponseWriter, r *http.Request) (providerID, serviceID uuid.UUID, ok bool) {
	providerID, ok = pathUUID(w, r, "providerID", "invalid_provider_id")
	if !ok {
		return
	}
	serviceID, ok = pathUUID(w, r, "serviceID", "invalid_service_id")
	return
}

func pathAppointment(w http.ResponseWriter, r *http.Request) (providerID, id uuid.UUID, ok bool) {
	providerID, ok = pathUUID(w, r, "providerID", "invalid_provider_id")
	if !ok {
		return
	}
	id, ok = pathUUID(w, r, "id", "invalid_appointment_id")
	return
}

// Error mapping

func handleEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider_not_found", err.Error())
	case errors.Is(err, booking.ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service_not_found", err.Error())
	case errors.Is(err, booking.ErrCustomerNotFound):
		writeError(w, http.StatusNotFound, "customer_not_found", err.Error())
	case errors.Is(err, booking.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, booking.ErrProviderInactive):
		writeError(w, http.StatusConflict, "provider_inactive", err.Error())
	case errors.Is(err, booking.ErrSlotUnavailable):
		writeError(w, http.StatusConflict, "slot_unavailable", "that time is no longer available")
	case errors.Is(err, booking.ErrBookingInProgress):
		writeError(w, http.StatusConflict, "booking_in_progress", "another booking is in progress, please retry shortly")
	case errors.Is(err, booking.ErrInvalidTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	case errors.Is(err, booking.ErrInvalidTimeRange):
		writeError(w, http.StatusBadRequest, "invalid_time_range", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
