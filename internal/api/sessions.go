package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/slotwise/booking-engine/internal/session"
)

// SessionStore is the conversation-state store exposed to the external bot.
// The bot itself is stateless between webhook calls; it parks its progress
// through the booking flow here.
type SessionStore interface {
	Get(ctx context.Context, providerID uuid.UUID, phone string) (*session.Session, error)
	Put(ctx context.Context, sess *session.Session) error
	Delete(ctx context.Context, providerID uuid.UUID, phone string) error
}

func getSessionHandler(store SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, phone, ok := pathSession(w, r)
		if !ok {
			return
		}

		sess, err := store.Get(r.Context(), providerID, phone)
		if err != nil {
			handleSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

func putSessionHandler(store SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, phone, ok := pathSession(w, r)
		if !ok {
			return
		}

		var sess session.Session
		if err := json.NewDecoder(r.Body).Decode(&sess); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		// The path, not the payload, names the session.
		sess.ProviderID = providerID
		sess.Phone = phone

		if err := store.Put(r.Context(), &sess); err != nil {
			handleSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

func deleteSessionHandler(store SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, phone, ok := pathSession(w, r)
		if !ok {
			return
		}

		if err := store.Delete(r.Context(), providerID, phone); err != nil {
			handleSessionError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func pathSession(w http.ResponseWriter, r *http.Request) (providerID uuid.UUID, phone string, ok bool) {
	providerID, ok = pathUUID(w, r, "providerID", "invalid_provider_id")
	if !ok {
		return
	}
	phone = chi.URLParam(r, "phone")
	if phone == "" {
		writeError(w, http.StatusBadRequest, "invalid_phone", "phone must not be empty")
		return providerID, "", false
	}
	return providerID, phone, true
}

func handleSessionError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrSessionNotFound) {
		writeError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
}
