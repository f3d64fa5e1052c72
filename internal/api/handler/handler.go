// Package handler implements the HTTP endpoints of the billing API.
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/billdesk/billdesk/internal/api/middleware"
	"github.com/billdesk/billdesk/internal/api/response"
)

const timeFormat = "2006-01-02T15:04:05Z"

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

// ownerID returns the authenticated user's id. Routes behind the Auth
// middleware always carry an identity; uuid.Nil is returned otherwise.
func ownerID(r *http.Request) uuid.UUID {
	if id := middleware.GetIdentity(r.Context()); id != nil {
		return id.UserID
	}
	return uuid.Nil
}

// decodeJSON reads the request body into v, writing INVALID_JSON on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any, requestID string) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be valid JSON", requestID)
		return false
	}
	return true
}

// parseID parses the {id} URL parameter, writing INVALID_ID on failure.
func parseID(w http.ResponseWriter, r *http.Request, requestID string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Err(w, http.StatusBadRequest, "INVALID_ID", "id must be a valid UUID", requestID)
		return uuid.Nil, false
	}
	return id, true
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
