package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/palitan-tayo-api/internal/application/registration"
	"github.com/palitan-tayo-api/internal/domain"
)

const maxBodyBytes = 1 << 20

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// UserEnvelope wraps responses that sign a user in or describe the current user.
type UserEnvelope struct {
	Message string           `json:"message,omitempty"`
	User    *domain.SafeUser `json:"user"`
}

// OTPSentEnvelope answers send_register_otp. It never carries the code.
type OTPSentEnvelope struct {
	Message   string `json:"message"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// ProfileRequiredEnvelope answers verify_otp when a profile step is still needed.
type ProfileRequiredEnvelope struct {
	Message         string                 `json:"message"`
	User            *registration.Identity `json:"user"`
	ProfileRequired bool                   `json:"profileRequired"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// decodeBody reads a JSON body into v. An empty body leaves v zeroed.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return false
	}
	return true
}
