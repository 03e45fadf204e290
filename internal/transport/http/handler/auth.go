package handler

import (
	"fmt"
	"net/http"

	"github.com/palitan-tayo-api/internal/application/recovery"
	"github.com/palitan-tayo-api/internal/application/registration"
	"github.com/palitan-tayo-api/internal/application/session"
	"github.com/palitan-tayo-api/internal/domain"
)

// AuthHandler serves POST /api/auth?action=<name> and GET /api/auth/session.
type AuthHandler struct {
	sessions     session.Service
	registration registration.Service
	recovery     recovery.Service
	cookies      CookiePolicy
}

func NewAuthHandler(sessions session.Service, reg registration.Service, rec recovery.Service, cookies CookiePolicy) *AuthHandler {
	return &AuthHandler{sessions: sessions, registration: reg, recovery: rec, cookies: cookies}
}

func (h *AuthHandler) Action(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Query().Get("action") {
	case "login":
		h.login(w, r)
	case "logout":
		h.logout(w, r)
	case "refresh":
		h.refresh(w, r)
	case "send_register_otp":
		h.sendRegisterOTP(w, r)
	case "resend_otp":
		h.resendOTP(w, r)
	case "verify_otp":
		h.verifyOTP(w, r)
	case "complete_profile":
		h.completeProfile(w, r)
	case "forgot_password":
		h.forgotPassword(w, r)
	case "verify_reset_otp":
		h.verifyResetOTP(w, r)
	case "reset_password":
		h.resetPassword(w, r)
	default:
		writeError(w, http.StatusBadRequest, "Invalid action")
	}
}

// Session returns the user behind the access_token cookie.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	u, err := h.sessions.GetCurrentUser(r.Context(), cookieValue(r, session.AccessCookie))
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserEnvelope{User: u})
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Identifier string `json:"identifier"`
		Password   string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.sessions.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		httpError(w, r, err)
		return
	}
	h.signedIn(w, http.StatusOK, fmt.Sprintf("User %s logged in.", res.User.Email), res)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if cookieValue(r, session.AccessCookie) == "" {
		writeError(w, http.StatusBadRequest, "No session found")
		return
	}
	h.cookies.clear(w, h.sessions.CookiesToDelete())
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Logged out successfully"})
}

func (h *AuthHandler) refresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.sessions.Refresh(r.Context(), cookieValue(r, session.RefreshCookie))
	if err != nil {
		httpError(w, r, err)
		return
	}
	h.signedIn(w, http.StatusOK, "Session refreshed", res)
}

func (h *AuthHandler) sendRegisterOTP(w http.ResponseWriter, r *http.Request) {
	var req registration.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id, err := h.registration.SendRegisterOTP(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OTPSentEnvelope{
		Message:   "OTP sent to your email",
		Email:     id.Email,
		FirstName: id.FirstName,
		LastName:  id.LastName,
	})
}

func (h *AuthHandler) resendOTP(w http.ResponseWriter, r *http.Request) {
	var req registration.ResendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.registration.ResendOTP(r.Context(), req); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "A new OTP has been sent to your email"})
}

func (h *AuthHandler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var req registration.VerifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.registration.VerifyOTP(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	if res.ProfileRequired {
		writeJSON(w, http.StatusOK, ProfileRequiredEnvelope{
			Message:         "Email verified. Please complete your profile.",
			User:            res.Identity,
			ProfileRequired: true,
		})
		return
	}
	h.signedIn(w, http.StatusCreated, "Account created successfully", res.Account)
}

func (h *AuthHandler) completeProfile(w http.ResponseWriter, r *http.Request) {
	var req registration.CompleteProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.registration.CompleteProfile(r.Context(), req)
	if err != nil {
		httpError(w, r, err)
		return
	}
	h.signedIn(w, http.StatusCreated, "Profile completed successfully", res)
}

func (h *AuthHandler) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req recovery.ResetRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.recovery.RequestReset(r.Context(), req); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Password reset code sent"})
}

func (h *AuthHandler) verifyResetOTP(w http.ResponseWriter, r *http.Request) {
	var req recovery.VerifyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.recovery.VerifyResetOTP(r.Context(), req); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "OTP verified"})
}

func (h *AuthHandler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req recovery.NewPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.recovery.ResetPassword(r.Context(), req); err != nil {
		httpError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "Password has been reset. You can now log in."})
}

// signedIn sets the session cookies and returns the safe user projection.
func (h *AuthHandler) signedIn(w http.ResponseWriter, status int, msg string, res *domain.Authenticated) {
	h.cookies.set(w, res.Session)
	writeJSON(w, status, UserEnvelope{Message: msg, User: res.User.Safe()})
}
