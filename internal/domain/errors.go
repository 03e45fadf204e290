package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
)

// Error carries a message that is safe to show to the client. Kind is one of
// the sentinels above, so errors.Is keeps working through it.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }
func (e *Error) Unwrap() error { return e.Kind }

func BadRequest(msg string) error   { return &Error{Kind: ErrBadRequest, Msg: msg} }
func Conflict(msg string) error     { return &Error{Kind: ErrConflict, Msg: msg} }
func NotFound(msg string) error     { return &Error{Kind: ErrNotFound, Msg: msg} }
func Unauthorized(msg string) error { return &Error{Kind: ErrUnauthorized, Msg: msg} }

// OTP validation outcomes.
var (
	ErrOTPNotFound = BadRequest("No pending registration found for this email.")
	ErrOTPExpired  = BadRequest("OTP has expired. Please request a new one.")
	ErrOTPMismatch = BadRequest("Invalid OTP.")
)

// Token verification outcomes.
var (
	ErrTokenExpired       = Unauthorized("Session has expired.")
	ErrInvalidToken       = Unauthorized("Invalid session token.")
	ErrSessionUnavailable = errors.New("session signing is not configured")
)
