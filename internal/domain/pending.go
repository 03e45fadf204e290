package domain

import "time"

// PendingRegistration is a registration (or password reset) awaiting OTP
// confirmation. It is keyed by Email within a store namespace.
type PendingRegistration struct {
	Email          string    `json:"email" dynamodbav:"email"`
	FirstName      string    `json:"first_name" dynamodbav:"first_name"`
	LastName       string    `json:"last_name" dynamodbav:"last_name"`
	Username       string    `json:"username,omitempty" dynamodbav:"username"`
	Age            *int      `json:"age,omitempty" dynamodbav:"age"`
	OTPCode        string    `json:"otp_code" dynamodbav:"otp_code"`
	HashedPassword string    `json:"hashed_password" dynamodbav:"hashed_password"`
	Verified       bool      `json:"verified" dynamodbav:"verified"`
	CreatedAt      time.Time `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt      time.Time `json:"expires_at" dynamodbav:"expires_at"`
}

// Expired reports whether the entry is no longer usable at now.
func (p *PendingRegistration) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// Check applies the OTP rule shared by every store backend: the entry must be
// unexpired and the code must match exactly.
func (p *PendingRegistration) Check(otp string, now time.Time) error {
	if p.Expired(now) {
		return ErrOTPExpired
	}
	if p.OTPCode == "" || p.OTPCode != otp {
		return ErrOTPMismatch
	}
	return nil
}
