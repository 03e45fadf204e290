package domain

import "time"

// SessionPayload is the identity carried inside an access token.
type SessionPayload struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Session is a freshly minted access/refresh token pair. Sessions are never
// stored server-side.
type Session struct {
	AccessToken      string
	RefreshToken     string
	Payload          SessionPayload
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Authenticated is the outcome of any flow that signs a user in.
type Authenticated struct {
	User    *User
	Session *Session
}
