package http

import (
	"context"
	"io"
	"time"

	"github.com/palitan-tayo-api/internal/domain"
	jwtinfra "github.com/palitan-tayo-api/internal/infrastructure/jwt"
)

// UserRepository is the minimal interface the router requires from a user store.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// PendingStore is the minimal interface the router requires from an OTP store.
// Each instance covers one namespace (registration or password reset).
type PendingStore interface {
	Set(ctx context.Context, reg domain.PendingRegistration, ttl time.Duration) error
	Get(ctx context.Context, email string) (*domain.PendingRegistration, error)
	Validate(ctx context.Context, email, otp string) (*domain.PendingRegistration, error)
	Delete(ctx context.Context, email string) error
}

// ImageHost is the minimal interface the router requires from an object storage backend.
type ImageHost interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, urlOrKey string) error
}

// TokenIssuer signs and verifies session tokens.
type TokenIssuer interface {
	SignAccess(payload domain.SessionPayload) (string, time.Time, error)
	SignRefresh(userID string) (string, time.Time, error)
	Verify(token, typ string) (*jwtinfra.Claims, error)
}
