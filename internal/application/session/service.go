package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/palitan-tayo-api/internal/domain"
	jwtinfra "github.com/palitan-tayo-api/internal/infrastructure/jwt"
	"golang.org/x/crypto/bcrypt"
)

// Cookie names carrying the session tokens.
const (
	AccessCookie  = "access_token"
	RefreshCookie = "refresh_token"
)

type Service interface {
	Login(ctx context.Context, identifier, password string) (*domain.Authenticated, error)
	CreateSession(ctx context.Context, userID string) (*domain.Session, error)
	VerifyToken(token string) (*domain.SessionPayload, error)
	GetCurrentUser(ctx context.Context, accessToken string) (*domain.SafeUser, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.Authenticated, error)
	CookiesToDelete() []string
}

type userStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type tokenIssuer interface {
	SignAccess(payload domain.SessionPayload) (string, time.Time, error)
	SignRefresh(userID string) (string, time.Time, error)
	Verify(token, typ string) (*jwtinfra.Claims, error)
}

type service struct {
	repo   userStore
	tokens tokenIssuer
}

// ServiceDeps wires the session service. Tokens may be nil when no signing
// secret is configured; every token operation then fails with
// domain.ErrSessionUnavailable.
type ServiceDeps struct {
	UserRepo userStore
	Tokens   tokenIssuer
}

func NewService(deps ServiceDeps) Service {
	return &service{repo: deps.UserRepo, tokens: deps.Tokens}
}

func (s *service) Login(ctx context.Context, identifier, password string) (*domain.Authenticated, error) {
	if identifier == "" || password == "" {
		return nil, domain.BadRequest("Email or username and password are required.")
	}
	u, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, domain.Unauthorized("Your password is incorrect.")
	}
	sess, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	return &domain.Authenticated{User: u, Session: sess}, nil
}

// findByIdentifier accepts either an email or a username.
func (s *service) findByIdentifier(ctx context.Context, identifier string) (*domain.User, error) {
	u, err := s.repo.GetByEmail(ctx, identifier)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	u, err = s.repo.GetByUsername(ctx, identifier)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound("User not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}

func (s *service) CreateSession(ctx context.Context, userID string) (*domain.Session, error) {
	if s.tokens == nil {
		return nil, domain.ErrSessionUnavailable
	}
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issue(u)
}

func (s *service) issue(u *domain.User) (*domain.Session, error) {
	if s.tokens == nil {
		return nil, domain.ErrSessionUnavailable
	}
	payload := domain.SessionPayload{UserID: u.UserID, Email: u.Email, Username: u.Username}
	access, accessExp, err := s.tokens.SignAccess(payload)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.tokens.SignRefresh(u.UserID)
	if err != nil {
		return nil, err
	}
	return &domain.Session{
		AccessToken:      access,
		RefreshToken:     refresh,
		Payload:          payload,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *service) VerifyToken(token string) (*domain.SessionPayload, error) {
	if s.tokens == nil {
		return nil, domain.ErrSessionUnavailable
	}
	claims, err := s.tokens.Verify(token, jwtinfra.TypeAccess)
	if err != nil {
		return nil, err
	}
	return &domain.SessionPayload{UserID: claims.UserID, Email: claims.Email, Username: claims.Username}, nil
}

func (s *service) GetCurrentUser(ctx context.Context, accessToken string) (*domain.SafeUser, error) {
	if accessToken == "" {
		return nil, domain.Unauthorized("No session found")
	}
	payload, err := s.VerifyToken(accessToken)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.Get(ctx, payload.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return u.Safe(), nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*domain.Authenticated, error) {
	if refreshToken == "" {
		return nil, domain.Unauthorized("No session found")
	}
	if s.tokens == nil {
		return nil, domain.ErrSessionUnavailable
	}
	claims, err := s.tokens.Verify(refreshToken, jwtinfra.TypeRefresh)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.Get(ctx, claims.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	sess, err := s.issue(u)
	if err != nil {
		return nil, err
	}
	return &domain.Authenticated{User: u, Session: sess}, nil
}

func (s *service) CookiesToDelete() []string {
	return []string{AccessCookie, RefreshCookie}
}
