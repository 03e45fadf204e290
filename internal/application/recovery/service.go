package recovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/palitan-tayo-api/internal/domain"
	"github.com/palitan-tayo-api/internal/infrastructure/smtp"
	"github.com/palitan-tayo-api/internal/pkg/otp"
	"github.com/palitan-tayo-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

// Delivery channels for reset codes.
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

var errNoResetRequest = domain.BadRequest("No password reset request found for this email.")

type ResetRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Channel string `json:"channel" validate:"omitempty,oneof=email sms"`
}

type VerifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type NewPasswordRequest struct {
	Email           string `json:"email"`
	OTP             string `json:"otp"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type Service interface {
	RequestReset(ctx context.Context, req ResetRequest) error
	VerifyResetOTP(ctx context.Context, req VerifyRequest) error
	ResetPassword(ctx context.Context, req NewPasswordRequest) error
}

type pendingStore interface {
	Set(ctx context.Context, reg domain.PendingRegistration, ttl time.Duration) error
	Validate(ctx context.Context, email, otp string) (*domain.PendingRegistration, error)
	Delete(ctx context.Context, email string) error
}

type userStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

type mailer interface {
	SendEmail(ctx context.Context, msg smtp.Message) error
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type service struct {
	pending    pendingStore
	users      userStore
	mailer     mailer
	sms        smsSender
	otpDigits  int
	otpTTL     time.Duration
	bcryptCost int
}

// ServiceDeps wires the recovery service. SMS may be nil when SNS is not
// configured; SMS delivery is then refused.
type ServiceDeps struct {
	Pending    pendingStore
	Users      userStore
	Mailer     mailer
	SMS        smsSender
	OTPDigits  int
	OTPTTL     time.Duration
	BcryptCost int
}

func NewService(deps ServiceDeps) Service {
	if deps.OTPDigits == 0 {
		deps.OTPDigits = 6
	}
	if deps.BcryptCost == 0 {
		deps.BcryptCost = 10
	}
	return &service{
		pending:    deps.Pending,
		users:      deps.Users,
		mailer:     deps.Mailer,
		sms:        deps.SMS,
		otpDigits:  deps.OTPDigits,
		otpTTL:     deps.OTPTTL,
		bcryptCost: deps.BcryptCost,
	}
}

func (s *service) RequestReset(ctx context.Context, req ResetRequest) error {
	if req.Email == "" {
		return domain.BadRequest("Email is required.")
	}
	if err := validate.Struct(req); err != nil {
		return domain.BadRequest("Invalid email address or delivery channel.")
	}
	u, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound("No account found with that email.")
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}

	channel := req.Channel
	if channel == "" {
		channel = ChannelEmail
	}
	if channel == ChannelSMS {
		if s.sms == nil {
			return domain.BadRequest("SMS delivery is not available.")
		}
		if u.ContactNumber == nil || *u.ContactNumber == "" {
			return domain.BadRequest("No contact number on this account.")
		}
	}

	code, err := otp.Generate(s.otpDigits)
	if err != nil {
		return err
	}
	entry := domain.PendingRegistration{
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		OTPCode:   code,
	}
	if err := s.pending.Set(ctx, entry, s.otpTTL); err != nil {
		return fmt.Errorf("store reset code: %w", err)
	}

	if channel == ChannelSMS {
		text := fmt.Sprintf("Your Palitan Tayo password reset code is %s. It expires in %d minutes.", code, int(s.otpTTL/time.Minute))
		if err := s.sms.SendSMS(ctx, *u.ContactNumber, text); err != nil {
			return fmt.Errorf("send reset sms: %w", err)
		}
	} else {
		msg, err := smtp.PasswordResetOTP(u.Email, u.FirstName, code, s.otpTTL)
		if err != nil {
			return err
		}
		if err := s.mailer.SendEmail(ctx, msg); err != nil {
			return fmt.Errorf("send reset email: %w", err)
		}
	}
	slog.Info("password reset code sent", "user_id", u.UserID, "channel", channel)
	return nil
}

// VerifyResetOTP checks a code without consuming it.
func (s *service) VerifyResetOTP(ctx context.Context, req VerifyRequest) error {
	if req.Email == "" || req.OTP == "" {
		return domain.BadRequest("Email and OTP are required.")
	}
	_, err := s.validate(ctx, req.Email, req.OTP)
	return err
}

func (s *service) ResetPassword(ctx context.Context, req NewPasswordRequest) error {
	if req.Email == "" || req.OTP == "" || req.Password == "" || req.ConfirmPassword == "" {
		return domain.BadRequest("All fields are required.")
	}
	if req.Password != req.ConfirmPassword {
		return domain.BadRequest("Passwords do not match.")
	}
	if err := domain.CheckPassword(req.Password); err != nil {
		return err
	}
	if _, err := s.validate(ctx, req.Email, req.OTP); err != nil {
		return err
	}

	u, err := s.users.GetByEmail(ctx, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NotFound("No account found with that email.")
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, u.UserID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.pending.Delete(ctx, req.Email); err != nil {
		slog.Warn("failed to delete reset code", "email", req.Email, "err", err)
	}
	slog.Info("password reset", "user_id", u.UserID)
	return nil
}

func (s *service) validate(ctx context.Context, email, code string) (*domain.PendingRegistration, error) {
	entry, err := s.pending.Validate(ctx, email, code)
	if errors.Is(err, domain.ErrOTPNotFound) {
		return nil, errNoResetRequest
	}
	return entry, err
}
