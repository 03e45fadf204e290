package registration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/palitan-tayo-api/internal/domain"
	"github.com/palitan-tayo-api/internal/infrastructure/smtp"
	"github.com/palitan-tayo-api/internal/pkg/id"
	"github.com/palitan-tayo-api/internal/pkg/otp"
	"github.com/palitan-tayo-api/internal/pkg/validate"
	"golang.org/x/crypto/bcrypt"
)

const (
	minAge = 18
	maxAge = 90
)

type RegisterRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	Age             any    `json:"age"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type ResendRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type VerifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type CompleteProfileRequest struct {
	Email         string `json:"email"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	Username      string `json:"username"`
	Age           any    `json:"age"`
	ContactNumber string `json:"contactNumber"`
}

// Identity is the non-secret part of a pending registration echoed to the client.
type Identity struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// VerifyResult is either a signed-in account (when the registration already
// carried a username) or a verified identity awaiting CompleteProfile.
type VerifyResult struct {
	Account         *domain.Authenticated
	Identity        *Identity
	ProfileRequired bool
}

type Service interface {
	SendRegisterOTP(ctx context.Context, req RegisterRequest) (*Identity, error)
	ResendOTP(ctx context.Context, req ResendRequest) error
	VerifyOTP(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
	CompleteProfile(ctx context.Context, req CompleteProfileRequest) (*domain.Authenticated, error)
}

type pendingStore interface {
	Set(ctx context.Context, reg domain.PendingRegistration, ttl time.Duration) error
	Get(ctx context.Context, email string) (*domain.PendingRegistration, error)
	Validate(ctx context.Context, email, otp string) (*domain.PendingRegistration, error)
	Delete(ctx context.Context, email string) error
}

type userStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

type mailer interface {
	SendEmail(ctx context.Context, msg smtp.Message) error
}

type imageHost interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, urlOrKey string) error
}

type sessionIssuer interface {
	CreateSession(ctx context.Context, userID string) (*domain.Session, error)
}

type service struct {
	pending      pendingStore
	users        userStore
	mailer       mailer
	images       imageHost
	sessions     sessionIssuer
	defaultImage []byte
	otpDigits    int
	otpTTL       time.Duration
	profileTTL   time.Duration
	bcryptCost   int
	now          func() time.Time
}

// ServiceDeps wires the registration service. Images may be nil, in which
// case accounts are created without a profile image.
type ServiceDeps struct {
	Pending      pendingStore
	Users        userStore
	Mailer       mailer
	Images       imageHost
	Sessions     sessionIssuer
	DefaultImage []byte
	OTPDigits    int
	OTPTTL       time.Duration
	ProfileTTL   time.Duration
	BcryptCost   int
}

func NewService(deps ServiceDeps) Service {
	if deps.OTPDigits == 0 {
		deps.OTPDigits = 6
	}
	if deps.BcryptCost == 0 {
		deps.BcryptCost = 10
	}
	return &service{
		pending:      deps.Pending,
		users:        deps.Users,
		mailer:       deps.Mailer,
		images:       deps.Images,
		sessions:     deps.Sessions,
		defaultImage: deps.DefaultImage,
		otpDigits:    deps.OTPDigits,
		otpTTL:       deps.OTPTTL,
		profileTTL:   deps.ProfileTTL,
		bcryptCost:   deps.BcryptCost,
		now:          time.Now,
	}
}

func (s *service) SendRegisterOTP(ctx context.Context, req RegisterRequest) (*Identity, error) {
	if req.FirstName == "" || req.LastName == "" {
		return nil, domain.BadRequest("First name and last name are required.")
	}
	if req.Email == "" || req.Password == "" || req.ConfirmPassword == "" {
		return nil, domain.BadRequest("All fields are required.")
	}
	if !validate.Email(req.Email) {
		return nil, domain.BadRequest("Invalid email address.")
	}
	if req.Password != req.ConfirmPassword {
		return nil, domain.BadRequest("Passwords do not match.")
	}
	if err := domain.CheckPassword(req.Password); err != nil {
		return nil, err
	}
	age, err := parseAge(req.Age)
	if err != nil {
		return nil, err
	}
	if err := s.ensureAvailable(ctx, req.Username, req.Email); err != nil {
		return nil, err
	}

	code, err := otp.Generate(s.otpDigits)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	reg := domain.PendingRegistration{
		Email:          req.Email,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Username:       req.Username,
		Age:            age,
		OTPCode:        code,
		HashedPassword: string(hash),
	}
	if err := s.pending.Set(ctx, reg, s.otpTTL); err != nil {
		return nil, fmt.Errorf("store pending registration: %w", err)
	}
	if err := s.sendCode(ctx, reg); err != nil {
		return nil, err
	}
	slog.Info("registration otp sent", "email", req.Email)
	return &Identity{Email: req.Email, FirstName: req.FirstName, LastName: req.LastName}, nil
}

func (s *service) ResendOTP(ctx context.Context, req ResendRequest) error {
	if req.Email == "" {
		return domain.BadRequest("Email is required.")
	}
	reg, err := s.pending.Get(ctx, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.BadRequest("No pending registration found. Please register again.")
	}
	if err != nil {
		return fmt.Errorf("load pending registration: %w", err)
	}
	if reg.Verified {
		return domain.BadRequest("Email is already verified. Please complete your profile.")
	}

	code, err := otp.Generate(s.otpDigits)
	if err != nil {
		return err
	}
	reg.OTPCode = code
	if req.FirstName != "" {
		reg.FirstName = req.FirstName
	}
	if req.LastName != "" {
		reg.LastName = req.LastName
	}
	if err := s.pending.Set(ctx, *reg, s.otpTTL); err != nil {
		return fmt.Errorf("store pending registration: %w", err)
	}
	return s.sendCode(ctx, *reg)
}

func (s *service) VerifyOTP(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	if req.Email == "" || req.OTP == "" {
		return nil, domain.BadRequest("Email and OTP are required.")
	}
	reg, err := s.pending.Validate(ctx, req.Email, req.OTP)
	if err != nil {
		return nil, err
	}

	if reg.Username != "" {
		account, err := s.createAccount(ctx, reg, nil)
		if err != nil {
			return nil, err
		}
		return &VerifyResult{Account: account}, nil
	}

	reg.Verified = true
	reg.OTPCode = ""
	if err := s.pending.Set(ctx, *reg, s.profileTTL); err != nil {
		return nil, fmt.Errorf("store pending registration: %w", err)
	}
	return &VerifyResult{
		Identity:        &Identity{Email: reg.Email, FirstName: reg.FirstName, LastName: reg.LastName},
		ProfileRequired: true,
	}, nil
}

func (s *service) CompleteProfile(ctx context.Context, req CompleteProfileRequest) (*domain.Authenticated, error) {
	if req.Email == "" || req.Username == "" || req.ContactNumber == "" || isBlank(req.Age) {
		return nil, domain.BadRequest("All fields are required.")
	}
	age, err := parseAge(req.Age)
	if err != nil {
		return nil, err
	}
	if !validate.PHMobile(req.ContactNumber) {
		return nil, domain.BadRequest("Contact number must be a valid Philippine mobile number.")
	}

	reg, err := s.pending.Get(ctx, req.Email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.BadRequest("Please verify your email first.")
	}
	if err != nil {
		return nil, fmt.Errorf("load pending registration: %w", err)
	}
	if !reg.Verified {
		return nil, domain.BadRequest("Please verify your email first.")
	}
	if reg.Expired(s.now()) {
		return nil, domain.BadRequest("Verification window has expired. Please register again.")
	}
	if err := s.ensureAvailable(ctx, req.Username, req.Email); err != nil {
		return nil, err
	}

	if req.FirstName != "" {
		reg.FirstName = req.FirstName
	}
	if req.LastName != "" {
		reg.LastName = req.LastName
	}
	reg.Username = req.Username
	reg.Age = age
	contact := req.ContactNumber
	return s.createAccount(ctx, reg, &contact)
}

// ensureAvailable rejects a username or email that already belongs to a user.
// An empty username is not checked.
func (s *service) ensureAvailable(ctx context.Context, username, email string) error {
	if username != "" {
		_, err := s.users.GetByUsername(ctx, username)
		if err == nil {
			return domain.Conflict("Username already exists.")
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("check username: %w", err)
		}
	}
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return domain.Conflict("Email is already registered.")
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("check email: %w", err)
	}
	return nil
}

func (s *service) sendCode(ctx context.Context, reg domain.PendingRegistration) error {
	msg, err := smtp.RegistrationOTP(reg.Email, reg.FirstName, reg.OTPCode, s.otpTTL)
	if err != nil {
		return err
	}
	if err := s.mailer.SendEmail(ctx, msg); err != nil {
		return fmt.Errorf("send otp email: %w", err)
	}
	return nil
}

// createAccount turns a confirmed pending registration into a user, removes
// the pending entry and signs the user in.
func (s *service) createAccount(ctx context.Context, reg *domain.PendingRegistration, contact *string) (*domain.Authenticated, error) {
	now := s.now().UTC()
	userID := id.NewAt(now)
	image := s.uploadDefaultImage(ctx, userID)

	u := &domain.User{
		UserID:        userID,
		FirstName:     reg.FirstName,
		LastName:      reg.LastName,
		Email:         reg.Email,
		Username:      reg.Username,
		PasswordHash:  reg.HashedPassword,
		Age:           reg.Age,
		ContactNumber: contact,
		ProfileImage:  image,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if image != "" {
			if derr := s.images.Delete(ctx, image); derr != nil {
				slog.Warn("failed to remove orphaned profile image", "user_id", userID, "err", derr)
			}
		}
		if errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	if err := s.pending.Delete(ctx, reg.Email); err != nil {
		slog.Warn("failed to delete pending registration", "email", reg.Email, "err", err)
	}
	slog.Info("user registered", "user_id", userID, "username", u.Username)

	sess, err := s.sessions.CreateSession(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &domain.Authenticated{User: u, Session: sess}, nil
}

// uploadDefaultImage is best-effort: failures are logged and the account is
// created without an image.
func (s *service) uploadDefaultImage(ctx context.Context, userID string) string {
	if s.images == nil || len(s.defaultImage) == 0 {
		return ""
	}
	url, err := s.images.Upload(ctx, "profile_images/"+userID+".png", bytes.NewReader(s.defaultImage), "image/png")
	if err != nil {
		slog.Warn("default profile image upload failed", "user_id", userID, "err", err)
		return ""
	}
	return url
}

// parseAge accepts a JSON number or a numeric string. A missing or empty
// value yields nil.
func parseAge(v any) (*int, error) {
	invalid := domain.BadRequest("Age must be a number between 18 and 90.")
	var n float64
	switch a := v.(type) {
	case nil:
		return nil, nil
	case float64:
		n = a
	case json.Number:
		f, err := a.Float64()
		if err != nil {
			return nil, invalid
		}
		n = f
	case string:
		a = strings.TrimSpace(a)
		if a == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, invalid
		}
		n = f
	default:
		return nil, invalid
	}
	if n != math.Trunc(n) || n < minAge || n > maxAge {
		return nil, invalid
	}
	age := int(n)
	return &age, nil
}

func isBlank(v any) bool {
	switch a := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(a) == ""
	}
	return false
}
