package recovery

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/palitan-tayo-api/internal/domain"
	"github.com/palitan-tayo-api/internal/infrastructure/memory"
	"github.com/palitan-tayo-api/internal/infrastructure/smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return m.Called(ctx, userID, passwordHash).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(ctx context.Context, msg smtp.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type mockSMSSender struct{ mock.Mock }

func (m *mockSMSSender) SendSMS(ctx context.Context, to, message string) error {
	return m.Called(ctx, to, message).Error(0)
}

// --- helpers ---

var sixDigits = regexp.MustCompile(`\d{6}`)

func newSvc(pending *memory.PendingStore, us *mockUserStore, ml *mockMailer, sms smsSender) Service {
	return NewService(ServiceDeps{
		Pending:    pending,
		Users:      us,
		Mailer:     ml,
		SMS:        sms,
		OTPDigits:  6,
		OTPTTL:     5 * time.Minute,
		BcryptCost: bcrypt.MinCost,
	})
}

func strPtr(s string) *string { return &s }

func account() *domain.User {
	return &domain.User{UserID: "u1", FirstName: "Juan", Email: "juan@x.com", ContactNumber: strPtr("09171234567")}
}

// --- RequestReset ---

func TestRequestReset_UnknownEmail(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "ghost@x.com").Return(nil, domain.ErrNotFound)

	err := newSvc(memory.NewPendingStore(5*time.Minute, 0), us, nil, nil).
		RequestReset(context.Background(), ResetRequest{Email: "ghost@x.com"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRequestReset_BadChannel(t *testing.T) {
	err := newSvc(memory.NewPendingStore(5*time.Minute, 0), &mockUserStore{}, nil, nil).
		RequestReset(context.Background(), ResetRequest{Email: "juan@x.com", Channel: "pigeon"})
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestRequestReset_Email(t *testing.T) {
	pending := memory.NewPendingStore(5*time.Minute, 0)
	us := &mockUserStore{}
	ml := &mockMailer{}
	us.On("GetByEmail", mock.Anything, "juan@x.com").Return(account(), nil)
	ml.On("SendEmail", mock.Anything, mock.MatchedBy(func(m smtp.Message) bool {
		return m.To == "juan@x.com" && m.Subject == "Your Password Reset Code - Community Barter"
	})).Return(nil)

	err := newSvc(pending, us, ml, nil).RequestReset(context.Background(), ResetRequest{Email: "juan@x.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, pending.Len())
	ml.AssertExpectations(t)
}

func TestRequestReset_SMS(t *testing.T) {
	pending := memory.NewPendingStore(5*time.Minute, 0)
	us := &mockUserStore{}
	sms := &mockSMSSender{}
	us.On("GetByEmail", mock.Anything, "juan@x.com").Return(account(), nil)

	var sent string
	sms.On("SendSMS", mock.Anything, "09171234567", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { sent = args.String(2) }).
		Return(nil)

	err := newSvc(pending, us, nil, sms).RequestReset(context.Background(), ResetRequest{Email: "juan@x.com", Channel: "sms"})
	require.NoError(t, err)

	code := sixDigits.FindString(sent)
	_, err = pending.Validate(context.Background(), "juan@x.com", code)
	assert.NoError(t, err)
}

func TestRequestReset_SMSUnavailable(t *testing.T) {
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "juan@x.com").Return(account(), nil)

	err := newSvc(memory.NewPendingStore(5*time.Minute, 0), us, nil, nil).
		RequestReset(context.Background(), ResetRequest{Email: "juan@x.com", Channel: "sms"})
	assert.EqualError(t, err, "SMS delivery is not available.")
}

func TestRequestReset_SMSWithoutContactNumber(t *testing.T) {
	us := &mockUserStore{}
	u := account()
	u.ContactNumber = nil
	us.On("GetByEmail", mock.Anything, "juan@x.com").Return(u, nil)

	err := newSvc(memory.NewPendingStore(5*time.Minute, 0), us, nil, &mockSMSSender{}).
		RequestReset(context.Background(), ResetRequest{Email: "juan@x.com", Channel: "sms"})
	assert.EqualError(t, err, "No contact number on this account.")
}

// --- VerifyResetOTP / ResetPassword ---

func seedCode(t *testing.T, pending *memory.PendingStore) {
	t.Helper()
	require.NoError(t, pending.Set(context.Background(), domain.PendingRegistration{Email: "juan@x.com", OTPCode: "123456"}, 0))
}

func TestVerifyResetOTP_DoesNotConsume(t *testing.T) {
	pending := memory.NewPendingStore(5*time.Minute, 0)
	seedCode(t, pending)
	svc := newSvc(pending, &mockUserStore{}, nil, nil)

	require.NoError(t, svc.VerifyResetOTP(context.Background(), VerifyRequest{Email: "juan@x.com", OTP: "123456"}))
	assert.Equal(t, 1, pending.Len())

	err := svc.VerifyResetOTP(context.Background(), VerifyRequest{Email: "juan@x.com", OTP: "000000"})
	assert.ErrorIs(t, err, domain.ErrOTPMismatch)
}

func TestVerifyResetOTP_NoRequest(t *testing.T) {
	svc := newSvc(memory.NewPendingStore(5*time.Minute, 0), &mockUserStore{}, nil, nil)
	err := svc.VerifyResetOTP(context.Background(), VerifyRequest{Email: "juan@x.com", OTP: "123456"})
	assert.EqualError(t, err, "No password reset request found for this email.")
}

func TestResetPassword_UpdatesHashAndConsumesCode(t *testing.T) {
	pending := memory.NewPendingStore(5*time.Minute, 0)
	seedCode(t, pending)
	us := &mockUserStore{}
	us.On("GetByEmail", mock.Anything, "juan@x.com").Return(account(), nil)

	var stored string
	us.On("UpdatePassword", mock.Anything, "u1", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { stored = args.String(2) }).
		Return(nil)

	err := newSvc(pending, us, nil, nil).ResetPassword(context.Background(), NewPasswordRequest{
		Email: "juan@x.com", OTP: "123456", Password: "newsecret1", ConfirmPassword: "newsecret1",
	})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored), []byte("newsecret1")))
	assert.Equal(t, 0, pending.Len())
}

func TestResetPassword_Validation(t *testing.T) {
	pending := memory.NewPendingStore(5*time.Minute, 0)
	seedCode(t, pending)
	svc := newSvc(pending, &mockUserStore{}, nil, nil)
	ctx := context.Background()

	err := svc.ResetPassword(ctx, NewPasswordRequest{Email: "juan@x.com", OTP: "123456", Password: "newsecret1"})
	assert.EqualError(t, err, "All fields are required.")

	err = svc.ResetPassword(ctx, NewPasswordRequest{Email: "juan@x.com", OTP: "123456", Password: "short", ConfirmPassword: "short"})
	assert.EqualError(t, err, "Password must be at least 8 characters.")

	err = svc.ResetPassword(ctx, NewPasswordRequest{Email: "juan@x.com", OTP: "123456", Password: "newsecret1", ConfirmPassword: "newsecret2"})
	assert.EqualError(t, err, "Passwords do not match.")

	err = svc.ResetPassword(ctx, NewPasswordRequest{Email: "juan@x.com", OTP: "123456", Password: "abc", ConfirmPassword: "abd"})
	assert.EqualError(t, err, "Passwords do not match.")

	err = svc.ResetPassword(ctx, NewPasswordRequest{Email: "juan@x.com", OTP: "999999", Password: "newsecret1", ConfirmPassword: "newsecret1"})
	assert.ErrorIs(t, err, domain.ErrOTPMismatch)
	assert.Equal(t, 1, pending.Len())
}
