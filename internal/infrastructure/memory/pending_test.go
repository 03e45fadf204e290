package memory

import (
	"context"
	"testing"
	"time"

	"github.com/palitan-tayo-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore() (*PendingStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)}
	s := NewPendingStore(5*time.Minute, 30*time.Minute)
	s.now = clock.Now
	return s, clock
}

func pending(email, code string) domain.PendingRegistration {
	return domain.PendingRegistration{
		FirstName:      "A",
		LastName:       "B",
		Email:          email,
		OTPCode:        code,
		HashedPassword: "$2a$10$hash",
	}
}

func TestSet_ThenGet(t *testing.T) {
	s, clock := newTestStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "a@x.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, s.Set(ctx, pending("a@x.com", "54321"), 0))

	got, err := s.Get(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "54321", got.OTPCode)
	assert.Equal(t, clock.t, got.CreatedAt)
	assert.Equal(t, clock.t.Add(5*time.Minute), got.ExpiresAt)
}

func TestSet_OverwritesSameEmail(t *testing.T) {
	s, clock := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, pending("a@x.com", "11111"), time.Minute))
	clock.Advance(2 * time.Minute)
	require.NoError(t, s.Set(ctx, pending("a@x.com", "22222"), time.Minute))

	assert.Equal(t, 1, s.Len())
	_, err := s.Validate(ctx, "a@x.com", "11111")
	assert.ErrorIs(t, err, domain.ErrOTPMismatch)
	got, err := s.Validate(ctx, "a@x.com", "22222")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", got.Email)
}

func TestSet_EmailIsCaseSensitive(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, pending("Alice@x.com", "12345"), 0))
	_, err := s.Validate(ctx, "alice@x.com", "12345")
	assert.ErrorIs(t, err, domain.ErrOTPNotFound)
}

func TestValidate_Mismatch(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, pending("a@x.com", "54321"), 5*time.Minute))
	_, err := s.Validate(ctx, "a@x.com", "00000")
	assert.ErrorIs(t, err, domain.ErrOTPMismatch)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestValidate_NotFound(t *testing.T) {
	s, _ := newTestStore()
	_, err := s.Validate(context.Background(), "ghost@x.com", "12345")
	assert.ErrorIs(t, err, domain.ErrOTPNotFound)
}

func TestValidate_ExpiresAtBoundary(t *testing.T) {
	s, clock := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, pending("a@x.com", "54321"), 5*time.Minute))

	clock.Advance(5*time.Minute - time.Second)
	_, err := s.Validate(ctx, "a@x.com", "54321")
	require.NoError(t, err)

	clock.Advance(time.Second)
	_, err = s.Validate(ctx, "a@x.com", "54321")
	assert.ErrorIs(t, err, domain.ErrOTPExpired)

	clock.Advance(time.Hour)
	_, err = s.Validate(ctx, "a@x.com", "54321")
	assert.ErrorIs(t, err, domain.ErrOTPExpired)
}

func TestDelete_Idempotent(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, pending("a@x.com", "54321"), 0))
	require.NoError(t, s.Delete(ctx, "a@x.com"))
	require.NoError(t, s.Delete(ctx, "a@x.com"))

	_, err := s.Get(ctx, "a@x.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGet_ReturnsCopy(t *testing.T) {
	s, _ := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, pending("a@x.com", "54321"), 0))
	got, err := s.Get(ctx, "a@x.com")
	require.NoError(t, err)
	got.OTPCode = "tampered"

	again, err := s.Get(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "54321", again.OTPCode)
}

func TestPurge_KeepsEntriesWithinRetention(t *testing.T) {
	s, clock := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, pending("old@x.com", "11111"), time.Minute))
	clock.Advance(20 * time.Minute)
	require.NoError(t, s.Set(ctx, pending("new@x.com", "22222"), time.Minute))

	assert.Equal(t, 0, s.purge())

	clock.Advance(15 * time.Minute)
	assert.Equal(t, 1, s.purge())
	_, err := s.Get(ctx, "old@x.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.Get(ctx, "new@x.com")
	assert.NoError(t, err)
}

func TestRun_StopsOnCancel(t *testing.T) {
	s, _ := newTestStore()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
