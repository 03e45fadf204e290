package redisinfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/palitan-tayo-api/internal/domain"
	"github.com/redis/go-redis/v9"
)

// PendingStore keeps pending registrations in Redis as JSON under
// "<namespace>:<email>". Keys carry a native TTL of expiry plus retention so
// an expired code is still reported as expired for a while.
type PendingStore struct {
	client     redis.UniversalClient
	namespace  string
	defaultTTL time.Duration
	retention  time.Duration
	now        func() time.Time
}

func NewPendingStore(client redis.UniversalClient, namespace string, defaultTTL, retention time.Duration) *PendingStore {
	return &PendingStore{
		client:     client,
		namespace:  namespace,
		defaultTTL: defaultTTL,
		retention:  retention,
		now:        time.Now,
	}
}

func (s *PendingStore) key(email string) string {
	return s.namespace + ":" + email
}

func (s *PendingStore) Set(ctx context.Context, reg domain.PendingRegistration, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	now := s.now()
	reg.CreatedAt = now
	reg.ExpiresAt = now.Add(ttl)
	b, err := json.Marshal(reg)
	if err != nil {
		return fmt.Errorf("marshal pending registration: %w", err)
	}
	if err := s.client.Set(ctx, s.key(reg.Email), b, ttl+s.retention).Err(); err != nil {
		return fmt.Errorf("redis set pending registration: %w", err)
	}
	return nil
}

func (s *PendingStore) Get(ctx context.Context, email string) (*domain.PendingRegistration, error) {
	b, err := s.client.Get(ctx, s.key(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get pending registration: %w", err)
	}
	var reg domain.PendingRegistration
	if err := json.Unmarshal(b, &reg); err != nil {
		return nil, fmt.Errorf("unmarshal pending registration: %w", err)
	}
	return &reg, nil
}

func (s *PendingStore) Validate(ctx context.Context, email, otp string) (*domain.PendingRegistration, error) {
	reg, err := s.Get(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrOTPNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := reg.Check(otp, s.now()); err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *PendingStore) Delete(ctx context.Context, email string) error {
	if err := s.client.Del(ctx, s.key(email)).Err(); err != nil {
		return fmt.Errorf("redis delete pending registration: %w", err)
	}
	return nil
}
