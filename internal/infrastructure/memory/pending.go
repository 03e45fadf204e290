// Package memory holds process-local store implementations. They do not
// survive restarts and are not shared between instances.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/palitan-tayo-api/internal/domain"
)

// PendingStore keeps pending registrations in a mutex-guarded map.
type PendingStore struct {
	mu         sync.Mutex
	entries    map[string]domain.PendingRegistration
	defaultTTL time.Duration
	retention  time.Duration
	now        func() time.Time
}

// NewPendingStore creates an empty store. Entries are purged by Run once they
// are retention past their expiry.
func NewPendingStore(defaultTTL, retention time.Duration) *PendingStore {
	return &PendingStore{
		entries:    make(map[string]domain.PendingRegistration),
		defaultTTL: defaultTTL,
		retention:  retention,
		now:        time.Now,
	}
}

func (s *PendingStore) Set(_ context.Context, reg domain.PendingRegistration, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	now := s.now()
	reg.CreatedAt = now
	reg.ExpiresAt = now.Add(ttl)

	s.mu.Lock()
	s.entries[reg.Email] = reg
	s.mu.Unlock()
	return nil
}

func (s *PendingStore) Get(_ context.Context, email string) (*domain.PendingRegistration, error) {
	s.mu.Lock()
	reg, ok := s.entries[email]
	s.mu.Unlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &reg, nil
}

func (s *PendingStore) Validate(ctx context.Context, email, otp string) (*domain.PendingRegistration, error) {
	reg, err := s.Get(ctx, email)
	if err != nil {
		return nil, domain.ErrOTPNotFound
	}
	if err := reg.Check(otp, s.now()); err != nil {
		return nil, err
	}
	return reg, nil
}

func (s *PendingStore) Delete(_ context.Context, email string) error {
	s.mu.Lock()
	delete(s.entries, email)
	s.mu.Unlock()
	return nil
}

// Len returns the number of entries currently held, expired ones included.
func (s *PendingStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Run purges stale entries every interval until ctx is done.
func (s *PendingStore) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.purge()
		}
	}
}

func (s *PendingStore) purge() int {
	cutoff := s.now().Add(-s.retention)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for email, reg := range s.entries {
		if reg.ExpiresAt.Before(cutoff) {
			delete(s.entries, email)
			n++
		}
	}
	return n
}
