package ratelimit

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

const DefaultMaxKeys = 10000

type entry struct {
	val       []byte
	expiresAt time.Time
}

// Store is an in-memory fiber.Storage for the limiter middleware with a hard
// bound on tracked keys. Expired windows are removed by Sweep; when the bound
// is hit the entry closest to expiry is evicted.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	maxKeys int
	now     func() time.Time
}

var _ fiber.Storage = (*Store)(nil)

// NewStore creates a store tracking at most maxKeys clients.
func NewStore(maxKeys int) *Store {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return &Store{
		entries: make(map[string]entry),
		maxKeys: maxKeys,
		now:     time.Now,
	}
}

func (s *Store) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if s.expired(e) {
		delete(s.entries, key)
		return nil, nil
	}
	return e.val, nil
}

func (s *Store) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	var expiresAt time.Time
	if exp > 0 {
		expiresAt = s.now().Add(exp)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxKeys {
		s.sweepLocked()
		if len(s.entries) >= s.maxKeys {
			s.evictOldestLocked()
		}
	}
	// fiber may reuse the buffer
	cp := make([]byte, len(val))
	copy(cp, val)
	s.entries[key] = entry{val: cp, expiresAt: expiresAt}
	return nil
}

func (s *Store) Delete(key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (s *Store) Reset() error {
	s.mu.Lock()
	s.entries = make(map[string]entry)
	s.mu.Unlock()
	return nil
}

func (s *Store) Close() error {
	return nil
}

// Len returns the number of tracked keys, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep drops expired entries and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

func (s *Store) sweepLocked() int {
	removed := 0
	for k, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, k)
			removed++
		}
	}
	return removed
}

func (s *Store) evictOldestLocked() {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
	)
	for k, e := range s.entries {
		if e.expiresAt.IsZero() {
			continue
		}
		if !found || e.expiresAt.Before(oldest) {
			oldestKey, oldest, found = k, e.expiresAt, true
		}
	}
	if !found {
		// only non-expiring entries left, drop any
		for k := range s.entries {
			oldestKey = k
			break
		}
	}
	delete(s.entries, oldestKey)
}

func (s *Store) expired(e entry) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}
