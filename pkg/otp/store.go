package otp

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrCodeNotFound is returned when no code is pending for the phone number.
	ErrCodeNotFound = errors.New("otp code not found or expired")
	// ErrCodeMismatch is returned when the submitted code does not match.
	ErrCodeMismatch = errors.New("otp code mismatch")
	// ErrTooManyAttempts is returned once the attempt budget is spent; the code is burned.
	ErrTooManyAttempts = errors.New("otp attempts exhausted")
)

// Store keeps pending one-time codes keyed by phone number.
type Store interface {
	Save(ctx context.Context, phone, code string, ttl time.Duration) error
	Verify(ctx context.Context, phone, code string) error
}

// MemoryStore is a process-local Store used for development and tests.
type MemoryStore struct {
	mu          sync.Mutex
	entries     map[string]memoryEntry
	maxAttempts int
	now         func() time.Time
}

type memoryEntry struct {
	code      string
	expiresAt time.Time
	attempts  int
}

// NewMemoryStore builds an in-memory Store.
func NewMemoryStore(maxAttempts int) *MemoryStore {
	return &MemoryStore{
		entries:     map[string]memoryEntry{},
		maxAttempts: maxAttempts,
		now:         time.Now,
	}
}

func (m *MemoryStore) Save(_ context.Context, phone, code string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[phone] = memoryEntry{code: code, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Verify(_ context.Context, phone, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[phone]
	if !ok || !m.now().Before(entry.expiresAt) {
		delete(m.entries, phone)
		return ErrCodeNotFound
	}
	if entry.code == code {
		delete(m.entries, phone)
		return nil
	}
	entry.attempts++
	if m.maxAttempts > 0 && entry.attempts >= m.maxAttempts {
		delete(m.entries, phone)
		return ErrTooManyAttempts
	}
	m.entries[phone] = entry
	return ErrCodeMismatch
}
