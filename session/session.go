package session

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"propsignal/identity"
)

var ErrStorageUnavailable = errors.New("session storage unavailable")

// SessionContext carries the anonymous visitor identity into every opinion
// and interest operation. An empty SessionID means the visitor is not yet
// correlatable and callers skip persistence.
type SessionContext struct {
	SessionID string
}

// Correlatable reports whether signals can be stored against this session
func (c SessionContext) Correlatable() bool {
	return c.SessionID != ""
}

// Storage is session-scoped storage for the identifier. Get returns "" and a
// nil error when nothing has been stored yet.
type Storage interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, id string) error
}

// Resolver produces a stable identifier for one browsing session
type Resolver struct {
	storage Storage
	now     func() time.Time
}

func NewResolver(storage Storage) *Resolver {
	return &Resolver{storage: storage, now: time.Now}
}

// SessionID returns the stored identifier, generating and storing one on
// first use. When storage is unavailable it returns "" with
// ErrStorageUnavailable.
func (r *Resolver) SessionID(ctx context.Context) (string, error) {
	if r.storage == nil {
		return "", ErrStorageUnavailable
	}

	id, err := r.storage.Get(ctx)
	if err != nil {
		return "", ErrStorageUnavailable
	}
	if id != "" {
		return id, nil
	}

	id = identity.NewSessionID(r.now())
	if err := r.storage.Set(ctx, id); err != nil {
		return "", ErrStorageUnavailable
	}
	return id, nil
}

// Context resolves the session into a SessionContext. Storage failures yield
// an empty, non-correlatable context rather than an error.
func (r *Resolver) Context(ctx context.Context) SessionContext {
	id, err := r.SessionID(ctx)
	if err != nil {
		log.Printf("Session: %v, continuing uncorrelated", err)
		return SessionContext{}
	}
	return SessionContext{SessionID: id}
}

// MemoryStorage keeps the identifier in process memory
type MemoryStorage struct {
	mu          sync.Mutex
	id          string
	unavailable bool
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// SetUnavailable makes every subsequent call fail
func (m *MemoryStorage) SetUnavailable(unavailable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unavailable = unavailable
}

func (m *MemoryStorage) Get(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return "", ErrStorageUnavailable
	}
	return m.id, nil
}

func (m *MemoryStorage) Set(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.unavailable {
		return ErrStorageUnavailable
	}
	m.id = id
	return nil
}
