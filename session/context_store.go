// Package session persists in-progress transfer contexts for callers that
// cannot round-trip them, keyed by an opaque session ID. The core itself
// never touches this: it is the server-side convenience the original chat UI
// kept in its session state.
package session

import (
	"context"
	"sync"
	"time"

	"fintrans/domain"
)

// DefaultTTL bounds how long an abandoned flow lingers. A stale context that
// is never resubmitted simply expires; no explicit cleanup is required.
const DefaultTTL = 10 * time.Minute

// ContextStore stores at most one in-progress transfer context per session.
type ContextStore interface {
	Get(ctx context.Context, sessionID string) (*domain.TransferContext, error)
	Put(ctx context.Context, sessionID string, tctx *domain.TransferContext) error
	Delete(ctx context.Context, sessionID string) error
}

type memoryEntry struct {
	tctx      domain.TransferContext
	expiresAt time.Time
}

// MemoryStore is the in-process ContextStore used by single-instance
// deployments and tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{entries: make(map[string]memoryEntry), ttl: ttl}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*domain.TransferContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[sessionID]
	if !ok {
		return nil, nil
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.entries, sessionID)
		return nil, nil
	}
	copied := entry.tctx
	return &copied, nil
}

func (s *MemoryStore) Put(_ context.Context, sessionID string, tctx *domain.TransferContext) error {
	if tctx == nil {
		return s.Delete(context.Background(), sessionID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sessionID] = memoryEntry{tctx: *tctx, expiresAt: time.Now().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	return nil
}
