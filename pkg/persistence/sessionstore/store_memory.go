package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/go-go-golems/parley/pkg/api"
)

// InMemoryStore is a Store for tests and ephemeral runs. It mirrors the
// overwrite semantics of the sqlite store.
type InMemoryStore struct {
	mu      sync.Mutex
	snap    *Snapshot
	pending map[string]api.Summary
}

var _ Store = &InMemoryStore{}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{pending: map[string]api.Summary{}}
}

func (s *InMemoryStore) Close() error { return nil }

func (s *InMemoryStore) Save(_ context.Context, snap Snapshot) error {
	if snap.SavedAtMs == 0 {
		snap.SavedAtMs = time.Now().UnixMilli()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = &snap
	return nil
}

func (s *InMemoryStore) Load(_ context.Context) (Snapshot, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return Snapshot{}, false, nil
	}
	return *s.snap, true, nil
}

func (s *InMemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = nil
	return nil
}

func (s *InMemoryStore) SavePendingSummary(_ context.Context, sessionID string, summary *api.Summary) error {
	if sessionID == "" || summary == nil {
		return errEmptyPendingSummary
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[sessionID] = *summary
	return nil
}

func (s *InMemoryStore) LoadPendingSummary(_ context.Context, sessionID string) (*api.Summary, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	summary, ok := s.pending[sessionID]
	if !ok {
		return nil, false, nil
	}
	return &summary, true, nil
}

func (s *InMemoryStore) ClearPendingSummary(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, sessionID)
	return nil
}
