package session

import (
	"context"
	"sync"
	"time"

	"joinnow/internal/common/errors"
	"joinnow/internal/models"
)

// MemoryStore is a process-local Store. Expired sessions are dropped lazily on
// Get and in bulk by Sweep.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]models.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]models.Session)}
}

func (m *MemoryStore) Get(_ context.Context, id string) (*models.Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()

	if !ok {
		return nil, errors.NewSessionNotFoundError(id)
	}
	if s.IsExpired() {
		m.mu.Lock()
		delete(m.sessions, id)
		m.mu.Unlock()
		return nil, errors.NewSessionNotFoundError(id)
	}

	out := s
	out.State = append([]byte(nil), s.State...)
	return &out, nil
}

func (m *MemoryStore) Put(_ context.Context, s *models.Session) error {
	stored := *s
	stored.State = append([]byte(nil), s.State...)

	m.mu.Lock()
	m.sessions[s.ID] = stored
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep removes expired sessions and returns how many were removed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.IsExpired() {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// RunJanitor calls Sweep every interval until ctx is done.
func (m *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
