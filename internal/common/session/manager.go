package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"

	"joinnow/internal/common/errors"
	"joinnow/internal/common/logger"
	"joinnow/internal/common/metrics"
	"joinnow/internal/models"
)

const DefaultTTL = 2 * time.Hour

// Manager creates, loads and saves sessions with a JSON-encoded state.
// Lock serializes the load-modify-save cycle for one id within this process.
type Manager struct {
	store  Store
	ttl    time.Duration
	logger logger.Logger
	locks  *keyedMutex
}

type ManagerOptions struct {
	Store  Store
	TTL    time.Duration
	Logger logger.Logger
}

func NewManager(opts ManagerOptions) *Manager {
	store := opts.Store
	if store == nil {
		store = NewMemoryStore()
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Manager{store: store, ttl: ttl, logger: log, locks: newKeyedMutex()}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Start creates a session holding state and stores it.
func (m *Manager) Start(ctx context.Context, state interface{}) (*models.Session, error) {
	s := models.NewSession(uuid.NewString(), m.ttl)
	if err := m.Save(ctx, s, state); err != nil {
		return nil, err
	}
	metrics.WizardSessionsStarted.Inc()
	m.logger.Debug("Session started", map[string]interface{}{
		"sessionId": s.ID,
		"expiresAt": s.ExpiresAt,
	})
	return s, nil
}

// Load fetches session id and decodes its state into out. A session whose
// state no longer decodes is deleted and reported as not found.
func (m *Manager) Load(ctx context.Context, id string, out interface{}) (*models.Session, error) {
	if id == "" {
		return nil, errors.NewSessionNotFoundError(id)
	}
	s, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(s.State) > 0 && out != nil {
		if err := json.Unmarshal(s.State, out); err != nil {
			m.logger.Warn("Discarding undecodable session", map[string]interface{}{
				"sessionId": id,
				"error":     err.Error(),
			})
			if derr := m.Delete(ctx, id); derr != nil {
				return nil, derr
			}
			return nil, errors.NewSessionNotFoundError(id)
		}
	}
	return s, nil
}

// Save encodes state into s, slides its expiry and stores it.
func (m *Manager) Save(ctx context.Context, s *models.Session, state interface{}) error {
	data, err := json.Marshal(state)
	if err != nil {
		return errors.NewSessionStoreFailedError("encode state", err)
	}
	s.State = data
	s.Touch(m.ttl)
	return m.store.Put(ctx, s)
}

func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.store.Delete(ctx, id)
}

// Lock acquires the per-session lock and returns its release func.
func (m *Manager) Lock(id string) func() {
	return m.locks.Lock(id)
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*lockEntry)}
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &lockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Unlock()
			k.mu.Lock()
			e.refs--
			if e.refs == 0 {
				delete(k.locks, key)
			}
			k.mu.Unlock()
		})
	}
}
