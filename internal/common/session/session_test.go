package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"joinnow/internal/common/errors"
	"joinnow/internal/common/logger"
	"joinnow/internal/models"
)

type testState struct {
	Step int    `json:"step"`
	Name string `json:"name"`
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ""), mr
}

// ==========================
// Store contract
// ==========================

func TestStores_Contract(t *testing.T) {
	stores := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"redis": func(t *testing.T) Store {
			s, _ := newRedisStore(t)
			return s
		},
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore(t)

			_, err := store.Get(ctx, "missing")
			assert.ErrorIs(t, err, errors.ErrSessionNotFound)

			s := models.NewSession("abc", time.Hour)
			s.State = json.RawMessage(`{"step":2}`)
			require.NoError(t, store.Put(ctx, s))

			got, err := store.Get(ctx, "abc")
			require.NoError(t, err)
			assert.Equal(t, "abc", got.ID)
			assert.JSONEq(t, `{"step":2}`, string(got.State))

			require.NoError(t, store.Delete(ctx, "abc"))
			_, err = store.Get(ctx, "abc")
			assert.ErrorIs(t, err, errors.ErrSessionNotFound)
		})
	}
}

// ==========================
// MemoryStore
// ==========================

func TestMemoryStore_ExpiredSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	expired := models.NewSession("old", time.Hour)
	expired.ExpiresAt = time.Now().Add(-time.Minute)
	require.NoError(t, store.Put(ctx, expired))
	require.NoError(t, store.Put(ctx, models.NewSession("fresh", time.Hour)))
	require.NoError(t, store.Put(ctx, &models.Session{ID: "old2", ExpiresAt: time.Now().Add(-time.Second)}))

	assert.Equal(t, 2, store.Sweep())
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Put(ctx, expired))
	_, err := store.Get(ctx, "old")
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)
	assert.Equal(t, 1, store.Len(), "expired session dropped on read")
}

func TestMemoryStore_CopiesState(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s := models.NewSession("abc", time.Hour)
	s.State = json.RawMessage(`{"step":1}`)
	require.NoError(t, store.Put(ctx, s))
	s.State[1] = 'X'

	got, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"step":1}`, string(got.State))
}

func TestMemoryStore_RunJanitorStops(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), &models.Session{ID: "x", ExpiresAt: time.Now().Add(-time.Second)}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		store.RunJanitor(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

// ==========================
// RedisStore
// ==========================

func TestRedisStore_KeyAndTTL(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, models.NewSession("abc", 10*time.Minute)))

	assert.True(t, mr.Exists("wizard:session:abc"))
	ttl := mr.TTL("wizard:session:abc")
	assert.True(t, ttl > 9*time.Minute && ttl <= 10*time.Minute, "ttl %s", ttl)

	mr.FastForward(11 * time.Minute)
	_, err := store.Get(ctx, "abc")
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)
}

func TestRedisStore_PutExpiredDeletes(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	s := models.NewSession("abc", time.Hour)
	require.NoError(t, store.Put(ctx, s))
	s.ExpiresAt = time.Now().Add(-time.Second)
	require.NoError(t, store.Put(ctx, s))

	assert.False(t, mr.Exists("wizard:session:abc"))
}

func TestRedisStore_ConnectionFailure(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()

	err := store.Put(context.Background(), models.NewSession("abc", time.Hour))
	assert.ErrorIs(t, err, errors.ErrSessionStoreFailed)
}

func TestRedisStore_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("get error", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		store := NewRedisStore(client, "p:")
		mock.ExpectGet("p:abc").SetErr(fmt.Errorf("connection reset"))

		_, err := store.Get(ctx, "abc")
		assert.ErrorIs(t, err, errors.ErrSessionStoreFailed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt payload", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		store := NewRedisStore(client, "p:")
		mock.ExpectGet("p:abc").SetVal("not json")

		_, err := store.Get(ctx, "abc")
		require.Error(t, err)
		stdErr, ok := errors.AsStandardError(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrCodeSessionStoreFailed, stdErr.Code)
		assert.Contains(t, stdErr.Details, "decode")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil is not found", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		store := NewRedisStore(client, "p:")
		mock.ExpectGet("p:abc").RedisNil()

		_, err := store.Get(ctx, "abc")
		assert.ErrorIs(t, err, errors.ErrSessionNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete error", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		store := NewRedisStore(client, "p:")
		mock.ExpectDel("p:abc").SetErr(fmt.Errorf("readonly"))

		err := store.Delete(ctx, "abc")
		assert.ErrorIs(t, err, errors.ErrSessionStoreFailed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

// ==========================
// Manager
// ==========================

func TestManager_StartLoadSave(t *testing.T) {
	ctx := context.Background()
	m := NewManager(ManagerOptions{TTL: time.Hour, Logger: logger.NewTestLogger(t)})

	s, err := m.Start(ctx, testState{Step: 1})
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)

	var st testState
	loaded, err := m.Load(ctx, s.ID, &st)
	require.NoError(t, err)
	assert.Equal(t, s.ID, loaded.ID)
	assert.Equal(t, 1, st.Step)

	before := loaded.ExpiresAt
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, m.Save(ctx, loaded, testState{Step: 2, Name: "Ann"}))
	assert.True(t, loaded.ExpiresAt.After(before), "expiry slides on save")

	st = testState{}
	_, err = m.Load(ctx, s.ID, &st)
	require.NoError(t, err)
	assert.Equal(t, testState{Step: 2, Name: "Ann"}, st)

	require.NoError(t, m.Delete(ctx, s.ID))
	_, err = m.Load(ctx, s.ID, &st)
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)
}

func TestManager_LoadDiscardsUndecodableState(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m := NewManager(ManagerOptions{Store: store, TTL: time.Hour, Logger: logger.NewTestLogger(t)})

	s, err := m.Start(ctx, testState{Step: 1})
	require.NoError(t, err)

	raw, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	raw.State = json.RawMessage(`{"step":"two"}`)
	require.NoError(t, store.Put(ctx, raw))

	var st testState
	_, err = m.Load(ctx, s.ID, &st)
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)

	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)
}

func TestManager_LoadEmptyID(t *testing.T) {
	m := NewManager(ManagerOptions{})
	_, err := m.Load(context.Background(), "", nil)
	assert.ErrorIs(t, err, errors.ErrSessionNotFound)
	assert.Equal(t, DefaultTTL, m.TTL())
}

func TestManager_UnencodableState(t *testing.T) {
	m := NewManager(ManagerOptions{})
	_, err := m.Start(context.Background(), map[string]interface{}{"ch": make(chan int)})
	assert.ErrorIs(t, err, errors.ErrSessionStoreFailed)
}

func TestManager_WithRedisStore(t *testing.T) {
	store, _ := newRedisStore(t)
	m := NewManager(ManagerOptions{Store: store, TTL: time.Minute})
	ctx := context.Background()

	s, err := m.Start(ctx, testState{Name: "Ann"})
	require.NoError(t, err)

	var st testState
	_, err = m.Load(ctx, s.ID, &st)
	require.NoError(t, err)
	assert.Equal(t, "Ann", st.Name)
}

func TestManager_LockSerializes(t *testing.T) {
	m := NewManager(ManagerOptions{})

	var active, maxActive int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := m.Lock("same")
			defer unlock()

			n := atomic.AddInt32(&active, 1)
			for {
				cur := atomic.LoadInt32(&maxActive)
				if n <= cur || atomic.CompareAndSwapInt32(&maxActive, cur, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxActive)
	assert.Empty(t, m.locks.locks, "lock entries released")

	unlock := m.Lock("other")
	unlock()
	unlock()
}
