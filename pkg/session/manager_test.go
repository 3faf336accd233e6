package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonyshop/cadenza/pkg/domain"
	"github.com/harmonyshop/cadenza/pkg/session"
)

// SlowStore simulates IO latency to provoke races if locking is missing.
type SlowStore struct {
	logs map[string][]*domain.Checkpoint
	mu   sync.Mutex
}

func (s *SlowStore) Load(ctx context.Context, threadID string) (*domain.Checkpoint, error) {
	time.Sleep(10 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logs[threadID]
	if len(log) == 0 {
		return nil, domain.ErrThreadNotFound
	}
	return log[len(log)-1], nil
}

func (s *SlowStore) Append(ctx context.Context, threadID string, state *domain.State) (*domain.Checkpoint, error) {
	time.Sleep(10 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.logs == nil {
		s.logs = make(map[string][]*domain.Checkpoint)
	}
	cp := &domain.Checkpoint{
		ThreadID: threadID,
		Seq:      int64(len(s.logs[threadID]) + 1),
		State:    state.Clone(),
	}
	s.logs[threadID] = append(s.logs[threadID], cp)
	return cp, nil
}

func (s *SlowStore) Delete(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, threadID)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	return nil, nil
}

func TestManagerSerializesAppends(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	_, err := manager.Append(ctx, id, domain.NewState(id, 1))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Append(ctx, id, domain.NewState(id, 1))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Serialized appends produce a dense, totally ordered log.
	cp, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(11), cp.Seq)
}

func TestManagerLoadOrStart(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "atomic-init"

	// Two goroutines racing to init the same thread must not both create it.
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			state, err := manager.LoadOrStart(ctx, id, 7)
			assert.NoError(t, err)
			assert.NotNil(t, state)
		}()
	}
	wg.Wait()

	state, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 7, state.UserID)
	assert.Equal(t, domain.RouteNormal, state.Route)

	cp, err := store.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cp.Seq)
}

func TestManagerLoadResumesLatest(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()

	st := domain.NewState("t1", 7)
	_, err := manager.Append(ctx, "t1", st)
	require.NoError(t, err)

	st.Verified = true
	_, err = manager.Append(ctx, "t1", st)
	require.NoError(t, err)

	loaded, err := manager.Load(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, loaded.Verified)
}
