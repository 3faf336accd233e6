package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/harmonyshop/cadenza/internal/logging"
	"github.com/harmonyshop/cadenza/pkg/domain"
	"github.com/harmonyshop/cadenza/pkg/ports"
)

// lockTTL bounds distributed lock ownership so a crashed replica cannot
// hold a thread forever.
const lockTTL = 30 * time.Second

// lockEntry holds the per-thread mutex and its reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager coordinates thread access: one turn at a time per thread, durable
// checkpoints underneath. Reference counting garbage collects idle locks.
type Manager struct {
	store ports.CheckpointStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker ports.DistributedLocker
	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLogger configures a logger for deferred errors.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager over the given checkpoint store.
func NewManager(store ports.CheckpointStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		locks:  make(map[string]*lockEntry),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller locks entry.mu and calls release(threadID) after unlocking.
func (m *Manager) acquire(threadID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[threadID]
	if !exists {
		entry = &lockEntry{}
		m.locks[threadID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count, deleting the entry at zero.
func (m *Manager) release(threadID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[threadID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, threadID)
	}
}

// Load returns the state at the thread's latest checkpoint.
func (m *Manager) Load(ctx context.Context, threadID string) (*domain.State, error) {
	var state *domain.State
	err := m.WithLock(ctx, threadID, func(ctx context.Context) error {
		var err error
		state, err = m.resumeFrom(ctx, threadID)
		return err
	})
	return state, err
}

// LoadOrStart loads the thread's latest state, initializing a fresh one for
// userID when the thread has no checkpoints yet. The initial checkpoint is
// written immediately so the thread id is reserved.
func (m *Manager) LoadOrStart(ctx context.Context, threadID string, userID int) (*domain.State, error) {
	var state *domain.State
	err := m.WithLock(ctx, threadID, func(ctx context.Context) error {
		var err error
		state, err = m.resumeFrom(ctx, threadID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrThreadNotFound) {
			return fmt.Errorf("failed to check thread existence: %w", err)
		}

		state = domain.NewState(threadID, userID)
		if _, err := m.store.Append(ctx, threadID, state); err != nil {
			return fmt.Errorf("failed to initialize thread: %w", err)
		}
		return nil
	})
	return state, err
}

// Append writes the state as the thread's next checkpoint.
func (m *Manager) Append(ctx context.Context, threadID string, state *domain.State) (*domain.Checkpoint, error) {
	var cp *domain.Checkpoint
	err := m.WithLock(ctx, threadID, func(ctx context.Context) error {
		var err error
		cp, err = m.store.Append(ctx, threadID, state)
		return err
	})
	return cp, err
}

// Delete removes the thread's checkpoint log.
func (m *Manager) Delete(ctx context.Context, threadID string) error {
	return m.WithLock(ctx, threadID, func(ctx context.Context) error {
		return m.store.Delete(ctx, threadID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying checkpoint store.
func (m *Manager) Store() ports.CheckpointStore {
	return m.store
}

// resumeFrom is the single read path: always the latest checkpoint.
func (m *Manager) resumeFrom(ctx context.Context, threadID string) (*domain.State, error) {
	cp, err := m.store.Load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return cp.State, nil
}

// WithLock runs fn while holding the thread's lock. With a distributed
// locker configured the local mutex is taken first, then the remote lock,
// so local contention never hammers Redis.
func (m *Manager) WithLock(ctx context.Context, threadID string, fn func(context.Context) error) error {
	entry := m.acquire(threadID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(threadID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, threadID, lockTTL)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrThreadBusy, err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("failed to release distributed lock (will expire via TTL)",
					"thread_id", threadID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
