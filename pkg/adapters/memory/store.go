// Package memory provides an in-process checkpoint store, used by tests and
// the single-process chat command.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/harmonyshop/cadenza/pkg/domain"
)

// Store implements ports.CheckpointStore in memory.
// Safe for concurrent use.
type Store struct {
	logs map[string][]*domain.Checkpoint
	mu   sync.RWMutex
}

// NewStore creates a new in-memory checkpoint store.
func NewStore() *Store {
	return &Store{
		logs: make(map[string][]*domain.Checkpoint),
	}
}

// Load returns the latest checkpoint for the thread.
func (s *Store) Load(ctx context.Context, threadID string) (*domain.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.logs[threadID]
	if !ok || len(log) == 0 {
		return nil, domain.ErrThreadNotFound
	}
	last := log[len(log)-1]

	// Copy on read so the caller cannot mutate stored checkpoints.
	cp := *last
	cp.State = last.State.Clone()
	return &cp, nil
}

// Append snapshots the state as the next checkpoint in the thread's log.
func (s *Store) Append(ctx context.Context, threadID string, state *domain.State) (*domain.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.logs[threadID]
	cp := &domain.Checkpoint{
		ThreadID:  threadID,
		Seq:       int64(len(log) + 1),
		State:     state.Clone(),
		CreatedAt: time.Now().UTC(),
	}
	s.logs[threadID] = append(log, cp)

	ret := *cp
	ret.State = cp.State.Clone()
	return &ret, nil
}

// Delete removes the thread's entire log.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, threadID)
	return nil
}

// List returns the ids of threads with at least one checkpoint.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	threads := make([]string, 0, len(s.logs))
	for id := range s.logs {
		threads = append(threads, id)
	}
	return threads, nil
}

// Len reports the number of checkpoints stored for the thread.
func (s *Store) Len(threadID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.logs[threadID])
}
