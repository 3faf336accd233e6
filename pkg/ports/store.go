package ports

import (
	"context"

	"github.com/harmonyshop/cadenza/pkg/domain"
)

// CheckpointStore persists the per-thread checkpoint log. Checkpoints are
// immutable and totally ordered per thread; Append assigns the next sequence
// number. This enables durable stop-and-resume across process restarts.
type CheckpointStore interface {
	// Load returns the latest checkpoint for the thread.
	// Returns domain.ErrThreadNotFound if the thread has none.
	Load(ctx context.Context, threadID string) (*domain.Checkpoint, error)

	// Append snapshots the state as a new checkpoint with the next sequence
	// number and returns it.
	Append(ctx context.Context, threadID string, state *domain.State) (*domain.Checkpoint, error)

	// Delete removes the thread's entire checkpoint log.
	Delete(ctx context.Context, threadID string) error

	// List returns the ids of all threads with at least one checkpoint.
	List(ctx context.Context) ([]string, error)
}
