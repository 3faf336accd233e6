package middleware

import (
	"context"

	"github.com/harmonyshop/cadenza/pkg/domain"
	"github.com/harmonyshop/cadenza/pkg/ports"
)

const mask = "***"

type redactionMiddleware struct {
	next ports.CheckpointStore
}

// NewRedactionMiddleware creates a middleware that strips short-lived
// secrets from state before it is persisted. The verification code a user
// typed is checked within the same invocation, so it never needs to reach
// the backend. Reads are untouched.
func NewRedactionMiddleware() Middleware {
	return func(next ports.CheckpointStore) ports.CheckpointStore {
		return &redactionMiddleware{next: next}
	}
}

func (m *redactionMiddleware) Append(ctx context.Context, threadID string, state *domain.State) (*domain.Checkpoint, error) {
	// Clone so the live state the engine holds keeps its values.
	cloned := state.Clone()
	if cloned.Verification.LastCodeEntered != "" {
		cloned.Verification.LastCodeEntered = mask
	}
	return m.next.Append(ctx, threadID, cloned)
}

func (m *redactionMiddleware) Load(ctx context.Context, threadID string) (*domain.Checkpoint, error) {
	return m.next.Load(ctx, threadID)
}

func (m *redactionMiddleware) Delete(ctx context.Context, threadID string) error {
	return m.next.Delete(ctx, threadID)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
