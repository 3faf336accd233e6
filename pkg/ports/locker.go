package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates thread ownership across replicas. A thread
// has one logical owner at a time; turns for the same thread must never run
// concurrently.
type DistributedLocker interface {
	// Lock acquires a distributed lock for the key (a thread id). It blocks
	// until acquired or the context is cancelled. The returned UnlockFunc
	// MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
