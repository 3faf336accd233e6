// Package middleware wraps checkpoint stores with cross-cutting persistence
// behavior: encryption at rest and secret redaction.
package middleware

import "github.com/harmonyshop/cadenza/pkg/ports"

// Middleware allows wrapping a CheckpointStore to add behavior.
type Middleware func(ports.CheckpointStore) ports.CheckpointStore

// Chain applies middlewares to a store, first in the list outermost.
func Chain(store ports.CheckpointStore, mws ...Middleware) ports.CheckpointStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
