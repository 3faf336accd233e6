// Package ports defines the boundary interfaces of the engine: checkpoint
// persistence, distributed locking, the catalogue store, and the narrow
// contracts of the external collaborators (verification, payment, song
// matching, video lookup, intent classification, chat agent).
//
// Adapters implement these interfaces; the engine depends on nothing else.
package ports
