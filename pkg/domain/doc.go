// Package domain holds the core data model of the engine: the aggregate
// conversation state, the per-flow state slices, checkpoints, suspension
// prompts, outbox items and the merge rules that combine step updates.
//
// The package is persistence- and transport-agnostic: everything here is
// plain data that serializes to JSON.
package domain
