package domain

import "time"

// Checkpoint is an immutable snapshot of a thread's state. Checkpoints for a
// thread form a total order by Seq; resuming a thread always continues from
// the latest one.
type Checkpoint struct {
	ThreadID  string    `json:"thread_id"`
	Seq       int64     `json:"seq"`
	State     *State    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}
