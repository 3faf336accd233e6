/*
Package session orchestrates thread state access. It serializes turns per
thread with reference-counted local mutexes, optionally backed by a
distributed lock for multi-replica deployments, and delegates durability to
a checkpoint store.
*/
package session
