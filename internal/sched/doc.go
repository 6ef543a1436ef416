// Package sched implements postbot's persistent deferred-delivery scheduler.
//
// A Scheduler owns an in-memory index of pending jobs backed by a durable
// Store, a monotonic id allocator seeded from the store, and a periodic
// clock that drives sequential evaluation passes. Due jobs are handed to the
// kit.Delivery collaborator exactly once; success and failure both remove
// the job (no retry).
//
// The app runs two instances: one for direct-chat message jobs and one for
// status-broadcast jobs, each with its own store file.
package sched
