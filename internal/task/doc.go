// Package task implements persisted background task processing: a buffered
// queue drained by a worker pool, a store-backed recovery path for tasks
// interrupted by a restart, and a monitor that resets tasks stuck in the
// processing state.
package task
