// Package events decouples components that request background work from the
// task runner that executes it. The scheduler and API handlers emit
// TaskRequestEvents without importing the runner; a handler registered at
// startup turns them into queued tasks.
package events
