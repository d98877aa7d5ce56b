// Package ratelimit enforces per-user request ceilings derived from
// subscription tiers. Limits are tracked in memory with a sliding window
// per user; a process restart forgives at most one minute of history.
package ratelimit
