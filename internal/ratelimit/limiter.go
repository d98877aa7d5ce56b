package ratelimit

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lambda-platform/lambda-api/internal/domain"
)

// window is the width of the sliding window over which requests are counted.
const window = time.Minute

// Decision is the outcome of a rate limit check.
type Decision struct {
	// Allowed reports whether the request may proceed.
	Allowed bool

	// Remaining is the number of requests left in the current window.
	Remaining int

	// Limit is the tier's per-minute ceiling.
	Limit int

	// RetryAfter is how long the caller should wait before retrying.
	// Zero when Allowed.
	RetryAfter time.Duration
}

// userWindow holds the request timestamps of one user inside the sliding
// window, oldest first.
type userWindow struct {
	stamps []time.Time
}

// Limiter tracks per-user request rates against tier ceilings.
type Limiter struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*userWindow
	timeFunc func() time.Time // Injectable for testing
}

// NewLimiter creates a Limiter.
func NewLimiter() *Limiter {
	return &Limiter{
		users:    make(map[uuid.UUID]*userWindow),
		timeFunc: time.Now,
	}
}

// Allow records a request attempt for the user and decides whether it may
// proceed under the tier's per-minute ceiling. Denied attempts are not
// counted against the window.
func (l *Limiter) Allow(userID uuid.UUID, tier domain.Tier) Decision {
	limit := tier.Limits().RequestsPerMinute
	now := l.timeFunc()
	cutoff := now.Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	uw, ok := l.users[userID]
	if !ok {
		uw = &userWindow{}
		l.users[userID] = uw
	}
	uw.prune(cutoff)

	if len(uw.stamps) >= limit {
		// The window frees a slot when its oldest entry ages out.
		retryAfter := uw.stamps[0].Add(window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
		return Decision{
			Allowed:    false,
			Remaining:  0,
			Limit:      limit,
			RetryAfter: retryAfter,
		}
	}

	uw.stamps = append(uw.stamps, now)
	return Decision{
		Allowed:   true,
		Remaining: limit - len(uw.stamps),
		Limit:     limit,
	}
}

// Prune drops users with no requests inside the window. Intended to be
// called periodically so idle users do not accumulate.
func (l *Limiter) Prune() int {
	cutoff := l.timeFunc().Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	var dropped int
	for userID, uw := range l.users {
		uw.prune(cutoff)
		if len(uw.stamps) == 0 {
			delete(l.users, userID)
			dropped++
		}
	}
	return dropped
}

// ActiveUsers returns the number of users with requests in the window.
func (l *Limiter) ActiveUsers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.users)
}

// prune drops timestamps at or before cutoff.
func (w *userWindow) prune(cutoff time.Time) {
	var i int
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}
