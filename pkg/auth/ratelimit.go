package auth

import (
	"context"
	"sync"
	"time"
)

// Limiter checks whether an authenticated request should be allowed.
type Limiter interface {
	Allow(ctx context.Context, identity *Identity) error
}

// SubjectLimiter is a fixed-window rate limiter that tracks request
// counts per subject in memory.
type SubjectLimiter struct {
	rpm      int
	mu       sync.Mutex
	counters map[string]*window
}

type window struct {
	count     int
	startedAt time.Time
}

// NewSubjectLimiter creates a limiter allowing rpm requests per minute
// per subject. An rpm of 0 or less disables limiting.
func NewSubjectLimiter(rpm int) *SubjectLimiter {
	return &SubjectLimiter{
		rpm:      rpm,
		counters: make(map[string]*window),
	}
}

// Allow checks if the request is within the rate limit.
func (l *SubjectLimiter) Allow(_ context.Context, identity *Identity) error {
	if l.rpm <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, ok := l.counters[identity.Subject]
	if !ok || now.Sub(w.startedAt) >= time.Minute {
		l.counters[identity.Subject] = &window{count: 1, startedAt: now}
		return nil
	}

	w.count++
	if w.count > l.rpm {
		return ErrTooManyRequests
	}
	return nil
}
