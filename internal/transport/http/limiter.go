package http

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const minBucketIdle = time.Minute

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// UserLimiter hands out one token bucket per user id.
// A zero rate disables limiting. Buckets idle for longer than a full refill
// are dropped, since a fresh bucket behaves the same.
type UserLimiter struct {
	mu        sync.Mutex
	limit     rate.Limit
	burst     int
	idle      time.Duration
	now       func() time.Time
	lastSweep time.Time
	buckets   map[string]*bucket
}

func NewUserLimiter(perSecond float64, burst int) *UserLimiter {
	if burst < 1 {
		burst = 1
	}
	idle := minBucketIdle
	if perSecond > 0 {
		if refill := time.Duration(float64(burst) / perSecond * float64(time.Second)); refill > idle {
			idle = refill
		}
	}
	return &UserLimiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		idle:    idle,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow reports whether userID may perform one more grading call now.
func (l *UserLimiter) Allow(userID string) bool {
	if l == nil || l.limit <= 0 {
		return true
	}
	now := l.now()
	l.mu.Lock()
	if now.Sub(l.lastSweep) >= l.idle {
		l.sweepLocked(now)
	}
	b, ok := l.buckets[userID]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[userID] = b
	}
	b.seen = now
	l.mu.Unlock()
	return b.lim.AllowN(now, 1)
}

func (l *UserLimiter) sweepLocked(now time.Time) {
	for id, b := range l.buckets {
		if now.Sub(b.seen) >= l.idle {
			delete(l.buckets, id)
		}
	}
	l.lastSweep = now
}

func (l *UserLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
