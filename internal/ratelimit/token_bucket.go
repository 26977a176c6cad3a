package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPBuckets keeps one in-process token bucket per client IP.
type IPBuckets struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rps      rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

func NewIPBuckets(rps float64, burst int) *IPBuckets {
	return &IPBuckets{
		visitors: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		idle:     10 * time.Minute,
		now:      time.Now,
	}
}

// Allow takes a token from the bucket of ip.
func (b *IPBuckets) Allow(ip string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	v, ok := b.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(b.rps, b.burst)}
		b.visitors[ip] = v
	}
	v.lastSeen = now

	return v.limiter.AllowN(now, 1)
}

// Sweep drops buckets idle for longer than the idle period.
func (b *IPBuckets) Sweep() {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	for ip, v := range b.visitors {
		if now.Sub(v.lastSeen) > b.idle {
			delete(b.visitors, ip)
		}
	}
}

// SweepEvery calls Sweep on interval until ctx is done.
func (b *IPBuckets) SweepEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.Sweep()
		}
	}
}

func (b *IPBuckets) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.visitors)
}
