package throttle

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Waiter delays a caller before it issues a request
type Waiter interface {
	// Wait blocks until the caller may proceed or ctx is done
	Wait(ctx context.Context) error
}

// Jitter waits a uniformly random duration in [0, max)
type Jitter struct {
	max    time.Duration
	mu     sync.Mutex
	int64n func(n int64) int64
}

// NewJitter creates a jitter waiter. A max of zero or less never waits.
func NewJitter(max time.Duration) *Jitter {
	return &Jitter{
		max:    max,
		int64n: rand.Int63n,
	}
}

// Max returns the exclusive upper bound of the delay
func (j *Jitter) Max() time.Duration {
	return j.max
}

// Delay draws the next delay
func (j *Jitter) Delay() time.Duration {
	if j.max <= 0 {
		return 0
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return time.Duration(j.int64n(int64(j.max)))
}

// Wait sleeps for a random delay
func (j *Jitter) Wait(ctx context.Context) error {
	return sleep(ctx, j.Delay())
}

// RateCap limits requests to a fixed number per minute, no bursts
type RateCap struct {
	limiter *rate.Limiter
}

// NewRateCap creates a cap of perMinute requests per minute. It returns nil
// when perMinute is zero or less, meaning no cap.
func NewRateCap(perMinute int) *RateCap {
	if perMinute <= 0 {
		return nil
	}
	interval := time.Minute / time.Duration(perMinute)
	return &RateCap{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait blocks until the next request slot
func (r *RateCap) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}

// Allow reports whether a request may go out right now, consuming the slot
func (r *RateCap) Allow() bool {
	return r.limiter.Allow()
}

// Chain runs several waiters in order
type Chain []Waiter

// Wait runs each waiter, stopping at the first error
func (c Chain) Wait(ctx context.Context) error {
	for _, w := range c {
		if err := w.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Nop never waits, but still honors a cancelled context
type Nop struct{}

// Wait returns ctx.Err()
func (Nop) Wait(ctx context.Context) error {
	return ctx.Err()
}

// New builds the crawl throttle: jitter first, then the optional cap
func New(maxJitter time.Duration, perMinute int) Waiter {
	chain := Chain{NewJitter(maxJitter)}
	if rc := NewRateCap(perMinute); rc != nil {
		chain = append(chain, rc)
	}
	return chain
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
