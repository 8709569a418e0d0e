// Package throttle spaces out page requests.
//
// Two waiters are provided:
//
// Jitter:
//   - sleeps a uniformly random duration in [0, max) before each request
//   - the default and only throttle of a crawl (max defaults to 2s)
//
// RateCap:
//   - caps requests per minute using golang.org/x/time/rate
//   - opt-in; a zero rate disables it
//
// Both honor context cancellation. New chains them in that order:
//
//	waiter := throttle.New(2*time.Second, 0)
//	if err := waiter.Wait(ctx); err != nil {
//	    return err // cancelled
//	}
package throttle
