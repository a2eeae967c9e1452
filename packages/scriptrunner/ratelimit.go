package scriptrunner

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimited caps how often the wrapped runner is invoked.
type RateLimited struct {
	next    Runner
	limiter *rate.Limiter
}

// NewRateLimited wraps next so that it is invoked at most perSecond times
// per second, allowing bursts of burst invocations.
func NewRateLimited(next Runner, perSecond float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Invoke waits for a token and then invokes the wrapped runner.
func (r *RateLimited) Invoke(ctx context.Context, code string) (*Result, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		// Wait refuses up front when no token can arrive before the deadline.
		if _, ok := ctx.Deadline(); ok && ctx.Err() == nil {
			return nil, fmt.Errorf("rate limiter: %w: %v", context.DeadlineExceeded, err)
		}
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	return r.next.Invoke(ctx, code)
}

// Describe reports the wrapped runner and the limit.
func (r *RateLimited) Describe() string {
	return fmt.Sprintf("%s (max %.4g/s)", Describe(r.next), float64(r.limiter.Limit()))
}
