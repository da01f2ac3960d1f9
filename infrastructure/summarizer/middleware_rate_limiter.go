package summarizer

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-precis/internal/domain"
	"github.com/ahrav/go-precis/internal/ports"
)

// rateLimitedBackend paces requests with a token bucket shared by every
// backend the middleware wraps.
type rateLimitedBackend struct {
	next    Backend
	limiter *rate.Limiter
}

// RateLimitMiddleware creates middleware allowing limit requests per second
// with bursts of up to burst requests.
func RateLimitMiddleware(limit rate.Limit, burst int) Middleware {
	limiter := rate.NewLimiter(limit, burst)
	return func(next Backend) Backend {
		return &rateLimitedBackend{next: next, limiter: limiter}
	}
}

// Summarize blocks until a token is available. When ctx ends first, or its
// deadline is too close for the wait, the request fails with ErrRateLimited.
func (r *rateLimitedBackend) Summarize(ctx context.Context, req domain.SummaryRequest) (domain.Summary, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return domain.Summary{}, fmt.Errorf("%s: %w: %v", r.next.Name(), ports.ErrRateLimited, err)
	}
	return r.next.Summarize(ctx, req)
}

func (r *rateLimitedBackend) Name() string    { return r.next.Name() }
func (r *rateLimitedBackend) Model() string   { return r.next.Model() }
func (r *rateLimitedBackend) Unwrap() Backend { return r.next }
