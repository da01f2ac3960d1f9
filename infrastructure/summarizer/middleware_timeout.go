package summarizer

import (
	"context"
	"time"

	"github.com/ahrav/go-precis/internal/domain"
)

// timeoutBackend bounds every Summarize call with a deadline.
type timeoutBackend struct {
	next    Backend
	timeout time.Duration
}

// TimeoutMiddleware creates middleware that enforces a per-request timeout.
// A non-positive timeout disables it.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next Backend) Backend {
		if timeout <= 0 {
			return next
		}
		return &timeoutBackend{next: next, timeout: timeout}
	}
}

// Summarize runs the request under a context that expires after the timeout.
func (t *timeoutBackend) Summarize(ctx context.Context, req domain.SummaryRequest) (domain.Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Summarize(ctx, req)
}

func (t *timeoutBackend) Name() string    { return t.next.Name() }
func (t *timeoutBackend) Model() string   { return t.next.Model() }
func (t *timeoutBackend) Unwrap() Backend { return t.next }
