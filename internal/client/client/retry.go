package client

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/dealerclient/internal/logging"
	"github.com/sethvargo/go-retry"
)

// retryTransport retries Network-kind failures with exponential backoff.
// HTTP-level errors, 401 included, are returned on the first attempt.
type retryTransport struct {
	next        Doer
	maxAttempts int
	newBackoff  func() retry.Backoff
	log         logging.Logger
}

func newRetryTransport(next Doer, maxAttempts int, baseDelay time.Duration, log logging.Logger) *retryTransport {
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	return &retryTransport{
		next:        next,
		maxAttempts: maxAttempts,
		newBackoff:  func() retry.Backoff { return retry.NewExponential(baseDelay) },
		log:         log,
	}
}

func (t *retryTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	if req.NoRetry || t.maxAttempts <= 1 {
		return t.next.Do(ctx, req)
	}

	var (
		resp    *Response
		attempt int
	)
	b := retry.WithMaxRetries(uint64(t.maxAttempts-1), t.newBackoff())
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		r, err := t.next.Do(ctx, req)
		if err == nil {
			resp = r
			return nil
		}
		if KindOf(err) == KindNetwork && ctx.Err() == nil {
			t.log.Warn(ctx, "request attempt failed", "method", req.Method, "path", req.Path, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			// ctx ended between attempts
			return nil, newNetworkError(err)
		}
		return nil, err
	}
	return resp, nil
}
