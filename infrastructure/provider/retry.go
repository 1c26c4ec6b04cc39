package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// retryPolicy drives the exponential backoff shared by the embedding
// providers.
type retryPolicy struct {
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		maxRetries:    5,
		initialDelay:  2 * time.Second,
		backoffFactor: 2.0,
	}
}

// withOverrides returns the policy with every non-zero field replaced.
func (rp retryPolicy) withOverrides(maxRetries int, initialDelay time.Duration, backoffFactor float64) retryPolicy {
	if maxRetries != 0 {
		rp.maxRetries = maxRetries
	}
	if initialDelay != 0 {
		rp.initialDelay = initialDelay
	}
	if backoffFactor != 0 {
		rp.backoffFactor = backoffFactor
	}
	return rp
}

// retryableStatus reports whether an HTTP status is worth another attempt.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// run calls fn until it succeeds, retryable rejects the error, the context
// is done, or the attempt budget runs out.
func (rp retryPolicy) run(ctx context.Context, retryable func(error) bool, fn func() error) error {
	delay := rp.initialDelay
	var lastErr error

	for attempt := 0; attempt <= rp.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if !retryable(lastErr) {
			return lastErr
		}

		if attempt < rp.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay = time.Duration(float64(delay) * rp.backoffFactor)
			}
		}
	}

	return fmt.Errorf("max retries exceeded: %w", lastErr)
}
