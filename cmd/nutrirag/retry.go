package main

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"nutrirag/internal/domain"
)

var retryBase = 500 * time.Millisecond

// withRetries runs fn, retrying provider failures up to retries times.
// Everything else, including a missing credential, fails immediately.
func withRetries(ctx context.Context, retries uint, fn func(ctx context.Context) error) error {
	if retries == 0 {
		return fn(ctx)
	}
	backoff := retry.WithMaxRetries(uint64(retries), retry.WithJitter(50*time.Millisecond, retry.NewExponential(retryBase)))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, domain.ErrUpstreamUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})
}
