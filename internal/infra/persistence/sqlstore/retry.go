package sqlstore

import (
	"context"

	"github.com/cenkalti/backoff/v5"
)

// Retrying returns a RetryFunc that retries op with exponential backoff while
// transient reports the failure as retryable, up to maxTries attempts.
func Retrying(maxTries uint, transient func(error) bool) RetryFunc {
	return func(ctx context.Context, op func() error) error {
		_, err := backoff.Retry(ctx, func() (struct{}, error) {
			err := op()
			if err == nil {
				return struct{}{}, nil
			}
			if !transient(err) {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}, backoff.WithBackOff(backoff.NewExponentialBackOff()), backoff.WithMaxTries(maxTries))
		return err
	}
}
