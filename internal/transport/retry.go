package transport

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/agentstation/docsync/pkg/constants"
	"github.com/agentstation/docsync/pkg/errors"
)

// RetryPolicy bounds the exponential backoff applied to transient failures.
type RetryPolicy struct {
	Attempts int           // total attempts including the first
	Base     time.Duration // first backoff interval
	Max      time.Duration // cap for a single interval
}

// DefaultRetryPolicy returns 3 attempts with 250ms base backoff capped at 5s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts: constants.MaxAttempts,
		Base:     constants.RetryBackoff,
		Max:      constants.MaxRetryBackoff,
	}
}

func (p RetryPolicy) backoff() retry.Backoff {
	base := p.Base
	if base <= 0 {
		base = constants.RetryBackoff
	}
	b := retry.NewExponential(base)
	if p.Max > 0 {
		b = retry.WithCappedDuration(p.Max, b)
	}
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	return retry.WithMaxRetries(uint64(attempts-1), b)
}

// Retry calls fn until it succeeds, fails with a non-transient error, or the
// policy is exhausted. Only errors matching errors.ErrTransient are retried.
// The returned attempt count is also recorded on a returned
// TransientNetworkError.
func Retry(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) (int, error) {
	attempts := 0
	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		attempts++
		err := fn(ctx)
		if errors.IsTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})

	var transient *errors.TransientNetworkError
	if errors.As(err, &transient) {
		transient.Attempts = attempts
	}
	return attempts, err
}
