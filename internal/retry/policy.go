// Package retry applies a bounded exponential backoff to remote calls.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/spec-kit/ticket-advisor/internal/config"
	apperrors "github.com/spec-kit/ticket-advisor/pkg/util/errorutil"
)

// Policy is the retry budget for one remote call site.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Jitter is the randomization factor applied to each wait.
	Jitter float64
}

// DefaultPolicy allows 3 attempts, waiting 1s then doubling up to 10s.
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: time.Second, MaxDelay: 10 * time.Second}
}

// FromConfig derives a policy from agent configuration, keeping defaults for
// unset values.
func FromConfig(cfg config.AgentConfig) Policy {
	p := DefaultPolicy()
	if cfg.RetryAttempts > 0 {
		p.MaxAttempts = cfg.RetryAttempts
	}
	if cfg.RetryBase() > 0 {
		p.BaseDelay = cfg.RetryBase()
	}
	if cfg.RetryMax() > 0 {
		p.MaxDelay = cfg.RetryMax()
	}
	return p
}

// Notify is called before each wait with the failed attempt's error.
type Notify func(err error, wait time.Duration)

// Do runs op until it succeeds, returns a non-retryable error, or the
// attempt budget is spent. The last error is returned unchanged.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error), notify Notify) (T, error) {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	operation := func() (T, error) {
		res, err := op(ctx)
		if err != nil && !apperrors.IsRetryable(err) {
			return res, backoff.Permanent(err)
		}
		return res, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(attempts)),
	}
	if notify != nil {
		opts = append(opts, backoff.WithNotify(backoff.Notify(notify)))
	}
	return backoff.Retry(ctx, operation, opts...)
}

func (p Policy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = p.Jitter
	return b
}
