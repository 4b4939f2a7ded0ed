// Package retry wraps exponential backoff for calls to the chat backend.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/berth-dev/docchat/internal/config"
	"github.com/berth-dev/docchat/internal/log"
)

// Policy bounds a retry loop.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64

	// Retryable reports whether a failure is worth another attempt.
	// Nil retries everything.
	Retryable func(error) bool
}

// FromConfig builds a Policy from the retry section of the config.
func FromConfig(cfg config.RetryConfig, retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts:     cfg.MaxAttempts,
		InitialInterval: cfg.InitialInterval(),
		Retryable:       retryable,
	}
}

func (p Policy) backOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.Multiplier > 0 {
		b.Multiplier = p.Multiplier
	} else {
		b.Multiplier = 2
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	return b
}

// Do runs op until it succeeds, fails permanently, runs out of attempts,
// or ctx is done. Each retry is logged under name.
func Do[T any](ctx context.Context, p Policy, logger *log.Logger, name string, op func(context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	attempt := 0

	return backoff.Retry(ctx, func() (T, error) {
		attempt++
		v, err := op(ctx)
		if err != nil && p.Retryable != nil && !p.Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	},
		backoff.WithBackOff(p.backOff()),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn(log.LogEvent{
				Event:   log.EventAPIRetry,
				Op:      name,
				Attempt: attempt,
				Error:   err.Error(),
				Data:    map[string]any{"next_ms": next.Milliseconds()},
			})
		}),
	)
}
