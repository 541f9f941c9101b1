// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/pdiddy/research-agent/pkg/types"
)

// ErrRetriesExhausted wraps the last cycle error once the retry budget is
// spent.
var ErrRetriesExhausted = errors.New("cycle retries exhausted")

const (
	defaultBaseDelay = 30 * time.Second
	defaultMaxDelay  = 30 * time.Minute
)

// RetryPolicy retries a failed cycle with exponential backoff: the first
// delay is BaseDelay and each following delay doubles, capped at MaxDelay.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// sleep waits for d or until ctx is done. Tests replace it.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryPolicy builds a policy from cfg, filling unset delays.
func NewRetryPolicy(cfg types.RetryConfig) RetryPolicy {
	p := RetryPolicy{
		MaxRetries: max(cfg.MaxRetries, 0),
		BaseDelay:  cfg.BaseDelay,
		MaxDelay:   cfg.MaxDelay,
		sleep:      sleepCtx,
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultBaseDelay
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = max(defaultMaxDelay, p.BaseDelay)
	}
	return p
}

func (p RetryPolicy) backOff() *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         p.MaxDelay,
	}
	b.Reset()
	return b
}

// Delays returns the waits Run would take between MaxRetries+1 failing
// attempts.
func (p RetryPolicy) Delays() []time.Duration {
	b := p.backOff()
	out := make([]time.Duration, p.MaxRetries)
	for i := range out {
		out[i] = b.NextBackOff()
	}
	return out
}

// Run calls fn until it succeeds or MaxRetries retries have failed. onRetry,
// if set, is told about each failure before the wait. The returned count is
// the number of attempts made. A done ctx stops the waits, not an attempt
// already in progress.
func (p RetryPolicy) Run(ctx context.Context, fn func() error, onRetry func(attempt int, delay time.Duration, err error)) (int, error) {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	b := p.backOff()

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return attempt, nil
		}
		if attempt > p.MaxRetries {
			return attempt, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt, err)
		}

		delay := b.NextBackOff()
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return attempt, fmt.Errorf("waiting to retry: %w", serr)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
