// Package ratelimit wraps calls to rate limited providers with a minimum
// pause between calls and a bounded number of attempts.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

var ErrExhausted = errors.New("retries exhausted")

// Policy describes how a Caller gates calls. MinDelay is measured from the
// moment one call returns to the start of the next, successful or not, so it
// also spaces retries.
type Policy struct {
	MinDelay    time.Duration
	MaxAttempts int
}

// Caller serializes calls through a single-token limiter. The token is taken
// when a call returns and refills after MinDelay.
type Caller struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	policy  Policy
	logger  *slog.Logger
}

func New(policy Policy, logger *slog.Logger) *Caller {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	limit := rate.Inf
	if policy.MinDelay > 0 {
		limit = rate.Every(policy.MinDelay)
	}

	return &Caller{
		limiter: rate.NewLimiter(limit, 1),
		policy:  policy,
		logger:  logger,
	}
}

func (c *Caller) Policy() Policy {
	return c.policy
}

// wait blocks until the token is back, without taking it.
func (c *Caller) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.policy.MinDelay <= 0 {
		return nil
	}

	missing := 1 - c.limiter.TokensAt(time.Now())
	if missing <= 0 {
		return nil
	}

	timer := time.NewTimer(time.Duration(math.Ceil(missing * float64(c.policy.MinDelay))))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// release takes the token at t, so the next call starts no earlier than
// t + MinDelay.
func (c *Caller) release(t time.Time) {
	if c.policy.MinDelay > 0 {
		c.limiter.ReserveN(t, 1)
	}
}

// attempt runs call once the gate opens. Only waiting can fail here; the
// call reports its own outcome through the closure.
func (c *Caller) attempt(ctx context.Context, call func(context.Context)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.wait(ctx); err != nil {
		return fmt.Errorf("wait for rate limit: %w", err)
	}
	defer func() { c.release(time.Now()) }()

	call(ctx)
	return nil
}

// Do runs fn until it succeeds or the policy's attempts are used up. Each
// attempt waits until MinDelay has passed since the previous call returned.
// The returned error wraps ErrExhausted and the last failure.
func Do[T any](ctx context.Context, c *Caller, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= c.policy.MaxAttempts; attempt++ {
		var v T
		var err error
		if waitErr := c.attempt(ctx, func(ctx context.Context) { v, err = fn(ctx) }); waitErr != nil {
			return zero, waitErr
		}
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt < c.policy.MaxAttempts {
			c.logger.Warn("call failed, retrying",
				"attempt", attempt,
				"max_attempts", c.policy.MaxAttempts,
				"delay", c.policy.MinDelay,
				"error", err,
			)
		}
	}

	return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, c.policy.MaxAttempts, lastErr)
}
