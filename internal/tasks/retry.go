package tasks

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/charmbracelet/log"

	"github.com/wavelend/crosstide/internal/shared"
)

// Default retry tuning. Rate-limit responses back off harder than plain
// transient failures.
const (
	DefaultRetryAttempts  = 3
	defaultBaseDelay      = 500 * time.Millisecond
	defaultMaxDelay       = 30 * time.Second
	rateLimitedMultiplier = 4
)

// RetryPolicy bounds retries of transient failures with exponential
// backoff and jitter. Errors that are not transient or rate-limit
// failures are never retried and propagate immediately.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Sleep is replaceable in tests; nil means a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns the policy used when config does not
// override retry_attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultRetryAttempts,
		BaseDelay:   defaultBaseDelay,
		MaxDelay:    defaultMaxDelay,
	}
}

// Retryable classifies an error as worth another attempt.
func (p RetryPolicy) Retryable(err error) bool {
	return errors.Is(err, shared.ErrTransient) || errors.Is(err, shared.ErrRateLimited)
}

// Delay computes the backoff before the given attempt (0-based), with
// jitter so concurrent callers do not retry in lockstep.
func (p RetryPolicy) Delay(attempt int, err error) time.Duration {
	base := p.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultMaxDelay
	}

	delay := base << attempt
	if errors.Is(err, shared.ErrRateLimited) {
		delay *= rateLimitedMultiplier
	}
	if delay > maxDelay {
		delay = maxDelay
	}

	// Half fixed, half jitter.
	half := delay / 2
	return half + time.Duration(rand.Int63n(int64(half)+1))
}

// Do invokes fn up to MaxAttempts times, sleeping between retryable
// failures. The last error is returned once the budget is exhausted.
func (p RetryPolicy) Do(ctx context.Context, logger *log.Logger, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultRetryAttempts
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !p.Retryable(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		delay := p.Delay(attempt, err)
		if logger != nil {
			logger.Warn("retrying after failure", "op", op, "attempt", attempt+1, "of", attempts, "delay", delay, "err", err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return serr
		}
	}

	return fmt.Errorf("exhausted %d attempts: %w", attempts, err)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
