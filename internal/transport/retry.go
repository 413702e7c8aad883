package transport

import (
	"context"
	"errors"
	"time"

	"github.com/hireloop/interview-cli/internal/utils"

	"go.uber.org/zap"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 2 * time.Second
	defaultMaxDelay     = 30 * time.Second
)

// Policy describes a bounded exponential backoff schedule. A single policy is
// shared by every remote call site so all operations retry the same way.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// DefaultPolicy returns the retry policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  defaultMaxAttempts,
		InitialDelay: defaultInitialDelay,
		MaxDelay:     defaultMaxDelay,
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = defaultInitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaultMaxDelay
	}
	return p
}

// Backoff returns the wait before the given 1-based attempt is repeated.
// The delay doubles per attempt and is capped at MaxDelay.
func (p Policy) Backoff(attempt int) time.Duration {
	p = p.withDefaults()
	delay := p.InitialDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// retryabler is implemented by errors that know whether repeating the
// operation can help. Errors without the method are treated as retryable.
type retryabler interface {
	Retryable() bool
}

// Retry runs op until it succeeds, the policy is exhausted, the error is not
// retryable, or the context is canceled. The last error is returned.
func Retry(ctx context.Context, logger *zap.Logger, p Policy, name string, op func(context.Context) error) error {
	p = p.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		var r retryabler
		if errors.As(lastErr, &r) && !r.Retryable() {
			return lastErr
		}

		if attempt == p.MaxAttempts {
			break
		}

		delay := p.Backoff(attempt)
		logger.Warn("remote call failed, retrying",
			zap.String("operation", name),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", p.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)

		if err := utils.WaitFor(ctx, delay); err != nil {
			return err
		}
	}

	return lastErr
}
