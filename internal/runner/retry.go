// pattern: Imperative Shell

package runner

import (
	"context"
	"time"

	"reposync/internal/logging"
)

// RetryOn controls when a failed command is run again.
type RetryOn int

const (
	Never     RetryOn = iota // Never retry
	OnFailure                // Retry while the command fails
)

// RetryPolicy bounds how often a command is repeated.
type RetryPolicy struct {
	On         RetryOn
	MaxRetries int
	Delay      time.Duration
}

// NoRetry runs a command exactly once.
func NoRetry() RetryPolicy {
	return RetryPolicy{On: Never}
}

// Retries returns a policy retrying failures up to n extra times.
func Retries(n int, delay time.Duration) RetryPolicy {
	if n <= 0 {
		return NoRetry()
	}
	return RetryPolicy{On: OnFailure, MaxRetries: n, Delay: delay}
}

// RunWithRetry runs cmd on r, repeating it according to policy. The last
// Result is returned. Cancelling ctx stops further attempts.
func RunWithRetry(ctx context.Context, r Runner, cmd Command, policy RetryPolicy, logger *logging.ScopedLogger) Result {
	if logger == nil {
		logger = logging.NopLogger()
	}

	retries := 0
	for {
		res := r.Run(ctx, cmd)
		if res.Success || policy.On == Never {
			return res
		}

		retries++
		if retries > policy.MaxRetries {
			if policy.MaxRetries > 0 {
				logger.Warn("retries exhausted", "command", cmd.String(), "retries", policy.MaxRetries)
			}
			return res
		}

		delay := policy.Delay
		if delay == 0 {
			delay = time.Second
		}
		logger.Info("retrying command", "command", cmd.String(), "attempt", retries+1, "delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return res
		}
	}
}
