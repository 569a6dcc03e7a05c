/**
 * @description
 * This package implements the retry policy used by the RPC clients. Failed
 * attempts back off exponentially with jitter so that a herd of clients
 * recovering from the same outage does not reconnect in lockstep.
 *
 * A policy either retries until the caller's context expires (MaxAttempts 0)
 * or gives up after a fixed number of attempts. Authentication uses the capped
 * form; ordinary operations use the unbounded form and rely on the context
 * deadline to stop.
 */
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Policy controls how an operation is retried.
type Policy struct {
	// Factor is the base delay; attempt n waits Factor * 2^n plus jitter.
	Factor time.Duration
	// MaxAttempts caps the number of attempts. Zero means retry until the
	// context is done.
	MaxAttempts int
	// Jitter is the upper bound of the random delay added to each wait.
	Jitter time.Duration
	// Retryable decides whether an error is worth retrying. Nil retries every
	// error.
	Retryable func(error) bool
}

// DefaultFactor mirrors the wait-time base used across the services.
const DefaultFactor = 500 * time.Millisecond

// Unbounded is the policy for ordinary operations: keep retrying until the
// caller's context expires.
func Unbounded() Policy {
	return Policy{Factor: DefaultFactor, Jitter: time.Second}
}

// Capped is the policy for authentication: a wrong password does not improve
// with patience, so give up after the fixed number of attempts.
func Capped(attempts int) Policy {
	return Policy{Factor: DefaultFactor, Jitter: time.Second, MaxAttempts: attempts}
}

func (p Policy) wait(attempt int) time.Duration {
	backoff := time.Duration(float64(p.Factor) * math.Pow(2, float64(attempt)))
	if p.Jitter > 0 {
		backoff += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	return backoff
}

// Do runs fn until it succeeds, the error is not retryable, the attempt cap is
// reached, or ctx is done. The last error is returned on failure.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; p.MaxAttempts == 0 || attempt < p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return lastErr
			}
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if p.MaxAttempts != 0 && attempt == p.MaxAttempts-1 {
			break
		}

		select {
		case <-time.After(p.wait(attempt)):
		case <-ctx.Done():
			return lastErr
		}
	}
	return lastErr
}
