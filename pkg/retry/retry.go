// Package retry provides exponential backoff retry logic for request handlers
package retry

import (
	"context"
	stderrors "errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/c360/playkit/errors"
)

var (
	// Thread-safe random source for jitter
	randMu     sync.Mutex
	randSource = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// NonRetryableError wraps errors that should not be retried
type NonRetryableError struct {
	Err error
}

func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable: %v", e.Err)
}

func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NonRetryable wraps an error to indicate it should not be retried.
// Handlers return this for failures where another attempt cannot help,
// e.g. an out-of-range seek position.
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &NonRetryableError{Err: err}
}

// IsNonRetryable checks if an error is marked as non-retryable
func IsNonRetryable(err error) bool {
	var nre *NonRetryableError
	return stderrors.As(err, &nre)
}

// Policy configures retry behavior for a request handler. A zero-value
// Policy runs the handler once with no retry.
type Policy struct {
	MaxAttempts  int           // Total attempts including the first (0 or 1 = no retry)
	InitialDelay time.Duration // Delay before the second attempt
	MaxDelay     time.Duration // Upper bound on the backoff delay
	Multiplier   float64       // Backoff multiplier (typically 2.0)
	AddJitter    bool          // Add randomness to prevent synchronized retries
}

// DefaultPolicy returns sensible defaults for transient target failures
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}
}

// Quick returns a policy for fast retries, suited to in-process targets
// where failures clear within milliseconds
func Quick() Policy {
	return Policy{
		MaxAttempts:  5,
		InitialDelay: 20 * time.Millisecond,
		MaxDelay:     500 * time.Millisecond,
		Multiplier:   1.5,
		AddJitter:    true,
	}
}

// normalize fills in defaults for unset fields
func (p Policy) normalize() (Policy, error) {
	if p.InitialDelay < 0 || p.MaxDelay < 0 || p.Multiplier < 0 {
		return p, stderrors.New("retry: delays and multiplier cannot be negative")
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.InitialDelay == 0 {
		p.InitialDelay = 100 * time.Millisecond
	}
	if p.MaxDelay == 0 {
		p.MaxDelay = 5 * time.Second
	}
	if p.Multiplier == 0 {
		p.Multiplier = 2.0
	}
	if p.MaxDelay < p.InitialDelay {
		return p, stderrors.New("retry: MaxDelay must be >= InitialDelay")
	}
	return p, nil
}

// Do executes fn with exponential backoff retry. Cancellation of ctx aborts
// both in-progress backoff sleeps and further attempts.
func Do(ctx context.Context, p Policy, fn func() error) error {
	p, err := p.normalize()
	if err != nil {
		return err
	}

	var lastErr error
	delay := p.InitialDelay

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		// Non-retryable and canceled errors fail immediately
		if IsNonRetryable(err) {
			return err
		}
		if ctx.Err() != nil {
			return fmt.Errorf("retry canceled before attempt %d: %w", attempt+1, ctx.Err())
		}

		// Don't sleep after the last attempt
		if attempt == p.MaxAttempts {
			break
		}

		sleep := delay
		if p.AddJitter {
			// Up to 25% jitter using thread-safe random
			randMu.Lock()
			jitter := time.Duration(randSource.Int63n(int64(delay/4) + 1))
			randMu.Unlock()
			sleep = delay + jitter
		}

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry canceled during backoff for attempt %d: %w", attempt+1, ctx.Err())
		case <-timer.C:
		}

		next := float64(delay) * p.Multiplier
		if next > float64(p.MaxDelay) {
			delay = p.MaxDelay
		} else {
			delay = time.Duration(next)
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", errors.ErrMaxRetriesExceeded, p.MaxAttempts, lastErr)
}

// DoWithResult executes fn with retry and returns both result and error
func DoWithResult[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, p, func() error {
		var innerErr error
		result, innerErr = fn()
		return innerErr
	})
	return result, err
}
