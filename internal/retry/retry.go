package retry

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// Policy describes a bounded exponential backoff
type Policy struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
	JitterFactor  float64
}

// DefaultPolicy returns three attempts starting at 500ms
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   3,
		BaseDelay:     500 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2,
		JitterFactor:  0.2,
	}
}

// Classifier reports whether an error is worth another attempt
type Classifier func(error) bool

// Retrier applies a Policy to operations whose errors are classified as retryable
type Retrier struct {
	policy      Policy
	isRetryable Classifier
	log         zerolog.Logger
	sleep       func(ctx context.Context, d time.Duration) error
}

// New creates a Retrier. A nil classifier retries nothing.
func New(policy Policy, classifier Classifier, log zerolog.Logger) *Retrier {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.BackoffFactor <= 0 {
		policy.BackoffFactor = 2
	}
	return &Retrier{
		policy:      policy,
		isRetryable: classifier,
		log:         log.With().Str("component", "retry").Logger(),
		sleep:       sleepContext,
	}
}

// WithSleep replaces the wait between attempts, mainly so tests do not block
func (r *Retrier) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Retrier {
	cp := *r
	cp.sleep = sleep
	return &cp
}

// Policy returns the policy the retrier was built with
func (r *Retrier) Policy() Policy {
	return r.policy
}

// Do runs operation until it succeeds, returns a non-retryable error, the
// attempts are exhausted or ctx is done. The last error is wrapped.
func (r *Retrier) Do(ctx context.Context, name string, operation func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		lastErr = operation(ctx)
		if lastErr == nil {
			if attempt > 1 {
				r.log.Info().Str("operation", name).Int("attempt", attempt).Msg("Operation succeeded after retry")
			}
			return nil
		}

		retryable := r.isRetryable != nil && r.isRetryable(lastErr)
		if !retryable {
			return lastErr
		}
		if attempt == r.policy.MaxAttempts {
			break
		}

		delay := r.delay(attempt)
		r.log.Warn().
			Err(lastErr).
			Str("operation", name).
			Int("attempt", attempt).
			Dur("retry_delay", delay).
			Msg("Operation attempt failed, backing off")

		if err := r.sleep(ctx, delay); err != nil {
			return fmt.Errorf("%s: retry cancelled: %w", name, err)
		}
	}

	r.log.Error().
		Err(lastErr).
		Str("operation", name).
		Int("attempts", r.policy.MaxAttempts).
		Msg("Operation failed permanently")

	return &ExhaustedError{Operation: name, Attempts: r.policy.MaxAttempts, Err: lastErr}
}

func (r *Retrier) delay(attempt int) time.Duration {
	delay := float64(r.policy.BaseDelay) * math.Pow(r.policy.BackoffFactor, float64(attempt-1))
	if r.policy.MaxDelay > 0 && delay > float64(r.policy.MaxDelay) {
		delay = float64(r.policy.MaxDelay)
	}
	if r.policy.JitterFactor > 0 {
		delay *= 1.0 + (rand.Float64()-0.5)*r.policy.JitterFactor
	}
	return time.Duration(delay)
}

// ExhaustedError is returned when every attempt failed with a retryable error
type ExhaustedError struct {
	Operation string
	Attempts  int
	Err       error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Operation, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
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
