// Package retry runs an operation again with exponential backoff while it
// fails in a retryable way.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Config holds the configuration for retry logic
type Config struct {
	MaxRetries      int
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	BackoffMultiple float64
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		BaseDelay:       500 * time.Millisecond,
		MaxDelay:        10 * time.Second,
		BackoffMultiple: 2.0,
	}
}

// ErrorChecker decides whether a failed attempt should be retried
type ErrorChecker func(err error, statusCode int) bool

// RetryableFunc is one attempt; attempt starts at 0
type RetryableFunc func(attempt int) (statusCode int, err error)

// Logger is called before every retry
type Logger func(attempt int, delay time.Duration, statusCode int, err error)

type Options struct {
	Config       Config
	ErrorChecker ErrorChecker
	Logger       Logger
	Name         string
}

func (c Config) delay(attempt int) time.Duration {
	delay := time.Duration(float64(c.BaseDelay) * math.Pow(c.BackoffMultiple, float64(attempt)))
	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}
	return delay
}

// ExhaustedError is returned once every attempt failed
type ExhaustedError struct {
	Name           string
	Attempts       int
	LastStatusCode int
	Err            error
}

func (e *ExhaustedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %d attempts failed: %v", e.Name, e.Attempts, e.Err)
	}
	return fmt.Sprintf("%s: %d attempts failed with status %d", e.Name, e.Attempts, e.LastStatusCode)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Execute runs fn until it succeeds, fails in a non-retryable way, the
// retries are used up or ctx is done.
func Execute(ctx context.Context, opts Options, fn RetryableFunc) error {
	var lastErr error
	var lastStatusCode int

	for attempt := 0; attempt <= opts.Config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := opts.Config.delay(attempt - 1)
			if opts.Logger != nil {
				opts.Logger(attempt, delay, lastStatusCode, lastErr)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		statusCode, err := fn(attempt)
		lastErr, lastStatusCode = err, statusCode
		if opts.ErrorChecker == nil || !opts.ErrorChecker(err, statusCode) {
			return err
		}
	}

	return &ExhaustedError{
		Name:           opts.Name,
		Attempts:       opts.Config.MaxRetries + 1,
		LastStatusCode: lastStatusCode,
		Err:            lastErr,
	}
}
