// Package retry runs calls to external APIs under pacing, bounded
// concurrency and exponential-backoff retry.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/fwojciec/sitechat"
	"golang.org/x/sync/semaphore"
)

// Ensure Executor implements sitechat.CallExecutor.
var _ sitechat.CallExecutor = (*Executor)(nil)

// ErrRetriesExhausted is returned, wrapping the last failure, when a
// retryable call keeps failing after all retries.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Default executor settings.
const (
	DefaultMaxRetries  = 3
	DefaultBaseDelay   = 2 * time.Second
	DefaultMaxDelay    = 60 * time.Second
	DefaultJitter      = 0.25
	DefaultInterval    = 1 * time.Second
	DefaultConcurrency = 1
)

// Config holds executor settings.
type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// BaseDelay is the backoff delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the computed backoff delay before jitter.
	MaxDelay time.Duration
	// Jitter is the relative spread applied to each backoff delay.
	Jitter float64
	// Interval is the minimum spacing between the end of one call and
	// the start of the next.
	Interval time.Duration
	// Concurrency is the maximum number of calls in flight.
	Concurrency int
}

// DefaultConfig returns the default executor settings.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  DefaultMaxRetries,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Jitter:      DefaultJitter,
		Interval:    DefaultInterval,
		Concurrency: DefaultConcurrency,
	}
}

// Executor runs calls with pacing, a concurrency limit and retries of
// rate-limited failures. It is safe for concurrent use.
type Executor struct {
	cfg Config
	sem *semaphore.Weighted

	mu   sync.Mutex
	last time.Time // end of the last call or reserved start of the next

	// Logger receives retry events. Nil disables logging.
	Logger *slog.Logger

	// IsRetryable classifies failures. Defaults to IsRateLimit.
	IsRetryable func(err error) bool

	// Sleep waits for d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error

	// Rand returns a number in [0, 1) used for jitter.
	Rand func() float64

	// Now returns the current time.
	Now func() time.Time
}

// NewExecutor creates an Executor. Zero or negative settings fall back to
// their defaults, except Interval and Jitter where zero disables them.
func NewExecutor(cfg Config) *Executor {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.Jitter < 0 || cfg.Jitter >= 1 {
		cfg.Jitter = DefaultJitter
	}
	if cfg.Interval < 0 {
		cfg.Interval = 0
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return &Executor{
		cfg:         cfg,
		sem:         semaphore.NewWeighted(int64(cfg.Concurrency)),
		IsRetryable: IsRateLimit,
		Sleep:       sleep,
		Rand:        rand.Float64,
		Now:         time.Now,
	}
}

// Config returns the executor's effective settings.
func (e *Executor) Config() Config {
	return e.cfg
}

// IsRateLimit reports whether err carries the ERATELIMIT code.
func IsRateLimit(err error) bool {
	return sitechat.ErrorCode(err) == sitechat.ERATELIMIT
}

// Do runs call. Retryable failures are retried up to MaxRetries times
// with exponential backoff; other failures are returned immediately.
// When retries run out the returned error wraps both ErrRetriesExhausted
// and the last failure.
func (e *Executor) Do(ctx context.Context, call func(ctx context.Context) error) error {
	for attempt := 0; ; attempt++ {
		err := e.attempt(ctx, call)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !e.IsRetryable(err) {
			return err
		}
		if attempt >= e.cfg.MaxRetries {
			e.logger().Error("retries exhausted",
				"attempts", attempt+1,
				"error", err,
			)
			return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, attempt+1, err)
		}

		_, delay := e.Backoff(attempt)
		e.logger().Warn("rate limited, retrying",
			"attempt", attempt+1,
			"max_attempts", e.cfg.MaxRetries+1,
			"delay", delay,
			"error", err,
		)
		if err := e.Sleep(ctx, delay); err != nil {
			return err
		}
	}
}

// attempt runs one call holding a concurrency slot. The slot is released
// on every return path.
func (e *Executor) attempt(ctx context.Context, call func(ctx context.Context) error) error {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.sem.Release(1)

	if err := e.pace(ctx); err != nil {
		return err
	}
	defer e.markDone()

	return call(ctx)
}

// pace reserves the next start slot and waits for it.
func (e *Executor) pace(ctx context.Context) error {
	if e.cfg.Interval == 0 {
		return nil
	}

	e.mu.Lock()
	now := e.Now()
	wait := time.Duration(0)
	if !e.last.IsZero() {
		wait = e.last.Add(e.cfg.Interval).Sub(now)
	}
	if wait < 0 {
		wait = 0
	}
	e.last = now.Add(wait)
	e.mu.Unlock()

	if wait == 0 {
		return nil
	}
	e.logger().Debug("pacing", "delay", wait)
	return e.Sleep(ctx, wait)
}

func (e *Executor) markDone() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if now := e.Now(); now.After(e.last) {
		e.last = now
	}
}

// Backoff returns the computed delay before retry number attempt
// (zero-based) and the jittered delay actually waited.
func (e *Executor) Backoff(attempt int) (base, actual time.Duration) {
	base = e.cfg.BaseDelay
	for i := 0; i < attempt && base < e.cfg.MaxDelay; i++ {
		base *= 2
	}
	if base > e.cfg.MaxDelay {
		base = e.cfg.MaxDelay
	}
	spread := e.cfg.Jitter * (2*e.Rand() - 1)
	actual = base + time.Duration(float64(base)*spread)
	return base, actual
}

func (e *Executor) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
