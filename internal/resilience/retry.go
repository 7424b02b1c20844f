package resilience

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/metrics"
)

// Policy describes how an operation is retried.
type Policy struct {
	Op       string        // operation name for logs and metrics, e.g. "postgres.connect"
	Attempts int           // total tries including the first
	Base     time.Duration // delay before the first retry
	Max      time.Duration // delay cap
	Jitter   float64       // +/- fraction of each delay

	// Retryable reports whether err is worth another try. Nil uses
	// IsTransient.
	Retryable func(err error) bool
}

// DefaultPolicy retries transient failures three times in total, doubling a
// 500ms delay up to 10s.
func DefaultPolicy(op string) Policy {
	return Policy{Op: op, Attempts: 3, Base: 500 * time.Millisecond, Max: 10 * time.Second, Jitter: 0.2}
}

// Retry calls fn until it succeeds, returns a non-retryable error, the
// attempts run out or ctx ends. The last error is returned.
func Retry[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var zero T
	var err error
	for attempt := 1; ; attempt++ {
		var v T
		v, err = fn(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= p.Attempts || ctx.Err() != nil || errors.Is(err, context.Canceled) || !retryable(err) {
			return zero, err
		}

		wait := p.delay(attempt)
		metrics.Retries.WithLabelValues(p.Op).Inc()
		zap.L().Warn("resilience: retrying",
			zap.String("op", p.Op),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, err
		case <-t.C:
		}
	}
}

// delay returns the wait after the given 1-based attempt.
func (p Policy) delay(attempt int) time.Duration {
	d := p.Base
	if d <= 0 {
		d = 100 * time.Millisecond
	}
	for range attempt - 1 {
		d *= 2
		if p.Max > 0 && d >= p.Max {
			d = p.Max
			break
		}
	}
	if p.Max > 0 && d > p.Max {
		d = p.Max
	}
	if p.Jitter > 0 {
		d += time.Duration((rand.Float64()*2 - 1) * p.Jitter * float64(d))
	}
	if d < 0 {
		return 0
	}
	return d
}
