// Package resilience guards calls to external services with circuit breakers
// and retry policies.
package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/metrics"
)

// State is a breaker state.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrOpen is returned when a breaker rejects a call.
var ErrOpen = eris.New("resilience: circuit open")

// Breaker defaults.
const (
	DefaultThreshold = 5
	DefaultCooldown  = 60 * time.Second
)

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	Name      string        // upstream name, used in logs and metrics
	Threshold int           // consecutive failures that open the breaker
	Cooldown  time.Duration // time spent open before a probe is allowed

	// Trips reports whether err counts as a failure. Nil counts every
	// non-nil error except context cancellation.
	Trips func(err error) bool
}

// Breaker stops calling an upstream after Threshold consecutive failures.
// After Cooldown one probe call is let through: success closes the breaker,
// failure reopens it. Other calls are rejected while the probe is in flight.
type Breaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker returns a closed Breaker. Zero Threshold and Cooldown take the
// defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	if cfg.Trips == nil {
		cfg.Trips = func(err error) bool {
			return err != nil && !eris.Is(err, context.Canceled)
		}
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// Name returns the upstream name.
func (b *Breaker) Name() string { return b.cfg.Name }

// State returns the current state. An open breaker whose cooldown has
// elapsed reports HalfOpen.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == Open && b.now().Sub(b.openedAt) >= b.cfg.Cooldown {
		return HalfOpen
	}
	return b.state
}

// Guard runs fn through b. A nil breaker runs fn directly.
func Guard[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	if b == nil {
		return fn(ctx)
	}
	var zero T
	if err := b.admit(); err != nil {
		return zero, err
	}
	v, err := fn(ctx)
	b.record(err)
	return v, err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.cfg.Cooldown {
			return eris.Wrapf(ErrOpen, "%s", b.cfg.Name)
		}
		b.setState(HalfOpen)
		b.probing = true
		return nil
	case HalfOpen:
		if b.probing {
			return eris.Wrapf(ErrOpen, "%s: probe in flight", b.cfg.Name)
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	failed := err != nil && b.cfg.Trips(err)
	if b.state == HalfOpen {
		b.probing = false
		if failed {
			b.trip()
		} else if err == nil {
			b.failures = 0
			b.setState(Closed)
		}
		return
	}

	if !failed {
		if err == nil {
			b.failures = 0
		}
		return
	}
	b.failures++
	if b.failures >= b.cfg.Threshold {
		b.trip()
	}
}

func (b *Breaker) trip() {
	b.openedAt = b.now()
	b.setState(Open)
}

func (b *Breaker) setState(to State) {
	from := b.state
	b.state = to
	if from == to {
		return
	}
	open := 0.0
	if to == Open {
		open = 1
	}
	metrics.BreakerOpen.WithLabelValues(b.cfg.Name).Set(open)
	zap.L().Warn("resilience: breaker state change",
		zap.String("name", b.cfg.Name),
		zap.Stringer("from", from),
		zap.Stringer("to", to),
		zap.Int("failures", b.failures),
	)
}
