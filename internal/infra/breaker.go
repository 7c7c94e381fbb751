package infra

import (
	"log/slog"
	"sync"
	"time"
)

// BreakerState is the health of one oracle host.
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // host healthy, calls pass
	BreakerOpen                         // host down, calls fail fast
	BreakerHalfOpen                     // cooldown elapsed, probing
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "CLOSED"
	case BreakerOpen:
		return "OPEN"
	case BreakerHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// HostBreaker guards one oracle host. While open, callers surface
// DATA_UNAVAILABLE immediately instead of queueing plan calls behind a
// dead endpoint. Safe for concurrent use.
type HostBreaker struct {
	host string
	mu   sync.Mutex

	state       BreakerState
	failures    int
	probeWins   int
	lastFailure time.Time

	failLimit  int
	probeLimit int
	cooldown   time.Duration
}

// BreakerConfig tunes a host breaker.
type BreakerConfig struct {
	Host       string
	FailLimit  int           // consecutive failures before opening
	ProbeLimit int           // half-open successes before closing
	Cooldown   time.Duration // open duration before probing
}

// DefaultBreakerConfig sizes a breaker for the oracle REST hosts. The
// client already retries each request, so three surfaced failures mean the
// host is down, not flaky. The cooldown matches price staleness: after
// 15 seconds the market has moved and holding back a probe buys nothing.
func DefaultBreakerConfig(host string) BreakerConfig {
	return BreakerConfig{
		Host:       host,
		FailLimit:  3,
		ProbeLimit: 1,
		Cooldown:   15 * time.Second,
	}
}

func NewHostBreaker(cfg BreakerConfig) *HostBreaker {
	return &HostBreaker{
		host:       cfg.Host,
		state:      BreakerClosed,
		failLimit:  cfg.FailLimit,
		probeLimit: cfg.ProbeLimit,
		cooldown:   cfg.Cooldown,
	}
}

// Allow reports whether a call may proceed. An open breaker flips to
// half-open once the cooldown since the last failure has passed, letting
// one caller through as the probe.
func (b *HostBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed, BreakerHalfOpen:
		return true
	case BreakerOpen:
		if time.Since(b.lastFailure) > b.cooldown {
			b.state = BreakerHalfOpen
			b.probeWins = 0
			slog.Info("oracle breaker probing", slog.String("host", b.host))
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess marks a call that completed. Enough half-open successes
// close the breaker; in closed state the failure streak resets.
func (b *HostBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failures = 0
	case BreakerHalfOpen:
		b.probeWins++
		if b.probeWins >= b.probeLimit {
			b.state = BreakerClosed
			b.failures = 0
			b.probeWins = 0
			slog.Info("oracle breaker closed", slog.String("host", b.host))
		}
	}
}

// RecordFailure marks a failed call. A failure streak opens the breaker;
// any half-open failure reopens it immediately.
func (b *HostBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = time.Now()

	switch b.state {
	case BreakerClosed:
		b.failures++
		if b.failures >= b.failLimit {
			b.state = BreakerOpen
			slog.Warn("oracle breaker open",
				slog.String("host", b.host),
				slog.Int("failures", b.failures))
		}
	case BreakerHalfOpen:
		b.state = BreakerOpen
		b.probeWins = 0
		slog.Warn("oracle breaker reopened, probe failed", slog.String("host", b.host))
	}
}

// State returns the current state for monitoring.
func (b *HostBreaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
