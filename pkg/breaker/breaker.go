// Package breaker implements a failure-driven circuit breaker guarding
// the upstream backend. After a configurable number of consecutive
// failures the breaker opens and requests are rejected until a cooldown
// elapses; then a single probe request is admitted (half-open) and its
// outcome decides whether the breaker closes again.
package breaker

import (
	"log/slog"
	"sync"
	"time"
)

// Breaker is safe for concurrent use. The zero value is not usable;
// construct it with New.
type Breaker struct {
	mu sync.Mutex

	enabled          bool
	failureThreshold int
	cooldown         time.Duration

	consecutiveFailures int
	open                bool
	openedAt            time.Time
	probing             bool

	now func() time.Time
}

// New creates a Breaker. A disabled breaker allows every request and
// only keeps counters for the health endpoint.
func New(enabled bool, failureThreshold int, cooldown time.Duration) *Breaker {
	return &Breaker{
		enabled:          enabled,
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		now:              time.Now,
	}
}

// Allow reports whether a new upstream request may proceed. When the
// breaker is open and the cooldown has elapsed, exactly one caller is
// admitted as a half-open probe; everyone else keeps getting rejected
// until that probe resolves via RecordSuccess or RecordFailure.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.enabled || !b.open {
		return true
	}

	if b.now().Sub(b.openedAt) < b.cooldown {
		return false
	}

	if b.probing {
		return false
	}
	b.probing = true
	slog.Info("circuit breaker half-open, admitting probe request")
	return true
}

// RecordSuccess resets the breaker to closed.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.open {
		slog.Info("circuit breaker closed after successful request")
	}
	b.consecutiveFailures = 0
	b.open = false
	b.probing = false
}

// RecordFailure counts a backend failure and opens the breaker when the
// threshold is reached. A failed half-open probe re-arms the cooldown.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	if b.probing {
		b.probing = false
		b.openedAt = b.now()
		slog.Warn("circuit breaker probe failed, staying open",
			"consecutive_failures", b.consecutiveFailures)
		return
	}
	if b.consecutiveFailures >= b.failureThreshold && !b.open {
		b.open = true
		b.openedAt = b.now()
		slog.Warn("circuit breaker opened",
			"consecutive_failures", b.consecutiveFailures,
			"cooldown", b.cooldown)
	}
}

// State is a snapshot for the health endpoint.
type State struct {
	Enabled             bool `json:"enabled"`
	IsOpen              bool `json:"is_open"`
	ConsecutiveFailures int  `json:"consecutive_failures"`
}

// Snapshot returns the current breaker state.
func (b *Breaker) Snapshot() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return State{
		Enabled:             b.enabled,
		IsOpen:              b.open,
		ConsecutiveFailures: b.consecutiveFailures,
	}
}
