// Package ratelimit implements a per-identity sliding-window attempt
// throttle with an escalating block period. State lives entirely in process
// memory; a restart clears all counters, which is an accepted limitation.
package ratelimit

import (
	"sync"
	"time"
)

const sweepInterval = 5 * time.Minute

// Policy is the attempt budget applied to a single Check call.
type Policy struct {
	MaxAttempts   int
	Window        time.Duration
	BlockDuration time.Duration
}

// Result reports the outcome of a Check. When Allowed is false and
// BlockedUntil is set, RetryAfter carries the remaining cooldown.
type Result struct {
	Allowed           bool
	RemainingAttempts int
	WindowResetAt     time.Time
	BlockedUntil      time.Time
	RetryAfter        time.Duration
}

type entry struct {
	count         int
	windowResetAt time.Time
	blockedUntil  time.Time
}

// Limiter tracks attempt counts per caller identity. It is safe for
// concurrent use; all per-identity updates happen under a single mutex so
// Check's read-modify-write cannot interleave.
type Limiter struct {
	mu        sync.Mutex
	entries   map[string]*entry
	lastSweep time.Time
	now       func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock injects the time source, for tests of expiry behavior.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(opts ...Option) *Limiter {
	l := &Limiter{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastSweep = l.now()

	return l
}

// Check records one attempt for identity under the given policy and reports
// whether it is allowed. A previously set block takes precedence over window
// state; a lapsed window replays the identity as fresh.
func (l *Limiter) Check(identity string, p Policy) Result {
	p = p.withDefaults()

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.maybeSweep(now)

	e, ok := l.entries[identity]
	if !ok {
		return l.startWindow(identity, p, now)
	}

	if !e.blockedUntil.IsZero() && now.Before(e.blockedUntil) {
		return Result{
			Allowed:           false,
			RemainingAttempts: 0,
			WindowResetAt:     e.windowResetAt,
			BlockedUntil:      e.blockedUntil,
			RetryAfter:        e.blockedUntil.Sub(now),
		}
	}

	if now.After(e.windowResetAt) {
		return l.startWindow(identity, p, now)
	}

	e.count++
	if e.count > p.MaxAttempts {
		e.blockedUntil = now.Add(p.BlockDuration)

		return Result{
			Allowed:           false,
			RemainingAttempts: 0,
			WindowResetAt:     e.windowResetAt,
			BlockedUntil:      e.blockedUntil,
			RetryAfter:        p.BlockDuration,
		}
	}

	return Result{
		Allowed:           true,
		RemainingAttempts: p.MaxAttempts - e.count,
		WindowResetAt:     e.windowResetAt,
	}
}

// RecordSuccess deletes the identity's entry outright, regardless of block
// state. A successful privileged action fully resets throttling.
func (l *Limiter) RecordSuccess(identity string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.entries, identity)
}

// RemainingAttempts is a non-mutating read of the identity's budget under
// the given policy. Unknown identities and lapsed windows report the full
// maximum. The read reflects window state only; an active block is Check's
// concern and does not change what this reports.
func (l *Limiter) RemainingAttempts(identity string, p Policy) int {
	p = p.withDefaults()

	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[identity]
	if !ok {
		return p.MaxAttempts
	}

	if l.now().After(e.windowResetAt) {
		return p.MaxAttempts
	}
	if remaining := p.MaxAttempts - e.count; remaining > 0 {
		return remaining
	}

	return 0
}

// startWindow replaces the identity's entry with a fresh one-attempt window.
// Caller must hold l.mu.
func (l *Limiter) startWindow(identity string, p Policy, now time.Time) Result {
	resetAt := now.Add(p.Window)
	l.entries[identity] = &entry{count: 1, windowResetAt: resetAt}

	return Result{
		Allowed:           true,
		RemainingAttempts: p.MaxAttempts - 1,
		WindowResetAt:     resetAt,
	}
}

// maybeSweep drops fully expired entries, at most once per sweepInterval.
// Amortizing the sweep into Check keeps the map bounded without a timer.
// Caller must hold l.mu.
func (l *Limiter) maybeSweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepInterval {
		return
	}
	l.lastSweep = now

	for identity, e := range l.entries {
		if now.After(e.windowResetAt) && (e.blockedUntil.IsZero() || now.After(e.blockedUntil)) {
			delete(l.entries, identity)
		}
	}
}

func (p Policy) withDefaults() Policy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 5
	}
	if p.Window <= 0 {
		p.Window = 15 * time.Minute
	}
	if p.BlockDuration <= 0 {
		p.BlockDuration = 30 * time.Minute
	}

	return p
}
