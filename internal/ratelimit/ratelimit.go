// Package ratelimit bounds AI call frequency with a sliding minute window
// and a calendar-day counter.
//
// The limiter answers "may I call now" without consuming quota; callers
// record a call only when they actually make one. The day counter resets at
// local midnight so daily caps line up with the provider's billing day.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter tracks call timestamps against a per-minute and per-day cap.
type Limiter struct {
	mu        sync.Mutex
	perMinute int
	perDay    int
	now       func() time.Time

	minuteCalls []time.Time
	dayCount    int
	dayStart    time.Time
}

// Option customizes limiter construction.
type Option func(*Limiter)

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New builds a limiter with the given caps. Non-positive caps disable the
// corresponding check.
func New(perMinute, perDay int, opts ...Option) *Limiter {
	l := &Limiter{
		perMinute: perMinute,
		perDay:    perDay,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.dayStart = startOfDay(l.now())
	return l
}

// CanProceed reports whether a call is allowed right now. It does not
// consume quota.
func (l *Limiter) CanProceed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.rollover(now)
	l.pruneMinute(now)

	if l.perMinute > 0 && len(l.minuteCalls) >= l.perMinute {
		return false
	}
	if l.perDay > 0 && l.dayCount >= l.perDay {
		return false
	}
	return true
}

// Record consumes one unit of quota. Call it once per request actually made,
// regardless of whether the response was usable.
func (l *Limiter) Record() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.rollover(now)
	l.pruneMinute(now)
	l.minuteCalls = append(l.minuteCalls, now)
	l.dayCount++
}

// WaitTime returns how long a caller should pause before the next call can
// proceed. Zero means a call is allowed immediately. When the daily cap is
// exhausted the wait runs to the next local midnight.
func (l *Limiter) WaitTime() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.rollover(now)
	l.pruneMinute(now)

	if l.perDay > 0 && l.dayCount >= l.perDay {
		return l.dayStart.AddDate(0, 0, 1).Sub(now)
	}
	if l.perMinute > 0 && len(l.minuteCalls) >= l.perMinute {
		oldest := l.minuteCalls[0]
		wait := oldest.Add(time.Minute).Sub(now)
		if wait < 0 {
			return 0
		}
		return wait
	}
	return 0
}

// Snapshot reports current window usage for status surfaces.
func (l *Limiter) Snapshot() (minuteUsed, dayUsed int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.rollover(now)
	l.pruneMinute(now)
	return len(l.minuteCalls), l.dayCount
}

func (l *Limiter) rollover(now time.Time) {
	if day := startOfDay(now); day.After(l.dayStart) {
		l.dayStart = day
		l.dayCount = 0
	}
}

func (l *Limiter) pruneMinute(now time.Time) {
	cutoff := now.Add(-time.Minute)
	kept := l.minuteCalls[:0]
	for _, ts := range l.minuteCalls {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.minuteCalls = kept
}

func startOfDay(ts time.Time) time.Time {
	year, month, day := ts.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, ts.Location())
}
