// Package budget tracks estimated AI spend against a daily cost cap.
//
// Costs are token-proxy estimates: input tokens approximate to a quarter of
// the prompt length in characters, and responses are assumed to run about
// two hundred output tokens. The tracker resets at local midnight, matching
// the call limiter's day boundary.
package budget

import (
	"strings"
	"sync"
	"time"
)

// Per-million-token rates in USD by model family.
type modelRate struct {
	inputUSD  float64
	outputUSD float64
}

var modelRates = map[string]modelRate{
	"gemini-1.5-flash":    {inputUSD: 0.075, outputUSD: 0.30},
	"gemini-1.5-flash-8b": {inputUSD: 0.0375, outputUSD: 0.15},
}

const (
	charsPerToken         = 4
	assumedOutputTokens   = 200
	fallbackInputRateUSD  = 0.075
	fallbackOutputRateUSD = 0.30
)

// Tracker accumulates estimated spend for the current day.
type Tracker struct {
	mu       sync.Mutex
	capUSD   float64
	now      func() time.Time
	spent    float64
	dayStart time.Time
}

// Option customizes tracker construction.
type Option func(*Tracker)

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// New builds a tracker with the given daily cap in USD.
func New(capUSD float64, opts ...Option) *Tracker {
	t := &Tracker{capUSD: capUSD, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	t.dayStart = startOfDay(t.now())
	return t
}

// Estimate returns the projected cost in USD of one call with inputLen
// characters of prompt against the named model. Unknown models price at the
// most expensive known rate so estimates stay conservative.
func Estimate(inputLen int, model string) float64 {
	if inputLen < 0 {
		inputLen = 0
	}
	rate, ok := modelRates[strings.TrimSpace(model)]
	if !ok {
		rate = modelRate{inputUSD: fallbackInputRateUSD, outputUSD: fallbackOutputRateUSD}
	}
	inputTokens := float64(inputLen) / charsPerToken
	cost := inputTokens/1e6*rate.inputUSD + assumedOutputTokens/1e6*rate.outputUSD
	return cost
}

// Add records spend for a call that was made, whether or not its result was
// usable.
func (t *Tracker) Add(cost float64) {
	if cost < 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	t.spent += cost
}

// Spent returns the estimated spend so far today.
func (t *Tracker) Spent() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	return t.spent
}

// Remaining returns the headroom left under the cap, or a negative value
// when tracking has overshot it.
func (t *Tracker) Remaining() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	if t.capUSD <= 0 {
		return 0
	}
	return t.capUSD - t.spent
}

// Exhausted reports whether accumulated spend has reached the cap. The gate
// looks only at spend already recorded: while any headroom remains, the next
// call goes through even when its own estimate overshoots, and the overage
// shows up in later checks.
func (t *Tracker) Exhausted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rollover()
	return t.capUSD > 0 && t.spent >= t.capUSD
}

func (t *Tracker) rollover() {
	if day := startOfDay(t.now()); day.After(t.dayStart) {
		t.dayStart = day
		t.spent = 0
	}
}

func startOfDay(ts time.Time) time.Time {
	year, month, day := ts.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, ts.Location())
}
