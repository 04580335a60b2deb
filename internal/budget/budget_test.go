package budget_test

import (
	"math"
	"testing"
	"time"

	"newswatch/internal/budget"
)

func TestEstimateScalesWithModelAndLength(t *testing.T) {
	flash := budget.Estimate(4000, "gemini-1.5-flash")
	lite := budget.Estimate(4000, "gemini-1.5-flash-8b")
	if flash <= 0 || lite <= 0 {
		t.Fatalf("expected positive estimates, got %v and %v", flash, lite)
	}
	if lite >= flash {
		t.Fatalf("fallback model should be cheaper: %v vs %v", lite, flash)
	}

	// 4000 chars = 1000 input tokens plus 200 assumed output tokens.
	want := 1000.0/1e6*0.075 + 200.0/1e6*0.30
	if math.Abs(flash-want) > 1e-12 {
		t.Fatalf("flash estimate = %v, want %v", flash, want)
	}
}

func TestEstimateUnknownModelUsesConservativeRate(t *testing.T) {
	unknown := budget.Estimate(4000, "mystery-model")
	flash := budget.Estimate(4000, "gemini-1.5-flash")
	if unknown != flash {
		t.Fatalf("unknown model should price at the flash rate, got %v vs %v", unknown, flash)
	}
}

func TestExhaustedIgnoresPendingEstimate(t *testing.T) {
	tracker := budget.New(1.00)

	tracker.Add(0.99)
	if tracker.Exhausted() {
		t.Fatal("a cent of headroom must admit the next call, whatever it costs")
	}

	// The admitted call overshoots the cap by four cents.
	tracker.Add(0.05)
	if !tracker.Exhausted() {
		t.Fatal("overage must close the gate on the following check")
	}
	if remaining := tracker.Remaining(); remaining >= 0 {
		t.Fatalf("expected negative headroom after overshoot, got %v", remaining)
	}
}

func TestMidnightReset(t *testing.T) {
	now := time.Date(2026, 3, 10, 23, 0, 0, 0, time.Local)
	tracker := budget.New(1.00, budget.WithClock(func() time.Time { return now }))

	tracker.Add(1.00)
	if !tracker.Exhausted() {
		t.Fatal("expected exhausted cap")
	}

	now = now.Add(2 * time.Hour)
	if tracker.Exhausted() {
		t.Fatal("expected reset after midnight")
	}
	if spent := tracker.Spent(); spent != 0 {
		t.Fatalf("expected zero spend after reset, got %v", spent)
	}
}

func TestZeroCapDisablesTracking(t *testing.T) {
	tracker := budget.New(0)
	tracker.Add(100)
	if tracker.Exhausted() {
		t.Fatal("zero cap never exhausts")
	}
}
