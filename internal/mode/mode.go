// Package mode tracks whether the daemon runs in active collection mode or
// passive watch mode, driven by gateway availability. Transitions fan out to
// subscribers over buffered channels.
package mode

import (
	"log/slog"
	"sync"
	"time"

	"newswatch/internal/logging"
)

// Mode is the daemon's operating mode.
type Mode string

const (
	// Unknown is the startup state before the first availability probe.
	Unknown Mode = "unknown"
	// Active means the gateway is reachable and collection runs.
	Active Mode = "active"
	// Passive means the gateway is down and the daemon only watches the
	// database for updates from other writers.
	Passive Mode = "passive"
)

// Snapshot is the current mode with its entry time and cause.
type Snapshot struct {
	Mode   Mode
	Since  time.Time
	Reason string
}

// Change describes one mode transition.
type Change struct {
	From   Mode
	To     Mode
	Reason string
	At     time.Time
}

// Manager serializes mode transitions. The first transition out of Unknown
// establishes the baseline and is not reported as a change; only flips
// between established modes reach subscribers.
type Manager struct {
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	current Mode
	since   time.Time
	reason  string
	subs    []chan Change
}

// Option customizes the manager.
type Option func(*Manager)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// New constructs a manager starting in Unknown mode.
func New(logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	manager := &Manager{
		logger:  logging.NewComponentLogger(logger, "mode"),
		now:     time.Now,
		current: Unknown,
	}
	for _, opt := range opts {
		opt(manager)
	}
	manager.since = manager.now()
	return manager
}

// Apply records an availability observation and returns the resulting
// snapshot plus whether an established mode flipped.
func (m *Manager) Apply(available bool, reason string) (Snapshot, bool) {
	target := Passive
	if available {
		target = Active
	}

	m.mu.Lock()
	if m.current == target {
		snapshot := m.snapshotLocked()
		m.mu.Unlock()
		return snapshot, false
	}

	from := m.current
	at := m.now()
	m.current = target
	m.since = at
	m.reason = reason
	snapshot := m.snapshotLocked()
	changed := from != Unknown
	var subs []chan Change
	if changed {
		subs = append(subs, m.subs...)
	}
	m.mu.Unlock()

	m.logger.Info("mode transition",
		slog.String("from", string(from)),
		slog.String(logging.FieldMode, string(target)),
		slog.String("reason", reason))

	if changed {
		change := Change{From: from, To: target, Reason: reason, At: at}
		for _, sub := range subs {
			select {
			case sub <- change:
			default:
			}
		}
	}
	return snapshot, changed
}

// Subscribe returns a channel receiving future mode flips. Slow consumers
// drop events rather than block transitions.
func (m *Manager) Subscribe() <-chan Change {
	sub := make(chan Change, 8)
	m.mu.Lock()
	m.subs = append(m.subs, sub)
	m.mu.Unlock()
	return sub
}

// State returns the current snapshot.
func (m *Manager) State() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *Manager) snapshotLocked() Snapshot {
	return Snapshot{Mode: m.current, Since: m.since, Reason: m.reason}
}
