// Package availability probes the news gateway and reports whether the
// terminal session behind it is usable. Results are cached briefly so
// status queries from the CLI do not hammer the gateway.
package availability

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"newswatch/internal/logging"
	"newswatch/internal/services"
	"newswatch/internal/source"
)

const defaultCacheTTL = 30 * time.Second

// Status is the outcome of one gateway probe.
type Status struct {
	Available bool
	Message   string
	CheckedAt time.Time
}

// Detector probes the source and caches the result.
type Detector struct {
	src    source.Client
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu     sync.Mutex
	cached Status
	valid  bool
}

// Option customizes the detector.
type Option func(*Detector)

// WithTTL overrides how long a probe result is reused.
func WithTTL(ttl time.Duration) Option {
	return func(d *Detector) {
		if ttl > 0 {
			d.ttl = ttl
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		if now != nil {
			d.now = now
		}
	}
}

// New constructs a detector over the supplied source client.
func New(src source.Client, logger *slog.Logger, opts ...Option) *Detector {
	if logger == nil {
		logger = logging.NewNop()
	}
	detector := &Detector{
		src:    src,
		ttl:    defaultCacheTTL,
		now:    time.Now,
		logger: logging.NewComponentLogger(logger, "availability"),
	}
	for _, opt := range opts {
		opt(detector)
	}
	return detector
}

// Check returns the gateway status, reusing a cached probe inside the TTL.
func (d *Detector) Check(ctx context.Context) Status {
	d.mu.Lock()
	if d.valid && d.now().Sub(d.cached.CheckedAt) < d.ttl {
		cached := d.cached
		d.mu.Unlock()
		return cached
	}
	d.mu.Unlock()
	return d.probe(ctx)
}

// ForceRecheck probes the gateway immediately, bypassing the cache.
func (d *Detector) ForceRecheck(ctx context.Context) Status {
	return d.probe(ctx)
}

func (d *Detector) probe(ctx context.Context) Status {
	err := d.src.Ping(ctx)
	status := Status{
		Available: err == nil,
		Message:   describe(err),
		CheckedAt: d.now(),
	}
	if err != nil {
		d.logger.Debug("gateway probe failed",
			slog.String("status", status.Message),
			logging.Error(err))
	}

	d.mu.Lock()
	d.cached = status
	d.valid = true
	d.mu.Unlock()
	return status
}

// describe turns a probe error into an actionable operator message.
func describe(err error) string {
	switch {
	case err == nil:
		return "terminal session active"
	case errors.Is(err, services.ErrConfiguration):
		return "app key rejected; update source.app_key in the configuration"
	case errors.Is(err, services.ErrUnauthorized):
		return "gateway denied access; check the terminal login"
	case errors.Is(err, services.ErrTimeout):
		return "gateway timed out; the terminal may still be starting"
	case errors.Is(err, services.ErrUnavailable):
		return "terminal session not running; start the desktop terminal"
	default:
		return err.Error()
	}
}

// Watcher polls the detector on an interval and hands every observation to
// a callback. The callback decides what a flip means; the watcher only
// guarantees a steady stream of observations.
type Watcher struct {
	detector *Detector
	interval time.Duration
	observe  func(Status)
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewWatcher constructs a watcher that probes on the supplied interval.
func NewWatcher(detector *Detector, interval time.Duration, observe func(Status), logger *slog.Logger) *Watcher {
	if interval <= 0 {
		interval = defaultCacheTTL
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Watcher{
		detector: detector,
		interval: interval,
		observe:  observe,
		logger:   logging.NewComponentLogger(logger, "availability"),
	}
}

// Start launches the polling loop. It returns an error when already running.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return errors.New("availability watcher already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	w.ctx = runCtx
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go w.loop()
	return nil
}

// Stop halts the polling loop and waits for it to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	w.poll()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.poll()
		}
	}
}

func (w *Watcher) poll() {
	status := w.detector.ForceRecheck(w.ctx)
	if w.observe != nil {
		w.observe(status)
	}
}
