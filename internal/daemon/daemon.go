// Package daemon wires the store, source client, analyzer, and scheduler
// into a single lifecycle with flock-based locking to prevent multiple
// instances from collecting against the same database.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"newswatch/internal/ai"
	"newswatch/internal/ai/gemini"
	"newswatch/internal/analysis"
	"newswatch/internal/availability"
	"newswatch/internal/collector"
	"newswatch/internal/config"
	"newswatch/internal/logging"
	"newswatch/internal/mode"
	"newswatch/internal/notifications"
	"newswatch/internal/scheduler"
	"newswatch/internal/source"
	"newswatch/internal/source/eikon"
	"newswatch/internal/store"
)

// Daemon owns the collection pipeline and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	db        *store.Store
	src       source.Client
	detector  *availability.Detector
	modes     *mode.Manager
	analyzer  *analysis.Analyzer
	scheduler *scheduler.Scheduler
	notifier  notifications.Service

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	startedAt time.Time
}

// Status is the daemon runtime summary served over IPC.
type Status struct {
	Running      bool
	PID          int
	StartedAt    time.Time
	Mode         mode.Snapshot
	Source       availability.Status
	DatabasePath string
	LockPath     string
	SocketPath   string
	Articles     int
	Runs         store.RunSummary
	Analysis     analysis.Stats
}

// Option customizes daemon construction, mainly for tests.
type Option func(*wiring)

type wiring struct {
	src source.Client
	llm ai.Client
}

// WithSourceClient substitutes the news source client.
func WithSourceClient(src source.Client) Option {
	return func(w *wiring) {
		if src != nil {
			w.src = src
		}
	}
}

// WithAIClient substitutes the model client.
func WithAIClient(client ai.Client) Option {
	return func(w *wiring) {
		if client != nil {
			w.llm = client
		}
	}
}

// New constructs a daemon with all collaborators wired from configuration.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires configuration")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	var w wiring
	for _, opt := range opts {
		opt(&w)
	}
	if w.src == nil {
		w.src = eikon.NewClient(cfg.Source.AppKey,
			eikon.WithBaseURL(cfg.Source.BaseURL),
			eikon.WithTimeout(time.Duration(cfg.Source.RequestTimeoutSeconds)*time.Second))
	}
	if w.llm == nil && cfg.Analysis.Enabled && strings.TrimSpace(cfg.Analysis.APIKey) != "" {
		// The analyzer owns retries and records quota and spend per
		// attempt, so the client itself must not retry underneath it.
		geminiOpts := []gemini.Option{
			gemini.WithTimeout(time.Duration(cfg.Analysis.TimeoutSeconds) * time.Second),
			gemini.WithRetryMaxAttempts(1),
		}
		if base := strings.TrimSpace(cfg.Analysis.BaseURL); base != "" {
			geminiOpts = append(geminiOpts, gemini.WithBaseURL(base))
		}
		w.llm = gemini.NewClient(cfg.Analysis.APIKey, geminiOpts...)
	}

	db, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	detector := availability.New(w.src, logger)
	modes := mode.New(logger)
	notifier := notifications.NewService(cfg)
	coordinator := collector.New(cfg, w.src, db, logger)
	analyzer := analysis.New(cfg.Analysis, w.llm, db, logger)
	sched := scheduler.New(cfg, coordinator, analyzer, db, modes, detector, notifier, logger)

	lockPath := filepath.Join(cfg.Paths.DataDir, "newswatchd.lock")
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		db:        db,
		src:       w.src,
		detector:  detector,
		modes:     modes,
		analyzer:  analyzer,
		scheduler: sched,
		notifier:  notifier,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the scheduler.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another newswatch daemon instance is already running")
	}

	if err := d.scheduler.Start(ctx); err != nil {
		_ = d.lock.Unlock()
		return fmt.Errorf("start scheduler: %w", err)
	}

	d.startedAt = time.Now().UTC()
	d.running.Store(true)
	d.logger.Info("daemon started", slog.String("lock", d.lockPath))
	return nil
}

// Stop halts background processing and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	d.scheduler.Stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// Store exposes the article store for read-side callers.
func (d *Daemon) Store() *store.Store {
	return d.db
}

// Status reports the current daemon state. The availability reading comes
// from the detector cache so status queries stay cheap.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StartedAt:    d.startedAt,
		Mode:         d.modes.State(),
		Source:       d.detector.Check(ctx),
		DatabasePath: d.db.Path(),
		LockPath:     d.lockPath,
		SocketPath:   d.cfg.Paths.SocketPath,
		Analysis:     d.analyzer.Stats(),
	}
	if count, err := d.db.Count(ctx, store.SearchFilter{}); err == nil {
		status.Articles = count
	}
	if summary, err := d.db.RunSummarySince(ctx, time.Now().UTC().Add(-24*time.Hour)); err == nil && summary != nil {
		status.Runs = *summary
	}
	return status
}

// CollectNow runs a manual collection pass immediately.
func (d *Daemon) CollectNow(ctx context.Context) (*store.CollectionRun, error) {
	if !d.running.Load() {
		return nil, errors.New("daemon not running")
	}
	return d.scheduler.RunOnce(ctx)
}

// RecheckSource probes the gateway immediately and feeds the observation
// into the mode manager.
func (d *Daemon) RecheckSource(ctx context.Context) availability.Status {
	status := d.detector.ForceRecheck(ctx)
	d.modes.Apply(status.Available, status.Message)
	return status
}

// RecentArticles lists the most recent stored articles.
func (d *Daemon) RecentArticles(ctx context.Context, limit int) ([]*store.Article, error) {
	if limit <= 0 {
		limit = 20
	}
	return d.db.Search(ctx, store.SearchFilter{Limit: limit})
}

// RunStats aggregates collection runs since the given time.
func (d *Daemon) RunStats(ctx context.Context, since time.Time) (*store.RunSummary, error) {
	return d.db.RunSummarySince(ctx, since)
}

// RecentRuns lists the latest collection runs.
func (d *Daemon) RecentRuns(ctx context.Context, limit int) ([]*store.CollectionRun, error) {
	return d.db.RecentRuns(ctx, limit)
}

// TestNotification sends a test push through the configured notifier.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}
