// Package scheduler runs the daemon's control loop. Availability probes
// drive the mode manager; active mode runs timed collection and enrichment
// passes, passive mode only watches the database for new rows written by
// other instances.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"newswatch/internal/analysis"
	"newswatch/internal/availability"
	"newswatch/internal/collector"
	"newswatch/internal/config"
	"newswatch/internal/logging"
	"newswatch/internal/mode"
	"newswatch/internal/notifications"
	"newswatch/internal/services"
	"newswatch/internal/store"
)

// enrichLimit bounds how many backlog articles one active cycle enriches.
const enrichLimit = 50

// Scheduler owns the daemon's periodic work.
type Scheduler struct {
	cfg         *config.Config
	coordinator *collector.Coordinator
	analyzer    *analysis.Analyzer
	db          *store.Store
	modes       *mode.Manager
	watcher     *availability.Watcher
	notifier    notifications.Service
	logger      *slog.Logger

	pollInterval    time.Duration
	passiveInterval time.Duration
	retryInterval   time.Duration

	mu      sync.Mutex
	running bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	collectMu sync.Mutex
	lastSeen  time.Time
}

// Option customizes the scheduler.
type Option func(*Scheduler)

// WithIntervals overrides the loop timing, for tests.
func WithIntervals(poll, passive, retry time.Duration) Option {
	return func(s *Scheduler) {
		if poll > 0 {
			s.pollInterval = poll
		}
		if passive > 0 {
			s.passiveInterval = passive
		}
		if retry > 0 {
			s.retryInterval = retry
		}
	}
}

// New wires a scheduler from its collaborators. The detector feeds mode
// observations through an availability watcher on the source check interval.
func New(
	cfg *config.Config,
	coordinator *collector.Coordinator,
	analyzer *analysis.Analyzer,
	db *store.Store,
	modes *mode.Manager,
	detector *availability.Detector,
	notifier notifications.Service,
	logger *slog.Logger,
	opts ...Option,
) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}
	scheduler := &Scheduler{
		cfg:             cfg,
		coordinator:     coordinator,
		analyzer:        analyzer,
		db:              db,
		modes:           modes,
		notifier:        notifier,
		logger:          logging.NewComponentLogger(logger, "scheduler"),
		pollInterval:    time.Duration(cfg.Workflow.PollIntervalMinutes) * time.Minute,
		passiveInterval: time.Duration(cfg.Workflow.PassiveCheckIntervalMinutes) * time.Minute,
		retryInterval:   time.Duration(cfg.Workflow.ErrorRetrySeconds) * time.Second,
		lastSeen:        time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(scheduler)
	}
	if scheduler.pollInterval <= 0 {
		scheduler.pollInterval = 15 * time.Minute
	}
	if scheduler.passiveInterval <= 0 {
		scheduler.passiveInterval = 5 * time.Minute
	}
	if scheduler.retryInterval <= 0 {
		scheduler.retryInterval = time.Minute
	}

	checkInterval := time.Duration(cfg.Source.CheckIntervalSeconds) * time.Second
	scheduler.watcher = availability.NewWatcher(detector, checkInterval, scheduler.observe, logger)
	return scheduler
}

// Start launches the availability watcher and the control loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.ctx = runCtx
	s.cancel = cancel
	s.running = true

	if err := s.watcher.Start(runCtx); err != nil {
		cancel()
		s.running = false
		return err
	}

	s.wg.Add(1)
	go s.loop(runCtx)
	return nil
}

// Stop halts the loop. An in-flight collection or enrichment pass runs to
// completion; Stop blocks until it finishes.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel := s.cancel
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	s.watcher.Stop()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}

// RunOnce performs a manual collection pass immediately, regardless of mode.
// Enrichment is deliberately left to the next active cycle so a manual
// trigger stays fast.
func (s *Scheduler) RunOnce(ctx context.Context) (*store.CollectionRun, error) {
	s.collectMu.Lock()
	defer s.collectMu.Unlock()

	snapshot := s.modes.State()
	run, err := s.coordinator.RunOnce(ctx, string(snapshot.Mode), store.TriggerManual)
	if err != nil {
		return run, err
	}
	if run.Collected > 0 {
		if notifyErr := s.notifier.NotifyDatabaseUpdated(ctx, run.Collected); notifyErr != nil {
			s.logger.Warn("database update notification failed", logging.Error(notifyErr))
		}
	}
	return run, nil
}

// observe feeds one availability probe into the mode manager and reports
// mode flips.
func (s *Scheduler) observe(status availability.Status) {
	snapshot, changed := s.modes.Apply(status.Available, status.Message)
	if changed {
		s.logger.Info("operating mode changed",
			slog.String(logging.FieldMode, string(snapshot.Mode)),
			slog.String("reason", snapshot.Reason))
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	changes := s.modes.Subscribe()
	for {
		if ctx.Err() != nil {
			return
		}

		wait := s.passiveInterval
		switch s.modes.State().Mode {
		case mode.Active:
			if err := s.activeCycle(); err != nil {
				wait = s.retryInterval
			} else {
				wait = s.pollInterval
			}
		case mode.Passive:
			s.passiveCycle()
		default:
			// Mode still unknown; wait for the first probe.
			wait = s.retryInterval
		}

		select {
		case <-ctx.Done():
			return
		case change := <-changes:
			if err := s.notifier.NotifyModeChanged(s.workContext(), change); err != nil {
				s.logger.Warn("mode change notification failed", logging.Error(err))
			}
		case <-time.After(wait):
		}
	}
}

// activeCycle ingests headlines and then enriches the backlog. Once started
// it runs on a context detached from Stop so the pass always completes.
func (s *Scheduler) activeCycle() error {
	ctx := s.workContext()

	s.collectMu.Lock()
	run, err := s.coordinator.RunOnce(ctx, string(mode.Active), store.TriggerBackground)
	s.collectMu.Unlock()
	if err != nil {
		s.logger.Error("collection pass failed", logging.Error(err))
		if notifyErr := s.notifier.NotifyCollectionError(ctx, err, "background collection"); notifyErr != nil {
			s.logger.Warn("error notification failed", logging.Error(notifyErr))
		}
		return err
	}
	if run.Collected > 0 {
		s.advanceLastSeen()
		if notifyErr := s.notifier.NotifyDatabaseUpdated(ctx, run.Collected); notifyErr != nil {
			s.logger.Warn("database update notification failed", logging.Error(notifyErr))
		}
	}

	return s.enrichBacklog(ctx)
}

// enrichBacklog analyzes unenriched articles inside the dedup window and
// pushes high importance alerts for anything that crossed the threshold.
func (s *Scheduler) enrichBacklog(ctx context.Context) error {
	if s.analyzer == nil || !s.cfg.Analysis.Enabled {
		return nil
	}
	lookback := time.Duration(s.cfg.Source.DedupWindowDays) * 24 * time.Hour
	articles, err := s.db.Unenriched(ctx, lookback, enrichLimit)
	if err != nil {
		s.logger.Error("load enrichment backlog", logging.Error(err))
		return err
	}
	if len(articles) == 0 {
		return nil
	}

	stats, err := s.analyzer.AnalyzeBatch(ctx, articles)
	if err != nil && !errors.Is(err, services.ErrBudgetExhausted) && !errors.Is(err, services.ErrRateLimited) {
		s.logger.Error("enrichment batch failed", logging.Error(err))
		return err
	}
	s.logger.Info("enrichment batch finished",
		slog.Int("analyzed", stats.Analyzed),
		slog.Int("skipped", stats.Skipped),
		slog.Int("failed", stats.Failed))

	s.alertHighImportance(ctx, articles)
	return nil
}

func (s *Scheduler) alertHighImportance(ctx context.Context, candidates []*store.Article) {
	threshold := s.cfg.Analysis.ImportanceThreshold
	if threshold <= 0 {
		return
	}
	for _, candidate := range candidates {
		stored, err := s.db.GetByID(ctx, candidate.NewsID)
		if err != nil || stored == nil {
			continue
		}
		if !stored.HasImportance || stored.ImportanceScore < threshold {
			continue
		}
		if err := s.notifier.NotifyHighImportance(ctx, stored); err != nil {
			s.logger.Warn("high importance notification failed",
				slog.String(logging.FieldArticleID, stored.NewsID),
				logging.Error(err))
		}
	}
}

// passiveCycle looks for rows written by another instance while the local
// gateway is down.
func (s *Scheduler) passiveCycle() {
	ctx := s.workContext()
	since := s.currentLastSeen()
	articles, err := s.db.NewSince(ctx, since)
	if err != nil {
		s.logger.Error("passive database check failed", logging.Error(err))
		return
	}
	s.advanceLastSeen()
	if len(articles) == 0 {
		return
	}
	s.logger.Info("database updated while passive", slog.Int("new_articles", len(articles)))
	if err := s.notifier.NotifyDatabaseUpdated(ctx, len(articles)); err != nil {
		s.logger.Warn("database update notification failed", logging.Error(err))
	}
}

func (s *Scheduler) currentLastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Scheduler) advanceLastSeen() {
	s.mu.Lock()
	s.lastSeen = time.Now().UTC()
	s.mu.Unlock()
}

// workContext detaches in-flight work from Stop's cancellation so a running
// pass always completes.
func (s *Scheduler) workContext() context.Context {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
