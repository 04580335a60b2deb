package scheduler

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"newswatch/internal/analysis"
	"newswatch/internal/availability"
	"newswatch/internal/collector"
	"newswatch/internal/config"
	"newswatch/internal/logging"
	"newswatch/internal/mode"
	"newswatch/internal/source"
	"newswatch/internal/store"
	"newswatch/internal/testsupport"
)

type fakeNotifier struct {
	mu             sync.Mutex
	databaseCounts []int
	modeChanges    []mode.Change
	important      []string
	errors         []string
}

func (f *fakeNotifier) NotifyDatabaseUpdated(_ context.Context, count int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.databaseCounts = append(f.databaseCounts, count)
	return nil
}

func (f *fakeNotifier) NotifyHighImportance(_ context.Context, article *store.Article) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.important = append(f.important, article.NewsID)
	return nil
}

func (f *fakeNotifier) NotifyModeChanged(_ context.Context, change mode.Change) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modeChanges = append(f.modeChanges, change)
	return nil
}

func (f *fakeNotifier) NotifyCollectionError(_ context.Context, err error, label string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors = append(f.errors, label+": "+err.Error())
	return nil
}

func (f *fakeNotifier) TestNotification(context.Context) error { return nil }

type fakeSource struct {
	mu        sync.Mutex
	headlines []source.Headline
	pingErr   error
}

func (f *fakeSource) Headlines(context.Context, string, int, time.Time, time.Time) ([]source.Headline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.headlines, nil
}

func (f *fakeSource) StoryBody(context.Context, string) (string, error) { return "", nil }

func (f *fakeSource) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

type fixedClient struct {
	response string
}

func (c fixedClient) Generate(context.Context, string, string) (string, error) {
	return c.response, nil
}

type fixture struct {
	cfg       *config.Config
	st        *store.Store
	scheduler *Scheduler
	notifier  *fakeNotifier
	modes     *mode.Manager
	src       *fakeSource
}

func newFixture(t *testing.T, mutate func(cfg *config.Config)) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithQueries(map[string][]string{
		"copper": {"copper price"},
	}))
	cfg.Source.FetchBodies = false
	cfg.Source.CheckIntervalSeconds = 1
	cfg.Analysis.Sentiment = false
	cfg.Analysis.Keywords = false
	cfg.Analysis.Translation = false
	if mutate != nil {
		mutate(cfg)
	}
	st := testsupport.MustOpenStore(t, cfg)
	src := &fakeSource{}
	notifier := &fakeNotifier{}
	modes := mode.New(logging.NewNop())

	coordinator := collector.New(cfg, src, st, logging.NewNop())
	analyzer := analysis.New(cfg.Analysis, fixedClient{response: "9 - major squeeze"}, st, logging.NewNop())
	detector := availability.New(src, logging.NewNop())

	scheduler := New(cfg, coordinator, analyzer, st, modes, detector, notifier, logging.NewNop(),
		WithIntervals(10*time.Millisecond, 10*time.Millisecond, 10*time.Millisecond))
	return &fixture{cfg: cfg, st: st, scheduler: scheduler, notifier: notifier, modes: modes, src: src}
}

func TestRunOnceRecordsManualTrigger(t *testing.T) {
	f := newFixture(t, nil)
	f.cfg.Source.PriorityQueries = []string{"copper price"}
	f.src.headlines = []source.Headline{
		{ID: "h1", Text: "Copper price spikes on LME", Source: "RTRS", Timestamp: time.Now().UTC()},
	}

	run, err := f.scheduler.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if run.Trigger != store.TriggerManual {
		t.Fatalf("expected manual trigger, got %s", run.Trigger)
	}
	if run.Collected != 1 {
		t.Fatalf("expected 1 collected, got %d", run.Collected)
	}
	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	if len(f.notifier.databaseCounts) != 1 || f.notifier.databaseCounts[0] != 1 {
		t.Fatalf("expected database update notification, got %v", f.notifier.databaseCounts)
	}
}

func TestActiveCycleCollectsAndEnriches(t *testing.T) {
	f := newFixture(t, nil)
	f.src.headlines = []source.Headline{
		{ID: "h1", Text: "Copper price spikes on LME", Source: "RTRS", Timestamp: time.Now().UTC()},
	}
	f.modes.Apply(true, "probe")

	if err := f.scheduler.activeCycle(); err != nil {
		t.Fatalf("activeCycle returned error: %v", err)
	}

	stored, err := f.st.GetByID(context.Background(), "h1")
	if err != nil || stored == nil {
		t.Fatalf("expected stored article, got %v err %v", stored, err)
	}
	if stored.Summary == "" {
		t.Fatalf("expected enrichment, got %+v", stored)
	}
	if !stored.HasImportance || stored.ImportanceScore != 9 {
		t.Fatalf("expected importance 9, got %+v", stored)
	}

	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	if len(f.notifier.important) != 1 || f.notifier.important[0] != "h1" {
		t.Fatalf("expected high importance alert for h1, got %v", f.notifier.important)
	}
}

func TestActiveCycleSkipsEnrichmentWhenDisabled(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Analysis.Enabled = false
	})
	f.src.headlines = []source.Headline{
		{ID: "h1", Text: "Copper price spikes on LME", Source: "RTRS", Timestamp: time.Now().UTC()},
	}
	f.modes.Apply(true, "probe")

	if err := f.scheduler.activeCycle(); err != nil {
		t.Fatalf("activeCycle returned error: %v", err)
	}
	stored, err := f.st.GetByID(context.Background(), "h1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Enriched() {
		t.Fatalf("expected no enrichment, got %+v", stored)
	}
}

func TestPassiveCycleNotifiesOnExternalWrites(t *testing.T) {
	f := newFixture(t, nil)
	f.modes.Apply(false, "gateway down")

	f.scheduler.passiveCycle()
	f.notifier.mu.Lock()
	if len(f.notifier.databaseCounts) != 0 {
		f.notifier.mu.Unlock()
		t.Fatalf("expected no notification without writes, got %v", f.notifier.databaseCounts)
	}
	f.notifier.mu.Unlock()

	testsupport.SeedArticle(t, f.st, "ext1", "Zinc price climbs on LME", "RTRS")
	f.scheduler.passiveCycle()

	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	if len(f.notifier.databaseCounts) != 1 || f.notifier.databaseCounts[0] != 1 {
		t.Fatalf("expected one update notification, got %v", f.notifier.databaseCounts)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.scheduler.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := f.scheduler.Start(context.Background()); err == nil {
		t.Fatal("expected error on double start")
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.modes.State().Mode == mode.Unknown && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if f.modes.State().Mode != mode.Active {
		t.Fatalf("expected active mode after probe, got %s", f.modes.State().Mode)
	}

	f.scheduler.Stop()
	f.scheduler.Stop()
}

func TestObserveReportsModeFlips(t *testing.T) {
	f := newFixture(t, nil)
	if err := f.scheduler.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer f.scheduler.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for f.modes.State().Mode != mode.Active && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	f.src.mu.Lock()
	f.src.pingErr = context.DeadlineExceeded
	f.src.mu.Unlock()

	deadline = time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		f.notifier.mu.Lock()
		flips := len(f.notifier.modeChanges)
		f.notifier.mu.Unlock()
		if flips > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	if len(f.notifier.modeChanges) == 0 {
		t.Fatal("expected a mode change notification after gateway loss")
	}
	change := f.notifier.modeChanges[0]
	if change.To != mode.Passive {
		t.Fatalf("expected flip to passive, got %+v", change)
	}
	if !strings.Contains(change.Reason, "timed out") && change.Reason == "" {
		t.Fatalf("expected actionable reason, got %+v", change)
	}
}
