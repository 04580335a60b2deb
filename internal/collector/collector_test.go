package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"newswatch/internal/logging"
	"newswatch/internal/source"
	"newswatch/internal/store"
	"newswatch/internal/testsupport"
)

type fakeSource struct {
	mu        sync.Mutex
	queries   []string
	headlines map[string][]source.Headline
	bodies    map[string]string
	queryErr  map[string]error
	bodyErr   error
}

func (f *fakeSource) Headlines(_ context.Context, query string, _ int, _, _ time.Time) ([]source.Headline, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if err := f.queryErr[query]; err != nil {
		return nil, err
	}
	return f.headlines[query], nil
}

func (f *fakeSource) StoryBody(_ context.Context, id string) (string, error) {
	if f.bodyErr != nil {
		return "", f.bodyErr
	}
	return f.bodies[id], nil
}

func (f *fakeSource) Ping(context.Context) error { return nil }

func (f *fakeSource) seenQueries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

func headline(id, text, src string) source.Headline {
	return source.Headline{ID: id, Text: text, Source: src, Timestamp: time.Now().UTC()}
}

func TestRunOnceDeduplicatesAgainstStore(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithQueries(map[string][]string{
		"copper": {"copper price"},
	}))
	cfg.Source.FetchBodies = false
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.SeedArticle(t, st, "h1", "Copper climbs on LME", "RTRS")

	src := &fakeSource{headlines: map[string][]source.Headline{
		"copper price": {
			headline("h1", "Copper climbs on LME", "RTRS"),
			headline("h2", "Copper inventory falls at LME warehouse", "RTRS"),
			headline("h3", "LME copper futures rally", "BBG"),
		},
	}}

	coordinator := New(cfg, src, st, logging.NewNop())
	run, err := coordinator.RunOnce(context.Background(), "active", store.TriggerBackground)
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if run.Collected != 2 {
		t.Fatalf("expected 2 collected, got %d", run.Collected)
	}
	if run.QueriesSucceeded != 1 || run.QueriesFailed != 0 {
		t.Fatalf("unexpected query counts: %+v", run)
	}

	count, err := st.Count(context.Background(), store.SearchFilter{})
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 stored articles, got %d", count)
	}
}

func TestRunOnceReseedsCacheFromStoreEachPass(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithQueries(map[string][]string{
		"copper": {"copper price"},
	}))
	cfg.Source.FetchBodies = false
	st := testsupport.MustOpenStore(t, cfg)

	src := &fakeSource{headlines: map[string][]source.Headline{
		"copper price": {headline("h1", "Copper climbs on LME", "RTRS")},
	}}
	coordinator := New(cfg, src, st, logging.NewNop())
	if _, err := coordinator.RunOnce(context.Background(), "active", store.TriggerBackground); err != nil {
		t.Fatalf("first RunOnce returned error: %v", err)
	}

	// Another writer stores h2 between passes; the next pass must see it.
	testsupport.SeedArticle(t, st, "h2", "Zinc stocks slide at LME", "RTRS")
	src.headlines["copper price"] = append(src.headlines["copper price"],
		headline("h2", "Zinc stocks slide at LME", "RTRS"))

	run, err := coordinator.RunOnce(context.Background(), "active", store.TriggerBackground)
	if err != nil {
		t.Fatalf("second RunOnce returned error: %v", err)
	}
	if run.Collected != 0 {
		t.Fatalf("expected both headlines deduplicated, got %d collected", run.Collected)
	}
}

func TestRunOnceFiltersExcludedAndIrrelevant(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithQueries(map[string][]string{
		"copper": {"copper price"},
	}))
	cfg.Source.FetchBodies = false
	cfg.Source.ExcludedSources = []string{"spamwire"}
	st := testsupport.MustOpenStore(t, cfg)

	src := &fakeSource{headlines: map[string][]source.Headline{
		"copper price": {
			headline("h1", "Copper price jumps", "RTRS"),
			headline("h2", "Copper smelter output drops", "SPAMWIRE"),
			headline("h3", "Celebrity gossip roundup", "RTRS"),
			headline("h4", "", "RTRS"),
		},
	}}

	coordinator := New(cfg, src, st, logging.NewNop())
	run, err := coordinator.RunOnce(context.Background(), "active", store.TriggerBackground)
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if run.Collected != 1 {
		t.Fatalf("expected 1 collected, got %d", run.Collected)
	}
	stored, err := st.GetByID(context.Background(), "h1")
	if err != nil || stored == nil {
		t.Fatalf("expected h1 stored, got %v err %v", stored, err)
	}
	if stored.Topics == "" {
		t.Fatalf("expected topics attached, got %+v", stored)
	}
}

func TestRunOnceAppliesQuerySubstitutions(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithQueries(map[string][]string{
		"market": {"LME prices today"},
	}))
	cfg.Source.FetchBodies = false
	st := testsupport.MustOpenStore(t, cfg)

	src := &fakeSource{}
	coordinator := New(cfg, src, st, logging.NewNop())
	if _, err := coordinator.RunOnce(context.Background(), "active", store.TriggerBackground); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	queries := src.seenQueries()
	if len(queries) != 1 || queries[0] != "base metal prices today" {
		t.Fatalf("expected substituted query, got %v", queries)
	}
}

func TestRunOnceRecordsFailedQueriesWithoutAborting(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithQueries(map[string][]string{
		"copper": {"copper price"},
		"zinc":   {"zinc price"},
	}))
	cfg.Source.FetchBodies = false
	st := testsupport.MustOpenStore(t, cfg)

	src := &fakeSource{
		headlines: map[string][]source.Headline{
			"zinc price": {headline("z1", "Zinc price rises on LME", "RTRS")},
		},
		queryErr: map[string]error{
			"copper price": errors.New("gateway down"),
		},
	}

	coordinator := New(cfg, src, st, logging.NewNop())
	run, err := coordinator.RunOnce(context.Background(), "active", store.TriggerBackground)
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if run.QueriesFailed != 1 || run.QueriesSucceeded != 1 {
		t.Fatalf("unexpected query counts: %+v", run)
	}
	if run.Collected != 1 {
		t.Fatalf("expected 1 collected, got %d", run.Collected)
	}
}

func TestRunOnceAlwaysRecordsRun(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithQueries(map[string][]string{
		"copper": {"copper price"},
	}))
	cfg.Source.FetchBodies = false
	st := testsupport.MustOpenStore(t, cfg)

	coordinator := New(cfg, &fakeSource{}, st, logging.NewNop())
	if _, err := coordinator.RunOnce(context.Background(), "passive", store.TriggerBackground); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	runs, err := st.RecentRuns(context.Background(), 5)
	if err != nil {
		t.Fatalf("RecentRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(runs))
	}
	if runs[0].Collected != 0 || runs[0].Mode != "passive" {
		t.Fatalf("unexpected run record: %+v", runs[0])
	}
}

func TestRunOnceManualUsesPriorityQueries(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithQueries(map[string][]string{
		"copper": {"copper price"},
	}))
	cfg.Source.FetchBodies = false
	cfg.Source.PriorityQueries = []string{"copper squeeze"}
	st := testsupport.MustOpenStore(t, cfg)

	src := &fakeSource{}
	coordinator := New(cfg, src, st, logging.NewNop())
	if _, err := coordinator.RunOnce(context.Background(), "active", store.TriggerManual); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	queries := src.seenQueries()
	if len(queries) != 1 || queries[0] != "copper squeeze" {
		t.Fatalf("expected priority queries only, got %v", queries)
	}
}

func TestRunOnceFallsBackToHeadlineWhenBodyFetchFails(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithQueries(map[string][]string{
		"copper": {"copper price"},
	}))
	cfg.Source.FetchBodies = true
	st := testsupport.MustOpenStore(t, cfg)

	src := &fakeSource{
		headlines: map[string][]source.Headline{
			"copper price": {headline("h1", "Copper price jumps on LME", "RTRS")},
		},
		bodyErr: errors.New("story unavailable"),
	}

	coordinator := New(cfg, src, st, logging.NewNop())
	run, err := coordinator.RunOnce(context.Background(), "active", store.TriggerBackground)
	if err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if run.Collected != 1 {
		t.Fatalf("expected 1 collected, got %d", run.Collected)
	}
	stored, err := st.GetByID(context.Background(), "h1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Body != "" {
		t.Fatalf("expected empty body fallback, got %q", stored.Body)
	}
	if run.APICalls != 2 {
		t.Fatalf("expected headline plus body call, got %d", run.APICalls)
	}
}

func TestRunOnceStripsMarkupFromBodies(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithQueries(map[string][]string{
		"copper": {"copper price"},
	}))
	cfg.Source.FetchBodies = true
	st := testsupport.MustOpenStore(t, cfg)

	src := &fakeSource{
		headlines: map[string][]source.Headline{
			"copper price": {headline("h1", "Copper price jumps on LME", "RTRS")},
		},
		bodies: map[string]string{
			"h1": "<p>Copper   rose <b>sharply</b> today.</p>",
		},
	}

	coordinator := New(cfg, src, st, logging.NewNop())
	if _, err := coordinator.RunOnce(context.Background(), "active", store.TriggerBackground); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	stored, err := st.GetByID(context.Background(), "h1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Body != "Copper rose sharply today." {
		t.Fatalf("unexpected body: %q", stored.Body)
	}
}
