package store_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"newswatch/internal/store"
	"newswatch/internal/testsupport"
)

func TestUpsertIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	article := &store.Article{
		NewsID:      "n1",
		Title:       "Copper climbs on supply worries",
		Body:        "Copper rose two percent.",
		Source:      "Reuters",
		PublishTime: time.Now().UTC().Add(-time.Hour),
	}
	if err := st.Upsert(ctx, article); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := st.Upsert(ctx, article); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	count, err := st.Count(ctx, store.SearchFilter{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 article after duplicate upsert, got %d", count)
	}
}

func TestUpsertPreservesEnrichment(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	article := &store.Article{NewsID: "n1", Title: "Zinc slides", Source: "Reuters"}
	if err := st.Upsert(ctx, article); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	summary := "Zinc fell on weak demand."
	sentiment := store.SentimentNegative
	if err := st.UpdateEnrichment(ctx, "n1", store.EnrichmentUpdate{
		Summary:   &summary,
		Sentiment: &sentiment,
	}); err != nil {
		t.Fatalf("update enrichment: %v", err)
	}

	// Re-collect the same headline without enrichment fields.
	if err := st.Upsert(ctx, &store.Article{NewsID: "n1", Title: "Zinc slides", Source: "Reuters"}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	got, err := st.GetByID(ctx, "n1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Summary != summary {
		t.Fatalf("summary lost on re-upsert: %q", got.Summary)
	}
	if got.Sentiment != sentiment {
		t.Fatalf("sentiment lost on re-upsert: %q", got.Sentiment)
	}
}

func TestUpdateEnrichmentSetsOnlyProvidedFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedArticle(t, st, "n1", "Nickel news", "Bloomberg")

	score := 8
	if err := st.UpdateEnrichment(ctx, "n1", store.EnrichmentUpdate{ImportanceScore: &score}); err != nil {
		t.Fatalf("update enrichment: %v", err)
	}

	got, err := st.GetByID(ctx, "n1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.HasImportance || got.ImportanceScore != 8 {
		t.Fatalf("expected importance 8, got %+v", got)
	}
	if got.Summary != "" || got.Sentiment != "" {
		t.Fatalf("unexpected fields set: %+v", got)
	}
}

func TestUpdateEnrichmentUnknownArticle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)

	summary := "s"
	err := st.UpdateEnrichment(context.Background(), "missing", store.EnrichmentUpdate{Summary: &summary})
	if err == nil {
		t.Fatal("expected error for unknown article")
	}
}

func TestExistingIDsHonorsLookback(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	recent := &store.Article{NewsID: "recent", Title: "t", AcquireTime: time.Now().UTC()}
	old := &store.Article{NewsID: "old", Title: "t", AcquireTime: time.Now().UTC().Add(-10 * 24 * time.Hour)}
	for _, a := range []*store.Article{recent, old} {
		if err := st.Upsert(ctx, a); err != nil {
			t.Fatalf("upsert %s: %v", a.NewsID, err)
		}
	}

	ids, err := st.ExistingIDs(ctx, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("existing ids: %v", err)
	}
	if len(ids) != 1 || ids[0] != "recent" {
		t.Fatalf("expected only recent id, got %v", ids)
	}
}

func TestSearchFiltersAndOrdering(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	now := time.Now().UTC()
	articles := []*store.Article{
		{NewsID: "a", Title: "Copper surges", Source: "Reuters", Topics: "copper", PublishTime: now.Add(-3 * time.Hour)},
		{NewsID: "b", Title: "Aluminium dips", Source: "Bloomberg", Topics: "aluminium", PublishTime: now.Add(-2 * time.Hour)},
		{NewsID: "c", Title: "Copper smelter strike", Source: "Reuters", Topics: "copper", PublishTime: now.Add(-1 * time.Hour)},
	}
	for _, a := range articles {
		if err := st.Upsert(ctx, a); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if err := st.SetRating(ctx, "a", 3); err != nil {
		t.Fatalf("set rating: %v", err)
	}

	results, err := st.Search(ctx, store.SearchFilter{Topic: "copper"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 copper articles, got %d", len(results))
	}
	// Rated article sorts first despite being older.
	if results[0].NewsID != "a" {
		t.Fatalf("expected rated article first, got %s", results[0].NewsID)
	}

	results, err = st.Search(ctx, store.SearchFilter{Keyword: "smelter"})
	if err != nil {
		t.Fatalf("search keyword: %v", err)
	}
	if len(results) != 1 || results[0].NewsID != "c" {
		t.Fatalf("unexpected keyword results: %v", results)
	}

	count, err := st.Count(ctx, store.SearchFilter{Source: "reuters"})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 reuters articles, got %d", count)
	}
}

func TestReadAndRatingLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedArticle(t, st, "n1", "Tin rallies", "Reuters")

	if err := st.MarkRead(ctx, "n1"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	got, _ := st.GetByID(ctx, "n1")
	if !got.IsRead || got.ReadAt.IsZero() {
		t.Fatalf("expected read with timestamp, got %+v", got)
	}

	if err := st.MarkUnread(ctx, "n1"); err != nil {
		t.Fatalf("mark unread: %v", err)
	}
	got, _ = st.GetByID(ctx, "n1")
	if got.IsRead || !got.ReadAt.IsZero() {
		t.Fatalf("expected unread with cleared timestamp, got %+v", got)
	}

	if err := st.SetRating(ctx, "n1", 2); err != nil {
		t.Fatalf("set rating: %v", err)
	}
	got, _ = st.GetByID(ctx, "n1")
	if got.Rating != 2 {
		t.Fatalf("expected rating 2, got %d", got.Rating)
	}
	if err := st.SetRating(ctx, "n1", 0); err != nil {
		t.Fatalf("clear rating: %v", err)
	}
	got, _ = st.GetByID(ctx, "n1")
	if got.Rating != 0 {
		t.Fatalf("expected cleared rating, got %d", got.Rating)
	}
	if err := st.SetRating(ctx, "n1", 4); err == nil {
		t.Fatal("expected error for rating out of range")
	}
}

func TestMarkAllRead(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.SeedArticle(t, st, "n1", "One", "Reuters")
	testsupport.SeedArticle(t, st, "n2", "Two", "Reuters")
	testsupport.SeedArticle(t, st, "n3", "Three", "Bloomberg")

	affected, err := st.MarkAllRead(ctx, store.SearchFilter{Source: "Reuters"})
	if err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	if affected != 2 {
		t.Fatalf("expected 2 marked, got %d", affected)
	}

	unread, err := st.Count(ctx, store.SearchFilter{UnreadOnly: true})
	if err != nil {
		t.Fatalf("count unread: %v", err)
	}
	if unread != 1 {
		t.Fatalf("expected 1 unread remaining, got %d", unread)
	}
}

func TestManualInsertAndDelete(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	inserted, err := st.InsertManual(ctx, &store.Article{Title: "Hand-entered note", Source: "desk"})
	if err != nil {
		t.Fatalf("insert manual: %v", err)
	}
	if !strings.HasPrefix(inserted.NewsID, "manual_") {
		t.Fatalf("expected manual_ prefix, got %q", inserted.NewsID)
	}
	if !inserted.IsManual {
		t.Fatal("expected manual flag")
	}

	testsupport.SeedArticle(t, st, "collected", "Collected", "Reuters")
	if err := st.DeleteManual(ctx, "collected"); err == nil {
		t.Fatal("expected refusal to delete collected article")
	}

	if err := st.DeleteManual(ctx, inserted.NewsID); err != nil {
		t.Fatalf("delete manual: %v", err)
	}
	got, err := st.GetByID(ctx, inserted.NewsID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatal("expected manual article gone")
	}
}

func TestRemoveTitleSourceDuplicates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	now := time.Now().UTC()
	duplicates := []*store.Article{
		{NewsID: "d1", Title: "Copper hits high", Source: "Reuters", PublishTime: now.Add(-2 * time.Hour)},
		{NewsID: "d2", Title: "copper hits high", Source: "Reuters", PublishTime: now.Add(-1 * time.Hour)},
		{NewsID: "u1", Title: "Unrelated", Source: "Reuters", PublishTime: now},
	}
	for _, a := range duplicates {
		if err := st.Upsert(ctx, a); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	groups, err := st.FindTitleSourceDuplicates(ctx)
	if err != nil {
		t.Fatalf("find duplicates: %v", err)
	}
	if len(groups) != 1 || groups[0].Count != 2 {
		t.Fatalf("unexpected duplicate groups: %+v", groups)
	}

	deleted, err := st.RemoveTitleSourceDuplicates(ctx, true)
	if err != nil {
		t.Fatalf("remove duplicates: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}

	// keepLatest keeps the newer publish time.
	if got, _ := st.GetByID(ctx, "d2"); got == nil {
		t.Fatal("expected latest duplicate to survive")
	}
	if got, _ := st.GetByID(ctx, "d1"); got != nil {
		t.Fatal("expected older duplicate removed")
	}
}

func TestDuplicateGroupingFoldsCaseAndWhitespace(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	now := time.Now().UTC()
	for _, a := range []*store.Article{
		{NewsID: "d1", Title: "Copper  hits   high", Source: "Reuters", PublishTime: now.Add(-3 * time.Hour)},
		{NewsID: "d2", Title: "COPPER HITS HIGH", Source: "reuters", PublishTime: now.Add(-2 * time.Hour)},
		{NewsID: "d3", Title: "copper hits high", Source: "REUTERS", PublishTime: now.Add(-1 * time.Hour)},
	} {
		if err := st.Upsert(ctx, a); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	groups, err := st.FindTitleSourceDuplicates(ctx)
	if err != nil {
		t.Fatalf("find duplicates: %v", err)
	}
	if len(groups) != 1 || groups[0].Count != 3 {
		t.Fatalf("expected one group of 3, got %+v", groups)
	}
	if groups[0].Title != "copper hits high" {
		t.Fatalf("unexpected normalized title: %q", groups[0].Title)
	}

	deleted, err := st.RemoveTitleSourceDuplicates(ctx, true)
	if err != nil {
		t.Fatalf("remove duplicates: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}
	if got, _ := st.GetByID(ctx, "d3"); got == nil {
		t.Fatal("expected latest duplicate to survive")
	}
}

func TestRemoveTitleSourceDuplicatesKeepEarliest(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	now := time.Now().UTC()
	for _, a := range []*store.Article{
		{NewsID: "d1", Title: "Gold steadies", Source: "Reuters", PublishTime: now.Add(-2 * time.Hour)},
		{NewsID: "d2", Title: "Gold steadies", Source: "Reuters", PublishTime: now.Add(-1 * time.Hour)},
	} {
		if err := st.Upsert(ctx, a); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	if _, err := st.RemoveTitleSourceDuplicates(ctx, false); err != nil {
		t.Fatalf("remove duplicates: %v", err)
	}
	if got, _ := st.GetByID(ctx, "d1"); got == nil {
		t.Fatal("expected earliest duplicate to survive")
	}
}

func TestNewSinceAndUnenriched(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	mark := time.Now().UTC().Add(-time.Minute)
	testsupport.SeedArticle(t, st, "n1", "Fresh", "Reuters")

	fresh, err := st.NewSince(ctx, mark)
	if err != nil {
		t.Fatalf("new since: %v", err)
	}
	if len(fresh) != 1 || fresh[0].NewsID != "n1" {
		t.Fatalf("unexpected new articles: %v", fresh)
	}

	pending, err := st.Unenriched(ctx, time.Hour, 0)
	if err != nil {
		t.Fatalf("unenriched: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 unenriched, got %d", len(pending))
	}

	summary := "done"
	sentiment := store.SentimentNeutral
	if err := st.UpdateEnrichment(ctx, "n1", store.EnrichmentUpdate{Summary: &summary, Sentiment: &sentiment}); err != nil {
		t.Fatalf("update enrichment: %v", err)
	}
	pending, err = st.Unenriched(ctx, time.Hour, 0)
	if err != nil {
		t.Fatalf("unenriched: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no unenriched after update, got %d", len(pending))
	}
}

func TestRunsInsertAndSummary(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	started := time.Now().UTC().Add(-time.Minute)
	run := &store.CollectionRun{
		StartedAt:        started,
		FinishedAt:       started.Add(30 * time.Second),
		Trigger:          store.TriggerBackground,
		Mode:             "active",
		Collected:        12,
		QueriesSucceeded: 8,
		QueriesFailed:    1,
		APICalls:         9,
		ErrorCount:       1,
	}
	if err := st.InsertRun(ctx, run); err != nil {
		t.Fatalf("insert run: %v", err)
	}
	if run.ID == 0 {
		t.Fatal("expected run id assigned")
	}

	runs, err := st.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatalf("recent runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Collected != 12 {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if runs[0].Duration() != 30*time.Second {
		t.Fatalf("unexpected duration: %v", runs[0].Duration())
	}

	summary, err := st.RunSummarySince(ctx, started.Add(-time.Hour))
	if err != nil {
		t.Fatalf("run summary: %v", err)
	}
	if summary.Runs != 1 || summary.Collected != 12 || summary.QueriesFailed != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestUpsertBatchCountsWrites(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	written, err := st.UpsertBatch(ctx, []*store.Article{
		{NewsID: "b1", Title: "One"},
		{NewsID: "b2", Title: "Two"},
		nil,
		{NewsID: "", Title: "skipped"},
	})
	if err != nil {
		t.Fatalf("upsert batch: %v", err)
	}
	if written != 2 {
		t.Fatalf("expected 2 written, got %d", written)
	}
}
