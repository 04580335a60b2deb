// Package collector runs ingestion passes against the news source: it plans
// the query list for the trigger, fetches headlines, filters and deduplicates
// them, attaches topics, and persists the survivors together with a
// collection run record.
package collector

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"newswatch/internal/config"
	"newswatch/internal/dedup"
	"newswatch/internal/logging"
	"newswatch/internal/services"
	"newswatch/internal/source"
	"newswatch/internal/store"
	"newswatch/internal/textutil"
	"newswatch/internal/topics"
)

// errorLogCooldown suppresses repeated logging of the same per-query error
// so a dead gateway does not flood the log every cycle.
const errorLogCooldown = 5 * time.Minute

// Coordinator drives one ingestion pass at a time. It is safe for a single
// goroutine; the scheduler serializes calls.
type Coordinator struct {
	cfg    *config.Config
	src    source.Client
	db     *store.Store
	cache  *dedup.Cache
	logger *slog.Logger
	now    func() time.Time

	mu         sync.Mutex
	lastErrMsg string
	lastErrAt  time.Time
}

// Option customizes the coordinator.
type Option func(*Coordinator)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// New constructs a coordinator over the supplied source and store.
func New(cfg *config.Config, src source.Client, db *store.Store, logger *slog.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	coordinator := &Coordinator{
		cfg:    cfg,
		src:    src,
		db:     db,
		cache:  dedup.NewCache(),
		logger: logging.NewComponentLogger(logger, "collector"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(coordinator)
	}
	return coordinator
}

// RunOnce executes a single ingestion pass and always persists a collection
// run record, even when nothing was collected. Per-query failures are counted
// but do not abort the pass; the returned error is non-nil only when the pass
// could not run at all.
func (c *Coordinator) RunOnce(ctx context.Context, mode string, trigger store.Trigger) (*store.CollectionRun, error) {
	c.seedCache(ctx)

	run := &store.CollectionRun{
		StartedAt: c.now().UTC(),
		Trigger:   trigger,
		Mode:      mode,
	}

	queries, since := c.plan(trigger)
	until := c.now().UTC()

	var collected []*store.Article
	for _, query := range queries {
		if err := ctx.Err(); err != nil {
			break
		}
		articles, calls, err := c.collectQuery(ctx, query, since, until)
		run.APICalls += calls
		if err != nil {
			run.QueriesFailed++
			run.ErrorCount++
			c.logQueryError(query, err)
			continue
		}
		run.QueriesSucceeded++
		collected = append(collected, articles...)
	}

	if len(collected) > 0 {
		written, err := c.db.UpsertBatch(ctx, collected)
		if err != nil {
			run.ErrorCount++
			c.logger.Error("persist collected articles", logging.Error(err))
		} else {
			run.Collected = written
		}
	}

	run.FinishedAt = c.now().UTC()
	if err := c.db.InsertRun(ctx, run); err != nil {
		return run, services.Wrap(services.ErrTransient, "collector", "run", "record collection run", err)
	}

	c.logger.Info("collection pass finished",
		slog.String(logging.FieldMode, mode),
		slog.String("trigger", string(trigger)),
		slog.Int("collected", run.Collected),
		slog.Int("queries_ok", run.QueriesSucceeded),
		slog.Int("queries_failed", run.QueriesFailed))
	return run, nil
}

// plan selects the query list and lookback window for the trigger. Manual
// runs use the priority queries with a short window; background runs walk
// the full configured query set.
func (c *Coordinator) plan(trigger store.Trigger) ([]string, time.Time) {
	src := c.cfg.Source
	var queries []string
	var lookback time.Duration
	if trigger == store.TriggerManual {
		queries = append(queries, src.PriorityQueries...)
		lookback = time.Duration(src.ManualLookbackHours) * time.Hour
	} else {
		queries = c.cfg.BackgroundQueries()
		lookback = time.Duration(src.BackgroundLookbackHours) * time.Hour
	}
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}

	substituted := make([]string, 0, len(queries))
	for _, query := range queries {
		substituted = append(substituted, c.substitute(query))
	}
	return substituted, c.now().UTC().Add(-lookback)
}

// substitute rewrites query phrases the provider rejects or over-matches on.
func (c *Coordinator) substitute(query string) string {
	for from, to := range c.cfg.Source.QuerySubstitutions {
		query = strings.ReplaceAll(query, from, to)
	}
	return query
}

func (c *Coordinator) collectQuery(ctx context.Context, query string, since, until time.Time) ([]*store.Article, int, error) {
	calls := 1
	headlines, err := c.src.Headlines(ctx, query, c.cfg.Source.MaxPerQuery, since, until)
	if err != nil {
		return nil, calls, err
	}

	var articles []*store.Article
	for _, headline := range headlines {
		article, bodyFetched := c.buildArticle(ctx, query, headline)
		calls += bodyFetched
		if article == nil {
			continue
		}
		c.cache.Add(article.NewsID)
		articles = append(articles, article)
	}
	return articles, calls, nil
}

// buildArticle turns one headline into a persistable article, or nil when it
// is filtered out. The second return value counts body fetch API calls.
func (c *Coordinator) buildArticle(ctx context.Context, query string, headline source.Headline) (*store.Article, int) {
	title := textutil.Clean(headline.Text)
	if title == "" || headline.ID == "" {
		return nil, 0
	}
	if c.cache.Contains(headline.ID) {
		return nil, 0
	}
	if c.excluded(headline.Source) {
		return nil, 0
	}

	body := ""
	calls := 0
	if c.cfg.Source.FetchBodies {
		fetched, err := c.src.StoryBody(ctx, headline.ID)
		calls = 1
		if err != nil {
			c.logger.Debug("story body fetch failed, using headline only",
				slog.String(logging.FieldArticleID, headline.ID),
				logging.Error(err))
		} else {
			body = textutil.Clean(fetched)
		}
	}

	relevanceText := title
	if body != "" {
		relevanceText = title + "\n" + body
	}
	if !topics.Relevant(relevanceText) {
		c.logger.Debug("headline not relevant",
			slog.String(logging.FieldArticleID, headline.ID),
			slog.String(logging.FieldQuery, query))
		return nil, calls
	}

	return &store.Article{
		NewsID:      headline.ID,
		Title:       title,
		Body:        body,
		PublishTime: headline.Timestamp,
		AcquireTime: c.now().UTC(),
		Source:      headline.Source,
		URL:         headline.URL,
		Topics:      topics.Join(topics.Extract(relevanceText)),
	}, calls
}

func (c *Coordinator) excluded(sourceCode string) bool {
	if sourceCode == "" {
		return false
	}
	lowered := strings.ToLower(sourceCode)
	for _, excluded := range c.cfg.Source.ExcludedSources {
		if lowered == strings.ToLower(excluded) {
			return true
		}
	}
	return false
}

// seedCache rebuilds the dedup cache from recently stored article IDs. It
// runs at the start of every pass so entries older than the window age out
// and rows written outside this process are honored.
func (c *Coordinator) seedCache(ctx context.Context) {
	window := time.Duration(c.cfg.Source.DedupWindowDays) * 24 * time.Hour
	if window <= 0 {
		return
	}
	ids, err := c.db.ExistingIDs(ctx, window)
	if err != nil {
		c.logger.Warn("seed dedup cache", logging.Error(err))
		return
	}
	c.cache.Seed(ids)
	c.logger.Debug("dedup cache seeded", slog.Int("ids", len(ids)))
}

// logQueryError logs a per-query failure, suppressing repeats of the same
// message inside the cooldown window.
func (c *Coordinator) logQueryError(query string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	message := err.Error()
	now := c.now()
	if message == c.lastErrMsg && now.Sub(c.lastErrAt) < errorLogCooldown {
		return
	}
	c.lastErrMsg = message
	c.lastErrAt = now
	c.logger.Warn("query failed",
		slog.String(logging.FieldQuery, query),
		logging.Error(err))
}
