// Package analysis enriches stored articles with model-generated summaries,
// sentiment labels, keywords, importance ratings, and headline translations.
// Every model call passes a rate limit and a daily cost budget first, so a
// runaway backlog can never burn through the API quota.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"newswatch/internal/ai"
	"newswatch/internal/budget"
	"newswatch/internal/config"
	"newswatch/internal/dedup"
	"newswatch/internal/logging"
	"newswatch/internal/ratelimit"
	"newswatch/internal/services"
	"newswatch/internal/store"
	"newswatch/internal/textutil"
	"newswatch/internal/topics"
)

// maxRateWait caps how long a single article waits for a rate limit slot.
// Waits longer than this mean the daily cap is hit, so the article is
// skipped and picked up on a later pass.
const maxRateWait = 2 * time.Minute

// SkipReason explains why an article was not sent to the model.
type SkipReason string

const (
	SkipDisabled        SkipReason = "analysis disabled"
	SkipNoClient        SkipReason = "no model client"
	SkipEmptyText       SkipReason = "no usable text"
	SkipAlreadyEnriched SkipReason = "already enriched"
	SkipCached          SkipReason = "analyzed this session"
	SkipUnimportant     SkipReason = "below importance threshold"
	SkipBudget          SkipReason = "daily budget exhausted"
	SkipRateLimited     SkipReason = "rate limited"
)

// Result reports the outcome of analyzing one article.
type Result struct {
	Update  store.EnrichmentUpdate
	Skipped bool
	Reason  SkipReason
}

// Stats accumulates analyzer activity over the process lifetime.
type Stats struct {
	Analyzed int
	Skipped  int
	Failed   int
	Calls    int
	CostUSD  float64
}

// Analyzer drives enrichment for a single configured model pair.
type Analyzer struct {
	cfg     config.Analysis
	client  ai.Client
	db      *store.Store
	limiter *ratelimit.Limiter
	tracker *budget.Tracker
	cache   *dedup.Cache
	logger  *slog.Logger
	sleep   func(context.Context, time.Duration) error

	mu    sync.Mutex
	stats Stats
}

// Option customizes the analyzer, mainly for tests.
type Option func(*Analyzer)

// WithLimiter substitutes the rate limiter.
func WithLimiter(limiter *ratelimit.Limiter) Option {
	return func(a *Analyzer) {
		if limiter != nil {
			a.limiter = limiter
		}
	}
}

// WithTracker substitutes the budget tracker.
func WithTracker(tracker *budget.Tracker) Option {
	return func(a *Analyzer) {
		if tracker != nil {
			a.tracker = tracker
		}
	}
}

// WithSleeper overrides how pauses between batches and rate waits are
// performed.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(a *Analyzer) {
		if sleep != nil {
			a.sleep = sleep
		}
	}
}

// New constructs an analyzer backed by the supplied model client and store.
func New(cfg config.Analysis, client ai.Client, db *store.Store, logger *slog.Logger, opts ...Option) *Analyzer {
	if logger == nil {
		logger = logging.NewNop()
	}
	analyzer := &Analyzer{
		cfg:     cfg,
		client:  client,
		db:      db,
		limiter: ratelimit.New(cfg.PerMinuteLimit, cfg.PerDayLimit),
		tracker: budget.New(cfg.DailyCostCapUSD),
		cache:   dedup.NewCache(),
		logger:  logging.NewComponentLogger(logger, "analysis"),
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(analyzer)
	}
	return analyzer
}

// Analyze runs the enabled sub-analyses for one article and returns the
// enrichment produced. Sub-analyses that fail leave their field nil; the
// partial update is still worth persisting. A budget or rate limit stop
// surfaces as a skip so the caller can defer the article rather than treat
// it as broken.
func (a *Analyzer) Analyze(ctx context.Context, article *store.Article) (Result, error) {
	if !a.cfg.Enabled {
		return a.skip(SkipDisabled), nil
	}
	if a.client == nil {
		return a.skip(SkipNoClient), nil
	}
	text := a.articleText(article)
	if text == "" {
		return a.skip(SkipEmptyText), nil
	}
	if article.Enriched() {
		return a.skip(SkipAlreadyEnriched), nil
	}
	if a.cache.Contains(article.NewsID) {
		return a.skip(SkipCached), nil
	}
	if a.cfg.ImportantOnly && heuristicScore(text) < a.cfg.ImportanceThreshold {
		return a.skip(SkipUnimportant), nil
	}

	update := store.EnrichmentUpdate{}
	var failures []error

	run := func(enabled bool, prompt string, apply func(string)) bool {
		if !enabled {
			return true
		}
		raw, err := a.generate(ctx, prompt)
		if err != nil {
			if errors.Is(err, services.ErrBudgetExhausted) || errors.Is(err, services.ErrRateLimited) {
				failures = append(failures, err)
				return false
			}
			a.logger.Warn("sub-analysis failed",
				slog.String(logging.FieldArticleID, article.NewsID),
				logging.Error(err))
			failures = append(failures, err)
			return true
		}
		apply(raw)
		return true
	}

	proceed := run(a.cfg.Summary, summaryPrompt(text), func(raw string) {
		if summary := parseSummary(raw); summary != "" {
			update.Summary = &summary
		}
	})
	if proceed {
		proceed = run(a.cfg.Sentiment, sentimentPrompt(text), func(raw string) {
			sentiment := parseSentiment(raw)
			update.Sentiment = &sentiment
		})
	}
	if proceed {
		proceed = run(a.cfg.Keywords, keywordsPrompt(text), func(raw string) {
			if keywords := parseKeywords(raw); keywords != "" {
				update.Keywords = &keywords
			}
		})
	}
	if proceed {
		proceed = run(a.cfg.Importance, importancePrompt(text), func(raw string) {
			if score, ok := parseImportance(raw); ok {
				update.ImportanceScore = &score
			}
		})
	}
	if proceed && a.cfg.Translation && needsTranslation(article.Title, text) {
		run(true, translationPrompt(article.Title), func(raw string) {
			if translated := parseSummary(raw); translated != "" {
				update.TranslatedTitle = &translated
			}
		})
	}

	if !update.Empty() {
		a.cache.Add(article.NewsID)
		if a.db != nil {
			if err := a.db.UpdateEnrichment(ctx, article.NewsID, update); err != nil {
				a.recordFailure()
				return Result{Update: update}, services.Wrap(services.ErrTransient,
					"analysis", "persist", "store enrichment", err)
			}
		}
		a.recordAnalyzed()
		return Result{Update: update}, errors.Join(failures...)
	}
	if len(failures) > 0 {
		a.recordFailure()
		return Result{}, errors.Join(failures...)
	}
	return a.skip(SkipEmptyText), nil
}

// AnalyzeBatch enriches the supplied articles in configured batch sizes with
// a pause between batches. Articles inside a batch run concurrently; the
// limiter and tracker serialize the quota checks. It stops early when the
// budget is exhausted or the context ends, returning the stats for this
// invocation.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, articles []*store.Article) (Stats, error) {
	var batchStats Stats
	batchSize := a.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	pause := time.Duration(a.cfg.BatchPauseSeconds) * time.Second

	for start := 0; start < len(articles); start += batchSize {
		if err := ctx.Err(); err != nil {
			return batchStats, err
		}
		end := min(start+batchSize, len(articles))

		var wg sync.WaitGroup
		var batchMu sync.Mutex
		var stopErr error
		for _, article := range articles[start:end] {
			wg.Add(1)
			go func(article *store.Article) {
				defer wg.Done()
				result, err := a.Analyze(ctx, article)

				batchMu.Lock()
				defer batchMu.Unlock()
				switch {
				case err != nil && errors.Is(err, services.ErrBudgetExhausted):
					batchStats.Skipped++
					stopErr = err
				case err != nil && errors.Is(err, services.ErrRateLimited):
					batchStats.Skipped++
					stopErr = err
				case err != nil && result.Update.Empty():
					batchStats.Failed++
				case result.Skipped:
					batchStats.Skipped++
				default:
					batchStats.Analyzed++
				}
			}(article)
		}
		wg.Wait()

		if stopErr != nil {
			if errors.Is(stopErr, services.ErrBudgetExhausted) {
				a.logger.Warn("analysis stopped, daily budget exhausted",
					slog.Float64("spent_usd", a.tracker.Spent()))
			} else {
				a.logger.Warn("analysis stopped, rate limit reached")
			}
			return batchStats, stopErr
		}
		if end < len(articles) && pause > 0 {
			if err := a.sleep(ctx, pause); err != nil {
				return batchStats, err
			}
		}
	}
	return batchStats, nil
}

// Stats returns a copy of the cumulative counters.
func (a *Analyzer) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	stats := a.stats
	stats.CostUSD = a.tracker.Spent()
	return stats
}

// generate issues one model call through the quota gates, retrying a
// retryable failure once against the fallback model.
func (a *Analyzer) generate(ctx context.Context, prompt string) (string, error) {
	models := []string{a.cfg.Model}
	if fallback := strings.TrimSpace(a.cfg.FallbackModel); fallback != "" && fallback != a.cfg.Model {
		models = append(models, fallback)
	}

	var lastErr error
	for _, model := range models {
		if err := a.waitForSlot(ctx); err != nil {
			return "", err
		}
		if a.tracker.Exhausted() {
			return "", services.Wrap(services.ErrBudgetExhausted, "analysis", "generate",
				fmt.Sprintf("daily cap of $%.2f spent", a.cfg.DailyCostCapUSD), nil)
		}
		cost := budget.Estimate(len(prompt), model)

		raw, err := a.client.Generate(ctx, model, prompt)
		a.limiter.Record()
		a.tracker.Add(cost)
		a.recordCall()
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !services.Retryable(err) {
			return "", err
		}
		a.logger.Debug("model call failed, trying fallback",
			slog.String(logging.FieldModel, model),
			logging.Error(err))
	}
	return "", lastErr
}

func (a *Analyzer) waitForSlot(ctx context.Context) error {
	for !a.limiter.CanProceed() {
		wait := a.limiter.WaitTime()
		if wait > maxRateWait {
			return services.Wrap(services.ErrRateLimited, "analysis", "generate",
				fmt.Sprintf("next slot in %s", wait.Round(time.Second)), nil)
		}
		if err := a.sleep(ctx, wait); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) articleText(article *store.Article) string {
	text := strings.TrimSpace(article.Title)
	if body := textutil.Clean(article.Body); body != "" {
		if text != "" {
			text += "\n\n"
		}
		text += body
	}
	maxLen := a.cfg.MaxTextLength
	if maxLen <= 0 {
		return text
	}
	return textutil.Truncate(text, maxLen)
}

// needsTranslation gates headline translation: a title already containing
// Japanese script needs none, and an article with fewer than three market
// terms is not worth the call.
func needsTranslation(title, text string) bool {
	if title == "" || textutil.ContainsJapanese(title) {
		return false
	}
	return topics.MarketKeywordCount(text) >= 3
}

// heuristicScore estimates article importance from keyword density without a
// model call, used by the important_only pre-filter.
func heuristicScore(text string) int {
	score := 2*len(topics.Extract(text)) + topics.MarketKeywordCount(text)
	if score > 10 {
		score = 10
	}
	return score
}

func (a *Analyzer) skip(reason SkipReason) Result {
	a.mu.Lock()
	a.stats.Skipped++
	a.mu.Unlock()
	return Result{Skipped: true, Reason: reason}
}

func (a *Analyzer) recordAnalyzed() {
	a.mu.Lock()
	a.stats.Analyzed++
	a.mu.Unlock()
}

func (a *Analyzer) recordFailure() {
	a.mu.Lock()
	a.stats.Failed++
	a.mu.Unlock()
}

func (a *Analyzer) recordCall() {
	a.mu.Lock()
	a.stats.Calls++
	a.mu.Unlock()
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
