package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Upsert inserts an article or refreshes its collected fields. Enrichment
// columns already present in the database survive re-collection: the incoming
// value only wins when it is non-null.
func (s *Store) Upsert(ctx context.Context, article *Article) error {
	if article == nil {
		return errors.New("article is nil")
	}
	if strings.TrimSpace(article.NewsID) == "" {
		return errors.New("article news id is empty")
	}
	if article.AcquireTime.IsZero() {
		article.AcquireTime = time.Now().UTC()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO articles (
            news_id, title, body, publish_time, acquire_time, source, url,
            summary, sentiment, keywords, topics, importance_score,
            translated_title, is_manual, rating, is_read, read_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(news_id) DO UPDATE SET
            title = excluded.title,
            body = COALESCE(excluded.body, articles.body),
            publish_time = COALESCE(excluded.publish_time, articles.publish_time),
            source = COALESCE(excluded.source, articles.source),
            url = COALESCE(excluded.url, articles.url),
            summary = COALESCE(excluded.summary, articles.summary),
            sentiment = COALESCE(excluded.sentiment, articles.sentiment),
            keywords = COALESCE(excluded.keywords, articles.keywords),
            topics = COALESCE(excluded.topics, articles.topics),
            importance_score = COALESCE(excluded.importance_score, articles.importance_score),
            translated_title = COALESCE(excluded.translated_title, articles.translated_title)`,
		article.NewsID,
		article.Title,
		nullableString(article.Body),
		nullableTime(article.PublishTime),
		article.AcquireTime.UTC().Format(time.RFC3339Nano),
		nullableString(article.Source),
		nullableString(article.URL),
		nullableString(article.Summary),
		nullableString(article.Sentiment),
		nullableString(article.Keywords),
		nullableString(article.Topics),
		nullableInt(article.ImportanceScore, article.HasImportance),
		nullableString(article.TranslatedTitle),
		boolToInt(article.IsManual),
		nullableInt(article.Rating, article.Rating > 0),
		boolToInt(article.IsRead),
		nullableTime(article.ReadAt),
	)
	if err != nil {
		return fmt.Errorf("upsert article: %w", err)
	}
	return nil
}

// UpsertBatch persists a set of articles in one transaction and returns how
// many rows were written.
func (s *Store) UpsertBatch(ctx context.Context, articles []*Article) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	written := 0
	for _, article := range articles {
		if article == nil || strings.TrimSpace(article.NewsID) == "" {
			continue
		}
		if article.AcquireTime.IsZero() {
			article.AcquireTime = time.Now().UTC()
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO articles (
                news_id, title, body, publish_time, acquire_time, source, url,
                summary, sentiment, keywords, topics, importance_score,
                translated_title, is_manual, rating, is_read, read_at
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(news_id) DO UPDATE SET
                title = excluded.title,
                body = COALESCE(excluded.body, articles.body),
                publish_time = COALESCE(excluded.publish_time, articles.publish_time),
                source = COALESCE(excluded.source, articles.source),
                url = COALESCE(excluded.url, articles.url)`,
			article.NewsID,
			article.Title,
			nullableString(article.Body),
			nullableTime(article.PublishTime),
			article.AcquireTime.UTC().Format(time.RFC3339Nano),
			nullableString(article.Source),
			nullableString(article.URL),
			nullableString(article.Summary),
			nullableString(article.Sentiment),
			nullableString(article.Keywords),
			nullableString(article.Topics),
			nullableInt(article.ImportanceScore, article.HasImportance),
			nullableString(article.TranslatedTitle),
			boolToInt(article.IsManual),
			nullableInt(article.Rating, article.Rating > 0),
			boolToInt(article.IsRead),
			nullableTime(article.ReadAt),
		); err != nil {
			return 0, fmt.Errorf("upsert article %s: %w", article.NewsID, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert tx: %w", err)
	}
	return written, nil
}

// GetByID fetches an article by its identifier.
func (s *Store) GetByID(ctx context.Context, newsID string) (*Article, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE news_id = ?`, newsID)
	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get article: %w", err)
	}
	return article, nil
}

// ExistingIDs returns identifiers of articles acquired within the lookback
// window. The collector seeds its dedup cache from this set.
func (s *Store) ExistingIDs(ctx context.Context, lookback time.Duration) ([]string, error) {
	cutoff := time.Now().UTC().Add(-lookback).Format(time.RFC3339Nano)
	rows, err := s.db.QueryContext(ctx, `SELECT news_id FROM articles WHERE acquire_time >= ?`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query existing ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateEnrichment sets only the analyzer fields present in the update.
func (s *Store) UpdateEnrichment(ctx context.Context, newsID string, update EnrichmentUpdate) error {
	if update.Empty() {
		return nil
	}

	setClauses := make([]string, 0, 6)
	args := make([]any, 0, 7)
	if update.Summary != nil {
		setClauses = append(setClauses, "summary = ?")
		args = append(args, *update.Summary)
	}
	if update.Sentiment != nil {
		setClauses = append(setClauses, "sentiment = ?")
		args = append(args, *update.Sentiment)
	}
	if update.Keywords != nil {
		setClauses = append(setClauses, "keywords = ?")
		args = append(args, *update.Keywords)
	}
	if update.Topics != nil {
		setClauses = append(setClauses, "topics = ?")
		args = append(args, *update.Topics)
	}
	if update.ImportanceScore != nil {
		setClauses = append(setClauses, "importance_score = ?")
		args = append(args, *update.ImportanceScore)
	}
	if update.TranslatedTitle != nil {
		setClauses = append(setClauses, "translated_title = ?")
		args = append(args, *update.TranslatedTitle)
	}
	args = append(args, newsID)

	query := `UPDATE articles SET ` + strings.Join(setClauses, ", ") + ` WHERE news_id = ?`
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update enrichment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("update enrichment: article %s not found", newsID)
	}
	return nil
}

// Unenriched returns articles acquired within the lookback window that carry
// no analyzer output yet, oldest first.
func (s *Store) Unenriched(ctx context.Context, lookback time.Duration, limit int) ([]*Article, error) {
	cutoff := time.Now().UTC().Add(-lookback).Format(time.RFC3339Nano)
	query := `SELECT ` + articleColumns + ` FROM articles
        WHERE acquire_time >= ? AND summary IS NULL AND sentiment IS NULL
        ORDER BY acquire_time`
	args := []any{cutoff}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query unenriched: %w", err)
	}
	defer rows.Close()
	return collectArticles(rows)
}

// NewSince returns articles acquired after the given instant, newest first.
// The passive watcher uses it to detect database changes made by other
// writers without touching the provider.
func (s *Store) NewSince(ctx context.Context, since time.Time) ([]*Article, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+articleColumns+` FROM articles WHERE acquire_time > ? ORDER BY acquire_time DESC`,
		since.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("query new since: %w", err)
	}
	defer rows.Close()
	return collectArticles(rows)
}

// Search returns articles matching the filter. Rated articles sort first,
// then newest publish time.
func (s *Store) Search(ctx context.Context, filter SearchFilter) ([]*Article, error) {
	where, args := buildFilter(filter)
	query := `SELECT ` + articleColumns + ` FROM articles` + where +
		` ORDER BY COALESCE(rating, 0) DESC, COALESCE(publish_time, acquire_time) DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search articles: %w", err)
	}
	defer rows.Close()
	return collectArticles(rows)
}

// Count returns the number of articles matching the filter.
func (s *Store) Count(ctx context.Context, filter SearchFilter) (int, error) {
	where, args := buildFilter(filter)
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM articles`+where, args...)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return count, nil
}

func buildFilter(filter SearchFilter) (string, []any) {
	var clauses []string
	var args []any
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		pattern := "%" + keyword + "%"
		clauses = append(clauses, `(title LIKE ? OR body LIKE ? OR summary LIKE ? OR keywords LIKE ?)`)
		args = append(args, pattern, pattern, pattern, pattern)
	}
	if source := strings.TrimSpace(filter.Source); source != "" {
		clauses = append(clauses, `LOWER(source) = LOWER(?)`)
		args = append(args, source)
	}
	if topic := strings.TrimSpace(filter.Topic); topic != "" {
		clauses = append(clauses, `topics LIKE ?`)
		args = append(args, "%"+topic+"%")
	}
	if filter.ManualOnly {
		clauses = append(clauses, `is_manual = 1`)
	}
	if filter.UnreadOnly {
		clauses = append(clauses, `is_read = 0`)
	}
	if filter.MinRating > 0 {
		clauses = append(clauses, `rating >= ?`)
		args = append(args, filter.MinRating)
	}
	if !filter.Since.IsZero() {
		clauses = append(clauses, `acquire_time >= ?`)
		args = append(args, filter.Since.UTC().Format(time.RFC3339Nano))
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func collectArticles(rows *sql.Rows) ([]*Article, error) {
	var articles []*Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

// SetRating assigns a 1-3 rating, or clears it when rating is zero.
func (s *Store) SetRating(ctx context.Context, newsID string, rating int) error {
	if rating < 0 || rating > 3 {
		return fmt.Errorf("rating %d out of range", rating)
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE articles SET rating = ? WHERE news_id = ?`,
		nullableInt(rating, rating > 0),
		newsID,
	)
	if err != nil {
		return fmt.Errorf("set rating: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("set rating: article %s not found", newsID)
	}
	return nil
}

// MarkRead flags an article as read with the current timestamp.
func (s *Store) MarkRead(ctx context.Context, newsID string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE articles SET is_read = 1, read_at = ? WHERE news_id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		newsID,
	)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// MarkUnread clears the read flag and timestamp.
func (s *Store) MarkUnread(ctx context.Context, newsID string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE articles SET is_read = 0, read_at = NULL WHERE news_id = ?`,
		newsID,
	)
	if err != nil {
		return fmt.Errorf("mark unread: %w", err)
	}
	return nil
}

// MarkAllRead flags every article matching the filter as read and returns the
// affected row count.
func (s *Store) MarkAllRead(ctx context.Context, filter SearchFilter) (int64, error) {
	where, args := buildFilter(filter)
	if where == "" {
		where = " WHERE is_read = 0"
	} else {
		where += " AND is_read = 0"
	}
	args = append([]any{time.Now().UTC().Format(time.RFC3339Nano)}, args...)
	res, err := s.db.ExecContext(ctx, `UPDATE articles SET is_read = 1, read_at = ?`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("mark all read: %w", err)
	}
	return res.RowsAffected()
}

// InsertManual stores a hand-entered article under a generated identifier.
func (s *Store) InsertManual(ctx context.Context, article *Article) (*Article, error) {
	if article == nil {
		return nil, errors.New("article is nil")
	}
	if strings.TrimSpace(article.Title) == "" {
		return nil, errors.New("manual article title is empty")
	}
	article.NewsID = "manual_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	article.IsManual = true
	if article.AcquireTime.IsZero() {
		article.AcquireTime = time.Now().UTC()
	}
	if article.PublishTime.IsZero() {
		article.PublishTime = article.AcquireTime
	}
	if err := s.Upsert(ctx, article); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, article.NewsID)
}

// DeleteManual removes a hand-entered article. Collected articles are
// refused so provider data cannot be destroyed from the CLI.
func (s *Store) DeleteManual(ctx context.Context, newsID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE news_id = ? AND is_manual = 1`, newsID)
	if err != nil {
		return fmt.Errorf("delete manual article: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("delete manual article: %s not found or not manual", newsID)
	}
	return nil
}

// Sources returns the distinct source names present in the database.
func (s *Store) Sources(ctx context.Context) ([]string, error) {
	return s.distinctValues(ctx, `SELECT DISTINCT source FROM articles WHERE source IS NOT NULL AND source != '' ORDER BY source`)
}

// Topics returns the distinct comma-joined topic strings present in the
// database. Callers split and merge as needed.
func (s *Store) Topics(ctx context.Context) ([]string, error) {
	return s.distinctValues(ctx, `SELECT DISTINCT topics FROM articles WHERE topics IS NOT NULL AND topics != '' ORDER BY topics`)
}

func (s *Store) distinctValues(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("distinct values: %w", err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, rows.Err()
}
