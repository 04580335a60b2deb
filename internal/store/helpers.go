package store

import (
	"database/sql"
	"strings"
	"time"
)

const articleColumns = "news_id, title, body, publish_time, acquire_time, source, url, summary, sentiment, keywords, topics, importance_score, translated_title, is_manual, rating, is_read, read_at"

func scanArticle(scanner interface{ Scan(dest ...any) error }) (*Article, error) {
	var (
		newsID          string
		title           string
		body            sql.NullString
		publishRaw      sql.NullString
		acquireRaw      sql.NullString
		source          sql.NullString
		url             sql.NullString
		summary         sql.NullString
		sentiment       sql.NullString
		keywords        sql.NullString
		topics          sql.NullString
		importanceScore sql.NullInt64
		translatedTitle sql.NullString
		isManual        sql.NullInt64
		rating          sql.NullInt64
		isRead          sql.NullInt64
		readAtRaw       sql.NullString
	)

	if err := scanner.Scan(
		&newsID,
		&title,
		&body,
		&publishRaw,
		&acquireRaw,
		&source,
		&url,
		&summary,
		&sentiment,
		&keywords,
		&topics,
		&importanceScore,
		&translatedTitle,
		&isManual,
		&rating,
		&isRead,
		&readAtRaw,
	); err != nil {
		return nil, err
	}

	article := &Article{
		NewsID:          newsID,
		Title:           title,
		Body:            body.String,
		Source:          source.String,
		URL:             url.String,
		Summary:         summary.String,
		Sentiment:       sentiment.String,
		Keywords:        keywords.String,
		Topics:          topics.String,
		TranslatedTitle: translatedTitle.String,
		IsManual:        isManual.Int64 != 0,
		Rating:          int(rating.Int64),
		IsRead:          isRead.Int64 != 0,
	}
	if importanceScore.Valid {
		article.ImportanceScore = int(importanceScore.Int64)
		article.HasImportance = true
	}
	article.PublishTime = parseTimestamp(publishRaw)
	article.AcquireTime = parseTimestamp(acquireRaw)
	article.ReadAt = parseTimestamp(readAtRaw)
	return article, nil
}

func parseTimestamp(raw sql.NullString) time.Time {
	if !raw.Valid || strings.TrimSpace(raw.String) == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if ts, err := time.Parse(layout, raw.String); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func nullableInt(value int, valid bool) any {
	if !valid {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
