package store

import "time"

// Sentiment labels assigned by the analyzer. Articles without a usable
// sentiment analysis stay empty.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// Article is a single news item as persisted. NewsID is the provider's
// identifier for collected articles and a generated "manual_" identifier for
// hand-entered ones.
type Article struct {
	NewsID          string
	Title           string
	Body            string
	PublishTime     time.Time
	AcquireTime     time.Time
	Source          string
	URL             string
	Summary         string
	Sentiment       string
	Keywords        string
	Topics          string
	ImportanceScore int
	HasImportance   bool
	TranslatedTitle string
	IsManual        bool
	Rating          int
	IsRead          bool
	ReadAt          time.Time
}

// Enriched reports whether the article already carries analyzer output.
func (a *Article) Enriched() bool {
	return a.Summary != "" || a.Sentiment != ""
}

// EnrichmentUpdate carries analyzer output for a single article. Nil fields
// are left untouched in the database.
type EnrichmentUpdate struct {
	Summary         *string
	Sentiment       *string
	Keywords        *string
	Topics          *string
	ImportanceScore *int
	TranslatedTitle *string
}

// Empty reports whether the update would change nothing.
func (u EnrichmentUpdate) Empty() bool {
	return u.Summary == nil && u.Sentiment == nil && u.Keywords == nil &&
		u.Topics == nil && u.ImportanceScore == nil && u.TranslatedTitle == nil
}

// Trigger identifies what started a collection run.
type Trigger string

const (
	TriggerBackground Trigger = "background"
	TriggerManual     Trigger = "manual"
)

// CollectionRun records the outcome of one ingestion pass.
type CollectionRun struct {
	ID               int64
	StartedAt        time.Time
	FinishedAt       time.Time
	Trigger          Trigger
	Mode             string
	Collected        int
	QueriesSucceeded int
	QueriesFailed    int
	APICalls         int
	ErrorCount       int
}

// Duration returns the elapsed wall time of the run.
func (r *CollectionRun) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunSummary aggregates collection runs over a reporting window.
type RunSummary struct {
	Runs             int
	Collected        int
	QueriesSucceeded int
	QueriesFailed    int
	APICalls         int
	ErrorCount       int
}

// SearchFilter narrows article listings. Zero values mean "no constraint".
type SearchFilter struct {
	Keyword    string
	Source     string
	Topic      string
	ManualOnly bool
	UnreadOnly bool
	MinRating  int
	Since      time.Time
	Limit      int
	Offset     int
}

// DuplicateGroup describes articles sharing a normalized title and source.
type DuplicateGroup struct {
	Title  string
	Source string
	Count  int
	IDs    []string
}
