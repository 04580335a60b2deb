package ipc

import "time"

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse is the combined daemon status served to CLI callers.
type StatusResponse struct {
	Running         bool      `json:"running"`
	PID             int       `json:"pid"`
	StartedAt       time.Time `json:"started_at"`
	Mode            string    `json:"mode"`
	ModeSince       time.Time `json:"mode_since"`
	ModeReason      string    `json:"mode_reason"`
	SourceAvailable bool      `json:"source_available"`
	SourceMessage   string    `json:"source_message"`
	SourceCheckedAt time.Time `json:"source_checked_at"`
	DatabasePath    string    `json:"database_path"`
	LockPath        string    `json:"lock_path"`
	Articles        int       `json:"articles"`
	Runs24h         RunStats  `json:"runs_24h"`
	Analyzed        int       `json:"analyzed"`
	AnalysisSkipped int       `json:"analysis_skipped"`
	AnalysisFailed  int       `json:"analysis_failed"`
	ModelCalls      int       `json:"model_calls"`
	SpentUSD        float64   `json:"spent_usd"`
}

// CollectRequest triggers a manual collection pass.
type CollectRequest struct{}

// CollectResponse reports the outcome of a manual pass.
type CollectResponse struct {
	Run RunRecord `json:"run"`
}

// RunRecord mirrors a stored collection run.
type RunRecord struct {
	ID               int64     `json:"id"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
	Trigger          string    `json:"trigger"`
	Mode             string    `json:"mode"`
	Collected        int       `json:"collected"`
	QueriesSucceeded int       `json:"queries_succeeded"`
	QueriesFailed    int       `json:"queries_failed"`
	APICalls         int       `json:"api_calls"`
	ErrorCount       int       `json:"error_count"`
}

// RunsRequest lists recent collection runs.
type RunsRequest struct {
	Limit int `json:"limit"`
}

// RunsResponse contains recent collection runs.
type RunsResponse struct {
	Runs []RunRecord `json:"runs"`
}

// RunStatsRequest aggregates runs over a trailing window.
type RunStatsRequest struct {
	SinceHours int `json:"since_hours"`
}

// RunStats aggregates collection run counters.
type RunStats struct {
	Runs             int `json:"runs"`
	Collected        int `json:"collected"`
	QueriesSucceeded int `json:"queries_succeeded"`
	QueriesFailed    int `json:"queries_failed"`
	APICalls         int `json:"api_calls"`
	ErrorCount       int `json:"error_count"`
}

// RunStatsResponse reports aggregated run counters.
type RunStatsResponse struct {
	Stats RunStats `json:"stats"`
}

// SourceRecheckRequest forces a fresh gateway probe.
type SourceRecheckRequest struct{}

// SourceRecheckResponse reports the probe outcome.
type SourceRecheckResponse struct {
	Available bool      `json:"available"`
	Message   string    `json:"message"`
	CheckedAt time.Time `json:"checked_at"`
}

// ArticlesRequest lists the most recent articles.
type ArticlesRequest struct {
	Limit int `json:"limit"`
}

// ArticleRecord is the article DTO served over IPC.
type ArticleRecord struct {
	NewsID          string    `json:"news_id"`
	Title           string    `json:"title"`
	Source          string    `json:"source"`
	PublishTime     time.Time `json:"publish_time"`
	Summary         string    `json:"summary"`
	Sentiment       string    `json:"sentiment"`
	Topics          string    `json:"topics"`
	ImportanceScore int       `json:"importance_score"`
	HasImportance   bool      `json:"has_importance"`
	Rating          int       `json:"rating"`
	IsRead          bool      `json:"is_read"`
	IsManual        bool      `json:"is_manual"`
}

// ArticlesResponse contains recent articles.
type ArticlesResponse struct {
	Articles []ArticleRecord `json:"articles"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
