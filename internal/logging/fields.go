package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType labels the kind of event a log line describes.
	FieldEventType = "event_type"
	// FieldErrorHint carries an actionable next step alongside error logs.
	FieldErrorHint = "error_hint"
	// FieldArticleID is the standardized structured logging key for article identifiers.
	FieldArticleID = "article_id"
	// FieldQuery is the standardized structured logging key for source query strings.
	FieldQuery = "query"
	// FieldSource is the standardized structured logging key for article source names.
	FieldSource = "source"
	// FieldMode is the standardized structured logging key for the scheduler operating mode.
	FieldMode = "mode"
	// FieldRunID is the standardized structured logging key for collection run identifiers.
	FieldRunID = "run_id"
	// FieldModel is the standardized structured logging key for AI model names.
	FieldModel = "model"
	// FieldAlert flags warnings or anomalies that should stand out in structured logs.
	FieldAlert = "alert"
)
