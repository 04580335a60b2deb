// Package store manages article and collection-run persistence backed by
// SQLite.
//
// It owns the schema (embedded migrations applied on open), upsert semantics
// that keep re-collected articles from clobbering existing enrichment, the
// dedup lookback queries the collector seeds its cache from, and the search,
// rating, and maintenance operations the CLI and IPC surface expose.
//
// All timestamps are stored as RFC 3339 strings in UTC.
package store
