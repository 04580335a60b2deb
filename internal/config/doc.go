// Package config loads, normalizes, and validates newswatch configuration
// data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// EIKON_APP_KEY and GEMINI_API_KEY. The Config type centralizes every knob
// the daemon and CLI need: source queries and lookback windows, analysis
// models and budgets, scheduler intervals, and notification settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
