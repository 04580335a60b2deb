// Package textutil provides text processing utilities for cleaning provider
// payloads and normalizing titles.
//
// The primary use cases are:
//   - Stripping markup, control characters, and whitespace runs from
//     headline and story text before analysis
//   - Case-folded title normalization for duplicate comparison
//   - Rune-safe truncation for prompt length budgets
package textutil
