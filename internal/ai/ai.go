// Package ai defines the text generation interface consumed by the
// enrichment pipeline. Implementations wrap a hosted model API; the
// pipeline stays agnostic of the provider so tests can substitute a
// scripted fake.
package ai

import "context"

// Client produces a completion for a prompt using the named model.
// The model is supplied per call so a caller can retry a failed
// request against a cheaper fallback model.
type Client interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}
