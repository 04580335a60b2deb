// Package source defines the boundary to the news headline provider.
//
// The provider runs as a local terminal gateway: headline search and story
// retrieval only work while the operator's terminal session is alive, which
// is why availability checking and mode switching exist at all. The eikon
// subpackage implements this interface over HTTP; tests substitute fakes.
package source

import (
	"context"
	"time"
)

// Headline is one search result from the provider, before cleaning.
type Headline struct {
	ID        string
	Text      string
	Source    string
	Timestamp time.Time
	URL       string
}

// Client retrieves headlines and story bodies from the provider.
type Client interface {
	// Headlines runs one query over the given window, returning at most
	// limit results.
	Headlines(ctx context.Context, query string, limit int, since, until time.Time) ([]Headline, error)
	// StoryBody fetches the full story text for a headline identifier.
	StoryBody(ctx context.Context, id string) (string, error)
	// Ping verifies the gateway session is usable. Errors carry the
	// services sentinel markers the availability detector classifies on.
	Ping(ctx context.Context) error
}
