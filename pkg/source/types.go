// Package source provides music discovery adapters that wrap external
// backends behind a uniform resolve/trending capability.
package source

import (
	"context"
	"errors"
)

// Quality tiers reported in client responses.
const (
	TierLow    = "low"
	TierMedium = "medium"
	TierHigh   = "high"
)

// ErrNoMatch is returned when an adapter cannot produce a track for a query.
// Transport and parse failures are folded into this error at the adapter
// boundary; callers never see partial backend payloads.
var ErrNoMatch = errors.New("no match found")

// Track holds a fully normalized resolution result from one backend.
type Track struct {
	Title    string // Track title.
	Artist   string // Primary artist name.
	Duration int    // Duration in seconds, 0 when unknown.
	// OriginURL is the backend-issued stream location. It is never exposed
	// to callers directly, only behind a proxy token.
	OriginURL string
	Quality   string // Bitrate class as reported, e.g. "320kbps".
	Source    string // Adapter ID that produced this track.
}

// Tier maps the reported bitrate class onto a coarse quality tier.
func (t *Track) Tier() string {
	switch t.Quality {
	case "320kbps":
		return TierHigh
	case "160kbps":
		return TierMedium
	default:
		return TierLow
	}
}

// TrendingItem is a single entry from an adapter's trending feed.
type TrendingItem struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Image  string `json:"image"`
}

// Adapter defines the uniform capability every backend wrapper exposes.
// Each adapter owns its own timeouts and retry policy.
type Adapter interface {
	// ID returns the stable adapter identifier used in responses.
	ID() string

	// Resolve searches the backend for a query and returns one normalized
	// track, or ErrNoMatch when the backend has nothing playable.
	Resolve(ctx context.Context, query string) (*Track, error)

	// Trending returns up to limit entries from the backend's trending feed.
	Trending(ctx context.Context, limit int) ([]TrendingItem, error)
}
