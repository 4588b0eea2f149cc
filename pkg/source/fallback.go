package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	// GenericID is the adapter identifier for the last-resort backend.
	GenericID = "generic"
	// genericTimeout is the per-request timeout for the fallback backend.
	genericTimeout = 6 * time.Second
)

// GenericAdapter is the last-resort backend wrapper. Fallback services come
// and go and disagree on response shapes, so it tries several envelope
// layouts before giving up.
type GenericAdapter struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewGenericAdapter creates a fallback adapter for the given search endpoint.
// The endpoint receives the query as a "query" parameter.
func NewGenericAdapter(baseURL string) *GenericAdapter {
	return &GenericAdapter{
		baseURL: baseURL,
		client:  newHTTPClient(genericTimeout),
		limiter: rate.NewLimiter(rate.Limit(4), 8),
	}
}

// ID returns the adapter identifier.
func (a *GenericAdapter) ID() string {
	return GenericID
}

// Resolve queries the fallback backend and returns its first usable result.
func (a *GenericAdapter) Resolve(ctx context.Context, query string) (*Track, error) {
	if a.baseURL == "" {
		return nil, ErrNoMatch
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s?query=%s", a.baseURL, url.QueryEscape(query))

	var payload json.RawMessage
	if err := fetchJSON(ctx, a.client, reqURL, &payload); err != nil {
		return nil, fmt.Errorf("generic search failed: %w", err)
	}

	entries := extractEntries(payload)
	for _, entry := range entries {
		if track := genericTrack(entry); track != nil {
			return track, nil
		}
	}
	return nil, ErrNoMatch
}

// Trending is not supported by the fallback backend.
func (a *GenericAdapter) Trending(_ context.Context, _ int) ([]TrendingItem, error) {
	return nil, fmt.Errorf("generic: %w", ErrNoMatch)
}

// extractEntries digs result objects out of the known envelope shapes:
// data.results, results, songs, or a bare array.
func extractEntries(payload json.RawMessage) []map[string]interface{} {
	var bare []map[string]interface{}
	if err := json.Unmarshal(payload, &bare); err == nil {
		return bare
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil
	}

	if data, ok := envelope["data"]; ok {
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(data, &inner); err == nil {
			if results, ok := inner["results"]; ok {
				if entries := decodeEntryList(results); entries != nil {
					return entries
				}
			}
		}
	}
	for _, key := range []string{"results", "songs"} {
		if raw, ok := envelope[key]; ok {
			if entries := decodeEntryList(raw); entries != nil {
				return entries
			}
		}
	}
	return nil
}

func decodeEntryList(raw json.RawMessage) []map[string]interface{} {
	var entries []map[string]interface{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	return entries
}

// genericTrack normalizes a loosely shaped result object, tolerating the
// field aliases fallback backends use.
func genericTrack(entry map[string]interface{}) *Track {
	streamURL := firstString(entry, "stream_url", "download_url", "url")
	if streamURL == "" {
		return nil
	}

	title := firstString(entry, "title", "name")
	if title == "" {
		return nil
	}

	quality := firstString(entry, "quality")
	if quality == "" {
		quality = "96kbps"
	}

	return &Track{
		Title:     title,
		Artist:    firstString(entry, "artist", "subtitle", "singer"),
		Duration:  parseDurationSeconds(entry["duration"]),
		OriginURL: streamURL,
		Quality:   quality,
		Source:    GenericID,
	}
}

func firstString(entry map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if value, ok := entry[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}
