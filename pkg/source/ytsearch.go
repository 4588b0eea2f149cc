package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// YouTubeID is the adapter identifier for the YouTube title-search backend.
	YouTubeID = "youtube"
	// DefaultYouTubeBaseURL is the default YouTube search endpoint.
	DefaultYouTubeBaseURL = "https://www.youtube.com"
	// youtubeTimeout is the per-request timeout for YouTube searches.
	youtubeTimeout = 8 * time.Second
	// youtubeQuality is the nominal quality tier for YouTube-sourced streams.
	youtubeQuality = "256kbps"
)

// cleaningPatterns strips decoration tokens from video titles so they work as
// catalog search queries. Order matters: parenthesized qualifiers go first,
// then pipe tails, label mentions and featuring credits.
var cleaningPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\(Official[^)]*\)`),
	regexp.MustCompile(`(?i)\[Official[^\]]*\]`),
	regexp.MustCompile(`(?i)\(Music Video\)`),
	regexp.MustCompile(`(?i)\[Music Video\]`),
	regexp.MustCompile(`(?i)\(Audio\)`),
	regexp.MustCompile(`(?i)\[Audio\]`),
	regexp.MustCompile(`(?i)\(HD\)`),
	regexp.MustCompile(`(?i)\[HD\]`),
	regexp.MustCompile(`(?i)\(4K\)`),
	regexp.MustCompile(`(?i)\[4K\]`),
	regexp.MustCompile(`(?i)\(Lyrics\)`),
	regexp.MustCompile(`(?i)\[Lyrics\]`),
	regexp.MustCompile(`(?i)\(Full Song\)`),
	regexp.MustCompile(`(?i)\[Full Song\]`),
	regexp.MustCompile(`(?i)\(Full Video\)`),
	regexp.MustCompile(`(?i)\[Full Video\]`),
	regexp.MustCompile(`\|.*`),
	regexp.MustCompile(`(?i)-.*Record.*`),
	regexp.MustCompile(`(?i)-.*Music.*`),
	regexp.MustCompile(`(?i)ft\..*`),
	regexp.MustCompile(`(?i)feat\..*`),
	regexp.MustCompile(`(?i)featuring.*`),
}

var whitespaceRun = regexp.MustCompile(`\s+`)

var (
	videoRendererMarker = `"videoRenderer":`
	videoIDRegex        = regexp.MustCompile(`"videoId":"([A-Za-z0-9_-]{11})"`)
	titleRunRegex       = regexp.MustCompile(`"title":\{"runs":\[\{"text":("(?:[^"\\]|\\.)*")`)
	ownerRunRegex       = regexp.MustCompile(`"ownerText":\{"runs":\[\{"text":("(?:[^"\\]|\\.)*")`)
	// Duration-shaped simpleText values only appear in lengthText entries.
	lengthTextRegex = regexp.MustCompile(`"simpleText":"(\d+:\d{2}(?::\d{2})?)"`)
)

// YTSearchAdapter resolves queries against YouTube's result page. Its real
// value is search accuracy: a lyric fragment reliably finds the right video,
// and the cleaned video title then works as a catalog query.
type YTSearchAdapter struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewYTSearchAdapter creates a YouTube title-search adapter. An empty base
// URL selects the default.
func NewYTSearchAdapter(baseURL string) *YTSearchAdapter {
	if baseURL == "" {
		baseURL = DefaultYouTubeBaseURL
	}
	return &YTSearchAdapter{
		baseURL: baseURL,
		client:  newHTTPClient(youtubeTimeout),
		limiter: rate.NewLimiter(rate.Limit(4), 8),
	}
}

// ID returns the adapter identifier.
func (a *YTSearchAdapter) ID() string {
	return YouTubeID
}

// Resolve searches YouTube for the top match and returns it as a track whose
// origin is the watch URL and whose title has been cleaned for display.
func (a *YTSearchAdapter) Resolve(ctx context.Context, query string) (*Track, error) {
	hit, err := a.topResult(ctx, query)
	if err != nil {
		return nil, err
	}

	return &Track{
		Title:     CleanTitle(hit.title),
		Artist:    hit.channel,
		Duration:  parseDurationSeconds(hit.duration),
		OriginURL: fmt.Sprintf("%s/watch?v=%s", a.baseURL, hit.videoID),
		Quality:   youtubeQuality,
		Source:    YouTubeID,
	}, nil
}

// SearchTitle returns the cleaned title of the top search result. This is the
// refinement step of the hybrid path: the cleaned title becomes the query for
// the catalog backend.
func (a *YTSearchAdapter) SearchTitle(ctx context.Context, query string) (string, error) {
	hit, err := a.topResult(ctx, query)
	if err != nil {
		return "", err
	}
	cleaned := CleanTitle(hit.title)
	if cleaned == "" {
		return "", ErrNoMatch
	}
	return cleaned, nil
}

// Trending is not supported by the search-page backend.
func (a *YTSearchAdapter) Trending(_ context.Context, _ int) ([]TrendingItem, error) {
	return nil, fmt.Errorf("youtube: %w", ErrNoMatch)
}

type ytHit struct {
	videoID  string
	title    string
	channel  string
	duration string
}

// topResult scrapes the first videoRenderer entry from the results page.
func (a *YTSearchAdapter) topResult(ctx context.Context, query string) (*ytHit, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/results?search_query=%s", a.baseURL, url.QueryEscape(query))
	body, err := fetchBody(ctx, a.client, reqURL)
	if err != nil {
		return nil, fmt.Errorf("youtube search failed: %w", err)
	}

	idx := strings.Index(body, videoRendererMarker)
	if idx < 0 {
		return nil, ErrNoMatch
	}
	chunk := body[idx:]

	idMatch := videoIDRegex.FindStringSubmatch(chunk)
	titleMatch := titleRunRegex.FindStringSubmatch(chunk)
	if idMatch == nil || titleMatch == nil {
		return nil, ErrNoMatch
	}

	hit := &ytHit{videoID: idMatch[1]}
	if err := json.Unmarshal([]byte(titleMatch[1]), &hit.title); err != nil {
		return nil, ErrNoMatch
	}
	if ownerMatch := ownerRunRegex.FindStringSubmatch(chunk); ownerMatch != nil {
		_ = json.Unmarshal([]byte(ownerMatch[1]), &hit.channel)
	}
	if lengthMatch := lengthTextRegex.FindStringSubmatch(chunk); lengthMatch != nil {
		hit.duration = lengthMatch[1]
	}
	return hit, nil
}

// CleanTitle strips video decoration from a title so it can be used as a
// music catalog query. Cleaning an already-clean title returns it unchanged.
func CleanTitle(title string) string {
	cleaned := title
	for _, pattern := range cleaningPatterns {
		cleaned = pattern.ReplaceAllString(cleaned, "")
	}
	cleaned = whitespaceRun.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.Trim(cleaned, " -–—|")
	return cleaned
}
