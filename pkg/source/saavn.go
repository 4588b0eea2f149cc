package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	// SaavnID is the adapter identifier for the JioSaavn catalog backend.
	SaavnID = "jiosaavn"
	// DefaultSaavnBaseURL is the default JioSaavn proxy API base.
	DefaultSaavnBaseURL = "https://saavn.dev/api"
	// DefaultSaavnTrendingURL is the default JioSaavn trending endpoint.
	DefaultSaavnTrendingURL = "https://www.jiosaavn.com/api.php?__call=content.getTrending" +
		"&api_version=4&_format=json&ctx=web6dot0&_marker=0&cc=in"
	// saavnSearchLimit is the page size for search requests, tuned for latency.
	saavnSearchLimit = 3
	// saavnMaxAttempts is how many times a search is re-issued before giving up.
	saavnMaxAttempts = 2
	// saavnRetryBackoff is the fixed delay between attempts.
	saavnRetryBackoff = 500 * time.Millisecond
	// saavnCandidateResults is how many search hits are inspected per attempt.
	saavnCandidateResults = 2
)

// saavnQualityOrder is the static tier preference for download links, highest
// bitrate first. Backends list tiers in ascending order, so the last listed
// entry doubles as the fallback when no preferred tier is present.
var saavnQualityOrder = []string{"320kbps", "160kbps", "96kbps"}

type saavnDownloadLink struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

type saavnImageLink struct {
	URL string `json:"url"`
}

type saavnSong struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Duration interface{} `json:"duration"`
	Artists  struct {
		Primary []struct {
			Name string `json:"name"`
		} `json:"primary"`
	} `json:"artists"`
	Image       []saavnImageLink    `json:"image"`
	DownloadURL []saavnDownloadLink `json:"downloadUrl"`
}

type saavnSearchResponse struct {
	Data struct {
		Results []saavnSong `json:"results"`
	} `json:"data"`
}

type saavnDetailsResponse struct {
	Data []saavnSong `json:"data"`
}

type saavnTrendingResponse struct {
	List []struct {
		ID       string `json:"id"`
		Title    string `json:"title"`
		Type     string `json:"type"`
		Image    string `json:"image"`
		MoreInfo struct {
			ArtistMap struct {
				PrimaryArtists []struct {
					Name string `json:"name"`
				} `json:"primary_artists"`
			} `json:"artistMap"`
		} `json:"more_info"`
	} `json:"list"`
}

// SaavnAdapter resolves queries against the JioSaavn catalog. It is the
// primary source because it serves direct 320kbps download links.
type SaavnAdapter struct {
	baseURL     string
	trendingURL string
	client      *http.Client
	limiter     *rate.Limiter
}

// NewSaavnAdapter creates a JioSaavn adapter. Empty URLs select the defaults.
func NewSaavnAdapter(baseURL, trendingURL string) *SaavnAdapter {
	if baseURL == "" {
		baseURL = DefaultSaavnBaseURL
	}
	if trendingURL == "" {
		trendingURL = DefaultSaavnTrendingURL
	}
	return &SaavnAdapter{
		baseURL:     baseURL,
		trendingURL: trendingURL,
		client:      newHTTPClient(defaultHTTPTimeout),
		limiter:     rate.NewLimiter(rate.Limit(8), 16),
	}
}

// ID returns the adapter identifier.
func (a *SaavnAdapter) ID() string {
	return SaavnID
}

// Resolve searches JioSaavn and returns the best-quality track found.
// The full search is re-issued on each attempt; there is no idempotency key.
func (a *SaavnAdapter) Resolve(ctx context.Context, query string) (*Track, error) {
	var lastErr error

	for attempt := 0; attempt < saavnMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(saavnRetryBackoff):
			}
		}

		songs, err := a.search(ctx, query)
		if err != nil {
			lastErr = err
			continue
		}
		if len(songs) == 0 {
			continue
		}

		// Prefer a direct download link straight from the search response.
		candidates := songs
		if len(candidates) > saavnCandidateResults {
			candidates = candidates[:saavnCandidateResults]
		}
		for i := range candidates {
			if track := a.buildTrack(&candidates[i]); track != nil {
				return track, nil
			}
		}

		// No direct link: the details endpoint carries the full link set.
		track, err := a.details(ctx, songs[0].ID)
		if err != nil {
			lastErr = err
			continue
		}
		if track != nil {
			return track, nil
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("jiosaavn resolve failed: %w", lastErr)
	}
	return nil, ErrNoMatch
}

// Trending returns up to limit songs from the JioSaavn trending feed.
func (a *SaavnAdapter) Trending(ctx context.Context, limit int) ([]TrendingItem, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var resp saavnTrendingResponse
	if err := fetchJSON(ctx, a.client, a.trendingURL, &resp); err != nil {
		return nil, fmt.Errorf("jiosaavn trending failed: %w", err)
	}

	items := make([]TrendingItem, 0, limit)
	for _, entry := range resp.List {
		if entry.Type != "song" {
			continue
		}
		artist := ""
		if len(entry.MoreInfo.ArtistMap.PrimaryArtists) > 0 {
			artist = entry.MoreInfo.ArtistMap.PrimaryArtists[0].Name
		}
		items = append(items, TrendingItem{
			ID:     entry.ID,
			Title:  entry.Title,
			Artist: artist,
			Image:  entry.Image,
		})
		if len(items) >= limit {
			break
		}
	}
	return items, nil
}

func (a *SaavnAdapter) search(ctx context.Context, query string) ([]saavnSong, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/search/songs?query=%s&page=1&limit=%d",
		a.baseURL, url.QueryEscape(query), saavnSearchLimit)

	var resp saavnSearchResponse
	if err := fetchJSON(ctx, a.client, reqURL, &resp); err != nil {
		return nil, err
	}
	return resp.Data.Results, nil
}

func (a *SaavnAdapter) details(ctx context.Context, songID string) (*Track, error) {
	if songID == "" {
		return nil, nil
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/songs/%s", a.baseURL, url.PathEscape(songID))

	var resp saavnDetailsResponse
	if err := fetchJSON(ctx, a.client, reqURL, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	return a.buildTrack(&resp.Data[0]), nil
}

// buildTrack normalizes a backend song into a Track, or nil when the song
// carries no usable download link.
func (a *SaavnAdapter) buildTrack(song *saavnSong) *Track {
	link, quality := bestDownloadLink(song.DownloadURL)
	if link == "" {
		return nil
	}

	artist := ""
	if len(song.Artists.Primary) > 0 {
		artist = song.Artists.Primary[0].Name
	}

	return &Track{
		Title:     song.Name,
		Artist:    artist,
		Duration:  parseDurationSeconds(song.Duration),
		OriginURL: link,
		Quality:   quality,
		Source:    SaavnID,
	}
}

// bestDownloadLink picks a download link by the static quality preference,
// falling back to the last listed entry when no preferred tier is present.
func bestDownloadLink(links []saavnDownloadLink) (linkURL, quality string) {
	for _, preferred := range saavnQualityOrder {
		for _, link := range links {
			if link.Quality == preferred && link.URL != "" {
				return link.URL, link.Quality
			}
		}
	}
	for i := len(links) - 1; i >= 0; i-- {
		if links[i].URL != "" {
			return links[i].URL, links[i].Quality
		}
	}
	return "", ""
}
