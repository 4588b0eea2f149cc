package proxy

import (
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	// relayChunkSize is the copy buffer size for origin-to-caller streaming.
	relayChunkSize = 8 * 1024
	// originHeaderTimeout bounds how long the origin may take to start
	// responding. The body copy itself is bounded by the caller's context.
	originHeaderTimeout = 10 * time.Second

	relayUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	relayAccept    = "audio/webm,audio/ogg,audio/wav,audio/*;q=0.9,application/ogg;q=0.7," +
		"video/*;q=0.6,*/*;q=0.5"
)

// Relay streams audio bytes from a token's origin to the caller, passing
// byte-range semantics through in both directions.
type Relay struct {
	store  *TokenStore
	client *http.Client
	logger *zap.Logger
}

func NewRelay(store *TokenStore, logger *zap.Logger) *Relay {
	return &Relay{
		store: store,
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: originHeaderTimeout,
			},
		},
		logger: logger,
	}
}

// Stream relays the stream behind token to the caller. Expired or unknown
// tokens get a terminal 404. The origin fetch uses the caller's request
// context, so a dropped caller connection stops the copy loop promptly.
func (r *Relay) Stream(w http.ResponseWriter, req *http.Request, token string) {
	originURL, ok := r.store.Resolve(token)
	if !ok {
		http.Error(w, "Stream not found or expired", http.StatusNotFound)
		return
	}

	// The server-wide write timeout would sever a relay read at playback
	// rate, so streams get an unbounded write deadline. The copy loop is
	// still bounded by the caller's context.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		r.logger.Debug("Write deadline not adjustable", zap.Error(err))
	}

	originReq, err := http.NewRequestWithContext(req.Context(), http.MethodGet, originURL, http.NoBody)
	if err != nil {
		r.logger.Error("Failed to build origin request", zap.Error(err))
		http.Error(w, "Error streaming audio", http.StatusInternalServerError)
		return
	}

	originReq.Header.Set("User-Agent", relayUserAgent)
	originReq.Header.Set("Accept", relayAccept)
	originReq.Header.Set("Accept-Encoding", "identity")
	if rangeHeader := req.Header.Get("Range"); rangeHeader != "" {
		originReq.Header.Set("Range", rangeHeader)
	}

	resp, err := r.client.Do(originReq)
	if err != nil {
		r.logger.Warn("Origin fetch failed", zap.Error(err))
		http.Error(w, "Error streaming audio", http.StatusInternalServerError)
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		r.logger.Warn("Origin returned unexpected status",
			zap.Int("status", resp.StatusCode))
		http.Error(w, "Failed to fetch audio", http.StatusInternalServerError)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	w.Header().Set("Content-Type", contentType)
	if length := resp.Header.Get("Content-Length"); length != "" {
		w.Header().Set("Content-Length", length)
	}
	if contentRange := resp.Header.Get("Content-Range"); contentRange != "" {
		w.Header().Set("Content-Range", contentRange)
	}
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Range")
	w.WriteHeader(resp.StatusCode)

	buf := make([]byte, relayChunkSize)
	if _, err := io.CopyBuffer(w, resp.Body, buf); err != nil {
		// Caller disconnects mid-stream are routine; the context cancel
		// already stopped the origin fetch.
		r.logger.Debug("Relay copy ended early", zap.Error(err))
	}
}
