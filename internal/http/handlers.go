package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Probotsvip/PowerfulAPI/internal/core"
	"github.com/Probotsvip/PowerfulAPI/internal/gate"
	"github.com/Probotsvip/PowerfulAPI/internal/proxy"
	"github.com/Probotsvip/PowerfulAPI/pkg/source"
)

const (
	defaultTrendingLimit = 10
	// statusHistoryLimit caps the request history shown on /api/status.
	statusHistoryLimit = 10
	// statusHistoryWindow is how far back the status history looks.
	statusHistoryWindow = 24 * time.Hour
)

// Stable machine-readable reason strings for error responses.
const (
	reasonMissingKey   = "missing_api_key"
	reasonMissingQuery = "missing_query"
	reasonNotFound     = "not_found"
	reasonInternal     = "internal"
)

// API implements the public JSON endpoints on top of the resolution pipeline
// and stream proxy.
type API struct {
	resolver      *core.Resolver
	gate          *gate.Gate
	tokens        *proxy.TokenStore
	relay         *proxy.Relay
	credentials   core.CredentialStore
	usage         core.UsageLog
	publicBaseURL string
	metrics       *Metrics
	logger        *zap.Logger
}

func NewAPI(
	resolver *core.Resolver,
	accessGate *gate.Gate,
	tokens *proxy.TokenStore,
	relay *proxy.Relay,
	credentials core.CredentialStore,
	usage core.UsageLog,
	publicBaseURL string,
	metrics *Metrics,
	logger *zap.Logger,
) *API {
	return &API{
		resolver:      resolver,
		gate:          accessGate,
		tokens:        tokens,
		relay:         relay,
		credentials:   credentials,
		usage:         usage,
		publicBaseURL: publicBaseURL,
		metrics:       metrics,
		logger:        logger,
	}
}

type errorResponse struct {
	Error          string `json:"error"`
	Reason         string `json:"reason"`
	ResponseTimeMS *int64 `json:"response_time_ms,omitempty"`
}

type streamResponse struct {
	Success        bool   `json:"success"`
	Title          string `json:"title"`
	Artist         string `json:"artist"`
	Duration       int    `json:"duration"`
	StreamURL      string `json:"stream_url,omitempty"`
	Source         string `json:"source"`
	Quality        string `json:"quality"`
	ResponseTimeMS int64  `json:"response_time_ms"`
}

// HandleStream resolves a query and returns a proxied stream reference.
func (a *API) HandleStream(w http.ResponseWriter, r *http.Request) {
	a.handleResolve(w, r, "/api/stream", true)
}

// HandleSearch resolves a query without issuing a stream token. Faster when
// the caller only wants metadata.
func (a *API) HandleSearch(w http.ResponseWriter, r *http.Request) {
	a.handleResolve(w, r, "/api/search", false)
}

func (a *API) handleResolve(w http.ResponseWriter, r *http.Request, endpoint string, issueToken bool) {
	start := time.Now()

	apiKey := r.URL.Query().Get("api_key")
	query := r.URL.Query().Get("query")
	sourceHint := r.URL.Query().Get("source")

	if apiKey == "" {
		a.writeError(w, endpoint, http.StatusBadRequest, reasonMissingKey, "API key is required", nil)
		return
	}
	if query == "" {
		a.writeError(w, endpoint, http.StatusBadRequest, reasonMissingQuery, "Query is required", nil)
		return
	}

	if !a.admit(w, r, endpoint, apiKey) {
		return
	}

	track, err := a.resolver.Resolve(r.Context(), query, sourceHint)
	elapsed := time.Since(start)
	a.metrics.ResolveDuration.Observe(elapsed.Seconds())

	if err != nil {
		if !errors.Is(err, source.ErrNoMatch) {
			a.logger.Error("Resolution failed unexpectedly",
				zap.String("query", query), zap.Error(err))
		}
		a.usage.Log(r.Context(), apiKey, endpoint, query, elapsed, false)
		elapsedMS := elapsed.Milliseconds()
		a.writeError(w, endpoint, http.StatusNotFound, reasonNotFound,
			"No music found for the given query", &elapsedMS)
		return
	}

	a.gate.RecordUsage(r.Context(), apiKey)
	a.usage.Log(r.Context(), apiKey, endpoint, query, elapsed, true)
	a.metrics.ResolutionsTotal.WithLabelValues(track.Source).Inc()

	resp := streamResponse{
		Success:        true,
		Title:          track.Title,
		Artist:         track.Artist,
		Duration:       track.Duration,
		Source:         track.Source,
		Quality:        track.Quality,
		ResponseTimeMS: elapsed.Milliseconds(),
	}
	if issueToken {
		token := a.tokens.Issue(track.OriginURL, apiKey)
		resp.StreamURL = fmt.Sprintf("%s/proxy/stream/%s", a.baseURL(r), token)
		a.metrics.ActiveTokens.Set(float64(a.tokens.Len()))
	}

	a.writeJSON(w, endpoint, http.StatusOK, resp)
}

// HandleTrending serves an adapter's trending feed.
func (a *API) HandleTrending(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/trending"

	apiKey := r.URL.Query().Get("api_key")
	if apiKey == "" {
		a.writeError(w, endpoint, http.StatusBadRequest, reasonMissingKey, "API key is required", nil)
		return
	}
	if !a.admit(w, r, endpoint, apiKey) {
		return
	}

	sourceHint := r.URL.Query().Get("source")
	if sourceHint == "" {
		sourceHint = source.SaavnID
	}
	limit := defaultTrendingLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	items, err := a.resolver.Trending(r.Context(), sourceHint, limit)
	if err != nil {
		if errors.Is(err, source.ErrNoMatch) {
			a.writeError(w, endpoint, http.StatusNotFound, reasonNotFound,
				"No trending feed for this source", nil)
			return
		}
		a.logger.Warn("Trending fetch failed", zap.Error(err))
		a.writeError(w, endpoint, http.StatusInternalServerError, reasonInternal,
			"Internal server error", nil)
		return
	}

	a.gate.RecordUsage(r.Context(), apiKey)
	a.writeJSON(w, endpoint, http.StatusOK, map[string]interface{}{
		"success":  true,
		"trending": items,
		"source":   sourceHint,
	})
}

// HandleStatus serves a read-only credential usage snapshot.
func (a *API) HandleStatus(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/status"

	apiKey := r.URL.Query().Get("api_key")
	if apiKey == "" {
		a.writeError(w, endpoint, http.StatusBadRequest, reasonMissingKey, "API key is required", nil)
		return
	}

	cred, err := a.credentials.Find(r.Context(), apiKey)
	if err != nil {
		if errors.Is(err, core.ErrCredentialNotFound) {
			a.writeError(w, endpoint, http.StatusUnauthorized, string(gate.ReasonInvalid),
				"Invalid API key", nil)
			return
		}
		a.logger.Error("Credential lookup failed", zap.Error(err))
		a.writeError(w, endpoint, http.StatusInternalServerError, reasonInternal,
			"Internal server error", nil)
		return
	}

	history, err := a.usage.Recent(r.Context(), apiKey,
		time.Now().Add(-statusHistoryWindow), statusHistoryLimit)
	if err != nil {
		// History is informational; the snapshot is still served.
		a.logger.Warn("Usage history lookup failed", zap.Error(err))
	}
	recent := make([]map[string]interface{}, 0, len(history))
	for _, entry := range history {
		recent = append(recent, map[string]interface{}{
			"endpoint":   entry.Endpoint,
			"success":    entry.Success,
			"latency_ms": entry.LatencyMS,
			"at":         entry.CreatedAt.Format(time.RFC3339),
		})
	}

	a.writeJSON(w, endpoint, http.StatusOK, map[string]interface{}{
		"success":         true,
		"owner":           cred.Owner,
		"daily_limit":     cred.DailyLimit,
		"requests_today":  cred.RequestsToday,
		"total_requests":  cred.TotalRequests,
		"expires_at":      cred.ExpiresAt.Format(time.RFC3339),
		"is_active":       cred.Active,
		"recent_requests": recent,
	})
}

// HandleProxyStream relays audio for an issued token.
func (a *API) HandleProxyStream(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.URL.Path, "/proxy/stream/")
	if token == "" || strings.Contains(token, "/") {
		http.NotFound(w, r)
		a.metrics.RelaysTotal.WithLabelValues("not_found").Inc()
		return
	}

	if r.Method == http.MethodOptions {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Range")
		w.WriteHeader(http.StatusNoContent)
		return
	}

	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	a.relay.Stream(recorder, r, token)
	a.metrics.RelaysTotal.WithLabelValues(strconv.Itoa(recorder.status)).Inc()
}

// admit runs the access gate and writes the rejection response on failure.
func (a *API) admit(w http.ResponseWriter, r *http.Request, endpoint, apiKey string) bool {
	_, err := a.gate.Admit(r.Context(), apiKey)
	if err == nil {
		return true
	}

	var rejected *gate.RejectedError
	if errors.As(err, &rejected) {
		a.metrics.RejectionsTotal.WithLabelValues(string(rejected.Reason)).Inc()
		status := http.StatusUnauthorized
		if rejected.Reason == gate.ReasonRateLimited {
			status = http.StatusTooManyRequests
		}
		a.writeError(w, endpoint, status, string(rejected.Reason),
			rejectionMessage(rejected.Reason), nil)
		return false
	}

	a.logger.Error("Access gate failed", zap.Error(err))
	a.writeError(w, endpoint, http.StatusInternalServerError, reasonInternal,
		"Internal server error", nil)
	return false
}

func rejectionMessage(reason gate.Reason) string {
	switch reason {
	case gate.ReasonInvalid:
		return "Invalid API key"
	case gate.ReasonInactive:
		return "API key is inactive"
	case gate.ReasonExpired:
		return "API key has expired"
	case gate.ReasonQuotaExceeded:
		return "Daily request limit exceeded"
	case gate.ReasonRateLimited:
		return "Too many requests, slow down"
	default:
		return "Unauthorized"
	}
}

func (a *API) writeJSON(w http.ResponseWriter, endpoint string, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		a.logger.Debug("Failed to write response", zap.Error(err))
	}
	a.metrics.RequestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
}

func (a *API) writeError(w http.ResponseWriter, endpoint string, status int, reason, message string, elapsedMS *int64) {
	a.writeJSON(w, endpoint, status, errorResponse{
		Error:          message,
		Reason:         reason,
		ResponseTimeMS: elapsedMS,
	})
}

// baseURL picks the externally visible base for proxy URLs: the configured
// public base when set, otherwise the caller-facing host of this request.
func (a *API) baseURL(r *http.Request) string {
	if a.publicBaseURL != "" {
		return strings.TrimRight(a.publicBaseURL, "/")
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, r.Host)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController reach the underlying writer, so the
// relay can lift the write deadline through this wrapper.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
