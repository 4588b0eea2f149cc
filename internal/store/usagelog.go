package store

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/Probotsvip/PowerfulAPI/internal/core"
)

// UsageLogStore implements core.UsageLog on the shared sqlite database.
// Logging is fire-and-forget: insert failures are logged and swallowed so
// analytics can never fail a caller's request.
type UsageLogStore struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewUsageLog(db *sql.DB, logger *zap.Logger) *UsageLogStore {
	return &UsageLogStore{db: db, logger: logger, now: time.Now}
}

// Log records one request outcome.
func (s *UsageLogStore) Log(ctx context.Context, credentialKey, endpoint, query string, latency time.Duration, success bool) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_log (credential_key, endpoint, query, latency_ms, success, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		credentialKey, endpoint, query, latency.Milliseconds(), success, s.now().UTC())
	if err != nil {
		s.logger.Warn("Failed to record usage log entry",
			zap.String("endpoint", endpoint),
			zap.Error(err))
	}
}

// Recent returns up to limit usage entries newer than since, newest first.
// Consumed by the status surface; not on the request hot path.
func (s *UsageLogStore) Recent(ctx context.Context, credentialKey string, since time.Time, limit int) ([]core.UsageEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT credential_key, endpoint, query, latency_ms, success, created_at
		FROM usage_log
		WHERE created_at >= ? AND (? = '' OR credential_key = ?)
		ORDER BY created_at DESC LIMIT ?`,
		since.UTC(), credentialKey, credentialKey, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []core.UsageEntry
	for rows.Next() {
		var entry core.UsageEntry
		if err := rows.Scan(&entry.CredentialKey, &entry.Endpoint, &entry.Query,
			&entry.LatencyMS, &entry.Success, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
