// Package store provides sqlite-backed persistence for API credentials and
// usage analytics.
package store

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	// Registers the sqlite3 driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/Probotsvip/PowerfulAPI/internal/core"
)

const (
	keyLength   = 32
	keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

const schema = `
CREATE TABLE IF NOT EXISTS credentials (
	key            TEXT PRIMARY KEY,
	owner          TEXT NOT NULL,
	daily_limit    INTEGER NOT NULL,
	requests_today INTEGER NOT NULL DEFAULT 0,
	total_requests INTEGER NOT NULL DEFAULT 0,
	created_at     TIMESTAMP NOT NULL,
	expires_at     TIMESTAMP NOT NULL,
	active         INTEGER NOT NULL DEFAULT 1,
	last_used      TIMESTAMP
);

CREATE TABLE IF NOT EXISTS usage_log (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	credential_key TEXT NOT NULL,
	endpoint       TEXT NOT NULL,
	query          TEXT NOT NULL,
	latency_ms     INTEGER NOT NULL,
	success        INTEGER NOT NULL,
	created_at     TIMESTAMP NOT NULL
);
`

// CredentialStore implements core.CredentialStore on sqlite.
type CredentialStore struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (and if needed initializes) the credential database at path.
func Open(path string) (*CredentialStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize credential database: %w", err)
	}
	return &CredentialStore{db: db, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *CredentialStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for sibling stores.
func (s *CredentialStore) DB() *sql.DB {
	return s.db
}

// Find returns the credential for a key, or core.ErrCredentialNotFound.
func (s *CredentialStore) Find(ctx context.Context, key string) (*core.Credential, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, owner, daily_limit, requests_today, total_requests,
		       created_at, expires_at, active, last_used
		FROM credentials WHERE key = ?`, key)
	return scanCredential(row)
}

// IncrementUsage bumps the counters and stamps last-used in one statement,
// so concurrent increments cannot lose updates.
func (s *CredentialStore) IncrementUsage(ctx context.Context, key string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE credentials
		SET requests_today = requests_today + 1,
		    total_requests = total_requests + 1,
		    last_used = ?
		WHERE key = ?`, s.now().UTC(), key)
	if err != nil {
		return fmt.Errorf("failed to increment usage: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return core.ErrCredentialNotFound
	}
	return nil
}

// ListAll returns every credential, newest first.
func (s *CredentialStore) ListAll(ctx context.Context) ([]*core.Credential, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, owner, daily_limit, requests_today, total_requests,
		       created_at, expires_at, active, last_used
		FROM credentials ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	var creds []*core.Credential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, cred)
	}
	return creds, rows.Err()
}

// Create stores a new active credential and returns its generated key.
func (s *CredentialStore) Create(ctx context.Context, owner string, dailyLimit, ttlDays int) (string, error) {
	key, err := generateKey()
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO credentials
			(key, owner, daily_limit, requests_today, total_requests,
			 created_at, expires_at, active)
		VALUES (?, ?, ?, 0, 0, ?, ?, 1)`,
		key, owner, dailyLimit, now, now.AddDate(0, 0, ttlDays))
	if err != nil {
		return "", fmt.Errorf("failed to create credential: %w", err)
	}
	return key, nil
}

// Delete removes a credential.
func (s *CredentialStore) Delete(ctx context.Context, key string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE key = ?`, key)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return core.ErrCredentialNotFound
	}
	return nil
}

// ResetDailyCounters zeroes every credential's daily counter. Run by an
// external scheduled job, typically at midnight.
func (s *CredentialStore) ResetDailyCounters(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `UPDATE credentials SET requests_today = 0`)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCredential(row rowScanner) (*core.Credential, error) {
	var cred core.Credential
	var active int
	var lastUsed sql.NullTime

	err := row.Scan(&cred.Key, &cred.Owner, &cred.DailyLimit, &cred.RequestsToday,
		&cred.TotalRequests, &cred.CreatedAt, &cred.ExpiresAt, &active, &lastUsed)
	if err == sql.ErrNoRows {
		return nil, core.ErrCredentialNotFound
	}
	if err != nil {
		return nil, err
	}

	cred.Active = active != 0
	if lastUsed.Valid {
		t := lastUsed.Time
		cred.LastUsed = &t
	}
	return &cred, nil
}

func generateKey() (string, error) {
	key := make([]byte, keyLength)
	alphabetLen := big.NewInt(int64(len(keyAlphabet)))
	for i := range key {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate key: %w", err)
		}
		key[i] = keyAlphabet[n.Int64()]
	}
	return string(key), nil
}
