package core

import (
	"context"
	"errors"
	"time"
)

// ErrCredentialNotFound is returned by a CredentialStore when no credential
// exists for the presented key.
var ErrCredentialNotFound = errors.New("credential not found")

// Credential is one caller-presented API key with its quota state. Counters
// are mutated through CredentialStore; the daily counter is reset in bulk by
// an external scheduled job.
type Credential struct {
	Key           string
	Owner         string
	DailyLimit    int
	RequestsToday int
	TotalRequests int
	CreatedAt     time.Time
	ExpiresAt     time.Time
	Active        bool
	LastUsed      *time.Time
}

// CredentialStore is the persistence collaborator for API keys.
type CredentialStore interface {
	// Find returns the credential for a key, or ErrCredentialNotFound.
	Find(ctx context.Context, key string) (*Credential, error)

	// IncrementUsage bumps the daily and lifetime counters and stamps the
	// last-used time. The increment must be atomic per key.
	IncrementUsage(ctx context.Context, key string) error

	// ListAll returns every credential.
	ListAll(ctx context.Context) ([]*Credential, error)

	// Create stores a new credential and returns its generated key.
	Create(ctx context.Context, owner string, dailyLimit, ttlDays int) (string, error)

	// Delete removes a credential. Deleting an unknown key returns
	// ErrCredentialNotFound.
	Delete(ctx context.Context, key string) error

	// ResetDailyCounters zeroes every credential's daily counter. Invoked
	// by an external scheduled job, not by request handling.
	ResetDailyCounters(ctx context.Context) error
}

// UsageEntry is one recorded request outcome.
type UsageEntry struct {
	CredentialKey string
	Endpoint      string
	Query         string
	LatencyMS     int64
	Success       bool
	CreatedAt     time.Time
}

// UsageLog records per-request analytics. Logging is fire-and-forget:
// implementations must never let a logging failure fail the main request.
type UsageLog interface {
	Log(ctx context.Context, credentialKey, endpoint, query string, latency time.Duration, success bool)

	// Recent returns up to limit entries newer than since, newest first.
	// An empty credentialKey selects entries for every credential.
	Recent(ctx context.Context, credentialKey string, since time.Time, limit int) ([]UsageEntry, error)
}
