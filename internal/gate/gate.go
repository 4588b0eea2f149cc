// Package gate admits or rejects requests per caller credential, independent
// of resolution logic.
package gate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Probotsvip/PowerfulAPI/internal/core"
)

// Reason identifies why a credential was rejected. The strings are stable and
// machine-readable; they appear verbatim in error responses.
type Reason string

const (
	ReasonInvalid       Reason = "invalid"
	ReasonInactive      Reason = "inactive"
	ReasonExpired       Reason = "expired"
	ReasonQuotaExceeded Reason = "quota_exceeded"
	ReasonRateLimited   Reason = "rate_limited"
)

// RejectedError carries the specific rejection reason to the caller.
type RejectedError struct {
	Reason Reason
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("credential rejected: %s", e.Reason)
}

// Gate validates caller credentials and enforces the per-credential daily
// quota, plus an optional short-window burst limit.
type Gate struct {
	store  core.CredentialStore
	burst  *Burst
	logger *zap.Logger
	now    func() time.Time
}

// New creates a gate over the credential store. burst may be nil to disable
// short-window limiting.
func New(store core.CredentialStore, burst *Burst, logger *zap.Logger) *Gate {
	return &Gate{
		store:  store,
		burst:  burst,
		logger: logger,
		now:    time.Now,
	}
}

// Admit checks a credential in fixed precedence order: existence, active
// flag, expiry, quota, burst. The first failing condition is the returned
// reason. On success the caller must invoke RecordUsage exactly once per
// fulfilled request.
//
// The quota condition rejects when the daily counter has reached the limit,
// not only when it exceeds it: a credential at exactly its limit is denied.
func (g *Gate) Admit(ctx context.Context, key string) (*core.Credential, error) {
	cred, err := g.store.Find(ctx, key)
	if err != nil {
		if errors.Is(err, core.ErrCredentialNotFound) {
			return nil, &RejectedError{Reason: ReasonInvalid}
		}
		return nil, fmt.Errorf("credential lookup failed: %w", err)
	}

	if !cred.Active {
		return nil, &RejectedError{Reason: ReasonInactive}
	}
	if cred.ExpiresAt.Before(g.now()) {
		return nil, &RejectedError{Reason: ReasonExpired}
	}
	if cred.RequestsToday >= cred.DailyLimit {
		return nil, &RejectedError{Reason: ReasonQuotaExceeded}
	}
	if g.burst != nil && !g.burst.Allow(key) {
		return nil, &RejectedError{Reason: ReasonRateLimited}
	}

	return cred, nil
}

// RecordUsage increments the credential's daily and lifetime counters and
// stamps the last-used time.
func (g *Gate) RecordUsage(ctx context.Context, key string) {
	if err := g.store.IncrementUsage(ctx, key); err != nil {
		g.logger.Warn("Failed to record credential usage",
			zap.String("credential", key),
			zap.Error(err))
	}
}
