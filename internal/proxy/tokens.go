// Package proxy hides resolved stream origins behind short-lived opaque
// tokens and relays audio bytes from origin to caller.
package proxy

import (
	"crypto/md5" // #nosec G501 -- token derivation, not authentication
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

const bloomFalsePositiveRate = 0.001

type tokenEntry struct {
	originURL     string
	credentialKey string
	createdAt     time.Time
}

// TokenStore maps opaque tokens to stream origins. Tokens are derived from
// (origin URL, credential, time bucket), so re-issuing within a bucket is
// idempotent and cache growth stays bounded. Entries expire after the TTL and
// are removed by a background sweep; the bloom filter short-circuits lookups
// for tokens that were never issued.
type TokenStore struct {
	entries   map[string]tokenEntry
	bloom     *bloom.BloomFilter
	lru       *lru.Cache[string, struct{}]
	mutex     sync.RWMutex
	ttl       time.Duration
	maxTokens int
	stopSweep chan struct{}
	now       func() time.Time
}

// NewTokenStore creates a token store and starts its background sweep.
func NewTokenStore(ttl, sweepInterval time.Duration, maxTokens int) *TokenStore {
	s := &TokenStore{
		entries:   make(map[string]tokenEntry),
		bloom:     bloom.NewWithEstimates(uint(maxTokens), bloomFalsePositiveRate),
		ttl:       ttl,
		maxTokens: maxTokens,
		stopSweep: make(chan struct{}),
		now:       time.Now,
	}

	// The LRU drives capacity eviction: when it drops its oldest token the
	// callback removes the matching map entry. The callback runs under the
	// store mutex, via Issue.
	s.lru, _ = lru.NewWithEvict[string, struct{}](maxTokens, func(token string, _ struct{}) {
		delete(s.entries, token)
	})

	go s.sweepLoop(sweepInterval)

	return s
}

// Stop stops the background sweep goroutine.
func (s *TokenStore) Stop() {
	close(s.stopSweep)
}

// Issue returns the token for an origin URL and credential. Two calls with
// the same arguments inside the same time bucket return the same token.
func (s *TokenStore) Issue(originURL, credentialKey string) string {
	now := s.now()
	token := deriveToken(originURL, credentialKey, now, s.ttl)

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.entries[token]; !exists {
		s.entries[token] = tokenEntry{
			originURL:     originURL,
			credentialKey: credentialKey,
			createdAt:     now,
		}
		s.bloom.AddString(token)
		// May evict the oldest token, which removes its map entry too.
		s.lru.Add(token, struct{}{})
	}

	return token
}

// Resolve returns the origin URL for a token. Unknown and expired tokens
// both report false; there is no silent re-resolution.
func (s *TokenStore) Resolve(token string) (string, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if !s.bloom.TestString(token) {
		return "", false
	}

	entry, exists := s.entries[token]
	if !exists {
		return "", false
	}
	if s.now().Sub(entry.createdAt) > s.ttl {
		return "", false
	}
	return entry.originURL, true
}

// Len returns the number of live token mappings.
func (s *TokenStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.entries)
}

func (s *TokenStore) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-s.stopSweep:
			return
		}
	}
}

// Sweep removes expired entries and rebuilds the bloom filter from the
// survivors. Lookups for unrelated tokens only block for the map rewrite,
// not for any I/O.
func (s *TokenStore) Sweep() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	cutoff := s.now().Add(-s.ttl)
	rebuilt := bloom.NewWithEstimates(uint(s.maxTokens), bloomFalsePositiveRate)
	for token, entry := range s.entries {
		if entry.createdAt.Before(cutoff) {
			delete(s.entries, token)
			s.lru.Remove(token)
			continue
		}
		rebuilt.AddString(token)
	}
	s.bloom = rebuilt
}

// deriveToken hashes the origin URL, credential and coarse time bucket. The
// bucket granularity equals the TTL, so the bucket boundary doubles as a soft
// expiry boundary.
func deriveToken(originURL, credentialKey string, now time.Time, ttl time.Duration) string {
	bucket := now.Unix() / int64(ttl.Seconds())
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%s:%d", originURL, credentialKey, bucket))) // #nosec G401
	return hex.EncodeToString(sum[:])
}
