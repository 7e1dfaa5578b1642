package whoiscache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss is returned by a CacheRepository when no entry exists for a domain.
var ErrCacheMiss = errors.New("cache miss")

// CacheRepository defines the interface for caching lookup records.
// Get returns the stored entry even when it has expired; liveness is the
// caller's decision. Put overwrites unconditionally.
type CacheRepository interface {
	Get(ctx context.Context, domain string) (CacheEntry, error)
	Put(ctx context.Context, domain string, record LookupRecord, ttl time.Duration) error
	Delete(ctx context.Context, domain string) error
}

// RemoteResolver queries the upstream WHOIS provider once.
type RemoteResolver interface {
	Query(ctx context.Context, domain string) RemoteOutcome
}

// LocalResolver performs a WHOIS lookup without the upstream provider.
type LocalResolver interface {
	Query(ctx context.Context, domain string) LocalOutcome
}
