package whoiscache

import (
	"context"
	"errors"
	"time"
)

const (
	defaultTTL      = time.Hour
	defaultAttempts = 2
)

// ErrRateLimited is returned by LookupBatch when the upstream quota ran out mid-batch.
var ErrRateLimited = errors.New("rate limit exceeded")

// Lookup resolves domains through the cache, the upstream API and local WHOIS, in that order.
// It is safe for concurrent use; the cache is the only state shared between calls.
// Two concurrent first lookups of the same domain both reach the upstream.
type Lookup struct {
	cache    CacheRepository
	remote   RemoteResolver
	local    LocalResolver
	ttl      time.Duration
	attempts int
	now      func() time.Time
}

func NewLookup(cache CacheRepository, remote RemoteResolver, local LocalResolver, ttl time.Duration, attempts int) *Lookup {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if attempts < 1 {
		attempts = defaultAttempts
	}
	return &Lookup{
		cache:    cache,
		remote:   remote,
		local:    local,
		ttl:      ttl,
		attempts: attempts,
		now:      time.Now,
	}
}

type lookupResult struct {
	record      LookupRecord
	cached      bool
	rateLimited bool
}

// Lookup returns the canonical record for domain. Failures are reported in
// the record itself, never as an error.
func (l *Lookup) Lookup(ctx context.Context, domain string) LookupRecord {
	return l.lookup(ctx, domain).record
}

func (l *Lookup) lookup(ctx context.Context, domain string) lookupResult {
	domain = normalizeDomain(domain)
	if domain == "" {
		return lookupResult{record: errorRecord(domain, Remote, "empty domain")}
	}

	entry, err := l.cache.Get(ctx, domain)
	switch {
	case err == nil && entry.IsLive(l.now()):
		log.Debugf("Cache hit for domain: %s", domain)
		cacheHits.Inc()
		return lookupResult{record: entry.Record, cached: true}
	case err == nil:
		log.Debugf("Cache expired for domain: %s", domain)
		if err := l.cache.Delete(ctx, domain); err != nil {
			log.Warningf("Failed to evict expired entry for %s: %v", domain, err)
		}
	case !errors.Is(err, ErrCacheMiss):
		log.Warningf("Cache read failed for %s: %v", domain, err)
	}
	cacheMisses.Inc()

	res := l.resolve(ctx, domain)
	rec := res.record
	lookups.WithLabelValues(rec.Outcome.String(), rec.Source.String()).Inc()

	if rec.Cacheable() {
		if err := l.cache.Put(ctx, domain, rec, l.ttl); err != nil {
			log.Warningf("Failed to cache record for %s: %v", domain, err)
		}
	}
	return res
}

func (l *Lookup) resolve(ctx context.Context, domain string) lookupResult {
	out := l.queryRemote(ctx, domain)

	switch out.Status {
	case RemoteSuccess:
		rec := normalize(domain, out.Payload, Remote, out.RateRemaining)
		if rec.Outcome == Error {
			log.Errorf("API returned error for %s: %s", domain, rec.Message)
		}
		return lookupResult{record: rec}
	case RemoteNotFound:
		return lookupResult{record: normalize(domain, map[string]any{"registered": false}, Remote, out.RateRemaining)}
	case RemoteRateLimited:
		log.Warningf("Rate limit exceeded on API lookup for %s", domain)
		rec := errorRecord(domain, Remote, "Rate limit exceeded")
		rec.RateRemaining = out.RateRemaining
		return lookupResult{record: rec, rateLimited: true}
	case RemoteRejected, RemoteMalformed:
		log.Errorf("API lookup for %s failed: %v", domain, out.Err)
		rec := errorRecord(domain, Remote, "%v", out.Err)
		rec.RateRemaining = out.RateRemaining
		return lookupResult{record: rec}
	}

	if err := ctx.Err(); err != nil {
		return lookupResult{record: errorRecord(domain, Remote, "lookup cancelled: %v", err)}
	}

	log.Warningf("API lookup failed for %s: %v. Falling back to local.", domain, out.Err)
	fallbacks.Inc()

	loc := l.local.Query(ctx, domain)
	if loc.Err != nil {
		log.Errorf("Local WHOIS failed for %s: %v", domain, loc.Err)
		return lookupResult{record: errorRecord(domain, Local, "Local WHOIS failed: %v", loc.Err)}
	}
	return lookupResult{record: normalize(domain, loc.Payload, Local, nil)}
}

// queryRemote retries immediately while the outcome is retryable, up to the attempt bound.
func (l *Lookup) queryRemote(ctx context.Context, domain string) RemoteOutcome {
	var out RemoteOutcome
	for attempt := 1; attempt <= l.attempts; attempt++ {
		out = l.remote.Query(ctx, domain)
		remoteAttempts.WithLabelValues(out.Status.String()).Inc()
		if !out.retryable() || ctx.Err() != nil {
			return out
		}
		if attempt < l.attempts {
			log.Warningf("API lookup for %s failed (%v), retrying (attempt %d of %d)", domain, out.Err, attempt+1, l.attempts)
		}
	}
	return out
}

// BatchResult holds the records of a batch lookup and the smallest upstream
// quota observed while producing them.
type BatchResult struct {
	Results       []LookupRecord `json:"results"`
	RateRemaining *int           `json:"rate_remaining,omitempty"`
}

// LookupBatch looks up domains one after another. It stops at the first
// rate-limited domain and returns ErrRateLimited with the records gathered so far.
func (l *Lookup) LookupBatch(ctx context.Context, domains []string) (BatchResult, error) {
	batch := BatchResult{Results: make([]LookupRecord, 0, len(domains))}
	for _, domain := range domains {
		res := l.lookup(ctx, domain)
		if res.rateLimited {
			return batch, ErrRateLimited
		}
		batch.Results = append(batch.Results, res.record)

		rate := res.record.RateRemaining
		if res.cached || rate == nil {
			continue
		}
		if batch.RateRemaining == nil || *rate < *batch.RateRemaining {
			v := *rate
			batch.RateRemaining = &v
		}
	}
	return batch, nil
}
