package whoiscache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := connectRedis(context.TODO(), mr.Addr())
	if err != nil {
		t.Fatalf("Expected no errors connecting to miniredis, but got: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

func TestRedisStore(t *testing.T) {
	s, mr := newTestRedisStore(t)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.TODO()

	if _, err := s.Get(ctx, "example.com"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Expected ErrCacheMiss, got %v", err)
	}

	rate := 42
	rec := LookupRecord{
		Domain:        "example.com",
		Registrar:     "RegistrarX",
		Status:        "ok",
		NameServers:   "a.iana-servers.net\nb.iana-servers.net",
		Outcome:       Success,
		Source:        Local,
		RateRemaining: &rate,
	}
	if err := s.Put(ctx, "example.com", rec, time.Hour); err != nil {
		t.Fatalf("Expected no errors, but got: %v", err)
	}
	if ttl := mr.TTL(redisKeyPrefix + "example.com"); ttl != time.Hour {
		t.Fatalf("Expected key TTL of 1h, got %v", ttl)
	}

	e, err := s.Get(ctx, "example.com")
	if err != nil {
		t.Fatalf("Expected entry, got %v", err)
	}
	if !e.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("Expected expiry %v, got %v", now.Add(time.Hour), e.ExpiresAt)
	}
	got := e.Record
	if got.Domain != rec.Domain || got.NameServers != rec.NameServers || got.Outcome != Success || got.Source != Local {
		t.Fatalf("Expected %+v, got %+v", rec, got)
	}
	if got.RateRemaining == nil || *got.RateRemaining != 42 {
		t.Fatalf("Expected rate 42 to survive the round trip, got %v", got.RateRemaining)
	}

	mr.FastForward(time.Hour)
	if _, err := s.Get(ctx, "example.com"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Expected key to expire in redis, got %v", err)
	}
}

func TestRedisStoreDelete(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.TODO()

	s.Put(ctx, "example.com", LookupRecord{Domain: "example.com"}, time.Hour)
	if err := s.Delete(ctx, "example.com"); err != nil {
		t.Fatalf("Expected no errors, but got: %v", err)
	}
	if mr.Exists(redisKeyPrefix + "example.com") {
		t.Fatalf("Expected key to be removed")
	}
}

func TestRedisStoreCorruptEntry(t *testing.T) {
	s, mr := newTestRedisStore(t)
	mr.Set(redisKeyPrefix+"example.com", "not json")

	_, err := s.Get(context.TODO(), "example.com")
	if err == nil || errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Expected decode error, got %v", err)
	}
}

func TestLookupWithRedisStore(t *testing.T) {
	s, _ := newTestRedisStore(t)
	remote := &fakeRemote{outcomes: []RemoteOutcome{successOutcome(t)}}
	l := NewLookup(s, remote, &fakeLocal{}, time.Hour, 0)

	first := l.Lookup(context.TODO(), "example.com")
	second := l.Lookup(context.TODO(), "example.com")
	if first != second {
		t.Fatalf("Expected identical records, got %+v and %+v", first, second)
	}
	if remote.Calls() != 1 {
		t.Fatalf("Expected second lookup served from redis, got %d remote calls", remote.Calls())
	}
}

func TestConnectRedisFail(t *testing.T) {
	if _, err := connectRedis(context.TODO(), "127.0.0.1:1"); err == nil {
		t.Fatalf("Expected an error, but got none")
	}
}
