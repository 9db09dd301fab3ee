package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/resellsync/pkg/config"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := New(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr()}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestSetNXHonoursExistingKey(t *testing.T) {
	client, mr := newTestClient(t)
	ctx := context.Background()

	ok, err := client.SetNX(ctx, "rs:lock:sync:test", "owner-a", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first SetNX to win, got %v %v", ok, err)
	}
	ok, err = client.SetNX(ctx, "rs:lock:sync:test", "owner-b", time.Minute)
	if err != nil || ok {
		t.Fatalf("expected second SetNX to lose, got %v %v", ok, err)
	}

	value, err := client.Get(ctx, "rs:lock:sync:test")
	if err != nil || value != "owner-a" {
		t.Fatalf("expected owner-a, got %q %v", value, err)
	}
	if ttl := mr.TTL("rs:lock:sync:test"); ttl != time.Minute {
		t.Fatalf("expected ttl 1m, got %v", ttl)
	}

	if err := client.Del(ctx, "rs:lock:sync:test"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := client.Get(ctx, "rs:lock:sync:test"); err != redis.Nil {
		t.Fatalf("expected redis.Nil after delete, got %v", err)
	}
}

func TestPingAndSet(t *testing.T) {
	client, _ := newTestClient(t)
	ctx := context.Background()
	if err := client.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if err := client.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("set: %v", err)
	}
}

func TestNewFailsWithoutAddress(t *testing.T) {
	if _, err := New(context.Background(), config.RedisConfig{}, nil); err == nil {
		t.Fatal("expected error without url or address")
	}
}

func TestOptionsFromConfigFallsBackToAddress(t *testing.T) {
	opts, err := optionsFromConfig(config.RedisConfig{Address: "localhost:6380", DB: 2, PoolSize: 7})
	if err != nil {
		t.Fatalf("optionsFromConfig: %v", err)
	}
	if opts.Addr != "localhost:6380" || opts.DB != 2 || opts.PoolSize != 7 {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestLockKey(t *testing.T) {
	client := &Client{}
	if got := client.LockKey("sync", "prod"); got != "rs:lock:sync:prod" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.LockKey("reprice", ""); got != "rs:lock:reprice:local" {
		t.Fatalf("expected local fallback, got %s", got)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error from zero client")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close on zero client should be a no-op: %v", err)
	}
}
