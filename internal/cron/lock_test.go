package cron

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/angelmondragon/resellsync/pkg/config"
	"github.com/angelmondragon/resellsync/pkg/redis"
)

func newRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := redis.New(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr()}, nil)
	if err != nil {
		t.Fatalf("redis.New: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

func TestRedisLockIsExclusivePerLoop(t *testing.T) {
	client, mr := newRedis(t)
	ctx := context.Background()
	key := client.LockKey("sync", "test")

	first, err := NewRedisLock(client, key, time.Minute, "worker-a")
	if err != nil {
		t.Fatalf("NewRedisLock: %v", err)
	}
	second, _ := NewRedisLock(client, key, time.Minute, "worker-b")
	other, _ := NewRedisLock(client, client.LockKey("reprice", "test"), time.Minute, "worker-b")

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("expected first acquire, got %v %v", ok, err)
	}
	if ok, err := second.Acquire(ctx); err != nil || ok {
		t.Fatalf("expected second acquire to fail, got %v %v", ok, err)
	}
	if ok, err := other.Acquire(ctx); err != nil || !ok {
		t.Fatalf("expected other loop lock to be independent, got %v %v", ok, err)
	}

	owner, err := mr.Get(key)
	if err != nil || !strings.HasPrefix(owner, "worker-a:") {
		t.Fatalf("expected owner prefixed with instance, got %q %v", owner, err)
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Fatalf("expected ttl 1m, got %s", ttl)
	}

	// a non-owner release leaves the lock in place
	if err := second.Release(ctx); err != nil {
		t.Fatalf("second release: %v", err)
	}
	if !mr.Exists(key) {
		t.Fatal("lock removed by non-owner")
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("first release: %v", err)
	}
	if mr.Exists(key) {
		t.Fatal("lock still held after owner release")
	}
	if ok, err := second.Acquire(ctx); err != nil || !ok {
		t.Fatalf("expected reacquire, got %v %v", ok, err)
	}
}

func TestRedisLockReleaseAfterExpiry(t *testing.T) {
	client, mr := newRedis(t)
	ctx := context.Background()
	lock, _ := NewRedisLock(client, client.LockKey("sync", "test"), time.Second, "worker-a")

	if ok, err := lock.Acquire(ctx); err != nil || !ok {
		t.Fatalf("acquire: %v %v", ok, err)
	}
	mr.FastForward(2 * time.Second)
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release after expiry: %v", err)
	}
}
