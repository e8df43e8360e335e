package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLock(t *testing.T, ttl time.Duration) (*SweepLock, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewSweepLock(client, ttl), mr
}

func TestSweepLockAcquireRelease(t *testing.T) {
	ctx := context.Background()
	lock, _ := newTestLock(t, time.Minute)

	acquired, err := lock.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if !acquired {
		t.Fatal("expected first acquire to succeed")
	}

	again, err := lock.Acquire(ctx)
	if err != nil {
		t.Fatalf("second acquire: %v", err)
	}
	if again {
		t.Fatal("expected second acquire to fail while lock is held")
	}

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}

	reacquired, err := lock.Acquire(ctx)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	if !reacquired {
		t.Fatal("expected acquire to succeed after release")
	}
}

func TestSweepLockReleaseOnlyOwn(t *testing.T) {
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	first := NewSweepLock(client, time.Minute)
	second := NewSweepLock(client, time.Minute)

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}

	// A different instance must not be able to drop the holder's lock.
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release by non-holder: %v", err)
	}

	if ok, err := second.Acquire(ctx); err != nil {
		t.Fatalf("acquire after foreign release: %v", err)
	} else if ok {
		t.Fatal("expected lock to still be held by first instance")
	}
}

func TestSweepLockExpires(t *testing.T) {
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	lock := NewSweepLock(client, time.Second)
	if ok, err := lock.Acquire(ctx); err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}

	mr.FastForward(2 * time.Second)

	other := NewSweepLock(client, time.Second)
	if ok, err := other.Acquire(ctx); err != nil {
		t.Fatalf("acquire after expiry: %v", err)
	} else if !ok {
		t.Fatal("expected lock to be acquirable after ttl expiry")
	}
}
