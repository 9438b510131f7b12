package lock

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func exercise(t *testing.T, l Locker) {
	t.Helper()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := l.Lock(ctx, "patient-1")
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
			release()
		}()
	}
	wg.Wait()
	if maxInside != 1 {
		t.Fatalf("%d holders at once, want 1", maxInside)
	}
}

func TestLocalExclusive(t *testing.T) {
	l := NewLocal()
	exercise(t, l)
	if n := l.Held("patient-1"); n != 0 {
		t.Fatalf("slot leaked: %d refs", n)
	}
}

func TestLocalDistinctKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	release, err := l.Lock(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	other, err := l.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("key b blocked by key a: %v", err)
	}
	other()
}

func TestLocalContextCancel(t *testing.T) {
	l := NewLocal()
	release, err := l.Lock(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(ctx, "a"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	release()
	if n := l.Held("a"); n != 0 {
		t.Fatalf("slot leaked after cancel: %d refs", n)
	}
}

func TestRedisExclusive(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("set TEST_REDIS_ADDR to run redis lock tests")
	}
	r, err := NewRedis(context.Background(), addr, 5*time.Second)
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer r.Close()
	exercise(t, r)
}
