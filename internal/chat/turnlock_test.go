package chat

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLock(t *testing.T) *TurnLock {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewTurnLock(client)
}

func TestTurnLockSecondAcquireBlocked(t *testing.T) {
	lock := newTestLock(t)
	ctx := context.Background()

	release, ok := lock.Acquire(ctx, "conv-1")
	if !ok {
		t.Fatal("first acquire should succeed")
	}

	if _, ok := lock.Acquire(ctx, "conv-1"); ok {
		t.Fatal("second acquire on the same conversation must be blocked")
	}

	if _, ok := lock.Acquire(ctx, "conv-2"); !ok {
		t.Fatal("other conversations must not be affected")
	}

	release()
	if _, ok := lock.Acquire(ctx, "conv-1"); !ok {
		t.Fatal("acquire should succeed after release")
	}
}

func TestTurnLockNilClientNoops(t *testing.T) {
	lock := NewTurnLock(nil)
	release, ok := lock.Acquire(context.Background(), "conv-1")
	if !ok {
		t.Fatal("disabled lock must always acquire")
	}
	release()
}
