package chat

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const turnLockTTL = 30 * time.Second

// TurnLock serializes turns per conversation with a redis SET NX lock, so
// two concurrent messages in one session never interleave their side
// effects. With no redis configured the lock degrades to a no-op and the
// store-level conditional writes remain the only guard.
type TurnLock struct {
	client *redis.Client
}

func NewTurnLock(client *redis.Client) *TurnLock {
	return &TurnLock{client: client}
}

// Acquire takes the per-conversation lock. Returns a release func and
// whether the lock was obtained. Redis errors fail open: a broken lock
// backend must not take the concierge down.
func (l *TurnLock) Acquire(ctx context.Context, conversationID string) (release func(), acquired bool) {
	if l == nil || l.client == nil {
		return func() {}, true
	}

	key := "concierge:turnlock:" + conversationID
	ok, err := l.client.SetNX(ctx, key, "1", turnLockTTL).Result()
	if err != nil {
		return func() {}, true
	}
	if !ok {
		return func() {}, false
	}
	return func() {
		_ = l.client.Del(context.WithoutCancel(ctx), key).Err()
	}, true
}
