package stockstate

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"gasflow/lifecycle"
)

// Locker is a lifecycle.Locker backed by Redis, so writers in separate
// processes are serialized on the same key.
type Locker struct {
	client *redislock.Client
	retry  redislock.RetryStrategy
}

// NewLocker retries a busy key every 100ms until the context is done or
// about two seconds have passed.
func NewLocker(client *redis.Client) *Locker {
	return &Locker{
		client: redislock.New(client),
		retry:  redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 20),
	}
}

var _ lifecycle.Locker = (*Locker)(nil)

func (l *Locker) Obtain(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	lock, err := l.client.Obtain(ctx, key, ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, lifecycle.ErrLockBusy
	}
	if err != nil {
		return nil, err
	}
	return func() {
		// The guarded work may have outlived ctx.
		if err := lock.Release(context.Background()); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			log.Printf("stockstate: release lock %s: %v", key, err)
		}
	}, nil
}
