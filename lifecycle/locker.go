package lifecycle

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockBusy is returned by a Locker when another holder owns the key.
var ErrLockBusy = errors.New("lock busy")

// Locker serializes writers on one key. Obtain returns a release func that
// must be called once the guarded work is done.
type Locker interface {
	Obtain(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// LocalLocker is an in-process Locker used when no Redis is configured.
type LocalLocker struct {
	mu   sync.Mutex
	keys map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{keys: make(map[string]*keyLock)}
}

// Obtain blocks until the key is free or ctx is done. ttl is ignored.
func (l *LocalLocker) Obtain(ctx context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	k, ok := l.keys[key]
	if !ok {
		k = &keyLock{ch: make(chan struct{}, 1)}
		l.keys[key] = k
	}
	k.refs++
	l.mu.Unlock()

	select {
	case k.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(key, k)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-k.ch
			l.drop(key, k)
		})
	}, nil
}

func (l *LocalLocker) drop(key string, k *keyLock) {
	l.mu.Lock()
	k.refs--
	if k.refs == 0 {
		delete(l.keys, key)
	}
	l.mu.Unlock()
}
