package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

var ErrRecordBusy = errors.New("registro em edicao por outra sessao, tente novamente")

// Locker serializes writes for one record id.
type Locker interface {
	Lock(ctx context.Context, id string) (unlock func(), err error)
}

// RedisLocker holds the lock in Redis so several server processes share it.
type RedisLocker struct {
	client *redislock.Client
	ttl    time.Duration
	retry  redislock.RetryStrategy
}

func NewRedisLocker(rdb *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{
		client: redislock.New(rdb),
		ttl:    ttl,
		retry:  redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 40),
	}
}

func (l *RedisLocker) Lock(ctx context.Context, id string) (func(), error) {
	lock, err := l.client.Obtain(ctx, "lock:record:"+id, l.ttl, &redislock.Options{RetryStrategy: l.retry})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrRecordBusy
	}
	if err != nil {
		return nil, fmt.Errorf("obtain record lock: %w", err)
	}
	return func() {
		// Release with a fresh context: the request may already be cancelled.
		_ = lock.Release(context.Background())
	}, nil
}

// LocalLocker is an in-process lock table, one mutex per record id.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*keyLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, id string) (func(), error) {
	l.mu.Lock()
	k, ok := l.locks[id]
	if !ok {
		k = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[id] = k
	}
	k.refs++
	l.mu.Unlock()

	select {
	case k.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(id, k, false)
		return nil, ctx.Err()
	}
	return func() { l.release(id, k, true) }, nil
}

func (l *LocalLocker) release(id string, k *keyLock, held bool) {
	if held {
		<-k.ch
	}
	l.mu.Lock()
	k.refs--
	if k.refs == 0 {
		delete(l.locks, id)
	}
	l.mu.Unlock()
}
