package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker guards a scan against overlapping runs. TryLock reports false
// when another holder owns key.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (unlock func(context.Context) error, ok bool, err error)
}

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another runner is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type RedisLock struct {
	rdb    redis.UniversalClient
	prefix string
}

func NewRedisLock(rdb redis.UniversalClient) *RedisLock {
	return &RedisLock{rdb: rdb, prefix: "scan-lock:"}
}

func (l *RedisLock) TryLock(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	fullKey := l.prefix + key
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil || !ok {
		return nil, false, err
	}

	unlock := func(ctx context.Context) error {
		return releaseScript.Run(ctx, l.rdb, []string{fullKey}, token).Err()
	}
	return unlock, true, nil
}

// LocalLock is an in-process Locker for single-instance deployments
// without Redis.
type LocalLock struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

func NewLocalLock() *LocalLock {
	return &LocalLock{held: make(map[string]time.Time), now: time.Now}
}

func (l *LocalLock) TryLock(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if until, ok := l.held[key]; ok && now.Before(until) {
		return nil, false, nil
	}
	until := now.Add(ttl)
	l.held[key] = until

	unlock := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.held[key].Equal(until) {
			delete(l.held, key)
		}
		return nil
	}
	return unlock, true, nil
}
