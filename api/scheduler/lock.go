package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "lock:"

// releaseScript deletes the key only if it still belongs to the caller
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLock is a Locker shared by every instance that talks to the same redis
type RedisLock struct {
	client redis.Cmdable
}

// NewRedisLock returns a lock backed by client
func NewRedisLock(client redis.Cmdable) *RedisLock {
	return &RedisLock{client: client}
}

// TryAcquireLock sets the key with NX and a PX expiry
func (l *RedisLock) TryAcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	return l.client.SetNX(ctx, redisKeyPrefix+name, owner, ttl).Result()
}

// ReleaseLock removes the key if owner still holds it
func (l *RedisLock) ReleaseLock(ctx context.Context, name, owner string) error {
	return releaseScript.Run(ctx, l.client, []string{redisKeyPrefix + name}, owner).Err()
}

// LocalLock is a Locker for a single process
type LocalLock struct {
	mu    sync.Mutex
	held  map[string]localHold
	clock func() time.Time
}

type localHold struct {
	owner   string
	expires time.Time
}

// NewLocalLock returns an empty in-process lock
func NewLocalLock() *LocalLock {
	return &LocalLock{held: make(map[string]localHold), clock: time.Now}
}

// TryAcquireLock succeeds if the lock is free, expired, or already owned by owner
func (l *LocalLock) TryAcquireLock(_ context.Context, name, owner string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.clock()
	if h, ok := l.held[name]; ok && h.owner != owner && now.Before(h.expires) {
		return false, nil
	}
	l.held[name] = localHold{owner: owner, expires: now.Add(ttl)}
	return true, nil
}

// ReleaseLock frees the lock if owner holds it
func (l *LocalLock) ReleaseLock(_ context.Context, name, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if h, ok := l.held[name]; ok && h.owner == owner {
		delete(l.held, name)
	}
	return nil
}
