package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ms-events/internal/logger"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// PublishKey guards manifest replacement
const PublishKey = "lock:publish"

var ErrHeld = errors.New("lock is held by another owner")

// Locker hands out exclusive, expiring locks
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// RedisLocker shares locks between server replicas
type RedisLocker struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewRedisLocker(client *redis.Client, ttl time.Duration, log *logger.Logger) *RedisLocker {
	return &RedisLocker{Client: client, TTL: ttl, Logger: log}
}

// Acquire takes the key with SETNX. The returned release only deletes the key
// while it still carries this owner's token.
func (r *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	owner := uuid.NewString()
	ok, err := r.Client.SetNX(ctx, key, owner, r.TTL).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, ErrHeld
	}
	return func() {
		if err := r.unlock(context.Background(), key, owner); err != nil {
			r.Logger.Warn("REDIS", fmt.Sprintf("Failed to release %s: %v", key, err))
		}
	}, nil
}

func (r *RedisLocker) unlock(ctx context.Context, key, owner string) error {
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // expired
	}
	if err != nil {
		return err
	}
	if val == owner {
		return r.Client.Del(ctx, key).Err()
	}
	return nil
}

// LocalLocker is used when redis is disabled. Locks expire after TTL like the redis ones.
type LocalLocker struct {
	TTL   time.Duration
	mu    sync.Mutex
	held  map[string]localEntry
	clock func() time.Time
}

type localEntry struct {
	owner   string
	expires time.Time
}

func NewLocalLocker(ttl time.Duration) *LocalLocker {
	return &LocalLocker{TTL: ttl, held: make(map[string]localEntry), clock: time.Now}
}

func (l *LocalLocker) Acquire(_ context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return nil, ErrHeld
	}
	owner := uuid.NewString()
	l.held[key] = localEntry{owner: owner, expires: now.Add(l.TTL)}

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if e, ok := l.held[key]; ok && e.owner == owner {
			delete(l.held, key)
		}
	}, nil
}
