package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// IdempotencyLocker guards one in-flight request per idempotency key.
// Release only removes the lock while it still holds the token Acquire returned.
type IdempotencyLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, acquired bool, err error)
	Release(ctx context.Context, key, token string) error
}

// StatusThrottle limits how often a provider is asked about one transaction
type StatusThrottle interface {
	Allow(ctx context.Context, key string, interval time.Duration) (bool, error)
}

// RedisStore implements IdempotencyLocker and StatusThrottle with SET NX keys
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

func (s *RedisStore) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.New().String()
	ok, err := s.client.SetNX(ctx, "idempotency:"+key, token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

func (s *RedisStore) Release(ctx context.Context, key, token string) error {
	return releaseLock.Run(ctx, s.client, []string{"idempotency:" + key}, token).Err()
}

func (s *RedisStore) Allow(ctx context.Context, key string, interval time.Duration) (bool, error) {
	return s.client.SetNX(ctx, "status-check:"+key, 1, interval).Result()
}

// Ping reports whether Redis answers
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
