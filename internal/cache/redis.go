package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStorage adapts a Redis client to fiber.Storage so rate-limit windows
// are shared across instances. When no Redis is configured the limiter falls
// back to its in-memory storage.
type RedisStorage struct {
	client *redis.Client
}

// NewRedisStorage connects to the Redis at the given URL and verifies the
// connection.
func NewRedisStorage(url string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &RedisStorage{client: client}, nil
}

// Get retrieves the value for the key, or nil when the key does not exist.
func (s *RedisStorage) Get(key string) ([]byte, error) {
	val, err := s.client.Get(context.Background(), key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Set stores the value under the key with an optional expiration.
func (s *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	if exp < 0 {
		exp = 0
	}
	return s.client.Set(context.Background(), key, val, exp).Err()
}

// Delete removes the key.
func (s *RedisStorage) Delete(key string) error {
	return s.client.Del(context.Background(), key).Err()
}

// Reset flushes the whole database.
func (s *RedisStorage) Reset() error {
	return s.client.FlushDB(context.Background()).Err()
}

// Close releases the underlying client.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}
