package watermark

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "rss-digest:watermarks"

// RedisStore keeps the marks in a single hash.
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(ctx context.Context, addr, key string) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	if key == "" {
		key = DefaultRedisKey
	}

	slog.Debug("Connected to Redis", "addr", addr, "key", key)

	return &RedisStore{client: client, key: key}, nil
}

func (s *RedisStore) Load(ctx context.Context) Marks {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		slog.Warn("Failed to load watermarks from Redis, starting without cutoffs", "key", s.key, "error", err)
		return Marks{}
	}
	return Marks(values).Clone()
}

// Save replaces the hash inside MULTI/EXEC so readers never see a partial set.
func (s *RedisStore) Save(ctx context.Context, marks Marks) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(marks) > 0 {
			values := make(map[string]any, len(marks))
			for source, guid := range marks {
				values[source] = guid
			}
			pipe.HSet(ctx, s.key, values)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save watermarks to Redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
