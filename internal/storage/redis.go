package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/replay-engine/pkg/replay"
)

// indexKey is the set holding every record key.
const indexKey = "games"

// RedisStore keeps each record as a JSON blob with an index set for listing.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// Ensure RedisStore implements Store interface
var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to redisURL, either a redis:// URL or a bare host:port. A zero ttl
// keeps records forever.
func NewRedisStore(redisURL string, ttl time.Duration, logger *slog.Logger) (*RedisStore, error) {
	opts, err := parseRedisURL(redisURL)
	if err != nil {
		return nil, err
	}
	return NewRedisStoreFromClient(redis.NewClient(opts), ttl, logger), nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, ttl time.Duration, logger *slog.Logger) *RedisStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &RedisStore{client: client, logger: logger, ttl: ttl}
}

func parseRedisURL(redisURL string) (*redis.Options, error) {
	if redisURL == "" {
		return nil, errors.New("redis url is empty")
	}
	opts, err := redis.ParseURL(redisURL)
	if err == nil {
		return opts, nil
	}
	// Plain host:port as used in local development.
	return &redis.Options{Addr: redisURL}, nil
}

// Health and lifecycle methods

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStore) WaitForConnection(ctx context.Context, attempts int, delay time.Duration) error {
	for i := 0; i < attempts; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(delay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}
	return fmt.Errorf("redis did not become available after %d attempts", attempts)
}

// Record operations

func (r *RedisStore) SaveRecord(ctx context.Context, rec *replay.GameRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	key := Key(rec.ReplayID, rec.PlayerPerspective)
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, r.ttl)
		pipe.SAdd(ctx, indexKey, key)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save record", "key", key, "error", err)
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

func (r *RedisStore) LoadRecord(ctx context.Context, replayID, perspective string) (*replay.GameRecord, error) {
	key := Key(replayID, perspective)
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		r.logger.Error("Failed to load record", "key", key, "error", err)
		return nil, fmt.Errorf("failed to load record: %w", err)
	}

	var rec replay.GameRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", key, err)
	}
	return &rec, nil
}

func (r *RedisStore) DeleteRecord(ctx context.Context, replayID, perspective string) error {
	key := Key(replayID, perspective)
	var del *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, key)
		pipe.SRem(ctx, indexKey, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	if del.Val() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RedisStore) HasRecord(ctx context.Context, replayID, perspective string) (bool, error) {
	n, err := r.client.Exists(ctx, Key(replayID, perspective)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check record: %w", err)
	}
	return n > 0, nil
}

// ListRecords drops index entries whose record has expired.
func (r *RedisStore) ListRecords(ctx context.Context) ([]Summary, error) {
	keys, err := r.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	out := make([]Summary, 0, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	var stale []any
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, keys[i])
			continue
		}
		var rec replay.GameRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			r.logger.Warn("Skipping undecodable record", "key", keys[i], "error", err)
			continue
		}
		out = append(out, Summarize(&rec))
	}

	if len(stale) > 0 {
		if err := r.client.SRem(ctx, indexKey, stale...).Err(); err != nil {
			r.logger.Warn("Failed to prune expired index entries", "error", err)
		}
	}

	sortSummaries(out)
	return out, nil
}
