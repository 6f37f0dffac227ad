// Redis-backed session store. Sessions are stored as JSON with an embedded
// version; compare-and-swap runs under WATCH so concurrent transitions for
// the same user cannot commit from stale state. TTL is native to Redis, so
// idle sessions expire without a janitor.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ezoncs/salonbot/internal/models"
)

// DefaultKeyPrefix namespaces session keys in Redis.
const DefaultKeyPrefix = "salonbot:session:"

// RedisOpts holds configuration options for the Redis store.
type RedisOpts struct {
	TTL    time.Duration
	Prefix string
}

// RedisOption configures the Redis store.
type RedisOption func(*RedisOpts)

// WithRedisTTL sets the expiration applied on every save.
// A zero TTL keeps sessions until explicitly cleared.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(o *RedisOpts) { o.TTL = ttl }
}

// WithRedisPrefix overrides the key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(o *RedisOpts) { o.Prefix = prefix }
}

// RedisStore implements Store on a Redis backend.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// redisRecord is the stored JSON envelope: the session plus its version.
type redisRecord struct {
	Session models.Session `json:"session"`
	Version uint64         `json:"version"`
}

// NewRedisStore connects to Redis at the given address.
func NewRedisStore(addr, password string, db int, opts ...RedisOption) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return NewRedisStoreFromClient(client, opts...)
}

// NewRedisStoreFromClient wraps an existing Redis client.
func NewRedisStoreFromClient(client *redis.Client, opts ...RedisOption) *RedisStore {
	cfg := RedisOpts{
		TTL:    DefaultTTL,
		Prefix: DefaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("session.NewRedisStoreFromClient created", "ttl", cfg.TTL, "prefix", cfg.Prefix)
	return &RedisStore{client: client, prefix: cfg.Prefix, ttl: cfg.TTL}
}

func (s *RedisStore) key(sessionID string) string {
	return s.prefix + sessionID
}

// Get returns the stored session and its version, or a default session with
// version zero when no record exists.
func (s *RedisStore) Get(ctx context.Context, sessionID string) (models.Session, uint64, error) {
	val, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.NewSession(sessionID), 0, nil
		}
		return models.Session{}, 0, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	var rec redisRecord
	if err := json.Unmarshal([]byte(val), &rec); err != nil {
		return models.Session{}, 0, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	return rec.Session, rec.Version, nil
}

// Save commits a session at the given read version under WATCH. A concurrent
// write to the same key, or a version mismatch, yields ErrVersionConflict.
func (s *RedisStore) Save(ctx context.Context, sessionID string, sess models.Session, version uint64) error {
	key := s.key(sessionID)

	txn := func(tx *redis.Tx) error {
		stored := uint64(0)
		val, err := tx.Get(ctx, key).Result()
		switch {
		case err == nil:
			var rec redisRecord
			if decodeErr := json.Unmarshal([]byte(val), &rec); decodeErr != nil {
				return fmt.Errorf("failed to decode session %s: %w", sessionID, decodeErr)
			}
			stored = rec.Version
		case errors.Is(err, redis.Nil):
			// No record yet; creation requires version zero.
		default:
			return fmt.Errorf("failed to load session %s: %w", sessionID, err)
		}

		if stored != version {
			return ErrVersionConflict
		}

		data, err := json.Marshal(redisRecord{Session: sess, Version: version + 1})
		if err != nil {
			return fmt.Errorf("failed to encode session %s: %w", sessionID, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txn, key)
	if errors.Is(err, redis.TxFailedErr) {
		slog.Debug("session.RedisStore Save watch aborted", "session_id", sessionID)
		return ErrVersionConflict
	}
	return err
}

// Clear removes a session entirely.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear session %s: %w", sessionID, err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
