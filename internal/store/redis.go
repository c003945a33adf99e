// ABOUTME: Redis-backed session store
// ABOUTME: Keeps the record in one hash so all keys share a single TTL

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisTTL bounds how long an idle session survives in Redis
const DefaultRedisTTL = 30 * 24 * time.Hour

// DefaultRedisPrefix namespaces the session hash
const DefaultRedisPrefix = "cashly"

// RedisStore keeps the record in a Redis hash
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore wraps an existing client
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix, ttl: DefaultRedisTTL}
}

// NewRedisStoreFromURL parses a redis:// URL and connects lazily
func NewRedisStoreFromURL(rawURL, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return NewRedisStore(redis.NewClient(opts), prefix), nil
}

// Key returns the hash key holding the record
func (s *RedisStore) Key() string {
	return s.prefix + ":session"
}

// Ping checks connectivity
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the underlying connection pool
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// Load reads the record hash
func (s *RedisStore) Load(ctx context.Context) (*Record, error) {
	fields, err := s.rdb.HGetAll(ctx, s.Key()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session from redis: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	var rec Record
	if raw, ok := fields[KeyUser]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.User); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, KeyUser, err)
		}
	}
	if raw, ok := fields[KeyAuthStatus]; ok {
		status, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, KeyAuthStatus, err)
		}
		rec.AuthStatus = status
	}
	if raw, ok := fields[KeyCredential]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.Credential); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, KeyCredential, err)
		}
	}
	if raw, ok := fields["savedAt"]; ok {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			rec.SavedAt = t
		}
	}
	return &rec, nil
}

// Save writes every key in one transaction and refreshes the TTL
func (s *RedisStore) Save(ctx context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("nil session record")
	}
	user, err := json.Marshal(rec.User)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	cred, err := json.Marshal(rec.Credential)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}

	key := s.Key()
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			KeyUser, string(user),
			KeyAuthStatus, strconv.FormatBool(rec.AuthStatus),
			KeyCredential, string(cred),
			"savedAt", time.Now().UTC().Format(time.RFC3339Nano),
		)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write session to redis: %w", err)
	}
	return nil
}

// Clear deletes the record hash
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.rdb.Del(ctx, s.Key()).Err(); err != nil {
		return fmt.Errorf("failed to clear session in redis: %w", err)
	}
	return nil
}
