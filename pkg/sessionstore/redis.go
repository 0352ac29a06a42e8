package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "authsession:"

// RedisStore is a server-side store persisting one visitor's record as a
// single CBOR blob in redis. Like the cookie store, every mutation writes
// the whole record back; there are no partial updates.
type RedisStore struct {
	ctx       context.Context
	client    *redis.Client
	sessionID string
	ttl       time.Duration
	values    map[string]string
}

// NewRedisStore binds the store to one visitor session. The record is
// fetched lazily on first access. Instances are request-scoped and not
// safe for concurrent use.
func NewRedisStore(ctx context.Context, client *redis.Client, sessionID string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		ctx:       ctx,
		client:    client,
		sessionID: sessionID,
		ttl:       ttl,
	}
}

func (s *RedisStore) key() string {
	return redisKeyPrefix + s.sessionID
}

// ensureStarted fetches and decodes the stored record exactly once. A
// missing key or an undecodable blob both start an empty record.
func (s *RedisStore) ensureStarted() {
	if s.values != nil {
		return
	}
	s.values = make(map[string]string)

	blob, err := s.client.Get(s.ctx, s.key()).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("unable to load session record", "session_id", s.sessionID, "error", err)
		}
		return
	}

	if err := cbor.Unmarshal(blob, &s.values); err != nil {
		slog.Warn("discarding undecodable session record", "session_id", s.sessionID, "error", err)
		s.values = make(map[string]string)
	}
}

func (s *RedisStore) Get(field string) (string, bool) {
	s.ensureStarted()
	value, ok := s.values[field]
	return value, ok
}

func (s *RedisStore) Set(field, value string) error {
	s.ensureStarted()
	s.values[field] = value
	return s.persist()
}

func (s *RedisStore) Delete(field string) error {
	s.ensureStarted()
	if _, ok := s.values[field]; !ok {
		return nil
	}
	delete(s.values, field)
	return s.persist()
}

func (s *RedisStore) persist() error {
	blob, err := cbor.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("unable to encode session record: %w", err)
	}
	if err := s.client.Set(s.ctx, s.key(), blob, s.ttl).Err(); err != nil {
		return fmt.Errorf("unable to store session record: %w", err)
	}
	return nil
}
