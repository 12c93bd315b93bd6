package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/eldercare-platform/eldercare/pkg/metrics"
)

const keyPrefix = "eldercare:session:"

// RedisStore keeps sessions as JSON strings with a TTL.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a store. A non-positive ttl falls back to one hour.
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Issue stores s under a fresh uuid token.
func (r *RedisStore) Issue(ctx context.Context, s Session) (string, error) {
	body, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	token := uuid.NewString()
	if err := r.client.Set(ctx, keyPrefix+token, body, r.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Lookup resolves token.
func (r *RedisStore) Lookup(ctx context.Context, token string) (Session, error) {
	body, err := r.client.Get(ctx, keyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.RecordSessionLookup("miss")
		return Session{}, ErrUnknownToken
	}
	if err != nil {
		metrics.RecordSessionLookup("error")
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(body, &s); err != nil {
		metrics.RecordSessionLookup("error")
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	metrics.RecordSessionLookup("hit")
	return s, nil
}

// Revoke deletes token.
func (r *RedisStore) Revoke(ctx context.Context, token string) error {
	return r.client.Del(ctx, keyPrefix+token).Err()
}
