package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ttl), mr
}

func TestRedisStore_IssueAndLookup(t *testing.T) {
	store, mr := newRedisStore(t, 30*time.Minute)
	ctx := context.Background()

	token, err := store.Issue(ctx, Session{UserID: 4, Role: "admin"})
	require.NoError(t, err)
	assert.Len(t, token, 36)

	assert.True(t, mr.Exists(keyPrefix+token))
	assert.Equal(t, 30*time.Minute, mr.TTL(keyPrefix+token))

	s, err := store.Lookup(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, Session{UserID: 4, Role: "admin"}, s)
}

func TestRedisStore_Expiry(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	ctx := context.Background()

	token, err := store.Issue(ctx, Session{UserID: 1, Role: "elderly"})
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = store.Lookup(ctx, token)
	assert.True(t, errors.Is(err, ErrUnknownToken))
}

func TestRedisStore_UnknownAndRevoke(t *testing.T) {
	store, _ := newRedisStore(t, 0)
	ctx := context.Background()

	_, err := store.Lookup(ctx, "nope")
	assert.True(t, errors.Is(err, ErrUnknownToken))

	token, err := store.Issue(ctx, Session{UserID: 2, Role: "caregiver"})
	require.NoError(t, err)
	require.NoError(t, store.Revoke(ctx, token))

	_, err = store.Lookup(ctx, token)
	assert.True(t, errors.Is(err, ErrUnknownToken))
}

func TestRedisStore_CorruptValue(t *testing.T) {
	store, mr := newRedisStore(t, time.Minute)
	require.NoError(t, mr.Set(keyPrefix+"bad", "{not json"))

	_, err := store.Lookup(context.Background(), "bad")
	assert.Error(t, err)
	assert.False(t, errors.Is(err, ErrUnknownToken))
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	token, err := store.Issue(ctx, Session{UserID: 3, Role: "clinician"})
	require.NoError(t, err)

	s, err := store.Lookup(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, int64(3), s.UserID)

	now = now.Add(time.Minute)
	_, err = store.Lookup(ctx, token)
	assert.True(t, errors.Is(err, ErrUnknownToken))

	token, _ = store.Issue(ctx, Session{UserID: 3})
	require.NoError(t, store.Revoke(ctx, token))
	_, err = store.Lookup(ctx, token)
	assert.True(t, errors.Is(err, ErrUnknownToken))
}

func TestMemoryStore_SweepsUnreadTokens(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		_, err := store.Issue(ctx, Session{UserID: int64(i)})
		require.NoError(t, err)
	}
	assert.Equal(t, 100, store.Len())

	now = now.Add(2 * time.Minute)
	fresh, err := store.Issue(ctx, Session{UserID: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	s, err := store.Lookup(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), s.UserID)
}
