package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/lemon/pkg/adapters/redis"
	"github.com/aretw0/lemon/pkg/domain"
	"github.com/aretw0/lemon/pkg/ports/tests"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	tests.StorageContractTest(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Second))
	ctx := context.Background()

	require.NoError(t, store.SetItem(ctx, "s-ttl", "visited-keys", `["intro"]`))

	mr.FastForward(2 * time.Second)

	_, err := store.GetItem(ctx, "s-ttl", "visited-keys")
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestRedisStore_TTL_RefreshedOnWrite(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithTTL(2*time.Second))
	ctx := context.Background()

	require.NoError(t, store.SetItem(ctx, "s-refresh", "visited-keys", `["intro"]`))
	mr.FastForward(1500 * time.Millisecond)
	require.NoError(t, store.SetItem(ctx, "s-refresh", "images", `[]`))
	mr.FastForward(1500 * time.Millisecond)

	val, err := store.GetItem(ctx, "s-refresh", "visited-keys")
	require.NoError(t, err)
	assert.Equal(t, `["intro"]`, val)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.SetItem(ctx, "my-session", "images", `[]`))
	assert.True(t, mr.Exists("custom:app:my-session"), "Expected hash with custom prefix to exist")
}

func TestRedisStore_Ping(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)
	assert.NoError(t, store.Ping(context.Background()))
}
