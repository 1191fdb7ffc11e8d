package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbrandt/espalier/pkg/adapters/redis"
	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

func testClient(t *testing.T) *backend.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return backend.NewClient(&backend.Options{Addr: mr.Addr()})
}

func TestStoreContract(t *testing.T) {
	store := redis.NewFromClient(testClient(t))
	ports.RunStateStoreContract(t, store)
}

func TestTokenStoreContract(t *testing.T) {
	store := redis.NewTokenStore(testClient(t), "")
	ports.RunTokenStoreContract(t, store)
}

func TestStoreTTLExpiration(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})

	store := redis.NewFromClient(client, redis.WithTTL(time.Second))
	ctx := context.Background()

	state := domain.NewChannelState("u1", "op1", "ch-ttl")
	state.BlockID = "b1"
	require.NoError(t, store.Save(ctx, state))

	channels, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, channels, "ch-ttl")

	// miniredis advances TTLs manually.
	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "ch-ttl")
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
}

func TestStorePrefixIsolation(t *testing.T) {
	client := testClient(t)
	a := redis.NewFromClient(client, redis.WithPrefix("tenant-a:"))
	b := redis.NewFromClient(client, redis.WithPrefix("tenant-b:"))
	ctx := context.Background()

	require.NoError(t, a.Save(ctx, domain.NewChannelState("u1", "op1", "ch1")))

	_, err := b.Load(ctx, "ch1")
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
}
