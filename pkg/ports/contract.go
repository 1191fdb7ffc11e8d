package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbrandt/espalier/pkg/domain"
)

// RunStateStoreContract verifies that a StateStore implementation
// adheres to the interface contract. Every adapter runs this suite.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	channelID := "contract-channel-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewChannelState("u1", "op1", channelID)
		state.BlockID = "b1"
		state.Set("name", "Ada")

		require.NoError(t, store.Save(ctx, state))

		loaded, err := store.Load(ctx, channelID)
		require.NoError(t, err)
		assert.Equal(t, "b1", loaded.BlockID)
		assert.Equal(t, "Ada", loaded.Data["name"])
		assert.Equal(t, "u1", loaded.UserID)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "missing-"+channelID)
		assert.ErrorIs(t, err, domain.ErrStateNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, domain.NewChannelState("u1", "op1", channelID)))
		require.NoError(t, store.Delete(ctx, channelID))

		_, err := store.Load(ctx, channelID)
		assert.ErrorIs(t, err, domain.ErrStateNotFound)
	})

	t.Run("List", func(t *testing.T) {
		id1 := channelID + "-1"
		id2 := channelID + "-2"
		require.NoError(t, store.Save(ctx, domain.NewChannelState("u1", "op1", id1)))
		require.NoError(t, store.Save(ctx, domain.NewChannelState("u2", "op1", id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		channels, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, channels, id1)
		assert.Contains(t, channels, id2)
	})
}

// RunTokenStoreContract verifies a TokenStore implementation.
func RunTokenStoreContract(t *testing.T, store TokenStore) {
	ctx := context.Background()

	t.Run("Save and Load", func(t *testing.T) {
		tok := &domain.OAuthToken{
			AccessToken:  "at-1",
			RefreshToken: "rt-1",
			TokenType:    "Bearer",
			Expiry:       time.Now().Add(time.Hour).UTC().Truncate(time.Second),
		}
		require.NoError(t, store.Save(ctx, "com.example.calendar", "u1", tok))

		loaded, err := store.Load(ctx, "com.example.calendar", "u1")
		require.NoError(t, err)
		assert.Equal(t, "at-1", loaded.AccessToken)
		assert.Equal(t, "rt-1", loaded.RefreshToken)
	})

	t.Run("Keyed by component and user", func(t *testing.T) {
		_, err := store.Load(ctx, "com.example.calendar", "someone-else")
		assert.ErrorIs(t, err, domain.ErrTokenNotFound)

		_, err = store.Load(ctx, "com.example.other", "u1")
		assert.ErrorIs(t, err, domain.ErrTokenNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, "com.example.tmp", "u1", &domain.OAuthToken{AccessToken: "x"}))
		require.NoError(t, store.Delete(ctx, "com.example.tmp", "u1"))

		_, err := store.Load(ctx, "com.example.tmp", "u1")
		assert.ErrorIs(t, err, domain.ErrTokenNotFound)
	})
}
