package ports

import (
	"context"
	"time"

	"github.com/nbrandt/espalier/pkg/domain"
)

// StateStore persists channel cursors. Host binders typically delegate
// LoadState/SaveState to one of these.
type StateStore interface {
	// Save persists the cursor under its own channel id.
	Save(ctx context.Context, state *domain.ChannelState) error

	// Load retrieves the cursor for a channel id.
	// Returns domain.ErrStateNotFound when the channel is unknown.
	Load(ctx context.Context, channelID string) (*domain.ChannelState, error)

	// Delete removes the cursor for a channel id.
	Delete(ctx context.Context, channelID string) error

	// List returns the channel ids with persisted state.
	List(ctx context.Context) ([]string, error)
}

// TokenStore persists OAuth tokens keyed by (component, user).
type TokenStore interface {
	// Save persists a token. Callers must only overwrite a stored token
	// with a successfully obtained one.
	Save(ctx context.Context, component, userID string, token *domain.OAuthToken) error

	// Load retrieves a token, or domain.ErrTokenNotFound.
	Load(ctx context.Context, component, userID string) (*domain.OAuthToken, error)

	// Delete removes a token.
	Delete(ctx context.Context, component, userID string) error
}

// UnlockFunc releases an acquired lock.
type UnlockFunc func(ctx context.Context) error

// ChannelLocker serializes steps per channel across service replicas.
// The engine itself assumes the caller holds the lock for the duration
// of one step.
type ChannelLocker interface {
	// Lock blocks until the lock for the key is acquired, the context
	// is canceled, or the TTL expires. The returned UnlockFunc MUST be
	// called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
