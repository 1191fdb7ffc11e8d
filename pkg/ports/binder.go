package ports

import (
	"context"

	"github.com/nbrandt/espalier/pkg/domain"
)

// Binder is the host's side of one conversation. The engine calls it to
// load and persist the channel cursor, resolve skills and components,
// deliver replies, and delegate intent decisions.
//
// A Binder is scoped to a single channel; the engine never passes
// channel ids alongside it.
type Binder interface {
	// LoadState returns the persisted cursor for this channel, creating
	// an idle one if none exists yet.
	LoadState(ctx context.Context) (*domain.ChannelState, error)

	// SaveState persists the cursor. Last write wins per channel.
	SaveState(ctx context.Context, state *domain.ChannelState) error

	// LoadOAuthToken returns the stored token for (component, user), or
	// domain.ErrTokenNotFound.
	LoadOAuthToken(ctx context.Context, component, userID string) (*domain.OAuthToken, error)

	// SaveOAuthToken persists a token for (component, user).
	SaveOAuthToken(ctx context.Context, component, userID string, token *domain.OAuthToken) error

	// GetSkill resolves a package id to a skill definition, or
	// domain.ErrSkillNotFound.
	GetSkill(ctx context.Context, pkg string) (*domain.Skill, error)

	// PostMessage delivers one reply turn to the channel.
	PostMessage(ctx context.Context, out *domain.OutputStatement) error

	// CancelIntent reports whether the statement expresses an explicit
	// cancellation (beyond the flag the transport may have set).
	CancelIntent(ctx context.Context, st *domain.InputStatement) bool

	// SkillIntent classifies the statement into a skill package id.
	// Returns false when no intent is recognized.
	SkillIntent(ctx context.Context, st *domain.InputStatement) (string, bool)

	// StandardInput handles a statement outside any skill. The engine
	// passes an empty output statement to fill; a nil return means the
	// host produced no reply.
	StandardInput(ctx context.Context, in *domain.InputStatement, out *domain.OutputStatement) (*domain.OutputStatement, error)

	// Components resolves component names to constructed providers.
	Components() ComponentResolver
}

// ComponentResolver is the typed registry lookup for providers. It is
// built once at service start and passed by reference; there is no
// package-level registry.
type ComponentResolver interface {
	SkillProvider(name string) (SkillProvider, bool)
	OAuthProvider(name string) (OAuthProvider, bool)
	PaymentProvider(name string) (PaymentProvider, bool)

	// PaymentProviders lists every registered payment provider, in
	// registration order.
	PaymentProviders() []PaymentProvider
}
