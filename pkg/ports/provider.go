package ports

import (
	"context"
	"net/url"

	"github.com/nbrandt/espalier/pkg/domain"
)

// SkillProvider is a side-effecting collaborator a block delegates to:
// a data-exchange call, a search backend, or a validation service.
type SkillProvider interface {
	// Name returns the component name the provider is registered under.
	Name() string

	// Call performs the side effect with the given arguments and
	// returns its result fields.
	Call(ctx context.Context, args map[string]any) (map[string]any, error)

	// Search returns candidate nodes for a query. Providers that do not
	// support search return an empty slice.
	Search(ctx context.Context, userID, query string) ([]domain.Node, error)
}

// OAuthProvider builds authorization redirects and exchanges their
// callbacks for tokens. The provider embeds the encoded redirect state
// into the authorize url itself, so a callback can be correlated back
// to the paused conversation.
type OAuthProvider interface {
	Name() string

	// AuthorizeURL builds the authorization url for this conversation,
	// embedding the trimmed redirect state as the "state" parameter.
	AuthorizeURL(ctx context.Context, state *domain.ChannelState) (string, error)

	// Exchange swaps a callback authorization code for a token.
	Exchange(ctx context.Context, code string) (*domain.OAuthToken, error)

	// Refresh obtains a fresh token from an expired one. The stored
	// token must only be replaced when Refresh succeeds.
	Refresh(ctx context.Context, token *domain.OAuthToken) (*domain.OAuthToken, error)

	// Expired reports whether the token needs refreshing.
	Expired(token *domain.OAuthToken) bool
}

// PaymentProvider builds payment redirects and confirms their
// callbacks, following the same state-token correlation protocol as
// OAuthProvider.
type PaymentProvider interface {
	Name() string

	// PaymentURL builds the payment url for this conversation and
	// amount, embedding the trimmed redirect state.
	PaymentURL(ctx context.Context, state *domain.ChannelState, amount float64, currency string) (string, error)

	// Confirm validates the callback parameters and reports the
	// payment outcome.
	Confirm(ctx context.Context, params url.Values) (*domain.PaymentResult, error)
}
