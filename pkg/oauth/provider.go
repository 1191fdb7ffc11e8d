// Package oauth implements ports.OAuthProvider on top of a standard
// OAuth2 authorization-code flow. The provider embeds the encrypted
// redirect state token as the flow's "state" parameter, so the
// callback transport can correlate the redirect back to its paused
// conversation before resuming the block.
package oauth

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
	"github.com/nbrandt/espalier/pkg/statetoken"
)

// Provider adapts an oauth2.Config to the engine's provider contract.
type Provider struct {
	name   string
	config *oauth2.Config
	codec  *statetoken.Codec
	leeway time.Duration
}

// Option configures a Provider.
type Option func(*Provider)

// WithExpiryLeeway treats tokens expiring within d as already expired,
// so refresh happens before the access token actually dies mid-call.
// The default is one minute.
func WithExpiryLeeway(d time.Duration) Option {
	return func(p *Provider) {
		p.leeway = d
	}
}

// NewProvider creates a provider registered under name.
func NewProvider(name string, config *oauth2.Config, codec *statetoken.Codec, opts ...Option) *Provider {
	p := &Provider{
		name:   name,
		config: config,
		codec:  codec,
		leeway: time.Minute,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return p.name }

// AuthorizeURL builds the authorization url, carrying the encrypted
// trimmed state as the OAuth2 state parameter.
func (p *Provider) AuthorizeURL(_ context.Context, state *domain.ChannelState) (string, error) {
	token, err := p.codec.Encode(statetoken.Trim(p.name, state))
	if err != nil {
		return "", fmt.Errorf("failed to encode redirect state: %w", err)
	}
	return p.config.AuthCodeURL(token, oauth2.AccessTypeOffline), nil
}

// DecodeState recovers the conversation context from a callback's
// state parameter. Tampered tokens fail with statetoken.ErrInvalidToken.
func (p *Provider) DecodeState(token string) (statetoken.TrimmedState, error) {
	return p.codec.Decode(token)
}

// Exchange swaps an authorization code for a token.
func (p *Provider) Exchange(ctx context.Context, code string) (*domain.OAuthToken, error) {
	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	return fromOAuth2(tok), nil
}

// Refresh obtains a fresh token using the stored refresh token. The
// returned token keeps the old refresh token when the server does not
// rotate it.
func (p *Provider) Refresh(ctx context.Context, token *domain.OAuthToken) (*domain.OAuthToken, error) {
	stale := toOAuth2(token)
	// Force the token source to refresh instead of returning the stale
	// access token.
	stale.Expiry = time.Now().Add(-time.Minute)

	fresh, err := p.config.TokenSource(ctx, stale).Token()
	if err != nil {
		return nil, err
	}
	next := fromOAuth2(fresh)
	if next.RefreshToken == "" {
		next.RefreshToken = token.RefreshToken
	}
	return next, nil
}

// Expired reports whether the token needs refreshing, applying the
// configured leeway. Tokens without an expiry never expire.
func (p *Provider) Expired(token *domain.OAuthToken) bool {
	if token == nil {
		return true
	}
	if token.Expiry.IsZero() {
		return false
	}
	return time.Until(token.Expiry) < p.leeway
}

func fromOAuth2(t *oauth2.Token) *domain.OAuthToken {
	return &domain.OAuthToken{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}
}

func toOAuth2(t *domain.OAuthToken) *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}
}

// Authenticate resolves a usable token for (provider, user): it loads
// the stored token, refreshes proactively when expired, and persists
// the replacement only after a successful refresh. A failed refresh
// leaves the stored token untouched and reports the failure.
func Authenticate(ctx context.Context, bd ports.Binder, p ports.OAuthProvider, userID string) (*domain.OAuthToken, error) {
	token, err := bd.LoadOAuthToken(ctx, p.Name(), userID)
	if err != nil {
		return nil, err
	}
	if !p.Expired(token) {
		return token, nil
	}

	fresh, err := p.Refresh(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	if err := bd.SaveOAuthToken(ctx, p.Name(), userID, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

var _ ports.OAuthProvider = (*Provider)(nil)
