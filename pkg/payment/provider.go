// Package payment implements ports.PaymentProvider for redirect-based
// checkout flows. The provider embeds the encrypted redirect state in
// the checkout url, so the payment callback can be correlated back to
// its paused conversation, and confirms callbacks against the decoded
// state rather than trusting the callback's own amount fields.
package payment

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
	"github.com/nbrandt/espalier/pkg/statetoken"
)

// Verifier validates raw callback parameters before they are trusted,
// typically by checking a provider signature. A nil error accepts the
// callback.
type Verifier func(params url.Values) error

// Provider adapts a hosted checkout page to the engine's provider
// contract.
type Provider struct {
	name        string
	checkoutURL *url.URL
	codec       *statetoken.Codec
	paidStatus  string
	verify      Verifier
}

// Option configures a Provider.
type Option func(*Provider)

// WithPaidStatus sets the callback status value that marks a payment
// as settled. The default is "paid".
func WithPaidStatus(status string) Option {
	return func(p *Provider) {
		p.paidStatus = status
	}
}

// WithVerifier installs a callback verifier, run before any parameter
// is trusted.
func WithVerifier(v Verifier) Option {
	return func(p *Provider) {
		p.verify = v
	}
}

// NewProvider creates a provider registered under name, redirecting to
// the given hosted checkout url.
func NewProvider(name, checkoutURL string, codec *statetoken.Codec, opts ...Option) (*Provider, error) {
	base, err := url.Parse(checkoutURL)
	if err != nil {
		return nil, fmt.Errorf("invalid checkout url: %w", err)
	}
	p := &Provider{
		name:        name,
		checkoutURL: base,
		codec:       codec,
		paidStatus:  "paid",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Provider) Name() string { return p.name }

// PaymentURL builds the checkout url for this conversation and amount.
// Each call mints a fresh payment reference; the callback echoes it
// back so the result can be stored against the conversation.
func (p *Provider) PaymentURL(_ context.Context, state *domain.ChannelState, amount float64, currency string) (string, error) {
	trimmed := statetoken.Trim(p.name, state)
	trimmed.Amount = amount
	trimmed.CurrencyCode = currency

	token, err := p.codec.Encode(trimmed)
	if err != nil {
		return "", fmt.Errorf("failed to encode redirect state: %w", err)
	}

	u := *p.checkoutURL
	q := u.Query()
	q.Set("state", token)
	q.Set("reference", uuid.NewString())
	q.Set("amount", fmt.Sprintf("%g", amount))
	q.Set("currency", currency)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// DecodeState recovers the conversation context from a callback's
// state parameter.
func (p *Provider) DecodeState(token string) (statetoken.TrimmedState, error) {
	return p.codec.Decode(token)
}

// Confirm validates the callback and reports the payment outcome. The
// amount and currency come from the decoded state token, never from
// callback parameters the payer could rewrite.
func (p *Provider) Confirm(_ context.Context, params url.Values) (*domain.PaymentResult, error) {
	if p.verify != nil {
		if err := p.verify(params); err != nil {
			return nil, fmt.Errorf("callback verification failed: %w", err)
		}
	}

	trimmed, err := p.codec.Decode(params.Get("state"))
	if err != nil {
		return nil, err
	}

	return &domain.PaymentResult{
		Reference:    params.Get("reference"),
		Amount:       trimmed.Amount,
		CurrencyCode: trimmed.CurrencyCode,
		Paid:         params.Get("status") == p.paidStatus,
	}, nil
}

var _ ports.PaymentProvider = (*Provider)(nil)
