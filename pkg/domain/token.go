package domain

import "time"

// OAuthToken is a stored authorization grant for a (component, user)
// pair. Raw preserves provider-specific fields returned alongside the
// standard ones.
type OAuthToken struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token,omitempty"`
	TokenType    string         `json:"token_type,omitempty"`
	Expiry       time.Time      `json:"expiry,omitempty"`
	Raw          map[string]any `json:"raw,omitempty"`
}

// PaymentResult is a confirmed payment reported by a payment provider
// callback.
type PaymentResult struct {
	Reference    string  `json:"reference"`
	Amount       float64 `json:"amount"`
	CurrencyCode string  `json:"currency_code"`
	Paid         bool    `json:"paid"`
}
