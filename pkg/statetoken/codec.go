// Package statetoken encodes a trimmed projection of the channel state
// into an opaque token suitable for redirect round-trips (OAuth
// authorize urls, payment urls). The token is AES-256-GCM encrypted
// JSON, base64url encoded; decoding fails closed on any tampering.
package statetoken

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/nbrandt/espalier/pkg/domain"
)

// ErrInvalidToken is returned for any token that cannot be decoded:
// bad encoding, wrong key, truncation, or tampering. Callers treat it
// as an unauthenticated redirect, never as a retryable failure.
var ErrInvalidToken = errors.New("invalid redirect state token")

// TrimmedState is the minimal conversation context embedded in an
// outbound redirect url. It must never carry working data; it exists
// only to correlate a callback with its paused conversation.
type TrimmedState struct {
	Component    string  `json:"component_name"`
	ChannelID    string  `json:"channel_id"`
	UserID       string  `json:"user_id"`
	OperatorID   string  `json:"operator_id"`
	Amount       float64 `json:"amount,omitempty"`
	CurrencyCode string  `json:"currency_code,omitempty"`
}

// Trim projects a channel state for the given component.
func Trim(component string, state *domain.ChannelState) TrimmedState {
	return TrimmedState{
		Component:  component,
		ChannelID:  state.ChannelID,
		UserID:     state.UserID,
		OperatorID: state.OperatorID,
	}
}

// Codec encrypts and decrypts redirect state tokens with a shared
// secret. Fallback keys allow zero-downtime key rotation: new tokens
// use the active key, decoding tries fallbacks in order.
type Codec struct {
	activeKey    []byte
	fallbackKeys [][]byte
}

// Option configures the Codec.
type Option func(*Codec)

// WithFallbackKeys adds old keys tried during decoding.
func WithFallbackKeys(keys ...[]byte) Option {
	return func(c *Codec) {
		c.fallbackKeys = append(c.fallbackKeys, keys...)
	}
}

// NewCodec creates a codec. The active key must be 32 bytes (AES-256).
func NewCodec(activeKey []byte, opts ...Option) (*Codec, error) {
	if len(activeKey) != 32 {
		return nil, fmt.Errorf("active key must be 32 bytes (AES-256), got %d", len(activeKey))
	}
	c := &Codec{activeKey: activeKey}
	for _, opt := range opts {
		opt(c)
	}
	for i, k := range c.fallbackKeys {
		if len(k) != 32 {
			return nil, fmt.Errorf("fallback key %d must be 32 bytes, got %d", i, len(k))
		}
	}
	return c, nil
}

// Encode serializes and encrypts the trimmed state.
func (c *Codec) Encode(state TrimmedState) (string, error) {
	plain, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("failed to marshal redirect state: %w", err)
	}
	sealed, err := encrypt(plain, c.activeKey)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt redirect state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decode reverses Encode. Any failure, including a valid-looking token
// sealed under an unknown key, yields ErrInvalidToken.
func (c *Codec) Decode(token string) (TrimmedState, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return TrimmedState{}, ErrInvalidToken
	}

	plain, err := decrypt(sealed, c.activeKey)
	if err != nil {
		for _, key := range c.fallbackKeys {
			if plain, err = decrypt(sealed, key); err == nil {
				break
			}
		}
	}
	if err != nil {
		return TrimmedState{}, ErrInvalidToken
	}

	var state TrimmedState
	if err := json.Unmarshal(plain, &state); err != nil {
		return TrimmedState{}, ErrInvalidToken
	}
	return state, nil
}

func encrypt(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decrypt(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}
	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
