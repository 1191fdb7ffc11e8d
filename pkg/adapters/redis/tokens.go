package redis

import (
	"context"
	"encoding/json"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

// TokenStore implements ports.TokenStore on Redis, one JSON value per
// (component, user) pair.
type TokenStore struct {
	client *backend.Client
	prefix string
}

// NewTokenStore creates a token store on an existing client.
func NewTokenStore(client *backend.Client, prefix string) *TokenStore {
	if prefix == "" {
		prefix = "espalier:token:"
	}
	return &TokenStore{client: client, prefix: prefix}
}

func (s *TokenStore) key(component, userID string) string {
	return s.prefix + component + ":" + userID
}

func (s *TokenStore) Save(ctx context.Context, component, userID string, token *domain.OAuthToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	if err := s.client.Set(ctx, s.key(component, userID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

func (s *TokenStore) Load(ctx context.Context, component, userID string) (*domain.OAuthToken, error) {
	val, err := s.client.Get(ctx, s.key(component, userID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	var token domain.OAuthToken
	if err := json.Unmarshal([]byte(val), &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return &token, nil
}

func (s *TokenStore) Delete(ctx context.Context, component, userID string) error {
	return s.client.Del(ctx, s.key(component, userID)).Err()
}

var _ ports.TokenStore = (*TokenStore)(nil)
