// Package memory provides in-process adapters: map-backed state and
// token stores plus a buffered Binder. The stores are safe for
// concurrent use and suitable for tests, examples and single-process
// deployments; anything that must survive a restart should use the
// redis adapters instead.
package memory

import (
	"context"
	"sync"

	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

// StateStore keeps channel states in a map keyed by channel id.
type StateStore struct {
	mu     sync.RWMutex
	states map[string]*domain.ChannelState
}

// NewStateStore creates an empty in-memory state store.
func NewStateStore() *StateStore {
	return &StateStore{states: make(map[string]*domain.ChannelState)}
}

func (s *StateStore) Save(_ context.Context, state *domain.ChannelState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state.ChannelID] = state.Clone()
	return nil
}

func (s *StateStore) Load(_ context.Context, channelID string) (*domain.ChannelState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[channelID]
	if !ok {
		return nil, domain.ErrStateNotFound
	}
	return state.Clone(), nil
}

func (s *StateStore) Delete(_ context.Context, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, channelID)
	return nil
}

func (s *StateStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	return ids, nil
}

// TokenStore keeps OAuth tokens in a map keyed by component and user.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*domain.OAuthToken
}

// NewTokenStore creates an empty in-memory token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]*domain.OAuthToken)}
}

func tokenKey(component, userID string) string {
	return component + "\x00" + userID
}

func (s *TokenStore) Save(_ context.Context, component, userID string, token *domain.OAuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *token
	s.tokens[tokenKey(component, userID)] = &clone
	return nil
}

func (s *TokenStore) Load(_ context.Context, component, userID string) (*domain.OAuthToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	token, ok := s.tokens[tokenKey(component, userID)]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	clone := *token
	return &clone, nil
}

func (s *TokenStore) Delete(_ context.Context, component, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, tokenKey(component, userID))
	return nil
}

var (
	_ ports.StateStore = (*StateStore)(nil)
	_ ports.TokenStore = (*TokenStore)(nil)
)
