// Package redis provides Redis-backed adapters: the channel state
// store, the OAuth token store, and a distributed channel locker for
// multi-replica deployments.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

// Store implements ports.StateStore on Redis. Each cursor is one JSON
// value; channel ids are tracked in a ZSET index scored by expiry so
// List can prune lazily.
type Store struct {
	client *backend.Client
	prefix string
	ttl    time.Duration
}

type Option func(*Store)

// WithTTL sets the expiration for channel states. Zero keeps them
// forever.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		s.ttl = ttl
	}
}

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a store with its own client.
func New(address, password string, db int, opts ...Option) *Store {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(client, opts...)
}

// NewFromClient creates a store on an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: "espalier:channel:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(channelID string) string { return s.prefix + channelID }
func (s *Store) indexKey() string            { return s.prefix + "index" }

// Index score used when no TTL is set, far enough to mean "never".
const noExpiryScore = 4102444800 // 2100-01-01

func (s *Store) Save(ctx context.Context, state *domain.ChannelState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal channel state: %w", err)
	}

	score := float64(noExpiryScore)
	if s.ttl > 0 {
		score = float64(time.Now().Add(s.ttl).Unix())
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(state.ChannelID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: score, Member: state.ChannelID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context, channelID string) (*domain.ChannelState, error) {
	val, err := s.client.Get(ctx, s.key(channelID)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var state domain.ChannelState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal channel state: %w", err)
	}
	return &state, nil
}

func (s *Store) Delete(ctx context.Context, channelID string) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(channelID))
	pipe.ZRem(ctx, s.indexKey(), channelID)
	_, err := pipe.Exec(ctx)
	return err
}

// List returns the channel ids with persisted state, pruning index
// entries whose TTL has passed.
func (s *Store) List(ctx context.Context) ([]string, error) {
	now := float64(time.Now().Unix())
	if err := s.client.ZRemRangeByScore(ctx, s.indexKey(), "-inf", fmt.Sprintf("%f", now)).Err(); err != nil {
		return nil, fmt.Errorf("failed to prune expired channels: %w", err)
	}

	channels, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	return channels, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

var _ ports.StateStore = (*Store)(nil)
