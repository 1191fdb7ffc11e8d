// Package session serializes engine steps per channel. The interpreter
// itself assumes the caller never races two turns on the same channel;
// this manager provides that guarantee in-process through ref-counted
// mutexes, and across replicas through an optional distributed locker.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

// lockEntry holds the per-channel mutex and its reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates channel state access. Locks are garbage
// collected by reference counting once no turn holds them.
type Manager struct {
	store ports.StateStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.ChannelLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking across replicas.
func WithLocker(locker ports.ChannelLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock's expiry. The default is 30s,
// comfortably above one turn.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for deferred errors.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a manager over the given state store.
func NewManager(store ports.StateStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: 30 * time.Second,
		logger:  slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) acquire(channelID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[channelID]
	if !exists {
		entry = &lockEntry{}
		m.locks[channelID] = entry
	}
	entry.refs++
	return entry
}

func (m *Manager) release(channelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[channelID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, channelID)
	}
}

// WithLock executes fn while holding the channel's lock, local first,
// then distributed when a locker is configured.
func (m *Manager) WithLock(ctx context.Context, channelID string, fn func(context.Context) error) error {
	entry := m.acquire(channelID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(channelID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, channelID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("failed to release distributed lock, it will expire via TTL",
					"channel_id", channelID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Load retrieves a channel's state under its lock.
func (m *Manager) Load(ctx context.Context, channelID string) (*domain.ChannelState, error) {
	var state *domain.ChannelState
	err := m.WithLock(ctx, channelID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, channelID)
		return err
	})
	return state, err
}

// LoadOrCreate loads a channel's state, initializing an idle cursor
// when none is stored yet.
func (m *Manager) LoadOrCreate(ctx context.Context, userID, operatorID, channelID string) (*domain.ChannelState, error) {
	var state *domain.ChannelState
	err := m.WithLock(ctx, channelID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, channelID)
		if err == nil {
			return nil
		}
		if err != domain.ErrStateNotFound {
			return fmt.Errorf("failed to check channel existence: %w", err)
		}

		state = domain.NewChannelState(userID, operatorID, channelID)
		if err := m.store.Save(ctx, state); err != nil {
			return fmt.Errorf("failed to initialize channel state: %w", err)
		}
		return nil
	})
	return state, err
}

// Save persists a channel's state under its lock.
func (m *Manager) Save(ctx context.Context, state *domain.ChannelState) error {
	return m.WithLock(ctx, state.ChannelID, func(ctx context.Context) error {
		return m.store.Save(ctx, state)
	})
}

// Delete removes a channel's state under its lock.
func (m *Manager) Delete(ctx context.Context, channelID string) error {
	return m.WithLock(ctx, channelID, func(ctx context.Context) error {
		return m.store.Delete(ctx, channelID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying state store.
func (m *Manager) Store() ports.StateStore {
	return m.store
}
