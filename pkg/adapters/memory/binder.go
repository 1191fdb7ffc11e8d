package memory

import (
	"context"
	"sync"

	"github.com/nbrandt/espalier/pkg/components"
	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

// Binder is an in-process ports.Binder. Replies are buffered instead of
// delivered; callers drain them after each turn. Intent hooks default
// to "no intent" and can be overridden per instance.
type Binder struct {
	UserID     string
	OperatorID string
	ChannelID  string

	States   ports.StateStore
	Tokens   ports.TokenStore
	Registry *components.Registry

	// CancelFn, IntentFn and StandardFn override the intent hooks.
	// When nil the binder reports no cancel intent, no skill intent,
	// and no standard-input reply.
	CancelFn   func(st *domain.InputStatement) bool
	IntentFn   func(st *domain.InputStatement) (string, bool)
	StandardFn func(in *domain.InputStatement, out *domain.OutputStatement) (*domain.OutputStatement, error)

	mu     sync.Mutex
	skills map[string]*domain.Skill
	outbox []*domain.OutputStatement
}

// NewBinder creates a binder for one channel backed by fresh in-memory
// stores and an empty provider registry.
func NewBinder(userID, operatorID, channelID string) *Binder {
	return &Binder{
		UserID:     userID,
		OperatorID: operatorID,
		ChannelID:  channelID,
		States:     NewStateStore(),
		Tokens:     NewTokenStore(),
		Registry:   components.NewRegistry(),
		skills:     make(map[string]*domain.Skill),
	}
}

// AddSkill makes a skill resolvable through GetSkill.
func (b *Binder) AddSkill(skill *domain.Skill) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.skills[skill.Package] = skill
}

// Drain returns the buffered replies and clears the buffer.
func (b *Binder) Drain() []*domain.OutputStatement {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.outbox
	b.outbox = nil
	return out
}

func (b *Binder) LoadState(ctx context.Context) (*domain.ChannelState, error) {
	state, err := b.States.Load(ctx, b.ChannelID)
	if err == domain.ErrStateNotFound {
		return domain.NewChannelState(b.UserID, b.OperatorID, b.ChannelID), nil
	}
	return state, err
}

func (b *Binder) SaveState(ctx context.Context, state *domain.ChannelState) error {
	return b.States.Save(ctx, state)
}

func (b *Binder) LoadOAuthToken(ctx context.Context, component, userID string) (*domain.OAuthToken, error) {
	return b.Tokens.Load(ctx, component, userID)
}

func (b *Binder) SaveOAuthToken(ctx context.Context, component, userID string, token *domain.OAuthToken) error {
	return b.Tokens.Save(ctx, component, userID, token)
}

func (b *Binder) GetSkill(_ context.Context, pkg string) (*domain.Skill, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	skill, ok := b.skills[pkg]
	if !ok {
		return nil, domain.ErrSkillNotFound
	}
	return skill, nil
}

func (b *Binder) PostMessage(_ context.Context, out *domain.OutputStatement) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outbox = append(b.outbox, out)
	return nil
}

func (b *Binder) CancelIntent(_ context.Context, st *domain.InputStatement) bool {
	if b.CancelFn == nil {
		return false
	}
	return b.CancelFn(st)
}

func (b *Binder) SkillIntent(_ context.Context, st *domain.InputStatement) (string, bool) {
	if b.IntentFn == nil {
		return "", false
	}
	return b.IntentFn(st)
}

func (b *Binder) StandardInput(_ context.Context, in *domain.InputStatement, out *domain.OutputStatement) (*domain.OutputStatement, error) {
	if b.StandardFn == nil {
		return nil, nil
	}
	return b.StandardFn(in, out)
}

func (b *Binder) Components() ports.ComponentResolver {
	return b.Registry
}

var _ ports.Binder = (*Binder)(nil)
