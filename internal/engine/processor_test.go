package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbrandt/espalier/pkg/adapters/memory"
	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

// recordingStore keeps a copy of every saved cursor so tests can assert
// on intermediate persistence, not just the end state.
type recordingStore struct {
	ports.StateStore
	saves []*domain.ChannelState
}

func (r *recordingStore) Save(ctx context.Context, state *domain.ChannelState) error {
	r.saves = append(r.saves, state.Clone())
	return r.StateStore.Save(ctx, state)
}

func newTestBinder() (*memory.Binder, *recordingStore) {
	bd := memory.NewBinder("u1", "op1", "ch1")
	rec := &recordingStore{StateStore: bd.States}
	bd.States = rec
	return bd, rec
}

func startStatement(pkg string) *domain.InputStatement {
	return &domain.InputStatement{UserID: "u1", Flag: domain.FlagStartSkill, Input: pkg}
}

func TestHandleInputSkillRun(t *testing.T) {
	ctx := context.Background()
	e := New(Config{})

	bd, rec := newTestBinder()
	bd.AddSkill(nameSkill())

	// Turn 1: start. The cursor parks on the input block without
	// consuming the trigger statement as an answer.
	require.NoError(t, e.Handle(ctx, bd, startStatement("com.acme.name")))
	state, err := bd.LoadState(ctx)
	require.NoError(t, err)
	require.True(t, state.InSkill())
	assert.Equal(t, "b1", state.BlockID)
	assert.Empty(t, state.Data)

	// Turn 2: an empty statement is rejected, cursor unchanged.
	require.NoError(t, e.Handle(ctx, bd, &domain.InputStatement{UserID: "u1"}))
	state, err = bd.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b1", state.BlockID)
	_, saved := state.Data["name"]
	assert.False(t, saved)

	// Turn 3: a real answer moves to the terminal, which finishes the
	// skill in the same pass and clears the cursor.
	require.NoError(t, e.Handle(ctx, bd, &domain.InputStatement{UserID: "u1", Text: "Alice"}))
	state, err = bd.LoadState(ctx)
	require.NoError(t, err)
	assert.False(t, state.InSkill())
	assert.Empty(t, state.BlockID)
	assert.Empty(t, state.Data)

	// The answer was persisted before the terminal cleared it.
	var sawAnswer bool
	for _, s := range rec.saves {
		if s.Data["name"] == "Alice" {
			sawAnswer = true
		}
	}
	assert.True(t, sawAnswer, "the validated answer must be persisted on the move step")
}

func TestHandleNonInputChain(t *testing.T) {
	ctx := context.Background()
	e := New(Config{})

	skill := &domain.Skill{
		Package: "com.acme.greet",
		Start:   "p1",
		Blocks: []domain.BlockDef{
			{
				ID:        "p1",
				Component: "prompt.text",
				Properties: []domain.Property{
					{Name: "texts", Value: []any{"Hello!"}},
				},
				Connections: map[domain.ResultCode]string{domain.CodeMove: "p2"},
			},
			{
				ID:        "p2",
				Component: "prompt.text",
				Properties: []domain.Property{
					{Name: "texts", Value: []any{"Welcome aboard."}},
				},
				Connections: map[domain.ResultCode]string{domain.CodeMove: "end"},
			},
			{ID: "end", Component: "terminal"},
		},
	}

	bd, _ := newTestBinder()
	bd.AddSkill(skill)

	// One inbound event runs the whole prompt chain to completion.
	require.NoError(t, e.Handle(ctx, bd, startStatement("com.acme.greet")))

	out := bd.Drain()
	require.Len(t, out, 2)
	assert.Equal(t, "Hello!", out[0].Nodes[0].Text())
	assert.Equal(t, "Welcome aboard.", out[1].Nodes[0].Text())

	state, err := bd.LoadState(ctx)
	require.NoError(t, err)
	assert.False(t, state.InSkill())
}

func TestHandlePostSkillChaining(t *testing.T) {
	ctx := context.Background()
	e := New(Config{})

	first := &domain.Skill{
		Package: "com.acme.first",
		Start:   "end",
		Blocks: []domain.BlockDef{
			{
				ID:        "end",
				Component: "terminal",
				Properties: []domain.Property{
					{Name: "post_skill", Value: "com.acme.followup"},
				},
			},
		},
	}
	followup := &domain.Skill{
		Package: "com.acme.followup",
		Start:   "q1",
		Blocks: []domain.BlockDef{
			{
				ID:        "q1",
				Component: "input.text",
				Properties: []domain.Property{
					{Name: "key", Value: "feedback"},
				},
				Connections: map[domain.ResultCode]string{domain.CodeMove: "end"},
			},
			{ID: "end", Component: "terminal"},
		},
	}

	bd, _ := newTestBinder()
	bd.AddSkill(first)
	bd.AddSkill(followup)

	// The first skill terminates immediately and chains into the
	// followup within the same pass, parking on its input block.
	require.NoError(t, e.Handle(ctx, bd, startStatement("com.acme.first")))

	state, err := bd.LoadState(ctx)
	require.NoError(t, err)
	require.True(t, state.InSkill())
	assert.Equal(t, "com.acme.followup", state.Skill.Package)
	assert.Equal(t, "q1", state.BlockID)
}

func TestHandleChainDepthGuard(t *testing.T) {
	ctx := context.Background()
	e := New(Config{MaxChainDepth: 3})

	loop := &domain.Skill{
		Package: "com.acme.loop",
		Start:   "end",
		Blocks: []domain.BlockDef{
			{
				ID:        "end",
				Component: "terminal",
				Properties: []domain.Property{
					{Name: "post_skill", Value: "com.acme.loop"},
				},
			},
		},
	}

	bd, _ := newTestBinder()
	bd.AddSkill(loop)

	err := e.Handle(ctx, bd, startStatement("com.acme.loop"))
	require.ErrorIs(t, err, domain.ErrChainDepthExceeded)
}

func TestHandleUnresolvedPostSkill(t *testing.T) {
	ctx := context.Background()
	e := New(Config{})

	skill := &domain.Skill{
		Package: "com.acme.solo",
		Start:   "end",
		Blocks: []domain.BlockDef{
			{
				ID:        "end",
				Component: "terminal",
				Properties: []domain.Property{
					{Name: "post_skill", Value: "com.acme.missing"},
				},
			},
		},
	}

	bd, _ := newTestBinder()
	bd.AddSkill(skill)

	// An unresolvable post_skill ends the run cleanly, no chaining.
	require.NoError(t, e.Handle(ctx, bd, startStatement("com.acme.solo")))
	state, err := bd.LoadState(ctx)
	require.NoError(t, err)
	assert.False(t, state.InSkill())
}

func TestHandleCancel(t *testing.T) {
	ctx := context.Background()
	e := New(Config{CancelMessage: "No problem."})

	bd, _ := newTestBinder()
	bd.AddSkill(nameSkill())
	require.NoError(t, e.Handle(ctx, bd, startStatement("com.acme.name")))
	bd.Drain()

	require.NoError(t, e.Handle(ctx, bd, &domain.InputStatement{
		UserID: "u1",
		Input:  domain.NewSearch(domain.NewCancel(), "Cancel"),
	}))

	state, err := bd.LoadState(ctx)
	require.NoError(t, err)
	assert.False(t, state.InSkill())

	out := bd.Drain()
	require.Len(t, out, 1)
	assert.Equal(t, "No problem.", out[0].Nodes[0].Text())
}

func TestHandleStandardInput(t *testing.T) {
	ctx := context.Background()
	e := New(Config{})

	t.Run("host reply is delivered", func(t *testing.T) {
		bd, _ := newTestBinder()
		bd.StandardFn = func(in *domain.InputStatement, out *domain.OutputStatement) (*domain.OutputStatement, error) {
			return out.AddText("echo: " + in.Text), nil
		}
		require.NoError(t, e.Handle(ctx, bd, &domain.InputStatement{UserID: "u1", Text: "hi"}))
		out := bd.Drain()
		require.Len(t, out, 1)
		assert.Equal(t, "echo: hi", out[0].Nodes[0].Text())
	})

	t.Run("nil host reply posts nothing", func(t *testing.T) {
		bd, _ := newTestBinder()
		require.NoError(t, e.Handle(ctx, bd, &domain.InputStatement{UserID: "u1", Text: "hi"}))
		assert.Empty(t, bd.Drain())
	})
}

func TestHandleGraphErrors(t *testing.T) {
	ctx := context.Background()
	e := New(Config{})

	t.Run("connection to unknown block", func(t *testing.T) {
		skill := &domain.Skill{
			Package: "com.acme.broken",
			Start:   "b1",
			Blocks: []domain.BlockDef{
				{
					ID:        "b1",
					Component: "input.text",
					Properties: []domain.Property{
						{Name: "key", Value: "x"},
					},
					Connections: map[domain.ResultCode]string{domain.CodeMove: "nowhere"},
				},
			},
		}
		bd, _ := newTestBinder()
		bd.AddSkill(skill)
		require.NoError(t, e.Handle(ctx, bd, startStatement("com.acme.broken")))

		err := e.Handle(ctx, bd, &domain.InputStatement{UserID: "u1", Text: "x"})
		var gerr *domain.GraphError
		require.ErrorAs(t, err, &gerr)
		assert.Equal(t, "com.acme.broken", gerr.Skill)
	})

	t.Run("unknown component", func(t *testing.T) {
		skill := &domain.Skill{
			Package: "com.acme.broken",
			Start:   "b1",
			Blocks: []domain.BlockDef{
				{ID: "b1", Component: "input.telepathy"},
			},
		}
		bd, _ := newTestBinder()
		bd.AddSkill(skill)

		err := e.Handle(ctx, bd, startStatement("com.acme.broken"))
		var gerr *domain.GraphError
		require.ErrorAs(t, err, &gerr)
	})

	t.Run("cyclic prompt chain hits the step budget", func(t *testing.T) {
		skill := &domain.Skill{
			Package: "com.acme.spin",
			Start:   "p1",
			Blocks: []domain.BlockDef{
				{
					ID:        "p1",
					Component: "prompt.text",
					Properties: []domain.Property{
						{Name: "texts", Value: []any{"again"}},
					},
					Connections: map[domain.ResultCode]string{domain.CodeMove: "p1"},
				},
			},
		}
		bd, _ := newTestBinder()
		bd.AddSkill(skill)

		err := e.Handle(ctx, bd, startStatement("com.acme.spin"))
		var gerr *domain.GraphError
		require.ErrorAs(t, err, &gerr)
	})
}

func TestHandleProviderFailureLeavesStateAlone(t *testing.T) {
	ctx := context.Background()
	e := New(Config{})

	skill := &domain.Skill{
		Package: "com.acme.pay",
		Start:   "pay1",
		Blocks: []domain.BlockDef{
			{
				ID:        "pay1",
				Component: "input.payment",
				Properties: []domain.Property{
					{Name: "key", Value: "receipt"},
					{Name: "component", Value: "checkout"},
					{Name: "amount", Value: 10},
				},
				Connections: map[domain.ResultCode]string{domain.CodeMove: "end"},
			},
			{ID: "end", Component: "terminal"},
		},
	}

	bd, rec := newTestBinder()
	bd.AddSkill(skill)
	// No payment provider registered: the block's step fails as a
	// collaborator failure.
	require.NoError(t, e.Handle(ctx, bd, startStatement("com.acme.pay")))
	savesBefore := len(rec.saves)

	err := e.Handle(ctx, bd, &domain.InputStatement{UserID: "u1", Text: "pay now"})
	var perr *domain.ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Len(t, rec.saves, savesBefore, "a failed step must not commit state")

	state, lerr := bd.LoadState(ctx)
	require.NoError(t, lerr)
	assert.Equal(t, "pay1", state.BlockID)
}
