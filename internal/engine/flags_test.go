package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbrandt/espalier/pkg/adapters/memory"
	"github.com/nbrandt/espalier/pkg/domain"
)

func nameSkill() *domain.Skill {
	return &domain.Skill{
		Package: "com.acme.name",
		Start:   "b1",
		Blocks: []domain.BlockDef{
			{
				ID:        "b1",
				Component: "input.text",
				Properties: []domain.Property{
					{Name: "key", Value: "name"},
				},
				Connections: map[domain.ResultCode]string{domain.CodeMove: "b2"},
			},
			{ID: "b2", Component: "terminal"},
		},
	}
}

func activeState(skill *domain.Skill) *domain.ChannelState {
	state := domain.NewChannelState("u1", "op1", "ch1")
	state.Skill = skill
	state.BlockID = skill.Start
	return state
}

func TestClassifyActiveSkill(t *testing.T) {
	ctx := context.Background()
	e := New(Config{})

	t.Run("plain statement continues the skill", func(t *testing.T) {
		bd := memory.NewBinder("u1", "op1", "ch1")
		cls, err := e.Classify(ctx, bd, activeState(nameSkill()), &domain.InputStatement{Text: "Alice"})
		require.NoError(t, err)
		assert.Equal(t, domain.FlagSkillProcessor, cls.Flag)
		assert.Equal(t, "Alice", cls.Statement.Text)
	})

	t.Run("explicit cancel flag wins", func(t *testing.T) {
		bd := memory.NewBinder("u1", "op1", "ch1")
		cls, err := e.Classify(ctx, bd, activeState(nameSkill()), &domain.InputStatement{Flag: domain.FlagCancelSkill})
		require.NoError(t, err)
		assert.Equal(t, domain.FlagCancelSkill, cls.Flag)
	})

	t.Run("host cancel intent wins", func(t *testing.T) {
		bd := memory.NewBinder("u1", "op1", "ch1")
		bd.CancelFn = func(st *domain.InputStatement) bool { return st.Text == "forget it" }
		cls, err := e.Classify(ctx, bd, activeState(nameSkill()), &domain.InputStatement{Text: "forget it"})
		require.NoError(t, err)
		assert.Equal(t, domain.FlagCancelSkill, cls.Flag)
	})

	t.Run("search-wrapped cancel abandons regardless of block", func(t *testing.T) {
		bd := memory.NewBinder("u1", "op1", "ch1")
		cls, err := e.Classify(ctx, bd, activeState(nameSkill()), &domain.InputStatement{
			Input: domain.NewSearch(domain.NewCancel(), "Cancel"),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.FlagCancelSkill, cls.Flag)
	})

	t.Run("search-wrapped skip strips the input", func(t *testing.T) {
		bd := memory.NewBinder("u1", "op1", "ch1")
		cls, err := e.Classify(ctx, bd, activeState(nameSkill()), &domain.InputStatement{
			Text:  "skip this",
			Input: domain.NewSearch(domain.NewSkip(), "Skip"),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.FlagSkillProcessor, cls.Flag)
		assert.Nil(t, cls.Statement.Input)
		assert.Equal(t, "skip this", cls.Statement.Text)
	})

	t.Run("search-wrapped choice unwraps to its data", func(t *testing.T) {
		bd := memory.NewBinder("u1", "op1", "ch1")
		cls, err := e.Classify(ctx, bd, activeState(nameSkill()), &domain.InputStatement{
			Text:  "apple",
			Input: domain.NewSearch(domain.NewText("a"), "Apple"),
		})
		require.NoError(t, err)
		assert.Equal(t, domain.FlagSkillProcessor, cls.Flag)
		assert.Equal(t, "a", cls.Statement.Input)
		assert.Equal(t, "apple", cls.Statement.Text)
	})

	t.Run("caller statement is never mutated", func(t *testing.T) {
		bd := memory.NewBinder("u1", "op1", "ch1")
		st := &domain.InputStatement{Input: domain.NewSearch(domain.NewText("a"), "Apple")}
		_, err := e.Classify(ctx, bd, activeState(nameSkill()), st)
		require.NoError(t, err)
		n, ok := domain.DecodeNode(st.Input)
		require.True(t, ok)
		assert.True(t, n.IsSearch())
	})
}

func TestClassifyIdle(t *testing.T) {
	ctx := context.Background()
	e := New(Config{})
	idle := func() *domain.ChannelState { return domain.NewChannelState("u1", "op1", "ch1") }

	t.Run("explicit start resolves the named package", func(t *testing.T) {
		bd := memory.NewBinder("u1", "op1", "ch1")
		bd.AddSkill(nameSkill())
		cls, err := e.Classify(ctx, bd, idle(), &domain.InputStatement{
			Flag:  domain.FlagStartSkill,
			Input: "com.acme.name",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.FlagStartSkill, cls.Flag)
		require.NotNil(t, cls.Skill)
		assert.Equal(t, "com.acme.name", cls.Skill.Package)
		assert.Same(t, cls.Skill, cls.Statement.Input)
	})

	t.Run("intent classifier starts a skill", func(t *testing.T) {
		bd := memory.NewBinder("u1", "op1", "ch1")
		bd.AddSkill(nameSkill())
		bd.IntentFn = func(st *domain.InputStatement) (string, bool) {
			return "com.acme.name", true
		}
		cls, err := e.Classify(ctx, bd, idle(), &domain.InputStatement{Text: "I want to register"})
		require.NoError(t, err)
		assert.Equal(t, domain.FlagStartSkill, cls.Flag)
	})

	t.Run("explicit flag takes precedence over the classifier", func(t *testing.T) {
		bd := memory.NewBinder("u1", "op1", "ch1")
		bd.AddSkill(nameSkill())
		classifierAsked := false
		bd.IntentFn = func(st *domain.InputStatement) (string, bool) {
			classifierAsked = true
			return "com.acme.name", true
		}
		cls, err := e.Classify(ctx, bd, idle(), &domain.InputStatement{
			Flag:  domain.FlagStartSkill,
			Input: "com.acme.unknown",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.FlagStandardInput, cls.Flag)
		assert.False(t, classifierAsked)
	})

	t.Run("unrecognized statement is standard input", func(t *testing.T) {
		bd := memory.NewBinder("u1", "op1", "ch1")
		cls, err := e.Classify(ctx, bd, idle(), &domain.InputStatement{Text: "hello"})
		require.NoError(t, err)
		assert.Equal(t, domain.FlagStandardInput, cls.Flag)
	})

	t.Run("same inputs yield the same verdict", func(t *testing.T) {
		bd := memory.NewBinder("u1", "op1", "ch1")
		bd.AddSkill(nameSkill())
		st := &domain.InputStatement{Flag: domain.FlagStartSkill, Input: "com.acme.name"}
		first, err := e.Classify(ctx, bd, idle(), st)
		require.NoError(t, err)
		second, err := e.Classify(ctx, bd, idle(), st)
		require.NoError(t, err)
		assert.Equal(t, first.Flag, second.Flag)
		assert.Equal(t, first.Skill.Package, second.Skill.Package)
	})
}
