package espalier_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	espalier "github.com/nbrandt/espalier"
	"github.com/nbrandt/espalier/pkg/adapters/memory"
	"github.com/nbrandt/espalier/pkg/domain"
)

func registrationSkill() *domain.Skill {
	return &domain.Skill{
		Package: "com.acme.signup",
		Start:   "ask-name",
		Blocks: []domain.BlockDef{
			{
				ID:        "ask-name",
				Component: "input.text",
				Properties: []domain.Property{
					{Name: "key", Value: "name"},
				},
				Connections: map[domain.ResultCode]string{domain.CodeMove: "ask-email"},
			},
			{
				ID:        "ask-email",
				Component: "input.email",
				Properties: []domain.Property{
					{Name: "key", Value: "email"},
				},
				Connections: map[domain.ResultCode]string{domain.CodeMove: "thanks"},
			},
			{
				ID:        "thanks",
				Component: "prompt.text",
				Properties: []domain.Property{
					{Name: "texts", Value: []any{"Thanks, {{.data.name}}!"}},
				},
				Connections: map[domain.ResultCode]string{domain.CodeMove: "end"},
			},
			{ID: "end", Component: "terminal"},
		},
	}
}

func TestEngineConversation(t *testing.T) {
	ctx := context.Background()
	eng := espalier.New()

	bd := memory.NewBinder("u1", "op1", "ch1")
	bd.AddSkill(registrationSkill())

	require.NoError(t, eng.Handle(ctx, bd, &domain.InputStatement{
		UserID: "u1",
		Flag:   domain.FlagStartSkill,
		Input:  "com.acme.signup",
	}))

	require.NoError(t, eng.Handle(ctx, bd, &domain.InputStatement{UserID: "u1", Text: "Ada"}))
	require.NoError(t, eng.Handle(ctx, bd, &domain.InputStatement{UserID: "u1", Text: "ada@example.com"}))

	out := bd.Drain()
	require.Len(t, out, 1)
	assert.Equal(t, "Thanks, Ada!", out[0].Nodes[0].Text())

	state, err := bd.LoadState(ctx)
	require.NoError(t, err)
	assert.False(t, state.InSkill())
}

func TestEngineStartSkill(t *testing.T) {
	ctx := context.Background()
	eng := espalier.New()

	bd := memory.NewBinder("u1", "op1", "ch1")
	bd.AddSkill(registrationSkill())

	require.NoError(t, eng.StartSkill(ctx, bd, "u1", "com.acme.signup"))

	state, err := bd.LoadState(ctx)
	require.NoError(t, err)
	assert.True(t, state.InSkill())
	require.NotNil(t, state.Skill)
	assert.Equal(t, "com.acme.signup", state.Skill.Package)
}

func TestEngineClassify(t *testing.T) {
	ctx := context.Background()
	eng := espalier.New()

	bd := memory.NewBinder("u1", "op1", "ch1")
	bd.AddSkill(registrationSkill())

	flag, err := eng.Classify(ctx, bd, &domain.InputStatement{UserID: "u1", Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, domain.FlagStandardInput, flag)
}

func TestEngineCatalog(t *testing.T) {
	eng := espalier.New()
	catalog := eng.Catalog()
	assert.NotEmpty(t, catalog)

	components := make(map[string]bool, len(catalog))
	for _, s := range catalog {
		components[s.Component] = true
	}
	assert.True(t, components["input.text"])
	assert.True(t, components["terminal"])
}

func TestEngineMetricsGatherer(t *testing.T) {
	eng := espalier.New()
	families, err := eng.Metrics().Gather()
	require.NoError(t, err)
	// Histograms register eagerly; counters appear after first use.
	assert.NotNil(t, families)
}
