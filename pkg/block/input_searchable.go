package block

import (
	"context"
	"strings"

	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

type inputSearchableProps struct {
	inputProps `mapstructure:",squash"`
	Component  string `mapstructure:"component"`
}

// InputSearchable accepts a choice backed by a skill provider's search.
// The candidate list is produced on demand through the search
// sub-protocol; the chosen candidate arrives as an ordinary statement
// input after the flag manager has unwrapped it.
type InputSearchable struct {
	InputBase
	component string
}

func registerInputSearchable() Registration {
	t := inputFields(
		Field{Name: "component", Type: FieldString, Required: true},
	)
	return Registration{
		Component: "input.searchable",
		Descriptor: Descriptor{
			Name:     "Searchable",
			Category: CategoryInput,
			Summary:  "Accepts a choice found through a provider search.",
		},
		Template: t,
		New: func(def domain.BlockDef) (Block, error) {
			var props inputSearchableProps
			if err := t.Decode(def.Properties, &props); err != nil {
				return nil, err
			}
			b := &InputSearchable{component: props.Component}
			b.InputBase = NewInputBase(NewBase(def, registerInputSearchable().Descriptor, t), props.Key, props.Required, b.process)
			return b, nil
		},
	}
}

func (b *InputSearchable) process(ctx context.Context, bd ports.Binder, state *domain.ChannelState, st *domain.InputStatement) (*Result, error) {
	value := st.EffectiveInput()
	if s, ok := value.(string); ok {
		if strings.TrimSpace(s) == "" {
			return b.Reject(), nil
		}
	}
	if value == nil {
		return b.Reject(), nil
	}
	b.Save(state, value)
	return b.Move(), nil
}

// Search fans the provider query out on a goroutine while the static
// control candidates are assembled, then joins before returning; a
// provider failure aborts the whole search.
func (b *InputSearchable) Search(ctx context.Context, bd ports.Binder, userID, query string) ([]domain.Node, error) {
	provider, ok := bd.Components().SkillProvider(b.component)
	if !ok {
		return nil, missingProvider("skill", b.component)
	}

	type searchOut struct {
		nodes []domain.Node
		err   error
	}
	results := make(chan searchOut, 1)
	go func() {
		nodes, err := provider.Search(ctx, userID, query)
		results <- searchOut{nodes: nodes, err: err}
	}()

	tail := appendControlNodes(nil, b.required)

	out := <-results
	if out.err != nil {
		return nil, componentError(b.component, "search", out.err)
	}

	nodes := make([]domain.Node, 0, len(out.nodes)+len(tail))
	for i, n := range out.nodes {
		if i == searchLimit {
			break
		}
		if n.IsSearch() {
			nodes = append(nodes, n)
			continue
		}
		nodes = append(nodes, domain.NewSearch(n, n.Label()))
	}
	return append(nodes, tail...), nil
}
