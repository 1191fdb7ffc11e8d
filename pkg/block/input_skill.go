package block

import (
	"context"

	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

// InputSkill validates the statement through a skill provider. The
// provider receives the raw input and either returns a "value" field to
// store, or an empty result to reject the answer. A provider error is a
// collaborator failure, not a rejection.
type InputSkill struct {
	InputBase
	component string
}

func registerInputSkill() Registration {
	t := inputFields(
		Field{Name: "component", Type: FieldString, Required: true},
	)
	return Registration{
		Component: "input.skill",
		Descriptor: Descriptor{
			Name:     "Provider-validated",
			Category: CategoryInput,
			Summary:  "Validates the answer through a skill provider.",
		},
		Template: t,
		New: func(def domain.BlockDef) (Block, error) {
			var props inputComponentProps
			if err := t.Decode(def.Properties, &props); err != nil {
				return nil, err
			}
			b := &InputSkill{component: props.Component}
			b.InputBase = NewInputBase(NewBase(def, registerInputSkill().Descriptor, t), props.Key, props.Required, b.process)
			return b, nil
		},
	}
}

func (b *InputSkill) process(ctx context.Context, bd ports.Binder, state *domain.ChannelState, st *domain.InputStatement) (*Result, error) {
	provider, ok := bd.Components().SkillProvider(b.component)
	if !ok {
		return nil, missingProvider("skill", b.component)
	}

	result, err := provider.Call(ctx, map[string]any{
		"input":   st.EffectiveInput(),
		"user_id": state.UserID,
	})
	if err != nil {
		return nil, componentError(b.component, "call", err)
	}

	value, ok := result["value"]
	if !ok || value == nil {
		return b.Reject(), nil
	}
	b.Save(state, value)
	return b.Move(), nil
}
