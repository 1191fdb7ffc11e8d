package block

import (
	"context"

	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

type terminalProps struct {
	PostSkill string `mapstructure:"post_skill"`
}

// Terminal ends a skill. It declares no outbound connections, so its
// result always carries an empty connection. A non-empty post_skill
// names the package to chain into once this skill's state is cleared.
type Terminal struct {
	Base
	postSkill string
}

func registerTerminal() Registration {
	t := Template{
		{Name: "post_skill", Type: FieldString},
	}
	return Registration{
		Component: "terminal",
		Descriptor: Descriptor{
			Name:     "Terminal",
			Category: CategoryTerminal,
			Summary:  "Ends the skill, optionally chaining into another.",
		},
		Template: t,
		New: func(def domain.BlockDef) (Block, error) {
			var props terminalProps
			if err := t.Decode(def.Properties, &props); err != nil {
				return nil, err
			}
			return &Terminal{
				Base:      NewBase(def, registerTerminal().Descriptor, t),
				postSkill: props.PostSkill,
			}, nil
		},
	}
}

// PostSkill returns the package id to chain after this skill, empty for
// no chaining.
func (b *Terminal) PostSkill() string { return b.postSkill }

func (b *Terminal) Process(ctx context.Context, bd ports.Binder, state *domain.ChannelState) (*Result, error) {
	return b.Move(), nil
}
