package block

import (
	"context"
	"regexp"
	"strings"

	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

// InputText accepts any non-empty text.
type InputText struct {
	InputBase
}

func registerInputText() Registration {
	return Registration{
		Component: "input.text",
		Descriptor: Descriptor{
			Name:     "Text",
			Category: CategoryInput,
			Summary:  "Accepts a free-form text answer.",
		},
		Template: inputFields(),
		New: func(def domain.BlockDef) (Block, error) {
			var props inputProps
			t := inputFields()
			if err := t.Decode(def.Properties, &props); err != nil {
				return nil, err
			}
			b := &InputText{}
			b.InputBase = NewInputBase(NewBase(def, registerInputText().Descriptor, t), props.Key, props.Required, b.process)
			return b, nil
		},
	}
}

func (b *InputText) process(ctx context.Context, bd ports.Binder, state *domain.ChannelState, st *domain.InputStatement) (*Result, error) {
	text := strings.TrimSpace(stringInput(st))
	if text == "" {
		return b.Reject(), nil
	}
	b.Save(state, text)
	return b.Move(), nil
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// InputEmail accepts a syntactically valid email address.
type InputEmail struct {
	InputBase
}

func registerInputEmail() Registration {
	return Registration{
		Component: "input.email",
		Descriptor: Descriptor{
			Name:     "Email",
			Category: CategoryInput,
			Summary:  "Accepts an email address.",
		},
		Template: inputFields(),
		New: func(def domain.BlockDef) (Block, error) {
			var props inputProps
			t := inputFields()
			if err := t.Decode(def.Properties, &props); err != nil {
				return nil, err
			}
			b := &InputEmail{}
			b.InputBase = NewInputBase(NewBase(def, registerInputEmail().Descriptor, t), props.Key, props.Required, b.process)
			return b, nil
		},
	}
}

func (b *InputEmail) process(ctx context.Context, bd ports.Binder, state *domain.ChannelState, st *domain.InputStatement) (*Result, error) {
	addr := strings.ToLower(strings.TrimSpace(stringInput(st)))
	if !emailPattern.MatchString(addr) {
		return b.Reject(), nil
	}
	b.Save(state, addr)
	return b.Move(), nil
}

type inputNumberProps struct {
	inputProps `mapstructure:",squash"`
	Min        *float64 `mapstructure:"min"`
	Max        *float64 `mapstructure:"max"`
}

// InputNumber accepts a numeric answer, optionally range-checked.
type InputNumber struct {
	InputBase
	min *float64
	max *float64
}

func registerInputNumber() Registration {
	t := inputFields(
		Field{Name: "min", Type: FieldNumber},
		Field{Name: "max", Type: FieldNumber},
	)
	return Registration{
		Component: "input.number",
		Descriptor: Descriptor{
			Name:     "Number",
			Category: CategoryInput,
			Summary:  "Accepts a numeric answer.",
		},
		Template: t,
		New: func(def domain.BlockDef) (Block, error) {
			var props inputNumberProps
			if err := t.Decode(def.Properties, &props); err != nil {
				return nil, err
			}
			b := &InputNumber{min: props.Min, max: props.Max}
			b.InputBase = NewInputBase(NewBase(def, registerInputNumber().Descriptor, t), props.Key, props.Required, b.process)
			return b, nil
		},
	}
}

func (b *InputNumber) process(ctx context.Context, bd ports.Binder, state *domain.ChannelState, st *domain.InputStatement) (*Result, error) {
	n, ok := numberInput(st)
	if !ok {
		return b.Reject(), nil
	}
	if b.min != nil && n < *b.min {
		return b.Reject(), nil
	}
	if b.max != nil && n > *b.max {
		return b.Reject(), nil
	}
	b.Save(state, n)
	return b.Move(), nil
}
