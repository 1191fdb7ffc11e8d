package block

import (
	"context"
	"strings"
	"time"

	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

var dateLayouts = []string{"2006-01-02", "02.01.2006", "01/02/2006"}

var dateTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// InputDate accepts a calendar date, from a date picker node or text.
// The stored value is normalized to "2006-01-02".
type InputDate struct {
	InputBase
}

func registerInputDate() Registration {
	return Registration{
		Component: "input.date",
		Descriptor: Descriptor{
			Name:     "Date",
			Category: CategoryInput,
			Summary:  "Accepts a calendar date.",
		},
		Template: inputFields(),
		New: func(def domain.BlockDef) (Block, error) {
			var props inputProps
			t := inputFields()
			if err := t.Decode(def.Properties, &props); err != nil {
				return nil, err
			}
			b := &InputDate{}
			b.InputBase = NewInputBase(NewBase(def, registerInputDate().Descriptor, t), props.Key, props.Required, b.process)
			return b, nil
		},
	}
}

func (b *InputDate) process(ctx context.Context, bd ports.Binder, state *domain.ChannelState, st *domain.InputStatement) (*Result, error) {
	raw := strings.TrimSpace(stringInput(st))
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, raw); err == nil {
			b.Save(state, d.Format("2006-01-02"))
			return b.Move(), nil
		}
	}
	return b.Reject(), nil
}

// InputDateTime accepts a point in time, normalized to RFC 3339.
type InputDateTime struct {
	InputBase
}

func registerInputDateTime() Registration {
	return Registration{
		Component: "input.datetime",
		Descriptor: Descriptor{
			Name:     "Date and time",
			Category: CategoryInput,
			Summary:  "Accepts a date with a time of day.",
		},
		Template: inputFields(),
		New: func(def domain.BlockDef) (Block, error) {
			var props inputProps
			t := inputFields()
			if err := t.Decode(def.Properties, &props); err != nil {
				return nil, err
			}
			b := &InputDateTime{}
			b.InputBase = NewInputBase(NewBase(def, registerInputDateTime().Descriptor, t), props.Key, props.Required, b.process)
			return b, nil
		},
	}
}

func (b *InputDateTime) process(ctx context.Context, bd ports.Binder, state *domain.ChannelState, st *domain.InputStatement) (*Result, error) {
	raw := strings.TrimSpace(stringInput(st))
	for _, layout := range dateTimeLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			b.Save(state, ts.Format(time.RFC3339))
			return b.Move(), nil
		}
	}
	return b.Reject(), nil
}

// InputDuration accepts a duration ("45m", "1h30m"), stored in seconds.
type InputDuration struct {
	InputBase
}

func registerInputDuration() Registration {
	return Registration{
		Component: "input.duration",
		Descriptor: Descriptor{
			Name:     "Duration",
			Category: CategoryInput,
			Summary:  "Accepts a length of time.",
		},
		Template: inputFields(),
		New: func(def domain.BlockDef) (Block, error) {
			var props inputProps
			t := inputFields()
			if err := t.Decode(def.Properties, &props); err != nil {
				return nil, err
			}
			b := &InputDuration{}
			b.InputBase = NewInputBase(NewBase(def, registerInputDuration().Descriptor, t), props.Key, props.Required, b.process)
			return b, nil
		},
	}
}

func (b *InputDuration) process(ctx context.Context, bd ports.Binder, state *domain.ChannelState, st *domain.InputStatement) (*Result, error) {
	raw := strings.TrimSpace(stringInput(st))
	if raw == "" {
		return b.Reject(), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return b.Reject(), nil
	}
	b.Save(state, d.Seconds())
	return b.Move(), nil
}
