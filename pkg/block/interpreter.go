package block

import (
	"bytes"
	"context"
	"text/template"

	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

// Scratch keys shared between interpreter blocks and the processor
// loop. "input" is the last user input of the turn, "result" the last
// provider result; prompt templates render against both.
const (
	ScratchInput  = "input"
	ScratchResult = "result"
)

type dataExchangeProps struct {
	Component string            `mapstructure:"component"`
	Input     map[string]string `mapstructure:"input"`
	Output    map[string]string `mapstructure:"output"`
}

// DataExchange calls a skill provider with arguments mapped out of the
// working memory and merges the result back in.
//
// The input mapping is state-key to argument-name; the output mapping
// is result-key to state-key. An empty output mapping merges every
// result field under its own name.
type DataExchange struct {
	Base
	component string
	input     map[string]string
	output    map[string]string
}

func registerDataExchange() Registration {
	t := Template{
		{Name: "component", Type: FieldString, Required: true},
		{Name: "input", Type: FieldMap},
		{Name: "output", Type: FieldMap},
	}
	return Registration{
		Component: "interpreter.exchange",
		Descriptor: Descriptor{
			Name:     "Data exchange",
			Category: CategoryInterpreter,
			Summary:  "Calls a provider and merges its result into the working memory.",
		},
		Template: t,
		New: func(def domain.BlockDef) (Block, error) {
			var props dataExchangeProps
			if err := t.Decode(def.Properties, &props); err != nil {
				return nil, err
			}
			return &DataExchange{
				Base:      NewBase(def, registerDataExchange().Descriptor, t),
				component: props.Component,
				input:     props.Input,
				output:    props.Output,
			}, nil
		},
	}
}

func (b *DataExchange) Process(ctx context.Context, bd ports.Binder, state *domain.ChannelState) (*Result, error) {
	provider, ok := bd.Components().SkillProvider(b.component)
	if !ok {
		return nil, missingProvider("skill", b.component)
	}

	args := make(map[string]any)
	if len(b.input) == 0 {
		for k, v := range state.Data {
			args[k] = v
		}
	} else {
		for stateKey, argName := range b.input {
			if v, ok := state.Data[stateKey]; ok {
				args[argName] = v
			}
		}
	}
	args["user_id"] = state.UserID

	result, err := provider.Call(ctx, args)
	if err != nil {
		return nil, componentError(b.component, "call", err)
	}

	if len(b.output) == 0 {
		for k, v := range result {
			state.Set(k, v)
		}
	} else {
		for resultKey, stateKey := range b.output {
			if v, ok := result[resultKey]; ok {
				state.Set(stateKey, v)
			}
		}
	}
	state.Scratch(ScratchResult, result)
	return b.Move(), nil
}

type interpreterSkillProps struct {
	Component string `mapstructure:"component"`
	Text      string `mapstructure:"template"`
}

// InterpreterSkill calls a provider and renders its result as templated
// text posted to the channel.
type InterpreterSkill struct {
	Base
	component string
	tmpl      *template.Template
}

func registerInterpreterSkill() Registration {
	t := Template{
		{Name: "component", Type: FieldString, Required: true},
		{Name: "template", Type: FieldString, Required: true},
	}
	return Registration{
		Component: "interpreter.skill",
		Descriptor: Descriptor{
			Name:     "Provider message",
			Category: CategoryInterpreter,
			Summary:  "Calls a provider and renders its result as a message.",
		},
		Template: t,
		New: func(def domain.BlockDef) (Block, error) {
			var props interpreterSkillProps
			if err := t.Decode(def.Properties, &props); err != nil {
				return nil, err
			}
			tmpl, err := template.New(def.ID).Parse(props.Text)
			if err != nil {
				return nil, &PropertyError{Name: "template", Reason: err.Error()}
			}
			return &InterpreterSkill{
				Base:      NewBase(def, registerInterpreterSkill().Descriptor, t),
				component: props.Component,
				tmpl:      tmpl,
			}, nil
		},
	}
}

func (b *InterpreterSkill) Process(ctx context.Context, bd ports.Binder, state *domain.ChannelState) (*Result, error) {
	provider, ok := bd.Components().SkillProvider(b.component)
	if !ok {
		return nil, missingProvider("skill", b.component)
	}

	result, err := provider.Call(ctx, map[string]any{"user_id": state.UserID})
	if err != nil {
		return nil, componentError(b.component, "call", err)
	}
	state.Scratch(ScratchResult, result)

	text, err := renderTemplate(b.tmpl, state)
	if err != nil {
		return nil, err
	}
	if err := bd.PostMessage(ctx, domain.NewOutput().AddText(text)); err != nil {
		return nil, err
	}
	return b.Move(), nil
}

// renderTemplate executes a text template against the turn's context:
// the last provider result, the last input and the working memory.
func renderTemplate(tmpl *template.Template, state *domain.ChannelState) (string, error) {
	data := map[string]any{
		"result": state.Extra[ScratchResult],
		"input":  state.Extra[ScratchInput],
		"data":   state.Data,
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
