package block

import (
	"context"
	"fmt"
	"strings"

	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

// InputSelection accepts one of a configured set of (value, label)
// choices. Free-text answers are resolved through the matching tiers;
// the stored value is always the choice's value, never its label.
type InputSelection struct {
	InputBase
	choices []Choice
}

func registerInputSelection() Registration {
	t := inputFields(
		Field{Name: "selections", Type: FieldList, Required: true},
	)
	return Registration{
		Component: "input.selection",
		Descriptor: Descriptor{
			Name:     "Selection",
			Category: CategoryInput,
			Summary:  "Accepts one of a fixed set of choices.",
		},
		Template: t,
		New: func(def domain.BlockDef) (Block, error) {
			values, err := t.Resolve(def.Properties)
			if err != nil {
				return nil, err
			}
			var props inputProps
			if err := t.Decode(def.Properties, &props); err != nil {
				return nil, err
			}
			choices, err := parseChoices(values["selections"])
			if err != nil {
				return nil, err
			}
			b := &InputSelection{choices: choices}
			b.InputBase = NewInputBase(NewBase(def, registerInputSelection().Descriptor, t), props.Key, props.Required, b.process)
			return b, nil
		},
	}
}

// parseChoices accepts the selection shapes produced by JSON and YAML
// definitions: pair lists or {value,label} maps.
func parseChoices(v any) ([]Choice, error) {
	items, ok := v.([]any)
	if !ok {
		if pairs, ok := v.([][]string); ok {
			choices := make([]Choice, 0, len(pairs))
			for _, p := range pairs {
				if len(p) != 2 {
					return nil, &PropertyError{Name: "selections", Reason: "each selection needs a value and a label"}
				}
				choices = append(choices, Choice{Value: p[0], Label: p[1]})
			}
			return choicesNonEmpty(choices)
		}
		return nil, &PropertyError{Name: "selections", Reason: fmt.Sprintf("unsupported shape %T", v)}
	}

	choices := make([]Choice, 0, len(items))
	for _, item := range items {
		switch e := item.(type) {
		case []any:
			if len(e) != 2 {
				return nil, &PropertyError{Name: "selections", Reason: "each selection needs a value and a label"}
			}
			choices = append(choices, Choice{Value: fmt.Sprintf("%v", e[0]), Label: fmt.Sprintf("%v", e[1])})
		case map[string]any:
			value, _ := e["value"].(string)
			label, _ := e["label"].(string)
			if value == "" {
				return nil, &PropertyError{Name: "selections", Reason: "selection map needs a value"}
			}
			if label == "" {
				label = value
			}
			choices = append(choices, Choice{Value: value, Label: label})
		default:
			return nil, &PropertyError{Name: "selections", Reason: fmt.Sprintf("unsupported selection entry %T", item)}
		}
	}
	return choicesNonEmpty(choices)
}

func choicesNonEmpty(choices []Choice) ([]Choice, error) {
	if len(choices) == 0 {
		return nil, &PropertyError{Name: "selections", Reason: "at least one selection is required"}
	}
	return choices, nil
}

func (b *InputSelection) process(ctx context.Context, bd ports.Binder, state *domain.ChannelState, st *domain.InputStatement) (*Result, error) {
	raw := stringInput(st)
	choice, ok := matchChoice(b.choices, raw)
	if !ok {
		return b.Reject(), nil
	}
	b.Save(state, choice.Value)
	return b.Move(), nil
}

// Search ranks the configured choices against the query and returns
// them as search candidates, always followed by a cancel option and,
// for optional blocks, a skip option.
func (b *InputSelection) Search(ctx context.Context, bd ports.Binder, userID, query string) ([]domain.Node, error) {
	var nodes []domain.Node
	if strings.TrimSpace(query) == "" {
		for i, c := range b.choices {
			if i == searchLimit {
				break
			}
			nodes = append(nodes, domain.NewSearch(domain.NewText(c.Value), c.Label))
		}
	} else {
		for i, sc := range rankChoices(b.choices, query) {
			if i == searchLimit {
				break
			}
			nodes = append(nodes, domain.NewSearch(domain.NewText(sc.choice.Value), sc.choice.Label))
		}
	}
	return appendControlNodes(nodes, b.required), nil
}

// Serialize appends one connection entry per configured choice, so
// builder tooling can show each choice as an outcome.
func (b *InputSelection) Serialize() Serialized {
	s := b.Base.Serialize()
	for _, c := range b.choices {
		s.Connections = append(s.Connections, ConnectionSpec{Code: domain.CodeMove, Name: c.Label})
	}
	return s
}

// appendControlNodes adds the always-present cancel candidate plus a
// skip candidate for optional inputs.
func appendControlNodes(nodes []domain.Node, required bool) []domain.Node {
	if !required {
		nodes = append(nodes, domain.NewSearch(domain.NewSkip(), "Skip"))
	}
	return append(nodes, domain.NewSearch(domain.NewCancel(), "Cancel"))
}
