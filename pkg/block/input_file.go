package block

import (
	"context"

	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

type inputFileProps struct {
	inputProps `mapstructure:",squash"`
	Accept     []string `mapstructure:"accept"`
}

// InputFile accepts an uploaded attachment: an image, audio or binary
// node whose data is the file url. The stored value keeps the kind and
// url together.
type InputFile struct {
	InputBase
	accept map[string]bool
}

func registerInputFile() Registration {
	t := inputFields(
		Field{Name: "accept", Type: FieldList, Default: []string{domain.NodeImage, domain.NodeAudio, domain.NodeBinary}},
	)
	return Registration{
		Component: "input.file",
		Descriptor: Descriptor{
			Name:     "File",
			Category: CategoryInput,
			Summary:  "Accepts an uploaded attachment.",
		},
		Template: t,
		New: func(def domain.BlockDef) (Block, error) {
			var props inputFileProps
			if err := t.Decode(def.Properties, &props); err != nil {
				return nil, err
			}
			accept := make(map[string]bool, len(props.Accept))
			for _, kind := range props.Accept {
				accept[kind] = true
			}
			b := &InputFile{accept: accept}
			b.InputBase = NewInputBase(NewBase(def, registerInputFile().Descriptor, t), props.Key, props.Required, b.process)
			return b, nil
		},
	}
}

func (b *InputFile) process(ctx context.Context, bd ports.Binder, state *domain.ChannelState, st *domain.InputStatement) (*Result, error) {
	n, ok := domain.DecodeNode(st.Input)
	if !ok || !b.accept[n.Kind] {
		return b.Reject(), nil
	}
	url := n.Text()
	if url == "" {
		return b.Reject(), nil
	}
	b.Save(state, map[string]any{"kind": n.Kind, "url": url, "meta": n.Meta})
	return b.Move(), nil
}
