package block

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"text/template"

	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

type promptTextProps struct {
	Text  string   `mapstructure:"text"`
	Texts []string `mapstructure:"texts"`
}

// phrasings merges the singular and plural forms; skill files mostly
// use `text`, variation-heavy prompts use `texts`.
func (p promptTextProps) phrasings() []string {
	texts := p.Texts
	if p.Text != "" {
		texts = append(texts, p.Text)
	}
	return texts
}

// PromptText emits one of several templated phrasings, chosen at
// random, rendered against the turn's {result, input, data} context.
// Prompts never consume input and always move.
type PromptText struct {
	Base
	templates []*template.Template
}

func registerPromptText() Registration {
	t := Template{
		{Name: "text", Type: FieldString},
		{Name: "texts", Type: FieldList},
	}
	return Registration{
		Component: "prompt.text",
		Descriptor: Descriptor{
			Name:     "Text prompt",
			Category: CategoryPrompt,
			Summary:  "Sends one of several templated phrasings.",
		},
		Template: t,
		New: func(def domain.BlockDef) (Block, error) {
			var props promptTextProps
			if err := t.Decode(def.Properties, &props); err != nil {
				return nil, err
			}
			phrasings := props.phrasings()
			if len(phrasings) == 0 {
				return nil, &PropertyError{Name: "text", Reason: "at least one phrasing is required"}
			}
			templates := make([]*template.Template, 0, len(phrasings))
			for i, text := range phrasings {
				tmpl, err := template.New(fmt.Sprintf("%s.%d", def.ID, i)).Parse(text)
				if err != nil {
					return nil, &PropertyError{Name: "texts", Reason: err.Error()}
				}
				templates = append(templates, tmpl)
			}
			return &PromptText{
				Base:      NewBase(def, registerPromptText().Descriptor, t),
				templates: templates,
			}, nil
		},
	}
}

func (b *PromptText) Process(ctx context.Context, bd ports.Binder, state *domain.ChannelState) (*Result, error) {
	tmpl := b.templates[rand.Intn(len(b.templates))]
	text, err := renderTemplate(tmpl, state)
	if err != nil {
		return nil, err
	}
	if err := bd.PostMessage(ctx, domain.NewOutput().AddText(text)); err != nil {
		return nil, err
	}
	return b.Move(), nil
}

type promptPaymentProps struct {
	Amount   float64 `mapstructure:"amount"`
	Currency string  `mapstructure:"currency"`
}

// PromptPayment queries every registered payment provider for a payment
// url and assembles them into a single payment node, letting the user
// pick the provider on the channel side.
type PromptPayment struct {
	Base
	amount   float64
	currency string
}

func registerPromptPayment() Registration {
	t := Template{
		{Name: "amount", Type: FieldNumber, Required: true},
		{Name: "currency", Type: FieldString, Default: "USD"},
	}
	return Registration{
		Component: "prompt.payment",
		Descriptor: Descriptor{
			Name:     "Payment prompt",
			Category: CategoryPrompt,
			Summary:  "Offers payment urls from every registered provider.",
		},
		Template: t,
		New: func(def domain.BlockDef) (Block, error) {
			var props promptPaymentProps
			if err := t.Decode(def.Properties, &props); err != nil {
				return nil, err
			}
			return &PromptPayment{
				Base:     NewBase(def, registerPromptPayment().Descriptor, t),
				amount:   props.Amount,
				currency: props.Currency,
			}, nil
		},
	}
}

func (b *PromptPayment) Process(ctx context.Context, bd ports.Binder, state *domain.ChannelState) (*Result, error) {
	providers := bd.Components().PaymentProviders()
	if len(providers) == 0 {
		return nil, componentError("payment", "payment url", errors.New("no payment providers registered"))
	}

	urls := make(map[string]string, len(providers))
	for _, p := range providers {
		u, err := p.PaymentURL(ctx, state, b.amount, b.currency)
		if err != nil {
			return nil, componentError(p.Name(), "payment url", err)
		}
		urls[p.Name()] = u
	}

	node := domain.NewPayment(urls, b.amount, b.currency)
	if err := bd.PostMessage(ctx, domain.NewOutput().Add(node)); err != nil {
		return nil, err
	}
	return b.Move(), nil
}

type promptPreviewProps struct {
	URL   string `mapstructure:"url"`
	Title string `mapstructure:"title"`
}

// PromptPreview emits a link preview node.
type PromptPreview struct {
	Base
	url   string
	title string
}

func registerPromptPreview() Registration {
	t := Template{
		{Name: "url", Type: FieldString, Required: true},
		{Name: "title", Type: FieldString},
	}
	return Registration{
		Component: "prompt.preview",
		Descriptor: Descriptor{
			Name:     "Preview prompt",
			Category: CategoryPrompt,
			Summary:  "Sends a link preview.",
		},
		Template: t,
		New: func(def domain.BlockDef) (Block, error) {
			var props promptPreviewProps
			if err := t.Decode(def.Properties, &props); err != nil {
				return nil, err
			}
			return &PromptPreview{
				Base:  NewBase(def, registerPromptPreview().Descriptor, t),
				url:   props.URL,
				title: props.Title,
			}, nil
		},
	}
}

func (b *PromptPreview) Process(ctx context.Context, bd ports.Binder, state *domain.ChannelState) (*Result, error) {
	if err := bd.PostMessage(ctx, domain.NewOutput().Add(domain.NewPreview(b.url, b.title))); err != nil {
		return nil, err
	}
	return b.Move(), nil
}
