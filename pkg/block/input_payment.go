package block

import (
	"context"
	"net/url"

	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/ports"
)

type inputPaymentProps struct {
	inputProps `mapstructure:",squash"`
	Component  string  `mapstructure:"component"`
	Amount     float64 `mapstructure:"amount"`
	Currency   string  `mapstructure:"currency"`
}

// InputPayment pauses the conversation for a payment round-trip. On an
// empty statement it posts the provider's payment url; the redirect
// callback resumes the block with the raw callback url, whose
// parameters the provider confirms.
type InputPayment struct {
	InputBase
	component string
	amount    float64
	currency  string
}

func registerInputPayment() Registration {
	t := inputFields(
		Field{Name: "component", Type: FieldString, Required: true},
		Field{Name: "amount", Type: FieldNumber, Required: true},
		Field{Name: "currency", Type: FieldString, Default: "USD"},
	)
	return Registration{
		Component: "input.payment",
		Descriptor: Descriptor{
			Name:     "Payment",
			Category: CategoryInput,
			Summary:  "Collects a payment through a provider.",
		},
		Template: t,
		New: func(def domain.BlockDef) (Block, error) {
			var props inputPaymentProps
			if err := t.Decode(def.Properties, &props); err != nil {
				return nil, err
			}
			b := &InputPayment{component: props.Component, amount: props.Amount, currency: props.Currency}
			b.InputBase = NewInputBase(NewBase(def, registerInputPayment().Descriptor, t), props.Key, props.Required, b.process)
			return b, nil
		},
	}
}

func (b *InputPayment) process(ctx context.Context, bd ports.Binder, state *domain.ChannelState, st *domain.InputStatement) (*Result, error) {
	provider, ok := bd.Components().PaymentProvider(b.component)
	if !ok {
		return nil, missingProvider("payment", b.component)
	}

	if raw := callbackURL(st); raw != "" {
		u, err := url.Parse(raw)
		if err != nil {
			return b.Reject(), nil
		}
		result, err := provider.Confirm(ctx, u.Query())
		if err != nil {
			return nil, componentError(b.component, "confirm", err)
		}
		if !result.Paid {
			return b.Reject(), nil
		}
		b.Save(state, map[string]any{
			"reference":     result.Reference,
			"amount":        result.Amount,
			"currency_code": result.CurrencyCode,
		})
		return b.Move(), nil
	}

	paymentURL, err := provider.PaymentURL(ctx, state, b.amount, b.currency)
	if err != nil {
		return nil, componentError(b.component, "payment url", err)
	}
	node := domain.NewPayment(map[string]string{b.component: paymentURL}, b.amount, b.currency)
	if err := bd.PostMessage(ctx, domain.NewOutput().Add(node)); err != nil {
		return nil, err
	}
	return b.Reject(), nil
}
