package payment_test

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbrandt/espalier/pkg/domain"
	"github.com/nbrandt/espalier/pkg/payment"
	"github.com/nbrandt/espalier/pkg/statetoken"
)

func testCodec(t *testing.T) *statetoken.Codec {
	t.Helper()
	codec, err := statetoken.NewCodec(bytes.Repeat([]byte{0x17}, 32))
	require.NoError(t, err)
	return codec
}

func testProvider(t *testing.T, opts ...payment.Option) *payment.Provider {
	t.Helper()
	p, err := payment.NewProvider("com.example.pay", "https://pay.example.com/checkout", testCodec(t), opts...)
	require.NoError(t, err)
	return p
}

func TestPaymentURL(t *testing.T) {
	p := testProvider(t)
	state := domain.NewChannelState("u1", "op1", "ch1")

	raw, err := p.PaymentURL(context.Background(), state, 49.90, "EUR")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "pay.example.com", u.Host)
	assert.Equal(t, "49.9", u.Query().Get("amount"))
	assert.Equal(t, "EUR", u.Query().Get("currency"))
	assert.NotEmpty(t, u.Query().Get("reference"))

	trimmed, err := p.DecodeState(u.Query().Get("state"))
	require.NoError(t, err)
	assert.Equal(t, "ch1", trimmed.ChannelID)
	assert.Equal(t, 49.90, trimmed.Amount)
	assert.Equal(t, "EUR", trimmed.CurrencyCode)
}

func TestPaymentURLUniqueReferences(t *testing.T) {
	p := testProvider(t)
	state := domain.NewChannelState("u1", "op1", "ch1")

	first, err := p.PaymentURL(context.Background(), state, 10, "USD")
	require.NoError(t, err)
	second, err := p.PaymentURL(context.Background(), state, 10, "USD")
	require.NoError(t, err)

	fu, _ := url.Parse(first)
	su, _ := url.Parse(second)
	assert.NotEqual(t, fu.Query().Get("reference"), su.Query().Get("reference"))
}

func TestConfirm(t *testing.T) {
	p := testProvider(t)
	state := domain.NewChannelState("u1", "op1", "ch1")

	raw, err := p.PaymentURL(context.Background(), state, 25, "USD")
	require.NoError(t, err)
	u, _ := url.Parse(raw)

	t.Run("paid", func(t *testing.T) {
		params := url.Values{
			"state":     {u.Query().Get("state")},
			"reference": {u.Query().Get("reference")},
			"status":    {"paid"},
		}
		result, err := p.Confirm(context.Background(), params)
		require.NoError(t, err)
		assert.True(t, result.Paid)
		assert.Equal(t, u.Query().Get("reference"), result.Reference)
		// Amount comes from the sealed state, not the callback.
		assert.Equal(t, 25.0, result.Amount)
		assert.Equal(t, "USD", result.CurrencyCode)
	})

	t.Run("unpaid status", func(t *testing.T) {
		params := url.Values{
			"state":  {u.Query().Get("state")},
			"status": {"cancelled"},
		}
		result, err := p.Confirm(context.Background(), params)
		require.NoError(t, err)
		assert.False(t, result.Paid)
	})

	t.Run("tampered state fails closed", func(t *testing.T) {
		params := url.Values{
			"state":  {u.Query().Get("state") + "x"},
			"status": {"paid"},
		}
		_, err := p.Confirm(context.Background(), params)
		assert.ErrorIs(t, err, statetoken.ErrInvalidToken)
	})
}

func TestConfirmCustomPaidStatus(t *testing.T) {
	p := testProvider(t, payment.WithPaidStatus("COMPLETED"))
	state := domain.NewChannelState("u1", "op1", "ch1")

	raw, err := p.PaymentURL(context.Background(), state, 5, "USD")
	require.NoError(t, err)
	u, _ := url.Parse(raw)

	result, err := p.Confirm(context.Background(), url.Values{
		"state":  {u.Query().Get("state")},
		"status": {"COMPLETED"},
	})
	require.NoError(t, err)
	assert.True(t, result.Paid)
}

func TestConfirmVerifier(t *testing.T) {
	p := testProvider(t, payment.WithVerifier(func(params url.Values) error {
		if params.Get("sig") != "valid" {
			return errors.New("bad signature")
		}
		return nil
	}))
	state := domain.NewChannelState("u1", "op1", "ch1")

	raw, err := p.PaymentURL(context.Background(), state, 5, "USD")
	require.NoError(t, err)
	u, _ := url.Parse(raw)

	_, err = p.Confirm(context.Background(), url.Values{
		"state":  {u.Query().Get("state")},
		"status": {"paid"},
	})
	require.Error(t, err)

	result, err := p.Confirm(context.Background(), url.Values{
		"state":  {u.Query().Get("state")},
		"status": {"paid"},
		"sig":    {"valid"},
	})
	require.NoError(t, err)
	assert.True(t, result.Paid)
}

func TestNewProviderBadURL(t *testing.T) {
	_, err := payment.NewProvider("p", "://bad", testCodec(t))
	assert.Error(t, err)
}
