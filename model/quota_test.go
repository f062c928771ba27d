package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koichi-mofmof/kokoiko-sub002/model"
)

func TestPackDefinitionFor(t *testing.T) {
	t.Parallel()

	small, err := model.PackDefinitionFor(model.PackSmall)
	require.NoError(t, err)
	assert.Equal(t, 10, small.PlacesGranted)

	regular, err := model.PackDefinitionFor(model.PackRegular)
	require.NoError(t, err)
	assert.Equal(t, 50, regular.PlacesGranted)

	_, err = model.PackDefinitionFor("mega_pack")
	assert.ErrorIs(t, err, model.ErrUnknownPack)
}

func TestResolvePrice(t *testing.T) {
	t.Parallel()

	price, err := model.ResolvePrice(model.PackSmall, model.CurrencyJPY)
	require.NoError(t, err)
	assert.Equal(t, int64(500), price)

	_, err = model.ResolvePrice(model.PackSmall, model.Currency("gbp"))
	assert.ErrorIs(t, err, model.ErrUnsupportedCurrency)

	_, err = model.ResolvePrice("mega_pack", model.CurrencyJPY)
	assert.ErrorIs(t, err, model.ErrUnknownPack)
}

func TestStripeAmount(t *testing.T) {
	t.Parallel()

	// JPY is zero-decimal: passed through as-is
	amount, err := model.StripeAmount(model.PackSmall, model.CurrencyJPY)
	require.NoError(t, err)
	assert.Equal(t, int64(500), amount)

	// USD and EUR are charged in minor units
	amount, err = model.StripeAmount(model.PackSmall, model.CurrencyUSD)
	require.NoError(t, err)
	assert.Equal(t, int64(500), amount)

	amount, err = model.StripeAmount(model.PackRegular, model.CurrencyEUR)
	require.NoError(t, err)
	assert.Equal(t, int64(1400), amount)
}

func TestInferCurrency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		locale string
		want   model.Currency
	}{
		{"ja-JP", model.CurrencyJPY},
		{"ja", model.CurrencyJPY},
		{"de-DE", model.CurrencyEUR},
		{"fr-FR", model.CurrencyEUR},
		{"es", model.CurrencyEUR},
		{"it-IT", model.CurrencyEUR},
		{"nl", model.CurrencyEUR},
		{"pt-BR", model.CurrencyEUR},
		{"en-US", model.CurrencyUSD},
		{"en-GB", model.CurrencyUSD},
		{"ko-KR", model.CurrencyUSD},
		{"", model.CurrencyJPY},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, model.InferCurrency(tt.locale), "locale %q", tt.locale)
	}
}

func TestSubscriptionPlan(t *testing.T) {
	t.Parallel()

	assert.Equal(t, model.PlanFree, (*model.Subscription)(nil).Plan())
	assert.Equal(t, model.PlanPremium, (&model.Subscription{Status: "active"}).Plan())
	assert.Equal(t, model.PlanPremium, (&model.Subscription{Status: "trialing"}).Plan())
	assert.Equal(t, model.PlanFree, (&model.Subscription{Status: "canceled"}).Plan())
	assert.Equal(t, model.PlanFree, (&model.Subscription{Status: "incomplete"}).Plan())
}
