package model

import (
	"errors"
	"strings"
)

// Quota configuration for the free plan. Premium has no place limit.
const (
	FreeBaseQuota      = 30
	MaxSharedListsFree = 1
)

type Currency string

const (
	CurrencyJPY Currency = "jpy"
	CurrencyUSD Currency = "usd"
	CurrencyEUR Currency = "eur"
)

var (
	ErrUnknownPack         = errors.New("unknown credit pack")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
)

// PackDefinition describes a one-time purchasable credit pack.
type PackDefinition struct {
	PlacesGranted   int
	PriceByCurrency map[Currency]int64 // whole currency units (yen, dollars, euros)
}

const (
	PackSmall   = "small_pack"
	PackRegular = "regular_pack"
)

// creditPackCatalog is immutable at runtime.
var creditPackCatalog = map[string]PackDefinition{
	PackSmall: {
		PlacesGranted: 10,
		PriceByCurrency: map[Currency]int64{
			CurrencyJPY: 500,
			CurrencyUSD: 5,
			CurrencyEUR: 5,
		},
	},
	PackRegular: {
		PlacesGranted: 50,
		PriceByCurrency: map[Currency]int64{
			CurrencyJPY: 1500,
			CurrencyUSD: 14,
			CurrencyEUR: 14,
		},
	},
}

// PackDefinitionFor returns the catalog entry for a pack id.
func PackDefinitionFor(packID string) (PackDefinition, error) {
	pack, ok := creditPackCatalog[packID]
	if !ok {
		return PackDefinition{}, ErrUnknownPack
	}
	return pack, nil
}

// ResolvePrice returns the whole-unit price of a pack in the given currency.
func ResolvePrice(packID string, currency Currency) (int64, error) {
	pack, err := PackDefinitionFor(packID)
	if err != nil {
		return 0, err
	}

	price, ok := pack.PriceByCurrency[currency]
	if !ok {
		return 0, ErrUnsupportedCurrency
	}
	return price, nil
}

// StripeAmount converts a pack price to the amount sent to Stripe.
// JPY is a zero-decimal currency; everything else is charged in minor units.
func StripeAmount(packID string, currency Currency) (int64, error) {
	price, err := ResolvePrice(packID, currency)
	if err != nil {
		return 0, err
	}

	if currency == CurrencyJPY {
		return price, nil
	}
	return price * 100, nil
}

var euroLanguages = map[string]bool{
	"de": true,
	"fr": true,
	"es": true,
	"it": true,
	"nl": true,
	"pt": true,
}

// InferCurrency maps a BCP 47 locale to a supported currency. It never fails;
// an empty locale falls back to JPY.
func InferCurrency(locale string) Currency {
	if locale == "" {
		return CurrencyJPY
	}

	lang := strings.ToLower(locale)
	if idx := strings.IndexAny(lang, "-_"); idx > 0 {
		lang = lang[:idx]
	}

	switch {
	case strings.HasPrefix(lang, "ja"):
		return CurrencyJPY
	case euroLanguages[lang]:
		return CurrencyEUR
	default:
		return CurrencyUSD
	}
}
