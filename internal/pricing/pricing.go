// Package pricing maps an arbitrary credits amount to a USDT price using a
// sparse table of administrator-defined tiers.
//
// Prices between two tiers are linearly interpolated; prices outside the
// configured range are extrapolated with the nearest boundary tier's unit
// price. Rounding is half away from zero (decimal.Round), so a computed
// 86.5 becomes 87.
package pricing

import (
	"errors"
	"slices"
	"sort"

	"github.com/shopspring/decimal"
)

// ErrNoPricingData is returned when the tier list is empty. Callers must treat
// it as "no price available", never as a zero price.
var ErrNoPricingData = errors.New("no pricing data configured")

// ErrInvalidCredits is returned when the requested credits amount is not positive.
var ErrInvalidCredits = errors.New("credits must be greater than zero")

// unitPricePlaces is the precision unit prices are reported at.
const unitPricePlaces = 6

// Basis describes which branch of the pricing curve produced a quote.
type Basis string

const (
	BasisExact        Basis = "exact"
	BasisBelow        Basis = "below"
	BasisAbove        Basis = "above"
	BasisInterpolated Basis = "interpolated"
)

// Tier is one anchor point of the pricing curve.
type Tier struct {
	Credits   int64
	UnitPrice decimal.Decimal
	Price     decimal.Decimal
}

// Quote is the price computed for a credits amount.
type Quote struct {
	Price     decimal.Decimal
	UnitPrice decimal.Decimal
	IsExact   bool
	Basis     Basis
}

// Interpolate prices credits against tiers. The tiers slice is not modified
// and may be in any order. When two tiers share a credits value the one that
// appears first wins.
func Interpolate(tiers []Tier, credits int64) (Quote, error) {
	if credits <= 0 {
		return Quote{}, ErrInvalidCredits
	}
	if len(tiers) == 0 {
		return Quote{}, ErrNoPricingData
	}

	sorted := slices.Clone(tiers)
	slices.SortStableFunc(sorted, func(a, b Tier) int {
		switch {
		case a.Credits < b.Credits:
			return -1
		case a.Credits > b.Credits:
			return 1
		}
		return 0
	})

	// idx is the first tier with Credits >= credits.
	idx := sort.Search(len(sorted), func(i int) bool {
		return sorted[i].Credits >= credits
	})

	if idx < len(sorted) && sorted[idx].Credits == credits {
		t := sorted[idx]
		return Quote{
			Price:     t.Price,
			UnitPrice: t.UnitPrice,
			IsExact:   true,
			Basis:     BasisExact,
		}, nil
	}

	amount := decimal.NewFromInt(credits)

	if idx == 0 {
		lowest := sorted[0]
		return Quote{
			Price:     amount.Mul(lowest.UnitPrice).Round(0),
			UnitPrice: lowest.UnitPrice,
			Basis:     BasisBelow,
		}, nil
	}

	if idx == len(sorted) {
		highest := sorted[len(sorted)-1]
		return Quote{
			Price:     amount.Mul(highest.UnitPrice).Round(0),
			UnitPrice: highest.UnitPrice,
			Basis:     BasisAbove,
		}, nil
	}

	// lower.Credits < credits < upper.Credits, so the span is never zero.
	lower, upper := sorted[idx-1], sorted[idx]
	offset := decimal.NewFromInt(credits - lower.Credits)
	span := decimal.NewFromInt(upper.Credits - lower.Credits)

	// Multiply before dividing so exact midpoints stay exact.
	interpolated := lower.Price.Add(upper.Price.Sub(lower.Price).Mul(offset).Div(span))

	return Quote{
		Price:     interpolated.Round(0),
		UnitPrice: interpolated.Div(amount).Round(unitPricePlaces),
		Basis:     BasisInterpolated,
	}, nil
}

// UnitPriceFor derives a unit price from a package price, rounded to the
// precision tiers store unit prices at.
func UnitPriceFor(price decimal.Decimal, credits int64) (decimal.Decimal, error) {
	if credits <= 0 {
		return decimal.Zero, ErrInvalidCredits
	}
	return price.Div(decimal.NewFromInt(credits)).Round(unitPricePlaces), nil
}
