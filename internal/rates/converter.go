// Package rates converts amounts between currencies using stored day rates.
package rates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/cashfolio/cashfolio/internal/domain"
	"github.com/cashfolio/cashfolio/internal/importer"
)

// RateStore looks up the stored rate for a currency pair on one day.
type RateStore interface {
	FindRate(ctx context.Context, base, converted string, date time.Time) (*domain.ExchangeRate, error)
}

// Converter converts amounts with stored exchange rates.
type Converter struct {
	store RateStore
}

// NewConverter creates a Converter over the given rate store.
func NewConverter(store RateStore) *Converter {
	return &Converter{store: store}
}

// Convert multiplies amount by the from→to rate stored for date. It returns
// (nil, nil) when no rate is stored for that day: absence of a rate is an
// expected condition, not an error. Identical currencies convert to the same
// amount without a lookup.
func (c *Converter) Convert(ctx context.Context, from, to string, amount decimal.Decimal, date time.Time) (*decimal.Decimal, error) {
	if !domain.ValidCurrency(from) {
		return nil, fmt.Errorf("unknown currency %q", from)
	}
	if !domain.ValidCurrency(to) {
		return nil, fmt.Errorf("unknown currency %q", to)
	}

	if from == to {
		return &amount, nil
	}

	rate, err := c.store.FindRate(ctx, from, to, date)
	if errors.Is(err, importer.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	converted := amount.Mul(rate.Rate)
	return &converted, nil
}

// Format renders an amount in the currency's conventional display form,
// e.g. Format(d, "USD") → "$1,234.50".
func Format(amount decimal.Decimal, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.String() + " " + currency
	}
	units := amount.Shift(int32(cur.Fraction))
	return money.New(units.IntPart(), currency).Display()
}
