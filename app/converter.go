package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"fintrans/domain"
	"fintrans/shared"
	"fintrans/store"
)

// baseAmountPrecision is the minor-unit precision base-currency amounts are
// rounded to.
const baseAmountPrecision = 2

// CurrencyConverter resolves reference exchange rates and computes
// base-currency equivalents.
type CurrencyConverter struct {
	rates store.RateStore
}

func NewCurrencyConverter(rates store.RateStore) *CurrencyConverter {
	return &CurrencyConverter{rates: rates}
}

// Rate returns the outgoing-remittance rate for the currency. The base
// currency is 1.0 by definition; every other code resolves to its most
// recent stored row or domain.ErrRateNotFound.
func (c *CurrencyConverter) Rate(ctx context.Context, currency shared.Currency) (decimal.Decimal, error) {
	if currency == shared.BaseCurrency {
		return decimal.NewFromInt(1), nil
	}
	row, err := c.rates.LatestRate(ctx, currency)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return decimal.Zero, fmt.Errorf("%w: %s", domain.ErrRateNotFound, currency)
		}
		return decimal.Zero, fmt.Errorf("rate lookup failed for %s: %w", currency, err)
	}
	return row.SendRate, nil
}

// ToBase converts a target-currency amount using the given rate, rounded to
// the base currency's minor-unit precision.
func (c *CurrencyConverter) ToBase(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Round(baseAmountPrecision)
}
