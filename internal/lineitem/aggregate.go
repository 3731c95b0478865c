// Package lineitem turns line items into amounts and order totals.
//
// Amounts are computed exactly and summed as integer cents, so the total of
// an order always equals the sum of its displayed line amounts. Dollar
// strings appear only at the boundary (ProductAmount, OrderTotal).
package lineitem

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/pottycalc/internal/domain"
	"github.com/efreitasn/pottycalc/internal/pricing"
)

// Aggregator computes line and order amounts. It is immutable and safe for
// concurrent use.
type Aggregator struct {
	prices         *pricing.Calculator
	maxQuantity    decimal.Decimal
	maxRate        decimal.Decimal
	maxAmountCents int64
}

// New creates an Aggregator that converts through prices and enforces the
// line-item ceilings of limits.
func New(prices *pricing.Calculator, limits domain.Limits) *Aggregator {
	return &Aggregator{
		prices:         prices,
		maxQuantity:    decimal.NewFromInt(limits.MaxQuantity),
		maxRate:        decimal.NewFromInt(limits.MaxRate),
		maxAmountCents: limits.MaxAmountCents,
	}
}

// ProductAmountCents returns quantity × rate in integer cents.
func (a *Aggregator) ProductAmountCents(quantity, rate domain.Value) (int64, error) {
	q, err := pricing.ParseInput(quantity)
	if err != nil {
		return 0, domain.Invalidf("invalid quantity: %s", err)
	}
	r, err := pricing.ParseInput(rate)
	if err != nil {
		return 0, domain.Invalidf("invalid rate: %s", err)
	}

	if q.IsNegative() || q.GreaterThan(a.maxQuantity) {
		return 0, domain.Invalidf("quantity must be between 0 and %s, got %s", a.maxQuantity, quantity)
	}
	if r.IsNegative() || r.GreaterThan(a.maxRate) {
		return 0, domain.Invalidf("rate must be between 0 and %s, got %s", a.maxRate, rate)
	}

	amount := q.Mul(r)
	cents, err := a.prices.DecimalToCents(amount)
	if err != nil {
		return 0, err
	}
	if cents > a.maxAmountCents {
		return 0, domain.Invalidf("amount for quantity %s at rate %s is %d cents, exceeds maximum %d",
			quantity, rate, cents, a.maxAmountCents)
	}
	return cents, nil
}

// ProductAmount returns quantity × rate as a two-decimal dollar string.
func (a *Aggregator) ProductAmount(quantity, rate domain.Value) (string, error) {
	cents, err := a.ProductAmountCents(quantity, rate)
	if err != nil {
		return "", err
	}
	return a.prices.CentsToDollars(cents)
}

// Amounts returns the cents amount of every item, in order. A nil or empty
// slice yields an empty result.
func (a *Aggregator) Amounts(items []domain.LineItem) ([]int64, error) {
	amounts := make([]int64, len(items))
	for i, item := range items {
		if item.Quantity == nil || item.Rate == nil {
			payload, _ := json.Marshal(item)
			return nil, domain.Invalidf("product at index %d is missing quantity or rate: %s", i, payload)
		}
		cents, err := a.ProductAmountCents(*item.Quantity, *item.Rate)
		if err != nil {
			return nil, domain.Invalidf("product at index %d: %s", i, err)
		}
		amounts[i] = cents
	}
	return amounts, nil
}

// OrderTotalCents sums the line amounts of items in integer cents. An order
// with no items totals zero.
func (a *Aggregator) OrderTotalCents(items []domain.LineItem) (int64, error) {
	amounts, err := a.Amounts(items)
	if err != nil {
		return 0, err
	}
	return a.SumCents(amounts)
}

// SumCents adds precomputed line amounts, enforcing the order ceiling.
func (a *Aggregator) SumCents(amounts []int64) (int64, error) {
	var total int64
	for _, cents := range amounts {
		var err error
		total, err = a.prices.AddCents(total, cents)
		if err != nil {
			return 0, err
		}
		if total > a.maxAmountCents {
			return 0, domain.Invalidf("order total %d cents exceeds maximum %d", total, a.maxAmountCents)
		}
	}
	return total, nil
}

// OrderTotal returns the order total as a two-decimal dollar string.
func (a *Aggregator) OrderTotal(items []domain.LineItem) (string, error) {
	cents, err := a.OrderTotalCents(items)
	if err != nil {
		return "", err
	}
	return a.prices.CentsToDollars(cents)
}
