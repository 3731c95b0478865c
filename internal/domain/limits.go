package domain

import "fmt"

// Limits holds every numeric ceiling used by the price and line-item layers.
// Both layers receive the same value so their bounds cannot drift apart.
type Limits struct {
	MaxPrice       int64 // dollars, per price
	MaxCents       int64 // cents, per conversion
	MaxQuantity    int64 // units, per line item
	MaxRate        int64 // dollars, per line item
	MaxAmountCents int64 // cents, per line amount and per order total
}

// DefaultLimits returns the production ceilings.
func DefaultLimits() Limits {
	return Limits{
		MaxPrice:       1_000_000_000,
		MaxCents:       1_000_000_000_000,
		MaxQuantity:    1_000_000,
		MaxRate:        1_000_000,
		MaxAmountCents: 1_000_000_000_000,
	}
}

// Validate checks that every ceiling is positive and that the cents-domain
// ceilings can represent everything the dollar-domain ceilings admit.
func (l Limits) Validate() error {
	fields := []struct {
		name string
		v    int64
	}{
		{"max_price", l.MaxPrice},
		{"max_cents", l.MaxCents},
		{"max_quantity", l.MaxQuantity},
		{"max_rate", l.MaxRate},
		{"max_amount_cents", l.MaxAmountCents},
	}
	for _, f := range fields {
		if f.v <= 0 {
			return fmt.Errorf("%s must be > 0, got %d", f.name, f.v)
		}
	}

	if l.MaxAmountCents > l.MaxCents {
		return fmt.Errorf("max_amount_cents (%d) must not exceed max_cents (%d)", l.MaxAmountCents, l.MaxCents)
	}
	if l.MaxPrice > l.MaxCents/100 {
		return fmt.Errorf("max_price (%d dollars) is not representable within max_cents (%d)", l.MaxPrice, l.MaxCents)
	}
	return nil
}
