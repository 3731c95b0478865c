// Package pricing is the only place where dollar arithmetic happens.
//
// Every operation parses its inputs through ParseInput, computes exactly with
// decimal arithmetic, and rounds the result to cents before returning, so a
// chain of calls never accumulates error. Results that would be negative or
// exceed the configured ceilings are rejected with a *domain.ValidationError
// instead of being clamped, except where an operation documents a floor.
package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/pottycalc/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Inputs longer than maxInputLen or with more than maxInputDigits integer
// or fractional digits are rejected before any arithmetic. Comparing or
// rounding a decimal rescales its coefficient, so an unbounded exponent
// costs time and memory proportional to its size.
const (
	maxInputLen    = 64
	maxInputDigits = 40
)

// Calculator performs money-safe arithmetic within a set of limits.
// It holds no mutable state and is safe for concurrent use.
type Calculator struct {
	limits   domain.Limits
	maxPrice decimal.Decimal
	maxCents decimal.Decimal
}

// New creates a Calculator bound to the given limits.
func New(limits domain.Limits) *Calculator {
	return &Calculator{
		limits:   limits,
		maxPrice: decimal.NewFromInt(limits.MaxPrice),
		maxCents: decimal.NewFromInt(limits.MaxCents),
	}
}

// Limits returns the ceilings this calculator enforces.
func (c *Calculator) Limits() domain.Limits {
	return c.limits
}

// ParseInput converts a caller-supplied value into an exact decimal. Blank,
// malformed, NaN and infinite inputs are rejected.
func ParseInput(v domain.Value) (decimal.Decimal, error) {
	s := strings.TrimSpace(v.Raw())
	if s == "" {
		return decimal.Zero, domain.Invalidf("a numeric value is required")
	}
	if len(s) > maxInputLen {
		return decimal.Zero, domain.Invalidf("number %q... is longer than %d characters", s[:maxInputLen], maxInputLen)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, domain.Invalidf("invalid number %q", s)
	}
	exp, digits := int64(d.Exponent()), int64(d.NumDigits())
	if d.IsZero() {
		digits = 0
	}
	if exp < -maxInputDigits || exp+digits > maxInputDigits {
		return decimal.Zero, domain.Invalidf("number %q is out of range", s)
	}
	return d, nil
}

// FromCents wraps an integer cents amount as a dollar Value.
func FromCents(cents int64) domain.Value {
	return domain.Dec(decimal.New(cents, -2))
}

func parsePair(a, b domain.Value) (decimal.Decimal, decimal.Decimal, error) {
	da, err := ParseInput(a)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	db, err := ParseInput(b)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return da, db, nil
}

// parsePrices parses a and b and gates both as prices.
func (c *Calculator) parsePrices(a, b domain.Value) (decimal.Decimal, decimal.Decimal, error) {
	da, db, err := parsePair(a, b)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if err := c.gate("first operand", da); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if err := c.gate("second operand", db); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return da, db, nil
}

// gate rejects negative values and values above MaxPrice. label names the
// value in the error message.
func (c *Calculator) gate(label string, d decimal.Decimal) error {
	if d.IsNegative() {
		return domain.Invalidf("%s must be >= 0, got %s", label, d)
	}
	if d.GreaterThan(c.maxPrice) {
		return domain.Invalidf("%s %s exceeds maximum price %s", label, d, c.maxPrice)
	}
	return nil
}

// settle gates a computed result and rounds it to cents.
func (c *Calculator) settle(op string, a, b domain.Value, result decimal.Decimal) (decimal.Decimal, error) {
	if result.IsNegative() {
		return decimal.Zero, domain.Invalidf("%s(%s, %s) produced negative result %s", op, a, b, result)
	}
	if result.GreaterThan(c.maxPrice) {
		return decimal.Zero, domain.Invalidf("%s(%s, %s) result %s exceeds maximum price %s", op, a, b, result, c.maxPrice)
	}
	return result.Round(2), nil
}

// RoundPrice validates that v is a legal price (0 <= v <= MaxPrice) and
// rounds it to 2 decimals.
func (c *Calculator) RoundPrice(v domain.Value) (decimal.Decimal, error) {
	d, err := ParseInput(v)
	if err != nil {
		return decimal.Zero, err
	}
	if err := c.gate("price", d); err != nil {
		return decimal.Zero, err
	}
	return d.Round(2), nil
}

// Add returns a+b rounded to cents. Both operands must be legal prices.
func (c *Calculator) Add(a, b domain.Value) (decimal.Decimal, error) {
	da, db, err := c.parsePrices(a, b)
	if err != nil {
		return decimal.Zero, err
	}
	return c.settle("add", a, b, da.Add(db))
}

// Subtract returns a-b rounded to cents. Both operands must be legal prices;
// it is the one binary operation whose result may be negative.
func (c *Calculator) Subtract(a, b domain.Value) (decimal.Decimal, error) {
	da, db, err := c.parsePrices(a, b)
	if err != nil {
		return decimal.Zero, err
	}
	return da.Sub(db).Round(2), nil
}

// Multiply returns a*b rounded to cents. a is the dollar amount and must be a
// legal price; a negative product is rejected.
func (c *Calculator) Multiply(a, b domain.Value) (decimal.Decimal, error) {
	da, db, err := parsePair(a, b)
	if err != nil {
		return decimal.Zero, err
	}
	if err := c.gate("amount", da); err != nil {
		return decimal.Zero, err
	}
	return c.settle("multiply", a, b, da.Mul(db))
}

// Divide returns a/b rounded to cents. a must be a legal price. Division by
// zero and negative quotients are rejected.
func (c *Calculator) Divide(a, b domain.Value) (decimal.Decimal, error) {
	da, db, err := parsePair(a, b)
	if err != nil {
		return decimal.Zero, err
	}
	if err := c.gate("amount", da); err != nil {
		return decimal.Zero, err
	}
	if db.IsZero() {
		return decimal.Zero, domain.Invalidf("divide(%s, %s): division by zero", a, b)
	}
	return c.settle("divide", a, b, da.Div(db))
}

// DollarsToCents converts a dollar amount to integer cents, rounding half up.
func (c *Calculator) DollarsToCents(v domain.Value) (int64, error) {
	d, err := ParseInput(v)
	if err != nil {
		return 0, err
	}
	return c.DecimalToCents(d)
}

// DecimalToCents is DollarsToCents for an amount that is already an exact
// decimal, such as a product computed by the caller.
func (c *Calculator) DecimalToCents(d decimal.Decimal) (int64, error) {
	if d.IsNegative() {
		return 0, domain.Invalidf("amount must be >= 0 to convert to cents, got %s", d)
	}
	cents := d.Mul(hundred).Round(0)
	if cents.GreaterThan(c.maxCents) {
		return 0, domain.Invalidf("amount %s is %s cents, exceeds maximum %s cents", d, cents, c.maxCents)
	}
	return cents.IntPart(), nil
}

// CentsToDollars formats integer cents as a two-decimal dollar string,
// e.g. 19500 -> "195.00".
func (c *Calculator) CentsToDollars(cents int64) (string, error) {
	if cents < 0 {
		return "", domain.Invalidf("cents must be >= 0, got %d", cents)
	}
	if cents > c.limits.MaxCents {
		return "", domain.Invalidf("cents %d exceeds maximum %d", cents, c.limits.MaxCents)
	}
	return decimal.New(cents, -2).StringFixed(2), nil
}

// AddCents sums two non-negative cent amounts exactly.
func (c *Calculator) AddCents(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, domain.Invalidf("cents operands must be >= 0, got %d and %d", a, b)
	}
	if a > c.limits.MaxCents-b {
		return 0, domain.Invalidf("sum of %d and %d cents exceeds maximum %d", a, b, c.limits.MaxCents)
	}
	return a + b, nil
}

// Percentage returns pct percent of amount. pct must be within [0, 100].
func (c *Calculator) Percentage(amount, pct domain.Value) (decimal.Decimal, error) {
	da, dp, err := parsePair(amount, pct)
	if err != nil {
		return decimal.Zero, err
	}
	if dp.IsNegative() || dp.GreaterThan(hundred) {
		return decimal.Zero, domain.Invalidf("percentage must be between 0 and 100, got %s", pct)
	}
	if err := c.gate("amount", da); err != nil {
		return decimal.Zero, err
	}
	return c.settle("percentage", amount, pct, da.Mul(dp).Div(hundred))
}

// AddMargin adds a non-negative dollar margin to amount.
func (c *Calculator) AddMargin(amount, margin domain.Value) (decimal.Decimal, error) {
	dm, err := ParseInput(margin)
	if err != nil {
		return decimal.Zero, err
	}
	if dm.IsNegative() {
		return decimal.Zero, domain.Invalidf("margin must be >= 0, got %s", margin)
	}
	return c.Add(amount, margin)
}

// ApplyMultiplier scales amount by a non-negative multiplier.
func (c *Calculator) ApplyMultiplier(amount, multiplier domain.Value) (decimal.Decimal, error) {
	dm, err := ParseInput(multiplier)
	if err != nil {
		return decimal.Zero, err
	}
	if dm.IsNegative() {
		return decimal.Zero, domain.Invalidf("multiplier must be >= 0, got %s", multiplier)
	}
	return c.Multiply(amount, multiplier)
}

// floorDiff gates both operands as prices, rounds them to cents and returns
// max(0, a-b).
func (c *Calculator) floorDiff(aLabel, bLabel string, a, b domain.Value) (decimal.Decimal, error) {
	da, db, err := parsePair(a, b)
	if err != nil {
		return decimal.Zero, err
	}
	if err := c.gate(aLabel, da); err != nil {
		return decimal.Zero, err
	}
	if err := c.gate(bLabel, db); err != nil {
		return decimal.Zero, err
	}
	return decimal.Max(decimal.Zero, da.Round(2).Sub(db.Round(2))), nil
}

// BalanceDue returns total-paid, floored at zero on overpayment.
func (c *Calculator) BalanceDue(total, paid domain.Value) (decimal.Decimal, error) {
	return c.floorDiff("total", "paid amount", total, paid)
}

// NetPaidAmount returns paid-refunded, floored at zero.
func (c *Calculator) NetPaidAmount(paid, refunded domain.Value) (decimal.Decimal, error) {
	return c.floorDiff("paid amount", "refunded amount", paid, refunded)
}

// AvailableRefund returns how much of a payment can still be refunded.
// A refunded amount larger than the payment is rejected.
func (c *Calculator) AvailableRefund(payment, refunded domain.Value) (decimal.Decimal, error) {
	dp, dr, err := parsePair(payment, refunded)
	if err != nil {
		return decimal.Zero, err
	}
	if err := c.gate("payment amount", dp); err != nil {
		return decimal.Zero, err
	}
	if err := c.gate("refunded amount", dr); err != nil {
		return decimal.Zero, err
	}
	dp, dr = dp.Round(2), dr.Round(2)
	if dr.GreaterThan(dp) {
		return decimal.Zero, domain.Invalidf("refunded amount %s exceeds payment amount %s", dr, dp)
	}
	return dp.Sub(dr), nil
}

// OrderRevenue returns (sales - jobOrder) + vendorCharges. The result is
// not clamped: a job order costing more than the sale yields negative revenue.
func (c *Calculator) OrderRevenue(sales, jobOrder, vendorCharges domain.Value) (decimal.Decimal, error) {
	ds, dj, err := parsePair(sales, jobOrder)
	if err != nil {
		return decimal.Zero, err
	}
	dv, err := ParseInput(vendorCharges)
	if err != nil {
		return decimal.Zero, err
	}
	for _, op := range []struct {
		label string
		d     decimal.Decimal
	}{{"sales amount", ds}, {"job order amount", dj}, {"vendor charges", dv}} {
		if err := c.gate(op.label, op.d); err != nil {
			return decimal.Zero, err
		}
	}
	return ds.Round(2).Sub(dj.Round(2)).Add(dv.Round(2)), nil
}

// PriceDifferencePercentage returns the signed change from original to
// updated as a percentage of original, rounded to 2 decimals.
func (c *Calculator) PriceDifferencePercentage(original, updated domain.Value) (decimal.Decimal, error) {
	do, du, err := parsePair(original, updated)
	if err != nil {
		return decimal.Zero, err
	}
	if !do.IsPositive() {
		return decimal.Zero, domain.Invalidf("original price must be > 0 to compute a percentage difference, got %s", original)
	}
	if err := c.gate("original price", do); err != nil {
		return decimal.Zero, err
	}
	if err := c.gate("new price", du); err != nil {
		return decimal.Zero, err
	}
	return du.Sub(do).Mul(hundred).Div(do).Round(2), nil
}

// AccuracyRating scores how close actual came to original on a 0-100 scale:
// 100 minus the absolute percentage difference, floored at zero.
func (c *Calculator) AccuracyRating(original, actual domain.Value) (decimal.Decimal, error) {
	diff, err := c.PriceDifferencePercentage(original, actual)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.Max(decimal.Zero, hundred.Sub(diff.Abs())), nil
}
