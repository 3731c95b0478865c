package lineitem

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efreitasn/pottycalc/internal/domain"
	"github.com/efreitasn/pottycalc/internal/pricing"
)

func newTestAggregator() *Aggregator {
	limits := domain.DefaultLimits()
	return New(pricing.New(limits), limits)
}

func item(q, r float64) domain.LineItem {
	return domain.NewLineItem(domain.Num(q), domain.Num(r))
}

func TestProductAmount(t *testing.T) {
	a := newTestAggregator()

	tests := []struct {
		name     string
		quantity domain.Value
		rate     domain.Value
		want     string
		wantErr  bool
	}{
		{"standard unit", domain.Num(3), domain.Num(65), "195.00", false},
		{"string inputs", domain.Str("2"), domain.Str("45.50"), "91.00", false},
		{"fractional quantity", domain.Num(1.5), domain.Num(33.33), "50.00", false},
		{"sub-cent product rounds", domain.Num(3), domain.Num(0.333), "1.00", false},
		{"zero quantity", domain.Num(0), domain.Num(65), "0.00", false},
		{"float artifact", domain.Num(0.1), domain.Num(3), "0.30", false},
		{"max quantity", domain.Int(1_000_000), domain.Num(1), "1000000.00", false},
		{"quantity above max", domain.Int(1_000_001), domain.Num(1), "", true},
		{"rate above max", domain.Num(1), domain.Int(1_000_001), "", true},
		{"negative quantity", domain.Num(-1), domain.Num(65), "", true},
		{"negative rate", domain.Num(1), domain.Num(-65), "", true},
		{"malformed quantity", domain.Str("three"), domain.Num(65), "", true},
		{"empty rate", domain.Num(3), domain.Value{}, "", true},
		{"amount above max cents", domain.Int(1_000_000), domain.Int(1_000_000), "", true},
		{"high precision operands", domain.Str("1.000000000000000000000000000001"), domain.Str("2.000000000000000000000000000001"), "2.00", false},
		{"huge exponent quantity", domain.Str("1e1000000"), domain.Num(1), "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.ProductAmount(tt.quantity, tt.rate)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProductAmountCents(t *testing.T) {
	a := newTestAggregator()

	cents, err := a.ProductAmountCents(domain.Num(3), domain.Num(65))
	require.NoError(t, err)
	assert.Equal(t, int64(19500), cents)

	_, err = a.ProductAmountCents(domain.Int(1_000_001), domain.Num(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantity")
}

func TestOrderTotal(t *testing.T) {
	a := newTestAggregator()

	t.Run("two products", func(t *testing.T) {
		got, err := a.OrderTotal([]domain.LineItem{item(3, 65), item(1, 45)})
		require.NoError(t, err)
		assert.Equal(t, "240.00", got)
	})

	t.Run("empty order", func(t *testing.T) {
		got, err := a.OrderTotal([]domain.LineItem{})
		require.NoError(t, err)
		assert.Equal(t, "0.00", got)
	})

	t.Run("nil order", func(t *testing.T) {
		cents, err := a.OrderTotalCents(nil)
		require.NoError(t, err)
		assert.Zero(t, cents)
	})

	t.Run("sum of rounded parts equals total", func(t *testing.T) {
		// Each line is 0.333 × 1 = 0.33 after rounding; three lines total 0.99.
		items := []domain.LineItem{item(1, 0.333), item(1, 0.333), item(1, 0.333)}
		got, err := a.OrderTotal(items)
		require.NoError(t, err)
		assert.Equal(t, "0.99", got)
	})

	t.Run("missing rate names index and payload", func(t *testing.T) {
		q := domain.Num(2)
		bad := domain.LineItem{
			Quantity: &q,
			Extra:    map[string]json.RawMessage{"description": json.RawMessage(`"Deluxe flushable unit"`)},
		}
		_, err := a.OrderTotal([]domain.LineItem{item(3, 65), bad})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		assert.Contains(t, err.Error(), "index 1")
		assert.Contains(t, err.Error(), `"description":"Deluxe flushable unit"`)
		assert.Contains(t, err.Error(), `"quantity":2`)
	})

	t.Run("missing quantity", func(t *testing.T) {
		r := domain.Num(10)
		_, err := a.OrderTotalCents([]domain.LineItem{{Rate: &r}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "index 0")
	})

	t.Run("invalid item fails the whole order", func(t *testing.T) {
		_, err := a.OrderTotal([]domain.LineItem{item(3, 65), item(1_000_001, 1)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "index 1")
	})

	t.Run("order total above ceiling", func(t *testing.T) {
		limits := domain.DefaultLimits()
		limits.MaxAmountCents = 30_000
		small := New(pricing.New(limits), limits)

		_, err := small.OrderTotal([]domain.LineItem{item(3, 65), item(3, 65)})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds maximum")
	})
}

func TestOrderTotalFromJSON(t *testing.T) {
	a := newTestAggregator()

	var items []domain.LineItem
	payload := `[
		{"product_id": "std-unit", "quantity": 3, "rate": "65"},
		{"product_id": "hand-wash", "quantity": "1", "rate": 45.00}
	]`
	require.NoError(t, json.Unmarshal([]byte(payload), &items))

	got, err := a.OrderTotal(items)
	require.NoError(t, err)
	assert.Equal(t, "240.00", got)

	amounts, err := a.Amounts(items)
	require.NoError(t, err)
	assert.Equal(t, []int64{19500, 4500}, amounts)
}
