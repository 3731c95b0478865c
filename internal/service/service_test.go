package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/efreitasn/pottycalc/internal/domain"
	"github.com/efreitasn/pottycalc/internal/lineitem"
	"github.com/efreitasn/pottycalc/internal/pricing"
	"github.com/efreitasn/pottycalc/internal/store"
)

type testServices struct {
	quotes   *QuoteService
	payments *PaymentService
	jobs     *JobService
}

func newTestServices() testServices {
	limits := domain.DefaultLimits()
	prices := pricing.New(limits)
	items := lineitem.New(prices, limits)
	s := store.NewMemoryQuoteStore()
	return testServices{
		quotes:   NewQuoteService(s, prices, items),
		payments: NewPaymentService(s, prices),
		jobs:     NewJobService(s, prices),
	}
}

func ptr(v domain.Value) *domain.Value { return &v }

// standardOrder is three standard units at $65 and a hand-wash station at $45.
func standardOrder() []domain.LineItem {
	return []domain.LineItem{
		domain.NewLineItem(domain.Num(3), domain.Num(65)),
		domain.NewLineItem(domain.Num(1), domain.Str("45.00")),
	}
}

func createStandardQuote(t *testing.T, svc testServices) *domain.Quote {
	t.Helper()
	q, err := svc.quotes.Create(context.Background(), CreateQuoteRequest{
		Customer:  "Riverside Festival",
		LineItems: standardOrder(),
	})
	require.NoError(t, err)
	return q
}

func TestCreateQuote_Subtotal(t *testing.T) {
	svc := newTestServices()
	q := createStandardQuote(t, svc)

	assert.NotEmpty(t, q.QuoteID)
	assert.Equal(t, []int64{19500, 4500}, q.LineAmounts)
	assert.Equal(t, int64(24000), q.SubtotalCents)
	assert.Equal(t, int64(24000), q.TotalCents)
	assert.Equal(t, int64(24000), q.BalanceDueCents)
	assert.Equal(t, domain.QuoteStatusOpen, q.Status)
}

func TestCreateQuote_MarginAndTax(t *testing.T) {
	svc := newTestServices()
	q, err := svc.quotes.Create(context.Background(), CreateQuoteRequest{
		Customer:  "Riverside Festival",
		LineItems: standardOrder(),
		Margin:    ptr(domain.Str("10")),
		TaxRate:   ptr(domain.Num(8.5)),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(24000), q.SubtotalCents)
	assert.Equal(t, int64(1000), q.MarginCents)
	assert.Equal(t, int64(2125), q.TaxCents)
	assert.Equal(t, int64(27125), q.TotalCents)
	assert.Equal(t, "8.5", q.TaxRate.String())
	assert.Equal(t, q.SubtotalCents+q.MarginCents+q.TaxCents, q.TotalCents)
}

func TestCreateQuote_Validation(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateQuoteRequest
		msg  string
	}{
		{"blank customer", CreateQuoteRequest{Customer: "  ", LineItems: standardOrder()}, "customer"},
		{"no line items", CreateQuoteRequest{Customer: "Acme"}, "line item"},
		{"bad line item", CreateQuoteRequest{
			Customer:  "Acme",
			LineItems: []domain.LineItem{domain.NewLineItem(domain.Num(1), domain.Str("abc"))},
		}, "index 0"},
		{"tax over 100", CreateQuoteRequest{Customer: "Acme", LineItems: standardOrder(), TaxRate: ptr(domain.Int(150))}, "percentage"},
		{"malformed tax rate", CreateQuoteRequest{Customer: "Acme", LineItems: standardOrder(), TaxRate: ptr(domain.Str("8.5%"))}, "tax rate"},
		{"blank tax rate", CreateQuoteRequest{Customer: "Acme", LineItems: standardOrder(), TaxRate: ptr(domain.Str(""))}, "tax rate"},
		{"negative margin", CreateQuoteRequest{Customer: "Acme", LineItems: standardOrder(), Margin: ptr(domain.Int(-5))}, "margin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.quotes.Create(ctx, tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestGetQuote_NotFound(t *testing.T) {
	svc := newTestServices()
	_, err := svc.quotes.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrQuoteNotFound)
}

func TestListQuotes(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		createStandardQuote(t, svc)
	}

	page, err := svc.quotes.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Quotes, 2)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)

	page, err = svc.quotes.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page.Quotes, 1)

	_, err = svc.quotes.List(ctx, 0, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = svc.quotes.List(ctx, 1, MaxPageLimit+1)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestRecordPayment_PartialThenFull(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	q := createStandardQuote(t, svc)

	q, p, err := svc.payments.RecordPayment(ctx, q.QuoteID, domain.Num(100))
	require.NoError(t, err)
	assert.Equal(t, int64(10000), p.AmountCents)
	assert.Equal(t, int64(14000), q.BalanceDueCents)
	assert.Equal(t, domain.QuoteStatusOpen, q.Status)

	// Overpayment is accepted; the balance floors at zero.
	q, _, err = svc.payments.RecordPayment(ctx, q.QuoteID, domain.Str("200"))
	require.NoError(t, err)
	assert.Equal(t, int64(30000), q.PaidCents)
	assert.Equal(t, int64(0), q.BalanceDueCents)
	assert.Equal(t, domain.QuoteStatusPaid, q.Status)
	assert.Len(t, q.Payments, 2)

	_, _, err = svc.payments.RecordPayment(ctx, q.QuoteID, domain.Num(1))
	assert.ErrorIs(t, err, domain.ErrQuoteAlreadyPaid)
}

func TestRecordPayment_Validation(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	q := createStandardQuote(t, svc)

	for _, amount := range []domain.Value{domain.Num(0), domain.Num(-5), domain.Str("ten"), {}} {
		_, _, err := svc.payments.RecordPayment(ctx, q.QuoteID, amount)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument, "amount %q", amount.Raw())
	}

	_, _, err := svc.payments.RecordPayment(ctx, "missing", domain.Num(10))
	assert.ErrorIs(t, err, domain.ErrQuoteNotFound)
}

func TestRecordRefund(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	q := createStandardQuote(t, svc)

	_, first, err := svc.payments.RecordPayment(ctx, q.QuoteID, domain.Num(100))
	require.NoError(t, err)
	_, second, err := svc.payments.RecordPayment(ctx, q.QuoteID, domain.Num(200))
	require.NoError(t, err)

	// Net paid 250 still covers the 240 total.
	q, p, err := svc.payments.RecordRefund(ctx, q.QuoteID, second.PaymentID, domain.Num(50))
	require.NoError(t, err)
	assert.Equal(t, int64(5000), p.RefundedCents)
	assert.Equal(t, int64(5000), q.RefundedCents)
	assert.Equal(t, int64(0), q.BalanceDueCents)
	assert.Equal(t, domain.QuoteStatusPaid, q.Status)

	// Refunding the whole first payment reopens the quote.
	q, _, err = svc.payments.RecordRefund(ctx, q.QuoteID, first.PaymentID, domain.Num(100))
	require.NoError(t, err)
	assert.Equal(t, int64(9000), q.BalanceDueCents)
	assert.Equal(t, domain.QuoteStatusOpen, q.Status)

	t.Run("exceeds remaining", func(t *testing.T) {
		_, _, err := svc.payments.RecordRefund(ctx, q.QuoteID, second.PaymentID, domain.Str("150.01"))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		assert.Contains(t, err.Error(), "refund of 150.01 exceeds the 150.00 still refundable")
	})

	t.Run("fully refunded payment", func(t *testing.T) {
		_, _, err := svc.payments.RecordRefund(ctx, q.QuoteID, first.PaymentID, domain.Num(0.01))
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("unknown payment", func(t *testing.T) {
		_, _, err := svc.payments.RecordRefund(ctx, q.QuoteID, "missing", domain.Num(1))
		assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
	})
}

func TestRecordPayment_Concurrent(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	q := createStandardQuote(t, svc)

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, _, _ = svc.payments.RecordPayment(ctx, q.QuoteID, domain.Num(1))
		}()
	}
	wg.Wait()

	got, err := svc.quotes.Get(ctx, q.QuoteID)
	require.NoError(t, err)
	assert.Equal(t, int64(n*100), got.PaidCents)
	assert.Equal(t, int64(24000-n*100), got.BalanceDueCents)
	assert.Len(t, got.Payments, n)
}

func TestCompleteJob(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	q := createStandardQuote(t, svc)

	q, err := svc.jobs.Complete(ctx, q.QuoteID, CompleteJobRequest{
		JobOrderAmount: domain.Num(180),
		VendorCharges:  domain.Num(20),
		ActualAmount:   domain.Num(216),
	})
	require.NoError(t, err)
	require.NotNil(t, q.JobOrder)

	assert.Equal(t, domain.QuoteStatusCompleted, q.Status)
	assert.Equal(t, "80", q.JobOrder.Revenue.String())
	require.NotNil(t, q.JobOrder.DifferencePercent)
	assert.Equal(t, "-10", q.JobOrder.DifferencePercent.String())
	require.NotNil(t, q.JobOrder.AccuracyRating)
	assert.Equal(t, "90", q.JobOrder.AccuracyRating.String())

	_, err = svc.jobs.Complete(ctx, q.QuoteID, CompleteJobRequest{JobOrderAmount: domain.Num(1)})
	assert.ErrorIs(t, err, domain.ErrQuoteCompleted)
}

func TestCompleteJob_NegativeRevenue(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	q := createStandardQuote(t, svc)

	q, err := svc.jobs.Complete(ctx, q.QuoteID, CompleteJobRequest{JobOrderAmount: domain.Num(300)})
	require.NoError(t, err)
	assert.Equal(t, "-60", q.JobOrder.Revenue.String())
	assert.Equal(t, int64(24000), q.JobOrder.ActualCents)
	assert.Equal(t, "100", q.JobOrder.AccuracyRating.String())
}

func TestCompleteJob_ZeroQuote(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	q, err := svc.quotes.Create(ctx, CreateQuoteRequest{
		Customer:  "Acme",
		LineItems: []domain.LineItem{domain.NewLineItem(domain.Num(0), domain.Num(65))},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusPaid, q.Status)

	q, err = svc.jobs.Complete(ctx, q.QuoteID, CompleteJobRequest{
		JobOrderAmount: domain.Num(0),
		ActualAmount:   domain.Num(50),
	})
	require.NoError(t, err)
	assert.Nil(t, q.JobOrder.DifferencePercent)
	assert.Nil(t, q.JobOrder.AccuracyRating)
}

func TestCompleteJob_Validation(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()
	q := createStandardQuote(t, svc)

	_, err := svc.jobs.Complete(ctx, q.QuoteID, CompleteJobRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.jobs.Complete(ctx, q.QuoteID, CompleteJobRequest{
		JobOrderAmount: domain.Num(10),
		VendorCharges:  domain.Num(-1),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = svc.jobs.Complete(ctx, "missing", CompleteJobRequest{JobOrderAmount: domain.Num(10)})
	assert.True(t, errors.Is(err, domain.ErrQuoteNotFound))
}

func TestAccuracyReport(t *testing.T) {
	svc := newTestServices()
	ctx := context.Background()

	report, err := svc.quotes.Accuracy(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.CompletedJobs)
	assert.Nil(t, report.AverageAccuracy)

	a := createStandardQuote(t, svc)
	b := createStandardQuote(t, svc)
	createStandardQuote(t, svc)

	_, err = svc.jobs.Complete(ctx, a.QuoteID, CompleteJobRequest{JobOrderAmount: domain.Num(180), ActualAmount: domain.Num(216)})
	require.NoError(t, err)
	_, err = svc.jobs.Complete(ctx, b.QuoteID, CompleteJobRequest{JobOrderAmount: domain.Num(180)})
	require.NoError(t, err)

	report, err = svc.quotes.Accuracy(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.CompletedJobs)
	require.NotNil(t, report.AverageAccuracy)
	assert.Equal(t, 95.0, *report.AverageAccuracy)
}
