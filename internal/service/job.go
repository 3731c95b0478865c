package service

import (
	"context"
	"time"

	"github.com/efreitasn/pottycalc/internal/domain"
	"github.com/efreitasn/pottycalc/internal/pricing"
	"github.com/efreitasn/pottycalc/internal/store"
)

// CompleteJobRequest represents the input for closing out a quote.
// VendorCharges defaults to zero. ActualAmount, the price the customer ended
// up paying for the work, defaults to the quoted total.
type CompleteJobRequest struct {
	JobOrderAmount domain.Value
	VendorCharges  domain.Value
	ActualAmount   domain.Value
}

// JobService records the job order that fulfilled a quote.
type JobService struct {
	store  store.QuoteStore
	prices *pricing.Calculator
	now    func() time.Time
}

// NewJobService creates a new JobService.
func NewJobService(s store.QuoteStore, prices *pricing.Calculator) *JobService {
	return &JobService{
		store:  s,
		prices: prices,
		now:    time.Now,
	}
}

// Complete computes revenue and quoting accuracy and marks the quote
// completed. Completing a quote twice returns domain.ErrQuoteCompleted.
func (s *JobService) Complete(ctx context.Context, quoteID string, req CompleteJobRequest) (*domain.Quote, error) {
	jobCents, err := s.prices.DollarsToCents(req.JobOrderAmount)
	if err != nil {
		return nil, domain.Invalidf("job order amount: %s", err)
	}
	vendorCents, err := s.optionalCents("vendor charges", req.VendorCharges)
	if err != nil {
		return nil, err
	}
	var actualCents *int64
	if !req.ActualAmount.IsZero() {
		c, err := s.prices.DollarsToCents(req.ActualAmount)
		if err != nil {
			return nil, domain.Invalidf("actual amount: %s", err)
		}
		actualCents = &c
	}

	return s.store.Update(ctx, quoteID, func(q *domain.Quote) error {
		if q.Status == domain.QuoteStatusCompleted {
			return domain.ErrQuoteCompleted
		}

		sales := pricing.FromCents(q.TotalCents)
		revenue, err := s.prices.OrderRevenue(sales, pricing.FromCents(jobCents), pricing.FromCents(vendorCents))
		if err != nil {
			return err
		}

		jo := &domain.JobOrder{
			JobOrderCents:      jobCents,
			VendorChargesCents: vendorCents,
			ActualCents:        q.TotalCents,
			Revenue:            revenue,
			CompletedAt:        s.now(),
		}
		if actualCents != nil {
			jo.ActualCents = *actualCents
		}

		// A zero quote has no base to measure against.
		if q.TotalCents > 0 {
			actual := pricing.FromCents(jo.ActualCents)
			diff, err := s.prices.PriceDifferencePercentage(sales, actual)
			if err != nil {
				return err
			}
			rating, err := s.prices.AccuracyRating(sales, actual)
			if err != nil {
				return err
			}
			jo.DifferencePercent = &diff
			jo.AccuracyRating = &rating
		}

		q.JobOrder = jo
		q.Status = domain.QuoteStatusCompleted
		q.UpdatedAt = jo.CompletedAt
		return nil
	})
}

func (s *JobService) optionalCents(label string, v domain.Value) (int64, error) {
	if v.IsZero() {
		return 0, nil
	}
	cents, err := s.prices.DollarsToCents(v)
	if err != nil {
		return 0, domain.Invalidf("%s: %s", label, err)
	}
	return cents, nil
}
