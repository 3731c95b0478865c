// Package service implements the quote lifecycle on top of the pricing core:
// quoting line items, taking payments and refunds, and closing out the job.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/pottycalc/internal/domain"
	"github.com/efreitasn/pottycalc/internal/lineitem"
	"github.com/efreitasn/pottycalc/internal/numeric"
	"github.com/efreitasn/pottycalc/internal/pricing"
	"github.com/efreitasn/pottycalc/internal/store"
)

// MaxPageLimit caps the page size of quote listings.
const MaxPageLimit = 100

// CreateQuoteRequest represents the input for quote creation. Margin is a
// dollar amount added before tax; TaxRate is a percentage. Both are optional.
type CreateQuoteRequest struct {
	Customer  string
	LineItems []domain.LineItem
	Margin    *domain.Value
	TaxRate   *domain.Value
}

// QuotePage is one page of a quote listing.
type QuotePage struct {
	Quotes     []*domain.Quote
	Page       int
	Limit      int
	Total      int
	TotalPages int
}

// AccuracyReport summarizes how close completed jobs came to their quotes.
type AccuracyReport struct {
	CompletedJobs   int
	AverageAccuracy *float64 // nil when no completed job has a rating
}

// QuoteService prices and stores quotes.
type QuoteService struct {
	store  store.QuoteStore
	prices *pricing.Calculator
	items  *lineitem.Aggregator
	now    func() time.Time
}

// NewQuoteService creates a new QuoteService.
func NewQuoteService(s store.QuoteStore, prices *pricing.Calculator, items *lineitem.Aggregator) *QuoteService {
	return &QuoteService{
		store:  s,
		prices: prices,
		items:  items,
		now:    time.Now,
	}
}

// Create prices the line items, applies margin then tax, and stores the
// quote. The total is the sum of the displayed parts: subtotal, margin, tax.
func (s *QuoteService) Create(ctx context.Context, req CreateQuoteRequest) (*domain.Quote, error) {
	customer := strings.TrimSpace(req.Customer)
	if customer == "" {
		return nil, domain.Invalidf("customer is required")
	}
	if len(req.LineItems) == 0 {
		return nil, domain.Invalidf("a quote needs at least one line item")
	}

	amounts, err := s.items.Amounts(req.LineItems)
	if err != nil {
		return nil, err
	}
	subtotal, err := s.items.SumCents(amounts)
	if err != nil {
		return nil, err
	}

	preTax := subtotal
	if req.Margin != nil {
		withMargin, err := s.prices.AddMargin(pricing.FromCents(subtotal), *req.Margin)
		if err != nil {
			return nil, err
		}
		if preTax, err = s.prices.DollarsToCents(domain.Dec(withMargin)); err != nil {
			return nil, err
		}
	}

	taxRate := decimal.Zero
	var taxCents int64
	if req.TaxRate != nil {
		if taxRate, err = pricing.ParseInput(*req.TaxRate); err != nil {
			return nil, domain.Invalidf("tax rate: %s", err)
		}
		tax, err := s.prices.Percentage(pricing.FromCents(preTax), domain.Dec(taxRate))
		if err != nil {
			return nil, err
		}
		if taxCents, err = s.prices.DollarsToCents(domain.Dec(tax)); err != nil {
			return nil, err
		}
	}

	total, err := s.prices.Add(pricing.FromCents(preTax), pricing.FromCents(taxCents))
	if err != nil {
		return nil, err
	}
	totalCents, err := s.prices.DollarsToCents(domain.Dec(total))
	if err != nil {
		return nil, err
	}

	now := s.now()
	q := &domain.Quote{
		QuoteID:         uuid.New().String(),
		Customer:        customer,
		LineItems:       req.LineItems,
		LineAmounts:     amounts,
		SubtotalCents:   subtotal,
		MarginCents:     preTax - subtotal,
		TaxRate:         taxRate,
		TaxCents:        taxCents,
		TotalCents:      totalCents,
		BalanceDueCents: totalCents,
		Status:          domain.QuoteStatusOpen,
		Payments:        []*domain.Payment{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if totalCents == 0 {
		q.Status = domain.QuoteStatusPaid
	}

	if err := s.store.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Get retrieves a quote by ID.
func (s *QuoteService) Get(ctx context.Context, id string) (*domain.Quote, error) {
	return s.store.Get(ctx, id)
}

// List returns a 1-based page of quotes, newest first.
func (s *QuoteService) List(ctx context.Context, page, limit int) (*QuotePage, error) {
	if limit > MaxPageLimit {
		return nil, domain.Invalidf("limit must be <= %d, got %d", MaxPageLimit, limit)
	}
	skip, err := numeric.Skip(page, limit)
	if err != nil {
		return nil, err
	}

	quotes, total, err := s.store.List(ctx, skip, limit)
	if err != nil {
		return nil, err
	}
	pages, err := numeric.TotalPages(total, limit)
	if err != nil {
		return nil, err
	}

	return &QuotePage{
		Quotes:     quotes,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: pages,
	}, nil
}

// Accuracy averages the accuracy rating of every completed job, walking the
// store page by page.
func (s *QuoteService) Accuracy(ctx context.Context) (*AccuracyReport, error) {
	var ratings []string
	report := &AccuracyReport{}

	for skip := 0; ; skip += MaxPageLimit {
		quotes, total, err := s.store.List(ctx, skip, MaxPageLimit)
		if err != nil {
			return nil, err
		}
		for _, q := range quotes {
			if q.Status != domain.QuoteStatusCompleted || q.JobOrder == nil {
				continue
			}
			report.CompletedJobs++
			if q.JobOrder.AccuracyRating != nil {
				ratings = append(ratings, q.JobOrder.AccuracyRating.String())
			}
		}
		if skip+MaxPageLimit >= total {
			break
		}
	}

	if len(ratings) == 0 {
		return report, nil
	}
	avg, err := numeric.Average(ratings)
	if err != nil {
		return nil, err
	}
	avg, err = numeric.Round2(avg)
	if err != nil {
		return nil, err
	}
	report.AverageAccuracy = &avg
	return report, nil
}
