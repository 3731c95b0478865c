// Package store persists quotes.
package store

import (
	"context"
	"time"

	"github.com/efreitasn/pottycalc/internal/domain"
)

// QuoteStore is the persistence boundary for quotes. Implementations return
// copies, so callers may read a quote without holding any lock. Changes go
// through Update, which applies fn atomically to the stored quote.
type QuoteStore interface {
	Create(ctx context.Context, q *domain.Quote) error
	Get(ctx context.Context, id string) (*domain.Quote, error)
	// Update loads the quote, calls fn on a copy and persists the copy only
	// if fn returns nil. It returns the persisted quote.
	Update(ctx context.Context, id string, fn func(*domain.Quote) error) (*domain.Quote, error)
	// List returns quotes newest first, skipping the first skip entries,
	// and the total number of quotes.
	List(ctx context.Context, skip, limit int) ([]*domain.Quote, int, error)
}

// cloneQuote copies q deeply enough that mutating the copy never touches q.
// Line items are never mutated after creation and are shared.
func cloneQuote(q *domain.Quote) *domain.Quote {
	c := *q
	c.LineItems = append([]domain.LineItem(nil), q.LineItems...)
	c.LineAmounts = append([]int64(nil), q.LineAmounts...)
	c.Payments = make([]*domain.Payment, len(q.Payments))
	for i, p := range q.Payments {
		pc := *p
		c.Payments[i] = &pc
	}
	if q.JobOrder != nil {
		jo := *q.JobOrder
		c.JobOrder = &jo
	}
	return &c
}

// quoteKey orders the newest-first index: created_at descending, then
// quote_id ascending for quotes created in the same instant.
type quoteKey struct {
	CreatedAt time.Time
	QuoteID   string
}

func newestFirst(a, b quoteKey) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.QuoteID < b.QuoteID
}

func checkWindow(skip, limit int) error {
	if skip < 0 {
		return domain.Invalidf("skip must be >= 0, got %d", skip)
	}
	if limit <= 0 {
		return domain.Invalidf("limit must be > 0, got %d", limit)
	}
	return nil
}
