package store

import (
	"context"
	"sync"

	"github.com/google/btree"

	"github.com/efreitasn/pottycalc/internal/domain"
)

const btreeDegree = 32

// MemoryQuoteStore is a thread-safe in-memory QuoteStore, with a primary
// index by quote_id and a B-tree index ordered newest first.
type MemoryQuoteStore struct {
	mu     sync.RWMutex
	quotes map[string]*domain.Quote
	byTime *btree.BTreeG[quoteKey]
}

// NewMemoryQuoteStore creates an empty MemoryQuoteStore.
func NewMemoryQuoteStore() *MemoryQuoteStore {
	return &MemoryQuoteStore{
		quotes: make(map[string]*domain.Quote),
		byTime: btree.NewG[quoteKey](btreeDegree, newestFirst),
	}
}

// Create stores a copy of q. It fails if the ID is already taken.
func (s *MemoryQuoteStore) Create(_ context.Context, q *domain.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.quotes[q.QuoteID]; ok {
		return domain.Invalidf("quote %s already exists", q.QuoteID)
	}
	s.quotes[q.QuoteID] = cloneQuote(q)
	s.byTime.ReplaceOrInsert(quoteKey{CreatedAt: q.CreatedAt, QuoteID: q.QuoteID})
	return nil
}

// Get returns a copy of the quote. It returns domain.ErrQuoteNotFound if the
// quote does not exist.
func (s *MemoryQuoteStore) Get(_ context.Context, id string) (*domain.Quote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.quotes[id]
	if !ok {
		return nil, domain.ErrQuoteNotFound
	}
	return cloneQuote(q), nil
}

// Update holds the write lock for the duration of fn, so concurrent updates
// to the same quote are serialized.
func (s *MemoryQuoteStore) Update(_ context.Context, id string, fn func(*domain.Quote) error) (*domain.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, ok := s.quotes[id]
	if !ok {
		return nil, domain.ErrQuoteNotFound
	}
	next := cloneQuote(q)
	if err := fn(next); err != nil {
		return nil, err
	}
	// ID and creation time are the index key and never change.
	next.QuoteID = q.QuoteID
	next.CreatedAt = q.CreatedAt
	s.quotes[id] = next
	return cloneQuote(next), nil
}

func (s *MemoryQuoteStore) List(_ context.Context, skip, limit int) ([]*domain.Quote, int, error) {
	if err := checkWindow(skip, limit); err != nil {
		return nil, 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	total := s.byTime.Len()
	out := make([]*domain.Quote, 0, min(limit, max(total-skip, 0)))
	i := 0
	s.byTime.Ascend(func(k quoteKey) bool {
		if i >= skip+limit {
			return false
		}
		if i >= skip {
			out = append(out, cloneQuote(s.quotes[k.QuoteID]))
		}
		i++
		return true
	})
	return out, total, nil
}
