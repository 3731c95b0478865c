package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/pottycalc/internal/domain"
	"github.com/efreitasn/pottycalc/internal/pricing"
	"github.com/efreitasn/pottycalc/internal/store"
)

// PaymentService records payments and refunds against quotes.
type PaymentService struct {
	store  store.QuoteStore
	prices *pricing.Calculator
	now    func() time.Time
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(s store.QuoteStore, prices *pricing.Calculator) *PaymentService {
	return &PaymentService{
		store:  s,
		prices: prices,
		now:    time.Now,
	}
}

// RecordPayment adds a payment to the quote. Overpaying is accepted and
// leaves a zero balance. A quote that is already paid in full rejects further
// payments with domain.ErrQuoteAlreadyPaid.
func (s *PaymentService) RecordPayment(ctx context.Context, quoteID string, amount domain.Value) (*domain.Quote, *domain.Payment, error) {
	cents, err := s.positiveCents("payment amount", amount)
	if err != nil {
		return nil, nil, err
	}

	var payment *domain.Payment
	q, err := s.store.Update(ctx, quoteID, func(q *domain.Quote) error {
		if q.BalanceDueCents == 0 {
			return domain.ErrQuoteAlreadyPaid
		}

		paid, err := s.prices.AddCents(q.PaidCents, cents)
		if err != nil {
			return err
		}

		now := s.now()
		payment = &domain.Payment{
			PaymentID:   uuid.New().String(),
			AmountCents: cents,
			CreatedAt:   now,
		}
		q.Payments = append(q.Payments, payment)
		q.PaidCents = paid
		q.UpdatedAt = now
		return s.settleBalance(q)
	})
	if err != nil {
		return nil, nil, err
	}
	return q, q.Payment(payment.PaymentID), nil
}

// RecordRefund returns part of a payment. The refund may not exceed what is
// left of the payment after earlier refunds.
func (s *PaymentService) RecordRefund(ctx context.Context, quoteID, paymentID string, amount domain.Value) (*domain.Quote, *domain.Payment, error) {
	cents, err := s.positiveCents("refund amount", amount)
	if err != nil {
		return nil, nil, err
	}

	q, err := s.store.Update(ctx, quoteID, func(q *domain.Quote) error {
		p := q.Payment(paymentID)
		if p == nil {
			return domain.ErrPaymentNotFound
		}

		available, err := s.prices.AvailableRefund(pricing.FromCents(p.AmountCents), pricing.FromCents(p.RefundedCents))
		if err != nil {
			return err
		}
		availableCents, err := s.prices.DollarsToCents(domain.Dec(available))
		if err != nil {
			return err
		}
		if cents > availableCents {
			requested, err := s.prices.CentsToDollars(cents)
			if err != nil {
				return err
			}
			left, err := s.prices.CentsToDollars(availableCents)
			if err != nil {
				return err
			}
			return domain.Invalidf("refund of %s exceeds the %s still refundable on payment %s",
				requested, left, paymentID)
		}

		p.RefundedCents += cents
		if q.RefundedCents, err = s.prices.AddCents(q.RefundedCents, cents); err != nil {
			return err
		}
		q.UpdatedAt = s.now()
		return s.settleBalance(q)
	})
	if err != nil {
		return nil, nil, err
	}
	return q, q.Payment(paymentID), nil
}

// settleBalance recomputes the balance from net payments and moves the quote
// between open and paid. Completed quotes keep their status.
func (s *PaymentService) settleBalance(q *domain.Quote) error {
	net, err := s.prices.NetPaidAmount(pricing.FromCents(q.PaidCents), pricing.FromCents(q.RefundedCents))
	if err != nil {
		return err
	}
	balance, err := s.prices.BalanceDue(pricing.FromCents(q.TotalCents), domain.Dec(net))
	if err != nil {
		return err
	}
	if q.BalanceDueCents, err = s.prices.DollarsToCents(domain.Dec(balance)); err != nil {
		return err
	}

	if q.Status == domain.QuoteStatusCompleted {
		return nil
	}
	if q.BalanceDueCents == 0 {
		q.Status = domain.QuoteStatusPaid
	} else {
		q.Status = domain.QuoteStatusOpen
	}
	return nil
}

func (s *PaymentService) positiveCents(label string, amount domain.Value) (int64, error) {
	cents, err := s.prices.DollarsToCents(amount)
	if err != nil {
		return 0, domain.Invalidf("%s: %s", label, err)
	}
	if cents == 0 {
		return 0, domain.Invalidf("%s must be > 0", label)
	}
	return cents, nil
}
