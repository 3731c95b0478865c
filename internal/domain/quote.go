package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuoteStatus represents the lifecycle state of a quote.
type QuoteStatus string

const (
	QuoteStatusOpen      QuoteStatus = "open"
	QuoteStatusPaid      QuoteStatus = "paid"
	QuoteStatusCompleted QuoteStatus = "completed"
)

// Quote is a priced set of line items offered to a customer. It carries its
// payments and, once the work is done, the job order that fulfilled it.
// All amounts are integer cents.
type Quote struct {
	QuoteID         string          `json:"quote_id"`
	Customer        string          `json:"customer"`
	LineItems       []LineItem      `json:"line_items"`
	LineAmounts     []int64         `json:"line_amounts"`
	SubtotalCents   int64           `json:"subtotal_cents"`
	MarginCents     int64           `json:"margin_cents"`
	TaxRate         decimal.Decimal `json:"tax_rate"` // percent, 0-100
	TaxCents        int64           `json:"tax_cents"`
	TotalCents      int64           `json:"total_cents"`
	PaidCents       int64           `json:"paid_cents"`
	RefundedCents   int64           `json:"refunded_cents"`
	BalanceDueCents int64           `json:"balance_due_cents"`
	Status          QuoteStatus     `json:"status"`
	Payments        []*Payment      `json:"payments"`
	JobOrder        *JobOrder       `json:"job_order,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Payment returns the payment with the given ID, or nil.
func (q *Quote) Payment(id string) *Payment {
	for _, p := range q.Payments {
		if p.PaymentID == id {
			return p
		}
	}
	return nil
}

// Payment is money received against a quote. RefundedCents never exceeds
// AmountCents.
type Payment struct {
	PaymentID     string    `json:"payment_id"`
	AmountCents   int64     `json:"amount_cents"`
	RefundedCents int64     `json:"refunded_cents"`
	CreatedAt     time.Time `json:"created_at"`
}

// JobOrder records what fulfilling a quote actually cost and billed.
// Revenue may be negative. DifferencePercent and AccuracyRating are nil when
// the quoted total was zero.
type JobOrder struct {
	JobOrderCents      int64            `json:"job_order_cents"`
	VendorChargesCents int64            `json:"vendor_charges_cents"`
	ActualCents        int64            `json:"actual_cents"`
	Revenue            decimal.Decimal  `json:"revenue"`
	DifferencePercent  *decimal.Decimal `json:"difference_percent,omitempty"`
	AccuracyRating     *decimal.Decimal `json:"accuracy_rating,omitempty"`
	CompletedAt        time.Time        `json:"completed_at"`
}
