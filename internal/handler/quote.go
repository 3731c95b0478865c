package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/pottycalc/internal/domain"
	"github.com/efreitasn/pottycalc/internal/pricing"
	"github.com/efreitasn/pottycalc/internal/service"
)

const defaultPageLimit = 20

// QuoteHandler handles HTTP requests for quote endpoints.
type QuoteHandler struct {
	quoteSvc *service.QuoteService
	prices   *pricing.Calculator
}

// NewQuoteHandler creates a new QuoteHandler. prices formats the amounts of
// rendered quotes.
func NewQuoteHandler(quoteSvc *service.QuoteService, prices *pricing.Calculator) *QuoteHandler {
	return &QuoteHandler{quoteSvc: quoteSvc, prices: prices}
}

// createQuoteRequest is the JSON request body for POST /quotes.
type createQuoteRequest struct {
	Customer  string            `json:"customer" validate:"required,max=200"`
	LineItems []domain.LineItem `json:"line_items" validate:"required,min=1"`
	Margin    *domain.Value     `json:"margin"`
	TaxRate   *domain.Value     `json:"tax_rate"`
}

// quoteResponse renders a quote with every amount as a two-decimal string.
type quoteResponse struct {
	QuoteID    string              `json:"quote_id"`
	Customer   string              `json:"customer"`
	Status     string              `json:"status"`
	LineItems  []quoteLineResponse `json:"line_items"`
	Subtotal   string              `json:"subtotal"`
	Margin     string              `json:"margin"`
	TaxRate    string              `json:"tax_rate"`
	Tax        string              `json:"tax"`
	Total      string              `json:"total"`
	Paid       string              `json:"paid"`
	Refunded   string              `json:"refunded"`
	BalanceDue string              `json:"balance_due"`
	Payments   []paymentResponse   `json:"payments"`
	JobOrder   *jobOrderResponse   `json:"job_order"`
	CreatedAt  string              `json:"created_at"`
	UpdatedAt  string              `json:"updated_at"`
}

type quoteLineResponse struct {
	Product domain.LineItem `json:"product"`
	Amount  string          `json:"amount"`
}

type paymentResponse struct {
	PaymentID string `json:"payment_id"`
	Amount    string `json:"amount"`
	Refunded  string `json:"refunded"`
	CreatedAt string `json:"created_at"`
}

type jobOrderResponse struct {
	JobOrderAmount    string  `json:"job_order_amount"`
	VendorCharges     string  `json:"vendor_charges"`
	ActualAmount      string  `json:"actual_amount"`
	Revenue           string  `json:"revenue"`
	DifferencePercent *string `json:"difference_percent"`
	AccuracyRating    *string `json:"accuracy_rating"`
	CompletedAt       string  `json:"completed_at"`
}

type listQuotesResponse struct {
	Data       []quoteResponse `json:"data"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	Total      int             `json:"total"`
	TotalPages int             `json:"total_pages"`
}

type accuracyResponse struct {
	CompletedJobs   int      `json:"completed_jobs"`
	AverageAccuracy *float64 `json:"average_accuracy"`
}

// Create handles POST /quotes.
func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createQuoteRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	q, err := h.quoteSvc.Create(r.Context(), service.CreateQuoteRequest{
		Customer:  req.Customer,
		LineItems: req.LineItems,
		Margin:    req.Margin,
		TaxRate:   req.TaxRate,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	f := &amountFormatter{prices: h.prices}
	resp := f.quote(q)
	if f.err != nil {
		writeServiceError(w, f.err)
		return
	}
	WriteJSON(w, http.StatusCreated, resp)
}

// Get handles GET /quotes/{quote_id}.
func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	q, err := h.quoteSvc.Get(r.Context(), chi.URLParam(r, "quote_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	f := &amountFormatter{prices: h.prices}
	resp := f.quote(q)
	if f.err != nil {
		writeServiceError(w, f.err)
		return
	}
	WriteJSON(w, http.StatusOK, resp)
}

// List handles GET /quotes?page=&limit=.
func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	page := 1
	if p := r.URL.Query().Get("page"); p != "" {
		var err error
		page, err = strconv.Atoi(p)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "page must be a valid integer")
			return
		}
	}

	limit := defaultPageLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		var err error
		limit, err = strconv.Atoi(l)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "validation_error", "limit must be a valid integer")
			return
		}
	}

	result, err := h.quoteSvc.List(r.Context(), page, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	f := &amountFormatter{prices: h.prices}
	data := make([]quoteResponse, len(result.Quotes))
	for i, q := range result.Quotes {
		data[i] = f.quote(q)
	}
	if f.err != nil {
		writeServiceError(w, f.err)
		return
	}
	WriteJSON(w, http.StatusOK, listQuotesResponse{
		Data:       data,
		Page:       result.Page,
		Limit:      result.Limit,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	})
}

// Accuracy handles GET /reports/accuracy.
func (h *QuoteHandler) Accuracy(w http.ResponseWriter, r *http.Request) {
	report, err := h.quoteSvc.Accuracy(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, accuracyResponse{
		CompletedJobs:   report.CompletedJobs,
		AverageAccuracy: report.AverageAccuracy,
	})
}

// amountFormatter renders cents through the pricing core. It keeps the first
// error so a response can be built field by field and checked once.
type amountFormatter struct {
	prices *pricing.Calculator
	err    error
}

func (f *amountFormatter) dollars(cents int64) string {
	s, err := f.prices.CentsToDollars(cents)
	if err != nil && f.err == nil {
		f.err = err
	}
	return s
}

func (f *amountFormatter) quote(q *domain.Quote) quoteResponse {
	lines := make([]quoteLineResponse, len(q.LineItems))
	for i, li := range q.LineItems {
		lines[i] = quoteLineResponse{Product: li}
		if i < len(q.LineAmounts) {
			lines[i].Amount = f.dollars(q.LineAmounts[i])
		}
	}

	payments := make([]paymentResponse, len(q.Payments))
	for i, p := range q.Payments {
		payments[i] = f.payment(p)
	}

	resp := quoteResponse{
		QuoteID:    q.QuoteID,
		Customer:   q.Customer,
		Status:     string(q.Status),
		LineItems:  lines,
		Subtotal:   f.dollars(q.SubtotalCents),
		Margin:     f.dollars(q.MarginCents),
		TaxRate:    q.TaxRate.String(),
		Tax:        f.dollars(q.TaxCents),
		Total:      f.dollars(q.TotalCents),
		Paid:       f.dollars(q.PaidCents),
		Refunded:   f.dollars(q.RefundedCents),
		BalanceDue: f.dollars(q.BalanceDueCents),
		Payments:   payments,
		CreatedAt:  q.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  q.UpdatedAt.UTC().Format(time.RFC3339),
	}

	if jo := q.JobOrder; jo != nil {
		resp.JobOrder = &jobOrderResponse{
			JobOrderAmount:    f.dollars(jo.JobOrderCents),
			VendorCharges:     f.dollars(jo.VendorChargesCents),
			ActualAmount:      f.dollars(jo.ActualCents),
			Revenue:           jo.Revenue.StringFixed(2),
			DifferencePercent: fixed(jo.DifferencePercent),
			AccuracyRating:    fixed(jo.AccuracyRating),
			CompletedAt:       jo.CompletedAt.UTC().Format(time.RFC3339),
		}
	}
	return resp
}

func (f *amountFormatter) payment(p *domain.Payment) paymentResponse {
	return paymentResponse{
		PaymentID: p.PaymentID,
		Amount:    f.dollars(p.AmountCents),
		Refunded:  f.dollars(p.RefundedCents),
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func fixed(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}
