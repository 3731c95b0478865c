package handler

import (
	"net/http"

	"github.com/efreitasn/pottycalc/internal/domain"
	"github.com/efreitasn/pottycalc/internal/lineitem"
	"github.com/efreitasn/pottycalc/internal/pricing"
)

// CalculationHandler exposes the pricing core without touching any quote.
type CalculationHandler struct {
	prices *pricing.Calculator
	items  *lineitem.Aggregator
}

// NewCalculationHandler creates a new CalculationHandler.
func NewCalculationHandler(prices *pricing.Calculator, items *lineitem.Aggregator) *CalculationHandler {
	return &CalculationHandler{prices: prices, items: items}
}

// lineItemRequest is the JSON request body for POST /calculations/line-item.
type lineItemRequest struct {
	Quantity *domain.Value `json:"quantity" validate:"required"`
	Rate     *domain.Value `json:"rate" validate:"required"`
}

type lineItemResponse struct {
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
}

// orderTotalRequest is the JSON request body for POST /calculations/order-total.
type orderTotalRequest struct {
	Products []domain.LineItem `json:"products" validate:"required"`
}

type orderTotalResponse struct {
	Total       string   `json:"total"`
	TotalCents  int64    `json:"total_cents"`
	LineAmounts []string `json:"line_amounts"`
}

// balanceRequest is the JSON request body for POST /calculations/balance.
type balanceRequest struct {
	Total    *domain.Value `json:"total" validate:"required"`
	Paid     *domain.Value `json:"paid" validate:"required"`
	Refunded *domain.Value `json:"refunded"`
}

type balanceResponse struct {
	BalanceDue string `json:"balance_due"`
	NetPaid    string `json:"net_paid"`
}

// LineItem handles POST /calculations/line-item.
func (h *CalculationHandler) LineItem(w http.ResponseWriter, r *http.Request) {
	var req lineItemRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	cents, err := h.items.ProductAmountCents(*req.Quantity, *req.Rate)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	amount, err := h.prices.CentsToDollars(cents)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, lineItemResponse{
		Amount:      amount,
		AmountCents: cents,
	})
}

// OrderTotal handles POST /calculations/order-total.
func (h *CalculationHandler) OrderTotal(w http.ResponseWriter, r *http.Request) {
	var req orderTotalRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	amounts, err := h.items.Amounts(req.Products)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	total, err := h.items.SumCents(amounts)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	f := &amountFormatter{prices: h.prices}
	lines := make([]string, len(amounts))
	for i, cents := range amounts {
		lines[i] = f.dollars(cents)
	}
	totalDollars := f.dollars(total)
	if f.err != nil {
		writeServiceError(w, f.err)
		return
	}
	WriteJSON(w, http.StatusOK, orderTotalResponse{
		Total:       totalDollars,
		TotalCents:  total,
		LineAmounts: lines,
	})
}

// Balance handles POST /calculations/balance.
func (h *CalculationHandler) Balance(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	refunded := domain.Int(0)
	if req.Refunded != nil {
		refunded = *req.Refunded
	}

	net, err := h.prices.NetPaidAmount(*req.Paid, refunded)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	balance, err := h.prices.BalanceDue(*req.Total, domain.Dec(net))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, balanceResponse{
		BalanceDue: balance.StringFixed(2),
		NetPaid:    net.StringFixed(2),
	})
}
