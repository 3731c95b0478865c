package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/pottycalc/internal/domain"
	"github.com/efreitasn/pottycalc/internal/pricing"
	"github.com/efreitasn/pottycalc/internal/service"
)

// PaymentHandler handles HTTP requests for payments and refunds.
type PaymentHandler struct {
	paymentSvc *service.PaymentService
	prices     *pricing.Calculator
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentSvc *service.PaymentService, prices *pricing.Calculator) *PaymentHandler {
	return &PaymentHandler{paymentSvc: paymentSvc, prices: prices}
}

// amountRequest is the JSON request body for payments and refunds.
type amountRequest struct {
	Amount *domain.Value `json:"amount" validate:"required"`
}

type paymentResultResponse struct {
	Payment paymentResponse `json:"payment"`
	Quote   quoteResponse   `json:"quote"`
}

// RecordPayment handles POST /quotes/{quote_id}/payments.
func (h *PaymentHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	q, p, err := h.paymentSvc.RecordPayment(r.Context(), chi.URLParam(r, "quote_id"), *req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	f := &amountFormatter{prices: h.prices}
	resp := paymentResultResponse{Payment: f.payment(p), Quote: f.quote(q)}
	if f.err != nil {
		writeServiceError(w, f.err)
		return
	}
	WriteJSON(w, http.StatusCreated, resp)
}

// RecordRefund handles POST /quotes/{quote_id}/payments/{payment_id}/refunds.
func (h *PaymentHandler) RecordRefund(w http.ResponseWriter, r *http.Request) {
	var req amountRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	q, p, err := h.paymentSvc.RecordRefund(r.Context(),
		chi.URLParam(r, "quote_id"), chi.URLParam(r, "payment_id"), *req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	f := &amountFormatter{prices: h.prices}
	resp := paymentResultResponse{Payment: f.payment(p), Quote: f.quote(q)}
	if f.err != nil {
		writeServiceError(w, f.err)
		return
	}
	WriteJSON(w, http.StatusCreated, resp)
}
