package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/pottycalc/internal/domain"
	"github.com/efreitasn/pottycalc/internal/pricing"
	"github.com/efreitasn/pottycalc/internal/service"
)

// JobHandler handles job completion.
type JobHandler struct {
	jobSvc *service.JobService
	prices *pricing.Calculator
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobSvc *service.JobService, prices *pricing.Calculator) *JobHandler {
	return &JobHandler{jobSvc: jobSvc, prices: prices}
}

// completeJobRequest is the JSON request body for POST /quotes/{quote_id}/completion.
type completeJobRequest struct {
	JobOrderAmount *domain.Value `json:"job_order_amount" validate:"required"`
	VendorCharges  *domain.Value `json:"vendor_charges"`
	ActualAmount   *domain.Value `json:"actual_amount"`
}

// Complete handles POST /quotes/{quote_id}/completion.
func (h *JobHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req completeJobRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	svcReq := service.CompleteJobRequest{JobOrderAmount: *req.JobOrderAmount}
	if req.VendorCharges != nil {
		svcReq.VendorCharges = *req.VendorCharges
	}
	if req.ActualAmount != nil {
		svcReq.ActualAmount = *req.ActualAmount
	}

	q, err := h.jobSvc.Complete(r.Context(), chi.URLParam(r, "quote_id"), svcReq)
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
