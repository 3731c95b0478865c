package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/pottycalc/internal/lineitem"
	"github.com/efreitasn/pottycalc/internal/pricing"
	"github.com/efreitasn/pottycalc/internal/service"
)

// RouterConfig carries the transport limits applied by middleware.
// A non-positive RateLimitRPS disables rate limiting.
type RouterConfig struct {
	MaxBodyBytes   int64
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates a chi router with all routes registered, request logging,
// Content-Type validation, body size and rate limiting middleware.
func NewRouter(
	prices *pricing.Calculator,
	items *lineitem.Aggregator,
	quoteSvc *service.QuoteService,
	paymentSvc *service.PaymentService,
	jobSvc *service.JobService,
	cfg RouterConfig,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(requestLogging(logger))
	if cfg.RateLimitRPS > 0 {
		r.Use(newClientLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst).middleware)
	}
	r.Use(contentTypeJSON)
	if cfg.MaxBodyBytes > 0 {
		r.Use(limitBody(cfg.MaxBodyBytes))
	}

	calcH := NewCalculationHandler(prices, items)
	quoteH := NewQuoteHandler(quoteSvc, prices)
	paymentH := NewPaymentHandler(paymentSvc, prices)
	jobH := NewJobHandler(jobSvc, prices)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Stateless calculations.
	r.Post("/calculations/line-item", calcH.LineItem)
	r.Post("/calculations/order-total", calcH.OrderTotal)
	r.Post("/calculations/balance", calcH.Balance)

	// Quote lifecycle.
	r.Post("/quotes", quoteH.Create)
	r.Get("/quotes", quoteH.List)
	r.Get("/quotes/{quote_id}", quoteH.Get)
	r.Post("/quotes/{quote_id}/payments", paymentH.RecordPayment)
	r.Post("/quotes/{quote_id}/payments/{payment_id}/refunds", paymentH.RecordRefund)
	r.Post("/quotes/{quote_id}/completion", jobH.Complete)

	r.Get("/reports/accuracy", quoteH.Accuracy)

	return r
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			if ww.status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

// contentTypeJSON rejects POST, PUT and PATCH requests whose Content-Type is
// not application/json with 400 before the handler runs.
func contentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct == "" || !strings.HasPrefix(ct, "application/json") {
				WriteError(w, http.StatusBadRequest, "invalid_request",
					"Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody caps request bodies at maxBytes. Reads past the cap fail with
// *http.MaxBytesError, which decodeRequest turns into a 413.
func limitBody(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}
