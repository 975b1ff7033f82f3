// internal/webhook/server.go
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/user/vendbot/internal/fulfillment"
	"github.com/user/vendbot/internal/metrics"
	"github.com/user/vendbot/internal/types"
)

// MaxBodyBytes caps the size of an inbound notification.
const MaxBodyBytes = 1 << 20

// EventHandler processes a raw payment notification.
type EventHandler interface {
	HandleInboundEvent(ctx context.Context, body []byte, signature string) (fulfillment.Outcome, error)
}

// Server is the HTTP surface: the payment webhook, health, metrics and a
// small read-only API over the catalog and sales ledger.
type Server struct {
	handler EventHandler
	catalog types.CatalogStore
	ledger  types.SalesLedger
	router  chi.Router
}

// NewServer creates a new Server. catalog and ledger may be nil, in which
// case the read-only API answers 503.
func NewServer(handler EventHandler, catalog types.CatalogStore, ledger types.SalesLedger) *Server {
	s := &Server{
		handler: handler,
		catalog: catalog,
		ledger:  ledger,
		router:  chi.NewRouter(),
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Post("/webhook", s.handleWebhook)
	s.router.Method(http.MethodGet, "/metrics", metrics.Handler())
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/items", s.handleAPIItems)
		r.Get("/sales", s.handleAPISales)
		r.Get("/sales/summary", s.handleAPISalesSummary)
	})
	return s
}

// ServeHTTP delegates to the router, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"status": "rejected"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "rejected"})
		return
	}

	outcome, err := s.handler.HandleInboundEvent(r.Context(), body, r.Header.Get(fulfillment.SignatureHeader))
	if err != nil {
		slog.Error("webhook handling failed", "request_id", middleware.GetReqID(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error"})
		return
	}

	switch outcome {
	case fulfillment.Rejected:
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "rejected"})
	case fulfillment.Ignored:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type itemResponse struct {
	ID    int64  `json:"id"`
	Label string `json:"label"`
	Price string `json:"price"`
}

func (s *Server) handleAPIItems(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeError(w, http.StatusServiceUnavailable, "catalog not configured")
		return
	}
	items, err := s.catalog.List(r.Context())
	if err != nil {
		slog.Error("list items failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	result := make([]itemResponse, 0, len(items))
	for _, it := range items {
		result = append(result, itemResponse{ID: int64(it.ID), Label: it.Label, Price: types.FormatRupees(it.PriceMinor)})
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAPISales(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "ledger not configured")
		return
	}
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}
	sales, err := s.ledger.List(r.Context(), limit)
	if err != nil {
		slog.Error("list sales failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if sales == nil {
		sales = []*types.Sale{}
	}
	writeJSON(w, http.StatusOK, sales)
}

func (s *Server) handleAPISalesSummary(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeError(w, http.StatusServiceUnavailable, "ledger not configured")
		return
	}
	window := 24 * time.Hour
	if q := r.URL.Query().Get("window"); q != "" {
		d, err := time.ParseDuration(q)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "invalid window")
			return
		}
		window = d
	}
	summary, err := s.ledger.Summarize(r.Context(), time.Now().Add(-window))
	if err != nil {
		slog.Error("summarize sales failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"window": window.String(),
		"count":  summary.Count,
		"total":  types.FormatRupees(summary.TotalMinor),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// requestLogger logs one line per request through slog.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
