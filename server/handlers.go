package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/teranos/smrt/errors"
	"github.com/teranos/smrt/logger"
	"github.com/teranos/smrt/reports"
	"github.com/teranos/smrt/store"
	"github.com/teranos/smrt/version"
)

// chatRequest is the body of POST /api/chat and of each websocket chat frame
type chatRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "smrt inventory assistant",
		"version": version.Get(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"loaded_at": s.store.LoadedAt(),
		"source":    s.store.SourceName(),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := readJSON(w, r, &req); err != nil {
		return
	}
	reply, err := s.assistant.Ask(r.Context(), req.Message)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	loaded, err := s.store.Refresh(r.Context())
	if s.refreshes != nil {
		s.refreshes.Refreshed(loaded, err)
	}
	if err != nil {
		logger.LoggerFromContext(r.Context(), s.logger).Warnw("Refresh request failed", logger.FieldError, err)
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"loaded":    loaded,
		"loaded_at": s.store.LoadedAt(),
		"source":    s.store.SourceName(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"statistics": s.store.Statistics(),
		"cache":      s.store.CacheStatistics(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeErr(w, errors.NewInvalidRequestError("query parameter q is required"))
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeErr(w, err)
		return
	}
	result, err := s.store.Search(r.Context(), q, limit)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCustomers(w http.ResponseWriter, r *http.Request) {
	p, err := pagination(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	f := store.CustomerFilter{
		Name: r.URL.Query().Get("name"),
		ID:   r.URL.Query().Get("id"),
	}
	writeJSON(w, http.StatusOK, s.store.Customers(f, p))
}

func (s *Server) handleCustomerOrders(w http.ResponseWriter, r *http.Request) {
	result := s.store.CustomerOrdersDetailed(chi.URLParam(r, "id"))
	if !result.Found {
		writeError(w, http.StatusNotFound, result.Message)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	p, err := pagination(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	f := store.OrderFilter{
		CustomerID: r.URL.Query().Get("customer_id"),
		Status:     r.URL.Query().Get("status"),
	}
	writeJSON(w, http.StatusOK, s.store.Orders(f, p))
}

func (s *Server) handleOrderDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	details := s.store.OrderDetails(id)
	writeJSON(w, http.StatusOK, map[string]any{
		"order_id": id,
		"items":    details,
		"total":    len(details),
	})
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	p, err := pagination(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.store.Products(store.ProductFilter{Name: r.URL.Query().Get("name")}, p))
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	writeJSON(w, http.StatusOK, map[string]any{
		"data":         reports.Build(s.store, now),
		"generated_at": now.Format(time.RFC3339),
		"status":       "success",
	})
}

func (s *Server) handleTextReport(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "type")
	now := s.now()
	text, err := reports.Text(s.store, kind, now)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"report":       text,
		"report_type":  kind,
		"format":       "text",
		"generated_at": now.Format(time.RFC3339),
		"status":       "success",
	})
}

// pagination reads page and page_size; zero values select the store defaults
func pagination(r *http.Request) (store.Pagination, error) {
	page, err := queryInt(r, "page")
	if err != nil {
		return store.Pagination{}, err
	}
	size, err := queryInt(r, "page_size")
	if err != nil {
		return store.Pagination{}, err
	}
	return store.Pagination{Page: page, PageSize: size}, nil
}
