package api

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kmorozova/demandcast/internal/models"
)

// orderRequest is an inbound order with its line items. Line price is the
// line total; when omitted it is derived as quantity x unit price by the
// caller, not here.
type orderRequest struct {
	OrderID   int                `json:"order_id"`
	ClientID  int                `json:"client_id"`
	OrderDate string             `json:"order_date"`
	Lines     []models.OrderLine `json:"lines"`
}

// RecordOrderHandler appends an order's line items to the analytics event
// stream. Orders are append-only; there is no update or delete.
func (s *Server) RecordOrderHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	endpoint := "/orders"
	method := r.Method

	if s.Analytics == nil {
		s.Metrics.IncrementRequests(endpoint, method, "500")
		http.Error(w, "analytics unavailable", http.StatusInternalServerError)
		return
	}

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.ClientID <= 0 || len(req.Lines) == 0 {
		s.Metrics.IncrementRequests(endpoint, method, "400")
		http.Error(w, "client_id and lines[] required", http.StatusBadRequest)
		return
	}

	orderDate := time.Now().UTC()
	if req.OrderDate != "" {
		parsed, err := time.Parse(models.DateLayout, req.OrderDate)
		if err != nil {
			s.Metrics.IncrementRequests(endpoint, method, "400")
			http.Error(w, "order_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		orderDate = parsed
	}

	orderID := req.OrderID
	if orderID == 0 {
		orderID = int(time.Now().UnixMilli())
	}

	for _, line := range req.Lines {
		if line.Quantity <= 0 || line.ProductID <= 0 {
			s.Metrics.IncrementRequests(endpoint, method, "400")
			http.Error(w, "each line needs product_id and positive quantity", http.StatusBadRequest)
			return
		}
		if err := s.Analytics.RecordOrderLine(r.Context(), orderID, req.ClientID, orderDate, line); err != nil {
			s.Logger.Error("record order line", zap.Error(err), zap.Int("order_id", orderID))
			s.Metrics.IncrementRequests(endpoint, method, "500")
			http.Error(w, "failed to record order", http.StatusInternalServerError)
			return
		}
	}

	w.WriteHeader(http.StatusCreated)
	writeJSON(w, map[string]int{"order_id": orderID, "lines": len(req.Lines)})
	s.Metrics.IncrementRequests(endpoint, method, "201")
	s.Metrics.RecordRequestLatency(endpoint, method, time.Since(start))
}
