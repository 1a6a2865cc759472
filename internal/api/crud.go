package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kmorozova/demandcast/internal/models"
)

// ===== Products =====

func (s *Server) ListProducts(w http.ResponseWriter, r *http.Request) {
	if s.PG == nil {
		http.Error(w, "database unavailable", http.StatusInternalServerError)
		return
	}
	products, err := s.PG.LoadProducts(r.Context())
	if err != nil {
		s.Logger.Error("list products", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, products)
}

func (s *Server) CreateProduct(w http.ResponseWriter, r *http.Request) {
	if s.PG == nil {
		http.Error(w, "database unavailable", http.StatusInternalServerError)
		return
	}
	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if p.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if p.Price < 0 {
		http.Error(w, "price must not be negative", http.StatusBadRequest)
		return
	}
	if err := s.PG.InsertProduct(r.Context(), &p); err != nil {
		s.Logger.Error("insert product", zap.Error(err))
		http.Error(w, "failed to persist product", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, p)
}

func (s *Server) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	if s.PG == nil {
		http.Error(w, "database unavailable", http.StatusInternalServerError)
		return
	}
	idStr := mux.Vars(r)["id"]
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	p.ID = id
	if err := s.PG.UpdateProduct(r.Context(), p); err != nil {
		s.Logger.Error("update product", zap.Error(err))
		http.Error(w, "failed to update product", http.StatusInternalServerError)
		return
	}
	writeJSON(w, p)
}

func (s *Server) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if s.PG == nil {
		http.Error(w, "database unavailable", http.StatusInternalServerError)
		return
	}
	idStr := mux.Vars(r)["id"]
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := s.PG.DeleteProduct(r.Context(), id); err != nil {
		s.Logger.Error("delete product", zap.Error(err))
		http.Error(w, "failed to delete product", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== Marketing activities =====

func (s *Server) ListActivities(w http.ResponseWriter, r *http.Request) {
	if s.PG == nil {
		http.Error(w, "database unavailable", http.StatusInternalServerError)
		return
	}
	// A wide-open range lists everything.
	from := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
	activities, err := s.PG.LoadActivities(r.Context(), from, to)
	if err != nil {
		s.Logger.Error("list activities", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, activities)
}

func (s *Server) CreateActivity(w http.ResponseWriter, r *http.Request) {
	if s.PG == nil {
		http.Error(w, "database unavailable", http.StatusInternalServerError)
		return
	}
	var a models.MarketingActivity
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if a.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if a.EndDate.Before(a.StartDate) {
		http.Error(w, "end_date must not be before start_date", http.StatusBadRequest)
		return
	}
	if err := s.PG.InsertActivity(r.Context(), &a); err != nil {
		s.Logger.Error("insert activity", zap.Error(err))
		http.Error(w, "failed to persist activity", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, a)
}

func (s *Server) UpdateActivity(w http.ResponseWriter, r *http.Request) {
	if s.PG == nil {
		http.Error(w, "database unavailable", http.StatusInternalServerError)
		return
	}
	idStr := mux.Vars(r)["id"]
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	var a models.MarketingActivity
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	a.ID = id
	if a.EndDate.Before(a.StartDate) {
		http.Error(w, "end_date must not be before start_date", http.StatusBadRequest)
		return
	}
	if err := s.PG.UpdateActivity(r.Context(), a); err != nil {
		s.Logger.Error("update activity", zap.Error(err))
		http.Error(w, "failed to update activity", http.StatusInternalServerError)
		return
	}
	writeJSON(w, a)
}

func (s *Server) DeleteActivity(w http.ResponseWriter, r *http.Request) {
	if s.PG == nil {
		http.Error(w, "database unavailable", http.StatusInternalServerError)
		return
	}
	idStr := mux.Vars(r)["id"]
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	if err := s.PG.DeleteActivity(r.Context(), id); err != nil {
		s.Logger.Error("delete activity", zap.Error(err))
		http.Error(w, "failed to delete activity", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ===== Clients =====

func (s *Server) ListClients(w http.ResponseWriter, r *http.Request) {
	if s.PG == nil {
		http.Error(w, "database unavailable", http.StatusInternalServerError)
		return
	}
	clients, err := s.PG.LoadClients(r.Context())
	if err != nil {
		s.Logger.Error("list clients", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, clients)
}

func (s *Server) CreateClient(w http.ResponseWriter, r *http.Request) {
	if s.PG == nil {
		http.Error(w, "database unavailable", http.StatusInternalServerError)
		return
	}
	var c models.Client
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if c.Name == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if err := s.PG.InsertClient(r.Context(), &c); err != nil {
		s.Logger.Error("insert client", zap.Error(err))
		http.Error(w, "failed to persist client", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, c)
}
