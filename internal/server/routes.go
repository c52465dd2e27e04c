package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/ivstorm/folio/internal/common"
	"github.com/ivstorm/folio/internal/models"
	"github.com/ivstorm/folio/internal/storage/bolt"
)

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)

	// Portfolios
	mux.HandleFunc("/api/portfolios/", s.routePortfolios)
	mux.HandleFunc("/api/portfolios", s.handlePortfolios)
}

// --- System handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet, http.MethodHead) {
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{
		"version": common.GetVersion(),
		"build":   common.GetBuild(),
		"commit":  common.GetGitCommit(),
	})
}

// --- Portfolio handlers ---

func (s *Server) handlePortfolios(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handlePortfolioList(w, r)
	case http.MethodPost:
		s.handlePortfolioCreate(w, r)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) routePortfolios(w http.ResponseWriter, r *http.Request) {
	name := PathParam(r, "/api/portfolios/")
	if name == "" {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handlePortfolioBuild(w, r, name)
	case http.MethodDelete:
		s.handlePortfolioDelete(w, r, name)
	default:
		RequireMethod(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (s *Server) handlePortfolioList(w http.ResponseWriter, r *http.Request) {
	names, err := s.app.Store.List(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to list portfolios: "+err.Error())
		return
	}
	if names == nil {
		names = []string{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{"portfolios": names})
}

// CreatePortfolioRequest names the record export files to import.
type CreatePortfolioRequest struct {
	Name           string `json:"name"`
	DealsFile      string `json:"deals_file"`
	OperationsFile string `json:"operations_file"`
	PaymentsFile   string `json:"payments_file"`
}

func (s *Server) handlePortfolioCreate(w http.ResponseWriter, r *http.Request) {
	var req CreatePortfolioRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		WriteError(w, http.StatusBadRequest, "Portfolio name is required")
		return
	}
	if req.DealsFile == "" || req.OperationsFile == "" {
		WriteError(w, http.StatusBadRequest, "Deals and operations files are required")
		return
	}

	deals, err := s.app.Importer.Deals(req.DealsFile)
	if err != nil {
		WriteError(w, http.StatusUnprocessableEntity, "Failed to import deals: "+err.Error())
		return
	}
	operations, err := s.app.Importer.Operations(req.OperationsFile)
	if err != nil {
		WriteError(w, http.StatusUnprocessableEntity, "Failed to import operations: "+err.Error())
		return
	}
	var payments []models.Payment
	if req.PaymentsFile != "" {
		payments, err = s.app.Importer.Payments(req.PaymentsFile)
		if err != nil {
			WriteError(w, http.StatusUnprocessableEntity, "Failed to import payments: "+err.Error())
			return
		}
	}

	portfolio := &models.StoredPortfolio{
		Name:       req.Name,
		Deals:      deals,
		Operations: operations,
		Payments:   payments,
	}
	if err := s.app.Store.Save(r.Context(), portfolio); err != nil {
		WriteError(w, http.StatusInternalServerError, "Failed to save portfolio: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"name":       portfolio.Name,
		"deals":      len(deals),
		"operations": len(operations),
		"payments":   len(payments),
	})
}

func (s *Server) handlePortfolioBuild(w http.ResponseWriter, r *http.Request, name string) {
	var asOf *time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
			return
		}
		asOf = &t
	}

	snap, err := s.app.Portfolios.Build(r.Context(), name, asOf)
	if err != nil {
		if errors.Is(err, bolt.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Portfolio '"+name+"' not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to build portfolio: "+err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePortfolioDelete(w http.ResponseWriter, r *http.Request, name string) {
	if err := s.app.Store.Delete(r.Context(), name); err != nil {
		if errors.Is(err, bolt.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "Portfolio '"+name+"' not found")
			return
		}
		WriteError(w, http.StatusInternalServerError, "Failed to delete portfolio: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
