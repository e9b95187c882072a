package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/0xcro3dile/chemstock/internal/domain/entities"
	"github.com/0xcro3dile/chemstock/internal/domain/usecases"
)

func (s *Server) handleListChemicals(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	chems, err := s.inventory.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if chems == nil {
		chems = []entities.Chemical{}
	}
	writeJSON(w, http.StatusOK, chems)
}

func (s *Server) handleGetChemical(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	c, err := s.inventory.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleCreateChemical(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	var in entities.Chemical
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.inventory.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateChemical(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	var in entities.Chemical
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	c, err := s.inventory.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteChemical(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	if err := s.inventory.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExpiringChemicals lists chemicals expiring within ?days= (default 30).
func (s *Server) handleExpiringChemicals(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, r, fmt.Errorf("%w: days must be a non-negative integer", entities.ErrValidation))
			return
		}
		days = n
	}
	chems, err := s.inventory.Expiring(r.Context(), time.Now().AddDate(0, 0, days))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if chems == nil {
		chems = []entities.Chemical{}
	}
	writeJSON(w, http.StatusOK, chems)
}

func (s *Server) handleChemicalDocuments(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	id := r.PathValue("id")
	if _, err := s.inventory.Get(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	docs, err := s.sds.ListDocuments(r.Context(), entities.SDSFilter{ChemicalID: id})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []entities.SDSDocument{}
	}
	writeJSON(w, http.StatusOK, docs)
}

type resolveResponse struct {
	Input       string                  `json:"input"`
	Label       string                  `json:"label"`
	Match       *entities.MatchResult   `json:"match"`
	Suggestions []entities.CatalogEntry `json:"suggestions,omitempty"`
}

// handleResolve shows what chemical a raw label or file name resolves to.
func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	raw := r.URL.Query().Get("label")
	if raw == "" {
		s.writeError(w, r, fmt.Errorf("%w: label is required", entities.ErrValidation))
		return
	}
	match, err := s.resolver.Resolve(r.Context(), raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := resolveResponse{Input: raw, Label: usecases.NormalizeChemicalName(raw), Match: match}
	if match == nil {
		resp.Suggestions, err = s.resolver.Suggest(r.Context(), raw, s.opts.Suggestions)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
