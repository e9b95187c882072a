package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/0xcro3dile/chemstock/internal/domain/entities"
)

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	list, err := s.notifications.List(r.Context(), claims.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []entities.Notification{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	if err := s.notifications.MarkRead(r.Context(), claims.UserID, r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type deviceRequest struct {
	Token string `json:"token"`
}

func (s *Server) handleRegisterDevice(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	var req deviceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		s.writeError(w, r, fmt.Errorf("%w: token is required", entities.ErrValidation))
		return
	}
	if err := s.notifications.RegisterDevice(r.Context(), claims.UserID, req.Token); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
