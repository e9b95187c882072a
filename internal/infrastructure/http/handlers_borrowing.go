package http

import (
	"fmt"
	"net/http"
	"time"

	"github.com/0xcro3dile/chemstock/internal/domain/entities"
)

// handleListBorrowings returns the caller's borrowings. Staff see all of
// them, optionally narrowed by ?status=.
func (s *Server) handleListBorrowings(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	var (
		list []entities.Borrowing
		err  error
	)
	if claims.Role.IsStaff() {
		list, err = s.borrowings.ListAll(r.Context(), entities.BorrowingStatus(r.URL.Query().Get("status")))
	} else {
		list, err = s.borrowings.ListForUser(r.Context(), claims.UserID)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []entities.Borrowing{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleOverdueBorrowings(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	list, err := s.borrowings.Overdue(r.Context(), time.Now())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []entities.Borrowing{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetBorrowing(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	b, err := s.ownBorrowing(r, claims)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleRequestBorrowing(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	var req entities.BorrowingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.borrowings.Request(r.Context(), claims.UserID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) handleApproveBorrowing(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	b, err := s.borrowings.Approve(r.Context(), r.PathValue("id"), claims.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleRejectBorrowing(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	b, err := s.borrowings.Reject(r.Context(), r.PathValue("id"), claims.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// handleReturnBorrowing is open to the borrower and to staff.
func (s *Server) handleReturnBorrowing(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	if _, err := s.ownBorrowing(r, claims); err != nil {
		s.writeError(w, r, err)
		return
	}
	b, err := s.borrowings.Return(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// ownBorrowing loads the borrowing in the path, failing with ErrForbidden
// when a non-staff caller does not own it.
func (s *Server) ownBorrowing(r *http.Request, claims *entities.Claims) (*entities.Borrowing, error) {
	b, err := s.borrowings.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		return nil, err
	}
	if !claims.Role.IsStaff() && b.UserID != claims.UserID {
		return nil, fmt.Errorf("%w: borrowing belongs to another user", entities.ErrForbidden)
	}
	return b, nil
}
