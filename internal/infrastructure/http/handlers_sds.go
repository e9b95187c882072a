package http

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"github.com/0xcro3dile/chemstock/internal/domain/entities"
)

// uploadField is the multipart field carrying SDS files.
const uploadField = "files"

// handleImportSDS accepts a multipart batch of SDS files and returns the
// per-file import report.
func (s *Server) handleImportSDS(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "upload too large"})
			return
		}
		s.writeError(w, r, fmt.Errorf("%w: invalid multipart form: %v", entities.ErrValidation, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[uploadField]
	if len(headers) == 0 {
		s.writeError(w, r, fmt.Errorf("%w: no files in field %q", entities.ErrValidation, uploadField))
		return
	}

	uploads := make([]entities.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			s.writeError(w, r, fmt.Errorf("opening %s: %w", fh.Filename, err))
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			s.writeError(w, r, fmt.Errorf("reading %s: %w", fh.Filename, err))
			return
		}
		uploads = append(uploads, entities.Upload{Name: fh.Filename, Data: data})
	}

	report, err := s.sds.ImportBatch(r.Context(), uploads, claims.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListSDS(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	q := r.URL.Query()
	filter := entities.SDSFilter{
		Status:     entities.SDSStatus(q.Get("status")),
		ChemicalID: q.Get("chemical_id"),
	}
	switch filter.Status {
	case "", entities.SDSMatched, entities.SDSNeedsReview:
	default:
		s.writeError(w, r, fmt.Errorf("%w: unknown status %q", entities.ErrValidation, filter.Status))
		return
	}

	docs, err := s.sds.ListDocuments(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []entities.SDSDocument{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (s *Server) handleGetSDS(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	doc, err := s.sds.GetDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleSDSFile(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	doc, rc, err := s.sds.OpenDocument(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": doc.StoredName}))
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn("streaming sds file failed", zap.String("id", doc.ID), zap.Error(err))
	}
}

type assignRequest struct {
	ChemicalID string `json:"chemical_id"`
}

func (s *Server) handleAssignSDS(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	var req assignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.ChemicalID == "" {
		s.writeError(w, r, fmt.Errorf("%w: chemical_id is required", entities.ErrValidation))
		return
	}
	doc, err := s.sds.Assign(r.Context(), r.PathValue("id"), req.ChemicalID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteSDS(w http.ResponseWriter, r *http.Request, claims *entities.Claims) {
	if err := s.sds.DeleteDocument(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
