package server

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"whitecoat/internal/core"
	"whitecoat/internal/email"
	"whitecoat/internal/persistence"
)

const (
	maxPDFUploadSize   = 25 << 20 // 25MB
	maxPhotoUploadSize = 10 << 20 // 10MB
)

type ProductPhotoListResponse struct {
	Photos []core.ProductPhoto `json:"photos"`
	Total  int                 `json:"total"`
}

// handleUploadPDF handles POST /api/submissions/{id}/upload. Staff upload
// the designed brief PDF; the submission moves to in_progress.
func (s *Server) handleUploadPDF(w http.ResponseWriter, r *http.Request) {
	submission, ok := s.loadSubmission(w, r)
	if !ok {
		return
	}

	if s.blobs == nil {
		s.respondError(w, http.StatusServiceUnavailable, "File storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPDFUploadSize)
	file, header, err := r.FormFile("pdf")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "A 'pdf' file field is required")
		return
	}
	defer file.Close()

	if !isPDFUpload(header.Header.Get("Content-Type"), header.Filename) {
		s.respondError(w, http.StatusBadRequest, "Only PDF files are accepted")
		return
	}

	key := fmt.Sprintf("briefs/%s/%s", submission.ID, sanitizeFilename(header.Filename))
	url, err := s.blobs.Upload(r.Context(), key, "application/pdf", file)
	if err != nil {
		s.log.Error("Failed to upload brief PDF", "id", submission.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to store PDF")
		return
	}

	submission.PDFURL = url
	submission.Status = core.StatusInProgress
	if err := s.db.Submissions().Update(r.Context(), submission); err != nil {
		s.log.Error("Failed to record PDF upload", "id", submission.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to update submission")
		return
	}

	s.log.Info("Brief PDF uploaded", "id", submission.ID, "url", url)
	s.respondJSON(w, http.StatusOK, submission)
}

// handleSendBrief handles POST /api/submissions/{id}/send. Emails the
// uploaded PDF to the founder and marks the submission sent.
func (s *Server) handleSendBrief(w http.ResponseWriter, r *http.Request) {
	submission, ok := s.loadSubmission(w, r)
	if !ok {
		return
	}

	if submission.PDFURL == "" {
		s.respondError(w, http.StatusBadRequest, "No PDF has been uploaded for this submission")
		return
	}
	if s.emails == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Email delivery is not configured")
		return
	}
	if s.blobs == nil {
		s.respondError(w, http.StatusServiceUnavailable, "File storage is not configured")
		return
	}

	pdfContent, err := s.blobs.Download(r.Context(), submission.PDFURL)
	if err != nil {
		s.log.Error("Failed to fetch brief PDF", "id", submission.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to fetch brief PDF")
		return
	}

	msg := email.BriefEmail{
		To:          submission.Email,
		FounderName: submission.FounderName,
		BrandName:   submission.BrandName,
		PDFContent:  pdfContent,
	}
	if err := s.emails.SendBrief(r.Context(), msg); err != nil {
		s.log.Error("Failed to send brief email", "id", submission.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to send email: "+err.Error())
		return
	}

	now := time.Now().UTC()
	submission.Status = core.StatusSent
	submission.SentAt = &now
	if err := s.db.Submissions().Update(r.Context(), submission); err != nil {
		s.log.Error("Failed to record brief delivery", "id", submission.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Email sent but status update failed")
		return
	}

	s.log.Info("Brief emailed", "id", submission.ID, "to", submission.Email)
	s.respondJSON(w, http.StatusOK, submission)
}

// handleListProductPhotos handles GET /api/submissions/{id}/photos
func (s *Server) handleListProductPhotos(w http.ResponseWriter, r *http.Request) {
	submission, ok := s.loadSubmission(w, r)
	if !ok {
		return
	}

	photos, err := s.db.ProductPhotos().ListBySubmission(r.Context(), submission.ID)
	if err != nil {
		s.log.Error("Failed to list product photos", "id", submission.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve photos")
		return
	}

	s.respondJSON(w, http.StatusOK, ProductPhotoListResponse{
		Photos: photos,
		Total:  len(photos),
	})
}

// handleUploadProductPhoto handles POST /api/submissions/{id}/photos
func (s *Server) handleUploadProductPhoto(w http.ResponseWriter, r *http.Request) {
	submission, ok := s.loadSubmission(w, r)
	if !ok {
		return
	}

	if s.blobs == nil {
		s.respondError(w, http.StatusServiceUnavailable, "File storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoUploadSize)
	file, header, err := r.FormFile("photo")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "A 'photo' file field is required (max 10MB)")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		s.respondError(w, http.StatusBadRequest, "Only image files are accepted")
		return
	}

	photo := &core.ProductPhoto{
		ID:           uuid.NewString(),
		SubmissionID: submission.ID,
		Filename:     sanitizeFilename(header.Filename),
		CreatedAt:    time.Now().UTC(),
	}

	key := fmt.Sprintf("photos/%s/%s-%s", submission.ID, photo.ID, photo.Filename)
	url, err := s.blobs.Upload(r.Context(), key, contentType, file)
	if err != nil {
		s.log.Error("Failed to upload product photo", "id", submission.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to store photo")
		return
	}
	photo.URL = url

	if err := s.db.ProductPhotos().Create(r.Context(), photo); err != nil {
		s.log.Error("Failed to record product photo", "id", submission.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to save photo")
		return
	}

	s.respondJSON(w, http.StatusCreated, photo)
}

// handleDeleteProductPhoto handles DELETE /api/submissions/{id}/photos/{photoID}
func (s *Server) handleDeleteProductPhoto(w http.ResponseWriter, r *http.Request) {
	submission, ok := s.loadSubmission(w, r)
	if !ok {
		return
	}

	photoID := chi.URLParam(r, "photoID")
	photo, err := s.db.ProductPhotos().Get(r.Context(), photoID)
	if err != nil {
		if err == persistence.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "Photo not found")
		} else {
			s.log.Error("Failed to load product photo", "photo_id", photoID, "error", err)
			s.respondError(w, http.StatusInternalServerError, "Failed to load photo")
		}
		return
	}
	if photo.SubmissionID != submission.ID {
		s.respondError(w, http.StatusNotFound, "Photo not found")
		return
	}

	if s.blobs != nil {
		if err := s.blobs.Delete(r.Context(), photo.URL); err != nil {
			s.log.Warn("Failed to delete photo blob", "photo_id", photo.ID, "error", err)
		}
	}

	if err := s.db.ProductPhotos().Delete(r.Context(), photo.ID); err != nil {
		s.log.Error("Failed to delete product photo", "photo_id", photo.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to delete photo")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": photo.ID,
	})
}

func isPDFUpload(contentType, filename string) bool {
	if contentType == "application/pdf" {
		return true
	}
	return strings.EqualFold(filepath.Ext(filename), ".pdf")
}

// sanitizeFilename keeps the base name and replaces characters that are
// awkward in object keys.
func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '-'
		}
	}, name)
	if name == "" || name == "." {
		name = "upload"
	}
	return name
}
