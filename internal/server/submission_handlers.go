package server

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"whitecoat/internal/core"
	"whitecoat/internal/persistence"
)

// CreateSubmissionRequest is the public questionnaire payload.
type CreateSubmissionRequest struct {
	BrandName          string `json:"brandName"`
	FounderName        string `json:"founderName"`
	Email              string `json:"email"`
	Website            string `json:"website"`
	MedicalCredentials string `json:"medicalCredentials"`
	Specialty          string `json:"specialty"`
	ProductType        string `json:"productType"`
	CurrentRevenue     string `json:"currentRevenue"`
	BiggestChallenge   string `json:"biggestChallenge"`
	TargetAudience     string `json:"targetAudience"`
	Timeline           string `json:"timeline"`
	HowDidYouHear      string `json:"howDidYouHear"`
	AdditionalInfo     string `json:"additionalInfo"`
}

// UpdateSubmissionRequest carries the staff-editable fields. Only non-nil
// fields are applied.
type UpdateSubmissionRequest struct {
	Status         *string `json:"status,omitempty"`
	PDFURL         *string `json:"pdfUrl,omitempty"`
	Website        *string `json:"website,omitempty"`
	TargetAudience *string `json:"targetAudience,omitempty"`
	AdditionalInfo *string `json:"additionalInfo,omitempty"`
}

type SubmissionListResponse struct {
	Submissions []core.Submission `json:"submissions"`
	Total       int               `json:"total"`
}

// handleCreateSubmission handles POST /api/submissions
func (s *Server) handleCreateSubmission(w http.ResponseWriter, r *http.Request) {
	var req CreateSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	required := map[string]string{
		"brandName":          req.BrandName,
		"founderName":        req.FounderName,
		"email":              req.Email,
		"medicalCredentials": req.MedicalCredentials,
		"specialty":          req.Specialty,
		"productType":        req.ProductType,
		"currentRevenue":     req.CurrentRevenue,
		"biggestChallenge":   req.BiggestChallenge,
		"targetAudience":     req.TargetAudience,
	}
	var missing []string
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		s.respondError(w, http.StatusBadRequest, "Missing required fields: "+strings.Join(missing, ", "))
		return
	}

	if _, err := mail.ParseAddress(req.Email); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid email address")
		return
	}

	submission := &core.Submission{
		ID:                 uuid.NewString(),
		BrandName:          strings.TrimSpace(req.BrandName),
		FounderName:        strings.TrimSpace(req.FounderName),
		Email:              strings.TrimSpace(req.Email),
		Website:            strings.TrimSpace(req.Website),
		MedicalCredentials: strings.TrimSpace(req.MedicalCredentials),
		Specialty:          strings.TrimSpace(req.Specialty),
		ProductType:        strings.TrimSpace(req.ProductType),
		CurrentRevenue:     strings.TrimSpace(req.CurrentRevenue),
		BiggestChallenge:   strings.TrimSpace(req.BiggestChallenge),
		TargetAudience:     strings.TrimSpace(req.TargetAudience),
		Timeline:           defaultIfEmpty(req.Timeline, "Not specified"),
		HowDidYouHear:      defaultIfEmpty(req.HowDidYouHear, "Not specified"),
		AdditionalInfo:     strings.TrimSpace(req.AdditionalInfo),
		Status:             core.StatusNew,
		CreatedAt:          time.Now().UTC(),
	}

	if err := s.db.Submissions().Create(r.Context(), submission); err != nil {
		s.log.Error("Failed to create submission", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to save submission")
		return
	}

	s.log.Info("Submission received", "id", submission.ID, "brand", submission.BrandName)
	s.respondJSON(w, http.StatusCreated, submission)
}

// handleListSubmissions handles GET /api/submissions
func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	opts := persistence.ListOptions{}

	if status := r.URL.Query().Get("status"); status != "" {
		if !core.SubmissionStatus(status).Valid() {
			s.respondError(w, http.StatusBadRequest, "Unknown status filter: "+status)
			return
		}
		opts.Filter = map[string]string{"status": status}
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		opts.Limit = n
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "Invalid offset")
			return
		}
		opts.Offset = n
	}

	submissions, err := s.db.Submissions().List(r.Context(), opts)
	if err != nil {
		s.log.Error("Failed to list submissions", "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to retrieve submissions")
		return
	}

	s.respondJSON(w, http.StatusOK, SubmissionListResponse{
		Submissions: submissions,
		Total:       len(submissions),
	})
}

// handleGetSubmission handles GET /api/submissions/{id}
func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	submission, ok := s.loadSubmission(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, submission)
}

// handleUpdateSubmission handles PATCH /api/submissions/{id}
func (s *Server) handleUpdateSubmission(w http.ResponseWriter, r *http.Request) {
	submission, ok := s.loadSubmission(w, r)
	if !ok {
		return
	}

	var req UpdateSubmissionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Status != nil {
		status := core.SubmissionStatus(*req.Status)
		if !status.Valid() {
			s.respondError(w, http.StatusBadRequest, "Unknown status: "+*req.Status)
			return
		}
		submission.Status = status
	}
	if req.PDFURL != nil {
		submission.PDFURL = *req.PDFURL
	}
	if req.Website != nil {
		submission.Website = strings.TrimSpace(*req.Website)
	}
	if req.TargetAudience != nil {
		submission.TargetAudience = strings.TrimSpace(*req.TargetAudience)
	}
	if req.AdditionalInfo != nil {
		submission.AdditionalInfo = strings.TrimSpace(*req.AdditionalInfo)
	}

	if err := s.db.Submissions().Update(r.Context(), submission); err != nil {
		s.log.Error("Failed to update submission", "id", submission.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to update submission")
		return
	}

	s.respondJSON(w, http.StatusOK, submission)
}

// handleDeleteSubmission handles DELETE /api/submissions/{id}. Dependent
// image and photo rows cascade in the database; blob objects are removed
// best effort first.
func (s *Server) handleDeleteSubmission(w http.ResponseWriter, r *http.Request) {
	submission, ok := s.loadSubmission(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	if s.blobs != nil {
		photos, err := s.db.ProductPhotos().ListBySubmission(ctx, submission.ID)
		if err != nil {
			s.log.Warn("Failed to list product photos for cleanup", "id", submission.ID, "error", err)
		}
		for _, photo := range photos {
			if err := s.blobs.Delete(ctx, photo.URL); err != nil {
				s.log.Warn("Failed to delete product photo blob", "photo_id", photo.ID, "error", err)
			}
		}
		if submission.PDFURL != "" {
			if err := s.blobs.Delete(ctx, submission.PDFURL); err != nil {
				s.log.Warn("Failed to delete brief PDF blob", "id", submission.ID, "error", err)
			}
		}
	}

	if err := s.db.Submissions().Delete(ctx, submission.ID); err != nil {
		s.log.Error("Failed to delete submission", "id", submission.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to delete submission")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"deleted": submission.ID,
	})
}

func defaultIfEmpty(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
