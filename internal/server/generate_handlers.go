package server

import (
	"errors"
	"net/http"

	"whitecoat/internal/core"
	"whitecoat/internal/persistence"
	"whitecoat/internal/pipeline"
)

// GenerationStatusResponse is the polling payload plus the image rows
// persisted so far, ordered by ad and image number.
type GenerationStatusResponse struct {
	pipeline.RunStatus
	Images []core.GeneratedImage `json:"images"`
}

// handleGenerateBrief handles POST /api/submissions/{id}/generate. The run
// executes synchronously; the admin UI polls the status endpoint meanwhile.
func (s *Server) handleGenerateBrief(w http.ResponseWriter, r *http.Request) {
	submission, ok := s.loadSubmission(w, r)
	if !ok {
		return
	}

	if s.generation == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Brief generation is not configured")
		return
	}

	summary, err := s.generation.Run(r.Context(), submission.ID)
	if err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			s.respondError(w, http.StatusConflict, "Generation is already in progress for this submission")
			return
		}
		s.log.Error("Brief generation failed", "id", submission.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Brief generation failed: "+err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, summary)
}

// handleGenerationStatus handles GET /api/submissions/{id}/generate/status
func (s *Server) handleGenerationStatus(w http.ResponseWriter, r *http.Request) {
	submission, ok := s.loadSubmission(w, r)
	if !ok {
		return
	}

	if s.generation == nil {
		s.respondError(w, http.StatusServiceUnavailable, "Brief generation is not configured")
		return
	}

	status, err := s.generation.Status(r.Context(), submission.ID)
	if err != nil {
		if err == persistence.ErrNotFound {
			s.respondError(w, http.StatusNotFound, "Submission not found")
			return
		}
		s.log.Error("Failed to load generation status", "id", submission.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to load generation status")
		return
	}

	images, err := s.db.GeneratedImages().ListBySubmission(r.Context(), submission.ID)
	if err != nil {
		s.log.Error("Failed to load generated images", "id", submission.ID, "error", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to load generated images")
		return
	}

	s.respondJSON(w, http.StatusOK, GenerationStatusResponse{
		RunStatus: *status,
		Images:    images,
	})
}
