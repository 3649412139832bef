// Package httpx provides the HTTP surface of the genrelay job pipeline.
package httpx

import (
	"errors"
	"net/http"

	"github.com/genrelay/genrelay/internal/core"
	"github.com/genrelay/genrelay/internal/domain/model"
	"github.com/genrelay/genrelay/internal/service"
)

// JobHandlers provides HTTP handlers for job submission and inspection.
type JobHandlers struct {
	Submitter *service.SubmitterService
	Jobs      core.JobRepository
}

// CreateJob accepts a generation request, submits it upstream, and answers
// 202 with the pending job. A provider outage answers 502 while the job row
// stays behind in a failed state for the caller to inspect.
func (h *JobHandlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req model.CreateJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.Submitter.Submit(r.Context(), &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, job)
}

// GetJob returns one job by id.
func (h *JobHandlers) GetJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		WriteError(w, ErrorParams{
			Code:    http.StatusBadRequest,
			ErrCode: "invalid_path",
			Err:     errors.New("job id is required"),
		})
		return
	}

	job, err := h.Jobs.GetByID(r.Context(), id)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// Stats returns lifecycle and backlog counters for dashboards.
func (h *JobHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Jobs.Stats(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}
