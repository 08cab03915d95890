package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ombulabs/rails-superhero-cards/internal/api/response"
	"github.com/ombulabs/rails-superhero-cards/internal/blob"
	"github.com/ombulabs/rails-superhero-cards/internal/jobs"
	"github.com/ombulabs/rails-superhero-cards/internal/store"
	"github.com/ombulabs/rails-superhero-cards/pkg/models"
)

// StatusResponse reports where a job is. For finished jobs it resolves down
// to the card row, inlining the stored image when one was archived.
type StatusResponse struct {
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
	Error       string `json:"error,omitempty"`
}

// NewStatusHandler returns the handler for GET /status/{jobID}. Unknown job
// ids read as pending: either the job has not been registered yet or its
// state aged out, and both look the same to a poller.
func NewStatusHandler(dispatcher jobs.Dispatcher, cards store.Store, blobs blob.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobID")

		rec, err := dispatcher.Status(r.Context(), jobID)
		if err != nil {
			slog.Error("failed to read job status", "job_id", jobID, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to read job status", nil)
			return
		}

		status, description := rec.State.Map()
		resp := StatusResponse{
			Status:      status,
			Description: description,
			SessionID:   rec.SessionID,
		}
		if status == models.StatusError {
			resp.Error = rec.Error
		}

		if rec.State == models.JobSuccess {
			resolveCard(r, cards, blobs, &resp)
		}

		response.JSON(w, resp)
	}
}

// resolveCard refines a finished job's response from its card row. A missing
// row or a failed image fetch leaves the response as plain complete; the
// object key is still in the database for later retrieval.
func resolveCard(r *http.Request, cards store.Store, blobs blob.Store, resp *StatusResponse) {
	c, err := cards.GetCardBySessionID(r.Context(), resp.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		slog.Error("failed to load card row",
			"session_id", resp.SessionID, "error", err)
		return
	}

	if c.Status == models.CardStatusError {
		resp.Status = models.StatusError
		resp.Description = "Card generation failed"
		if c.ErrorMessage != nil {
			resp.Error = *c.ErrorMessage
		}
		return
	}

	if c.AWSObjectKey == nil {
		return
	}
	image, err := blobs.GetImageBase64(r.Context(), *c.AWSObjectKey)
	if err != nil {
		slog.Error("failed to fetch archived card",
			"session_id", resp.SessionID, "object_key", *c.AWSObjectKey, "error", err)
		return
	}
	resp.ImageBase64 = image
}
