package handler

import (
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ombulabs/rails-superhero-cards/internal/api/response"
	"github.com/ombulabs/rails-superhero-cards/internal/card"
	"github.com/ombulabs/rails-superhero-cards/internal/jobs"
)

// multipartMemoryLimit bounds how much of the form is held in memory during
// parsing; the body itself is capped upstream.
const multipartMemoryLimit = 8 << 20

// GenerateResponse acknowledges an accepted submission.
type GenerateResponse struct {
	SessionID string `json:"session_id"`
	JobID     string `json:"job_id"`
	Message   string `json:"message"`
}

// NewGenerateHandler returns the handler for POST /generate-hero-card. It
// validates and compresses the upload synchronously, then hands the job off
// and returns 202; generation happens in the worker.
func NewGenerateHandler(dispatcher jobs.Dispatcher, maxImageBytes int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				response.Error(w, http.StatusBadRequest, "IMAGE_TOO_LARGE",
					"Image too large. Maximum size is 4MB.", nil)
				return
			}
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"Invalid multipart form", nil)
			return
		}

		sessionID := r.FormValue("session_id")
		if sessionID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"session_id is required", nil)
			return
		}

		text := strings.Join(strings.Fields(r.FormValue("text")), " ")
		if text == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
				"text is required", nil)
			return
		}

		holidayTheme, _ := strconv.ParseBool(r.FormValue("holiday_theme"))

		file, _, err := r.FormFile("image")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "IMAGE_REQUIRED",
				"An uploaded image is required.", nil)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_IMAGE",
				"Could not read uploaded image", nil)
			return
		}

		if err := card.ValidateFormat(data); err != nil {
			var formatErr *card.ImageFormatError
			if errors.As(err, &formatErr) {
				response.Error(w, http.StatusBadRequest, "INVALID_IMAGE",
					formatErr.Message, nil)
				return
			}
			response.Error(w, http.StatusBadRequest, "INVALID_IMAGE",
				"Unable to process image", nil)
			return
		}

		compressed, err := card.Compress(data, maxImageBytes)
		if err != nil {
			slog.Error("image compression failed",
				"session_id", sessionID, "error", err)
			response.Error(w, http.StatusInternalServerError, "IMAGE_PROCESSING_FAILED",
				"Failed to process image", nil)
			return
		}

		jobID, err := dispatcher.Enqueue(r.Context(), jobs.Payload{
			SessionID:    sessionID,
			Text:         text,
			HolidayTheme: holidayTheme,
			ImageBase64:  base64.StdEncoding.EncodeToString(compressed),
		})
		if err != nil {
			slog.Error("failed to enqueue job",
				"session_id", sessionID, "error", err)
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to start card generation", nil)
			return
		}

		slog.Info("card generation accepted",
			"session_id", sessionID, "job_id", jobID, "holiday_theme", holidayTheme)
		response.Accepted(w, GenerateResponse{
			SessionID: sessionID,
			JobID:     jobID,
			Message:   "Card generation started",
		})
	}
}
