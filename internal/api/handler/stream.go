package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ombulabs/rails-superhero-cards/internal/api/response"
	"github.com/ombulabs/rails-superhero-cards/internal/progress"
	"github.com/ombulabs/rails-superhero-cards/pkg/models"
)

// NewStreamHandler returns the handler for GET /stream/{sessionID}: a
// server-sent event stream that emits a connected event, relays progress
// events for the session, and closes on the first terminal event, on timeout,
// or when the client goes away.
func NewStreamHandler(subscriber progress.Subscriber, timeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := chi.URLParam(r, "sessionID")

		flusher, ok := w.(http.Flusher)
		if !ok {
			response.Error(w, http.StatusInternalServerError, "STREAMING_UNSUPPORTED",
				"Streaming is not supported", nil)
			return
		}

		sub, err := subscriber.Subscribe(r.Context(), sessionID)
		if err != nil {
			slog.Error("failed to subscribe to session",
				"session_id", sessionID, "error", err)
			response.Error(w, http.StatusInternalServerError, "STREAM_ERROR",
				"Failed to open event stream", nil)
			return
		}
		defer sub.Close()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")

		log := slog.With("session_id", sessionID)
		if err := writeEvent(w, flusher, models.ProgressEvent{
			Type:      models.EventConnected,
			SessionID: sessionID,
		}); err != nil {
			log.Debug("client gone before connected event", "error", err)
			return
		}

		timer := time.NewTimer(timeout)
		defer timer.Stop()

		for {
			select {
			case event, open := <-sub.Events():
				if !open {
					// Subscription transport dropped under us.
					log.Warn("event stream closed unexpectedly")
					_ = writeEvent(w, flusher, models.ProgressEvent{
						Type:    models.EventError,
						Message: "Stream error",
					})
					return
				}
				if err := writeEvent(w, flusher, event); err != nil {
					log.Debug("client disconnected mid-stream", "error", err)
					return
				}
				if event.Terminal() {
					log.Info("stream finished", "type", event.Type)
					return
				}

			case <-timer.C:
				log.Warn("stream timed out", "timeout", timeout)
				_ = writeEvent(w, flusher, models.ProgressEvent{
					Type:    models.EventError,
					Message: "Timeout",
				})
				return

			case <-r.Context().Done():
				log.Debug("client disconnected")
				return
			}
		}
	}
}

func writeEvent(w http.ResponseWriter, flusher http.Flusher, event models.ProgressEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal sse event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
