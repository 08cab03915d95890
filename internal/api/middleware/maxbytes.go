package middleware

import (
	"fmt"
	"net/http"

	"github.com/ombulabs/rails-superhero-cards/internal/api/response"
)

// MaxBytes rejects requests whose declared Content-Length exceeds limit, and
// caps the body reader for requests that do not declare one.
func MaxBytes(limit int64) func(http.Handler) http.Handler {
	message := fmt.Sprintf("Image too large. Maximum size is %dMB.", limit>>20)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				response.Error(w, http.StatusBadRequest,
					"IMAGE_TOO_LARGE", message, nil)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
