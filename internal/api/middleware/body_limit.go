package middleware

import (
	"fmt"
	"net/http"

	"qrlink/internal/pkg/errors"
)

// BodyLimit rejects requests whose body exceeds maxBytes with 413.
// Bodies without a declared length are cut off by http.MaxBytesReader.
func BodyLimit(maxBytes int64, next http.Handler) http.Handler {
	if maxBytes <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > maxBytes {
			errors.WriteError(w, http.StatusRequestEntityTooLarge, errors.ErrCodeTooLarge,
				fmt.Sprintf("request exceeds %d MB", maxBytes>>20), nil)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		next.ServeHTTP(w, r)
	})
}
