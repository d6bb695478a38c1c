package handlers

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"

	"qrlink/internal/pkg/errors"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeFormError reports a failure to read or interpret a request body.
func writeFormError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if stderrors.As(err, &tooLarge) {
		errors.WriteError(w, http.StatusRequestEntityTooLarge, errors.ErrCodeTooLarge,
			fmt.Sprintf("request exceeds %d MB", tooLarge.Limit>>20), nil)
		return
	}
	var kindErr *errors.Error
	if stderrors.As(err, &kindErr) {
		errors.WriteKindError(w, err)
		return
	}
	errors.WriteError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "Invalid request body", nil)
}
