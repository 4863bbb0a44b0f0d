package handlers

import (
	"encoding/json"
	"net/http"

	"bookstore/internal/apperrors"
	"bookstore/internal/middleware"
)

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.Validation("Invalid request body")
	}
	return nil
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, err error) {
	respondWithJSON(w, apperrors.HTTPStatus(err), middleware.ErrorResponse{
		Error:   apperrors.Code(err),
		Message: apperrors.Message(err),
	})
}
