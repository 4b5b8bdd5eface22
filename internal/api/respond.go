package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nexuscargo/backend/internal/aeca"
	"github.com/nexuscargo/backend/internal/auth"
	"github.com/nexuscargo/backend/internal/aviqm"
	"github.com/nexuscargo/backend/internal/awb"
	"github.com/nexuscargo/backend/internal/discrepancy"
	"github.com/nexuscargo/backend/internal/idempotency"
	"github.com/nexuscargo/backend/internal/ingestion"
	"github.com/nexuscargo/backend/internal/integrations"
	"github.com/nexuscargo/backend/internal/review"
	"github.com/nexuscargo/backend/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeError maps domain errors onto HTTP statuses. Partner system
// failures surface as 502 with a failed status so callers can retry.
func writeError(w http.ResponseWriter, err error) {
	var integErr *integrations.IntegrationError
	if errors.As(err, &integErr) {
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"status": "failed",
			"error":  integErr.Error(),
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrIdempotencyConflict),
		errors.Is(err, store.ErrDuplicate),
		errors.Is(err, review.ErrAlreadyCompleted),
		errors.Is(err, discrepancy.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, ingestion.ErrUnsupportedContentType),
		errors.Is(err, awb.ErrInvalidShipment),
		errors.Is(err, aeca.ErrInvalidExport),
		errors.Is(err, aviqm.ErrInvalidVIN):
		status = http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrTokenRevoked):
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func hashRequest(v interface{}) (string, error) {
	return idempotency.HashRequest(v)
}
