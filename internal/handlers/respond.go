package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bandmate/backend/internal/expand"
	"github.com/bandmate/backend/internal/logging"
	"github.com/bandmate/backend/internal/social"
)

const maxBodyBytes = 1 << 20

type statusResponse struct {
	Status string `json:"status"`
}

type partialFailureResponse struct {
	Error     string           `json:"error"`
	Operation string           `json:"operation"`
	Failed    social.StepRef   `json:"failed"`
	Applied   []social.StepRef `json:"applied"`
	Created   []social.DocRef  `json:"created,omitempty"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

// respondError maps engine and expansion errors onto HTTP statuses. Partial
// failures carry the applied steps so the caller can retry.
func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	var partial *social.PartialFailureError
	switch {
	case errors.As(err, &partial):
		respondJSON(ctx, w, http.StatusInternalServerError, partialFailureResponse{
			Error:     "operation partially applied; retry to complete it",
			Operation: partial.Operation,
			Failed:    partial.Failed,
			Applied:   partial.Applied,
			Created:   partial.Created,
		})
	case errors.Is(err, social.ErrInvalidInput), errors.Is(err, expand.ErrInvalidPath):
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, social.ErrNotFound), errors.Is(err, expand.ErrNotFound):
		respondJSON(ctx, w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, social.ErrConflict):
		respondJSON(ctx, w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		logging.FromContext(ctx).Error("unhandled error", "error", err)
		respondJSON(ctx, w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func respondOK(ctx context.Context, w http.ResponseWriter) {
	respondJSON(ctx, w, http.StatusOK, statusResponse{Status: "ok"})
}

// decodeBody reads a JSON request body into dst, responding with 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	ctx := r.Context()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		logging.FromContext(ctx).Warn("invalid request payload", "path", r.URL.Path, "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func requireQuery(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	value := r.URL.Query().Get(name)
	if value == "" {
		respondJSON(r.Context(), w, http.StatusBadRequest, map[string]string{"error": name + " query parameter is required"})
		return "", false
	}
	return value, true
}
