package handlers

import (
	"net/http"

	"github.com/bandmate/backend/internal/social"
)

// SampleHandler provides sample endpoints.
type SampleHandler struct {
	Samples SampleService
	Limiter RateLimiter
}

type deleteSamplePayload struct {
	SampleID string `json:"sampleId"`
}

// Create handles POST /api/v1/samples.
func (h SampleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !allowWrite(w, r, h.Limiter, "samples") {
		return
	}
	ctx := r.Context()

	var req social.AddSampleInput
	if !decodeBody(w, r, &req) {
		return
	}
	sample, err := h.Samples.AddSample(ctx, req)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, sample)
}

// Delete handles POST /api/v1/samples/delete.
func (h SampleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !allowWrite(w, r, h.Limiter, "samples") {
		return
	}
	ctx := r.Context()

	var req deleteSamplePayload
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Samples.DeleteSample(ctx, req.SampleID); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondOK(ctx, w)
}
