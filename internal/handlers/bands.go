package handlers

import (
	"net/http"

	"github.com/bandmate/backend/internal/models"
	"github.com/bandmate/backend/internal/social"
)

// BandHandler provides band endpoints.
type BandHandler struct {
	Bands    BandService
	Expander Expander
	Limiter  RateLimiter
}

type membershipPayload struct {
	UserID string `json:"userId"`
	BandID string `json:"bandId,omitempty"`
}

type deleteBandPayload struct {
	BandID string `json:"bandId"`
}

// Collection handles GET (fetch one, ?id=) and POST (create) on /api/v1/bands.
func (h BandHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h BandHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := requireQuery(w, r, "id")
	if !ok {
		return
	}
	doc, err := h.Expander.Expand(ctx, models.KindBand, id, "members", "reviews")
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, doc)
}

func (h BandHandler) create(w http.ResponseWriter, r *http.Request) {
	if !allowWrite(w, r, h.Limiter, "bands") {
		return
	}
	ctx := r.Context()

	var req social.CreateBandInput
	if !decodeBody(w, r, &req) {
		return
	}
	band, err := h.Bands.CreateBand(ctx, req)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusCreated, band)
}

// Join handles POST /api/v1/bands/join.
func (h BandHandler) Join(w http.ResponseWriter, r *http.Request) {
	if !allowWrite(w, r, h.Limiter, "bands") {
		return
	}
	ctx := r.Context()

	var req membershipPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Bands.JoinBand(ctx, req.UserID, req.BandID); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondOK(ctx, w)
}

// Leave handles POST /api/v1/bands/leave.
func (h BandHandler) Leave(w http.ResponseWriter, r *http.Request) {
	if !allowWrite(w, r, h.Limiter, "bands") {
		return
	}
	ctx := r.Context()

	var req membershipPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Bands.LeaveBand(ctx, req.UserID); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondOK(ctx, w)
}

// Delete handles POST /api/v1/bands/delete.
func (h BandHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !allowWrite(w, r, h.Limiter, "bands") {
		return
	}
	ctx := r.Context()

	var req deleteBandPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Bands.DeleteBand(ctx, req.BandID); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondOK(ctx, w)
}
