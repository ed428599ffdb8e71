package handlers

import (
	"net/http"

	"github.com/bandmate/backend/internal/logging"
	"github.com/bandmate/backend/internal/models"
	"github.com/bandmate/backend/internal/social"
)

// ReviewHandler provides review endpoints.
type ReviewHandler struct {
	Reviews  ReviewService
	Expander Expander
	Limiter  RateLimiter
}

type deleteReviewPayload struct {
	ReviewID string `json:"reviewId"`
}

// Collection handles GET (fetch one, ?id=) and POST (create) on /api/v1/reviews.
func (h ReviewHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPost:
		h.create(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h ReviewHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := requireQuery(w, r, "id")
	if !ok {
		return
	}
	doc, err := h.Expander.Expand(ctx, models.KindReview, id, "author", "band", "artist")
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, doc)
}

func (h ReviewHandler) create(w http.ResponseWriter, r *http.Request) {
	if !allowWrite(w, r, h.Limiter, "reviews") {
		return
	}
	ctx := r.Context()

	var req social.CreateReviewInput
	if !decodeBody(w, r, &req) {
		return
	}
	review, err := h.Reviews.CreateReview(ctx, req)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	logging.FromContext(ctx).Info("review created", "reviewId", review.ID, "authorId", review.Author)
	respondJSON(ctx, w, http.StatusCreated, review)
}

// Delete handles POST /api/v1/reviews/delete.
func (h ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !allowWrite(w, r, h.Limiter, "reviews") {
		return
	}
	ctx := r.Context()

	var req deleteReviewPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Reviews.DeleteReview(ctx, req.ReviewID); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondOK(ctx, w)
}
