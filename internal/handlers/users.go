package handlers

import (
	"net/http"
	"strconv"

	"github.com/bandmate/backend/internal/expand"
	"github.com/bandmate/backend/internal/logging"
	"github.com/bandmate/backend/internal/models"
	"github.com/bandmate/backend/internal/social"
)

const maxListLimit = 200

// UserHandler provides account and profile endpoints.
type UserHandler struct {
	Users    UserService
	Expander Expander
	Limiter  RateLimiter
}

type profileUpdatePayload struct {
	UserID string `json:"userId"`
	social.ProfileUpdate
}

type deleteUserPayload struct {
	UserID string `json:"userId"`
}

// Collection handles GET (one user with ?id=, otherwise a list) and POST
// (register) on /api/v1/users.
func (h UserHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.register(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h UserHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if id := r.URL.Query().Get("id"); id != "" {
		user, err := h.Users.GetUser(ctx, id)
		if err != nil {
			respondError(ctx, w, err)
			return
		}
		respondJSON(ctx, w, http.StatusOK, user)
		return
	}

	limit := maxListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		if n < limit {
			limit = n
		}
	}

	users, err := h.Users.ListUsers(ctx, limit)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, users)
}

func (h UserHandler) register(w http.ResponseWriter, r *http.Request) {
	if !allowWrite(w, r, h.Limiter, "signup") {
		return
	}
	ctx := r.Context()

	var req social.RegisterUserInput
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := h.Users.RegisterUser(ctx, req)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	logging.FromContext(ctx).Info("user registered", "userId", user.ID)
	respondJSON(ctx, w, http.StatusCreated, user)
}

// Profile handles GET /api/v1/profile?user=&expand=.
func (h UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	userID, ok := requireQuery(w, r, "user")
	if !ok {
		return
	}

	paths := expand.ParsePaths(r.URL.Query().Get("expand"))
	if paths == nil {
		paths = expand.ProfilePaths
	}
	doc, err := h.Expander.Expand(ctx, models.KindUser, userID, paths...)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, doc)
}

// UpdateProfile handles POST /api/v1/profile/update.
func (h UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if !allowWrite(w, r, h.Limiter, "profile") {
		return
	}
	ctx := r.Context()

	var req profileUpdatePayload
	if !decodeBody(w, r, &req) {
		return
	}
	user, err := h.Users.UpdateProfile(ctx, req.UserID, req.ProfileUpdate)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, user)
}

// DeleteProfile handles POST /api/v1/profile/delete.
func (h UserHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	if !allowWrite(w, r, h.Limiter, "profile") {
		return
	}
	ctx := r.Context()

	var req deleteUserPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Users.DeleteUser(ctx, req.UserID); err != nil {
		respondError(ctx, w, err)
		return
	}
	logging.FromContext(ctx).Info("user deleted", "userId", req.UserID)
	respondOK(ctx, w)
}
