package handlers

import (
	"net/http"

	"github.com/bandmate/backend/internal/logging"
	"github.com/bandmate/backend/internal/models"
	"github.com/bandmate/backend/internal/social"
)

// FriendHandler provides friend request and friendship endpoints.
type FriendHandler struct {
	Friends  FriendService
	Expander Expander
	Limiter  RateLimiter
}

type friendRequestPayload struct {
	RequesterID string `json:"requesterId"`
	TargetID    string `json:"targetId"`
}

type friendResponsePayload struct {
	UserID      string `json:"userId"`
	RequesterID string `json:"requesterId"`
}

type unfriendPayload struct {
	UserID   string `json:"userId"`
	FriendID string `json:"friendId"`
}

// List handles GET /api/v1/friends?user=.
func (h FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "friends")
}

// Requests handles GET /api/v1/friends/requests?user=.
func (h FriendHandler) Requests(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "friendRequests")
}

func (h FriendHandler) list(w http.ResponseWriter, r *http.Request, field string) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	userID, ok := requireQuery(w, r, "user")
	if !ok {
		return
	}

	users, err := h.Expander.ExpandList(ctx, models.KindUser, userID, field)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, users)
}

type pairStatusResponse struct {
	User   string           `json:"user"`
	Other  string           `json:"other"`
	Status social.PairState `json:"status"`
}

// Status handles GET /api/v1/friends/status?user=&other=.
func (h FriendHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()
	userID, ok := requireQuery(w, r, "user")
	if !ok {
		return
	}
	otherID, ok := requireQuery(w, r, "other")
	if !ok {
		return
	}

	state, err := h.Friends.PairStatus(ctx, userID, otherID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}
	respondJSON(ctx, w, http.StatusOK, pairStatusResponse{User: userID, Other: otherID, Status: state})
}

// Send handles POST /api/v1/friends/request.
func (h FriendHandler) Send(w http.ResponseWriter, r *http.Request) {
	if !allowWrite(w, r, h.Limiter, "friends") {
		return
	}
	ctx := r.Context()

	var req friendRequestPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Friends.SendFriendRequest(ctx, req.RequesterID, req.TargetID); err != nil {
		respondError(ctx, w, err)
		return
	}
	logging.FromContext(ctx).Info("friend request sent", "requesterId", req.RequesterID, "targetId", req.TargetID)
	respondOK(ctx, w)
}

// Withdraw handles POST /api/v1/friends/request/remove.
func (h FriendHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	if !allowWrite(w, r, h.Limiter, "friends") {
		return
	}
	ctx := r.Context()

	var req friendRequestPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Friends.RemoveFriendRequest(ctx, req.RequesterID, req.TargetID); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondOK(ctx, w)
}

// Accept handles POST /api/v1/friends/accept.
func (h FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	if !allowWrite(w, r, h.Limiter, "friends") {
		return
	}
	ctx := r.Context()

	var req friendResponsePayload
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Friends.AcceptFriendRequest(ctx, req.UserID, req.RequesterID); err != nil {
		respondError(ctx, w, err)
		return
	}
	logging.FromContext(ctx).Info("friend request accepted", "userId", req.UserID, "requesterId", req.RequesterID)
	respondOK(ctx, w)
}

// Decline handles POST /api/v1/friends/decline.
func (h FriendHandler) Decline(w http.ResponseWriter, r *http.Request) {
	if !allowWrite(w, r, h.Limiter, "friends") {
		return
	}
	ctx := r.Context()

	var req friendResponsePayload
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Friends.DeclineFriendRequest(ctx, req.UserID, req.RequesterID); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondOK(ctx, w)
}

// Remove handles POST /api/v1/friends/remove.
func (h FriendHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if !allowWrite(w, r, h.Limiter, "friends") {
		return
	}
	ctx := r.Context()

	var req unfriendPayload
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Friends.Unfriend(ctx, req.UserID, req.FriendID); err != nil {
		respondError(ctx, w, err)
		return
	}
	respondOK(ctx, w)
}
