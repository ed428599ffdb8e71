package handlers

import (
	"context"

	"github.com/bandmate/backend/internal/models"
	"github.com/bandmate/backend/internal/social"
)

// UserService captures account and profile operations.
type UserService interface {
	RegisterUser(ctx context.Context, in social.RegisterUserInput) (models.User, error)
	GetUser(ctx context.Context, userID string) (models.User, error)
	ListUsers(ctx context.Context, limit int) ([]models.User, error)
	UpdateProfile(ctx context.Context, userID string, update social.ProfileUpdate) (models.User, error)
	DeleteUser(ctx context.Context, userID string) error
}

// FriendService captures friend request and friendship transitions.
type FriendService interface {
	SendFriendRequest(ctx context.Context, requesterID, targetID string) error
	RemoveFriendRequest(ctx context.Context, requesterID, targetID string) error
	AcceptFriendRequest(ctx context.Context, accepterID, requesterID string) error
	DeclineFriendRequest(ctx context.Context, accepterID, requesterID string) error
	Unfriend(ctx context.Context, userID, friendID string) error
	PairStatus(ctx context.Context, a, b string) (social.PairState, error)
}

// ReviewService captures review creation and removal.
type ReviewService interface {
	CreateReview(ctx context.Context, in social.CreateReviewInput) (models.Review, error)
	DeleteReview(ctx context.Context, reviewID string) error
}

// SampleService captures sample publishing.
type SampleService interface {
	AddSample(ctx context.Context, in social.AddSampleInput) (models.Sample, error)
	DeleteSample(ctx context.Context, sampleID string) error
}

// BandService captures band lifecycle and membership.
type BandService interface {
	CreateBand(ctx context.Context, in social.CreateBandInput) (models.Band, error)
	JoinBand(ctx context.Context, userID, bandID string) error
	LeaveBand(ctx context.Context, userID string) error
	DeleteBand(ctx context.Context, bandID string) error
}

// Expander resolves reference ids for read endpoints.
type Expander interface {
	Expand(ctx context.Context, kind models.Kind, id string, paths ...string) (models.Document, error)
	ExpandList(ctx context.Context, kind models.Kind, id, field string, nested ...string) ([]models.Document, error)
}
