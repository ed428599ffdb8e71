package social

import (
	"context"
	"log/slog"

	"github.com/bandmate/backend/internal/logging"
	"github.com/bandmate/backend/internal/models"
)

const (
	fieldFriends        = "friends"
	fieldFriendRequests = "friendRequests"
)

// PairState is the relationship between two users.
type PairState string

const (
	PairNone    PairState = "none"
	PairPending PairState = "pending"
	PairFriends PairState = "friends"
)

func checkPair(a, b string) error {
	if err := requireID("requester id", a); err != nil {
		return err
	}
	if err := requireID("target id", b); err != nil {
		return err
	}
	if a == b {
		return invalidf("user %s cannot befriend themselves", a)
	}
	return nil
}

// SendFriendRequest records a pending request from requesterID to targetID.
// Repeating a request already pending is a no-op.
func (e *Engine) SendFriendRequest(ctx context.Context, requesterID, targetID string) (err error) {
	ctx, span := logging.StartSpan(ctx, "social.SendFriendRequest")
	defer func() { span.End(err) }()

	if err := checkPair(requesterID, targetID); err != nil {
		return err
	}

	requester, err := e.load(ctx, models.KindUser, requesterID)
	if err != nil {
		return err
	}
	target, err := e.load(ctx, models.KindUser, targetID)
	if err != nil {
		return err
	}

	switch {
	case requester.Contains(fieldFriends, targetID) || target.Contains(fieldFriends, requesterID):
		return conflictf("users %s and %s are already friends", requesterID, targetID)
	case requester.Contains(fieldFriendRequests, targetID):
		return conflictf("user %s already requested %s; accept that request instead", targetID, requesterID)
	case target.Contains(fieldFriendRequests, requesterID):
		logging.FromContext(ctx).Debug("friend request already pending",
			slog.String("requester_id", requesterID),
			slog.String("target_id", targetID),
		)
		return nil
	}

	return e.apply(ctx, newProgress("SendFriendRequest"), step{
		kind: models.KindUser,
		id:   targetID,
		muts: []mutation{link(fieldFriendRequests, requesterID)},
	})
}

// RemoveFriendRequest withdraws a pending request. Withdrawing a request
// that does not exist succeeds without changes.
func (e *Engine) RemoveFriendRequest(ctx context.Context, requesterID, targetID string) (err error) {
	ctx, span := logging.StartSpan(ctx, "social.RemoveFriendRequest")
	defer func() { span.End(err) }()

	if err := checkPair(requesterID, targetID); err != nil {
		return err
	}

	return e.apply(ctx, newProgress("RemoveFriendRequest"), step{
		kind: models.KindUser,
		id:   targetID,
		muts: []mutation{unlink(fieldFriendRequests, requesterID)},
	})
}

// AcceptFriendRequest turns the request from requesterID into a friendship.
// The accepter's document is updated first in a single write; the requester
// is updated second. When no request is pending and no half-established
// friendship exists the call is a no-op.
//
// A half-established friendship is repaired towards friends whichever
// operation left it. An Unfriend that stopped after its first step is
// therefore undone by a later accept; retry the Unfriend instead to finish
// ending the friendship.
func (e *Engine) AcceptFriendRequest(ctx context.Context, accepterID, requesterID string) (err error) {
	ctx, span := logging.StartSpan(ctx, "social.AcceptFriendRequest")
	defer func() { span.End(err) }()

	if err := checkPair(requesterID, accepterID); err != nil {
		return err
	}

	accepter, err := e.load(ctx, models.KindUser, accepterID)
	if err != nil {
		return err
	}
	requester, err := e.load(ctx, models.KindUser, requesterID)
	if err != nil {
		return err
	}

	pending := accepter.Contains(fieldFriendRequests, requesterID)
	halfLinked := accepter.Contains(fieldFriends, requesterID) != requester.Contains(fieldFriends, accepterID)
	if !pending && !halfLinked {
		logging.FromContext(ctx).Info("no pending friend request to accept",
			slog.String("accepter_id", accepterID),
			slog.String("requester_id", requesterID),
		)
		return nil
	}

	return e.apply(ctx, newProgress("AcceptFriendRequest"),
		step{
			kind: models.KindUser,
			id:   accepterID,
			muts: []mutation{
				unlink(fieldFriendRequests, requesterID),
				link(fieldFriends, requesterID),
			},
		},
		step{
			kind: models.KindUser,
			id:   requesterID,
			muts: []mutation{
				link(fieldFriends, accepterID),
				unlink(fieldFriendRequests, accepterID),
			},
		},
	)
}

// DeclineFriendRequest drops a pending request without creating a friendship.
func (e *Engine) DeclineFriendRequest(ctx context.Context, accepterID, requesterID string) (err error) {
	ctx, span := logging.StartSpan(ctx, "social.DeclineFriendRequest")
	defer func() { span.End(err) }()

	if err := checkPair(requesterID, accepterID); err != nil {
		return err
	}

	return e.apply(ctx, newProgress("DeclineFriendRequest"), step{
		kind: models.KindUser,
		id:   accepterID,
		muts: []mutation{unlink(fieldFriendRequests, requesterID)},
	})
}

// Unfriend ends a friendship from both sides. A friend whose document no
// longer exists is only removed from userID's list.
func (e *Engine) Unfriend(ctx context.Context, userID, friendID string) (err error) {
	ctx, span := logging.StartSpan(ctx, "social.Unfriend")
	defer func() { span.End(err) }()

	if err := checkPair(userID, friendID); err != nil {
		return err
	}

	return e.apply(ctx, newProgress("Unfriend"),
		step{
			kind: models.KindUser,
			id:   userID,
			muts: []mutation{unlink(fieldFriends, friendID)},
		},
		step{
			kind:      models.KindUser,
			id:        friendID,
			muts:      []mutation{unlink(fieldFriends, userID)},
			missingOK: true,
		},
	)
}

// PairStatus reports the relationship between a and b as seen from both documents.
func (e *Engine) PairStatus(ctx context.Context, a, b string) (PairState, error) {
	if err := checkPair(a, b); err != nil {
		return "", err
	}
	docA, err := e.load(ctx, models.KindUser, a)
	if err != nil {
		return "", err
	}
	docB, err := e.load(ctx, models.KindUser, b)
	if err != nil {
		return "", err
	}
	switch {
	case docA.Contains(fieldFriends, b) && docB.Contains(fieldFriends, a):
		return PairFriends, nil
	case docA.Contains(fieldFriendRequests, b) || docB.Contains(fieldFriendRequests, a):
		return PairPending, nil
	default:
		return PairNone, nil
	}
}
