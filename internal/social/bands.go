package social

import (
	"context"
	"strings"

	"github.com/bandmate/backend/internal/logging"
	"github.com/bandmate/backend/internal/models"
)

const (
	fieldBand    = "band"
	fieldMembers = "members"
)

// CreateBandInput describes a new band.
type CreateBandInput struct {
	ID     string   `json:"id,omitempty"`
	Name   string   `json:"name"`
	Genres []string `json:"genres,omitempty"`
}

// CreateBand stores a band with no members.
func (e *Engine) CreateBand(ctx context.Context, in CreateBandInput) (band models.Band, err error) {
	ctx, span := logging.StartSpan(ctx, "social.CreateBand")
	defer func() { span.End(err) }()

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return models.Band{}, invalidf("band name is required")
	}

	band = models.Band{
		ID:        in.ID,
		Name:      name,
		Genres:    cleanList(in.Genres),
		CreatedAt: e.now().UTC(),
	}
	doc, err := newDocument(models.KindBand, band)
	if err != nil {
		return models.Band{}, err
	}

	id, err := e.create(ctx, newProgress("CreateBand"), models.KindBand, doc, func(existing models.Document) bool {
		return existing.String("name") == name
	})
	if err != nil {
		return models.Band{}, err
	}
	band.ID = id
	band.Members = []string{}
	band.Reviews = []string{}
	return band, nil
}

// JoinBand makes userID a member of bandID, leaving any previous band first.
// The membership list is updated before the user's band field so that an
// interrupted join is completed by repeating it.
func (e *Engine) JoinBand(ctx context.Context, userID, bandID string) (err error) {
	ctx, span := logging.StartSpan(ctx, "social.JoinBand")
	defer func() { span.End(err) }()

	if err := requireID("user id", userID); err != nil {
		return err
	}
	if err := requireID("band id", bandID); err != nil {
		return err
	}

	user, err := e.load(ctx, models.KindUser, userID)
	if err != nil {
		return err
	}
	band, err := e.load(ctx, models.KindBand, bandID)
	if err != nil {
		return err
	}

	previous := user.String(fieldBand)
	if previous == bandID && band.Contains(fieldMembers, userID) {
		return nil
	}

	var steps []step
	if previous != "" && previous != bandID {
		steps = append(steps, step{
			kind:      models.KindBand,
			id:        previous,
			muts:      []mutation{unlink(fieldMembers, userID)},
			missingOK: true,
		})
	}
	steps = append(steps,
		step{kind: models.KindBand, id: bandID, muts: []mutation{link(fieldMembers, userID)}},
		step{kind: models.KindUser, id: userID, muts: []mutation{link(fieldBand, bandID)}},
	)
	return e.apply(ctx, newProgress("JoinBand"), steps...)
}

// LeaveBand removes userID from its current band. Users without a band are
// left unchanged.
func (e *Engine) LeaveBand(ctx context.Context, userID string) (err error) {
	ctx, span := logging.StartSpan(ctx, "social.LeaveBand")
	defer func() { span.End(err) }()

	if err := requireID("user id", userID); err != nil {
		return err
	}
	user, err := e.load(ctx, models.KindUser, userID)
	if err != nil {
		return err
	}
	bandID := user.String(fieldBand)
	if bandID == "" {
		return nil
	}

	return e.apply(ctx, newProgress("LeaveBand"),
		step{
			kind:      models.KindBand,
			id:        bandID,
			muts:      []mutation{unlink(fieldMembers, userID)},
			missingOK: true,
		},
		step{kind: models.KindUser, id: userID, muts: []mutation{unlink(fieldBand, bandID)}},
	)
}

// DeleteBand deletes the reviews about the band, clears every member's band
// field and deletes the band last.
func (e *Engine) DeleteBand(ctx context.Context, bandID string) (err error) {
	ctx, span := logging.StartSpan(ctx, "social.DeleteBand")
	defer func() { span.End(err) }()

	if err := requireID("band id", bandID); err != nil {
		return err
	}
	if err := e.exists(ctx, models.KindBand, bandID); err != nil {
		return err
	}
	return e.purge(ctx, newProgress("DeleteBand"), models.KindBand, bandID)
}

// cleanList trims entries and drops empty ones and duplicates.
func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
