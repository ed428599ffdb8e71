package social

import (
	"context"
	"math"
	"strings"

	"github.com/bandmate/backend/internal/logging"
	"github.com/bandmate/backend/internal/models"
)

const (
	fieldReviews       = "reviews"
	fieldBandReviews   = "bandReviews"
	fieldArtistReviews = "artistReviews"

	maxRating = 5
)

// CreateReviewInput describes a new review. ID is optional; supplying the id
// returned by a failed attempt resumes that attempt instead of creating a
// second review.
type CreateReviewInput struct {
	ID          string             `json:"id,omitempty"`
	AuthorID    string             `json:"authorId"`
	SubjectID   string             `json:"subjectId"`
	SubjectKind models.SubjectKind `json:"subjectKind"`
	Content     string             `json:"content"`
	Rating      *float64           `json:"rating,omitempty"`
	Img         string             `json:"img,omitempty"`
}

func (in CreateReviewInput) validate() (models.Subject, error) {
	if strings.TrimSpace(in.Content) == "" {
		return models.Subject{}, invalidf("review content must not be empty")
	}
	if err := requireID("author id", in.AuthorID); err != nil {
		return models.Subject{}, err
	}
	if err := requireID("subject id", in.SubjectID); err != nil {
		return models.Subject{}, err
	}
	if in.Rating != nil {
		r := *in.Rating
		if math.IsNaN(r) || r < 0 || r > maxRating {
			return models.Subject{}, invalidf("rating must be between 0 and %d", maxRating)
		}
	}

	subject := models.Subject{Kind: in.SubjectKind, ID: in.SubjectID}
	switch in.SubjectKind {
	case models.SubjectBand:
	case models.SubjectUser:
		if in.SubjectID == in.AuthorID {
			return models.Subject{}, invalidf("user %s cannot review themselves", in.AuthorID)
		}
	default:
		return models.Subject{}, invalidf("unknown review subject kind %q", in.SubjectKind)
	}
	return subject, nil
}

// CreateReview stores the review, then links it into the author's lists and
// finally into the subject's back-reference list.
func (e *Engine) CreateReview(ctx context.Context, in CreateReviewInput) (review models.Review, err error) {
	ctx, span := logging.StartSpan(ctx, "social.CreateReview")
	defer func() { span.End(err) }()

	subject, err := in.validate()
	if err != nil {
		return models.Review{}, err
	}
	if err := e.exists(ctx, models.KindUser, in.AuthorID); err != nil {
		return models.Review{}, err
	}
	if err := e.exists(ctx, subject.Collection(), subject.ID); err != nil {
		return models.Review{}, err
	}

	review = models.Review{
		ID:      in.ID,
		Content: strings.TrimSpace(in.Content),
		Img:     strings.TrimSpace(in.Img),
		Rating:  in.Rating,
		Author:  in.AuthorID,
	}
	if subject.Kind == models.SubjectBand {
		review.Band = subject.ID
	} else {
		review.Artist = subject.ID
	}

	doc, err := newDocument(models.KindReview, review)
	if err != nil {
		return models.Review{}, err
	}

	p := newProgress("CreateReview")
	id, err := e.create(ctx, p, models.KindReview, doc, func(existing models.Document) bool {
		var prev models.Review
		if models.FromDocument(existing, &prev) != nil {
			return false
		}
		prevSubject, ok := prev.Subject()
		return ok && prev.Author == in.AuthorID && prevSubject == subject
	})
	if err != nil {
		return models.Review{}, err
	}
	review.ID = id

	authorLinks := []mutation{link(fieldReviews, id)}
	if subject.Kind == models.SubjectBand {
		authorLinks = append(authorLinks, link(fieldBandReviews, id))
	}

	err = e.apply(ctx, p,
		step{kind: models.KindUser, id: in.AuthorID, muts: authorLinks},
		step{kind: subject.Collection(), id: subject.ID, muts: []mutation{link(subject.BackReference(), id)}},
	)
	if err != nil {
		return models.Review{}, err
	}
	return review, nil
}

// DeleteReview unlinks the review from its author and subject and deletes it
// last, so an interrupted delete leaves ids pointing at a review that still
// exists. Owners that no longer exist are skipped.
func (e *Engine) DeleteReview(ctx context.Context, reviewID string) (err error) {
	ctx, span := logging.StartSpan(ctx, "social.DeleteReview")
	defer func() { span.End(err) }()

	if err := requireID("review id", reviewID); err != nil {
		return err
	}
	return e.deleteReview(ctx, newProgress("DeleteReview"), reviewID)
}

func (e *Engine) deleteReview(ctx context.Context, p *progress, reviewID string) error {
	doc, err := e.load(ctx, models.KindReview, reviewID)
	if err != nil {
		return err
	}
	var review models.Review
	if err := models.FromDocument(doc, &review); err != nil {
		return err
	}

	var steps []step
	if review.Author != "" {
		steps = append(steps, step{
			kind:      models.KindUser,
			id:        review.Author,
			muts:      []mutation{unlink(fieldReviews, reviewID), unlink(fieldBandReviews, reviewID)},
			missingOK: true,
		})
	}
	if subject, ok := review.Subject(); ok {
		steps = append(steps, step{
			kind:      subject.Collection(),
			id:        subject.ID,
			muts:      []mutation{unlink(subject.BackReference(), reviewID)},
			missingOK: true,
		})
	}
	steps = append(steps, step{kind: models.KindReview, id: reviewID, remove: true, missingOK: true})

	return e.apply(ctx, p, steps...)
}
