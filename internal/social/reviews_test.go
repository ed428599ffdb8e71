package social

import (
	"context"
	"errors"
	"testing"

	"github.com/bandmate/backend/internal/models"
	"github.com/bandmate/backend/internal/store"
)

func ratingOf(v float64) *float64 { return &v }

func TestCreateReviewValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	ana := mustRegister(t, e, "ana")
	ben := mustRegister(t, e, "ben")
	band := mustBand(t, e, "The Rests")

	tests := []struct {
		name string
		in   CreateReviewInput
		want error
	}{
		{
			name: "empty content",
			in:   CreateReviewInput{AuthorID: ana, SubjectID: ben, SubjectKind: models.SubjectUser, Content: "   "},
			want: ErrInvalidInput,
		},
		{
			name: "self review",
			in:   CreateReviewInput{AuthorID: ana, SubjectID: ana, SubjectKind: models.SubjectUser, Content: "great"},
			want: ErrInvalidInput,
		},
		{
			name: "unknown subject kind",
			in:   CreateReviewInput{AuthorID: ana, SubjectID: band, SubjectKind: "venue", Content: "great"},
			want: ErrInvalidInput,
		},
		{
			name: "rating out of range",
			in:   CreateReviewInput{AuthorID: ana, SubjectID: band, SubjectKind: models.SubjectBand, Content: "great", Rating: ratingOf(9)},
			want: ErrInvalidInput,
		},
		{
			name: "missing author",
			in:   CreateReviewInput{AuthorID: "ghost", SubjectID: band, SubjectKind: models.SubjectBand, Content: "great"},
			want: ErrNotFound,
		},
		{
			name: "missing band",
			in:   CreateReviewInput{AuthorID: ana, SubjectID: "ghost", SubjectKind: models.SubjectBand, Content: "great"},
			want: ErrNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := e.CreateReview(ctx, tc.in); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateReviewLinksBothSides(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	ana := mustRegister(t, e, "ana")
	ben := mustRegister(t, e, "ben")
	band := mustBand(t, e, "The Rests")

	artistReview, err := e.CreateReview(ctx, CreateReviewInput{
		AuthorID: ana, SubjectID: ben, SubjectKind: models.SubjectUser,
		Content: "  tight grooves ", Rating: ratingOf(4.5),
	})
	if err != nil {
		t.Fatalf("create artist review: %v", err)
	}
	if artistReview.Content != "tight grooves" || artistReview.Artist != ben || artistReview.Band != "" {
		t.Fatalf("unexpected review: %+v", artistReview)
	}

	bandReview, err := e.CreateReview(ctx, CreateReviewInput{
		AuthorID: ana, SubjectID: band, SubjectKind: models.SubjectBand, Content: "loud",
	})
	if err != nil {
		t.Fatalf("create band review: %v", err)
	}

	author := mustDoc(t, s, models.KindUser, ana)
	if !author.Contains("reviews", artistReview.ID) || !author.Contains("reviews", bandReview.ID) {
		t.Fatalf("expected author to list both reviews, got %v", author.Strings("reviews"))
	}
	if !author.Contains("bandReviews", bandReview.ID) || author.Contains("bandReviews", artistReview.ID) {
		t.Fatalf("unexpected bandReviews: %v", author.Strings("bandReviews"))
	}
	if subject := mustDoc(t, s, models.KindUser, ben); !subject.Contains("artistReviews", artistReview.ID) {
		t.Fatalf("expected artist back-reference, got %v", subject.Strings("artistReviews"))
	}
	if b := mustDoc(t, s, models.KindBand, band); !b.Contains("reviews", bandReview.ID) {
		t.Fatalf("expected band back-reference, got %v", b.Strings("reviews"))
	}

	stored := mustDoc(t, s, models.KindReview, bandReview.ID)
	if stored.String("author") != ana || stored.String("band") != band {
		t.Fatalf("unexpected stored review: %+v", stored)
	}
}

func TestCreateReviewPartialFailureResumesWithID(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	ana := mustRegister(t, e, "ana")
	band := mustBand(t, e, "The Rests")

	s.breakDoc(models.KindBand, band)
	in := CreateReviewInput{AuthorID: ana, SubjectID: band, SubjectKind: models.SubjectBand, Content: "loud"}
	_, err := e.CreateReview(ctx, in)

	var partial *PartialFailureError
	if !errors.As(err, &partial) {
		t.Fatalf("expected partial failure, got %v", err)
	}
	if len(partial.Created) != 1 || partial.Created[0].Kind != models.KindReview {
		t.Fatalf("expected created review to be reported, got %+v", partial.Created)
	}
	if len(partial.Applied) != 2 {
		t.Fatalf("expected create and author steps applied, got %+v", partial.Applied)
	}
	reviewID := partial.Created[0].ID

	s.heal()
	in.ID = reviewID
	review, err := e.CreateReview(ctx, in)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if review.ID != reviewID {
		t.Fatalf("expected resumed review %s, got %s", reviewID, review.ID)
	}

	reviews, err := s.List(ctx, models.KindReview, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reviews) != 1 {
		t.Fatalf("expected a single review document, got %d", len(reviews))
	}
	author := mustDoc(t, s, models.KindUser, ana)
	if count(author.Strings("reviews"), reviewID) != 1 {
		t.Fatalf("expected review once on author, got %v", author.Strings("reviews"))
	}
	if b := mustDoc(t, s, models.KindBand, band); !b.Contains("reviews", reviewID) {
		t.Fatal("expected resumed create to link the band")
	}
}

func TestCreateReviewReusedIDWithDifferentSubjectConflicts(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	ana := mustRegister(t, e, "ana")
	ben := mustRegister(t, e, "ben")
	band := mustBand(t, e, "The Rests")

	first, err := e.CreateReview(ctx, CreateReviewInput{AuthorID: ana, SubjectID: band, SubjectKind: models.SubjectBand, Content: "loud"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err = e.CreateReview(ctx, CreateReviewInput{ID: first.ID, AuthorID: ana, SubjectID: ben, SubjectKind: models.SubjectUser, Content: "nice"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestDeleteReview(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	ana := mustRegister(t, e, "ana")
	ben := mustRegister(t, e, "ben")

	review, err := e.CreateReview(ctx, CreateReviewInput{AuthorID: ana, SubjectID: ben, SubjectKind: models.SubjectUser, Content: "great"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := e.DeleteReview(ctx, review.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := s.Get(ctx, models.KindReview, review.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected review document gone, got %v", err)
	}
	if a := mustDoc(t, s, models.KindUser, ana); a.Contains("reviews", review.ID) {
		t.Fatal("expected review unlinked from author")
	}
	if b := mustDoc(t, s, models.KindUser, ben); b.Contains("artistReviews", review.ID) {
		t.Fatal("expected review unlinked from subject")
	}

	if err := e.DeleteReview(ctx, review.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestDeleteReviewKeepsDocumentUntilUnlinked(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	ana := mustRegister(t, e, "ana")
	band := mustBand(t, e, "The Rests")

	review, err := e.CreateReview(ctx, CreateReviewInput{AuthorID: ana, SubjectID: band, SubjectKind: models.SubjectBand, Content: "loud"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	s.breakDoc(models.KindBand, band)
	err = e.DeleteReview(ctx, review.ID)
	var partial *PartialFailureError
	if !errors.As(err, &partial) {
		t.Fatalf("expected partial failure, got %v", err)
	}
	if _, err := s.Get(ctx, models.KindReview, review.ID); err != nil {
		t.Fatalf("review must survive while still referenced: %v", err)
	}

	s.heal()
	if err := e.DeleteReview(ctx, review.ID); err != nil {
		t.Fatalf("retry delete: %v", err)
	}
	if b := mustDoc(t, s, models.KindBand, band); b.Contains("reviews", review.ID) {
		t.Fatal("expected band unlinked after retry")
	}
	if _, err := s.Get(ctx, models.KindReview, review.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected review deleted after retry, got %v", err)
	}
}

func TestDeleteReviewWithMissingSubject(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	ana := mustRegister(t, e, "ana")
	band := mustBand(t, e, "The Rests")

	review, err := e.CreateReview(ctx, CreateReviewInput{AuthorID: ana, SubjectID: band, SubjectKind: models.SubjectBand, Content: "loud"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.Delete(ctx, models.KindBand, band); err != nil {
		t.Fatalf("remove band directly: %v", err)
	}

	if err := e.DeleteReview(ctx, review.ID); err != nil {
		t.Fatalf("delete with dangling subject: %v", err)
	}
	if a := mustDoc(t, s, models.KindUser, ana); a.Contains("bandReviews", review.ID) {
		t.Fatal("expected author unlinked")
	}
}
