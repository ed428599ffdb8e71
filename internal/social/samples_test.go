package social

import (
	"context"
	"errors"
	"testing"

	"github.com/bandmate/backend/internal/models"
	"github.com/bandmate/backend/internal/store"
)

func TestAddSample(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	ana := mustRegister(t, e, "ana")

	sample, err := e.AddSample(ctx, AddSampleInput{ArtistID: ana, Audio: "https://cdn.example.com/take1.mp3", Name: "Take 1"})
	if err != nil {
		t.Fatalf("add sample: %v", err)
	}
	if sample.ID == "" || sample.Artist != ana || !sample.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected sample: %+v", sample)
	}

	artist := mustDoc(t, s, models.KindUser, ana)
	if !artist.Contains("samples", sample.ID) {
		t.Fatalf("expected sample linked to artist, got %v", artist.Strings("samples"))
	}
	doc := mustDoc(t, s, models.KindSample, sample.ID)
	if doc.String("name") != "Take 1" || doc.String("audio") != "https://cdn.example.com/take1.mp3" {
		t.Fatalf("unexpected stored sample: %+v", doc)
	}
}

func TestAddSampleValidation(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()
	ana := mustRegister(t, e, "ana")

	if _, err := e.AddSample(ctx, AddSampleInput{ArtistID: ana, Name: "Take 1"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected invalid input for missing audio, got %v", err)
	}
	if _, err := e.AddSample(ctx, AddSampleInput{ArtistID: "ghost", Audio: "a.mp3"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for unknown artist, got %v", err)
	}
}

func TestAddSampleRetryWithCreatedID(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	ana := mustRegister(t, e, "ana")

	s.breakDoc(models.KindUser, ana)
	in := AddSampleInput{ArtistID: ana, Audio: "a.mp3", Name: "Take 1"}
	_, err := e.AddSample(ctx, in)
	var partial *PartialFailureError
	if !errors.As(err, &partial) {
		t.Fatalf("expected partial failure, got %v", err)
	}

	s.heal()
	in.ID = partial.Created[0].ID
	sample, err := e.AddSample(ctx, in)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if sample.ID != in.ID {
		t.Fatalf("expected reused id %s, got %s", in.ID, sample.ID)
	}
	docs, _ := s.List(ctx, models.KindSample, 0)
	if len(docs) != 1 {
		t.Fatalf("expected one sample document, got %d", len(docs))
	}
}

func TestDeleteSample(t *testing.T) {
	e, s := newTestEngine(t)
	ctx := context.Background()
	ana := mustRegister(t, e, "ana")

	sample, err := e.AddSample(ctx, AddSampleInput{ArtistID: ana, Audio: "a.mp3", Name: "Take 1"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := e.DeleteSample(ctx, sample.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if a := mustDoc(t, s, models.KindUser, ana); a.Contains("samples", sample.ID) {
		t.Fatal("expected sample unlinked")
	}
	if _, err := s.Get(ctx, models.KindSample, sample.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected sample deleted, got %v", err)
	}
}
