package models

import (
	"testing"
	"time"
)

func TestDocumentAccessors(t *testing.T) {
	doc := Document{
		"id":      "u1",
		"band":    "b1",
		"friends": []any{"u2", 7, "u3"},
		"samples": []string{"s1"},
	}

	if doc.ID() != "u1" || doc.String("band") != "b1" {
		t.Fatalf("unexpected scalar fields: %+v", doc)
	}
	if got := doc.Strings("friends"); len(got) != 2 || got[1] != "u3" {
		t.Fatalf("expected non-string members skipped, got %v", got)
	}
	if !doc.Contains("samples", "s1") || doc.Contains("samples", "s2") {
		t.Fatal("unexpected Contains result for []string field")
	}
	if doc.String("missing") != "" || doc.Strings("missing") != nil {
		t.Fatal("missing fields should read as zero values")
	}
	var nilDoc Document
	if nilDoc.ID() != "" || nilDoc.Clone() != nil {
		t.Fatal("nil document should be safe to read")
	}
}

func TestDocumentCloneIsDeep(t *testing.T) {
	doc := Document{
		"friends": []any{"u2"},
		"nested":  map[string]any{"tags": []string{"a"}},
	}
	clone := doc.Clone()

	clone["friends"] = append(clone["friends"].([]any), "u3")
	clone["nested"].(map[string]any)["tags"].([]any)[0] = "z"

	if len(doc.Strings("friends")) != 1 {
		t.Fatal("clone shares array with original")
	}
	if doc["nested"].(map[string]any)["tags"].([]string)[0] != "a" {
		t.Fatal("clone shares nested array with original")
	}
}

func TestDocumentConversion(t *testing.T) {
	rating := 4.0
	review := Review{ID: "r1", Content: "loud", Rating: &rating, Author: "u1", Band: "b1"}

	doc, err := ToDocument(review)
	if err != nil {
		t.Fatalf("to document: %v", err)
	}
	if doc.String("author") != "u1" || doc.String("band") != "b1" {
		t.Fatalf("unexpected document: %+v", doc)
	}
	if _, ok := doc["artist"]; ok {
		t.Fatal("empty subject reference should be omitted")
	}

	var back Review
	if err := FromDocument(doc, &back); err != nil {
		t.Fatalf("from document: %v", err)
	}
	subject, ok := back.Subject()
	if !ok || subject.Kind != SubjectBand || subject.ID != "b1" {
		t.Fatalf("unexpected subject: %+v", subject)
	}
	if subject.Collection() != KindBand || subject.BackReference() != "reviews" {
		t.Fatal("band subject must map to bands.reviews")
	}

	user := User{ID: "u1", CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
	udoc, err := ToDocument(user)
	if err != nil {
		t.Fatalf("to document: %v", err)
	}
	var u User
	if err := FromDocument(udoc, &u); err != nil {
		t.Fatalf("from document: %v", err)
	}
	if !u.CreatedAt.Equal(user.CreatedAt) {
		t.Fatalf("timestamp lost: %v", u.CreatedAt)
	}
}

func TestReviewSubject(t *testing.T) {
	if _, ok := (Review{}).Subject(); ok {
		t.Fatal("review without references has no subject")
	}
	s, ok := Review{Artist: "u2"}.Subject()
	if !ok || s.Kind != SubjectUser || s.Collection() != KindUser || s.BackReference() != "artistReviews" {
		t.Fatalf("unexpected artist subject: %+v", s)
	}
	if !KindReview.Valid() || Kind("venues").Valid() {
		t.Fatal("unexpected kind validity")
	}
}
