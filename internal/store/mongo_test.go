package store

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/bandmate/backend/internal/models"
)

func TestBuildUpdate(t *testing.T) {
	update, err := buildUpdate(Update{
		Set:   map[string]any{"username": "ana"},
		Unset: []string{"band"},
		Push: []ArrayOp{
			{Field: "friends", Value: "u2", Dedup: true},
			{Field: "samples", Value: "s1"},
		},
		Pull: []ArrayOp{
			{Field: "friendRequests", Value: "u2"},
			{Field: "friendRequests", Value: "u3"},
		},
	})
	if err != nil {
		t.Fatalf("build update: %v", err)
	}

	set := update["$set"].(bson.M)
	if set["username"] != "ana" {
		t.Fatalf("unexpected $set: %v", set)
	}
	if _, ok := update["$unset"].(bson.M)["band"]; !ok {
		t.Fatalf("expected band in $unset: %v", update["$unset"])
	}

	addToSet := update["$addToSet"].(bson.M)["friends"].(bson.M)["$each"].(bson.A)
	if len(addToSet) != 1 || addToSet[0] != "u2" {
		t.Fatalf("unexpected $addToSet: %v", addToSet)
	}
	push := update["$push"].(bson.M)["samples"].(bson.M)["$each"].(bson.A)
	if len(push) != 1 || push[0] != "s1" {
		t.Fatalf("unexpected $push: %v", push)
	}
	pull := update["$pull"].(bson.M)["friendRequests"].(bson.M)["$in"].(bson.A)
	if len(pull) != 2 {
		t.Fatalf("unexpected $pull: %v", pull)
	}
}

func TestBuildUpdateRejectsConflicts(t *testing.T) {
	cases := []struct {
		name   string
		update Update
	}{
		{"pushAndPull", Update{
			Push: []ArrayOp{{Field: "friends", Value: "a", Dedup: true}},
			Pull: []ArrayOp{{Field: "friends", Value: "b"}},
		}},
		{"mixedDedup", Update{
			Push: []ArrayOp{{Field: "friends", Value: "a", Dedup: true}, {Field: "friends", Value: "b"}},
		}},
		{"idField", Update{Set: map[string]any{"id": "x"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := buildUpdate(tc.update); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestBSONRoundTrip(t *testing.T) {
	body := toBSON(models.Document{"id": "u1", "friends": []any{"u2"}})
	if body["_id"] != "u1" {
		t.Fatalf("expected _id mapping, got %v", body)
	}
	if _, ok := body["id"]; ok {
		t.Fatal("expected id to be stored only as _id")
	}

	doc := fromBSON(bson.M{
		"_id":     "u1",
		"friends": bson.A{"u2", "u3"},
		"profile": bson.D{{Key: "country", Value: "PT"}},
	})
	if doc.ID() != "u1" {
		t.Fatalf("expected id mapping, got %v", doc)
	}
	if got := doc.Strings("friends"); len(got) != 2 || got[1] != "u3" {
		t.Fatalf("unexpected friends: %v", got)
	}
	if nested, ok := doc["profile"].(map[string]any); !ok || nested["country"] != "PT" {
		t.Fatalf("expected nested document normalised to a map, got %#v", doc["profile"])
	}
}

func TestIndexModelsCoverReferenceFields(t *testing.T) {
	idx := indexModels()

	names := func(kind models.Kind) map[string]bool {
		out := make(map[string]bool)
		for _, m := range idx[kind] {
			keys := m.Keys.(bson.D)
			out[keys[0].Key] = true
		}
		return out
	}

	users := names(models.KindUser)
	for _, field := range []string{"friends", "friendRequests", "band", "email"} {
		if !users[field] {
			t.Fatalf("expected users index on %s, got %v", field, users)
		}
	}
	if !names(models.KindReview)["artist"] || !names(models.KindSample)["artist"] {
		t.Fatal("expected artist indexes on reviews and samples")
	}
}

func TestEmptyUpdateFallsBackToExistenceCheck(t *testing.T) {
	var empty Update
	if !empty.IsZero() {
		t.Fatal("expected zero update")
	}
	update, err := buildUpdate(empty)
	if err != nil {
		t.Fatalf("build update: %v", err)
	}
	if len(update) != 0 {
		t.Fatalf("expected no operators for an empty update, got %v", update)
	}

	pull := Update{Pull: []ArrayOp{{Field: "friends", Value: "u1"}}}
	if pull.IsZero() {
		t.Fatal("a pull is not a zero update")
	}
}
