package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bandmate/backend/internal/models"
)

func TestMemoryStoreCreateGetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	id, err := s.Create(ctx, models.KindUser, models.Document{"username": "ana"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" {
		t.Fatal("expected generated id")
	}

	doc, err := s.Get(ctx, models.KindUser, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if doc.ID() != id || doc.String("username") != "ana" {
		t.Fatalf("unexpected document: %+v", doc)
	}

	doc["username"] = "mutated"
	again, _ := s.Get(ctx, models.KindUser, id)
	if again.String("username") != "ana" {
		t.Fatal("expected stored document to be isolated from caller mutation")
	}

	if _, err := s.Create(ctx, models.KindUser, models.Document{"id": id}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate id, got %v", err)
	}

	if err := s.Delete(ctx, models.KindUser, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, models.KindUser, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, models.KindUser, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestMemoryStoreUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id, err := s.Create(ctx, models.KindUser, models.Document{"id": "u1", "friends": []any{}, "band": "b1"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = s.Update(ctx, models.KindUser, id, Update{
		Set:   map[string]any{"username": "ana"},
		Unset: []string{"band"},
		Push: []ArrayOp{
			{Field: "friends", Value: "u2", Dedup: true},
			{Field: "friends", Value: "u2", Dedup: true},
			{Field: "samples", Value: "s1"},
		},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	doc, _ := s.Get(ctx, models.KindUser, id)
	if got := doc.Strings("friends"); len(got) != 1 || got[0] != "u2" {
		t.Fatalf("expected single friend entry, got %v", got)
	}
	if got := doc.Strings("samples"); len(got) != 1 {
		t.Fatalf("expected push onto missing array to create it, got %v", got)
	}
	if _, ok := doc["band"]; ok {
		t.Fatal("expected band to be unset")
	}
	if doc.String("username") != "ana" {
		t.Fatalf("expected username set, got %q", doc.String("username"))
	}

	if err := s.Update(ctx, models.KindUser, id, Update{Pull: []ArrayOp{{Field: "friends", Value: "absent"}}}); err != nil {
		t.Fatalf("pull of absent value should be a no-op, got %v", err)
	}
	if err := s.Update(ctx, models.KindUser, id, Update{Pull: []ArrayOp{{Field: "friends", Value: "u2"}}}); err != nil {
		t.Fatalf("pull: %v", err)
	}
	doc, _ = s.Get(ctx, models.KindUser, id)
	if len(doc.Strings("friends")) != 0 {
		t.Fatalf("expected friends emptied, got %v", doc.Strings("friends"))
	}

	if err := s.Update(ctx, models.KindUser, "missing", Update{Set: map[string]any{"a": 1}}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing document, got %v", err)
	}

	conflicting := Update{
		Push: []ArrayOp{{Field: "friends", Value: "u3", Dedup: true}},
		Pull: []ArrayOp{{Field: "friends", Value: "u4"}},
	}
	if err := s.Update(ctx, models.KindUser, id, conflicting); err == nil {
		t.Fatal("expected error for field touched by push and pull")
	}
}

func TestMemoryStoreConcurrentSetInsert(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	id, _ := s.Create(ctx, models.KindUser, models.Document{"friendRequests": []any{}})

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Update(ctx, models.KindUser, id, Update{Push: []ArrayOp{{Field: "friendRequests", Value: "u2", Dedup: true}}})
		}()
	}
	wg.Wait()

	doc, _ := s.Get(ctx, models.KindUser, id)
	if got := doc.Strings("friendRequests"); len(got) != 1 {
		t.Fatalf("expected exactly one entry, got %v", got)
	}
}

func TestMemoryStoreFindIDsAndList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	for _, doc := range []models.Document{
		{"id": "a", "friends": []any{"x"}, "band": "b1"},
		{"id": "b", "friends": []any{"y"}},
		{"id": "c", "friends": []any{"x", "y"}, "band": "b1"},
	} {
		if _, err := s.Create(ctx, models.KindUser, doc); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	ids, err := s.FindIDs(ctx, models.KindUser, "friends", "x")
	if err != nil {
		t.Fatalf("find ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "c" {
		t.Fatalf("unexpected array matches: %v", ids)
	}

	ids, _ = s.FindIDs(ctx, models.KindUser, "band", "b1")
	if len(ids) != 2 {
		t.Fatalf("unexpected scalar matches: %v", ids)
	}

	docs, err := s.List(ctx, models.KindUser, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 || docs[0].ID() != "a" || docs[1].ID() != "b" {
		t.Fatalf("unexpected list: %+v", docs)
	}
}
