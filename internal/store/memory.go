package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/bandmate/backend/internal/models"
)

// MemoryStore implements Store with in-process maps for tests and local development.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[models.Kind]map[string]models.Document
}

// NewMemoryStore returns an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[models.Kind]map[string]models.Document)}
}

// Get returns a copy of the stored document.
func (s *MemoryStore) Get(_ context.Context, kind models.Kind, id string) (models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[kind][id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone(), nil
}

// Create stores a copy of doc.
func (s *MemoryStore) Create(_ context.Context, kind models.Kind, doc models.Document) (string, error) {
	stored := doc.Clone()
	if stored == nil {
		stored = models.Document{}
	}
	id := stored.ID()
	if id == "" {
		id = uuid.NewString()
		stored[models.IDField] = id
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.docs[kind]
	if !ok {
		coll = make(map[string]models.Document)
		s.docs[kind] = coll
	}
	if _, exists := coll[id]; exists {
		return "", ErrConflict
	}
	coll[id] = stored
	return id, nil
}

// Update applies u to the document under the store lock.
func (s *MemoryStore) Update(_ context.Context, kind models.Kind, id string, u Update) error {
	if err := u.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[kind][id]
	if !ok {
		return ErrNotFound
	}
	next := doc.Clone()
	if err := u.Apply(next); err != nil {
		return fmt.Errorf("apply update to %s/%s: %w", kind, id, err)
	}
	s.docs[kind][id] = next
	return nil
}

// Delete removes the document.
func (s *MemoryStore) Delete(_ context.Context, kind models.Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[kind][id]; !ok {
		return ErrNotFound
	}
	delete(s.docs[kind], id)
	return nil
}

// FindIDs scans the collection for documents referencing value through field.
func (s *MemoryStore) FindIDs(_ context.Context, kind models.Kind, field, value string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, doc := range s.docs[kind] {
		if matches(doc, field, value) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// List returns documents ordered by id.
func (s *MemoryStore) List(_ context.Context, kind models.Kind, limit int) ([]models.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.docs[kind]))
	for id := range s.docs[kind] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	out := make([]models.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.docs[kind][id].Clone())
	}
	return out, nil
}

var _ Store = (*MemoryStore)(nil)
