package store

import (
	"context"
	"sync"
	"time"

	"github.com/bandmate/backend/internal/models"
)

type cacheKey struct {
	kind models.Kind
	id   string
}

type cacheEntry struct {
	doc     models.Document
	expires time.Time
}

// CachingReader wraps a Reader with a TTL-based in-memory cache. Misses,
// including ErrNotFound, are never cached. A fetch that overlaps an
// Invalidate of the same key is returned but not stored.
type CachingReader struct {
	base Reader
	ttl  time.Duration
	now  func() time.Time

	mu    sync.RWMutex
	items map[cacheKey]cacheEntry
	// gens counts invalidations per key.
	gens map[cacheKey]uint64
}

// NewCachingReader returns a Reader that caches documents for the provided TTL.
func NewCachingReader(base Reader, ttl time.Duration) *CachingReader {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingReader{
		base:  base,
		ttl:   ttl,
		now:   time.Now,
		items: make(map[cacheKey]cacheEntry),
		gens:  make(map[cacheKey]uint64),
	}
}

// Get returns the cached document when fresh, otherwise it delegates to the
// underlying reader and stores the result.
func (c *CachingReader) Get(ctx context.Context, kind models.Kind, id string) (models.Document, error) {
	key := cacheKey{kind: kind, id: id}
	now := c.now()

	c.mu.RLock()
	entry, ok := c.items[key]
	gen := c.gens[key]
	c.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.doc.Clone(), nil
	}

	doc, err := c.base.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gens[key] == gen {
		c.items[key] = cacheEntry{doc: doc.Clone(), expires: now.Add(c.ttl)}
	}
	c.mu.Unlock()

	return doc, nil
}

// Invalidate drops any cached copy of the document.
func (c *CachingReader) Invalidate(kind models.Kind, id string) {
	key := cacheKey{kind: kind, id: id}
	c.mu.Lock()
	delete(c.items, key)
	c.gens[key]++
	c.mu.Unlock()
}

// invalidatingStore evicts cached documents whenever they are written.
type invalidatingStore struct {
	Store
	cache *CachingReader
}

// WithInvalidation returns a Store that evicts entries from cache on every
// update or delete made through it.
func WithInvalidation(base Store, cache *CachingReader) Store {
	if cache == nil {
		return base
	}
	return &invalidatingStore{Store: base, cache: cache}
}

func (s *invalidatingStore) Update(ctx context.Context, kind models.Kind, id string, u Update) error {
	defer s.cache.Invalidate(kind, id)
	return s.Store.Update(ctx, kind, id, u)
}

func (s *invalidatingStore) Delete(ctx context.Context, kind models.Kind, id string) error {
	defer s.cache.Invalidate(kind, id)
	return s.Store.Delete(ctx, kind, id)
}
