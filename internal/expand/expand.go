// Package expand resolves reference ids into the documents they point at for
// presentation. It never writes, and ids whose target no longer exists are
// dropped from the result instead of failing the read.
package expand

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bandmate/backend/internal/graph"
	"github.com/bandmate/backend/internal/logging"
	"github.com/bandmate/backend/internal/models"
	"github.com/bandmate/backend/internal/store"
)

var (
	// ErrInvalidPath is returned for paths that name unknown fields or nest too deeply.
	ErrInvalidPath = errors.New("invalid expansion path")
	// ErrNotFound is returned when the root document does not exist.
	ErrNotFound = errors.New("not found")
)

// MaxDepth is the number of reference hops a path may take.
const MaxDepth = 2

const defaultConcurrency = 8

// ProfilePaths is the expansion used when presenting a user profile.
var ProfilePaths = []string{
	"band",
	"bandReviews.band",
	"reviews.artist",
	"artistReviews.author",
	"samples",
	"friends",
}

// Expander resolves references through a read-only store view.
type Expander struct {
	reader      store.Reader
	concurrency int
}

// New constructs an Expander. concurrency bounds parallel reads per array
// field; values <= 0 use the default.
func New(reader store.Reader, concurrency int) *Expander {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Expander{reader: reader, concurrency: concurrency}
}

// node is one level of the requested expansion tree.
type node map[string]node

// parse validates dot separated paths against the reference graph, starting at kind.
func parse(kind models.Kind, paths []string) (node, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrInvalidPath, kind)
	}
	root := node{}
	for _, raw := range paths {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		segments := strings.Split(raw, ".")
		if len(segments) > MaxDepth {
			return nil, fmt.Errorf("%w: %q nests deeper than %d levels", ErrInvalidPath, raw, MaxDepth)
		}

		current, owner := root, kind
		for _, seg := range segments {
			f, ok := graph.Lookup(owner, seg)
			if !ok {
				return nil, fmt.Errorf("%w: %s has no reference field %q", ErrInvalidPath, owner, seg)
			}
			next, ok := current[seg]
			if !ok {
				next = node{}
				current[seg] = next
			}
			current, owner = next, f.Target
		}
	}
	return root, nil
}

// ParsePaths splits a comma separated list of expansion paths.
func ParsePaths(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Expand loads kind/id and replaces each field named in paths with the
// referenced document (single fields) or documents (array fields). Private
// fields are removed at every level.
func (e *Expander) Expand(ctx context.Context, kind models.Kind, id string, paths ...string) (models.Document, error) {
	tree, err := parse(kind, paths)
	if err != nil {
		return nil, err
	}

	doc, err := e.reader.Get(ctx, kind, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, kind, id)
		}
		return nil, fmt.Errorf("load %s/%s: %w", kind, id, err)
	}

	out := redact(kind, doc)
	if err := e.expandFields(ctx, kind, out, tree); err != nil {
		return nil, err
	}
	return out, nil
}

// ExpandList resolves a single array field of kind/id and returns the
// referenced documents in stored order.
func (e *Expander) ExpandList(ctx context.Context, kind models.Kind, id, field string, nested ...string) ([]models.Document, error) {
	paths := []string{field}
	for _, n := range nested {
		paths = append(paths, field+"."+n)
	}
	doc, err := e.Expand(ctx, kind, id, paths...)
	if err != nil {
		return nil, err
	}
	items, _ := doc[field].([]models.Document)
	if items == nil {
		items = []models.Document{}
	}
	return items, nil
}

func (e *Expander) expandFields(ctx context.Context, kind models.Kind, doc models.Document, tree node) error {
	fields := make([]string, 0, len(tree))
	for name := range tree {
		fields = append(fields, name)
	}
	sort.Strings(fields)

	for _, name := range fields {
		f, _ := graph.Lookup(kind, name)
		children := tree[name]

		if f.Cardinality == graph.One {
			ref := doc.String(name)
			if ref == "" {
				delete(doc, name)
				continue
			}
			resolved, ok, err := e.resolve(ctx, f.Target, ref, children)
			if err != nil {
				return err
			}
			if !ok {
				delete(doc, name)
				continue
			}
			doc[name] = resolved
			continue
		}

		items, err := e.resolveMany(ctx, f.Target, doc.Strings(name), children)
		if err != nil {
			return err
		}
		doc[name] = items
	}
	return nil
}

// resolveMany fetches ids in parallel and returns the documents that exist,
// preserving the order of ids.
func (e *Expander) resolveMany(ctx context.Context, kind models.Kind, ids []string, children node) ([]models.Document, error) {
	slots := make([]models.Document, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			doc, ok, err := e.resolve(gctx, kind, id, children)
			if err != nil {
				return err
			}
			if ok {
				slots[i] = doc
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]models.Document, 0, len(ids))
	for _, doc := range slots {
		if doc != nil {
			out = append(out, doc)
		}
	}
	return out, nil
}

// resolve loads one referenced document. ok is false for a dangling id.
func (e *Expander) resolve(ctx context.Context, kind models.Kind, id string, children node) (models.Document, bool, error) {
	doc, err := e.reader.Get(ctx, kind, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			logging.FromContext(ctx).Debug("dropping dangling reference",
				slog.String("kind", string(kind)),
				slog.String("id", id),
			)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("resolve %s/%s: %w", kind, id, err)
	}

	out := redact(kind, doc)
	if len(children) > 0 {
		if err := e.expandFields(ctx, kind, out, children); err != nil {
			return nil, false, err
		}
	}
	return out, true, nil
}

func redact(kind models.Kind, doc models.Document) models.Document {
	out := doc.Clone()
	for _, field := range graph.Private(kind) {
		delete(out, field)
	}
	return out
}
