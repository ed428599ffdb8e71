// Package social applies relationship intents (friendships, reviews, samples,
// band membership) as ordered sequences of single-document updates. No step
// is rolled back: every sequence is ordered so that stopping part way leaves
// state that re-running the same intent repairs.
package social

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/bandmate/backend/internal/graph"
	"github.com/bandmate/backend/internal/logging"
	"github.com/bandmate/backend/internal/models"
	"github.com/bandmate/backend/internal/store"
)

// Engine is stateless between calls; it is safe for concurrent use.
type Engine struct {
	store        store.Store
	now          func() time.Time
	passwordCost int
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithPasswordCost sets the bcrypt cost used by RegisterUser.
func WithPasswordCost(cost int) Option {
	return func(e *Engine) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			e.passwordCost = cost
		}
	}
}

// New constructs an Engine over s.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:        s,
		now:          time.Now,
		passwordCost: bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// mutation links or unlinks value in a reference field. How it is applied
// depends on the field's declared cardinality.
type mutation struct {
	field string
	value string
	link  bool
}

func link(field, value string) mutation {
	return mutation{field: field, value: value, link: true}
}

func unlink(field, value string) mutation {
	return mutation{field: field, value: value}
}

// step is one single-document write.
type step struct {
	kind models.Kind
	id   string
	muts []mutation
	// set carries plain field assignments, applied in the same update.
	set map[string]any
	// remove deletes the document instead of updating it.
	remove bool
	// missingOK treats a missing document as already satisfied.
	missingOK bool
}

func (s step) ref() StepRef {
	action := ActionUpdate
	if s.remove {
		action = ActionDelete
	}
	return StepRef{Kind: s.kind, ID: s.id, Action: action}
}

// planUpdate translates reference mutations into a store update using the
// field metadata: single fields are set or unset, array fields get a
// set-insert (or append when duplicates are allowed) or a set-remove.
func planUpdate(kind models.Kind, muts []mutation, set map[string]any) (store.Update, error) {
	var u store.Update
	for field, value := range set {
		if u.Set == nil {
			u.Set = make(map[string]any, len(set))
		}
		u.Set[field] = value
	}
	for _, m := range muts {
		f, ok := graph.Lookup(kind, m.field)
		if !ok {
			return store.Update{}, fmt.Errorf("%s.%s is not a reference field", kind, m.field)
		}
		switch {
		case f.Cardinality == graph.One && m.link:
			if u.Set == nil {
				u.Set = make(map[string]any)
			}
			u.Set[m.field] = m.value
		case f.Cardinality == graph.One:
			u.Unset = append(u.Unset, m.field)
		case m.link:
			u.Push = append(u.Push, store.ArrayOp{Field: m.field, Value: m.value, Dedup: f.Unique})
		default:
			u.Pull = append(u.Pull, store.ArrayOp{Field: m.field, Value: m.value})
		}
	}
	return u, u.Validate()
}

// progress records what an operation has written so far.
type progress struct {
	op      string
	applied []StepRef
	created []DocRef
}

func newProgress(op string) *progress {
	return &progress{op: op}
}

// fail converts a step error into the error returned to the caller. Nothing
// applied yet means the operation had no effect and the plain error is
// returned; otherwise the caller receives a PartialFailureError.
func (p *progress) fail(ctx context.Context, failed StepRef, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		err = fmt.Errorf("%w: %s/%s: %w", ErrNotFound, failed.Kind, failed.ID, err)
	case errors.Is(err, store.ErrConflict):
		err = fmt.Errorf("%w: %s/%s: %w", ErrConflict, failed.Kind, failed.ID, err)
	}
	if len(p.applied) == 0 {
		return err
	}
	applied := make([]StepRef, len(p.applied))
	copy(applied, p.applied)
	created := make([]DocRef, len(p.created))
	copy(created, p.created)

	logging.FromContext(ctx).Error("operation partially applied",
		slog.String("operation", p.op),
		slog.String("failed_step", failed.String()),
		slog.Any("applied_steps", applied),
	)
	return &PartialFailureError{
		Operation: p.op,
		Failed:    failed,
		Applied:   applied,
		Created:   created,
		Err:       err,
	}
}

// create inserts doc as the operation's next step. When doc carries a
// caller-chosen id that is already taken, same decides whether the existing
// document is the one an earlier attempt created; if so it is reused.
func (e *Engine) create(ctx context.Context, p *progress, kind models.Kind, doc models.Document, same func(existing models.Document) bool) (string, error) {
	ref := StepRef{Kind: kind, ID: doc.ID(), Action: ActionCreate}
	id, err := e.store.Create(ctx, kind, doc)
	if err != nil {
		if !errors.Is(err, store.ErrConflict) || ref.ID == "" || same == nil {
			return "", p.fail(ctx, ref, fmt.Errorf("create %s: %w", kind, err))
		}
		existing, lerr := e.load(ctx, kind, ref.ID)
		if lerr != nil {
			return "", p.fail(ctx, ref, lerr)
		}
		if !same(existing) {
			return "", conflictf("%s/%s already exists with different references", kind, ref.ID)
		}
		logging.FromContext(ctx).Info("reusing document from earlier attempt", slog.String("kind", string(kind)), slog.String("id", ref.ID))
		p.created = append(p.created, DocRef{Kind: kind, ID: ref.ID})
		return ref.ID, nil
	}
	ref.ID = id
	p.applied = append(p.applied, ref)
	p.created = append(p.created, DocRef{Kind: kind, ID: id})
	logging.FromContext(ctx).Debug("step applied", slog.String("step", ActionCreate), slog.String("kind", string(kind)), slog.String("id", id))
	return id, nil
}

// apply runs steps in order and stops at the first failure.
func (e *Engine) apply(ctx context.Context, p *progress, steps ...step) error {
	logger := logging.FromContext(ctx)
	for _, s := range steps {
		ref := s.ref()
		var err error
		if s.remove {
			err = e.store.Delete(ctx, s.kind, s.id)
		} else {
			var u store.Update
			u, err = planUpdate(s.kind, s.muts, s.set)
			if err != nil {
				return p.fail(ctx, ref, err)
			}
			err = e.store.Update(ctx, s.kind, s.id, u)
		}

		if err != nil {
			if s.missingOK && errors.Is(err, store.ErrNotFound) {
				logger.Debug("step skipped, document missing", slog.String("step", ref.Action), slog.String("kind", string(s.kind)), slog.String("id", s.id))
				continue
			}
			return p.fail(ctx, ref, err)
		}
		p.applied = append(p.applied, ref)
		logger.Debug("step applied", slog.String("step", ref.Action), slog.String("kind", string(s.kind)), slog.String("id", s.id))
	}
	return nil
}

// load fetches a document, mapping a store miss to ErrNotFound.
func (e *Engine) load(ctx context.Context, kind models.Kind, id string) (models.Document, error) {
	doc, err := e.store.Get(ctx, kind, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFound(kind, id)
		}
		return nil, fmt.Errorf("load %s/%s: %w", kind, id, err)
	}
	return doc, nil
}

// exists reports whether kind/id resolves, returning ErrNotFound otherwise.
func (e *Engine) exists(ctx context.Context, kind models.Kind, id string) error {
	_, err := e.load(ctx, kind, id)
	return err
}

// newDocument converts v to a document with every array reference field
// present and empty when unset, so array operators never meet a null.
func newDocument(kind models.Kind, v any) (models.Document, error) {
	doc, err := models.ToDocument(v)
	if err != nil {
		return nil, err
	}
	for _, field := range graph.ManyFields(kind) {
		if doc[field] == nil {
			doc[field] = []any{}
		}
	}
	for field, value := range doc {
		if s, ok := value.(string); ok && s == "" && field != models.IDField {
			if _, isRef := graph.Lookup(kind, field); isRef {
				delete(doc, field)
			}
		}
	}
	return doc, nil
}

func requireID(name, id string) error {
	if strings.TrimSpace(id) == "" {
		return invalidf("%s is required", name)
	}
	return nil
}
