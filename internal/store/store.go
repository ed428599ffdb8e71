// Package store is the only mutation surface over the document collections.
// Every call touches exactly one document and is atomic for that document;
// nothing is atomic across documents.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/bandmate/backend/internal/models"
)

// Reader is the read-only half of Store.
type Reader interface {
	Get(ctx context.Context, kind models.Kind, id string) (models.Document, error)
}

// Store exposes per-document primitives backed by a document database.
type Store interface {
	Reader
	// Create inserts doc. A non-empty doc["id"] is used as the identifier,
	// otherwise one is generated. Returns ErrConflict when the id is taken.
	Create(ctx context.Context, kind models.Kind, doc models.Document) (string, error)
	// Update applies every part of u to one document atomically.
	Update(ctx context.Context, kind models.Kind, id string, u Update) error
	Delete(ctx context.Context, kind models.Kind, id string) error
	// FindIDs returns ids of documents whose field equals value or, for array
	// fields, contains value.
	FindIDs(ctx context.Context, kind models.Kind, field, value string) ([]string, error)
	// List returns up to limit documents of kind; limit <= 0 means no limit.
	List(ctx context.Context, kind models.Kind, limit int) ([]models.Document, error)
}

// ArrayOp adds or removes a single value in an array field.
type ArrayOp struct {
	Field string
	Value string
	// Dedup turns a push into a set-insert.
	Dedup bool
}

// Update describes a single-document mutation.
type Update struct {
	Set   map[string]any
	Unset []string
	Push  []ArrayOp
	Pull  []ArrayOp
}

// IsZero reports whether the update changes nothing.
func (u Update) IsZero() bool {
	return len(u.Set) == 0 && len(u.Unset) == 0 && len(u.Push) == 0 && len(u.Pull) == 0
}

var errFieldConflict = errors.New("field appears in more than one update clause")

// Validate rejects updates that touch the same field from two clauses, which
// document databases refuse to apply in a single statement.
func (u Update) Validate() error {
	seen := make(map[string]string)
	claim := func(field, clause string) error {
		if field == "" || field == models.IDField {
			return fmt.Errorf("invalid update field %q", field)
		}
		if prev, ok := seen[field]; ok && prev != clause {
			return fmt.Errorf("%w: %s (%s, %s)", errFieldConflict, field, prev, clause)
		}
		seen[field] = clause
		return nil
	}
	for field := range u.Set {
		if err := claim(field, "set"); err != nil {
			return err
		}
	}
	for _, field := range u.Unset {
		if err := claim(field, "unset"); err != nil {
			return err
		}
	}
	for _, op := range u.Push {
		if err := claim(op.Field, "push"); err != nil {
			return err
		}
	}
	for _, op := range u.Pull {
		if err := claim(op.Field, "pull"); err != nil {
			return err
		}
	}
	return nil
}

// Apply mutates doc in place. Drivers that cannot express the update natively
// load the document under a lock, call Apply and write it back.
func (u Update) Apply(doc models.Document) error {
	if err := u.Validate(); err != nil {
		return err
	}
	for field, value := range u.Set {
		doc[field] = value
	}
	for _, field := range u.Unset {
		delete(doc, field)
	}
	for _, op := range u.Push {
		values, err := arrayField(doc, op.Field)
		if err != nil {
			return err
		}
		if op.Dedup && contains(values, op.Value) {
			continue
		}
		doc[op.Field] = append(values, op.Value)
	}
	for _, op := range u.Pull {
		values, err := arrayField(doc, op.Field)
		if err != nil {
			return err
		}
		kept := values[:0]
		for _, v := range values {
			if s, ok := v.(string); ok && s == op.Value {
				continue
			}
			kept = append(kept, v)
		}
		doc[op.Field] = kept
	}
	return nil
}

func arrayField(doc models.Document, field string) ([]any, error) {
	switch v := doc[field].(type) {
	case nil:
		return []any{}, nil
	case []any:
		return v, nil
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("field %q is not an array", field)
	}
}

func contains(values []any, value string) bool {
	for _, v := range values {
		if s, ok := v.(string); ok && s == value {
			return true
		}
	}
	return false
}

// matches reports whether doc[field] equals value or contains it.
func matches(doc models.Document, field, value string) bool {
	switch v := doc[field].(type) {
	case string:
		return v == value
	case []any:
		return contains(v, value)
	case []string:
		for _, s := range v {
			if s == value {
				return true
			}
		}
	}
	return false
}
