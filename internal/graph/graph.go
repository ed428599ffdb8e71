// Package graph declares which document fields reference other documents and
// how those references may be mutated.
package graph

import (
	"sort"

	"github.com/bandmate/backend/internal/models"
)

// Cardinality describes how many ids a reference field holds.
type Cardinality int

const (
	// One fields hold a single id or are absent.
	One Cardinality = iota
	// Many fields hold an array of ids.
	Many
)

func (c Cardinality) String() string {
	if c == Many {
		return "many"
	}
	return "one"
}

// Field describes a single reference field.
type Field struct {
	Owner       models.Kind
	Name        string
	Target      models.Kind
	Cardinality Cardinality
	// Unique forbids the same id appearing twice in a Many field.
	Unique bool
	// Cascade marks the owning document as meaningless without its target:
	// deleting the target deletes the owner instead of detaching the id.
	Cascade bool
}

// entity holds the metadata for one document kind.
type entity struct {
	fields  map[string]Field
	private []string
}

var schema = map[models.Kind]entity{
	models.KindUser: {
		fields: fields(models.KindUser,
			Field{Name: "friends", Target: models.KindUser, Cardinality: Many, Unique: true},
			Field{Name: "friendRequests", Target: models.KindUser, Cardinality: Many, Unique: true},
			Field{Name: "samples", Target: models.KindSample, Cardinality: Many, Unique: true},
			Field{Name: "reviews", Target: models.KindReview, Cardinality: Many, Unique: true},
			Field{Name: "bandReviews", Target: models.KindReview, Cardinality: Many, Unique: true},
			Field{Name: "artistReviews", Target: models.KindReview, Cardinality: Many, Unique: true},
			Field{Name: "band", Target: models.KindBand, Cardinality: One},
		),
		private: []string{"password"},
	},
	models.KindBand: {
		fields: fields(models.KindBand,
			Field{Name: "members", Target: models.KindUser, Cardinality: Many, Unique: true},
			Field{Name: "reviews", Target: models.KindReview, Cardinality: Many, Unique: true},
		),
	},
	models.KindReview: {
		fields: fields(models.KindReview,
			Field{Name: "author", Target: models.KindUser, Cardinality: One, Cascade: true},
			Field{Name: "band", Target: models.KindBand, Cardinality: One, Cascade: true},
			Field{Name: "artist", Target: models.KindUser, Cardinality: One, Cascade: true},
		),
	},
	models.KindSample: {
		fields: fields(models.KindSample,
			Field{Name: "artist", Target: models.KindUser, Cardinality: One, Cascade: true},
		),
	},
}

func fields(owner models.Kind, defs ...Field) map[string]Field {
	out := make(map[string]Field, len(defs))
	for _, f := range defs {
		f.Owner = owner
		out[f.Name] = f
	}
	return out
}

// Lookup returns the reference metadata for kind.field.
func Lookup(kind models.Kind, field string) (Field, bool) {
	f, ok := schema[kind].fields[field]
	return f, ok
}

// Fields returns every reference field declared on kind, ordered by name.
func Fields(kind models.Kind) []Field {
	out := make([]Field, 0, len(schema[kind].fields))
	for _, f := range schema[kind].fields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ManyFields returns the names of the array-valued reference fields on kind.
func ManyFields(kind models.Kind) []string {
	var out []string
	for _, f := range Fields(kind) {
		if f.Cardinality == Many {
			out = append(out, f.Name)
		}
	}
	return out
}

// ReferencesTo returns every field, on any kind, that may hold an id of target.
func ReferencesTo(target models.Kind) []Field {
	var out []Field
	for _, kind := range models.Kinds {
		for _, f := range Fields(kind) {
			if f.Target == target {
				out = append(out, f)
			}
		}
	}
	return out
}

// Private returns fields of kind that must never be presented to callers.
func Private(kind models.Kind) []string {
	return schema[kind].private
}
