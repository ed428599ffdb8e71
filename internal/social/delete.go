package social

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bandmate/backend/internal/graph"
	"github.com/bandmate/backend/internal/logging"
	"github.com/bandmate/backend/internal/models"
)

type docKey struct {
	kind models.Kind
	id   string
}

// purge removes every reference to kind/id and then deletes the document.
// Documents that cannot exist without it (reviews by or about a user, samples
// of an artist, reviews of a band) are deleted through their own unlink
// sequences first. Remaining references are detached, and the document
// itself goes last so an interrupted purge can be re-run.
//
// Single-valued references are cleared with an unconditional unset, so a
// concurrent write that repoints the field between the search and the unset
// is lost.
func (e *Engine) purge(ctx context.Context, p *progress, kind models.Kind, id string) error {
	var (
		dependents []docKey
		detach     []step
		seen       = make(map[docKey]bool)
	)
	for _, f := range graph.ReferencesTo(kind) {
		owners, err := e.store.FindIDs(ctx, f.Owner, f.Name, id)
		if err != nil {
			return p.fail(ctx, StepRef{Kind: f.Owner, Action: ActionUpdate}, fmt.Errorf("find %s.%s referencing %s/%s: %w", f.Owner, f.Name, kind, id, err))
		}
		for _, owner := range owners {
			key := docKey{kind: f.Owner, id: owner}
			if key == (docKey{kind: kind, id: id}) {
				continue
			}
			if f.Cascade {
				if !seen[key] {
					seen[key] = true
					dependents = append(dependents, key)
				}
				continue
			}
			detach = append(detach, step{
				kind:      f.Owner,
				id:        owner,
				muts:      []mutation{unlink(f.Name, id)},
				missingOK: true,
			})
		}
	}

	logging.FromContext(ctx).Debug("purge planned",
		slog.String("kind", string(kind)),
		slog.String("id", id),
		slog.Int("dependents", len(dependents)),
		slog.Int("references", len(detach)),
	)

	for _, dep := range dependents {
		var err error
		switch dep.kind {
		case models.KindReview:
			err = e.deleteReview(ctx, p, dep.id)
		case models.KindSample:
			err = e.deleteSample(ctx, p, dep.id)
		default:
			err = fmt.Errorf("no delete sequence for %s", dep.kind)
		}
		if err == nil {
			continue
		}
		var partial *PartialFailureError
		if errors.As(err, &partial) {
			return err
		}
		if errors.Is(err, ErrNotFound) {
			continue
		}
		return p.fail(ctx, StepRef{Kind: dep.kind, ID: dep.id, Action: ActionDelete}, err)
	}

	detach = append(detach, step{kind: kind, id: id, remove: true, missingOK: true})
	return e.apply(ctx, p, detach...)
}
