package social

import (
	"context"
	"strings"

	"github.com/bandmate/backend/internal/logging"
	"github.com/bandmate/backend/internal/models"
)

const fieldSamples = "samples"

// AddSampleInput describes an audio sample published by an artist. Audio is
// an opaque reference to media stored elsewhere.
type AddSampleInput struct {
	ID       string `json:"id,omitempty"`
	ArtistID string `json:"artistId"`
	Audio    string `json:"audio"`
	Name     string `json:"name"`
}

// AddSample stores the sample and then links it into the artist's samples.
func (e *Engine) AddSample(ctx context.Context, in AddSampleInput) (sample models.Sample, err error) {
	ctx, span := logging.StartSpan(ctx, "social.AddSample")
	defer func() { span.End(err) }()

	if err := requireID("artist id", in.ArtistID); err != nil {
		return models.Sample{}, err
	}
	if strings.TrimSpace(in.Audio) == "" {
		return models.Sample{}, invalidf("sample audio reference is required")
	}
	if err := e.exists(ctx, models.KindUser, in.ArtistID); err != nil {
		return models.Sample{}, err
	}

	sample = models.Sample{
		ID:        in.ID,
		Artist:    in.ArtistID,
		Audio:     strings.TrimSpace(in.Audio),
		Name:      strings.TrimSpace(in.Name),
		CreatedAt: e.now().UTC(),
	}
	doc, err := newDocument(models.KindSample, sample)
	if err != nil {
		return models.Sample{}, err
	}

	p := newProgress("AddSample")
	id, err := e.create(ctx, p, models.KindSample, doc, func(existing models.Document) bool {
		return existing.String("artist") == in.ArtistID
	})
	if err != nil {
		return models.Sample{}, err
	}
	sample.ID = id

	err = e.apply(ctx, p, step{
		kind: models.KindUser,
		id:   in.ArtistID,
		muts: []mutation{link(fieldSamples, id)},
	})
	if err != nil {
		return models.Sample{}, err
	}
	return sample, nil
}

// DeleteSample unlinks the sample from its artist and then deletes it.
func (e *Engine) DeleteSample(ctx context.Context, sampleID string) (err error) {
	ctx, span := logging.StartSpan(ctx, "social.DeleteSample")
	defer func() { span.End(err) }()

	if err := requireID("sample id", sampleID); err != nil {
		return err
	}
	return e.deleteSample(ctx, newProgress("DeleteSample"), sampleID)
}

func (e *Engine) deleteSample(ctx context.Context, p *progress, sampleID string) error {
	doc, err := e.load(ctx, models.KindSample, sampleID)
	if err != nil {
		return err
	}

	var steps []step
	if artist := doc.String("artist"); artist != "" {
		steps = append(steps, step{
			kind:      models.KindUser,
			id:        artist,
			muts:      []mutation{unlink(fieldSamples, sampleID)},
			missingOK: true,
		})
	}
	steps = append(steps, step{kind: models.KindSample, id: sampleID, remove: true, missingOK: true})
	return e.apply(ctx, p, steps...)
}
