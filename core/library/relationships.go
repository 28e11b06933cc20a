package library

import (
	"context"

	"Phonolib/library"
	"Phonolib/model"

	"github.com/google/uuid"
)

// AddTrackRelationship creates one directional edge between two
// existing tracks. The reverse edge is never written; a symmetric link
// is a query-time concern.
func (e *Engine) AddTrackRelationship(ctx context.Context, sourceID, targetID uuid.UUID, relType string, meta map[string]any) (*model.Relationship, error) {
	if sourceID == targetID {
		return nil, &model.ValidationError{Message: "cannot relate a track to itself"}
	}
	for _, id := range []uuid.UUID{sourceID, targetID} {
		track, err := e.tracks.GetTrackByID(id)
		if err != nil {
			return nil, err
		}
		if track == nil {
			return nil, &model.NotFoundError{Kind: "track", ID: id}
		}
	}
	if relType == "" {
		relType = model.DefaultRelationshipType
	}
	rel := &model.Relationship{
		ID:               uuid.New(),
		SourceID:         sourceID,
		TargetID:         targetID,
		RelationshipType: relType,
		Kind:             model.KindTrackTrack,
		Meta:             meta,
	}
	if err := e.relationships.CreateRelationship(rel); err != nil {
		return nil, err
	}
	return rel, nil
}

// AddRelatedTrack ingests a file and links the new track to an existing
// one in a single operation. The edge runs from the new track to the
// existing one.
func (e *Engine) AddRelatedTrack(ctx context.Context, filePath string, relatedTrackID uuid.UUID, relType string, opts library.IngestOptions) (*model.Track, error) {
	track, err := e.AddTrack(ctx, filePath, opts)
	if err != nil {
		return nil, err
	}
	if _, err := e.AddTrackRelationship(ctx, track.ID, relatedTrackID, relType, nil); err != nil {
		return nil, err
	}
	return track, nil
}

// HasRelated reports whether a track has at least one track-track edge
// in the given direction, optionally narrowed by relationship type.
func (e *Engine) HasRelated(ctx context.Context, id uuid.UUID, direction model.Direction, relType string) (bool, error) {
	return e.relationships.HasRelationship(model.KindTrackTrack, id, direction, relType)
}

// GetRelatedTracks returns the tracks connected to the given one.
func (e *Engine) GetRelatedTracks(ctx context.Context, trackID uuid.UUID, direction model.Direction, userID uuid.UUID, opts library.ListOptions) ([]*model.Track, error) {
	return e.FilterRelatedTracks(ctx, trackID, direction, library.TrackQuery{
		UserID:  e.resolveUser(userID),
		OrderBy: opts.OrderBy,
		Order:   opts.Order,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}
