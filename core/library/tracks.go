package library

import (
	"context"

	"Phonolib/cache"
	"Phonolib/library"
	"Phonolib/logger"
	"Phonolib/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GetTrack retrieves one track. Ownership is enforced: another user's
// private track is indistinguishable from a missing one.
func (e *Engine) GetTrack(ctx context.Context, id, userID uuid.UUID) (*model.Track, error) {
	track, err := e.tracks.GetTrackByID(id)
	if err != nil {
		return nil, err
	}
	if track == nil || !e.visibleTo(track, userID) {
		return nil, &model.NotFoundError{Kind: "track", ID: id}
	}
	return track, nil
}

func (e *Engine) visibleTo(track *model.Track, userID uuid.UUID) bool {
	if track.Visibility == model.VisibilityDeleted {
		return false
	}
	if track.Visibility == model.VisibilityPublic {
		return true
	}
	return track.UserID == e.resolveUser(userID)
}

// GetTracks lists a user's tracks with ordering and pagination.
func (e *Engine) GetTracks(ctx context.Context, userID uuid.UUID, opts library.ListOptions) ([]*model.Track, error) {
	return e.FilterTracks(ctx, library.TrackQuery{
		UserID:  e.resolveUser(userID),
		OrderBy: opts.OrderBy,
		Order:   opts.Order,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// UpdateTrack persists changes made to a previously fetched track.
func (e *Engine) UpdateTrack(ctx context.Context, track *model.Track) (*model.Track, error) {
	existing, err := e.tracks.GetTrackByID(track.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &model.NotFoundError{Kind: "track", ID: track.ID}
	}
	if err := e.tracks.UpdateTrack(track); err != nil {
		return nil, err
	}
	updated, err := e.tracks.GetTrackByID(track.ID)
	if err != nil {
		return nil, err
	}
	e.invalidateTrackCollections(ctx, track.ID)
	return updated, nil
}

// RemoveTrack deletes a track. Dependent plugin data and relationship
// edges block the removal unless the matching cascade flag is set; a
// blocked removal returns false without touching anything.
func (e *Engine) RemoveTrack(ctx context.Context, id, userID uuid.UUID, opts library.RemoveOptions) (bool, error) {
	track, err := e.GetTrack(ctx, id, userID)
	if err != nil {
		return false, err
	}

	if !opts.RemovePluginData {
		n, err := e.pluginData.CountByTrack(id)
		if err != nil {
			return false, err
		}
		if n > 0 {
			logger.Warn("track removal blocked by plugin data",
				zap.String("trackId", id.String()), zap.Int64("rows", n))
			return false, nil
		}
	}
	if !opts.RemoveRelationships {
		for _, kind := range []model.RelationKind{model.KindTrackTrack, model.KindTrackCollection} {
			has, err := e.relationships.HasRelationship(kind, id, model.DirectionBoth, "")
			if err != nil {
				return false, err
			}
			if has {
				logger.Warn("track removal blocked by relationships",
					zap.String("trackId", id.String()), zap.String("kind", string(kind)))
				return false, nil
			}
		}
	}

	// Collections whose listing must be invalidated once the member row
	// is gone.
	memberOf, err := e.relationships.GetRelationships(model.KindTrackCollection, id, model.DirectionTo, "")
	if err != nil {
		return false, err
	}

	tx, err := e.db.Begin()
	if err != nil {
		return false, err
	}
	if err := e.pluginData.DeleteByTrackWithTx(tx, id); err != nil {
		tx.Rollback()
		return false, err
	}
	for _, kind := range []model.RelationKind{model.KindTrackTrack, model.KindTrackCollection} {
		if err := e.relationships.DeleteForEntityWithTx(tx, kind, id); err != nil {
			tx.Rollback()
			return false, err
		}
	}
	if err := e.tracks.DeleteTrackWithTx(tx, id); err != nil {
		tx.Rollback()
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}

	if opts.RemoveResources && track.Resource != nil && !track.Resource.Original() {
		if err := e.storage.Remove(ctx, track.Resource.FileName, track.UserID.String()); err != nil {
			logger.Warn("failed to remove stored resource",
				zap.String("trackId", id.String()), zap.String("file", track.Resource.FileName), zap.Error(err))
		}
	}
	for _, edge := range memberOf {
		cache.InvalidateCollection(ctx, edge.TargetID)
	}
	logger.Info("track removed", zap.String("trackId", id.String()))
	return true, nil
}

// invalidateTrackCollections drops the cached listings of every
// collection the track is a member of.
func (e *Engine) invalidateTrackCollections(ctx context.Context, trackID uuid.UUID) {
	if !cache.Enabled() {
		return
	}
	edges, err := e.relationships.GetRelationships(model.KindTrackCollection, trackID, model.DirectionTo, "")
	if err != nil {
		logger.Warn("failed to resolve collections for cache invalidation",
			zap.String("trackId", trackID.String()), zap.Error(err))
		return
	}
	for _, edge := range edges {
		cache.InvalidateCollection(ctx, edge.TargetID)
	}
}
