package library

import (
	"context"
	"sort"

	"Phonolib/cache"
	"Phonolib/library"
	"Phonolib/logger"
	"Phonolib/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// membershipRelType tags track-in-collection edges.
const membershipRelType = "track"

// AddCollection creates a collection, optionally seeding its ordered
// membership. Seed tracks receive positions 0..n-1 in the given order,
// all inside one transaction.
func (e *Engine) AddCollection(ctx context.Context, spec library.CollectionSpec) (*model.Collection, error) {
	if spec.Name == "" {
		return nil, &model.ValidationError{Message: "collection requires a name"}
	}
	userID := e.resolveUser(spec.UserID)
	collectionType := spec.CollectionType
	if collectionType == "" {
		collectionType = model.DefaultCollectionType
	}
	visibility := spec.Visibility
	if visibility == "" {
		visibility = model.VisibilityPrivate
	}

	// One membership per track; a repeated seed id keeps its first
	// position, like AddTracksToCollection treats existing members.
	seeds := make([]uuid.UUID, 0, len(spec.TrackIDs))
	seen := make(map[uuid.UUID]bool, len(spec.TrackIDs))
	for _, trackID := range spec.TrackIDs {
		if seen[trackID] {
			continue
		}
		seen[trackID] = true
		track, err := e.tracks.GetTrackByID(trackID)
		if err != nil {
			return nil, err
		}
		if track == nil {
			return nil, &model.NotFoundError{Kind: "track", ID: trackID}
		}
		seeds = append(seeds, trackID)
	}

	col := &model.Collection{
		ID:             uuid.New(),
		UserID:         userID,
		Name:           spec.Name,
		Description:    spec.Description,
		CollectionType: collectionType,
		Visibility:     visibility,
		Meta:           spec.Meta,
	}

	tx, err := e.db.Begin()
	if err != nil {
		return nil, err
	}
	if err := e.collections.CreateCollectionWithTx(tx, col); err != nil {
		tx.Rollback()
		return nil, err
	}
	for i, trackID := range seeds {
		rel := &model.Relationship{
			ID:               uuid.New(),
			SourceID:         trackID,
			TargetID:         col.ID,
			RelationshipType: membershipRelType,
			Kind:             model.KindTrackCollection,
			Position:         int64(i),
		}
		if err := e.relationships.CreateRelationshipWithTx(tx, rel); err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	logger.Info("collection created",
		zap.String("collectionId", col.ID.String()), zap.Int("seedTracks", len(seeds)))
	return e.collections.GetCollectionByID(col.ID)
}

// AddRelatedCollection creates a collection and links it to an existing
// one. The edge runs from the new collection to the existing one.
func (e *Engine) AddRelatedCollection(ctx context.Context, spec library.CollectionSpec, relatedID uuid.UUID, relType string) (*model.Collection, error) {
	related, err := e.collections.GetCollectionByID(relatedID)
	if err != nil {
		return nil, err
	}
	if related == nil {
		return nil, &model.NotFoundError{Kind: "collection", ID: relatedID}
	}
	col, err := e.AddCollection(ctx, spec)
	if err != nil {
		return nil, err
	}
	if relType == "" {
		relType = model.DefaultRelationshipType
	}
	rel := &model.Relationship{
		ID:               uuid.New(),
		SourceID:         col.ID,
		TargetID:         relatedID,
		RelationshipType: relType,
		Kind:             model.KindCollectionCollection,
	}
	if err := e.relationships.CreateRelationship(rel); err != nil {
		return nil, err
	}
	return col, nil
}

// GetCollection retrieves one collection by id.
func (e *Engine) GetCollection(ctx context.Context, id uuid.UUID) (*model.Collection, error) {
	col, err := e.collections.GetCollectionByID(id)
	if err != nil {
		return nil, err
	}
	if col == nil || col.Visibility == model.VisibilityDeleted {
		return nil, &model.NotFoundError{Kind: "collection", ID: id}
	}
	return col, nil
}

// GetCollections lists a user's collections.
func (e *Engine) GetCollections(ctx context.Context, userID uuid.UUID, opts library.ListOptions) ([]*model.Collection, error) {
	return e.collections.GetCollectionsByUserID(e.resolveUser(userID),
		opts.OrderBy, opts.Order == library.OrderDesc, opts.Limit, opts.Offset)
}

// FindCollections searches collection names and descriptions.
func (e *Engine) FindCollections(ctx context.Context, value string, collectionTypes []string, userID uuid.UUID, opts library.ListOptions) ([]*model.Collection, error) {
	return e.collections.FindCollections(value, collectionTypes, e.resolveUser(userID),
		opts.OrderBy, opts.Order == library.OrderDesc, opts.Limit, opts.Offset)
}

// GetRelatedCollections returns the collections connected to the given
// one over the collection-collection partition.
func (e *Engine) GetRelatedCollections(ctx context.Context, id uuid.UUID, direction model.Direction, userID uuid.UUID, opts library.ListOptions) ([]*model.Collection, error) {
	edges, err := e.relationships.GetRelationships(model.KindCollectionCollection, id, direction, "")
	if err != nil {
		return nil, err
	}
	owner := e.resolveUser(userID)
	seen := make(map[uuid.UUID]bool, len(edges))
	out := make([]*model.Collection, 0, len(edges))
	for _, edge := range edges {
		neighbor := edge.TargetID
		if neighbor == id {
			neighbor = edge.SourceID
		}
		if seen[neighbor] {
			continue
		}
		seen[neighbor] = true
		col, err := e.collections.GetCollectionByID(neighbor)
		if err != nil {
			return nil, err
		}
		if col == nil || col.Visibility == model.VisibilityDeleted {
			continue
		}
		if col.UserID != owner && col.Visibility != model.VisibilityPublic {
			continue
		}
		out = append(out, col)
	}
	desc := opts.Order == library.OrderDesc
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		start := opts.Offset
		if start > len(out) {
			start = len(out)
		}
		end := start + opts.Limit
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, nil
}

// UpdateCollection persists changes made to a previously fetched
// collection.
func (e *Engine) UpdateCollection(ctx context.Context, collection *model.Collection) (*model.Collection, error) {
	existing, err := e.collections.GetCollectionByID(collection.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &model.NotFoundError{Kind: "collection", ID: collection.ID}
	}
	if err := e.collections.UpdateCollection(collection); err != nil {
		return nil, err
	}
	cache.InvalidateCollection(ctx, collection.ID)
	return e.collections.GetCollectionByID(collection.ID)
}

// RemoveCollection deletes a collection. Member tracks are never
// deleted; only the membership and collection-collection edges go,
// and only when removeRelationships is set.
func (e *Engine) RemoveCollection(ctx context.Context, id, userID uuid.UUID, removeRelationships bool) (bool, error) {
	col, err := e.GetCollection(ctx, id)
	if err != nil {
		return false, err
	}
	if col.UserID != e.resolveUser(userID) {
		return false, &model.NotFoundError{Kind: "collection", ID: id}
	}

	if !removeRelationships {
		for _, kind := range []model.RelationKind{model.KindTrackCollection, model.KindCollectionCollection} {
			has, err := e.relationships.HasRelationship(kind, id, model.DirectionBoth, "")
			if err != nil {
				return false, err
			}
			if has {
				logger.Warn("collection removal blocked by relationships",
					zap.String("collectionId", id.String()), zap.String("kind", string(kind)))
				return false, nil
			}
		}
	}

	tx, err := e.db.Begin()
	if err != nil {
		return false, err
	}
	for _, kind := range []model.RelationKind{model.KindTrackCollection, model.KindCollectionCollection} {
		if err := e.relationships.DeleteForEntityWithTx(tx, kind, id); err != nil {
			tx.Rollback()
			return false, err
		}
	}
	if err := e.collections.DeleteCollectionWithTx(tx, id); err != nil {
		tx.Rollback()
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	cache.InvalidateCollection(ctx, id)
	logger.Info("collection removed", zap.String("collectionId", id.String()))
	return true, nil
}

// AddTrackToCollection appends a track to the end of a collection. The
// new position is the current maximum plus one, assigned inside a
// transaction so concurrent appends cannot collide. Adding a track that
// is already a member returns the existing edge unchanged.
func (e *Engine) AddTrackToCollection(ctx context.Context, trackID, collectionID uuid.UUID, meta map[string]any) (*model.Relationship, error) {
	rels, err := e.AddTracksToCollection(ctx, []uuid.UUID{trackID}, collectionID, meta)
	if err != nil {
		return nil, err
	}
	return rels[0], nil
}

// AddTracksToCollection appends several tracks in order, in one
// transaction. Tracks already in the collection keep their position.
func (e *Engine) AddTracksToCollection(ctx context.Context, trackIDs []uuid.UUID, collectionID uuid.UUID, meta map[string]any) ([]*model.Relationship, error) {
	if len(trackIDs) == 0 {
		return nil, &model.ValidationError{Message: "no tracks given"}
	}
	if _, err := e.GetCollection(ctx, collectionID); err != nil {
		return nil, err
	}
	for _, trackID := range trackIDs {
		track, err := e.tracks.GetTrackByID(trackID)
		if err != nil {
			return nil, err
		}
		if track == nil {
			return nil, &model.NotFoundError{Kind: "track", ID: trackID}
		}
	}

	existing, err := e.relationships.GetMembershipEdges(collectionID, false)
	if err != nil {
		return nil, err
	}
	existingByTrack := make(map[uuid.UUID]*model.Relationship, len(existing))
	for _, edge := range existing {
		existingByTrack[edge.SourceID] = edge
	}

	tx, err := e.db.Begin()
	if err != nil {
		return nil, err
	}
	maxPos, err := e.relationships.MaxMembershipPosition(tx, collectionID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	out := make([]*model.Relationship, 0, len(trackIDs))
	for _, trackID := range trackIDs {
		if edge, ok := existingByTrack[trackID]; ok {
			out = append(out, edge)
			continue
		}
		maxPos++
		rel := &model.Relationship{
			ID:               uuid.New(),
			SourceID:         trackID,
			TargetID:         collectionID,
			RelationshipType: membershipRelType,
			Kind:             model.KindTrackCollection,
			Position:         maxPos,
			Meta:             meta,
		}
		if err := e.relationships.CreateRelationshipWithTx(tx, rel); err != nil {
			tx.Rollback()
			return nil, err
		}
		existingByTrack[trackID] = rel
		out = append(out, rel)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	cache.InvalidateCollection(ctx, collectionID)
	return out, nil
}

// GetCollectionTracks returns a collection's tracks in membership
// order. Positions may have gaps after removals; only the relative
// order is meaningful.
func (e *Engine) GetCollectionTracks(ctx context.Context, collectionID uuid.UUID, order library.Order) ([]*model.Track, error) {
	if _, err := e.GetCollection(ctx, collectionID); err != nil {
		return nil, err
	}
	if tracks, ok := cache.GetCollectionTracks(ctx, collectionID); ok {
		if order == library.OrderDesc {
			reverseTracks(tracks)
		}
		return tracks, nil
	}

	edges, err := e.relationships.GetMembershipEdges(collectionID, false)
	if err != nil {
		return nil, err
	}
	tracks := make([]*model.Track, 0, len(edges))
	for _, edge := range edges {
		track, err := e.tracks.GetTrackByID(edge.SourceID)
		if err != nil {
			return nil, err
		}
		if track != nil {
			tracks = append(tracks, track)
		}
	}
	cache.SetCollectionTracks(ctx, collectionID, tracks)
	if order == library.OrderDesc {
		reverseTracks(tracks)
	}
	return tracks, nil
}

func reverseTracks(tracks []*model.Track) {
	for i, j := 0, len(tracks)-1; i < j; i, j = i+1, j-1 {
		tracks[i], tracks[j] = tracks[j], tracks[i]
	}
}

// RemoveTrackFromCollection drops a track's membership edge. Positions
// of the remaining members are left as they are.
func (e *Engine) RemoveTrackFromCollection(ctx context.Context, trackID, collectionID uuid.UUID) (bool, error) {
	removed, err := e.relationships.DeleteMembership(trackID, collectionID)
	if err != nil {
		return false, err
	}
	if removed {
		cache.InvalidateCollection(ctx, collectionID)
	}
	return removed, nil
}
