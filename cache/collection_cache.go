package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"Phonolib/logger"
	"Phonolib/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// collectionTracksTTL bounds staleness if an invalidation is ever lost.
const collectionTracksTTL = time.Hour

// collectionTracksKey builds the cache key for a collection's ordered
// track listing.
func collectionTracksKey(collectionID uuid.UUID) string {
	return fmt.Sprintf("phonolib:collection:%s:tracks", collectionID)
}

// GetCollectionTracks returns the cached ordered track listing of a
// collection, or ok=false on a miss or when caching is disabled.
func GetCollectionTracks(ctx context.Context, collectionID uuid.UUID) ([]*model.Track, bool) {
	if RedisClient == nil {
		return nil, false
	}
	raw, err := RedisClient.Get(ctx, collectionTracksKey(collectionID)).Bytes()
	if err != nil {
		return nil, false
	}
	var tracks []*model.Track
	if err := json.Unmarshal(raw, &tracks); err != nil {
		logger.Warn("failed to decode cached collection tracks",
			zap.String("collectionId", collectionID.String()), zap.Error(err))
		return nil, false
	}
	return tracks, true
}

// SetCollectionTracks caches a collection's ordered track listing.
// Cache failures are logged and otherwise ignored.
func SetCollectionTracks(ctx context.Context, collectionID uuid.UUID, tracks []*model.Track) {
	if RedisClient == nil {
		return
	}
	raw, err := json.Marshal(tracks)
	if err != nil {
		logger.Warn("failed to encode collection tracks for cache",
			zap.String("collectionId", collectionID.String()), zap.Error(err))
		return
	}
	if err := RedisClient.Set(ctx, collectionTracksKey(collectionID), raw, collectionTracksTTL).Err(); err != nil {
		logger.Warn("failed to cache collection tracks",
			zap.String("collectionId", collectionID.String()), zap.Error(err))
	}
}

// InvalidateCollection drops the cached listing of a collection. Called
// on every membership or member-track mutation.
func InvalidateCollection(ctx context.Context, collectionID uuid.UUID) {
	if RedisClient == nil {
		return
	}
	if err := RedisClient.Del(ctx, collectionTracksKey(collectionID)).Err(); err != nil {
		logger.Warn("failed to invalidate collection cache",
			zap.String("collectionId", collectionID.String()), zap.Error(err))
	}
}
