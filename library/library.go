// Package library defines the boundary contract every library backend
// must satisfy: the full operation set over tracks, collections,
// relationships, plugin data and blobs, plus the query, cursor and
// capability types shared by all backends.
package library

import (
	"context"

	"Phonolib/model"

	"github.com/google/uuid"
)

// Library is the only sanctioned mutation and query surface of the
// engine. Any backend substituted across this seam must reproduce the
// same semantics; direct field mutation on returned entities is never
// persisted.
type Library interface {
	// Capabilities reports what this backend supports beyond the core
	// contract. Callers check before asserting optional interfaces.
	Capabilities() Capabilities

	// Ingestion
	AddTrack(ctx context.Context, filePath string, opts IngestOptions) (*model.Track, error)
	AddTracks(ctx context.Context, dir string, opts IngestOptions) ([]*model.Track, error)
	CreateObject(ctx context.Context, spec ObjectSpec) (*model.Track, error)

	// Track retrieval and mutation
	GetTrack(ctx context.Context, id, userID uuid.UUID) (*model.Track, error)
	GetTracks(ctx context.Context, userID uuid.UUID, opts ListOptions) ([]*model.Track, error)
	UpdateTrack(ctx context.Context, track *model.Track) (*model.Track, error)
	RemoveTrack(ctx context.Context, id, userID uuid.UUID, opts RemoveOptions) (bool, error)

	// Filter and search
	FilterTracks(ctx context.Context, q TrackQuery) ([]*model.Track, error)
	FilterTracksStream(ctx context.Context, q TrackQuery) (*TrackCursor, error)
	FindTracks(ctx context.Context, value string, userID uuid.UUID, opts ListOptions) ([]*model.Track, error)

	// Relationship graph
	AddTrackRelationship(ctx context.Context, sourceID, targetID uuid.UUID, relType string, meta map[string]any) (*model.Relationship, error)
	AddRelatedTrack(ctx context.Context, filePath string, relatedTrackID uuid.UUID, relType string, opts IngestOptions) (*model.Track, error)
	HasRelated(ctx context.Context, id uuid.UUID, direction model.Direction, relType string) (bool, error)
	GetRelatedTracks(ctx context.Context, trackID uuid.UUID, direction model.Direction, userID uuid.UUID, opts ListOptions) ([]*model.Track, error)
	FilterRelatedTracks(ctx context.Context, trackID uuid.UUID, direction model.Direction, q TrackQuery) ([]*model.Track, error)

	// Collections and ordered membership
	AddCollection(ctx context.Context, spec CollectionSpec) (*model.Collection, error)
	AddRelatedCollection(ctx context.Context, spec CollectionSpec, relatedID uuid.UUID, relType string) (*model.Collection, error)
	GetCollection(ctx context.Context, id uuid.UUID) (*model.Collection, error)
	GetCollections(ctx context.Context, userID uuid.UUID, opts ListOptions) ([]*model.Collection, error)
	FindCollections(ctx context.Context, value string, collectionTypes []string, userID uuid.UUID, opts ListOptions) ([]*model.Collection, error)
	GetRelatedCollections(ctx context.Context, id uuid.UUID, direction model.Direction, userID uuid.UUID, opts ListOptions) ([]*model.Collection, error)
	UpdateCollection(ctx context.Context, collection *model.Collection) (*model.Collection, error)
	RemoveCollection(ctx context.Context, id, userID uuid.UUID, removeRelationships bool) (bool, error)
	AddTrackToCollection(ctx context.Context, trackID, collectionID uuid.UUID, meta map[string]any) (*model.Relationship, error)
	AddTracksToCollection(ctx context.Context, trackIDs []uuid.UUID, collectionID uuid.UUID, meta map[string]any) ([]*model.Relationship, error)
	GetCollectionTracks(ctx context.Context, collectionID uuid.UUID, order Order) ([]*model.Track, error)
	RemoveTrackFromCollection(ctx context.Context, trackID, collectionID uuid.UUID) (bool, error)

	// Plugin data ledger
	AddPluginData(ctx context.Context, input PluginDataInput) (*model.PluginData, error)
	GetPluginData(ctx context.Context, q PluginDataQuery) ([]*model.PluginData, error)
	GetPluginValue(ctx context.Context, q PluginDataQuery) (string, bool, error)

	// Blobs
	StoreBlob(ctx context.Context, filePath string, userID uuid.UUID) (*model.Blob, error)
	StoreBlobBytes(ctx context.Context, data []byte, userID uuid.UUID) (*model.Blob, error)
	LoadBlob(ctx context.Context, id, userID uuid.UUID) (*model.Blob, error)
	RemoveBlob(ctx context.Context, id, userID uuid.UUID, removeResources bool) (bool, error)

	// Maintenance
	Verify(ctx context.Context, userID uuid.UUID) (*IntegrityReport, error)
	Reset(ctx context.Context, userID uuid.UUID, force bool) error
	LibrarySize(ctx context.Context, userID uuid.UUID) (int64, error)
	CollectionSize(ctx context.Context, collectionID uuid.UUID) (int64, error)
}

// IntegrityReport lists the inconsistencies found by Verify. Verify only
// detects and reports; resolving an inconsistency is up to the caller.
type IntegrityReport struct {
	// MissingFiles are tracks whose resource has no backing file.
	MissingFiles []*model.IntegrityError
	// OrphanedFiles are stored files with no resource record.
	OrphanedFiles []*model.IntegrityError
}

// Clean reports whether the library passed verification.
func (r *IntegrityReport) Clean() bool {
	return len(r.MissingFiles) == 0 && len(r.OrphanedFiles) == 0
}
