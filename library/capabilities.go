package library

import (
	"context"
	"slices"

	"Phonolib/model"

	"github.com/google/uuid"
)

// Capability names an optional feature a backend may provide beyond the
// core Library contract.
type Capability string

const (
	CapabilityFilter Capability = "filter"
	CapabilityStream Capability = "stream"
	CapabilityBlob   Capability = "blob"
	CapabilityVector Capability = "vector"
)

// Capabilities describes what a backend supports.
type Capabilities []Capability

// Contains checks if a capability is supported.
func (c Capabilities) Contains(cap Capability) bool {
	return slices.Contains(c, cap)
}

// DistanceMetric selects the vector distance used by a vector-capable
// backend.
type DistanceMetric string

const (
	DistanceEuclidean       DistanceMetric = "l2"
	DistanceCosine          DistanceMetric = "cosine"
	DistanceMaxInnerProduct DistanceMetric = "inner"
)

// VectorSearcher is the optional vector-embedding capability a backend
// may implement in addition to Library. Callers must check
// Capabilities().Contains(CapabilityVector) before asserting to it.
type VectorSearcher interface {
	// StoreEmbedding attaches an embedding vector to a track.
	StoreEmbedding(ctx context.Context, trackID, userID uuid.UUID, pluginName string, vector []float32) error
	// NearestTracks returns up to limit tracks ordered by distance to
	// the given vector.
	NearestTracks(ctx context.Context, vector []float32, metric DistanceMetric, limit int, userID uuid.UUID) ([]*model.Track, error)
}
