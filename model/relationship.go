package model

import (
	"time"

	"github.com/google/uuid"
)

// RelationKind tags the (source-kind, target-kind) pair of an edge so a
// lookup can be routed to the correct partition without scanning all of
// them. Relational backends keep one table per kind.
type RelationKind string

const (
	KindTrackTrack           RelationKind = "track-track"
	KindTrackCollection      RelationKind = "track-collection"
	KindCollectionCollection RelationKind = "collection-collection"
)

// DefaultRelationshipType is used when relate() is not given a type.
const DefaultRelationshipType = "relationship"

// Direction selects which side of an edge an entity must be on when
// traversing the graph.
type Direction string

const (
	// DirectionTo matches edges where the entity is the source.
	DirectionTo Direction = "to"
	// DirectionFrom matches edges where the entity is the target.
	DirectionFrom Direction = "from"
	// DirectionBoth is the union of to and from.
	DirectionBoth Direction = "both"
)

// Relationship is a directional typed edge between two entities. An edge
// from A to B never implies an edge from B to A: relate() writes exactly
// one row and "both" is resolved at query time.
//
// Position is only meaningful for track-in-collection membership edges,
// where it is a monotonically increasing, gap-tolerant ordering key.
type Relationship struct {
	ID               uuid.UUID      `json:"id"`
	SourceID         uuid.UUID      `json:"sourceId"`
	TargetID         uuid.UUID      `json:"targetId"`
	RelationshipType string         `json:"relationshipType"`
	Kind             RelationKind   `json:"kind"`
	Position         int64          `json:"position,omitempty"`
	Meta             map[string]any `json:"meta,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
}
