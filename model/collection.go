package model

import (
	"time"

	"github.com/google/uuid"
)

// DefaultCollectionType is used when no collection type is supplied.
const DefaultCollectionType = "collection"

// Collection is a named, ordered grouping of tracks. The ordered track
// membership is not embedded here; it is modeled as track-collection
// relationship edges carrying a position (see Relationship).
type Collection struct {
	ID             uuid.UUID      `json:"id"`
	UserID         uuid.UUID      `json:"userId"`
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	CollectionType string         `json:"collectionType"`
	Visibility     Visibility     `json:"visibility"`
	Meta           map[string]any `json:"meta,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}
