package model

import (
	"time"

	"github.com/google/uuid"
)

// Visibility marks who may see an entity. Deleted is a soft-delete
// marker, not a physical removal.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
	VisibilityDeleted Visibility = "deleted"
)

// DefaultTrackType is assigned when ingestion is not told otherwise.
const DefaultTrackType = "track"

// Track represents a single audio-like asset in the library.
type Track struct {
	ID         uuid.UUID      `json:"id"`
	UserID     uuid.UUID      `json:"userId"`
	TrackType  string         `json:"trackType"`
	Visibility Visibility     `json:"visibility"`
	Resource   *Resource      `json:"resource"`
	Images     []*Resource    `json:"images,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`

	// RelatedTracks holds the outgoing track-track edges of this track.
	// Only populated when a caller explicitly asks for it; bulk listings
	// leave it nil to avoid a relationship fan-out per row.
	RelatedTracks []*Relationship `json:"relatedTracks,omitempty"`
}

// GetMeta returns the metadata value stored under key.
func (t *Track) GetMeta(key string) (any, bool) {
	if t.Meta == nil {
		return nil, false
	}
	v, ok := t.Meta[key]
	return v, ok
}

// HasMeta reports whether the track carries a metadata value under key.
func (t *Track) HasMeta(key string) bool {
	_, ok := t.GetMeta(key)
	return ok
}

// SetMeta sets a metadata value on the in-memory track. The change is
// persisted only by an explicit UpdateTrack call.
func (t *Track) SetMeta(key string, value any) {
	if t.Meta == nil {
		t.Meta = make(map[string]any)
	}
	t.Meta[key] = value
}
