package library

import (
	"Phonolib/model"

	"github.com/google/uuid"
)

// Order is the direction in which listing results are returned.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// ListOptions control ordering and pagination of listing operations.
type ListOptions struct {
	OrderBy string // entity column, "collection" (membership position) or "random"
	Order   Order
	Limit   int // 0 means no limit
	Offset  int // only applied together with Limit
}

// IngestOptions control how a file is added to the library. Nil pointer
// flags fall back to the configured defaults.
type IngestOptions struct {
	TrackType     string
	UserID        uuid.UUID
	Meta          map[string]any
	CopyToLibrary *bool
	SkipDuplicate *bool
}

// ObjectSpec describes a manually created, not necessarily audio-backed
// object entity.
type ObjectSpec struct {
	UserID        uuid.UUID
	TrackType     string
	Visibility    model.Visibility
	Meta          map[string]any
	FilePath      string
	ResourceType  model.ResourceType
	ResourceMeta  map[string]any
	CopyToLibrary *bool
}

// CollectionSpec describes a collection to create, optionally together
// with an initial ordered set of member tracks.
type CollectionSpec struct {
	Name           string
	UserID         uuid.UUID
	TrackIDs       []uuid.UUID
	Description    string
	CollectionType string
	Visibility     model.Visibility
	Meta           map[string]any
}

// RemoveOptions control what RemoveTrack cascades over. Removal is
// refused when dependent rows exist and the matching flag is false.
type RemoveOptions struct {
	RemoveRelationships bool
	RemovePluginData    bool
	RemoveResources     bool
}

// PluginDataFilter is one predicate over plugin-data values. Exactly one
// of the three match modes must be set:
//
//   - Min/Max: value, coerced to a number, within the inclusive range;
//   - OneOf: value equals one of the literals;
//   - Match: case-insensitive substring match.
type PluginDataFilter struct {
	Key   string
	Min   *float64
	Max   *float64
	OneOf []string
	Match string
}

// TrackQuery is the composable filter specification consumed by
// FilterTracks and FilterTracksStream. All populated parts are combined
// with logical AND.
type TrackQuery struct {
	// Filters are predicates over plugin-data values, ANDed together.
	Filters []PluginDataFilter
	// SearchMeta tokens must all occur somewhere in the track's meta or
	// its resource meta (OR across the two fields, AND across tokens).
	SearchMeta []string
	// TrackTypes restricts the track_type field when non-empty.
	TrackTypes []string
	// UserID scopes the query to one owner when non-zero.
	UserID uuid.UUID
	// CollectionID restricts results to members of the collection.
	CollectionID uuid.UUID
	// PluginNames restricts which plugin-data rows may satisfy Filters.
	PluginNames []string

	OrderBy string
	Order   Order
	Limit   int
	Offset  int

	// LoadRelated eagerly populates each track's RelatedTracks edges.
	// Keep it off for bulk or paginated retrieval.
	LoadRelated bool
}

// PluginDataQuery selects plugin-data rows. TrackID is required; the
// remaining fields narrow the selection when non-empty.
type PluginDataQuery struct {
	TrackID       uuid.UUID
	UserID        uuid.UUID
	PluginName    string
	PluginVersion string
	Key           string
}

// PluginDataInput is one fact to record in the ledger. PluginVersion may
// be left empty if the plugin is registered; Replace overrides the
// configured replace_plugin_data default when set.
type PluginDataInput struct {
	TrackID       uuid.UUID
	UserID        uuid.UUID
	PluginName    string
	PluginVersion string
	Key           string
	Value         string
	Replace       *bool
}
