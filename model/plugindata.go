package model

import (
	"time"

	"github.com/google/uuid"
)

// PluginData is a provenance-tagged key/value fact attached to a track by
// a named, versioned plugin. The tuple (TrackID, PluginName, PluginVersion,
// Key, UserID) identifies a logical fact; whether a new write replaces the
// previous row or appends a historical one is decided by the ledger.
type PluginData struct {
	ID            uuid.UUID `json:"id"`
	TrackID       uuid.UUID `json:"trackId"`
	UserID        uuid.UUID `json:"userId"`
	PluginName    string    `json:"pluginName"`
	PluginVersion string    `json:"pluginVersion"`
	Key           string    `json:"key"`
	Value         string    `json:"value"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
