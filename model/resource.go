package model

import "path/filepath"

// ResourceType classifies the payload a Resource points at.
type ResourceType string

const (
	ResourceTypeAudio ResourceType = "audio"
	ResourceTypeImage ResourceType = "image"
	ResourceTypeModel ResourceType = "model"
	ResourceTypeBlob  ResourceType = "blob"
	ResourceTypeText  ResourceType = "text"
)

// ResourceLocation describes where the physical bytes of a Resource live.
// Resources located at "original" belong to the user, not the library:
// they are never rewritten or removed.
type ResourceLocation string

const (
	LocationOriginal ResourceLocation = "original"
	LocationLocal    ResourceLocation = "local"
	LocationRemote   ResourceLocation = "remote"
)

// Resource is the physical-file descriptor backing a track or blob.
// It is stored embedded in the owning row as JSON.
type Resource struct {
	FilePath     string           `json:"filePath"`
	FileName     string           `json:"fileName"`
	ResourceType ResourceType     `json:"resourceType"`
	Location     ResourceLocation `json:"location"`
	Meta         map[string]any   `json:"meta,omitempty"`
}

// Src returns the full source path or object key of the resource.
func (r *Resource) Src() string {
	if r.FilePath == "" {
		return r.FileName
	}
	return filepath.Join(r.FilePath, r.FileName)
}

// Original reports whether the resource still lives at its original,
// user-owned location.
func (r *Resource) Original() bool {
	return r.Location == LocationOriginal
}
