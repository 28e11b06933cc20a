package model

import (
	"time"

	"github.com/google/uuid"
)

// Blob is an arbitrary binary payload tracked by the library,
// independent of any Track. Data is only populated by LoadBlob.
type Blob struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"userId"`
	Visibility Visibility `json:"visibility"`
	Resource   *Resource  `json:"resource"`
	Data       []byte     `json:"-"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}
