package model

import (
	"time"

	"github.com/google/uuid"
)

// User scopes entity ownership. Authentication is handled elsewhere;
// the library only cares about the ID.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
