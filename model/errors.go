package model

import (
	"fmt"

	"github.com/google/uuid"
)

// NotFoundError reports that an entity id is absent or owned by a
// different user.
type NotFoundError struct {
	Kind string
	ID   uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Kind, e.ID)
}

// ValidationError reports a missing required field or a malformed
// filter/request specification.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// DuplicateError reports that an identical source already exists in the
// library. It is only surfaced when duplicate skipping is disabled and
// the caller asked for strict insertion; with skip_duplicate enabled the
// duplicate is resolved silently.
type DuplicateError struct {
	Checksum string
	Existing uuid.UUID
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate source (checksum %s) already stored as track %s", e.Checksum, e.Existing)
}

// ConfigurationError reports an unresolvable plugin version or missing
// backend configuration.
type ConfigurationError struct {
	Message string
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// IntegrityError describes a single inconsistency found by Verify: a
// resource with no backing file, or a file with no resource record.
type IntegrityError struct {
	TrackID uuid.UUID
	File    string
	Message string
}

func (e *IntegrityError) Error() string {
	return e.Message
}
