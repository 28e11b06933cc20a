// Package library implements the SQL-backed library engine: ingestion,
// the relationship graph, the filter/search pipeline, the plugin data
// ledger and maintenance operations, behind the library.Library
// contract.
package library

import (
	"context"
	"fmt"

	"Phonolib/config"
	"Phonolib/db"
	"Phonolib/library"
	"Phonolib/model"
	"Phonolib/repository"
	"Phonolib/storage"

	"github.com/google/uuid"
)

// Engine is the SQL-backed implementation of library.Library. All state
// lives in the database and the storage driver; the engine itself is
// safe for concurrent use.
type Engine struct {
	db       *db.Database
	cfg      *config.Config
	storage  storage.Driver
	registry *library.PluginRegistry

	tracks        repository.TrackRepository
	collections   repository.CollectionRepository
	relationships repository.RelationshipRepository
	pluginData    repository.PluginDataRepository
	blobs         repository.BlobRepository
	users         repository.UserRepository

	// userID is the default user applied when an operation is not given
	// an explicit one.
	userID uuid.UUID
}

var _ library.Library = (*Engine)(nil)

// NewEngine wires the engine against an open database and storage
// driver, initializes the schema and ensures the default user exists.
func NewEngine(ctx context.Context, database *db.Database, driver storage.Driver, cfg *config.Config, registry *library.PluginRegistry) (*Engine, error) {
	userID, err := uuid.Parse(cfg.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid configured user id %q: %w", cfg.UserID, err)
	}
	if err := database.Init(); err != nil {
		return nil, err
	}

	e := &Engine{
		db:            database,
		cfg:           cfg,
		storage:       driver,
		registry:      registry,
		tracks:        repository.NewTrackRepository(database),
		collections:   repository.NewCollectionRepository(database),
		relationships: repository.NewRelationshipRepository(database),
		pluginData:    repository.NewPluginDataRepository(database),
		blobs:         repository.NewBlobRepository(database),
		users:         repository.NewUserRepository(database),
		userID:        userID,
	}

	if err := e.users.EnsureUser(&model.User{ID: userID, Name: cfg.UserName}); err != nil {
		return nil, err
	}
	if err := driver.InitUser(ctx, userID.String()); err != nil {
		return nil, err
	}
	return e, nil
}

// Capabilities reports what this backend supports.
func (e *Engine) Capabilities() library.Capabilities {
	return library.Capabilities{
		library.CapabilityFilter,
		library.CapabilityStream,
		library.CapabilityBlob,
	}
}

// Storage exposes the physical storage driver, for tooling that acts
// on files outside the library contract.
func (e *Engine) Storage() storage.Driver {
	return e.storage
}

// DefaultUserID returns the configured default user.
func (e *Engine) DefaultUserID() uuid.UUID {
	return e.userID
}

// resolveUser substitutes the default user for the zero UUID.
func (e *Engine) resolveUser(userID uuid.UUID) uuid.UUID {
	if userID == uuid.Nil {
		return e.userID
	}
	return userID
}
