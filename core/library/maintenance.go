package library

import (
	"context"
	"os"

	"Phonolib/library"
	"Phonolib/logger"
	"Phonolib/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Verify checks database records against physical storage and reports
// every inconsistency it finds. It never repairs anything; acting on
// the report is the caller's decision.
func (e *Engine) Verify(ctx context.Context, userID uuid.UUID) (*library.IntegrityReport, error) {
	owner := e.resolveUser(userID)
	report := &library.IntegrityReport{}

	tracks, err := e.FilterTracks(ctx, library.TrackQuery{UserID: owner})
	if err != nil {
		return nil, err
	}

	referenced := make(map[string]bool)
	for _, track := range tracks {
		if track.Resource == nil {
			continue
		}
		if track.Resource.Original() {
			// User-owned location, checked directly on disk.
			if _, err := os.Stat(track.Resource.Src()); err != nil {
				report.MissingFiles = append(report.MissingFiles, &model.IntegrityError{
					TrackID: track.ID,
					File:    track.Resource.Src(),
					Message: "resource file missing",
				})
			}
			continue
		}
		referenced[track.Resource.FileName] = true
		exists, err := e.storage.Exists(ctx, track.Resource.FileName, owner.String())
		if err != nil {
			return nil, err
		}
		if !exists {
			report.MissingFiles = append(report.MissingFiles, &model.IntegrityError{
				TrackID: track.ID,
				File:    track.Resource.FileName,
				Message: "resource file missing from storage",
			})
		}
	}

	blobs, err := e.blobs.GetBlobsByUserID(owner)
	if err != nil {
		return nil, err
	}
	for _, blob := range blobs {
		if blob.Resource != nil && !blob.Resource.Original() {
			referenced[blob.Resource.FileName] = true
		}
	}

	stored, err := e.storage.List(ctx, owner.String())
	if err != nil {
		return nil, err
	}
	for _, name := range stored {
		if !referenced[name] {
			report.OrphanedFiles = append(report.OrphanedFiles, &model.IntegrityError{
				File:    name,
				Message: "stored file has no library record",
			})
		}
	}

	logger.Info("library verified",
		zap.String("userId", owner.String()),
		zap.Int("missing", len(report.MissingFiles)),
		zap.Int("orphaned", len(report.OrphanedFiles)))
	return report, nil
}

// Reset wipes every record and stored file of a user. The force flag is
// a deliberate confirmation; without it nothing is touched.
func (e *Engine) Reset(ctx context.Context, userID uuid.UUID, force bool) error {
	if !force {
		return &model.ConfigurationError{Message: "reset requires force"}
	}
	owner := e.resolveUser(userID)

	tx, err := e.db.Begin()
	if err != nil {
		return err
	}
	// Edges reference the entity tables, so they go first.
	if err := e.relationships.DeleteAllByUserWithTx(tx, owner); err != nil {
		tx.Rollback()
		return err
	}
	if err := e.pluginData.DeleteAllByUserWithTx(tx, owner); err != nil {
		tx.Rollback()
		return err
	}
	if err := e.tracks.DeleteAllByUserIDWithTx(tx, owner); err != nil {
		tx.Rollback()
		return err
	}
	if err := e.collections.DeleteAllByUserIDWithTx(tx, owner); err != nil {
		tx.Rollback()
		return err
	}
	if err := e.blobs.DeleteAllByUserWithTx(tx, owner); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	stored, err := e.storage.List(ctx, owner.String())
	if err != nil {
		return err
	}
	for _, name := range stored {
		if err := e.storage.Remove(ctx, name, owner.String()); err != nil {
			logger.Warn("failed to remove stored file during reset",
				zap.String("file", name), zap.Error(err))
		}
	}
	logger.Info("library reset", zap.String("userId", owner.String()), zap.Int("filesRemoved", len(stored)))
	return nil
}

// LibrarySize returns the number of tracks a user owns.
func (e *Engine) LibrarySize(ctx context.Context, userID uuid.UUID) (int64, error) {
	return e.tracks.CountByUserID(e.resolveUser(userID))
}

// CollectionSize returns the number of tracks in a collection.
func (e *Engine) CollectionSize(ctx context.Context, collectionID uuid.UUID) (int64, error) {
	if _, err := e.GetCollection(ctx, collectionID); err != nil {
		return 0, err
	}
	return e.relationships.CountMembers(collectionID)
}
