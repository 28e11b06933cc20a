package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"Phonolib/db"
	"Phonolib/logger"
	"Phonolib/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TrackRepository defines the interface for track data operations.
type TrackRepository interface {
	CreateTrack(track *model.Track) error
	CreateTrackWithTx(tx *sql.Tx, track *model.Track) error
	GetTrackByID(id uuid.UUID) (*model.Track, error)
	GetTrackByChecksum(userID uuid.UUID, checksum string) (*model.Track, error)
	GetTrackByChecksumWithTx(tx *sql.Tx, userID uuid.UUID, checksum string) (*model.Track, error)
	UpdateTrack(track *model.Track) error
	DeleteTrackWithTx(tx *sql.Tx, id uuid.UUID) error
	DeleteAllByUserIDWithTx(tx *sql.Tx, userID uuid.UUID) error
	CountByUserID(userID uuid.UUID) (int64, error)
	BeginTx() (*sql.Tx, error)
	RollbackTx(tx *sql.Tx)
	CommitTx(tx *sql.Tx) error
}

// sqlTrackRepository implements TrackRepository over the shared handle.
type sqlTrackRepository struct {
	DB *db.Database
}

// NewTrackRepository creates a new instance of sqlTrackRepository.
func NewTrackRepository(database *db.Database) TrackRepository {
	return &sqlTrackRepository{DB: database}
}

// CreateTrack adds a new track to the database.
func (r *sqlTrackRepository) CreateTrack(track *model.Track) error {
	tx, err := r.BeginTx()
	if err != nil {
		return err
	}
	if err := r.CreateTrackWithTx(tx, track); err != nil {
		r.RollbackTx(tx)
		return err
	}
	return r.CommitTx(tx)
}

// CreateTrackWithTx adds a new track inside an open transaction.
func (r *sqlTrackRepository) CreateTrackWithTx(tx *sql.Tx, track *model.Track) error {
	query := `INSERT INTO tracks (id, user_id, track_type, visibility, resource, images, meta, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for CreateTrack: %w", err)
	}
	defer stmt.Close()

	resource, err := marshalJSON(track.Resource)
	if err != nil {
		return err
	}
	images, err := marshalJSON(track.Images)
	if err != nil {
		return err
	}
	meta, err := marshalJSON(track.Meta)
	if err != nil {
		return err
	}

	now := nowUnix()
	_, err = stmt.Exec(track.ID, track.UserID, track.TrackType, track.Visibility,
		resource, images, meta, now, now)
	if err != nil {
		return fmt.Errorf("failed to execute CreateTrack: %w", err)
	}
	logger.Debug("track created", zap.String("trackId", track.ID.String()), zap.String("trackType", track.TrackType))
	return nil
}

// GetTrackByID retrieves a track by its ID.
func (r *sqlTrackRepository) GetTrackByID(id uuid.UUID) (*model.Track, error) {
	query := `SELECT ` + TrackColumns + ` FROM tracks WHERE id = ?`
	track, err := ScanTrack(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Track not found
		}
		return nil, fmt.Errorf("failed to scan track by ID %s: %w", id, err)
	}
	return track, nil
}

// GetTrackByChecksum finds a user's track whose resource carries the
// given content checksum. The checksum sits inside the resource JSON, so
// the candidate match is narrowed in SQL and confirmed on the decoded
// resource meta.
func (r *sqlTrackRepository) GetTrackByChecksum(userID uuid.UUID, checksum string) (*model.Track, error) {
	return r.getTrackByChecksum(r.DB, userID, checksum, "")
}

// GetTrackByChecksumWithTx is the checksum lookup inside an open
// transaction. The matched rows are locked where the dialect supports
// it, so two transactions checking the same checksum cannot both pass
// and insert.
func (r *sqlTrackRepository) GetTrackByChecksumWithTx(tx *sql.Tx, userID uuid.UUID, checksum string) (*model.Track, error) {
	return r.getTrackByChecksum(tx, userID, checksum, r.DB.ForUpdate())
}

// querier is satisfied by both *db.Database and *sql.Tx.
type querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func (r *sqlTrackRepository) getTrackByChecksum(q querier, userID uuid.UUID, checksum, lock string) (*model.Track, error) {
	query := `SELECT ` + TrackColumns + ` FROM tracks WHERE user_id = ? AND resource LIKE ?` + lock
	rows, err := q.Query(query, userID, "%"+checksum+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks by checksum: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		track, err := ScanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track in GetTrackByChecksum: %w", err)
		}
		if track.Resource != nil && track.Resource.Meta != nil {
			if v, ok := track.Resource.Meta["checksum"].(string); ok && strings.EqualFold(v, checksum) {
				return track, nil
			}
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetTrackByChecksum: %w", err)
	}
	return nil, nil
}

// UpdateTrack persists the mutable fields of a track.
func (r *sqlTrackRepository) UpdateTrack(track *model.Track) error {
	query := `UPDATE tracks SET track_type = ?, visibility = ?, resource = ?, images = ?, meta = ?, updated_at = ? WHERE id = ?`
	stmt, err := r.DB.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for UpdateTrack: %w", err)
	}
	defer stmt.Close()

	resource, err := marshalJSON(track.Resource)
	if err != nil {
		return err
	}
	images, err := marshalJSON(track.Images)
	if err != nil {
		return err
	}
	meta, err := marshalJSON(track.Meta)
	if err != nil {
		return err
	}

	_, err = stmt.Exec(track.TrackType, track.Visibility, resource, images, meta, nowUnix(), track.ID)
	if err != nil {
		return fmt.Errorf("failed to execute UpdateTrack for track ID %s: %w", track.ID, err)
	}
	return nil
}

// DeleteTrackWithTx removes a track row inside an open transaction.
func (r *sqlTrackRepository) DeleteTrackWithTx(tx *sql.Tx, id uuid.UUID) error {
	_, err := tx.Exec(`DELETE FROM tracks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to execute DeleteTrack for track ID %s: %w", id, err)
	}
	return nil
}

// DeleteAllByUserIDWithTx removes every track owned by a user.
func (r *sqlTrackRepository) DeleteAllByUserIDWithTx(tx *sql.Tx, userID uuid.UUID) error {
	_, err := tx.Exec(`DELETE FROM tracks WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete tracks for user ID %s: %w", userID, err)
	}
	return nil
}

// CountByUserID returns the number of tracks owned by a user.
func (r *sqlTrackRepository) CountByUserID(userID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM tracks WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count tracks for user ID %s: %w", userID, err)
	}
	return count, nil
}

// BeginTx starts a new transaction.
func (r *sqlTrackRepository) BeginTx() (*sql.Tx, error) {
	return r.DB.Begin()
}

// RollbackTx rolls back a transaction.
func (r *sqlTrackRepository) RollbackTx(tx *sql.Tx) {
	if tx != nil {
		tx.Rollback()
	}
}

// CommitTx commits a transaction.
func (r *sqlTrackRepository) CommitTx(tx *sql.Tx) error {
	return tx.Commit()
}
