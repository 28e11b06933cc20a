package repository

import (
	"database/sql"
	"fmt"
	"time"

	"Phonolib/db"
	"Phonolib/model"

	"github.com/google/uuid"
)

// PluginDataRepository defines the interface for plugin data ledger
// operations.
type PluginDataRepository interface {
	CreatePluginDataWithTx(tx *sql.Tx, pd *model.PluginData) error
	// FindLatestWithTx returns the newest row for an exact fact tuple,
	// or nil when the fact has never been recorded. Runs inside the
	// caller's transaction so a replace decision stays atomic.
	FindLatestWithTx(tx *sql.Tx, trackID, userID uuid.UUID, pluginName, pluginVersion, key string) (*model.PluginData, error)
	UpdateValueWithTx(tx *sql.Tx, id uuid.UUID, value string) error
	QueryPluginData(trackID, userID uuid.UUID, pluginName, pluginVersion, key string) ([]*model.PluginData, error)
	DeleteByTrackWithTx(tx *sql.Tx, trackID uuid.UUID) error
	DeleteAllByUserWithTx(tx *sql.Tx, userID uuid.UUID) error
	CountByTrack(trackID uuid.UUID) (int64, error)
}

type sqlPluginDataRepository struct {
	DB *db.Database
}

// NewPluginDataRepository creates a new instance of
// sqlPluginDataRepository.
func NewPluginDataRepository(database *db.Database) PluginDataRepository {
	return &sqlPluginDataRepository{DB: database}
}

const pluginDataColumns = "id, track_id, user_id, plugin_name, plugin_version, data_key, data_value, created_at, updated_at"

// CreatePluginDataWithTx appends a new ledger row.
func (r *sqlPluginDataRepository) CreatePluginDataWithTx(tx *sql.Tx, pd *model.PluginData) error {
	query := `INSERT INTO plugin_data (id, track_id, user_id, plugin_name, plugin_version, data_key, data_value, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for CreatePluginData: %w", err)
	}
	defer stmt.Close()

	now := nowUnix()
	_, err = stmt.Exec(pd.ID, pd.TrackID, pd.UserID, pd.PluginName, pd.PluginVersion, pd.Key, pd.Value, now, now)
	if err != nil {
		return fmt.Errorf("failed to execute CreatePluginData: %w", err)
	}
	return nil
}

// FindLatestWithTx returns the newest row matching the full fact tuple.
func (r *sqlPluginDataRepository) FindLatestWithTx(tx *sql.Tx, trackID, userID uuid.UUID, pluginName, pluginVersion, key string) (*model.PluginData, error) {
	query := `SELECT ` + pluginDataColumns + ` FROM plugin_data
	           WHERE track_id = ? AND user_id = ? AND plugin_name = ? AND plugin_version = ? AND data_key = ?
	           ORDER BY created_at DESC, id DESC LIMIT 1`
	pd, err := scanPluginData(tx.QueryRow(query, trackID, userID, pluginName, pluginVersion, key))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan latest plugin data row: %w", err)
	}
	return pd, nil
}

// UpdateValueWithTx overwrites the value of an existing ledger row.
func (r *sqlPluginDataRepository) UpdateValueWithTx(tx *sql.Tx, id uuid.UUID, value string) error {
	_, err := tx.Exec(`UPDATE plugin_data SET data_value = ?, updated_at = ? WHERE id = ?`, value, nowUnix(), id)
	if err != nil {
		return fmt.Errorf("failed to update plugin data value for ID %s: %w", id, err)
	}
	return nil
}

// QueryPluginData retrieves ledger rows for a track, narrowed by every
// non-empty field.
func (r *sqlPluginDataRepository) QueryPluginData(trackID, userID uuid.UUID, pluginName, pluginVersion, key string) ([]*model.PluginData, error) {
	query := `SELECT ` + pluginDataColumns + ` FROM plugin_data WHERE track_id = ?`
	args := []any{trackID}
	if userID != uuid.Nil {
		query += ` AND user_id = ?`
		args = append(args, userID)
	}
	if pluginName != "" {
		query += ` AND plugin_name = ?`
		args = append(args, pluginName)
	}
	if pluginVersion != "" {
		query += ` AND plugin_version = ?`
		args = append(args, pluginVersion)
	}
	if key != "" {
		query += ` AND data_key = ?`
		args = append(args, key)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query plugin data: %w", err)
	}
	defer rows.Close()

	out := make([]*model.PluginData, 0)
	for rows.Next() {
		pd, err := scanPluginData(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plugin data row: %w", err)
		}
		out = append(out, pd)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during plugin data rows iteration: %w", err)
	}
	return out, nil
}

// DeleteByTrackWithTx removes every ledger row of a track.
func (r *sqlPluginDataRepository) DeleteByTrackWithTx(tx *sql.Tx, trackID uuid.UUID) error {
	_, err := tx.Exec(`DELETE FROM plugin_data WHERE track_id = ?`, trackID)
	if err != nil {
		return fmt.Errorf("failed to delete plugin data for track %s: %w", trackID, err)
	}
	return nil
}

// DeleteAllByUserWithTx removes every ledger row recorded for a user.
func (r *sqlPluginDataRepository) DeleteAllByUserWithTx(tx *sql.Tx, userID uuid.UUID) error {
	_, err := tx.Exec(`DELETE FROM plugin_data WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete plugin data for user %s: %w", userID, err)
	}
	return nil
}

// CountByTrack returns the number of ledger rows attached to a track.
func (r *sqlPluginDataRepository) CountByTrack(trackID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB.QueryRow(`SELECT COUNT(*) FROM plugin_data WHERE track_id = ?`, trackID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count plugin data for track %s: %w", trackID, err)
	}
	return count, nil
}

func scanPluginData(row RowScanner) (*model.PluginData, error) {
	var (
		pd                   model.PluginData
		value                sql.NullString
		createdAt, updatedAt int64
	)
	err := row.Scan(&pd.ID, &pd.TrackID, &pd.UserID, &pd.PluginName, &pd.PluginVersion,
		&pd.Key, &value, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	pd.Value = value.String
	pd.CreatedAt = time.Unix(createdAt, 0).UTC()
	pd.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &pd, nil
}
