package repository

import (
	"database/sql"
	"fmt"
	"time"

	"Phonolib/db"
	"Phonolib/model"

	"github.com/google/uuid"
)

// BlobRepository defines the interface for blob record operations. The
// payload itself lives in the storage driver; only the record is here.
type BlobRepository interface {
	CreateBlob(blob *model.Blob) error
	GetBlobByID(id uuid.UUID) (*model.Blob, error)
	GetBlobsByUserID(userID uuid.UUID) ([]*model.Blob, error)
	DeleteBlob(id uuid.UUID) (bool, error)
	DeleteAllByUserWithTx(tx *sql.Tx, userID uuid.UUID) error
}

type sqlBlobRepository struct {
	DB *db.Database
}

// NewBlobRepository creates a new instance of sqlBlobRepository.
func NewBlobRepository(database *db.Database) BlobRepository {
	return &sqlBlobRepository{DB: database}
}

const blobColumns = "id, user_id, visibility, resource, created_at, updated_at"

// CreateBlob adds a new blob record to the database.
func (r *sqlBlobRepository) CreateBlob(blob *model.Blob) error {
	query := `INSERT INTO blobs (id, user_id, visibility, resource, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?)`
	stmt, err := r.DB.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for CreateBlob: %w", err)
	}
	defer stmt.Close()

	resource, err := marshalJSON(blob.Resource)
	if err != nil {
		return err
	}
	now := nowUnix()
	_, err = stmt.Exec(blob.ID, blob.UserID, blob.Visibility, resource, now, now)
	if err != nil {
		return fmt.Errorf("failed to execute CreateBlob: %w", err)
	}
	return nil
}

// GetBlobByID retrieves a blob record by its ID.
func (r *sqlBlobRepository) GetBlobByID(id uuid.UUID) (*model.Blob, error) {
	query := `SELECT ` + blobColumns + ` FROM blobs WHERE id = ?`
	blob, err := scanBlob(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Blob not found
		}
		return nil, fmt.Errorf("failed to scan blob by ID %s: %w", id, err)
	}
	return blob, nil
}

// GetBlobsByUserID retrieves all blob records of a user.
func (r *sqlBlobRepository) GetBlobsByUserID(userID uuid.UUID) ([]*model.Blob, error) {
	query := `SELECT ` + blobColumns + ` FROM blobs WHERE user_id = ? ORDER BY created_at ASC`
	rows, err := r.DB.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query blobs for user %s: %w", userID, err)
	}
	defer rows.Close()

	blobs := make([]*model.Blob, 0)
	for rows.Next() {
		blob, err := scanBlob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan blob row: %w", err)
		}
		blobs = append(blobs, blob)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during blob rows iteration: %w", err)
	}
	return blobs, nil
}

// DeleteBlob removes a blob record.
func (r *sqlBlobRepository) DeleteBlob(id uuid.UUID) (bool, error) {
	res, err := r.DB.Exec(`DELETE FROM blobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to execute DeleteBlob for blob ID %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteAllByUserWithTx removes every blob record owned by a user.
func (r *sqlBlobRepository) DeleteAllByUserWithTx(tx *sql.Tx, userID uuid.UUID) error {
	_, err := tx.Exec(`DELETE FROM blobs WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete blobs for user %s: %w", userID, err)
	}
	return nil
}

func scanBlob(row RowScanner) (*model.Blob, error) {
	var (
		blob                 model.Blob
		resource             sql.NullString
		createdAt, updatedAt int64
	)
	err := row.Scan(&blob.ID, &blob.UserID, &blob.Visibility, &resource, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSON(resource, &blob.Resource); err != nil {
		return nil, err
	}
	blob.CreatedAt = time.Unix(createdAt, 0).UTC()
	blob.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &blob, nil
}
