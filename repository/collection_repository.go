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

// CollectionRepository defines the interface for collection data
// operations.
type CollectionRepository interface {
	CreateCollection(col *model.Collection) error
	CreateCollectionWithTx(tx *sql.Tx, col *model.Collection) error
	GetCollectionByID(id uuid.UUID) (*model.Collection, error)
	GetCollectionsByUserID(userID uuid.UUID, orderBy string, desc bool, limit, offset int) ([]*model.Collection, error)
	FindCollections(value string, collectionTypes []string, userID uuid.UUID, orderBy string, desc bool, limit, offset int) ([]*model.Collection, error)
	UpdateCollection(col *model.Collection) error
	DeleteCollectionWithTx(tx *sql.Tx, id uuid.UUID) error
	DeleteAllByUserIDWithTx(tx *sql.Tx, userID uuid.UUID) error
}

type sqlCollectionRepository struct {
	DB *db.Database
}

// NewCollectionRepository creates a new instance of
// sqlCollectionRepository.
func NewCollectionRepository(database *db.Database) CollectionRepository {
	return &sqlCollectionRepository{DB: database}
}

// collectionOrderColumns whitelists sortable columns for listings.
var collectionOrderColumns = map[string]string{
	"name":            "name",
	"collection_type": "collection_type",
	"created_at":      "created_at",
	"updated_at":      "updated_at",
}

func collectionOrderClause(orderBy string, desc bool) string {
	col, ok := collectionOrderColumns[orderBy]
	if !ok {
		col = "created_at"
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s", col, dir)
}

// CreateCollection adds a new collection to the database.
func (r *sqlCollectionRepository) CreateCollection(col *model.Collection) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	if err := r.CreateCollectionWithTx(tx, col); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// CreateCollectionWithTx adds a new collection inside an open
// transaction.
func (r *sqlCollectionRepository) CreateCollectionWithTx(tx *sql.Tx, col *model.Collection) error {
	query := `INSERT INTO collections (id, user_id, name, description, collection_type, visibility, meta, created_at, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for CreateCollection: %w", err)
	}
	defer stmt.Close()

	meta, err := marshalJSON(col.Meta)
	if err != nil {
		return err
	}
	now := nowUnix()
	_, err = stmt.Exec(col.ID, col.UserID, col.Name, col.Description, col.CollectionType,
		col.Visibility, meta, now, now)
	if err != nil {
		return fmt.Errorf("failed to execute CreateCollection: %w", err)
	}
	logger.Debug("collection created", zap.String("collectionId", col.ID.String()), zap.String("name", col.Name))
	return nil
}

// GetCollectionByID retrieves a collection by its ID.
func (r *sqlCollectionRepository) GetCollectionByID(id uuid.UUID) (*model.Collection, error) {
	query := `SELECT ` + CollectionColumns + ` FROM collections WHERE id = ?`
	col, err := ScanCollection(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Collection not found
		}
		return nil, fmt.Errorf("failed to scan collection by ID %s: %w", id, err)
	}
	return col, nil
}

// GetCollectionsByUserID retrieves all collections of a user. Soft
// deleted collections stay out of listings, like deleted tracks stay
// out of the filter engine.
func (r *sqlCollectionRepository) GetCollectionsByUserID(userID uuid.UUID, orderBy string, desc bool, limit, offset int) ([]*model.Collection, error) {
	query := `SELECT ` + CollectionColumns + ` FROM collections WHERE user_id = ? AND visibility != 'deleted'` +
		collectionOrderClause(orderBy, desc)
	args := []any{userID}
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}
	return r.queryCollections(query, args...)
}

// FindCollections retrieves collections whose name or description
// contains the given value, case-insensitively.
func (r *sqlCollectionRepository) FindCollections(value string, collectionTypes []string, userID uuid.UUID, orderBy string, desc bool, limit, offset int) ([]*model.Collection, error) {
	query := `SELECT ` + CollectionColumns + ` FROM collections WHERE user_id = ? AND visibility != 'deleted'`
	args := []any{userID}
	if value != "" {
		query += ` AND (LOWER(name) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?))`
		pattern := "%" + value + "%"
		args = append(args, pattern, pattern)
	}
	if len(collectionTypes) > 0 {
		query += ` AND collection_type IN (?` + strings.Repeat(", ?", len(collectionTypes)-1) + `)`
		for _, ct := range collectionTypes {
			args = append(args, ct)
		}
	}
	query += collectionOrderClause(orderBy, desc)
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}
	return r.queryCollections(query, args...)
}

func (r *sqlCollectionRepository) queryCollections(query string, args ...any) ([]*model.Collection, error) {
	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	cols := make([]*model.Collection, 0)
	for rows.Next() {
		col, err := ScanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collection row: %w", err)
		}
		cols = append(cols, col)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during collection rows iteration: %w", err)
	}
	return cols, nil
}

// UpdateCollection persists the mutable fields of a collection.
func (r *sqlCollectionRepository) UpdateCollection(col *model.Collection) error {
	query := `UPDATE collections SET name = ?, description = ?, collection_type = ?, visibility = ?, meta = ?, updated_at = ? WHERE id = ?`
	stmt, err := r.DB.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for UpdateCollection: %w", err)
	}
	defer stmt.Close()

	meta, err := marshalJSON(col.Meta)
	if err != nil {
		return err
	}
	_, err = stmt.Exec(col.Name, col.Description, col.CollectionType, col.Visibility, meta, nowUnix(), col.ID)
	if err != nil {
		return fmt.Errorf("failed to execute UpdateCollection for collection ID %s: %w", col.ID, err)
	}
	return nil
}

// DeleteCollectionWithTx removes a collection row inside an open
// transaction.
func (r *sqlCollectionRepository) DeleteCollectionWithTx(tx *sql.Tx, id uuid.UUID) error {
	_, err := tx.Exec(`DELETE FROM collections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to execute DeleteCollection for collection ID %s: %w", id, err)
	}
	return nil
}

// DeleteAllByUserIDWithTx removes every collection owned by a user.
func (r *sqlCollectionRepository) DeleteAllByUserIDWithTx(tx *sql.Tx, userID uuid.UUID) error {
	_, err := tx.Exec(`DELETE FROM collections WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete collections for user ID %s: %w", userID, err)
	}
	return nil
}
