package repository

import (
	"database/sql"
	"fmt"
	"time"

	"Phonolib/db"
	"Phonolib/model"

	"github.com/google/uuid"
)

// RelationshipRepository defines the interface for relationship edge
// operations across the three edge partitions.
type RelationshipRepository interface {
	CreateRelationship(rel *model.Relationship) error
	CreateRelationshipWithTx(tx *sql.Tx, rel *model.Relationship) error
	GetRelationships(kind model.RelationKind, id uuid.UUID, direction model.Direction, relType string) ([]*model.Relationship, error)
	HasRelationship(kind model.RelationKind, id uuid.UUID, direction model.Direction, relType string) (bool, error)
	DeleteForEntityWithTx(tx *sql.Tx, kind model.RelationKind, id uuid.UUID) error
	DeleteAllByUserWithTx(tx *sql.Tx, userID uuid.UUID) error

	// Ordered collection membership (track-collection partition).
	MaxMembershipPosition(tx *sql.Tx, collectionID uuid.UUID) (int64, error)
	MembershipExists(trackID, collectionID uuid.UUID) (bool, error)
	GetMembershipEdges(collectionID uuid.UUID, desc bool) ([]*model.Relationship, error)
	DeleteMembership(trackID, collectionID uuid.UUID) (bool, error)
	CountMembers(collectionID uuid.UUID) (int64, error)
}

type sqlRelationshipRepository struct {
	DB *db.Database
}

// NewRelationshipRepository creates a new instance of
// sqlRelationshipRepository.
func NewRelationshipRepository(database *db.Database) RelationshipRepository {
	return &sqlRelationshipRepository{DB: database}
}

// edgeTable routes a relation kind to its partition table. Only the
// track-collection partition carries a position column.
func edgeTable(kind model.RelationKind) (table string, hasPosition bool, err error) {
	switch kind {
	case model.KindTrackTrack:
		return "track_track_relationships", false, nil
	case model.KindTrackCollection:
		return "track_collection_relationships", true, nil
	case model.KindCollectionCollection:
		return "collection_collection_relationships", false, nil
	default:
		return "", false, fmt.Errorf("unknown relation kind %q", kind)
	}
}

// CreateRelationship writes exactly one directional edge row.
func (r *sqlRelationshipRepository) CreateRelationship(rel *model.Relationship) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	if err := r.CreateRelationshipWithTx(tx, rel); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// CreateRelationshipWithTx writes one edge row inside an open
// transaction.
func (r *sqlRelationshipRepository) CreateRelationshipWithTx(tx *sql.Tx, rel *model.Relationship) error {
	table, hasPosition, err := edgeTable(rel.Kind)
	if err != nil {
		return err
	}
	meta, err := marshalJSON(rel.Meta)
	if err != nil {
		return err
	}
	now := nowUnix()

	var query string
	var args []any
	if hasPosition {
		query = `INSERT INTO ` + table + ` (id, source_id, target_id, relationship_type, meta, relationship_position, created_at, updated_at)
		           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
		args = []any{rel.ID, rel.SourceID, rel.TargetID, rel.RelationshipType, meta, rel.Position, now, now}
	} else {
		query = `INSERT INTO ` + table + ` (id, source_id, target_id, relationship_type, meta, created_at, updated_at)
		           VALUES (?, ?, ?, ?, ?, ?, ?)`
		args = []any{rel.ID, rel.SourceID, rel.TargetID, rel.RelationshipType, meta, now, now}
	}
	if _, err = tx.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to execute CreateRelationship on %s: %w", table, err)
	}
	return nil
}

// directionClause builds the WHERE fragment matching the entity's side
// of the edge.
func directionClause(direction model.Direction, id uuid.UUID) (string, []any) {
	switch direction {
	case model.DirectionTo:
		return "source_id = ?", []any{id}
	case model.DirectionFrom:
		return "target_id = ?", []any{id}
	default:
		return "(source_id = ? OR target_id = ?)", []any{id, id}
	}
}

// GetRelationships retrieves the edges touching an entity in the given
// direction. An empty relType matches every type.
func (r *sqlRelationshipRepository) GetRelationships(kind model.RelationKind, id uuid.UUID, direction model.Direction, relType string) ([]*model.Relationship, error) {
	table, hasPosition, err := edgeTable(kind)
	if err != nil {
		return nil, err
	}
	clause, args := directionClause(direction, id)
	query := `SELECT ` + edgeColumns(hasPosition) + ` FROM ` + table + ` WHERE ` + clause
	if relType != "" {
		query += ` AND relationship_type = ?`
		args = append(args, relType)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships on %s: %w", table, err)
	}
	defer rows.Close()
	return scanEdges(rows, kind, hasPosition)
}

// HasRelationship reports whether at least one matching edge exists.
func (r *sqlRelationshipRepository) HasRelationship(kind model.RelationKind, id uuid.UUID, direction model.Direction, relType string) (bool, error) {
	table, _, err := edgeTable(kind)
	if err != nil {
		return false, err
	}
	clause, args := directionClause(direction, id)
	query := `SELECT COUNT(*) FROM ` + table + ` WHERE ` + clause
	if relType != "" {
		query += ` AND relationship_type = ?`
		args = append(args, relType)
	}
	var count int64
	if err := r.DB.QueryRow(query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to count relationships on %s: %w", table, err)
	}
	return count > 0, nil
}

// DeleteForEntityWithTx removes every edge in one partition that touches
// the entity on either side.
func (r *sqlRelationshipRepository) DeleteForEntityWithTx(tx *sql.Tx, kind model.RelationKind, id uuid.UUID) error {
	table, _, err := edgeTable(kind)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`DELETE FROM `+table+` WHERE source_id = ? OR target_id = ?`, id, id)
	if err != nil {
		return fmt.Errorf("failed to delete relationships on %s for %s: %w", table, id, err)
	}
	return nil
}

// DeleteAllByUserWithTx removes every edge that references one of the
// user's tracks or collections. Edges carry no owner column, so the
// owner is resolved through the entity tables.
func (r *sqlRelationshipRepository) DeleteAllByUserWithTx(tx *sql.Tx, userID uuid.UUID) error {
	stmts := []string{
		`DELETE FROM track_track_relationships
		   WHERE source_id IN (SELECT id FROM tracks WHERE user_id = ?)
		      OR target_id IN (SELECT id FROM tracks WHERE user_id = ?)`,
		`DELETE FROM track_collection_relationships
		   WHERE source_id IN (SELECT id FROM tracks WHERE user_id = ?)
		      OR target_id IN (SELECT id FROM collections WHERE user_id = ?)`,
		`DELETE FROM collection_collection_relationships
		   WHERE source_id IN (SELECT id FROM collections WHERE user_id = ?)
		      OR target_id IN (SELECT id FROM collections WHERE user_id = ?)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, userID, userID); err != nil {
			return fmt.Errorf("failed to delete relationships for user %s: %w", userID, err)
		}
	}
	return nil
}

// MaxMembershipPosition returns the highest position in use inside a
// collection, or -1 when the collection is empty. Runs inside the
// caller's transaction; the scanned membership rows are locked where
// the dialect supports it, so two appends cannot read the same MAX and
// claim the same position.
func (r *sqlRelationshipRepository) MaxMembershipPosition(tx *sql.Tx, collectionID uuid.UUID) (int64, error) {
	var max int64
	err := tx.QueryRow(
		`SELECT COALESCE(MAX(relationship_position), -1) FROM track_collection_relationships WHERE target_id = ?`+r.DB.ForUpdate(),
		collectionID).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to query max membership position for collection %s: %w", collectionID, err)
	}
	return max, nil
}

// MembershipExists reports whether a track is already a member of a
// collection.
func (r *sqlRelationshipRepository) MembershipExists(trackID, collectionID uuid.UUID) (bool, error) {
	var count int64
	err := r.DB.QueryRow(
		`SELECT COUNT(*) FROM track_collection_relationships WHERE source_id = ? AND target_id = ?`,
		trackID, collectionID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check membership of track %s in collection %s: %w", trackID, collectionID, err)
	}
	return count > 0, nil
}

// GetMembershipEdges returns a collection's membership edges ordered by
// position.
func (r *sqlRelationshipRepository) GetMembershipEdges(collectionID uuid.UUID, desc bool) ([]*model.Relationship, error) {
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	query := `SELECT ` + edgeColumns(true) + ` FROM track_collection_relationships
	           WHERE target_id = ? ORDER BY relationship_position ` + dir
	rows, err := r.DB.Query(query, collectionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query membership edges for collection %s: %w", collectionID, err)
	}
	defer rows.Close()
	return scanEdges(rows, model.KindTrackCollection, true)
}

// DeleteMembership removes a track's membership edge. Positions of the
// remaining members are left untouched; ordering tolerates gaps.
func (r *sqlRelationshipRepository) DeleteMembership(trackID, collectionID uuid.UUID) (bool, error) {
	res, err := r.DB.Exec(
		`DELETE FROM track_collection_relationships WHERE source_id = ? AND target_id = ?`,
		trackID, collectionID)
	if err != nil {
		return false, fmt.Errorf("failed to delete membership of track %s in collection %s: %w", trackID, collectionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountMembers returns the number of tracks in a collection.
func (r *sqlRelationshipRepository) CountMembers(collectionID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB.QueryRow(
		`SELECT COUNT(*) FROM track_collection_relationships WHERE target_id = ?`,
		collectionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count members of collection %s: %w", collectionID, err)
	}
	return count, nil
}

func edgeColumns(hasPosition bool) string {
	if hasPosition {
		return "id, source_id, target_id, relationship_type, meta, relationship_position, created_at, updated_at"
	}
	return "id, source_id, target_id, relationship_type, meta, created_at, updated_at"
}

func scanEdges(rows *sql.Rows, kind model.RelationKind, hasPosition bool) ([]*model.Relationship, error) {
	edges := make([]*model.Relationship, 0)
	for rows.Next() {
		var (
			rel                  model.Relationship
			meta                 sql.NullString
			createdAt, updatedAt int64
		)
		var err error
		if hasPosition {
			err = rows.Scan(&rel.ID, &rel.SourceID, &rel.TargetID, &rel.RelationshipType,
				&meta, &rel.Position, &createdAt, &updatedAt)
		} else {
			err = rows.Scan(&rel.ID, &rel.SourceID, &rel.TargetID, &rel.RelationshipType,
				&meta, &createdAt, &updatedAt)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan relationship row: %w", err)
		}
		if err := unmarshalJSON(meta, &rel.Meta); err != nil {
			return nil, err
		}
		rel.Kind = kind
		rel.CreatedAt = time.Unix(createdAt, 0).UTC()
		rel.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		edges = append(edges, &rel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during relationship rows iteration: %w", err)
	}
	return edges, nil
}
