package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"Phonolib/model"
)

// RowScanner is satisfied by both *sql.Row and *sql.Rows, so the same
// scan helpers serve single-row and multi-row queries.
type RowScanner interface {
	Scan(dest ...any) error
}

// TrackColumns is the canonical column list for track queries. Dynamic
// query builders select these so ScanTrack can decode the rows.
const TrackColumns = "id, user_id, track_type, visibility, resource, images, meta, created_at, updated_at"

// CollectionColumns is the canonical column list for collection queries.
const CollectionColumns = "id, user_id, name, description, collection_type, visibility, meta, created_at, updated_at"

func marshalJSON(v any) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal json column: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func unmarshalJSON(raw sql.NullString, dest any) error {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw.String), dest); err != nil {
		return fmt.Errorf("failed to unmarshal json column: %w", err)
	}
	return nil
}

// ScanTrack decodes one row of TrackColumns into a track.
func ScanTrack(row RowScanner) (*model.Track, error) {
	var (
		track                  model.Track
		resource, images, meta sql.NullString
		createdAt, updatedAt   int64
	)
	err := row.Scan(&track.ID, &track.UserID, &track.TrackType, &track.Visibility,
		&resource, &images, &meta, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSON(resource, &track.Resource); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(images, &track.Images); err != nil {
		return nil, err
	}
	if err := unmarshalJSON(meta, &track.Meta); err != nil {
		return nil, err
	}
	track.CreatedAt = time.Unix(createdAt, 0).UTC()
	track.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &track, nil
}

// ScanCollection decodes one row of CollectionColumns into a collection.
func ScanCollection(row RowScanner) (*model.Collection, error) {
	var (
		col                  model.Collection
		description, meta    sql.NullString
		createdAt, updatedAt int64
	)
	err := row.Scan(&col.ID, &col.UserID, &col.Name, &description, &col.CollectionType,
		&col.Visibility, &meta, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	col.Description = description.String
	if err := unmarshalJSON(meta, &col.Meta); err != nil {
		return nil, err
	}
	col.CreatedAt = time.Unix(createdAt, 0).UTC()
	col.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &col, nil
}

func nowUnix() int64 {
	return time.Now().Unix()
}
