package library

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"Phonolib/library"
	"Phonolib/model"
	"Phonolib/repository"

	"github.com/google/uuid"
)

// trackOrderColumns whitelists plain sortable columns. "collection" and
// "random" are handled separately.
var trackOrderColumns = map[string]string{
	"created_at": "t.created_at",
	"updated_at": "t.updated_at",
	"track_type": "t.track_type",
	"visibility": "t.visibility",
}

// buildTrackQuery turns a TrackQuery into one SQL statement. All
// populated parts combine with AND; plugin-data predicates become
// EXISTS subqueries so each predicate may be satisfied by a different
// ledger row.
func (e *Engine) buildTrackQuery(q library.TrackQuery, restrictIDs []uuid.UUID) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(trackColumnsAliased())
	sb.WriteString(" FROM tracks t WHERE t.visibility != 'deleted'")
	var args []any

	if q.UserID != uuid.Nil {
		sb.WriteString(" AND t.user_id = ?")
		args = append(args, q.UserID)
	}
	if len(q.TrackTypes) > 0 {
		sb.WriteString(" AND t.track_type IN (?")
		sb.WriteString(strings.Repeat(", ?", len(q.TrackTypes)-1))
		sb.WriteString(")")
		for _, tt := range q.TrackTypes {
			args = append(args, tt)
		}
	}
	if len(restrictIDs) > 0 {
		sb.WriteString(" AND t.id IN (?")
		sb.WriteString(strings.Repeat(", ?", len(restrictIDs)-1))
		sb.WriteString(")")
		for _, id := range restrictIDs {
			args = append(args, id)
		}
	}
	if q.CollectionID != uuid.Nil {
		sb.WriteString(" AND EXISTS (SELECT 1 FROM track_collection_relationships tc WHERE tc.source_id = t.id AND tc.target_id = ?)")
		args = append(args, q.CollectionID)
	}

	for _, f := range q.Filters {
		clause, clauseArgs, err := pluginDataClause(f, q.PluginNames)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(clause)
		args = append(args, clauseArgs...)
	}
	if len(q.Filters) == 0 && len(q.PluginNames) > 0 {
		sb.WriteString(" AND EXISTS (SELECT 1 FROM plugin_data pd WHERE pd.track_id = t.id AND pd.plugin_name IN (?")
		sb.WriteString(strings.Repeat(", ?", len(q.PluginNames)-1))
		sb.WriteString("))")
		for _, name := range q.PluginNames {
			args = append(args, name)
		}
	}

	for _, token := range q.SearchMeta {
		if token == "" {
			continue
		}
		sb.WriteString(" AND (LOWER(COALESCE(t.meta, '')) LIKE LOWER(?) OR LOWER(COALESCE(t.resource, '')) LIKE LOWER(?))")
		pattern := "%" + token + "%"
		args = append(args, pattern, pattern)
	}

	orderClause, orderArgs, err := e.trackOrderClause(q)
	if err != nil {
		return "", nil, err
	}
	sb.WriteString(orderClause)
	args = append(args, orderArgs...)

	if q.Limit > 0 {
		sb.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, q.Limit, q.Offset)
	}
	return sb.String(), args, nil
}

func trackColumnsAliased() string {
	cols := strings.Split(repository.TrackColumns, ", ")
	for i, c := range cols {
		cols[i] = "t." + c
	}
	return strings.Join(cols, ", ")
}

// pluginDataClause builds the EXISTS predicate for one plugin-data
// filter. Exactly one of the three match modes must be populated.
func pluginDataClause(f library.PluginDataFilter, pluginNames []string) (string, []any, error) {
	if f.Key == "" {
		return "", nil, &model.ValidationError{Message: "plugin data filter requires a key"}
	}
	modes := 0
	if f.Min != nil || f.Max != nil {
		modes++
	}
	if len(f.OneOf) > 0 {
		modes++
	}
	if f.Match != "" {
		modes++
	}
	if modes != 1 {
		return "", nil, &model.ValidationError{Message: fmt.Sprintf("plugin data filter on %q must use exactly one match mode", f.Key)}
	}

	var sb strings.Builder
	sb.WriteString(" AND EXISTS (SELECT 1 FROM plugin_data pd WHERE pd.track_id = t.id AND pd.data_key = ?")
	args := []any{f.Key}

	switch {
	case f.Min != nil && f.Max != nil:
		sb.WriteString(" AND (pd.data_value + 0.0) >= ? AND (pd.data_value + 0.0) <= ?")
		args = append(args, *f.Min, *f.Max)
	case f.Min != nil:
		sb.WriteString(" AND (pd.data_value + 0.0) >= ?")
		args = append(args, *f.Min)
	case f.Max != nil:
		sb.WriteString(" AND (pd.data_value + 0.0) <= ?")
		args = append(args, *f.Max)
	case len(f.OneOf) > 0:
		sb.WriteString(" AND pd.data_value IN (?")
		sb.WriteString(strings.Repeat(", ?", len(f.OneOf)-1))
		sb.WriteString(")")
		for _, v := range f.OneOf {
			args = append(args, v)
		}
	default:
		sb.WriteString(" AND LOWER(pd.data_value) LIKE LOWER(?)")
		args = append(args, "%"+f.Match+"%")
	}

	if len(pluginNames) > 0 {
		sb.WriteString(" AND pd.plugin_name IN (?")
		sb.WriteString(strings.Repeat(", ?", len(pluginNames)-1))
		sb.WriteString(")")
		for _, name := range pluginNames {
			args = append(args, name)
		}
	}
	sb.WriteString(")")
	return sb.String(), args, nil
}

// trackOrderClause resolves the OrderBy field. "collection" orders by
// membership position and requires CollectionID; "random" uses the
// dialect's random function; anything else must be whitelisted.
func (e *Engine) trackOrderClause(q library.TrackQuery) (string, []any, error) {
	dir := "ASC"
	if q.Order == library.OrderDesc {
		dir = "DESC"
	}
	// Timestamps have second resolution, so the id breaks ties to keep
	// result order deterministic across runs.
	switch q.OrderBy {
	case "":
		return " ORDER BY t.created_at " + dir + ", t.id ASC", nil, nil
	case "random":
		return " ORDER BY " + e.db.Random(), nil, nil
	case "collection":
		if q.CollectionID == uuid.Nil {
			return "", nil, &model.ValidationError{Message: "ordering by collection position requires a collection id"}
		}
		return " ORDER BY (SELECT tc.relationship_position FROM track_collection_relationships tc WHERE tc.source_id = t.id AND tc.target_id = ?) " + dir,
			[]any{q.CollectionID}, nil
	default:
		col, ok := trackOrderColumns[q.OrderBy]
		if !ok {
			return "", nil, &model.ValidationError{Message: fmt.Sprintf("unknown order field %q", q.OrderBy)}
		}
		return " ORDER BY " + col + " " + dir + ", t.id ASC", nil, nil
	}
}

// FilterTracks runs the composed query and materializes the full result
// set.
func (e *Engine) FilterTracks(ctx context.Context, q library.TrackQuery) ([]*model.Track, error) {
	return e.filterTracks(ctx, q, nil)
}

func (e *Engine) filterTracks(ctx context.Context, q library.TrackQuery, restrictIDs []uuid.UUID) ([]*model.Track, error) {
	query, args, err := e.buildTrackQuery(q, restrictIDs)
	if err != nil {
		return nil, err
	}
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run track filter query: %w", err)
	}
	defer rows.Close()

	tracks := make([]*model.Track, 0)
	for rows.Next() {
		track, err := repository.ScanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan filtered track: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during filtered track iteration: %w", err)
	}
	if q.LoadRelated {
		for _, track := range tracks {
			edges, err := e.relationships.GetRelationships(model.KindTrackTrack, track.ID, model.DirectionTo, "")
			if err != nil {
				return nil, err
			}
			track.RelatedTracks = edges
		}
	}
	return tracks, nil
}

// FilterTracksStream runs the same query as FilterTracks but hands back
// a lazy cursor instead of a slice. The caller owns the cursor and must
// drain or close it; both sides yield identical track sequences.
func (e *Engine) FilterTracksStream(ctx context.Context, q library.TrackQuery) (*library.TrackCursor, error) {
	query, args, err := e.buildTrackQuery(q, nil)
	if err != nil {
		return nil, err
	}
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run track filter query: %w", err)
	}
	return library.NewTrackCursor(rows, e.cfg.StreamChunkSize, func(r *sql.Rows) (*model.Track, error) {
		return repository.ScanTrack(r)
	}), nil
}

// ForEachTrack runs the query in the configured execution mode and
// hands every result to fn. With stream_mode set it iterates a cursor
// so memory stays bounded by the chunk size; otherwise the result set
// is materialized first. Both modes visit the same tracks in the same
// order. A non-nil error from fn stops the iteration.
func (e *Engine) ForEachTrack(ctx context.Context, q library.TrackQuery, fn func(*model.Track) error) error {
	if e.cfg.StreamMode {
		cursor, err := e.FilterTracksStream(ctx, q)
		if err != nil {
			return err
		}
		defer cursor.Close()
		for {
			track, ok := cursor.Next()
			if !ok {
				return cursor.Err()
			}
			if err := fn(track); err != nil {
				return err
			}
		}
	}

	tracks, err := e.FilterTracks(ctx, q)
	if err != nil {
		return err
	}
	for _, track := range tracks {
		if err := fn(track); err != nil {
			return err
		}
	}
	return nil
}

// FindTracks is full-text convenience search: the value must occur in
// the track's meta or resource text.
func (e *Engine) FindTracks(ctx context.Context, value string, userID uuid.UUID, opts library.ListOptions) ([]*model.Track, error) {
	q := library.TrackQuery{
		UserID:  e.resolveUser(userID),
		OrderBy: opts.OrderBy,
		Order:   opts.Order,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	}
	if value != "" {
		q.SearchMeta = []string{value}
	}
	return e.FilterTracks(ctx, q)
}

// FilterRelatedTracks applies the full filter pipeline to the tracks
// related to the given one.
func (e *Engine) FilterRelatedTracks(ctx context.Context, trackID uuid.UUID, direction model.Direction, q library.TrackQuery) ([]*model.Track, error) {
	ids, err := e.relatedTrackIDs(trackID, direction)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*model.Track{}, nil
	}
	return e.filterTracks(ctx, q, ids)
}

// relatedTrackIDs resolves the neighbor ids of a track over the
// track-track partition.
func (e *Engine) relatedTrackIDs(trackID uuid.UUID, direction model.Direction) ([]uuid.UUID, error) {
	edges, err := e.relationships.GetRelationships(model.KindTrackTrack, trackID, direction, "")
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(edges))
	seen := make(map[uuid.UUID]bool, len(edges))
	for _, edge := range edges {
		neighbor := edge.TargetID
		if neighbor == trackID {
			neighbor = edge.SourceID
		}
		if !seen[neighbor] {
			seen[neighbor] = true
			ids = append(ids, neighbor)
		}
	}
	return ids, nil
}
