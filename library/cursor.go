package library

import (
	"database/sql"

	"Phonolib/model"
)

// TrackCursor is a lazy, single-pass, non-restartable sequence of
// tracks. The underlying rows handle is a scoped resource: it is
// released when iteration completes, when Close is called after early
// abandonment, and when a scan error occurs. Close is idempotent.
type TrackCursor struct {
	rows      *sql.Rows
	scan      func(*sql.Rows) (*model.Track, error)
	chunkSize int
	closed    bool
	err       error
}

// NewTrackCursor wraps an open rows handle. The scan function turns the
// current row into a track; chunkSize sizes NextChunk batches.
func NewTrackCursor(rows *sql.Rows, chunkSize int, scan func(*sql.Rows) (*model.Track, error)) *TrackCursor {
	if chunkSize < 1 {
		chunkSize = 1
	}
	return &TrackCursor{rows: rows, scan: scan, chunkSize: chunkSize}
}

// Next returns the next track, or (nil, false) when the sequence is
// exhausted or failed. The cursor closes itself on both.
func (c *TrackCursor) Next() (*model.Track, bool) {
	if c.closed {
		return nil, false
	}
	if !c.rows.Next() {
		c.err = c.rows.Err()
		c.Close()
		return nil, false
	}
	track, err := c.scan(c.rows)
	if err != nil {
		c.err = err
		c.Close()
		return nil, false
	}
	return track, true
}

// NextChunk returns up to chunkSize tracks. The second result is false
// once the sequence is exhausted and no tracks remain.
func (c *TrackCursor) NextChunk() ([]*model.Track, bool) {
	chunk := make([]*model.Track, 0, c.chunkSize)
	for len(chunk) < c.chunkSize {
		track, ok := c.Next()
		if !ok {
			break
		}
		chunk = append(chunk, track)
	}
	return chunk, len(chunk) > 0
}

// Err returns the first error encountered during iteration, if any.
func (c *TrackCursor) Err() error {
	return c.err
}

// Close releases the underlying rows handle. Safe to call repeatedly
// and safe to defer immediately after opening the cursor.
func (c *TrackCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rows.Close()
}
