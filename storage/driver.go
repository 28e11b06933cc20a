package storage

import (
	"context"
	"io"

	"Phonolib/model"
)

// Driver performs physical byte storage for library resources,
// independent of the structured metadata kept in the database. All
// implementations must satisfy identical semantics; the query and
// relationship engines never depend on a concrete driver.
//
// Resources whose location is "original" are read-only to this
// component; the engine never routes them into Store or Remove.
type Driver interface {
	// InitUser prepares storage for a user (directory, bucket prefix).
	InitUser(ctx context.Context, userID string) error

	// GenerateFilename returns a fresh unique file name with the given
	// extension for the user's storage area.
	GenerateFilename(filetype, userID string) string

	// Store copies the file at srcPath into managed storage under
	// fileName and returns the stored name.
	Store(ctx context.Context, srcPath, fileName, userID string) (string, error)

	// StoreBytes writes raw data into managed storage under fileName.
	StoreBytes(ctx context.Context, data []byte, fileName, userID string) (string, error)

	// Open returns a reader over a stored file. The caller closes it.
	Open(ctx context.Context, fileName, userID string) (io.ReadCloser, error)

	// Remove deletes a stored file.
	Remove(ctx context.Context, fileName, userID string) error

	// Exists reports whether a stored file is present.
	Exists(ctx context.Context, fileName, userID string) (bool, error)

	// List returns the names of all files stored for the user.
	List(ctx context.Context, userID string) ([]string, error)

	// Path returns the directory or key prefix component for a stored
	// name; Name returns the bare file name.
	Path(src, userID string) string
	Name(src, userID string) string

	// Location reports the resource location this driver produces.
	Location() model.ResourceLocation
}
