package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"Phonolib/model"

	"github.com/google/uuid"
)

// LocalDriver stores library files on the local filesystem, one
// subdirectory per user under the configured library path.
type LocalDriver struct {
	basePath string
}

// NewLocalDriver creates a local filesystem driver rooted at basePath.
func NewLocalDriver(basePath string) (*LocalDriver, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create library directory %s: %w", basePath, err)
	}
	return &LocalDriver{basePath: basePath}, nil
}

func (d *LocalDriver) userDir(userID string) string {
	return filepath.Join(d.basePath, userID)
}

// InitUser creates the user's library directory.
func (d *LocalDriver) InitUser(_ context.Context, userID string) error {
	if err := os.MkdirAll(d.userDir(userID), 0755); err != nil {
		return fmt.Errorf("failed to init storage for user %s: %w", userID, err)
	}
	return nil
}

// GenerateFilename returns a fresh UUID-based file name.
func (d *LocalDriver) GenerateFilename(filetype, _ string) string {
	return uuid.New().String() + "." + filetype
}

// Store copies srcPath into the user's library directory.
func (d *LocalDriver) Store(ctx context.Context, srcPath, fileName, userID string) (string, error) {
	if err := d.InitUser(ctx, userID); err != nil {
		return "", err
	}
	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to open source file %s: %w", srcPath, err)
	}
	defer src.Close()

	dstPath := filepath.Join(d.userDir(userID), fileName)
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create library file %s: %w", dstPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(dstPath)
		return "", fmt.Errorf("failed to copy %s into library: %w", srcPath, err)
	}
	return fileName, nil
}

// StoreBytes writes data into the user's library directory.
func (d *LocalDriver) StoreBytes(ctx context.Context, data []byte, fileName, userID string) (string, error) {
	if err := d.InitUser(ctx, userID); err != nil {
		return "", err
	}
	dstPath := filepath.Join(d.userDir(userID), fileName)
	if err := os.WriteFile(dstPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write library file %s: %w", dstPath, err)
	}
	return fileName, nil
}

// Open returns a reader over a stored file.
func (d *LocalDriver) Open(_ context.Context, fileName, userID string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(d.userDir(userID), fileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open library file %s: %w", fileName, err)
	}
	return f, nil
}

// Remove deletes a stored file.
func (d *LocalDriver) Remove(_ context.Context, fileName, userID string) error {
	if err := os.Remove(filepath.Join(d.userDir(userID), fileName)); err != nil {
		return fmt.Errorf("failed to remove library file %s: %w", fileName, err)
	}
	return nil
}

// Exists reports whether a stored file is present.
func (d *LocalDriver) Exists(_ context.Context, fileName, userID string) (bool, error) {
	_, err := os.Stat(filepath.Join(d.userDir(userID), fileName))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List returns the names of all files stored for the user.
func (d *LocalDriver) List(_ context.Context, userID string) ([]string, error) {
	entries, err := os.ReadDir(d.userDir(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list library files: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Path returns the user's library directory.
func (d *LocalDriver) Path(_, userID string) string {
	return d.userDir(userID)
}

// Name returns the bare file name of a stored path.
func (d *LocalDriver) Name(src, _ string) string {
	return filepath.Base(src)
}

// Location reports that this driver produces local resources.
func (d *LocalDriver) Location() model.ResourceLocation {
	return model.LocationLocal
}
