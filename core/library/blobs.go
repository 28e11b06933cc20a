package library

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"Phonolib/model"

	"github.com/google/uuid"
)

// StoreBlob copies an arbitrary file into managed storage and records
// it as a blob.
func (e *Engine) StoreBlob(ctx context.Context, filePath string, userID uuid.UUID) (*model.Blob, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, &model.ValidationError{Message: fmt.Sprintf("cannot read file %s: %v", filePath, err)}
	}
	if info.IsDir() {
		return nil, &model.ValidationError{Message: fmt.Sprintf("%s is a directory", filePath)}
	}
	owner := e.resolveUser(userID)

	ext := strings.TrimPrefix(filepath.Ext(filePath), ".")
	if ext == "" {
		ext = "blob"
	}
	fileName := e.storage.GenerateFilename(ext, owner.String())
	stored, err := e.storage.Store(ctx, filePath, fileName, owner.String())
	if err != nil {
		return nil, fmt.Errorf("failed to store blob %s: %w", filePath, err)
	}
	return e.createBlobRecord(owner, stored, map[string]any{
		"original_filename": filepath.Base(filePath),
		"file_size":         info.Size(),
	})
}

// StoreBlobBytes writes raw bytes into managed storage and records them
// as a blob.
func (e *Engine) StoreBlobBytes(ctx context.Context, data []byte, userID uuid.UUID) (*model.Blob, error) {
	owner := e.resolveUser(userID)
	fileName := e.storage.GenerateFilename("blob", owner.String())
	stored, err := e.storage.StoreBytes(ctx, data, fileName, owner.String())
	if err != nil {
		return nil, fmt.Errorf("failed to store blob bytes: %w", err)
	}
	return e.createBlobRecord(owner, stored, map[string]any{
		"file_size": len(data),
	})
}

func (e *Engine) createBlobRecord(owner uuid.UUID, stored string, meta map[string]any) (*model.Blob, error) {
	blob := &model.Blob{
		ID:         uuid.New(),
		UserID:     owner,
		Visibility: model.VisibilityPrivate,
		Resource: &model.Resource{
			FilePath:     e.storage.Path(stored, owner.String()),
			FileName:     e.storage.Name(stored, owner.String()),
			ResourceType: model.ResourceTypeBlob,
			Location:     e.storage.Location(),
			Meta:         meta,
		},
	}
	if err := e.blobs.CreateBlob(blob); err != nil {
		return nil, err
	}
	return blob, nil
}

// LoadBlob retrieves a blob record and reads its payload into Data.
func (e *Engine) LoadBlob(ctx context.Context, id, userID uuid.UUID) (*model.Blob, error) {
	blob, err := e.getOwnedBlob(id, userID)
	if err != nil {
		return nil, err
	}
	r, err := e.storage.Open(ctx, blob.Resource.FileName, blob.UserID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to open blob %s: %w", id, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", id, err)
	}
	blob.Data = data
	return blob, nil
}

// RemoveBlob deletes a blob record, and its stored payload when
// removeResources is set.
func (e *Engine) RemoveBlob(ctx context.Context, id, userID uuid.UUID, removeResources bool) (bool, error) {
	blob, err := e.getOwnedBlob(id, userID)
	if err != nil {
		return false, err
	}
	if removeResources && blob.Resource != nil && !blob.Resource.Original() {
		if err := e.storage.Remove(ctx, blob.Resource.FileName, blob.UserID.String()); err != nil {
			return false, fmt.Errorf("failed to remove blob payload %s: %w", id, err)
		}
	}
	return e.blobs.DeleteBlob(id)
}

func (e *Engine) getOwnedBlob(id, userID uuid.UUID) (*model.Blob, error) {
	blob, err := e.blobs.GetBlobByID(id)
	if err != nil {
		return nil, err
	}
	if blob == nil || (blob.UserID != e.resolveUser(userID) && blob.Visibility != model.VisibilityPublic) {
		return nil, &model.NotFoundError{Kind: "blob", ID: id}
	}
	return blob, nil
}
