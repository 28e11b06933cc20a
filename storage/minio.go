package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"Phonolib/config"
	"Phonolib/model"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioDriver stores library files in a MinIO (or any S3-compatible)
// bucket, with object keys prefixed per user.
type MinioDriver struct {
	client *minio.Client
	bucket string
}

// NewMinioDriver connects to the configured MinIO endpoint and ensures
// the library bucket exists.
func NewMinioDriver(ctx context.Context, cfg *config.Config) (*MinioDriver, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
	}
	return &MinioDriver{client: client, bucket: cfg.MinioBucket}, nil
}

func (d *MinioDriver) objectKey(fileName, userID string) string {
	return path.Join(userID, fileName)
}

// InitUser is a no-op for bucket storage; prefixes appear on first write.
func (d *MinioDriver) InitUser(_ context.Context, _ string) error {
	return nil
}

// GenerateFilename returns a fresh UUID-based object name.
func (d *MinioDriver) GenerateFilename(filetype, _ string) string {
	return uuid.New().String() + "." + filetype
}

// Store uploads the file at srcPath under the user's prefix.
func (d *MinioDriver) Store(ctx context.Context, srcPath, fileName, userID string) (string, error) {
	_, err := d.client.FPutObject(ctx, d.bucket, d.objectKey(fileName, userID), srcPath, minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", srcPath, err)
	}
	return fileName, nil
}

// StoreBytes uploads raw data under the user's prefix.
func (d *MinioDriver) StoreBytes(ctx context.Context, data []byte, fileName, userID string) (string, error) {
	_, err := d.client.PutObject(ctx, d.bucket, d.objectKey(fileName, userID),
		bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", fileName, err)
	}
	return fileName, nil
}

// Open returns a reader over a stored object.
func (d *MinioDriver) Open(ctx context.Context, fileName, userID string) (io.ReadCloser, error) {
	obj, err := d.client.GetObject(ctx, d.bucket, d.objectKey(fileName, userID), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", fileName, err)
	}
	return obj, nil
}

// Remove deletes a stored object.
func (d *MinioDriver) Remove(ctx context.Context, fileName, userID string) error {
	err := d.client.RemoveObject(ctx, d.bucket, d.objectKey(fileName, userID), minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to remove object %s: %w", fileName, err)
	}
	return nil
}

// Exists reports whether a stored object is present.
func (d *MinioDriver) Exists(ctx context.Context, fileName, userID string) (bool, error) {
	_, err := d.client.StatObject(ctx, d.bucket, d.objectKey(fileName, userID), minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object %s: %w", fileName, err)
	}
	return true, nil
}

// List returns the names of all objects stored under the user's prefix.
func (d *MinioDriver) List(ctx context.Context, userID string) ([]string, error) {
	var names []string
	prefix := userID + "/"
	for obj := range d.client.ListObjects(ctx, d.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", obj.Err)
		}
		names = append(names, strings.TrimPrefix(obj.Key, prefix))
	}
	return names, nil
}

// Path returns the user's object key prefix.
func (d *MinioDriver) Path(_, userID string) string {
	return userID
}

// Name returns the bare object name of a stored key.
func (d *MinioDriver) Name(src, _ string) string {
	return path.Base(src)
}

// Location reports that this driver produces remote resources.
func (d *MinioDriver) Location() model.ResourceLocation {
	return model.LocationRemote
}
