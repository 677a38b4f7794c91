// Package storage persists lead documents in MinIO-compatible object
// storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"solar_crm_backend/platform/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// presignedURLTTL is the expiration for download links handed to the admin UI.
const presignedURLTTL = 15 * time.Minute

// MinIOService stores and retrieves lead documents in a single bucket.
type MinIOService struct {
	client *minio.Client
	bucket string
}

func NewMinIOService(cfg config.MinIOConfig) (*MinIOService, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOService{client: client, bucket: cfg.GetMinioBucketLeadDocuments()}, nil
}

// EnsureBucketExists creates the document bucket if it doesn't exist.
func (s *MinIOService) EnsureBucketExists(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// Upload streams one object into the bucket.
func (s *MinIOService) Upload(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", objectName, err)
	}
	return nil
}

// Download returns a reader for the stored object. The caller closes it.
func (s *MinIOService) Download(ctx context.Context, objectName string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", objectName, err)
	}
	return obj, nil
}

// DownloadURL creates a short-lived presigned link for the admin UI.
func (s *MinIOService) DownloadURL(ctx context.Context, objectName string) (string, error) {
	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, presignedURLTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL for %s: %w", objectName, err)
	}
	return presigned.String(), nil
}

// Delete removes an object; deleting a missing object is not an error.
func (s *MinIOService) Delete(ctx context.Context, objectName string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", objectName, err)
	}
	return nil
}
