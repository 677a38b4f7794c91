package storage

import (
	"context"
	"errors"
	"io"

	"solar_crm_backend/platform/logger"
)

// Store abstracts object storage for composition. MinIOService is the real
// implementation; NewDisabled stands in when no endpoint is configured.
type Store interface {
	Upload(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) error
	Download(ctx context.Context, objectName string) (io.ReadCloser, error)
	DownloadURL(ctx context.Context, objectName string) (string, error)
	Delete(ctx context.Context, objectName string) error
}

var ErrStorageDisabled = errors.New("object storage not configured")

type disabledStore struct {
	log *logger.Logger
}

// NewDisabled returns a Store that rejects every operation. Upload endpoints
// surface the error instead of silently dropping files.
func NewDisabled(log *logger.Logger) Store {
	return &disabledStore{log: log}
}

func (s *disabledStore) Upload(_ context.Context, objectName string, _ io.Reader, _ int64, _ string) error {
	s.log.Warn("upload rejected, storage disabled", "object", objectName)
	return ErrStorageDisabled
}

func (s *disabledStore) Download(context.Context, string) (io.ReadCloser, error) {
	return nil, ErrStorageDisabled
}

func (s *disabledStore) DownloadURL(context.Context, string) (string, error) {
	return "", ErrStorageDisabled
}

func (s *disabledStore) Delete(context.Context, string) error {
	return ErrStorageDisabled
}
