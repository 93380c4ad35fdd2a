// Package storage holds the object storage adapters for uploaded documents.
package storage

import (
	"context"
	"fmt"

	"glauk-api/internal/config"
	"glauk-api/internal/domain"
)

// New builds the adapter selected by cfg.Provider.
func New(ctx context.Context, cfg config.StorageConfig) (domain.ObjectStorage, error) {
	switch cfg.Provider {
	case "", "s3", "supabase", "minio":
		return NewS3Storage(cfg.S3, cfg.Bucket, cfg.PublicBaseURL)
	case "gcs":
		return NewGCSStorage(ctx, cfg.Bucket, cfg.PublicBaseURL, cfg.GCS.CredentialsFile)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}
