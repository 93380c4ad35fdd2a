package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"glauk-api/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Storage uploads to any S3-compatible endpoint (Supabase Storage, MinIO, AWS).
type S3Storage struct {
	client        *minio.Client
	bucket        string
	publicBaseURL string
}

func NewS3Storage(cfg config.S3Config, bucket, publicBaseURL string) (*S3Storage, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint cannot be empty")
	}
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket cannot be empty")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:       cfg.UseSSL,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	if publicBaseURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicBaseURL = fmt.Sprintf("%s://%s/%s", scheme, cfg.Endpoint, bucket)
	}

	return &S3Storage{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *S3Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *S3Storage) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	info, err := s.client.PutObject(ctx, s.bucket, path, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to put object %s: %w", path, err)
	}
	if info.Key != "" {
		return info.Key, nil
	}
	return path, nil
}

func (s *S3Storage) PublicURL(path string) string {
	return s.publicBaseURL + "/" + escapePath(path)
}

func escapePath(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
