package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStorage uploads to a Google Cloud Storage bucket.
type GCSStorage struct {
	client        *gcs.Client
	bucket        string
	publicBaseURL string
}

func NewGCSStorage(ctx context.Context, bucket, publicBaseURL, credentialsFile string) (*GCSStorage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("storage bucket cannot be empty")
	}
	opts := []option.ClientOption{option.WithScopes(gcs.ScopeReadWrite)}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return newGCSStorageWithClient(client, bucket, publicBaseURL), nil
}

func newGCSStorageWithClient(client *gcs.Client, bucket, publicBaseURL string) *GCSStorage {
	if publicBaseURL == "" {
		publicBaseURL = "https://storage.googleapis.com/" + bucket
	}
	return &GCSStorage{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (g *GCSStorage) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := g.client.Bucket(g.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	// ChunkSize 0 sends the object in one request.
	w.ChunkSize = 0
	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return path, nil
}

func (g *GCSStorage) PublicURL(path string) string {
	return g.publicBaseURL + "/" + escapePath(path)
}

func (g *GCSStorage) Close() error {
	return g.client.Close()
}
