// Package blob stores uploaded files (product photos, finished PDFs) in
// Google Cloud Storage.
package blob

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"whitecoat/internal/config"
	"whitecoat/internal/logger"
)

// Store handles uploading and deleting binary files
type Store interface {
	// Upload writes the file under key and returns its public URL
	Upload(ctx context.Context, key, contentType string, file io.Reader) (string, error)

	// Delete removes the object behind a URL previously returned by Upload.
	// Deleting a URL this store did not produce is an error.
	Delete(ctx context.Context, fileURL string) error

	// Download fetches the object behind a URL previously returned by Upload
	Download(ctx context.Context, fileURL string) ([]byte, error)

	// Close releases the underlying client
	Close() error
}

// GCSStore implements Store on a Google Cloud Storage bucket
type GCSStore struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
}

// NewGCSStore creates a blob store backed by the configured GCS bucket
func NewGCSStore(ctx context.Context, cfg config.Blob) (*GCSStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("blob bucket is not configured")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		baseURL = "https://storage.googleapis.com"
	}

	logger.Get().Info("Blob store initialized", "bucket", cfg.Bucket, "public_base_url", baseURL)

	return &GCSStore{
		client:        client,
		bucket:        cfg.Bucket,
		publicBaseURL: baseURL,
	}, nil
}

func (s *GCSStore) Upload(ctx context.Context, key, contentType string, file io.Reader) (string, error) {
	key = strings.TrimLeft(key, "/")

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer: %w", err)
	}

	return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, key), nil
}

func (s *GCSStore) Delete(ctx context.Context, fileURL string) error {
	key, err := s.keyFromURL(fileURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		if err == storage.ErrObjectNotExist {
			return nil
		}
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}

func (s *GCSStore) Download(ctx context.Context, fileURL string) ([]byte, error) {
	key, err := s.keyFromURL(fileURL)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open object %s: %w", key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

// keyFromURL reverses Upload's URL construction
func (s *GCSStore) keyFromURL(fileURL string) (string, error) {
	prefix := fmt.Sprintf("%s/%s/", s.publicBaseURL, s.bucket)
	if !strings.HasPrefix(fileURL, prefix) {
		return "", fmt.Errorf("URL %s does not belong to bucket %s", fileURL, s.bucket)
	}
	return strings.TrimPrefix(fileURL, prefix), nil
}
