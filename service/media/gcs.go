package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type GCSStore struct {
	client     *storage.Client
	bucketName string
	publicURL  string
}

// NewGCSStore uses the service account key at saKeyPath, or application
// default credentials when it is empty.
func NewGCSStore(ctx context.Context, bucketName, saKeyPath, publicURL string) (*GCSStore, error) {
	if bucketName == "" {
		return nil, errors.New("GCS bucket is not configured")
	}

	var opts []option.ClientOption
	if saKeyPath != "" {
		if _, err := os.Stat(saKeyPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("service account key not found at path: %s", saKeyPath)
		}
		opts = append(opts, option.WithCredentialsFile(saKeyPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}

	if publicURL == "" {
		publicURL = "https://storage.googleapis.com/" + bucketName
	}
	return &GCSStore{client: client, bucketName: bucketName, publicURL: publicURL}, nil
}

func (s *GCSStore) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	writer := s.client.Bucket(s.bucketName).Object(key).NewWriter(ctx)
	writer.ContentType = contentType
	writer.CacheControl = "public, max-age=31536000, immutable"

	if _, err := io.Copy(writer, r); err != nil {
		writer.Close()
		return "", fmt.Errorf("failed to copy upload to GCS object %s: %w", key, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to close GCS writer for %s: %w", key, err)
	}
	return s.publicURL + "/" + key, nil
}

func (s *GCSStore) Remove(ctx context.Context, keys ...string) error {
	var errs []error
	bucket := s.client.Bucket(s.bucketName)
	for _, key := range keys {
		err := bucket.Object(key).Delete(ctx)
		if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			errs = append(errs, fmt.Errorf("delete gs://%s/%s: %w", s.bucketName, key, err))
		}
	}
	return errors.Join(errs...)
}

func (s *GCSStore) Close() error {
	if err := s.client.Close(); err != nil {
		log.Printf("GCS client close: %v", err)
		return err
	}
	return nil
}
