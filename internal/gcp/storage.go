package gcp

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already exist.
// It's a shared utility for all services.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName, content string) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)

	if _, err := io.Copy(writer, strings.NewReader(content)); err != nil {
		_ = writer.Close()
		if gerr, ok := err.(*googleapi.Error); ok && gerr.Code == 412 {
			log.Printf("SKIPPING: Object %s already exists.", objectName)
			return nil // Not a failure in an idempotent workflow.
		}
		log.Printf("ERROR: Failed to copy content to GCS object %s: %v", objectName, err)
		return fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		log.Printf("ERROR: Failed to close GCS writer for %s: %v", objectName, err)
		return fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return nil
}

// CorpusStore stages a GCS-hosted agenda corpus onto local disk so the
// compiler can stream the files with the same code path as local runs.
type CorpusStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewCorpusStore creates a store over one bucket/prefix.
func NewCorpusStore(client *storage.Client, bucket, prefix string) *CorpusStore {
	return &CorpusStore{client: client, bucket: bucket, prefix: prefix}
}

// Download copies every .xml object under the prefix into destDir and returns
// the local paths in listing order.
func (s *CorpusStore) Download(ctx context.Context, destDir string) ([]string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.prefix})
	var paths []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gs://%s/%s: %w", s.bucket, s.prefix, err)
		}
		if !strings.EqualFold(filepath.Ext(attrs.Name), ".xml") {
			continue
		}
		local := filepath.Join(destDir, filepath.Base(attrs.Name))
		if err := s.downloadObject(ctx, attrs.Name, local); err != nil {
			return nil, err
		}
		paths = append(paths, local)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no XML objects under gs://%s/%s", s.bucket, s.prefix)
	}
	return paths, nil
}

func (s *CorpusStore) downloadObject(ctx context.Context, object, local string) error {
	reader, err := s.client.Bucket(s.bucket).Object(object).NewReader(ctx)
	if err != nil {
		return fmt.Errorf("failed to open gs://%s/%s: %w", s.bucket, object, err)
	}
	defer reader.Close()

	f, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("failed to create staging file %s: %w", local, err)
	}
	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		return fmt.Errorf("failed to download gs://%s/%s: %w", s.bucket, object, err)
	}
	return f.Close()
}

// UploadArtifacts pushes local artifact files under destPrefix in the given
// bucket and returns the gs:// URI of the prefix. Existing objects are left
// in place so re-runs of the same execution stay idempotent.
func UploadArtifacts(ctx context.Context, client *storage.Client, bucket, destPrefix string, paths []string) (string, error) {
	handle := client.Bucket(bucket)
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read artifact %s: %w", path, err)
		}
		object := destPrefix + "/" + filepath.Base(path)
		if err := SaveToGCSAtomically(ctx, handle, object, string(content)); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("gs://%s/%s", bucket, destPrefix), nil
}
