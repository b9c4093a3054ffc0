package object

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
)

// Store is the object-store gateway the pipeline writes through. Callers
// resolve public URLs only via ResolvePublicURL so the CDN base can be
// toggled without touching them.
type Store interface {
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	ResolvePublicURL(key string) string
}

type MinIOStore struct {
	client  *minio.Client
	bucket  string
	cdnBase string
}

func NewMinIOStore(client *minio.Client, bucket, cdnBase string) *MinIOStore {
	return &MinIOStore{client: client, bucket: bucket, cdnBase: strings.TrimSuffix(strings.TrimSpace(cdnBase), "/")}
}

func (s *MinIOStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	reader := bytes.NewReader(body)
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, int64(reader.Len()), minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Delete is idempotent: removing a key that does not exist is not an error.
func (s *MinIOStore) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil
		}
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (s *MinIOStore) ResolvePublicURL(key string) string {
	if s.cdnBase != "" {
		return s.cdnBase + "/" + key
	}
	return s.client.EndpointURL().String() + "/" + s.bucket + "/" + key
}
