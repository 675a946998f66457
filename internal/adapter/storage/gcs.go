package storage

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gcs "google.golang.org/api/storage/v1"
)

// GCSStorage uploads objects through the Cloud Storage JSON API.
type GCSStorage struct {
	service *gcs.Service
	bucket  string
}

// GCSScope is the OAuth scope required to write objects.
const GCSScope = gcs.DevstorageReadWriteScope

func NewGCS(ctx context.Context, creds *google.Credentials, bucket string) (*GCSStorage, error) {
	service, err := gcs.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create storage service: %w", err)
	}

	return &GCSStorage{
		service: service,
		bucket:  bucket,
	}, nil
}

func (g *GCSStorage) Name() string { return "gcs" }

// Put performs a single-request upload; ChunkSize(0) disables resumable sessions.
func (g *GCSStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	ct := contentType(data)

	obj, err := g.service.Objects.Insert(g.bucket, &gcs.Object{
		Name:        key,
		ContentType: ct,
	}).
		Media(bytes.NewReader(data), googleapi.ContentType(ct), googleapi.ChunkSize(0)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload to gcs: %w", err)
	}

	return fmt.Sprintf("gs://%s/%s", g.bucket, obj.Name), nil
}
