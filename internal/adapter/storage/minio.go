package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/semmidev/strata/internal/domain"
)

type MinioOptions struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// MinioStorage targets S3 compatible servers.
type MinioStorage struct {
	client   *minio.Client
	endpoint string
	bucket   string
}

func NewMinio(opts MinioOptions) (*MinioStorage, error) {
	if opts.Endpoint == "" {
		return nil, &domain.ConfigError{Field: "upload.endpoint", Err: fmt.Errorf("required for minio")}
	}
	if opts.AccessKey == "" || opts.SecretKey == "" {
		return nil, &domain.CredentialError{Target: "minio", Err: fmt.Errorf("access_key and secret_key are required")}
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &MinioStorage{
		client:   client,
		endpoint: opts.Endpoint,
		bucket:   opts.Bucket,
	}, nil
}

func (m *MinioStorage) Name() string { return "minio" }

func (m *MinioStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	_, err := m.client.PutObject(ctx, m.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:      contentType(data),
		DisableMultipart: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to minio: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s/%s", m.endpoint, m.bucket, key), nil
}
