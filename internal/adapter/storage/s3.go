package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3manager "github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/semmidev/strata/internal/domain"
)

type S3Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

type S3Storage struct {
	uploader *s3manager.Uploader
	bucket   string
}

// NewS3 creates a new S3Storage instance using AWS SDK v2. Static keys are
// used when given, otherwise the default credential chain. Credentials are
// retrieved once here so a broken setup fails before any upload.
func NewS3(ctx context.Context, opts S3Options) (*S3Storage, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}

	switch {
	case opts.AccessKey != "" && opts.SecretKey != "":
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	case opts.AccessKey != "" || opts.SecretKey != "":
		return nil, &domain.CredentialError{Target: "s3", Err: errors.New("access_key and secret_key must be set together")}
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, &domain.CredentialError{Target: "s3", Err: fmt.Errorf("failed to load AWS config: %w", err)}
	}

	if _, err := awsCfg.Credentials.Retrieve(ctx); err != nil {
		return nil, &domain.CredentialError{Target: "s3", Err: fmt.Errorf("failed to retrieve credentials: %w", err)}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{
		uploader: s3manager.NewUploader(client),
		bucket:   opts.Bucket,
	}, nil
}

func (s *S3Storage) Name() string { return "s3" }

// Put uploads data in a single PutObject request. The part size is raised
// above the payload size so the manager never switches to multipart.
func (s *S3Storage) Put(ctx context.Context, key string, data []byte) (string, error) {
	partSize := int64(len(data)) + 1
	if partSize < s3manager.MinUploadPartSize {
		partSize = s3manager.MinUploadPartSize
	}

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(data)),
	}, func(u *s3manager.Uploader) {
		u.PartSize = partSize
		u.Concurrency = 1
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}
