package storage

import (
	"bytes"
	"context"
	"fmt"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GDriveScope is the OAuth scope required to create files.
const GDriveScope = drive.DriveFileScope

// GDriveStorage treats a Drive folder as the bucket. Keys become file names.
type GDriveStorage struct {
	service  *drive.Service
	folderID string
}

func NewGDrive(ctx context.Context, creds *google.Credentials, folderID string) (*GDriveStorage, error) {
	service, err := drive.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &GDriveStorage{
		service:  service,
		folderID: folderID,
	}, nil
}

func (g *GDriveStorage) Name() string { return "gdrive" }

func (g *GDriveStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	ct := contentType(data)

	file, err := g.service.Files.Create(&drive.File{
		Name:     key,
		Parents:  []string{g.folderID},
		MimeType: ct,
	}).
		Media(bytes.NewReader(data), googleapi.ContentType(ct), googleapi.ChunkSize(0)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload to gdrive: %w", err)
	}

	return fmt.Sprintf("https://drive.google.com/file/d/%s", file.Id), nil
}
