package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/semmidev/strata/internal/domain"
)

func TestLoadGoogleCredentials(t *testing.T) {
	Convey("Given LoadGoogleCredentials", t, func() {
		ctx := context.Background()
		tempDir, err := os.MkdirTemp("", "credentials_test")
		So(err, ShouldBeNil)
		defer os.RemoveAll(tempDir)

		Convey("When no path is configured", func() {
			_, err := LoadGoogleCredentials(ctx, "gcs", "", GCSScope)

			Convey("It should return a CredentialError", func() {
				var credErr *domain.CredentialError
				So(errors.As(err, &credErr), ShouldBeTrue)
				So(credErr.Target, ShouldEqual, "gcs")
			})
		})

		Convey("When the file does not exist", func() {
			_, err := LoadGoogleCredentials(ctx, "gcs", filepath.Join(tempDir, "missing.json"), GCSScope)

			Convey("It should return a CredentialError", func() {
				var credErr *domain.CredentialError
				So(errors.As(err, &credErr), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "failed to read credentials file")
			})
		})

		Convey("When the file is not valid JSON", func() {
			path := filepath.Join(tempDir, "broken.json")
			So(os.WriteFile(path, []byte("{not json"), 0600), ShouldBeNil)

			_, err := LoadGoogleCredentials(ctx, "gdrive", path, GDriveScope)

			Convey("It should return a CredentialError", func() {
				var credErr *domain.CredentialError
				So(errors.As(err, &credErr), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "failed to parse credentials")
			})
		})
	})
}

func TestNewMinio(t *testing.T) {
	Convey("Given NewMinio", t, func() {
		Convey("When keys are missing", func() {
			_, err := NewMinio(MinioOptions{Endpoint: "localhost:9000", Bucket: "b"})

			Convey("It should return a CredentialError", func() {
				var credErr *domain.CredentialError
				So(errors.As(err, &credErr), ShouldBeTrue)
			})
		})

		Convey("When the endpoint is missing", func() {
			_, err := NewMinio(MinioOptions{Bucket: "b", AccessKey: "a", SecretKey: "s"})

			Convey("It should return a ConfigError", func() {
				var cfgErr *domain.ConfigError
				So(errors.As(err, &cfgErr), ShouldBeTrue)
			})
		})

		Convey("When fully configured", func() {
			store, err := NewMinio(MinioOptions{Endpoint: "localhost:9000", Bucket: "b", AccessKey: "a", SecretKey: "s"})

			Convey("It should build a client without network access", func() {
				So(err, ShouldBeNil)
				So(store.Name(), ShouldEqual, "minio")
			})
		})
	})
}

func TestNewS3(t *testing.T) {
	Convey("Given NewS3", t, func() {
		Convey("When only one static key is set", func() {
			_, err := NewS3(context.Background(), S3Options{Bucket: "b", Region: "us-east-1", AccessKey: "a"})

			Convey("It should return a CredentialError", func() {
				var credErr *domain.CredentialError
				So(errors.As(err, &credErr), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "must be set together")
			})
		})

		Convey("When static keys are set", func() {
			store, err := NewS3(context.Background(), S3Options{Bucket: "b", Region: "us-east-1", AccessKey: "a", SecretKey: "s"})

			Convey("It should resolve them locally", func() {
				So(err, ShouldBeNil)
				So(store.Name(), ShouldEqual, "s3")
			})
		})
	})
}

func TestContentType(t *testing.T) {
	Convey("Given a zip payload", t, func() {
		empty := []byte{0x50, 0x4b, 0x05, 0x06, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}

		Convey("It should be detected as application/zip", func() {
			So(contentType(empty), ShouldEqual, "application/zip")
		})
	})
}
