package storage

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"

	"github.com/semmidev/strata/internal/domain"
)

// LoadGoogleCredentials parses a service account (or authorized user) JSON
// file once so the resulting credentials can be shared by every upload.
func LoadGoogleCredentials(ctx context.Context, target, path string, scopes ...string) (*google.Credentials, error) {
	if path == "" {
		return nil, &domain.CredentialError{Target: target, Err: errors.New("credentials file is required")}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.CredentialError{Target: target, Err: fmt.Errorf("failed to read credentials file: %w", err)}
	}

	creds, err := google.CredentialsFromJSON(ctx, raw, scopes...)
	if err != nil {
		return nil, &domain.CredentialError{Target: target, Err: fmt.Errorf("failed to parse credentials: %w", err)}
	}

	return creds, nil
}
