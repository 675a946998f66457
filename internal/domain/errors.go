package domain

import (
	"errors"
	"fmt"
)

var errNoContent = errors.New("entry has no content")

// ConfigError reports a bad or missing configuration value. Nothing has been
// touched when it is returned.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// FilesystemError reports an invalid source path or an unusable entry.
type FilesystemError struct {
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("filesystem error at %s: %v", e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// ArchiveError reports a failure writing a segment container.
type ArchiveError struct {
	Segment int
	Path    string
	Err     error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("archive segment %d (%s): %v", e.Segment, e.Path, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// CredentialError reports credentials that could not be loaded or parsed.
type CredentialError struct {
	Target string
	Err    error
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("credentials for %s: %v", e.Target, e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// UploadError reports a failed transfer of one segment.
type UploadError struct {
	Segment int
	Key     string
	Err     error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload segment %d to %s: %v", e.Segment, e.Key, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// RetentionError reports a staging file that could not be removed.
type RetentionError struct {
	Path string
	Err  error
}

func (e *RetentionError) Error() string {
	return fmt.Sprintf("retention %s: %v", e.Path, e.Err)
}

func (e *RetentionError) Unwrap() error { return e.Err }
