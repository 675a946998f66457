package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// LocalStorage is a bucket backed by a directory, used for mounted volumes
// and testing.
type LocalStorage struct {
	fs       afero.Fs
	basePath string
}

func NewLocal(fsys afero.Fs, basePath string) (*LocalStorage, error) {
	if err := fsys.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create bucket directory: %w", err)
	}
	return &LocalStorage{fs: fsys, basePath: basePath}, nil
}

func (l *LocalStorage) Name() string { return "local" }

// Put writes to a temporary file and renames it into place so readers never
// observe a partial object.
func (l *LocalStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	destPath := l.GetPath(key)
	if err := l.fs.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create dest directory: %w", err)
	}

	tmpPath := destPath + ".partial"
	if err := afero.WriteFile(l.fs, tmpPath, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write object: %w", err)
	}
	if err := l.fs.Rename(tmpPath, destPath); err != nil {
		_ = l.fs.Remove(tmpPath)
		return "", fmt.Errorf("failed to commit object: %w", err)
	}

	return "file://" + filepath.ToSlash(destPath), nil
}

// List returns every object key in the bucket, sorted.
func (l *LocalStorage) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := afero.Walk(l.fs, l.basePath, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasSuffix(p, ".partial") {
			return nil
		}
		rel, err := filepath.Rel(l.basePath, p)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	sort.Strings(keys)
	return keys, nil
}

func (l *LocalStorage) GetPath(key string) string {
	return filepath.Join(l.basePath, filepath.FromSlash(path.Clean("/" + key)))
}
