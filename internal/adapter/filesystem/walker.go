package filesystem

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/semmidev/strata/internal/domain"
)

var errNotDir = errors.New("not a directory")

type Logger interface {
	Warnf(template string, args ...interface{})
}

// Walker enumerates a directory tree depth-first, children sorted by name.
type Walker struct {
	fs     afero.Fs
	logger Logger

	mu      sync.Mutex
	skipped []domain.SkippedEntry
}

func NewWalker(fsys afero.Fs, logger Logger) *Walker {
	return &Walker{fs: fsys, logger: logger}
}

// Walk validates root and returns a lazy sequence of the entries below it.
// The root itself is not part of the sequence. Ranging over the sequence
// again restarts the traversal.
func (w *Walker) Walk(root string) (iter.Seq[domain.ArchiveEntry], error) {
	info, err := w.fs.Stat(root)
	if err != nil {
		return nil, &domain.FilesystemError{Path: root, Err: err}
	}
	if !info.IsDir() {
		return nil, &domain.FilesystemError{Path: root, Err: errNotDir}
	}

	// An unlistable root is fatal, unlike unreadable entries below it.
	if _, err := afero.ReadDir(w.fs, root); err != nil {
		return nil, &domain.FilesystemError{Path: root, Err: err}
	}

	return func(yield func(domain.ArchiveEntry) bool) {
		w.mu.Lock()
		w.skipped = nil
		w.mu.Unlock()

		children, err := afero.ReadDir(w.fs, root)
		if err != nil {
			w.skip(".", err)
			return
		}
		w.walkDir(root, "", children, yield)
	}, nil
}

// Skipped returns the entries left out by the most recent traversal.
func (w *Walker) Skipped() []domain.SkippedEntry {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]domain.SkippedEntry(nil), w.skipped...)
}

func (w *Walker) walkDir(dir, rel string, children []os.FileInfo, yield func(domain.ArchiveEntry) bool) bool {
	for _, info := range children {
		childPath := filepath.Join(dir, info.Name())
		childRel := path.Join(rel, info.Name())

		switch {
		case info.IsDir():
			grandchildren, err := afero.ReadDir(w.fs, childPath)
			if err != nil {
				w.skip(childRel, err)
				continue
			}
			if !yield(domain.NewDirEntry(childRel, info.ModTime())) {
				return false
			}
			if !w.walkDir(childPath, childRel, grandchildren, yield) {
				return false
			}

		case info.Mode().IsRegular():
			if !yield(domain.NewFileEntry(childRel, info.ModTime(), w.opener(childPath))) {
				return false
			}

		default:
			w.skip(childRel, fmt.Errorf("unsupported file type %s", info.Mode().Type()))
		}
	}
	return true
}

func (w *Walker) opener(name string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return w.fs.Open(name)
	}
}

func (w *Walker) skip(rel string, err error) {
	w.logger.Warnf("Skipping %s: %v", rel, err)

	w.mu.Lock()
	w.skipped = append(w.skipped, domain.SkippedEntry{Path: rel, Reason: err.Error()})
	w.mu.Unlock()
}
