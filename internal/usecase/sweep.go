package usecase

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/semmidev/strata/internal/domain"
)

// Sweeper removes stale segments from the staging area. It looks at archive
// files directly under the staging directory and one level down, inside the
// per-run directories.
type Sweeper struct {
	fs     afero.Fs
	logger Logger
	now    func() time.Time
}

func NewSweeper(fsys afero.Fs, logger Logger) *Sweeper {
	return &Sweeper{
		fs:     fsys,
		logger: logger,
		now:    time.Now,
	}
}

// Sweep deletes archives strictly older than maxAge and returns how many were
// removed. Paths in protect are left alone. Individual failures do not stop
// the sweep; they are combined into the returned error.
func (s *Sweeper) Sweep(ctx context.Context, stagingDir string, maxAge time.Duration, protect ...string) (int, error) {
	s.logger.Infof("Starting cleanup of %s, retention: %s", stagingDir, maxAge)

	exists, err := afero.DirExists(s.fs, stagingDir)
	if err != nil {
		return 0, &domain.RetentionError{Path: stagingDir, Err: err}
	}
	if !exists {
		return 0, nil
	}

	protected := make(map[string]bool, len(protect))
	for _, p := range protect {
		protected[filepath.Clean(p)] = true
	}

	cutoff := s.now().Add(-maxAge)

	entries, err := afero.ReadDir(s.fs, stagingDir)
	if err != nil {
		return 0, &domain.RetentionError{Path: stagingDir, Err: err}
	}

	var errs error
	removed := 0
	for _, info := range entries {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}

		p := filepath.Join(stagingDir, info.Name())
		if protected[p] {
			continue
		}

		if info.IsDir() {
			n, err := s.sweepRunDir(p, cutoff, protected)
			removed += n
			errs = multierr.Append(errs, err)
			continue
		}

		ok, err := s.removeIfExpired(p, info, cutoff)
		if ok {
			removed++
		}
		errs = multierr.Append(errs, err)
	}

	s.logger.Infof("Cleanup completed, removed %d old archive(s)", removed)
	return removed, errs
}

func (s *Sweeper) sweepRunDir(dir string, cutoff time.Time, protected map[string]bool) (int, error) {
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return 0, &domain.RetentionError{Path: dir, Err: err}
	}

	var errs error
	removed := 0
	for _, info := range entries {
		p := filepath.Join(dir, info.Name())
		if info.IsDir() || protected[p] {
			continue
		}
		ok, err := s.removeIfExpired(p, info, cutoff)
		if ok {
			removed++
		}
		errs = multierr.Append(errs, err)
	}

	if removed > 0 && removed == len(entries) {
		if err := s.fs.Remove(dir); err != nil {
			errs = multierr.Append(errs, &domain.RetentionError{Path: dir, Err: err})
		}
	}

	return removed, errs
}

func (s *Sweeper) removeIfExpired(p string, info os.FileInfo, cutoff time.Time) (bool, error) {
	if filepath.Ext(p) != domain.ArchiveExt || !info.ModTime().Before(cutoff) {
		return false, nil
	}

	if err := s.fs.Remove(p); err != nil {
		s.logger.Errorf("Failed to delete old backup %s: %v", p, err)
		return false, &domain.RetentionError{Path: p, Err: err}
	}

	s.logger.Infof("Removed old backup: %s", p)
	return true, nil
}
