package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/flate"
	"github.com/spf13/afero"

	"github.com/semmidev/strata/internal/domain"
)

// entryMode is applied to every member so extracted trees stay readable.
const entryMode fs.FileMode = 0o755

type Logger interface {
	Infof(template string, args ...interface{})
	Warnf(template string, args ...interface{})
	Debugf(template string, args ...interface{})
}

// Chunked splits an entry sequence into zip segments holding at most
// chunkSize files each.
type Chunked struct {
	fs        afero.Fs
	chunkSize int
	logger    Logger
}

func NewChunked(fsys afero.Fs, chunkSize int, logger Logger) (*Chunked, error) {
	if chunkSize < 1 {
		return nil, &domain.ConfigError{
			Field: "chunk_size",
			Err:   fmt.Errorf("must be at least 1, got %d", chunkSize),
		}
	}
	return &Chunked{fs: fsys, chunkSize: chunkSize, logger: logger}, nil
}

// Archive writes entries into stagingDir/{i}.zip. Each segment is passed to
// emit as soon as it is sealed. Unreadable files are skipped; any failure
// writing a container aborts with *domain.ArchiveError and leaves the
// partial files on disk.
func (a *Chunked) Archive(
	ctx context.Context,
	entries iter.Seq[domain.ArchiveEntry],
	stagingDir string,
	emit func(domain.ArchiveSegment),
) (*domain.ArchiveResult, error) {
	if err := a.fs.MkdirAll(stagingDir, 0755); err != nil {
		return nil, &domain.ArchiveError{
			Path: stagingDir,
			Err:  fmt.Errorf("failed to create staging directory: %w", err),
		}
	}

	res := &domain.ArchiveResult{}
	var cur *segmentWriter

	for entry := range entries {
		if err := ctx.Err(); err != nil {
			return res, a.interrupt(cur, err)
		}

		var data []byte
		if entry.Kind == domain.EntryFile {
			var err error
			if data, err = readEntry(entry); err != nil {
				a.logger.Warnf("Skipping unreadable file %s: %v", entry.RelativePath, err)
				res.Skipped = append(res.Skipped, domain.SkippedEntry{
					Path:   entry.RelativePath,
					Reason: err.Error(),
				})
				continue
			}
		}

		if cur == nil {
			var err error
			if cur, err = a.open(stagingDir, len(res.Segments)); err != nil {
				return res, err
			}
		}

		if entry.Kind == domain.EntryDir {
			if err := cur.addDir(entry); err != nil {
				return res, cur.fail(err)
			}
			res.Dirs++
			continue
		}

		if err := cur.addFile(entry, data); err != nil {
			return res, cur.fail(err)
		}
		res.Files++

		if cur.seg.FileCount == a.chunkSize {
			if err := a.seal(cur, res, emit); err != nil {
				return res, err
			}
			cur = nil
		}
	}

	if err := ctx.Err(); err != nil {
		return res, a.interrupt(cur, err)
	}

	// An empty tree still produces one (empty) segment.
	if cur == nil && len(res.Segments) == 0 {
		var err error
		if cur, err = a.open(stagingDir, 0); err != nil {
			return res, err
		}
	}
	if cur != nil {
		if err := a.seal(cur, res, emit); err != nil {
			return res, err
		}
	}

	a.prune(stagingDir, len(res.Segments))

	a.logger.Infof("Archived %d file(s) and %d directory(ies) into %d segment(s), %d skipped",
		res.Files, res.Dirs, len(res.Segments), len(res.Skipped))
	return res, nil
}

func (a *Chunked) open(stagingDir string, index int) (*segmentWriter, error) {
	name := filepath.Join(stagingDir, strconv.Itoa(index)+domain.ArchiveExt)

	file, err := a.fs.Create(name)
	if err != nil {
		return nil, &domain.ArchiveError{
			Segment: index,
			Path:    name,
			Err:     fmt.Errorf("failed to create segment: %w", err),
		}
	}

	zw := zip.NewWriter(file)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.DefaultCompression)
	})

	a.logger.Debugf("Opened segment %d at %s", index, name)
	return &segmentWriter{
		seg:  domain.ArchiveSegment{Index: index, LocalPath: name},
		file: file,
		zw:   zw,
	}, nil
}

func (a *Chunked) seal(cur *segmentWriter, res *domain.ArchiveResult, emit func(domain.ArchiveSegment)) error {
	seg, err := cur.seal()
	if err != nil {
		return err
	}
	res.Segments = append(res.Segments, seg)

	size := "unknown size"
	if info, err := a.fs.Stat(seg.LocalPath); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
	}
	a.logger.Infof("Sealed segment %d: %d entries (%d files), %s",
		seg.Index, seg.EntryCount, seg.FileCount, size)

	if emit != nil {
		emit(seg)
	}
	return nil
}

// interrupt finalizes the open container so no corrupt zip is left behind.
func (a *Chunked) interrupt(cur *segmentWriter, cause error) error {
	if cur == nil {
		return &domain.ArchiveError{Err: fmt.Errorf("archiving interrupted: %w", cause)}
	}
	if err := cur.finish(); err != nil {
		a.logger.Warnf("Failed to finalize segment %d: %v", cur.seg.Index, err)
	}
	return &domain.ArchiveError{
		Segment: cur.seg.Index,
		Path:    cur.seg.LocalPath,
		Err:     fmt.Errorf("archiving interrupted: %w", cause),
	}
}

// prune removes {i}.zip with i >= keep, left behind by an earlier run into
// the same directory that produced more segments.
func (a *Chunked) prune(stagingDir string, keep int) {
	infos, err := afero.ReadDir(a.fs, stagingDir)
	if err != nil {
		a.logger.Warnf("Failed to list %s for stale segments: %v", stagingDir, err)
		return
	}

	for _, info := range infos {
		name := info.Name()
		if info.IsDir() || filepath.Ext(name) != domain.ArchiveExt {
			continue
		}
		index, err := strconv.Atoi(strings.TrimSuffix(name, domain.ArchiveExt))
		if err != nil || index < keep {
			continue
		}

		p := filepath.Join(stagingDir, name)
		if err := a.fs.Remove(p); err != nil {
			a.logger.Warnf("Failed to remove stale segment %s: %v", p, err)
			continue
		}
		a.logger.Infof("Removed stale segment %s", p)
	}
}

func readEntry(entry domain.ArchiveEntry) ([]byte, error) {
	rc, err := entry.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// segmentWriter owns one unsealed segment.
type segmentWriter struct {
	seg  domain.ArchiveSegment
	file afero.File
	zw   *zip.Writer
}

func (s *segmentWriter) addDir(entry domain.ArchiveEntry) error {
	header := &zip.FileHeader{
		Name:     entry.RelativePath + "/",
		Method:   zip.Store,
		Modified: entry.ModTime,
	}
	header.SetMode(fs.ModeDir | entryMode)

	if _, err := s.zw.CreateHeader(header); err != nil {
		return fmt.Errorf("failed to add directory %s: %w", entry.RelativePath, err)
	}
	s.seg.EntryCount++
	return nil
}

func (s *segmentWriter) addFile(entry domain.ArchiveEntry, data []byte) error {
	header := &zip.FileHeader{
		Name:     entry.RelativePath,
		Method:   zip.Deflate,
		Modified: entry.ModTime,
	}
	header.SetMode(entryMode)

	w, err := s.zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to add file %s: %w", entry.RelativePath, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write file %s: %w", entry.RelativePath, err)
	}
	s.seg.EntryCount++
	s.seg.FileCount++
	return nil
}

func (s *segmentWriter) seal() (domain.ArchiveSegment, error) {
	if err := s.finish(); err != nil {
		return s.seg, &domain.ArchiveError{Segment: s.seg.Index, Path: s.seg.LocalPath, Err: err}
	}
	s.seg.Sealed = true
	return s.seg, nil
}

func (s *segmentWriter) finish() error {
	err := s.zw.Close()
	if cerr := s.file.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to finalize segment: %w", err)
	}
	return nil
}

// fail closes the container best-effort and wraps err.
func (s *segmentWriter) fail(err error) error {
	_ = s.finish()
	return &domain.ArchiveError{Segment: s.seg.Index, Path: s.seg.LocalPath, Err: err}
}
