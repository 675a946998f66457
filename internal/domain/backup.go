package domain

import (
	"context"
	"io"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ArchiveExt is the extension of every segment written to the staging area.
const ArchiveExt = ".zip"

const dateLayout = "20060102"

// BackupJob describes a single backup run. It is immutable once created.
type BackupJob struct {
	RunID             string
	SourcePath        string
	BucketName        string
	DestinationPrefix string
	StagingDir        string
	Timestamp         time.Time
}

// BaseName returns the name used for the run directory and remote folder.
func (j BackupJob) BaseName() string {
	base := filepath.Base(filepath.Clean(j.SourcePath))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "backup"
	}
	return base
}

// RunName is {baseName}-{YYYYMMDD}.
func (j BackupJob) RunName() string {
	return j.BaseName() + "-" + j.Timestamp.Format(dateLayout)
}

// RunDir is the local directory holding this run's segments.
func (j BackupJob) RunDir() string {
	return filepath.Join(j.StagingDir, j.RunName())
}

// ObjectKey returns the remote key of segment index.
func (j BackupJob) ObjectKey(index int) string {
	name := strconv.Itoa(index) + ArchiveExt
	prefix := strings.Trim(j.DestinationPrefix, "/")
	if prefix == "" {
		return path.Join(j.RunName(), name)
	}
	return path.Join(prefix, j.RunName(), name)
}

type EntryKind int

const (
	EntryFile EntryKind = iota
	EntryDir
)

func (k EntryKind) String() string {
	if k == EntryDir {
		return "directory"
	}
	return "file"
}

// ArchiveEntry is a single filesystem entry produced by a tree walk.
// RelativePath always uses forward slashes.
type ArchiveEntry struct {
	RelativePath string
	Kind         EntryKind
	ModTime      time.Time
	open         func() (io.ReadCloser, error)
}

// NewFileEntry returns a file entry whose content is opened lazily.
func NewFileEntry(rel string, modTime time.Time, open func() (io.ReadCloser, error)) ArchiveEntry {
	return ArchiveEntry{RelativePath: rel, Kind: EntryFile, ModTime: modTime, open: open}
}

// NewDirEntry returns a directory entry.
func NewDirEntry(rel string, modTime time.Time) ArchiveEntry {
	return ArchiveEntry{RelativePath: rel, Kind: EntryDir, ModTime: modTime}
}

// Open opens the entry content. Directories have no content.
func (e ArchiveEntry) Open() (io.ReadCloser, error) {
	if e.Kind != EntryFile || e.open == nil {
		return nil, &FilesystemError{Path: e.RelativePath, Err: errNoContent}
	}
	return e.open()
}

// ArchiveSegment is one zip container of a run.
type ArchiveSegment struct {
	Index      int
	LocalPath  string
	EntryCount int
	FileCount  int
	Sealed     bool
}

// ArchiveResult describes what one archiving pass produced.
type ArchiveResult struct {
	Segments []ArchiveSegment
	Skipped  []SkippedEntry
	Files    int
	Dirs     int
}

// SkippedEntry records an entry left out of the archive.
type SkippedEntry struct {
	Path   string
	Reason string
}

// BackupExecutor is anything the scheduler can trigger.
type BackupExecutor interface {
	Execute(ctx context.Context) error
}
