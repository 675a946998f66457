package usecase

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/semmidev/strata/internal/domain"
)

const notifyTimeout = 30 * time.Second

type Logger interface {
	Infof(template string, args ...interface{})
	Errorf(template string, args ...interface{})
	Warnf(template string, args ...interface{})
}

type TreeWalker interface {
	Walk(root string) (iter.Seq[domain.ArchiveEntry], error)
	Skipped() []domain.SkippedEntry
}

type SegmentArchiver interface {
	Archive(ctx context.Context, entries iter.Seq[domain.ArchiveEntry], stagingDir string, emit func(domain.ArchiveSegment)) (*domain.ArchiveResult, error)
}

// StoreOpener resolves credentials and returns a client shared by every
// upload of a run.
type StoreOpener func(ctx context.Context) (domain.ObjectStore, error)

type RunConfig struct {
	Name              string
	SourcePath        string
	BucketName        string
	DestinationPrefix string
	StagingDir        string
	RetentionDays     int
	Upload            UploadOptions
}

type BackupDeps struct {
	FS        afero.Fs
	Walker    TreeWalker
	Archiver  SegmentArchiver
	OpenStore StoreOpener
	Sweeper   *Sweeper
	Notifier  domain.Notifier
	Logger    Logger
	Now       func() time.Time
}

// Backup runs one backup through Init, Validated, Archiving, Uploading,
// Sweeping and Done. Failed may be entered from any step.
type Backup struct {
	BackupDeps
	cfg RunConfig
}

func NewBackup(deps BackupDeps, cfg RunConfig) *Backup {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Backup{BackupDeps: deps, cfg: cfg}
}

// Execute satisfies domain.BackupExecutor for the scheduler.
func (uc *Backup) Execute(ctx context.Context) error {
	_, err := uc.Run(ctx)
	return err
}

func (uc *Backup) Run(ctx context.Context) (res *domain.RunResult, err error) {
	start := uc.Now()
	job := domain.BackupJob{
		RunID:             uuid.NewString(),
		SourcePath:        uc.cfg.SourcePath,
		BucketName:        uc.cfg.BucketName,
		DestinationPrefix: uc.cfg.DestinationPrefix,
		StagingDir:        uc.cfg.StagingDir,
		Timestamp:         start,
	}
	res = &domain.RunResult{RunID: job.RunID, State: domain.StateInit}

	defer func() {
		res.Duration = uc.Now().Sub(start)
		uc.notify(ctx, res)
	}()

	uc.Logger.Infof("[%s] Starting backup of %s to bucket %s", job.RunID, job.SourcePath, job.BucketName)

	store, err := uc.validate(ctx, job)
	if err != nil {
		return res, uc.fail(res, err)
	}
	uc.transition(res, domain.StateValidated)

	uc.transition(res, domain.StateArchiving)
	segments, err := uc.archive(ctx, job, res)
	if err != nil {
		return res, uc.fail(res, err)
	}

	uc.transition(res, domain.StateUploading)
	uploadErr := uc.upload(ctx, job, store, segments, res)

	uc.transition(res, domain.StateSweeping)
	removed, sweepErr := uc.Sweeper.Sweep(ctx, job.StagingDir, retention(uc.cfg.RetentionDays), job.RunDir())
	res.FilesRemovedByRetention = removed
	if sweepErr != nil {
		uc.Logger.Warnf("[%s] Cleanup finished with errors: %v", job.RunID, sweepErr)
	}

	if uploadErr != nil {
		return res, uc.fail(res, fmt.Errorf("%d of %d segment upload(s) failed: %w",
			res.SegmentsFailed, res.SegmentsCreated, uploadErr))
	}

	uc.transition(res, domain.StateDone)
	uc.Logger.Infof("[%s] Backup completed in %s: %d segment(s) uploaded",
		job.RunID, uc.Now().Sub(start).Round(time.Second), res.SegmentsUploaded)
	return res, nil
}

func (uc *Backup) validate(ctx context.Context, job domain.BackupJob) (domain.ObjectStore, error) {
	if job.SourcePath == "" {
		return nil, &domain.ConfigError{Field: "source_path", Err: errors.New("is required")}
	}
	info, err := uc.FS.Stat(job.SourcePath)
	if err != nil {
		return nil, &domain.ConfigError{Field: "source_path", Err: &domain.FilesystemError{Path: job.SourcePath, Err: err}}
	}
	if !info.IsDir() {
		return nil, &domain.ConfigError{Field: "source_path", Err: &domain.FilesystemError{Path: job.SourcePath, Err: errors.New("not a directory")}}
	}
	if job.BucketName == "" {
		return nil, &domain.ConfigError{Field: "bucket", Err: errors.New("is required")}
	}
	if job.StagingDir == "" {
		return nil, &domain.ConfigError{Field: "staging_dir", Err: errors.New("is required")}
	}
	if uc.cfg.RetentionDays < 0 {
		return nil, &domain.ConfigError{Field: "retention_days", Err: fmt.Errorf("must not be negative, got %d", uc.cfg.RetentionDays)}
	}

	store, err := uc.OpenStore(ctx)
	if err != nil {
		var credErr *domain.CredentialError
		var cfgErr *domain.ConfigError
		if errors.As(err, &credErr) || errors.As(err, &cfgErr) {
			return nil, err
		}
		return nil, &domain.CredentialError{Target: "object store", Err: err}
	}
	return store, nil
}

func (uc *Backup) archive(ctx context.Context, job domain.BackupJob, res *domain.RunResult) ([]domain.ArchiveSegment, error) {
	entries, err := uc.Walker.Walk(job.SourcePath)
	if err != nil {
		return nil, err
	}

	var segments []domain.ArchiveSegment
	archived, err := uc.Archiver.Archive(ctx, entries, job.RunDir(), func(seg domain.ArchiveSegment) {
		segments = append(segments, seg)
	})

	res.Skipped = append(res.Skipped, uc.Walker.Skipped()...)
	if archived != nil {
		res.SegmentsCreated = len(archived.Segments)
		res.Skipped = append(res.Skipped, archived.Skipped...)
	}
	if err != nil {
		return nil, err
	}

	for _, s := range res.Skipped {
		uc.Logger.Warnf("[%s] Skipped %s: %s", job.RunID, s.Path, s.Reason)
	}
	return segments, nil
}

func (uc *Backup) upload(ctx context.Context, job domain.BackupJob, store domain.ObjectStore, segments []domain.ArchiveSegment, res *domain.RunResult) error {
	uploader := NewUploader(uc.FS, store, uc.Logger, uc.cfg.Upload)

	var errs error
	for _, o := range uploader.UploadAll(ctx, segments, job.ObjectKey) {
		if o.Err != nil {
			res.SegmentsFailed++
			errs = multierr.Append(errs, o.Err)
			continue
		}
		res.SegmentsUploaded++
		res.Locations = append(res.Locations, o.Location)
	}
	return errs
}

func (uc *Backup) transition(res *domain.RunResult, to domain.RunState) {
	if res.State.Terminal() {
		uc.Logger.Errorf("[%s] Ignoring transition %s -> %s", res.RunID, res.State, to)
		return
	}
	uc.Logger.Infof("[%s] %s -> %s", res.RunID, res.State, to)
	res.State = to
}

func (uc *Backup) fail(res *domain.RunResult, err error) error {
	uc.transition(res, domain.StateFailed)
	uc.Logger.Errorf("[%s] Backup failed: %v", res.RunID, err)
	return err
}

func (uc *Backup) notify(ctx context.Context, res *domain.RunResult) {
	if uc.Notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := uc.Notifier.Notify(ctx, res.Summary(uc.cfg.Name)); err != nil {
		uc.Logger.Warnf("[%s] Failed to send notification: %v", res.RunID, err)
	}
}

func retention(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}
