package app

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"

	"github.com/semmidev/strata/internal/adapter/archive"
	"github.com/semmidev/strata/internal/adapter/filesystem"
	"github.com/semmidev/strata/internal/adapter/notifier"
	"github.com/semmidev/strata/internal/adapter/storage"
	"github.com/semmidev/strata/internal/config"
	"github.com/semmidev/strata/internal/domain"
	"github.com/semmidev/strata/internal/infrastructure/logger"
	"github.com/semmidev/strata/internal/infrastructure/scheduler"
	"github.com/semmidev/strata/internal/usecase"
)

type App struct {
	config    *config.Config
	logger    *logger.Logger
	scheduler *scheduler.Scheduler
	sweeper   *usecase.Sweeper
	backupUC  *usecase.Backup
}

func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(logger.Options{
		Level:      cfg.App.LogLevel,
		File:       cfg.App.LogFile,
		MaxSizeMB:  cfg.App.LogMaxSizeMB,
		MaxBackups: cfg.App.LogMaxBackups,
		MaxAgeDays: cfg.App.LogMaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.Infof("Starting %s", cfg.App.Name)

	fsys := afero.NewOsFs()

	archiver, err := archive.NewChunked(fsys, cfg.Backup.ChunkSize, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize archiver: %w", err)
	}

	var notify domain.Notifier
	if tg := cfg.Notify.Telegram; tg.Enabled {
		t, err := notifier.NewTelegram(tg.BotToken, tg.ChatID)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize telegram: %w", err)
		}
		notify = t
		log.Infof("✓ Telegram notifications enabled")
	}

	sweeper := usecase.NewSweeper(fsys, log)

	backupUC := usecase.NewBackup(usecase.BackupDeps{
		FS:        fsys,
		Walker:    filesystem.NewWalker(fsys, log),
		Archiver:  archiver,
		OpenStore: storeOpener(cfg.Upload, fsys),
		Sweeper:   sweeper,
		Notifier:  notify,
		Logger:    log,
	}, usecase.RunConfig{
		Name:              cfg.App.Name,
		SourcePath:        cfg.Backup.SourcePath,
		BucketName:        cfg.Upload.Bucket,
		DestinationPrefix: cfg.Backup.DestinationFolder,
		StagingDir:        cfg.Backup.StagingDir,
		RetentionDays:     cfg.Backup.RetentionDays,
		Upload: usecase.UploadOptions{
			Concurrency:   cfg.Upload.Concurrency,
			Timeout:       cfg.Upload.Timeout,
			MaxRetries:    cfg.Upload.MaxRetries,
			RetryInterval: cfg.Upload.RetryInterval,
		},
	})

	log.Infof("✓ Backing up %s to %s bucket %s in chunks of %d file(s)",
		cfg.Backup.SourcePath, cfg.Upload.Target, cfg.Upload.Bucket, cfg.Backup.ChunkSize)

	return &App{
		config:    cfg,
		logger:    log,
		scheduler: scheduler.New(log),
		sweeper:   sweeper,
		backupUC:  backupUC,
	}, nil
}

// storeOpener resolves credentials at the start of every run.
func storeOpener(cfg config.UploadConfig, fsys afero.Fs) usecase.StoreOpener {
	return func(ctx context.Context) (domain.ObjectStore, error) {
		switch cfg.Target {
		case "gcs":
			creds, err := storage.LoadGoogleCredentials(ctx, "gcs", cfg.CredentialsFile, storage.GCSScope)
			if err != nil {
				return nil, err
			}
			return storage.NewGCS(ctx, creds, cfg.Bucket)

		case "gdrive":
			creds, err := storage.LoadGoogleCredentials(ctx, "gdrive", cfg.CredentialsFile, storage.GDriveScope)
			if err != nil {
				return nil, err
			}
			return storage.NewGDrive(ctx, creds, cfg.Bucket)

		case "s3":
			return storage.NewS3(ctx, storage.S3Options{
				Bucket:    cfg.Bucket,
				Region:    cfg.Region,
				Endpoint:  cfg.Endpoint,
				AccessKey: cfg.AccessKey,
				SecretKey: cfg.SecretKey,
			})

		case "minio":
			return storage.NewMinio(storage.MinioOptions{
				Endpoint:  cfg.Endpoint,
				Bucket:    cfg.Bucket,
				Region:    cfg.Region,
				AccessKey: cfg.AccessKey,
				SecretKey: cfg.SecretKey,
				UseSSL:    cfg.UseSSL,
			})

		case "local":
			return storage.NewLocal(fsys, cfg.Bucket)

		default:
			return nil, &domain.ConfigError{Field: "upload.target", Err: fmt.Errorf("unknown target %q", cfg.Target)}
		}
	}
}

// Run schedules the backup and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	schedule := a.config.Backup.Schedule
	if err := a.scheduler.AddJob("backup", schedule, a.backupUC.Execute); err != nil {
		return fmt.Errorf("failed to schedule backup: %w", err)
	}

	a.scheduler.Start()
	a.logger.Infof("Scheduler started (%s), next run at %s",
		schedule, a.scheduler.Next().Format(time.RFC3339))

	<-ctx.Done()
	return nil
}

// RunOnce performs a single backup immediately.
func (a *App) RunOnce(ctx context.Context) (*domain.RunResult, error) {
	return a.backupUC.Run(ctx)
}

// Sweep applies the retention window to the staging directory without
// running a backup.
func (a *App) Sweep(ctx context.Context) (int, error) {
	maxAge := time.Duration(a.config.Backup.RetentionDays) * 24 * time.Hour
	removed, err := a.sweeper.Sweep(ctx, a.config.Backup.StagingDir, maxAge)
	a.logger.Infof("Retention sweep removed %d archive(s)", removed)
	return removed, err
}

func (a *App) Shutdown() {
	a.logger.Infof("Shutting down application...")
	a.scheduler.Stop()
	a.logger.Close()
}
