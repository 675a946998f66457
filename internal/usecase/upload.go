package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/semmidev/strata/internal/domain"
)

var errUnsealed = errors.New("segment is not sealed")

type UploadOptions struct {
	// Concurrency bounds the number of segments in flight.
	Concurrency int
	// Timeout applies to each segment, retries included. Zero disables it.
	Timeout time.Duration
	// MaxRetries enables in-process retry with exponential backoff.
	MaxRetries    int
	RetryInterval time.Duration
}

type UploadOutcome struct {
	Segment  domain.ArchiveSegment
	Key      string
	Location string
	Err      error
}

// Uploader transfers sealed segments to a single object store.
type Uploader struct {
	fs     afero.Fs
	store  domain.ObjectStore
	logger Logger
	opts   UploadOptions
}

func NewUploader(fsys afero.Fs, store domain.ObjectStore, logger Logger, opts UploadOptions) *Uploader {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Uploader{
		fs:     fsys,
		store:  store,
		logger: logger,
		opts:   opts,
	}
}

// Upload reads the whole segment and stores it under key in one request.
func (u *Uploader) Upload(ctx context.Context, seg domain.ArchiveSegment, key string) (string, error) {
	if !seg.Sealed {
		return "", &domain.UploadError{Segment: seg.Index, Key: key, Err: errUnsealed}
	}

	if u.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.opts.Timeout)
		defer cancel()
	}

	data, err := afero.ReadFile(u.fs, seg.LocalPath)
	if err != nil {
		return "", &domain.UploadError{Segment: seg.Index, Key: key, Err: fmt.Errorf("failed to read segment: %w", err)}
	}

	var location string
	put := func() error {
		loc, err := u.store.Put(ctx, key, data)
		if err != nil {
			return err
		}
		location = loc
		return nil
	}

	if u.opts.MaxRetries > 0 {
		bo := backoff.NewExponentialBackOff()
		if u.opts.RetryInterval > 0 {
			bo.InitialInterval = u.opts.RetryInterval
		}
		b := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(u.opts.MaxRetries)), ctx)
		err = backoff.RetryNotify(put, b, func(err error, d time.Duration) {
			u.logger.Warnf("Upload of segment %d to %s failed, retrying in %s: %v",
				seg.Index, u.store.Name(), d.Round(time.Millisecond), err)
		})
	} else {
		err = put()
	}
	if err != nil {
		return "", &domain.UploadError{Segment: seg.Index, Key: key, Err: err}
	}

	u.logger.Infof("Uploaded segment %d (%s) to %s", seg.Index, humanize.Bytes(uint64(len(data))), location)
	return location, nil
}

// UploadAll attempts every segment, at most Concurrency at a time. A failed
// segment never stops the others. Outcomes are in segment order.
func (u *Uploader) UploadAll(ctx context.Context, segments []domain.ArchiveSegment, keyFor func(int) string) []UploadOutcome {
	outcomes := make([]UploadOutcome, len(segments))

	var g errgroup.Group
	g.SetLimit(u.opts.Concurrency)

	for i, seg := range segments {
		g.Go(func() error {
			key := keyFor(seg.Index)
			u.logger.Infof("Uploading segment %d to %s as %s...", seg.Index, u.store.Name(), key)

			location, err := u.Upload(ctx, seg, key)
			if err != nil {
				u.logger.Errorf("Failed to upload segment %d: %v", seg.Index, err)
			}
			outcomes[i] = UploadOutcome{Segment: seg, Key: key, Location: location, Err: err}
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}
