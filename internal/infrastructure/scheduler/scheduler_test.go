package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/zap"
)

func TestScheduler(t *testing.T) {
	Convey("Given a Scheduler", t, func() {
		scheduler := New(zap.NewNop().Sugar())

		Convey("New function", func() {
			Convey("It should create a new scheduler successfully", func() {
				So(scheduler, ShouldNotBeNil)
				So(scheduler.cron, ShouldNotBeNil)
			})
		})

		Convey("AddJob function", func() {
			Convey("When adding a job with a valid cron spec", func() {
				var runs atomic.Int32
				err := scheduler.AddJob("backup", "* * * * * *", func(ctx context.Context) error {
					runs.Add(1)
					return nil
				})

				Convey("It should run the job", func() {
					So(err, ShouldBeNil)

					scheduler.Start()
					So(scheduler.Next().IsZero(), ShouldBeFalse)
					time.Sleep(2 * time.Second)
					scheduler.Stop()

					So(runs.Load(), ShouldBeGreaterThanOrEqualTo, 1)
				})
			})

			Convey("When adding a job with an invalid cron spec", func() {
				err := scheduler.AddJob("backup", "invalid spec", func(ctx context.Context) error { return nil })

				Convey("It should return an error", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "expected exactly 6 fields")
					So(err.Error(), ShouldContainSubstring, "backup")
				})
			})
		})

		Convey("Start and Stop methods", func() {
			Convey("When a job is still running at Stop", func() {
				started := make(chan struct{}, 1)
				var cancelled atomic.Bool
				err := scheduler.AddJob("backup", "* * * * * *", func(ctx context.Context) error {
					select {
					case started <- struct{}{}:
					default:
					}
					<-ctx.Done()
					cancelled.Store(true)
					return ctx.Err()
				})
				So(err, ShouldBeNil)

				Convey("It should cancel the job context and wait for it", func() {
					scheduler.Start()
					select {
					case <-started:
					case <-time.After(3 * time.Second):
					}
					So(func() { scheduler.Stop() }, ShouldNotPanic)
					So(cancelled.Load(), ShouldBeTrue)
				})
			})
		})
	})
}
