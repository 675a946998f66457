package logger

import (
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLogger(t *testing.T) {
	Convey("Given the Logger package", t, func() {
		Convey("New function", func() {
			Convey("When creating a logger with console output only", func() {
				logger, err := New(Options{Level: "info"})

				Convey("It should create a logger successfully", func() {
					So(err, ShouldBeNil)
					So(logger, ShouldNotBeNil)
					So(func() { logger.Infof("Sealed segment %d", 0) }, ShouldNotPanic)
				})
			})

			Convey("When creating a logger with a log file", func() {
				tempDir, err := os.MkdirTemp("", "logger_test")
				So(err, ShouldBeNil)
				defer os.RemoveAll(tempDir)

				logFile := filepath.Join(tempDir, "logs", "strata.log")
				logger, err := New(Options{Level: "debug", File: logFile, MaxSizeMB: 1})

				Convey("It should create the directory and write JSON lines", func() {
					So(err, ShouldBeNil)
					logger.Debugf("Opened segment %d", 3)
					logger.Close()

					content, err := os.ReadFile(logFile)
					So(err, ShouldBeNil)
					So(string(content), ShouldContainSubstring, `"msg":"Opened segment 3"`)
				})
			})

			Convey("When creating a logger with an invalid log level", func() {
				logger, err := New(Options{Level: "invalid"})

				Convey("It should default to Info level", func() {
					So(err, ShouldBeNil)
					So(logger.Desugar().Core().Enabled(-1), ShouldBeFalse)
				})
			})

			Convey("When creating a logger with an invalid log file path", func() {
				logger, err := New(Options{Level: "info", File: "/dev/null/logs/strata.log"})

				Convey("It should return an error", func() {
					So(err, ShouldNotBeNil)
					So(err.Error(), ShouldContainSubstring, "failed to create log directory")
					So(logger, ShouldBeNil)
				})
			})
		})
	})
}
