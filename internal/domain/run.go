package domain

import (
	"fmt"
	"time"
)

// RunState is a step of the backup state machine.
type RunState int

const (
	StateInit RunState = iota
	StateValidated
	StateArchiving
	StateUploading
	StateSweeping
	StateDone
	StateFailed
)

var stateNames = map[RunState]string{
	StateInit:      "init",
	StateValidated: "validated",
	StateArchiving: "archiving",
	StateUploading: "uploading",
	StateSweeping:  "sweeping",
	StateDone:      "done",
	StateFailed:    "failed",
}

func (s RunState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is allowed.
func (s RunState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// RunResult summarizes one backup run.
type RunResult struct {
	RunID                   string
	State                   RunState
	SegmentsCreated         int
	SegmentsUploaded        int
	SegmentsFailed          int
	FilesRemovedByRetention int
	Skipped                 []SkippedEntry
	Locations               []string
	Duration                time.Duration
}

func (r *RunResult) Succeeded() bool {
	return r.State == StateDone
}

// Summary renders the result for notifications.
func (r *RunResult) Summary(name string) string {
	status := "✅ Backup completed"
	if !r.Succeeded() {
		status = "❌ Backup failed"
	}
	return fmt.Sprintf(
		"%s: %s\n\n"+
			"🆔 Run: %s\n"+
			"📦 Segments: %d created, %d uploaded, %d failed\n"+
			"⚠️ Skipped entries: %d\n"+
			"🧹 Removed by retention: %d\n"+
			"🕐 Duration: %s",
		status, name,
		r.RunID,
		r.SegmentsCreated, r.SegmentsUploaded, r.SegmentsFailed,
		len(r.Skipped),
		r.FilesRemovedByRetention,
		r.Duration.Round(time.Second),
	)
}
