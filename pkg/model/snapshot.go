package model

import "strconv"

// Snapshot is a captured copy of one file's bytes at one point in time.
// Stored at <root>/.sumerian/snapshots/<Timestamp>/<basename(OriginalPath)>.
type Snapshot struct {
	ID           string `json:"id"`
	Timestamp    int64  `json:"timestamp"` // unix milliseconds, also the directory name
	OriginalPath string `json:"originalPath"`
	SnapshotPath string `json:"snapshotPath"`
}

// SnapshotDirName returns the snapshot directory name for a millisecond timestamp.
func SnapshotDirName(ts int64) string {
	return strconv.FormatInt(ts, 10)
}

// UndoType identifies the kind of reversible operation on the undo stack.
type UndoType string

const (
	UndoFileEdit   UndoType = "file_edit"
	UndoFileDelete UndoType = "file_delete"
)

// UndoAction is one entry of the undo stack. SnapshotPath references a
// snapshot store file; the stack never owns it.
type UndoAction struct {
	Type         UndoType `json:"type"`
	Path         string   `json:"path"`
	SnapshotPath string   `json:"snapshotPath,omitempty"`
	Timestamp    int64    `json:"timestamp"`
}
