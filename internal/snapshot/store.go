// Package snapshot implements the snapshot store: point-in-time copies of
// single files captured before destructive agent operations, kept under
// <projectRoot>/.sumerian/snapshots/<unix_ms>/<basename>.
package snapshot

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/sumerian-dev/sumerian/pkg/errclass"
	"github.com/sumerian-dev/sumerian/pkg/fsutil"
	"github.com/sumerian-dev/sumerian/pkg/logging"
	"github.com/sumerian-dev/sumerian/pkg/metrics"
	"github.com/sumerian-dev/sumerian/pkg/model"
)

// DefaultMaxRetained is the retention cap on snapshot directories.
const DefaultMaxRetained = 50

// maxClaimAttempts bounds the search for a free millisecond directory.
const maxClaimAttempts = 1000

// Dir returns the snapshot store directory for a project root.
func Dir(projectRoot string) string {
	return filepath.Join(projectRoot, model.DirName, "snapshots")
}

// Store captures and prunes snapshots for one project root.
type Store struct {
	dir         string
	maxRetained int
	log         *logging.Logger
	metrics     *metrics.Registry
	now         func() time.Time
}

// NewStore creates a snapshot store rooted at projectRoot. A non-positive
// maxRetained selects DefaultMaxRetained.
func NewStore(projectRoot string, maxRetained int, reg *metrics.Registry) *Store {
	if maxRetained <= 0 {
		maxRetained = DefaultMaxRetained
	}
	return &Store{
		dir:         Dir(projectRoot),
		maxRetained: maxRetained,
		log:         logging.WithFields(logging.Fields{"component": "snapshot"}),
		metrics:     metrics.OrDefault(reg),
		now:         time.Now,
	}
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Capture copies the current bytes of filePath into a new snapshot
// directory and then prunes the store. Failures are returned as
// ErrSnapshotCapture; callers treat them as non-fatal.
func (s *Store) Capture(filePath string) (*model.Snapshot, error) {
	snap, err := s.capture(filePath)
	if err != nil {
		s.metrics.SnapshotFailures.Inc()
		s.log.WarnErr("snapshot capture failed", err, logging.Fields{"path": filePath})
		return nil, errclass.ErrSnapshotCapture.WithMessagef("%s: %v", filePath, err)
	}
	s.metrics.SnapshotsCaptured.Inc()
	s.Prune()
	return snap, nil
}

func (s *Store) capture(filePath string) (*model.Snapshot, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("is a directory")
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	ts, snapDir, err := s.claimDir()
	if err != nil {
		return nil, err
	}

	snapPath := filepath.Join(snapDir, filepath.Base(filePath))
	if err := fsutil.AtomicWrite(snapPath, data, info.Mode().Perm()); err != nil {
		os.RemoveAll(snapDir)
		return nil, err
	}

	return &model.Snapshot{
		ID:           model.SnapshotDirName(ts),
		Timestamp:    ts,
		OriginalPath: filePath,
		SnapshotPath: snapPath,
	}, nil
}

// claimDir creates the directory for the current millisecond, moving to
// the next free millisecond when it is already taken.
func (s *Store) claimDir() (int64, string, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return 0, "", fmt.Errorf("create snapshot store: %w", err)
	}
	ts := s.now().UnixMilli()
	for i := 0; i < maxClaimAttempts; i++ {
		dir := filepath.Join(s.dir, model.SnapshotDirName(ts))
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return ts, dir, nil
		}
		if !os.IsExist(err) {
			return 0, "", fmt.Errorf("create snapshot dir: %w", err)
		}
		ts++
	}
	return 0, "", fmt.Errorf("no free snapshot slot after %d attempts", maxClaimAttempts)
}

// PruneResult reports what retention removed.
type PruneResult struct {
	Removed []string        `json:"removed"`
	Failed  []model.Skipped `json:"failed,omitempty"`
}

// Prune deletes the oldest snapshot directories beyond the retention cap,
// ordered by their numeric name. Failures are logged, not returned.
func (s *Store) Prune() PruneResult {
	var result PruneResult

	stamps, err := s.timestamps()
	if err != nil {
		s.log.WarnErr("snapshot prune: list failed", err, logging.Fields{"dir": s.dir})
		return result
	}
	excess := len(stamps) - s.maxRetained
	if excess <= 0 {
		return result
	}

	for _, ts := range stamps[:excess] {
		dir := filepath.Join(s.dir, model.SnapshotDirName(ts))
		if err := os.RemoveAll(dir); err != nil {
			s.log.WarnErr("snapshot prune: remove failed", err, logging.Fields{"dir": dir})
			result.Failed = append(result.Failed, model.Skipped{Path: dir, Reason: err.Error()})
			continue
		}
		result.Removed = append(result.Removed, dir)
	}
	s.metrics.SnapshotsPruned.Add(float64(len(result.Removed)))
	return result
}

// timestamps returns the numeric snapshot directory names, oldest first.
func (s *Store) timestamps() ([]int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var stamps []int64
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ts, err := strconv.ParseInt(e.Name(), 10, 64)
		if err != nil {
			continue
		}
		stamps = append(stamps, ts)
	}
	slices.Sort(stamps)
	return stamps, nil
}

// List returns every snapshot in the store, newest first. OriginalPath is
// not recorded on disk and is left empty.
func (s *Store) List() ([]*model.Snapshot, error) {
	stamps, err := s.timestamps()
	if err != nil {
		return nil, fmt.Errorf("read snapshot store: %w", err)
	}

	out := make([]*model.Snapshot, 0, len(stamps))
	for _, ts := range slices.Backward(stamps) {
		dir := filepath.Join(s.dir, model.SnapshotDirName(ts))
		files, err := os.ReadDir(dir)
		if err != nil || len(files) == 0 {
			continue
		}
		out = append(out, &model.Snapshot{
			ID:           model.SnapshotDirName(ts),
			Timestamp:    ts,
			SnapshotPath: filepath.Join(dir, files[0].Name()),
		})
	}
	return out, nil
}
