// Package undo implements the bounded, process-lifetime undo stack. Entries
// reference snapshot store files by path and never own them.
package undo

import (
	"errors"
	"io/fs"
	"os"
	"sync"

	"github.com/sumerian-dev/sumerian/pkg/errclass"
	"github.com/sumerian-dev/sumerian/pkg/fsutil"
	"github.com/sumerian-dev/sumerian/pkg/logging"
	"github.com/sumerian-dev/sumerian/pkg/metrics"
	"github.com/sumerian-dev/sumerian/pkg/model"
)

// DefaultMaxDepth is the maximum number of entries kept.
const DefaultMaxDepth = 50

// Stack is a single global undo chain for one session. Push beyond the
// cap drops the oldest entry; Undo pops the newest.
type Stack struct {
	mu      sync.Mutex
	actions []model.UndoAction
	max     int
	log     *logging.Logger
	metrics *metrics.Registry
}

// NewStack creates an empty stack. A non-positive max selects DefaultMaxDepth.
func NewStack(max int, reg *metrics.Registry) *Stack {
	if max <= 0 {
		max = DefaultMaxDepth
	}
	return &Stack{
		max:     max,
		log:     logging.WithFields(logging.Fields{"component": "undo"}),
		metrics: metrics.OrDefault(reg),
	}
}

// Push appends action, evicting the oldest entry when over capacity. The
// evicted entry's snapshot file is left for snapshot retention to reclaim.
func (s *Stack) Push(action model.UndoAction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.actions = append(s.actions, action)
	if over := len(s.actions) - s.max; over > 0 {
		s.actions = append(s.actions[:0:0], s.actions[over:]...)
	}
}

// Len returns the number of entries.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.actions)
}

// Entries returns a copy of the stack, oldest first.
func (s *Stack) Entries() []model.UndoAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.UndoAction(nil), s.actions...)
}

// Result describes one Undo call. Action is nil when the stack was empty.
type Result struct {
	Restored bool
	Action   *model.UndoAction
	Err      error
}

// Undo pops the newest entry. A file_edit with a snapshot path has the
// snapshot bytes copied back onto its original path. Every other shape,
// and every restore failure, yields Restored=false. The popped entry is
// consumed either way.
func (s *Stack) Undo() Result {
	action, ok := s.pop()
	if !ok {
		s.metrics.UndoOutcomes.WithLabelValues("empty").Inc()
		return Result{}
	}

	res := Result{Action: &action}
	if action.Type != model.UndoFileEdit || action.SnapshotPath == "" {
		s.metrics.UndoOutcomes.WithLabelValues("unsupported").Inc()
		return res
	}

	if _, err := os.Stat(action.SnapshotPath); errors.Is(err, fs.ErrNotExist) {
		res.Err = errclass.ErrSnapshotMissing.WithMessagef("snapshot %s for %s was pruned", action.SnapshotPath, action.Path)
		s.metrics.UndoOutcomes.WithLabelValues("missing_snapshot").Inc()
		s.log.Warn("undo target snapshot missing", logging.Fields{"path": action.Path, "snapshot": action.SnapshotPath})
		return res
	}

	if err := fsutil.CopyFile(action.SnapshotPath, action.Path, 0644); err != nil {
		res.Err = errclass.NewIOError("undo", action.Path, err)
		s.metrics.UndoOutcomes.WithLabelValues("failed").Inc()
		s.log.WarnErr("undo restore failed", err, logging.Fields{"path": action.Path, "snapshot": action.SnapshotPath})
		return res
	}

	res.Restored = true
	s.metrics.UndoOutcomes.WithLabelValues("restored").Inc()
	return res
}

func (s *Stack) pop() (model.UndoAction, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.actions) == 0 {
		return model.UndoAction{}, false
	}
	last := s.actions[len(s.actions)-1]
	s.actions = s.actions[:len(s.actions)-1]
	return last, true
}
