// Package fileops is the single entry point for reading and mutating
// project files. Every path is checked against the project boundary, agent
// edits are snapshotted for undo, and outcomes are written to the audit
// trail.
package fileops

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/sumerian-dev/sumerian/internal/audit"
	"github.com/sumerian-dev/sumerian/pkg/errclass"
	"github.com/sumerian-dev/sumerian/pkg/fsutil"
	"github.com/sumerian-dev/sumerian/pkg/logging"
	"github.com/sumerian-dev/sumerian/pkg/metrics"
	"github.com/sumerian-dev/sumerian/pkg/model"
)

// Options configures a Service.
type Options struct {
	// Recorder receives audit entries. Nil discards them.
	Recorder audit.Recorder
	Metrics  *metrics.Registry
}

// Service sequences boundary checks, snapshots, filesystem mutations,
// audit records and undo bookkeeping. Until SetProjectRoot is called it
// runs in pass-through mode with no boundary and no snapshots.
//
// Service does not serialize operations; concurrent writes to one path
// are last-writer-wins.
type Service struct {
	mu       sync.RWMutex
	session  *Session
	recorder audit.Recorder
	metrics  *metrics.Registry
	log      *logging.Logger
}

// New creates a Service in pass-through mode.
func New(opts Options) *Service {
	rec := opts.Recorder
	if rec == nil {
		rec = audit.Discard{}
	}
	return &Service{
		recorder: rec,
		metrics:  metrics.OrDefault(opts.Metrics),
		log:      logging.WithFields(logging.Fields{"component": "fileops"}),
	}
}

// SetProjectRoot replaces the active session with a fresh one for root.
// An empty root returns the service to pass-through mode.
func (s *Service) SetProjectRoot(root string) error {
	if root == "" {
		s.mu.Lock()
		s.session = nil
		s.mu.Unlock()
		s.log.Info("project root cleared")
		return nil
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve project root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return errclass.NewIOError("set project root", abs, err)
	}
	if !info.IsDir() {
		return errclass.NewIOError("set project root", abs, fmt.Errorf("not a directory"))
	}

	sess, err := NewSession(abs, s.metrics)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.session = sess
	s.mu.Unlock()
	s.log.Info("project root set", logging.Fields{"root": sess.Root, "session": sess.ID})
	return nil
}

// Session returns the active session, or nil in pass-through mode.
func (s *Service) Session() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}

// ProjectRoot returns the active root, or "" in pass-through mode.
func (s *Service) ProjectRoot() string {
	if sess := s.Session(); sess != nil {
		return sess.Root
	}
	return ""
}

func (s *Service) requireSession() (*Session, error) {
	sess := s.Session()
	if sess == nil {
		return nil, errclass.ErrNoProject.WithMessage("no project root is set")
	}
	return sess, nil
}

// OpOptions carries caller-side flags recorded with mutations.
type OpOptions struct {
	BraveMode bool
}

// MutationResult describes a completed write or delete.
type MutationResult struct {
	Path       string          `json:"path"`
	Reversible bool            `json:"reversible"`
	Snapshot   *model.Snapshot `json:"snapshot,omitempty"`
}

// authorize resolves path and checks it against the boundary of sess.
// Denials are audited as blocked and unknown actors as errors before the
// error is returned.
func (s *Service) authorize(sess *Session, action model.AuditAction, path string, actor model.Actor, brave bool) (string, error) {
	if !actor.Valid() {
		target := path
		if abs, err := filepath.Abs(path); err == nil {
			target = abs
		}
		return "", s.rejectActor(action, target, actor, brave)
	}
	if sess == nil {
		abs, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("resolve path: %w", err)
		}
		return abs, nil
	}

	abs := sess.Guard.Abs(path)
	decision := sess.Guard.Check(abs)
	if decision.Allowed {
		return abs, nil
	}

	s.record(model.AuditEntry{
		Action:    action,
		Actor:     actor,
		Target:    abs,
		BraveMode: brave,
		Result:    model.ResultBlocked,
		Details:   decision.Reason,
	})
	s.log.Warn("access denied", logging.Fields{"action": string(action), "path": abs, "actor": string(actor)})
	return "", errclass.ErrAccessDenied.WithMessage(decision.Reason)
}

// rejectActor audits an operation attempted with an unknown actor as an
// error and returns the error.
func (s *Service) rejectActor(action model.AuditAction, target string, actor model.Actor, brave bool) error {
	err := fmt.Errorf("unknown actor %q", actor)
	s.record(model.AuditEntry{
		Action:    action,
		Actor:     actor,
		Target:    target,
		BraveMode: brave,
		Result:    model.ResultError,
		Details:   err.Error(),
	})
	return err
}

func (s *Service) record(entry model.AuditEntry) {
	s.metrics.Operations.WithLabelValues(string(entry.Action), string(entry.Result)).Inc()
	s.recorder.Record(entry)
}

// Read returns the bytes of path. Only denied reads are audited.
func (s *Service) Read(path string, actor model.Actor) ([]byte, error) {
	abs, err := s.authorize(s.Session(), model.ActionRead, path, actor, false)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, errclass.NewIOError("read", abs, err)
	}
	return data, nil
}

// ReadText returns the content of path as a string.
func (s *Service) ReadText(path string, actor model.Actor) (string, error) {
	data, err := s.Read(path, actor)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Write replaces the content of path, creating parent directories. When an
// agent overwrites an existing file inside a project, the old content is
// snapshotted first and an undo entry is pushed once the write succeeds.
// A failed snapshot does not block the write; it is recorded as
// reversible=false.
func (s *Service) Write(path string, content []byte, actor model.Actor, opts OpOptions) (*MutationResult, error) {
	sess := s.Session()
	abs, err := s.authorize(sess, model.ActionWrite, path, actor, opts.BraveMode)
	if err != nil {
		return nil, err
	}

	snap := s.captureBeforeChange(sess, abs, actor)
	entry := model.AuditEntry{
		Action:     model.ActionWrite,
		Actor:      actor,
		Target:     abs,
		BraveMode:  opts.BraveMode,
		Reversible: snap != nil,
	}
	if snap != nil {
		entry.SnapshotPath = snap.SnapshotPath
	}

	perm := fs.FileMode(0644)
	if info, err := os.Stat(abs); err == nil {
		perm = info.Mode().Perm()
	}
	if err := fsutil.WriteFileMkdir(abs, content, perm); err != nil {
		entry.Result = model.ResultError
		entry.Details = err.Error()
		s.record(entry)
		return nil, errclass.NewIOError("write", abs, err)
	}

	entry.Result = model.ResultSuccess
	s.record(entry)
	if snap != nil {
		sess.Undo.Push(model.UndoAction{
			Type:         model.UndoFileEdit,
			Path:         abs,
			SnapshotPath: snap.SnapshotPath,
			Timestamp:    snap.Timestamp,
		})
	}
	return &MutationResult{Path: abs, Reversible: snap != nil, Snapshot: snap}, nil
}

// WriteText is Write for string content.
func (s *Service) WriteText(path, content string, actor model.Actor, opts OpOptions) (*MutationResult, error) {
	return s.Write(path, []byte(content), actor, opts)
}

// Delete removes path. Agent deletes of a single file inside a project are
// snapshotted first. Directories are removed recursively and are never
// reversible.
func (s *Service) Delete(path string, actor model.Actor, opts OpOptions) (*MutationResult, error) {
	sess := s.Session()
	abs, err := s.authorize(sess, model.ActionDelete, path, actor, opts.BraveMode)
	if err != nil {
		return nil, err
	}

	entry := model.AuditEntry{
		Action:    model.ActionDelete,
		Actor:     actor,
		Target:    abs,
		BraveMode: opts.BraveMode,
	}

	info, err := os.Lstat(abs)
	if err != nil {
		entry.Result = model.ResultError
		entry.Details = err.Error()
		s.record(entry)
		return nil, errclass.NewIOError("delete", abs, err)
	}

	var snap *model.Snapshot
	if info.IsDir() {
		entry.Details = "recursive directory delete"
		err = os.RemoveAll(abs)
	} else {
		snap = s.captureBeforeChange(sess, abs, actor)
		if snap != nil {
			entry.Reversible = true
			entry.SnapshotPath = snap.SnapshotPath
		}
		err = os.Remove(abs)
	}
	if err != nil {
		entry.Result = model.ResultError
		entry.Details = err.Error()
		s.record(entry)
		return nil, errclass.NewIOError("delete", abs, err)
	}

	entry.Result = model.ResultSuccess
	s.record(entry)
	if snap != nil {
		sess.Undo.Push(model.UndoAction{
			Type:         model.UndoFileDelete,
			Path:         abs,
			SnapshotPath: snap.SnapshotPath,
			Timestamp:    snap.Timestamp,
		})
	}
	return &MutationResult{Path: abs, Reversible: snap != nil, Snapshot: snap}, nil
}

// captureBeforeChange snapshots an existing regular file before an agent
// changes it. It returns nil when no snapshot applies or capture failed.
func (s *Service) captureBeforeChange(sess *Session, abs string, actor model.Actor) *model.Snapshot {
	if sess == nil || actor != model.ActorAgent {
		return nil
	}
	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.log.WarnErr("stat before snapshot failed", err, logging.Fields{"path": abs})
		}
		return nil
	}
	snap, err := sess.Snapshots.Capture(abs)
	if err != nil {
		// Logged by the store; the mutation proceeds as irreversible.
		return nil
	}
	return snap
}
