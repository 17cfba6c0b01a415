package fileops

import (
	"context"
	"fmt"

	"github.com/sumerian-dev/sumerian/internal/checkpoint"
	"github.com/sumerian-dev/sumerian/internal/undo"
	"github.com/sumerian-dev/sumerian/internal/watch"
	"github.com/sumerian-dev/sumerian/pkg/logging"
	"github.com/sumerian-dev/sumerian/pkg/model"
)

// Watch subscribes onEvent to changes under dir until the returned cancel
// function is called or ctx ends.
func (s *Service) Watch(ctx context.Context, dir string, actor model.Actor, onEvent watch.Handler) (func(), error) {
	sess := s.Session()
	abs, err := s.authorize(sess, model.ActionWatch, dir, actor, false)
	if err != nil {
		return nil, err
	}

	opts := watch.Options{Metrics: s.metrics}
	if sess != nil {
		wc := sess.Config.Watch
		opts.Debounce, opts.Settle, opts.MaxDepth, opts.Ignore = wc.Debounce, wc.Settle, wc.MaxDepth, wc.Ignore
	}
	return watch.Start(ctx, abs, opts, onEvent)
}

// Undo reverts the most recent reversible agent edit of the session. An
// empty stack is a no-op and is not audited.
func (s *Service) Undo(actor model.Actor) (undo.Result, error) {
	if !actor.Valid() {
		return undo.Result{}, s.rejectActor(model.ActionUndo, s.ProjectRoot(), actor, false)
	}
	sess, err := s.requireSession()
	if err != nil {
		return undo.Result{}, err
	}

	res := sess.Undo.Undo()
	if res.Action == nil {
		return res, nil
	}

	entry := model.AuditEntry{
		Action:       model.ActionUndo,
		Actor:        actor,
		Target:       res.Action.Path,
		SnapshotPath: res.Action.SnapshotPath,
		Result:       model.ResultSuccess,
	}
	switch {
	case res.Err != nil:
		entry.Result = model.ResultError
		entry.Details = res.Err.Error()
	case !res.Restored:
		entry.Result = model.ResultError
		entry.Details = fmt.Sprintf("%s entry is not restorable", res.Action.Type)
	}
	s.record(entry)
	return res, nil
}

// CreateCheckpoint captures files under label. Every path must pass the
// boundary check; one denied path denies the whole checkpoint. Files that
// cannot be read are skipped and reported in the result.
func (s *Service) CreateCheckpoint(label string, files []string, actor model.Actor) (*checkpoint.CreateResult, error) {
	if !actor.Valid() {
		return nil, s.rejectActor(model.ActionCheckpointCreate, s.ProjectRoot(), actor, false)
	}
	sess, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	resolved := make([]string, 0, len(files))
	for _, f := range files {
		abs, err := s.authorize(sess, model.ActionCheckpointCreate, f, actor, false)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, abs)
	}

	res, err := sess.Checkpoints.Create(label, resolved)
	if err != nil {
		s.record(model.AuditEntry{
			Action:  model.ActionCheckpointCreate,
			Actor:   actor,
			Target:  sess.Root,
			Result:  model.ResultError,
			Details: err.Error(),
		})
		return nil, err
	}

	s.record(model.AuditEntry{
		Action:     model.ActionCheckpointCreate,
		Actor:      actor,
		Target:     sess.Checkpoints.Path(res.Checkpoint.ID),
		Reversible: true,
		Result:     model.ResultSuccess,
		Details:    fmt.Sprintf("label=%q files=%d skipped=%d", res.Checkpoint.Label, len(res.Checkpoint.Files), len(res.Skipped)),
	})
	return res, nil
}

// ListCheckpoints returns the session's checkpoints, newest first.
func (s *Service) ListCheckpoints() ([]*model.LabeledCheckpoint, error) {
	sess, err := s.requireSession()
	if err != nil {
		return nil, err
	}
	return sess.Checkpoints.List()
}

// RollbackCheckpoint restores the files of checkpoint id. Individual file
// failures are reported in the result; the rollback itself still succeeds.
func (s *Service) RollbackCheckpoint(id string, actor model.Actor) (*checkpoint.RollbackResult, error) {
	if !actor.Valid() {
		return nil, s.rejectActor(model.ActionCheckpointRollback, id, actor, false)
	}
	sess, err := s.requireSession()
	if err != nil {
		return nil, err
	}

	entry := model.AuditEntry{
		Action: model.ActionCheckpointRollback,
		Actor:  actor,
		Target: sess.Checkpoints.Path(id),
	}
	res, err := sess.Checkpoints.Rollback(id)
	if err != nil {
		entry.Result = model.ResultError
		entry.Details = err.Error()
		s.record(entry)
		return nil, err
	}

	entry.Result = model.ResultSuccess
	entry.Details = fmt.Sprintf("restored=%d skipped=%d", len(res.Restored), len(res.Skipped))
	s.record(entry)
	if len(res.Skipped) > 0 {
		s.log.Warn("checkpoint rollback incomplete", logging.Fields{"id": id, "skipped": len(res.Skipped)})
	}
	return res, nil
}

// DeleteCheckpoint removes checkpoint id. Unknown ids succeed.
func (s *Service) DeleteCheckpoint(id string, actor model.Actor) error {
	if !actor.Valid() {
		return s.rejectActor(model.ActionCheckpointDelete, id, actor, false)
	}
	sess, err := s.requireSession()
	if err != nil {
		return err
	}

	entry := model.AuditEntry{
		Action: model.ActionCheckpointDelete,
		Actor:  actor,
		Target: sess.Checkpoints.Path(id),
		Result: model.ResultSuccess,
	}
	if err := sess.Checkpoints.Delete(id); err != nil {
		entry.Result = model.ResultError
		entry.Details = err.Error()
		s.record(entry)
		return err
	}
	s.record(entry)
	return nil
}
