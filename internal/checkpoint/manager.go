// Package checkpoint implements durable, labeled, multi-file checkpoints.
//
// A checkpoint lives in <projectRoot>/.sumerian/checkpoints/checkpoint-<ms>/
// and holds metadata.json (the full LabeledCheckpoint with inlined content)
// plus a mirror of every captured file at its project-relative path.
// Checkpoints are immutable once created.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/sumerian-dev/sumerian/internal/integrity"
	"github.com/sumerian-dev/sumerian/pkg/errclass"
	"github.com/sumerian-dev/sumerian/pkg/fsutil"
	"github.com/sumerian-dev/sumerian/pkg/logging"
	"github.com/sumerian-dev/sumerian/pkg/metrics"
	"github.com/sumerian-dev/sumerian/pkg/model"
	"github.com/sumerian-dev/sumerian/pkg/pathutil"
)

// DefaultMaxRetained is the retention cap on checkpoints.
const DefaultMaxRetained = 20

// MetadataFile is the metadata file name inside a checkpoint directory.
const MetadataFile = "metadata.json"

const maxClaimAttempts = 1000

// Dir returns the checkpoint directory for a project root.
func Dir(projectRoot string) string {
	return filepath.Join(projectRoot, model.DirName, "checkpoints")
}

// Manager creates, lists, rolls back and deletes checkpoints for one root.
type Manager struct {
	root        string
	dir         string
	maxRetained int
	log         *logging.Logger
	metrics     *metrics.Registry
	now         func() time.Time
}

// NewManager returns a manager for projectRoot. A non-positive maxRetained
// selects DefaultMaxRetained.
func NewManager(projectRoot string, maxRetained int, reg *metrics.Registry) *Manager {
	if maxRetained <= 0 {
		maxRetained = DefaultMaxRetained
	}
	root := filepath.Clean(projectRoot)
	return &Manager{
		root:        root,
		dir:         Dir(root),
		maxRetained: maxRetained,
		log:         logging.WithFields(logging.Fields{"component": "checkpoint"}),
		metrics:     metrics.OrDefault(reg),
		now:         time.Now,
	}
}

// Path returns the directory of checkpoint id.
func (m *Manager) Path(id string) string {
	return filepath.Join(m.dir, id)
}

// CreateResult is the outcome of Create. Skipped lists requested files that
// could not be captured; Evicted lists checkpoints removed by retention.
type CreateResult struct {
	Checkpoint *model.LabeledCheckpoint `json:"checkpoint"`
	Skipped    []model.Skipped          `json:"skipped,omitempty"`
	Evicted    []string                 `json:"evicted,omitempty"`
}

// Create captures files under label. Unreadable files and files outside
// the project root are skipped; the checkpoint holds whatever subset was
// captured, possibly nothing.
func (m *Manager) Create(label string, files []string) (*CreateResult, error) {
	label, err := pathutil.ValidateLabel(label)
	if err != nil {
		return nil, err
	}

	result := &CreateResult{}
	type captured struct {
		abs, rel string
		data     []byte
		perm     fs.FileMode
	}
	var items []captured
	seen := make(map[string]bool)

	for _, f := range files {
		abs, rel, err := m.resolve(f)
		if err != nil {
			result.Skipped = append(result.Skipped, model.Skipped{Path: f, Reason: err.Error()})
			continue
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true

		info, err := os.Stat(abs)
		if err == nil && info.IsDir() {
			err = fmt.Errorf("is a directory")
		}
		var data []byte
		if err == nil {
			data, err = os.ReadFile(abs)
		}
		if err != nil {
			result.Skipped = append(result.Skipped, model.Skipped{Path: abs, Reason: err.Error()})
			continue
		}
		items = append(items, captured{abs: abs, rel: rel, data: data, perm: info.Mode().Perm()})
	}

	ts, cpDir, err := m.claimDir()
	if err != nil {
		return nil, errclass.NewIOError("checkpoint create", m.dir, err)
	}

	cp := &model.LabeledCheckpoint{
		Version:   model.CheckpointFormatVersion,
		ID:        model.NewCheckpointID(ts),
		Label:     label,
		Timestamp: ts,
		Files:     make([]model.CheckpointFile, 0, len(items)),
	}
	for _, it := range items {
		cp.Files = append(cp.Files, encodeFile(it.abs, it.data))
		if mirror := mirrorPath(cpDir, it.rel); mirror != "" {
			if err := fsutil.WriteFileMkdir(mirror, it.data, it.perm); err != nil {
				// Inline content still carries the file.
				m.log.WarnErr("checkpoint mirror write failed", err, logging.Fields{"id": cp.ID, "path": it.abs})
			}
		}
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		os.RemoveAll(cpDir)
		return nil, fmt.Errorf("marshal checkpoint metadata: %w", err)
	}
	if err := fsutil.AtomicWrite(filepath.Join(cpDir, MetadataFile), data, 0644); err != nil {
		os.RemoveAll(cpDir)
		return nil, errclass.NewIOError("checkpoint create", filepath.Join(cpDir, MetadataFile), err)
	}

	for _, s := range result.Skipped {
		m.log.Warn("checkpoint file skipped", logging.Fields{"id": cp.ID, "path": s.Path, "reason": s.Reason})
	}
	m.metrics.Checkpoints.WithLabelValues("create").Inc()
	m.metrics.CheckpointSkipped.Add(float64(len(result.Skipped)))

	result.Checkpoint = cp
	result.Evicted = m.prune()
	return result, nil
}

// resolve returns the absolute path of f and its path relative to the
// project root, rejecting anything outside the root.
func (m *Manager) resolve(f string) (string, string, error) {
	abs := f
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(m.root, abs)
	}
	abs = filepath.Clean(abs)

	croot, cabs := pathutil.Canonicalize(m.root), pathutil.Canonicalize(abs)
	if !pathutil.IsWithin(croot, cabs) {
		return "", "", fmt.Errorf("outside project root %s", m.root)
	}
	rel, err := filepath.Rel(croot, cabs)
	if err != nil || rel == "." {
		return "", "", fmt.Errorf("not a file below project root %s", m.root)
	}
	return abs, rel, nil
}

// mirrorPath returns where rel is mirrored inside cpDir, or "" when the
// mirror would collide with the metadata file.
func mirrorPath(cpDir, rel string) string {
	if rel == MetadataFile {
		return ""
	}
	return filepath.Join(cpDir, rel)
}

func encodeFile(abs string, data []byte) model.CheckpointFile {
	content, enc := encodeContent(data)
	return model.CheckpointFile{
		Path:     abs,
		Content:  content,
		Encoding: enc,
		SHA256:   integrity.ComputeContentHash(data),
	}
}

// claimDir creates the directory for the current millisecond, moving to
// the next free millisecond when the id is taken.
func (m *Manager) claimDir() (int64, string, error) {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return 0, "", fmt.Errorf("create checkpoint store: %w", err)
	}
	ts := m.now().UnixMilli()
	for i := 0; i < maxClaimAttempts; i++ {
		dir := m.Path(model.NewCheckpointID(ts))
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return ts, dir, nil
		}
		if !os.IsExist(err) {
			return 0, "", fmt.Errorf("create checkpoint dir: %w", err)
		}
		ts++
	}
	return 0, "", fmt.Errorf("no free checkpoint id after %d attempts", maxClaimAttempts)
}

// prune deletes the oldest checkpoints beyond the retention cap through
// Delete and returns the evicted ids.
func (m *Manager) prune() []string {
	ids, err := m.ids()
	if err != nil {
		m.log.WarnErr("checkpoint prune: list failed", err, logging.Fields{"dir": m.dir})
		return nil
	}
	excess := len(ids) - m.maxRetained
	if excess <= 0 {
		return nil
	}

	var evicted []string
	for _, id := range ids[:excess] {
		if err := m.Delete(id); err != nil {
			m.log.WarnErr("checkpoint prune: delete failed", err, logging.Fields{"id": id})
			continue
		}
		m.metrics.Checkpoints.WithLabelValues("evict").Inc()
		evicted = append(evicted, id)
	}
	return evicted
}

// ids returns checkpoint directory names, oldest first by timestamp.
func (m *Manager) ids() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	type idTS struct {
		id string
		ts int64
	}
	var found []idTS
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		ts, err := model.ParseCheckpointID(e.Name())
		if err != nil {
			continue
		}
		found = append(found, idTS{id: e.Name(), ts: ts})
	}
	slices.SortFunc(found, func(a, b idTS) int {
		switch {
		case a.ts < b.ts:
			return -1
		case a.ts > b.ts:
			return 1
		}
		return strings.Compare(a.id, b.id)
	})

	out := make([]string, len(found))
	for i, f := range found {
		out[i] = f.id
	}
	return out, nil
}

// List returns all readable checkpoints, newest first. Checkpoints with
// missing, malformed or unsupported metadata are skipped with a warning.
func (m *Manager) List() ([]*model.LabeledCheckpoint, error) {
	ids, err := m.ids()
	if err != nil {
		return nil, errclass.NewIOError("checkpoint list", m.dir, err)
	}

	out := make([]*model.LabeledCheckpoint, 0, len(ids))
	for _, id := range slices.Backward(ids) {
		cp, err := m.Get(id)
		if err != nil {
			m.log.WarnErr("checkpoint skipped in list", err, logging.Fields{"id": id})
			continue
		}
		out = append(out, cp)
	}
	return out, nil
}

// Get loads the metadata of checkpoint id.
func (m *Manager) Get(id string) (*model.LabeledCheckpoint, error) {
	if _, err := model.ParseCheckpointID(id); err != nil {
		return nil, errclass.ErrCheckpointNotFound.WithMessagef("checkpoint %q not found", id)
	}

	metaPath := filepath.Join(m.Path(id), MetadataFile)
	data, err := os.ReadFile(metaPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errclass.ErrCheckpointNotFound.WithMessagef("checkpoint %q not found", id)
		}
		return nil, errclass.NewIOError("checkpoint read", metaPath, err)
	}

	var cp model.LabeledCheckpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, errclass.ErrMetadataCorrupt.WithMessagef("%s: %v", metaPath, err)
	}
	if cp.Version != model.CheckpointFormatVersion {
		return nil, errclass.ErrFormatUnsupported.WithMessagef("%s: version %d", metaPath, cp.Version)
	}
	if cp.ID != id {
		return nil, errclass.ErrMetadataCorrupt.WithMessagef("%s: id %q does not match directory", metaPath, cp.ID)
	}
	return &cp, nil
}

// RollbackResult lists the files rollback restored and the ones it skipped.
type RollbackResult struct {
	ID       string          `json:"id"`
	Restored []string        `json:"restored"`
	Skipped  []model.Skipped `json:"skipped,omitempty"`
}

// Rollback restores every file recorded in checkpoint id onto its original
// path. Each file is restored independently: a failure is logged and
// skipped, and the rest still proceed.
func (m *Manager) Rollback(id string) (*RollbackResult, error) {
	cp, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	result := &RollbackResult{ID: id, Restored: []string{}}
	cpDir := m.Path(id)
	for _, f := range cp.Files {
		if err := m.restore(cpDir, f); err != nil {
			m.log.WarnErr("checkpoint rollback: file skipped", err, logging.Fields{"id": id, "path": f.Path})
			result.Skipped = append(result.Skipped, model.Skipped{Path: f.Path, Reason: err.Error()})
			continue
		}
		result.Restored = append(result.Restored, f.Path)
	}

	m.metrics.Checkpoints.WithLabelValues("rollback").Inc()
	m.metrics.CheckpointSkipped.Add(float64(len(result.Skipped)))
	return result, nil
}

// restore writes one checkpoint file back. The mirror copy is used when it
// matches the recorded hash, otherwise the inlined content.
func (m *Manager) restore(cpDir string, f model.CheckpointFile) error {
	abs, rel, err := m.resolve(f.Path)
	if err != nil {
		return err
	}

	data, err := m.mirrorContent(cpDir, rel, f)
	if err != nil {
		data, err = decodeContent(f)
		if err != nil {
			return err
		}
	}

	perm := fs.FileMode(0644)
	if info, err := os.Stat(abs); err == nil {
		if info.IsDir() {
			return fmt.Errorf("target is a directory")
		}
		perm = info.Mode().Perm()
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return err
	}
	return fsutil.AtomicWrite(abs, data, perm)
}

func (m *Manager) mirrorContent(cpDir, rel string, f model.CheckpointFile) ([]byte, error) {
	mirror := mirrorPath(cpDir, rel)
	if mirror == "" {
		return nil, fmt.Errorf("no mirror for %s", rel)
	}
	data, err := os.ReadFile(mirror)
	if err != nil {
		return nil, err
	}
	if f.SHA256 != "" && integrity.ComputeContentHash(data) != f.SHA256 {
		m.log.Warn("checkpoint mirror hash mismatch, using inline content", logging.Fields{"path": mirror})
		return nil, fmt.Errorf("mirror hash mismatch")
	}
	return data, nil
}

// Delete removes checkpoint id. Deleting an absent or malformed id is a no-op.
func (m *Manager) Delete(id string) error {
	if _, err := model.ParseCheckpointID(id); err != nil || filepath.Base(id) != id {
		return nil
	}
	if err := os.RemoveAll(m.Path(id)); err != nil {
		return errclass.NewIOError("checkpoint delete", m.Path(id), err)
	}
	m.metrics.Checkpoints.WithLabelValues("delete").Inc()
	return nil
}
