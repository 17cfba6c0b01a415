package fileops_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sumerian-dev/sumerian/internal/audit"
	"github.com/sumerian-dev/sumerian/internal/fileops"
	"github.com/sumerian-dev/sumerian/internal/snapshot"
	"github.com/sumerian-dev/sumerian/pkg/errclass"
	"github.com/sumerian-dev/sumerian/pkg/metrics"
	"github.com/sumerian-dev/sumerian/pkg/model"
)

type fixture struct {
	svc       *fileops.Service
	root      string
	auditPath string
	reg       *metrics.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "proj")
	require.NoError(t, os.Mkdir(root, 0755))
	auditPath := filepath.Join(base, "home", ".sumerian", "audit.log")
	reg := metrics.NewRegistry()

	svc := fileops.New(fileops.Options{Recorder: audit.NewTrail(auditPath, reg), Metrics: reg})
	require.NoError(t, svc.SetProjectRoot(root))
	return &fixture{svc: svc, root: root, auditPath: auditPath, reg: reg}
}

func (f *fixture) path(parts ...string) string {
	return filepath.Join(append([]string{f.root}, parts...)...)
}

func (f *fixture) entries(t *testing.T) []model.AuditEntry {
	t.Helper()
	file, err := os.Open(f.auditPath)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	defer file.Close()

	var out []model.AuditEntry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var e model.AuditEntry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		out = append(out, e)
	}
	require.NoError(t, scanner.Err())
	return out
}

func (f *fixture) snapshotCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(snapshot.Dir(f.root))
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	return len(entries)
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestService_AgentEditThenUndo(t *testing.T) {
	f := newFixture(t)
	a := f.path("a.txt")

	res, err := f.svc.WriteText(a, "v1", model.ActorUser, fileops.OpOptions{})
	require.NoError(t, err)
	assert.False(t, res.Reversible)
	assert.Zero(t, f.snapshotCount(t))

	res, err = f.svc.WriteText(a, "v2", model.ActorAgent, fileops.OpOptions{BraveMode: true})
	require.NoError(t, err)
	require.True(t, res.Reversible)
	require.NotNil(t, res.Snapshot)
	assert.Equal(t, "v1", readFile(t, res.Snapshot.SnapshotPath))
	assert.Equal(t, "v2", readFile(t, a))
	assert.Equal(t, 1, f.snapshotCount(t))
	assert.Equal(t, 1, f.svc.Session().Undo.Len())

	u, err := f.svc.Undo(model.ActorUser)
	require.NoError(t, err)
	assert.True(t, u.Restored)
	assert.Equal(t, "v1", readFile(t, a))

	u, err = f.svc.Undo(model.ActorUser)
	require.NoError(t, err)
	assert.False(t, u.Restored)
	assert.Nil(t, u.Action)
	assert.Equal(t, "v1", readFile(t, a))

	entries := f.entries(t)
	require.Len(t, entries, 3)
	assert.Equal(t, model.ActionWrite, entries[0].Action)
	assert.Equal(t, model.ActorUser, entries[0].Actor)
	assert.False(t, entries[0].Reversible)

	assert.Equal(t, model.ActorAgent, entries[1].Actor)
	assert.True(t, entries[1].BraveMode)
	assert.True(t, entries[1].Reversible)
	assert.Equal(t, res.Snapshot.SnapshotPath, entries[1].SnapshotPath)
	assert.Equal(t, model.ResultSuccess, entries[1].Result)

	assert.Equal(t, model.ActionUndo, entries[2].Action)
	assert.Equal(t, a, entries[2].Target)

	report, err := audit.Verify(f.auditPath)
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 3, report.Entries)
}

func TestService_AgentCreateIsNotSnapshotted(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.WriteText("src/new.ts", "export {}", model.ActorAgent, fileops.OpOptions{})
	require.NoError(t, err)
	assert.Equal(t, f.path("src", "new.ts"), res.Path)
	assert.False(t, res.Reversible)
	assert.Equal(t, "export {}", readFile(t, f.path("src", "new.ts")), "parent directories are created")
	assert.Zero(t, f.snapshotCount(t))
	assert.Zero(t, f.svc.Session().Undo.Len())
}

func TestService_DeniedOperationsTouchNothing(t *testing.T) {
	f := newFixture(t)
	sibling := f.root + "-evil"
	require.NoError(t, os.Mkdir(sibling, 0755))
	existing := filepath.Join(sibling, "keep.txt")
	require.NoError(t, os.WriteFile(existing, []byte("keep"), 0644))

	cases := []string{
		filepath.Join(sibling, "x.txt"),
		filepath.Join(f.root, "..", "escape.txt"),
		"../proj-evil/y.txt",
	}
	for _, p := range cases {
		_, err := f.svc.WriteText(p, "pwned", model.ActorAgent, fileops.OpOptions{})
		require.ErrorIs(t, err, errclass.ErrAccessDenied, p)
	}
	_, err := f.svc.Delete(existing, model.ActorAgent, fileops.OpOptions{})
	require.ErrorIs(t, err, errclass.ErrAccessDenied)
	_, err = f.svc.Read(existing, model.ActorAgent)
	require.ErrorIs(t, err, errclass.ErrAccessDenied)
	assert.Contains(t, err.Error(), existing)
	assert.Contains(t, err.Error(), f.root)

	assert.NoFileExists(t, filepath.Join(sibling, "x.txt"))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(f.root), "escape.txt"))
	assert.Equal(t, "keep", readFile(t, existing))
	assert.Zero(t, f.snapshotCount(t))

	entries := f.entries(t)
	require.Len(t, entries, 5)
	for _, e := range entries {
		assert.Equal(t, model.ResultBlocked, e.Result)
		assert.NotEmpty(t, e.Details)
	}
	assert.Equal(t, model.ActionRead, entries[4].Action)
	assert.Equal(t, 3.0, testutil.ToFloat64(f.reg.Operations.WithLabelValues("write", "blocked")))
}

func TestService_SymlinkEscapeIsDenied(t *testing.T) {
	f := newFixture(t)
	outside := t.TempDir()
	require.NoError(t, os.Symlink(outside, f.path("link")))

	_, err := f.svc.WriteText(f.path("link", "evil.txt"), "x", model.ActorAgent, fileops.OpOptions{})
	require.ErrorIs(t, err, errclass.ErrAccessDenied)
	assert.NoFileExists(t, filepath.Join(outside, "evil.txt"))
}

func TestService_ReadsAreNotAudited(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.path("a.txt"), []byte("hello"), 0644))

	got, err := f.svc.ReadText("a.txt", model.ActorAgent)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	_, err = f.svc.Read("missing.txt", model.ActorAgent)
	require.ErrorIs(t, err, errclass.ErrIOFailure)
	require.ErrorIs(t, err, os.ErrNotExist)

	assert.Empty(t, f.entries(t))
}

func TestService_WriteFailureIsAudited(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.path("file"), []byte("x"), 0644))

	_, err := f.svc.WriteText(f.path("file", "child.txt"), "x", model.ActorUser, fileops.OpOptions{})
	require.ErrorIs(t, err, errclass.ErrIOFailure)

	entries := f.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ResultError, entries[0].Result)
	assert.NotEmpty(t, entries[0].Details)
	assert.Zero(t, f.svc.Session().Undo.Len())
}

func TestService_SnapshotFailureDegradesReversibility(t *testing.T) {
	f := newFixture(t)
	a := f.path("a.txt")
	require.NoError(t, os.WriteFile(a, []byte("v1"), 0644))
	// A regular file where the snapshot directory belongs.
	require.NoError(t, os.MkdirAll(f.path(".sumerian"), 0755))
	require.NoError(t, os.WriteFile(snapshot.Dir(f.root), []byte("x"), 0644))

	res, err := f.svc.WriteText(a, "v2", model.ActorAgent, fileops.OpOptions{})
	require.NoError(t, err)
	assert.False(t, res.Reversible)
	assert.Equal(t, "v2", readFile(t, a))
	assert.Zero(t, f.svc.Session().Undo.Len())

	entries := f.entries(t)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Reversible)
	assert.Equal(t, model.ResultSuccess, entries[0].Result)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.reg.SnapshotFailures))
}

func TestService_DeleteFile(t *testing.T) {
	f := newFixture(t)
	a := f.path("a.txt")
	require.NoError(t, os.WriteFile(a, []byte("v1"), 0644))

	res, err := f.svc.Delete(a, model.ActorAgent, fileops.OpOptions{})
	require.NoError(t, err)
	assert.True(t, res.Reversible)
	assert.NoFileExists(t, a)
	assert.Equal(t, "v1", readFile(t, res.Snapshot.SnapshotPath))

	// Delete entries are recorded but not restored by undo.
	u, err := f.svc.Undo(model.ActorUser)
	require.NoError(t, err)
	assert.False(t, u.Restored)
	require.NotNil(t, u.Action)
	assert.Equal(t, model.UndoFileDelete, u.Action.Type)
	assert.NoFileExists(t, a)

	entries := f.entries(t)
	require.Len(t, entries, 2)
	assert.Equal(t, model.ActionDelete, entries[0].Action)
	assert.True(t, entries[0].Reversible)
	assert.Equal(t, model.ResultError, entries[1].Result)
}

func TestService_DeleteDirectoryIsIrreversible(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(f.path("lib", "deep"), 0755))
	require.NoError(t, os.WriteFile(f.path("lib", "deep", "x.go"), []byte("x"), 0644))

	res, err := f.svc.Delete("lib", model.ActorAgent, fileops.OpOptions{})
	require.NoError(t, err)
	assert.False(t, res.Reversible)
	assert.NoDirExists(t, f.path("lib"))
	assert.Zero(t, f.snapshotCount(t))

	entries := f.entries(t)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Reversible)
	assert.Equal(t, "recursive directory delete", entries[0].Details)
}

func TestService_DeleteMissing(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Delete("ghost.txt", model.ActorUser, fileops.OpOptions{})
	require.ErrorIs(t, err, errclass.ErrIOFailure)

	entries := f.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ResultError, entries[0].Result)
}

func TestService_UndoStackAndSnapshotsStayBounded(t *testing.T) {
	f := newFixture(t)
	a := f.path("a.txt")
	require.NoError(t, os.WriteFile(a, []byte("v0"), 0644))

	for i := 1; i <= 55; i++ {
		_, err := f.svc.WriteText(a, "v"+string(rune('0'+i%10)), model.ActorAgent, fileops.OpOptions{})
		require.NoError(t, err)
	}
	assert.Equal(t, 50, f.svc.Session().Undo.Len())
	assert.Equal(t, 50, f.snapshotCount(t))
}

func TestService_PassThroughMode(t *testing.T) {
	auditPath := filepath.Join(t.TempDir(), "audit.log")
	svc := fileops.New(fileops.Options{Recorder: audit.NewTrail(auditPath, nil), Metrics: metrics.NewRegistry()})
	anywhere := filepath.Join(t.TempDir(), "docs", "lore.md")

	res, err := svc.WriteText(anywhere, "v1", model.ActorAgent, fileops.OpOptions{})
	require.NoError(t, err)
	_, err = svc.WriteText(anywhere, "v2", model.ActorAgent, fileops.OpOptions{})
	require.NoError(t, err)
	assert.False(t, res.Reversible)
	assert.Equal(t, "v2", readFile(t, anywhere))
	assert.Empty(t, svc.ProjectRoot())

	_, err = svc.Undo(model.ActorUser)
	require.ErrorIs(t, err, errclass.ErrNoProject)
	_, err = svc.ListCheckpoints()
	require.ErrorIs(t, err, errclass.ErrNoProject)
}

func TestService_SetProjectRoot(t *testing.T) {
	f := newFixture(t)
	a := f.path("a.txt")
	require.NoError(t, os.WriteFile(a, []byte("v1"), 0644))
	_, err := f.svc.WriteText(a, "v2", model.ActorAgent, fileops.OpOptions{})
	require.NoError(t, err)
	first := f.svc.Session()

	other := t.TempDir()
	require.NoError(t, f.svc.SetProjectRoot(other))
	assert.NotEqual(t, first.ID, f.svc.Session().ID)
	assert.Zero(t, f.svc.Session().Undo.Len(), "undo history belongs to the old session")

	_, err = f.svc.WriteText(a, "v3", model.ActorAgent, fileops.OpOptions{})
	require.ErrorIs(t, err, errclass.ErrAccessDenied, "old root is now outside the boundary")

	err = f.svc.SetProjectRoot(filepath.Join(other, "missing"))
	require.ErrorIs(t, err, errclass.ErrIOFailure)
	require.NoError(t, f.svc.SetProjectRoot(""))
	assert.Nil(t, f.svc.Session())
}

func TestService_RejectsUnknownActor(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.WriteText(f.path("a.txt"), "x", model.Actor("robot"), fileops.OpOptions{})
	require.Error(t, err)
	assert.NoFileExists(t, f.path("a.txt"))

	require.NoError(t, os.WriteFile(f.path("b.txt"), []byte("keep"), 0644))
	_, err = f.svc.Delete(f.path("b.txt"), model.Actor("robot"), fileops.OpOptions{})
	require.Error(t, err)
	assert.FileExists(t, f.path("b.txt"))

	entries := f.entries(t)
	require.Len(t, entries, 2)
	assert.Equal(t, model.ActionWrite, entries[0].Action)
	assert.Equal(t, model.ActionDelete, entries[1].Action)
	for _, e := range entries {
		assert.Equal(t, model.ResultError, e.Result)
		assert.Equal(t, model.Actor("robot"), e.Actor)
		assert.Contains(t, e.Details, "unknown actor")
	}
	assert.Equal(t, f.path("a.txt"), entries[0].Target)
}
