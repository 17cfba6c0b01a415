package fileops_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sumerian-dev/sumerian/internal/fileops"
	"github.com/sumerian-dev/sumerian/pkg/config"
	"github.com/sumerian-dev/sumerian/pkg/errclass"
	"github.com/sumerian-dev/sumerian/pkg/model"
)

func names(entries []fileops.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestService_ListFiltersAndOrders(t *testing.T) {
	f := newFixture(t)
	for _, d := range []string{".git", ".sumerian", "lib"} {
		require.NoError(t, os.Mkdir(f.path(d), 0755))
	}
	for _, name := range []string{".env", "index.ts"} {
		require.NoError(t, os.WriteFile(f.path(name), []byte("x"), 0644))
	}

	entries, err := f.svc.List(f.root, model.ActorUser)
	require.NoError(t, err)
	assert.Equal(t, []string{"lib", ".sumerian", ".env", "index.ts"}, names(entries))
	assert.True(t, entries[0].IsDir)
	assert.Equal(t, f.path("index.ts"), entries[3].Path)
	assert.Equal(t, int64(1), entries[3].Size)
	assert.Empty(t, f.entries(t), "successful listings are not audited")
}

func TestService_ListUsesConfiguredAllowlist(t *testing.T) {
	base := t.TempDir()
	root := filepath.Join(base, "proj")
	require.NoError(t, os.Mkdir(root, 0755))
	cfg := config.Default()
	cfg.List.HiddenAllowlist = []string{".github"}
	require.NoError(t, config.Save(root, cfg))
	require.NoError(t, os.Mkdir(filepath.Join(root, ".github"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), nil, 0644))

	svc := fileops.New(fileops.Options{})
	require.NoError(t, svc.SetProjectRoot(root))

	entries, err := svc.List(".", model.ActorUser)
	require.NoError(t, err)
	assert.Equal(t, []string{".github"}, names(entries))
}

func TestService_ListErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.List(filepath.Dir(f.root), model.ActorAgent)
	require.ErrorIs(t, err, errclass.ErrAccessDenied)

	_, err = f.svc.List("nope", model.ActorAgent)
	require.ErrorIs(t, err, errclass.ErrIOFailure)

	entries := f.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, model.ActionList, entries[0].Action)
	assert.Equal(t, model.ResultBlocked, entries[0].Result)
}

func TestSortEntries(t *testing.T) {
	entries := []fileops.Entry{
		{Name: "b.go"},
		{Name: "README.md"},
		{Name: "a.go"},
		{Name: "cmd", IsDir: true},
		{Name: "_tools", IsDir: true},
		{Name: "api", IsDir: true},
	}
	fileops.SortEntries(entries)
	assert.Equal(t, []string{"api", "cmd", "_tools", "a.go", "b.go", "README.md"}, names(entries))
}

func TestSortEntries_LeadingPunctuationIgnored(t *testing.T) {
	entries := []fileops.Entry{
		{Name: "env"},
		{Name: "_b"},
		{Name: ".env"},
		{Name: "a"},
		{Name: "C"},
		{Name: ".sumerian", IsDir: true},
		{Name: "lib", IsDir: true},
		{Name: "-tmp", IsDir: true},
	}
	fileops.SortEntries(entries)
	assert.Equal(t, []string{"lib", ".sumerian", "-tmp", "a", "_b", "C", ".env", "env"}, names(entries))
}
