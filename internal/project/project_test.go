package project_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sumerian-dev/sumerian/internal/project"
	"github.com/sumerian-dev/sumerian/pkg/config"
	"github.com/sumerian-dev/sumerian/pkg/errclass"
)

func TestInit(t *testing.T) {
	dir := t.TempDir()

	root, err := project.Init(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, root)
	assert.FileExists(t, config.Path(dir))

	cfg := config.Load(dir)
	assert.Equal(t, config.Default().Snapshots, cfg.Snapshots)
}

func TestInit_KeepsExistingConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Undo.MaxDepth = 7
	require.NoError(t, config.Save(dir, cfg))

	_, err := project.Init(dir)
	require.NoError(t, err)
	assert.Equal(t, 7, config.Load(dir).Undo.MaxDepth)
}

func TestInit_RequiresDirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	_, err := project.Init(file)
	require.ErrorIs(t, err, errclass.ErrIOFailure)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	_, err := project.Init(dir)
	require.NoError(t, err)
	deep := filepath.Join(dir, "src", "pkg")
	require.NoError(t, os.MkdirAll(deep, 0755))

	root, err := project.Discover(deep)
	require.NoError(t, err)
	assert.Equal(t, dir, root)

	root, err = project.Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, root)
}

func TestDiscover_NotFound(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := project.Discover(t.TempDir())
	require.ErrorIs(t, err, errclass.ErrNoProject)
}
