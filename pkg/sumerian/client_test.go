package sumerian_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumerian-dev/sumerian/pkg/metrics"
	"github.com/sumerian-dev/sumerian/pkg/sumerian"
)

func openClient(t *testing.T) (*sumerian.Client, string) {
	t.Helper()
	root := t.TempDir()
	client, err := sumerian.Open(sumerian.Options{
		ProjectRoot:  root,
		AuditLogPath: filepath.Join(t.TempDir(), "audit.log"),
		Metrics:      metrics.NewRegistry(),
	})
	require.NoError(t, err)
	return client, root
}

func TestClient_EditUndoAndAudit(t *testing.T) {
	client, root := openClient(t)
	a := filepath.Join(root, "a.txt")

	_, err := client.WriteText(a, "v1", sumerian.ActorUser, sumerian.OpOptions{})
	require.NoError(t, err)
	res, err := client.WriteText(a, "v2", sumerian.ActorAgent, sumerian.OpOptions{})
	require.NoError(t, err)
	assert.True(t, res.Reversible)

	u, err := client.Undo(sumerian.ActorUser)
	require.NoError(t, err)
	assert.True(t, u.Restored)
	got, err := client.ReadText(a, sumerian.ActorUser)
	require.NoError(t, err)
	assert.Equal(t, "v1", got)

	report, err := client.VerifyAudit()
	require.NoError(t, err)
	assert.True(t, report.Valid)
	assert.Equal(t, 3, report.Entries)
}

func TestClient_BoundaryErrors(t *testing.T) {
	client, root := openClient(t)

	_, err := client.WriteText(filepath.Join(filepath.Dir(root), "x"), "x", sumerian.ActorAgent, sumerian.OpOptions{})
	assert.True(t, errors.Is(err, sumerian.ErrAccessDenied))
	_, err = client.Read(filepath.Join(root, "nope"), sumerian.ActorAgent)
	assert.True(t, errors.Is(err, sumerian.ErrIOFailure))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestClient_PassThrough(t *testing.T) {
	client, err := sumerian.Open(sumerian.Options{AuditLogPath: filepath.Join(t.TempDir(), "audit.log")})
	require.NoError(t, err)
	assert.Empty(t, client.ProjectRoot())

	_, err = client.ListCheckpoints()
	assert.True(t, errors.Is(err, sumerian.ErrNoProject))

	require.NoError(t, client.SetProjectRoot(t.TempDir()))
	list, err := client.ListCheckpoints()
	require.NoError(t, err)
	assert.Empty(t, list)
}
