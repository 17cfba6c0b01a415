package fileops

import (
	"github.com/google/uuid"

	"github.com/sumerian-dev/sumerian/internal/checkpoint"
	"github.com/sumerian-dev/sumerian/internal/snapshot"
	"github.com/sumerian-dev/sumerian/internal/undo"
	"github.com/sumerian-dev/sumerian/pkg/config"
	"github.com/sumerian-dev/sumerian/pkg/metrics"
	"github.com/sumerian-dev/sumerian/pkg/pathutil"
)

// Session holds everything scoped to one open project root. It is built
// once when the root is set and discarded when it changes, taking the undo
// history with it.
type Session struct {
	ID          string
	Root        string
	Config      *config.Config
	Guard       *pathutil.Guard
	Snapshots   *snapshot.Store
	Undo        *undo.Stack
	Checkpoints *checkpoint.Manager
}

// NewSession builds a session for root using root's config file.
func NewSession(root string, reg *metrics.Registry) (*Session, error) {
	guard, err := pathutil.NewGuard(root)
	if err != nil {
		return nil, err
	}
	cfg := config.Load(guard.Root())

	return &Session{
		ID:          uuid.NewString(),
		Root:        guard.Root(),
		Config:      cfg,
		Guard:       guard,
		Snapshots:   snapshot.NewStore(guard.Root(), cfg.Snapshots.MaxRetained, reg),
		Undo:        undo.NewStack(cfg.Undo.MaxDepth, reg),
		Checkpoints: checkpoint.NewManager(guard.Root(), cfg.Checkpoints.MaxRetained, reg),
	}, nil
}
