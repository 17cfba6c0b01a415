package sumerian

import (
	"github.com/sumerian-dev/sumerian/internal/audit"
	"github.com/sumerian-dev/sumerian/internal/checkpoint"
	"github.com/sumerian-dev/sumerian/internal/fileops"
	"github.com/sumerian-dev/sumerian/internal/undo"
	"github.com/sumerian-dev/sumerian/internal/watch"
	"github.com/sumerian-dev/sumerian/pkg/errclass"
	"github.com/sumerian-dev/sumerian/pkg/metrics"
	"github.com/sumerian-dev/sumerian/pkg/model"
)

type (
	Actor             = model.Actor
	AuditEntry        = model.AuditEntry
	LabeledCheckpoint = model.LabeledCheckpoint
	Snapshot          = model.Snapshot
	Skipped           = model.Skipped

	OpOptions      = fileops.OpOptions
	MutationResult = fileops.MutationResult
	Entry          = fileops.Entry
	Event          = watch.Event
	EventHandler   = watch.Handler
	UndoResult     = undo.Result
	CreateResult   = checkpoint.CreateResult
	RollbackResult = checkpoint.RollbackResult
	AuditReport    = audit.VerifyReport
)

const (
	ActorUser  = model.ActorUser
	ActorAgent = model.ActorAgent
)

var (
	ErrAccessDenied       = errclass.ErrAccessDenied
	ErrIOFailure          = errclass.ErrIOFailure
	ErrNoProject          = errclass.ErrNoProject
	ErrCheckpointNotFound = errclass.ErrCheckpointNotFound
	ErrSnapshotMissing    = errclass.ErrSnapshotMissing
	ErrLabelInvalid       = errclass.ErrLabelInvalid
)

// Options configures Open.
type Options struct {
	// ProjectRoot is the boundary for every operation. Empty starts the
	// client in pass-through mode until SetProjectRoot is called.
	ProjectRoot string
	// AuditLogPath defaults to $SUMERIAN_AUDIT_LOG or ~/.sumerian/audit.log.
	AuditLogPath string
	// Metrics defaults to the process-wide registry.
	Metrics *metrics.Registry
}

// Client is the file operations facade bound to an audit log.
type Client struct {
	*fileops.Service
	auditPath string
}

// Open creates a Client.
func Open(opts Options) (*Client, error) {
	auditPath := opts.AuditLogPath
	if auditPath == "" {
		p, err := audit.DefaultPath()
		if err != nil {
			return nil, err
		}
		auditPath = p
	}

	svc := fileops.New(fileops.Options{
		Recorder: audit.NewTrail(auditPath, opts.Metrics),
		Metrics:  opts.Metrics,
	})
	if opts.ProjectRoot != "" {
		if err := svc.SetProjectRoot(opts.ProjectRoot); err != nil {
			return nil, err
		}
	}
	return &Client{Service: svc, auditPath: auditPath}, nil
}

// AuditLogPath returns the audit log this client appends to.
func (c *Client) AuditLogPath() string {
	return c.auditPath
}

// VerifyAudit checks the hash chain of the client's audit log.
func (c *Client) VerifyAudit() (*AuditReport, error) {
	return audit.Verify(c.auditPath)
}
