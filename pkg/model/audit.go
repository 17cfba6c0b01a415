package model

// AuditAction identifies the kind of auditable operation.
type AuditAction string

const (
	ActionRead               AuditAction = "read"
	ActionWrite              AuditAction = "write"
	ActionDelete             AuditAction = "delete"
	ActionList               AuditAction = "list"
	ActionWatch              AuditAction = "watch"
	ActionUndo               AuditAction = "undo"
	ActionCheckpointCreate   AuditAction = "checkpoint_create"
	ActionCheckpointRollback AuditAction = "checkpoint_rollback"
	ActionCheckpointDelete   AuditAction = "checkpoint_delete"
)

// AuditResult is the outcome recorded for an audited operation.
type AuditResult string

const (
	ResultSuccess AuditResult = "success"
	ResultBlocked AuditResult = "blocked"
	ResultError   AuditResult = "error"
)

// AuditEntry is a single line in the audit log (JSONL format).
// Field names are consumed verbatim by audit viewers.
type AuditEntry struct {
	Timestamp    string      `json:"timestamp"`
	Action       AuditAction `json:"action"`
	Actor        Actor       `json:"actor"`
	Target       string      `json:"target"`
	BraveMode    bool        `json:"braveMode"`
	Reversible   bool        `json:"reversible"`
	SnapshotPath string      `json:"snapshotPath,omitempty"`
	Result       AuditResult `json:"result"`
	Details      string      `json:"details,omitempty"`
	PrevHash     HashValue   `json:"prevHash"`
	RecordHash   HashValue   `json:"recordHash"`
}
