// Package audit implements the append-only, hash-chained audit trail shared
// by every project on the machine.
package audit

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sumerian-dev/sumerian/pkg/logging"
	"github.com/sumerian-dev/sumerian/pkg/metrics"
	"github.com/sumerian-dev/sumerian/pkg/model"
)

// EnvLogPath overrides the default audit log location.
const EnvLogPath = "SUMERIAN_AUDIT_LOG"

// LogFileName is the audit log file name inside ~/.sumerian.
const LogFileName = "audit.log"

// DefaultPath returns $SUMERIAN_AUDIT_LOG or <home>/.sumerian/audit.log.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvLogPath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, model.DirName, LogFileName), nil
}

// Recorder is the sink the file operations facade writes to.
type Recorder interface {
	Record(entry model.AuditEntry)
}

// Trail records audit entries without ever failing the caller: append
// errors go to the diagnostic log instead.
type Trail struct {
	appender *FileAppender
	log      *logging.Logger
	metrics  *metrics.Registry
}

// NewTrail creates a trail appending to path.
func NewTrail(path string, reg *metrics.Registry) *Trail {
	return &Trail{
		appender: NewFileAppender(path),
		log:      logging.WithFields(logging.Fields{"component": "audit"}),
		metrics:  metrics.OrDefault(reg),
	}
}

// Path returns the audit log location.
func (t *Trail) Path() string {
	return t.appender.Path()
}

// Record appends entry. The write is complete when Record returns, so a
// blocked entry is on disk before the denial reaches the caller.
func (t *Trail) Record(entry model.AuditEntry) {
	if _, err := t.appender.Append(entry); err != nil {
		t.metrics.AuditFailures.Inc()
		t.log.WarnErr("audit append failed", err, logging.Fields{
			"action": string(entry.Action),
			"target": entry.Target,
			"result": string(entry.Result),
		})
	}
}

// Discard is a Recorder that drops every entry.
type Discard struct{}

// Record implements Recorder.
func (Discard) Record(model.AuditEntry) {}
