package model

import (
	"fmt"
	"strconv"
	"strings"
)

// CheckpointFormatVersion is the metadata.json schema version written by this package.
const CheckpointFormatVersion = 1

// CheckpointIDPrefix prefixes every checkpoint id: checkpoint-<unix_ms>.
const CheckpointIDPrefix = "checkpoint-"

// ContentEncoding describes how CheckpointFile.Content is encoded.
type ContentEncoding string

const (
	EncodingUTF8   ContentEncoding = "utf8"
	EncodingBase64 ContentEncoding = "base64"
)

// CheckpointFile is one captured file inside a checkpoint.
// Path is the absolute original path.
type CheckpointFile struct {
	Path     string          `json:"path"`
	Content  string          `json:"content"`
	Encoding ContentEncoding `json:"encoding,omitempty"`
	SHA256   HashValue       `json:"sha256,omitempty"`
}

// LabeledCheckpoint is the full on-disk metadata.json of a checkpoint.
type LabeledCheckpoint struct {
	Version   int              `json:"version"`
	ID        string           `json:"id"`
	Label     string           `json:"label"`
	Timestamp int64            `json:"timestamp"` // unix milliseconds
	Files     []CheckpointFile `json:"files"`
}

// NewCheckpointID builds the id for a checkpoint created at ts (unix ms).
func NewCheckpointID(ts int64) string {
	return CheckpointIDPrefix + strconv.FormatInt(ts, 10)
}

// ParseCheckpointID extracts the millisecond timestamp from a checkpoint id.
func ParseCheckpointID(id string) (int64, error) {
	if !strings.HasPrefix(id, CheckpointIDPrefix) {
		return 0, fmt.Errorf("not a checkpoint id: %q", id)
	}
	ts, err := strconv.ParseInt(strings.TrimPrefix(id, CheckpointIDPrefix), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse checkpoint id %q: %w", id, err)
	}
	return ts, nil
}

// Paths returns the original paths of all captured files.
func (c *LabeledCheckpoint) Paths() []string {
	out := make([]string, 0, len(c.Files))
	for _, f := range c.Files {
		out = append(out, f.Path)
	}
	return out
}
