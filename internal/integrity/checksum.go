// Package integrity computes content hashes for snapshots and checkpoints
// and record hashes for the audit chain.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/sumerian-dev/sumerian/pkg/model"
)

// ComputeContentHash returns the SHA-256 of data.
func ComputeContentHash(data []byte) model.HashValue {
	sum := sha256.Sum256(data)
	return model.HashValue(hex.EncodeToString(sum[:]))
}

// ComputeRecordHash hashes the canonical JSON of an audit entry.
// Excludes: recordHash
func ComputeRecordHash(entry *model.AuditEntry) (model.HashValue, error) {
	hashEntry := *entry
	hashEntry.RecordHash = ""

	data, err := canonicalJSON(&hashEntry)
	if err != nil {
		return "", fmt.Errorf("canonical marshal audit entry: %w", err)
	}
	return ComputeContentHash(data), nil
}
