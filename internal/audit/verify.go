package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/sumerian-dev/sumerian/internal/integrity"
	"github.com/sumerian-dev/sumerian/pkg/errclass"
	"github.com/sumerian-dev/sumerian/pkg/model"
)

// VerifyReport summarizes a chain verification.
type VerifyReport struct {
	Path       string          `json:"path"`
	Entries    int             `json:"entries"`
	Valid      bool            `json:"valid"`
	BrokenLine int             `json:"broken_line,omitempty"`
	Error      string          `json:"error,omitempty"`
	LastHash   model.HashValue `json:"last_hash,omitempty"`
}

// Verify walks the log at path and checks that every line parses, that its
// recordHash matches its content, and that its prevHash links to the line
// before. A missing file is an empty, valid chain. The returned error is
// ErrAuditChainBroken when the chain does not verify.
func Verify(path string) (*VerifyReport, error) {
	report := &VerifyReport{Path: path, Valid: true}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return report, nil
		}
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	var prev model.HashValue
	lineNo := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		lineNo++
		if msg := checkLine(scanner.Bytes(), prev); msg != "" {
			return broken(report, lineNo, msg)
		}
		var entry model.AuditEntry
		_ = json.Unmarshal(scanner.Bytes(), &entry)
		prev = entry.RecordHash
		report.Entries++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}

	report.LastHash = prev
	return report, nil
}

func checkLine(line []byte, prev model.HashValue) string {
	var entry model.AuditEntry
	if err := json.Unmarshal(line, &entry); err != nil {
		return fmt.Sprintf("malformed entry: %v", err)
	}
	if entry.PrevHash != prev {
		return fmt.Sprintf("prevHash %q does not link to %q", entry.PrevHash, prev)
	}
	want, err := integrity.ComputeRecordHash(&entry)
	if err != nil {
		return fmt.Sprintf("hash entry: %v", err)
	}
	if want != entry.RecordHash {
		return "recordHash does not match entry content"
	}
	return ""
}

func broken(report *VerifyReport, line int, msg string) (*VerifyReport, error) {
	report.Valid = false
	report.BrokenLine = line
	report.Error = msg
	return report, errclass.ErrAuditChainBroken.WithMessagef("line %d: %s", line, msg)
}
