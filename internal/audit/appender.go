package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sumerian-dev/sumerian/internal/integrity"
	"github.com/sumerian-dev/sumerian/pkg/model"
)

// TimestampLayout renders audit timestamps as ISO-8601 UTC with milliseconds.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

const maxLineBytes = 1 << 20

// tailChunk is the read size used when searching backwards for the last entry.
const tailChunk = 64 * 1024

// FileAppender appends audit entries to a JSONL file with a hash chain.
// The chain head is cached together with the file size it was observed at;
// a size change means another writer appended and the head is re-read from
// the end of the file.
type FileAppender struct {
	path string
	mu   sync.Mutex
	now  func() time.Time

	headHash model.HashValue
	headSize int64
	headOK   bool
}

// NewFileAppender creates a new FileAppender.
func NewFileAppender(path string) *FileAppender {
	return &FileAppender{path: path, now: time.Now}
}

// Path returns the log file path.
func (a *FileAppender) Path() string {
	return a.path
}

// Append stamps entry with a timestamp (when empty) and the chain hashes,
// then appends it as one JSON line. The file and its directory are
// created on first use.
func (a *FileAppender) Append(entry model.AuditEntry) (*model.AuditEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(a.path), 0755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}

	file, err := os.OpenFile(a.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	// Other processes share the home-directory log.
	if err := lockFile(file); err != nil {
		return nil, fmt.Errorf("flock audit log: %w", err)
	}
	defer unlockFile(file)

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat audit log: %w", err)
	}
	size := info.Size()

	prevHash := a.headHash
	if !a.headOK || a.headSize != size {
		prevHash, err = lastRecordHash(file, size)
		if err != nil {
			return nil, fmt.Errorf("get last record hash: %w", err)
		}
	}

	if entry.Timestamp == "" {
		entry.Timestamp = a.now().UTC().Format(TimestampLayout)
	}
	entry.PrevHash = prevHash
	entry.RecordHash = ""

	recordHash, err := integrity.ComputeRecordHash(&entry)
	if err != nil {
		return nil, fmt.Errorf("compute record hash: %w", err)
	}
	entry.RecordHash = recordHash

	line, err := json.Marshal(&entry)
	if err != nil {
		return nil, fmt.Errorf("marshal audit entry: %w", err)
	}

	a.headOK = false
	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		return nil, fmt.Errorf("seek to end: %w", err)
	}
	line = append(line, '\n')
	if _, err := file.Write(line); err != nil {
		return nil, fmt.Errorf("write audit entry: %w", err)
	}
	if err := file.Sync(); err != nil {
		return nil, fmt.Errorf("sync audit log: %w", err)
	}
	a.headHash, a.headSize, a.headOK = recordHash, size+int64(len(line)), true

	return &entry, nil
}

// GetLastRecordHash returns the hash of the last entry in the log.
func (a *FileAppender) GetLastRecordHash() (model.HashValue, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	file, err := os.Open(a.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("open audit log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("stat audit log: %w", err)
	}
	return lastRecordHash(file, info.Size())
}

// lastRecordHash reads backwards from size and returns the recordHash of the
// last line that parses. Malformed lines and lines longer than maxLineBytes
// are skipped.
func lastRecordHash(file *os.File, size int64) (model.HashValue, error) {
	var (
		end      = size
		carry    []byte
		skipping bool
	)
	for end > 0 {
		start := max(end-tailChunk, 0)
		chunk := make([]byte, end-start)
		if _, err := file.ReadAt(chunk, start); err != nil && err != io.EOF {
			return "", fmt.Errorf("read audit log: %w", err)
		}
		end = start

		if skipping {
			i := bytes.LastIndexByte(chunk, '\n')
			if i < 0 {
				continue
			}
			chunk, skipping = chunk[:i+1], false
		}

		buf := append(chunk, carry...)
		for {
			i := bytes.LastIndexByte(buf, '\n')
			if i < 0 {
				break
			}
			if hash, ok := parseRecordHash(buf[i+1:]); ok {
				return hash, nil
			}
			buf = buf[:i]
		}
		carry = buf
		if len(carry) > maxLineBytes {
			carry, skipping = nil, true
		}
	}
	if hash, ok := parseRecordHash(carry); ok {
		return hash, nil
	}
	return "", nil
}

func parseRecordHash(line []byte) (model.HashValue, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return "", false
	}
	var entry struct {
		RecordHash model.HashValue `json:"recordHash"`
	}
	if err := json.Unmarshal(line, &entry); err != nil {
		return "", false
	}
	return entry.RecordHash, true
}
