package inject

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// AuditLog appends one JSON line per injection attempt (§4.8: "every
// injection attempt is recorded as an immutable InjectionRecord"), the same
// durable-append-only-file shape as core/memory.DeadLetterQueue.
type AuditLog struct {
	mu   sync.Mutex
	path string
}

// NewAuditLog opens (creating if absent) the JSONL file at path.
func NewAuditLog(path string) *AuditLog {
	return &AuditLog{path: path}
}

// Append writes rec as one JSON line.
func (a *AuditLog) Append(rec Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	f, err := os.OpenFile(a.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open injection audit log: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal injection record: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append injection record: %w", err)
	}
	return nil
}
