package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// DeadLetter is a failed consolidation record appended after the
// MemoryActor's retry budget is exhausted (§4.6/§7.6: "consolidation
// failures dead-letter rather than blocking the cycle").
type DeadLetter struct {
	ThoughtID string    `json:"thought_id"`
	Reason    string    `json:"reason"`
	Attempts  int       `json:"attempts"`
	FailedAt  time.Time `json:"failed_at"`
}

// DeadLetterQueue appends DeadLetter records to a local JSONL file. It never
// deletes or rewrites prior entries; operators replay it out of band.
type DeadLetterQueue struct {
	mu   sync.Mutex
	path string
}

// NewDeadLetterQueue opens (creating if absent) the JSONL file at path for
// appending.
func NewDeadLetterQueue(path string) *DeadLetterQueue {
	return &DeadLetterQueue{path: path}
}

// Append writes dl as one JSON line.
func (q *DeadLetterQueue) Append(dl DeadLetter) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	f, err := os.OpenFile(q.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open dead-letter file: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(dl)
	if err != nil {
		return fmt.Errorf("failed to marshal dead-letter record: %w", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to append dead-letter record: %w", err)
	}
	return nil
}
