package workinglog

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"time"
)

// Checkpoint is the durable snapshot written every K thoughts or T seconds
// (§4.9): stream positions plus enough state to resume consumption without
// replaying history the engine already dispositioned.
type Checkpoint struct {
	Streams    map[Stream][]Entry
	NextID     uint64
	Cursors    map[Stream]int
	SavedAt    time.Time
}

// Checkpointer periodically writes a WorkingLog checkpoint to a local file
// and can restore one on restart (§5: "resumes consumption from the last
// checkpoint").
type Checkpointer struct {
	path        string
	every       int
	interval    time.Duration
	lastSavedAt time.Time
	sinceSave   int
}

// NewCheckpointer configures a checkpointer writing to path, every N
// thoughts or T duration, whichever comes first.
func NewCheckpointer(path string, every int, interval time.Duration) *Checkpointer {
	return &Checkpointer{path: path, every: every, interval: interval}
}

// ShouldCheckpoint reports whether a checkpoint trigger has been reached
// since the last save, given the thought count observed so far this tick.
func (c *Checkpointer) ShouldCheckpoint(thoughtsSinceTick int) bool {
	c.sinceSave += thoughtsSinceTick
	if c.every > 0 && c.sinceSave >= c.every {
		return true
	}
	if c.interval > 0 && time.Since(c.lastSavedAt) >= c.interval {
		return true
	}
	return false
}

// Save writes wl's current state plus cursors to the checkpoint file.
func (c *Checkpointer) Save(wl *WorkingLog, cursors map[Stream]int) error {
	wl.mu.RLock()
	cp := Checkpoint{
		Streams: make(map[Stream][]Entry, len(wl.streams)),
		NextID:  wl.nextID,
		Cursors: cursors,
		SavedAt: time.Now(),
	}
	for s, entries := range wl.streams {
		cp.Streams[s] = append([]Entry(nil), entries...)
	}
	wl.mu.RUnlock()

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(cp); err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := os.WriteFile(c.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}

	c.lastSavedAt = cp.SavedAt
	c.sinceSave = 0
	return nil
}

// Restore reads a checkpoint file and reconstructs a WorkingLog plus its
// saved cursors. Returns (nil, nil, nil) if no checkpoint file exists yet,
// which is the cold-boot case.
func Restore(path string, trimMax int) (*WorkingLog, map[Stream]int, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&cp); err != nil {
		return nil, nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}

	wl := &WorkingLog{
		streams: cp.Streams,
		nextID:  cp.NextID,
		trimMax: trimMax,
	}
	return wl, cp.Cursors, nil
}
