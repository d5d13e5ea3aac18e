// Package workinglog implements the append-only, per-stage streams actors
// communicate through and MetricsCore observes (§4.9, §6.2).
package workinglog

import (
	"fmt"
	"sync"
	"time"

	"github.com/royalbit/daneel/core/thought"
)

// Stream names the configurable set of stage streams (§4.9).
type Stream string

const (
	StreamSensory   Stream = "sensory"
	StreamTrigger   Stream = "trigger"
	StreamAutoflow  Stream = "autoflow"
	StreamAttention Stream = "attention"
	StreamAssembly  Stream = "assembly"
	StreamEmotion   Stream = "emotion"
	StreamAnchor    Stream = "anchor"
	StreamMemory    Stream = "memory"
	StreamReason    Stream = "reason"
)

// DefaultStreams is the configurable stream set used when none is supplied.
func DefaultStreams() []Stream {
	return []Stream{
		StreamSensory, StreamTrigger, StreamAutoflow, StreamAttention,
		StreamAssembly, StreamEmotion, StreamAnchor, StreamMemory, StreamReason,
	}
}

// Entry is a single append-only record (§3, §6.2).
type Entry struct {
	Stream      Stream
	EntryID     uint64 // monotonic per WorkingLog, not per-stream
	ThoughtRef  string
	CreatedAt   time.Time
	Disposition thought.Disposition // empty until the thought is classified
}

// Cursor is a consumer's read position into a stream.
type Cursor struct {
	Stream  Stream
	Next    int // index into that stream's slice
}

// WorkingLog holds the per-stream append-only entries plus the trim policy.
type WorkingLog struct {
	mu      sync.RWMutex
	streams map[Stream][]Entry
	nextID  uint64
	trimMax int
}

// New creates a WorkingLog for the given stream set and per-stream trim cap.
func New(streams []Stream, trimMax int) *WorkingLog {
	wl := &WorkingLog{
		streams: make(map[Stream][]Entry, len(streams)),
		trimMax: trimMax,
	}
	for _, s := range streams {
		wl.streams[s] = nil
	}
	return wl
}

// Append adds a new totally-ordered entry to stream (§5: "WorkingLog append
// is totally ordered per stream").
func (wl *WorkingLog) Append(stream Stream, thoughtRef string) (Entry, error) {
	wl.mu.Lock()
	defer wl.mu.Unlock()

	if _, ok := wl.streams[stream]; !ok {
		return Entry{}, fmt.Errorf("unknown working-log stream %q", stream)
	}

	wl.nextID++
	e := Entry{
		Stream:     stream,
		EntryID:    wl.nextID,
		ThoughtRef: thoughtRef,
		CreatedAt:  time.Now(),
	}
	wl.streams[stream] = append(wl.streams[stream], e)
	return e, nil
}

// Dispose marks the most recent entry referencing thoughtRef in stream with
// its terminal disposition. This must be called before that entry becomes
// eligible for trimming (§3 invariant 2).
func (wl *WorkingLog) Dispose(stream Stream, thoughtRef string, d thought.Disposition) error {
	wl.mu.Lock()
	defer wl.mu.Unlock()

	entries, ok := wl.streams[stream]
	if !ok {
		return fmt.Errorf("unknown working-log stream %q", stream)
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].ThoughtRef == thoughtRef {
			entries[i].Disposition = d
			return nil
		}
	}
	return fmt.Errorf("no entry for thought %q in stream %q", thoughtRef, stream)
}

// Entries returns a copy of the current entries for a stream.
func (wl *WorkingLog) Entries(stream Stream) []Entry {
	wl.mu.RLock()
	defer wl.mu.RUnlock()
	src := wl.streams[stream]
	out := make([]Entry, len(src))
	copy(out, src)
	return out
}

// AllEntries returns a copy of every entry across every stream. MetricsCore
// does not read it; its statistics come from the events passed to Observe.
func (wl *WorkingLog) AllEntries() []Entry {
	wl.mu.RLock()
	defer wl.mu.RUnlock()
	var out []Entry
	for _, entries := range wl.streams {
		out = append(out, entries...)
	}
	return out
}

// ErrUndisposed is returned by Trim when trimming would silently drop an
// entry that has not yet been classified (§3 invariant 2).
var ErrUndisposed = fmt.Errorf("working log: cannot trim undisposed entries")

// Trim enforces the per-stream length cap by dropping the oldest entries
// once trimMax is exceeded, but only entries that already carry a terminal
// disposition (LongTerm/Unconscious/Dropped). If the oldest excess entries
// are not yet dispositioned, Trim trims as much as it safely can and
// returns ErrUndisposed so the caller knows retention is running over cap.
func (wl *WorkingLog) Trim(stream Stream) error {
	wl.mu.Lock()
	defer wl.mu.Unlock()

	entries := wl.streams[stream]
	excess := len(entries) - wl.trimMax
	if excess <= 0 {
		return nil
	}

	cut := 0
	for cut < excess && entries[cut].Disposition != thought.DispositionNone {
		cut++
	}
	wl.streams[stream] = entries[cut:]

	if cut < excess {
		return fmt.Errorf("%w: stream %q has %d undisposed entries past cap", ErrUndisposed, stream, excess-cut)
	}
	return nil
}

// TrimAll runs Trim over every configured stream, returning the first error
// encountered (after attempting every stream).
func (wl *WorkingLog) TrimAll() error {
	var firstErr error
	wl.mu.RLock()
	streams := make([]Stream, 0, len(wl.streams))
	for s := range wl.streams {
		streams = append(streams, s)
	}
	wl.mu.RUnlock()

	for _, s := range streams {
		if err := wl.Trim(s); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Len returns the current length of a stream.
func (wl *WorkingLog) Len(stream Stream) int {
	wl.mu.RLock()
	defer wl.mu.RUnlock()
	return len(wl.streams[stream])
}
