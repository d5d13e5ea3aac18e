// Package identity implements the persistent self-counters of §3/§4.10,
// directly adapted from the teacher's PersistentIdentity: the same
// mutex-guarded accessor shape and periodic-flush discipline, generalized
// to the spec's field set and to flushing through a pluggable Store instead
// of a bespoke JSON file.
package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is the single persisted identity record (§3, §6.5: "Identity: a
// single record in the identity collection").
type Record struct {
	UUID                 string    `json:"uuid"`
	FirstThoughtAt        time.Time `json:"first_thought_at"`
	LastThoughtAt         time.Time `json:"last_thought_at"`
	SessionStartedAt      time.Time `json:"session_started_at"`
	LifetimeThoughtCount  uint64    `json:"lifetime_thought_count"`
	LifetimeDreamCount    uint64    `json:"lifetime_dream_count"`
	RestartCount          uint64    `json:"restart_count"`
	LastDreamStrengthened uint64    `json:"last_dream_strengthened"`
}

// Store is the persistence boundary Identity flushes through. A
// VectorStore-backed implementation lives in core/memory; Identity itself
// has no storage dependency so it can be constructed first in the
// dependency order of §2.
type Store interface {
	LoadIdentity(ctx context.Context) (*Record, error)
	SaveIdentity(ctx context.Context, r *Record) error
}

// Identity manages continuous identity across process restarts.
type Identity struct {
	mu     sync.RWMutex
	record Record

	store Store

	flushEvery    int // flush after this many thoughts since last flush
	flushInterval time.Duration
	lastFlush     time.Time
	sinceFlush    int
}

// New constructs an Identity for a brand-new installation (no existing
// record). Callers should prefer Load, which falls back to this when no
// record exists.
func New(store Store, flushEvery int, flushInterval time.Duration) *Identity {
	now := time.Now()
	return &Identity{
		record: Record{
			UUID:             uuid.NewString(),
			SessionStartedAt: now,
			RestartCount:     1, // invariant 4: incremented exactly once per process start
		},
		store:         store,
		flushEvery:    flushEvery,
		flushInterval: flushInterval,
		lastFlush:     now,
	}
}

// Load loads the existing record from store, increments RestartCount
// (invariant 4: "before the first cycle runs"), and stamps a new session
// start. If no record exists yet, it behaves like New.
func Load(ctx context.Context, store Store, flushEvery int, flushInterval time.Duration) (*Identity, error) {
	rec, err := store.LoadIdentity(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity: %w", err)
	}

	now := time.Now()
	if rec == nil {
		id := New(store, flushEvery, flushInterval)
		if err := id.Flush(ctx); err != nil {
			return nil, fmt.Errorf("failed to persist new identity: %w", err)
		}
		return id, nil
	}

	prevRestarts := rec.RestartCount
	rec.RestartCount = prevRestarts + 1
	rec.SessionStartedAt = now

	id := &Identity{
		record:        *rec,
		store:         store,
		flushEvery:    flushEvery,
		flushInterval: flushInterval,
		lastFlush:     now,
	}
	return id, nil
}

// RecordThought advances lifetime_thought_count, updates first/last
// timestamps, and flushes if a flush trigger (§4.10) has been reached.
func (id *Identity) RecordThought(ctx context.Context) error {
	id.mu.Lock()
	now := time.Now()
	if id.record.FirstThoughtAt.IsZero() {
		id.record.FirstThoughtAt = now
	}
	id.record.LastThoughtAt = now
	id.record.LifetimeThoughtCount++
	id.sinceFlush++
	shouldFlush := id.shouldFlushLocked(now)
	id.mu.Unlock()

	if shouldFlush {
		return id.Flush(ctx)
	}
	return nil
}

// RecordDream advances lifetime_dream_count and last_dream_strengthened.
func (id *Identity) RecordDream(ctx context.Context, strengthenedCount uint64) error {
	id.mu.Lock()
	id.record.LifetimeDreamCount++
	id.record.LastDreamStrengthened = strengthenedCount
	shouldFlush := id.shouldFlushLocked(time.Now())
	id.mu.Unlock()

	if shouldFlush {
		return id.Flush(ctx)
	}
	return nil
}

func (id *Identity) shouldFlushLocked(now time.Time) bool {
	if id.flushEvery > 0 && id.sinceFlush >= id.flushEvery {
		return true
	}
	if id.flushInterval > 0 && now.Sub(id.lastFlush) >= id.flushInterval {
		return true
	}
	return false
}

// Flush persists the current record unconditionally (used on the flush
// triggers above and on graceful shutdown).
func (id *Identity) Flush(ctx context.Context) error {
	id.mu.Lock()
	rec := id.record
	id.mu.Unlock()

	if err := id.store.SaveIdentity(ctx, &rec); err != nil {
		return fmt.Errorf("failed to flush identity: %w", err)
	}

	id.mu.Lock()
	id.lastFlush = time.Now()
	id.sinceFlush = 0
	id.mu.Unlock()
	return nil
}

// Snapshot returns a copy of the current record.
func (id *Identity) Snapshot() Record {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.record
}
