package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/royalbit/daneel/core/salience"
	"github.com/royalbit/daneel/core/thought"
	"github.com/royalbit/daneel/core/vector"
)

// Hebbian tuning constants (§4.6): learning rate, decay factor, and the
// floor below which an edge is pruned.
const (
	hebbianLearningRate = 0.1
	hebbianDecayRate    = 0.02
	hebbianPruneFloor   = 0.05
)

const consolidateMaxAttempts = 3

// MemoryActor owns consolidation, retrieval, archiving, and Hebbian
// association over the VectorStore, matching the retry-with-backoff shape
// of the teacher's llm_client.go request loop.
type MemoryActor struct {
	store      VectorStore
	embedder   vector.Embedder
	thresholds salience.Thresholds
	deadLetter *DeadLetterQueue
	log        *slog.Logger

	mu    sync.Mutex
	edges map[string]Edge // keyed by From+"|"+To+"|"+Type
}

// NewMemoryActor constructs a MemoryActor.
func NewMemoryActor(store VectorStore, embedder vector.Embedder, thresholds salience.Thresholds, dlq *DeadLetterQueue, log *slog.Logger) *MemoryActor {
	if log == nil {
		log = slog.Default()
	}
	return &MemoryActor{
		store:      store,
		embedder:   embedder,
		thresholds: thresholds,
		deadLetter: dlq,
		log:        log,
		edges:      make(map[string]Edge),
	}
}

// RetrieveContext runs a k-nearest-neighbor query against the long-term
// collection for Autoflow's context-retrieval step (§4.2).
func (a *MemoryActor) RetrieveContext(ctx context.Context, query vector.Vector, k int) ([]Record, error) {
	recs, err := a.store.KNN(ctx, CollectionLongTerm, query, k, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}
	return recs, nil
}

// Consolidate persists t into LongTerm or Unconscious according to its
// composite classification (§3, §4.6), retrying transient store failures
// with exponential backoff and dead-lettering after consolidateMaxAttempts.
// Consolidation is idempotent by thought id: an Upsert of the same id is
// always safe to retry.
func (a *MemoryActor) Consolidate(ctx context.Context, t *thought.Thought) error {
	mem := FromThought(t)

	disposition := a.thresholds.Classify(t.Composite)
	collection := CollectionLongTerm
	if disposition != salience.DispositionConsolidate {
		collection = CollectionUnconscious
		mem.ArchiveReason = ArchiveReasonLowSalience
	}

	rec := Record{
		ID:     mem.ThoughtID,
		Vector: mem.Vector,
		Payload: map[string]any{
			"symbolic_id":    mem.SymbolicID,
			"composite":      mem.Composite,
			"source_kind":    mem.Source.Kind.String(),
			"created_at":     mem.CreatedAt,
			"archive_reason": string(mem.ArchiveReason),
		},
	}

	var lastErr error
	for attempt := 0; attempt < consolidateMaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := a.store.Upsert(ctx, collection, rec); err != nil {
			lastErr = err
			a.log.Warn("consolidation attempt failed", "thought_id", t.ID, "attempt", attempt+1, "error", err)
			continue
		}
		return nil
	}

	if a.deadLetter != nil {
		dlErr := a.deadLetter.Append(DeadLetter{
			ThoughtID: t.ID,
			Reason:    lastErr.Error(),
			Attempts:  consolidateMaxAttempts,
			FailedAt:  time.Now(),
		})
		if dlErr != nil {
			a.log.Error("failed to write dead letter", "thought_id", t.ID, "error", dlErr)
		}
	}
	return fmt.Errorf("consolidation exhausted retries for thought %s: %w", t.ID, lastErr)
}

// Archive stores t in Unconscious with an explicit reason, bypassing
// composite classification — used for Volition vetoes and cycle timeouts
// (§4.5, §4.7).
func (a *MemoryActor) Archive(ctx context.Context, t *thought.Thought, reason ArchiveReason) error {
	rec := Record{
		ID:     t.ID,
		Vector: t.Content,
		Payload: map[string]any{
			"symbolic_id":    t.SymbolicID,
			"composite":      t.Composite,
			"source_kind":    t.Source.Kind.String(),
			"created_at":     t.CreatedAt,
			"archive_reason": string(reason),
		},
	}
	if err := a.store.Upsert(ctx, CollectionUnconscious, rec); err != nil {
		return fmt.Errorf("failed to archive thought %s: %w", t.ID, err)
	}
	return nil
}

// Associate strengthens (or creates) a Hebbian edge between two co-active
// thoughts (§3, §4.6). The weight is clamped to [0,1]; concurrent
// strengthen/decay on the same edge serialize through a.mu.
func (a *MemoryActor) Associate(ctx context.Context, from, to string, typ AssociationType) error {
	key := edgeKey(from, to, typ)

	a.mu.Lock()
	e, ok := a.edges[key]
	if !ok {
		e = Edge{From: from, To: to, Type: typ}
	}
	e.Weight = salience.Clamp01(e.Weight + hebbianLearningRate*(1-e.Weight))
	e.UpdatedAt = time.Now()
	a.edges[key] = e
	a.mu.Unlock()

	return a.persistEdge(ctx, e)
}

// Decay applies periodic weight decay to every edge and prunes those that
// fall below hebbianPruneFloor (§4.6: "periodic decay; prune below floor").
// Edges touched concurrently by Associate during this pass are decayed
// against whatever weight Associate last wrote — "newer write wins".
func (a *MemoryActor) Decay(ctx context.Context) error {
	a.mu.Lock()
	snapshot := make(map[string]Edge, len(a.edges))
	for k, e := range a.edges {
		e.Weight = salience.Clamp01(e.Weight * (1 - hebbianDecayRate))
		snapshot[k] = e
	}
	for k, e := range snapshot {
		if e.Weight < hebbianPruneFloor {
			delete(a.edges, k)
			continue
		}
		a.edges[k] = e
	}
	a.mu.Unlock()

	for k, e := range snapshot {
		if e.Weight < hebbianPruneFloor {
			if err := a.store.Delete(ctx, CollectionEdges, k); err != nil {
				a.log.Warn("failed to delete pruned edge", "edge", k, "error", err)
			}
			continue
		}
		if err := a.persistEdge(ctx, e); err != nil {
			a.log.Warn("failed to persist decayed edge", "edge", k, "error", err)
		}
	}
	return nil
}

func (a *MemoryActor) persistEdge(ctx context.Context, e Edge) error {
	rec := Record{
		ID: edgeKey(e.From, e.To, e.Type),
		Payload: map[string]any{
			"from":       e.From,
			"to":         e.To,
			"type":       string(e.Type),
			"weight":     e.Weight,
			"updated_at": e.UpdatedAt,
		},
	}
	if err := a.store.Upsert(ctx, CollectionEdges, rec); err != nil {
		return fmt.Errorf("failed to persist edge %s->%s: %w", e.From, e.To, err)
	}
	return nil
}

func edgeKey(from, to string, typ AssociationType) string {
	return from + "|" + to + "|" + string(typ)
}
