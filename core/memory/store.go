package memory

import (
	"context"

	"github.com/royalbit/daneel/core/vector"
)

// Collection names the three logical vector collections (§6.3).
type Collection string

const (
	CollectionLongTerm    Collection = "memories"
	CollectionUnconscious Collection = "unconscious"
	CollectionIdentity    Collection = "identity"
	CollectionEdges       Collection = "edges"
)

// Record is a stored row: an id, its vector (may be absent for the
// single-record identity collection), and an opaque payload.
type Record struct {
	ID      string
	Vector  vector.Vector
	Payload map[string]any
	Score   float64 // similarity score, populated by KNN only
}

// VectorStore is the in-process client contract of §6.3: upsert by id with
// payload, k-nearest-neighbor search with optional payload filter, delete
// by id (used only for pruning).
type VectorStore interface {
	Upsert(ctx context.Context, collection Collection, rec Record) error
	KNN(ctx context.Context, collection Collection, query vector.Vector, k int, filter map[string]any) ([]Record, error)
	Get(ctx context.Context, collection Collection, id string) (*Record, error)
	Delete(ctx context.Context, collection Collection, id string) error
}
