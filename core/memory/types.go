// Package memory implements the three-tier memory model (§3, §4.6): the
// VectorStore client contract (§6.3), its Supabase-backed implementation,
// the Memory/Edge domain types, and MemoryActor.
package memory

import (
	"time"

	"github.com/royalbit/daneel/core/salience"
	"github.com/royalbit/daneel/core/thought"
	"github.com/royalbit/daneel/core/vector"
)

// AssociationType is the Edge.Type tag (§3).
type AssociationType string

const (
	AssociationSemantic AssociationType = "semantic"
	AssociationTemporal AssociationType = "temporal"
	AssociationCausal   AssociationType = "causal"
	AssociationEmotional AssociationType = "emotional"
	AssociationSpatial  AssociationType = "spatial"
	AssociationGoal     AssociationType = "goal"
)

// Edge is a Hebbian association between two memories (§3, §4.6). Edges are
// records keyed by (From, To); memories own nothing about each other (§9).
type Edge struct {
	From      string
	To        string
	Type      AssociationType
	Weight    float64
	UpdatedAt time.Time
}

// Memory is a Thought plus retrieval metadata, persisted once its composite
// salience has classified it into LongTerm or Unconscious (§3).
type Memory struct {
	ThoughtID    string
	Vector       vector.Vector
	SymbolicID   string
	Salience     salience.Score
	Composite    float64
	Source       thought.Source
	CreatedAt    time.Time

	LastRetrievedAt time.Time
	RetrievalCount  int

	// ArchiveReason is set only for Unconscious memories (§4.6).
	ArchiveReason ArchiveReason
}

// ArchiveReason records why a memory was archived to Unconscious.
type ArchiveReason string

const (
	ArchiveReasonNone       ArchiveReason = ""
	ArchiveReasonLowSalience ArchiveReason = "low_salience"
	ArchiveReasonVetoed     ArchiveReason = "vetoed"
	ArchiveReasonTimeout    ArchiveReason = "timeout"
)

// FromThought builds a Memory record from an assembled Thought.
func FromThought(t *thought.Thought) Memory {
	return Memory{
		ThoughtID:  t.ID,
		Vector:     t.Content,
		SymbolicID: t.SymbolicID,
		Salience:   t.Salience,
		Composite:  t.Composite,
		Source:     t.Source,
		CreatedAt:  t.CreatedAt,
	}
}
