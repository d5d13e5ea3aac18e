// Package thought defines the Thought record that flows through the five
// stages of the cycle and its tagged-variant Source (§3).
package thought

import (
	"time"

	"github.com/google/uuid"
	"github.com/royalbit/daneel/core/salience"
	"github.com/royalbit/daneel/core/vector"
)

// Stage identifies which of the five stages (plus the 4.5 Volition gate)
// originated or is currently holding a Thought.
type Stage string

const (
	StageTrigger   Stage = "trigger"
	StageAutoflow  Stage = "autoflow"
	StageAttention Stage = "attention"
	StageAssembly  Stage = "assembly"
	StageVolition  Stage = "volition"
	StageAnchor    Stage = "anchor"
)

// SourceKind tags the Source sum type (§3, §9: "the only polymorphism is
// Thought.source as a tagged variant").
type SourceKind int

const (
	SourceInternal SourceKind = iota
	SourceInjected
	SourceDreamReplay
)

func (k SourceKind) String() string {
	switch k {
	case SourceInjected:
		return "injected"
	case SourceDreamReplay:
		return "dream_replay"
	default:
		return "internal"
	}
}

// Source is a plain record carrying the tagged variant's payload. Exactly
// one of the Kind-specific fields is meaningful for a given Kind.
type Source struct {
	Kind SourceKind

	// Injected fields.
	KeyID string
	Label string

	// DreamReplay fields.
	ReplaySourceID string
}

func Internal() Source { return Source{Kind: SourceInternal} }

func Injected(keyID, label string) Source {
	return Source{Kind: SourceInjected, KeyID: keyID, Label: label}
}

func DreamReplay(sourceID string) Source {
	return Source{Kind: SourceDreamReplay, ReplaySourceID: sourceID}
}

// Disposition is where a Thought ends up when it leaves the working log
// (§3 invariant 2: exactly one of these three).
type Disposition string

const (
	DispositionNone        Disposition = ""
	DispositionLongTerm    Disposition = "long_term"
	DispositionUnconscious Disposition = "unconscious"
	DispositionDropped     Disposition = "dropped"
)

// Thought is the engine's unit of cognition.
type Thought struct {
	ID          string
	CreatedAt   time.Time
	StageOrigin Stage

	// Content is either an embedding Vector or a symbolic id, never both
	// meaningfully populated at once — SymbolicID is empty for embedded
	// content and vice versa.
	Content    vector.Vector
	SymbolicID string
	PreEmbedding bool // true when Content is the zero vector by policy (§6.4)

	Salience  salience.Score
	Composite float64

	Parents []string
	Source  Source

	Disposition Disposition
}

// New creates a Thought with a fresh id and the given origin stage/source.
// Composite and Disposition are left to the caller (they depend on the
// salience computed by SalienceActor and the thresholds in force).
func New(origin Stage, src Source) *Thought {
	return &Thought{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now(),
		StageOrigin: origin,
		Source:      src,
	}
}

// Equivalent reports whether two thoughts have the same content excluding
// timestamps and ids, for the Assembly determinism requirement (§4.4): given
// the same winner + retrieved memories + salience, assembly must produce the
// same Thought content.
func Equivalent(a, b *Thought) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.SymbolicID != b.SymbolicID {
		return false
	}
	if len(a.Content) != len(b.Content) {
		return false
	}
	for i := range a.Content {
		if a.Content[i] != b.Content[i] {
			return false
		}
	}
	if a.Composite != b.Composite {
		return false
	}
	if len(a.Parents) != len(b.Parents) {
		return false
	}
	for i := range a.Parents {
		if a.Parents[i] != b.Parents[i] {
			return false
		}
	}
	return true
}
