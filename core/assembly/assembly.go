// Package assembly implements ThoughtAssemblyActor (§4.4): fuses the
// Attention winner and its retrieved associated memories into one Thought.
package assembly

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/royalbit/daneel/core/memory"
	"github.com/royalbit/daneel/core/thought"
	"github.com/royalbit/daneel/core/vector"
)

// ThoughtAssemblyActor fuses a winning candidate and its retrieved memories
// into a single Thought, deterministically in content (§4.4: "given the
// same winner + same retrieved memories + same salience, assembly produces
// the same Thought content").
type ThoughtAssemblyActor struct {
	log *slog.Logger
}

// New constructs a ThoughtAssemblyActor.
func New(log *slog.Logger) *ThoughtAssemblyActor {
	if log == nil {
		log = slog.Default()
	}
	return &ThoughtAssemblyActor{log: log}
}

// Assemble fuses winner with retrieved (already ordered by the caller, e.g.
// by descending KNN score) into a new Thought. Content is the normalized
// mean of the winner's vector and every retrieved memory's vector — a pure
// function of its inputs, satisfying the determinism requirement. Parents
// is winner's id followed by every retrieved memory's id, in order.
func (a *ThoughtAssemblyActor) Assemble(ctx context.Context, winner *thought.Thought, retrieved []memory.Record) (*thought.Thought, error) {
	if winner == nil {
		return nil, fmt.Errorf("assembly: nil winner")
	}

	fused := thought.New(thought.StageAssembly, winner.Source)
	fused.Content = fuseContent(winner.Content, retrieved)
	fused.SymbolicID = winner.SymbolicID
	fused.Salience = winner.Salience
	fused.Composite = winner.Composite

	parents := make([]string, 0, 1+len(retrieved))
	parents = append(parents, winner.ID)
	for _, r := range retrieved {
		parents = append(parents, r.ID)
	}
	fused.Parents = parents

	a.log.Debug("assembled thought", "winner_id", winner.ID, "retrieved", len(retrieved), "assembled_id", fused.ID)
	return fused, nil
}

func fuseContent(winner vector.Vector, retrieved []memory.Record) vector.Vector {
	if len(winner) == 0 {
		return winner
	}

	sum := make(vector.Vector, len(winner))
	copy(sum, winner)
	n := 1

	for _, r := range retrieved {
		if len(r.Vector) != len(sum) {
			continue
		}
		for i, x := range r.Vector {
			sum[i] += x
		}
		n++
	}

	for i := range sum {
		sum[i] /= float64(n)
	}
	return sum.Normalize()
}

// Handle implements actor.Handler.
func (a *ThoughtAssemblyActor) Handle(ctx context.Context, msg any) (any, error) {
	req, ok := msg.(AssembleRequest)
	if !ok {
		return nil, fmt.Errorf("assembly: unexpected message type %T", msg)
	}
	return a.Assemble(ctx, req.Winner, req.Retrieved)
}

// AssembleRequest is the actor message form of Assemble.
type AssembleRequest struct {
	Winner    *thought.Thought
	Retrieved []memory.Record
}
