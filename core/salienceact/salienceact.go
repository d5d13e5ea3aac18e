// Package salienceact implements SalienceActor (§4.2): it scores a
// candidate with the TMI composite formula in core/salience, applying the
// kinship prior before computing the composite.
package salienceact

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/royalbit/daneel/core/salience"
	"github.com/royalbit/daneel/core/thought"
)

// Candidate is the pre-scored input to SalienceActor: a Thought whose
// Salience fields have been populated by upstream stages (Trigger/Autoflow)
// except for ConnectionRelevance, which the kinship prior may still raise.
type Candidate struct {
	Thought   *thought.Thought
	Predicate string // symbolic predicate or label used for kinship matching
}

// SalienceActor wraps the salience package's pure functions with the
// configured kinship vocabulary and thresholds.
type SalienceActor struct {
	kinship    salience.KinshipVocabulary
	thresholds salience.Thresholds
	log        *slog.Logger
}

// New constructs a SalienceActor.
func New(kinship salience.KinshipVocabulary, thresholds salience.Thresholds, log *slog.Logger) *SalienceActor {
	if log == nil {
		log = slog.Default()
	}
	return &SalienceActor{kinship: kinship, thresholds: thresholds, log: log}
}

// Score applies the kinship prior then computes and stamps the composite on
// c.Thought, returning the updated Thought and its disposition class.
func (a *SalienceActor) Score(ctx context.Context, c Candidate) (*thought.Thought, salience.Disposition, error) {
	if c.Thought == nil {
		return nil, salience.DispositionPending, fmt.Errorf("salienceact: nil thought")
	}

	c.Thought.Salience = salience.ApplyKinshipPrior(c.Thought.Salience, c.Predicate, a.kinship)
	c.Thought.Composite = c.Thought.Salience.Composite()
	disposition := a.thresholds.Classify(c.Thought.Composite)

	a.log.Debug("scored candidate", "thought_id", c.Thought.ID, "composite", c.Thought.Composite, "disposition", disposition)
	return c.Thought, disposition, nil
}

// Handle implements actor.Handler for use under the actor substrate.
func (a *SalienceActor) Handle(ctx context.Context, msg any) (any, error) {
	c, ok := msg.(Candidate)
	if !ok {
		return nil, fmt.Errorf("salienceact: unexpected message type %T", msg)
	}
	t, disposition, err := a.Score(ctx, c)
	if err != nil {
		return nil, err
	}
	return struct {
		Thought     *thought.Thought
		Disposition salience.Disposition
	}{t, disposition}, nil
}
