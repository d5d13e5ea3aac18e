// Package volition implements VolitionActor (§4.5, Stage 4.5): the veto gate
// consulting THE BOX before a Thought is anchored.
package volition

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/royalbit/daneel/core/box"
	"github.com/royalbit/daneel/core/thought"
)

// Reason enumerates why a Thought was vetoed (§4.5).
type Reason string

const (
	ReasonNone                 Reason = ""
	ReasonLawViolation         Reason = "LawViolation"
	ReasonIdentityContradiction Reason = "IdentityContradiction"
	ReasonUserRule             Reason = "UserRule"
)

// Verdict is the Allow/Veto(reason) result of §4.5.
type Verdict struct {
	Allowed bool
	Reason  Reason
}

func Allow() Verdict          { return Verdict{Allowed: true} }
func Veto(r Reason) Verdict   { return Verdict{Allowed: false, Reason: r} }

// Rule is a committed-value check a Thought is measured against. Rules
// return ReasonNone when they have no objection.
type Rule func(t *thought.Thought, laws []box.Law) Reason

// repeatVetoWindow bounds how long repeated vetoes of the same reason are
// counted toward the "metrics alert, not a restart" threshold (§4.5).
const repeatVetoWindow = 10 * time.Second

// repeatVetoAlertThreshold is how many vetoes of the same reason within the
// window raise the alert.
const repeatVetoAlertThreshold = 3

// VolitionActor holds THE BOX and the configured rule set.
type VolitionActor struct {
	box   *box.Box
	rules []Rule
	log   *slog.Logger

	mu          sync.Mutex
	recentVetoes map[Reason][]time.Time
	onRepeatAlert func(reason Reason, count int)
}

// New constructs a VolitionActor. b must already be loaded and verified
// (§4.5: "mismatch is a fatal startup error", handled by the caller before
// VolitionActor is ever constructed).
func New(b *box.Box, rules []Rule, onRepeatAlert func(Reason, int), log *slog.Logger) *VolitionActor {
	if log == nil {
		log = slog.Default()
	}
	return &VolitionActor{
		box:           b,
		rules:         rules,
		onRepeatAlert: onRepeatAlert,
		recentVetoes:  make(map[Reason][]time.Time),
		log:           log,
	}
}

// Judge evaluates t against every configured rule, returning the first veto
// encountered or Allow if none object.
func (v *VolitionActor) Judge(ctx context.Context, t *thought.Thought) (Verdict, error) {
	if t == nil {
		return Verdict{}, fmt.Errorf("volition: nil thought")
	}

	laws := v.box.Laws()
	for _, rule := range v.rules {
		if reason := rule(t, laws); reason != ReasonNone {
			v.recordVeto(reason)
			v.log.Info("thought vetoed", "thought_id", t.ID, "reason", reason)
			return Veto(reason), nil
		}
	}
	return Allow(), nil
}

func (v *VolitionActor) recordVeto(reason Reason) {
	now := time.Now()
	v.mu.Lock()
	defer v.mu.Unlock()

	history := append(v.recentVetoes[reason], now)
	cutoff := now.Add(-repeatVetoWindow)
	trimmed := history[:0]
	for _, t := range history {
		if t.After(cutoff) {
			trimmed = append(trimmed, t)
		}
	}
	v.recentVetoes[reason] = trimmed

	if len(trimmed) >= repeatVetoAlertThreshold && v.onRepeatAlert != nil {
		v.onRepeatAlert(reason, len(trimmed))
	}
}

// Handle implements actor.Handler.
func (v *VolitionActor) Handle(ctx context.Context, msg any) (any, error) {
	t, ok := msg.(*thought.Thought)
	if !ok {
		return nil, fmt.Errorf("volition: unexpected message type %T", msg)
	}
	return v.Judge(ctx, t)
}
