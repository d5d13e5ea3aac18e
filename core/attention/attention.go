// Package attention implements AttentionActor (§4.3): competitive selection
// of exactly one focus Thought among candidates at Stage 3.
package attention

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/royalbit/daneel/core/thought"
)

// maxBoost is the bound on the short-term attention_map multiplier (§4.3:
// "boosts recently-touched windows by a bounded factor (≤ 1.5×)").
const maxBoost = 1.5

// AttentionActor holds the short-term attention_map used to boost
// recently-touched windows, and tracks per-stream win counts for
// MetricsCore's stream-competition readout (§4.11).
type AttentionActor struct {
	mu          sync.Mutex
	attentionMap map[string]float64 // window key -> boost in [1, maxBoost]
	winsByWindow map[string]int
	totalWins    int
	log          *slog.Logger
}

// New constructs an AttentionActor with an empty attention map.
func New(log *slog.Logger) *AttentionActor {
	if log == nil {
		log = slog.Default()
	}
	return &AttentionActor{
		attentionMap: make(map[string]float64),
		winsByWindow: make(map[string]int),
		log:          log,
	}
}

// Touch boosts window's short-term attention weight, bounded by maxBoost,
// called when a window (stream or topic key) is freshly written to.
func (a *AttentionActor) Touch(window string, delta float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	w, ok := a.attentionMap[window]
	if !ok {
		w = 1
	}
	w += delta
	if w > maxBoost {
		w = maxBoost
	}
	if w < 1 {
		w = 1
	}
	a.attentionMap[window] = w
}

func (a *AttentionActor) boostFor(window string) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if b, ok := a.attentionMap[window]; ok {
		return b
	}
	return 1
}

// Select picks exactly one focus among candidates by boosted composite,
// breaking ties per §4.3: (a) higher connection_relevance, (b) higher
// arousal, (c) newer created_at, (d) deterministic id hash.
func (a *AttentionActor) Select(ctx context.Context, candidates []*thought.Thought, windowOf func(*thought.Thought) string) (*thought.Thought, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("attention: no candidates to select from")
	}

	type scored struct {
		t     *thought.Thought
		boosted float64
	}
	scoredCands := make([]scored, len(candidates))
	for i, t := range candidates {
		window := ""
		if windowOf != nil {
			window = windowOf(t)
		}
		scoredCands[i] = scored{t: t, boosted: t.Composite * a.boostFor(window)}
	}

	best := scoredCands[0]
	for _, c := range scoredCands[1:] {
		if beats(c, best) {
			best = c
		}
	}

	a.recordWin(windowOf, best.t)
	return best.t, nil
}

func beats(c, best struct {
	t       *thought.Thought
	boosted float64
}) bool {
	if c.boosted != best.boosted {
		return c.boosted > best.boosted
	}
	if c.t.Salience.ConnectionRelevance != best.t.Salience.ConnectionRelevance {
		return c.t.Salience.ConnectionRelevance > best.t.Salience.ConnectionRelevance
	}
	if c.t.Salience.Arousal != best.t.Salience.Arousal {
		return c.t.Salience.Arousal > best.t.Salience.Arousal
	}
	if !c.t.CreatedAt.Equal(best.t.CreatedAt) {
		return c.t.CreatedAt.After(best.t.CreatedAt)
	}
	return idHash(c.t.ID) > idHash(best.t.ID)
}

func idHash(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

func (a *AttentionActor) recordWin(windowOf func(*thought.Thought) string, winner *thought.Thought) {
	window := ""
	if windowOf != nil {
		window = windowOf(winner)
	}
	a.mu.Lock()
	a.winsByWindow[window]++
	a.totalWins++
	a.mu.Unlock()
}

// WinRate returns window's recent-win rate for MetricsCore's stream
// competition readout (§4.11).
func (a *AttentionActor) WinRate(window string) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.totalWins == 0 {
		return 0
	}
	return float64(a.winsByWindow[window]) / float64(a.totalWins)
}

// Handle implements actor.Handler.
func (a *AttentionActor) Handle(ctx context.Context, msg any) (any, error) {
	req, ok := msg.(SelectRequest)
	if !ok {
		return nil, fmt.Errorf("attention: unexpected message type %T", msg)
	}
	return a.Select(ctx, req.Candidates, req.WindowOf)
}

// SelectRequest is the actor message form of Select.
type SelectRequest struct {
	Candidates []*thought.Thought
	WindowOf   func(*thought.Thought) string
}

// Decay ages all attention_map entries toward 1 by a fixed fraction,
// preventing a window boosted long ago from permanently privileging it.
func (a *AttentionActor) Decay(fraction float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for k, v := range a.attentionMap {
		v = 1 + (v-1)*(1-fraction)
		if v <= 1.0001 {
			delete(a.attentionMap, k)
			continue
		}
		a.attentionMap[k] = v
	}
}
