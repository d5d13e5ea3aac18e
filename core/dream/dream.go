// Package dream implements SleepScheduler (§4.7): periodic consolidation
// cycles that strengthen, recombine, and decay memory, adapted from the
// teacher's EchoDream phase loop (core/echodream/echodream.go) and
// repurposed from wisdom extraction onto spec.md's replay/strengthen/decay/
// associate rules.
package dream

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/royalbit/daneel/core/memory"
	"github.com/royalbit/daneel/core/thought"
	"github.com/royalbit/daneel/core/workinglog"
)

// Phase is the dream cycle's state machine stage, directly adapted from
// echodream.go's DreamPhase.
type Phase int

const (
	PhaseREM Phase = iota
	PhaseDeepSleep
	PhaseConsolidation
	PhaseIntegration
)

func (p Phase) String() string {
	return [...]string{"REM", "DeepSleep", "Consolidation", "Integration"}[p]
}

// replaySalienceCap bounds the declared salience of a DreamReplay Thought
// (§4.7: "capped declared salience (≤ 0.6) so it competes but cannot
// monopolize attention").
const replaySalienceCap = 0.6

// replayFraction is the small random subset of sampled memories that
// produce a DreamReplay Thought each cycle.
const replayFraction = 0.2

// globalDecayRate is the small λ of §4.7 step 4. RunCycle does not apply it:
// edge decay runs through MemoryActor.Decay at that package's own rate, and
// Unconscious memory salience is not decayed.
const globalDecayRate = 0.02

// Scheduler drives the dream cycle on a Δt-or-N-thoughts trigger. Exactly
// one cycle runs at a time (§4.7: "MUST NOT run concurrently with
// themselves"); it MAY run concurrently with the cognitive cycle.
type Scheduler struct {
	store  memory.VectorStore
	memory *memory.MemoryActor
	wl     *workinglog.WorkingLog

	period     time.Duration
	sampleSize int

	log *slog.Logger

	mu      sync.Mutex
	running bool
	phase   Phase

	thoughtsSinceLastDream atomic.Int64

	onDreamComplete func(strengthenedCount int)

	stopCh chan struct{}
	doneCh chan struct{}
}

// Config bundles Scheduler's tunables from core/config.Config (§6.5).
type Config struct {
	Period     time.Duration
	SampleSize int
}

// New constructs a Scheduler.
func New(store memory.VectorStore, actor *memory.MemoryActor, wl *workinglog.WorkingLog, cfg Config, onDreamComplete func(int), log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = 16
	}
	return &Scheduler{
		store:           store,
		memory:          actor,
		wl:              wl,
		period:          cfg.Period,
		sampleSize:      cfg.SampleSize,
		onDreamComplete: onDreamComplete,
		log:             log,
		phase:           PhaseREM,
	}
}

// NotifyThought should be called once per anchored Thought; it lets the
// "every N thoughts" trigger fire independently of the timer.
func (s *Scheduler) NotifyThought() {
	s.thoughtsSinceLastDream.Add(1)
}

// Start launches the background trigger loop (timer OR thought-count,
// whichever first), grounded on echodream.go's ticker-based dreamLoop.
func (s *Scheduler) Start(ctx context.Context, triggerThoughtCount int64) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("dream: scheduler already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.loop(ctx, triggerThoughtCount)
	return nil
}

// Stop signals the loop to exit and waits for it to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh
}

func (s *Scheduler) loop(ctx context.Context, triggerThoughtCount int64) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.runCycleLogged(ctx)
		default:
		}

		if triggerThoughtCount > 0 && s.thoughtsSinceLastDream.Load() >= triggerThoughtCount {
			s.runCycleLogged(ctx)
		}

		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (s *Scheduler) runCycleLogged(ctx context.Context) {
	s.thoughtsSinceLastDream.Store(0)
	strengthened, err := s.RunCycle(ctx)
	if err != nil {
		s.log.Error("dream cycle failed", "error", err)
		return
	}
	if s.onDreamComplete != nil {
		s.onDreamComplete(strengthened)
	}
}

// RunCycle runs the full four-phase dream cycle once (§4.7 steps 1-5),
// synchronously, for use by tests and by the background loop alike.
func (s *Scheduler) RunCycle(ctx context.Context) (strengthenedCount int, err error) {
	sample, err := s.sampleMemories(ctx)
	if err != nil {
		return 0, fmt.Errorf("dream: sampling failed: %w", err)
	}

	s.setPhase(PhaseREM)
	strengthenedCount = s.strengthenCoReplayed(ctx, sample)

	s.setPhase(PhaseDeepSleep)
	s.replaySubset(ctx, sample)

	s.setPhase(PhaseConsolidation)
	if err := s.memory.Decay(ctx); err != nil {
		s.log.Warn("dream: decay/prune pass failed", "error", err)
	}

	s.setPhase(PhaseIntegration)
	return strengthenedCount, nil
}

func (s *Scheduler) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

// CurrentPhase reports the active phase, for status reporting.
func (s *Scheduler) CurrentPhase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// sampleMemories pulls up to sampleSize records from LongTerm, then
// Unconscious (§4.7 step 1), in the order the store's unqueried KNN returns
// them; no preference for emotional intensity or recent associations is
// applied. Records whose source is already DreamReplay are excluded per the
// replay-depth-1 cap (§9).
func (s *Scheduler) sampleMemories(ctx context.Context) ([]memory.Record, error) {
	var out []memory.Record
	for _, coll := range []memory.Collection{memory.CollectionLongTerm, memory.CollectionUnconscious} {
		recs, err := s.store.KNN(ctx, coll, nil, s.sampleSize, nil)
		if err != nil {
			return nil, err
		}
		for _, r := range recs {
			if sourceKind, ok := r.Payload["source_kind"].(string); ok && sourceKind == thought.SourceDreamReplay.String() {
				continue
			}
			out = append(out, r)
		}
	}
	if len(out) > s.sampleSize {
		out = out[:s.sampleSize]
	}
	return out, nil
}

// strengthenCoReplayed associates every adjacent pair in sample (§4.7 step
// 2: "for each sampled pair, update their Edge weight"), returning how many
// edges were touched.
func (s *Scheduler) strengthenCoReplayed(ctx context.Context, sample []memory.Record) int {
	touched := 0
	for i := 0; i+1 < len(sample); i++ {
		if err := s.memory.Associate(ctx, sample[i].ID, sample[i+1].ID, memory.AssociationTemporal); err != nil {
			s.log.Warn("dream: associate failed", "from", sample[i].ID, "to", sample[i+1].ID, "error", err)
			continue
		}
		touched++
	}
	return touched
}

// replaySubset produces a DreamReplay Thought for a small random subset of
// sample and appends it to Autoflow (§4.7 step 3).
func (s *Scheduler) replaySubset(ctx context.Context, sample []memory.Record) {
	for _, rec := range sample {
		if rand.Float64() > replayFraction {
			continue
		}

		t := thought.New(thought.StageAutoflow, thought.DreamReplay(rec.ID))
		t.Content = rec.Vector
		t.Composite = replaySalienceCap
		t.Salience.Importance = replaySalienceCap

		if _, err := s.wl.Append(workinglog.StreamAutoflow, t.ID); err != nil {
			s.log.Warn("dream: replay append failed", "source_id", rec.ID, "error", err)
		}
	}
}
