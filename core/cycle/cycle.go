// Package cycle implements CycleRunner (§4.1): the fixed five-stage pacing
// loop that drives Trigger, Autoflow, Attention, Assembly, Volition, and
// Anchor once per tick.
package cycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/royalbit/daneel/core/assembly"
	"github.com/royalbit/daneel/core/attention"
	"github.com/royalbit/daneel/core/identity"
	"github.com/royalbit/daneel/core/memory"
	"github.com/royalbit/daneel/core/salience"
	"github.com/royalbit/daneel/core/salienceact"
	"github.com/royalbit/daneel/core/thought"
	"github.com/royalbit/daneel/core/volition"
	"github.com/royalbit/daneel/core/workinglog"
)

// stage names the five pipeline stages plus the 4.5 veto gate, used only
// for slow_stage/degraded-cycle bookkeeping.
type stage string

const (
	stageTrigger   stage = "trigger"
	stageAutoflow  stage = "autoflow"
	stageAttention stage = "attention"
	stageAssembly  stage = "assembly"
	stageVolition  stage = "volition"
	stageAnchor    stage = "anchor"
)

// relativeBudgets mirrors §4.1's 10/20/30/30/10 split across the five
// pipeline stages (Volition shares Assembly's slot, it is not separately
// budgeted in the spec).
var relativeBudgets = map[stage]float64{
	stageTrigger:   0.10,
	stageAutoflow:  0.20,
	stageAttention: 0.30,
	stageAssembly:  0.30,
	stageAnchor:    0.10,
}

// slowStageFactor is the multiple of a stage's budget that trips the
// slow_stage metric (§4.1: "if a stage exceeds 3x its budget").
const slowStageFactor = 3

// degradedCycleEscalateAfter is how many consecutive degraded cycles
// escalate to the Supervisor (§4.1).
const degradedCycleEscalateAfter = 3

// TriggerSource supplies candidate thoughts for Stage 1/2 (internal
// generation plus whatever the injection intake and dream replay queued
// into Autoflow since the last cycle).
type TriggerSource interface {
	// Candidates returns every thought eligible to compete this cycle,
	// each already carrying its Predicate for the kinship prior.
	Candidates(ctx context.Context) ([]salienceact.Candidate, error)
}

// Anchor persists an assembled, volition-approved Thought to its final
// disposition (§4.6 Consolidate) and feeds MetricsCore/Identity.
type Anchor interface {
	Consolidate(ctx context.Context, t *thought.Thought) error
	Archive(ctx context.Context, t *thought.Thought, reason memory.ArchiveReason) error
}

// MetricsSink receives per-cycle observability events; satisfied by
// *metrics.MetricsCore.
type MetricsSink interface {
	Observe(composite float64, at time.Time)
	ObserveStreamWin(stream string)
}

// Runner drives the five-stage pipeline at a configured cadence (§4.1).
type Runner struct {
	trigger   TriggerSource
	salience  *salienceact.SalienceActor
	attention *attention.AttentionActor
	assembly  *assembly.ThoughtAssemblyActor
	volition  *volition.VolitionActor
	anchorTo  Anchor
	wl        *workinglog.WorkingLog
	identity  *identity.Identity
	metrics   MetricsSink

	period          time.Duration
	thresholds      salience.Thresholds
	windowOf        func(*thought.Thought) string
	onSlowStage     func(s string, took, budget time.Duration)
	onDegradedCycle func(consecutive int)
	onEscalate      func()

	log *slog.Logger

	consecutiveDegraded int
}

// Config bundles Runner's tunables from core/config.Config (§6.5).
type Config struct {
	Period     time.Duration // recommended default 50ms (§4.1)
	Thresholds salience.Thresholds
}

// New constructs a Runner. windowOf maps a Thought to the attention window
// key AttentionActor boosts; it may be nil to disable windowed boosting.
func New(
	trigger TriggerSource,
	sal *salienceact.SalienceActor,
	att *attention.AttentionActor,
	asm *assembly.ThoughtAssemblyActor,
	vol *volition.VolitionActor,
	anchorTo Anchor,
	wl *workinglog.WorkingLog,
	id *identity.Identity,
	metrics MetricsSink,
	cfg Config,
	windowOf func(*thought.Thought) string,
	onSlowStage func(s string, took, budget time.Duration),
	onDegradedCycle func(consecutive int),
	onEscalate func(),
	log *slog.Logger,
) *Runner {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Period <= 0 {
		cfg.Period = 50 * time.Millisecond
	}
	if cfg.Thresholds == (salience.Thresholds{}) {
		cfg.Thresholds = salience.DefaultThresholds()
	}
	return &Runner{
		trigger:         trigger,
		salience:        sal,
		attention:       att,
		assembly:        asm,
		volition:        vol,
		anchorTo:        anchorTo,
		wl:              wl,
		identity:        id,
		metrics:         metrics,
		period:          cfg.Period,
		thresholds:      cfg.Thresholds,
		windowOf:        windowOf,
		onSlowStage:     onSlowStage,
		onDegradedCycle: onDegradedCycle,
		onEscalate:      onEscalate,
		log:             log,
	}
}

// Start runs cycles back-to-back on Period cadence until ctx is cancelled;
// Stop does not end the loop.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.RunCycle(ctx); err != nil {
				r.log.Error("cycle failed", "error", err)
			}
		}
	}
}

// Stop performs a graceful shutdown: the caller should cancel the context
// passed to Start, then call Stop to flush identity and trim the log.
func (r *Runner) Stop(ctx context.Context) error {
	if err := r.identity.Flush(ctx); err != nil {
		return fmt.Errorf("cycle: failed to flush identity on stop: %w", err)
	}
	if err := r.wl.TrimAll(); err != nil {
		r.log.Warn("cycle: trim on stop reported undisposed entries", "error", err)
	}
	return nil
}

// RunCycle runs a single iteration of the five-stage pipeline (§4.1),
// used directly by tests and by Start's ticker loop.
func (r *Runner) RunCycle(ctx context.Context) error {
	budget := func(s stage) time.Duration {
		return time.Duration(float64(r.period) * relativeBudgets[s])
	}

	degraded := false

	timed := func(s stage, fn func() error) error {
		start := time.Now()
		err := fn()
		took := time.Since(start)
		if b := budget(s); b > 0 && took > slowStageFactor*b {
			r.log.Warn("slow_stage", "stage", s, "took", took, "budget", b)
			if r.onSlowStage != nil {
				r.onSlowStage(string(s), took, b)
			}
		}
		if err != nil {
			degraded = true
		}
		return err
	}

	var candidates []salienceact.Candidate
	if err := timed(stageTrigger, func() error {
		var err error
		candidates, err = r.trigger.Candidates(ctx)
		return err
	}); err != nil {
		return r.finishDegraded(fmt.Errorf("trigger stage failed: %w", err))
	}
	if len(candidates) == 0 {
		r.consecutiveDegraded = 0
		return nil
	}

	var scored []*thought.Thought
	if err := timed(stageAutoflow, func() error {
		for _, c := range candidates {
			t, _, err := r.salience.Score(ctx, c)
			if err != nil {
				return err
			}
			if _, err := r.wl.Append(workinglog.StreamAutoflow, t.ID); err != nil {
				return err
			}
			scored = append(scored, t)
		}
		return nil
	}); err != nil {
		return r.finishDegraded(fmt.Errorf("autoflow stage failed: %w", err))
	}

	var winner *thought.Thought
	if err := timed(stageAttention, func() error {
		var err error
		winner, err = r.attention.Select(ctx, scored, r.windowOf)
		return err
	}); err != nil {
		return r.finishDegraded(fmt.Errorf("attention stage failed: %w", err))
	}
	if r.windowOf != nil {
		r.metrics.ObserveStreamWin(r.windowOf(winner))
	}

	var assembled *thought.Thought
	if err := timed(stageAssembly, func() error {
		var err error
		assembled, err = r.assembly.Assemble(ctx, winner, nil)
		return err
	}); err != nil {
		return r.finishDegraded(fmt.Errorf("assembly stage failed: %w", err))
	}

	var verdict volition.Verdict
	if err := timed(stageVolition, func() error {
		var err error
		verdict, err = r.volition.Judge(ctx, assembled)
		return err
	}); err != nil {
		return r.finishDegraded(fmt.Errorf("volition stage failed: %w", err))
	}

	if !verdict.Allowed {
		if err := r.wl.Dispose(workinglog.StreamAutoflow, winner.ID, thought.DispositionDropped); err != nil {
			r.log.Warn("cycle: failed to mark vetoed thought dropped", "error", err)
		}
		// §9: vetoed thoughts are archived to Unconscious with reason=Vetoed,
		// not discarded outright, so the veto remains auditable.
		if err := r.anchorTo.Archive(ctx, assembled, memory.ArchiveReasonVetoed); err != nil {
			r.log.Warn("cycle: failed to archive vetoed thought", "error", err)
		}
		r.consecutiveDegraded = 0
		return nil
	}

	if err := timed(stageAnchor, func() error {
		if err := r.anchorTo.Consolidate(ctx, assembled); err != nil {
			return err
		}
		disposition := thought.DispositionLongTerm
		if r.thresholds.Classify(assembled.Composite) != salience.DispositionConsolidate {
			disposition = thought.DispositionUnconscious
		}
		return r.wl.Dispose(workinglog.StreamAutoflow, winner.ID, disposition)
	}); err != nil {
		return r.finishDegraded(fmt.Errorf("anchor stage failed: %w", err))
	}

	r.metrics.Observe(assembled.Composite, time.Now())
	if err := r.identity.RecordThought(ctx); err != nil {
		r.log.Warn("cycle: failed to record thought on identity", "error", err)
	}

	if degraded {
		return r.finishDegraded(nil)
	}
	r.consecutiveDegraded = 0
	return nil
}

func (r *Runner) finishDegraded(err error) error {
	r.consecutiveDegraded++
	if r.onDegradedCycle != nil {
		r.onDegradedCycle(r.consecutiveDegraded)
	}
	if r.consecutiveDegraded >= degradedCycleEscalateAfter {
		r.log.Error("three consecutive degraded cycles, escalating to supervisor", "consecutive", r.consecutiveDegraded)
		if r.onEscalate != nil {
			r.onEscalate()
		}
		r.consecutiveDegraded = 0
	}
	return err
}
