// Package daneel wires every component into the running engine, in the
// dependency order of §2: Identity, VectorStore, Embedder → WorkingLog →
// MemoryActor, SalienceActor → AttentionActor → ThoughtAssemblyActor →
// VolitionActor → CycleRunner → SleepScheduler, InjectionIntake →
// Supervisor → MetricsCore (read-only).
package daneel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/royalbit/daneel/core/actor"
	"github.com/royalbit/daneel/core/assembly"
	"github.com/royalbit/daneel/core/attention"
	"github.com/royalbit/daneel/core/box"
	"github.com/royalbit/daneel/core/config"
	"github.com/royalbit/daneel/core/cycle"
	"github.com/royalbit/daneel/core/dream"
	"github.com/royalbit/daneel/core/identity"
	"github.com/royalbit/daneel/core/inject"
	"github.com/royalbit/daneel/core/memory"
	"github.com/royalbit/daneel/core/metrics"
	"github.com/royalbit/daneel/core/salience"
	"github.com/royalbit/daneel/core/salienceact"
	"github.com/royalbit/daneel/core/thought"
	"github.com/royalbit/daneel/core/vector"
	"github.com/royalbit/daneel/core/volition"
	"github.com/royalbit/daneel/core/workinglog"
)

// Engine owns the fully-wired component graph and its process lifecycle.
type Engine struct {
	cfg config.Config
	log *slog.Logger

	box *box.Box

	store    memory.VectorStore
	embedder vector.Embedder

	wl       *workinglog.WorkingLog
	identity *identity.Identity
	mem      *memory.MemoryActor

	salienceAct *salienceact.SalienceActor
	attentionAct *attention.AttentionActor
	assemblyAct  *assembly.ThoughtAssemblyActor
	volitionAct  *volition.VolitionActor

	sup     *actor.Supervisor
	metrics *metrics.MetricsCore
	inbox   *inbox

	runner *cycle.Runner
	sleep  *dream.Scheduler

	injectIntake *inject.Intake
	injectAudit  *inject.AuditLog
	httpServer   *http.Server

	cancel context.CancelFunc
}

// New constructs every component but does not start any background loop.
func New(cfg config.Config, listenAddr string, log *slog.Logger) (*Engine, error) {
	if log == nil {
		log = slog.Default()
	}

	b, err := box.LoadDefault()
	if err != nil {
		return nil, fmt.Errorf("daneel: THE BOX failed verification at startup: %w", err)
	}

	store, err := memory.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseKey)
	if err != nil {
		return nil, fmt.Errorf("daneel: failed to construct vector store: %w", err)
	}
	embedder := vector.NullEmbedder{Dim: cfg.VectorDimension}

	ident, err := identity.Load(context.Background(), memory.NewIdentityAdapter(store), cfg.ConsolidationFlushEvery, cfg.IdentityFlushInterval)
	if err != nil {
		return nil, fmt.Errorf("daneel: failed to load identity: %w", err)
	}

	wl := workinglog.New(workinglog.DefaultStreams(), cfg.StreamTrimMax)

	thresholds := salience.Thresholds{Consolidate: cfg.ConsolidateThreshold, Forget: cfg.ForgetThreshold}
	dlq := memory.NewDeadLetterQueue("deadletter.jsonl")
	memAct := memory.NewMemoryActor(store, embedder, thresholds, dlq, log)

	kinship := salience.DefaultKinshipVocabulary()
	if len(cfg.KinshipTerms) > 0 {
		kinship = salience.KinshipVocabulary{SocialContexts: cfg.KinshipTerms}
	}
	salAct := salienceact.New(kinship, thresholds, log)
	attAct := attention.New(log)
	asmAct := assembly.New(log)

	sup := actor.NewSupervisor(cfg.MaxRestartsInWindow, cfg.RestartWindow, nil, log)

	volAct := volition.New(b, volition.DefaultRules(nil), func(r volition.Reason, n int) {
		log.Warn("repeated volition vetoes", "reason", r, "count", n)
	}, log)

	mc := metrics.New()
	inb := newInbox()

	windowOf := func(t *thought.Thought) string { return string(t.StageOrigin) }

	runner := cycle.New(
		inb, salAct, attAct, asmAct, volAct, memAct, wl, ident, mc,
		cycle.Config{Period: cfg.CyclePeriod, Thresholds: thresholds},
		windowOf,
		func(s string, took, budget time.Duration) {
			log.Warn("slow_stage", "stage", s, "took", took, "budget", budget)
		},
		func(consecutive int) {
			log.Warn("degraded cycle", "consecutive", consecutive)
		},
		func() {
			log.Error("cycle runner escalated to supervisor after repeated degraded cycles")
			sup.RecordRestart("cycle_runner")
		},
		log,
	)

	sleep := dream.New(store, memAct, wl, dream.Config{Period: cfg.DreamPeriod, SampleSize: cfg.DreamSampleSize}, func(strengthened int) {
		if err := ident.RecordDream(context.Background(), uint64(strengthened)); err != nil {
			log.Warn("failed to record dream on identity", "error", err)
		}
	}, log)

	audit := inject.NewAuditLog("injection_audit.jsonl")
	keys := inject.NewDailyKeyStore([]byte(cfg.SupabaseKey), nil)
	intake := inject.New(inject.Config{
		VectorDimension:       cfg.VectorDimension,
		ClockSkewAllowance:    5 * time.Second,
		EntropySpikeThreshold: cfg.InjectionEntropySpikeThreshold,
		RatePerSecond:         float64(cfg.InjectionRateSec),
		RatePerMinute:         float64(cfg.InjectionRateMin),
	}, keys, mc, audit, log, func(t *thought.Thought) {
		inb.push(t, t.Source.Label)
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	inject.NewServer(intake, mc, "daneeld").Register(router)

	httpServer := &http.Server{Addr: listenAddr, Handler: router}

	return &Engine{
		cfg: cfg, log: log, box: b,
		store: store, embedder: embedder,
		wl: wl, identity: ident, mem: memAct,
		salienceAct: salAct, attentionAct: attAct, assemblyAct: asmAct, volitionAct: volAct,
		sup: sup, metrics: mc, inbox: inb,
		runner: runner, sleep: sleep,
		injectIntake: intake, injectAudit: audit, httpServer: httpServer,
	}, nil
}

// Start launches the cycle runner, dream scheduler, and HTTP surface as
// background goroutines. It returns once everything is running.
func (e *Engine) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	go e.runner.Start(runCtx)

	// 0 disables the thought-count trigger; cfg.DreamPeriod alone paces
	// dream cycles (§4.7's "every Δt OR every N thoughts" reduces to Δt
	// only when no N-thoughts trigger is configured).
	if err := e.sleep.Start(runCtx, 0); err != nil {
		cancel()
		return fmt.Errorf("daneel: failed to start dream scheduler: %w", err)
	}

	go func() {
		if err := e.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.log.Error("injection http server stopped", "error", err)
		}
	}()

	return nil
}

// Stop performs a graceful shutdown: it cancels the run context, stops the
// dream scheduler, shuts down the HTTP server, and flushes identity through
// the cycle runner's own Stop. It does not wait for an in-flight cycle to
// finish, and it writes no working-log checkpoint.
func (e *Engine) Stop(ctx context.Context) error {
	if e.cancel != nil {
		e.cancel()
	}
	e.sleep.Stop()

	shutdownCtx, done := context.WithTimeout(ctx, 10*time.Second)
	defer done()
	if err := e.httpServer.Shutdown(shutdownCtx); err != nil {
		e.log.Warn("daneel: http server shutdown error", "error", err)
	}

	return e.runner.Stop(ctx)
}

// Snapshot returns the current MetricsCore readout plus identity counters
// and the dream scheduler's current phase. It is not served over HTTP:
// GET /metrics (and so the `status` CLI command) returns the MetricsCore
// readout alone.
func (e *Engine) Snapshot() map[string]any {
	out := e.metrics.Snapshot()
	rec := e.identity.Snapshot()
	out["identity_uuid"] = rec.UUID
	out["lifetime_thought_count"] = rec.LifetimeThoughtCount
	out["lifetime_dream_count"] = rec.LifetimeDreamCount
	out["restart_count"] = rec.RestartCount
	out["dream_phase"] = e.sleep.CurrentPhase().String()
	return out
}
