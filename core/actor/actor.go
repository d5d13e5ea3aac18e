// Package actor adapts DANEEL's stage and support components onto
// github.com/tochemey/goakt/v2, the actor substrate the teacher already
// depends on (core/echobeats/goakt_cognitive_system.go). Each DANEEL
// component implements Handler instead of goakt's raw actors.Actor; an
// internal adapter bridges the two so component code never imports goakt
// directly.
package actor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tochemey/goakt/v2/actors"
	"github.com/tochemey/goakt/v2/goakt"
	gklog "github.com/tochemey/goakt/v2/log"
)

// Handler is the message-handling contract every DANEEL actor implements.
// Handle panics are recovered by the adapter ("let it crash", §7.5), which
// reports each one to the Supervisor via RecordRestart.
type Handler interface {
	Handle(ctx context.Context, msg any) (any, error)
}

// System wraps a goakt.ActorSystem, the engine's single actor substrate
// (§2, §7.5).
type System struct {
	name   string
	inner  goakt.ActorSystem
	log    *slog.Logger
	sup    *Supervisor
	maxInitRetries int
}

// NewSystem constructs an unstarted actor system named name. sup receives
// restart notifications for every actor spawned through this system.
func NewSystem(name string, sup *Supervisor, log *slog.Logger, maxInitRetries int) *System {
	if log == nil {
		log = slog.Default()
	}
	if maxInitRetries <= 0 {
		maxInitRetries = 3
	}
	return &System{name: name, sup: sup, log: log, maxInitRetries: maxInitRetries}
}

// Start creates and starts the underlying goakt.ActorSystem.
func (s *System) Start(ctx context.Context) error {
	inner, err := goakt.NewActorSystem(
		s.name,
		goakt.WithLogger(gklog.DefaultLogger),
		goakt.WithActorInitMaxRetries(s.maxInitRetries),
	)
	if err != nil {
		return fmt.Errorf("failed to create actor system: %w", err)
	}
	if err := inner.Start(ctx); err != nil {
		return fmt.Errorf("failed to start actor system: %w", err)
	}
	s.inner = inner
	return nil
}

// Stop gracefully shuts the actor system down.
func (s *System) Stop(ctx context.Context) error {
	if s.inner == nil {
		return nil
	}
	return s.inner.Stop(ctx)
}

// Spawn starts a named actor backed by h. Every restart goakt performs on
// this actor (after a panic in Handle) is reported to the Supervisor under
// name.
func (s *System) Spawn(ctx context.Context, name string, h Handler) (actors.PID, error) {
	pid, err := s.inner.Spawn(ctx, name, &adapter{name: name, handler: h, sup: s.sup, log: s.log})
	if err != nil {
		return nil, fmt.Errorf("failed to spawn actor %s: %w", name, err)
	}
	return pid, nil
}

// Tell sends msg to pid without waiting for a reply, matching the teacher's
// fire-and-forget orchestration messages (StartCycleMsg et al.).
func (s *System) Tell(ctx context.Context, pid actors.PID, msg any) error {
	if err := s.inner.Tell(ctx, pid, msg); err != nil {
		return fmt.Errorf("failed to tell actor: %w", err)
	}
	return nil
}

// adapter bridges goakt's actors.Actor interface onto Handler, recovering
// panics from Handle and reporting them to the Supervisor before letting
// goakt's own supervision restart the actor.
type adapter struct {
	name    string
	handler Handler
	sup     *Supervisor
	log     *slog.Logger
}

func (a *adapter) PreStart(ctx context.Context) error { return nil }

func (a *adapter) PostStop(ctx context.Context) error { return nil }

func (a *adapter) Receive(ctx actors.ReceiveContext) {
	defer func() {
		if r := recover(); r != nil {
			a.log.Error("actor panicked, goakt will restart it", "actor", a.name, "panic", r)
			if a.sup != nil {
				a.sup.RecordRestart(a.name)
			}
			ctx.Unhandled()
		}
	}()

	reply, err := a.handler.Handle(context.Background(), ctx.Message())
	if err != nil {
		a.log.Error("actor handler returned error", "actor", a.name, "error", err)
		ctx.Err(err)
		return
	}
	if reply != nil {
		ctx.Response(reply)
	}
}
