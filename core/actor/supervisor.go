package actor

import (
	"log/slog"
	"sync"
	"time"
)

// Supervisor implements the OneForOne restart policy of §7.5: goakt
// restarts a crashed actor on its own, but a burst of restarts for the same
// actor within a window signals a systemic problem and escalates to a
// full-stack restart instead of continuing to respawn in place.
type Supervisor struct {
	mu     sync.Mutex
	log    *slog.Logger
	window time.Duration
	max    int

	restarts map[string][]time.Time

	// onEscalate is invoked at most once per escalation with the actor name
	// that triggered it. The caller (the engine) is responsible for
	// performing the full-stack restart and bumping Identity.restart_count.
	onEscalate func(actorName string)
}

// NewSupervisor constructs a Supervisor that escalates when more than max
// restarts of the same actor occur within window (§7.5 default: >3 in 10s).
func NewSupervisor(max int, window time.Duration, onEscalate func(actorName string), log *slog.Logger) *Supervisor {
	if log == nil {
		log = slog.Default()
	}
	return &Supervisor{
		log:        log,
		window:     window,
		max:        max,
		restarts:   make(map[string][]time.Time),
		onEscalate: onEscalate,
	}
}

// RecordRestart logs a restart of actorName and escalates if the burst
// threshold has been crossed within the window.
func (s *Supervisor) RecordRestart(actorName string) {
	now := time.Now()

	s.mu.Lock()
	history := append(s.restarts[actorName], now)
	cutoff := now.Add(-s.window)
	trimmed := history[:0]
	for _, t := range history {
		if t.After(cutoff) {
			trimmed = append(trimmed, t)
		}
	}
	s.restarts[actorName] = trimmed
	burst := len(trimmed)
	s.mu.Unlock()

	s.log.Warn("actor restarted", "actor", actorName, "restarts_in_window", burst)

	if burst > s.max {
		s.mu.Lock()
		s.restarts[actorName] = nil
		s.mu.Unlock()

		s.log.Error("restart burst exceeded threshold, escalating to full-stack restart", "actor", actorName, "burst", burst, "max", s.max)
		if s.onEscalate != nil {
			s.onEscalate(actorName)
		}
	}
}

// RestartsInWindow reports how many restarts of actorName are currently
// counted within the active window, for tests and status reporting.
func (s *Supervisor) RestartsInWindow(actorName string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.restarts[actorName])
}
