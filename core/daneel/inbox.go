package daneel

import (
	"context"
	"sync"

	"github.com/royalbit/daneel/core/salienceact"
	"github.com/royalbit/daneel/core/thought"
)

// inbox is the Stage 1/2 candidate queue: a thread-safe drain buffer fed by
// InjectionIntake's onAbsorbed hook and drained once per cycle by
// CycleRunner's TriggerSource (§4.1, §4.8). It intentionally holds no
// internal-generation logic: DANEEL has no natural-language reasoner in
// scope (§1 Non-goals). SleepScheduler's dream replays do not pass through
// the inbox; they are appended directly to the working log's Autoflow
// stream.
type inbox struct {
	mu    sync.Mutex
	queue []salienceact.Candidate
}

func newInbox() *inbox {
	return &inbox{}
}

// push enqueues a candidate thought with its kinship-matching predicate.
func (b *inbox) push(t *thought.Thought, predicate string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, salienceact.Candidate{Thought: t, Predicate: predicate})
}

// Candidates implements cycle.TriggerSource: it drains and returns every
// candidate queued since the last call.
func (b *inbox) Candidates(ctx context.Context) ([]salienceact.Candidate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.queue
	b.queue = nil
	return out, nil
}
