package cycle

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/royalbit/daneel/core/assembly"
	"github.com/royalbit/daneel/core/attention"
	daneelbox "github.com/royalbit/daneel/core/box"
	"github.com/royalbit/daneel/core/identity"
	"github.com/royalbit/daneel/core/memory"
	"github.com/royalbit/daneel/core/salience"
	"github.com/royalbit/daneel/core/salienceact"
	"github.com/royalbit/daneel/core/thought"
	"github.com/royalbit/daneel/core/vector"
	"github.com/royalbit/daneel/core/volition"
	"github.com/royalbit/daneel/core/workinglog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTrigger yields a fixed candidate set once, then empty.
type fakeTrigger struct {
	mu         sync.Mutex
	candidates []salienceact.Candidate
	calls      int
}

func (f *fakeTrigger) Candidates(ctx context.Context) ([]salienceact.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls > 1 {
		return nil, nil
	}
	return f.candidates, nil
}

// fakeAnchor records what it was asked to persist/archive.
type fakeAnchor struct {
	mu           sync.Mutex
	consolidated []*thought.Thought
	archived     []memory.ArchiveReason
}

func (f *fakeAnchor) Consolidate(ctx context.Context, t *thought.Thought) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.consolidated = append(f.consolidated, t)
	return nil
}

func (f *fakeAnchor) Archive(ctx context.Context, t *thought.Thought, reason memory.ArchiveReason) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archived = append(f.archived, reason)
	return nil
}

// fakeIdentityStore satisfies identity.Store without a VectorStore.
type fakeIdentityStore struct {
	mu  sync.Mutex
	rec *identity.Record
}

func (s *fakeIdentityStore) LoadIdentity(ctx context.Context) (*identity.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec, nil
}

func (s *fakeIdentityStore) SaveIdentity(ctx context.Context, r *identity.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.rec = &cp
	return nil
}

func candidateThought(composite float64) salienceact.Candidate {
	t := thought.New(thought.StageTrigger, thought.Internal())
	t.Content = vector.Vector{1, 0, 0}
	t.Salience = salience.Score{Importance: composite, Relevance: composite, Novelty: composite, ValenceSigned: composite, Arousal: composite, ConnectionRelevance: composite}
	return salienceact.Candidate{Thought: t, Predicate: "observe"}
}

func newTestRunner(t *testing.T, anchor *fakeAnchor, trigger *fakeTrigger, rules []volition.Rule) (*Runner, *workinglog.WorkingLog) {
	t.Helper()
	sal := salienceact.New(salience.KinshipVocabulary{}, salience.DefaultThresholds(), nil)
	att := attention.New(nil)
	asm := assembly.New(nil)
	b, err := daneelbox.LoadDefault()
	require.NoError(t, err)
	vol := volition.New(b, rules, nil, nil)
	wl := workinglog.New(workinglog.DefaultStreams(), 1000)
	id := identity.New(&fakeIdentityStore{}, 1000, time.Hour)
	m := &fakeMetrics{}

	r := New(trigger, sal, att, asm, vol, anchor, wl, id, m, Config{Period: 50 * time.Millisecond}, nil, nil, nil, nil, nil)
	return r, wl
}

type fakeMetrics struct {
	mu         sync.Mutex
	composites []float64
}

func (m *fakeMetrics) Observe(composite float64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.composites = append(m.composites, composite)
}

func (m *fakeMetrics) ObserveStreamWin(stream string) {}

func TestRunCycleAnchorsAllowedThought(t *testing.T) {
	anchor := &fakeAnchor{}
	trigger := &fakeTrigger{candidates: []salienceact.Candidate{candidateThought(0.9)}}
	r, _ := newTestRunner(t, anchor, trigger, volition.DefaultRules(nil))

	require.NoError(t, r.RunCycle(context.Background()))
	assert.Len(t, anchor.consolidated, 1)
	assert.Empty(t, anchor.archived)
}

func TestRunCycleNoCandidatesIsNoOp(t *testing.T) {
	anchor := &fakeAnchor{}
	trigger := &fakeTrigger{candidates: nil}
	r, _ := newTestRunner(t, anchor, trigger, volition.DefaultRules(nil))

	require.NoError(t, r.RunCycle(context.Background()))
	assert.Empty(t, anchor.consolidated)
}

func TestRunCycleVetoArchivesNotConsolidates(t *testing.T) {
	anchor := &fakeAnchor{}
	alwaysVeto := func(t *thought.Thought, laws []daneelbox.Law) volition.Reason {
		return volition.ReasonLawViolation
	}
	trigger := &fakeTrigger{candidates: []salienceact.Candidate{candidateThought(0.9)}}
	r, _ := newTestRunner(t, anchor, trigger, []volition.Rule{alwaysVeto})

	require.NoError(t, r.RunCycle(context.Background()))
	assert.Empty(t, anchor.consolidated)
	require.Len(t, anchor.archived, 1)
	assert.Equal(t, memory.ArchiveReasonVetoed, anchor.archived[0])
}

func TestRunCycleMarksWorkingLogDisposition(t *testing.T) {
	anchor := &fakeAnchor{}
	trigger := &fakeTrigger{candidates: []salienceact.Candidate{candidateThought(0.9)}}
	r, wl := newTestRunner(t, anchor, trigger, volition.DefaultRules(nil))

	require.NoError(t, r.RunCycle(context.Background()))
	entries := wl.Entries(workinglog.StreamAutoflow)
	require.Len(t, entries, 1)
	assert.Equal(t, thought.DispositionLongTerm, entries[0].Disposition)
}

func TestThreeConsecutiveDegradedCyclesEscalate(t *testing.T) {
	anchor := &fakeAnchor{}
	failingTrigger := &failingTriggerAlways{}
	escalated := 0
	sal := salienceact.New(salience.KinshipVocabulary{}, salience.DefaultThresholds(), nil)
	att := attention.New(nil)
	asm := assembly.New(nil)
	b, err := daneelbox.LoadDefault()
	require.NoError(t, err)
	vol := volition.New(b, volition.DefaultRules(nil), nil, nil)
	wl := workinglog.New(workinglog.DefaultStreams(), 1000)
	id := identity.New(&fakeIdentityStore{}, 1000, time.Hour)
	m := &fakeMetrics{}

	r := New(failingTrigger, sal, att, asm, vol, anchor, wl, id, m, Config{Period: 50 * time.Millisecond}, nil, nil, nil, func() { escalated++ }, nil)

	for i := 0; i < 3; i++ {
		require.Error(t, r.RunCycle(context.Background()))
	}
	assert.Equal(t, 1, escalated)
}

type failingTriggerAlways struct{}

func (failingTriggerAlways) Candidates(ctx context.Context) ([]salienceact.Candidate, error) {
	return nil, fmt.Errorf("trigger unavailable")
}
