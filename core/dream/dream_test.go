package dream

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/royalbit/daneel/core/memory"
	"github.com/royalbit/daneel/core/salience"
	"github.com/royalbit/daneel/core/vector"
	"github.com/royalbit/daneel/core/workinglog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is a minimal in-memory VectorStore test double, grounded on
// core/memory's own fakeStore test pattern.
type fakeStore struct {
	mu   sync.Mutex
	data map[memory.Collection]map[string]memory.Record
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[memory.Collection]map[string]memory.Record)}
}

func (f *fakeStore) Upsert(ctx context.Context, collection memory.Collection, rec memory.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data[collection] == nil {
		f.data[collection] = make(map[string]memory.Record)
	}
	f.data[collection][rec.ID] = rec
	return nil
}

func (f *fakeStore) KNN(ctx context.Context, collection memory.Collection, query vector.Vector, k int, filter map[string]any) ([]memory.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []memory.Record
	for _, rec := range f.data[collection] {
		out = append(out, rec)
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) Get(ctx context.Context, collection memory.Collection, id string) (*memory.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.data[collection][id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (f *fakeStore) Delete(ctx context.Context, collection memory.Collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data[collection], id)
	return nil
}

func seedMemories(t *testing.T, store *fakeStore, coll memory.Collection, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-%d", coll, i)
		require.NoError(t, store.Upsert(context.Background(), coll, memory.Record{
			ID:     id,
			Vector: vector.Vector{float64(i), 0, 0},
			Payload: map[string]any{
				"source_kind": "internal",
			},
		}))
	}
}

func newTestScheduler(t *testing.T, store *fakeStore) *Scheduler {
	t.Helper()
	actor := memory.NewMemoryActor(store, vector.NullEmbedder{Dim: 3}, salience.DefaultThresholds(), nil, nil)
	wl := workinglog.New(workinglog.DefaultStreams(), 1000)
	return New(store, actor, wl, Config{Period: time.Hour, SampleSize: 8}, nil, nil)
}

func TestRunCycleStrengthensAdjacentPairs(t *testing.T) {
	store := newFakeStore()
	seedMemories(t, store, memory.CollectionLongTerm, 4)
	s := newTestScheduler(t, store)

	strengthened, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	assert.Greater(t, strengthened, 0)
}

func TestRunCycleExcludesPriorReplays(t *testing.T) {
	store := newFakeStore()
	require.NoError(t, store.Upsert(context.Background(), memory.CollectionUnconscious, memory.Record{
		ID:     "replay-1",
		Vector: vector.Vector{1, 0, 0},
		Payload: map[string]any{
			"source_kind": "dream_replay",
		},
	}))
	s := newTestScheduler(t, store)

	sample, err := s.sampleMemories(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sample, "dream replay memories must not be resampled (replay-depth-1 cap)")
}

func TestRunCycleAppendsReplayThoughts(t *testing.T) {
	store := newFakeStore()
	seedMemories(t, store, memory.CollectionLongTerm, 20)
	s := newTestScheduler(t, store)
	s.replaySubset(context.Background(), mustSample(t, s))

	assert.NotZero(t, s.wl.Len(workinglog.StreamAutoflow))
}

func mustSample(t *testing.T, s *Scheduler) []memory.Record {
	t.Helper()
	sample, err := s.sampleMemories(context.Background())
	require.NoError(t, err)
	return sample
}

func TestRunCycleIsSerial(t *testing.T) {
	store := newFakeStore()
	seedMemories(t, store, memory.CollectionLongTerm, 4)
	s := newTestScheduler(t, store)

	require.NoError(t, s.Start(context.Background(), 0))
	assert.Error(t, s.Start(context.Background(), 0), "a second Start while running must be refused")
	s.Stop()
}

func TestPhaseStringOrder(t *testing.T) {
	assert.Equal(t, "REM", PhaseREM.String())
	assert.Equal(t, "DeepSleep", PhaseDeepSleep.String())
	assert.Equal(t, "Consolidation", PhaseConsolidation.String())
	assert.Equal(t, "Integration", PhaseIntegration.String())
}
