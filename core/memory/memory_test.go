package memory

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/royalbit/daneel/core/identity"
	"github.com/royalbit/daneel/core/salience"
	"github.com/royalbit/daneel/core/thought"
	"github.com/royalbit/daneel/core/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory VectorStore test double.
type fakeStore struct {
	mu   sync.Mutex
	data map[Collection]map[string]Record

	failUpsertTimes int // fail the first N Upsert calls, then succeed
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[Collection]map[string]Record)}
}

func (f *fakeStore) Upsert(ctx context.Context, collection Collection, rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpsertTimes > 0 {
		f.failUpsertTimes--
		return errors.New("transient store error")
	}
	if f.data[collection] == nil {
		f.data[collection] = make(map[string]Record)
	}
	f.data[collection][rec.ID] = rec
	return nil
}

func (f *fakeStore) KNN(ctx context.Context, collection Collection, query vector.Vector, k int, filter map[string]any) ([]Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Record
	for _, rec := range f.data[collection] {
		out = append(out, rec)
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) Get(ctx context.Context, collection Collection, id string) (*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.data[collection][id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (f *fakeStore) Delete(ctx context.Context, collection Collection, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data[collection], id)
	return nil
}

func highSalienceThought() *thought.Thought {
	t := thought.New(thought.StageAssembly, thought.Internal())
	t.Content = vector.Vector{1, 0, 0}
	t.Salience = salience.Score{Importance: 1, Relevance: 1, Novelty: 1, ValenceSigned: 1, Arousal: 1, ConnectionRelevance: 1}
	t.Composite = t.Salience.Composite()
	return t
}

func lowSalienceThought() *thought.Thought {
	t := thought.New(thought.StageAssembly, thought.Internal())
	t.Content = vector.Vector{0, 1, 0}
	t.Composite = 0.0
	return t
}

func TestConsolidateRoutesByComposite(t *testing.T) {
	store := newFakeStore()
	actor := NewMemoryActor(store, vector.NullEmbedder{Dim: 3}, salience.DefaultThresholds(), nil, nil)

	hi := highSalienceThought()
	require.NoError(t, actor.Consolidate(context.Background(), hi))
	_, ok := store.data[CollectionLongTerm][hi.ID]
	assert.True(t, ok, "high-composite thought should land in long-term")

	lo := lowSalienceThought()
	require.NoError(t, actor.Consolidate(context.Background(), lo))
	_, ok = store.data[CollectionUnconscious][lo.ID]
	assert.True(t, ok, "low-composite thought should land in unconscious")
}

func TestConsolidateRetriesThenSucceeds(t *testing.T) {
	store := newFakeStore()
	store.failUpsertTimes = 2
	actor := NewMemoryActor(store, vector.NullEmbedder{Dim: 3}, salience.DefaultThresholds(), nil, nil)

	tt := highSalienceThought()
	require.NoError(t, actor.Consolidate(context.Background(), tt))
	_, ok := store.data[CollectionLongTerm][tt.ID]
	assert.True(t, ok)
}

func TestConsolidateDeadLettersAfterExhaustion(t *testing.T) {
	store := newFakeStore()
	store.failUpsertTimes = 100
	dlqPath := filepath.Join(t.TempDir(), "deadletter.jsonl")
	dlq := NewDeadLetterQueue(dlqPath)
	actor := NewMemoryActor(store, vector.NullEmbedder{Dim: 3}, salience.DefaultThresholds(), dlq, nil)

	tt := highSalienceThought()
	err := actor.Consolidate(context.Background(), tt)
	require.Error(t, err)
}

func TestAssociateStrengthensThenDecays(t *testing.T) {
	store := newFakeStore()
	actor := NewMemoryActor(store, vector.NullEmbedder{Dim: 3}, salience.DefaultThresholds(), nil, nil)

	require.NoError(t, actor.Associate(context.Background(), "a", "b", AssociationSemantic))
	first := actor.edges[edgeKey("a", "b", AssociationSemantic)].Weight
	assert.Greater(t, first, 0.0)

	require.NoError(t, actor.Associate(context.Background(), "a", "b", AssociationSemantic))
	second := actor.edges[edgeKey("a", "b", AssociationSemantic)].Weight
	assert.Greater(t, second, first, "repeated coactivation should strengthen the edge")

	require.NoError(t, actor.Decay(context.Background()))
	decayed := actor.edges[edgeKey("a", "b", AssociationSemantic)].Weight
	assert.Less(t, decayed, second)
}

func TestDecayPrunesWeakEdges(t *testing.T) {
	store := newFakeStore()
	actor := NewMemoryActor(store, vector.NullEmbedder{Dim: 3}, salience.DefaultThresholds(), nil, nil)

	actor.edges[edgeKey("x", "y", AssociationTemporal)] = Edge{From: "x", To: "y", Type: AssociationTemporal, Weight: 0.01}
	require.NoError(t, actor.Decay(context.Background()))

	_, stillThere := actor.edges[edgeKey("x", "y", AssociationTemporal)]
	assert.False(t, stillThere, "edge below floor should be pruned")
}

func TestIdentityAdapterRoundTrip(t *testing.T) {
	store := newFakeStore()
	adapter := NewIdentityAdapter(store)

	got, err := adapter.LoadIdentity(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got, "no record yet")

	rec := &identity.Record{UUID: "abc-123", LifetimeThoughtCount: 42, RestartCount: 3}
	require.NoError(t, adapter.SaveIdentity(context.Background(), rec))

	loaded, err := adapter.LoadIdentity(context.Background())
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, rec.UUID, loaded.UUID)
	assert.Equal(t, rec.LifetimeThoughtCount, loaded.LifetimeThoughtCount)
	assert.Equal(t, rec.RestartCount, loaded.RestartCount)
}

func TestRetrieveContext(t *testing.T) {
	store := newFakeStore()
	actor := NewMemoryActor(store, vector.NullEmbedder{Dim: 3}, salience.DefaultThresholds(), nil, nil)

	hi := highSalienceThought()
	require.NoError(t, actor.Consolidate(context.Background(), hi))

	recs, err := actor.RetrieveContext(context.Background(), vector.Vector{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
