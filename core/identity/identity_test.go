package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	rec *Record
}

func (m *memStore) LoadIdentity(ctx context.Context) (*Record, error) {
	return m.rec, nil
}

func (m *memStore) SaveIdentity(ctx context.Context, r *Record) error {
	cp := *r
	m.rec = &cp
	return nil
}

func TestColdBootFirstCycle(t *testing.T) {
	store := &memStore{}
	id, err := Load(context.Background(), store, 100, 30*time.Second)
	require.NoError(t, err)

	snap := id.Snapshot()
	assert.Equal(t, uint64(0), snap.LifetimeThoughtCount)
	assert.Equal(t, uint64(1), snap.RestartCount)
	assert.NotEmpty(t, snap.UUID)
}

func TestRestartMonotonicity(t *testing.T) {
	store := &memStore{}
	id, err := Load(context.Background(), store, 100, 30*time.Second)
	require.NoError(t, err)

	for i := 0; i < 250; i++ {
		require.NoError(t, id.RecordThought(context.Background()))
	}
	require.NoError(t, id.Flush(context.Background()))

	before := id.Snapshot()

	// Simulate a restart: reload from the same store.
	reloaded, err := Load(context.Background(), store, 100, 30*time.Second)
	require.NoError(t, err)
	after := reloaded.Snapshot()

	assert.GreaterOrEqual(t, after.LifetimeThoughtCount, before.LifetimeThoughtCount)
	assert.Equal(t, before.RestartCount+1, after.RestartCount)
	assert.Equal(t, before.UUID, after.UUID)
}

func TestFlushOnEveryHundredThoughts(t *testing.T) {
	store := &memStore{}
	id, err := Load(context.Background(), store, 100, time.Hour)
	require.NoError(t, err)

	for i := 0; i < 99; i++ {
		require.NoError(t, id.RecordThought(context.Background()))
	}
	// Load persisted the fresh record once at boot; no thought flush yet.
	require.NotNil(t, store.rec)
	assert.Equal(t, uint64(0), store.rec.LifetimeThoughtCount, "should not have flushed yet")

	require.NoError(t, id.RecordThought(context.Background()))
	require.NotNil(t, store.rec, "should flush on the 100th thought")
	assert.Equal(t, uint64(100), store.rec.LifetimeThoughtCount)
}

func TestRecordDream(t *testing.T) {
	store := &memStore{}
	id, err := Load(context.Background(), store, 100, time.Hour)
	require.NoError(t, err)

	require.NoError(t, id.RecordDream(context.Background(), 3))
	snap := id.Snapshot()
	assert.Equal(t, uint64(1), snap.LifetimeDreamCount)
	assert.Equal(t, uint64(3), snap.LastDreamStrengthened)
}
