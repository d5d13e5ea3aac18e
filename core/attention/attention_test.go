package attention

import (
	"context"
	"testing"
	"time"

	"github.com/royalbit/daneel/core/salience"
	"github.com/royalbit/daneel/core/thought"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkThought(composite, connection, arousal float64, createdAt time.Time) *thought.Thought {
	t := thought.New(thought.StageAttention, thought.Internal())
	t.Composite = composite
	t.Salience = salience.Score{ConnectionRelevance: connection, Arousal: arousal}
	t.CreatedAt = createdAt
	return t
}

func TestSelectPicksHighestComposite(t *testing.T) {
	a := New(nil)
	now := time.Now()
	low := mkThought(0.2, 0, 0, now)
	high := mkThought(0.9, 0, 0, now)

	winner, err := a.Select(context.Background(), []*thought.Thought{low, high}, nil)
	require.NoError(t, err)
	assert.Equal(t, high.ID, winner.ID)
}

func TestSelectBreaksTiesByConnectionRelevance(t *testing.T) {
	a := New(nil)
	now := time.Now()
	t1 := mkThought(0.5, 0.2, 0.5, now)
	t2 := mkThought(0.5, 0.8, 0.5, now)

	winner, err := a.Select(context.Background(), []*thought.Thought{t1, t2}, nil)
	require.NoError(t, err)
	assert.Equal(t, t2.ID, winner.ID)
}

func TestSelectBreaksTiesByRecency(t *testing.T) {
	a := New(nil)
	older := mkThought(0.5, 0.5, 0.5, time.Now().Add(-time.Minute))
	newer := mkThought(0.5, 0.5, 0.5, time.Now())

	winner, err := a.Select(context.Background(), []*thought.Thought{older, newer}, nil)
	require.NoError(t, err)
	assert.Equal(t, newer.ID, winner.ID, "equal on all else, newer created_at should win")
}

func TestTouchBoostIsBounded(t *testing.T) {
	a := New(nil)
	for i := 0; i < 10; i++ {
		a.Touch("stream:autoflow", 1.0)
	}
	assert.LessOrEqual(t, a.boostFor("stream:autoflow"), maxBoost)
}

func TestWinRateTracksWindows(t *testing.T) {
	a := New(nil)
	now := time.Now()
	windowOf := func(t *thought.Thought) string { return t.SymbolicID }

	winnerA := mkThought(0.9, 0, 0, now)
	winnerA.SymbolicID = "streamA"
	loser := mkThought(0.1, 0, 0, now)
	loser.SymbolicID = "streamB"

	_, err := a.Select(context.Background(), []*thought.Thought{winnerA, loser}, windowOf)
	require.NoError(t, err)
	assert.Equal(t, 1.0, a.WinRate("streamA"))
	assert.Equal(t, 0.0, a.WinRate("streamB"))
}
