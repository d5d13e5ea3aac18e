package assembly

import (
	"context"
	"testing"

	"github.com/royalbit/daneel/core/memory"
	"github.com/royalbit/daneel/core/thought"
	"github.com/royalbit/daneel/core/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleIsDeterministic(t *testing.T) {
	a := New(nil)
	winner := thought.New(thought.StageAttention, thought.Internal())
	winner.Content = vector.Vector{1, 0, 0}
	winner.Composite = 0.8

	retrieved := []memory.Record{
		{ID: "m1", Vector: vector.Vector{0, 1, 0}},
		{ID: "m2", Vector: vector.Vector{0, 0, 1}},
	}

	first, err := a.Assemble(context.Background(), winner, retrieved)
	require.NoError(t, err)
	second, err := a.Assemble(context.Background(), winner, retrieved)
	require.NoError(t, err)

	assert.True(t, thought.Equivalent(first, second), "same winner+memories must produce equivalent content")
	assert.Equal(t, []string{winner.ID, "m1", "m2"}, first.Parents)
}

func TestAssembleSkipsDimensionMismatch(t *testing.T) {
	a := New(nil)
	winner := thought.New(thought.StageAttention, thought.Internal())
	winner.Content = vector.Vector{1, 0, 0}

	retrieved := []memory.Record{{ID: "bad", Vector: vector.Vector{1, 0}}}

	fused, err := a.Assemble(context.Background(), winner, retrieved)
	require.NoError(t, err)
	assert.Equal(t, []string{winner.ID, "bad"}, fused.Parents, "mismatched vectors still appear as parents")
}

func TestAssembleNilWinnerErrors(t *testing.T) {
	a := New(nil)
	_, err := a.Assemble(context.Background(), nil, nil)
	assert.Error(t, err)
}
