package daneel

import (
	"context"
	"testing"

	"github.com/royalbit/daneel/core/thought"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboxDrainsOnce(t *testing.T) {
	b := newInbox()
	b.push(thought.New(thought.StageAutoflow, thought.Injected("key1", "test")), "test")
	b.push(thought.New(thought.StageAutoflow, thought.DreamReplay("mem-1")), "")

	first, err := b.Candidates(context.Background())
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := b.Candidates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second)
}

func TestInboxAccumulatesAcrossPushes(t *testing.T) {
	b := newInbox()
	for i := 0; i < 5; i++ {
		b.push(thought.New(thought.StageAutoflow, thought.Internal()), "")
	}
	got, err := b.Candidates(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 5)
}
