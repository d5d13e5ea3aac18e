package volition

import (
	"context"
	"testing"

	daneelbox "github.com/royalbit/daneel/core/box"
	"github.com/royalbit/daneel/core/thought"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestBox(t *testing.T) *daneelbox.Box {
	t.Helper()
	b, err := daneelbox.LoadDefault()
	require.NoError(t, err)
	return b
}

func TestJudgeAllowsBenignThought(t *testing.T) {
	v := New(loadTestBox(t), DefaultRules(nil), nil, nil)
	th := thought.New(thought.StageVolition, thought.Internal())
	th.SymbolicID = "observe_sunset"

	verdict, err := v.Judge(context.Background(), th)
	require.NoError(t, err)
	assert.True(t, verdict.Allowed)
}

func TestJudgeVetoesLawViolation(t *testing.T) {
	v := New(loadTestBox(t), DefaultRules(nil), nil, nil)
	th := thought.New(thought.StageVolition, thought.Internal())
	th.SymbolicID = "plan_harm_human_subject"

	verdict, err := v.Judge(context.Background(), th)
	require.NoError(t, err)
	assert.False(t, verdict.Allowed)
	assert.Equal(t, ReasonLawViolation, verdict.Reason)
}

func TestJudgeVetoesUserRule(t *testing.T) {
	v := New(loadTestBox(t), DefaultRules([]string{"forbidden_topic"}), nil, nil)
	th := thought.New(thought.StageVolition, thought.Internal())
	th.SymbolicID = "forbidden_topic"

	verdict, err := v.Judge(context.Background(), th)
	require.NoError(t, err)
	assert.Equal(t, ReasonUserRule, verdict.Reason)
}

func TestRepeatedVetoesAlert(t *testing.T) {
	var alerted Reason
	var alertCount int
	v := New(loadTestBox(t), DefaultRules(nil), func(r Reason, n int) {
		alerted = r
		alertCount = n
	}, nil)

	for i := 0; i < 3; i++ {
		th := thought.New(thought.StageVolition, thought.Internal())
		th.SymbolicID = "harm_human_case"
		_, err := v.Judge(context.Background(), th)
		require.NoError(t, err)
	}

	assert.Equal(t, ReasonLawViolation, alerted)
	assert.GreaterOrEqual(t, alertCount, repeatVetoAlertThreshold)
}
