package api

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStepOrder(t *testing.T) {
	want := []Step{StepEmail, StepVerify, StepConnect, StepSuccess, StepPIN, StepTraining}
	require.Equal(t, want, Steps())

	next, ok := StepEmail.Next()
	require.True(t, ok)
	require.Equal(t, StepVerify, next)

	_, ok = StepTraining.Next()
	require.False(t, ok)

	prev, ok := StepTraining.Prev()
	require.True(t, ok)
	require.Equal(t, StepPIN, prev)

	_, ok = StepEmail.Prev()
	require.False(t, ok)

	require.Equal(t, -1, Step("BOGUS").Index())
}

func TestFlowStatusTerminal(t *testing.T) {
	require.False(t, FlowIdle.Terminal())
	require.False(t, FlowRunning.Terminal())
	require.True(t, FlowCompleted.Terminal())
	require.True(t, FlowCancelled.Terminal())
	require.True(t, FlowFailed.Terminal())
}
