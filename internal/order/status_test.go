package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHappyPath(t *testing.T) {
	path := []struct {
		event Event
		to    Status
	}{
		{EventConfirm, StatusConfirmed},
		{EventStartPreparing, StatusPreparing},
		{EventMarkReady, StatusReady},
		{EventDispatch, StatusInTransit},
		{EventDeliver, StatusDelivered},
	}
	current := StatusPending
	for _, step := range path {
		tr, err := Fire(current, step.event)
		require.NoError(t, err, "%s on %s", step.event, current)
		assert.Equal(t, step.to, tr.To)
		current = tr.To
	}
	assert.True(t, current.Terminal())
}

func TestSideBranchesFromEveryActiveState(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusInTransit} {
		cancel, err := Resolve(s, StatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, []Effect{EffectRestoreStock}, cancel.Effects)

		problem, err := Resolve(s, StatusProblem)
		require.NoError(t, err)
		assert.Empty(t, problem.Effects)
	}
}

func TestOnlyConfirmDeductsStock(t *testing.T) {
	for key, tr := range transitions {
		if tr.From == StatusPending && tr.To == StatusConfirmed {
			assert.Equal(t, []Effect{EffectDeductStock}, tr.Effects)
			continue
		}
		assert.NotContains(t, tr.Effects, EffectDeductStock, "%v", key)
	}
}

func TestIllegalTransitions(t *testing.T) {
	cases := []struct {
		from, to Status
	}{
		{StatusProblem, StatusDelivered},
		{StatusProblem, StatusConfirmed},
		{StatusConfirmed, StatusConfirmed},
		{StatusCancelled, StatusCancelled},
		{StatusDelivered, StatusCancelled},
		{StatusPending, StatusReady},
		{StatusReady, StatusPreparing},
	}
	for _, tc := range cases {
		_, err := Resolve(tc.from, tc.to)
		assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", tc.from, tc.to)
	}

	_, err := Fire(StatusDelivered, EventCancel)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestProblemOnlyCancels(t *testing.T) {
	assert.Equal(t, []Status{StatusCancelled}, Next(StatusProblem))
	assert.Empty(t, Next(StatusDelivered))
	assert.Empty(t, Next(StatusCancelled))
	assert.Equal(t, []Status{StatusConfirmed, StatusCancelled, StatusProblem}, Next(StatusPending))
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" In_Transit ")
	require.NoError(t, err)
	assert.Equal(t, StatusInTransit, s)

	_, err = ParseStatus("shipped")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
