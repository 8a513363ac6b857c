package eventmodels

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEscrowStatusTransitions(t *testing.T) {
	allStatuses := []EscrowStatus{
		EscrowStatusCreated,
		EscrowStatusCollateralized,
		EscrowStatusExercised,
		EscrowStatusSettled,
		EscrowStatusCancelled,
	}

	allowed := map[EscrowStatus][]EscrowStatus{
		EscrowStatusCreated:        {EscrowStatusCollateralized, EscrowStatusCancelled},
		EscrowStatusCollateralized: {EscrowStatusExercised, EscrowStatusSettled},
		EscrowStatusExercised:      {EscrowStatusSettled},
		EscrowStatusSettled:        {},
		EscrowStatusCancelled:      {},
	}

	for from, nexts := range allowed {
		permitted := make(map[EscrowStatus]bool)
		for _, next := range nexts {
			permitted[next] = true
		}

		for _, to := range allStatuses {
			got := from.CanTransitionTo(to)
			require.Equalf(t, permitted[to], got, "transition %s -> %s", from, to)
		}
	}

	t.Run("terminal states stay terminal", func(t *testing.T) {
		require.True(t, EscrowStatusSettled.IsTerminal())
		require.True(t, EscrowStatusCancelled.IsTerminal())
		require.False(t, EscrowStatusCreated.IsTerminal())
		require.False(t, EscrowStatusCollateralized.IsTerminal())
		require.False(t, EscrowStatusExercised.IsTerminal())
	})

	t.Run("no cancellation after funding", func(t *testing.T) {
		require.False(t, EscrowStatusCollateralized.CanTransitionTo(EscrowStatusCancelled))
		require.False(t, EscrowStatusExercised.CanTransitionTo(EscrowStatusCancelled))
	})

	t.Run("unknown status fails validation", func(t *testing.T) {
		require.Error(t, EscrowStatus("pending").Validate())
		require.NoError(t, EscrowStatusCollateralized.Validate())
	})
}
