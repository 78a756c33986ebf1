package enums

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseNormalizesInput(t *testing.T) {
	status, err := ParseOrderStatus("  In_Transit ")
	require.NoError(t, err)
	require.Equal(t, OrderStatusInTransit, status)

	_, err = ParseOrderStatus("lost")
	require.EqualError(t, err, `invalid order status "lost"`)
}

func TestCloseReasonTerminalState(t *testing.T) {
	reason, err := ParseCloseReason("expired")
	require.NoError(t, err)
	state, err := reason.TerminalState()
	require.NoError(t, err)
	require.Equal(t, QuoteRequestStateExpired, state)

	_, err = CloseReason("withdrawn").TerminalState()
	require.Error(t, err)
}

func TestTerminalStatuses(t *testing.T) {
	for _, s := range validOrderStatuses {
		want := s == OrderStatusDelivered || s == OrderStatusCancelled
		require.Equal(t, want, s.IsTerminal(), s)
	}
	require.False(t, QuoteStatePending.IsTerminal())
	require.True(t, QuoteStateRejected.IsTerminal())
}
