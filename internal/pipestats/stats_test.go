package pipestats

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCounterMonotonicityAndMaxOpen(t *testing.T) {
	c := New()

	c.OnConnectionOpened()
	c.OnConnectionOpened()
	c.OnRequestStart()
	c.OnRequestStart()
	c.OnRequestStart()
	c.OnResponseStart()

	snap := c.Snapshot()
	require.EqualValues(t, 2, snap.TotalConnections)
	require.EqualValues(t, 3, snap.TotalRequests)
	require.EqualValues(t, 2, snap.OpenRequests)
	require.GreaterOrEqual(t, snap.MaxOpenRequests, snap.TotalRequests-1)

	c.OnConnectionClosed(false)
	c.OnRequestTimeout()
	c.OnConnectionClosed(true)

	snap = c.Snapshot()
	require.EqualValues(t, 2, snap.TotalConnections-snap.OpenConnections)
	require.EqualValues(t, 1, snap.RequestTimeouts)
	require.EqualValues(t, 1, snap.IdleTimeouts)

	c.Clear()
	snap = c.Snapshot()
	require.Zero(t, snap.TotalRequests)
	require.Zero(t, snap.TotalConnections)
	require.Zero(t, snap.MaxOpenRequests)
}
