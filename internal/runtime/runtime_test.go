package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func TestNewConnectionAssignsMonotonicIDs(t *testing.T) {
	rt := openTestRuntime(t)
	a := rt.NewConnection("root")
	b := rt.NewConnection("root")
	assert.Less(t, a.ID(), b.ID())
	assert.Equal(t, 2, rt.ConnectionCount())
}

func TestConnectionCloseRemovesFromRuntime(t *testing.T) {
	rt := openTestRuntime(t)
	conn := rt.NewConnection("root")
	require.Equal(t, 1, rt.ConnectionCount())
	conn.Close()
	assert.Equal(t, 0, rt.ConnectionCount())
}

func TestKillConnectionSetsKilledFlag(t *testing.T) {
	rt := openTestRuntime(t)
	conn := rt.NewConnection("root")
	assert.False(t, conn.Killed())
	ok := rt.KillConnection(conn.ID())
	assert.True(t, ok)
	assert.True(t, conn.Killed())
}

func TestKillConnectionOnUnknownIDReturnsFalse(t *testing.T) {
	rt := openTestRuntime(t)
	assert.False(t, rt.KillConnection(999))
}

func TestExecuteConstantFoldedSelect(t *testing.T) {
	rt := openTestRuntime(t)
	conn := rt.NewConnection("root")

	rows, err := conn.Execute("SELECT 1 + 2 * 3 - 4")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, rows[0].Values, 1)
	assert.Equal(t, int64(1), rows[0].Freq)
}

func TestExecuteOnKilledConnectionReturnsError(t *testing.T) {
	rt := openTestRuntime(t)
	conn := rt.NewConnection("root")
	rt.KillConnection(conn.ID())

	_, err := conn.Execute("SELECT 1")
	require.ErrorIs(t, err, ErrKilled)
}

func TestSetAndGetCurrentDatabase(t *testing.T) {
	rt := openTestRuntime(t)
	conn := rt.NewConnection("root")
	assert.Equal(t, "incresql", conn.CurrentDatabase())
	conn.SetCurrentDatabase("other")
	assert.Equal(t, "other", conn.CurrentDatabase())
}
