package ptysession

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnForegroundArmsPendingLatch(t *testing.T) {
	s := NewSession()
	pid, err := s.SpawnForeground([]string{"/bin/echo", "hi"}, nil)
	require.NoError(t, err)
	assert.NotZero(t, pid)

	master, armedPID, ok := s.TakePending()
	require.True(t, ok)
	assert.Equal(t, pid, armedPID)
	require.NotNil(t, master)
	master.Close()

	// a second Take before another exec finds nothing pending.
	_, _, ok = s.TakePending()
	assert.False(t, ok)
}

func TestSpawnBackgroundDoesNotArmLatch(t *testing.T) {
	s := NewSession()
	pid, err := s.SpawnBackground([]string{"/bin/true"}, nil)
	require.NoError(t, err)
	assert.NotZero(t, pid)

	_, _, ok := s.TakePending()
	assert.False(t, ok)
}
