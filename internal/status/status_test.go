// ABOUTME: Tests for the status tracker

package status

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_UpdateAndRead(t *testing.T) {
	tr := NewTracker()
	assert.Equal(t, LevelNormal, tr.BackendStatus().Level)

	tr.UpdateBackendStatus(LevelWarning, false, "quota reached")
	snap := tr.BackendStatus()
	assert.Equal(t, LevelWarning, snap.Level)
	assert.Equal(t, "quota reached", snap.Message)
}

func TestTracker_EligibleForFallback(t *testing.T) {
	tr := NewTracker()
	assert.False(t, tr.EligibleForFallback(), "unknown plan must not fall back")

	tr.SetPlan("free")
	assert.False(t, tr.EligibleForFallback())

	tr.SetPlan("individual")
	assert.True(t, tr.EligibleForFallback())
}

func TestTracker_WatchersNotified(t *testing.T) {
	tr := NewTracker()
	var seen []Snapshot
	tr.Watch(func(s Snapshot) { seen = append(seen, s) })

	tr.UpdateBackendStatus(LevelError, true, "down")
	assert.Len(t, seen, 1)
	assert.Equal(t, LevelError, seen[0].Level)
}
