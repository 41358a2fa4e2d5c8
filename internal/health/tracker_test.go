package health

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkHealthyRequiresExistingEntry(t *testing.T) {
	tr := New()
	tr.MarkHealthy("gemini-3-flash-preview")
	assert.True(t, tr.IsAvailable("gemini-3-flash-preview"))
	_, ok := tr.entries["gemini-3-flash-preview"]
	assert.False(t, ok, "MarkHealthy must not create an entry for an unknown model")
}

func TestTerminalIsAbsorbing(t *testing.T) {
	tr := New()
	tr.MarkTransient("m", "rate limited")
	tr.MarkTerminal("m", "daily quota exhausted")
	assert.False(t, tr.IsAvailable("m"))

	tr.MarkHealthy("m")
	assert.False(t, tr.IsAvailable("m"), "Terminal must not be downgraded by a later success")

	tr.MarkTransient("m", "another transient error")
	state, _ := tr.State("m")
	assert.Equal(t, Terminal, state, "Terminal must not be downgraded by a later transient error")
}

func TestIsAvailableDefaultsTrueForUnknownModel(t *testing.T) {
	tr := New()
	assert.True(t, tr.IsAvailable("never-seen"))
}

func TestTransientThenHealthy(t *testing.T) {
	tr := New()
	tr.MarkTransient("m", "5xx")
	state, _ := tr.State("m")
	assert.Equal(t, TransientRetry, state)

	tr.MarkHealthy("m")
	state, _ = tr.State("m")
	assert.Equal(t, Healthy, state)
}

func TestSnapshot(t *testing.T) {
	tr := New()
	tr.MarkTransient("a", "x")
	tr.MarkTerminal("b", "y")
	snap := tr.Snapshot()
	assert.Equal(t, TransientRetry, snap["a"])
	assert.Equal(t, Terminal, snap["b"])
}
