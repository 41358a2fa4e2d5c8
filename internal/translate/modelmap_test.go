package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapModel(t *testing.T) {
	m, err := MapModel("claude-sonnet-4-5")
	require.NoError(t, err)
	assert.Equal(t, "gemini-3-flash-preview", m)

	m, err = MapModel("claude-opus-4")
	require.NoError(t, err)
	assert.Equal(t, "gemini-3-pro-preview", m)

	_, err = MapModel("unknown-model")
	assert.Error(t, err)
}

// S2 seed test.
func TestMapModelDateSuffix(t *testing.T) {
	m, err := MapModel("claude-sonnet-4-5-20250929")
	require.NoError(t, err)
	assert.Equal(t, "gemini-3-flash-preview", m)

	m, err = MapModel("claude-haiku-4-5-20251001")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", m)
}

func TestStripDateSuffix(t *testing.T) {
	assert.Equal(t, "claude-sonnet-4-5", stripDateSuffix("claude-sonnet-4-5-20250929"))
	assert.Equal(t, "claude-sonnet-4-5", stripDateSuffix("claude-sonnet-4-5"))
}
