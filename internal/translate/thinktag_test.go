package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessTextSimple(t *testing.T) {
	var e thinkExtractor
	segs := e.feed("Hello <think>internal</think> world")
	require3Segments(t, segs)
	assert.Equal(t, segText, segs[0].kind)
	assert.Equal(t, "Hello ", segs[0].text)
	assert.Equal(t, segThinking, segs[1].kind)
	assert.Equal(t, "internal", segs[1].text)
	assert.Equal(t, segText, segs[2].kind)
	assert.Equal(t, " world", segs[2].text)
}

func require3Segments(t *testing.T, segs []segment) {
	t.Helper()
	if len(segs) != 3 {
		t.Fatalf("expected 3 segments, got %d: %+v", len(segs), segs)
	}
}

func TestPartialTagDetection(t *testing.T) {
	assert.Equal(t, 5, findPartialTag("hello<", "<think>"))
	assert.Equal(t, 5, findPartialTag("hello<think", "<think>"))
	assert.Equal(t, -1, findPartialTag("hello world", "<think>"))
}

// S4 seed test: tag split across two chunks.
func TestTagSplitAcrossChunks(t *testing.T) {
	var e thinkExtractor
	segs1 := e.feed("A<thi")
	require.Len(t, segs1, 1)
	assert.Equal(t, segText, segs1[0].kind)
	assert.Equal(t, "A", segs1[0].text)

	segs2 := e.feed("nk>secret</think>B")
	require.Len(t, segs2, 2)
	assert.Equal(t, segThinking, segs2[0].kind)
	assert.Equal(t, "secret", segs2[0].text)
	assert.Equal(t, segText, segs2[1].kind)
	assert.Equal(t, "B", segs2[1].text)
}

func TestConcatenationIndependence(t *testing.T) {
	var whole thinkExtractor
	wholeSegs := whole.feed("A<think>secret</think>B")

	var split thinkExtractor
	var splitSegs []segment
	for _, piece := range []string{"A<thi", "nk>se", "cret</th", "ink>B"} {
		splitSegs = append(splitSegs, split.feed(piece)...)
	}

	assert.Equal(t, flatten(wholeSegs), flatten(splitSegs))
}

func flatten(segs []segment) string {
	out := ""
	for _, s := range segs {
		out += string(rune(s.kind)) + s.text + "|"
	}
	return out
}

func TestBufferOverflowForcesStripAndReset(t *testing.T) {
	var e thinkExtractor
	e.inThinking = true
	huge := make([]byte, maxThinkBuffer+10)
	for i := range huge {
		huge[i] = 'x'
	}
	segs := e.feed(string(huge))
	require.Len(t, segs, 1)
	assert.Equal(t, segText, segs[0].kind)
	assert.False(t, e.inThinking)
}
