package sseparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSSEEventSimple(t *testing.T) {
	p := New(nil)
	events, err := p.Feed([]byte("event: message\ndata: {\"response\":{\"candidates\":[{\"content\":{\"role\":\"model\",\"parts\":[{\"text\":\" Hello\"}]}}]}}\n\n"))
	require.NoError(t, err)
	require.Len(t, events, 1)
	text, _ := events[0].Response.Candidates[0].Content.Parts[0].AsText()
	assert.Equal(t, " Hello", text)
}

func TestParseSSEEventNoData(t *testing.T) {
	p := New(nil)
	events, err := p.Feed([]byte("event: ping\n\n"))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestParseSSEEventDoneMarkerDropped(t *testing.T) {
	p := New(nil)
	events, err := p.Feed([]byte("data: [DONE]\n\n"))
	require.NoError(t, err)
	assert.Empty(t, events)
}

// S3 seed test: a text chunk split mid-token across three raw chunks fed
// separately to Feed must still yield exactly one event.
func TestSplitBoundary(t *testing.T) {
	p := New(nil)
	var all []string
	chunks := []string{
		`data: {"response":{"candidates":[{"content":{"role":"model","parts":[{"text":"Hel`,
		"lo\"}]}}]}}\n\n",
		"data: [DONE]\n\n",
	}
	for _, c := range chunks {
		events, err := p.Feed([]byte(c))
		require.NoError(t, err)
		for _, e := range events {
			text, _ := e.Response.Candidates[0].Content.Parts[0].AsText()
			all = append(all, text)
		}
	}
	require.Len(t, all, 1)
	assert.Equal(t, "Hello", all[0])
}

func TestMixedDelimiters(t *testing.T) {
	event1 := `data: {"response":{"candidates":[{"content":{"role":"model","parts":[{"text":"First"}]}}]}}`
	event2 := `data: {"response":{"candidates":[{"content":{"role":"model","parts":[{"text":"Second"}]}}]}}`
	event3 := `data: {"response":{"candidates":[{"content":{"role":"model","parts":[{"text":"Third"}]}}]}}`
	payload := event1 + "\n\n" + event2 + "\r\n\r\n" + event3 + "\n\n"

	p := New(nil)
	events, err := p.Feed([]byte(payload))
	require.NoError(t, err)
	require.Len(t, events, 3)

	text0, _ := events[0].Response.Candidates[0].Content.Parts[0].AsText()
	text1, _ := events[1].Response.Candidates[0].Content.Parts[0].AsText()
	text2, _ := events[2].Response.Candidates[0].Content.Parts[0].AsText()
	assert.Equal(t, "First", text0)
	assert.Equal(t, "Second", text1)
	assert.Equal(t, "Third", text2)
}

// Chunk-boundary agnosticism: feeding the same byte stream split at every
// possible byte offset must yield the same event count each time.
func TestChunkBoundaryAgnostic(t *testing.T) {
	payload := []byte(`data: {"response":{"candidates":[{"content":{"role":"model","parts":[{"text":"ok"}]}}]}}` + "\n\n" + `data: [DONE]` + "\n\n")

	for split := 1; split < len(payload); split++ {
		p := New(nil)
		e1, err := p.Feed(payload[:split])
		require.NoError(t, err)
		e2, err := p.Feed(payload[split:])
		require.NoError(t, err)
		assert.Len(t, append(e1, e2...), 1, "split at byte %d should still yield exactly one event", split)
	}
}

func TestBufferOverflowSafety(t *testing.T) {
	p := New(nil)
	huge := make([]byte, MaxBufferSize+1)
	for i := range huge {
		huge[i] = 'a'
	}
	_, err := p.Feed(huge)
	assert.ErrorIs(t, err, ErrBufferOverflow)
}

func TestFlushResidualBuffer(t *testing.T) {
	p := New(nil)
	_, err := p.Feed([]byte(`data: {"response":{"candidates":[{"content":{"role":"model","parts":[{"text":"tail"}]}}]}}`))
	require.NoError(t, err)
	evt, ok := p.Flush()
	require.True(t, ok)
	text, _ := evt.Response.Candidates[0].Content.Parts[0].AsText()
	assert.Equal(t, "tail", text)
}
