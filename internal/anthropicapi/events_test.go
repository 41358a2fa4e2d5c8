package anthropicapi

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageStartSSEFormat(t *testing.T) {
	evt := MessageStartEvent{Message: MessageStartPayload{
		ID:      "msg_123",
		Type:    "message",
		Role:    "assistant",
		Content: []ContentBlock{},
		Model:   "claude-sonnet-4-5",
		Usage:   Usage{InputTokens: 10},
	}}
	sse, err := ToSSE(evt)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sse, "event: message_start\n"))
	assert.Contains(t, sse, "data: {")
	assert.True(t, strings.HasSuffix(sse, "\n\n"))
}

func TestContentBlockDeltaSSEFormat(t *testing.T) {
	evt := ContentBlockDeltaEvent{Index: 0, Delta: TextDelta("Hello")}
	sse, err := ToSSE(evt)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sse, "event: content_block_delta\n"))
	assert.Contains(t, sse, `"text":"Hello"`)
}

func TestMessageStopSSEFormat(t *testing.T) {
	sse, err := ToSSE(MessageStopEvent{})
	require.NoError(t, err)
	assert.Equal(t, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n", sse)
}

func TestContentBlockStartThinkingOmitsTextField(t *testing.T) {
	evt := ContentBlockStartEvent{Index: 1, ContentBlock: ThinkingBlockStart()}
	sse, err := ToSSE(evt)
	require.NoError(t, err)
	assert.NotContains(t, sse, `"text"`)
	assert.Contains(t, sse, `"type":"thinking"`)
}

func TestContentBlockStartToolUse(t *testing.T) {
	evt := ContentBlockStartEvent{Index: 2, ContentBlock: ToolUseBlockStart("toolu_1", "get_weather")}
	sse, err := ToSSE(evt)
	require.NoError(t, err)
	assert.Contains(t, sse, `"id":"toolu_1"`)
	assert.Contains(t, sse, `"name":"get_weather"`)
}

func TestErrorEventSSEFormat(t *testing.T) {
	evt := ErrorEvent{Error: ErrorData{Type: "invalid_request_error", Message: "bad request"}}
	sse, err := ToSSE(evt)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sse, "event: error\n"))
	assert.Contains(t, sse, `"invalid_request_error"`)
}
