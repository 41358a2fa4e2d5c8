package translate

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/howard-nolan/geminiproxy/internal/anthropicapi"
	"github.com/howard-nolan/geminiproxy/internal/geminiapi"
	"github.com/howard-nolan/geminiproxy/internal/signature"
)

func textMessage(role, text string) anthropicapi.Message {
	return anthropicapi.Message{Role: role, Content: anthropicapi.MessageContent{Text: &text}}
}

// S1 seed test: simple unary request.
func TestTranslateRequestSimpleUnary(t *testing.T) {
	req := anthropicapi.MessagesRequest{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 100,
		Messages:  []anthropicapi.Message{textMessage("user", "hi")},
	}

	out, err := TranslateRequest(req, signature.New(), RequestConfig{}, "")
	require.NoError(t, err)

	require.Len(t, out.Contents, 1)
	assert.Equal(t, "user", out.Contents[0].Role)
	require.Len(t, out.Contents[0].Parts, 1)
	text, ok := out.Contents[0].Parts[0].AsText()
	require.True(t, ok)
	assert.Equal(t, "hi", text)

	require.NotNil(t, out.GenerationConfig)
	require.NotNil(t, out.GenerationConfig.MaxOutputTokens)
	assert.Equal(t, 100, *out.GenerationConfig.MaxOutputTokens)
	assert.Nil(t, out.GenerationConfig.ThinkingConfig)
	assert.Nil(t, out.Tools)
	assert.Nil(t, out.ToolConfig)
}

// S2 seed test: model alias with date suffix resolves through MapModel.
func TestTranslateRequestModelAliasWithDateSuffix(t *testing.T) {
	req := anthropicapi.MessagesRequest{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 10,
		Messages:  []anthropicapi.Message{textMessage("user", "hi")},
	}
	out, err := TranslateRequest(req, signature.New(), RequestConfig{}, "")
	require.NoError(t, err)
	require.Len(t, out.Contents, 1)
}

func TestTranslateRequestUnknownModel(t *testing.T) {
	req := anthropicapi.MessagesRequest{
		Model:     "gpt-4",
		MaxTokens: 10,
		Messages:  []anthropicapi.Message{textMessage("user", "hi")},
	}
	_, err := TranslateRequest(req, signature.New(), RequestConfig{}, "")
	assert.Error(t, err)
}

func TestTranslateRequestMaxTokensClampedAt65537(t *testing.T) {
	req := anthropicapi.MessagesRequest{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 65537,
		Messages:  []anthropicapi.Message{textMessage("user", "hi")},
	}
	out, err := TranslateRequest(req, signature.New(), RequestConfig{}, "")
	require.NoError(t, err)
	assert.Equal(t, 65536, *out.GenerationConfig.MaxOutputTokens)
}

func TestTranslateRequestMaxTokensOneAccepted(t *testing.T) {
	req := anthropicapi.MessagesRequest{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 1,
		Messages:  []anthropicapi.Message{textMessage("user", "hi")},
	}
	out, err := TranslateRequest(req, signature.New(), RequestConfig{}, "")
	require.NoError(t, err)
	assert.Equal(t, 1, *out.GenerationConfig.MaxOutputTokens)
}

func TestTranslateRequestEmptyToolsOmitted(t *testing.T) {
	req := anthropicapi.MessagesRequest{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 10,
		Messages:  []anthropicapi.Message{textMessage("user", "hi")},
		Tools:     nil,
	}
	out, err := TranslateRequest(req, signature.New(), RequestConfig{}, "")
	require.NoError(t, err)
	assert.Nil(t, out.Tools)
}

func TestTranslateRequestToolsSanitizedAndWrapped(t *testing.T) {
	req := anthropicapi.MessagesRequest{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 10,
		Messages:  []anthropicapi.Message{textMessage("user", "hi")},
		Tools: []anthropicapi.Tool{
			{
				Name:        "get_weather",
				Description: "Get the weather",
				InputSchema: map[string]interface{}{
					"type":                 "object",
					"additionalProperties": false,
					"properties": map[string]interface{}{
						"city": map[string]interface{}{"type": "string"},
					},
				},
			},
		},
	}
	out, err := TranslateRequest(req, signature.New(), RequestConfig{}, "")
	require.NoError(t, err)
	require.Len(t, out.Tools, 1)
	require.Len(t, out.Tools[0].FunctionDeclarations, 1)
	assert.Equal(t, "get_weather", out.Tools[0].FunctionDeclarations[0].Name)
	require.NotNil(t, out.ToolConfig)
	assert.Equal(t, "AUTO", out.ToolConfig.FunctionCallingConfig.Mode)
}

func TestTranslateRequestThinkingOnlyMessageBecomesSingleSpace(t *testing.T) {
	req := anthropicapi.MessagesRequest{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 10,
		Messages: []anthropicapi.Message{
			{
				Role: "assistant",
				Content: anthropicapi.MessageContent{
					Blocks: []anthropicapi.ContentBlock{{Type: "thinking", Thinking: "internal reasoning"}},
				},
			},
		},
	}
	out, err := TranslateRequest(req, signature.New(), RequestConfig{}, "")
	require.NoError(t, err)
	require.Len(t, out.Contents, 1)
	require.Len(t, out.Contents[0].Parts, 1)
	text, ok := out.Contents[0].Parts[0].AsText()
	require.True(t, ok)
	assert.Equal(t, " ", text)
}

func TestTranslateRequestInvalidRole(t *testing.T) {
	req := anthropicapi.MessagesRequest{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 10,
		Messages:  []anthropicapi.Message{textMessage("system", "hi")},
	}
	_, err := TranslateRequest(req, signature.New(), RequestConfig{}, "")
	assert.Error(t, err)
}

func TestTranslateRequestUltrathinkKeywordForcesThinking(t *testing.T) {
	req := anthropicapi.MessagesRequest{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 10,
		Messages:  []anthropicapi.Message{textMessage("user", "please ultrathink about this")},
	}
	out, err := TranslateRequest(req, signature.New(), RequestConfig{EnableUltrathinkKeyword: true}, "")
	require.NoError(t, err)
	require.NotNil(t, out.GenerationConfig.ThinkingConfig)
}

func TestTranslateRequestUltrathinkKeywordDisabledByConfig(t *testing.T) {
	req := anthropicapi.MessagesRequest{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 10,
		Messages:  []anthropicapi.Message{textMessage("user", "please ultrathink about this")},
	}
	out, err := TranslateRequest(req, signature.New(), RequestConfig{EnableUltrathinkKeyword: false}, "")
	require.NoError(t, err)
	assert.Nil(t, out.GenerationConfig.ThinkingConfig)
}

func TestTranslateRequestThinkingConfigRemapsPro3ToEnumLevel(t *testing.T) {
	req := anthropicapi.MessagesRequest{
		Model:     "claude-opus-4", // maps to gemini-3-pro-preview
		MaxTokens: 10,
		Messages:  []anthropicapi.Message{textMessage("user", "hi")},
		Thinking:  &anthropicapi.ThinkingConfig{Type: "enabled", BudgetTokens: 10000},
	}
	out, err := TranslateRequest(req, signature.New(), RequestConfig{}, "")
	require.NoError(t, err)
	require.NotNil(t, out.GenerationConfig.ThinkingConfig)
	require.NotNil(t, out.GenerationConfig.ThinkingConfig.ThinkingLevel)
	assert.Equal(t, "LOW", *out.GenerationConfig.ThinkingConfig.ThinkingLevel)
	assert.Nil(t, out.GenerationConfig.ThinkingConfig.ThinkingBudget)
}

func TestTranslateRequestThinkingConfigRemaps25ToNumericBudget(t *testing.T) {
	req := anthropicapi.MessagesRequest{
		Model:     "claude-haiku-4", // maps to gemini-2.5-flash
		MaxTokens: 10,
		Messages:  []anthropicapi.Message{textMessage("user", "hi")},
		Thinking:  &anthropicapi.ThinkingConfig{Type: "enabled", BudgetTokens: 18000},
	}
	out, err := TranslateRequest(req, signature.New(), RequestConfig{}, "")
	require.NoError(t, err)
	require.NotNil(t, out.GenerationConfig.ThinkingConfig.ThinkingBudget)
	assert.Equal(t, 20000, *out.GenerationConfig.ThinkingConfig.ThinkingBudget)
}

func TestTranslateRequestSystemPromptWithoutBridgeText(t *testing.T) {
	sys := "Be concise."
	req := anthropicapi.MessagesRequest{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 10,
		System:    &anthropicapi.SystemPrompt{Text: &sys},
		Messages:  []anthropicapi.Message{textMessage("user", "hi")},
	}
	out, err := TranslateRequest(req, signature.New(), RequestConfig{InjectSystemBridgeText: false}, "")
	require.NoError(t, err)
	require.NotNil(t, out.SystemInstruction)
	text, _ := out.SystemInstruction.Parts[0].AsText()
	assert.Equal(t, "Be concise.", text)
}

func TestTranslateRequestSystemPromptWithBridgeText(t *testing.T) {
	sys := "Be concise."
	req := anthropicapi.MessagesRequest{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 10,
		System:    &anthropicapi.SystemPrompt{Text: &sys},
		Messages:  []anthropicapi.Message{textMessage("user", "hi")},
	}
	out, err := TranslateRequest(req, signature.New(), RequestConfig{InjectSystemBridgeText: true}, "")
	require.NoError(t, err)
	text, _ := out.SystemInstruction.Parts[0].AsText()
	assert.Contains(t, text, bridgeText)
	assert.Contains(t, text, "Be concise.")
}

func TestTranslateRequestNoSystemPromptOmitsInstruction(t *testing.T) {
	req := anthropicapi.MessagesRequest{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 10,
		Messages:  []anthropicapi.Message{textMessage("user", "hi")},
	}
	out, err := TranslateRequest(req, signature.New(), RequestConfig{}, "")
	require.NoError(t, err)
	assert.Nil(t, out.SystemInstruction)
}

func TestTranslateRequestToolUseAndResultRoundTrip(t *testing.T) {
	sigStore := signature.New()
	sigStore.Put("toolu_123", "sig-abc")

	input, err := json.Marshal(map[string]interface{}{"city": "NYC"})
	require.NoError(t, err)

	req := anthropicapi.MessagesRequest{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 10,
		Messages: []anthropicapi.Message{
			textMessage("user", "weather?"),
			{
				Role: "assistant",
				Content: anthropicapi.MessageContent{
					Blocks: []anthropicapi.ContentBlock{
						{Type: "tool_use", ID: "toolu_123", Name: "get_weather", Input: input},
					},
				},
			},
			{
				Role: "user",
				Content: anthropicapi.MessageContent{
					Blocks: []anthropicapi.ContentBlock{
						{Type: "tool_result", ToolUseID: "toolu_123", Content: &anthropicapi.ToolResultContent{Text: strPtr("68F and sunny")}},
					},
				},
			},
		},
	}

	out, err := TranslateRequest(req, sigStore, RequestConfig{}, "")
	require.NoError(t, err)
	require.Len(t, out.Contents, 3)

	toolUsePart := out.Contents[1].Parts[0]
	require.Equal(t, geminiapi.PartFunctionCall, toolUsePart.Kind)
	assert.Equal(t, "get_weather", toolUsePart.FunctionCall.Name)
	assert.Equal(t, "sig-abc", toolUsePart.ThoughtSignature)

	toolResultPart := out.Contents[2].Parts[0]
	require.Equal(t, geminiapi.PartFunctionResponse, toolResultPart.Kind)
	assert.Equal(t, "get_weather", toolResultPart.FunctionResponse.Name)
}

func TestTranslateRequestToolUseMissingSignatureUsesFallback(t *testing.T) {
	input, err := json.Marshal(map[string]interface{}{})
	require.NoError(t, err)
	req := anthropicapi.MessagesRequest{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 10,
		Messages: []anthropicapi.Message{
			{
				Role: "assistant",
				Content: anthropicapi.MessageContent{
					Blocks: []anthropicapi.ContentBlock{
						{Type: "tool_use", ID: "toolu_unknown", Name: "noop", Input: input},
					},
				},
			},
		},
	}
	out, err := TranslateRequest(req, signature.New(), RequestConfig{}, "")
	require.NoError(t, err)
	assert.Equal(t, signature.Fallback, out.Contents[0].Parts[0].ThoughtSignature)
}

func TestTranslateRequestCachedContentPassthrough(t *testing.T) {
	req := anthropicapi.MessagesRequest{
		Model:     "claude-sonnet-4-5",
		MaxTokens: 10,
		Messages:  []anthropicapi.Message{textMessage("user", "hi")},
	}
	out, err := TranslateRequest(req, signature.New(), RequestConfig{}, "cachedContents/abc123")
	require.NoError(t, err)
	assert.Equal(t, "cachedContents/abc123", out.CachedContent)
}

func strPtr(s string) *string { return &s }
