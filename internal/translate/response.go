package translate

import (
	"encoding/json"

	"github.com/howard-nolan/geminiproxy/internal/anthropicapi"
	"github.com/howard-nolan/geminiproxy/internal/geminiapi"
)

// TranslateResponse maps a unary upstream GenerateContentResponse to an
// Anthropic MessagesResponse, grounded on SPEC_FULL.md §4.I (no direct Rust
// analogue survives for the unary path in original_source — this mirrors
// the stream translator's per-finish-reason table at §4.J step 3, applied
// to a single complete response instead of incremental events).
func TranslateResponse(clientModel string, resp geminiapi.GenerateContentResponse) (*anthropicapi.MessagesResponse, error) {
	if resp.Response == nil || len(resp.Response.Candidates) == 0 {
		return nil, NewError(KindUpstream, "upstream response missing candidates")
	}
	candidate := resp.Response.Candidates[0]

	out := anthropicapi.NewMessagesResponse(clientModel)
	hadToolUse := false

	for _, part := range candidate.Content.Parts {
		switch part.Kind {
		case geminiapi.PartText, geminiapi.PartThought:
			text, _ := part.AsText()
			stripped := stripThinkTags(text)
			if stripped == "" {
				continue
			}
			out.Content = append(out.Content, anthropicapi.ContentBlock{Type: "text", Text: stripped})

		case geminiapi.PartInlineData:
			out.Content = append(out.Content, anthropicapi.ContentBlock{
				Type: "image",
				Source: &anthropicapi.ImageSource{
					Type:      "base64",
					MediaType: part.InlineData.MimeType,
					Data:      part.InlineData.Data,
				},
			})

		case geminiapi.PartFunctionCall:
			hadToolUse = true
			input, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return nil, NewError(KindTranslation, "failed to marshal tool_use input: %v", err)
			}
			out.Content = append(out.Content, anthropicapi.ContentBlock{
				Type:  "tool_use",
				ID:    anthropicapi.NewToolUseID(),
				Name:  part.FunctionCall.Name,
				Input: input,
			})

		case geminiapi.PartFunctionResponse:
			return nil, NewError(KindTranslation, "unexpected function_response part in model output")
		}
	}

	stopReason := mapStopReason(candidate.FinishReason, hadToolUse)
	out.StopReason = stopReason

	if resp.Response.UsageMetadata != nil {
		out.Usage.InputTokens = resp.Response.UsageMetadata.PromptTokenCount
		out.Usage.OutputTokens = resp.Response.UsageMetadata.CandidatesTokenCount
		out.Usage.CacheReadInputTokens = resp.Response.UsageMetadata.CachedContentTokenCount
	}

	return out, nil
}

// stripThinkTags removes any <think>...</think> spans that leaked into a
// plain-text part, using a fresh extractor since the unary path has no
// streaming state to carry across chunks.
func stripThinkTags(text string) string {
	var e thinkExtractor
	segs := e.feed(text)
	out := ""
	for _, s := range segs {
		if s.kind == segText {
			out += s.text
		}
	}
	return out
}

// mapStopReason applies the finish_reason -> stop_reason table shared by
// the unary and streaming translators (§4.I / §4.J step 3). If a ToolUse
// block was produced and the mapped reason would be end_turn, tool_use
// takes its place.
func mapStopReason(finishReason string, hadToolUse bool) *string {
	var mapped *string
	switch finishReason {
	case "STOP":
		mapped = strPtrResponse("end_turn")
	case "MAX_TOKENS":
		mapped = strPtrResponse("max_tokens")
	case "SAFETY", "RECITATION":
		mapped = strPtrResponse("stop_sequence")
	default:
		mapped = nil
	}
	if hadToolUse && mapped != nil && *mapped == "end_turn" {
		return strPtrResponse("tool_use")
	}
	return mapped
}

func strPtrResponse(s string) *string { return &s }
