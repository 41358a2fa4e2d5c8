package translate

import (
	"encoding/json"

	"github.com/howard-nolan/geminiproxy/internal/anthropicapi"
	"github.com/howard-nolan/geminiproxy/internal/geminiapi"
	"github.com/howard-nolan/geminiproxy/internal/signature"
)

// blockKind tracks which Anthropic content_block is currently open.
type blockKind int

const (
	blockNone blockKind = iota
	blockText
	blockThinking
	blockToolUse
)

// StreamTranslator is the stateful per-request engine that turns a sequence
// of upstream GenerateContentResponse chunks into Anthropic SSE events.
// Grounded on original_source/src/translation/streaming.rs's
// StreamingTranslator (process_event / emit_tool_use / emit_completion) and
// SPEC_FULL.md §4.J; one instance per request, owned entirely by the
// Handler goroutine driving a single stream.
type StreamTranslator struct {
	messageID string
	model     string

	inputTokens       int
	cachedInputTokens int
	outputTokens      int

	firstChunkSeen bool

	currentBlockIndex int
	currentBlockKind  blockKind
	hadToolUse        bool

	extractor thinkExtractor
	sigStore  *signature.Store
}

// NewStreamTranslator starts a fresh translator for one request.
func NewStreamTranslator(model string, sigStore *signature.Store) *StreamTranslator {
	return &StreamTranslator{
		messageID: anthropicapi.NewMessageID(),
		model:     model,
		sigStore:  sigStore,
	}
}

// ProcessEvent consumes one upstream event and returns the ordered Anthropic
// events it produces. terminated is true once the stream must close
// (MessageStop emitted, or an unrecoverable upstream error was surfaced).
func (t *StreamTranslator) ProcessEvent(ev geminiapi.GenerateContentResponse) (events []anthropicapi.Event, terminated bool) {
	if !t.firstChunkSeen {
		t.firstChunkSeen = true
		if ev.Response != nil && ev.Response.UsageMetadata != nil {
			t.inputTokens = ev.Response.UsageMetadata.PromptTokenCount
			t.cachedInputTokens = ev.Response.UsageMetadata.CachedContentTokenCount
		}
		events = append(events, anthropicapi.MessageStartEvent{
			Message: anthropicapi.MessageStartPayload{
				ID:      t.messageID,
				Type:    "message",
				Role:    "assistant",
				Content: []anthropicapi.ContentBlock{},
				Model:   t.model,
				Usage:   anthropicapi.Usage{InputTokens: t.inputTokens, OutputTokens: 0},
			},
		})
	}

	if ev.Response == nil || len(ev.Response.Candidates) == 0 {
		return events, false
	}
	candidate := ev.Response.Candidates[0]

	for _, part := range candidate.Content.Parts {
		events = append(events, t.processPart(part)...)
	}

	if candidate.FinishReason == "" {
		return events, false
	}

	if candidate.FinishReason == "MALFORMED_FUNCTION_CALL" {
		events = append(events, anthropicapi.ErrorEvent{
			Error: anthropicapi.ErrorData{
				Type:    string(KindInvalidRequest),
				Message: "upstream reported a malformed function call",
			},
		})
		return events, true
	}

	if ev.Response.UsageMetadata != nil {
		t.outputTokens = ev.Response.UsageMetadata.CandidatesTokenCount
	}
	if t.currentBlockKind != blockNone {
		events = append(events, anthropicapi.ContentBlockStopEvent{Index: t.currentBlockIndex})
		t.currentBlockIndex++
		t.currentBlockKind = blockNone
	}

	stopReason := mapStopReason(candidate.FinishReason, t.hadToolUse)
	events = append(events,
		anthropicapi.MessageDeltaEvent{
			Delta: anthropicapi.MessageDeltaData{StopReason: stopReason},
			Usage: anthropicapi.DeltaUsage{OutputTokens: t.outputTokens},
		},
		anthropicapi.MessageStopEvent{},
	)
	return events, true
}

func (t *StreamTranslator) processPart(part geminiapi.Part) []anthropicapi.Event {
	switch {
	case part.Kind == geminiapi.PartThought || (part.Kind == geminiapi.PartText && part.IsThought):
		return t.processThought(part)
	case part.Kind == geminiapi.PartText:
		return t.processText(part.Text)
	case part.Kind == geminiapi.PartFunctionCall:
		return t.processFunctionCall(part)
	default:
		// InlineData: no incremental emission in streams.
		return nil
	}
}

func (t *StreamTranslator) processThought(part geminiapi.Part) []anthropicapi.Event {
	var events []anthropicapi.Event
	if t.currentBlockKind != blockNone && t.currentBlockKind != blockThinking {
		events = append(events, anthropicapi.ContentBlockStopEvent{Index: t.currentBlockIndex})
		t.currentBlockIndex++
		t.currentBlockKind = blockNone
	}
	if t.currentBlockKind == blockNone {
		events = append(events, anthropicapi.ContentBlockStartEvent{
			Index:        t.currentBlockIndex,
			ContentBlock: anthropicapi.ThinkingBlockStart(),
		})
		t.currentBlockKind = blockThinking
	}

	text, _ := part.AsText()
	if text != "" {
		events = append(events, anthropicapi.ContentBlockDeltaEvent{
			Index: t.currentBlockIndex,
			Delta: anthropicapi.ThinkingDelta(text),
		})
	}
	if part.ThoughtSignature != "" {
		events = append(events, anthropicapi.ContentBlockDeltaEvent{
			Index: t.currentBlockIndex,
			Delta: anthropicapi.SignatureDelta(part.ThoughtSignature),
		})
	}
	return events
}

func (t *StreamTranslator) processText(text string) []anthropicapi.Event {
	var events []anthropicapi.Event
	for _, seg := range t.extractor.feed(text) {
		target := blockText
		if seg.kind == segThinking {
			target = blockThinking
		}

		if t.currentBlockKind != blockNone && t.currentBlockKind != target {
			events = append(events, anthropicapi.ContentBlockStopEvent{Index: t.currentBlockIndex})
			t.currentBlockIndex++
			t.currentBlockKind = blockNone
		}
		if t.currentBlockKind == blockNone {
			var start anthropicapi.ContentBlockStartPayload
			if target == blockThinking {
				start = anthropicapi.ThinkingBlockStart()
			} else {
				start = anthropicapi.TextBlockStart()
			}
			events = append(events, anthropicapi.ContentBlockStartEvent{Index: t.currentBlockIndex, ContentBlock: start})
			t.currentBlockKind = target
		}

		if target == blockThinking {
			events = append(events, anthropicapi.ContentBlockDeltaEvent{Index: t.currentBlockIndex, Delta: anthropicapi.ThinkingDelta(seg.text)})
		} else {
			events = append(events, anthropicapi.ContentBlockDeltaEvent{Index: t.currentBlockIndex, Delta: anthropicapi.TextDelta(seg.text)})
		}
	}
	return events
}

func (t *StreamTranslator) processFunctionCall(part geminiapi.Part) []anthropicapi.Event {
	var events []anthropicapi.Event
	if t.currentBlockKind != blockNone {
		events = append(events, anthropicapi.ContentBlockStopEvent{Index: t.currentBlockIndex})
		t.currentBlockIndex++
		t.currentBlockKind = blockNone
	}

	toolID := anthropicapi.NewToolUseID()
	if part.ThoughtSignature != "" {
		t.sigStore.Put(toolID, part.ThoughtSignature)
	}

	argsJSON, _ := json.Marshal(part.FunctionCall.Args)

	events = append(events,
		anthropicapi.ContentBlockStartEvent{
			Index:        t.currentBlockIndex,
			ContentBlock: anthropicapi.ToolUseBlockStart(toolID, part.FunctionCall.Name),
		},
		anthropicapi.ContentBlockDeltaEvent{
			Index: t.currentBlockIndex,
			Delta: anthropicapi.InputJSONDelta(string(argsJSON)),
		},
		anthropicapi.ContentBlockStopEvent{Index: t.currentBlockIndex},
	)
	t.currentBlockIndex++
	t.hadToolUse = true
	return events
}
