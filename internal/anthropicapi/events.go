package anthropicapi

import (
	"encoding/json"
	"fmt"
)

// Event is one server-sent event the Stream Translator emits. Grounded on
// original_source/src/models/streaming.rs's `StreamEvent` enum; Go's lack of
// sum types means each variant is its own struct implementing Event,
// analogous to how the teacher's anthropic.go discriminates a named-event
// union by a Type tag read up front.
type Event interface {
	// sseName is the "event:" line value, e.g. "message_start".
	sseName() string
	// payload is marshaled as the "data:" line, with "type" injected.
	payload() interface{}
}

// ToSSE renders an Event in the wire format `event: <name>\ndata: <json>\n\n`.
func ToSSE(e Event) (string, error) {
	body := e.payload()
	// Inject the "type" discriminator the same way serde's internally
	// tagged enum does: flatten payload fields alongside "type".
	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal event payload: %w", err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return "", fmt.Errorf("flatten event payload: %w", err)
	}
	typeJSON, _ := json.Marshal(e.sseName())
	m["type"] = typeJSON
	dataBytes, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal tagged event: %w", err)
	}
	return fmt.Sprintf("event: %s\ndata: %s\n\n", e.sseName(), dataBytes), nil
}

// --- MessageStart ---

type MessageStartEvent struct {
	Message MessageStartPayload
}

type MessageStartPayload struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Content      []ContentBlock `json:"content"`
	Model        string         `json:"model"`
	StopReason   *string        `json:"stop_reason"`
	StopSequence *string        `json:"stop_sequence"`
	Usage        Usage          `json:"usage"`
}

func (e MessageStartEvent) sseName() string    { return "message_start" }
func (e MessageStartEvent) payload() interface{} {
	return struct {
		Message MessageStartPayload `json:"message"`
	}{e.Message}
}

// --- ContentBlockStart ---

type ContentBlockStartEvent struct {
	Index        int
	ContentBlock ContentBlockStartPayload
}

// ContentBlockStartPayload is the tagged union of block kinds a
// content_block_start event may open: "text", "thinking", or "tool_use".
// Marshaling is custom because each variant serializes only its own fields
// (Rust's externally-tagged enum never emits an irrelevant field, even as
// an empty string) — e.g. a "thinking" start carries no "text" key at all.
type ContentBlockStartPayload struct {
	Type string
	Text string
	ID   string
	Name string
}

func TextBlockStart() ContentBlockStartPayload { return ContentBlockStartPayload{Type: "text"} }
func ThinkingBlockStart() ContentBlockStartPayload {
	return ContentBlockStartPayload{Type: "thinking"}
}
func ToolUseBlockStart(id, name string) ContentBlockStartPayload {
	return ContentBlockStartPayload{Type: "tool_use", ID: id, Name: name}
}

func (p ContentBlockStartPayload) MarshalJSON() ([]byte, error) {
	switch p.Type {
	case "text":
		return json.Marshal(struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{p.Type, p.Text})
	case "tool_use":
		return json.Marshal(struct {
			Type string `json:"type"`
			ID   string `json:"id"`
			Name string `json:"name"`
		}{p.Type, p.ID, p.Name})
	default: // "thinking"
		return json.Marshal(struct {
			Type string `json:"type"`
		}{p.Type})
	}
}

func (e ContentBlockStartEvent) sseName() string { return "content_block_start" }
func (e ContentBlockStartEvent) payload() interface{} {
	return struct {
		Index        int                      `json:"index"`
		ContentBlock ContentBlockStartPayload `json:"content_block"`
	}{e.Index, e.ContentBlock}
}

// --- Ping ---

type PingEvent struct{}

func (e PingEvent) sseName() string       { return "ping" }
func (e PingEvent) payload() interface{}  { return struct{}{} }

// --- ContentBlockDelta ---

type ContentBlockDeltaEvent struct {
	Index int
	Delta Delta
}

// Delta is the tagged union of content_block_delta payloads. Like
// ContentBlockStartPayload, marshaling is custom so each variant emits only
// its own field.
type Delta struct {
	Type        string
	Text        string
	Thinking    string
	Signature   string
	PartialJSON string
}

func TextDelta(text string) Delta     { return Delta{Type: "text_delta", Text: text} }
func ThinkingDelta(text string) Delta { return Delta{Type: "thinking_delta", Thinking: text} }
func SignatureDelta(sig string) Delta { return Delta{Type: "signature_delta", Signature: sig} }
func InputJSONDelta(partial string) Delta {
	return Delta{Type: "input_json_delta", PartialJSON: partial}
}

func (d Delta) MarshalJSON() ([]byte, error) {
	switch d.Type {
	case "text_delta":
		return json.Marshal(struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}{d.Type, d.Text})
	case "thinking_delta":
		return json.Marshal(struct {
			Type     string `json:"type"`
			Thinking string `json:"thinking"`
		}{d.Type, d.Thinking})
	case "signature_delta":
		return json.Marshal(struct {
			Type      string `json:"type"`
			Signature string `json:"signature"`
		}{d.Type, d.Signature})
	default: // "input_json_delta"
		return json.Marshal(struct {
			Type        string `json:"type"`
			PartialJSON string `json:"partial_json"`
		}{d.Type, d.PartialJSON})
	}
}

func (e ContentBlockDeltaEvent) sseName() string { return "content_block_delta" }
func (e ContentBlockDeltaEvent) payload() interface{} {
	return struct {
		Index int   `json:"index"`
		Delta Delta `json:"delta"`
	}{e.Index, e.Delta}
}

// --- ContentBlockStop ---

type ContentBlockStopEvent struct {
	Index int
}

func (e ContentBlockStopEvent) sseName() string { return "content_block_stop" }
func (e ContentBlockStopEvent) payload() interface{} {
	return struct {
		Index int `json:"index"`
	}{e.Index}
}

// --- MessageDelta ---

type MessageDeltaEvent struct {
	Delta MessageDeltaData
	Usage DeltaUsage
}

type MessageDeltaData struct {
	StopReason   *string `json:"stop_reason"`
	StopSequence *string `json:"stop_sequence"`
}

type DeltaUsage struct {
	OutputTokens int `json:"output_tokens"`
}

func (e MessageDeltaEvent) sseName() string { return "message_delta" }
func (e MessageDeltaEvent) payload() interface{} {
	return struct {
		Delta MessageDeltaData `json:"delta"`
		Usage DeltaUsage       `json:"usage"`
	}{e.Delta, e.Usage}
}

// --- MessageStop ---

type MessageStopEvent struct{}

func (e MessageStopEvent) sseName() string      { return "message_stop" }
func (e MessageStopEvent) payload() interface{} { return struct{}{} }

// --- Error ---

type ErrorEvent struct {
	Error ErrorData
}

type ErrorData struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e ErrorEvent) sseName() string { return "error" }
func (e ErrorEvent) payload() interface{} {
	return struct {
		Error ErrorData `json:"error"`
	}{e.Error}
}
