// Package anthropicapi defines the client-facing wire types for the
// Anthropic Messages API: the request/response shapes this proxy emulates.
//
// Grounded on original_source/src/models/anthropic.rs. Anthropic's content
// blocks form a tagged union (serde's externally-tagged `#[serde(tag =
// "type")]`); Go has no sum type, so each block is a single flat struct
// whose relevant fields are populated depending on Type, mirroring the
// "lightweight wrapper with every possible field" pattern the teacher itself
// uses for anthropicStreamEvent in internal/provider/anthropic.go.
package anthropicapi

import "encoding/json"

// MessagesRequest is the body of POST /v1/messages.
type MessagesRequest struct {
	Model         string          `json:"model"`
	Messages      []Message       `json:"messages"`
	System        *SystemPrompt   `json:"system,omitempty"`
	MaxTokens     int             `json:"max_tokens"`
	Temperature   *float64        `json:"temperature,omitempty"`
	TopP          *float64        `json:"top_p,omitempty"`
	TopK          *int            `json:"top_k,omitempty"`
	StopSequences []string        `json:"stop_sequences,omitempty"`
	Tools         []Tool          `json:"tools,omitempty"`
	Thinking      *ThinkingConfig `json:"thinking,omitempty"`
	Stream        bool            `json:"stream,omitempty"`
}

// Message is one turn in the conversation history.
type Message struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// MessageContent is either a plain string or an ordered list of
// ContentBlock — Anthropic's untagged `MessageContent` enum.
type MessageContent struct {
	Text   *string
	Blocks []ContentBlock
}

func (c MessageContent) MarshalJSON() ([]byte, error) {
	if c.Blocks != nil {
		return json.Marshal(c.Blocks)
	}
	if c.Text != nil {
		return json.Marshal(*c.Text)
	}
	return json.Marshal("")
}

func (c *MessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = &s
		c.Blocks = nil
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	c.Blocks = blocks
	c.Text = nil
	return nil
}

// AsBlocks returns the content as a block list regardless of which form it
// was sent in, promoting a plain string into a single Text block.
func (c MessageContent) AsBlocks() []ContentBlock {
	if c.Blocks != nil {
		return c.Blocks
	}
	if c.Text != nil {
		return []ContentBlock{{Type: "text", Text: *c.Text}}
	}
	return nil
}

// SystemPrompt is either a plain string or a list of ContentBlock (only Text
// blocks are meaningful for a system prompt).
type SystemPrompt struct {
	Text   *string
	Blocks []ContentBlock
}

func (s SystemPrompt) MarshalJSON() ([]byte, error) {
	if s.Blocks != nil {
		return json.Marshal(s.Blocks)
	}
	return json.Marshal(s.Text)
}

func (s *SystemPrompt) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		s.Text = &str
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	s.Blocks = blocks
	return nil
}

// ToText concatenates the prompt down to a single string, used by the
// Request Translator to build the upstream system_instruction.
func (s *SystemPrompt) ToText() string {
	if s == nil {
		return ""
	}
	if s.Text != nil {
		return *s.Text
	}
	out := ""
	for _, b := range s.Blocks {
		if b.Type == "text" {
			out += b.Text
		}
	}
	return out
}

// ContentBlock is Anthropic's tagged content-block union, flattened. Which
// fields are meaningful depends on Type:
//
//	"text"        -> Text, CacheControl
//	"thinking"    -> Thinking
//	"image"       -> Source, CacheControl
//	"tool_use"    -> ID, Name, Input, CacheControl
//	"tool_result" -> ToolUseID, Content, IsError
type ContentBlock struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	Thinking string `json:"thinking,omitempty"`

	Source *ImageSource `json:"source,omitempty"`

	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	ToolUseID string             `json:"tool_use_id,omitempty"`
	Content   *ToolResultContent `json:"content,omitempty"`
	IsError   *bool              `json:"is_error,omitempty"`

	CacheControl *CacheControl `json:"cache_control,omitempty"`
}

// ToolResultContent is either a plain string or a list of ContentBlock —
// Anthropic's untagged `ToolResultContent` enum.
type ToolResultContent struct {
	Text   *string
	Blocks []ContentBlock
}

func (t ToolResultContent) MarshalJSON() ([]byte, error) {
	if t.Blocks != nil {
		return json.Marshal(t.Blocks)
	}
	return json.Marshal(t.Text)
}

func (t *ToolResultContent) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		t.Text = &str
		return nil
	}
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		return err
	}
	t.Blocks = blocks
	return nil
}

// String concatenates any text-bearing content down to a single string, the
// form the Request Translator needs for a FunctionResponse payload.
func (t *ToolResultContent) String() string {
	if t == nil {
		return ""
	}
	if t.Text != nil {
		return *t.Text
	}
	out := ""
	for _, b := range t.Blocks {
		if b.Type == "text" {
			out += b.Text
		}
	}
	return out
}

// CacheControl marks a block eligible for prompt caching.
type CacheControl struct {
	Type string `json:"type"`
}

// ImageSource is the base64-encoded payload of an image block.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data"`
}

// Tool is a client-declared function the model may call.
type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	InputSchema interface{} `json:"input_schema"`
}

// ThinkingConfig requests extended reasoning.
type ThinkingConfig struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

// MessagesResponse is the body of a non-streaming POST /v1/messages reply.
type MessagesResponse struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Content      []ContentBlock `json:"content"`
	Model        string         `json:"model"`
	StopReason   *string        `json:"stop_reason"`
	StopSequence *string        `json:"stop_sequence"`
	Usage        Usage          `json:"usage"`
}

// NewMessagesResponse builds a response shell with a fresh message id.
func NewMessagesResponse(model string) *MessagesResponse {
	return &MessagesResponse{
		ID:    "msg_" + newUUIDSimple(),
		Type:  "message",
		Role:  "assistant",
		Model: model,
	}
}

// Usage reports token accounting for one response.
type Usage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}

// ErrorBody is the client-facing error envelope, identical for every error
// response regardless of transport (unary JSON or in-band SSE Error event).
type ErrorBody struct {
	Type  string        `json:"type"`
	Error ErrorBodyInfo `json:"error"`
}

type ErrorBodyInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewErrorBody builds the standard {"type":"error","error":{...}} envelope.
func NewErrorBody(kind, message string) ErrorBody {
	return ErrorBody{
		Type: "error",
		Error: ErrorBodyInfo{
			Type:    kind,
			Message: message,
		},
	}
}
