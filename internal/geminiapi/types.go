// Package geminiapi defines the upstream wire types for Google's internal
// Gemini generative API (cloudcode-pa.googleapis.com/v1internal).
//
// Grounded on original_source/src/models/gemini.rs. Part is the one
// genuinely tricky type: Gemini's wire format is an *untagged* union (no
// discriminator key) distinguished purely by which fields are present, so
// unlike anthropicapi.ContentBlock (externally tagged, has a "type" key)
// this one needs structural sniffing on Unmarshal.
package geminiapi

import "encoding/json"

// InternalAPIRequest is the outer envelope every call to the internal API
// must be wrapped in.
type InternalAPIRequest struct {
	Model        string                 `json:"model"`
	Project      string                 `json:"project,omitempty"`
	UserPromptID string                 `json:"userPromptId,omitempty"`
	Request      GenerateContentRequest `json:"request"`
}

// GenerateContentRequest is the actual content-generation payload.
type GenerateContentRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *SystemInstruction `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig  `json:"generationConfig,omitempty"`
	Tools             []ToolDeclaration  `json:"tools,omitempty"`
	ToolConfig        *ToolConfig        `json:"toolConfig,omitempty"`
	CachedContent     string             `json:"cachedContent,omitempty"`
}

// Content is one turn (user or model) in the conversation.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// PartKind discriminates the branch of the untagged Part union actually
// populated.
type PartKind int

const (
	PartText PartKind = iota
	PartThought
	PartInlineData
	PartFunctionCall
	PartFunctionResponse
)

// Part is one piece of content inside a turn. Exactly one branch (selected
// by Kind) is meaningful; see the variant doc-comments on models/gemini.rs:
// Text{text,thought?,thoughtSignature?}, Thought{thought,thoughtSignature?},
// InlineData{inlineData}, FunctionCall{functionCall,thoughtSignature?},
// FunctionResponse{functionResponse}.
type Part struct {
	Kind PartKind

	// PartText
	Text           string
	IsThought      bool // the optional "thought": true/false marker
	hasIsThought   bool

	// PartThought
	ThoughtText string

	// shared by PartText, PartThought, PartFunctionCall
	ThoughtSignature string
	hasSignature     bool

	// PartInlineData
	InlineData *InlineData

	// PartFunctionCall
	FunctionCall *FunctionCall

	// PartFunctionResponse
	FunctionResponse *FunctionResponse
}

// TextPart builds a plain text Part (Request Translator output).
func TextPart(text string) Part {
	return Part{Kind: PartText, Text: text}
}

// FunctionCallPart builds an outgoing FunctionCall Part, optionally carrying
// a thought signature retrieved from the Signature Store.
func FunctionCallPart(name string, args interface{}, signature string) Part {
	p := Part{Kind: PartFunctionCall, FunctionCall: &FunctionCall{Name: name, Args: args}}
	if signature != "" {
		p.ThoughtSignature = signature
		p.hasSignature = true
	}
	return p
}

// FunctionResponsePart builds an outgoing FunctionResponse Part.
func FunctionResponsePart(name string, response interface{}) Part {
	return Part{Kind: PartFunctionResponse, FunctionResponse: &FunctionResponse{Name: name, Response: response}}
}

// InlineDataPart builds an outgoing image/binary Part.
func InlineDataPart(mimeType, data string) Part {
	return Part{Kind: PartInlineData, InlineData: &InlineData{MimeType: mimeType, Data: data}}
}

// AsText mirrors Part::as_text(): returns the textual content of a Text or
// Thought part.
func (p Part) AsText() (string, bool) {
	switch p.Kind {
	case PartText:
		return p.Text, true
	case PartThought:
		return p.ThoughtText, true
	default:
		return "", false
	}
}

func (p Part) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case PartText:
		out := map[string]interface{}{"text": p.Text}
		if p.hasIsThought {
			out["thought"] = p.IsThought
		}
		if p.hasSignature {
			out["thoughtSignature"] = p.ThoughtSignature
		}
		return json.Marshal(out)
	case PartThought:
		out := map[string]interface{}{"thought": p.ThoughtText}
		if p.hasSignature {
			out["thoughtSignature"] = p.ThoughtSignature
		}
		return json.Marshal(out)
	case PartInlineData:
		return json.Marshal(map[string]interface{}{"inlineData": p.InlineData})
	case PartFunctionCall:
		out := map[string]interface{}{"functionCall": p.FunctionCall}
		if p.hasSignature {
			out["thoughtSignature"] = p.ThoughtSignature
		}
		return json.Marshal(out)
	case PartFunctionResponse:
		return json.Marshal(map[string]interface{}{"functionResponse": p.FunctionResponse})
	default:
		return []byte("{}"), nil
	}
}

func (p *Part) UnmarshalJSON(data []byte) error {
	var raw struct {
		Text             *string          `json:"text"`
		Thought          json.RawMessage  `json:"thought"`
		ThoughtSignature *string          `json:"thoughtSignature"`
		InlineData       *InlineData      `json:"inlineData"`
		FunctionCall     *FunctionCall    `json:"functionCall"`
		FunctionResponse *FunctionResponse `json:"functionResponse"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if raw.ThoughtSignature != nil {
		p.ThoughtSignature = *raw.ThoughtSignature
		p.hasSignature = true
	}

	switch {
	case raw.Text != nil:
		p.Kind = PartText
		p.Text = *raw.Text
		if len(raw.Thought) > 0 {
			var b bool
			if err := json.Unmarshal(raw.Thought, &b); err == nil {
				p.IsThought = b
				p.hasIsThought = true
			}
		}
		return nil
	case raw.FunctionCall != nil:
		p.Kind = PartFunctionCall
		p.FunctionCall = raw.FunctionCall
		return nil
	case raw.FunctionResponse != nil:
		p.Kind = PartFunctionResponse
		p.FunctionResponse = raw.FunctionResponse
		return nil
	case raw.InlineData != nil:
		p.Kind = PartInlineData
		p.InlineData = raw.InlineData
		return nil
	case len(raw.Thought) > 0:
		p.Kind = PartThought
		var s string
		if err := json.Unmarshal(raw.Thought, &s); err == nil {
			p.ThoughtText = s
		}
		return nil
	}
	return nil
}

// InlineData is inline binary content (images).
type InlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

// SystemInstruction carries the system prompt as a Content-shaped part list.
type SystemInstruction struct {
	Parts []Part `json:"parts"`
}

// FunctionCall is the model's request to invoke a tool.
type FunctionCall struct {
	Name string      `json:"name"`
	Args interface{} `json:"args"`
}

// FunctionResponse is the client-supplied result of a prior FunctionCall.
type FunctionResponse struct {
	Name     string      `json:"name"`
	Response interface{} `json:"response"`
}

// GenerationConfig holds sampling and thinking parameters.
type GenerationConfig struct {
	MaxOutputTokens *int            `json:"maxOutputTokens,omitempty"`
	Temperature     *float64        `json:"temperature,omitempty"`
	TopP            *float64        `json:"topP,omitempty"`
	TopK            *int            `json:"topK,omitempty"`
	StopSequences   []string        `json:"stopSequences,omitempty"`
	CandidateCount  *int            `json:"candidateCount,omitempty"`
	ThinkingConfig  *ThinkingConfig `json:"thinkingConfig,omitempty"`
}

// ThinkingConfig requests extended reasoning from the upstream model.
type ThinkingConfig struct {
	IncludeThoughts *bool   `json:"includeThoughts,omitempty"`
	ThinkingBudget  *int    `json:"thinkingBudget,omitempty"`
	ThinkingLevel   *string `json:"thinkingLevel,omitempty"`
}

// ToolDeclaration wraps the function declarations available to the model.
type ToolDeclaration struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

// FunctionDeclaration is one callable tool's signature.
type FunctionDeclaration struct {
	Name                string      `json:"name"`
	Description         string      `json:"description"`
	ParametersJSONSchema interface{} `json:"parametersJsonSchema"`
}

// ToolConfig controls function-calling behavior.
type ToolConfig struct {
	FunctionCallingConfig FunctionCallingConfig `json:"functionCallingConfig"`
}

// FunctionCallingConfig selects the tool-use mode: "AUTO", "ANY", or "NONE".
type FunctionCallingConfig struct {
	Mode string `json:"mode"`
}

// GenerateContentResponse is the internal API's outer envelope.
type GenerateContentResponse struct {
	Response *ResponseWrapper `json:"response,omitempty"`
}

// ResponseWrapper is the actual generation result.
type ResponseWrapper struct {
	Candidates    []Candidate    `json:"candidates"`
	UsageMetadata *UsageMetadata `json:"usageMetadata,omitempty"`
}

// Candidate is one generated response option (only the first is used).
type Candidate struct {
	Content      Content           `json:"content"`
	FinishReason string            `json:"finishReason,omitempty"`
	SafetyRatings []interface{}    `json:"safetyRatings,omitempty"`
}

// UsageMetadata reports token accounting for one generation.
type UsageMetadata struct {
	PromptTokenCount       int `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount   int `json:"candidatesTokenCount,omitempty"`
	TotalTokenCount        int `json:"totalTokenCount,omitempty"`
	CachedContentTokenCount int `json:"cachedContentTokenCount,omitempty"`
}
