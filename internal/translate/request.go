package translate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/howard-nolan/geminiproxy/internal/anthropicapi"
	"github.com/howard-nolan/geminiproxy/internal/geminiapi"
	"github.com/howard-nolan/geminiproxy/internal/sanitize"
	"github.com/howard-nolan/geminiproxy/internal/signature"
)

// ultrathinkBudgetTokens is the forced thinking budget when the client's
// text contains the "ultrathink" escalation keyword.
const ultrathinkBudgetTokens = 30000

// bridgeText is the short capability-caveat appended to the system
// instruction when Translation.InjectSystemBridgeText is enabled.
const bridgeText = "You do not have the ability to generate images."

// RequestConfig carries the Translation-section knobs that affect request
// translation, threaded in by the Handler from the loaded AppConfig.
type RequestConfig struct {
	EnableUltrathinkKeyword bool
	InjectSystemBridgeText  bool
}

// TranslateRequest builds an upstream GenerateContentRequest from a client
// MessagesRequest, grounded on
// original_source/src/translation/request.rs's translate_request and
// translate_messages, extended per the richer generation_config and
// thinking-config-remapping this proxy's model lineup requires.
//
// cachedContentRef, when non-empty, is attached as the upstream
// cachedContent field (resolved by the orchestrator via the Context Cache
// Manager before H is invoked).
func TranslateRequest(req anthropicapi.MessagesRequest, sigStore *signature.Store, cfg RequestConfig, cachedContentRef string) (geminiapi.GenerateContentRequest, error) {
	upstreamModel, err := MapModel(req.Model)
	if err != nil {
		return geminiapi.GenerateContentRequest{}, NewError(KindInvalidRequest, "%s", err.Error())
	}

	maxTokens := req.MaxTokens
	if maxTokens > 65536 {
		maxTokens = 65536
	}

	thinkingEnabled := req.Thinking != nil && req.Thinking.Type == "enabled"
	thinkingBudget := 0
	if thinkingEnabled {
		thinkingBudget = req.Thinking.BudgetTokens
	}
	if cfg.EnableUltrathinkKeyword && containsUltrathink(req.Messages) {
		thinkingEnabled = true
		thinkingBudget = ultrathinkBudgetTokens
	}

	contents, err := translateMessages(req.Messages, sigStore)
	if err != nil {
		return geminiapi.GenerateContentRequest{}, err
	}

	systemInstruction := buildSystemInstruction(req.System, cfg.InjectSystemBridgeText)

	genConfig := &geminiapi.GenerationConfig{
		MaxOutputTokens: &maxTokens,
		Temperature:     req.Temperature,
		TopP:            req.TopP,
		TopK:            req.TopK,
		StopSequences:   req.StopSequences,
	}
	if thinkingEnabled {
		genConfig.ThinkingConfig = remapThinkingConfig(upstreamModel, thinkingBudget)
	}

	out := geminiapi.GenerateContentRequest{
		Contents:          contents,
		SystemInstruction: systemInstruction,
		GenerationConfig:  genConfig,
		CachedContent:     cachedContentRef,
	}

	if len(req.Tools) > 0 {
		decls := make([]geminiapi.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, geminiapi.FunctionDeclaration{
				Name:                 t.Name,
				Description:          t.Description,
				ParametersJSONSchema: sanitize.Schema(t.InputSchema),
			})
		}
		out.Tools = []geminiapi.ToolDeclaration{{FunctionDeclarations: decls}}
		out.ToolConfig = &geminiapi.ToolConfig{
			FunctionCallingConfig: geminiapi.FunctionCallingConfig{Mode: "AUTO"},
		}
	}

	return out, nil
}

func containsUltrathink(messages []anthropicapi.Message) bool {
	for _, m := range messages {
		if m.Role != "user" {
			continue
		}
		for _, b := range m.Content.AsBlocks() {
			if b.Type == "text" && strings.Contains(strings.ToLower(b.Text), "ultrathink") {
				return true
			}
		}
	}
	return false
}

// remapThinkingConfig translates a client-facing budget_tokens into the
// upstream model family's own idiom, per SPEC_FULL.md §4.H step 6.
func remapThinkingConfig(upstreamModel string, budget int) *geminiapi.ThinkingConfig {
	includeThoughts := true
	family := modelFamily(upstreamModel)

	bracket := func() (level string, numeric int) {
		switch {
		case budget <= 15000:
			return "LOW", 15000
		case budget <= 20000:
			return "MEDIUM", 20000
		default:
			return "HIGH", 30000
		}
	}
	level, numeric := bracket()

	switch family {
	case "pro-3", "flash-3":
		return &geminiapi.ThinkingConfig{IncludeThoughts: &includeThoughts, ThinkingLevel: &level}
	default: // "2.5" family and anything else falls back to the numeric idiom
		return &geminiapi.ThinkingConfig{IncludeThoughts: &includeThoughts, ThinkingBudget: &numeric}
	}
}

// modelFamily extracts the "pro-3"/"flash-3"/"2.5" lineage tag from an
// upstream model name such as "gemini-3-pro-preview" or "gemini-2.5-flash".
func modelFamily(upstreamModel string) string {
	switch {
	case strings.Contains(upstreamModel, "-3-pro"):
		return "pro-3"
	case strings.Contains(upstreamModel, "-3-flash"):
		return "flash-3"
	case strings.HasPrefix(upstreamModel, "gemini-2.5"):
		return "2.5"
	default:
		return "2.5"
	}
}

// buildSystemInstruction assembles the upstream system_instruction from the
// client's system prompt, optionally prefixed with the bridge-policy text.
func buildSystemInstruction(sys *anthropicapi.SystemPrompt, injectBridge bool) *geminiapi.SystemInstruction {
	text := sys.ToText()

	var parts []string
	if injectBridge {
		parts = append(parts, bridgeText)
	}
	if text != "" {
		parts = append(parts, text)
	}
	if len(parts) == 0 {
		return nil
	}
	return &geminiapi.SystemInstruction{Parts: []geminiapi.Part{geminiapi.TextPart(strings.Join(parts, "\n\n"))}}
}

// translateMessages converts the client message history into upstream
// Content turns, grounded on translation/request.rs's translate_messages /
// translate_message_content / translate_content_block.
func translateMessages(messages []anthropicapi.Message, sigStore *signature.Store) ([]geminiapi.Content, error) {
	toolIDToName := make(map[string]string)
	out := make([]geminiapi.Content, 0, len(messages))

	for _, m := range messages {
		role, err := mapRole(m.Role)
		if err != nil {
			return nil, err
		}

		parts, err := translateMessageContent(m.Content.AsBlocks(), toolIDToName, sigStore)
		if err != nil {
			return nil, err
		}
		if len(parts) == 0 {
			parts = []geminiapi.Part{geminiapi.TextPart(" ")}
		}

		out = append(out, geminiapi.Content{Role: role, Parts: parts})
	}
	return out, nil
}

func mapRole(role string) (string, error) {
	switch role {
	case "user":
		return "user", nil
	case "assistant":
		return "model", nil
	default:
		return "", NewError(KindInvalidRequest, "invalid message role: %s", role)
	}
}

func translateMessageContent(blocks []anthropicapi.ContentBlock, toolIDToName map[string]string, sigStore *signature.Store) ([]geminiapi.Part, error) {
	parts := make([]geminiapi.Part, 0, len(blocks))
	for _, b := range blocks {
		part, ok, err := translateContentBlock(b, toolIDToName, sigStore)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		parts = append(parts, part)
	}
	return parts, nil
}

func translateContentBlock(b anthropicapi.ContentBlock, toolIDToName map[string]string, sigStore *signature.Store) (geminiapi.Part, bool, error) {
	switch b.Type {
	case "text":
		if b.Text == "" {
			return geminiapi.Part{}, false, nil
		}
		return geminiapi.TextPart(b.Text), true, nil

	case "thinking":
		// Assistant thoughts are never replayed upstream.
		return geminiapi.Part{}, false, nil

	case "image":
		part, err := translateImageBlock(b)
		if err != nil {
			return geminiapi.Part{}, false, err
		}
		return part, true, nil

	case "tool_use":
		toolIDToName[b.ID] = b.Name
		var args interface{}
		if len(b.Input) > 0 {
			if err := json.Unmarshal(b.Input, &args); err != nil {
				return geminiapi.Part{}, false, NewError(KindTranslation, "invalid tool_use input for %s: %v", b.Name, err)
			}
		} else {
			args = map[string]interface{}{}
		}
		sig := sigStore.Translate(b.ID)
		return geminiapi.FunctionCallPart(b.Name, args, sig), true, nil

	case "tool_result":
		name, ok := toolIDToName[b.ToolUseID]
		if !ok {
			name = fmt.Sprintf("unknown_tool_%s", b.ToolUseID)
		}
		content := b.Content.String()
		var response map[string]interface{}
		if b.IsError != nil && *b.IsError {
			response = map[string]interface{}{"error": content}
		} else {
			response = map[string]interface{}{"output": content}
		}
		return geminiapi.FunctionResponsePart(name, response), true, nil

	default:
		return geminiapi.Part{}, false, NewError(KindTranslation, "unsupported content block type: %s", b.Type)
	}
}
