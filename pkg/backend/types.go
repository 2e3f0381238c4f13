package backend

import (
	"encoding/json"
)

// ChatRequest is the outbound Chat Completions request body.
type ChatRequest struct {
	Model             string          `json:"model"`
	Messages          []ChatMessage   `json:"messages"`
	MaxTokens         *int            `json:"max_tokens,omitempty"`
	Temperature       *float64        `json:"temperature,omitempty"`
	TopP              *float64        `json:"top_p,omitempty"`
	Tools             []ChatTool      `json:"tools,omitempty"`
	ToolChoice        json.RawMessage `json:"tool_choice,omitempty"`
	ParallelToolCalls *bool           `json:"parallel_tool_calls,omitempty"`
	Stream            bool            `json:"stream"`
}

// ChatMessage is one entry in the flat Chat Completions message list.
// Content stays raw JSON because it may be a string or a content-part
// array.
type ChatMessage struct {
	Role       string          `json:"role"`
	Content    json.RawMessage `json:"content,omitempty"`
	ToolCalls  json.RawMessage `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
}

// ChatTool is a function tool in Chat Completions shape.
type ChatTool struct {
	Type     string       `json:"type"`
	Function ChatFunction `json:"function"`
}

// ChatFunction describes a callable function for the backend.
type ChatFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ChatChunk is one streamed Chat Completions chunk. Error is kept raw
// because backends disagree on its shape; its presence alone marks the
// stream as failed.
type ChatChunk struct {
	Choices []ChatChoice    `json:"choices"`
	Usage   *ChatUsage      `json:"usage,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

// ChatChoice is one choice inside a chunk. Message is populated by
// non-streaming backends that send the whole completion in one chunk.
type ChatChoice struct {
	Delta        *ChatDelta      `json:"delta,omitempty"`
	Message      json.RawMessage `json:"message,omitempty"`
	FinishReason *string         `json:"finish_reason,omitempty"`
}

// ChatDelta carries the incremental payload of a streamed choice.
// Content stays raw JSON: backends send strings, objects, or nested
// arrays, and ExtractText recovers plain text from any of them.
type ChatDelta struct {
	Content          json.RawMessage `json:"content,omitempty"`
	ToolCalls        []ToolCallDelta `json:"tool_calls,omitempty"`
	ReasoningContent *string         `json:"reasoning_content,omitempty"`
}

// ToolCallDelta is an incremental native tool-call fragment, keyed by
// Index across chunks.
type ToolCallDelta struct {
	Index    int                `json:"index"`
	ID       *string            `json:"id,omitempty"`
	Type     *string            `json:"type,omitempty"`
	Function *ToolCallFragments `json:"function,omitempty"`
}

// ToolCallFragments carries the name and argument fragments of a native
// tool call delta.
type ToolCallFragments struct {
	Name      *string `json:"name,omitempty"`
	Arguments *string `json:"arguments,omitempty"`
}

// ChatUsage reports token counts. Backends that send usage more than
// once win with the last value.
type ChatUsage struct {
	PromptTokens     *int `json:"prompt_tokens,omitempty"`
	CompletionTokens *int `json:"completion_tokens,omitempty"`
}

// ModelsResponse is the body of GET /v1/models.
type ModelsResponse struct {
	Data []ModelEntry `json:"data"`
}

// ModelEntry is one model advertised by the backend. Pricing and
// capabilities are optional extensions some gateways expose.
type ModelEntry struct {
	ID             string   `json:"id"`
	InputPriceUSD  *float64 `json:"input_price_usd,omitempty"`
	OutputPriceUSD *float64 `json:"output_price_usd,omitempty"`
	Capabilities   []string `json:"capabilities,omitempty"`
}

// ExtractText recovers a plain-text delta from the arbitrary JSON
// shapes backends use for message content:
//
//   - a string is returned as-is
//   - an object with type "text" or "output_text" yields its text field
//   - an array yields the newline-join of its recursively recovered,
//     non-empty elements
//
// The second return is false when no text could be recovered.
func ExtractText(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", false
	}
	return extractText(value)
}

func extractText(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case map[string]any:
		typ, _ := v["type"].(string)
		if typ != "text" && typ != "output_text" {
			return "", false
		}
		text, ok := v["text"].(string)
		return text, ok
	case []any:
		var combined string
		for _, item := range v {
			segment, ok := extractText(item)
			if !ok {
				continue
			}
			if combined != "" {
				combined += "\n"
			}
			combined += segment
		}
		return combined, combined != ""
	default:
		return "", false
	}
}
