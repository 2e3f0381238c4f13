package translate

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/weiche-dev/weiche/pkg/api"
	"github.com/weiche-dev/weiche/pkg/backend"
)

// ErrMissingModel is returned when the request names no model.
var ErrMissingModel = errors.New("model is required")

// Appended to the system message so backends that learned XML-style
// tool syntax fall back to native Chat Completions tool calls.
const toolCallOverride = "\n\n---\n\nIMPORTANT: Tool Calling Format Override\n" +
	"When calling functions/tools, you MUST use the standard OpenAI Chat Completions JSON format, " +
	"NOT any XML or custom syntax. The system will automatically handle tool execution. " +
	"Never output tool calls as text - use the native function calling mechanism."

// ToChat converts a Responses request into a Chat Completions request.
func ToChat(req *api.CreateResponseRequest) (*backend.ChatRequest, error) {
	if req.Model == "" {
		return nil, ErrMissingModel
	}

	var messages []backend.ChatMessage

	if req.Instructions != "" {
		messages = append(messages, backend.ChatMessage{
			Role:    "system",
			Content: jsonString(req.Instructions + toolCallOverride),
		})
	}

	if req.Input != nil {
		if req.Input.IsString() {
			messages = append(messages, backend.ChatMessage{
				Role:    "user",
				Content: jsonString(req.Input.Text),
			})
		} else {
			messages = append(messages, convertItems(req.Input.Items)...)
		}
	}

	stream := false
	if req.Stream != nil {
		stream = *req.Stream
	}

	chatReq := &backend.ChatRequest{
		Model:             req.Model,
		Messages:          messages,
		MaxTokens:         req.MaxOutputTokens,
		Temperature:       req.Temperature,
		TopP:              req.TopP,
		Tools:             convertTools(req.Tools),
		ToolChoice:        convertToolChoice(req.ToolChoice),
		ParallelToolCalls: req.ParallelToolCalls,
		Stream:            stream,
	}
	return chatReq, nil
}

// convertItems walks the input sequence in order. Reasoning items and
// tool calls are held back and attached to the next assistant message;
// leftovers at the end of the walk are dropped with a warning.
func convertItems(items []api.InputItem) []backend.ChatMessage {
	var messages []backend.ChatMessage
	var pendingReasoning []string
	var pendingToolCalls []chatToolCall

	for _, item := range items {
		switch item.Type {
		case api.InputItemMessage:
			content, reasoning := convertContent(item.Content)
			if reasoning != "" {
				pendingReasoning = append(pendingReasoning, reasoning)
			}

			if item.Role == "assistant" && len(pendingReasoning) > 0 {
				thinking := strings.Join(pendingReasoning, "\n")
				content = jsonString("<think>" + thinking + "</think>\n" + asString(content))
				slog.Debug("prepended reasoning to assistant message",
					"parts", len(pendingReasoning), "chars", len(thinking))
				pendingReasoning = nil
			}

			msg := backend.ChatMessage{Role: item.Role, Content: content}
			if item.Role == "assistant" && len(pendingToolCalls) > 0 {
				if raw, err := json.Marshal(pendingToolCalls); err == nil {
					msg.ToolCalls = raw
					slog.Debug("attached tool calls to assistant message",
						"count", len(pendingToolCalls))
				}
				pendingToolCalls = nil
			}
			messages = append(messages, msg)

		case api.InputItemFunctionCall:
			pendingToolCalls = append(pendingToolCalls, chatToolCall{
				ID:   item.CallID,
				Type: "function",
				Function: chatToolCallFunction{
					Name:      item.Name,
					Arguments: item.Arguments,
				},
			})

		case api.InputItemFunctionCallOutput:
			messages = append(messages, backend.ChatMessage{
				Role:       "tool",
				Content:    jsonString(unwrapOutput(item.Output)),
				ToolCallID: item.CallID,
			})

		case api.InputItemReasoning:
			if item.Text != "" {
				pendingReasoning = append(pendingReasoning, item.Text)
			} else if item.EncryptedContent != "" {
				slog.Warn("encrypted reasoning content not supported in stateless mode, skipping")
			}

		case api.InputItemItemReference:
			slog.Warn("item references not supported in stateless mode, skipping",
				"id", item.ID)

		default:
			slog.Warn("unknown input item type, skipping", "type", item.Type)
		}
	}

	if len(pendingReasoning) > 0 {
		slog.Warn("reasoning items without a following assistant message, dropped",
			"count", len(pendingReasoning))
	}
	if len(pendingToolCalls) > 0 {
		slog.Warn("tool calls without an assistant message to attach to, dropped",
			"count", len(pendingToolCalls))
	}
	return messages
}

type chatToolCall struct {
	ID       string               `json:"id"`
	Type     string               `json:"type"`
	Function chatToolCallFunction `json:"function"`
}

type chatToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// convertContent maps message content to Chat Completions form and
// pulls reasoning parts out for <think> folding. Pure-text part lists
// collapse into a single newline-joined string; image parts force the
// array form. input_file parts are dropped.
func convertContent(content *api.ItemContent) (json.RawMessage, string) {
	if content == nil {
		return jsonString(""), ""
	}
	if content.IsString() {
		return jsonString(content.Text), ""
	}

	var reasoning []string
	var converted []any
	var texts []string
	hasImages := false

	for _, part := range content.Parts {
		switch part.Type {
		case api.PartInputText, api.PartOutputText:
			converted = append(converted, map[string]any{
				"type": "text",
				"text": part.Text,
			})
			texts = append(texts, part.Text)
		case api.PartInputImage:
			url := ""
			if part.ImageURL != nil {
				url = part.ImageURL.URL
			}
			converted = append(converted, map[string]any{
				"type":      "image_url",
				"image_url": map[string]any{"url": url},
			})
			hasImages = true
		case api.PartReasoning:
			reasoning = append(reasoning, part.Text)
		case api.PartInputFile:
			slog.Warn("input_file content parts not supported, dropped",
				"filename", part.Filename)
		default:
			slog.Warn("unknown content part type, dropped", "type", part.Type)
		}
	}

	reasoningText := strings.Join(reasoning, "\n")

	if !hasImages && len(converted) > 0 {
		return jsonString(strings.Join(texts, "\n")), reasoningText
	}
	if converted == nil {
		converted = []any{}
	}
	raw, err := json.Marshal(converted)
	if err != nil {
		return jsonString(""), reasoningText
	}
	return raw, reasoningText
}

// unwrapOutput extracts the inner output string from tool results that
// arrive as JSON envelopes like {"output":"...","metadata":{...}}.
func unwrapOutput(output string) string {
	var envelope map[string]any
	if err := json.Unmarshal([]byte(output), &envelope); err != nil {
		return output
	}
	if inner, ok := envelope["output"].(string); ok {
		return inner
	}
	return output
}

// convertTools keeps function tools only, re-emitted in canonical form.
func convertTools(tools []api.Tool) []backend.ChatTool {
	var out []backend.ChatTool
	var skipped []string
	for _, t := range tools {
		if t.Type != "function" {
			skipped = append(skipped, t.Type)
			continue
		}
		def := t.FunctionDef()
		out = append(out, backend.ChatTool{
			Type: "function",
			Function: backend.ChatFunction{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}
	if len(skipped) > 0 {
		slog.Debug("skipping non-function tools", "types", strings.Join(skipped, ", "))
	}
	return out
}

func convertToolChoice(tc *api.ToolChoice) json.RawMessage {
	if tc == nil {
		return nil
	}
	raw, err := json.Marshal(tc)
	if err != nil {
		return nil
	}
	return raw
}

// FinishReasonStatus maps a Chat Completions finish_reason onto a
// response status. An absent finish reason means the stream is still
// in progress.
func FinishReasonStatus(finishReason *string) api.Status {
	if finishReason == nil {
		return api.StatusInProgress
	}
	switch *finishReason {
	case "length":
		return api.StatusIncomplete
	case "content_filter":
		return api.StatusFailed
	default:
		// stop, tool_calls, and anything else count as a clean finish.
		return api.StatusCompleted
	}
}

func jsonString(s string) json.RawMessage {
	raw, _ := json.Marshal(s)
	return raw
}

func asString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
