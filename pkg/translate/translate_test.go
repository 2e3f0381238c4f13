package translate

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/weiche-dev/weiche/pkg/api"
)

func contentString(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		t.Fatalf("content is not a JSON string: %s", raw)
	}
	return s
}

func TestToChatRequiresModel(t *testing.T) {
	_, err := ToChat(&api.CreateResponseRequest{Input: api.InputText("hi")})
	if err != ErrMissingModel {
		t.Fatalf("expected ErrMissingModel, got %v", err)
	}
}

func TestToChatStringInput(t *testing.T) {
	chatReq, err := ToChat(&api.CreateResponseRequest{Model: "m", Input: api.InputText("hi")})
	if err != nil {
		t.Fatalf("ToChat: %v", err)
	}
	if len(chatReq.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(chatReq.Messages))
	}
	msg := chatReq.Messages[0]
	if msg.Role != "user" || contentString(t, msg.Content) != "hi" {
		t.Errorf("unexpected message %+v", msg)
	}
	if chatReq.Stream {
		t.Error("stream must default to false")
	}
}

func TestToChatInstructionsBecomeSystemMessage(t *testing.T) {
	chatReq, err := ToChat(&api.CreateResponseRequest{
		Model:        "m",
		Instructions: "Be terse.",
		Input:        api.InputText("hi"),
	})
	if err != nil {
		t.Fatalf("ToChat: %v", err)
	}
	if len(chatReq.Messages) != 2 || chatReq.Messages[0].Role != "system" {
		t.Fatalf("expected leading system message, got %+v", chatReq.Messages)
	}
	sys := contentString(t, chatReq.Messages[0].Content)
	if !strings.HasPrefix(sys, "Be terse.") {
		t.Errorf("system message must start with instructions, got %q", sys)
	}
	if !strings.Contains(sys, "Tool Calling Format Override") {
		t.Error("system message must carry the tool-call format override")
	}
}

func TestToChatReasoningFoldsIntoThinkTags(t *testing.T) {
	chatReq, err := ToChat(&api.CreateResponseRequest{
		Model: "m",
		Input: api.InputItems(
			api.InputItem{Type: api.InputItemReasoning, Text: "step one"},
			api.InputItem{Type: api.InputItemMessage, Role: "assistant",
				Content: &api.ItemContent{Text: "answer"}},
		),
	})
	if err != nil {
		t.Fatalf("ToChat: %v", err)
	}
	got := contentString(t, chatReq.Messages[0].Content)
	if got != "<think>step one</think>\nanswer" {
		t.Errorf("unexpected assistant content %q", got)
	}
}

func TestToChatReasoningSkipsUserMessages(t *testing.T) {
	chatReq, err := ToChat(&api.CreateResponseRequest{
		Model: "m",
		Input: api.InputItems(
			api.InputItem{Type: api.InputItemReasoning, Text: "hm"},
			api.InputItem{Type: api.InputItemMessage, Role: "user",
				Content: &api.ItemContent{Text: "question"}},
			api.InputItem{Type: api.InputItemMessage, Role: "assistant",
				Content: &api.ItemContent{Text: "reply"}},
		),
	})
	if err != nil {
		t.Fatalf("ToChat: %v", err)
	}
	if got := contentString(t, chatReq.Messages[0].Content); got != "question" {
		t.Errorf("user message must stay untouched, got %q", got)
	}
	if got := contentString(t, chatReq.Messages[1].Content); !strings.HasPrefix(got, "<think>hm</think>") {
		t.Errorf("reasoning must attach to the next assistant message, got %q", got)
	}
}

func TestToChatToolCallsAttachToAssistant(t *testing.T) {
	chatReq, err := ToChat(&api.CreateResponseRequest{
		Model: "m",
		Input: api.InputItems(
			api.InputItem{Type: api.InputItemFunctionCall,
				CallID: "call_1", Name: "grep", Arguments: `{"q":"x"}`},
			api.InputItem{Type: api.InputItemMessage, Role: "assistant",
				Content: &api.ItemContent{Text: ""}},
		),
	})
	if err != nil {
		t.Fatalf("ToChat: %v", err)
	}
	var calls []chatToolCall
	if err := json.Unmarshal(chatReq.Messages[0].ToolCalls, &calls); err != nil {
		t.Fatalf("tool_calls not valid JSON: %v", err)
	}
	if len(calls) != 1 || calls[0].ID != "call_1" || calls[0].Function.Name != "grep" {
		t.Errorf("unexpected tool calls %+v", calls)
	}
}

func TestToChatFunctionCallOutputUnwrapsEnvelope(t *testing.T) {
	chatReq, err := ToChat(&api.CreateResponseRequest{
		Model: "m",
		Input: api.InputItems(
			api.InputItem{Type: api.InputItemFunctionCallOutput,
				CallID: "call_1", Output: `{"output":"inner text","metadata":{"ms":12}}`},
			api.InputItem{Type: api.InputItemFunctionCallOutput,
				CallID: "call_2", Output: "plain result"},
		),
	})
	if err != nil {
		t.Fatalf("ToChat: %v", err)
	}
	if len(chatReq.Messages) != 2 {
		t.Fatalf("expected 2 tool messages, got %d", len(chatReq.Messages))
	}
	first := chatReq.Messages[0]
	if first.Role != "tool" || first.ToolCallID != "call_1" {
		t.Errorf("unexpected tool message %+v", first)
	}
	if got := contentString(t, first.Content); got != "inner text" {
		t.Errorf("envelope not unwrapped, got %q", got)
	}
	if got := contentString(t, chatReq.Messages[1].Content); got != "plain result" {
		t.Errorf("plain output mangled, got %q", got)
	}
}

func TestToChatTextPartsCollapse(t *testing.T) {
	chatReq, err := ToChat(&api.CreateResponseRequest{
		Model: "m",
		Input: api.InputItems(
			api.InputItem{Type: api.InputItemMessage, Role: "user",
				Content: &api.ItemContent{Parts: []api.ContentPart{
					{Type: api.PartInputText, Text: "first"},
					{Type: api.PartOutputText, Text: "second"},
				}}},
		),
	})
	if err != nil {
		t.Fatalf("ToChat: %v", err)
	}
	if got := contentString(t, chatReq.Messages[0].Content); got != "first\nsecond" {
		t.Errorf("text parts should collapse, got %q", got)
	}
}

func TestToChatImagePartsKeepArrayForm(t *testing.T) {
	chatReq, err := ToChat(&api.CreateResponseRequest{
		Model: "m",
		Input: api.InputItems(
			api.InputItem{Type: api.InputItemMessage, Role: "user",
				Content: &api.ItemContent{Parts: []api.ContentPart{
					{Type: api.PartInputText, Text: "see"},
					{Type: api.PartInputImage, ImageURL: &api.ImageURL{URL: "http://x/i.png"}},
				}}},
		),
	})
	if err != nil {
		t.Fatalf("ToChat: %v", err)
	}
	var parts []map[string]any
	if err := json.Unmarshal(chatReq.Messages[0].Content, &parts); err != nil {
		t.Fatalf("content should be an array, got %s", chatReq.Messages[0].Content)
	}
	if len(parts) != 2 || parts[0]["type"] != "text" || parts[1]["type"] != "image_url" {
		t.Errorf("unexpected parts %+v", parts)
	}
}

func TestToChatOnlyFunctionToolsSurvive(t *testing.T) {
	var webSearch, fn api.Tool
	if err := json.Unmarshal([]byte(`{"type":"web_search"}`), &webSearch); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(`{"type":"function","name":"grep","parameters":{"type":"object"}}`), &fn); err != nil {
		t.Fatal(err)
	}
	chatReq, err := ToChat(&api.CreateResponseRequest{
		Model: "m",
		Tools: []api.Tool{webSearch, fn},
	})
	if err != nil {
		t.Fatalf("ToChat: %v", err)
	}
	if len(chatReq.Tools) != 1 || chatReq.Tools[0].Function.Name != "grep" {
		t.Errorf("unexpected tools %+v", chatReq.Tools)
	}
}

func TestToChatToolChoicePassthrough(t *testing.T) {
	chatReq, err := ToChat(&api.CreateResponseRequest{
		Model:      "m",
		ToolChoice: &api.ToolChoice{String: "auto"},
	})
	if err != nil {
		t.Fatalf("ToChat: %v", err)
	}
	if string(chatReq.ToolChoice) != `"auto"` {
		t.Errorf("unexpected tool_choice %s", chatReq.ToolChoice)
	}

	chatReq, err = ToChat(&api.CreateResponseRequest{
		Model: "m",
		ToolChoice: &api.ToolChoice{Specific: &api.ToolChoiceSpecific{
			Type: "function", Function: api.FunctionChoice{Name: "grep"},
		}},
	})
	if err != nil {
		t.Fatalf("ToChat: %v", err)
	}
	if !strings.Contains(string(chatReq.ToolChoice), `"grep"`) {
		t.Errorf("unexpected tool_choice %s", chatReq.ToolChoice)
	}
}

func TestToChatCopyThroughFields(t *testing.T) {
	chatReq, err := ToChat(&api.CreateResponseRequest{
		Model:             "m",
		MaxOutputTokens:   api.Ptr(512),
		Temperature:       api.Ptr(0.3),
		TopP:              api.Ptr(0.9),
		ParallelToolCalls: api.Ptr(true),
		Stream:            api.Ptr(true),
	})
	if err != nil {
		t.Fatalf("ToChat: %v", err)
	}
	if *chatReq.MaxTokens != 512 || *chatReq.Temperature != 0.3 ||
		*chatReq.TopP != 0.9 || !*chatReq.ParallelToolCalls || !chatReq.Stream {
		t.Errorf("copy-through fields mangled: %+v", chatReq)
	}
}

func TestFinishReasonStatus(t *testing.T) {
	cases := []struct {
		reason *string
		want   api.Status
	}{
		{api.Ptr("stop"), api.StatusCompleted},
		{api.Ptr("tool_calls"), api.StatusCompleted},
		{api.Ptr("something_new"), api.StatusCompleted},
		{api.Ptr("length"), api.StatusIncomplete},
		{api.Ptr("content_filter"), api.StatusFailed},
		{nil, api.StatusInProgress},
	}
	for _, c := range cases {
		if got := FinishReasonStatus(c.reason); got != c.want {
			t.Errorf("FinishReasonStatus(%v) = %s, want %s", c.reason, got, c.want)
		}
	}
}
