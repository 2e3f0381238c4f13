package backend

import (
	"encoding/json"
	"testing"
)

func TestExtractTextString(t *testing.T) {
	got, ok := ExtractText(json.RawMessage(`"hello"`))
	if !ok || got != "hello" {
		t.Errorf("got %q, %v", got, ok)
	}
}

func TestExtractTextObject(t *testing.T) {
	for _, typ := range []string{"text", "output_text"} {
		raw := json.RawMessage(`{"type":"` + typ + `","text":"hi"}`)
		got, ok := ExtractText(raw)
		if !ok || got != "hi" {
			t.Errorf("type %s: got %q, %v", typ, got, ok)
		}
	}
	if _, ok := ExtractText(json.RawMessage(`{"type":"image","text":"hi"}`)); ok {
		t.Error("non-text object should yield nothing")
	}
}

func TestExtractTextArrayJoinsWithNewline(t *testing.T) {
	raw := json.RawMessage(`["a",{"type":"text","text":"b"},42,"c"]`)
	got, ok := ExtractText(raw)
	if !ok || got != "a\nb\nc" {
		t.Errorf("got %q, %v", got, ok)
	}
}

func TestExtractTextEmptyAndScalars(t *testing.T) {
	for _, raw := range []string{"", "42", "true", "null", "[]"} {
		if got, ok := ExtractText(json.RawMessage(raw)); ok {
			t.Errorf("%s: expected no text, got %q", raw, got)
		}
	}
}

func TestChatChunkUnmarshal(t *testing.T) {
	payload := `{"choices":[{"delta":{"content":"hi","tool_calls":[{"index":0,"id":"c1","function":{"name":"grep","arguments":"{\"q\":"}}],"reasoning_content":"think"},"finish_reason":null}],"usage":{"prompt_tokens":3,"completion_tokens":7}}`
	var chunk ChatChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(chunk.Choices) != 1 {
		t.Fatalf("expected 1 choice, got %d", len(chunk.Choices))
	}
	d := chunk.Choices[0].Delta
	if d == nil || d.ReasoningContent == nil || *d.ReasoningContent != "think" {
		t.Errorf("unexpected delta %+v", d)
	}
	if len(d.ToolCalls) != 1 || d.ToolCalls[0].Function == nil ||
		*d.ToolCalls[0].Function.Name != "grep" {
		t.Errorf("unexpected tool calls %+v", d.ToolCalls)
	}
	if chunk.Usage == nil || *chunk.Usage.PromptTokens != 3 || *chunk.Usage.CompletionTokens != 7 {
		t.Errorf("unexpected usage %+v", chunk.Usage)
	}
}

func TestChatChunkErrorField(t *testing.T) {
	var chunk ChatChunk
	if err := json.Unmarshal([]byte(`{"error":{"message":"rate limited"},"choices":[]}`), &chunk); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(chunk.Error) == 0 {
		t.Error("expected error payload to be retained")
	}
}
