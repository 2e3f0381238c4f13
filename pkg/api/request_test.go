package api

import (
	"encoding/json"
	"testing"
)

func TestInputUnmarshalString(t *testing.T) {
	var req CreateResponseRequest
	if err := json.Unmarshal([]byte(`{"model":"m","input":"hello"}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.Input == nil || !req.Input.IsString() {
		t.Fatalf("expected string input, got %+v", req.Input)
	}
	if req.Input.Text != "hello" {
		t.Errorf("expected text %q, got %q", "hello", req.Input.Text)
	}
}

func TestInputUnmarshalItems(t *testing.T) {
	body := `{"input":[
		{"type":"message","role":"user","content":"hi"},
		{"type":"message","role":"assistant","content":[{"type":"output_text","text":"hey"}]},
		{"type":"function_call","call_id":"c1","name":"read_file","arguments":"{}"},
		{"type":"function_call_output","call_id":"c1","output":"done"},
		{"type":"reasoning","text":"thinking"},
		{"type":"item_reference","id":"item_1"}
	]}`
	var req CreateResponseRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.Input.IsString() {
		t.Fatal("expected item-list input")
	}
	items := req.Input.Items
	if len(items) != 6 {
		t.Fatalf("expected 6 items, got %d", len(items))
	}

	if items[0].Type != InputItemMessage || items[0].Role != "user" {
		t.Errorf("item 0: unexpected %+v", items[0])
	}
	if !items[0].Content.IsString() || items[0].Content.Text != "hi" {
		t.Errorf("item 0 content: unexpected %+v", items[0].Content)
	}

	if items[1].Content.IsString() {
		t.Error("item 1: expected part-list content")
	}
	if len(items[1].Content.Parts) != 1 || items[1].Content.Parts[0].Text != "hey" {
		t.Errorf("item 1 parts: unexpected %+v", items[1].Content.Parts)
	}

	if items[2].CallID != "c1" || items[2].Name != "read_file" {
		t.Errorf("item 2: unexpected %+v", items[2])
	}
	if items[3].Output != "done" {
		t.Errorf("item 3: unexpected %+v", items[3])
	}
	if items[4].Text != "thinking" {
		t.Errorf("item 4: unexpected %+v", items[4])
	}
	if items[5].ID != "item_1" {
		t.Errorf("item 5: unexpected %+v", items[5])
	}
}

func TestInputUnmarshalRejectsObject(t *testing.T) {
	var in Input
	if err := json.Unmarshal([]byte(`{"foo":1}`), &in); err == nil {
		t.Fatal("expected error for object input")
	}
}

func TestToolUnmarshalNested(t *testing.T) {
	data := `{"type":"function","function":{"name":"grep","description":"search","parameters":{"type":"object"}}}`
	var tool Tool
	if err := json.Unmarshal([]byte(data), &tool); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	def := tool.FunctionDef()
	if def.Name != "grep" || def.Description != "search" {
		t.Errorf("unexpected def %+v", def)
	}
}

func TestToolUnmarshalFlat(t *testing.T) {
	data := `{"type":"function","name":"grep","parameters":{"type":"object"},"strict":true}`
	var tool Tool
	if err := json.Unmarshal([]byte(data), &tool); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	def := tool.FunctionDef()
	if def.Name != "grep" {
		t.Errorf("expected name grep, got %q", def.Name)
	}
	if !tool.Strict {
		t.Error("expected strict=true")
	}
}

func TestToolFlatNameFallsBackToType(t *testing.T) {
	var tool Tool
	if err := json.Unmarshal([]byte(`{"type":"web_search"}`), &tool); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	def := tool.FunctionDef()
	if def.Name != "web_search" {
		t.Errorf("expected fallback name web_search, got %q", def.Name)
	}
	if string(def.Parameters) != `{}` {
		t.Errorf("expected empty object parameters, got %s", def.Parameters)
	}
}

func TestToolMarshalEchoesOriginal(t *testing.T) {
	raw := `{"type":"function","name":"grep","custom_field":42}`
	var tool Tool
	if err := json.Unmarshal([]byte(raw), &tool); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(tool)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != raw {
		t.Errorf("expected verbatim echo %s, got %s", raw, out)
	}
}

func TestToolChoiceRoundTrip(t *testing.T) {
	var tc ToolChoice
	if err := json.Unmarshal([]byte(`"auto"`), &tc); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if tc.String != "auto" {
		t.Errorf("expected auto, got %q", tc.String)
	}

	if err := json.Unmarshal([]byte(`{"type":"function","function":{"name":"grep"}}`), &tc); err != nil {
		t.Fatalf("unmarshal object: %v", err)
	}
	if tc.Specific == nil || tc.Specific.Function.Name != "grep" {
		t.Errorf("unexpected specific %+v", tc.Specific)
	}

	out, err := json.Marshal(tc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"type":"function","function":{"name":"grep"}}` {
		t.Errorf("unexpected marshal output %s", out)
	}
}

func TestOutputItemMarshalEmptyContent(t *testing.T) {
	item := OutputItem{
		ID:      "msg_1",
		Object:  "realtime.item",
		Type:    OutputItemMessage,
		Status:  StatusInProgress,
		Role:    "assistant",
		Content: []OutputContent{},
	}
	out, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	content, ok := decoded["content"].([]any)
	if !ok {
		t.Fatalf("expected content array, got %v", decoded["content"])
	}
	if len(content) != 0 {
		t.Errorf("expected empty content, got %v", content)
	}
}

func TestOutputItemMarshalOmitsNilContent(t *testing.T) {
	item := OutputItem{
		ID:        "fc_1",
		Object:    "realtime.item",
		Type:      OutputItemFunctionCall,
		Status:    StatusCompleted,
		CallID:    "c1",
		Name:      "grep",
		Arguments: Ptr(`{"q":"x"}`),
	}
	out, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, present := decoded["content"]; present {
		t.Error("expected content to be omitted for function_call items")
	}
	if decoded["arguments"] != `{"q":"x"}` {
		t.Errorf("unexpected arguments %v", decoded["arguments"])
	}
}

func TestStreamEventZeroIndexesSurvive(t *testing.T) {
	ev := StreamEvent{
		Type:         EventContentPartAdded,
		OutputIndex:  Ptr(0),
		ContentIndex: Ptr(0),
	}
	out, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, present := decoded["output_index"]; !present {
		t.Error("output_index 0 was dropped")
	}
	if _, present := decoded["content_index"]; !present {
		t.Error("content_index 0 was dropped")
	}
}
