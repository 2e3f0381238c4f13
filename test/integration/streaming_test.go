package integration

import (
	"strings"
	"testing"
)

func TestNativeToolCallStream(t *testing.T) {
	resp := createResponse(t, `{"model":"mock-model","input":"use the tool","tools":[{"type":"function","name":"lookup"}]}`)
	events := readEvents(t, resp)

	var argsDone map[string]any
	for _, ev := range events {
		if ev["type"] == "response.function_call_arguments.done" {
			argsDone = ev
		}
	}
	if argsDone == nil {
		t.Fatal("expected function_call_arguments.done")
	}
	if argsDone["name"] != "lookup" {
		t.Errorf("call name = %v", argsDone["name"])
	}
	if argsDone["arguments"] != `{"q":"go"}` {
		t.Errorf("arguments = %v", argsDone["arguments"])
	}

	final := events[len(events)-1]["response"].(map[string]any)
	output := final["output"].([]any)
	last := output[len(output)-1].(map[string]any)
	if last["type"] != "function_call" || last["call_id"] != "call_1" {
		t.Errorf("final call item = %v", last)
	}
}

func TestXMLToolCallSalvaged(t *testing.T) {
	resp := createResponse(t, `{"model":"mock-model","input":"make an xml call"}`)
	events := readEvents(t, resp)

	// The XML text must never leak to the client as output text.
	for _, ev := range events {
		if ev["type"] == "response.output_text.delta" {
			if strings.Contains(ev["delta"].(string), "<function=") {
				t.Errorf("XML leaked into text delta: %v", ev["delta"])
			}
		}
	}

	var callID string
	var arguments string
	for _, ev := range events {
		if ev["type"] == "response.function_call_arguments.done" {
			callID = ev["call_id"].(string)
			arguments = ev["arguments"].(string)
		}
	}
	if !strings.HasPrefix(callID, "call_xml_") {
		t.Errorf("call_id = %q, want call_xml_ prefix", callID)
	}
	if arguments != `{"path":"/tmp/a"}` {
		t.Errorf("arguments = %q", arguments)
	}
}

func TestTruncatedStreamMarkedIncomplete(t *testing.T) {
	resp := createResponse(t, `{"model":"mock-model","input":"cut me off","max_output_tokens":4}`)
	events := readEvents(t, resp)

	final := events[len(events)-1]
	if final["type"] != "response.completed" {
		t.Fatalf("last event = %v", final["type"])
	}
	response := final["response"].(map[string]any)
	if response["status"] != "incomplete" {
		t.Errorf("status = %v, want incomplete", response["status"])
	}
	details := response["incomplete_details"].(map[string]any)
	if details["reason"] != "max_output_tokens" {
		t.Errorf("incomplete reason = %v", details["reason"])
	}
}

func TestNoDoneMarkerForwarded(t *testing.T) {
	resp := createResponse(t, `{"model":"mock-model","input":"say hi"}`)
	defer resp.Body.Close()

	events := readEvents(t, resp)
	for _, ev := range events {
		if _, ok := ev["type"]; !ok {
			t.Errorf("frame without type: %v", ev)
		}
	}
}
