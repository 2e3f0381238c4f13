package backend

import (
	"reflect"
	"testing"
)

func TestFrameParserSingleEvent(t *testing.T) {
	var p FrameParser
	got := p.Push([]byte("data: {\"a\":1}\n\n"))
	want := []string{`{"a":1}`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFrameParserCRLF(t *testing.T) {
	var p FrameParser
	got := p.Push([]byte("data: one\r\n\r\ndata: two\r\n\r\n"))
	want := []string{"one", "two"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestFrameParserStraddlesChunks(t *testing.T) {
	var p FrameParser
	if got := p.Push([]byte("data: {\"cho")); got != nil {
		t.Fatalf("incomplete event yielded %v", got)
	}
	if got := p.Push([]byte("ices\":[]}\n")); got != nil {
		t.Fatalf("event without blank line yielded %v", got)
	}
	got := p.Push([]byte("\n"))
	if !reflect.DeepEqual(got, []string{`{"choices":[]}`}) {
		t.Errorf("got %v", got)
	}
}

func TestFrameParserMultiDataLines(t *testing.T) {
	var p FrameParser
	got := p.Push([]byte("data: line1\ndata: line2\n\n"))
	if !reflect.DeepEqual(got, []string{"line1\nline2"}) {
		t.Errorf("got %v", got)
	}
}

func TestFrameParserIgnoresNonDataLines(t *testing.T) {
	var p FrameParser
	got := p.Push([]byte(": comment\nevent: message\nid: 7\nretry: 100\ndata: x\n\n"))
	if !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf("got %v", got)
	}
}

func TestFrameParserDoneVerbatim(t *testing.T) {
	var p FrameParser
	got := p.Push([]byte("data: [DONE]\n\n"))
	if !reflect.DeepEqual(got, []string{"[DONE]"}) {
		t.Errorf("got %v", got)
	}
}

func TestFrameParserBlankWithoutDataYieldsNothing(t *testing.T) {
	var p FrameParser
	if got := p.Push([]byte("\n\n: ping\n\n")); got != nil {
		t.Errorf("got %v, want nothing", got)
	}
}

// Feeding the stream one byte at a time must yield exactly the same
// payloads as feeding it in a single chunk.
func TestFrameParserByteAtATime(t *testing.T) {
	stream := []byte("data: {\"choices\":[{\"delta\":{\"content\":\"hel\"}}]}\n\n" +
		": keepalive\r\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\r\n\r\n" +
		"data: [DONE]\n\n")

	var whole FrameParser
	want := whole.Push(stream)

	var p FrameParser
	var got []string
	for i := range stream {
		got = append(got, p.Push(stream[i:i+1])...)
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("byte-at-a-time %v != one-chunk %v", got, want)
	}
}

func TestFrameParserFlushCompletesEvent(t *testing.T) {
	var p FrameParser
	if got := p.Push([]byte("data: tail")); got != nil {
		t.Fatalf("unexpected payloads %v", got)
	}
	if got := p.Flush(); !reflect.DeepEqual(got, []string{"tail"}) {
		t.Errorf("got %v", got)
	}
}

func TestFrameParserFlushBareJSONBody(t *testing.T) {
	var p FrameParser
	p.Push([]byte(`{"error":{"message":"boom"}}`))
	got := p.Flush()
	if !reflect.DeepEqual(got, []string{`{"error":{"message":"boom"}}`}) {
		t.Errorf("got %v", got)
	}
}

func TestFrameParserFlushEmpty(t *testing.T) {
	var p FrameParser
	p.Push([]byte("data: x\n\n"))
	if got := p.Flush(); got != nil {
		t.Errorf("flush after clean stream yielded %v", got)
	}
}
