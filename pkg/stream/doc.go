// Package stream drives the translation of one backend Chat
// Completions stream into a Responses API event stream.
//
// The orchestrator owns all per-response state (accumulated text and
// reasoning, tool-call map, XML buffering) and runs single-threaded:
// it reads backend frames, emits serialized events onto a bounded
// channel, and finishes with exactly one terminal event. The sequencer
// stamps every event with a monotonic sequence number and a unique
// event id.
package stream
